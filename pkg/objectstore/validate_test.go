package objectstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/cuemby/tablesync/pkg/apperr"
	"github.com/cuemby/tablesync/pkg/objectstore"
	"github.com/cuemby/tablesync/pkg/objectstore/fake"
)

func TestValidateSucceedsWhenDirectoryReachable(t *testing.T) {
	store := fake.New()
	if err := objectstore.Validate(context.Background(), store, "export/orders"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

type failingEnsureDir struct {
	*fake.Store
	err error
}

func (f failingEnsureDir) EnsureDirectory(ctx context.Context, path string) error {
	return f.err
}

func TestValidateClassifiesAuthFailure(t *testing.T) {
	store := failingEnsureDir{Store: fake.New(), err: &apperr.AuthError{Msg: "denied"}}
	err := objectstore.Validate(context.Background(), store, "export")
	if apperr.Classify(err) != apperr.ClassAuth {
		t.Fatalf("expected ClassAuth, got %v (%v)", apperr.Classify(err), err)
	}
}

func TestValidateClassifiesNotFound(t *testing.T) {
	store := failingEnsureDir{Store: fake.New(), err: &apperr.NotFoundError{Msg: "missing"}}
	err := objectstore.Validate(context.Background(), store, "export")
	if apperr.Classify(err) != apperr.ClassNotFound {
		t.Fatalf("expected ClassNotFound, got %v (%v)", apperr.Classify(err), err)
	}
}

func TestValidateWrapsOtherErrorsAsAuth(t *testing.T) {
	store := failingEnsureDir{Store: fake.New(), err: errors.New("boom")}
	err := objectstore.Validate(context.Background(), store, "export")
	if apperr.Classify(err) != apperr.ClassAuth {
		t.Fatalf("expected ClassAuth fallback, got %v (%v)", apperr.Classify(err), err)
	}
}

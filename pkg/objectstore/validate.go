package objectstore

import (
	"context"
	"fmt"

	"github.com/cuemby/tablesync/pkg/apperr"
)

// Validate performs the pre-flight connectivity check the original pipeline
// ran before moving any data: confirm dir is reachable in the object store.
// Mirrors validate_adls_connection's guidance text (§12 item 5) so an
// operator sees the same actionable message the original raised.
func Validate(ctx context.Context, store Store, dir string) error {
	if err := store.EnsureDirectory(ctx, dir); err != nil {
		switch apperr.Classify(err) {
		case apperr.ClassAuth:
			return &apperr.AuthError{Msg: "ADLS authentication failed. Ensure managed identity has proper permissions."}
		case apperr.ClassNotFound:
			return &apperr.NotFoundError{Msg: fmt.Sprintf("ADLS directory %q does not exist.", dir)}
		default:
			return &apperr.AuthError{Msg: fmt.Sprintf("ADLS connection validation failed: %v", err)}
		}
	}
	return nil
}

package docstore

import (
	"context"
	"fmt"

	"github.com/cuemby/tablesync/pkg/apperr"
)

// Validate performs the pre-flight connectivity check the original pipeline
// ran before processing any batch: confirm the container is reachable and,
// when a partition filter was requested, confirm the path is one of the
// container's partition key paths and every requested value actually
// occurs in the container. Returns a *apperr.ConfigError (or NotFoundError)
// immediately on any failure, before any data is read or written.
func Validate(ctx context.Context, store Store, container string, partitionPath string, partitionValues []any) error {
	paths, err := store.ListPartitionKeyPaths(ctx, container)
	if err != nil {
		return fmt.Errorf("validating container %q: %w", container, err)
	}

	if partitionPath == "" {
		return nil
	}

	found := false
	for _, p := range paths {
		if p == partitionPath {
			found = true
			break
		}
	}
	if !found {
		return apperr.NewConfigError("partition_key_path", fmt.Sprintf("%q is not a partition key path of container %q", partitionPath, container))
	}

	if len(partitionValues) == 0 {
		return nil
	}

	distinct, err := store.ListDistinctPartitionValues(ctx, container, partitionPath)
	if err != nil {
		return fmt.Errorf("listing distinct values for %q: %w", partitionPath, err)
	}
	seen := make(map[any]struct{}, len(distinct))
	for _, v := range distinct {
		seen[v] = struct{}{}
	}
	for _, want := range partitionValues {
		if _, ok := seen[want]; !ok {
			return apperr.NewConfigError("partition_key_value", fmt.Sprintf("value %v not present in container %q", want, container))
		}
	}
	return nil
}

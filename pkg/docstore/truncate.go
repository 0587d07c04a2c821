package docstore

import "context"

// TruncateAndRecreate deletes container and recreates it with the same
// partition key paths and throughput characteristics it had before
// deletion, per §4.11's truncate-before-import step. It is the Go
// equivalent of the source pipeline's read-properties / delete / recreate
// sequence, preserving autoscale max RU or manual RU rather than falling
// back to a container default.
func TruncateAndRecreate(ctx context.Context, store Store, container string) error {
	paths, err := store.ListPartitionKeyPaths(ctx, container)
	if err != nil {
		return err
	}
	throughput, err := store.ReadThroughput(ctx, container)
	if err != nil {
		return err
	}
	if err := store.DeleteContainer(ctx, container); err != nil {
		return err
	}
	return store.CreateContainer(ctx, container, paths, throughput)
}

package pipeline

import (
	"fmt"
	"strconv"

	bolt "go.etcd.io/bbolt"
)

var bucketCheckpoints = []byte("checkpoints")

// CheckpointStore persists the last committed parent-row offset per
// container, keyed by run ID, so a crashed import can resume from
// the last completed batch instead of restarting from row 0. Grounded in the
// teacher's pkg/storage BoltDB bucket idiom (one bucket, string keys, raw
// values).
type CheckpointStore struct {
	db *bolt.DB
}

// OpenCheckpointStore opens (creating if absent) a bbolt database at path.
func OpenCheckpointStore(path string) (*CheckpointStore, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCheckpoints)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create checkpoint bucket: %w", err)
	}
	return &CheckpointStore{db: db}, nil
}

// Close closes the underlying database.
func (s *CheckpointStore) Close() error {
	return s.db.Close()
}

func checkpointKey(runID, container string) []byte {
	return []byte(runID + "/" + container)
}

// SaveOffset records the last committed parent-row offset for runID and
// container.
func (s *CheckpointStore) SaveOffset(runID, container string, offset int) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCheckpoints)
		return b.Put(checkpointKey(runID, container), []byte(strconv.Itoa(offset)))
	})
}

// LoadOffset returns the last committed parent-row offset for runID and
// container, or 0 if no checkpoint exists.
func (s *CheckpointStore) LoadOffset(runID, container string) (int, error) {
	var offset int
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCheckpoints)
		data := b.Get(checkpointKey(runID, container))
		if data == nil {
			return nil
		}
		n, err := strconv.Atoi(string(data))
		if err != nil {
			return fmt.Errorf("corrupt checkpoint for %s/%s: %w", runID, container, err)
		}
		offset = n
		return nil
	})
	return offset, err
}

// ClearOffset removes the checkpoint for runID and container, called on
// successful completion so a subsequent run starts fresh.
func (s *CheckpointStore) ClearOffset(runID, container string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCheckpoints)
		return b.Delete(checkpointKey(runID, container))
	})
}

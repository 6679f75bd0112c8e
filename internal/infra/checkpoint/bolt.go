package checkpoint

import (
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	domain "fanfilter/internal/domain/followers"
)

var bucketCursors = []byte("cursors")

// Store persists the latest-seen cursor per identifier so a multi-thousand
// profile job survives a process restart. Cursors are opaque: stored and
// returned byte-for-byte, never inspected.
type Store struct {
	db *bolt.DB
}

// Open creates the checkpoint database, creating parent directories as
// needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCursors)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// SaveCursor records the latest cursor for an identifier, overwriting any
// prior value.
func (s *Store) SaveCursor(identifier, cursor string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCursors).Put([]byte(identifier), []byte(cursor))
	})
}

// Cursor returns the last saved cursor for an identifier, or
// followers.ErrNoCheckpoint when none was ever saved.
func (s *Store) Cursor(identifier string) (string, error) {
	var out string
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketCursors).Get([]byte(identifier))
		if v == nil {
			return domain.ErrNoCheckpoint
		}
		out = string(v)
		return nil
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

// Package cache adds an optional response cache in front of a Fetcher,
// backed by a bbolt file. Entries never expire: a window that has fully
// elapsed can never produce different records, and for a window reaching
// into the present the staleness is the accepted price of reuse.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

// Store provides a simple kv store interface based on boltdb. One file,
// one bucket, one key per distinct query.
type Store struct {
	db         *bbolt.DB
	bucketName []byte
}

// NewStore opens (creating as needed) the database file at dbPath. Opening
// takes a file lock; the short timeout keeps a second concurrent invocation
// from hanging on it forever.
func NewStore(dbPath string, bucketName string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketName)); err != nil {
			return err
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating database bucket: %w", err)
	}

	return &Store{
		db:         db,
		bucketName: []byte(bucketName),
	}, nil
}

// ReadKey returns the data saved for the given key, or nil if there's no
// data stored. The bytes are copied out because bolt-managed memory is only
// valid inside the transaction.
func (s *Store) ReadKey(key []byte) ([]byte, error) {
	var data []byte
	if err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucketName)
		if v := b.Get(key); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("reading from db: %w", err)
	}

	return data, nil
}

// UpdateKey stores the given data under the given key.
func (s *Store) UpdateKey(key []byte, data []byte) error {
	if err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucketName)
		return b.Put(key, data)
	}); err != nil {
		return fmt.Errorf("writing to db: %w", err)
	}

	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

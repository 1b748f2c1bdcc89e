// Package bbolt provides the BoltDB-backed local cache store.
package bbolt

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/alfred/internal/storage"
	"go.etcd.io/bbolt"
)

const widgetBucket = "widget_data"

// Store provides a BoltDB-backed local cache store. It satisfies
// storage.LocalStore and stays available regardless of network state.
type Store struct {
	db *bbolt.DB
}

// Open opens a BoltDB-backed store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	db, err := bbolt.Open(cleanPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}

	store := &Store{db: db}
	if err := store.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying BoltDB database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get fetches the value cached under key. Missing keys return
// storage.ErrNotFound.
func (s *Store) Get(key string) (string, error) {
	if s == nil || s.db == nil {
		return "", fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("cache key is required")
	}

	var value string
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(widgetBucket))
		if bucket == nil {
			return fmt.Errorf("widget bucket is missing")
		}
		payload := bucket.Get([]byte(key))
		if payload == nil {
			return storage.ErrNotFound
		}
		value = string(payload)
		return nil
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", storage.ErrNotFound
		}
		return "", err
	}

	return value, nil
}

// Set caches value under key, overwriting any prior value.
func (s *Store) Set(key string, value string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("cache key is required")
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(widgetBucket))
		if bucket == nil {
			return fmt.Errorf("widget bucket is missing")
		}
		return bucket.Put([]byte(key), []byte(value))
	})
}

// Remove deletes the value cached under key. Removing an absent key is not
// an error.
func (s *Store) Remove(key string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("cache key is required")
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(widgetBucket))
		if bucket == nil {
			return fmt.Errorf("widget bucket is missing")
		}
		return bucket.Delete([]byte(key))
	})
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(widgetBucket))
		if err != nil {
			return fmt.Errorf("create widget bucket: %w", err)
		}
		return nil
	})
}

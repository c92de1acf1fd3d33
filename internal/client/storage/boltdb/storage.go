package boltdb

import (
	"context"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/otpauth/internal/client/storage"
)

// BoltDB bucket names
var bucketAuth = []byte("auth")

// Storage represents BoltDB storage implementation for client
type Storage struct {
	db  *bbolt.DB
	now func() time.Time
}

// Option настраивает Storage
type Option func(*Storage)

// WithClock задает часы, по которым IsAuthenticated проверяет срок токена
func WithClock(now func() time.Time) Option {
	return func(s *Storage) {
		s.now = now
	}
}

// New creates a new BoltDB storage instance
// dbPath is the path to the BoltDB database file
func New(ctx context.Context, dbPath string, opts ...Option) (*Storage, error) {
	// Открываем BoltDB; таймаут нужен, если файл держит другой процесс CLI
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	store := &Storage{db: db, now: time.Now}
	for _, opt := range opts {
		opt(store)
	}

	// Инициализируем buckets
	if err := store.initBuckets(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// update и view возвращают ErrStorageClosed после Close
func (s *Storage) update(fn func(tx *bbolt.Tx) error) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}
	return s.db.Update(fn)
}

func (s *Storage) view(fn func(tx *bbolt.Tx) error) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}
	return s.db.View(fn)
}

// initBuckets создает необходимые buckets если они не существуют
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketAuth); err != nil {
			return fmt.Errorf("failed to create auth bucket: %w", err)
		}
		return nil
	})
}

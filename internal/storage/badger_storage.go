package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/course-engine/backend/internal/search"
)

var snapshotKey = []byte("snapshot:current")

// BadgerStorage implements SnapshotStorage on BadgerDB
type BadgerStorage struct {
	db    *badger.DB
	owned bool
}

// OpenBadgerStorage opens (or creates) a BadgerDB at dir and owns it
func OpenBadgerStorage(dir string) (*BadgerStorage, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &BadgerStorage{db: db, owned: true}, nil
}

// NewBadgerStorage wraps an already open database. Close leaves it open.
func NewBadgerStorage(db *badger.DB) *BadgerStorage {
	return &BadgerStorage{db: db}
}

// Save stores the snapshot under a fixed key
func (s *BadgerStorage) Save(snap *search.Snapshot) error {
	if snap == nil {
		return errors.New("nil snapshot")
	}
	data, err := json.Marshal(record{SavedAt: time.Now().UTC(), Snapshot: snap})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(snapshotKey, data); err != nil {
			return fmt.Errorf("set snapshot: %w", err)
		}
		return nil
	})
}

// Load reads the stored snapshot
func (s *BadgerStorage) Load() (*search.Snapshot, error) {
	var rec record

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(snapshotKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrSnapshotNotFound
		}
		if err != nil {
			return fmt.Errorf("get snapshot: %w", err)
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return nil, err
	}
	if rec.Snapshot == nil {
		return nil, ErrSnapshotNotFound
	}
	return rec.Snapshot, nil
}

// Close closes the database if this storage opened it
func (s *BadgerStorage) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/course-engine/backend/internal/search"
)

// ErrSnapshotNotFound is returned by Load when nothing has been saved yet
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotStorage persists trained model snapshots
type SnapshotStorage interface {
	Save(snap *search.Snapshot) error
	Load() (*search.Snapshot, error)
	Close() error
}

// record wraps a snapshot with save metadata
type record struct {
	SavedAt  time.Time        `json:"saved_at"`
	Snapshot *search.Snapshot `json:"snapshot"`
}

// Backend names accepted by New
const (
	BackendFile   = "file"
	BackendBadger = "badger"
)

// New opens the configured backend rooted at dir
func New(backend, dir string) (SnapshotStorage, error) {
	switch backend {
	case "", BackendFile:
		return NewFileStorage(dir)
	case BackendBadger:
		return OpenBadgerStorage(dir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

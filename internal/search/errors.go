package search

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCorpus is returned when a build is attempted with no items
	ErrEmptyCorpus = errors.New("corpus is empty")

	// ErrStaleSnapshot marks a snapshot that does not line up with the live corpus
	ErrStaleSnapshot = errors.New("snapshot is stale")
)

// BuildError aborts a build. No model is published when it is returned.
type BuildError struct {
	Reason string
	Err    error
}

func (e *BuildError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("build failed: %s: %v", e.Reason, e.Err)
	}
	return "build failed: " + e.Reason
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// StaleSnapshotError reports the dimensions that disagreed on restore
type StaleSnapshotError struct {
	SnapshotRows int
	CorpusRows   int
	Detail       string
}

func (e *StaleSnapshotError) Error() string {
	msg := fmt.Sprintf("snapshot has %d rows, corpus has %d", e.SnapshotRows, e.CorpusRows)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *StaleSnapshotError) Is(target error) bool {
	return target == ErrStaleSnapshot
}

// Package state provides durable snapshot persistence and change detection
// for monitored documents.
package state

import "fmt"

// PersistError represents a failure to write the snapshot or download index.
// The original file on disk is guaranteed untouched when this is returned.
type PersistError struct {
	Path  string
	Cause error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist error for %s: %v", e.Path, e.Cause)
}

func (e *PersistError) Unwrap() error {
	return e.Cause
}

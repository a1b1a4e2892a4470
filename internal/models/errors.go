package models

import (
	"errors"
	"fmt"
)

// Failure classes. Operations wrap their causes with one of these so
// surfaces can tell them apart with errors.Is.
var (
	ErrGeneration = errors.New("fingerprint generation failed")
	ErrLaunch     = errors.New("launch failed")
	ErrNavigation = errors.New("navigation failed")
	ErrExtraction = errors.New("extraction failed")
)

// BulkAbortError is returned when a bulk run stops at a failing item.
type BulkAbortError struct {
	Index     int
	ProfileID string
	Completed int
	Err       error
}

func (e *BulkAbortError) Error() string {
	return fmt.Sprintf("bulk aborted at item %d (profile %q) after %d completed: %v",
		e.Index, e.ProfileID, e.Completed, e.Err)
}

func (e *BulkAbortError) Unwrap() error { return e.Err }

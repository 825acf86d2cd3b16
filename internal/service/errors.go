package service

import "fmt"

// ErrorKind classifies a per-activity failure.
type ErrorKind string

const (
	// KindMalformed means the stored input could not be decoded; the activity
	// is skipped and the run continues.
	KindMalformed ErrorKind = "malformed"
	// KindStorage means the database failed; the run is aborted.
	KindStorage ErrorKind = "storage"
)

// ProcessingError is the failure result for one activity.
type ProcessingError struct {
	ActivityID string
	Kind       ErrorKind
	Err        error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("activity %s: %s: %v", e.ActivityID, e.Kind, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

func malformedError(activityID string, err error) *ProcessingError {
	return &ProcessingError{ActivityID: activityID, Kind: KindMalformed, Err: err}
}

func storageError(activityID string, err error) *ProcessingError {
	return &ProcessingError{ActivityID: activityID, Kind: KindStorage, Err: err}
}

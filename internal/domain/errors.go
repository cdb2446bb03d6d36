package domain

import "errors"

var (
	// ErrValidation marks a missing or malformed required field.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicate marks an activity name that already exists (case-insensitive).
	ErrDuplicate = errors.New("activity already exists")
	// ErrNotAllowed marks an unsupported HTTP method.
	ErrNotAllowed = errors.New("method not allowed")
	// ErrStore marks any failure reaching or operating on the backing store.
	ErrStore = errors.New("store failure")

	ErrAlreadyRunning = errors.New("an activity is already running")
	ErrNotRunning     = errors.New("no activity in progress")
	ErrStopInFlight   = errors.New("stop already in progress")
)

// StoreError wraps a driver failure together with the operation that hit it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return "store " + e.Op + ": " + e.Err.Error() }

func (e *StoreError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrStore) match any StoreError.
func (e *StoreError) Is(target error) bool { return target == ErrStore }

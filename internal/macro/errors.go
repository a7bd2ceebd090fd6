package macro

import "errors"

var (
	// ErrIndicatorNotFound is returned when a record addressed by id no longer exists.
	ErrIndicatorNotFound = errors.New("indicator not found")
	ErrUnknownFamily     = errors.New("unknown indicator family")
	ErrUnknownRegion     = errors.New("unknown region")
	ErrInvalidUpdate     = errors.New("invalid indicator update")
	// ErrFetchInProgress is returned when another fetch-store-all run holds the lock.
	ErrFetchInProgress = errors.New("fetch already in progress")
)

package store

import "errors"

var (
	// ErrNotInitialized is returned by Add and Rebuild before Init has set
	// the store's dimensionality.
	ErrNotInitialized = errors.New("store: not initialized, run init first")

	// ErrAlreadyInitialized is returned by Init on a store whose
	// dimensionality is already set or that already carries records.
	ErrAlreadyInitialized = errors.New("store: already initialized")

	// ErrDimensionMismatch is returned by Add and Update when a vector's
	// length does not match the store's fixed dimensionality.
	ErrDimensionMismatch = errors.New("store: vector dimension mismatch")

	// ErrNotFound is returned by Get, Update and Delete for an unknown id.
	ErrNotFound = errors.New("store: record not found")

	// ErrIndexStale is returned by Search when the index has never been
	// built, or a mutation has happened since the last Rebuild. The spec
	// only requires that a stale index not silently serve results that
	// don't reflect recent mutations; this makes that contract explicit.
	ErrIndexStale = errors.New("store: index is stale, run rebuild first")
)

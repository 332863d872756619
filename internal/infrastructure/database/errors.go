package database

import "errors"

// Sentinel errors for connection handle states.
//
// These errors can be checked using errors.Is() for specific handling:
//
//	if errors.Is(err, database.ErrSuspended) {
//	    // retry after Resume
//	}
var (
	// ErrCancelled indicates the handle was poisoned by Cancel and has not
	// been restored with Uncancel yet.
	ErrCancelled = errors.New("database: connection cancelled")

	// ErrSuspended indicates the handle is suspended and refuses new
	// statements until Resume.
	ErrSuspended = errors.New("database: connection suspended")

	// ErrClosed indicates the handle has been closed.
	ErrClosed = errors.New("database: connection closed")
)

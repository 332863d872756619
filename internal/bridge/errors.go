package bridge

import "errors"

// Sentinel errors for cancellable database accesses.
//
// Check with errors.Is():
//
//	if errors.Is(err, bridge.ErrCancelled) {
//	    // the access was cancelled, not failed
//	}
var (
	// ErrCancelled indicates an asynchronous database access was cancelled
	// before or while its work unit ran. It is distinct from any error the
	// work itself returns.
	ErrCancelled = errors.New("bridge: database access cancelled")
)

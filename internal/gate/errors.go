package gate

import "github.com/nerrad567/sqlgate/internal/bridge"

// ErrCancelled is returned by ExecuteCancellable when the access was
// cancelled before or while its body ran. It is the bridge package's
// sentinel, re-exported so gate callers need not import the bridge.
//
// Check with errors.Is():
//
//	if errors.Is(err, gate.ErrCancelled) {
//	    // the caller went away; the connection is still usable
//	}
var ErrCancelled = bridge.ErrCancelled

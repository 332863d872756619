package bridge

import (
	"context"
	"sync"
)

// Handle is the minimal contract the bridge needs from a connection handle.
//
// Cancel must interrupt the statement currently executing on the handle and
// make further statements fail until Uncancel restores the handle. Both must
// be callable from any goroutine at any time.
type Handle interface {
	Cancel()
	Uncancel()
}

// state is the bridge's lifecycle position. See the package documentation
// for the legal transitions.
type state int

const (
	stateNotConnected state = iota
	stateConnected
	stateCancelled
	stateExpired
)

// Bridge links one blocking caller to one dispatched work unit.
//
// The zero value is not usable; create bridges with New. A Bridge must not
// be reused: exactly one work unit may ever connect to it.
type Bridge struct {
	mu     sync.Mutex
	state  state
	handle Handle

	// result carries the single outcome from the work unit to Run.
	// Buffered so the worker never blocks on delivery.
	result chan error
}

// New creates a Bridge for a single cancellable database access.
func New() *Bridge {
	return &Bridge{result: make(chan error, 1)}
}

// Run dispatches a work unit and blocks until its result is delivered.
//
// If the bridge was cancelled before Run is called, it returns ErrCancelled
// without dispatching anything. Otherwise it arms cancellation from ctx,
// invokes dispatch (which must eventually lead to exactly one InDatabase
// call on this bridge), and waits.
//
// The returned error is the work unit's own error, or ErrCancelled when the
// access was cancelled before or during execution. A result is delivered
// exactly once; Run never returns with the work unit still undelivered.
func (b *Bridge) Run(ctx context.Context, dispatch func()) error {
	b.mu.Lock()
	if b.state == stateCancelled {
		b.mu.Unlock()
		return ErrCancelled
	}
	b.mu.Unlock()

	// An already-cancelled context must never dispatch: AfterFunc would
	// fire, but racing it against the worker picking up the unit makes the
	// outcome timing-dependent.
	if ctx.Err() != nil {
		return ErrCancelled
	}

	stop := context.AfterFunc(ctx, b.Cancel)
	defer stop()

	dispatch()
	return <-b.result
}

// InDatabase runs work on behalf of the dispatched unit. It must be called
// from the gate worker, with the handle the work will touch.
//
// If a cancel arrived before the work started, the work is skipped and
// ErrCancelled is delivered. Calling InDatabase on a bridge that already
// connected is a fatal programmer error: bridges are single-use.
//
// On exit the bridge expires. If a cancel arrived while the work was
// running, the interrupt sent to the handle is reversed so the connection
// is left usable for the next caller, and ErrCancelled replaces the work's
// own result.
func (b *Bridge) InDatabase(h Handle, work func() error) {
	b.mu.Lock()
	switch b.state {
	case stateCancelled:
		// Cancelled before the work unit started: never run it.
		b.state = stateExpired
		b.mu.Unlock()
		b.result <- ErrCancelled
		return
	case stateConnected, stateExpired:
		b.mu.Unlock()
		panic("bridge: InDatabase called twice on a single-use bridge")
	}
	b.state = stateConnected
	b.handle = h
	b.mu.Unlock()

	err := work()

	b.mu.Lock()
	if b.state == stateCancelled {
		// The cancel interrupted the handle mid-statement. Reverse it so
		// the connection is not poisoned for unrelated future accesses.
		h.Uncancel()
		err = ErrCancelled
	}
	b.state = stateExpired
	b.mu.Unlock()

	b.result <- err
}

// Cancel requests cancellation of the access. It is idempotent and safe to
// call from any goroutine, including concurrently with InDatabase.
//
// If the work unit is running, the connection handle is asked to abort its
// current statement cooperatively. If the work has not started yet, the
// bridge is marked so the eventual InDatabase call short-circuits. After
// the access has expired, Cancel is a no-op.
func (b *Bridge) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateConnected:
		b.handle.Cancel()
		b.state = stateCancelled
	case stateNotConnected:
		b.state = stateCancelled
	case stateCancelled, stateExpired:
		// Idempotent.
	}
}

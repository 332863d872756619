package gate

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/sqlgate/internal/bridge"
	"github.com/nerrad567/sqlgate/internal/entitlement"
)

// Handle is the contract with the connection handle collaborator.
//
// The gate owns the handle exclusively: nothing else may keep a reference
// that outlives the gate. Interrupt, Cancel, Uncancel, Suspend and Resume
// must be safe to call from any goroutine at any time; everything else is
// only ever invoked from the gate's worker or an entitled call chain.
type Handle interface {
	// Close releases the handle. Called exactly once, at gate teardown.
	Close() error

	// InTransaction reports whether the handle currently has an open
	// transaction. Consulted by the leaked-transaction exit checks.
	InTransaction() bool

	// Interrupt cooperatively aborts the statement currently executing.
	Interrupt()

	// Cancel interrupts and poisons the handle until Uncancel is called.
	Cancel()

	// Uncancel restores a cancelled handle for the next caller.
	Uncancel()

	// Suspend blocks new statements until Resume.
	Suspend()

	// Resume lifts a suspension.
	Resume()

	// Description identifies the handle in diagnostics and panic messages.
	Description() string
}

// Logger is the logging interface used by the Gate.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Recorder receives operation telemetry from the gate. Implementations must
// be non-blocking; the worker calls them inline.
type Recorder interface {
	// RecordOperation records one completed access: the operation kind,
	// how long it waited in the queue, how long the body ran, and whether
	// the body returned an error.
	RecordOperation(gateID, op string, queueWait, duration time.Duration, failed bool)

	// RecordHandleEvent records a signalling event on the gate's handle
	// ("interrupt", "suspend", "resume").
	RecordHandleEvent(gateID, event string)
}

// noopRecorder discards all telemetry.
type noopRecorder struct{}

func (noopRecorder) RecordOperation(string, string, time.Duration, time.Duration, bool) {}

func (noopRecorder) RecordHandleEvent(string, string) {}

// Operation kinds reported to the Recorder.
const (
	opSync          = "sync"
	opReentrantSync = "reentrant_sync"
	opAsync         = "async"
	opCancellable   = "cancellable"
)

// Config holds per-gate policy.
type Config struct {
	// Label names the dedicated worker in diagnostics. Defaults to the
	// handle's description.
	Label string

	// AllowUnsafeTransactions disables the leaked-transaction exit check
	// for every access on this gate.
	AllowUnsafeTransactions bool
}

// Gate serializes access to one connection handle on one dedicated worker.
//
// All methods are safe for concurrent use from multiple goroutines.
type Gate[H Handle] struct {
	handle H
	id     entitlement.Key
	cfg    Config

	worker   *worker
	logger   Logger
	recorder Recorder

	mu     sync.Mutex
	closed bool
}

// New creates a Gate owning handle and starts its dedicated worker.
// The handle must already be open.
func New[H Handle](handle H, cfg Config) *Gate[H] {
	label := cfg.Label
	if label == "" {
		label = handle.Description()
	}
	return &Gate[H]{
		handle:   handle,
		id:       entitlement.Key(uuid.NewString()),
		cfg:      cfg,
		worker:   newWorker(label),
		logger:   noopLogger{},
		recorder: noopRecorder{},
	}
}

// SetLogger sets the logger for the gate.
func (g *Gate[H]) SetLogger(logger Logger) {
	g.logger = logger
}

// SetRecorder sets the telemetry recorder for the gate.
func (g *Gate[H]) SetRecorder(recorder Recorder) {
	g.recorder = recorder
}

// Description identifies the gate's handle in diagnostics.
func (g *Gate[H]) Description() string {
	return g.handle.Description()
}

// unsafeTxKey marks a call chain in which the leaked-transaction check is
// suppressed.
type unsafeTxKey struct{}

// AllowUnsafeTransactions returns a context in which the leaked-transaction
// exit check is skipped, even when the gate configuration forbids leaving
// transactions open. The override is scoped to the call chain the returned
// context is passed into; it cannot outlive it.
func AllowUnsafeTransactions(ctx context.Context) context.Context {
	return context.WithValue(ctx, unsafeTxKey{}, true)
}

func allowsUnsafeTransactions(ctx context.Context) bool {
	allowed, _ := ctx.Value(unsafeTxKey{}).(bool)
	return allowed
}

// Sync runs body with the connection handle and returns its result once
// finished. The body's error propagates unchanged.
//
// Sync is not reentrant. Calling it, directly or indirectly, from within a
// running access on the same gate panics with a precondition violation:
// dispatching would deadlock the single worker, so the misuse fails loudly
// instead. Three dispatch cases:
//
//   - Fresh call: dispatched onto the worker, caller blocks until done.
//   - Reentrant call (current chain already entitled to this gate): panic.
//   - Cross-gate nested call (an access on another gate invokes this one):
//     dispatched onto this worker with the outer chain's entitlements
//     inherited, so a call back into the outer gate from inside body is
//     recognised as same-chain access rather than deadlocking.
//
// On exit, Sync verifies no transaction was left open (see Config and
// AllowUnsafeTransactions).
func (g *Gate[H]) Sync(ctx context.Context, body func(context.Context, H) error) error {
	rec := entitlement.FromContext(ctx)
	if rec.Entitled(g.id) {
		panic("gate: database methods are not reentrant on " + g.handle.Description())
	}
	return g.dispatchSync(ctx, rec, opSync, body)
}

// ReentrantSync runs body like Sync, but a same-chain nested call is legal:
// it runs inline on the current chain instead of panicking. When the nested
// call begins inside an open transaction, its own leaked-transaction check
// is suppressed; the outermost access of the chain remains responsible for
// the final check.
func (g *Gate[H]) ReentrantSync(ctx context.Context, body func(context.Context, H) error) error {
	rec := entitlement.FromContext(ctx)
	if rec.Entitled(g.id) {
		inTransaction := g.handle.InTransaction()
		err := body(ctx, g.handle)
		if !inTransaction {
			g.checkNoLeakedTransaction(ctx)
		}
		return err
	}
	return g.dispatchSync(ctx, rec, opReentrantSync, body)
}

// dispatchSync queues body on the worker and blocks the caller until it has
// run. parent carries the caller's entitlements into the worker chain for
// cross-gate nesting; nil means a fresh chain.
func (g *Gate[H]) dispatchSync(ctx context.Context, parent *entitlement.Record, op string, body func(context.Context, H) error) error {
	queued := time.Now()
	var err error
	g.worker.run(func() {
		queueWait := time.Since(queued)
		wctx := entitlement.Inheriting(ctx, parent, g.id)
		began := time.Now()
		err = body(wctx, g.handle)
		g.recorder.RecordOperation(string(g.id), op, queueWait, time.Since(began), err != nil)
		g.checkNoLeakedTransaction(wctx)
	})
	return err
}

// Async dispatches block onto the worker and returns immediately. The block
// runs later, exactly once, in submission order relative to every other
// access queued on the gate. There is no result; failures are the block's
// own concern. The leaked-transaction check still runs after it completes.
func (g *Gate[H]) Async(block func(context.Context, H)) {
	queued := time.Now()
	g.worker.enqueue(func() {
		queueWait := time.Since(queued)
		wctx := entitlement.With(context.Background(), g.id)
		began := time.Now()
		block(wctx, g.handle)
		g.recorder.RecordOperation(string(g.id), opAsync, queueWait, time.Since(began), false)
		g.checkNoLeakedTransaction(wctx)
	})
}

// Execute runs body inline. The caller must already hold entitlement to
// this gate's handle, i.e. be running inside one of the gate's dispatched
// accesses; anything else panics. Used by code layered on the gate that is
// itself invoked from a body.
func (g *Gate[H]) Execute(ctx context.Context, body func(context.Context, H) error) error {
	entitlement.Precondition(ctx, g.id, g.handle.Description())
	return body(ctx, g.handle)
}

// ExecuteCancellable dispatches body onto the worker and blocks until it
// delivers a result or ctx is cancelled.
//
// Cancellation is cooperative: cancelling before the body starts prevents
// it from ever running; cancelling mid-body interrupts the statement
// executing on the handle and reverses the interrupt afterwards, so the
// connection stays usable for the next caller. Either way the call returns
// ErrCancelled, distinct from any error the body returns, delivered exactly
// once. The worker goroutine is never killed.
//
// Like Sync, ExecuteCancellable is not reentrant.
func (g *Gate[H]) ExecuteCancellable(ctx context.Context, body func(context.Context, H) error) error {
	if entitlement.FromContext(ctx).Entitled(g.id) {
		panic("gate: database methods are not reentrant on " + g.handle.Description())
	}

	br := bridge.New()
	queued := time.Now()
	return br.Run(ctx, func() {
		g.worker.enqueue(func() {
			br.InDatabase(g.handle, func() error {
				queueWait := time.Since(queued)
				wctx := entitlement.With(ctx, g.id)
				began := time.Now()
				err := body(wctx, g.handle)
				g.recorder.RecordOperation(string(g.id), opCancellable, queueWait, time.Since(began), err != nil)
				g.checkNoLeakedTransaction(wctx)
				return err
			})
		})
	})
}

// Interrupt forwards to the handle without going through the worker, so it
// can break an operation currently stuck on it.
func (g *Gate[H]) Interrupt() {
	g.logger.Debug("interrupting database access", "database", g.handle.Description())
	g.recorder.RecordHandleEvent(string(g.id), "interrupt")
	g.handle.Interrupt()
}

// Suspend forwards to the handle without going through the worker.
func (g *Gate[H]) Suspend() {
	g.logger.Debug("suspending database access", "database", g.handle.Description())
	g.recorder.RecordHandleEvent(string(g.id), "suspend")
	g.handle.Suspend()
}

// Resume forwards to the handle without going through the worker.
func (g *Gate[H]) Resume() {
	g.logger.Debug("resuming database access", "database", g.handle.Description())
	g.recorder.RecordHandleEvent(string(g.id), "resume")
	g.handle.Resume()
}

// Close closes the handle and tears down the worker. Accesses already
// queued still run before the worker exits; new dispatches panic.
//
// Close is reentrant-safe: it may be called from within one of the gate's
// own accesses (a connection closing itself from its worker), in which case
// the handle closes inline and the worker winds down without waiting on
// itself.
func (g *Gate[H]) Close(ctx context.Context) error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	g.mu.Unlock()

	if entitlement.IsEntitled(ctx, g.id) {
		err := g.handle.Close()
		g.worker.close(false)
		return err
	}

	var err error
	g.worker.run(func() {
		err = g.handle.Close()
	})
	g.worker.close(true)
	return err
}

// checkNoLeakedTransaction panics when an access ends with a transaction
// still open and neither the gate configuration nor the call-scoped
// override tolerates it.
func (g *Gate[H]) checkNoLeakedTransaction(ctx context.Context) {
	if g.cfg.AllowUnsafeTransactions || allowsUnsafeTransactions(ctx) {
		return
	}
	if g.handle.InTransaction() {
		panic("gate: a transaction has been left opened at the end of a database access on " + g.handle.Description())
	}
}

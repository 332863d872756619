// Package gate serializes all access to a single stateful connection handle.
//
// A SQLite connection is unsafe to use from more than one execution context
// at a time. A Gate owns exactly one connection handle and one dedicated
// worker goroutine; every mutation of the handle happens either on that
// worker or on a call chain the entitlement record has explicitly marked as
// entitled to it. Callers from arbitrary goroutines get three entry points:
//
//   - Sync: dispatch onto the worker and block. Not reentrant: calling it
//     again from inside a running access on the same gate is a fatal
//     contract violation, detected loudly instead of deadlocking the worker.
//   - ReentrantSync: identical dispatch, but a same-chain nested call runs
//     inline and is legal.
//   - Async: fire-and-forget dispatch, FIFO-ordered with everything else
//     queued on the gate.
//
// ExecuteCancellable is the cancellation-aware entry point; it routes
// through [github.com/nerrad567/sqlgate/internal/bridge] so an abandoned
// caller interrupts the in-flight statement without corrupting the handle.
//
// Interrupt, Suspend and Resume bypass the worker entirely. They exist to
// break a stuck operation, so they must be callable from any goroutine at
// any time.
//
// # Invariants
//
// At most one logical operation touches the handle at any instant.
// Operations queued on one gate execute in submission order. A body that
// leaves a transaction open at the end of an access is a fatal contract
// violation unless the gate configuration or the call-scoped
// AllowUnsafeTransactions override permits it.
//
// Contract violations (reentrant misuse, foreign-context access, leaked
// transactions) are programmer errors and panic with descriptive messages;
// errors returned by caller-supplied bodies propagate unchanged.
package gate

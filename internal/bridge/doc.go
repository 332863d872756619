// Package bridge connects a blocking asynchronous caller to a unit of work
// dispatched on a gate's worker, with cooperative cancellation.
//
// A Bridge is created for one asynchronous database access and is strictly
// single-use. It is a small state machine guarded by a mutex:
//
//   - NotConnected: created, work not started yet
//   - Connected: the work unit is running and holds the connection handle
//   - Cancelled: an external cancel arrived, before or during the work
//   - Expired: the access finished; no further transitions are legal
//
// Cancellation never kills the worker goroutine. If the work is already
// running, Cancel asks the connection handle to abort its current statement
// cooperatively; when the work unit unwinds and observes the cancellation,
// it reverses the interrupt so the handle stays usable for the next caller.
//
// The lock is held only across state transitions, never across the wait for
// a result, so a concurrent Cancel cannot block against a slow work unit.
package bridge

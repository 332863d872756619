// Package database implements the single SQLite connection handle that a
// gate serializes access to.
//
// Unlike a database/sql pool, a Conn pins exactly one underlying SQLite
// connection for its whole lifetime. That is what makes serialization
// meaningful: transaction state, temporary tables and session pragmas all
// live on one connection, and the owning gate guarantees only one logical
// operation touches it at a time.
//
// Signalling primitives, callable from any goroutine at any time:
//
//   - Interrupt aborts the statement currently executing. The driver
//     translates context cancellation into sqlite3_interrupt, so the
//     statement stops at a safe point and the connection stays consistent.
//   - Cancel interrupts and additionally poisons the handle: new statements
//     fail with ErrCancelled until Uncancel restores it. The cancellation
//     bridge uses this pair so a cancelled asynchronous access cannot leak
//     statements onto the connection after its caller has gone away.
//   - Suspend and Resume block and unblock new statements with
//     ErrSuspended, for callers that need the database quiescent.
//
// Statement execution (ExecContext, QueryContext, QueryRowContext,
// Begin/Commit/Rollback) must only happen from inside a gate access.
//
// Security Considerations:
//   - All queries use parameterised statements (no SQL injection)
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Usage:
//
//	conn, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	g := gate.New(conn, gate.Config{})
//	defer g.Close(ctx)
package database

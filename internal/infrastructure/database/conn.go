package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// Database configuration constants.
const (
	// dirPermissions is the permission mode for the database directory.
	dirPermissions = 0750

	// filePermissions is the permission mode for the database file.
	filePermissions = 0600

	// msPerSecond converts seconds to milliseconds.
	msPerSecond = 1000

	// connectionTimeout is the timeout for verifying database connectivity.
	connectionTimeout = 5 * time.Second
)

// Config contains database configuration options.
// These map to the database section of config.yaml.
type Config struct {
	// Path is the filesystem path to the SQLite database file.
	// The directory will be created if it doesn't exist.
	Path string

	// WALMode enables Write-Ahead Logging for better concurrent access.
	// Recommended: true (allows a reader connection during writes).
	WALMode bool

	// BusyTimeout is the maximum time to wait for a database lock (seconds).
	// Prevents "database is locked" errors under contention.
	BusyTimeout int

	// ReadOnly opens the connection in read-only mode.
	ReadOnly bool
}

// Conn is a single pinned SQLite connection.
//
// Statement methods must only be called from inside a gate access; the
// signalling methods (Interrupt, Cancel, Uncancel, Suspend, Resume) are
// safe from any goroutine at any time.
type Conn struct {
	db   *sql.DB
	conn *sql.Conn
	desc string

	// mu guards the signalling state below, never statement execution.
	mu        sync.Mutex
	opCancel  context.CancelFunc
	cancelled bool
	suspended bool
	closed    bool
}

// Open creates a connection handle with the specified configuration.
//
// It performs the following setup:
//  1. Creates the database directory if it doesn't exist
//  2. Opens the database file (creates if not present)
//  3. Configures busy timeout, foreign keys and optional WAL mode
//  4. Pins a single underlying connection and verifies it with a ping
//  5. Sets appropriate file permissions (0600)
//
// Parameters:
//   - ctx: Context for the initial connect/ping
//   - cfg: Database configuration
//
// Returns:
//   - *Conn: Pinned connection handle
//   - error: If connection or configuration fails
func Open(ctx context.Context, cfg Config) (*Conn, error) {
	// Ensure directory exists
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	// Build connection string with pragmas
	// See: https://github.com/mattn/go-sqlite3#connection-string
	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on",
		cfg.Path,
		cfg.BusyTimeout*msPerSecond,
	)
	if cfg.ReadOnly {
		connStr += "&mode=ro"
	}
	if cfg.WALMode {
		connStr += "&_journal_mode=WAL&_synchronous=NORMAL"
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One connection, pinned below. The pool never hands out a second one.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pinCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	conn, err := db.Conn(pinCtx)
	if err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("pinning database connection: %w", err)
	}
	if err := conn.PingContext(pinCtx); err != nil {
		conn.Close() //nolint:errcheck // Best effort cleanup on error path
		db.Close()   //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}

	// Set file permissions (owner read/write only)
	// Ignore error - file might not exist yet on first run, will be set after first write
	_ = os.Chmod(cfg.Path, filePermissions) //nolint:errcheck // Intentional: first run creates file later

	desc := cfg.Path
	if cfg.ReadOnly {
		desc += " (read-only)"
	}

	return &Conn{
		db:   db,
		conn: conn,
		desc: desc,
	}, nil
}

// beginOp opens an interruptible window for one statement. It returns the
// context the statement must run under and an end function that closes the
// window. Fails when the handle is cancelled, suspended or closed.
func (c *Conn) beginOp(ctx context.Context) (context.Context, func(), error) {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return nil, nil, ErrClosed
	case c.cancelled:
		c.mu.Unlock()
		return nil, nil, ErrCancelled
	case c.suspended:
		c.mu.Unlock()
		return nil, nil, ErrSuspended
	}
	opCtx, cancel := context.WithCancel(ctx)
	c.opCancel = cancel
	c.mu.Unlock()

	// end may be reached twice (an explicit Close plus a deferred one);
	// only the first run may clear opCancel, or it could wipe out a later
	// statement's interrupt hook.
	var endOnce sync.Once
	end := func() {
		endOnce.Do(func() {
			c.mu.Lock()
			c.opCancel = nil
			c.mu.Unlock()
			cancel()
		})
	}
	return opCtx, end, nil
}

// ExecContext executes a statement that doesn't return rows.
func (c *Conn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	opCtx, end, err := c.beginOp(ctx)
	if err != nil {
		return nil, err
	}
	defer end()

	result, err := c.conn.ExecContext(opCtx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing statement: %w", err)
	}
	return result, nil
}

// Rows wraps sql.Rows so the interruptible window stays open until the
// caller has finished iterating.
type Rows struct {
	*sql.Rows
	end func()
}

// Close releases the rows and ends the statement's interruptible window.
func (r *Rows) Close() error {
	defer r.end()
	return r.Rows.Close()
}

// QueryContext executes a query that returns rows. The caller must Close
// the returned Rows.
func (c *Conn) QueryContext(ctx context.Context, query string, args ...any) (*Rows, error) {
	opCtx, end, err := c.beginOp(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := c.conn.QueryContext(opCtx, query, args...) //nolint:sqlclosecheck // closed via the Rows wrapper
	if err != nil {
		end()
		return nil, fmt.Errorf("executing query: %w", err)
	}
	return &Rows{Rows: rows, end: end}, nil
}

// Row is the result of QueryRowContext. Errors are deferred until Scan,
// like sql.Row; the statement's interruptible window stays open until then.
type Row struct {
	rows *Rows
	err  error
}

// Scan copies the single row's columns into dest. It returns sql.ErrNoRows
// when the query matched nothing.
func (r *Row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	defer r.rows.Close() //nolint:errcheck // close error surfaced below when relevant
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return err
		}
		return sql.ErrNoRows
	}
	if err := r.rows.Scan(dest...); err != nil {
		return err
	}
	return r.rows.Close()
}

// QueryRowContext executes a query expected to return at most one row.
func (c *Conn) QueryRowContext(ctx context.Context, query string, args ...any) *Row {
	rows, err := c.QueryContext(ctx, query, args...)
	if err != nil {
		return &Row{err: err}
	}
	return &Row{rows: rows}
}

// Begin opens a deferred transaction with a plain BEGIN statement, keeping
// transaction state visible to InTransaction.
func (c *Conn) Begin(ctx context.Context) error {
	_, err := c.ExecContext(ctx, "BEGIN")
	return err
}

// Commit commits the open transaction.
func (c *Conn) Commit(ctx context.Context) error {
	_, err := c.ExecContext(ctx, "COMMIT")
	return err
}

// Rollback rolls back the open transaction.
func (c *Conn) Rollback(ctx context.Context) error {
	_, err := c.ExecContext(ctx, "ROLLBACK")
	return err
}

// InTransaction reports whether the connection has an open transaction.
//
// It reads SQLite's autocommit flag from the driver connection, so
// transactions opened with raw BEGIN statements are detected too.
func (c *Conn) InTransaction() bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.mu.Unlock()

	inTx := false
	err := c.conn.Raw(func(driverConn any) error {
		if sc, ok := driverConn.(*sqlite3.SQLiteConn); ok {
			inTx = !sc.AutoCommit()
		}
		return nil
	})
	if err != nil {
		return false
	}
	return inTx
}

// Interrupt cooperatively aborts the statement currently executing, if any.
// Safe from any goroutine; a no-op when nothing is running.
func (c *Conn) Interrupt() {
	c.mu.Lock()
	cancel := c.opCancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Cancel interrupts the current statement and poisons the handle: new
// statements fail with ErrCancelled until Uncancel.
func (c *Conn) Cancel() {
	c.mu.Lock()
	c.cancelled = true
	cancel := c.opCancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Uncancel restores a cancelled handle so the next caller can use it.
func (c *Conn) Uncancel() {
	c.mu.Lock()
	c.cancelled = false
	c.mu.Unlock()
}

// Suspend interrupts the current statement and blocks new ones with
// ErrSuspended until Resume.
func (c *Conn) Suspend() {
	c.mu.Lock()
	c.suspended = true
	cancel := c.opCancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Resume lifts a suspension.
func (c *Conn) Resume() {
	c.mu.Lock()
	c.suspended = false
	c.mu.Unlock()
}

// Description identifies the handle in diagnostics and panic messages.
func (c *Conn) Description() string {
	return c.desc
}

// Close releases the pinned connection and the underlying database.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	cancel := c.opCancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	connErr := c.conn.Close()
	dbErr := c.db.Close()
	if connErr != nil {
		return fmt.Errorf("closing connection: %w", connErr)
	}
	if dbErr != nil {
		return fmt.Errorf("closing database: %w", dbErr)
	}
	return nil
}

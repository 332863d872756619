// sqlgate - serialized SQLite access gate
//
// This is the main entry point for the sqlgate service. It opens a single
// pinned SQLite connection, wraps it in a serialized access gate, and
// exercises the gate with a small bootstrap workload before waiting for a
// shutdown signal. The gate guarantees that every statement on the
// connection runs on one dedicated worker goroutine, so the underlying
// handle never sees concurrent use.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/sqlgate/internal/gate"
	"github.com/nerrad567/sqlgate/internal/infrastructure/config"
	"github.com/nerrad567/sqlgate/internal/infrastructure/database"
	"github.com/nerrad567/sqlgate/internal/infrastructure/logging"
	"github.com/nerrad567/sqlgate/internal/infrastructure/metrics"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	// This is the Go pattern for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Run the application
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting sqlgate",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open the pinned database connection
	conn, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
		ReadOnly:    cfg.Database.ReadOnly,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	log.Info("database connected", "path", cfg.Database.Path)

	// Wrap the connection in a gate. From here on the gate owns the
	// connection: Close(ctx) below also closes the handle.
	g := gate.New(conn, gate.Config{
		Label:                   cfg.Database.QueueLabel(),
		AllowUnsafeTransactions: cfg.Database.AllowUnsafeTransactions,
	})
	g.SetLogger(log)
	defer func() {
		log.Info("closing gate")
		if closeErr := g.Close(context.Background()); closeErr != nil {
			log.Error("error closing gate", "error", closeErr)
		}
	}()
	log.Info("gate started", "gate", g.Description())

	// Connect to InfluxDB (optional)
	if cfg.Metrics.Enabled {
		metricsClient, metricsErr := metrics.Connect(cfg.Metrics)
		if metricsErr != nil {
			return fmt.Errorf("connecting to metrics backend: %w", metricsErr)
		}
		defer func() {
			log.Info("closing metrics connection")
			if closeErr := metricsClient.Close(); closeErr != nil {
				log.Error("error closing metrics", "error", closeErr)
			}
		}()
		metricsClient.SetOnError(func(err error) {
			log.Error("metrics write error", "error", err)
		})
		g.SetRecorder(metricsClient)
		log.Info("metrics connected",
			"url", cfg.Metrics.URL,
			"org", cfg.Metrics.Org,
			"bucket", cfg.Metrics.Bucket,
		)
	} else {
		log.Info("metrics disabled")
	}

	// Bootstrap the schema and verify serialized access end to end.
	if !cfg.Database.ReadOnly {
		if bootErr := bootstrap(ctx, g, cfg.Service.Name); bootErr != nil {
			return fmt.Errorf("bootstrapping database: %w", bootErr)
		}
		log.Info("database bootstrap complete")
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. Metrics (if enabled)
	// 2. Gate (which closes the database handle)

	log.Info("sqlgate stopped")
	return nil
}

// bootstrap creates the service bookkeeping table and records a startup
// row, then reads it back. Both accesses run through the gate, so this
// doubles as a startup self-check of the serialization machinery.
func bootstrap(ctx context.Context, g *gate.Gate[*database.Conn], service string) error {
	err := g.Sync(ctx, func(ctx context.Context, c *database.Conn) error {
		if _, execErr := c.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS service_starts (
				id         INTEGER PRIMARY KEY AUTOINCREMENT,
				service    TEXT NOT NULL,
				version    TEXT NOT NULL,
				started_at TEXT NOT NULL DEFAULT (datetime('now'))
			)`); execErr != nil {
			return fmt.Errorf("creating service_starts: %w", execErr)
		}
		if _, execErr := c.ExecContext(ctx,
			"INSERT INTO service_starts (service, version) VALUES (?, ?)",
			service, version,
		); execErr != nil {
			return fmt.Errorf("recording start: %w", execErr)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Read back through a cancellable access: a shutdown signal arriving
	// mid-read aborts it instead of delaying shutdown.
	var starts int
	err = g.ExecuteCancellable(ctx, func(ctx context.Context, c *database.Conn) error {
		row := c.QueryRowContext(ctx, "SELECT count(*) FROM service_starts WHERE service = ?", service)
		return row.Scan(&starts)
	})
	if err != nil {
		if errors.Is(err, gate.ErrCancelled) {
			return nil
		}
		return fmt.Errorf("counting starts: %w", err)
	}
	return nil
}

// getConfigPath returns the configuration file path.
// Uses SQLGATE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("SQLGATE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

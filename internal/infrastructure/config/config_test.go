package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Create a temporary config file
	content := `
service:
  name: "test-service"
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
logging:
  level: "debug"
  format: "text"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Service.Name != "test-service" {
		t.Errorf("Service.Name = %q, want %q", cfg.Service.Name, "test-service")
	}

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	content := `
database:
  path: "/tmp/test.db"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("default Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
	if !cfg.Database.WALMode {
		t.Error("default Database.WALMode = false, want true")
	}
	if cfg.Metrics.BatchSize != 100 {
		t.Errorf("default Metrics.BatchSize = %d, want 100", cfg.Metrics.BatchSize)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	content := `
database:
  path: "/tmp/from-file.db"
logging:
  level: "info"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	t.Setenv("SQLGATE_DATABASE_PATH", "/tmp/from-env.db")
	t.Setenv("SQLGATE_LOGGING_LEVEL", "error")
	t.Setenv("SQLGATE_DATABASE_READ_ONLY", "true")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/tmp/from-env.db" {
		t.Errorf("Database.Path = %q, want env override", cfg.Database.Path)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("Logging.Level = %q, want env override", cfg.Logging.Level)
	}
	if !cfg.Database.ReadOnly {
		t.Error("Database.ReadOnly = false, want env override true")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name: "valid config",
			config: &Config{
				Database: DatabaseConfig{Path: "/data/sqlgate.db"},
				Logging:  LoggingConfig{Level: "info"},
			},
			wantErr: false,
		},
		{
			name: "missing database path",
			config: &Config{
				Database: DatabaseConfig{Path: ""},
				Logging:  LoggingConfig{Level: "info"},
			},
			wantErr: true,
		},
		{
			name: "negative busy timeout",
			config: &Config{
				Database: DatabaseConfig{Path: "/data/sqlgate.db", BusyTimeout: -1},
			},
			wantErr: true,
		},
		{
			name: "invalid logging level",
			config: &Config{
				Database: DatabaseConfig{Path: "/data/sqlgate.db"},
				Logging:  LoggingConfig{Level: "verbose"},
			},
			wantErr: true,
		},
		{
			name: "metrics enabled without url",
			config: &Config{
				Database: DatabaseConfig{Path: "/data/sqlgate.db"},
				Metrics:  MetricsConfig{Enabled: true, Token: "token"},
			},
			wantErr: true,
		},
		{
			name: "metrics enabled without token",
			config: &Config{
				Database: DatabaseConfig{Path: "/data/sqlgate.db"},
				Metrics:  MetricsConfig{Enabled: true, URL: "http://localhost:8086"},
			},
			wantErr: true,
		},
		{
			name: "metrics fully configured",
			config: &Config{
				Database: DatabaseConfig{Path: "/data/sqlgate.db"},
				Metrics: MetricsConfig{
					Enabled: true,
					URL:     "http://localhost:8086",
					Token:   "token",
				},
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDatabaseConfig_QueueLabel(t *testing.T) {
	writer := DatabaseConfig{Path: "/data/app.db"}
	if got := writer.QueueLabel(); !strings.Contains(got, "writer") || !strings.Contains(got, "/data/app.db") {
		t.Errorf("QueueLabel() = %q, want writer label naming the path", got)
	}

	reader := DatabaseConfig{Path: "/data/app.db", ReadOnly: true}
	if got := reader.QueueLabel(); !strings.Contains(got, "reader") {
		t.Errorf("QueueLabel() = %q, want reader label", got)
	}
}

package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/homebot/homebot-core/internal/infrastructure/database"
	"github.com/homebot/homebot-core/internal/sensor"
)

// writeConfig writes a minimal valid config whose database lives in dir.
func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
database:
  path: "` + filepath.Join(dir, "homebot.db") + `"
  wal_mode: true
  busy_timeout: 5

api:
  host: "127.0.0.1"
  port: 5000

logging:
  level: error
  format: text
  output: stdout

security:
  jwt:
    secret: "test-secret-key-at-least-32-characters-long"

reports:
  dir: "` + filepath.Join(dir, "reports") + `"

metrics:
  enabled: false
`
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"-config", "/etc/homebot.yaml", "-seed", "-import-sensors", "data.csv"})
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}
	if opts.configPath != "/etc/homebot.yaml" || !opts.seed || opts.importSensors != "data.csv" {
		t.Errorf("parseFlags() = %+v", opts)
	}

	if _, err := parseFlags([]string{"-unknown"}); err == nil {
		t.Error("parseFlags() accepted an unknown flag")
	}
	if _, err := parseFlags([]string{"extra"}); err == nil {
		t.Error("parseFlags() accepted a positional argument")
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		t.Setenv("HOMEBOT_CONFIG", "")
		if got := getConfigPath(""); got != defaultConfigPath {
			t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
		}
	})

	t.Run("env override", func(t *testing.T) {
		t.Setenv("HOMEBOT_CONFIG", "/custom/path/config.yaml")
		if got := getConfigPath(""); got != "/custom/path/config.yaml" {
			t.Errorf("getConfigPath() = %q", got)
		}
	})

	t.Run("flag wins", func(t *testing.T) {
		t.Setenv("HOMEBOT_CONFIG", "/custom/path/config.yaml")
		if got := getConfigPath("flag.yaml"); got != "flag.yaml" {
			t.Errorf("getConfigPath() = %q, want flag.yaml", got)
		}
	})
}

func TestRun_InvalidConfig(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, options{configPath: "/nonexistent/path/config.yaml"})
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("run() error = %v", err)
	}
}

func TestRun_ImportSensors(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfig(t, dir)

	csvPath := filepath.Join(dir, "readings.csv")
	csv := "id,temperature,humidity,timeRecorded,ldrValue\n" +
		"a1,21.5,40,2026-03-04T10:00:00Z,120\n" +
		"a2,22.0,41,2026-03-04T11:00:00Z,130\n"
	if err := os.WriteFile(csvPath, []byte(csv), 0o600); err != nil {
		t.Fatalf("writing csv: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := run(ctx, options{configPath: configPath, importSensors: csvPath}); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	db, err := database.Open(database.Config{Path: filepath.Join(dir, "homebot.db"), BusyTimeout: 5})
	if err != nil {
		t.Fatalf("reopening database: %v", err)
	}
	defer db.Close()

	latest, err := sensor.NewSQLiteRepository(db.DB).Latest(ctx)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if latest.ID != "a2" {
		t.Errorf("latest reading = %q, want a2", latest.ID)
	}
}

func TestRun_ImportSensors_MissingFile(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfig(t, dir)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, options{configPath: configPath, importSensors: filepath.Join(dir, "missing.csv")})
	if err == nil || !strings.Contains(err.Error(), "opening sensor csv") {
		t.Errorf("run() error = %v, want opening sensor csv failure", err)
	}
}

func TestHealthCheck_Disabled(t *testing.T) {
	db, err := database.Open(database.Config{Path: database.MemoryPath})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	if err := healthCheck(context.Background(), db, nil, nil); err != nil {
		t.Errorf("healthCheck() error = %v", err)
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnvironment(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFPROG_CONFIG_FILE",
		"CONFPROG_HTTP_PORT",
		"CONFPROG_SQLITE_DSN",
		"CONFPROG_LOG_LEVEL",
		"CONFPROG_SESSION_TTL",
		"CONFPROG_SYNC_GRACE_PERIOD",
		"CONFPROG_RECONNECT_ATTEMPTS",
		"CONFPROG_RECONNECT_DELAY",
	} {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("failed to unset %s: %v", key, err)
		}
	}
}

func TestLoad(t *testing.T) {

	t.Run("applies defaults when nothing is set", func(t *testing.T) {
		clearEnvironment(t)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.SQLiteDSN != "file:confprog.db?_foreign_keys=on" {
			t.Fatalf("unexpected default DSN: %q", cfg.SQLiteDSN)
		}
		if cfg.SessionTTL != 24*time.Hour {
			t.Fatalf("unexpected default session TTL: %v", cfg.SessionTTL)
		}
		if cfg.SyncGracePeriod != 5*time.Second {
			t.Fatalf("unexpected default grace period: %v", cfg.SyncGracePeriod)
		}
		if cfg.ReconnectAttempts != 5 || cfg.ReconnectDelay != time.Second {
			t.Fatalf("unexpected reconnect defaults: %d %v", cfg.ReconnectAttempts, cfg.ReconnectDelay)
		}
	})

	t.Run("environment variables override defaults", func(t *testing.T) {
		clearEnvironment(t)
		t.Setenv("CONFPROG_HTTP_PORT", "9090")
		t.Setenv("CONFPROG_SESSION_TTL", "2h")
		t.Setenv("CONFPROG_LOG_LEVEL", "debug")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.HTTPPort != 9090 {
			t.Fatalf("expected port 9090, got %d", cfg.HTTPPort)
		}
		if cfg.SessionTTL != 2*time.Hour {
			t.Fatalf("expected session TTL 2h, got %v", cfg.SessionTTL)
		}
		if cfg.LogLevel != "debug" {
			t.Fatalf("expected log level debug, got %q", cfg.LogLevel)
		}
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		clearEnvironment(t)
		t.Setenv("CONFPROG_HTTP_PORT", "not-a-port")
		t.Setenv("CONFPROG_SESSION_TTL", "-1h")

		if _, err := Load(); err == nil {
			t.Fatal("expected an error for invalid values")
		}
	})

	t.Run("reads the YAML file named by the environment", func(t *testing.T) {
		clearEnvironment(t)

		path := filepath.Join(t.TempDir(), "confprog.yaml")
		contents := "http_port: 3000\nsync_grace_period: 10s\nreconnect_attempts: 2\n"
		if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
			t.Fatalf("write config file: %v", err)
		}
		t.Setenv("CONFPROG_CONFIG_FILE", path)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.HTTPPort != 3000 {
			t.Fatalf("expected port 3000 from file, got %d", cfg.HTTPPort)
		}
		if cfg.SyncGracePeriod != 10*time.Second {
			t.Fatalf("expected grace period 10s, got %v", cfg.SyncGracePeriod)
		}
		if cfg.ReconnectAttempts != 2 {
			t.Fatalf("expected 2 reconnect attempts, got %d", cfg.ReconnectAttempts)
		}
		if cfg.SessionTTL != 24*time.Hour {
			t.Fatalf("expected untouched session TTL default, got %v", cfg.SessionTTL)
		}
	})

	t.Run("environment wins over the file", func(t *testing.T) {
		clearEnvironment(t)

		path := filepath.Join(t.TempDir(), "confprog.yaml")
		if err := os.WriteFile(path, []byte("http_port: 3000\n"), 0o600); err != nil {
			t.Fatalf("write config file: %v", err)
		}
		t.Setenv("CONFPROG_CONFIG_FILE", path)
		t.Setenv("CONFPROG_HTTP_PORT", "4000")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.HTTPPort != 4000 {
			t.Fatalf("expected environment override 4000, got %d", cfg.HTTPPort)
		}
	})

	t.Run("rejects a malformed file", func(t *testing.T) {
		clearEnvironment(t)

		path := filepath.Join(t.TempDir(), "confprog.yaml")
		if err := os.WriteFile(path, []byte("session_ttl: [oops\n"), 0o600); err != nil {
			t.Fatalf("write config file: %v", err)
		}

		if _, err := LoadFile(path); err == nil {
			t.Fatal("expected an error for a malformed file")
		}
	})
}

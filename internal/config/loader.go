package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the runtime configuration of the program service. Values
// come from an optional YAML file overridden by CONFPROG_* environment
// variables.
type Config struct {
	HTTPPort          int
	SQLiteDSN         string
	LogLevel          string
	SessionTTL        time.Duration
	SyncGracePeriod   time.Duration
	ReconnectAttempts int
	ReconnectDelay    time.Duration
}

// fileConfig mirrors Config with duration fields as strings so the YAML form
// accepts values like "24h" and "500ms".
type fileConfig struct {
	HTTPPort          *int    `yaml:"http_port"`
	SQLiteDSN         *string `yaml:"sqlite_dsn"`
	LogLevel          *string `yaml:"log_level"`
	SessionTTL        *string `yaml:"session_ttl"`
	SyncGracePeriod   *string `yaml:"sync_grace_period"`
	ReconnectAttempts *int    `yaml:"reconnect_attempts"`
	ReconnectDelay    *string `yaml:"reconnect_delay"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		HTTPPort:          8080,
		SQLiteDSN:         "file:confprog.db?_foreign_keys=on",
		LogLevel:          "info",
		SessionTTL:        24 * time.Hour,
		SyncGracePeriod:   5 * time.Second,
		ReconnectAttempts: 5,
		ReconnectDelay:    time.Second,
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFPROG_CONFIG_FILE (when set), then individual environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("CONFPROG_CONFIG_FILE")); path != "" {
		loaded, err := loadFile(path, cfg)
		if err != nil {
			return Config{}, err
		}
		cfg = loaded
	}

	return applyEnvironment(cfg)
}

// LoadFile builds the configuration from defaults plus the given YAML file,
// then environment variables.
func LoadFile(path string) (Config, error) {
	cfg, err := loadFile(path, Default())
	if err != nil {
		return Config{}, err
	}
	return applyEnvironment(cfg)
}

func loadFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %s: %w", path, err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
	}

	cfg := base
	if file.HTTPPort != nil {
		cfg.HTTPPort = *file.HTTPPort
	}
	if file.SQLiteDSN != nil {
		cfg.SQLiteDSN = *file.SQLiteDSN
	}
	if file.LogLevel != nil {
		cfg.LogLevel = *file.LogLevel
	}
	if file.ReconnectAttempts != nil {
		cfg.ReconnectAttempts = *file.ReconnectAttempts
	}

	durations := []struct {
		name  string
		raw   *string
		field *time.Duration
	}{
		{"session_ttl", file.SessionTTL, &cfg.SessionTTL},
		{"sync_grace_period", file.SyncGracePeriod, &cfg.SyncGracePeriod},
		{"reconnect_delay", file.ReconnectDelay, &cfg.ReconnectDelay},
	}
	for _, d := range durations {
		if d.raw == nil {
			continue
		}
		parsed, err := time.ParseDuration(*d.raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse config file %s: field %s: %w", path, d.name, err)
		}
		*d.field = parsed
	}

	return cfg, nil
}

func applyEnvironment(cfg Config) (Config, error) {
	invalid := make([]string, 0, 2)

	if value := strings.TrimSpace(os.Getenv("CONFPROG_HTTP_PORT")); value != "" {
		port, err := strconv.Atoi(value)
		if err != nil || port <= 0 {
			invalid = append(invalid, "CONFPROG_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if value := strings.TrimSpace(os.Getenv("CONFPROG_SQLITE_DSN")); value != "" {
		cfg.SQLiteDSN = value
	}

	if value := strings.TrimSpace(os.Getenv("CONFPROG_LOG_LEVEL")); value != "" {
		cfg.LogLevel = value
	}

	if value := strings.TrimSpace(os.Getenv("CONFPROG_SESSION_TTL")); value != "" {
		ttl, err := time.ParseDuration(value)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "CONFPROG_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if value := strings.TrimSpace(os.Getenv("CONFPROG_SYNC_GRACE_PERIOD")); value != "" {
		grace, err := time.ParseDuration(value)
		if err != nil || grace < 0 {
			invalid = append(invalid, "CONFPROG_SYNC_GRACE_PERIOD")
		} else {
			cfg.SyncGracePeriod = grace
		}
	}

	if value := strings.TrimSpace(os.Getenv("CONFPROG_RECONNECT_ATTEMPTS")); value != "" {
		attempts, err := strconv.Atoi(value)
		if err != nil || attempts <= 0 {
			invalid = append(invalid, "CONFPROG_RECONNECT_ATTEMPTS")
		} else {
			cfg.ReconnectAttempts = attempts
		}
	}

	if value := strings.TrimSpace(os.Getenv("CONFPROG_RECONNECT_DELAY")); value != "" {
		delay, err := time.ParseDuration(value)
		if err != nil || delay <= 0 {
			invalid = append(invalid, "CONFPROG_RECONNECT_DELAY")
		} else {
			cfg.ReconnectDelay = delay
		}
	}

	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		invalid = append(invalid, "CONFPROG_LOG_LEVEL")
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid configuration values: %s", strings.Join(invalid, ", "))
	}
	return cfg, nil
}

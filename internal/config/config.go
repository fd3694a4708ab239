// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes settings for the
// backing store (Cassandra or the embedded SQLite file), the reconnect
// policy, pagination limits, logging, the ops server and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Supported store drivers.
const (
	DriverCassandra = "cassandra"
	DriverSQLite    = "sqlite"
)

// CassandraConfig holds connection settings for the wide-column store.
type CassandraConfig struct {
	Hosts             []string      // CASSANDRA_HOST (comma separated)
	Port              int           // CASSANDRA_PORT
	Keyspace          string        // CASSANDRA_KEYSPACE
	Username          string        // CASSANDRA_USER
	Password          string        // CASSANDRA_PASSWORD
	Consistency       string        // CASSANDRA_CONSISTENCY
	Timeout           time.Duration // CASSANDRA_TIMEOUT
	ReplicationFactor int           // CASSANDRA_REPLICATION_FACTOR (schema bootstrap only)
}

// ReconnectConfig controls the gateway's connect loop.
type ReconnectConfig struct {
	MaxAttempts int           // CASSANDRA_MAX_RETRIES; 0 retries forever
	Delay       time.Duration // CASSANDRA_RETRY_DELAY
}

// PagingConfig bounds paginated reads.
type PagingConfig struct {
	DefaultPageSize int // DEFAULT_PAGE_SIZE
	MaxPageSize     int // MAX_PAGE_SIZE
	MaxFetchRows    int // MAX_FETCH_ROWS, cap on page*limit
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the application.
type Config struct {
	// Store
	Driver     string // cassandra|sqlite
	SQLitePath string
	Cassandra  CassandraConfig
	Reconnect  ReconnectConfig

	// Messaging
	MaxContentRunes int
	Paging          PagingConfig

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool

	// Ops server
	OpsAddr string
	GinMode string // debug|release|test

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		Driver:     strings.ToLower(strings.TrimSpace(getenv("STORE_DRIVER", DriverCassandra))),
		SQLitePath: getenv("SQLITE_PATH", "messenger.db"),
		Cassandra: CassandraConfig{
			Hosts:             splitCSV(getenv("CASSANDRA_HOST", "localhost")),
			Port:              getint("CASSANDRA_PORT", 9042),
			Keyspace:          getenv("CASSANDRA_KEYSPACE", "messenger"),
			Username:          getenv("CASSANDRA_USER", ""),
			Password:          getenv("CASSANDRA_PASSWORD", ""),
			Consistency:       strings.ToUpper(getenv("CASSANDRA_CONSISTENCY", "LOCAL_QUORUM")),
			Timeout:           getdur("CASSANDRA_TIMEOUT", 10*time.Second),
			ReplicationFactor: getint("CASSANDRA_REPLICATION_FACTOR", 3),
		},
		Reconnect: ReconnectConfig{
			MaxAttempts: getint("CASSANDRA_MAX_RETRIES", 0),
			Delay:       getseconds("CASSANDRA_RETRY_DELAY", 5*time.Second),
		},

		MaxContentRunes: getint("MAX_CONTENT_RUNES", 4000),
		Paging: PagingConfig{
			DefaultPageSize: getint("DEFAULT_PAGE_SIZE", 20),
			MaxPageSize:     getint("MAX_PAGE_SIZE", 100),
			MaxFetchRows:    getint("MAX_FETCH_ROWS", 10000),
		},

		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		OpsAddr: getenv("OPS_ADDR", ":9090"),
		GinMode: strings.ToLower(getenv("GIN_MODE", "release")),

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-messenger-store"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.Driver {
	case DriverCassandra:
		if len(cfg.Cassandra.Hosts) == 0 {
			return cfg, errors.New("CASSANDRA_HOST must not be empty")
		}
		if cfg.Cassandra.Port <= 0 || cfg.Cassandra.Port > 65535 {
			return cfg, errors.New("CASSANDRA_PORT must be a valid port")
		}
		if strings.TrimSpace(cfg.Cassandra.Keyspace) == "" {
			return cfg, errors.New("CASSANDRA_KEYSPACE must not be empty")
		}
		if cfg.Cassandra.Timeout <= 0 {
			return cfg, errors.New("CASSANDRA_TIMEOUT must be a positive duration")
		}
		if cfg.Cassandra.ReplicationFactor < 1 {
			return cfg, errors.New("CASSANDRA_REPLICATION_FACTOR must be >= 1")
		}
	case DriverSQLite:
		if strings.TrimSpace(cfg.SQLitePath) == "" {
			return cfg, errors.New("SQLITE_PATH must not be empty")
		}
	default:
		return cfg, errors.New("STORE_DRIVER must be one of: cassandra, sqlite")
	}
	if cfg.Reconnect.MaxAttempts < 0 {
		return cfg, errors.New("CASSANDRA_MAX_RETRIES must be >= 0")
	}
	if cfg.Reconnect.Delay <= 0 {
		return cfg, errors.New("CASSANDRA_RETRY_DELAY must be positive")
	}
	if cfg.MaxContentRunes < 1 {
		return cfg, errors.New("MAX_CONTENT_RUNES must be >= 1")
	}
	if cfg.Paging.DefaultPageSize < 1 || cfg.Paging.MaxPageSize < 1 {
		return cfg, errors.New("page sizes must be >= 1")
	}
	if cfg.Paging.DefaultPageSize > cfg.Paging.MaxPageSize {
		return cfg, errors.New("DEFAULT_PAGE_SIZE must not exceed MAX_PAGE_SIZE")
	}
	if cfg.Paging.MaxFetchRows < cfg.Paging.MaxPageSize {
		return cfg, errors.New("MAX_FETCH_ROWS must be >= MAX_PAGE_SIZE")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.OpsAddr) == "" {
		return cfg, errors.New("OPS_ADDR must not be empty")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// getseconds accepts either a bare integer (seconds) or a Go duration.
func getseconds(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		v = strings.TrimSpace(v)
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Repository and cache backend names accepted in config and env.
const (
	BackendInMemory  = "in_memory"
	BackendPostgres  = "postgres"
	BackendMemcached = "memcached"
	BackendNone      = "none"
)

// Config holds service configuration loaded from YAML and env.
type Config struct {
	ServerPort string

	RequestTimeout time.Duration

	RepositoryBackend    string // "in_memory" or "postgres"
	DatabaseDSN          string
	DatabaseMaxOpenConns int
	DatabaseMaxIdleConns int
	DatabaseMaxIdleTime  time.Duration
	DatabasePingTimeout  time.Duration

	CacheBackend          string // "none", "in_memory" or "memcached"
	CacheTTL              time.Duration
	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	RateLimitRPS     int
	RateLimitBurst   int
	DegradedWindow   time.Duration
	DegradedErrorPct int

	TitleMaxLength int

	ShutdownTimeout               time.Duration
	ShutdownInFlightTimeout       time.Duration
	ShutdownInFlightCheckInterval time.Duration
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Repository struct {
		Backend  string `yaml:"backend"`
		Postgres struct {
			MaxOpenConns int    `yaml:"max_open_conns"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
			MaxIdleTime  string `yaml:"max_idle_time"`
			PingTimeout  string `yaml:"ping_timeout"`
		} `yaml:"postgres"`
	} `yaml:"repository"`

	Cache struct {
		Backend   string `yaml:"backend"`
		TTL       string `yaml:"ttl"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
	} `yaml:"cache"`

	Reliability struct {
		RateLimitRPS     int    `yaml:"rate_limit_rps"`
		RateLimitBurst   int    `yaml:"rate_limit_burst"`
		DegradedWindow   string `yaml:"degraded_window"`
		DegradedErrorPct int    `yaml:"degraded_error_pct"`
	} `yaml:"reliability"`

	Validation struct {
		TitleMaxLength int `yaml:"title_max_length"`
	} `yaml:"validation"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`
}

type secretsFile struct {
	DatabaseDSN string `yaml:"database_dsn"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) and config/secrets.yaml.
// The database DSN comes from DATABASE_DSN env or the secrets file. Call from project root.
func Load() (*Config, error) {
	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}

	cfg.ServerPort = fc.Server.Port
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 5*time.Second)

	cfg.RepositoryBackend = envOr("REPOSITORY_BACKEND", fc.Repository.Backend, BackendInMemory)
	cfg.DatabaseDSN = strings.TrimSpace(os.Getenv("DATABASE_DSN"))
	if cfg.DatabaseDSN == "" {
		dsn, err := loadDSNFromSecrets(filepath.Join(cwd, "config", "secrets.yaml"))
		if err != nil {
			return nil, err
		}
		cfg.DatabaseDSN = dsn
	}
	cfg.DatabaseMaxOpenConns = fc.Repository.Postgres.MaxOpenConns
	if cfg.DatabaseMaxOpenConns <= 0 {
		cfg.DatabaseMaxOpenConns = 25
	}
	cfg.DatabaseMaxIdleConns = fc.Repository.Postgres.MaxIdleConns
	if cfg.DatabaseMaxIdleConns <= 0 {
		cfg.DatabaseMaxIdleConns = 25
	}
	cfg.DatabaseMaxIdleTime = parseDuration(fc.Repository.Postgres.MaxIdleTime, 15*time.Minute)
	cfg.DatabasePingTimeout = parseDuration(fc.Repository.Postgres.PingTimeout, 5*time.Second)

	cfg.CacheBackend = envOr("CACHE_BACKEND", fc.Cache.Backend, BackendNone)
	cfg.CacheTTL = parseDuration(fc.Cache.TTL, 5*time.Minute)
	cfg.MemcachedAddrs = strings.TrimSpace(os.Getenv("MEMCACHED_ADDRS"))
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = strings.TrimSpace(fc.Cache.Memcached.Addrs)
	}
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = "localhost:11211"
	}
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Cache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}

	// Zero RPS disables rate limiting, so only negatives fall back.
	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	if cfg.RateLimitRPS < 0 {
		cfg.RateLimitRPS = 0
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 2 * cfg.RateLimitRPS
	}
	cfg.DegradedWindow = parseDuration(fc.Reliability.DegradedWindow, time.Minute)
	cfg.DegradedErrorPct = fc.Reliability.DegradedErrorPct
	if cfg.DegradedErrorPct < 0 || cfg.DegradedErrorPct > 100 {
		cfg.DegradedErrorPct = 0
	}

	cfg.TitleMaxLength = fc.Validation.TitleMaxLength
	if cfg.TitleMaxLength <= 0 {
		cfg.TitleMaxLength = 200
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 10*time.Second)
	cfg.ShutdownInFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 100*time.Millisecond)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDSNFromSecrets returns database_dsn from path, or "" when the file does not exist.
func loadDSNFromSecrets(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read secrets file: %w", err)
	}
	var sec secretsFile
	if err := yaml.Unmarshal(data, &sec); err != nil {
		return "", fmt.Errorf("parse secrets file: %w", err)
	}
	return strings.TrimSpace(sec.DatabaseDSN), nil
}

// envOr returns the normalised env var if set, else the file value, else def.
func envOr(envKey, fileVal, def string) string {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(envKey)))
	if v == "" {
		v = strings.TrimSpace(strings.ToLower(fileVal))
	}
	if v == "" {
		v = def
	}
	return v
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

// validate performs post-load checks: backend names must be known and the
// postgres backend needs a DSN.
func validate(cfg *Config) error {
	switch cfg.RepositoryBackend {
	case BackendInMemory:
	case BackendPostgres:
		if cfg.DatabaseDSN == "" {
			return fmt.Errorf("DATABASE_DSN required for postgres repository (set env or config/secrets.yaml database_dsn)")
		}
	default:
		return fmt.Errorf("repository.backend must be in_memory or postgres, got %q", cfg.RepositoryBackend)
	}
	switch cfg.CacheBackend {
	case BackendNone, BackendInMemory, BackendMemcached:
	default:
		return fmt.Errorf("cache.backend must be none, in_memory or memcached, got %q", cfg.CacheBackend)
	}
	return nil
}

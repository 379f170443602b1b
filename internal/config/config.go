// Package config provides YAML configuration loading with validation and
// environment variable substitution for the booking gateway.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level gateway configuration.
type Config struct {
	Server         ServerConfig         `yaml:"server" json:"server"`
	Metrics        MetricsConfig        `yaml:"metrics" json:"metrics"`
	Logging        LoggingConfig        `yaml:"logging" json:"logging"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit" json:"rate_limit"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker" json:"circuit_breaker"`
	Services       ServicesConfig       `yaml:"services" json:"services"`
	Redis          RedisConfig          `yaml:"redis" json:"redis"`
	Admin          AdminConfig          `yaml:"admin" json:"admin"`

	// Warnings holds non-fatal config issues detected during loading.
	// Stored on the Config itself (not a package-level var) so it is
	// safe to call Load concurrently from the hot-reload goroutine.
	Warnings []string `yaml:"-" json:"-"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
// Enabled defaults to true; set to false to disable metrics.
type MetricsConfig struct {
	Enabled *bool  `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// IsEnabled returns whether metrics are enabled (defaults to true).
func (m MetricsConfig) IsEnabled() bool {
	if m.Enabled == nil {
		return true
	}
	return *m.Enabled
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port" json:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	TrustedProxies  []string      `yaml:"trusted_proxies" json:"trusted_proxies"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" json:"max_body_bytes"`
	GlobalTimeoutMs int           `yaml:"global_timeout_ms" json:"global_timeout_ms"`
}

// GlobalTimeout returns the global request deadline as a time.Duration.
// Returns 0 (disabled) when GlobalTimeoutMs is not set.
func (s ServerConfig) GlobalTimeout() time.Duration {
	if s.GlobalTimeoutMs <= 0 {
		return 0
	}
	return time.Duration(s.GlobalTimeoutMs) * time.Millisecond
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Output     string `yaml:"output" json:"output"`           // "stdout", "stderr", or file path; default: "stdout"
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"` // max log file size before rotation; default: 100
	MaxBackups int    `yaml:"max_backups" json:"max_backups"` // number of rotated files to keep; default: 3
	MaxAgeDays int    `yaml:"max_age_days" json:"max_age_days"`
}

// RateLimitConfig holds the global rate limiter settings.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" json:"burst_size"`
}

// CircuitBreakerConfig holds breaker settings applied to every downstream
// service. Breakers are created once at startup, so these values are not
// hot-reloadable.
type CircuitBreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold" json:"failure_threshold"`
	ResetTimeout     time.Duration `yaml:"reset_timeout" json:"reset_timeout"`
}

// ServicesConfig names the three downstream services the gateway aggregates.
type ServicesConfig struct {
	Reservation ServiceConfig `yaml:"reservation" json:"reservation"`
	Loyalty     ServiceConfig `yaml:"loyalty" json:"loyalty"`
	Payment     ServiceConfig `yaml:"payment" json:"payment"`
}

// ServiceConfig holds connection settings for one downstream service.
type ServiceConfig struct {
	URL       string `yaml:"url" json:"url"`
	TimeoutMs int    `yaml:"timeout_ms" json:"timeout_ms"`
}

// Timeout returns the per-request timeout for calls to this service.
func (s ServiceConfig) Timeout() time.Duration {
	if s.TimeoutMs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(s.TimeoutMs) * time.Millisecond
}

// RedisConfig holds the connection and queue settings for the durable
// loyalty retry queue.
type RedisConfig struct {
	Addr           string        `yaml:"addr" json:"addr"`
	Password       string        `yaml:"password" json:"-"`
	DB             int           `yaml:"db" json:"db"`
	QueueChannel   string        `yaml:"queue_channel" json:"queue_channel"`
	WorkerIdleWait time.Duration `yaml:"worker_idle_wait" json:"worker_idle_wait"`
}

// AdminConfig holds admin API settings.
type AdminConfig struct {
	Enabled     bool     `yaml:"enabled" json:"enabled"`           // default: false
	IPAllowlist []string `yaml:"ip_allowlist" json:"ip_allowlist"` // CIDR notation
}

var envVarRe = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns in s with the corresponding
// environment variable value.
func expandEnvVars(s string) string {
	return envVarRe.ReplaceAllStringFunc(s, func(match string) string {
		key := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		return match
	})
}

// Load reads and parses a YAML configuration file, applies environment
// variable substitution, sets defaults, and validates the result.
// Warnings are stored on cfg.Warnings (goroutine-safe, no package-level state).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses configuration from raw YAML bytes. Useful for testing.
func LoadFromBytes(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	cfg.Warnings = collectWarnings(&cfg)

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 15 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 1048576 // 1 MB
	}

	// Logging defaults
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
	if cfg.Logging.MaxSizeMB == 0 {
		cfg.Logging.MaxSizeMB = 100
	}
	if cfg.Logging.MaxBackups == 0 {
		cfg.Logging.MaxBackups = 3
	}
	if cfg.Logging.MaxAgeDays == 0 {
		cfg.Logging.MaxAgeDays = 30
	}

	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = 100
	}
	if cfg.RateLimit.BurstSize == 0 {
		cfg.RateLimit.BurstSize = 50
	}

	// Circuit breaker defaults
	if cfg.CircuitBreaker.FailureThreshold == 0 {
		cfg.CircuitBreaker.FailureThreshold = 5
	}
	if cfg.CircuitBreaker.ResetTimeout == 0 {
		cfg.CircuitBreaker.ResetTimeout = 60 * time.Second
	}

	// Redis defaults
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Redis.QueueChannel == "" {
		cfg.Redis.QueueChannel = "loyalty-queue"
	}
	if cfg.Redis.WorkerIdleWait == 0 {
		cfg.Redis.WorkerIdleWait = 1 * time.Second
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("server.max_body_bytes must be positive")
	}
	if cfg.Server.GlobalTimeoutMs < 0 {
		return fmt.Errorf("server.global_timeout_ms must be non-negative")
	}
	if cfg.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate_limit.requests_per_second must be positive")
	}
	if cfg.RateLimit.BurstSize <= 0 {
		return fmt.Errorf("rate_limit.burst_size must be positive")
	}

	if cfg.CircuitBreaker.FailureThreshold < 1 {
		return fmt.Errorf("circuit_breaker.failure_threshold must be positive")
	}
	if cfg.CircuitBreaker.ResetTimeout <= 0 {
		return fmt.Errorf("circuit_breaker.reset_timeout must be positive")
	}

	services := []struct {
		name string
		svc  ServiceConfig
	}{
		{"reservation", cfg.Services.Reservation},
		{"loyalty", cfg.Services.Loyalty},
		{"payment", cfg.Services.Payment},
	}
	for _, s := range services {
		if s.svc.URL == "" {
			return fmt.Errorf("services.%s.url is required", s.name)
		}
		u, err := url.Parse(s.svc.URL)
		if err != nil {
			return fmt.Errorf("services.%s.url: invalid URL: %w", s.name, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("services.%s.url: scheme must be http or https, got %q", s.name, u.Scheme)
		}
		if u.Host == "" {
			return fmt.Errorf("services.%s.url: host is required", s.name)
		}
		if s.svc.TimeoutMs < 0 {
			return fmt.Errorf("services.%s.timeout_ms must be non-negative", s.name)
		}
	}

	if cfg.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required")
	}
	if cfg.Redis.DB < 0 {
		return fmt.Errorf("redis.db must be non-negative")
	}
	if cfg.Redis.WorkerIdleWait < 0 {
		return fmt.Errorf("redis.worker_idle_wait must be non-negative")
	}

	// Logging validation
	if cfg.Logging.Output != "stdout" && cfg.Logging.Output != "stderr" {
		if cfg.Logging.MaxSizeMB < 1 {
			return fmt.Errorf("logging.max_size_mb must be positive when output is a file path")
		}
	}

	// Admin validation
	if cfg.Admin.Enabled {
		if len(cfg.Admin.IPAllowlist) == 0 {
			return fmt.Errorf("admin.ip_allowlist is required when admin is enabled")
		}
		for i, cidr := range cfg.Admin.IPAllowlist {
			if _, _, err := net.ParseCIDR(cidr); err != nil {
				return fmt.Errorf("admin.ip_allowlist[%d]: invalid CIDR %q: %w", i, cidr, err)
			}
		}
	}

	return nil
}

func collectWarnings(cfg *Config) []string {
	var warnings []string
	if cfg.CircuitBreaker.ResetTimeout < time.Second {
		warnings = append(warnings, "circuit_breaker.reset_timeout below 1s will produce very aggressive recovery probing")
	}
	if cfg.Redis.WorkerIdleWait < 100*time.Millisecond {
		warnings = append(warnings, "redis.worker_idle_wait below 100ms will busy-poll the retry queue")
	}
	return warnings
}

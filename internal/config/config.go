// Package config loads and validates batch run configuration from a JSON
// file. Durations are written as Go duration strings ("8m", "30s") and
// parsed into their time.Duration counterparts on load.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds all configuration for one batch project.
type Config struct {
	ProjectName     string `json:"project_name"`
	ModelDirectory  string `json:"model_directory"`
	OutputDirectory string `json:"output_directory"`

	// ScriptCommand launches the host application's processing script.
	// {file} and {project} placeholders in ScriptArgs are substituted per
	// dispatch.
	ScriptCommand string   `json:"script_command"`
	ScriptArgs    []string `json:"script_args"`

	Filter    FilterConfig    `json:"file_filter"`
	Reprocess ReprocessConfig `json:"reprocess"`

	Timeout        TimeoutConfig        `json:"timeout"`
	CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker"`
	Retry          RetryConfig          `json:"retry"`

	PollInterval       time.Duration `json:"-"`
	PollIntervalStr    string        `json:"poll_interval"`
	MonitorInterval    time.Duration `json:"-"`
	MonitorIntervalStr string        `json:"monitor_interval"`

	Metrics MetricsConfig `json:"metrics"`

	// RedisAddr enables the analytics sink when set.
	RedisAddr string `json:"redis_addr,omitempty"`

	Schedule ScheduleConfig `json:"schedule"`
}

// FilterConfig narrows the model files a scan considers.
type FilterConfig struct {
	Extensions   []string `json:"extensions"`
	NamePatterns []string `json:"name_patterns"`
}

// ReprocessConfig selects which files a rerun processes.
type ReprocessConfig struct {
	Mode         string `json:"mode"`
	ReferenceLog string `json:"reference_log,omitempty"`
}

// TimeoutConfig tunes the adaptive timeout estimator.
type TimeoutConfig struct {
	Default      time.Duration `json:"-"`
	DefaultStr   string        `json:"default"`
	MinSamples   int           `json:"min_samples"`
	BufferFactor float64       `json:"buffer_factor"`
}

// CircuitBreakerConfig tunes the resource circuit breaker.
type CircuitBreakerConfig struct {
	CPUThreshold     float64       `json:"cpu_threshold"`
	MemoryThreshold  float64       `json:"memory_threshold"`
	FailureThreshold int           `json:"failure_threshold"`
	ResetTimeout     time.Duration `json:"-"`
	ResetTimeoutStr  string        `json:"reset_timeout"`
}

// RetryConfig tunes the retry coordinator.
type RetryConfig struct {
	MaxAttempts int           `json:"max_attempts"`
	Policy      string        `json:"policy"`
	MaxDelay    time.Duration `json:"-"`
	MaxDelayStr string        `json:"max_delay"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
	Path    string `json:"path"`
}

// ScheduleConfig enables recurring runs when Cron is set.
type ScheduleConfig struct {
	Cron     string `json:"cron,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// Load reads configuration from path, applies defaults and parses
// duration strings. Validation is handled separately by Validate().
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyDefaults(&cfg)
	parseDurations(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Reprocess.Mode == "" {
		cfg.Reprocess.Mode = "ALL"
	}
	if cfg.Timeout.DefaultStr == "" {
		cfg.Timeout.DefaultStr = "8m"
	}
	if cfg.Timeout.MinSamples == 0 {
		cfg.Timeout.MinSamples = 3
	}
	if cfg.Timeout.BufferFactor == 0 {
		cfg.Timeout.BufferFactor = 1.5
	}
	if cfg.CircuitBreaker.CPUThreshold == 0 {
		cfg.CircuitBreaker.CPUThreshold = 90
	}
	if cfg.CircuitBreaker.MemoryThreshold == 0 {
		cfg.CircuitBreaker.MemoryThreshold = 85
	}
	if cfg.CircuitBreaker.FailureThreshold == 0 {
		cfg.CircuitBreaker.FailureThreshold = 5
	}
	if cfg.CircuitBreaker.ResetTimeoutStr == "" {
		cfg.CircuitBreaker.ResetTimeoutStr = "5m"
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 3
	}
	if cfg.Retry.Policy == "" {
		cfg.Retry.Policy = "exponential"
	}
	if cfg.Retry.MaxDelayStr == "" {
		cfg.Retry.MaxDelayStr = "30s"
	}
	if cfg.PollIntervalStr == "" {
		cfg.PollIntervalStr = "100ms"
	}
	if cfg.MonitorIntervalStr == "" {
		cfg.MonitorIntervalStr = "5s"
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9090"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Schedule.Cron != "" && cfg.Schedule.Timezone == "" {
		cfg.Schedule.Timezone = "UTC"
	}
}

func parseDurations(cfg *Config) {
	if d, err := time.ParseDuration(cfg.Timeout.DefaultStr); err == nil {
		cfg.Timeout.Default = d
	}
	if d, err := time.ParseDuration(cfg.CircuitBreaker.ResetTimeoutStr); err == nil {
		cfg.CircuitBreaker.ResetTimeout = d
	}
	if d, err := time.ParseDuration(cfg.Retry.MaxDelayStr); err == nil {
		cfg.Retry.MaxDelay = d
	}
	if d, err := time.ParseDuration(cfg.PollIntervalStr); err == nil {
		cfg.PollInterval = d
	}
	if d, err := time.ParseDuration(cfg.MonitorIntervalStr); err == nil {
		cfg.MonitorInterval = d
	}
}

// MaskedJSON returns the configuration as JSON with the Redis address
// credentials masked.
func (c Config) MaskedJSON() ([]byte, error) {
	masked := c
	masked.RedisAddr = maskAddr(c.RedisAddr)
	return json.MarshalIndent(masked, "", "  ")
}

// maskAddr hides the credential portion of user:pass@host addresses.
func maskAddr(addr string) string {
	if i := strings.LastIndex(addr, "@"); i >= 0 {
		return "***@" + addr[i+1:]
	}
	return addr
}

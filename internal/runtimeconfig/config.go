package runtimeconfig

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrEmptyIDPolicyInvalid = errors.New("embed config: empty id policy is invalid")
var ErrUnfurlEndpointRequired = errors.New("embed config: unfurl endpoint is required")
var ErrUnfurlTimeoutInvalid = errors.New("embed config: unfurl timeouts must be zero or positive")
var ErrUnfurlRateInvalid = errors.New("embed config: unfurl rate and burst must be zero or positive")
var ErrLoggingProviderRequired = errors.New("embed config: logging provider is required when logging feature is enabled")
var ErrLoggingProviderUnknown = errors.New("embed config: logging provider is invalid")
var ErrLoggingLevelInvalid = errors.New("embed config: logging level is invalid")
var ErrLoggingFormatInvalid = errors.New("embed config: logging format is invalid")

// Config aggregates the embed module settings.
type Config struct {
	Services ServicesConfig `yaml:"services"`
	APIKey   string         `yaml:"api_key"`
	EmptyID  string         `yaml:"empty_id"`
	Unfurl   UnfurlConfig   `yaml:"unfurl"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Features Features       `yaml:"features"`
}

// ServicesConfig selects built-in providers and declares custom ones. A nil
// Enabled list keeps every built-in provider.
type ServicesConfig struct {
	Enabled []string        `yaml:"enabled"`
	Custom  []ServiceConfig `yaml:"custom"`
}

// ServiceConfig declares a custom provider.
type ServiceConfig struct {
	Key      string `yaml:"key"`
	Pattern  string `yaml:"pattern"`
	Strategy string `yaml:"strategy"`
	EmbedURL string `yaml:"embed_url"`
	HTML     string `yaml:"html"`
	Width    int    `yaml:"width"`
	Height   int    `yaml:"height"`
}

// UnfurlConfig configures the remote unfurling client.
type UnfurlConfig struct {
	Endpoint          string        `yaml:"endpoint"`
	KeyParam          string        `yaml:"key_param"`
	Timeout           time.Duration `yaml:"timeout"`
	FetchTimeout      time.Duration `yaml:"fetch_timeout"`
	MaxBodySize       int64         `yaml:"max_body_size"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	UserAgent         string        `yaml:"user_agent"`
	Breaker           BreakerConfig `yaml:"breaker"`
}

// BreakerConfig tunes the unfurl circuit breaker.
type BreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	MaxRequests      uint32        `yaml:"max_requests"`
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout"`
	FailureThreshold float64       `yaml:"failure_threshold"`
	MinRequests      uint32        `yaml:"min_requests"`
}

// LoggingConfig captures provider-specific options for runtime logging.
type LoggingConfig struct {
	Provider  string   `yaml:"provider"`
	Level     string   `yaml:"level"`
	Format    string   `yaml:"format"`
	AddSource bool     `yaml:"add_source"`
	Focus     []string `yaml:"focus"`
}

// MetricsConfig configures the Prometheus recorder.
type MetricsConfig struct {
	Namespace string `yaml:"namespace"`
}

// Features toggles optional wiring.
type Features struct {
	Logger  bool `yaml:"logger"`
	Metrics bool `yaml:"metrics"`
}

// DefaultConfig returns the defaults: every built-in provider, iframely as the
// unfurling service, console logging.
func DefaultConfig() Config {
	return Config{
		EmptyID: "pass-through",
		Unfurl: UnfurlConfig{
			Endpoint:          "https://iframe.ly/api/iframely",
			KeyParam:          "api_key",
			Timeout:           10 * time.Second,
			FetchTimeout:      15 * time.Second,
			MaxBodySize:       1 << 20,
			RequestsPerSecond: 5,
			Burst:             10,
			UserAgent:         "go-embed/1.0",
			Breaker: BreakerConfig{
				Enabled:          true,
				MaxRequests:      3,
				Interval:         30 * time.Second,
				Timeout:          60 * time.Second,
				FailureThreshold: 0.6,
				MinRequests:      5,
			},
		},
		Logging: LoggingConfig{
			Provider: "console",
			Level:    "info",
		},
		Metrics: MetricsConfig{
			Namespace: "embed",
		},
	}
}

// Validate performs high-level consistency checks. Custom services are not
// checked here: invalid entries are dropped when the registry is built.
func (cfg Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(cfg.EmptyID)) {
	case "", "pass-through", "reject":
	default:
		return fmt.Errorf("%w: %s", ErrEmptyIDPolicyInvalid, cfg.EmptyID)
	}
	if strings.TrimSpace(cfg.Unfurl.Endpoint) == "" {
		return ErrUnfurlEndpointRequired
	}
	if cfg.Unfurl.Timeout < 0 || cfg.Unfurl.FetchTimeout < 0 {
		return ErrUnfurlTimeoutInvalid
	}
	if cfg.Unfurl.RequestsPerSecond < 0 || cfg.Unfurl.Burst < 0 {
		return ErrUnfurlRateInvalid
	}
	if cfg.Features.Logger {
		provider := normalizeProvider(cfg.Logging.Provider)
		if provider == "" {
			return ErrLoggingProviderRequired
		}
		if !isSupportedProvider(provider) {
			return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, provider)
		}
		if level := strings.TrimSpace(cfg.Logging.Level); level != "" && !isSupportedLevel(level) {
			return fmt.Errorf("%w: %s", ErrLoggingLevelInvalid, level)
		}
		if provider == "gologger" {
			if format := strings.TrimSpace(cfg.Logging.Format); format != "" && !isSupportedFormat(format) {
				return fmt.Errorf("%w: %s", ErrLoggingFormatInvalid, format)
			}
		}
	}
	return nil
}

func normalizeProvider(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}

func isSupportedProvider(provider string) bool {
	switch provider {
	case "console", "gologger":
		return true
	default:
		return false
	}
}

func isSupportedLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
		return true
	default:
		return false
	}
}

func isSupportedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json", "console", "pretty":
		return true
	default:
		return false
	}
}

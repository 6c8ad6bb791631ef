package unfurl

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	// DefaultEndpoint is the iframely unfurling API.
	DefaultEndpoint = "https://iframe.ly/api/iframely"
	// DefaultKeyParam is the query parameter carrying the API credential.
	DefaultKeyParam = "api_key"
)

// Config controls the unfurl client.
type Config struct {
	Endpoint          string
	APIKey            string
	KeyParam          string
	Timeout           time.Duration
	MaxBodySize       int64
	RequestsPerSecond float64
	Burst             int
	UserAgent         string
	Breaker           BreakerConfig
}

// BreakerConfig tunes the circuit breaker guarding the unfurling service.
type BreakerConfig struct {
	Enabled          bool
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultConfig returns the client defaults: iframely endpoint, 10s timeout,
// 1 MiB body cap, 5 requests per second with a burst of 10.
func DefaultConfig() Config {
	return Config{
		Endpoint:          DefaultEndpoint,
		KeyParam:          DefaultKeyParam,
		Timeout:           10 * time.Second,
		MaxBodySize:       1 << 20,
		RequestsPerSecond: 5,
		Burst:             10,
		UserAgent:         "go-embed/1.0",
		Breaker:           DefaultBreakerConfig(),
	}
}

// DefaultBreakerConfig trips after 60% failures over at least five calls and
// probes again after a minute.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Enabled:          true,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// Validate reports invalid settings wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Endpoint, validation.Required, validation.By(httpURL)),
		validation.Field(&c.KeyParam, validation.Required),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&c.MaxBodySize, validation.Required, validation.Min(int64(1))),
		validation.Field(&c.RequestsPerSecond, validation.Min(0.0)),
		validation.Field(&c.Burst, validation.When(c.RequestsPerSecond > 0, validation.Required, validation.Min(1))),
		validation.Field(&c.Breaker),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Validate implements validation.Validatable.
func (b BreakerConfig) Validate() error {
	if !b.Enabled {
		return nil
	}
	return validation.ValidateStruct(&b,
		validation.Field(&b.FailureThreshold, validation.Min(0.0), validation.Max(1.0)),
	)
}

func httpURL(value any) error {
	raw, _ := value.(string)
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Host == "" {
		return validation.NewError("validation_is_url", "must be an absolute URL")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return validation.NewError("validation_is_http", "must use http or https")
	}
	return nil
}

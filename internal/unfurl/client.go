package unfurl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-embed/internal/logging"
	"github.com/goliatone/go-embed/pkg/interfaces"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Client calls the unfurling service. It is safe for concurrent use.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  interfaces.Logger
}

var _ interfaces.Unfurler = (*Client)(nil)

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client. Its Timeout is left untouched.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithLogger attaches a logger for request and breaker events.
func WithLogger(logger interfaces.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New validates cfg and builds a client.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logging.NoOp(),
	}
	for _, opt := range opts {
		opt(c)
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	c.limiter = rate.NewLimiter(limit, cfg.Burst)

	if cfg.Breaker.Enabled {
		c.breaker = gobreaker.NewCircuitBreaker(c.breakerSettings())
	}
	return c, nil
}

func (c *Client) breakerSettings() gobreaker.Settings {
	b := c.cfg.Breaker
	return gobreaker.Settings{
		Name:        "embed-unfurl",
		MaxRequests: b.MaxRequests,
		Interval:    b.Interval,
		Timeout:     b.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < b.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= b.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.WithFields(c.logger, map[string]any{
				"circuit": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("embed.unfurl.breaker_state_changed")
		},
		// caller cancellation says nothing about the service health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
}

// Unfurl asks the service for embed markup describing sourceURL. Errors are
// wrapped with go-errors; the underlying cause stays reachable via errors.As.
func (c *Client) Unfurl(ctx context.Context, sourceURL string) (interfaces.UnfurlResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return interfaces.UnfurlResponse{}, wrapError(err)
	}

	if c.breaker == nil {
		resp, err := c.do(ctx, sourceURL)
		return resp, wrapError(err)
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.do(ctx, sourceURL)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			logging.WithFields(c.logger.WithContext(ctx), map[string]any{
				"source_url": sourceURL,
				"state":      c.breaker.State().String(),
			}).Warn("embed.unfurl.circuit_open")
		}
		return interfaces.UnfurlResponse{}, wrapError(err)
	}
	return out.(interfaces.UnfurlResponse), nil
}

func (c *Client) do(ctx context.Context, sourceURL string) (interfaces.UnfurlResponse, error) {
	endpoint, err := c.requestURL(sourceURL)
	if err != nil {
		return interfaces.UnfurlResponse{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return interfaces.UnfurlResponse{}, err
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	started := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return interfaces.UnfurlResponse{}, err
	}
	defer res.Body.Close()

	logging.WithFields(c.logger.WithContext(ctx), map[string]any{
		"source_url": sourceURL,
		"status":     res.StatusCode,
		"elapsed_ms": time.Since(started).Milliseconds(),
	}).Debug("embed.unfurl.response")

	if res.StatusCode < 200 || res.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4<<10))
		return interfaces.UnfurlResponse{}, &HTTPStatusError{URL: sourceURL, StatusCode: res.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, c.cfg.MaxBodySize+1))
	if err != nil {
		return interfaces.UnfurlResponse{}, err
	}
	if int64(len(body)) > c.cfg.MaxBodySize {
		return interfaces.UnfurlResponse{}, ErrBodyTooLarge
	}

	var payload interfaces.UnfurlResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return interfaces.UnfurlResponse{}, wrapDecodeError(err)
	}
	if strings.TrimSpace(payload.HTML) == "" {
		return interfaces.UnfurlResponse{}, ErrEmptyHTML
	}
	return payload, nil
}

func (c *Client) requestURL(sourceURL string) (string, error) {
	endpoint, err := url.Parse(c.cfg.Endpoint)
	if err != nil {
		return "", fmt.Errorf("unfurl: parse endpoint: %w", err)
	}
	query := endpoint.Query()
	query.Set("url", sourceURL)
	if c.cfg.APIKey != "" {
		query.Set(c.cfg.KeyParam, c.cfg.APIKey)
	}
	endpoint.RawQuery = query.Encode()
	return endpoint.String(), nil
}

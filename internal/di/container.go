package di

import (
	"net/http"
	"strings"

	"github.com/goliatone/go-embed/internal/block"
	"github.com/goliatone/go-embed/internal/logging"
	"github.com/goliatone/go-embed/internal/logging/console"
	"github.com/goliatone/go-embed/internal/logging/gologger"
	"github.com/goliatone/go-embed/internal/metrics"
	"github.com/goliatone/go-embed/internal/providers"
	"github.com/goliatone/go-embed/internal/resolver"
	"github.com/goliatone/go-embed/internal/runtimeconfig"
	"github.com/goliatone/go-embed/internal/unfurl"
	"github.com/goliatone/go-embed/pkg/interfaces"
	goerrors "github.com/goliatone/go-errors"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	codeInvalidConfig       = "EMBED_CONFIG_INVALID"
	codeMetricsRegistration = "EMBED_METRICS_REGISTRATION"
)

// Container wires the embed module dependencies.
type Container struct {
	Config runtimeconfig.Config

	loggerProvider interfaces.LoggerProvider
	metrics        interfaces.EmbedMetrics
	registerer     prometheus.Registerer
	httpClient     *http.Client
	unfurler       interfaces.Unfurler
	extraSpecs     []providers.Spec

	registry *providers.Registry
	resolver *resolver.Resolver
}

// Option mutates the container before it is finalised.
type Option func(*Container)

// WithLoggerProvider overrides the logger provider selected from config.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(c *Container) {
		if provider != nil {
			c.loggerProvider = provider
		}
	}
}

// WithMetrics overrides the metrics recorder.
func WithMetrics(m interfaces.EmbedMetrics) Option {
	return func(c *Container) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithPrometheusRegisterer sets where collectors are registered when the
// metrics feature is enabled.
func WithPrometheusRegisterer(reg prometheus.Registerer) Option {
	return func(c *Container) {
		c.registerer = reg
	}
}

// WithHTTPClient overrides the HTTP client used by the unfurl client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Container) {
		c.httpClient = client
	}
}

// WithUnfurler replaces the unfurl client entirely.
func WithUnfurler(u interfaces.Unfurler) Option {
	return func(c *Container) {
		if u != nil {
			c.unfurler = u
		}
	}
}

// WithProviders appends custom provider specs after the configured ones.
// Unlike YAML services these may carry an id extractor.
func WithProviders(specs ...providers.Spec) Option {
	return func(c *Container) {
		c.extraSpecs = append(c.extraSpecs, specs...)
	}
}

// NewContainer validates cfg and builds the registry, unfurl client and
// resolver.
func NewContainer(cfg runtimeconfig.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, invalidConfig(err)
	}

	c := &Container{Config: cfg}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.configureLoggerProvider(); err != nil {
		return nil, invalidConfig(err)
	}
	if err := c.configureMetrics(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, "embed metrics registration failed").
			WithTextCode(codeMetricsRegistration)
	}
	c.configureRegistry()
	if err := c.configureUnfurler(); err != nil {
		return nil, invalidConfig(err)
	}
	c.configureResolver()

	logging.WithFields(logging.ModuleLogger(c.loggerProvider, ""), map[string]any{
		"providers": c.registry.Len(),
		"empty_id":  string(emptyIDPolicy(cfg.EmptyID)),
	}).Info("embed.configured")
	return c, nil
}

func invalidConfig(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryValidation, "embed configuration rejected").
		WithTextCode(codeInvalidConfig)
}

func (c *Container) configureLoggerProvider() error {
	if c.loggerProvider != nil || !c.Config.Features.Logger {
		return nil
	}

	logCfg := c.Config.Logging
	switch strings.ToLower(strings.TrimSpace(logCfg.Provider)) {
	case "gologger":
		provider, err := gologger.NewProvider(gologger.Config{
			Level:     logCfg.Level,
			Format:    logCfg.Format,
			AddSource: logCfg.AddSource,
			Focus:     logCfg.Focus,
		})
		if err != nil {
			return err
		}
		c.loggerProvider = provider
	default:
		level := console.ParseLevel(logCfg.Level)
		c.loggerProvider = console.NewProvider(console.Options{MinLevel: &level})
	}
	return nil
}

func (c *Container) configureMetrics() error {
	if c.metrics != nil {
		return nil
	}
	if !c.Config.Features.Metrics {
		c.metrics = metrics.NoOp()
		return nil
	}
	recorder, err := metrics.NewPrometheus(c.registerer, c.Config.Metrics.Namespace)
	if err != nil {
		return err
	}
	c.metrics = recorder
	return nil
}

func (c *Container) configureRegistry() {
	services := c.Config.Services
	custom := make([]providers.Spec, 0, len(services.Custom)+len(c.extraSpecs))
	for _, svc := range services.Custom {
		custom = append(custom, providers.Spec{
			Key:      svc.Key,
			Pattern:  svc.Pattern,
			Strategy: providers.Strategy(strings.ToLower(strings.TrimSpace(svc.Strategy))),
			EmbedURL: svc.EmbedURL,
			HTML:     svc.HTML,
			Width:    svc.Width,
			Height:   svc.Height,
		})
	}
	custom = append(custom, c.extraSpecs...)

	c.registry = providers.Prepare(providers.Config{
		Enabled: services.Enabled,
		Custom:  custom,
		APIKey:  c.Config.APIKey,
	}, providers.WithLogger(logging.ProvidersLogger(c.loggerProvider)))
}

func (c *Container) configureUnfurler() error {
	if c.unfurler != nil {
		return nil
	}

	u := c.Config.Unfurl
	opts := []unfurl.Option{unfurl.WithLogger(logging.UnfurlLogger(c.loggerProvider))}
	if c.httpClient != nil {
		opts = append(opts, unfurl.WithHTTPClient(c.httpClient))
	}
	client, err := unfurl.New(unfurl.Config{
		Endpoint:          u.Endpoint,
		APIKey:            c.registry.APIKey(),
		KeyParam:          u.KeyParam,
		Timeout:           u.Timeout,
		MaxBodySize:       u.MaxBodySize,
		RequestsPerSecond: u.RequestsPerSecond,
		Burst:             u.Burst,
		UserAgent:         u.UserAgent,
		Breaker: unfurl.BreakerConfig{
			Enabled:          u.Breaker.Enabled,
			MaxRequests:      u.Breaker.MaxRequests,
			Interval:         u.Breaker.Interval,
			Timeout:          u.Breaker.Timeout,
			FailureThreshold: u.Breaker.FailureThreshold,
			MinRequests:      u.Breaker.MinRequests,
		},
	}, opts...)
	if err != nil {
		return err
	}
	c.unfurler = client
	return nil
}

func (c *Container) configureResolver() {
	c.resolver = resolver.New(c.registry,
		resolver.WithUnfurler(c.unfurler),
		resolver.WithMetrics(c.metrics),
		resolver.WithLogger(logging.ResolverLogger(c.loggerProvider)),
		resolver.WithEmptyIDPolicy(emptyIDPolicy(c.Config.EmptyID)),
		resolver.WithFetchTimeout(c.Config.Unfurl.FetchTimeout),
	)
}

func emptyIDPolicy(value string) resolver.EmptyIDPolicy {
	if strings.EqualFold(strings.TrimSpace(value), string(resolver.EmptyIDReject)) {
		return resolver.EmptyIDReject
	}
	return resolver.EmptyIDPassThrough
}

// NewBlock constructs a block bound to the container registry and resolver.
func (c *Container) NewBlock(params block.Params, opts ...block.Option) (*block.Block, error) {
	defaults := []block.Option{
		block.WithLogger(logging.BlockLogger(c.loggerProvider)),
		block.WithMetrics(c.metrics),
	}
	return block.New(c.registry, c.resolver, params, append(defaults, opts...)...)
}

// Registry returns the active provider set.
func (c *Container) Registry() *providers.Registry {
	return c.registry
}

// Resolver returns the embed resolver.
func (c *Container) Resolver() *resolver.Resolver {
	return c.resolver
}

// Unfurler returns the remote unfurl client.
func (c *Container) Unfurler() interfaces.Unfurler {
	return c.unfurler
}

// Metrics returns the metrics recorder.
func (c *Container) Metrics() interfaces.EmbedMetrics {
	return c.metrics
}

// LoggerProvider returns the configured provider, nil when logging is off.
func (c *Container) LoggerProvider() interfaces.LoggerProvider {
	return c.loggerProvider
}

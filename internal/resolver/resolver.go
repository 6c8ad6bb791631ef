package resolver

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-embed/internal/logging"
	"github.com/goliatone/go-embed/internal/metrics"
	"github.com/goliatone/go-embed/internal/providers"
	"github.com/goliatone/go-embed/internal/unfurl"
	"github.com/goliatone/go-embed/pkg/interfaces"
)

// Resolver turns a matched URL into an Embed using the provider strategy.
type Resolver struct {
	registry     *providers.Registry
	unfurler     interfaces.Unfurler
	metrics      interfaces.EmbedMetrics
	logger       interfaces.Logger
	emptyID      EmptyIDPolicy
	urls         *URLPolicy
	fetchTimeout time.Duration
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithUnfurler sets the client used for remote providers.
func WithUnfurler(u interfaces.Unfurler) Option {
	return func(r *Resolver) {
		r.unfurler = u
	}
}

// WithMetrics overrides the metrics recorder.
func WithMetrics(m interfaces.EmbedMetrics) Option {
	return func(r *Resolver) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithEmptyIDPolicy selects the empty remote id behaviour.
func WithEmptyIDPolicy(policy EmptyIDPolicy) Option {
	return func(r *Resolver) {
		if policy != "" {
			r.emptyID = policy
		}
	}
}

// WithURLPolicy overrides the embed URL scheme allow-list.
func WithURLPolicy(policy *URLPolicy) Option {
	return func(r *Resolver) {
		if policy != nil {
			r.urls = policy
		}
	}
}

// WithFetchTimeout bounds each remote fetch. Zero leaves the caller's context
// untouched.
func WithFetchTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		r.fetchTimeout = d
	}
}

// New constructs a resolver over registry.
func New(registry *providers.Registry, opts ...Option) *Resolver {
	r := &Resolver{
		registry: registry,
		metrics:  metrics.NoOp(),
		logger:   logging.NoOp(),
		emptyID:  EmptyIDPassThrough,
		urls:     NewURLPolicy(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry returns the provider set the resolver reads from.
func (r *Resolver) Registry() *providers.Registry {
	return r.registry
}

// Resolve produces the embed for sourceURL under the provider registered as
// key. Local providers resolve immediately. Remote providers return a
// KindPending result and must be completed with Fetch.
func (r *Resolver) Resolve(key, sourceURL string) (Result, error) {
	provider, ok := r.registry.Get(key)
	if !ok {
		return Result{}, ErrUnknownProvider
	}
	sourceURL = strings.TrimSpace(sourceURL)
	result := Result{ProviderKey: key, SourceURL: sourceURL}

	if provider.Strategy() == providers.StrategyRemoteFetch {
		r.metrics.IncrementResolution(key, string(providers.StrategyRemoteFetch))
		result.Kind = KindPending
		result.Embed = Embed{
			Width:  provider.Spec().Width,
			Height: provider.Spec().Height,
		}
		return result, nil
	}

	embed, err := r.resolveLocal(provider, sourceURL)
	if err != nil {
		return Result{}, err
	}
	r.metrics.IncrementResolution(key, string(providers.StrategyLocalTemplate))
	result.Kind = KindImmediate
	result.Embed = embed
	return result, nil
}

func (r *Resolver) resolveLocal(provider providers.Provider, sourceURL string) (Embed, error) {
	captures, ok := r.registry.Captures(provider.Key(), sourceURL)
	if !ok {
		return Embed{}, ErrNoMatch
	}

	id := provider.RemoteID(captures)
	if id == "" && r.emptyID == EmptyIDReject {
		return Embed{}, ErrEmptyRemoteID
	}

	spec := provider.Spec()
	embedURL := Substitute(spec.EmbedURL, id)
	if err := r.urls.Check(embedURL); err != nil {
		logging.WithFields(r.logger, map[string]any{
			"provider":  provider.Key(),
			"embed_url": embedURL,
			"error":     err,
		}).Warn("embed.resolver.unsafe_url")
		return Embed{HTML: ErrorPlaceholderHTML, Failed: true}, nil
	}

	return Embed{
		EmbedURL: embedURL,
		Width:    spec.Width,
		Height:   spec.Height,
	}, nil
}

// Substitute replaces every placeholder occurrence in template with id.
func Substitute(template, id string) string {
	return strings.ReplaceAll(template, RemoteIDPlaceholder, id)
}

// Fetch performs the single outbound request for a remote provider. It never
// returns an error: every failure yields ErrorPlaceholderHTML with Failed set.
// Local providers are resolved without network access.
func (r *Resolver) Fetch(ctx context.Context, key, sourceURL string) Embed {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := logging.WithFields(r.logger.WithContext(ctx), map[string]any{
		"provider":   key,
		"source_url": sourceURL,
	})

	provider, ok := r.registry.Get(key)
	if !ok {
		logger.Warn("embed.resolver.fetch_failed", "error", ErrUnknownProvider)
		r.metrics.IncrementFetchFailure(key, "unknown_provider")
		return failedEmbed(0, 0)
	}
	spec := provider.Spec()

	if provider.Strategy() != providers.StrategyRemoteFetch {
		embed, err := r.resolveLocal(provider, sourceURL)
		if err != nil {
			return failedEmbed(spec.Width, spec.Height)
		}
		return embed
	}

	if r.unfurler == nil {
		logger.Warn("embed.resolver.fetch_failed", "error", ErrNoUnfurler)
		r.metrics.IncrementFetchFailure(key, "no_client")
		return failedEmbed(spec.Width, spec.Height)
	}

	if r.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.fetchTimeout)
		defer cancel()
	}

	started := time.Now()
	resp, err := r.unfurler.Unfurl(ctx, strings.TrimSpace(sourceURL))
	r.metrics.ObserveFetchDuration(key, time.Since(started))
	if err == nil && strings.TrimSpace(resp.HTML) == "" {
		err = unfurl.ErrEmptyHTML
	}
	if err != nil {
		reason := unfurl.Reason(err)
		logger.Warn("embed.resolver.fetch_failed", "error", err, "reason", reason)
		r.metrics.IncrementFetchFailure(key, reason)
		return failedEmbed(spec.Width, spec.Height)
	}

	embedURL := unfurl.PlayerURL(resp)
	if embedURL == "" || r.urls.Check(embedURL) != nil {
		embedURL = strings.TrimSpace(sourceURL)
	}
	logger.Debug("embed.resolver.fetched", "embed_url", embedURL)

	return Embed{
		EmbedURL: embedURL,
		HTML:     resp.HTML,
		Width:    spec.Width,
		Height:   spec.Height,
	}
}

func failedEmbed(width, height int) Embed {
	return Embed{
		HTML:   ErrorPlaceholderHTML,
		Width:  width,
		Height: height,
		Failed: true,
	}
}

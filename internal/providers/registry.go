package providers

import (
	"regexp"
	"strings"

	"github.com/goliatone/go-embed/internal/logging"
	"github.com/goliatone/go-embed/pkg/interfaces"
)

// Registry is the ordered, read-only provider set built by Prepare. It is
// safe for concurrent reads.
type Registry struct {
	order  []string
	byKey  map[string]Provider
	apiKey string
}

// Option customises Prepare.
type Option func(*prepareOptions)

type prepareOptions struct {
	logger   interfaces.Logger
	defaults []Spec
}

// WithLogger attaches the logger used to report dropped custom specs.
func WithLogger(logger interfaces.Logger) Option {
	return func(o *prepareOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithDefaults replaces the built-in catalogue.
func WithDefaults(specs []Spec) Option {
	return func(o *prepareOptions) {
		o.defaults = specs
	}
}

// Prepare builds the active provider set: the enabled defaults in catalogue
// order, then the valid custom specs. A custom spec replaces a same-keyed
// entry in place; invalid custom specs are logged and skipped.
func Prepare(cfg Config, opts ...Option) *Registry {
	options := prepareOptions{
		logger:   logging.NoOp(),
		defaults: DefaultSpecs(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	r := &Registry{
		byKey:  make(map[string]Provider),
		apiKey: strings.TrimSpace(cfg.APIKey),
	}

	enabled := enabledSet(cfg.Enabled)
	for _, spec := range options.defaults {
		if enabled != nil {
			if _, ok := enabled[spec.Key]; !ok {
				continue
			}
		}
		r.put(compile(normalizeSpec(spec)))
	}

	for idx, spec := range cfg.Custom {
		if err := ValidateSpec(spec); err != nil {
			logging.WithFields(options.logger, map[string]any{
				"provider": spec.Key,
				"index":    idx,
				"error":    err,
			}).Warn("embed.providers.custom_dropped")
			continue
		}
		r.put(compile(normalizeSpec(spec)))
	}

	logging.WithFields(options.logger, map[string]any{
		"providers": len(r.order),
	}).Debug("embed.providers.prepared")
	return r
}

func (r *Registry) put(p Provider) {
	if _, exists := r.byKey[p.Key()]; !exists {
		r.order = append(r.order, p.Key())
	}
	r.byKey[p.Key()] = p
}

// compile panics on an invalid pattern. Custom specs are validated before
// reaching it, so a panic here means a broken built-in.
func compile(spec Spec) Provider {
	return Provider{spec: spec, re: regexp.MustCompile(anchor(spec.Pattern))}
}

func enabledSet(keys []string) map[string]struct{} {
	if keys == nil {
		return nil
	}
	set := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if trimmed := strings.TrimSpace(key); trimmed != "" {
			set[trimmed] = struct{}{}
		}
	}
	return set
}

// Get returns the provider registered under key.
func (r *Registry) Get(key string) (Provider, bool) {
	if r == nil {
		return Provider{}, false
	}
	p, ok := r.byKey[key]
	return p, ok
}

// Keys returns provider keys in match order.
func (r *Registry) Keys() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.order...)
}

// Len reports the number of active providers.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}

// Patterns returns the anchored pattern of every provider keyed by provider
// key, for registration with the host paste subsystem.
func (r *Registry) Patterns() map[string]string {
	if r == nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(r.order))
	for _, key := range r.order {
		out[key] = r.byKey[key].re.String()
	}
	return out
}

// APIKey returns the unfurling service credential.
func (r *Registry) APIKey() string {
	if r == nil {
		return ""
	}
	return r.apiKey
}

package embed

import (
	"github.com/goliatone/go-embed/internal/block"
	"github.com/goliatone/go-embed/internal/di"
	"github.com/goliatone/go-embed/internal/providers"
	"github.com/goliatone/go-embed/internal/resolver"
	"github.com/goliatone/go-embed/pkg/interfaces"
)

// Block exports the embed block controller.
type Block = block.Block

// BlockParams exports the block construction input.
type BlockParams = block.Params

// BlockOption exports block construction options.
type BlockOption = block.Option

// BlockData exports the in-memory block model.
type BlockData = block.Data

// BlockState exports the block lifecycle stage.
type BlockState = block.State

// Saved exports the persisted block shape.
type Saved = block.Saved

// PasteEvent exports the host paste notification.
type PasteEvent = block.PasteEvent

// ProviderSpec exports the provider definition.
type ProviderSpec = providers.Spec

// Registry exports the active provider set.
type Registry = providers.Registry

// MatchResult exports the outcome of a URL match.
type MatchResult = providers.MatchResult

// Resolver exports the embed resolver.
type Resolver = resolver.Resolver

// Mount exports the host element contract.
type Mount = interfaces.Mount

// Unfurler exports the unfurling service contract.
type Unfurler = interfaces.Unfurler

// Option exports container options.
type Option = di.Option

const (
	StateUninitialized = block.StateUninitialized
	StateLoading       = block.StateLoading
	StateRendered      = block.StateRendered
	StateError         = block.StateError
)

// ErrorPlaceholderHTML is the markup committed when a remote fetch fails.
const ErrorPlaceholderHTML = resolver.ErrorPlaceholderHTML

// ReadOnlySupported reports that blocks render in read-only mode.
const ReadOnlySupported = true

var (
	WithLoggerProvider       = di.WithLoggerProvider
	WithMetrics              = di.WithMetrics
	WithPrometheusRegisterer = di.WithPrometheusRegisterer
	WithHTTPClient           = di.WithHTTPClient
	WithUnfurler             = di.WithUnfurler
	WithProviders            = di.WithProviders

	WithMount   = block.WithMount
	WithBlockID = block.WithID
)

// IsReadOnlySupported reports whether blocks support read-only rendering.
func IsReadOnlySupported() bool {
	return ReadOnlySupported
}

// PasteConfig is handed to the host paste subsystem: every provider pattern
// keyed by provider key.
type PasteConfig struct {
	Patterns map[string]string
}

// Module represents the top level embed runtime façade.
type Module struct {
	container *di.Container
}

// New constructs an embed module using the provided configuration and optional DI overrides.
func New(cfg Config, opts ...Option) (*Module, error) {
	container, err := di.NewContainer(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Module{container: container}, nil
}

// Container exposes the underlying DI container for advanced integrations.
func (m *Module) Container() *di.Container {
	return m.container
}

// Registry returns the active provider set.
func (m *Module) Registry() *Registry {
	return m.container.Registry()
}

// Resolver returns the embed resolver.
func (m *Module) Resolver() *Resolver {
	return m.container.Resolver()
}

// PasteConfig returns the patterns the host should watch for.
func (m *Module) PasteConfig() PasteConfig {
	return PasteConfig{Patterns: m.container.Registry().Patterns()}
}

// Match finds the provider for a pasted URL.
func (m *Module) Match(url string) (MatchResult, bool) {
	return m.container.Registry().Match(url)
}

// NewBlock constructs a block bound to the module registry and resolver.
func (m *Module) NewBlock(params BlockParams, opts ...BlockOption) (*Block, error) {
	return m.container.NewBlock(params, opts...)
}

// Validate reports whether saved block data is usable.
func (m *Module) Validate(data Saved) bool {
	return block.Validate(m.container.Registry(), data)
}

// ValidateJSON reports whether a raw persisted payload is usable.
func (m *Module) ValidateJSON(raw []byte) bool {
	return block.ValidateJSON(m.container.Registry(), raw)
}

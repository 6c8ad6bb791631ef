package block

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-embed/internal/logging"
	"github.com/goliatone/go-embed/internal/metrics"
	"github.com/goliatone/go-embed/internal/providers"
	"github.com/goliatone/go-embed/internal/resolver"
	"github.com/goliatone/go-embed/pkg/interfaces"
	"github.com/google/uuid"
	"golang.org/x/net/html"
)

// Params is the host-supplied construction input.
type Params struct {
	Data     *Saved
	ReadOnly bool
}

// PasteEvent is delivered by the host when a pasted URL matched a provider.
type PasteEvent struct {
	ProviderKey string
	URL         string
}

// Block owns one embed block: its data, its rendered tree and at most one
// in-flight remote fetch. Methods are safe for concurrent use. The Mount is
// invoked while the block lock is held and must not call back into the block.
type Block struct {
	id       string
	registry *providers.Registry
	resolver *resolver.Resolver
	mount    interfaces.Mount
	logger   interfaces.Logger
	metrics  interfaces.EmbedMetrics
	readOnly bool

	mu         sync.Mutex
	data       Data
	root       *html.Node
	generation uint64
	inflight   sync.WaitGroup
}

// Option configures a Block.
type Option func(*Block)

// WithMount sets the host element that receives every re-render.
func WithMount(m interfaces.Mount) Option {
	return func(b *Block) {
		b.mount = m
	}
}

// WithLogger overrides the block logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(b *Block) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMetrics overrides the metrics recorder.
func WithMetrics(m interfaces.EmbedMetrics) Option {
	return func(b *Block) {
		if m != nil {
			b.metrics = m
		}
	}
}

// WithID overrides the generated block id.
func WithID(id string) Option {
	return func(b *Block) {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			b.id = trimmed
		}
	}
}

// New constructs a block. When registry is nil the resolver's registry is
// used. Saved data in params is restored as is, except that a local provider
// entry without an embed URL has it derived again from the source.
func New(registry *providers.Registry, res *resolver.Resolver, params Params, opts ...Option) (*Block, error) {
	if res == nil {
		return nil, ErrMissingResolver
	}
	if registry == nil {
		registry = res.Registry()
	}

	b := &Block{
		id:       uuid.NewString(),
		registry: registry,
		resolver: res,
		logger:   logging.NoOp(),
		metrics:  metrics.NoOp(),
		readOnly: params.ReadOnly,
	}
	for _, opt := range opts {
		opt(b)
	}
	if params.Data != nil {
		b.data = b.restore(FromSaved(*params.Data))
	}
	return b, nil
}

// restore fills the embed URL of local provider data saved with only a
// source. Data that does not resolve is kept unchanged.
func (b *Block) restore(data Data) Data {
	if data.EmbedURL != "" || data.SourceURL == "" || data.Failed() {
		return data
	}
	provider, ok := b.registry.Get(data.ProviderKey)
	if !ok || provider.Strategy() != providers.StrategyLocalTemplate {
		return data
	}
	result, err := b.resolver.Resolve(data.ProviderKey, data.SourceURL)
	if err != nil || result.Embed.Failed {
		logging.WithBlockContext(b.logger, b.id, data.ProviderKey, data.SourceURL).
			Debug("embed.block.restore_skipped", "error", err)
		return data
	}
	data.EmbedURL = result.Embed.EmbedURL
	if data.Width == 0 {
		data.Width = result.Embed.Width
	}
	if data.Height == 0 {
		data.Height = result.Embed.Height
	}
	return data
}

// ID returns the block instance id.
func (b *Block) ID() string { return b.id }

// ReadOnly reports whether the block was built in read-only mode.
func (b *Block) ReadOnly() bool { return b.readOnly }

// Render builds a fresh tree from the current data, hands it to the mount and
// returns it.
func (b *Block) Render() *html.Node {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.renderLocked()
}

func (b *Block) renderLocked() *html.Node {
	next := Render(b.data, b.viewOptions())
	previous := b.root
	b.root = next
	if b.mount != nil {
		b.mount.Replace(previous, next)
	}
	return next
}

func (b *Block) viewOptions() ViewOptions {
	opts := ViewOptions{ReadOnly: b.readOnly}
	if provider, ok := b.registry.Get(b.data.ProviderKey); ok {
		opts.IframeTemplate = provider.Spec().HTML
	}
	return opts
}

// Root returns the most recently rendered tree, or nil before the first render.
func (b *Block) Root() *html.Node {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.root
}

// OnPaste resolves a matched URL into the block. It returns an error only when
// the URL cannot be embedded, in which case the host keeps the paste as text.
// Remote providers render a loading state and complete in the background;
// fetch failures end in the error state and are never returned.
func (b *Block) OnPaste(ctx context.Context, event PasteEvent) error {
	logger := logging.WithBlockContext(b.logger, b.id, event.ProviderKey, event.URL)

	result, err := b.resolver.Resolve(event.ProviderKey, event.URL)
	if err != nil {
		logger.Debug("embed.block.paste_rejected", "error", err)
		return fmt.Errorf("embed block: paste %q: %w", event.ProviderKey, err)
	}

	b.mu.Lock()
	b.generation++
	generation := b.generation
	b.data = fromResult(result, "")
	b.renderLocked()
	if result.Kind == resolver.KindPending {
		b.inflight.Add(1)
	}
	b.mu.Unlock()

	if result.Kind != resolver.KindPending {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logging.ContextWithFields(ctx, map[string]any{
		"block_id":   b.id,
		"generation": generation,
	})
	logger.Debug("embed.block.fetch_started", "generation", generation)
	go b.fetch(ctx, logger, generation, result.ProviderKey, result.SourceURL)
	return nil
}

func (b *Block) fetch(ctx context.Context, logger interfaces.Logger, generation uint64, key, sourceURL string) {
	defer b.inflight.Done()

	embed := b.resolver.Fetch(ctx, key, sourceURL)

	b.mu.Lock()
	defer b.mu.Unlock()
	if generation != b.generation {
		b.metrics.IncrementStaleResult(key)
		logger.Debug("embed.block.stale_result", "generation", generation, "current", b.generation)
		return
	}
	b.data = b.data.withEmbed(embed)
	b.renderLocked()
	if embed.Failed {
		logger.Info("embed.block.fetch_failed")
	}
}

// SetData replaces the block data and re-renders. Any in-flight fetch result
// is discarded when it arrives.
func (b *Block) SetData(data Data) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.generation++
	b.data = data
	b.renderLocked()
}

// Assign restores block data from a decoded JSON value: a map, a Saved, a
// json.RawMessage or raw bytes. Anything that is not an object is rejected
// immediately with a validation error.
func (b *Block) Assign(raw any) error {
	saved, err := decodeSaved(raw)
	if err != nil {
		return wrapAssignError(err)
	}
	b.SetData(b.restore(FromSaved(saved)))
	return nil
}

func decodeSaved(raw any) (Saved, error) {
	switch typed := raw.(type) {
	case Saved:
		return typed, nil
	case *Saved:
		if typed == nil {
			return Saved{}, ErrNotObject
		}
		return *typed, nil
	case map[string]any:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return Saved{}, err
		}
		return unmarshalSaved(encoded)
	case json.RawMessage:
		return unmarshalSaved(typed)
	case []byte:
		return unmarshalSaved(typed)
	default:
		return Saved{}, fmt.Errorf("%w: got %T", ErrNotObject, raw)
	}
}

func unmarshalSaved(raw []byte) (Saved, error) {
	var probe any
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Saved{}, err
	}
	if _, ok := probe.(map[string]any); !ok {
		return Saved{}, fmt.Errorf("%w: got %T", ErrNotObject, probe)
	}
	var saved Saved
	if err := json.Unmarshal(raw, &saved); err != nil {
		return Saved{}, err
	}
	return saved, nil
}

// Save reads the caption back from the rendered tree and returns the
// persisted shape.
func (b *Block) Save() Saved {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.root != nil && b.data.State() != StateLoading {
		b.data.Caption = strings.TrimSpace(CaptionText(b.root))
	}
	return b.data.Saved()
}

// Validate applies the persisted data rules against the block registry.
func (b *Block) Validate(s Saved) bool {
	return Validate(b.registry, s)
}

// EditCaption writes text into the rendered caption region, as a user edit
// would. It reports false for read-only blocks and when no caption is shown.
func (b *Block) EditCaption(text string) bool {
	if b.readOnly {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return SetCaptionText(b.root, text)
}

// State returns the current lifecycle stage.
func (b *Block) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data.State()
}

// Data returns a copy of the current data.
func (b *Block) Data() Data {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data
}

// Wait blocks until every fetch started by this block has finished.
func (b *Block) Wait() {
	b.inflight.Wait()
}

package block

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-embed/internal/logging"
	"github.com/goliatone/go-embed/internal/providers"
	"github.com/goliatone/go-embed/internal/resolver"
	"github.com/goliatone/go-embed/internal/unfurl"
	"github.com/goliatone/go-embed/pkg/interfaces"
	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/net/html"
)

type recordingMount struct {
	mu       sync.Mutex
	replaced int
	previous []*html.Node
	current  *html.Node
}

func (m *recordingMount) Replace(previous, next *html.Node) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaced++
	m.previous = append(m.previous, previous)
	m.current = next
}

type stubUnfurler struct {
	resp interfaces.UnfurlResponse
	err  error
}

func (s stubUnfurler) Unfurl(context.Context, string) (interfaces.UnfurlResponse, error) {
	return s.resp, s.err
}

// contextUnfurler records the log fields carried by each request context.
type contextUnfurler struct {
	mu     sync.Mutex
	fields []map[string]any
}

func (c *contextUnfurler) Unfurl(ctx context.Context, _ string) (interfaces.UnfurlResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fields = append(c.fields, logging.ContextFields(ctx))
	return interfaces.UnfurlResponse{HTML: "<p>ok</p>"}, nil
}

// gatedUnfurler blocks each call until the test releases the URL.
type gatedUnfurler struct {
	mu    sync.Mutex
	gates map[string]chan interfaces.UnfurlResponse
}

func newGatedUnfurler(urls ...string) *gatedUnfurler {
	g := &gatedUnfurler{gates: map[string]chan interfaces.UnfurlResponse{}}
	for _, u := range urls {
		g.gates[u] = make(chan interfaces.UnfurlResponse, 1)
	}
	return g
}

func (g *gatedUnfurler) release(sourceURL, markup string) {
	g.mu.Lock()
	gate := g.gates[sourceURL]
	g.mu.Unlock()
	gate <- interfaces.UnfurlResponse{HTML: markup}
}

func (g *gatedUnfurler) Unfurl(ctx context.Context, sourceURL string) (interfaces.UnfurlResponse, error) {
	g.mu.Lock()
	gate := g.gates[sourceURL]
	g.mu.Unlock()
	select {
	case resp := <-gate:
		return resp, nil
	case <-ctx.Done():
		return interfaces.UnfurlResponse{}, ctx.Err()
	}
}

type staleCounter struct {
	mu    sync.Mutex
	stale int
}

func (s *staleCounter) IncrementResolution(string, string)         {}
func (s *staleCounter) ObserveFetchDuration(string, time.Duration) {}
func (s *staleCounter) IncrementFetchFailure(string, string)       {}

func (s *staleCounter) IncrementStaleResult(string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stale++
}

func (s *staleCounter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stale
}

func newTestBlock(t *testing.T, u interfaces.Unfurler, params Params, opts ...Option) *Block {
	t.Helper()
	registry := providers.Prepare(providers.Config{})
	res := resolver.New(registry, resolver.WithUnfurler(u))
	b, err := New(registry, res, params, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestNewRequiresResolver(t *testing.T) {
	if _, err := New(nil, nil, Params{}); !errors.Is(err, ErrMissingResolver) {
		t.Fatalf("expected ErrMissingResolver, got %v", err)
	}
}

func TestRenderIsIdempotentAndReplacesMount(t *testing.T) {
	mount := &recordingMount{}
	b := newTestBlock(t, nil, Params{Data: &Saved{
		Service: "youtube",
		Source:  "https://youtu.be/abc",
		Embed:   "https://www.youtube.com/embed/abc",
		Width:   580,
		Height:  320,
		Caption: "hello",
	}}, WithMount(mount))

	first := b.Render()
	second := b.Render()
	if first == second {
		t.Fatal("expected a fresh tree per render")
	}
	if RenderString(first) != RenderString(second) {
		t.Fatalf("render not idempotent:\n%s\n%s", RenderString(first), RenderString(second))
	}
	if mount.replaced != 2 || mount.previous[0] != nil || mount.previous[1] != first || mount.current != second {
		t.Fatalf("unexpected mount history: %+v", mount)
	}
}

func TestOnPasteLocalRendersImmediately(t *testing.T) {
	mount := &recordingMount{}
	b := newTestBlock(t, nil, Params{}, WithMount(mount))

	if err := b.OnPaste(context.Background(), PasteEvent{ProviderKey: "youtube", URL: "https://www.youtube.com/watch?v=abc"}); err != nil {
		t.Fatalf("OnPaste: %v", err)
	}
	if b.State() != StateRendered {
		t.Fatalf("expected rendered state, got %v", b.State())
	}
	out := RenderString(mount.current)
	for _, want := range []string{`src="https://www.youtube.com/embed/abc"`, "embed-block--youtube", `contenteditable="true"`, `width="580"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %s", want, out)
		}
	}
}

func TestOnPasteUnknownProviderLeavesBlockUntouched(t *testing.T) {
	b := newTestBlock(t, nil, Params{})
	if err := b.OnPaste(context.Background(), PasteEvent{ProviderKey: "nope", URL: "https://x.test"}); !errors.Is(err, resolver.ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
	if b.State() != StateUninitialized {
		t.Fatalf("expected uninitialized state, got %v", b.State())
	}
}

func TestOnPasteRemoteSuccess(t *testing.T) {
	mount := &recordingMount{}
	client := stubUnfurler{resp: interfaces.UnfurlResponse{HTML: `<blockquote class="twitter-tweet">hi</blockquote>`}}
	b := newTestBlock(t, client, Params{}, WithMount(mount))

	if err := b.OnPaste(context.Background(), PasteEvent{ProviderKey: "twitter", URL: "https://twitter.com/a/status/1"}); err != nil {
		t.Fatalf("OnPaste: %v", err)
	}
	b.Wait()

	data := b.Data()
	if data.PendingFetch {
		t.Fatal("expected pending fetch to be cleared")
	}
	if data.HTML != `<blockquote class="twitter-tweet">hi</blockquote>` {
		t.Fatalf("unexpected html %q", data.HTML)
	}
	if data.EmbedURL != "https://twitter.com/a/status/1" {
		t.Fatalf("expected source URL as embed fallback, got %q", data.EmbedURL)
	}
	if b.State() != StateRendered {
		t.Fatalf("expected rendered, got %v", b.State())
	}
	if !strings.Contains(RenderString(mount.current), "twitter-tweet") {
		t.Fatalf("expected remote markup in view, got %s", RenderString(mount.current))
	}
}

func TestOnPasteRemoteCarriesBlockFieldsOnContext(t *testing.T) {
	client := &contextUnfurler{}
	b := newTestBlock(t, client, Params{}, WithID("block-7"))

	if err := b.OnPaste(context.Background(), PasteEvent{ProviderKey: "twitter", URL: "https://twitter.com/a/status/1"}); err != nil {
		t.Fatalf("OnPaste: %v", err)
	}
	b.Wait()

	if len(client.fields) != 1 {
		t.Fatalf("expected one unfurl call, got %d", len(client.fields))
	}
	fields := client.fields[0]
	if fields["block_id"] != "block-7" {
		t.Fatalf("expected block id on context, got %#v", fields)
	}
	if fields["generation"] != uint64(1) {
		t.Fatalf("expected generation 1 on context, got %#v", fields)
	}
}

func TestNewDerivesEmbedURLForSourceOnlyLocalData(t *testing.T) {
	mount := &recordingMount{}
	b := newTestBlock(t, nil, Params{Data: &Saved{
		Service: "youtube",
		Source:  "https://youtu.be/abc123",
	}}, WithMount(mount))

	if !b.Validate(Saved{Service: "youtube", Source: "https://youtu.be/abc123"}) {
		t.Fatal("expected source-only local data to validate")
	}
	data := b.Data()
	if data.EmbedURL != "https://www.youtube.com/embed/abc123" {
		t.Fatalf("expected derived embed url, got %q", data.EmbedURL)
	}
	if data.Width != 580 || data.Height != 320 {
		t.Fatalf("expected provider dimensions, got %dx%d", data.Width, data.Height)
	}

	b.Render()
	out := RenderString(mount.current)
	if strings.Contains(out, `src=""`) || !strings.Contains(out, `src="https://www.youtube.com/embed/abc123"`) {
		t.Fatalf("expected populated iframe src, got %s", out)
	}
}

func TestAssignDerivesEmbedURLAndKeepsSavedDimensions(t *testing.T) {
	b := newTestBlock(t, nil, Params{})

	err := b.Assign(map[string]any{
		"service": "vimeo",
		"source":  "https://vimeo.com/42",
		"width":   640,
	})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	data := b.Data()
	if data.EmbedURL != "https://player.vimeo.com/video/42?title=0&byline=0" {
		t.Fatalf("expected derived embed url, got %q", data.EmbedURL)
	}
	if data.Width != 640 || data.Height != 320 {
		t.Fatalf("expected saved width and provider height, got %dx%d", data.Width, data.Height)
	}
}

func TestNewKeepsUnresolvableSourceOnlyData(t *testing.T) {
	b := newTestBlock(t, nil, Params{Data: &Saved{
		Service: "youtube",
		Source:  "https://example.com/not-a-video",
	}})
	if got := b.Data().EmbedURL; got != "" {
		t.Fatalf("expected embed url to stay empty, got %q", got)
	}
}

func TestOnPasteRemoteNon2xxEndsInErrorState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := unfurl.DefaultConfig()
	cfg.Endpoint = server.URL
	cfg.Breaker.Enabled = false
	client, err := unfurl.New(cfg)
	if err != nil {
		t.Fatalf("unfurl.New: %v", err)
	}

	b := newTestBlock(t, client, Params{})
	if err := b.OnPaste(context.Background(), PasteEvent{ProviderKey: "twitter", URL: "https://twitter.com/a/status/1"}); err != nil {
		t.Fatalf("OnPaste must not surface fetch failures: %v", err)
	}
	b.Wait()

	data := b.Data()
	if data.HTML != resolver.ErrorPlaceholderHTML || data.PendingFetch {
		t.Fatalf("expected error placeholder without pending flag, got %+v", data)
	}
	if b.State() != StateError {
		t.Fatalf("expected error state, got %v", b.State())
	}
}

func TestStaleFetchIsDiscardedWhenNewerArrivesFirst(t *testing.T) {
	urlA := "https://twitter.com/a/status/1"
	urlB := "https://twitter.com/b/status/2"
	client := newGatedUnfurler(urlA, urlB)
	counter := &staleCounter{}
	b := newTestBlock(t, client, Params{}, WithMetrics(counter))

	ctx := context.Background()
	if err := b.OnPaste(ctx, PasteEvent{ProviderKey: "twitter", URL: urlA}); err != nil {
		t.Fatalf("paste A: %v", err)
	}
	if err := b.OnPaste(ctx, PasteEvent{ProviderKey: "twitter", URL: urlB}); err != nil {
		t.Fatalf("paste B: %v", err)
	}

	client.release(urlB, "<p>B</p>")
	waitFor(t, func() bool { return !b.Data().PendingFetch })
	client.release(urlA, "<p>A</p>")
	b.Wait()

	data := b.Data()
	if data.HTML != "<p>B</p>" || data.SourceURL != urlB {
		t.Fatalf("expected B to win, got %+v", data)
	}
	if counter.count() != 1 {
		t.Fatalf("expected one stale result, got %d", counter.count())
	}
}

func TestStaleFetchIsDiscardedWhenOlderArrivesFirst(t *testing.T) {
	urlA := "https://twitter.com/a/status/1"
	urlB := "https://twitter.com/b/status/2"
	client := newGatedUnfurler(urlA, urlB)
	counter := &staleCounter{}
	b := newTestBlock(t, client, Params{}, WithMetrics(counter))

	ctx := context.Background()
	_ = b.OnPaste(ctx, PasteEvent{ProviderKey: "twitter", URL: urlA})
	_ = b.OnPaste(ctx, PasteEvent{ProviderKey: "twitter", URL: urlB})

	client.release(urlA, "<p>A</p>")
	waitFor(t, func() bool { return counter.count() == 1 })
	if data := b.Data(); !data.PendingFetch || data.SourceURL != urlB {
		t.Fatalf("expected B still loading, got %+v", data)
	}

	client.release(urlB, "<p>B</p>")
	b.Wait()
	if data := b.Data(); data.HTML != "<p>B</p>" || data.PendingFetch {
		t.Fatalf("expected B committed, got %+v", data)
	}
}

func TestSetDataSupersedesInflightFetch(t *testing.T) {
	urlA := "https://twitter.com/a/status/1"
	client := newGatedUnfurler(urlA)
	b := newTestBlock(t, client, Params{})

	_ = b.OnPaste(context.Background(), PasteEvent{ProviderKey: "twitter", URL: urlA})
	b.SetData(Data{ProviderKey: "vimeo", SourceURL: "https://vimeo.com/1", EmbedURL: "https://player.vimeo.com/video/1"})
	client.release(urlA, "<p>A</p>")
	b.Wait()

	if data := b.Data(); data.ProviderKey != "vimeo" || data.HTML != "" {
		t.Fatalf("expected assigned data to survive late fetch, got %+v", data)
	}
}

func TestLoadingViewShowsSourceWithoutCaption(t *testing.T) {
	urlA := "https://twitter.com/a/status/1"
	client := newGatedUnfurler(urlA)
	mount := &recordingMount{}
	b := newTestBlock(t, client, Params{}, WithMount(mount))

	_ = b.OnPaste(context.Background(), PasteEvent{ProviderKey: "twitter", URL: urlA})
	mount.mu.Lock()
	out := RenderString(mount.current)
	mount.mu.Unlock()

	if b.State() != StateLoading {
		t.Fatalf("expected loading state, got %v", b.State())
	}
	if !strings.Contains(out, classPreloader) || !strings.Contains(out, urlA) {
		t.Fatalf("expected preloader with source URL, got %s", out)
	}
	if strings.Contains(out, classCaption) {
		t.Fatalf("loading view must not render a caption: %s", out)
	}

	client.release(urlA, "<p>A</p>")
	b.Wait()
}

func TestSaveReadsCaptionAndOmitsPendingFlag(t *testing.T) {
	b := newTestBlock(t, nil, Params{})
	_ = b.OnPaste(context.Background(), PasteEvent{ProviderKey: "vimeo", URL: "https://vimeo.com/42"})

	if !b.EditCaption("  My caption ") {
		t.Fatal("expected caption edit to apply")
	}
	saved := b.Save()
	if saved.Caption != "My caption" {
		t.Fatalf("expected caption from view, got %q", saved.Caption)
	}
	if saved.Service != "vimeo" || saved.Embed != "https://player.vimeo.com/video/42?title=0&byline=0" {
		t.Fatalf("unexpected saved data %+v", saved)
	}

	encoded, err := json.Marshal(saved)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(strings.ToLower(string(encoded)), "pending") {
		t.Fatalf("pending flag leaked into persisted shape: %s", encoded)
	}
}

func TestReadOnlyBlock(t *testing.T) {
	b := newTestBlock(t, nil, Params{
		ReadOnly: true,
		Data:     &Saved{Service: "vimeo", Source: "https://vimeo.com/1", Embed: "https://player.vimeo.com/video/1", Caption: "fixed"},
	})
	out := RenderString(b.Render())
	if strings.Contains(out, "contenteditable") {
		t.Fatalf("read-only caption must not be editable: %s", out)
	}
	if b.EditCaption("changed") {
		t.Fatal("expected read-only block to ignore caption edits")
	}
	if b.Save().Caption != "fixed" {
		t.Fatalf("unexpected caption %q", b.Save().Caption)
	}
}

func TestAssignRejectsNonObjects(t *testing.T) {
	b := newTestBlock(t, nil, Params{})
	for _, raw := range []any{"text", 12, nil, []any{"a"}, json.RawMessage(`"x"`), (*Saved)(nil)} {
		err := b.Assign(raw)
		if err == nil {
			t.Fatalf("Assign(%#v) expected error", raw)
		}
		if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
			t.Fatalf("Assign(%#v) expected validation category, got %v", raw, err)
		}
		if !errors.Is(err, ErrNotObject) {
			t.Fatalf("Assign(%#v) expected ErrNotObject, got %v", raw, err)
		}
	}
}

func TestAssignRestoresObject(t *testing.T) {
	mount := &recordingMount{}
	b := newTestBlock(t, nil, Params{}, WithMount(mount))

	err := b.Assign(map[string]any{
		"service": "twitter",
		"source":  "https://twitter.com/a/status/1",
		"html":    resolver.ErrorPlaceholderHTML,
	})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if b.State() != StateError {
		t.Fatalf("expected restored error state, got %v", b.State())
	}
	if mount.replaced != 1 {
		t.Fatalf("expected assignment to re-render once, got %d", mount.replaced)
	}
}

func TestAssignRejectsMistypedFields(t *testing.T) {
	b := newTestBlock(t, nil, Params{})
	err := b.Assign(map[string]any{"service": "vimeo", "width": "wide"})
	if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

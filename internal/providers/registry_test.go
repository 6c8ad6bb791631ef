package providers

import (
	"context"
	"reflect"
	"testing"

	"github.com/goliatone/go-embed/pkg/interfaces"
)

func TestPrepareKeepsAllDefaultsWhenEnabledIsNil(t *testing.T) {
	registry := Prepare(Config{})

	want := make([]string, 0)
	for _, spec := range DefaultSpecs() {
		want = append(want, spec.Key)
	}
	if got := registry.Keys(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
}

func TestPrepareFiltersDefaultsByEnabledKeys(t *testing.T) {
	registry := Prepare(Config{Enabled: []string{"youtube", "vimeo", "unknown"}})

	if got := registry.Keys(); !reflect.DeepEqual(got, []string{"vimeo", "youtube"}) {
		t.Fatalf("Keys() = %v, want catalogue order [vimeo youtube]", got)
	}
	if _, ok := registry.Get("coub"); ok {
		t.Fatal("expected coub to be disabled")
	}
}

func TestPrepareEmptyEnabledDisablesDefaults(t *testing.T) {
	registry := Prepare(Config{Enabled: []string{}})
	if registry.Len() != 0 {
		t.Fatalf("expected no providers, got %v", registry.Keys())
	}
}

func TestPrepareCustomOverridesInPlaceAndAppends(t *testing.T) {
	registry := Prepare(Config{
		Enabled: []string{"vimeo", "youtube"},
		Custom: []Spec{
			{Key: "acme", Pattern: `https://acme\.test/v/(\w+)`, EmbedURL: "https://acme.test/embed/" + RemoteIDPlaceholder},
			{Key: "vimeo", Pattern: `https://vimeo\.test/(\d+)`, EmbedURL: "https://vimeo.test/e/" + RemoteIDPlaceholder},
		},
	})

	if got := registry.Keys(); !reflect.DeepEqual(got, []string{"vimeo", "youtube", "acme"}) {
		t.Fatalf("Keys() = %v", got)
	}
	vimeo, _ := registry.Get("vimeo")
	if vimeo.Spec().EmbedURL != "https://vimeo.test/e/"+RemoteIDPlaceholder {
		t.Fatalf("expected custom vimeo to override default, got %q", vimeo.Spec().EmbedURL)
	}
	acme, _ := registry.Get("acme")
	if acme.Strategy() != StrategyLocalTemplate {
		t.Fatalf("expected empty strategy to default to local, got %q", acme.Strategy())
	}
}

func TestPrepareDropsInvalidCustomSpecsSilently(t *testing.T) {
	logger := &warnRecorder{}
	registry := Prepare(Config{
		Enabled: []string{},
		Custom: []Spec{
			{Key: "no-pattern", EmbedURL: "https://x.test/" + RemoteIDPlaceholder},
			{Key: "bad-regex", Pattern: `https://x\.test/(`, EmbedURL: "https://x.test/"},
			{Key: "no-template", Pattern: `https://x\.test/(\d+)`},
			{Key: "negative", Pattern: `https://x\.test/(\d+)`, EmbedURL: "https://x.test/", Width: -1},
			{Key: "odd-strategy", Pattern: `https://x\.test/(\d+)`, Strategy: "carrier-pigeon"},
			{Key: "remote-ok", Pattern: `https://x\.test/r/(\d+)`, Strategy: StrategyRemoteFetch},
		},
	}, WithLogger(logger))

	if got := registry.Keys(); !reflect.DeepEqual(got, []string{"remote-ok"}) {
		t.Fatalf("Keys() = %v, want [remote-ok]", got)
	}
	if logger.warnings != 5 {
		t.Fatalf("expected 5 dropped warnings, got %d", logger.warnings)
	}
}

func TestPreparePatternsAreAnchored(t *testing.T) {
	registry := Prepare(Config{Enabled: []string{"coub"}})
	patterns := registry.Patterns()
	if len(patterns) != 1 {
		t.Fatalf("expected one pattern, got %v", patterns)
	}
	got := patterns["coub"]
	if got[:4] != "^(?:" || got[len(got)-2:] != ")$" {
		t.Fatalf("expected anchored pattern, got %q", got)
	}
}

func TestPrepareKeepsAPIKey(t *testing.T) {
	registry := Prepare(Config{APIKey: " secret "})
	if registry.APIKey() != "secret" {
		t.Fatalf("APIKey() = %q", registry.APIKey())
	}
}

func TestNilRegistryIsEmpty(t *testing.T) {
	var registry *Registry
	if _, ok := registry.Get("youtube"); ok {
		t.Fatal("expected nil registry to have no providers")
	}
	if _, ok := registry.Match("https://vimeo.com/1"); ok {
		t.Fatal("expected nil registry to match nothing")
	}
	if len(registry.Patterns()) != 0 {
		t.Fatal("expected no patterns")
	}
}

type warnRecorder struct {
	warnings int
}

func (w *warnRecorder) Trace(string, ...any) {}
func (w *warnRecorder) Debug(string, ...any) {}
func (w *warnRecorder) Info(string, ...any)  {}
func (w *warnRecorder) Warn(string, ...any)  { w.warnings++ }
func (w *warnRecorder) Error(string, ...any) {}
func (w *warnRecorder) Fatal(string, ...any) {}

func (w *warnRecorder) WithContext(context.Context) interfaces.Logger { return w }

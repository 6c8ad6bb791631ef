package block

import (
	"testing"

	"github.com/goliatone/go-embed/internal/providers"
)

func TestValidate(t *testing.T) {
	registry := providers.Prepare(providers.Config{})

	cases := []struct {
		name string
		data Saved
		want bool
	}{
		{"service only", Saved{Service: "x"}, false},
		{"service and source", Saved{Service: "x", Source: "http://a"}, true},
		{"service and embed", Saved{Service: "vimeo", Embed: "https://player.vimeo.com/video/1"}, true},
		{"missing service", Saved{Source: "http://a"}, false},
		{"remote without html", Saved{Service: "twitter", Source: "https://twitter.com/a/status/1"}, false},
		{"remote with html", Saved{Service: "twitter", Source: "https://twitter.com/a/status/1", HTML: "<p>t</p>"}, true},
		{"remote without source", Saved{Service: "twitter", HTML: "<p>t</p>"}, false},
		{"blank values", Saved{Service: "x", Source: "   "}, false},
		{"negative width", Saved{Service: "x", Source: "http://a", Width: -5}, false},
		{"empty", Saved{}, false},
	}

	for _, tc := range cases {
		if got := Validate(registry, tc.data); got != tc.want {
			t.Fatalf("%s: Validate() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestValidateNilRegistry(t *testing.T) {
	if !Validate(nil, Saved{Service: "x", Source: "http://a"}) {
		t.Fatal("expected field rules to apply without a registry")
	}
}

func TestValidateJSON(t *testing.T) {
	registry := providers.Prepare(providers.Config{})
	if !ValidateJSON(registry, []byte(`{"service":"vimeo","source":"https://vimeo.com/1"}`)) {
		t.Fatal("expected valid payload")
	}
	for _, raw := range []string{`{"service":1}`, `"vimeo"`, `{`, `{"service":"vimeo"}`} {
		if ValidateJSON(registry, []byte(raw)) {
			t.Fatalf("expected %s to be invalid", raw)
		}
	}
}

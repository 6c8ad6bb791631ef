package providers

import "regexp"

// Strategy selects how a provider's embed is produced.
type Strategy string

const (
	// StrategyLocalTemplate builds an iframe URL from a template; no network call.
	StrategyLocalTemplate Strategy = "local"
	// StrategyRemoteFetch asks the unfurling service for ready-made markup.
	StrategyRemoteFetch Strategy = "remote"
)

// IDExtractor turns the capture groups of a match into the remote id.
// A nil extractor means the first capture group is used.
type IDExtractor func(captures []string) string

// Spec describes one provider. Pattern is an RE2 expression matched against
// the whole URL; capture group 1, when present, is the remote id.
type Spec struct {
	Key       string
	Pattern   string
	Strategy  Strategy
	EmbedURL  string
	HTML      string
	Width     int
	Height    int
	ExtractID IDExtractor
}

// Provider is a compiled, read-only Spec.
type Provider struct {
	spec Spec
	re   *regexp.Regexp
}

// Key returns the provider key.
func (p Provider) Key() string { return p.spec.Key }

// Strategy returns the embed strategy.
func (p Provider) Strategy() Strategy { return p.spec.Strategy }

// Spec returns a copy of the provider definition.
func (p Provider) Spec() Spec { return p.spec }

// Regexp returns the anchored pattern.
func (p Provider) Regexp() *regexp.Regexp { return p.re }

// RemoteID extracts the remote id from captures, using the custom extractor
// when one is set. Without captures the default yields "".
func (p Provider) RemoteID(captures []string) string {
	if p.spec.ExtractID != nil {
		return p.spec.ExtractID(captures)
	}
	if len(captures) == 0 {
		return ""
	}
	return captures[0]
}

// MatchResult is the outcome of a successful Match.
type MatchResult struct {
	ProviderKey string
	URL         string
	Captures    []string
	Capture     string
}

// Config selects the active providers.
//
// Enabled == nil keeps every default provider; a non-nil slice keeps only the
// listed defaults. Custom specs override same-keyed entries in place and are
// otherwise appended in order.
type Config struct {
	Enabled []string
	Custom  []Spec
	APIKey  string
}

package resolver

import "github.com/goliatone/go-embed/internal/providers"

// RemoteIDPlaceholder is the token replaced by the remote id in embed URL
// templates.
const RemoteIDPlaceholder = providers.RemoteIDPlaceholder

// ErrorPlaceholderHTML is committed when a remote fetch fails.
const ErrorPlaceholderHTML = `<div class="embed-block__error">This embed could not be loaded.</div>`

// EmptyIDPolicy decides what happens when a local provider yields no id.
type EmptyIDPolicy string

const (
	// EmptyIDPassThrough substitutes the empty string.
	EmptyIDPassThrough EmptyIDPolicy = "pass-through"
	// EmptyIDReject refuses to resolve, which the block treats like a match failure.
	EmptyIDReject EmptyIDPolicy = "reject"
)

// Kind distinguishes results usable immediately from those awaiting a fetch.
type Kind int

const (
	KindImmediate Kind = iota
	KindPending
)

func (k Kind) String() string {
	if k == KindPending {
		return "pending"
	}
	return "immediate"
}

// Embed is the renderable outcome of a resolution.
type Embed struct {
	EmbedURL string
	HTML     string
	Width    int
	Height   int
	Failed   bool
}

// Result is returned by Resolve.
type Result struct {
	Kind        Kind
	ProviderKey string
	SourceURL   string
	Embed       Embed
}

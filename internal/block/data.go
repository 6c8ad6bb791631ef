package block

import (
	"strings"

	"github.com/goliatone/go-embed/internal/resolver"
)

// State is the lifecycle stage of a block, derived from its data.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateRendered
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateRendered:
		return "rendered"
	case StateError:
		return "error"
	default:
		return "uninitialized"
	}
}

// Data is the in-memory block model. PendingFetch is bookkeeping and is never
// persisted.
type Data struct {
	ProviderKey  string
	SourceURL    string
	EmbedURL     string
	HTML         string
	Width        int
	Height       int
	Caption      string
	PendingFetch bool

	failed bool
}

// Saved is the persisted block shape.
type Saved struct {
	Service string `json:"service,omitempty"`
	Source  string `json:"source,omitempty"`
	Embed   string `json:"embed,omitempty"`
	HTML    string `json:"html,omitempty"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
	Caption string `json:"caption,omitempty"`
}

// Failed reports whether the data holds the error placeholder.
func (d Data) Failed() bool {
	return d.failed
}

// State derives the lifecycle stage from d.
func (d Data) State() State {
	switch {
	case d.PendingFetch:
		return StateLoading
	case d.failed:
		return StateError
	case d.ProviderKey == "" && d.SourceURL == "" && d.EmbedURL == "" && d.HTML == "":
		return StateUninitialized
	default:
		return StateRendered
	}
}

// Saved returns the persisted shape of d.
func (d Data) Saved() Saved {
	return Saved{
		Service: d.ProviderKey,
		Source:  d.SourceURL,
		Embed:   d.EmbedURL,
		HTML:    d.HTML,
		Width:   d.Width,
		Height:  d.Height,
		Caption: d.Caption,
	}
}

// FromSaved restores block data from its persisted shape. A stored error
// placeholder restores the error state.
func FromSaved(s Saved) Data {
	return Data{
		ProviderKey: strings.TrimSpace(s.Service),
		SourceURL:   strings.TrimSpace(s.Source),
		EmbedURL:    strings.TrimSpace(s.Embed),
		HTML:        s.HTML,
		Width:       s.Width,
		Height:      s.Height,
		Caption:     s.Caption,
		failed:      s.HTML == resolver.ErrorPlaceholderHTML,
	}
}

func fromResult(result resolver.Result, caption string) Data {
	return Data{
		ProviderKey:  result.ProviderKey,
		SourceURL:    result.SourceURL,
		EmbedURL:     result.Embed.EmbedURL,
		HTML:         result.Embed.HTML,
		Width:        result.Embed.Width,
		Height:       result.Embed.Height,
		Caption:      caption,
		PendingFetch: result.Kind == resolver.KindPending,
		failed:       result.Embed.Failed,
	}
}

func (d Data) withEmbed(embed resolver.Embed) Data {
	d.HTML = embed.HTML
	d.EmbedURL = embed.EmbedURL
	if embed.Width > 0 {
		d.Width = embed.Width
	}
	if embed.Height > 0 {
		d.Height = embed.Height
	}
	d.PendingFetch = false
	d.failed = embed.Failed
	return d
}

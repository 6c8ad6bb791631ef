package interfaces

import (
	"context"
	"time"

	"golang.org/x/net/html"
)

// UnfurlResponse is the decoded payload returned by an unfurling service.
type UnfurlResponse struct {
	HTML  string      `json:"html"`
	Links UnfurlLinks `json:"links"`
}

// UnfurlLinks groups the link relations reported by the unfurling service.
type UnfurlLinks struct {
	Player []UnfurlLink `json:"player"`
}

// UnfurlLink is a single link relation entry.
type UnfurlLink struct {
	Href string `json:"href"`
}

// Unfurler fetches ready-made embed markup for an arbitrary URL.
type Unfurler interface {
	Unfurl(ctx context.Context, sourceURL string) (UnfurlResponse, error)
}

// EmbedMetrics records resolver and block telemetry.
type EmbedMetrics interface {
	IncrementResolution(provider, strategy string)
	ObserveFetchDuration(provider string, duration time.Duration)
	IncrementFetchFailure(provider, reason string)
	IncrementStaleResult(provider string)
}

// Mount receives the block's root element every time the block re-renders.
// previous is nil on the first render.
type Mount interface {
	Replace(previous, next *html.Node)
}

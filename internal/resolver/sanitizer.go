package resolver

import (
	"fmt"
	"net/url"
	"strings"
)

// URLPolicy restricts the schemes an embed URL may use.
type URLPolicy struct {
	allowedSchemes map[string]struct{}
}

// NewURLPolicy allows http and https, plus any extra schemes given.
func NewURLPolicy(extra ...string) *URLPolicy {
	p := &URLPolicy{
		allowedSchemes: map[string]struct{}{
			"http":  {},
			"https": {},
		},
	}
	for _, scheme := range extra {
		if s := strings.ToLower(strings.TrimSpace(scheme)); s != "" {
			p.allowedSchemes[s] = struct{}{}
		}
	}
	return p
}

// Check returns ErrUnsafeURL unless raw is empty or uses an allowed scheme.
// Protocol-relative URLs are accepted.
func (p *URLPolicy) Check(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "//") {
		return nil
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsafeURL, err)
	}
	if _, ok := p.allowedSchemes[strings.ToLower(parsed.Scheme)]; !ok {
		return fmt.Errorf("%w: %q", ErrUnsafeURL, parsed.Scheme)
	}
	return nil
}

package providers

import "strings"

// Match returns the first provider, in registry order, whose pattern matches
// the whole of raw. The boolean is false when nothing matches.
func (r *Registry) Match(raw string) (MatchResult, bool) {
	if r == nil {
		return MatchResult{}, false
	}
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return MatchResult{}, false
	}

	for _, key := range r.order {
		groups := r.byKey[key].re.FindStringSubmatch(candidate)
		if groups == nil {
			continue
		}
		result := MatchResult{
			ProviderKey: key,
			URL:         candidate,
			Captures:    groups[1:],
		}
		if len(groups) > 1 {
			result.Capture = groups[1]
		}
		return result, true
	}
	return MatchResult{}, false
}

// Captures runs key's pattern against raw and returns the capture groups.
// The boolean is false when key is unknown or the URL does not match.
func (r *Registry) Captures(key, raw string) ([]string, bool) {
	p, ok := r.Get(key)
	if !ok {
		return nil, false
	}
	groups := p.re.FindStringSubmatch(strings.TrimSpace(raw))
	if groups == nil {
		return nil, false
	}
	return groups[1:], true
}

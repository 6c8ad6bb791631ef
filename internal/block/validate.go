package block

import (
	"encoding/json"
	"strings"

	"github.com/goliatone/go-embed/internal/providers"
	"github.com/goliatone/go-embed/internal/validation"
)

// Validate reports whether s is a usable persisted block. Remote providers
// need a source and fetched html; every other service needs a service key and
// either a source or an embed URL. It never panics.
func Validate(registry *providers.Registry, s Saved) bool {
	encoded, err := json.Marshal(s)
	if err != nil {
		return false
	}
	if validation.ValidateBlockJSON(encoded) != nil {
		return false
	}
	return validateFields(registry, s)
}

// ValidateJSON runs the schema check on raw before the field rules.
func ValidateJSON(registry *providers.Registry, raw []byte) bool {
	if validation.ValidateBlockJSON(raw) != nil {
		return false
	}
	var s Saved
	if err := json.Unmarshal(raw, &s); err != nil {
		return false
	}
	return validateFields(registry, s)
}

func validateFields(registry *providers.Registry, s Saved) bool {
	service := strings.TrimSpace(s.Service)
	source := strings.TrimSpace(s.Source)

	if provider, ok := registry.Get(service); ok && provider.Strategy() == providers.StrategyRemoteFetch {
		return source != "" && strings.TrimSpace(s.HTML) != ""
	}
	return service != "" && (source != "" || strings.TrimSpace(s.Embed) != "")
}

package providers

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-slug"
)

// ValidateSpec checks the structural invariants of spec: key and pattern are
// required, the pattern compiles, the strategy is known, local providers carry
// an embed URL template and dimensions are non-negative.
func ValidateSpec(spec Spec) error {
	spec = normalizeSpec(spec)
	err := validation.ValidateStruct(&spec,
		validation.Field(&spec.Key, validation.Required, validation.By(slugKey)),
		validation.Field(&spec.Pattern, validation.Required, validation.By(compiles)),
		validation.Field(&spec.Strategy, validation.In(StrategyLocalTemplate, StrategyRemoteFetch)),
		validation.Field(&spec.EmbedURL, validation.When(spec.Strategy == StrategyLocalTemplate, validation.Required)),
		validation.Field(&spec.Width, validation.Min(0)),
		validation.Field(&spec.Height, validation.Min(0)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	return nil
}

func normalizeSpec(spec Spec) Spec {
	spec.Key = strings.TrimSpace(spec.Key)
	spec.Pattern = strings.TrimSpace(spec.Pattern)
	spec.EmbedURL = strings.TrimSpace(spec.EmbedURL)
	if spec.Strategy == "" {
		spec.Strategy = StrategyLocalTemplate
	}
	return spec
}

func slugKey(value any) error {
	key, _ := value.(string)
	if !slug.IsValid(key) {
		return errors.New("must be a lowercase slug")
	}
	return nil
}

func compiles(value any) error {
	pattern, _ := value.(string)
	if _, err := regexp.Compile(anchor(pattern)); err != nil {
		return errors.New("must be a valid regular expression")
	}
	return nil
}

func anchor(pattern string) string {
	return `^(?:` + pattern + `)$`
}

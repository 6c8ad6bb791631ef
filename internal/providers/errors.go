package providers

import "errors"

// ErrInvalidSpec is returned by ValidateSpec for structurally broken specs.
var ErrInvalidSpec = errors.New("providers: invalid spec")

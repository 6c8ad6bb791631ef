package block

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

var (
	// ErrNotObject is returned by Assign when the value is not a JSON object.
	ErrNotObject = errors.New("embed block: data must be an object")
	// ErrMissingResolver is returned by New without a resolver.
	ErrMissingResolver = errors.New("embed block: resolver is required")
)

const (
	codeInvalidData = "EMBED_BLOCK_INVALID_DATA"
	codeNotObject   = "EMBED_BLOCK_NOT_OBJECT"
)

func wrapAssignError(err error) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}
	code := codeInvalidData
	if errors.Is(err, ErrNotObject) {
		code = codeNotObject
	}
	return goerrors.Wrap(err, goerrors.CategoryValidation, "embed block data rejected").
		WithTextCode(code)
}

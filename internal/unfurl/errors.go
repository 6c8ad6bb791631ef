package unfurl

import (
	"context"
	"errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	"github.com/sony/gobreaker"
)

var (
	// ErrInvalidConfig is returned when the client configuration is rejected.
	ErrInvalidConfig = errors.New("unfurl: invalid config")
	// ErrEmptyHTML is returned when the service answers without embed markup.
	ErrEmptyHTML = errors.New("unfurl: response carries no html")
	// ErrBodyTooLarge is returned when the response exceeds MaxBodySize.
	ErrBodyTooLarge = errors.New("unfurl: response body too large")
)

const (
	codeRequestFailed = "UNFURL_REQUEST_FAILED"
	codeHTTPStatus    = "UNFURL_HTTP_STATUS"
	codeDecodeFailed  = "UNFURL_DECODE_FAILED"
	codeEmptyHTML     = "UNFURL_EMPTY_HTML"
	codeBodyTooLarge  = "UNFURL_BODY_TOO_LARGE"
	codeCircuitOpen   = "UNFURL_CIRCUIT_OPEN"
	codeCancelled     = "UNFURL_CANCELLED"
)

// HTTPStatusError reports a non-2xx answer from the unfurling service.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// Reason classifies err into a short label suitable for metrics.
func Reason(err error) string {
	var status *HTTPStatusError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &status):
		return "http_status"
	case errors.Is(err, ErrEmptyHTML):
		return "empty_html"
	case errors.Is(err, ErrBodyTooLarge):
		return "body_too_large"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "circuit_open"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case goerrors.HasCategory(err, goerrors.CategoryValidation):
		return "decode"
	default:
		return "transport"
	}
}

func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}

	var status *HTTPStatusError
	switch {
	case errors.As(err, &status):
		return goerrors.Wrap(err, goerrors.CategoryExternal, "unfurl service returned an error status").
			WithTextCode(codeHTTPStatus)
	case errors.Is(err, ErrEmptyHTML):
		return goerrors.Wrap(err, goerrors.CategoryExternal, "unfurl service returned no markup").
			WithTextCode(codeEmptyHTML)
	case errors.Is(err, ErrBodyTooLarge):
		return goerrors.Wrap(err, goerrors.CategoryExternal, "unfurl response exceeded size limit").
			WithTextCode(codeBodyTooLarge)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return goerrors.Wrap(err, goerrors.CategoryExternal, "unfurl circuit open").
			WithTextCode(codeCircuitOpen)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return goerrors.Wrap(err, goerrors.CategoryExternal, "unfurl request cancelled").
			WithTextCode(codeCancelled)
	default:
		return goerrors.Wrap(err, goerrors.CategoryExternal, "unfurl request failed").
			WithTextCode(codeRequestFailed)
	}
}

func wrapDecodeError(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryValidation, "unfurl response is not valid JSON").
		WithTextCode(codeDecodeFailed)
}

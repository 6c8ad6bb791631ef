package resolver

import "errors"

var (
	// ErrUnknownProvider is returned when the provider key is not registered.
	ErrUnknownProvider = errors.New("embed resolver: unknown provider")
	// ErrEmptyRemoteID is returned under EmptyIDReject when no id was extracted.
	ErrEmptyRemoteID = errors.New("embed resolver: empty remote id")
	// ErrNoMatch is returned when the URL does not match the provider pattern.
	ErrNoMatch = errors.New("embed resolver: url does not match provider")
	// ErrUnsafeURL is returned when a built embed URL uses a disallowed scheme.
	ErrUnsafeURL = errors.New("embed resolver: url scheme not permitted")
	// ErrNoUnfurler is recorded when a remote fetch is attempted without a client.
	ErrNoUnfurler = errors.New("embed resolver: no unfurl client configured")
)

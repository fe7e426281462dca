package spec

import "errors"

var (
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrProviderUnavailable is returned when no account provider is configured.
	// It is an expected condition, not a crash: hosts typically respond with an
	// install prompt.
	ErrProviderUnavailable = errors.New("account provider unavailable")

	// ErrUserRejected is returned when the holder declines the connection prompt.
	ErrUserRejected = errors.New("user rejected the request")

	// ErrProviderError covers every other provider failure.
	ErrProviderError = errors.New("provider error")

	// ErrProviderTimeout is returned when a provider call does not answer within
	// the configured timeout.
	ErrProviderTimeout = errors.New("provider timeout")

	// ErrStaleResponse marks a result that was overtaken by a session change.
	// Connect logs and discards such results; a reviewer check returns it when
	// the connected account changed while credentials were being fetched.
	ErrStaleResponse = errors.New("stale provider response")

	ErrNotConnected          = errors.New("wallet not connected")
	ErrVerificationNotFound  = errors.New("verification not found")
	ErrCredentialSourceUnset = errors.New("credential source not configured")
)

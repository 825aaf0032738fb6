package auth0

import "errors"

var (
	// ErrInvalidConfig is returned when required settings are missing
	ErrInvalidConfig = errors.New("invalid auth0 configuration")

	// ErrInvalidCredential is returned when the caller's access token is rejected
	ErrInvalidCredential = errors.New("access token rejected by identity provider")

	// ErrUnauthorized is returned when the management token is rejected twice in a row
	ErrUnauthorized = errors.New("management API rejected client credentials")

	// ErrUserNotFound is returned when the management API has no such user
	ErrUserNotFound = errors.New("user not found")

	// ErrNetworkError is returned when there's a network communication error
	ErrNetworkError = errors.New("network error")

	// ErrUpstream is returned for any other non-2xx response
	ErrUpstream = errors.New("identity provider error")
)

// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across api/service/controller layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates the backend rejected the request with 401.
	// Any call observing it has already cleared the stored token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNoToken indicates no valid bearer token is stored.
	ErrNoToken = errors.New("no token stored")

	// ErrBadShape indicates the backend response decoded but lacked the
	// expected payload (e.g. product missing from a detail response).
	ErrBadShape = errors.New("unexpected response shape")
)

package queueit

import "errors"

// Rejection reasons. They never leave the package boundary as distinct outcomes:
// Validate only reports accepted or rejected, and the reasons are logged at debug level.
var (
	ErrMalformedToken = errors.New("malformed token")
	ErrHashMismatch   = errors.New("hash mismatch")
	ErrExpired        = errors.New("expired")
	ErrNoCredential   = errors.New("no credential presented")
)

package token

import "errors"

var (
	// ErrInvalidToken is returned for every verification failure: bad signature,
	// malformed structure, unexpected algorithm, or expiry.
	ErrInvalidToken = errors.New("invalid token")
	// ErrWeakSecret is returned when the signing secret is shorter than MinSecretSize.
	ErrWeakSecret = errors.New("signing secret too short")
	// ErrInvalidTTL is returned when Sign is asked for a non-positive lifetime.
	ErrInvalidTTL = errors.New("invalid token ttl")
	// ErrInvalidLeeway is returned when Config.Leeway is negative or above MaxLeeway.
	ErrInvalidLeeway = errors.New("invalid token leeway")
)

package cookie

import "errors"

var (
	// ErrDomainNotAllowed is returned when a Domain override is requested at LevelHighest.
	ErrDomainNotAllowed = errors.New("cookie: domain not allowed at highest level")
	// ErrPathNotAllowed is returned when a non-root Path override is requested at LevelHighest.
	ErrPathNotAllowed = errors.New("cookie: path must be / at highest level")
	// ErrUnknownLevel is returned for a Level outside the declared set.
	ErrUnknownLevel = errors.New("cookie: unknown security level")
	// ErrHostPrefixViolation is returned when a __Host- cookie is not Secure, has a
	// Path other than /, or carries a Domain.
	ErrHostPrefixViolation = errors.New("cookie: __Host- prefix requires Secure, Path=/ and no Domain")
	// ErrSecurePrefixViolation is returned when a __Secure- cookie is not Secure.
	ErrSecurePrefixViolation = errors.New("cookie: __Secure- prefix requires Secure")
)

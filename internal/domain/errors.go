package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates missing or malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrPriceMismatch indicates the stored order total disagrees with the
	// recomputed line-item sum.
	ErrPriceMismatch = errors.New("price mismatch")
	// ErrCaptureMissing indicates the provider returned success without the
	// expected capture record. The order must not be marked paid.
	ErrCaptureMissing = errors.New("no capture details from provider")
	// ErrGatewayAuth indicates the settlement provider rejected or failed
	// the token exchange.
	ErrGatewayAuth = errors.New("gateway authentication failed")
	// ErrGatewayTimeout indicates an external provider call exceeded its
	// deadline; order state is left unchanged.
	ErrGatewayTimeout = errors.New("gateway timeout")
	// ErrUnauthorized indicates no authenticated principal.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates the principal lacks the required role.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict indicates a concurrent mutation won the version check.
	ErrConflict = errors.New("version conflict")
)

package model

import "errors"

// Errors shared across components
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
)

// API error codes that do not map to a plain HTTP status name
const (
	CodeWeakCredential    = "WEAK_CREDENTIAL"
	CodeInvalidCredential = "INVALID_CREDENTIAL"
	CodeSelfRequest       = "SELF_REQUEST"
	CodeRateLimited       = "RATE_LIMITED"
	CodeMediaDisabled     = "MEDIA_DISABLED"
)

package domain

import "errors"

var (
	// Common domain errors
	ErrCodeNotFound    = errors.New("activation code not found")
	ErrCodeInactive    = errors.New("activation code disabled")
	ErrCodeExpired     = errors.New("activation code expired")
	ErrUsageExhausted  = errors.New("activation code usage limit reached")
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrInvalidArgument = errors.New("invalid argument")

	// Credential errors
	ErrInvalidToken   = errors.New("credential token invalid")
	ErrTokenExpired   = errors.New("credential token expired")
	ErrWrongTokenType = errors.New("credential token has wrong type")

	// ErrUnauthorized is the single kind every code or credential failure
	// collapses to at the API boundary. The specific reason stays in logs.
	ErrUnauthorized = errors.New("unauthorized")

	ErrInvalidExecContext = errors.New("invalid executor context")
)

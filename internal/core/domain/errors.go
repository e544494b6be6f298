package domain

import (
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the user lacks permission for this action
	ErrForbidden = errors.New("forbidden")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")

	// ErrSessionNotFound indicates the session does not exist
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidCredentials indicates wrong email/password combination
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmbeddingUnavailable indicates the embedding provider failed or is
	// not configured. Non-fatal: searches degrade instead of failing.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrExecutionFailed indicates the search executor rejected or failed the
	// query. Fatal for the request; callers own any retry policy.
	ErrExecutionFailed = errors.New("search execution failed")

	// ErrInvalidProvider indicates an unknown AI provider was specified
	ErrInvalidProvider = errors.New("invalid provider")
)

// ExecutionError wraps an executor failure together with the compound query
// that was attempted, so callers can log which clauses were in flight or
// retry with a simplified query.
type ExecutionError struct {
	Query *CompoundQuery
	Err   error
}

func (e *ExecutionError) Error() string {
	if e.Query == nil {
		return fmt.Sprintf("%v: %v", ErrExecutionFailed, e.Err)
	}
	return fmt.Sprintf("%v (strategy=%s, must=%d, should=%d): %v",
		ErrExecutionFailed, e.Query.Strategy, len(e.Query.Must), len(e.Query.Should), e.Err)
}

// Unwrap lets errors.Is(err, ErrExecutionFailed) match.
func (e *ExecutionError) Unwrap() error {
	return ErrExecutionFailed
}

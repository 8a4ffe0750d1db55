// Package client is a Go client for the FlowTask API. It manages the JWT
// session (token storage, transparent refresh) and exposes typed wrappers
// around every endpoint.
package client

import "fmt"

// AuthError signals a failed login or an irrecoverable session
// (e.g. the refresh token itself was rejected).
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string { return "authentication failed: " + e.Reason }

// PermissionError maps a 403 response.
type PermissionError struct {
	Reason string
}

func (e *PermissionError) Error() string { return "permission denied: " + e.Reason }

// NotFoundError maps a 404 response.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return "not found: " + e.Resource }

// ValidationError maps a 400 response carrying per-field messages.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %v", e.Fields)
}

// RequestError wraps transport-level failures and unexpected statuses.
type RequestError struct {
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return "request failed: " + e.Err.Error()
	}
	return fmt.Sprintf("request failed: status %d", e.StatusCode)
}

func (e *RequestError) Unwrap() error { return e.Err }

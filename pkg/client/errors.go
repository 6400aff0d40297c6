package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrRateLimited is returned when the request was refused locally because
	// the GitHub rate limit window is exhausted.
	ErrRateLimited = errors.New("rate limit exhausted")

	// ErrForeignHost is returned for page URLs outside the configured API
	// server. The credential is never sent to such hosts.
	ErrForeignHost = errors.New("url outside api server")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 403/429 responses of an exhausted
	// rate limit window.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// APIError is a non-success response from the GitHub API.
type APIError struct {
	StatusCode       int
	Class            ErrorClass
	Message          string
	DocumentationURL string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("github %s error (status %d): %s", e.Class, e.StatusCode, e.Message)
}

// RequestError is a failure to complete an exchange with the API server:
// connection errors, timeouts and unreadable bodies.
type RequestError struct {
	Class ErrorClass
	Op    string
	Err   error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return fmt.Sprintf("github %s error: %s: %v", e.Class, e.Op, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *RequestError) Unwrap() error {
	return e.Err
}

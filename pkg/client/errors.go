package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrClientDisposed is returned when a call is made on a disposed client.
	// This is a lifecycle misuse, never retried.
	ErrClientDisposed = errors.New("portal client is disposed")

	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrAborted is returned when the abort signal cut an operation short.
	ErrAborted = errors.New("operation aborted")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx errors, including 401 auth failures.
	// Retrying cannot change an authorization or client-error outcome.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents transport failures where no response was
	// received (DNS, TLS, connection reset, attempt timeout).
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassAborted marks work cut short by the cooperative abort flag.
	ErrorClassAborted ErrorClass = "aborted"
)

// PortalError carries the classification and status of a failed request.
type PortalError struct {
	StatusCode int
	Class      ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *PortalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("portal %s error (status %d): %s: %v",
			e.Class, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("portal %s error (status %d): %s",
		e.Class, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *PortalError) Unwrap() error {
	return e.Err
}

// ClassifyStatus categorizes an HTTP status for retry handling and
// observability. Statuses below 400 never reach this path.
func ClassifyStatus(status int) ErrorClass {
	switch {
	case status >= 500:
		return ErrorClassServer
	case status >= 400:
		return ErrorClassClient
	default:
		return ""
	}
}

// shouldRetry reports whether a failed attempt of this class could plausibly
// succeed on re-attempt.
func shouldRetry(class ErrorClass) bool {
	switch class {
	case ErrorClassServer, ErrorClassNetwork:
		return true
	default:
		// Client errors (401 and other 4xx) and aborts are final.
		return false
	}
}

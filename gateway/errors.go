package gateway

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed API call so state machines can apply the
// right policy (force logout, surface inline, or just log and move on).
type ErrorKind int

const (
	// KindNetwork covers transport failures: the request never completed.
	KindNetwork ErrorKind = iota
	// KindUnauthorized means the token is missing, invalid or expired. The
	// caller must clear the session and drop to a logged-out state.
	KindUnauthorized
	// KindNotFound is a 404 for the addressed resource.
	KindNotFound
	// KindValidation is malformed input caught before or by the server.
	KindValidation
	// KindServer is any other non-2xx response.
	KindServer
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	default:
		return "server"
	}
}

// APIError is the classified result of a failed API call.
type APIError struct {
	Kind    ErrorKind
	Status  int // HTTP status, 0 for network/validation errors
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("api: %s (%d): %s", e.Kind, e.Status, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("api: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("api: %s: %s", e.Kind, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// IsUnauthorized reports whether err is a classified 401.
func IsUnauthorized(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Kind == KindUnauthorized
}

// IsValidation reports whether err was rejected before any network call.
func IsValidation(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Kind == KindValidation
}

func classifyStatus(status int, message string) *APIError {
	kind := KindServer
	switch {
	case status == 401 || status == 403:
		kind = KindUnauthorized
	case status == 404:
		kind = KindNotFound
	case status == 400 || status == 422:
		kind = KindValidation
	}
	return &APIError{Kind: kind, Status: status, Message: message}
}

func networkError(err error) *APIError {
	return &APIError{Kind: KindNetwork, Err: err}
}

func validationError(message string) *APIError {
	return &APIError{Kind: KindValidation, Message: message}
}

package transport

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized is matched by responses with status 401.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is matched by responses with status 403.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is matched by responses with status 404.
	ErrNotFound = errors.New("not found")
)

// Error describes a failed API call. StatusCode is zero when the request
// never produced a response.
type Error struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": request failed"
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets callers match on the status class with errors.Is.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

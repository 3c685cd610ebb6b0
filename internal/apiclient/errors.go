package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// UnauthorizedMessage is the message of every 401 error.
const UnauthorizedMessage = "unauthorized, please login again"

// ErrUnauthorized matches, via errors.Is, any *Error with status 401.
var ErrUnauthorized = errors.New("unauthorized")

// Error is the normalized failure of a backend call. Status is 0 when the
// request never got a response.
type Error struct {
	Message string
	Status  int
	Payload any
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

// Is reports whether target is ErrUnauthorized and e is a 401.
func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// Unwrap returns the transport cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// failureMessage picks the message of a non-2xx payload.
func failureMessage(status int, payload any) string {
	if obj, ok := payload.(map[string]any); ok {
		for _, key := range []string{"message", "error"} {
			if s, ok := obj[key].(string); ok && s != "" {
				return s
			}
		}
	}
	return fmt.Sprintf("request failed (%d)", status)
}

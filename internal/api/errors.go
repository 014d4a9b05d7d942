package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed request.
type Kind string

const (
	// KindNetwork means no response reached the client.
	KindNetwork Kind = "network"
	// KindServer means the backend answered with an error status.
	KindServer Kind = "server"
)

const networkFailureMessage = "network failure"

// RequestError is returned by every Client method when the call fails.
// Message is the server-provided text when the backend sent one.
type RequestError struct {
	Op      string
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Message, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// IsNetwork reports whether err is a request that never got a response.
func IsNetwork(err error) bool {
	var re *RequestError
	return errors.As(err, &re) && re.Kind == KindNetwork
}

// IsUnauthorized reports whether the backend rejected the caller's
// credentials.
func IsUnauthorized(err error) bool {
	var re *RequestError
	if !errors.As(err, &re) {
		return false
	}
	return re.Status == http.StatusUnauthorized || re.Status == http.StatusForbidden
}

// Message extracts the user-facing text of err.
func Message(err error) string {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Message
	}
	return err.Error()
}

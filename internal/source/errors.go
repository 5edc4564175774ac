package source

import (
	"errors"
	"fmt"
)

// maxBodyInError bounds how much of an upstream error body is kept.
const maxBodyInError = 400

// ErrUnknownResource is returned when a source is asked for a dataset it does not serve.
var ErrUnknownResource = errors.New("unknown resource")

// TransportError is a network failure or timeout talking to the upstream.
type TransportError struct {
	Resource Resource
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("network error calling /%s: %v", e.Resource, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPError is a non-2xx upstream response.
type HTTPError struct {
	Resource Resource
	Status   int
	Body     string // first 400 characters of the response body
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d from /%s: %s", e.Status, e.Resource, e.Body)
}

// IsTransport reports whether err is, or wraps, a TransportError.
func IsTransport(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

func truncate(body string) string {
	runes := []rune(body)
	if len(runes) <= maxBodyInError {
		return body
	}
	return string(runes[:maxBodyInError])
}

package fetch

import (
	"fmt"
	"net/http"
)

// NetworkError reports a failed static fetch: either the transport failed
// (Err set) or the server answered with a non-2xx status.
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch %s: HTTP error: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// RenderError reports a failed browser interaction. Op is the step that
// failed ("start browser", "navigate", "accept cookies", "read page").
type RenderError struct {
	URL string
	Op  string
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %s: %v", e.URL, e.Op, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

package resolution

import (
	"errors"
	"fmt"
	"strings"
	"time"

	derrors "github.com/oncp/resolution-mcp/pkg/domain/errors"
)

// TransportError means the resolution API could not be reached: connection
// refused, DNS failure, timeout or cancellation.
type TransportError struct {
	Service   string
	Method    string
	Path      string
	Timeout   bool
	Cancelled bool
	After     time.Duration
	Err       error
}

func (e *TransportError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("Resolution API request timed out after %s (%s %s).", e.After, e.Method, e.Path)
	case e.Cancelled:
		return fmt.Sprintf("Resolution API request was cancelled (%s %s).", e.Method, e.Path)
	default:
		return fmt.Sprintf("Resolution API at %s is unreachable (%s %s): %v", e.Service, e.Method, e.Path, e.Err)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// Code maps the error onto the domain error codes.
func (e *TransportError) Code() derrors.Code {
	if e.Timeout {
		return derrors.CodeTimeoutError
	}
	return derrors.CodeNetworkError
}

// Is lets errors.Is match a *derrors.Error by code.
func (e *TransportError) Is(target error) bool {
	t, ok := target.(*derrors.Error)
	return ok && t.Code == e.Code()
}

// DownstreamError means the resolution API answered, but with a 4xx/5xx
// status or a body that could not be used. Body is the raw response body.
type DownstreamError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
	Reason     string
	Err        error
}

func (e *DownstreamError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("Resolution API %s during %s %s (status %d).", e.Reason, e.Method, e.Path, e.StatusCode)
	}
	body := strings.TrimSpace(e.Body)
	if body == "" {
		body = "no body provided."
	}
	return fmt.Sprintf("Resolution API error (%d) during %s %s: %s", e.StatusCode, e.Method, e.Path, body)
}

func (e *DownstreamError) Unwrap() error { return e.Err }

func (e *DownstreamError) Code() derrors.Code { return derrors.CodeDownstreamError }

func (e *DownstreamError) Is(target error) bool {
	t, ok := target.(*derrors.Error)
	return ok && t.Code == e.Code()
}

// IsTimeout reports whether err is a timed out call to the resolution API.
func IsTimeout(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Timeout
}

// snippet bounds response bodies written to logs.
func snippet(body string) string {
	s := strings.TrimSpace(body)
	if len(s) > maxLoggedBody {
		return s[:maxLoggedBody] + "..."
	}
	return s
}

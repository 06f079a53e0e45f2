// Package apierr classifies failures returned by third-party vendor APIs.
package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind is the coarse class of a vendor failure.
type Kind string

const (
	KindUnauthorized Kind = "unauthorized"
	KindRateLimited  Kind = "rate_limited"
	KindUnavailable  Kind = "unavailable"
	KindBadResponse  Kind = "bad_response"
)

const maxBodyInError = 200

// Error is a non-2xx answer (or an unusable 2xx answer) from a vendor API.
type Error struct {
	Service    string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s", e.Service, e.Message)
	}
	return fmt.Sprintf("%s api error (%d): %s", e.Service, e.StatusCode, e.Message)
}

// Kind classifies the error by status code.
func (e *Error) Kind() Kind {
	switch {
	case e.StatusCode == http.StatusUnauthorized, e.StatusCode == http.StatusForbidden:
		return KindUnauthorized
	case e.StatusCode == http.StatusTooManyRequests:
		return KindRateLimited
	case e.StatusCode >= 500:
		return KindUnavailable
	default:
		return KindBadResponse
	}
}

// UserMessage is the text shown to the household for this failure.
func (e *Error) UserMessage() string {
	switch e.Kind() {
	case KindUnauthorized:
		return fmt.Sprintf("%s: API key is invalid or lacks permission", e.Service)
	case KindRateLimited:
		return fmt.Sprintf("%s: too many requests, try again later", e.Service)
	case KindUnavailable:
		return fmt.Sprintf("%s: service is temporarily unavailable", e.Service)
	default:
		return fmt.Sprintf("%s: unexpected response", e.Service)
	}
}

// FromResponse returns nil for 2xx responses and an *Error otherwise. body is
// the already-read response body.
func FromResponse(service string, resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return &Error{
		Service:    service,
		StatusCode: resp.StatusCode,
		Message:    bodyMessage(body),
	}
}

// BadResponse reports a 2xx answer that could not be used.
func BadResponse(service, format string, args ...any) error {
	return &Error{Service: service, Message: fmt.Sprintf(format, args...)}
}

// IsRetryable reports whether the request behind err may be retried after a
// pause. Only rate limiting qualifies.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind() == KindRateLimited
}

// As unwraps err into an *Error.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// bodyMessage extracts {"error": "..."} or {"error": {"message": "..."}}
// and falls back to a truncated raw body.
func bodyMessage(body []byte) string {
	var flat struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &flat) == nil && flat.Error != "" {
		return flat.Error
	}
	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &nested) == nil && nested.Error.Message != "" {
		return nested.Error.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxBodyInError {
		msg = msg[:maxBodyInError] + "..."
	}
	return msg
}

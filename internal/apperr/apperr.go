package apperr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	ErrNoQuotes        = errors.New("wooacry returned no shipping methods")
	ErrUpstreamTimeout = errors.New("upstream timeout")
	ErrInProgress      = errors.New("order is being processed by another delivery")
	ErrUnauthorized    = errors.New("unauthorized")
)

// ValidationError reports a missing or malformed input field. It is raised before any
// partner call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// UpstreamProtocolError means the partner answered with something that is not JSON.
type UpstreamProtocolError struct {
	Endpoint    string
	HTTPStatus  int
	BodyPreview string
	Err         error
}

func (e *UpstreamProtocolError) Error() string {
	return fmt.Sprintf("%s returned non-JSON (http %d)", e.Endpoint, e.HTTPStatus)
}

func (e *UpstreamProtocolError) Unwrap() error {
	return e.Err
}

// UpstreamBusinessError means the partner answered JSON with a non-zero or missing code.
type UpstreamBusinessError struct {
	Endpoint   string
	HTTPStatus int
	Code       *int
	Message    string
	Raw        string
}

func (e *UpstreamBusinessError) Error() string {
	if e.Code == nil {
		return fmt.Sprintf("%s failed: response has no code", e.Endpoint)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s failed: code %d: %s", e.Endpoint, *e.Code, e.Message)
	}
	return fmt.Sprintf("%s failed: code %d", e.Endpoint, *e.Code)
}

// Timeout wraps a transport error as ErrUpstreamTimeout when it was caused by a deadline.
func Timeout(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %w", ErrUpstreamTimeout, err)
	}
	return err
}

func Kind(err error) string {
	var (
		validation *ValidationError
		protocol   *UpstreamProtocolError
		business   *UpstreamBusinessError
	)

	switch {
	case err == nil:
		return ""

	case errors.As(err, &validation):
		return "validation"

	case errors.Is(err, ErrNoQuotes):
		return "no_quotes"

	case errors.As(err, &protocol):
		return "upstream_protocol"

	case errors.As(err, &business):
		return "upstream_business"

	case errors.Is(err, ErrUpstreamTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return "upstream_timeout"

	case errors.Is(err, ErrInProgress):
		return "in_progress"

	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"

	case errors.Is(err, context.Canceled):
		return "canceled"

	default:
		return "internal"
	}
}

var kindToStatus = map[string]int{
	"":                  http.StatusOK,
	"validation":        http.StatusBadRequest,
	"no_quotes":         http.StatusInternalServerError,
	"upstream_protocol": http.StatusBadGateway,
	"upstream_business": http.StatusInternalServerError,
	"upstream_timeout":  http.StatusGatewayTimeout,
	"in_progress":       http.StatusConflict,
	"unauthorized":      http.StatusUnauthorized,
	"canceled":          http.StatusRequestTimeout,
}

func HTTPStatus(err error) int {
	if s, ok := kindToStatus[Kind(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Retryable reports whether redelivering the same order can succeed later without
// anyone changing it. Partner rejections and empty quotes are answers, not outages.
func Retryable(err error) bool {
	switch Kind(err) {
	case "", "validation", "unauthorized", "no_quotes", "upstream_business":
		return false
	default:
		return true
	}
}

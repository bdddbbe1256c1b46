package ocr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindConfigMissing
	KindNoImage
	KindBadRequest
	KindImageDecode
	KindUpstreamRetryable
	KindUpstreamNonRetryable
	KindRetryBudgetExhausted
	KindMalformedResponse
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindConfigMissing:
		return "config_missing"
	case KindNoImage:
		return "no_image"
	case KindBadRequest:
		return "bad_request"
	case KindImageDecode:
		return "image_decode"
	case KindUpstreamRetryable:
		return "upstream_retryable"
	case KindUpstreamNonRetryable:
		return "upstream_non_retryable"
	case KindRetryBudgetExhausted:
		return "retry_budget_exhausted"
	case KindMalformedResponse:
		return "malformed_response"
	case KindTimeout:
		return "timeout"
	default:
		return "internal"
	}
}

// Error is the only error type that leaves the detection pipeline.
// Status is the upstream HTTP status for upstream kinds, Raw the unparsed model text
// for malformed responses.
type Error struct {
	Kind     Kind
	Status   int
	Attempts int
	Message  string
	Raw      string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func ConfigMissing(msg string) *Error { return newError(KindConfigMissing, msg, nil) }

func NoImage() *Error { return newError(KindNoImage, "no image provided", nil) }

func BadRequest(msg string, err error) *Error { return newError(KindBadRequest, msg, err) }

func ImageDecode(err error) *Error { return newError(KindImageDecode, "cannot decode image", err) }

func Malformed(msg, raw string, err error) *Error {
	e := newError(KindMalformedResponse, msg, err)
	e.Raw = raw
	return e
}

func Internal(msg string, err error) *Error { return newError(KindInternal, msg, err) }

// Upstream classifies a non-2xx status from the inference service.
func Upstream(status int, msg string) *Error {
	kind := KindUpstreamNonRetryable
	if RetryableStatus(status) {
		kind = KindUpstreamRetryable
	}
	return &Error{Kind: kind, Status: status, Message: msg}
}

// FromContext maps a finished context to a Timeout error; nil when ctx is still alive.
func FromContext(ctx context.Context) *Error {
	if err := ctx.Err(); err != nil {
		return newError(KindTimeout, "request cancelled or timed out", err)
	}
	return nil
}

// RetryableStatus reports whether the upstream status is worth another attempt.
func RetryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// KindOf classifies any error produced while serving a detection.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}
	return KindInternal
}

// AsError returns err as *Error, wrapping untyped errors as Internal or Timeout.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if KindOf(err) == KindTimeout {
		return newError(KindTimeout, "request cancelled or timed out", err)
	}
	return Internal("", err)
}

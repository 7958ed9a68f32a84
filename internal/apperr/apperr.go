// Package apperr classifies the error kinds raised across the gateway
// pipeline and maps them to an HTTP status where that mapping is
// meaningful.
package apperr

import (
	"context"
	"errors"
	"net/http"
)

var (
	// ErrRejected is a semantic refusal by a processor (its 4xx class,
	// excluding timeouts). Terminal: no retry, no ledger write.
	ErrRejected = errors.New("processor rejected payment")
	// ErrServerError is a processor 5xx response.
	ErrServerError = errors.New("processor server error")
	// ErrTransport is a connection-level failure talking to a processor.
	ErrTransport = errors.New("processor transport failure")
	// ErrProcessorTimeout is an attempt that exceeded its deadline.
	ErrProcessorTimeout = errors.New("processor attempt timed out")
	// ErrClaimTaken is returned when the idempotency registry already
	// holds a claim for the correlation id.
	ErrClaimTaken = errors.New("correlation id already claimed")
	// ErrStoreFailure is a KV or archive store read/write failure.
	ErrStoreFailure = errors.New("store failure")
	// ErrQueueFull is returned by the bounded queue when admission could
	// not complete before the caller's deadline.
	ErrQueueFull = errors.New("queue full")
	// ErrExhausted is returned when the selector's retry budget is spent
	// with no successful attempt.
	ErrExhausted = errors.New("retry budget exhausted")
)

// Kind returns a short machine-readable label for err, used in logs.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRejected):
		return "rejected"
	case errors.Is(err, ErrServerError):
		return "server_error"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrProcessorTimeout):
		return "timeout"
	case errors.Is(err, ErrClaimTaken):
		return "claim_taken"
	case errors.Is(err, ErrStoreFailure):
		return "store_failure"
	case errors.Is(err, ErrQueueFull):
		return "queue_full"
	case errors.Is(err, ErrExhausted):
		return "exhausted"
	case errors.Is(err, context.DeadlineExceeded):
		return "deadline_exceeded"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "internal"
	}
}

// IngressHTTPStatus maps an ingress-path error to the HTTP status returned
// to the client. Only ingress-path errors are surfaced synchronously;
// every other error is logged and swallowed by the worker pool.
func IngressHTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusAccepted
	case errors.Is(err, ErrQueueFull), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

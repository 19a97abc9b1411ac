package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/RichardoC/padi-bot/internal/tokens"
)

// Kind classifies a failed completion.
type Kind int

const (
	Unknown Kind = iota
	BadRequest
	AuthFailure
	InsufficientBalance
	BadParameters
	RateLimited
	ServerError
	ServerBusy
	Timeout
	ConnectionError
	TokenizationUnavailable
)

var kindNames = map[Kind]string{
	Unknown:                 "unknown",
	BadRequest:              "bad_request",
	AuthFailure:             "auth_failure",
	InsufficientBalance:     "insufficient_balance",
	BadParameters:           "bad_parameters",
	RateLimited:             "rate_limited",
	ServerError:             "server_error",
	ServerBusy:              "server_busy",
	Timeout:                 "timeout",
	ConnectionError:         "connection_error",
	TokenizationUnavailable: "tokenization_unavailable",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Transient reports whether a request failing with k is worth retrying.
func (k Kind) Transient() bool {
	switch k {
	case RateLimited, ServerError, ServerBusy, Timeout, Unknown:
		return true
	}
	return false
}

// KindFromStatus maps an HTTP status returned by the completion API.
func KindFromStatus(code int) Kind {
	switch code {
	case http.StatusBadRequest:
		return BadRequest
	case http.StatusUnauthorized:
		return AuthFailure
	case http.StatusPaymentRequired:
		return InsufficientBalance
	case http.StatusUnprocessableEntity:
		return BadParameters
	case http.StatusTooManyRequests:
		return RateLimited
	case http.StatusServiceUnavailable:
		return ServerBusy
	}
	if code >= 500 {
		return ServerError
	}
	return Unknown
}

// Error is the typed failure every Client returns.
type Error struct {
	Kind Kind
	// StatusCode is the HTTP status of the remote response, zero when the
	// request never got one.
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the classification carried by err.
func KindOf(err error) Kind {
	var e *Error
	switch {
	case errors.As(err, &e):
		return e.Kind
	case errors.Is(err, tokens.ErrTokenizationUnavailable):
		return TokenizationUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return Timeout
	}
	return Unknown
}

// classify wraps an error that did not come with an HTTP status.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: Timeout, Err: err}
	case errors.As(err, &netErr) && netErr.Timeout():
		return &Error{Kind: Timeout, Err: err}
	case errors.Is(err, context.Canceled):
		return &Error{Kind: Unknown, Err: err}
	case netErr != nil:
		return &Error{Kind: ConnectionError, Err: err}
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return &Error{Kind: ConnectionError, Err: err}
	}
	return &Error{Kind: Unknown, Err: err}
}

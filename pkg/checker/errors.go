package checker

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/nameprobe/nameprobe/pkg/ratelimit"
)

// ErrRetriesExhausted marks a check that failed on every attempt.
var ErrRetriesExhausted = errors.New("retry attempts exhausted")

// RequestError carries the classification of one failed attempt.
type RequestError struct {
	StatusCode int
	Category   ratelimit.ErrorCategory
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error (status %d): %s: %v",
			e.Category, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error (status %d): %s",
		e.Category, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// classifyTransport categorizes a transport-level failure.
func classifyTransport(err error) ratelimit.ErrorCategory {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ratelimit.CategoryTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ratelimit.CategoryTimeout
	}
	return ratelimit.CategoryNetwork
}

// categoryForStatus categorizes a non-2xx HTTP status.
func categoryForStatus(status int) ratelimit.ErrorCategory {
	if status == 429 {
		return ratelimit.CategoryRateLimit
	}
	return ratelimit.CategoryProtocol
}

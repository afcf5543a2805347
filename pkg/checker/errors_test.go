package checker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nameprobe/nameprobe/pkg/ratelimit"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "deadline exceeded" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyTransport(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ratelimit.ErrorCategory
	}{
		{"net timeout", timeoutErr{}, ratelimit.CategoryTimeout},
		{"wrapped net timeout", fmt.Errorf("do: %w", timeoutErr{}), ratelimit.CategoryTimeout},
		{"deadline exceeded", context.DeadlineExceeded, ratelimit.CategoryTimeout},
		{"connection refused", errors.New("dial tcp: connection refused"), ratelimit.CategoryNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyTransport(tt.err); got != tt.want {
				t.Errorf("classifyTransport(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestCategoryForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ratelimit.ErrorCategory
	}{
		{429, ratelimit.CategoryRateLimit},
		{500, ratelimit.CategoryProtocol},
		{503, ratelimit.CategoryProtocol},
		{404, ratelimit.CategoryProtocol},
	}

	for _, tt := range tests {
		if got := categoryForStatus(tt.status); got != tt.want {
			t.Errorf("categoryForStatus(%d) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestRequestErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &RequestError{
		StatusCode: 500,
		Category:   ratelimit.CategoryProtocol,
		Message:    "500 Internal Server Error",
		Err:        inner,
	}

	if !errors.Is(err, inner) {
		t.Error("errors.Is should find the wrapped error")
	}

	var reqErr *RequestError
	if !errors.As(error(err), &reqErr) {
		t.Error("errors.As should match *RequestError")
	}
	if reqErr.StatusCode != 500 {
		t.Errorf("StatusCode = %d, want 500", reqErr.StatusCode)
	}
}

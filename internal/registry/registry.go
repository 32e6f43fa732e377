package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/Katy0987/uk-food-nutrition-data-platform/pkg/metrics"
)

// ErrNotFound marks a definitive upstream answer that the entity does not
// exist. It is never retried and maps to a 404 at the API boundary.
var ErrNotFound = errors.New("registry: entity not found")

// StatusError reports a non-2xx HTTP response from an upstream registry.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("registry: unexpected status %d", e.Code)
}

// UpstreamError wraps a hard upstream failure after retries are exhausted.
type UpstreamError struct {
	Registry string
	Op       string
	Attempts int
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("registry %s: %s failed after %d attempts: %v", e.Registry, e.Op, e.Attempts, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// RetryPolicy bounds the retry loop for upstream calls.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryPolicy mirrors the registry clients' production settings.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     30 * time.Second,
	}
}

func (p RetryPolicy) normalised() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = 2 * time.Second
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = 30 * time.Second
	}
	return p
}

// Do runs op with exponential backoff under the supplied policy. Transport
// errors and 5xx responses are retried; ErrNotFound and other 4xx responses
// fail immediately. When attempts are exhausted the last error is wrapped in
// an UpstreamError carrying the attempt count.
func Do[T any](ctx context.Context, registry, opName string, policy RetryPolicy, op func(context.Context) (T, error)) (T, error) {
	policy = policy.normalised()

	attempts := 0
	wrapped := func() (T, error) {
		attempts++
		result, err := op(ctx)
		if err == nil {
			metrics.UpstreamRequests.WithLabelValues(registry, opName, "success").Inc()
			return result, nil
		}

		metrics.UpstreamRequests.WithLabelValues(registry, opName, "error").Inc()
		if !retryable(err) {
			return result, backoff.Permanent(err)
		}
		metrics.UpstreamRetries.WithLabelValues(registry).Inc()
		return result, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.InitialBackoff
	b.MaxInterval = policy.MaxBackoff

	result, err := backoff.Retry(ctx, wrapped,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(policy.MaxAttempts)),
	)
	if err == nil {
		return result, nil
	}

	if errors.Is(err, ErrNotFound) {
		return result, ErrNotFound
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Code >= 400 && statusErr.Code < 500 && statusErr.Code != 429 {
		return result, err
	}

	return result, &UpstreamError{
		Registry: registry,
		Op:       opName,
		Attempts: attempts,
		Err:      err,
	}
}

// retryable reports whether an upstream failure is transient. Definitive
// answers such as 404 or a 4xx status must not be retried.
func retryable(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= 500 || statusErr.Code == 429
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	return false
}

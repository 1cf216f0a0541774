// pkg/suggest/backend.go
package suggest

import (
	"context"
	"errors"
	"net"
)

// Backend is one way of reaching an inference service over the network.
// Probe must be a lightweight reachability check; Generate submits one
// prompt and returns the model's free-text response.
type Backend interface {
	Name() string
	Model() string
	Probe(ctx context.Context) error
	Generate(ctx context.Context, prompt string) (string, error)
}

// TransientError marks a failure worth retrying with backoff: timeouts,
// connection resets, 5xx responses.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	if e == nil || e.Err == nil {
		return "transient error"
	}
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// isTransient reports whether an attempt failure should be retried.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}

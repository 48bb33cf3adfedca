package adapter

import (
	"errors"
	"fmt"
	"time"

	"github.com/emrgen/mediahub/internal/resource"
	"github.com/emrgen/mediahub/internal/source"
)

var (
	ErrUnsupported     = errors.New("unsupported operation")
	ErrTransient       = errors.New("transient source error")
	ErrLocalOnly       = errors.New("entity has no catalog identity")
	ErrNotFound        = errors.New("not found in source")
	ErrUnauthenticated = errors.New("source credentials missing or rejected")
	ErrInvalidURI      = errors.New("invalid source uri")
)

// TransientError is a failure worth retrying: network errors, rate limits
// and server errors.
type TransientError struct {
	Op         string
	Status     int
	RetryAfter time.Duration
	Err        error
}

func (e *TransientError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() []error {
	return []error{ErrTransient, e.Err}
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// Unsupported reports a kind the source cannot handle for op.
func Unsupported(src source.Type, op string, kind resource.Kind) error {
	return fmt.Errorf("%s %s of %s: %w", src, op, kind, ErrUnsupported)
}

package value

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode matches every *DecodeError.
	ErrDecode = errors.New("value decode failed")
	// ErrUnknownType is returned for a tag outside the closed set.
	ErrUnknownType = errors.New("unknown value type")
	// ErrTypeMismatch is returned when a payload does not fit its tag.
	ErrTypeMismatch = errors.New("value type mismatch")
	// ErrUnrepresentable is returned for NaN and infinite numbers.
	ErrUnrepresentable = errors.New("value is not representable")
	// ErrUnexpectedRef is returned when a non-reference value carries a ref.
	ErrUnexpectedRef = errors.New("unexpected resource reference")
)

// DecodeError reports a persisted string that does not parse for its tag.
type DecodeError struct {
	Type Type
	Raw  string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s value %q: %v", e.Type, e.Raw, e.Err)
}

func (e *DecodeError) Unwrap() []error {
	return []error{ErrDecode, e.Err}
}

package schema

import (
	"fmt"
	"strings"

	"github.com/emrgen/mediahub/internal/resource"
	"github.com/emrgen/mediahub/internal/value"
)

// ViolationError reports why a resource does not fit its schema.
type ViolationError struct {
	Kind   resource.Kind
	Key    string
	Reason string
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("schema violation on %s.%s: %s", e.Kind, e.Key, e.Reason)
}

func (e *ViolationError) Unwrap() error {
	return ErrViolation
}

// Validate checks r against the schema of its kind: every required key is
// present, every key is declared, and every value has the declared type.
func Validate(r *resource.Resource) error {
	s, err := For(r.Kind)
	if err != nil {
		return err
	}
	if strings.TrimSpace(r.Title) == "" {
		return &ViolationError{Kind: r.Kind, Key: "title", Reason: "title is empty"}
	}

	for _, f := range s.Fields {
		if _, ok := r.Values[f.Key]; !ok && f.Required {
			return &ViolationError{Kind: r.Kind, Key: f.Key, Reason: "required attribute is missing"}
		}
	}

	for _, key := range r.Keys() {
		f, ok := s.Field(key)
		if !ok {
			return &ViolationError{Kind: r.Kind, Key: key, Reason: "attribute is not declared"}
		}
		if err := checkField(f, r.Values[key]); err != nil {
			return &ViolationError{Kind: r.Kind, Key: key, Reason: err.Error()}
		}
	}

	return nil
}

func checkField(f Field, field value.Field) error {
	switch v := field.(type) {
	case value.Value:
		if f.IsList() {
			return fmt.Errorf("expected a %s list, got a single value", f.Type)
		}
		if v.Type != f.Type {
			return fmt.Errorf("expected %s, got %s", f.Type, v.Type)
		}
		if f.Type == value.TypeReference && v.Ref == nil {
			return fmt.Errorf("reference has no target")
		}
		return v.Validate()
	case value.List:
		if !f.IsList() {
			return fmt.Errorf("expected %s, got a list", f.Type)
		}
		return v.Validate()
	default:
		return fmt.Errorf("unsupported field %T", field)
	}
}

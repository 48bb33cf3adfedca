// Package value holds the typed attribute values of a resource and the codec
// that turns them into their persisted string form.
package value

import (
	"fmt"
	"net/url"
	"time"

	"github.com/emrgen/mediahub/internal/source"
	"github.com/google/uuid"
)

// Type is the closed set of value type tags.
type Type int

const (
	TypeText Type = iota
	TypeNumber
	TypeDate
	TypeURL
	TypeSource
	TypeReference
	TypeReferenceList

	numTypes
)

var typeTags = [numTypes]string{
	TypeText:          "text",
	TypeNumber:        "number",
	TypeDate:          "date",
	TypeURL:           "url",
	TypeSource:        "source",
	TypeReference:     "resource",
	TypeReferenceList: "resource-list",
}

// ParseType returns the Type for a persisted tag.
func ParseType(tag string) (Type, error) {
	for t, s := range typeTags {
		if s == tag {
			return Type(t), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownType, tag)
}

// Types returns every tag in declaration order.
func Types() []Type {
	all := make([]Type, 0, numTypes)
	for t := TypeText; t < numTypes; t++ {
		all = append(all, t)
	}
	return all
}

func (t Type) String() string {
	if !t.Valid() {
		return fmt.Sprintf("type(%d)", int(t))
	}
	return typeTags[t]
}

func (t Type) Valid() bool {
	return t >= 0 && t < numTypes
}

// IsReference reports whether values of this type point at another resource.
func (t Type) IsReference() bool {
	return t == TypeReference || t == TypeReferenceList
}

// Payload is the typed content of a Value. The set of implementations is
// closed: Text, Number, Date, URL, Source, Title and IDs.
type Payload interface {
	payloadType() Type
}

type Text string

type Number float64

type Date struct{ time.Time }

type URL struct{ url.URL }

type Source source.Type

// Title is the payload of a resource reference: the cached title of the
// referenced resource.
type Title string

// IDs is the payload of a resource-list: the referenced ids in list order.
type IDs []uuid.UUID

func (Text) payloadType() Type   { return TypeText }
func (Number) payloadType() Type { return TypeNumber }
func (Date) payloadType() Type   { return TypeDate }
func (URL) payloadType() Type    { return TypeURL }
func (Source) payloadType() Type { return TypeSource }
func (Title) payloadType() Type  { return TypeReference }
func (IDs) payloadType() Type    { return TypeReferenceList }

// Field is either a single Value or an ordered List of reference values.
type Field interface {
	isField()
}

// Value is one typed attribute value. Ref is only set for reference types and
// then names the resource whose title is carried in the payload.
type Value struct {
	Type    Type
	Payload Payload
	Ref     *uuid.UUID
}

func (Value) isField() {}

// List is an ordered sequence of reference values sharing one attribute key.
type List []Value

func (List) isField() {}

func NewText(s string) Value {
	return Value{Type: TypeText, Payload: Text(s)}
}

func NewNumber(n float64) Value {
	return Value{Type: TypeNumber, Payload: Number(n)}
}

func NewDate(t time.Time) Value {
	return Value{Type: TypeDate, Payload: Date{t}}
}

func NewURL(u url.URL) Value {
	return Value{Type: TypeURL, Payload: URL{u}}
}

// ParseURL builds a url value from its string form.
func ParseURL(raw string) (Value, error) {
	p, err := Deserialize(raw, TypeURL)
	if err != nil {
		return Value{}, err
	}
	return Value{Type: TypeURL, Payload: p}, nil
}

func NewSource(s source.Type) Value {
	return Value{Type: TypeSource, Payload: Source(s)}
}

// NewReference builds a reference to the resource id with its current title.
func NewReference(title string, id uuid.UUID) Value {
	ref := id
	return Value{Type: TypeReference, Payload: Title(title), Ref: &ref}
}

// Validate checks that the payload matches the type tag and that Ref is only
// present on reference values.
func (v Value) Validate() error {
	if !v.Type.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownType, int(v.Type))
	}
	if v.Payload == nil {
		return fmt.Errorf("%w: missing payload for %s", ErrTypeMismatch, v.Type)
	}
	if v.Payload.payloadType() != v.Type {
		return fmt.Errorf("%w: %s payload tagged %s", ErrTypeMismatch, v.Payload.payloadType(), v.Type)
	}
	if v.Ref != nil && !v.Type.IsReference() {
		return fmt.Errorf("%w: %s value carries a reference", ErrUnexpectedRef, v.Type)
	}
	if u, ok := v.Payload.(URL); ok && !absolute(u.URL) {
		return fmt.Errorf("%w: not an absolute url: %q", ErrUnrepresentable, u.String())
	}
	return nil
}

// Serialize returns the persisted form of the value payload.
func (v Value) Serialize() (string, error) {
	return Serialize(v.Payload, v.Type)
}

// String renders the value for display.
func (v Value) String() string {
	s, err := v.Serialize()
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return s
}

// Decode rebuilds a value from its persisted parts.
func Decode(t Type, raw string, ref *uuid.UUID) (Value, error) {
	p, err := Deserialize(raw, t)
	if err != nil {
		return Value{}, err
	}
	if !t.IsReference() {
		ref = nil
	}
	return Value{Type: t, Payload: p, Ref: ref}, nil
}

// IDs returns the referenced ids of the list in order.
func (l List) IDs() IDs {
	ids := make(IDs, 0, len(l))
	for _, v := range l {
		if v.Ref != nil {
			ids = append(ids, *v.Ref)
		}
	}
	return ids
}

// Contains reports whether the list already references id.
func (l List) Contains(id uuid.UUID) bool {
	for _, v := range l {
		if v.Ref != nil && *v.Ref == id {
			return true
		}
	}
	return false
}

// Validate checks every item is a reference value with a target.
func (l List) Validate() error {
	for i, v := range l {
		if v.Type != TypeReference || v.Ref == nil {
			return fmt.Errorf("%w: list item %d is not a resource reference", ErrTypeMismatch, i)
		}
		if err := v.Validate(); err != nil {
			return fmt.Errorf("list item %d: %w", i, err)
		}
	}
	return nil
}

package value

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

type wireValue struct {
	Type  string     `json:"type"`
	Value string     `json:"value"`
	Ref   *uuid.UUID `json:"ref,omitempty"`
}

type wireField struct {
	Type  string      `json:"type"`
	Array bool        `json:"array,omitempty"`
	Value string      `json:"value,omitempty"`
	Ref   *uuid.UUID  `json:"ref,omitempty"`
	Items []wireValue `json:"items,omitempty"`
}

func toWire(v Value) (wireValue, error) {
	raw, err := v.Serialize()
	if err != nil {
		return wireValue{}, err
	}
	return wireValue{Type: v.Type.String(), Value: raw, Ref: v.Ref}, nil
}

func fromWire(w wireValue) (Value, error) {
	t, err := ParseType(w.Type)
	if err != nil {
		return Value{}, err
	}
	return Decode(t, w.Value, w.Ref)
}

func (v Value) MarshalJSON() ([]byte, error) {
	w, err := toWire(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	decoded, err := fromWire(w)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

// MarshalField encodes a Value or a List.
func MarshalField(f Field) ([]byte, error) {
	switch f := f.(type) {
	case Value:
		w, err := toWire(f)
		if err != nil {
			return nil, err
		}
		return json.Marshal(wireField{Type: w.Type, Value: w.Value, Ref: w.Ref})
	case List:
		items := make([]wireValue, len(f))
		for i, v := range f {
			w, err := toWire(v)
			if err != nil {
				return nil, err
			}
			items[i] = w
		}
		return json.Marshal(wireField{Type: TypeReferenceList.String(), Array: true, Items: items})
	default:
		return nil, fmt.Errorf("%w: unknown field %T", ErrTypeMismatch, f)
	}
}

// UnmarshalField decodes what MarshalField produced.
func UnmarshalField(data []byte) (Field, error) {
	var w wireField
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	if !w.Array {
		return fromWire(wireValue{Type: w.Type, Value: w.Value, Ref: w.Ref})
	}
	list := make(List, len(w.Items))
	for i, item := range w.Items {
		v, err := fromWire(item)
		if err != nil {
			return nil, err
		}
		list[i] = v
	}
	return list, nil
}

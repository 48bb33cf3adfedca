package value

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"time"

	"github.com/emrgen/mediahub/internal/source"
	"github.com/google/uuid"
)

// DateLayout is the persisted form of dates. Dates are stored in UTC.
const DateLayout = time.RFC3339Nano

type codec struct {
	encode func(Payload) (string, error)
	decode func(string) (Payload, error)
}

// codecs is indexed by Type; every tag must have an entry.
var codecs = [numTypes]codec{
	TypeText: {
		encode: func(p Payload) (string, error) { return string(p.(Text)), nil },
		decode: func(s string) (Payload, error) { return Text(s), nil },
	},
	TypeNumber: {
		encode: encodeNumber,
		decode: decodeNumber,
	},
	TypeDate: {
		encode: func(p Payload) (string, error) {
			return p.(Date).UTC().Format(DateLayout), nil
		},
		decode: func(s string) (Payload, error) {
			t, err := time.Parse(DateLayout, s)
			if err != nil {
				return nil, err
			}
			return Date{t.UTC()}, nil
		},
	},
	TypeURL: {
		encode: func(p Payload) (string, error) {
			u := p.(URL)
			if !absolute(u.URL) {
				return "", fmt.Errorf("%w: not an absolute url: %q", ErrUnrepresentable, u.String())
			}
			return u.String(), nil
		},
		decode: decodeURL,
	},
	TypeSource: {
		encode: func(p Payload) (string, error) {
			s := source.Type(p.(Source))
			if !s.Valid() {
				return "", fmt.Errorf("%w: %q", source.ErrUnknownSource, string(s))
			}
			return s.String(), nil
		},
		decode: func(s string) (Payload, error) {
			t, err := source.Parse(s)
			if err != nil {
				return nil, err
			}
			return Source(t), nil
		},
	},
	TypeReference: {
		encode: func(p Payload) (string, error) { return string(p.(Title)), nil },
		decode: func(s string) (Payload, error) { return Title(s), nil },
	},
	TypeReferenceList: {
		encode: encodeIDs,
		decode: decodeIDs,
	},
}

// Serialize returns the persisted string form of p under tag t.
func Serialize(p Payload, t Type) (string, error) {
	if !t.Valid() {
		return "", fmt.Errorf("%w: %d", ErrUnknownType, int(t))
	}
	if p == nil || p.payloadType() != t {
		return "", fmt.Errorf("%w: cannot serialize %T as %s", ErrTypeMismatch, p, t)
	}
	return codecs[t].encode(p)
}

// Deserialize parses raw under tag t. Parse failures are *DecodeError.
func Deserialize(raw string, t Type) (Payload, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, int(t))
	}
	p, err := codecs[t].decode(raw)
	if err != nil {
		return nil, &DecodeError{Type: t, Raw: raw, Err: err}
	}
	return p, nil
}

func encodeNumber(p Payload) (string, error) {
	f := float64(p.(Number))
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("%w: %v", ErrUnrepresentable, f)
	}
	return strconv.FormatFloat(f, 'g', -1, 64), nil
}

func decodeNumber(s string) (Payload, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: %q", ErrUnrepresentable, s)
	}
	return Number(f), nil
}

func decodeURL(s string) (Payload, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	if !absolute(*u) {
		return nil, fmt.Errorf("not an absolute url: %q", s)
	}
	return URL{*u}, nil
}

func absolute(u url.URL) bool {
	return u.Scheme != "" && u.Host != ""
}

func encodeIDs(p Payload) (string, error) {
	ids := p.(IDs)
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeIDs(s string) (Payload, error) {
	var raw []string
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, err
	}
	ids := make(IDs, len(raw))
	for i, r := range raw {
		id, err := uuid.Parse(r)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

package value

import (
	"net/url"
	"testing"
	"time"

	"github.com/emrgen/mediahub/internal/source"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecTableCoversEveryType(t *testing.T) {
	for _, typ := range Types() {
		assert.NotNil(t, codecs[typ].encode, "missing encoder for %s", typ)
		assert.NotNil(t, codecs[typ].decode, "missing decoder for %s", typ)
		parsed, err := ParseType(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, parsed)
	}
}

func TestRoundTrip(t *testing.T) {
	u, err := url.Parse("https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC?si=abc")
	require.NoError(t, err)
	at := time.Date(2021, 3, 14, 15, 9, 26, 535897932, time.FixedZone("CET", 3600))

	tests := []struct {
		name    string
		typ     Type
		payload Payload
	}{
		{name: "text", typ: TypeText, payload: Text("Never Gonna Give You Up")},
		{name: "empty text", typ: TypeText, payload: Text("")},
		{name: "integer number", typ: TypeNumber, payload: Number(213)},
		{name: "fractional number", typ: TypeNumber, payload: Number(0.1 + 0.2)},
		{name: "negative number", typ: TypeNumber, payload: Number(-1e-300)},
		{name: "url", typ: TypeURL, payload: URL{*u}},
		{name: "source", typ: TypeSource, payload: Source(source.YouTube)},
		{name: "reference title", typ: TypeReference, payload: Title("Whenever You Need Somebody")},
		{name: "reference list", typ: TypeReferenceList, payload: IDs{uuid.New(), uuid.New(), uuid.New()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := Serialize(tt.payload, tt.typ)
			require.NoError(t, err)

			got, err := Deserialize(raw, tt.typ)
			require.NoError(t, err)
			if tt.typ == TypeURL {
				gotURL := got.(URL)
				wantURL := tt.payload.(URL)
				assert.Equal(t, wantURL.String(), gotURL.String())
				return
			}
			assert.Equal(t, tt.payload, got)
		})
	}

	t.Run("date keeps the instant", func(t *testing.T) {
		raw, err := Serialize(Date{at}, TypeDate)
		require.NoError(t, err)
		got, err := Deserialize(raw, TypeDate)
		require.NoError(t, err)
		assert.True(t, at.Equal(got.(Date).Time), "got %v want %v", got, at)
	})

	t.Run("empty reference list", func(t *testing.T) {
		raw, err := Serialize(IDs{}, TypeReferenceList)
		require.NoError(t, err)
		assert.Equal(t, "[]", raw)
		got, err := Deserialize(raw, TypeReferenceList)
		require.NoError(t, err)
		assert.Len(t, got, 0)
	})
}

func TestDeserializeErrors(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
		raw  string
	}{
		{name: "non numeric number", typ: TypeNumber, raw: "three"},
		{name: "nan number", typ: TypeNumber, raw: "NaN"},
		{name: "malformed date", typ: TypeDate, raw: "14/03/2021"},
		{name: "relative url", typ: TypeURL, raw: "/just/a/path"},
		{name: "unknown source", typ: TypeSource, raw: "napster"},
		{name: "list not json", typ: TypeReferenceList, raw: "a,b"},
		{name: "list with bad id", typ: TypeReferenceList, raw: `["not-a-uuid"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Deserialize(tt.raw, tt.typ)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDecode)

			var decodeErr *DecodeError
			require.ErrorAs(t, err, &decodeErr)
			assert.Equal(t, tt.typ, decodeErr.Type)
			assert.Equal(t, tt.raw, decodeErr.Raw)
		})
	}
}

func TestSerializeRejectsMismatch(t *testing.T) {
	_, err := Serialize(Text("x"), TypeNumber)
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = Serialize(nil, TypeText)
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = Serialize(Text("x"), Type(42))
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestSerializeRejectsRelativeURL(t *testing.T) {
	for _, u := range []url.URL{{Path: "/x"}, {Scheme: "https"}, {Host: "example.com", Path: "/x"}} {
		v := NewURL(u)
		assert.ErrorIs(t, v.Validate(), ErrUnrepresentable, u.String())
		_, err := v.Serialize()
		assert.ErrorIs(t, err, ErrUnrepresentable, u.String())
	}

	abs := NewURL(url.URL{Scheme: "https", Host: "example.com", Path: "/x"})
	require.NoError(t, abs.Validate())
	raw, err := abs.Serialize()
	require.NoError(t, err)
	back, err := Decode(TypeURL, raw, nil)
	require.NoError(t, err)
	assert.Equal(t, abs.String(), back.String())
}

func TestValueValidate(t *testing.T) {
	id := uuid.New()

	assert.NoError(t, NewText("a").Validate())
	assert.NoError(t, NewReference("Abbey Road", id).Validate())

	withRef := NewText("a")
	withRef.Ref = &id
	assert.ErrorIs(t, withRef.Validate(), ErrUnexpectedRef)

	mismatched := Value{Type: TypeDate, Payload: Text("yesterday")}
	assert.ErrorIs(t, mismatched.Validate(), ErrTypeMismatch)
}

func TestDecodeDropsRefOnScalars(t *testing.T) {
	id := uuid.New()
	v, err := Decode(TypeText, "hello", &id)
	require.NoError(t, err)
	assert.Nil(t, v.Ref)

	v, err = Decode(TypeReference, "Abbey Road", &id)
	require.NoError(t, err)
	require.NotNil(t, v.Ref)
	assert.Equal(t, id, *v.Ref)
}

func TestFieldJSON(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	list := List{NewReference("Come Together", a), NewReference("Something", b)}

	data, err := MarshalField(list)
	require.NoError(t, err)
	got, err := UnmarshalField(data)
	require.NoError(t, err)
	assert.Equal(t, list, got)
	assert.Equal(t, IDs{a, b}, got.(List).IDs())

	data, err = MarshalField(NewNumber(42))
	require.NoError(t, err)
	got, err = UnmarshalField(data)
	require.NoError(t, err)
	assert.Equal(t, NewNumber(42), got)
}

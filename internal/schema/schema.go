// Package schema declares which attributes each resource kind carries.
package schema

import (
	"errors"
	"fmt"

	"github.com/emrgen/mediahub/internal/resource"
	"github.com/emrgen/mediahub/internal/value"
)

const (
	KeyName        = "name"
	KeySource      = "source"
	KeyURL         = "url"
	KeyItems       = "items"
	KeySongs       = "songs"
	KeyArtist      = "artist"
	KeyAlbum       = "album"
	KeyChannel     = "channel"
	KeyDescription = "description"
	KeyDuration    = "duration"
)

// DefaultRefWeight is the progress share given to a nested reference import
// whose field does not declare one.
const DefaultRefWeight = 0.1

var (
	ErrUnknownKind = errors.New("unknown resource kind")
	ErrViolation   = errors.New("schema violation")
)

// Field declares one attribute of a resource kind.
type Field struct {
	Key      string
	Type     value.Type
	Required bool
	// Inverse names the list on the referenced resource that should contain
	// the owner of this field.
	Inverse string
	// Weight is the share of the owner's import progress spent importing the
	// referenced resource.
	Weight float64
}

// IsList reports whether the field holds an ordered reference list.
func (f Field) IsList() bool {
	return f.Type == value.TypeReferenceList
}

// RefWeight returns the progress weight of a reference field.
func (f Field) RefWeight() float64 {
	if f.Weight > 0 {
		return f.Weight
	}
	return DefaultRefWeight
}

// Schema is the ordered field list of a kind.
type Schema struct {
	Kind   resource.Kind
	Fields []Field
	index  map[string]int
}

func newSchema(kind resource.Kind, fields ...Field) Schema {
	s := Schema{Kind: kind, Fields: fields, index: make(map[string]int, len(fields))}
	for i, f := range fields {
		s.index[f.Key] = i
	}
	return s
}

// Field looks up a field by key.
func (s Schema) Field(key string) (Field, bool) {
	i, ok := s.index[key]
	if !ok {
		return Field{}, false
	}
	return s.Fields[i], true
}

// References returns the scalar reference fields in declaration order.
func (s Schema) References() []Field {
	var out []Field
	for _, f := range s.Fields {
		if f.Type == value.TypeReference {
			out = append(out, f)
		}
	}
	return out
}

// Lists returns the reference-list fields in declaration order.
func (s Schema) Lists() []Field {
	var out []Field
	for _, f := range s.Fields {
		if f.IsList() {
			out = append(out, f)
		}
	}
	return out
}

func name() Field {
	return Field{Key: KeyName, Type: value.TypeText, Required: true}
}

func text(key string) Field {
	return Field{Key: key, Type: value.TypeText}
}

func number(key string) Field {
	return Field{Key: key, Type: value.TypeNumber}
}

func date(key string) Field {
	return Field{Key: key, Type: value.TypeDate}
}

func link() Field {
	return Field{Key: KeyURL, Type: value.TypeURL}
}

func origin() Field {
	return Field{Key: KeySource, Type: value.TypeSource}
}

func list(key string) Field {
	return Field{Key: key, Type: value.TypeReferenceList}
}

func ref(key string, weight float64) Field {
	return Field{Key: key, Type: value.TypeReference, Weight: weight}
}

var registry = map[resource.Kind]Schema{
	resource.KindCollection: newSchema(resource.KindCollection,
		name(),
		text(KeyDescription),
		list(KeyItems),
	),
	resource.KindWebpage: newSchema(resource.KindWebpage,
		name(),
		Field{Key: KeyURL, Type: value.TypeURL, Required: true},
		text("excerpt"),
		date("addedAt"),
		origin(),
	),
	resource.KindPlaylist: newSchema(resource.KindPlaylist,
		name(),
		text(KeyDescription),
		text("owner"),
		link(),
		list(KeyItems),
		origin(),
	),
	resource.KindSong: newSchema(resource.KindSong,
		name(),
		ref(KeyArtist, 0.1),
		Field{Key: KeyAlbum, Type: value.TypeReference, Inverse: KeySongs, Weight: 0.3},
		number(KeyDuration),
		number("trackNumber"),
		link(),
		origin(),
	),
	resource.KindArtist: newSchema(resource.KindArtist,
		name(),
		text("genres"),
		number("popularity"),
		link(),
		origin(),
	),
	resource.KindAlbum: newSchema(resource.KindAlbum,
		name(),
		ref(KeyArtist, 0.1),
		date("releaseDate"),
		number("totalTracks"),
		link(),
		list(KeySongs),
		origin(),
	),
	resource.KindVideo: newSchema(resource.KindVideo,
		name(),
		ref(KeyChannel, 0.2),
		text(KeyDescription),
		date("publishedAt"),
		number(KeyDuration),
		link(),
		origin(),
	),
	resource.KindChannel: newSchema(resource.KindChannel,
		name(),
		text(KeyDescription),
		number("subscribers"),
		link(),
		origin(),
	),
	resource.KindRSSFeed: newSchema(resource.KindRSSFeed,
		name(),
		Field{Key: KeyURL, Type: value.TypeURL, Required: true},
		text(KeyDescription),
	),
}

// For returns the schema of kind.
func For(kind resource.Kind) (Schema, error) {
	s, ok := registry[kind]
	if !ok {
		return Schema{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return s, nil
}

// MustFor is For for kinds known at compile time.
func MustFor(kind resource.Kind) Schema {
	s, err := For(kind)
	if err != nil {
		panic(err)
	}
	return s
}

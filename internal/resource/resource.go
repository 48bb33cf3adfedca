// Package resource defines the normalized, typed view of one piece of content.
package resource

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/emrgen/mediahub/internal/source"
	"github.com/emrgen/mediahub/internal/value"
	"github.com/google/uuid"
)

// Kind is the closed set of resource types.
type Kind string

const (
	KindCollection Kind = "collection"
	KindWebpage    Kind = "webpage"
	KindPlaylist   Kind = "playlist"
	KindSong       Kind = "song"
	KindArtist     Kind = "artist"
	KindAlbum      Kind = "album"
	KindVideo      Kind = "video"
	KindChannel    Kind = "channel"
	KindRSSFeed    Kind = "rss-feed"
)

var ErrUnknownKind = errors.New("unknown resource kind")

var kinds = []Kind{
	KindCollection,
	KindWebpage,
	KindPlaylist,
	KindSong,
	KindArtist,
	KindAlbum,
	KindVideo,
	KindChannel,
	KindRSSFeed,
}

// Kinds returns every resource kind.
func Kinds() []Kind {
	return append([]Kind(nil), kinds...)
}

// ParseKind returns the Kind for its tag.
func ParseKind(s string) (Kind, error) {
	for _, k := range kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Resource is one normalized entity.
type Resource struct {
	ID          uuid.UUID
	Title       string
	Kind        Kind
	IsFavourite bool
	Thumbnail   *uuid.UUID
	Remotes     map[source.Type]string
	Values      map[string]value.Field
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// New returns an empty resource of the given kind.
func New(kind Kind, title string) *Resource {
	return &Resource{
		Title:   title,
		Kind:    kind,
		Remotes: make(map[source.Type]string),
		Values:  make(map[string]value.Field),
	}
}

// Value returns the scalar value stored under key.
func (r *Resource) Value(key string) (value.Value, bool) {
	f, ok := r.Values[key]
	if !ok {
		return value.Value{}, false
	}
	v, ok := f.(value.Value)
	return v, ok
}

// List returns the reference list stored under key.
func (r *Resource) List(key string) (value.List, bool) {
	f, ok := r.Values[key]
	if !ok {
		return nil, false
	}
	l, ok := f.(value.List)
	return l, ok
}

func (r *Resource) Set(key string, f value.Field) {
	if r.Values == nil {
		r.Values = make(map[string]value.Field)
	}
	r.Values[key] = f
}

// Remote returns the external uri of this resource in src.
func (r *Resource) Remote(src source.Type) (string, bool) {
	uri, ok := r.Remotes[src]
	return uri, ok
}

// RemoteSources returns the linked sources in a stable order.
func (r *Resource) RemoteSources() []source.Type {
	out := make([]source.Type, 0, len(r.Remotes))
	for s := range r.Remotes {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Reference returns a value pointing at this resource.
func (r *Resource) Reference() value.Value {
	return value.NewReference(r.Title, r.ID)
}

// Keys returns the attribute keys in sorted order.
func (r *Resource) Keys() []string {
	keys := make([]string, 0, len(r.Values))
	for k := range r.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a copy that shares no maps with r.
func (r *Resource) Clone() *Resource {
	c := *r
	c.Remotes = make(map[source.Type]string, len(r.Remotes))
	for k, v := range r.Remotes {
		c.Remotes[k] = v
	}
	c.Values = make(map[string]value.Field, len(r.Values))
	for k, f := range r.Values {
		if l, ok := f.(value.List); ok {
			f = append(value.List(nil), l...)
		}
		c.Values[k] = f
	}
	if r.Thumbnail != nil {
		id := *r.Thumbnail
		c.Thumbnail = &id
	}
	return &c
}

type wireResource struct {
	ID          uuid.UUID                  `json:"id"`
	Title       string                     `json:"title"`
	Kind        Kind                       `json:"type"`
	IsFavourite bool                       `json:"isFavourite"`
	Thumbnail   *uuid.UUID                 `json:"thumbnail,omitempty"`
	Remotes     map[source.Type]string     `json:"remotes,omitempty"`
	Values      map[string]json.RawMessage `json:"values,omitempty"`
	CreatedAt   time.Time                  `json:"createdAt"`
	UpdatedAt   time.Time                  `json:"updatedAt"`
}

func (r *Resource) MarshalJSON() ([]byte, error) {
	w := wireResource{
		ID:          r.ID,
		Title:       r.Title,
		Kind:        r.Kind,
		IsFavourite: r.IsFavourite,
		Thumbnail:   r.Thumbnail,
		Remotes:     r.Remotes,
		Values:      make(map[string]json.RawMessage, len(r.Values)),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	for k, f := range r.Values {
		data, err := value.MarshalField(f)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", k, err)
		}
		w.Values[k] = data
	}
	return json.Marshal(w)
}

func (r *Resource) UnmarshalJSON(data []byte) error {
	var w wireResource
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = Resource{
		ID:          w.ID,
		Title:       w.Title,
		Kind:        w.Kind,
		IsFavourite: w.IsFavourite,
		Thumbnail:   w.Thumbnail,
		Remotes:     w.Remotes,
		Values:      make(map[string]value.Field, len(w.Values)),
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}
	if r.Remotes == nil {
		r.Remotes = make(map[source.Type]string)
	}
	for k, raw := range w.Values {
		f, err := value.UnmarshalField(raw)
		if err != nil {
			return fmt.Errorf("unmarshal %s: %w", k, err)
		}
		r.Values[k] = f
	}
	return nil
}

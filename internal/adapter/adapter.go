// Package adapter defines the contract every external source implements.
// Adapters translate one source's API into Payloads and SearchResults; they
// never touch the resource store.
package adapter

import (
	"context"
	"strings"
	"time"

	"github.com/emrgen/mediahub/internal/resource"
	"github.com/emrgen/mediahub/internal/source"
	"github.com/emrgen/mediahub/internal/value"
)

// Match is one recognized identifier in free text. Generic matches only say
// "this looks like something the source can store", e.g. any web URL.
type Match struct {
	Source  source.Type   `json:"source"`
	Kind    resource.Kind `json:"type"`
	URI     string        `json:"uri"`
	Generic bool          `json:"generic,omitempty"`
}

type SearchResult struct {
	Source       source.Type   `json:"source"`
	URI          string        `json:"uri"`
	Title        string        `json:"title"`
	Kind         resource.Kind `json:"type"`
	Subtitle     string        `json:"subtitle,omitempty"`
	ThumbnailURL string        `json:"thumbnailUrl,omitempty"`
	// Rank is the position the source itself gave the result.
	Rank int `json:"rank"`
}

// Ref names a nested entity that the orchestrator imports on its own.
type Ref struct {
	Kind  resource.Kind
	URI   string
	Title string
}

// Payload is a single fetched entity. Nested entities are only referenced.
type Payload struct {
	Kind         resource.Kind
	URI          string
	Title        string
	ThumbnailURL string
	Values       map[string]value.Value
	Refs         map[string]Ref
	Lists        map[string][]Ref
	// LocalOnly marks entities without a durable catalog identity.
	LocalOnly bool
}

func NewPayload(kind resource.Kind, uri, title string) *Payload {
	return &Payload{
		Kind:   kind,
		URI:    uri,
		Title:  title,
		Values: make(map[string]value.Value),
		Refs:   make(map[string]Ref),
		Lists:  make(map[string][]Ref),
	}
}

// SetText stores a non-empty text value.
func (p *Payload) SetText(key, s string) {
	if s = strings.TrimSpace(s); s != "" {
		p.Values[key] = value.NewText(s)
	}
}

func (p *Payload) SetNumber(key string, n float64) {
	p.Values[key] = value.NewNumber(n)
}

// SetDate stores t unless it is zero.
func (p *Payload) SetDate(key string, t time.Time) {
	if !t.IsZero() {
		p.Values[key] = value.NewDate(t)
	}
}

// SetURL stores raw when it is an absolute URL; anything else is dropped.
func (p *Payload) SetURL(key, raw string) {
	if raw == "" {
		return
	}
	if v, err := value.ParseURL(raw); err == nil {
		p.Values[key] = v
	}
}

// Credentials is the opaque token blob persisted per user and source.
type Credentials struct {
	Data      string
	ExpiresAt time.Time
}

// Handle is an authenticated client for one user.
type Handle interface {
	// Credentials returns the credentials in use, refreshed if the source
	// rotated them.
	Credentials() (*Credentials, error)
}

type Adapter interface {
	Source() source.Type
	// Kinds lists the resource kinds the adapter can fetch.
	Kinds() []resource.Kind
	// DetectURI recognizes the source's identifiers in text. It never does I/O.
	DetectURI(text string) []Match
	Authenticate(ctx context.Context, creds *Credentials) (Handle, error)
	Search(ctx context.Context, h Handle, kind resource.Kind, text string, limit int) ([]SearchResult, error)
	Fetch(ctx context.Context, h Handle, kind resource.Kind, uri string) (*Payload, error)
	Play(ctx context.Context, h Handle, kind resource.Kind, uri, device string) error
}

// Supports reports whether a can fetch kind.
func Supports(a Adapter, kind resource.Kind) bool {
	for _, k := range a.Kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

// UniqueMatches drops repeated (kind, uri) pairs, keeping the first.
func UniqueMatches(matches []Match) []Match {
	seen := make(map[Match]bool, len(matches))
	out := matches[:0]
	for _, m := range matches {
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

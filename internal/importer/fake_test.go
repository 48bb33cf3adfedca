package importer

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/emrgen/mediahub/internal/adapter"
	"github.com/emrgen/mediahub/internal/resource"
	"github.com/emrgen/mediahub/internal/schema"
	"github.com/emrgen/mediahub/internal/source"
	"github.com/emrgen/mediahub/internal/value"
)

// fakeAdapter serves scripted payloads. URIs look like "<source>:<kind>:<id>";
// a generic adapter recognizes any http(s) link instead.
type fakeAdapter struct {
	mu       sync.Mutex
	src      source.Type
	kinds    []resource.Kind
	generic  bool
	payloads map[string]*adapter.Payload
	// failures are returned, in order, before the payload is served.
	failures map[string][]error
	fetches  map[string]int
	results  map[resource.Kind][]adapter.SearchResult
	searchErr error
	searches int
	plays    []string
	creds    *adapter.Credentials
	authed   []*adapter.Credentials
	// gates hold a fetch until closed; entered receives the held uri.
	gates     map[string]chan struct{}
	entered   chan string
	abandoned int
}

func newFake(src source.Type, kinds ...resource.Kind) *fakeAdapter {
	return &fakeAdapter{
		src:      src,
		kinds:    kinds,
		payloads: make(map[string]*adapter.Payload),
		failures: make(map[string][]error),
		fetches:  make(map[string]int),
		results:  make(map[resource.Kind][]adapter.SearchResult),
	}
}

func (f *fakeAdapter) add(p *adapter.Payload) *adapter.Payload {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads[p.URI] = p
	return p
}

func (f *fakeAdapter) fail(uri string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[uri] = append(f.failures[uri], errs...)
}

func (f *fakeAdapter) hold(uri string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gates == nil {
		f.gates = make(map[string]chan struct{})
		f.entered = make(chan string, 8)
	}
	gate := make(chan struct{})
	f.gates[uri] = gate
	return gate
}

func (f *fakeAdapter) abandonedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.abandoned
}

func (f *fakeAdapter) fetchCount(uri string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches[uri]
}

func (f *fakeAdapter) Source() source.Type     { return f.src }
func (f *fakeAdapter) Kinds() []resource.Kind { return f.kinds }

func (f *fakeAdapter) DetectURI(text string) []adapter.Match {
	var out []adapter.Match
	for _, word := range strings.Fields(text) {
		if f.generic {
			if strings.HasPrefix(word, "http://") || strings.HasPrefix(word, "https://") {
				out = append(out, adapter.Match{Kind: resource.KindWebpage, URI: word, Generic: true})
			}
			continue
		}
		parts := strings.SplitN(word, ":", 3)
		if len(parts) == 3 && parts[0] == f.src.String() {
			out = append(out, adapter.Match{Kind: resource.Kind(parts[1]), URI: word})
		}
	}
	return out
}

type fakeHandle struct {
	creds *adapter.Credentials
}

func (h fakeHandle) Credentials() (*adapter.Credentials, error) {
	return h.creds, nil
}

func (f *fakeAdapter) Authenticate(_ context.Context, creds *adapter.Credentials) (adapter.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authed = append(f.authed, creds)
	if f.creds != nil {
		return fakeHandle{creds: f.creds}, nil
	}
	return fakeHandle{creds: creds}, nil
}

func (f *fakeAdapter) Search(_ context.Context, _ adapter.Handle, kind resource.Kind, text string, limit int) ([]adapter.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return append([]adapter.SearchResult(nil), f.results[kind]...), nil
}

func (f *fakeAdapter) Fetch(ctx context.Context, _ adapter.Handle, kind resource.Kind, uri string) (*adapter.Payload, error) {
	f.mu.Lock()
	gate := f.gates[uri]
	f.mu.Unlock()
	if gate != nil {
		f.entered <- uri
		select {
		case <-gate:
		case <-ctx.Done():
			f.mu.Lock()
			f.abandoned++
			f.mu.Unlock()
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches[uri]++

	if errs := f.failures[uri]; len(errs) > 0 {
		f.failures[uri] = errs[1:]
		return nil, errs[0]
	}
	if strings.Contains(uri, ":local:") {
		p := adapter.NewPayload(kind, uri, "")
		p.LocalOnly = true
		return p, nil
	}
	p, ok := f.payloads[uri]
	if !ok {
		return nil, fmt.Errorf("%s: %w", uri, adapter.ErrNotFound)
	}
	if p.Kind != kind {
		return nil, fmt.Errorf("%s is a %s: %w", uri, p.Kind, adapter.ErrInvalidURI)
	}
	cp := *p
	return &cp, nil
}

func (f *fakeAdapter) Play(_ context.Context, _ adapter.Handle, kind resource.Kind, uri, device string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays = append(f.plays, fmt.Sprintf("%s %s %s", kind, uri, device))
	return nil
}

func ref(kind resource.Kind, uri, title string) adapter.Ref {
	return adapter.Ref{Kind: kind, URI: uri, Title: title}
}

func artistPayload(uri, title string) *adapter.Payload {
	p := adapter.NewPayload(resource.KindArtist, uri, title)
	p.SetText("genres", "rock")
	return p
}

func albumPayload(uri, title string, artist *adapter.Payload, songs ...*adapter.Payload) *adapter.Payload {
	p := adapter.NewPayload(resource.KindAlbum, uri, title)
	p.SetNumber("totalTracks", float64(len(songs)))
	if artist != nil {
		p.Refs[schema.KeyArtist] = ref(resource.KindArtist, artist.URI, artist.Title)
	}
	refs := make([]adapter.Ref, 0, len(songs))
	for _, s := range songs {
		refs = append(refs, ref(resource.KindSong, s.URI, s.Title))
	}
	p.Lists[schema.KeySongs] = refs
	return p
}

func songPayload(uri, title string, artist, album *adapter.Payload) *adapter.Payload {
	p := adapter.NewPayload(resource.KindSong, uri, title)
	p.Values[schema.KeyDuration] = value.NewNumber(180)
	if artist != nil {
		p.Refs[schema.KeyArtist] = ref(resource.KindArtist, artist.URI, artist.Title)
	}
	if album != nil {
		p.Refs[schema.KeyAlbum] = ref(resource.KindAlbum, album.URI, album.Title)
	}
	return p
}

func playlistPayload(uri, title string, items ...string) *adapter.Payload {
	p := adapter.NewPayload(resource.KindPlaylist, uri, title)
	refs := make([]adapter.Ref, 0, len(items))
	for _, it := range items {
		refs = append(refs, ref(resource.KindSong, it, ""))
	}
	p.Lists[schema.KeyItems] = refs
	return p
}

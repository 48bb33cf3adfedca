package pocket

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emrgen/mediahub/internal/adapter"
	"github.com/emrgen/mediahub/internal/resource"
	"github.com/emrgen/mediahub/internal/schema"
	"github.com/emrgen/mediahub/internal/value"
)

func TestCanonical(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "https://Example.com", want: "https://example.com/", ok: true},
		{in: "HTTP://example.com:80/a?b=2&a=1#frag", want: "http://example.com/a?a=1&b=2", ok: true},
		{in: "https://example.com:8443/x?utm_source=feed&id=3", want: "https://example.com:8443/x?id=3", ok: true},
		{in: "https://example.com/post.", want: "https://example.com/post", ok: true},
		{in: "ftp://example.com/file", ok: false},
		{in: "/relative/path", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Canonical(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectURIIsGeneric(t *testing.T) {
	a := New(Options{})
	matches := a.DetectURI("read https://example.com/a and https://EXAMPLE.com/a#x later")
	assert.Equal(t, []adapter.Match{{Kind: resource.KindWebpage, URI: "https://example.com/a", Generic: true}}, matches)
	assert.Empty(t, a.DetectURI("no links here"))
}

func TestAuthenticate(t *testing.T) {
	a := New(Options{})
	_, err := a.Authenticate(context.Background(), nil)
	assert.ErrorIs(t, err, adapter.ErrUnauthenticated)

	_, err = a.Authenticate(context.Background(), &adapter.Credentials{Data: `{"username":"x"}`})
	assert.ErrorIs(t, err, adapter.ErrUnauthenticated)

	h, err := a.Authenticate(context.Background(), &adapter.Credentials{Data: `{"access_token":"tok"}`})
	require.NoError(t, err)
	creds, err := h.Credentials()
	require.NoError(t, err)
	assert.Equal(t, `{"access_token":"tok"}`, creds.Data)
}

type fakePocket struct {
	saved map[string]item
	adds  int
}

func (f *fakePocket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body["access_token"] != "tok" || body["consumer_key"] != "key" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	switch r.URL.Path {
	case "/v3/get":
		if len(f.saved) == 0 {
			_, _ = io.WriteString(w, `{"status": 2, "list": []}`)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"status": 1, "list": f.saved})
	case "/v3/add":
		f.adds++
		_ = json.NewEncoder(w).Encode(map[string]any{"status": 1, "item": item{ItemID: "9", GivenURL: body["url"].(string), Title: "Added"}})
	}
}

func newTestAdapter(t *testing.T, f *fakePocket) (*Adapter, adapter.Handle) {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	a := New(Options{ConsumerKey: "key", BaseURL: srv.URL, HTTP: srv.Client()})
	h, err := a.Authenticate(context.Background(), &adapter.Credentials{Data: `{"access_token":"tok"}`})
	require.NoError(t, err)
	return a, h
}

func TestFetchSavedItem(t *testing.T) {
	f := &fakePocket{saved: map[string]item{
		"1": {ItemID: "1", GivenURL: "https://example.com/other", ResolvedTitle: "Other", SortID: 1},
		"2": {ItemID: "2", GivenURL: "https://example.com/a?utm_medium=x", ResolvedTitle: "Article", Excerpt: "intro",
			TimeAdded: "1700000000", TopImageURL: "https://img/a.png", SortID: 0},
	}}
	a, h := newTestAdapter(t, f)

	p, err := a.Fetch(context.Background(), h, resource.KindWebpage, "https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, 0, f.adds)
	assert.Equal(t, "Article", p.Title)
	assert.Equal(t, "https://img/a.png", p.ThumbnailURL)
	assert.Equal(t, value.NewText("intro"), p.Values["excerpt"])
	assert.Equal(t, value.NewDate(time.Unix(1700000000, 0).UTC()), p.Values["addedAt"])
	assert.Contains(t, p.Values, schema.KeyURL)
}

func TestFetchAddsUnsavedPage(t *testing.T) {
	f := &fakePocket{}
	a, h := newTestAdapter(t, f)

	p, err := a.Fetch(context.Background(), h, resource.KindWebpage, "https://example.com/new")
	require.NoError(t, err)
	assert.Equal(t, 1, f.adds)
	assert.Equal(t, "Added", p.Title)
	assert.Equal(t, "https://example.com/new", p.URI)
}

func TestFetchErrors(t *testing.T) {
	a, h := newTestAdapter(t, &fakePocket{})

	_, err := a.Fetch(context.Background(), h, resource.KindSong, "https://example.com")
	assert.ErrorIs(t, err, adapter.ErrUnsupported)

	_, err = a.Fetch(context.Background(), h, resource.KindWebpage, "not a url")
	assert.ErrorIs(t, err, adapter.ErrInvalidURI)

	bad, err := a.Authenticate(context.Background(), &adapter.Credentials{Data: `{"access_token":"wrong"}`})
	require.NoError(t, err)
	_, err = a.Fetch(context.Background(), bad, resource.KindWebpage, "https://example.com")
	assert.ErrorIs(t, err, adapter.ErrUnauthenticated)
}

func TestSearchOrdersBySortID(t *testing.T) {
	f := &fakePocket{saved: map[string]item{
		"1": {ItemID: "1", ResolvedURL: "https://b.example/", ResolvedTitle: "B", SortID: 1},
		"2": {ItemID: "2", ResolvedURL: "https://a.example/", ResolvedTitle: "A", SortID: 0},
	}}
	a, h := newTestAdapter(t, f)

	res, err := a.Search(context.Background(), h, resource.KindWebpage, "example", 10)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "A", res[0].Title)
	assert.Equal(t, "B", res[1].Title)
	assert.Equal(t, 1, res[1].Rank)
}

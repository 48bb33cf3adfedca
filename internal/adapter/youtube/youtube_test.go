package youtube

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/emrgen/mediahub/internal/adapter"
	"github.com/emrgen/mediahub/internal/resource"
	"github.com/emrgen/mediahub/internal/schema"
	"github.com/emrgen/mediahub/internal/value"
)

func TestDetectURI(t *testing.T) {
	tests := []struct {
		text string
		want []adapter.Match
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", []adapter.Match{{Kind: resource.KindVideo, URI: "youtube:video:dQw4w9WgXcQ"}}},
		{"https://www.youtube.com/watch?feature=share&v=dQw4w9WgXcQ", []adapter.Match{{Kind: resource.KindVideo, URI: "youtube:video:dQw4w9WgXcQ"}}},
		{"https://youtu.be/dQw4w9WgXcQ?t=10", []adapter.Match{{Kind: resource.KindVideo, URI: "youtube:video:dQw4w9WgXcQ"}}},
		{"https://youtube.com/shorts/abcdefghijk", []adapter.Match{{Kind: resource.KindVideo, URI: "youtube:video:abcdefghijk"}}},
		{"https://www.youtube.com/playlist?list=PLabc123", []adapter.Match{{Kind: resource.KindPlaylist, URI: "youtube:playlist:PLabc123"}}},
		{"https://www.youtube.com/channel/UC_x5XG1OV2P6uZZ5FSM9Ttw", []adapter.Match{{Kind: resource.KindChannel, URI: "youtube:channel:UC_x5XG1OV2P6uZZ5FSM9Ttw"}}},
		{"https://www.youtube.com/@GoogleDevelopers", []adapter.Match{{Kind: resource.KindChannel, URI: "youtube:channel:@GoogleDevelopers"}}},
		{"youtube:video:dQw4w9WgXcQ", []adapter.Match{{Kind: resource.KindVideo, URI: "youtube:video:dQw4w9WgXcQ"}}},
		{"https://vimeo.com/12345", nil},
		{"cat videos", nil},
	}

	a := New(Options{})
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, a.DetectURI(tt.text))
		})
	}
}

func TestDetectWatchInPlaylist(t *testing.T) {
	matches := New(Options{}).DetectURI("https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PLabc123")
	assert.ElementsMatch(t, []adapter.Match{
		{Kind: resource.KindVideo, URI: "youtube:video:dQw4w9WgXcQ"},
		{Kind: resource.KindPlaylist, URI: "youtube:playlist:PLabc123"},
	}, matches)
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		err  bool
	}{
		{in: "PT4M13S", want: 253},
		{in: "PT1H", want: 3600},
		{in: "P1DT2S", want: 86402},
		{in: "P1W", want: 604800},
		{in: "PT1.5S", want: 1.5},
		{in: "PT", err: true},
		{in: "4:13", err: true},
		{in: "", err: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDuration(tt.in)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func newTestAdapter(t *testing.T, h http.HandlerFunc) (*Adapter, adapter.Handle) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	a := New(Options{BaseURL: srv.URL, HTTP: srv.Client()})
	creds, err := adapter.EncodeToken(&oauth2.Token{AccessToken: "token", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	handle, err := a.Authenticate(context.Background(), creds)
	require.NoError(t, err)
	return a, handle
}

func TestFetchVideo(t *testing.T) {
	a, h := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/videos", r.URL.Path)
		assert.Equal(t, "dQw4w9WgXcQ", r.URL.Query().Get("id"))
		_, _ = io.WriteString(w, `{"items": [{
			"id": "dQw4w9WgXcQ",
			"snippet": {"title": "Never", "description": "song", "publishedAt": "2009-10-25T06:57:33Z",
				"channelId": "UCuAXFkgsw1L7xaCfnd5JJOw", "channelTitle": "Rick",
				"thumbnails": {"default": {"url": "https://i/d.jpg"}, "high": {"url": "https://i/h.jpg"}}},
			"contentDetails": {"duration": "PT3M33S"}
		}]}`)
	})

	p, err := a.Fetch(context.Background(), h, resource.KindVideo, "https://youtu.be/dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "youtube:video:dQw4w9WgXcQ", p.URI)
	assert.Equal(t, "https://i/h.jpg", p.ThumbnailURL)
	assert.Equal(t, value.NewNumber(213), p.Values[schema.KeyDuration])
	assert.Equal(t, value.NewDate(time.Date(2009, 10, 25, 6, 57, 33, 0, time.UTC)), p.Values["publishedAt"])
	assert.Equal(t, adapter.Ref{Kind: resource.KindChannel, URI: "youtube:channel:UCuAXFkgsw1L7xaCfnd5JJOw", Title: "Rick"}, p.Refs[schema.KeyChannel])
}

func TestFetchChannelByHandle(t *testing.T) {
	a, h := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "@rick", r.URL.Query().Get("forHandle"))
		_, _ = io.WriteString(w, `{"items": [{"id": "UCuAXFkgsw1L7xaCfnd5JJOw", "snippet": {"title": "Rick"}, "statistics": {"subscriberCount": "4200"}}]}`)
	})

	p, err := a.Fetch(context.Background(), h, resource.KindChannel, "youtube:channel:@rick")
	require.NoError(t, err)
	assert.Equal(t, "youtube:channel:UCuAXFkgsw1L7xaCfnd5JJOw", p.URI)
	assert.Equal(t, value.NewNumber(4200), p.Values["subscribers"])
}

func TestFetchPlaylistPages(t *testing.T) {
	a, h := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/playlists":
			_, _ = io.WriteString(w, `{"items": [{"id": "PL1", "snippet": {"title": "Mix", "channelTitle": "me"}}]}`)
		case "/playlistItems":
			if r.URL.Query().Get("pageToken") == "" {
				_, _ = io.WriteString(w, `{"items": [
					{"snippet": {"title": "A", "resourceId": {"videoId": "aaaaaaaaaaa"}}},
					{"snippet": {"title": "gone", "resourceId": {}}}
				], "nextPageToken": "p2"}`)
				return
			}
			_, _ = io.WriteString(w, `{"items": [{"snippet": {"title": "B", "resourceId": {"videoId": "bbbbbbbbbbb"}}}]}`)
		}
	})

	p, err := a.Fetch(context.Background(), h, resource.KindPlaylist, "https://www.youtube.com/playlist?list=PL1")
	require.NoError(t, err)
	assert.Equal(t, []adapter.Ref{
		{Kind: resource.KindVideo, URI: "youtube:video:aaaaaaaaaaa", Title: "A"},
		{Kind: resource.KindVideo, URI: "youtube:video:bbbbbbbbbbb", Title: "B"},
	}, p.Lists[schema.KeyItems])
	assert.Equal(t, value.NewText("me"), p.Values["owner"])
}

func TestFetchMissingVideo(t *testing.T) {
	a, h := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"items": []}`)
	})
	_, err := a.Fetch(context.Background(), h, resource.KindVideo, "youtube:video:dQw4w9WgXcQ")
	assert.ErrorIs(t, err, adapter.ErrNotFound)

	_, err = a.Fetch(context.Background(), h, resource.KindSong, "youtube:video:dQw4w9WgXcQ")
	assert.ErrorIs(t, err, adapter.ErrUnsupported)
}

func TestSearch(t *testing.T) {
	a, h := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "video", r.URL.Query().Get("type"))
		_, _ = io.WriteString(w, `{"items": [
			{"id": {"videoId": "aaaaaaaaaaa"}, "snippet": {"title": "A", "channelTitle": "chan"}},
			{"id": {"channelId": "UCx"}, "snippet": {"title": "skip"}}
		]}`)
	})

	res, err := a.Search(context.Background(), h, resource.KindVideo, "a", 5)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "youtube:video:aaaaaaaaaaa", res[0].URI)
	assert.Equal(t, "chan", res[0].Subtitle)
}

func TestPlayUnsupported(t *testing.T) {
	err := New(Options{}).Play(context.Background(), nil, resource.KindVideo, "youtube:video:dQw4w9WgXcQ", "")
	assert.ErrorIs(t, err, adapter.ErrUnsupported)
}

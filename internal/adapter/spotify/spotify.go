// Package spotify adapts the Spotify Web API.
package spotify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/emrgen/mediahub/internal/adapter"
	"github.com/emrgen/mediahub/internal/resource"
	"github.com/emrgen/mediahub/internal/schema"
	"github.com/emrgen/mediahub/internal/source"
)

const (
	DefaultBaseURL = "https://api.spotify.com"
	pageLimit      = 50
	// maxPages bounds paging through very long albums and playlists.
	maxPages = 200
)

type Options struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	BaseURL      string
	// Endpoint overrides the accounts service, mostly for tests.
	Endpoint *oauth2.Endpoint
	HTTP     *http.Client
}

var _ adapter.Adapter = (*Adapter)(nil)

type Adapter struct {
	api   *adapter.Client
	oauth *oauth2.Config
	http  *http.Client
}

func New(opts Options) *Adapter {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	endpoint := endpoints.Spotify
	if opts.Endpoint != nil {
		endpoint = *opts.Endpoint
	}
	api := adapter.NewClient(opts.HTTP, opts.BaseURL)
	return &Adapter{
		api: api,
		oauth: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.RedirectURL,
			Endpoint:     endpoint,
			Scopes: []string{
				"user-read-playback-state",
				"user-modify-playback-state",
				"playlist-read-private",
				"user-library-read",
			},
		},
		http: api.HTTP,
	}
}

func (a *Adapter) Source() source.Type {
	return source.Spotify
}

func (a *Adapter) Kinds() []resource.Kind {
	return []resource.Kind{resource.KindSong, resource.KindAlbum, resource.KindArtist, resource.KindPlaylist}
}

func (a *Adapter) DetectURI(text string) []adapter.Match {
	return detect(text)
}

// OAuthConfig exposes the client configuration for the authorization flow.
func (a *Adapter) OAuthConfig() *oauth2.Config {
	return a.oauth
}

func (a *Adapter) Authenticate(ctx context.Context, creds *adapter.Credentials) (adapter.Handle, error) {
	return adapter.NewOAuthHandle(ctx, a.oauth, creds, a.http)
}

func (a *Adapter) client(h adapter.Handle) (*adapter.Client, error) {
	hc, err := adapter.HTTPClient(h)
	if err != nil {
		return nil, err
	}
	return a.api.WithHTTP(hc), nil
}

func (a *Adapter) Fetch(ctx context.Context, h adapter.Handle, kind resource.Kind, uri string) (*adapter.Payload, error) {
	if !adapter.Supports(a, kind) {
		return nil, adapter.Unsupported(source.Spotify, "fetch", kind)
	}
	if IsLocal(uri) {
		return localTrack(uri), nil
	}

	got, id, err := parseURI(uri)
	if err != nil {
		return nil, err
	}
	if got != kind {
		return nil, fmt.Errorf("%w: %s is a %s, not a %s", adapter.ErrInvalidURI, uri, got, kind)
	}

	c, err := a.client(h)
	if err != nil {
		return nil, err
	}

	switch kind {
	case resource.KindSong:
		return a.fetchTrack(ctx, c, id)
	case resource.KindAlbum:
		return a.fetchAlbum(ctx, c, id)
	case resource.KindArtist:
		return a.fetchArtist(ctx, c, id)
	default:
		return a.fetchPlaylist(ctx, c, id)
	}
}

func (a *Adapter) fetchTrack(ctx context.Context, c *adapter.Client, id string) (*adapter.Payload, error) {
	var t trackObject
	if err := c.GetJSON(ctx, "/v1/tracks/"+url.PathEscape(id), nil, &t); err != nil {
		return nil, err
	}
	if t.IsLocal {
		return localTrack(t.URI), nil
	}

	p := adapter.NewPayload(resource.KindSong, URI(resource.KindSong, t.ID), t.Name)
	p.SetText(schema.KeyName, t.Name)
	p.SetNumber(schema.KeyDuration, float64(t.DurationMS)/1000)
	if t.TrackNumber > 0 {
		p.SetNumber("trackNumber", float64(t.TrackNumber))
	}
	p.SetURL(schema.KeyURL, t.ExternalURLs.Spotify)
	if len(t.Artists) > 0 && t.Artists[0].ID != "" {
		ar := t.Artists[0]
		p.Refs[schema.KeyArtist] = adapter.Ref{Kind: resource.KindArtist, URI: URI(resource.KindArtist, ar.ID), Title: ar.Name}
	}
	if t.Album != nil && t.Album.ID != "" {
		p.Refs[schema.KeyAlbum] = adapter.Ref{Kind: resource.KindAlbum, URI: URI(resource.KindAlbum, t.Album.ID), Title: t.Album.Name}
		p.ThumbnailURL = firstImage(t.Album.Images)
	}
	return p, nil
}

func (a *Adapter) fetchAlbum(ctx context.Context, c *adapter.Client, id string) (*adapter.Payload, error) {
	var al albumObject
	if err := c.GetJSON(ctx, "/v1/albums/"+url.PathEscape(id), nil, &al); err != nil {
		return nil, err
	}

	p := adapter.NewPayload(resource.KindAlbum, URI(resource.KindAlbum, al.ID), al.Name)
	p.ThumbnailURL = firstImage(al.Images)
	p.SetText(schema.KeyName, al.Name)
	p.SetDate("releaseDate", releaseDate(al.ReleaseDate, al.ReleaseDatePrecision))
	if al.TotalTracks > 0 {
		p.SetNumber("totalTracks", float64(al.TotalTracks))
	}
	p.SetURL(schema.KeyURL, al.ExternalURLs.Spotify)
	if len(al.Artists) > 0 && al.Artists[0].ID != "" {
		ar := al.Artists[0]
		p.Refs[schema.KeyArtist] = adapter.Ref{Kind: resource.KindArtist, URI: URI(resource.KindArtist, ar.ID), Title: ar.Name}
	}

	songs := make([]adapter.Ref, 0, al.TotalTracks)
	page := al.Tracks
	for n := 0; page != nil; n++ {
		for _, t := range page.Items {
			songs = append(songs, trackRef(t))
		}
		if page.Next == "" || n+1 >= maxPages {
			break
		}
		next := &trackPage{}
		if err := c.GetJSON(ctx, page.Next, nil, next); err != nil {
			return nil, err
		}
		page = next
	}
	p.Lists[schema.KeySongs] = songs
	return p, nil
}

func (a *Adapter) fetchArtist(ctx context.Context, c *adapter.Client, id string) (*adapter.Payload, error) {
	var ar artistObject
	if err := c.GetJSON(ctx, "/v1/artists/"+url.PathEscape(id), nil, &ar); err != nil {
		return nil, err
	}

	p := adapter.NewPayload(resource.KindArtist, URI(resource.KindArtist, ar.ID), ar.Name)
	p.ThumbnailURL = firstImage(ar.Images)
	p.SetText(schema.KeyName, ar.Name)
	p.SetText("genres", joinGenres(ar.Genres))
	if ar.Popularity != nil {
		p.SetNumber("popularity", float64(*ar.Popularity))
	}
	p.SetURL(schema.KeyURL, ar.ExternalURLs.Spotify)
	return p, nil
}

func (a *Adapter) fetchPlaylist(ctx context.Context, c *adapter.Client, id string) (*adapter.Payload, error) {
	var pl playlistObject
	if err := c.GetJSON(ctx, "/v1/playlists/"+url.PathEscape(id), nil, &pl); err != nil {
		return nil, err
	}

	p := adapter.NewPayload(resource.KindPlaylist, URI(resource.KindPlaylist, pl.ID), pl.Name)
	p.ThumbnailURL = firstImage(pl.Images)
	p.SetText(schema.KeyName, pl.Name)
	p.SetText(schema.KeyDescription, pl.Description)
	p.SetText("owner", pl.Owner.DisplayName)
	p.SetURL(schema.KeyURL, pl.ExternalURLs.Spotify)

	var items []adapter.Ref
	page := pl.Tracks
	for n := 0; page != nil; n++ {
		for _, it := range page.Items {
			// removed or unavailable tracks come back as null
			if it.Track == nil {
				continue
			}
			items = append(items, trackRef(*it.Track))
		}
		if page.Next == "" || n+1 >= maxPages {
			break
		}
		next := &playlistPage{}
		if err := c.GetJSON(ctx, page.Next, nil, next); err != nil {
			return nil, err
		}
		page = next
	}
	p.Lists[schema.KeyItems] = items
	return p, nil
}

func (a *Adapter) Search(ctx context.Context, h adapter.Handle, kind resource.Kind, text string, limit int) ([]adapter.SearchResult, error) {
	typ, ok := typeOf[kind]
	if !ok {
		return nil, adapter.Unsupported(source.Spotify, "search", kind)
	}
	if limit <= 0 || limit > pageLimit {
		limit = 20
	}

	c, err := a.client(h)
	if err != nil {
		return nil, err
	}

	q := url.Values{"q": {text}, "type": {typ}, "limit": {strconv.Itoa(limit)}}
	var res searchResponse
	if err := c.GetJSON(ctx, "/v1/search", q, &res); err != nil {
		return nil, err
	}

	var out []adapter.SearchResult
	add := func(kind resource.Kind, id, title, subtitle, thumb string) {
		if id == "" {
			return
		}
		out = append(out, adapter.SearchResult{
			Source:       source.Spotify,
			URI:          URI(kind, id),
			Title:        title,
			Kind:         kind,
			Subtitle:     subtitle,
			ThumbnailURL: thumb,
			Rank:         len(out),
		})
	}

	switch {
	case res.Tracks != nil:
		for _, t := range res.Tracks.Items {
			if t == nil {
				continue
			}
			thumb := ""
			if t.Album != nil {
				thumb = firstImage(t.Album.Images)
			}
			add(resource.KindSong, t.ID, t.Name, artistNames(t.Artists), thumb)
		}
	case res.Albums != nil:
		for _, al := range res.Albums.Items {
			if al != nil {
				add(resource.KindAlbum, al.ID, al.Name, artistNames(al.Artists), firstImage(al.Images))
			}
		}
	case res.Artists != nil:
		for _, ar := range res.Artists.Items {
			if ar != nil {
				add(resource.KindArtist, ar.ID, ar.Name, joinGenres(ar.Genres), firstImage(ar.Images))
			}
		}
	case res.Playlists != nil:
		for _, pl := range res.Playlists.Items {
			if pl != nil {
				add(resource.KindPlaylist, pl.ID, pl.Name, pl.Owner.DisplayName, firstImage(pl.Images))
			}
		}
	}

	logrus.Debugf("spotify: search %s %q returned %d results", kind, text, len(out))
	return out, nil
}

type playRequest struct {
	URIs       []string `json:"uris,omitempty"`
	ContextURI string   `json:"context_uri,omitempty"`
}

// Play starts playback on the user's active device, or on device when set.
// Songs play on their own; other kinds play as a context.
func (a *Adapter) Play(ctx context.Context, h adapter.Handle, kind resource.Kind, uri, device string) error {
	if !adapter.Supports(a, kind) {
		return adapter.Unsupported(source.Spotify, "play", kind)
	}
	if IsLocal(uri) {
		return fmt.Errorf("play %s: %w", uri, adapter.ErrLocalOnly)
	}
	got, id, err := parseURI(uri)
	if err != nil {
		return err
	}

	c, err := a.client(h)
	if err != nil {
		return err
	}

	body := playRequest{ContextURI: URI(got, id)}
	if got == resource.KindSong {
		body = playRequest{URIs: []string{URI(got, id)}}
	}
	var q url.Values
	if device != "" {
		q = url.Values{"device_id": {device}}
	}
	return c.DoJSON(ctx, http.MethodPut, "/v1/me/player/play", q, body, nil)
}

// trackRef names a track of an album or playlist. Local files keep their
// local uri so the import of that one item fails.
func trackRef(t trackObject) adapter.Ref {
	if t.IsLocal || t.ID == "" {
		return adapter.Ref{Kind: resource.KindSong, URI: t.URI, Title: t.Name}
	}
	return adapter.Ref{Kind: resource.KindSong, URI: URI(resource.KindSong, t.ID), Title: t.Name}
}

func localTrack(uri string) *adapter.Payload {
	p := adapter.NewPayload(resource.KindSong, uri, "")
	p.LocalOnly = true
	return p
}

func joinGenres(genres []string) string {
	return strings.Join(genres, ", ")
}

// Package youtube adapts the YouTube Data API v3.
package youtube

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/emrgen/mediahub/internal/adapter"
	"github.com/emrgen/mediahub/internal/resource"
	"github.com/emrgen/mediahub/internal/schema"
	"github.com/emrgen/mediahub/internal/source"
)

const (
	DefaultBaseURL = "https://www.googleapis.com/youtube/v3"
	pageSize       = 50
	maxPages       = 100
)

type Options struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	BaseURL      string
	Endpoint     *oauth2.Endpoint
	HTTP         *http.Client
}

var _ adapter.Adapter = (*Adapter)(nil)

type Adapter struct {
	api   *adapter.Client
	oauth *oauth2.Config
}

func New(opts Options) *Adapter {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	endpoint := endpoints.Google
	if opts.Endpoint != nil {
		endpoint = *opts.Endpoint
	}
	return &Adapter{
		api: adapter.NewClient(opts.HTTP, opts.BaseURL),
		oauth: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{"https://www.googleapis.com/auth/youtube.readonly"},
		},
	}
}

func (a *Adapter) Source() source.Type {
	return source.YouTube
}

func (a *Adapter) Kinds() []resource.Kind {
	return []resource.Kind{resource.KindVideo, resource.KindChannel, resource.KindPlaylist}
}

func (a *Adapter) DetectURI(text string) []adapter.Match {
	return detect(text)
}

func (a *Adapter) OAuthConfig() *oauth2.Config {
	return a.oauth
}

func (a *Adapter) Authenticate(ctx context.Context, creds *adapter.Credentials) (adapter.Handle, error) {
	return adapter.NewOAuthHandle(ctx, a.oauth, creds, a.api.HTTP)
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
		return nil, adapter.Unsupported(source.YouTube, "fetch", kind)
	}
	id, err := parseURI(kind, uri)
	if err != nil {
		return nil, err
	}
	c, err := a.client(h)
	if err != nil {
		return nil, err
	}

	switch kind {
	case resource.KindVideo:
		return a.fetchVideo(ctx, c, id)
	case resource.KindChannel:
		return a.fetchChannel(ctx, c, id)
	default:
		return a.fetchPlaylist(ctx, c, id)
	}
}

func (a *Adapter) fetchVideo(ctx context.Context, c *adapter.Client, id string) (*adapter.Payload, error) {
	var res listResponse[video]
	q := url.Values{"part": {"snippet,contentDetails"}, "id": {id}}
	if err := c.GetJSON(ctx, "/videos", q, &res); err != nil {
		return nil, err
	}
	if len(res.Items) == 0 {
		return nil, fmt.Errorf("video %s: %w", id, adapter.ErrNotFound)
	}
	v := res.Items[0]

	p := adapter.NewPayload(resource.KindVideo, URI(resource.KindVideo, v.ID), v.Snippet.Title)
	p.ThumbnailURL = v.Snippet.Thumbnails.best()
	p.SetText(schema.KeyName, v.Snippet.Title)
	p.SetText(schema.KeyDescription, v.Snippet.Description)
	p.SetDate("publishedAt", parseTime(v.Snippet.PublishedAt))
	if d := v.ContentDetails.Duration; d != "" {
		secs, err := parseDuration(d)
		if err != nil {
			logrus.Warnf("youtube: video %s: %v", v.ID, err)
		} else {
			p.SetNumber(schema.KeyDuration, secs)
		}
	}
	p.SetURL(schema.KeyURL, "https://www.youtube.com/watch?v="+v.ID)
	if v.Snippet.ChannelID != "" {
		p.Refs[schema.KeyChannel] = adapter.Ref{
			Kind:  resource.KindChannel,
			URI:   URI(resource.KindChannel, v.Snippet.ChannelID),
			Title: v.Snippet.ChannelTitle,
		}
	}
	return p, nil
}

func (a *Adapter) fetchChannel(ctx context.Context, c *adapter.Client, id string) (*adapter.Payload, error) {
	q := url.Values{"part": {"snippet,statistics"}}
	if strings.HasPrefix(id, "@") {
		q.Set("forHandle", id)
	} else {
		q.Set("id", id)
	}

	var res listResponse[channel]
	if err := c.GetJSON(ctx, "/channels", q, &res); err != nil {
		return nil, err
	}
	if len(res.Items) == 0 {
		return nil, fmt.Errorf("channel %s: %w", id, adapter.ErrNotFound)
	}
	ch := res.Items[0]

	// handles resolve to the channel id so both spellings dedup together
	p := adapter.NewPayload(resource.KindChannel, URI(resource.KindChannel, ch.ID), ch.Snippet.Title)
	p.ThumbnailURL = ch.Snippet.Thumbnails.best()
	p.SetText(schema.KeyName, ch.Snippet.Title)
	p.SetText(schema.KeyDescription, ch.Snippet.Description)
	if !ch.Statistics.HiddenSubscriberCount {
		if n, err := strconv.ParseFloat(ch.Statistics.SubscriberCount, 64); err == nil {
			p.SetNumber("subscribers", n)
		}
	}
	p.SetURL(schema.KeyURL, "https://www.youtube.com/channel/"+ch.ID)
	return p, nil
}

func (a *Adapter) fetchPlaylist(ctx context.Context, c *adapter.Client, id string) (*adapter.Payload, error) {
	var res listResponse[playlist]
	q := url.Values{"part": {"snippet"}, "id": {id}}
	if err := c.GetJSON(ctx, "/playlists", q, &res); err != nil {
		return nil, err
	}
	if len(res.Items) == 0 {
		return nil, fmt.Errorf("playlist %s: %w", id, adapter.ErrNotFound)
	}
	pl := res.Items[0]

	p := adapter.NewPayload(resource.KindPlaylist, URI(resource.KindPlaylist, pl.ID), pl.Snippet.Title)
	p.ThumbnailURL = pl.Snippet.Thumbnails.best()
	p.SetText(schema.KeyName, pl.Snippet.Title)
	p.SetText(schema.KeyDescription, pl.Snippet.Description)
	p.SetText("owner", pl.Snippet.ChannelTitle)
	p.SetURL(schema.KeyURL, "https://www.youtube.com/playlist?list="+pl.ID)

	var items []adapter.Ref
	token := ""
	for n := 0; n < maxPages; n++ {
		q := url.Values{"part": {"snippet"}, "playlistId": {id}, "maxResults": {strconv.Itoa(pageSize)}}
		if token != "" {
			q.Set("pageToken", token)
		}
		var page listResponse[playlistItem]
		if err := c.GetJSON(ctx, "/playlistItems", q, &page); err != nil {
			return nil, err
		}
		for _, it := range page.Items {
			vid := it.Snippet.ResourceID.VideoID
			if vid == "" {
				continue
			}
			items = append(items, adapter.Ref{Kind: resource.KindVideo, URI: URI(resource.KindVideo, vid), Title: it.Snippet.Title})
		}
		if page.NextPageToken == "" {
			break
		}
		token = page.NextPageToken
	}
	p.Lists[schema.KeyItems] = items
	return p, nil
}

var searchTypes = map[resource.Kind]string{
	resource.KindVideo:    "video",
	resource.KindChannel:  "channel",
	resource.KindPlaylist: "playlist",
}

func (a *Adapter) Search(ctx context.Context, h adapter.Handle, kind resource.Kind, text string, limit int) ([]adapter.SearchResult, error) {
	typ, ok := searchTypes[kind]
	if !ok {
		return nil, adapter.Unsupported(source.YouTube, "search", kind)
	}
	if limit <= 0 || limit > pageSize {
		limit = 20
	}
	c, err := a.client(h)
	if err != nil {
		return nil, err
	}

	q := url.Values{"part": {"snippet"}, "q": {text}, "type": {typ}, "maxResults": {strconv.Itoa(limit)}}
	var res listResponse[searchItem]
	if err := c.GetJSON(ctx, "/search", q, &res); err != nil {
		return nil, err
	}

	out := make([]adapter.SearchResult, 0, len(res.Items))
	for _, it := range res.Items {
		var id string
		switch kind {
		case resource.KindVideo:
			id = it.ID.VideoID
		case resource.KindChannel:
			id = it.ID.ChannelID
		default:
			id = it.ID.PlaylistID
		}
		if id == "" {
			continue
		}
		subtitle := it.Snippet.ChannelTitle
		if kind == resource.KindChannel {
			subtitle = it.Snippet.Description
		}
		out = append(out, adapter.SearchResult{
			Source:       source.YouTube,
			URI:          URI(kind, id),
			Title:        it.Snippet.Title,
			Kind:         kind,
			Subtitle:     subtitle,
			ThumbnailURL: it.Snippet.Thumbnails.best(),
			Rank:         len(out),
		})
	}
	return out, nil
}

func (a *Adapter) Play(_ context.Context, _ adapter.Handle, kind resource.Kind, _, _ string) error {
	return adapter.Unsupported(source.YouTube, "play", kind)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

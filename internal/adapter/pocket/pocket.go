// Package pocket adapts the Pocket v3 read-it-later API. Every saved item
// is a web page.
package pocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/emrgen/mediahub/internal/adapter"
	"github.com/emrgen/mediahub/internal/resource"
	"github.com/emrgen/mediahub/internal/schema"
	"github.com/emrgen/mediahub/internal/source"
)

const DefaultBaseURL = "https://getpocket.com"

type Options struct {
	ConsumerKey string
	BaseURL     string
	HTTP        *http.Client
}

var _ adapter.Adapter = (*Adapter)(nil)

type Adapter struct {
	api         *adapter.Client
	consumerKey string
}

func New(opts Options) *Adapter {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	return &Adapter{api: adapter.NewClient(opts.HTTP, opts.BaseURL), consumerKey: opts.ConsumerKey}
}

func (a *Adapter) Source() source.Type {
	return source.Pocket
}

func (a *Adapter) Kinds() []resource.Kind {
	return []resource.Kind{resource.KindWebpage}
}

func (a *Adapter) DetectURI(text string) []adapter.Match {
	return detect(text)
}

// tokenData is the stored credential blob.
type tokenData struct {
	AccessToken string `json:"access_token"`
	Username    string `json:"username,omitempty"`
}

type handle struct {
	adapter.StaticHandle
	accessToken string
}

// Authenticate accepts the stored blob as is; Pocket tokens do not expire.
func (a *Adapter) Authenticate(_ context.Context, creds *adapter.Credentials) (adapter.Handle, error) {
	if creds == nil || creds.Data == "" {
		return nil, adapter.ErrUnauthenticated
	}
	var td tokenData
	if err := json.Unmarshal([]byte(creds.Data), &td); err != nil {
		return nil, fmt.Errorf("%w: malformed pocket token: %v", adapter.ErrUnauthenticated, err)
	}
	if td.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty pocket token", adapter.ErrUnauthenticated)
	}
	return handle{StaticHandle: adapter.StaticHandle{Creds: *creds}, accessToken: td.AccessToken}, nil
}

func accessToken(h adapter.Handle) (string, error) {
	ph, ok := h.(handle)
	if !ok {
		return "", adapter.ErrUnauthenticated
	}
	return ph.accessToken, nil
}

type item struct {
	ItemID        string `json:"item_id"`
	GivenURL      string `json:"given_url"`
	ResolvedURL   string `json:"resolved_url"`
	GivenTitle    string `json:"given_title"`
	ResolvedTitle string `json:"resolved_title"`
	Title         string `json:"title"`
	Excerpt       string `json:"excerpt"`
	TimeAdded     string `json:"time_added"`
	TopImageURL   string `json:"top_image_url"`
	SortID        int    `json:"sort_id"`
}

func (it item) url() string {
	if it.ResolvedURL != "" {
		return it.ResolvedURL
	}
	return it.GivenURL
}

func (it item) title() string {
	for _, s := range []string{it.ResolvedTitle, it.GivenTitle, it.Title} {
		if s != "" {
			return s
		}
	}
	return it.url()
}

func (it item) addedAt() time.Time {
	secs, err := strconv.ParseInt(it.TimeAdded, 10, 64)
	if err != nil || secs <= 0 {
		return time.Time{}
	}
	return time.Unix(secs, 0).UTC()
}

type getRequest struct {
	ConsumerKey string `json:"consumer_key"`
	AccessToken string `json:"access_token"`
	Search      string `json:"search,omitempty"`
	DetailType  string `json:"detailType"`
	Sort        string `json:"sort,omitempty"`
	Count       int    `json:"count,omitempty"`
}

type getResponse struct {
	// List is an object keyed by item id, or an empty array when nothing
	// matched.
	List json.RawMessage `json:"list"`
}

func (r getResponse) items() ([]item, error) {
	if len(r.List) == 0 || r.List[0] != '{' {
		return nil, nil
	}
	var byID map[string]item
	if err := json.Unmarshal(r.List, &byID); err != nil {
		return nil, err
	}
	out := make([]item, 0, len(byID))
	for _, it := range byID {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortID != out[j].SortID {
			return out[i].SortID < out[j].SortID
		}
		return out[i].ItemID < out[j].ItemID
	})
	return out, nil
}

type addRequest struct {
	ConsumerKey string `json:"consumer_key"`
	AccessToken string `json:"access_token"`
	URL         string `json:"url"`
}

type addResponse struct {
	Item item `json:"item"`
}

func (a *Adapter) get(ctx context.Context, token string, req getRequest) ([]item, error) {
	req.ConsumerKey = a.consumerKey
	req.AccessToken = token
	var res getResponse
	if err := a.api.DoJSON(ctx, http.MethodPost, "/v3/get", nil, req, &res); err != nil {
		return nil, err
	}
	return res.items()
}

// Fetch looks the page up among the saved items and saves it when it is not
// there yet.
func (a *Adapter) Fetch(ctx context.Context, h adapter.Handle, kind resource.Kind, uri string) (*adapter.Payload, error) {
	if kind != resource.KindWebpage {
		return nil, adapter.Unsupported(source.Pocket, "fetch", kind)
	}
	canonical, ok := Canonical(uri)
	if !ok {
		return nil, fmt.Errorf("%w: %q", adapter.ErrInvalidURI, uri)
	}
	token, err := accessToken(h)
	if err != nil {
		return nil, err
	}

	items, err := a.get(ctx, token, getRequest{Search: canonical, DetailType: "complete", Count: 30})
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		for _, raw := range []string{it.ResolvedURL, it.GivenURL} {
			if c, ok := Canonical(raw); ok && c == canonical {
				return toPayload(canonical, it), nil
			}
		}
	}

	var added addResponse
	req := addRequest{ConsumerKey: a.consumerKey, AccessToken: token, URL: canonical}
	if err := a.api.DoJSON(ctx, http.MethodPost, "/v3/add", nil, req, &added); err != nil {
		return nil, err
	}
	return toPayload(canonical, added.Item), nil
}

func toPayload(uri string, it item) *adapter.Payload {
	p := adapter.NewPayload(resource.KindWebpage, uri, it.title())
	if p.Title == "" {
		p.Title = uri
	}
	p.ThumbnailURL = it.TopImageURL
	p.SetText(schema.KeyName, p.Title)
	p.SetURL(schema.KeyURL, uri)
	p.SetText("excerpt", it.Excerpt)
	p.SetDate("addedAt", it.addedAt())
	return p
}

func (a *Adapter) Search(ctx context.Context, h adapter.Handle, kind resource.Kind, text string, limit int) ([]adapter.SearchResult, error) {
	if kind != resource.KindWebpage {
		return nil, adapter.Unsupported(source.Pocket, "search", kind)
	}
	if limit <= 0 {
		limit = 20
	}
	token, err := accessToken(h)
	if err != nil {
		return nil, err
	}

	items, err := a.get(ctx, token, getRequest{Search: text, DetailType: "simple", Sort: "newest", Count: limit})
	if err != nil {
		return nil, err
	}

	out := make([]adapter.SearchResult, 0, len(items))
	for _, it := range items {
		u, ok := Canonical(it.url())
		if !ok {
			continue
		}
		out = append(out, adapter.SearchResult{
			Source:       source.Pocket,
			URI:          u,
			Title:        it.title(),
			Kind:         resource.KindWebpage,
			Subtitle:     it.Excerpt,
			ThumbnailURL: it.TopImageURL,
			Rank:         len(out),
		})
	}
	return out, nil
}

func (a *Adapter) Play(_ context.Context, _ adapter.Handle, kind resource.Kind, _, _ string) error {
	return adapter.Unsupported(source.Pocket, "play", kind)
}

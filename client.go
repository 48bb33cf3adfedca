// Package mediahub is a client for the mediahub HTTP API.
package mediahub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/emrgen/mediahub/internal/importer"
	"github.com/emrgen/mediahub/internal/resource"
	"github.com/emrgen/mediahub/internal/service"
	"github.com/emrgen/mediahub/internal/source"
)

var ErrNotFound = errors.New("not found")

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mediahub: %d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

type Client struct {
	base *url.URL
	http *http.Client
	user string
}

// NewClient connects to the API at addr, e.g. "http://localhost:4020".
// Requests are made on behalf of user when it is not empty.
func NewClient(addr, user string) (*Client, error) {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	base, err := url.Parse(strings.TrimRight(addr, "/"))
	if err != nil {
		return nil, err
	}
	return &Client{base: base, http: &http.Client{Timeout: 5 * time.Minute}, user: user}, nil
}

type ImportRequest = service.ImportRequest
type ResolveRequest = service.ResolveRequest
type PlayRequest = service.PlayRequest

func (c *Client) Import(ctx context.Context, req ImportRequest) (*importer.Result, error) {
	var out importer.Result
	return &out, c.do(ctx, http.MethodPost, "/v1/imports", nil, req, &out)
}

func (c *Client) Resolve(ctx context.Context, req ResolveRequest) (*importer.Resolution, error) {
	var out importer.Resolution
	return &out, c.do(ctx, http.MethodPost, "/v1/resolve", nil, req, &out)
}

func (c *Client) Search(ctx context.Context, text string, sources, types []string, limit int) (*importer.SearchResponse, error) {
	q := url.Values{"q": {text}}
	if len(sources) > 0 {
		q.Set("source", strings.Join(sources, ","))
	}
	if len(types) > 0 {
		q.Set("type", strings.Join(types, ","))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out importer.SearchResponse
	return &out, c.do(ctx, http.MethodGet, "/v1/search", q, nil, &out)
}

func (c *Client) GetResource(ctx context.Context, id uuid.UUID) (*resource.Resource, error) {
	var out resource.Resource
	return &out, c.do(ctx, http.MethodGet, "/v1/resources/"+id.String(), nil, nil, &out)
}

func (c *Client) ListResources(ctx context.Context, query, kind string, favouriteOnly bool, limit int) ([]*resource.Resource, error) {
	q := url.Values{}
	if query != "" {
		q.Set("q", query)
	}
	if kind != "" {
		q.Set("type", kind)
	}
	if favouriteOnly {
		q.Set("favourite", "true")
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Resources []*resource.Resource `json:"resources"`
	}
	return out.Resources, c.do(ctx, http.MethodGet, "/v1/resources", q, nil, &out)
}

func (c *Client) GetList(ctx context.Context, id uuid.UUID, key string) ([]*resource.Resource, error) {
	var out struct {
		Resources []*resource.Resource `json:"resources"`
	}
	path := fmt.Sprintf("/v1/resources/%s/lists/%s", id, url.PathEscape(key))
	return out.Resources, c.do(ctx, http.MethodGet, path, nil, nil, &out)
}

func (c *Client) SetFavourite(ctx context.Context, id uuid.UUID, favourite bool) (*resource.Resource, error) {
	var out resource.Resource
	body := map[string]bool{"favourite": favourite}
	return &out, c.do(ctx, http.MethodPut, "/v1/resources/"+id.String()+"/favourite", nil, body, &out)
}

func (c *Client) Refresh(ctx context.Context, id uuid.UUID, src source.Type) (*importer.Result, error) {
	q := url.Values{}
	if src != "" {
		q.Set("source", src.String())
	}
	var out importer.Result
	return &out, c.do(ctx, http.MethodPost, "/v1/resources/"+id.String()+"/refresh", q, nil, &out)
}

func (c *Client) DeleteResource(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/v1/resources/"+id.String(), nil, nil, nil)
}

func (c *Client) Play(ctx context.Context, req PlayRequest) error {
	return c.do(ctx, http.MethodPost, "/v1/play", nil, req, nil)
}

func (c *Client) Sources(ctx context.Context) ([]source.Type, error) {
	var out struct {
		Sources []source.Type `json:"sources"`
	}
	return out.Sources, c.do(ctx, http.MethodGet, "/v1/sources", nil, nil, &out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := *c.base
	u.Path += path
	u.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.user != "" {
		req.Header.Set("X-User-ID", c.user)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
		if json.Unmarshal(data, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(data))
		}
		return &APIError{Status: res.StatusCode, Message: e.Error}
	}
	if out == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

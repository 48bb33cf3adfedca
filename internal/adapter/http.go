package adapter

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
)

const maxErrorBody = 512

// Client issues JSON requests against one API and maps HTTP failures onto
// the adapter errors.
type Client struct {
	HTTP    *http.Client
	BaseURL string
}

func NewClient(httpClient *http.Client, baseURL string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{HTTP: httpClient, BaseURL: strings.TrimRight(baseURL, "/")}
}

// WithHTTP returns a copy sending requests through h, typically an
// authenticated client.
func (c *Client) WithHTTP(h *http.Client) *Client {
	if h == nil {
		return c
	}
	cp := *c
	cp.HTTP = h
	return &cp
}

// GetJSON decodes the response of GET path into out. path may be absolute,
// as pagination links usually are.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	return c.DoJSON(ctx, http.MethodGet, path, query, nil, out)
}

// DoJSON sends body as JSON and decodes the response into out. A nil out
// discards the response body.
func (c *Client) DoJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path, query), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if out == nil || res.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

// Do sends req and turns non 2xx responses into errors. The caller closes
// the body of a successful response.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	op := req.Method + " " + req.URL.Path

	res, err := c.HTTP.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &TransientError{Op: op, Err: err}
	}
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return res, nil
	}

	defer res.Body.Close()
	snippet, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
	return nil, StatusError(op, res.StatusCode, res.Header, strings.TrimSpace(string(snippet)))
}

// StatusError maps an HTTP failure status onto the adapter errors.
func StatusError(op string, status int, header http.Header, body string) error {
	cause := errors.New(http.StatusText(status))
	if body != "" {
		cause = fmt.Errorf("%s: %s", http.StatusText(status), body)
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%s: %w: %v", op, ErrUnauthenticated, cause)
	case status == http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case status == http.StatusTooManyRequests || status >= 500:
		return &TransientError{Op: op, Status: status, RetryAfter: retryAfter(header), Err: cause}
	default:
		return fmt.Errorf("%s: status %d: %w", op, status, cause)
	}
}

func (c *Client) url(path string, query url.Values) string {
	u := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		u = c.BaseURL + "/" + strings.TrimLeft(path, "/")
	}
	if len(query) == 0 {
		return u
	}
	if strings.Contains(u, "?") {
		return u + "&" + query.Encode()
	}
	return u + "?" + query.Encode()
}

func retryAfter(h http.Header) time.Duration {
	if h == nil {
		return 0
	}
	secs, err := strconv.Atoi(h.Get("Retry-After"))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

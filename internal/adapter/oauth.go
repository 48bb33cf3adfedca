package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// OAuthHandle wraps a refreshing oauth2 token source. The token blob is the
// JSON form of oauth2.Token.
type OAuthHandle struct {
	source oauth2.TokenSource
	client *http.Client
}

var _ Handle = (*OAuthHandle)(nil)

// NewOAuthHandle restores a token from creds. base, when set, is the client
// whose transport carries the authorized requests.
func NewOAuthHandle(ctx context.Context, conf *oauth2.Config, creds *Credentials, base *http.Client) (*OAuthHandle, error) {
	tok, err := DecodeToken(creds)
	if err != nil {
		return nil, err
	}

	if base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	}
	ts := oauth2.ReuseTokenSource(tok, conf.TokenSource(ctx, tok))
	return &OAuthHandle{source: ts, client: oauth2.NewClient(ctx, ts)}, nil
}

// HTTP returns the authorized client.
func (h *OAuthHandle) HTTP() *http.Client {
	return h.client
}

func (h *OAuthHandle) Credentials() (*Credentials, error) {
	tok, err := h.source.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return EncodeToken(tok)
}

// HTTPClient returns the authorized client carried by h.
func HTTPClient(h Handle) (*http.Client, error) {
	hh, ok := h.(interface{ HTTP() *http.Client })
	if !ok || hh.HTTP() == nil {
		return nil, ErrUnauthenticated
	}
	return hh.HTTP(), nil
}

// DecodeToken reads an oauth2 token blob.
func DecodeToken(creds *Credentials) (*oauth2.Token, error) {
	if creds == nil || creds.Data == "" {
		return nil, ErrUnauthenticated
	}

	var tok oauth2.Token
	if err := json.Unmarshal([]byte(creds.Data), &tok); err != nil {
		return nil, fmt.Errorf("%w: malformed token: %v", ErrUnauthenticated, err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, fmt.Errorf("%w: empty token", ErrUnauthenticated)
	}
	if tok.Expiry.IsZero() && !creds.ExpiresAt.IsZero() {
		tok.Expiry = creds.ExpiresAt
	}
	return &tok, nil
}

func EncodeToken(tok *oauth2.Token) (*Credentials, error) {
	data, err := json.Marshal(tok)
	if err != nil {
		return nil, err
	}
	return &Credentials{Data: string(data), ExpiresAt: tok.Expiry}, nil
}

// StaticHandle carries credentials that never rotate.
type StaticHandle struct {
	Creds Credentials
}

func (h StaticHandle) Credentials() (*Credentials, error) {
	c := h.Creds
	return &c, nil
}

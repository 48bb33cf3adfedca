// Package importer runs recursive imports from external sources into the
// resource store.
package importer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/emrgen/mediahub/internal/adapter"
	"github.com/emrgen/mediahub/internal/cache"
	"github.com/emrgen/mediahub/internal/files"
	"github.com/emrgen/mediahub/internal/progress"
	"github.com/emrgen/mediahub/internal/queue"
	"github.com/emrgen/mediahub/internal/resource"
	"github.com/emrgen/mediahub/internal/source"
	"github.com/emrgen/mediahub/internal/store"
)

// Options wires the optional collaborators. Nil members fall back to no-op
// implementations.
type Options struct {
	Tokens store.TokenStore
	// Files stores thumbnails; without it thumbnails are skipped.
	Files  files.FileStore
	Cache  cache.KV
	Events queue.ImportQueue
	HTTP   *http.Client
	Retry  Retry
	// SearchTTL is how long search results stay cached.
	SearchTTL time.Duration
}

type Importer struct {
	store    store.Store
	adapters *adapter.Registry
	tokens   store.TokenStore
	files    files.FileStore
	kv       cache.KV
	events   queue.ImportQueue
	fetcher  *adapter.Client
	retry    Retry
	ttl      time.Duration
	group    singleflight.Group

	mu      sync.Mutex
	flights map[string]*flight
}

func New(s store.Store, adapters *adapter.Registry, opts Options) *Importer {
	if opts.Cache == nil {
		opts.Cache = cache.Nop{}
	}
	if opts.Events == nil {
		opts.Events = queue.Nop{}
	}
	if opts.Retry.Attempts == 0 {
		opts.Retry = DefaultRetry
	}
	if opts.SearchTTL == 0 {
		opts.SearchTTL = 5 * time.Minute
	}
	return &Importer{
		store:    s,
		adapters: adapters,
		tokens:   opts.Tokens,
		files:    opts.Files,
		kv:       opts.Cache,
		events:   opts.Events,
		fetcher:  adapter.NewClient(opts.HTTP, ""),
		retry:    opts.Retry,
		ttl:      opts.SearchTTL,
	}
}

// Request names one entity to import.
type Request struct {
	Source source.Type   `json:"source"`
	Kind   resource.Kind `json:"type"`
	URI    string        `json:"uri"`
	User   string        `json:"user,omitempty"`
	// SkipChildren imports only the entity and its scalar references,
	// leaving its lists as they are.
	SkipChildren bool `json:"skipChildren,omitempty"`
	// Progress observes the overall fraction done.
	Progress progress.Func `json:"-"`
}

type Result struct {
	Resource    *resource.Resource `json:"resource"`
	Created     bool               `json:"created"`
	Diagnostics []Diagnostic       `json:"diagnostics"`
}

// ImportByURI imports the entity and everything it references. Failures of
// nested entities are reported as diagnostics; only a failure of the entity
// itself fails the call. Concurrent imports of the same entity for the same
// user share one run and one Result. The shared run outlives any single
// caller and is cancelled only when every caller has gone; each caller gets
// its own progress.
func (i *Importer) ImportByURI(ctx context.Context, req Request) (*Result, error) {
	if req.URI == "" {
		return nil, ErrEmptyURI
	}
	key := flightKey(req)
	f, id := i.join(ctx, key, req.Progress)
	defer i.leave(key, f, id)

	ch := i.group.DoChan(key, func() (any, error) {
		shared := req
		shared.Progress = f.report
		return i.importRoot(f.ctx, shared)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			logrus.Debugf("import: joined running import of %s", req.URI)
		}
		return res.Val.(*Result), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func flightKey(req Request) string {
	return fmt.Sprintf("%s|%s|%s|%s|%t", req.Source, req.Kind, req.URI, req.User, req.SkipChildren)
}

func (i *Importer) importRoot(ctx context.Context, req Request) (*Result, error) {
	a, err := i.adapters.Get(req.Source)
	if err != nil {
		return nil, err
	}
	if !adapter.Supports(a, req.Kind) {
		return nil, adapter.Unsupported(req.Source, "import", req.Kind)
	}

	h, err := i.authenticate(ctx, a, req.User)
	if err != nil {
		return nil, err
	}
	defer i.saveCredentials(ctx, a.Source(), req.User, h)

	start := time.Now()
	s := newSession(req.Source, a, h)
	sink := progress.New(req.Progress)

	r, created, err := i.importNode(ctx, s, req.Kind, req.URI, sink, nodeOptions{root: true, skipChildren: req.SkipChildren})
	if err != nil {
		return nil, err
	}

	res := &Result{Resource: r, Created: created, Diagnostics: s.diagnostics}
	if res.Diagnostics == nil {
		res.Diagnostics = []Diagnostic{}
	}
	logrus.Infof("import: %s %s %q done in %s with %d diagnostics", req.Source, req.Kind, r.Title, time.Since(start).Round(time.Millisecond), len(res.Diagnostics))

	i.publish(ctx, req, res)
	return res, nil
}

func (i *Importer) publish(ctx context.Context, req Request, res *Result) {
	ev := &queue.ImportEvent{
		ResourceID:  res.Resource.ID,
		Title:       res.Resource.Title,
		Source:      req.Source,
		Kind:        req.Kind,
		URI:         req.URI,
		User:        req.User,
		Created:     res.Created,
		Diagnostics: len(res.Diagnostics),
		At:          time.Now().UTC(),
	}
	if err := i.events.PublishImport(ctx, ev); err != nil {
		logrus.Errorf("import: publish event for %s: %v", res.Resource.ID, err)
	}
}

// authenticate builds a handle from the user's stored credentials. Users
// without credentials still get a handle when the source accepts that.
func (i *Importer) authenticate(ctx context.Context, a adapter.Adapter, user string) (adapter.Handle, error) {
	var creds *adapter.Credentials
	if i.tokens != nil && user != "" {
		tok, err := i.tokens.FindToken(ctx, user, a.Source())
		switch {
		case errors.Is(err, store.ErrNotFound):
		case err != nil:
			return nil, err
		default:
			creds = &adapter.Credentials{Data: tok.Data, ExpiresAt: tok.ExpiresAt}
		}
	}

	h, err := retry(ctx, i.retry, "authenticate "+a.Source().String(), func() (adapter.Handle, error) {
		return a.Authenticate(ctx, creds)
	})
	if err != nil {
		return nil, fmt.Errorf("authenticate %s for %q: %w", a.Source(), user, err)
	}
	return h, nil
}

// saveCredentials persists rotated credentials.
func (i *Importer) saveCredentials(ctx context.Context, src source.Type, user string, h adapter.Handle) {
	if i.tokens == nil || user == "" || h == nil {
		return
	}
	creds, err := h.Credentials()
	if err != nil || creds == nil || creds.Data == "" {
		return
	}

	old, err := i.tokens.FindToken(ctx, user, src)
	if err == nil && old.Data == creds.Data {
		return
	}
	tok := &store.Token{Data: creds.Data, ExpiresAt: creds.ExpiresAt}
	if err := i.tokens.UpdateTokenData(ctx, user, src, tok); err != nil {
		logrus.Errorf("import: save %s credentials of %q: %v", src, user, err)
	}
}

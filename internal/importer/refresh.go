package importer

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/emrgen/mediahub/internal/adapter"
	"github.com/emrgen/mediahub/internal/progress"
	"github.com/emrgen/mediahub/internal/resource"
	"github.com/emrgen/mediahub/internal/source"
)

// Refresh re-imports a linked resource from src, or from the first linked
// source the registry knows when src is empty.
func (i *Importer) Refresh(ctx context.Context, id uuid.UUID, src source.Type, user string, fn progress.Func) (*Result, error) {
	r, err := i.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	src, uri, err := i.remoteOf(r, src)
	if err != nil {
		return nil, err
	}
	return i.ImportByURI(ctx, Request{Source: src, Kind: r.Kind, URI: uri, User: user, Progress: fn})
}

func (i *Importer) remoteOf(r *resource.Resource, src source.Type) (source.Type, string, error) {
	if src != "" {
		uri, ok := r.Remote(src)
		if !ok {
			return "", "", fmt.Errorf("%s with %s: %w", r.ID, src, ErrNotLinked)
		}
		return src, uri, nil
	}
	for _, s := range r.RemoteSources() {
		if _, err := i.adapters.Get(s); err == nil {
			return s, r.Remotes[s], nil
		}
	}
	return "", "", fmt.Errorf("%s: %w", r.ID, ErrNotLinked)
}

// Play starts playback of uri in src for user.
func (i *Importer) Play(ctx context.Context, src source.Type, kind resource.Kind, uri, user, device string) error {
	a, err := i.adapters.Get(src)
	if err != nil {
		return err
	}
	h, err := i.authenticate(ctx, a, user)
	if err != nil {
		return err
	}
	defer i.saveCredentials(ctx, src, user, h)

	_, err = retry(ctx, i.retry, "play "+uri, func() (struct{}, error) {
		return struct{}{}, a.Play(ctx, h, kind, uri, device)
	})
	return err
}

// PlayResource plays a stored resource through its first linked source
// that supports playback.
func (i *Importer) PlayResource(ctx context.Context, id uuid.UUID, src source.Type, user, device string) error {
	r, err := i.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	src, uri, err := i.remoteOf(r, src)
	if err != nil {
		return err
	}
	return i.Play(ctx, src, r.Kind, uri, user, device)
}

// Adapters exposes the registry, e.g. for detection without importing.
func (i *Importer) Adapters() *adapter.Registry {
	return i.adapters
}

package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/emrgen/mediahub/internal/cache"
	"github.com/emrgen/mediahub/internal/resource"
	"github.com/emrgen/mediahub/internal/source"
	"github.com/emrgen/mediahub/internal/value"
)

var _ Store = (*CachedStore)(nil)

// CachedStore reads resources through a cache. Writes evict the written
// resource and every resource whose cached references it changes.
type CachedStore struct {
	Store
	cache cache.ResourceCache
}

func NewCachedStore(s Store, c cache.ResourceCache) *CachedStore {
	return &CachedStore{Store: s, cache: c}
}

func (s *CachedStore) Transaction(ctx context.Context, f func(tx Store) error) error {
	return s.Store.Transaction(ctx, func(tx Store) error {
		return f(&CachedStore{Store: tx, cache: s.cache})
	})
}

func (s *CachedStore) FindByID(ctx context.Context, id uuid.UUID) (*resource.Resource, error) {
	cached, err := s.cache.GetResource(ctx, id)
	if err != nil {
		logrus.Warnf("resource cache read %s: %v", id, err)
	}
	if cached != nil {
		return cached, nil
	}

	r, err := s.Store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetResource(ctx, r); err != nil {
		logrus.Warnf("resource cache write %s: %v", id, err)
	}
	return r, nil
}

func (s *CachedStore) Create(ctx context.Context, r *resource.Resource) (*resource.Resource, error) {
	out, err := s.Store.Create(ctx, r)
	if err != nil {
		return nil, err
	}
	s.evict(ctx, out.ID)
	return out, nil
}

func (s *CachedStore) Upsert(ctx context.Context, r *resource.Resource) (*resource.Resource, error) {
	out, err := s.Store.Upsert(ctx, r)
	if err != nil {
		return nil, err
	}
	s.evictWithReferrers(ctx, out.ID)
	return out, nil
}

func (s *CachedStore) UpsertByRemote(ctx context.Context, src source.Type, uri string, r *resource.Resource) (*resource.Resource, bool, error) {
	out, created, err := s.Store.UpsertByRemote(ctx, src, uri, r)
	if err != nil {
		return nil, false, err
	}
	s.evictWithReferrers(ctx, out.ID)
	return out, created, nil
}

func (s *CachedStore) SetFavourite(ctx context.Context, id uuid.UUID, favourite bool) (*resource.Resource, error) {
	out, err := s.Store.SetFavourite(ctx, id, favourite)
	if err != nil {
		return nil, err
	}
	s.evict(ctx, id)
	return out, nil
}

func (s *CachedStore) Delete(ctx context.Context, id uuid.UUID) error {
	referrers, err := s.Store.Referrers(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, id); err != nil {
		return err
	}
	s.evict(ctx, append(referrers, id)...)
	return nil
}

func (s *CachedStore) SetList(ctx context.Context, id uuid.UUID, key string, list value.List) error {
	if err := s.Store.SetList(ctx, id, key, list); err != nil {
		return err
	}
	s.evict(ctx, id)
	return nil
}

func (s *CachedStore) AppendToList(ctx context.Context, id uuid.UUID, key string, v value.Value) (bool, error) {
	appended, err := s.Store.AppendToList(ctx, id, key, v)
	if err != nil {
		return false, err
	}
	if appended {
		s.evict(ctx, id)
	}
	return appended, nil
}

func (s *CachedStore) PruneDanglingReferences(ctx context.Context) (*Pruned, error) {
	pruned, err := s.Store.PruneDanglingReferences(ctx)
	if err != nil {
		return nil, err
	}
	if len(pruned.Parents) > 0 {
		s.evict(ctx, pruned.Parents...)
	}
	return pruned, nil
}

func (s *CachedStore) AttachRemoteURI(ctx context.Context, id uuid.UUID, src source.Type, uri string) error {
	if err := s.Store.AttachRemoteURI(ctx, id, src, uri); err != nil {
		return err
	}
	s.evict(ctx, id)
	return nil
}

func (s *CachedStore) DetachRemoteURI(ctx context.Context, id uuid.UUID, src source.Type) error {
	if err := s.Store.DetachRemoteURI(ctx, id, src); err != nil {
		return err
	}
	s.evict(ctx, id)
	return nil
}

func (s *CachedStore) evictWithReferrers(ctx context.Context, id uuid.UUID) {
	referrers, err := s.Store.Referrers(ctx, id)
	if err != nil {
		logrus.Warnf("listing referrers of %s: %v", id, err)
	}
	s.evict(ctx, append(referrers, id)...)
}

func (s *CachedStore) evict(ctx context.Context, ids ...uuid.UUID) {
	if err := s.cache.DeleteResources(ctx, ids...); err != nil {
		logrus.Warnf("resource cache evict: %v", err)
	}
}

package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/emrgen/mediahub/internal/resource"
	"github.com/emrgen/mediahub/internal/source"
	"github.com/emrgen/mediahub/internal/value"
)

type Store interface {
	ResourceStore
	ListStore
	RemoteStore
	Transaction(ctx context.Context, f func(tx Store) error) error
	Migrate() error
}

type ResourceStore interface {
	// FindByID retrieves a resource by ID.
	FindByID(ctx context.Context, id uuid.UUID) (*resource.Resource, error)
	// FindByRemoteURI retrieves the resource linked to uri in src.
	FindByRemoteURI(ctx context.Context, src source.Type, uri string) (*resource.Resource, error)
	// Search matches text against titles and scalar attribute values.
	Search(ctx context.Context, text string, limit int) ([]*resource.Resource, error)
	// Create assigns an ID when missing and writes the resource.
	Create(ctx context.Context, r *resource.Resource) (*resource.Resource, error)
	// Upsert writes the resource in place and refreshes the cached title in
	// every reference pointing at it.
	Upsert(ctx context.Context, r *resource.Resource) (*resource.Resource, error)
	// UpsertByRemote atomically finds the resource linked to (src, uri) and
	// updates it, or creates it when there is none.
	UpsertByRemote(ctx context.Context, src source.Type, uri string, r *resource.Resource) (*resource.Resource, bool, error)
	// SetFavourite flags or unflags a resource.
	SetFavourite(ctx context.Context, id uuid.UUID, favourite bool) (*resource.Resource, error)
	// Delete removes a resource, nulling scalar references to it and removing
	// it from every list.
	Delete(ctx context.Context, id uuid.UUID) error
	// Referrers returns the resources holding a reference to id.
	Referrers(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)
	// ListStale returns linked resources not written since before.
	ListStale(ctx context.Context, before time.Time, limit int) ([]*resource.Resource, error)
}

type ListStore interface {
	// ResolveReferenceList materializes the live targets of a list in order.
	ResolveReferenceList(ctx context.Context, id uuid.UUID, key string) ([]*resource.Resource, error)
	// SetList replaces a list attribute in one write.
	SetList(ctx context.Context, id uuid.UUID, key string, list value.List) error
	// AppendToList appends v unless its target is already in the list.
	AppendToList(ctx context.Context, id uuid.UUID, key string, v value.Value) (bool, error)
	// PruneDanglingReferences drops references whose target no longer exists.
	PruneDanglingReferences(ctx context.Context) (*Pruned, error)
}

// Pruned reports the rows a prune rewrote and the resources holding them.
type Pruned struct {
	Rows    int64
	Parents []uuid.UUID
}

type RemoteStore interface {
	// AttachRemoteURI links the resource to uri in src.
	AttachRemoteURI(ctx context.Context, id uuid.UUID, src source.Type, uri string) error
	// DetachRemoteURI removes the link of the resource to src.
	DetachRemoteURI(ctx context.Context, id uuid.UUID, src source.Type) error
}

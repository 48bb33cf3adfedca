// Package service is the API surface over the resource store and the
// import orchestrator. Transports translate their requests into these calls.
package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/emrgen/mediahub/internal/files"
	"github.com/emrgen/mediahub/internal/importer"
	"github.com/emrgen/mediahub/internal/progress"
	"github.com/emrgen/mediahub/internal/resource"
	"github.com/emrgen/mediahub/internal/schema"
	"github.com/emrgen/mediahub/internal/source"
	"github.com/emrgen/mediahub/internal/store"
)

const defaultListLimit = 50

type ResourceService struct {
	store    store.Store
	importer *importer.Importer
	files    files.FileStore
}

// NewResourceService creates a ResourceService. files may be nil.
func NewResourceService(s store.Store, imp *importer.Importer, fs files.FileStore) *ResourceService {
	return &ResourceService{store: s, importer: imp, files: fs}
}

type ListResourcesRequest struct {
	Query         string
	Type          string
	FavouriteOnly bool
	Limit         int
}

type ImportRequest struct {
	Source       string `json:"source"`
	Type         string `json:"type"`
	URI          string `json:"uri"`
	SkipChildren bool   `json:"skipChildren,omitempty"`
	User         string `json:"-"`
}

type ResolveRequest struct {
	Text    string   `json:"text"`
	Sources []string `json:"sources,omitempty"`
	Types   []string `json:"types,omitempty"`
	Limit   int      `json:"limit,omitempty"`
	User    string   `json:"-"`
}

type SearchRequest struct {
	Text    string
	Sources []string
	Types   []string
	Limit   int
	User    string
}

type PlayRequest struct {
	ResourceID string `json:"resourceId,omitempty"`
	Source     string `json:"source,omitempty"`
	Type       string `json:"type,omitempty"`
	URI        string `json:"uri,omitempty"`
	Device     string `json:"device,omitempty"`
	User       string `json:"-"`
}

func (s *ResourceService) GetResource(ctx context.Context, id string) (*resource.Resource, error) {
	rid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.store.FindByID(ctx, rid)
}

// ListResources searches stored resources. An empty query lists the most
// recently updated ones.
func (s *ResourceService) ListResources(ctx context.Context, req ListResourcesRequest) ([]*resource.Resource, error) {
	var kind resource.Kind
	if req.Type != "" {
		k, err := resource.ParseKind(req.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		kind = k
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	// filters run after the search, so over-fetch when one is set
	fetch := limit
	if kind != "" || req.FavouriteOnly {
		fetch = 0
	}
	found, err := s.store.Search(ctx, strings.TrimSpace(req.Query), fetch)
	if err != nil {
		return nil, err
	}

	out := make([]*resource.Resource, 0, len(found))
	for _, r := range found {
		if kind != "" && r.Kind != kind {
			continue
		}
		if req.FavouriteOnly && !r.IsFavourite {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// GetList returns the live members of a list attribute in order.
func (s *ResourceService) GetList(ctx context.Context, id, key string) ([]*resource.Resource, error) {
	r, err := s.GetResource(ctx, id)
	if err != nil {
		return nil, err
	}
	sch, err := schema.For(r.Kind)
	if err != nil {
		return nil, err
	}
	if f, ok := sch.Field(key); !ok || !f.IsList() {
		return nil, fmt.Errorf("%s.%s: %w", r.Kind, key, store.ErrNotList)
	}
	return s.store.ResolveReferenceList(ctx, r.ID, key)
}

func (s *ResourceService) SetFavourite(ctx context.Context, id string, favourite bool) (*resource.Resource, error) {
	rid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.store.SetFavourite(ctx, rid, favourite)
}

// DeleteResource removes the resource and its thumbnail file.
func (s *ResourceService) DeleteResource(ctx context.Context, id string) error {
	r, err := s.GetResource(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, r.ID); err != nil {
		return err
	}
	if r.Thumbnail != nil && s.files != nil {
		if err := s.files.Delete(ctx, *r.Thumbnail); err != nil {
			logrus.Warnf("delete thumbnail of %s: %v", r.ID, err)
		}
	}
	return nil
}

// Thumbnail opens the thumbnail file of a resource.
func (s *ResourceService) Thumbnail(ctx context.Context, id string) (io.ReadCloser, *files.FileReference, error) {
	r, err := s.GetResource(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if r.Thumbnail == nil || s.files == nil {
		return nil, nil, ErrNoThumbnail
	}
	return s.files.Open(ctx, *r.Thumbnail)
}

func (s *ResourceService) Import(ctx context.Context, req ImportRequest, fn progress.Func) (*importer.Result, error) {
	src, err := parseSource(req.Source)
	if err != nil {
		return nil, err
	}
	kind, err := parseKind(req.Type)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.URI) == "" {
		return nil, fmt.Errorf("%w: uri is required", ErrInvalidArgument)
	}
	return s.importer.ImportByURI(ctx, importer.Request{
		Source:       src,
		Kind:         kind,
		URI:          strings.TrimSpace(req.URI),
		User:         req.User,
		SkipChildren: req.SkipChildren,
		Progress:     fn,
	})
}

func (s *ResourceService) Resolve(ctx context.Context, req ResolveRequest, fn progress.Func) (*importer.Resolution, error) {
	sources, err := parseSources(req.Sources)
	if err != nil {
		return nil, err
	}
	kinds, err := parseKinds(req.Types)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("%w: text is required", ErrInvalidArgument)
	}
	return s.importer.Resolve(ctx, importer.ResolveRequest{
		Text:     req.Text,
		Sources:  sources,
		Kinds:    kinds,
		User:     req.User,
		Limit:    req.Limit,
		Progress: fn,
	})
}

func (s *ResourceService) Search(ctx context.Context, req SearchRequest) (*importer.SearchResponse, error) {
	sources, err := parseSources(req.Sources)
	if err != nil {
		return nil, err
	}
	kinds, err := parseKinds(req.Types)
	if err != nil {
		return nil, err
	}
	return s.importer.SearchAcrossSources(ctx, importer.SearchRequest{
		Sources: sources,
		Kinds:   kinds,
		Text:    req.Text,
		User:    req.User,
		Limit:   req.Limit,
	})
}

// Refresh re-imports a resource. src may be empty to use any linked source.
func (s *ResourceService) Refresh(ctx context.Context, id, src, user string) (*importer.Result, error) {
	rid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	var st source.Type
	if src != "" {
		if st, err = parseSource(src); err != nil {
			return nil, err
		}
	}
	return s.importer.Refresh(ctx, rid, st, user, nil)
}

// Play starts playback of a stored resource, or of a remote uri directly.
func (s *ResourceService) Play(ctx context.Context, req PlayRequest) error {
	var src source.Type
	if req.Source != "" {
		var err error
		if src, err = parseSource(req.Source); err != nil {
			return err
		}
	}

	if req.ResourceID != "" {
		rid, err := parseID(req.ResourceID)
		if err != nil {
			return err
		}
		return s.importer.PlayResource(ctx, rid, src, req.User, req.Device)
	}

	if src == "" || req.URI == "" {
		return fmt.Errorf("%w: resourceId or source and uri are required", ErrInvalidArgument)
	}
	kind, err := parseKind(req.Type)
	if err != nil {
		return err
	}
	return s.importer.Play(ctx, src, kind, req.URI, req.User, req.Device)
}

// Sources lists the sources with a configured adapter.
func (s *ResourceService) Sources() []source.Type {
	return s.importer.Adapters().Sources()
}

func parseID(id string) (uuid.UUID, error) {
	rid, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: resource id %q", ErrInvalidArgument, id)
	}
	return rid, nil
}

func parseSource(s string) (source.Type, error) {
	src, err := source.Parse(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return src, nil
}

func parseKind(s string) (resource.Kind, error) {
	kind, err := resource.ParseKind(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return kind, nil
}

func parseSources(in []string) ([]source.Type, error) {
	out := make([]source.Type, 0, len(in))
	for _, s := range in {
		src, err := parseSource(s)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, nil
}

func parseKinds(in []string) ([]resource.Kind, error) {
	out := make([]resource.Kind, 0, len(in))
	for _, s := range in {
		kind, err := parseKind(s)
		if err != nil {
			return nil, err
		}
		out = append(out, kind)
	}
	return out, nil
}

package service

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emrgen/mediahub/internal/adapter"
	"github.com/emrgen/mediahub/internal/files"
	"github.com/emrgen/mediahub/internal/importer"
	"github.com/emrgen/mediahub/internal/resource"
	"github.com/emrgen/mediahub/internal/schema"
	"github.com/emrgen/mediahub/internal/source"
	"github.com/emrgen/mediahub/internal/store"
	"github.com/emrgen/mediahub/internal/tester"
	"github.com/emrgen/mediahub/internal/value"
)

// songSource serves a single song and records playback.
type songSource struct {
	plays []string
}

func (s *songSource) Source() source.Type     { return source.Spotify }
func (s *songSource) Kinds() []resource.Kind { return []resource.Kind{resource.KindSong} }

func (s *songSource) DetectURI(text string) []adapter.Match {
	if strings.HasPrefix(text, "spotify:track:") {
		return []adapter.Match{{Kind: resource.KindSong, URI: text}}
	}
	return nil
}

func (s *songSource) Authenticate(context.Context, *adapter.Credentials) (adapter.Handle, error) {
	return adapter.StaticHandle{}, nil
}

func (s *songSource) Search(_ context.Context, _ adapter.Handle, kind resource.Kind, text string, _ int) ([]adapter.SearchResult, error) {
	return []adapter.SearchResult{{Kind: kind, URI: "spotify:track:1", Title: text}}, nil
}

func (s *songSource) Fetch(_ context.Context, _ adapter.Handle, kind resource.Kind, uri string) (*adapter.Payload, error) {
	if uri != "spotify:track:1" {
		return nil, adapter.ErrNotFound
	}
	p := adapter.NewPayload(kind, uri, "Song One")
	p.SetNumber(schema.KeyDuration, 200)
	return p, nil
}

func (s *songSource) Play(_ context.Context, _ adapter.Handle, _ resource.Kind, uri, device string) error {
	s.plays = append(s.plays, uri+"@"+device)
	return nil
}

type fixture struct {
	svc   *ResourceService
	store store.Store
	files files.FileStore
	src   *songSource
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := tester.TestDB(t)
	s := store.NewGormStore(db)
	fs := files.NewGormFileStore(db, files.NewMemoryBlobs())
	src := &songSource{}
	imp := importer.New(s, adapter.NewRegistry(src), importer.Options{Retry: importer.Retry{Attempts: 1}})
	return &fixture{svc: NewResourceService(s, imp, fs), store: s, files: fs, src: src}
}

func (f *fixture) create(t *testing.T, kind resource.Kind, title string) *resource.Resource {
	t.Helper()
	r := resource.New(kind, title)
	r.Set(schema.KeyName, value.NewText(title))
	if kind == resource.KindWebpage {
		u, err := value.ParseURL("https://example.com/" + title)
		require.NoError(t, err)
		r.Set(schema.KeyURL, u)
	}
	created, err := f.store.Create(context.Background(), r)
	require.NoError(t, err)
	return created
}

func TestResourceService_GetResource(t *testing.T) {
	f := newFixture(t)
	r := f.create(t, resource.KindCollection, "Shelf")

	got, err := f.svc.GetResource(context.Background(), r.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Shelf", got.Title)

	_, err = f.svc.GetResource(context.Background(), "not-an-id")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = f.svc.GetResource(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestResourceService_ListResources(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.create(t, resource.KindCollection, "jazz shelf")
	page := f.create(t, resource.KindWebpage, "jazz-history")
	f.create(t, resource.KindCollection, "rock shelf")
	_, err := f.svc.SetFavourite(ctx, page.ID.String(), true)
	require.NoError(t, err)

	tests := []struct {
		name string
		req  ListResourcesRequest
		want int
	}{
		{name: "all", req: ListResourcesRequest{}, want: 3},
		{name: "query", req: ListResourcesRequest{Query: "jazz"}, want: 2},
		{name: "type", req: ListResourcesRequest{Type: "collection"}, want: 2},
		{name: "favourites", req: ListResourcesRequest{FavouriteOnly: true}, want: 1},
		{name: "limit", req: ListResourcesRequest{Limit: 1}, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.ListResources(ctx, tt.req)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}

	_, err = f.svc.ListResources(ctx, ListResourcesRequest{Type: "podcast"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestResourceService_GetList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	shelf := f.create(t, resource.KindCollection, "Shelf")
	a := f.create(t, resource.KindWebpage, "a")
	b := f.create(t, resource.KindWebpage, "b")
	require.NoError(t, f.store.SetList(ctx, shelf.ID, schema.KeyItems, value.List{b.Reference(), a.Reference()}))

	items, err := f.svc.GetList(ctx, shelf.ID.String(), schema.KeyItems)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, b.ID, items[0].ID)
	assert.Equal(t, a.ID, items[1].ID)

	_, err = f.svc.GetList(ctx, shelf.ID.String(), schema.KeyName)
	assert.ErrorIs(t, err, store.ErrNotList)
}

func TestResourceService_DeleteResource(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	ref, err := f.files.SaveFile(ctx, "cover.png", []byte("\x89PNG\r\n\x1a\n"))
	require.NoError(t, err)
	r := resource.New(resource.KindCollection, "Shelf")
	r.Set(schema.KeyName, value.NewText("Shelf"))
	r.Thumbnail = &ref.ID
	r, err = f.store.Create(ctx, r)
	require.NoError(t, err)

	rc, _, err := f.svc.Thumbnail(ctx, r.ID.String())
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))

	require.NoError(t, f.svc.DeleteResource(ctx, r.ID.String()))
	_, err = f.svc.GetResource(ctx, r.ID.String())
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, _, err = f.files.Open(ctx, ref.ID)
	assert.ErrorIs(t, err, files.ErrNotFound)
}

func TestResourceService_Import(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.svc.Import(ctx, ImportRequest{Source: "Spotify", Type: "song", URI: " spotify:track:1 "}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Song One", res.Resource.Title)
	assert.True(t, res.Created)

	tests := []struct {
		name string
		req  ImportRequest
	}{
		{"unknown source", ImportRequest{Source: "napster", Type: "song", URI: "x"}},
		{"unknown type", ImportRequest{Source: "spotify", Type: "podcast", URI: "x"}},
		{"missing uri", ImportRequest{Source: "spotify", Type: "song"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Import(ctx, tt.req, nil)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}

	_, err = f.svc.Import(ctx, ImportRequest{Source: "youtube", Type: "video", URI: "youtube:video:x"}, nil)
	assert.ErrorIs(t, err, adapter.ErrUnsupported)
}

func TestResourceService_ResolveSearchRefreshPlay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	resolved, err := f.svc.Resolve(ctx, ResolveRequest{Text: "spotify:track:1"}, nil)
	require.NoError(t, err)
	require.NotNil(t, resolved.Import)
	id := resolved.Import.Resource.ID

	resolved, err = f.svc.Resolve(ctx, ResolveRequest{Text: "something else"}, nil)
	require.NoError(t, err)
	require.NotNil(t, resolved.Candidates)
	assert.Len(t, resolved.Candidates.Results, 1)

	found, err := f.svc.Search(ctx, SearchRequest{Text: "one", Types: []string{"song"}})
	require.NoError(t, err)
	assert.Len(t, found.Results, 1)
	_, err = f.svc.Search(ctx, SearchRequest{Text: "one", Sources: []string{"myspace"}})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	refreshed, err := f.svc.Refresh(ctx, id.String(), "", "")
	require.NoError(t, err)
	assert.Equal(t, id, refreshed.Resource.ID)
	assert.False(t, refreshed.Created)

	require.NoError(t, f.svc.Play(ctx, PlayRequest{ResourceID: id.String(), Device: "desk"}))
	require.NoError(t, f.svc.Play(ctx, PlayRequest{Source: "spotify", Type: "song", URI: "spotify:track:1"}))
	assert.Equal(t, []string{"spotify:track:1@desk", "spotify:track:1@"}, f.src.plays)
	assert.ErrorIs(t, f.svc.Play(ctx, PlayRequest{}), ErrInvalidArgument)

	assert.Equal(t, []source.Type{source.Spotify}, f.svc.Sources())
}

package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emrgen/mediahub/internal/cache"
	"github.com/emrgen/mediahub/internal/compress"
	"github.com/emrgen/mediahub/internal/model"
	"github.com/emrgen/mediahub/internal/resource"
	"github.com/emrgen/mediahub/internal/tester"
	"github.com/emrgen/mediahub/internal/value"
)

func TestCachedStore(t *testing.T) {
	ctx := context.Background()
	mr, client := tester.Redis(t)
	s := NewCachedStore(newStore(t), cache.NewRedisResourceCache(client, compress.NewLZ4(), time.Minute))

	radiohead := mustCreate(t, s, artist("Radiohead"))
	track := mustCreate(t, s, song("Karma Police", radiohead))

	got, err := s.FindByID(ctx, track.ID)
	require.NoError(t, err)
	assert.Equal(t, "Karma Police", got.Title)
	assert.True(t, mr.Exists("resource:"+track.ID.String()))

	// renaming the artist evicts the song that caches its title
	radiohead.Title = "Radiohead (band)"
	_, err = s.Upsert(ctx, radiohead)
	require.NoError(t, err)
	assert.False(t, mr.Exists("resource:"+track.ID.String()))

	got, err = s.FindByID(ctx, track.ID)
	require.NoError(t, err)
	ref, _ := got.Value("artist")
	assert.Equal(t, "Radiohead (band)", ref.String())

	_, err = s.SetFavourite(ctx, track.ID, true)
	require.NoError(t, err)
	got, err = s.FindByID(ctx, track.ID)
	require.NoError(t, err)
	assert.True(t, got.IsFavourite)

	require.NoError(t, s.Delete(ctx, radiohead.ID))
	assert.False(t, mr.Exists("resource:"+track.ID.String()))
	_, err = s.FindByID(ctx, radiohead.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCachedStorePruneEvictsParents(t *testing.T) {
	ctx := context.Background()
	mr, client := tester.Redis(t)
	g := newStore(t)
	s := NewCachedStore(g, cache.NewRedisResourceCache(client, compress.NewLZ4(), time.Minute))

	radiohead := mustCreate(t, s, artist("Radiohead"))
	track := mustCreate(t, s, song("Karma Police", radiohead))
	playlist := resource.New(resource.KindPlaylist, "Mix")
	playlist.Set("name", value.NewText("Mix"))
	playlist.Set("items", value.List{track.Reference()})
	playlist = mustCreate(t, s, playlist)

	for _, id := range []uuid.UUID{track.ID, playlist.ID} {
		_, err := s.FindByID(ctx, id)
		require.NoError(t, err)
		require.True(t, mr.Exists("resource:"+id.String()))
	}

	// rows removed behind the store's back leave references dangling
	require.NoError(t, g.db.Where("id = ?", radiohead.ID.String()).Delete(&model.DataObject{}).Error)

	pruned, err := s.PruneDanglingReferences(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, pruned.Rows)
	assert.Equal(t, []uuid.UUID{track.ID}, pruned.Parents)
	assert.False(t, mr.Exists("resource:"+track.ID.String()))
	assert.True(t, mr.Exists("resource:"+playlist.ID.String()))

	got, err := s.FindByID(ctx, track.ID)
	require.NoError(t, err)
	ref, _ := got.Value("artist")
	assert.Nil(t, ref.Ref)
}

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/emrgen/mediahub/internal/compress"
	"github.com/emrgen/mediahub/internal/resource"
	"github.com/emrgen/mediahub/internal/source"
	"github.com/emrgen/mediahub/internal/value"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	return miniredis.RunT(t)
}

func TestRedisResourceCache(t *testing.T) {
	ctx := context.Background()
	mr := newRedis(t)
	client := NewRedisClient(Options{Addr: mr.Addr()})

	for _, name := range []string{"gzip", "lz4", "brotli"} {
		t.Run(name, func(t *testing.T) {
			encoder, err := compress.ForName(name)
			require.NoError(t, err)
			c := NewRedisResourceCache(client, encoder, time.Minute)

			r := resource.New(resource.KindSong, "Karma Police")
			r.ID = uuid.New()
			r.Remotes[source.Spotify] = "spotify:track:1"
			r.Set("name", value.NewText("Karma Police"))
			r.Set("duration", value.NewNumber(264))
			r.Set("artist", value.NewReference("Radiohead", uuid.New()))

			miss, err := c.GetResource(ctx, r.ID)
			require.NoError(t, err)
			assert.Nil(t, miss)

			require.NoError(t, c.SetResource(ctx, r))
			got, err := c.GetResource(ctx, r.ID)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, r.Title, got.Title)
			assert.Equal(t, r.Remotes, got.Remotes)
			assert.Equal(t, r.Values, got.Values)

			require.NoError(t, c.DeleteResources(ctx, r.ID))
			got, err = c.GetResource(ctx, r.ID)
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestRedisResourceCacheExpires(t *testing.T) {
	ctx := context.Background()
	mr := newRedis(t)
	c := NewRedisResourceCache(NewRedisClient(Options{Addr: mr.Addr()}), nil, time.Minute)

	r := resource.New(resource.KindArtist, "Radiohead")
	r.ID = uuid.New()
	require.NoError(t, c.SetResource(ctx, r))

	mr.FastForward(2 * time.Minute)
	got, err := c.GetResource(ctx, r.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisKV(t *testing.T) {
	ctx := context.Background()
	mr := newRedis(t)
	kv := NewRedisKV(NewRedisClient(Options{Addr: mr.Addr()}), compress.NewGZip(), "search:")

	var out []string
	found, err := kv.Get(ctx, "radiohead", &out)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, kv.Set(ctx, "radiohead", []string{"a", "b"}, time.Minute))
	found, err = kv.Get(ctx, "radiohead", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"a", "b"}, out)
	assert.True(t, mr.Exists("search:radiohead"))
}

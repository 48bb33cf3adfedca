package adapter

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emrgen/mediahub/internal/resource"
	"github.com/emrgen/mediahub/internal/source"
)

type stubAdapter struct {
	src    source.Type
	prefix string
}

func (s stubAdapter) Source() source.Type     { return s.src }
func (s stubAdapter) Kinds() []resource.Kind { return []resource.Kind{resource.KindSong} }

func (s stubAdapter) DetectURI(text string) []Match {
	if !strings.HasPrefix(text, s.prefix) {
		return nil
	}
	return []Match{{Kind: resource.KindSong, URI: text}, {Kind: resource.KindSong, URI: text}}
}

func (s stubAdapter) Authenticate(context.Context, *Credentials) (Handle, error) {
	return StaticHandle{}, nil
}

func (s stubAdapter) Search(context.Context, Handle, resource.Kind, string, int) ([]SearchResult, error) {
	return nil, nil
}

func (s stubAdapter) Fetch(context.Context, Handle, resource.Kind, string) (*Payload, error) {
	return nil, ErrNotFound
}

func (s stubAdapter) Play(_ context.Context, _ Handle, kind resource.Kind, _, _ string) error {
	return Unsupported(s.src, "play", kind)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(stubAdapter{src: source.YouTube, prefix: "yt:"}, stubAdapter{src: source.Spotify, prefix: "sp:"})

	assert.Equal(t, []source.Type{source.Spotify, source.YouTube}, r.Sources())

	a, err := r.Get(source.Spotify)
	require.NoError(t, err)
	assert.Equal(t, source.Spotify, a.Source())
	assert.True(t, Supports(a, resource.KindSong))
	assert.False(t, Supports(a, resource.KindVideo))

	_, err = r.Get(source.Pocket)
	assert.ErrorIs(t, err, ErrUnsupported)

	matches := UniqueMatches(r.Detect("sp:1"))
	require.Len(t, matches, 1)
	assert.Equal(t, source.Spotify, matches[0].Source)
	assert.Empty(t, r.Detect("nothing"))

	err = a.Play(context.Background(), nil, resource.KindSong, "", "")
	assert.ErrorIs(t, err, ErrUnsupported)
}

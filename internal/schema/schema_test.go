package schema

import (
	"testing"

	"github.com/emrgen/mediahub/internal/resource"
	"github.com/emrgen/mediahub/internal/value"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForCoversEveryKind(t *testing.T) {
	for _, kind := range resource.Kinds() {
		s, err := For(kind)
		require.NoError(t, err, kind)
		assert.Equal(t, kind, s.Kind)

		f, ok := s.Field(KeyName)
		require.True(t, ok, "%s has no name field", kind)
		assert.True(t, f.Required)
	}

	_, err := For(resource.Kind("podcast"))
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestSongSchemaShape(t *testing.T) {
	s := MustFor(resource.KindSong)

	refs := s.References()
	require.Len(t, refs, 2)
	assert.Equal(t, KeyArtist, refs[0].Key)
	assert.Equal(t, KeyAlbum, refs[1].Key)
	assert.Equal(t, KeySongs, refs[1].Inverse)
	assert.InDelta(t, 0.3, refs[1].RefWeight(), 1e-9)

	assert.Empty(t, s.Lists())
	assert.Len(t, MustFor(resource.KindAlbum).Lists(), 1)
}

func TestValidate(t *testing.T) {
	artist := uuid.New()

	tests := []struct {
		name    string
		build   func() *resource.Resource
		wantKey string
	}{
		{
			name: "valid song",
			build: func() *resource.Resource {
				r := resource.New(resource.KindSong, "Karma Police")
				r.Set(KeyName, value.NewText("Karma Police"))
				r.Set(KeyArtist, value.NewReference("Radiohead", artist))
				r.Set(KeyDuration, value.NewNumber(264))
				return r
			},
		},
		{
			name: "song without name",
			build: func() *resource.Resource {
				r := resource.New(resource.KindSong, "Karma Police")
				r.Set(KeyArtist, value.NewReference("Radiohead", artist))
				return r
			},
			wantKey: KeyName,
		},
		{
			name: "undeclared attribute",
			build: func() *resource.Resource {
				r := resource.New(resource.KindArtist, "Radiohead")
				r.Set(KeyName, value.NewText("Radiohead"))
				r.Set("bpm", value.NewNumber(120))
				return r
			},
			wantKey: "bpm",
		},
		{
			name: "wrong value type",
			build: func() *resource.Resource {
				r := resource.New(resource.KindSong, "Karma Police")
				r.Set(KeyName, value.NewText("Karma Police"))
				r.Set(KeyDuration, value.NewText("4:24"))
				return r
			},
			wantKey: KeyDuration,
		},
		{
			name: "reference without target",
			build: func() *resource.Resource {
				r := resource.New(resource.KindSong, "Karma Police")
				r.Set(KeyName, value.NewText("Karma Police"))
				r.Set(KeyArtist, value.Value{Type: value.TypeReference, Payload: value.Title("Radiohead")})
				return r
			},
			wantKey: KeyArtist,
		},
		{
			name: "single value where a list is declared",
			build: func() *resource.Resource {
				r := resource.New(resource.KindAlbum, "OK Computer")
				r.Set(KeyName, value.NewText("OK Computer"))
				r.Set(KeySongs, value.NewReference("Karma Police", uuid.New()))
				return r
			},
			wantKey: KeySongs,
		},
		{
			name: "webpage without url",
			build: func() *resource.Resource {
				r := resource.New(resource.KindWebpage, "An article")
				r.Set(KeyName, value.NewText("An article"))
				return r
			},
			wantKey: KeyURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.build())
			if tt.wantKey == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrViolation)

			var violation *ViolationError
			require.ErrorAs(t, err, &violation)
			assert.Equal(t, tt.wantKey, violation.Key)
		})
	}
}

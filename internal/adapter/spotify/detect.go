package spotify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/emrgen/mediahub/internal/adapter"
	"github.com/emrgen/mediahub/internal/resource"
)

const localPrefix = "spotify:local:"

var (
	uriPattern = regexp.MustCompile(`spotify:(track|album|artist|playlist):([A-Za-z0-9]+)`)
	urlPattern = regexp.MustCompile(`https?://open\.spotify\.com/(?:intl-[A-Za-z]{2}(?:-[A-Za-z]{2})?/)?(track|album|artist|playlist)/([A-Za-z0-9]+)`)
)

var kindOf = map[string]resource.Kind{
	"track":    resource.KindSong,
	"album":    resource.KindAlbum,
	"artist":   resource.KindArtist,
	"playlist": resource.KindPlaylist,
}

var typeOf = map[resource.Kind]string{
	resource.KindSong:     "track",
	resource.KindAlbum:    "album",
	resource.KindArtist:   "artist",
	resource.KindPlaylist: "playlist",
}

// URI returns the normalized identifier of an entity.
func URI(kind resource.Kind, id string) string {
	return "spotify:" + typeOf[kind] + ":" + id
}

func detect(text string) []adapter.Match {
	var out []adapter.Match
	for _, re := range []*regexp.Regexp{uriPattern, urlPattern} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			kind := kindOf[m[1]]
			out = append(out, adapter.Match{Kind: kind, URI: URI(kind, m[2])})
		}
	}
	return adapter.UniqueMatches(out)
}

// parseURI splits a normalized or web identifier into its kind and id.
func parseURI(uri string) (resource.Kind, string, error) {
	uri = strings.TrimSpace(uri)
	if m := uriPattern.FindStringSubmatch(uri); m != nil && m[0] == uri {
		return kindOf[m[1]], m[2], nil
	}
	if m := urlPattern.FindStringSubmatch(uri); m != nil {
		return kindOf[m[1]], m[2], nil
	}
	return "", "", fmt.Errorf("%w: %q", adapter.ErrInvalidURI, uri)
}

// IsLocal reports whether uri names a file on the user's device.
func IsLocal(uri string) bool {
	return strings.HasPrefix(uri, localPrefix)
}

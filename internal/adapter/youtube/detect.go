package youtube

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/emrgen/mediahub/internal/adapter"
	"github.com/emrgen/mediahub/internal/resource"
)

var patterns = []struct {
	re   *regexp.Regexp
	kind resource.Kind
	// prefix is prepended to the captured id.
	prefix string
}{
	{regexp.MustCompile(`youtube:(?:video):([A-Za-z0-9_-]{11})`), resource.KindVideo, ""},
	{regexp.MustCompile(`youtube:(?:playlist):([A-Za-z0-9_-]+)`), resource.KindPlaylist, ""},
	{regexp.MustCompile(`youtube:(?:channel):(@?[A-Za-z0-9._-]+)`), resource.KindChannel, ""},
	{regexp.MustCompile(`(?:https?://)?(?:www\.|m\.|music\.)?youtube\.com/watch\?(?:\S*?&)?v=([A-Za-z0-9_-]{11})`), resource.KindVideo, ""},
	{regexp.MustCompile(`(?:https?://)?youtu\.be/([A-Za-z0-9_-]{11})`), resource.KindVideo, ""},
	{regexp.MustCompile(`(?:https?://)?(?:www\.|m\.)?youtube\.com/shorts/([A-Za-z0-9_-]{11})`), resource.KindVideo, ""},
	{regexp.MustCompile(`(?:https?://)?(?:www\.|m\.|music\.)?youtube\.com/(?:playlist|watch)\?(?:\S*?&)?list=([A-Za-z0-9_-]+)`), resource.KindPlaylist, ""},
	{regexp.MustCompile(`(?:https?://)?(?:www\.|m\.)?youtube\.com/channel/(UC[A-Za-z0-9_-]{22})`), resource.KindChannel, ""},
	{regexp.MustCompile(`(?:https?://)?(?:www\.|m\.)?youtube\.com/@([A-Za-z0-9._-]+)`), resource.KindChannel, "@"},
}

// URI returns the normalized identifier of an entity. Channels are named
// by id or by "@handle".
func URI(kind resource.Kind, id string) string {
	return "youtube:" + string(kind) + ":" + id
}

func detect(text string) []adapter.Match {
	var out []adapter.Match
	for _, p := range patterns {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			out = append(out, adapter.Match{Kind: p.kind, URI: URI(p.kind, p.prefix+m[1])})
		}
	}
	return adapter.UniqueMatches(out)
}

// parseURI returns the id of uri, which must name an entity of kind.
func parseURI(kind resource.Kind, uri string) (string, error) {
	prefix := "youtube:" + string(kind) + ":"
	if strings.HasPrefix(uri, prefix) && len(uri) > len(prefix) {
		return strings.TrimPrefix(uri, prefix), nil
	}
	for _, m := range detect(uri) {
		if m.Kind == kind {
			return strings.TrimPrefix(m.URI, prefix), nil
		}
	}
	return "", fmt.Errorf("%w: %q is not a youtube %s", adapter.ErrInvalidURI, uri, kind)
}

package importer

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/emrgen/mediahub/internal/adapter"
	"github.com/emrgen/mediahub/internal/resource"
	"github.com/emrgen/mediahub/internal/source"
)

// session is the memo of one root import. Imports run depth first on one
// goroutine, so nothing here is locked.
type session struct {
	src     source.Type
	adapter adapter.Adapter
	handle  adapter.Handle

	// resolved maps requested and canonical uris to the stored resource.
	resolved map[string]*resource.Resource
	// pending holds uris whose import has started but not finished.
	pending mapset.Set[string]
	// building holds "id/key" of lists currently being rebuilt.
	building mapset.Set[string]

	diagnostics []Diagnostic
}

func newSession(src source.Type, a adapter.Adapter, h adapter.Handle) *session {
	return &session{
		src:      src,
		adapter:  a,
		handle:   h,
		resolved: make(map[string]*resource.Resource),
		pending:  mapset.NewThreadUnsafeSet[string](),
		building: mapset.NewThreadUnsafeSet[string](),
	}
}

func (s *session) remember(r *resource.Resource, uris ...string) {
	for _, u := range uris {
		if u != "" {
			s.resolved[u] = r
		}
	}
}

func (s *session) diagnose(kind resource.Kind, uri, key string, err error) {
	d := Diagnostic{Source: s.src, Kind: kind, URI: uri, Key: key, Err: err}
	s.diagnostics = append(s.diagnostics, d)
	logrus.WithFields(logrus.Fields{
		"source": s.src,
		"type":   kind,
		"uri":    uri,
		"key":    key,
	}).Warnf("import: skipped: %v", err)
}

func buildingKey(id uuid.UUID, key string) string {
	return id.String() + "/" + key
}

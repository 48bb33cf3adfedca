package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/emrgen/mediahub/internal/adapter"
	"github.com/emrgen/mediahub/internal/progress"
	"github.com/emrgen/mediahub/internal/resource"
	"github.com/emrgen/mediahub/internal/source"
)

type SearchRequest struct {
	// Sources and Kinds narrow the search; empty means all.
	Sources []source.Type   `json:"sources,omitempty"`
	Kinds   []resource.Kind `json:"types,omitempty"`
	Text    string          `json:"text"`
	User    string          `json:"user,omitempty"`
	// Limit applies per source and kind.
	Limit int `json:"limit,omitempty"`
}

type SearchResponse struct {
	Results     []adapter.SearchResult `json:"results"`
	Diagnostics []Diagnostic           `json:"diagnostics"`
}

// SearchAcrossSources queries every requested source for every requested
// kind and ranks the union. A failing source is reported as a diagnostic;
// the call only fails when every query failed.
func (i *Importer) SearchAcrossSources(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		return &SearchResponse{Results: []adapter.SearchResult{}, Diagnostics: []Diagnostic{}}, nil
	}

	key := searchKey(req)
	var cached []adapter.SearchResult
	if ok, err := i.kv.Get(ctx, key, &cached); err != nil {
		logrus.Warnf("search: cache read: %v", err)
	} else if ok {
		return &SearchResponse{Results: cached, Diagnostics: []Diagnostic{}}, nil
	}

	sources := req.Sources
	if len(sources) == 0 {
		sources = i.adapters.Sources()
	}

	var (
		results []adapter.SearchResult
		diags   = []Diagnostic{}
		succeeded int
		lastErr   error
	)
	for _, src := range sources {
		a, err := i.adapters.Get(src)
		if err != nil {
			diags = append(diags, Diagnostic{Source: src, Err: err})
			lastErr = err
			continue
		}
		kinds := searchKinds(a, req.Kinds)
		if len(kinds) == 0 {
			continue
		}

		h, err := i.authenticate(ctx, a, req.User)
		if err != nil {
			diags = append(diags, Diagnostic{Source: src, Err: err})
			lastErr = err
			continue
		}
		for _, kind := range kinds {
			found, err := retry(ctx, i.retry, "search "+src.String(), func() ([]adapter.SearchResult, error) {
				return a.Search(ctx, h, kind, req.Text, req.Limit)
			})
			if err != nil {
				logrus.Warnf("search: %s %s %q: %v", src, kind, req.Text, err)
				diags = append(diags, Diagnostic{Source: src, Kind: kind, Err: err})
				lastErr = err
				continue
			}
			succeeded++
			for _, r := range found {
				r.Source = src
				results = append(results, r)
			}
		}
		i.saveCredentials(ctx, src, req.User, h)
	}

	if succeeded == 0 && lastErr != nil {
		return nil, lastErr
	}

	ranked := Rank(req.Text, results)
	if len(diags) == 0 {
		if err := i.kv.Set(ctx, key, ranked, i.ttl); err != nil {
			logrus.Warnf("search: cache write: %v", err)
		}
	}
	return &SearchResponse{Results: ranked, Diagnostics: diags}, nil
}

func searchKinds(a adapter.Adapter, wanted []resource.Kind) []resource.Kind {
	if len(wanted) == 0 {
		return a.Kinds()
	}
	var out []resource.Kind
	for _, k := range wanted {
		if adapter.Supports(a, k) {
			out = append(out, k)
		}
	}
	return out
}

func searchKey(req SearchRequest) string {
	h := sha256.New()
	fmt.Fprintf(h, "%v|%v|%s|%s|%d", req.Sources, req.Kinds, strings.ToLower(req.Text), req.User, req.Limit)
	return "search:" + hex.EncodeToString(h.Sum(nil))
}

// Rank orders results by how well the title matches text: exact matches
// first, then substring matches, then the rest. Within a tier the sources'
// own ranks interleave.
func Rank(text string, results []adapter.SearchResult) []adapter.SearchResult {
	needle := strings.ToLower(strings.TrimSpace(text))
	tier := func(r adapter.SearchResult) int {
		title := strings.ToLower(strings.TrimSpace(r.Title))
		switch {
		case title == needle:
			return 0
		case strings.Contains(title, needle):
			return 1
		default:
			return 2
		}
	}

	out := append([]adapter.SearchResult{}, results...)
	sort.SliceStable(out, func(a, b int) bool {
		ta, tb := tier(out[a]), tier(out[b])
		if ta != tb {
			return ta < tb
		}
		return out[a].Rank < out[b].Rank
	})
	return out
}

type ResolveRequest struct {
	Text     string          `json:"text"`
	Sources  []source.Type   `json:"sources,omitempty"`
	Kinds    []resource.Kind `json:"types,omitempty"`
	User     string          `json:"user,omitempty"`
	Limit    int             `json:"limit,omitempty"`
	Progress progress.Func   `json:"-"`
}

// Resolution is either an import of a recognized identifier or a list of
// candidates to choose from.
type Resolution struct {
	Match      *adapter.Match  `json:"match,omitempty"`
	Import     *Result         `json:"import,omitempty"`
	Candidates *SearchResponse `json:"candidates,omitempty"`
}

// Resolve imports text directly when exactly one source recognizes it and
// searches otherwise. Specific matches win over generic ones.
func (i *Importer) Resolve(ctx context.Context, req ResolveRequest) (*Resolution, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrEmptyURI
	}

	if m, ok := i.route(text, req.Sources, req.Kinds); ok {
		res, err := i.ImportByURI(ctx, Request{
			Source:   m.Source,
			Kind:     m.Kind,
			URI:      m.URI,
			User:     req.User,
			Progress: req.Progress,
		})
		if err != nil {
			return nil, err
		}
		return &Resolution{Match: &m, Import: res}, nil
	}

	found, err := i.SearchAcrossSources(ctx, SearchRequest{
		Sources: req.Sources,
		Kinds:   req.Kinds,
		Text:    text,
		User:    req.User,
		Limit:   req.Limit,
	})
	if err != nil {
		return nil, err
	}
	return &Resolution{Candidates: found}, nil
}

// route picks the match to import, if any.
func (i *Importer) route(text string, sources []source.Type, kinds []resource.Kind) (adapter.Match, bool) {
	specific := make(map[source.Type][]adapter.Match)
	generic := make(map[source.Type][]adapter.Match)
	for _, m := range i.adapters.Detect(text) {
		if !contains(sources, m.Source) || !contains(kinds, m.Kind) {
			continue
		}
		if m.Generic {
			generic[m.Source] = append(generic[m.Source], m)
		} else {
			specific[m.Source] = append(specific[m.Source], m)
		}
	}

	pick := func(by map[source.Type][]adapter.Match) (adapter.Match, bool) {
		if len(by) != 1 {
			return adapter.Match{}, false
		}
		for _, ms := range by {
			return ms[0], true
		}
		return adapter.Match{}, false
	}

	if len(specific) > 0 {
		return pick(specific)
	}
	return pick(generic)
}

// contains treats an empty filter as matching everything.
func contains[T comparable](filter []T, v T) bool {
	if len(filter) == 0 {
		return true
	}
	for _, f := range filter {
		if f == v {
			return true
		}
	}
	return false
}

// IsUserError reports whether err comes from the request rather than from
// the system.
func IsUserError(err error) bool {
	return errors.Is(err, ErrEmptyURI) || errors.Is(err, adapter.ErrInvalidURI) || errors.Is(err, ErrNotLinked)
}

package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/emrgen/mediahub/internal/adapter"
	"github.com/emrgen/mediahub/internal/progress"
	"github.com/emrgen/mediahub/internal/resource"
	"github.com/emrgen/mediahub/internal/schema"
	"github.com/emrgen/mediahub/internal/source"
	"github.com/emrgen/mediahub/internal/store"
	"github.com/emrgen/mediahub/internal/value"
)

type nodeOptions struct {
	root bool
	// skipChildren leaves the entity's lists untouched.
	skipChildren bool
}

// importNode fetches one entity, imports its references, writes it and then
// rebuilds its lists item by item. An item failure never fails the node.
func (i *Importer) importNode(ctx context.Context, s *session, kind resource.Kind, uri string, sink *progress.Sink, opts nodeOptions) (*resource.Resource, bool, error) {
	if uri == "" {
		return nil, false, ErrEmptyURI
	}
	if r, ok := s.resolved[uri]; ok {
		sink.Report(1)
		return r, false, nil
	}
	if s.pending.Contains(uri) {
		return nil, false, fmt.Errorf("%s %s: %w", kind, uri, ErrCycle)
	}
	s.pending.Add(uri)
	defer s.pending.Remove(uri)

	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	p, err := retry(ctx, i.retry, "fetch "+uri, func() (*adapter.Payload, error) {
		return s.adapter.Fetch(ctx, s.handle, kind, uri)
	})
	if err != nil {
		return nil, false, fmt.Errorf("fetch %s %s: %w", kind, uri, err)
	}
	if p.LocalOnly {
		return nil, false, fmt.Errorf("%s %s: %w", kind, uri, adapter.ErrLocalOnly)
	}
	if p.URI == "" {
		p.URI = uri
	}
	if r, ok := s.resolved[p.URI]; ok {
		s.remember(r, uri)
		sink.Report(1)
		return r, false, nil
	}

	sch, err := schema.For(kind)
	if err != nil {
		return nil, false, err
	}

	existing, err := i.store.FindByRemoteURI(ctx, s.src, p.URI)
	if errors.Is(err, store.ErrNotFound) {
		existing = nil
	} else if err != nil {
		return nil, false, err
	}

	r := merge(s.src, sch, existing, p)

	if p.ThumbnailURL != "" && (opts.root || r.Thumbnail == nil) {
		id, err := i.importThumbnail(ctx, p.ThumbnailURL)
		switch {
		case err != nil:
			s.diagnose(kind, p.URI, "thumbnail", err)
		case id != nil:
			r.Thumbnail = id
		}
	}

	for _, f := range sch.References() {
		ref, ok := p.Refs[f.Key]
		if !ok {
			continue
		}
		child, _, err := i.importNode(ctx, s, ref.Kind, ref.URI, sink.Sub(f.RefWeight()), nodeOptions{skipChildren: true})
		if err != nil {
			if ctx.Err() != nil {
				return nil, false, ctx.Err()
			}
			s.diagnose(ref.Kind, ref.URI, f.Key, err)
			continue
		}
		r.Set(f.Key, child.Reference())
	}

	rebuild := make(map[string][]adapter.Ref)
	total := 0
	if !opts.skipChildren {
		for _, f := range sch.Lists() {
			refs, ok := p.Lists[f.Key]
			if !ok {
				continue
			}
			rebuild[f.Key] = refs
			total += len(refs)
			r.Set(f.Key, value.List{})
		}
	}

	if err := schema.Validate(r); err != nil {
		return nil, false, fmt.Errorf("%s %s: %w", kind, p.URI, err)
	}

	saved, created, err := i.store.UpsertByRemote(ctx, s.src, p.URI, r)
	if err != nil {
		return nil, false, fmt.Errorf("store %s %s: %w", kind, p.URI, err)
	}
	s.remember(saved, uri, p.URI)
	i.dropReplacedThumbnail(ctx, existing, saved)
	i.pushInverse(ctx, s, sch, saved)

	var per float64
	if total > 0 {
		per = (1 - sink.Current()) / float64(total)
	}
	for _, f := range sch.Lists() {
		refs, ok := rebuild[f.Key]
		if !ok {
			continue
		}
		list, err := i.importList(ctx, s, saved, f.Key, refs, sink, per)
		if err != nil {
			return nil, false, err
		}
		saved.Set(f.Key, list)
	}

	sink.Report(1)
	logrus.Debugf("import: %s %s stored as %s", kind, p.URI, saved.ID)
	return saved, created, nil
}

// importList imports refs in order and writes the resulting list once.
// Items that fail are diagnosed and left out.
func (i *Importer) importList(ctx context.Context, s *session, owner *resource.Resource, key string, refs []adapter.Ref, sink *progress.Sink, weight float64) (value.List, error) {
	bk := buildingKey(owner.ID, key)
	s.building.Add(bk)
	defer s.building.Remove(bk)

	list := make(value.List, 0, len(refs))
	for _, ref := range refs {
		child, err := i.importItem(ctx, s, ref, sink.Sub(weight))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.diagnose(ref.Kind, ref.URI, key, err)
			continue
		}
		list = append(list, child.Reference())
	}

	if err := i.store.SetList(ctx, owner.ID, key, list); err != nil {
		return nil, fmt.Errorf("store %s.%s: %w", owner.ID, key, err)
	}
	return list, nil
}

// importItem isolates one list item, panics included.
func (i *Importer) importItem(ctx context.Context, s *session, ref adapter.Ref, sink *progress.Sink) (r *resource.Resource, err error) {
	defer func() {
		if p := recover(); p != nil {
			logrus.Errorf("import: panic while importing %s: %v", ref.URI, p)
			err = fmt.Errorf("import %s: panic: %v", ref.URI, p)
		}
	}()
	r, _, err = i.importNode(ctx, s, ref.Kind, ref.URI, sink, nodeOptions{skipChildren: true})
	return r, err
}

// pushInverse adds r to the inverse list of every resource it references,
// unless that list is being rebuilt by an enclosing import.
func (i *Importer) pushInverse(ctx context.Context, s *session, sch schema.Schema, r *resource.Resource) {
	for _, f := range sch.References() {
		if f.Inverse == "" {
			continue
		}
		v, ok := r.Value(f.Key)
		if !ok || v.Ref == nil || s.building.Contains(buildingKey(*v.Ref, f.Inverse)) {
			continue
		}
		if _, err := i.store.AppendToList(ctx, *v.Ref, f.Inverse, r.Reference()); err != nil {
			s.diagnose(r.Kind, r.Remotes[s.src], f.Inverse, err)
		}
	}
}

// merge lays the payload over the stored resource. Attributes the payload
// does not carry keep their stored value.
func merge(src source.Type, sch schema.Schema, existing *resource.Resource, p *adapter.Payload) *resource.Resource {
	var r *resource.Resource
	if existing != nil {
		r = existing.Clone()
	} else {
		r = resource.New(sch.Kind, p.Title)
	}
	r.Kind = sch.Kind

	// a deleted target leaves only the cached title; the payload re-links it
	for _, f := range sch.References() {
		if v, ok := r.Value(f.Key); ok && v.Ref == nil {
			delete(r.Values, f.Key)
		}
	}

	if p.Title != "" {
		r.Title = p.Title
	}
	if r.Title == "" {
		r.Title = p.URI
	}
	for k, v := range p.Values {
		r.Set(k, v)
	}
	if _, ok := p.Values[schema.KeyName]; !ok {
		if _, declared := sch.Field(schema.KeyName); declared {
			r.Set(schema.KeyName, value.NewText(r.Title))
		}
	}
	if _, declared := sch.Field(schema.KeySource); declared {
		r.Set(schema.KeySource, value.NewSource(src))
	}
	r.Remotes[src] = p.URI
	return r
}

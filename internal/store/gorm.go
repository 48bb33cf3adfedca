package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emrgen/mediahub/internal/model"
	"github.com/emrgen/mediahub/internal/resource"
	"github.com/emrgen/mediahub/internal/source"
	"github.com/emrgen/mediahub/internal/value"
)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db: db,
	}
}

var _ Store = (*GormStore)(nil)

// GormStore keeps resources in the EAV tables of model.
type GormStore struct {
	db *gorm.DB
}

type listKey struct {
	ParentDataObjectID string
	ParentKey          string
}

func (g *GormStore) conn(ctx context.Context) *gorm.DB {
	return g.db.WithContext(ctx)
}

func (g *GormStore) tx(ctx context.Context, f func(tx *GormStore) error) error {
	return g.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return f(&GormStore{db: tx})
	})
}

func (g *GormStore) Migrate() error {
	return model.Migrate(g.db)
}

func (g *GormStore) Transaction(ctx context.Context, f func(tx Store) error) error {
	return g.tx(ctx, func(tx *GormStore) error {
		return f(tx)
	})
}

func (g *GormStore) FindByID(ctx context.Context, id uuid.UUID) (*resource.Resource, error) {
	var obj model.DataObject
	err := g.conn(ctx).Where("id = ?", id.String()).Take(&obj).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("resource %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	res, err := g.load(ctx, []model.DataObject{obj}, false)
	if err != nil {
		return nil, err
	}
	return res[0], nil
}

func (g *GormStore) FindByRemoteURI(ctx context.Context, src source.Type, uri string) (*resource.Resource, error) {
	var remote model.DataObjectRemote
	err := g.conn(ctx).Where("source_type = ? AND uri = ?", src.String(), uri).Take(&remote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s %s: %w", src, uri, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(remote.DataObjectID)
	if err != nil {
		return nil, err
	}
	return g.FindByID(ctx, id)
}

// Search returns favourites first, then the most recently written matches.
func (g *GormStore) Search(ctx context.Context, text string, limit int) ([]*resource.Resource, error) {
	q := g.conn(ctx).Model(&model.DataObject{})

	text = strings.TrimSpace(text)
	if text != "" {
		pattern := "%" + escapeLike(strings.ToLower(text)) + "%"
		matching := g.db.Model(&model.DataObjectValue{}).
			Select("data_object_id").
			Where("is_array = ? AND LOWER(serialized_value) LIKE ? ESCAPE '\\'", false, pattern)
		q = q.Where("LOWER(title) LIKE ? ESCAPE '\\' OR id IN (?)", pattern, matching)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var objs []model.DataObject
	if err := q.Order("is_favourite DESC").Order("updated_at DESC").Find(&objs).Error; err != nil {
		return nil, err
	}
	return g.load(ctx, objs, true)
}

func (g *GormStore) Create(ctx context.Context, r *resource.Resource) (*resource.Resource, error) {
	c := r.Clone()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	err := g.tx(ctx, func(tx *GormStore) error {
		var count int64
		if err := tx.conn(ctx).Model(&model.DataObject{}).Where("id = ?", c.ID.String()).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("resource %s: %w", c.ID, ErrExists)
		}
		return tx.write(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	logrus.Debugf("created %s %s (%s)", c.Kind, c.ID, c.Title)
	return c, nil
}

func (g *GormStore) Upsert(ctx context.Context, r *resource.Resource) (*resource.Resource, error) {
	if r.ID == uuid.Nil {
		return g.Create(ctx, r)
	}

	c := r.Clone()
	err := g.tx(ctx, func(tx *GormStore) error {
		return tx.write(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (g *GormStore) UpsertByRemote(ctx context.Context, src source.Type, uri string, r *resource.Resource) (*resource.Resource, bool, error) {
	var (
		out     *resource.Resource
		created bool
	)

	attempt := func() error {
		return g.tx(ctx, func(tx *GormStore) error {
			c := r.Clone()
			existing, err := tx.FindByRemoteURI(ctx, src, uri)
			switch {
			case errors.Is(err, ErrNotFound):
				if c.ID == uuid.Nil {
					c.ID = uuid.New()
				}
				created = true
			case err != nil:
				return err
			default:
				c.ID = existing.ID
				for s, u := range existing.Remotes {
					if _, ok := c.Remotes[s]; !ok {
						c.Remotes[s] = u
					}
				}
				created = false
			}
			c.Remotes[src] = uri

			if err := tx.write(ctx, c); err != nil {
				return err
			}
			out = c
			return nil
		})
	}

	err := attempt()
	if errors.Is(err, ErrRemoteConflict) {
		// a concurrent writer linked the same identity first
		logrus.Debugf("retrying upsert of %s %s after a remote conflict", src, uri)
		err = attempt()
	}
	if err != nil {
		return nil, false, err
	}
	return out, created, nil
}

func (g *GormStore) SetFavourite(ctx context.Context, id uuid.UUID, favourite bool) (*resource.Resource, error) {
	res := g.conn(ctx).Model(&model.DataObject{}).Where("id = ?", id.String()).UpdateColumn("is_favourite", favourite)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("resource %s: %w", id, ErrNotFound)
	}
	return g.FindByID(ctx, id)
}

func (g *GormStore) Delete(ctx context.Context, id uuid.UUID) error {
	sid := id.String()

	return g.tx(ctx, func(tx *GormStore) error {
		db := tx.conn(ctx)

		res := db.Where("id = ?", sid).Delete(&model.DataObject{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("resource %s: %w", id, ErrNotFound)
		}

		if err := db.Where("data_object_id = ?", sid).Delete(&model.DataObjectRemote{}).Error; err != nil {
			return err
		}
		if err := db.Where("data_object_id = ?", sid).Delete(&model.DataObjectValue{}).Error; err != nil {
			return err
		}
		if err := db.Where("parent_data_object_id = ?", sid).Delete(&model.ValueArrayItem{}).Error; err != nil {
			return err
		}

		// scalar references keep the cached title as plain text
		err := db.Model(&model.DataObjectValue{}).
			Where("referenced_data_object_id = ? AND is_array = ?", sid, false).
			Update("referenced_data_object_id", gorm.Expr("NULL")).Error
		if err != nil {
			return err
		}

		var lists []listKey
		err = db.Model(&model.ValueArrayItem{}).
			Distinct("parent_data_object_id", "parent_key").
			Where("referenced_data_object_id = ?", sid).
			Scan(&lists).Error
		if err != nil {
			return err
		}
		if err := db.Where("referenced_data_object_id = ?", sid).Delete(&model.ValueArrayItem{}).Error; err != nil {
			return err
		}
		for _, l := range lists {
			if err := tx.compactList(ctx, l); err != nil {
				return err
			}
		}

		logrus.Infof("deleted resource %s, removed from %d lists", sid, len(lists))
		return nil
	})
}

func (g *GormStore) Referrers(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	sid := id.String()
	db := g.conn(ctx)

	var scalar, listed []string
	err := db.Model(&model.DataObjectValue{}).
		Where("referenced_data_object_id = ? AND is_array = ?", sid, false).
		Distinct().Pluck("data_object_id", &scalar).Error
	if err != nil {
		return nil, err
	}
	err = db.Model(&model.ValueArrayItem{}).
		Where("referenced_data_object_id = ?", sid).
		Distinct().Pluck("parent_data_object_id", &listed).Error
	if err != nil {
		return nil, err
	}

	set := mapset.NewThreadUnsafeSet(scalar...)
	set.Append(listed...)
	ids := make([]uuid.UUID, 0, set.Cardinality())
	for _, s := range set.ToSlice() {
		rid, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, rid)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	return ids, nil
}

// ListStale returns resources linked to at least one source, oldest first.
func (g *GormStore) ListStale(ctx context.Context, before time.Time, limit int) ([]*resource.Resource, error) {
	linked := g.db.Model(&model.DataObjectRemote{}).Select("data_object_id")
	q := g.conn(ctx).Where("updated_at < ? AND id IN (?)", before.UTC(), linked).Order("updated_at")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var objs []model.DataObject
	if err := q.Find(&objs).Error; err != nil {
		return nil, err
	}
	return g.load(ctx, objs, true)
}

func (g *GormStore) ResolveReferenceList(ctx context.Context, id uuid.UUID, key string) ([]*resource.Resource, error) {
	r, err := g.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	f, ok := r.Values[key]
	if !ok {
		return []*resource.Resource{}, nil
	}
	list, ok := f.(value.List)
	if !ok {
		return nil, fmt.Errorf("%s.%s: %w", id, key, ErrNotList)
	}

	ids := make([]string, 0, len(list))
	for _, target := range list.IDs() {
		ids = append(ids, target.String())
	}
	if len(ids) == 0 {
		return []*resource.Resource{}, nil
	}

	var objs []model.DataObject
	if err := g.conn(ctx).Where("id IN ?", ids).Find(&objs).Error; err != nil {
		return nil, err
	}
	loaded, err := g.load(ctx, objs, true)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*resource.Resource, len(loaded))
	for _, res := range loaded {
		byID[res.ID] = res
	}
	out := make([]*resource.Resource, 0, len(list))
	for _, target := range list.IDs() {
		if res, ok := byID[target]; ok {
			out = append(out, res)
		}
	}
	return out, nil
}

func (g *GormStore) SetList(ctx context.Context, id uuid.UUID, key string, list value.List) error {
	row, items, err := listRows(id, key, list)
	if err != nil {
		return err
	}

	return g.tx(ctx, func(tx *GormStore) error {
		if _, err := tx.listRow(ctx, id, key); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		db := tx.conn(ctx)
		if err := db.Where("parent_data_object_id = ? AND parent_key = ?", id.String(), key).Delete(&model.ValueArrayItem{}).Error; err != nil {
			return err
		}
		if err := db.Save(&row).Error; err != nil {
			return err
		}
		if len(items) > 0 {
			if err := db.Create(&items).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (g *GormStore) AppendToList(ctx context.Context, id uuid.UUID, key string, v value.Value) (bool, error) {
	if v.Type != value.TypeReference || v.Ref == nil {
		return false, fmt.Errorf("%s.%s: %w: only resource references can be appended", id, key, value.ErrTypeMismatch)
	}
	title, err := v.Serialize()
	if err != nil {
		return false, err
	}

	appended := false
	err = g.tx(ctx, func(tx *GormStore) error {
		row, err := tx.listRow(ctx, id, key)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			row = &model.DataObjectValue{
				DataObjectID: id.String(),
				AttributeKey: key,
				ValueType:    value.TypeReferenceList.String(),
				IsArray:      true,
			}
		} else if err != nil {
			return err
		}

		db := tx.conn(ctx)
		var items []model.ValueArrayItem
		err = db.Where("parent_data_object_id = ? AND parent_key = ?", id.String(), key).Order("position").Find(&items).Error
		if err != nil {
			return err
		}

		ref := v.Ref.String()
		ids := make(value.IDs, 0, len(items)+1)
		for _, it := range items {
			if it.ReferencedDataObjectID == nil {
				continue
			}
			if *it.ReferencedDataObjectID == ref {
				return nil
			}
			if target, err := uuid.Parse(*it.ReferencedDataObjectID); err == nil {
				ids = append(ids, target)
			}
		}

		position := 0
		if n := len(items); n > 0 {
			position = items[n-1].Position + 1
		}
		item := model.ValueArrayItem{
			ParentDataObjectID:     id.String(),
			ParentKey:              key,
			Position:               position,
			SerializedValue:        title,
			ReferencedDataObjectID: &ref,
		}
		if err := db.Create(&item).Error; err != nil {
			return err
		}

		raw, err := value.Serialize(append(ids, *v.Ref), value.TypeReferenceList)
		if err != nil {
			return err
		}
		row.SerializedValue = raw
		if err := db.Save(row).Error; err != nil {
			return err
		}

		appended = true
		return nil
	})

	return appended, err
}

func (g *GormStore) PruneDanglingReferences(ctx context.Context) (*Pruned, error) {
	pruned := &Pruned{}
	parents := mapset.NewThreadUnsafeSet[string]()

	err := g.tx(ctx, func(tx *GormStore) error {
		db := tx.conn(ctx)
		live := tx.db.Model(&model.DataObject{}).Select("id")

		scalar := db.Model(&model.DataObjectValue{}).
			Where("is_array = ? AND referenced_data_object_id IS NOT NULL AND referenced_data_object_id NOT IN (?)", false, live).
			Session(&gorm.Session{})
		var owners []string
		if err := scalar.Distinct().Pluck("data_object_id", &owners).Error; err != nil {
			return err
		}
		parents.Append(owners...)

		res := scalar.Update("referenced_data_object_id", gorm.Expr("NULL"))
		if res.Error != nil {
			return res.Error
		}
		pruned.Rows += res.RowsAffected

		dangling := "referenced_data_object_id IS NULL OR referenced_data_object_id NOT IN (?)"
		var lists []listKey
		err := db.Model(&model.ValueArrayItem{}).
			Distinct("parent_data_object_id", "parent_key").
			Where(dangling, live).
			Scan(&lists).Error
		if err != nil {
			return err
		}

		res = db.Where(dangling, live).Delete(&model.ValueArrayItem{})
		if res.Error != nil {
			return res.Error
		}
		pruned.Rows += res.RowsAffected

		for _, l := range lists {
			parents.Add(l.ParentDataObjectID)
			if err := tx.compactList(ctx, l); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, sid := range parents.ToSlice() {
		id, err := uuid.Parse(sid)
		if err != nil {
			return nil, fmt.Errorf("pruned parent %q: %w", sid, err)
		}
		pruned.Parents = append(pruned.Parents, id)
	}
	sort.Slice(pruned.Parents, func(i, j int) bool { return pruned.Parents[i].String() < pruned.Parents[j].String() })
	return pruned, nil
}

func (g *GormStore) AttachRemoteURI(ctx context.Context, id uuid.UUID, src source.Type, uri string) error {
	return g.tx(ctx, func(tx *GormStore) error {
		if err := tx.exists(ctx, id); err != nil {
			return err
		}

		row := model.DataObjectRemote{DataObjectID: id.String(), SourceType: src.String(), URI: uri}
		err := tx.conn(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "data_object_id"}, {Name: "source_type"}},
			DoUpdates: clause.AssignmentColumns([]string{"uri"}),
		}).Create(&row).Error
		if isUniqueViolation(err) {
			return fmt.Errorf("%s %s: %w", src, uri, ErrRemoteConflict)
		}
		return err
	})
}

func (g *GormStore) DetachRemoteURI(ctx context.Context, id uuid.UUID, src source.Type) error {
	res := g.conn(ctx).Where("data_object_id = ? AND source_type = ?", id.String(), src.String()).Delete(&model.DataObjectRemote{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s remote of %s: %w", src, id, ErrNotFound)
	}
	return nil
}

// write replaces every row of r and refreshes the title cached by its
// referrers. It must run inside a transaction.
func (g *GormStore) write(ctx context.Context, r *resource.Resource) error {
	values, items, err := toRows(r)
	if err != nil {
		return err
	}

	db := g.conn(ctx)
	sid := r.ID.String()
	now := time.Now().UTC()

	var existing model.DataObject
	err = db.Where("id = ?", sid).Take(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		obj := toDataObject(r)
		obj.CreatedAt = r.CreatedAt
		obj.UpdatedAt = now
		if err := db.Create(obj).Error; err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		r.CreatedAt = existing.CreatedAt
		err = db.Model(&model.DataObject{}).Where("id = ?", sid).Updates(map[string]any{
			"title":             r.Title,
			"resource_type":     string(r.Kind),
			"is_favourite":      r.IsFavourite,
			"thumbnail_file_id": idString(r.Thumbnail),
			"updated_at":        now,
		}).Error
		if err != nil {
			return err
		}
	}
	r.UpdatedAt = now

	if err := db.Where("data_object_id = ?", sid).Delete(&model.DataObjectRemote{}).Error; err != nil {
		return err
	}
	if remotes := toRemotes(r); len(remotes) > 0 {
		if err := db.Create(&remotes).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("resource %s: %w", sid, ErrRemoteConflict)
			}
			return err
		}
	}

	if err := g.refreshTitles(ctx, values, items); err != nil {
		return err
	}
	if err := db.Where("data_object_id = ?", sid).Delete(&model.DataObjectValue{}).Error; err != nil {
		return err
	}
	if err := db.Where("parent_data_object_id = ?", sid).Delete(&model.ValueArrayItem{}).Error; err != nil {
		return err
	}
	if len(values) > 0 {
		if err := db.Create(&values).Error; err != nil {
			return err
		}
	}
	if len(items) > 0 {
		if err := db.Create(&items).Error; err != nil {
			return err
		}
	}

	err = db.Model(&model.DataObjectValue{}).
		Where("referenced_data_object_id = ? AND is_array = ?", sid, false).
		Update("serialized_value", r.Title).Error
	if err != nil {
		return err
	}
	return db.Model(&model.ValueArrayItem{}).
		Where("referenced_data_object_id = ?", sid).
		Update("serialized_value", r.Title).Error
}

// refreshTitles replaces the titles carried by outgoing references with the
// current titles of their targets.
func (g *GormStore) refreshTitles(ctx context.Context, values []model.DataObjectValue, items []model.ValueArrayItem) error {
	ids := referencedIDs(values, items)
	if len(ids) == 0 {
		return nil
	}

	var targets []model.DataObject
	if err := g.conn(ctx).Select("id", "title").Where("id IN ?", ids).Find(&targets).Error; err != nil {
		return err
	}
	titles := make(map[string]string, len(targets))
	for _, t := range targets {
		titles[t.ID] = t.Title
	}

	for i := range values {
		v := &values[i]
		if v.IsArray || v.ReferencedDataObjectID == nil {
			continue
		}
		if title, ok := titles[*v.ReferencedDataObjectID]; ok {
			v.SerializedValue = title
		}
	}
	for i := range items {
		it := &items[i]
		if it.ReferencedDataObjectID == nil {
			continue
		}
		if title, ok := titles[*it.ReferencedDataObjectID]; ok {
			it.SerializedValue = title
		}
	}
	return nil
}

func (g *GormStore) exists(ctx context.Context, id uuid.UUID) error {
	var count int64
	if err := g.conn(ctx).Model(&model.DataObject{}).Where("id = ?", id.String()).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("resource %s: %w", id, ErrNotFound)
	}
	return nil
}

// listRow returns the attribute row of a list, gorm.ErrRecordNotFound when
// the list was never written, and ErrNotList for scalar attributes.
func (g *GormStore) listRow(ctx context.Context, id uuid.UUID, key string) (*model.DataObjectValue, error) {
	if err := g.exists(ctx, id); err != nil {
		return nil, err
	}

	var row model.DataObjectValue
	err := g.conn(ctx).Where("data_object_id = ? AND attribute_key = ?", id.String(), key).Take(&row).Error
	if err != nil {
		return nil, err
	}
	if !row.IsArray {
		return nil, fmt.Errorf("%s.%s: %w", id, key, ErrNotList)
	}
	return &row, nil
}

// compactList renumbers the remaining items of a list from zero and rewrites
// the id list on the attribute row.
func (g *GormStore) compactList(ctx context.Context, l listKey) error {
	db := g.conn(ctx)

	var items []model.ValueArrayItem
	err := db.Where("parent_data_object_id = ? AND parent_key = ?", l.ParentDataObjectID, l.ParentKey).Order("position").Find(&items).Error
	if err != nil {
		return err
	}
	if err := db.Where("parent_data_object_id = ? AND parent_key = ?", l.ParentDataObjectID, l.ParentKey).Delete(&model.ValueArrayItem{}).Error; err != nil {
		return err
	}

	ids := make(value.IDs, 0, len(items))
	for i := range items {
		items[i].Position = i
		if items[i].ReferencedDataObjectID == nil {
			continue
		}
		if target, err := uuid.Parse(*items[i].ReferencedDataObjectID); err == nil {
			ids = append(ids, target)
		}
	}
	if len(items) > 0 {
		if err := db.Create(&items).Error; err != nil {
			return err
		}
	}

	raw, err := value.Serialize(ids, value.TypeReferenceList)
	if err != nil {
		return err
	}
	return db.Model(&model.DataObjectValue{}).
		Where("data_object_id = ? AND attribute_key = ?", l.ParentDataObjectID, l.ParentKey).
		Update("serialized_value", raw).Error
}

// load rebuilds resources from their rows with a fixed number of queries.
// With skipBroken, resources that fail to decode are logged and left out.
func (g *GormStore) load(ctx context.Context, objs []model.DataObject, skipBroken bool) ([]*resource.Resource, error) {
	if len(objs) == 0 {
		return []*resource.Resource{}, nil
	}

	db := g.conn(ctx)
	ids := make([]string, 0, len(objs))
	for _, obj := range objs {
		ids = append(ids, obj.ID)
	}

	var remotes []model.DataObjectRemote
	if err := db.Where("data_object_id IN ?", ids).Find(&remotes).Error; err != nil {
		return nil, err
	}
	var values []model.DataObjectValue
	if err := db.Where("data_object_id IN ?", ids).Find(&values).Error; err != nil {
		return nil, err
	}
	var items []model.ValueArrayItem
	if err := db.Where("parent_data_object_id IN ?", ids).Order("position").Find(&items).Error; err != nil {
		return nil, err
	}

	live, err := g.live(ctx, referencedIDs(values, items))
	if err != nil {
		return nil, err
	}

	remotesByID := make(map[string][]model.DataObjectRemote)
	for _, rm := range remotes {
		remotesByID[rm.DataObjectID] = append(remotesByID[rm.DataObjectID], rm)
	}
	valuesByID := make(map[string][]model.DataObjectValue)
	for _, v := range values {
		valuesByID[v.DataObjectID] = append(valuesByID[v.DataObjectID], v)
	}
	itemsByID := make(map[string][]model.ValueArrayItem)
	for _, it := range items {
		itemsByID[it.ParentDataObjectID] = append(itemsByID[it.ParentDataObjectID], it)
	}

	out := make([]*resource.Resource, 0, len(objs))
	for i := range objs {
		obj := &objs[i]
		r, err := fromRows(obj, remotesByID[obj.ID], valuesByID[obj.ID], itemsByID[obj.ID], live)
		if err != nil {
			if skipBroken {
				logrus.WithField("id", obj.ID).Warnf("skipping undecodable resource: %v", err)
				continue
			}
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// live returns which of ids still name a stored resource.
func (g *GormStore) live(ctx context.Context, ids []string) (map[string]bool, error) {
	live := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return live, nil
	}

	var found []string
	if err := g.conn(ctx).Model(&model.DataObject{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return nil, err
	}
	for _, id := range found {
		live[id] = true
	}
	return live, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

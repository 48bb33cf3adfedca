package store

import (
	"fmt"
	"sort"

	"github.com/emrgen/mediahub/internal/model"
	"github.com/emrgen/mediahub/internal/resource"
	"github.com/emrgen/mediahub/internal/source"
	"github.com/emrgen/mediahub/internal/value"
	"github.com/google/uuid"
)

func idString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func parseID(s *string) (*uuid.UUID, error) {
	if s == nil {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func toDataObject(r *resource.Resource) *model.DataObject {
	return &model.DataObject{
		ID:              r.ID.String(),
		Title:           r.Title,
		ResourceType:    string(r.Kind),
		IsFavourite:     r.IsFavourite,
		ThumbnailFileID: idString(r.Thumbnail),
	}
}

func toRemotes(r *resource.Resource) []model.DataObjectRemote {
	rows := make([]model.DataObjectRemote, 0, len(r.Remotes))
	for _, src := range r.RemoteSources() {
		rows = append(rows, model.DataObjectRemote{
			DataObjectID: r.ID.String(),
			SourceType:   src.String(),
			URI:          r.Remotes[src],
		})
	}
	return rows
}

// toRows flattens the values of r into attribute rows and array item rows.
func toRows(r *resource.Resource) ([]model.DataObjectValue, []model.ValueArrayItem, error) {
	var values []model.DataObjectValue
	var items []model.ValueArrayItem

	for _, key := range r.Keys() {
		switch f := r.Values[key].(type) {
		case value.Value:
			row, err := scalarRow(r.ID, key, f)
			if err != nil {
				return nil, nil, err
			}
			values = append(values, row)
		case value.List:
			row, listItems, err := listRows(r.ID, key, f)
			if err != nil {
				return nil, nil, err
			}
			values = append(values, row)
			items = append(items, listItems...)
		default:
			return nil, nil, fmt.Errorf("%s: %w: unknown field %T", key, value.ErrTypeMismatch, f)
		}
	}

	return values, items, nil
}

func scalarRow(id uuid.UUID, key string, v value.Value) (model.DataObjectValue, error) {
	if err := v.Validate(); err != nil {
		return model.DataObjectValue{}, fmt.Errorf("%s: %w", key, err)
	}
	if v.Type == value.TypeReferenceList {
		return model.DataObjectValue{}, fmt.Errorf("%s: %w: resource-list must be stored as a list", key, value.ErrTypeMismatch)
	}
	raw, err := v.Serialize()
	if err != nil {
		return model.DataObjectValue{}, fmt.Errorf("%s: %w", key, err)
	}
	return model.DataObjectValue{
		DataObjectID:           id.String(),
		AttributeKey:           key,
		ValueType:              v.Type.String(),
		SerializedValue:        raw,
		ReferencedDataObjectID: idString(v.Ref),
	}, nil
}

func listRows(id uuid.UUID, key string, list value.List) (model.DataObjectValue, []model.ValueArrayItem, error) {
	if err := list.Validate(); err != nil {
		return model.DataObjectValue{}, nil, fmt.Errorf("%s: %w", key, err)
	}
	raw, err := value.Serialize(list.IDs(), value.TypeReferenceList)
	if err != nil {
		return model.DataObjectValue{}, nil, fmt.Errorf("%s: %w", key, err)
	}
	row := model.DataObjectValue{
		DataObjectID:    id.String(),
		AttributeKey:    key,
		ValueType:       value.TypeReferenceList.String(),
		IsArray:         true,
		SerializedValue: raw,
	}

	items := make([]model.ValueArrayItem, 0, len(list))
	for i, v := range list {
		title, err := v.Serialize()
		if err != nil {
			return model.DataObjectValue{}, nil, fmt.Errorf("%s[%d]: %w", key, i, err)
		}
		items = append(items, model.ValueArrayItem{
			ParentDataObjectID:     id.String(),
			ParentKey:              key,
			Position:               i,
			SerializedValue:        title,
			ReferencedDataObjectID: idString(v.Ref),
		})
	}

	return row, items, nil
}

// fromRows rebuilds a resource. References whose target is not in live are
// treated as dangling: scalar refs lose their target, list items are dropped.
func fromRows(
	obj *model.DataObject,
	remotes []model.DataObjectRemote,
	values []model.DataObjectValue,
	items []model.ValueArrayItem,
	live map[string]bool,
) (*resource.Resource, error) {
	id, err := uuid.Parse(obj.ID)
	if err != nil {
		return nil, fmt.Errorf("data object id %q: %w", obj.ID, err)
	}
	kind, err := resource.ParseKind(obj.ResourceType)
	if err != nil {
		return nil, err
	}
	thumb, err := parseID(obj.ThumbnailFileID)
	if err != nil {
		return nil, fmt.Errorf("thumbnail of %s: %w", obj.ID, err)
	}

	r := resource.New(kind, obj.Title)
	r.ID = id
	r.IsFavourite = obj.IsFavourite
	r.Thumbnail = thumb
	r.CreatedAt = obj.CreatedAt
	r.UpdatedAt = obj.UpdatedAt

	for _, rm := range remotes {
		src, err := source.Parse(rm.SourceType)
		if err != nil {
			return nil, err
		}
		r.Remotes[src] = rm.URI
	}

	byKey := make(map[string][]model.ValueArrayItem)
	for _, it := range items {
		byKey[it.ParentKey] = append(byKey[it.ParentKey], it)
	}

	for _, row := range values {
		typ, err := value.ParseType(row.ValueType)
		if err != nil {
			return nil, &value.DecodeError{Type: typ, Raw: row.ValueType, Err: err}
		}

		if row.IsArray {
			list, err := decodeList(byKey[row.AttributeKey], live)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", obj.ID, row.AttributeKey, err)
			}
			r.Set(row.AttributeKey, list)
			continue
		}

		ref, err := parseID(row.ReferencedDataObjectID)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", obj.ID, row.AttributeKey, err)
		}
		if ref != nil && !live[ref.String()] {
			ref = nil
		}
		v, err := value.Decode(typ, row.SerializedValue, ref)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", obj.ID, row.AttributeKey, err)
		}
		r.Set(row.AttributeKey, v)
	}

	return r, nil
}

func decodeList(items []model.ValueArrayItem, live map[string]bool) (value.List, error) {
	sort.Slice(items, func(i, j int) bool { return items[i].Position < items[j].Position })

	list := make(value.List, 0, len(items))
	for _, it := range items {
		if it.ReferencedDataObjectID == nil || !live[*it.ReferencedDataObjectID] {
			continue
		}
		ref, err := parseID(it.ReferencedDataObjectID)
		if err != nil {
			return nil, err
		}
		v, err := value.Decode(value.TypeReference, it.SerializedValue, ref)
		if err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, nil
}

// referencedIDs collects every target id mentioned by the rows.
func referencedIDs(values []model.DataObjectValue, items []model.ValueArrayItem) []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(s *string) {
		if s != nil && !seen[*s] {
			seen[*s] = true
			ids = append(ids, *s)
		}
	}
	for _, v := range values {
		add(v.ReferencedDataObjectID)
	}
	for _, it := range items {
		add(it.ReferencedDataObjectID)
	}
	return ids
}

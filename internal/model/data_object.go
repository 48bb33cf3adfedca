package model

import (
	"time"
)

// DataObject is the fixed part of a resource. Its attributes live in
// DataObjectValue rows.
type DataObject struct {
	ID              string  `gorm:"primaryKey;uuid;not null"`
	Title           string  `gorm:"not null;index"`
	ResourceType    string  `gorm:"not null;index"`
	IsFavourite     bool    `gorm:"not null;default:false"`
	ThumbnailFileID *string `gorm:"uuid"`
	CreatedAt       time.Time
	UpdatedAt       time.Time `gorm:"index"`
}

func (DataObject) TableName() string {
	return "data_objects"
}

// DataObjectRemote links a resource to its identity in an external source.
// A resource has at most one remote per source and a (source, uri) pair
// belongs to at most one resource.
type DataObjectRemote struct {
	DataObjectID string `gorm:"primaryKey;uuid;not null"`
	SourceType   string `gorm:"primaryKey;not null;uniqueIndex:idx_remote_source_uri,priority:1"`
	URI          string `gorm:"not null;uniqueIndex:idx_remote_source_uri,priority:2"`
}

func (DataObjectRemote) TableName() string {
	return "data_object_remotes"
}

package model

import "time"

// File is the metadata of a stored binary, such as a thumbnail.
type File struct {
	ID        string `gorm:"primaryKey;uuid;not null"`
	Name      string `gorm:"not null"`
	MimeType  string `gorm:"not null"`
	Size      int64
	Path      string `gorm:"not null"`
	CreatedAt time.Time
}

func (File) TableName() string {
	return "files"
}

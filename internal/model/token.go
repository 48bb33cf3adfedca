package model

import "time"

// OAuthToken keeps the opaque credentials of one user for one source.
type OAuthToken struct {
	UserID     string `gorm:"primaryKey;not null"`
	SourceType string `gorm:"primaryKey;not null"`
	Data       string `gorm:"not null"`
	ExpiresAt  time.Time
	UpdatedAt  time.Time
}

func (OAuthToken) TableName() string {
	return "oauth_tokens"
}

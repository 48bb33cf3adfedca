package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emrgen/mediahub/internal/model"
	"github.com/emrgen/mediahub/internal/source"
)

// Token is the opaque credential blob of one user for one source.
type Token struct {
	Data      string
	ExpiresAt time.Time
}

type TokenStore interface {
	// FindToken returns the stored credentials of user for src.
	FindToken(ctx context.Context, user string, src source.Type) (*Token, error)
	// UpdateTokenData replaces the stored credentials.
	UpdateTokenData(ctx context.Context, user string, src source.Type, token *Token) error
}

var _ TokenStore = (*GormTokenStore)(nil)

type GormTokenStore struct {
	db *gorm.DB
}

func NewGormTokenStore(db *gorm.DB) *GormTokenStore {
	return &GormTokenStore{db: db}
}

func (g *GormTokenStore) FindToken(ctx context.Context, user string, src source.Type) (*Token, error) {
	var row model.OAuthToken
	err := g.db.WithContext(ctx).Where("user_id = ? AND source_type = ?", user, src.String()).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s token of %q: %w", src, user, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	return &Token{Data: row.Data, ExpiresAt: row.ExpiresAt}, nil
}

func (g *GormTokenStore) UpdateTokenData(ctx context.Context, user string, src source.Type, token *Token) error {
	row := model.OAuthToken{
		UserID:     user,
		SourceType: src.String(),
		Data:       token.Data,
		ExpiresAt:  token.ExpiresAt.UTC(),
		UpdatedAt:  time.Now().UTC(),
	}

	return g.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

// Package files stores binary attachments such as thumbnails. Metadata lives
// in the database, bytes in a Blobs backend.
package files

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/emrgen/mediahub/internal/model"
)

var (
	ErrNotFound = errors.New("file not found")
	ErrEmpty    = errors.New("file is empty")
)

// FileReference describes a stored file.
type FileReference struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	MimeType  string    `json:"mimeType"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// Blobs is a flat key to bytes store.
type Blobs interface {
	Put(ctx context.Context, key string, r io.Reader, size int64) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

type FileStore interface {
	// SaveFile stores data under a fresh id.
	SaveFile(ctx context.Context, name string, data []byte) (*FileReference, error)
	// Open returns the bytes and metadata of a stored file.
	Open(ctx context.Context, id uuid.UUID) (io.ReadCloser, *FileReference, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

var _ FileStore = (*GormFileStore)(nil)

type GormFileStore struct {
	db    *gorm.DB
	blobs Blobs
}

func NewGormFileStore(db *gorm.DB, blobs Blobs) *GormFileStore {
	return &GormFileStore{db: db, blobs: blobs}
}

func (s *GormFileStore) SaveFile(ctx context.Context, name string, data []byte) (*FileReference, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}

	id := uuid.New()
	row := model.File{
		ID:        id.String(),
		Name:      name,
		MimeType:  DetectMimeType(name, data),
		Size:      int64(len(data)),
		Path:      blobKey(id, name),
		CreatedAt: time.Now().UTC(),
	}

	if err := s.blobs.Put(ctx, row.Path, bytes.NewReader(data), row.Size); err != nil {
		return nil, fmt.Errorf("store %s: %w", name, err)
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if derr := s.blobs.Delete(ctx, row.Path); derr != nil {
			logrus.Warnf("removing orphaned blob %s: %v", row.Path, derr)
		}
		return nil, err
	}

	return toReference(&row), nil
}

func (s *GormFileStore) Open(ctx context.Context, id uuid.UUID) (io.ReadCloser, *FileReference, error) {
	row, err := s.find(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	rc, err := s.blobs.Get(ctx, row.Path)
	if err != nil {
		return nil, nil, err
	}
	return rc, toReference(row), nil
}

func (s *GormFileStore) Delete(ctx context.Context, id uuid.UUID) error {
	row, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&model.File{}, "id = ?", row.ID).Error; err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, row.Path); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

func (s *GormFileStore) find(ctx context.Context, id uuid.UUID) (*model.File, error) {
	var row model.File
	err := s.db.WithContext(ctx).Where("id = ?", id.String()).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("file %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func toReference(row *model.File) *FileReference {
	return &FileReference{
		ID:        uuid.MustParse(row.ID),
		Name:      row.Name,
		MimeType:  row.MimeType,
		Size:      row.Size,
		CreatedAt: row.CreatedAt,
	}
}

// blobKey keeps the extension so blobs stay recognizable on disk.
func blobKey(id uuid.UUID, name string) string {
	return id.String() + strings.ToLower(filepath.Ext(name))
}

// DetectMimeType prefers the file extension and falls back to sniffing.
func DetectMimeType(name string, data []byte) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); t != "" {
		return t
	}
	return http.DetectContentType(data)
}

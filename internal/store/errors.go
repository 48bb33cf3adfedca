package store

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrNotFound       = errors.New("resource not found")
	ErrExists         = errors.New("resource already exists")
	ErrRemoteConflict = errors.New("remote uri is linked to another resource")
	ErrNotList        = errors.New("attribute is not a list")
)

// isUniqueViolation reports whether err comes from a unique index. The
// translated gorm error is preferred; drivers without a translator are
// matched on their message.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

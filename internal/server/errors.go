package server

import (
	"errors"
	"net/http"

	"github.com/emrgen/mediahub/internal/adapter"
	"github.com/emrgen/mediahub/internal/files"
	"github.com/emrgen/mediahub/internal/importer"
	"github.com/emrgen/mediahub/internal/schema"
	"github.com/emrgen/mediahub/internal/service"
	"github.com/emrgen/mediahub/internal/store"
	"github.com/emrgen/mediahub/internal/value"
)

// statusOf maps service errors onto HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, adapter.ErrNotFound),
		errors.Is(err, files.ErrNotFound),
		errors.Is(err, service.ErrNoThumbnail):
		return http.StatusNotFound
	case errors.Is(err, adapter.ErrUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, schema.ErrViolation),
		errors.Is(err, value.ErrDecode),
		errors.Is(err, adapter.ErrLocalOnly):
		return http.StatusUnprocessableEntity
	case errors.Is(err, adapter.ErrTransient):
		return http.StatusBadGateway
	case errors.Is(err, adapter.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrRemoteConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidArgument),
		errors.Is(err, store.ErrNotList),
		importer.IsUserError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

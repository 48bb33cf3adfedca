package service

import "errors"

var (
	// ErrInvalidArgument is returned for malformed requests.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNoThumbnail is returned when a resource has no thumbnail file.
	ErrNoThumbnail = errors.New("resource has no thumbnail")
)

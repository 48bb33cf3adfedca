package cache

import (
	"context"
	"time"

	"github.com/emrgen/mediahub/internal/resource"
	"github.com/google/uuid"
)

var (
	_ ResourceCache = Nop{}
	_ KV            = Nop{}
)

// Nop is used when no redis is configured. Every lookup misses.
type Nop struct{}

func (Nop) GetResource(context.Context, uuid.UUID) (*resource.Resource, error) {
	return nil, nil
}

func (Nop) SetResource(context.Context, *resource.Resource) error {
	return nil
}

func (Nop) DeleteResources(context.Context, ...uuid.UUID) error {
	return nil
}

func (Nop) Get(context.Context, string, any) (bool, error) {
	return false, nil
}

func (Nop) Set(context.Context, string, any, time.Duration) error {
	return nil
}

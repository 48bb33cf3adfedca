// Package cache keeps hot resources and search results out of the database.
package cache

import (
	"context"
	"time"

	"github.com/emrgen/mediahub/internal/resource"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// ResourceCache is a read-through cache for resources.
type ResourceCache interface {
	// GetResource returns the cached resource, or nil on a miss.
	GetResource(ctx context.Context, id uuid.UUID) (*resource.Resource, error)
	// SetResource caches a resource.
	SetResource(ctx context.Context, r *resource.Resource) error
	// DeleteResources evicts resources.
	DeleteResources(ctx context.Context, ids ...uuid.UUID) error
}

// KV caches arbitrary JSON values for a limited time.
type KV interface {
	// Get decodes the value under key into dest and reports whether it was found.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
}

// Options configures the redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisClient(opts Options) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
		Protocol: 2,
	})
}

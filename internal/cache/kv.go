package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/emrgen/mediahub/internal/compress"
	redis "github.com/redis/go-redis/v9"
)

var _ KV = (*RedisKV)(nil)

type RedisKV struct {
	client  *redis.Client
	encoder compress.Compress
	prefix  string
}

func NewRedisKV(client *redis.Client, encoder compress.Compress, prefix string) *RedisKV {
	if encoder == nil {
		encoder = compress.NewNop()
	}
	return &RedisKV{client: client, encoder: encoder, prefix: prefix}
}

func (r *RedisKV) Get(ctx context.Context, key string, dest any) (bool, error) {
	buf, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	data, err := r.encoder.Decode(buf)
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (r *RedisKV) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	encoded, err := r.encoder.Encode(data)
	if err != nil {
		return err
	}

	return r.client.Set(ctx, r.prefix+key, encoded, ttl).Err()
}

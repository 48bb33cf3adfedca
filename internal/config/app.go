package config

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/emrgen/mediahub/internal/adapter"
	"github.com/emrgen/mediahub/internal/adapter/pocket"
	"github.com/emrgen/mediahub/internal/adapter/spotify"
	"github.com/emrgen/mediahub/internal/adapter/youtube"
	"github.com/emrgen/mediahub/internal/cache"
	"github.com/emrgen/mediahub/internal/compress"
	"github.com/emrgen/mediahub/internal/files"
	"github.com/emrgen/mediahub/internal/importer"
	"github.com/emrgen/mediahub/internal/jobs"
	"github.com/emrgen/mediahub/internal/queue"
	"github.com/emrgen/mediahub/internal/store"
)

// App holds the components a running process shares.
type App struct {
	DB       *gorm.DB
	Store    store.Store
	Tokens   store.TokenStore
	Files    files.FileStore
	Events   queue.ImportQueue
	Importer *importer.Importer

	redis *redis.Client
}

// Build wires every component from cfg. Redis and kafka are optional and
// replaced by no-op implementations when unset.
func Build(ctx context.Context, cfg *Config, db *gorm.DB) (*App, error) {
	app := &App{DB: db}

	var base store.Store = store.NewGormStore(db)
	if err := base.Migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	var kv cache.KV = cache.Nop{}
	app.Store = base
	if cfg.RedisAddr != "" {
		enc, err := compress.ForName(cfg.Compression)
		if err != nil {
			return nil, err
		}
		app.redis = cache.NewRedisClient(cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err := app.redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		app.Store = store.NewCachedStore(base, cache.NewRedisResourceCache(app.redis, enc, cfg.CacheTTL))
		kv = cache.NewRedisKV(app.redis, enc, "mediahub:")
		logrus.Infof("resource cache on redis %s (%s)", cfg.RedisAddr, cfg.Compression)
	}

	app.Tokens = store.NewGormTokenStore(db)

	blobs, err := NewBlobs(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.Files = files.NewGormFileStore(db, blobs)

	app.Events = queue.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		q, err := queue.NewKafkaQueue(queue.KafkaOptions{Brokers: strings.Join(cfg.KafkaBrokers, ","), Topic: cfg.KafkaTopic, GroupID: cfg.KafkaGroupID})
		if err != nil {
			return nil, err
		}
		app.Events = q
	}

	app.Importer = importer.New(app.Store, NewRegistry(cfg), importer.Options{
		Tokens:    app.Tokens,
		Files:     app.Files,
		Cache:     kv,
		Events:    app.Events,
		Retry:     importer.Retry{Attempts: cfg.RetryAttempts, Delay: cfg.RetryDelay},
		SearchTTL: cfg.SearchTTL,
	})
	return app, nil
}

// NewBlobs selects the byte store for files.
func NewBlobs(ctx context.Context, cfg *Config) (files.Blobs, error) {
	switch cfg.BlobBackend {
	case "disk", "":
		return files.NewDiskBlobs(cfg.BlobDir)
	case "memory":
		return files.NewMemoryBlobs(), nil
	case "s3":
		return files.NewS3Blobs(ctx, files.S3Options{
			Bucket:    cfg.S3Bucket,
			Prefix:    cfg.S3Prefix,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}
}

// NewRegistry registers an adapter for every source with credentials.
func NewRegistry(cfg *Config) *adapter.Registry {
	reg := adapter.NewRegistry()
	if cfg.SpotifyClientID != "" {
		reg.Register(spotify.New(spotify.Options{
			ClientID:     cfg.SpotifyClientID,
			ClientSecret: cfg.SpotifyClientSecret,
			RedirectURL:  cfg.SpotifyRedirectURL,
		}))
	}
	if cfg.YouTubeClientID != "" {
		reg.Register(youtube.New(youtube.Options{
			ClientID:     cfg.YouTubeClientID,
			ClientSecret: cfg.YouTubeClientSecret,
			RedirectURL:  cfg.YouTubeRedirectURL,
		}))
	}
	if cfg.PocketConsumerKey != "" {
		reg.Register(pocket.New(pocket.Options{ConsumerKey: cfg.PocketConsumerKey}))
	}
	if len(reg.Sources()) == 0 {
		logrus.Warn("no source credentials configured, imports are disabled")
	}
	return reg
}

// Jobs returns the scheduled maintenance tasks.
func (a *App) Jobs(cfg *Config) *jobs.TaskExecutor {
	return jobs.NewTaskExecutor(
		jobs.NewRefreshTask(cfg.RefreshSchedule, cfg.RefreshMaxAge, cfg.RefreshBatch, a.Store, a.Importer),
		jobs.NewPruneTask(cfg.PruneSchedule, a.Store),
	)
}

func (a *App) Close() {
	if err := a.Events.Close(); err != nil {
		logrus.Warnf("closing event queue: %v", err)
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logrus.Warnf("closing redis: %v", err)
		}
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logrus.Warnf("closing database: %v", err)
		}
	}
}

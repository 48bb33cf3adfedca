// Package config reads the service configuration from the environment and
// builds the components it selects.
package config

import (
	"fmt"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	DBDriver string
	DBURL    string
	HTTPPort string
	LogLevel string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration
	Compression   string

	BlobBackend string
	BlobDir     string
	S3Bucket    string
	S3Prefix    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string

	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	SpotifyClientID     string
	SpotifyClientSecret string
	SpotifyRedirectURL  string
	YouTubeClientID     string
	YouTubeClientSecret string
	YouTubeRedirectURL  string
	PocketConsumerKey   string

	RetryAttempts int
	RetryDelay    time.Duration
	SearchTTL     time.Duration

	RefreshSchedule string
	RefreshMaxAge   time.Duration
	RefreshBatch    int
	PruneSchedule   string
}

var defaults = map[string]any{
	"DB_DRIVER":        "sqlite",
	"DB_URL":           "mediahub.db",
	"HTTP_PORT":        "4020",
	"LOG_LEVEL":        "info",
	"REDIS_DB":         0,
	"CACHE_TTL":        "1h",
	"CACHE_COMPRESS":   "lz4",
	"BLOB_BACKEND":     "disk",
	"BLOB_DIR":         ".tmp/files",
	"S3_REGION":        "us-east-1",
	"KAFKA_TOPIC":      "mediahub.imports",
	"KAFKA_GROUP_ID":   "mediahub",
	"RETRY_ATTEMPTS":   5,
	"RETRY_DELAY":      "250ms",
	"SEARCH_TTL":       "5m",
	"REFRESH_SCHEDULE": "@every 1h",
	"REFRESH_MAX_AGE":  "168h",
	"REFRESH_BATCH":    20,
	"PRUNE_SCHEDULE":   "@daily",
}

// LoadConfig reads the configuration from the environment. A .env file in
// the working directory is loaded first.
func LoadConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}

	cfg := &Config{
		DBDriver: strings.ToLower(v.GetString("DB_DRIVER")),
		DBURL:    v.GetString("DB_URL"),
		HTTPPort: v.GetString("HTTP_PORT"),
		LogLevel: v.GetString("LOG_LEVEL"),

		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),
		CacheTTL:      v.GetDuration("CACHE_TTL"),
		Compression:   v.GetString("CACHE_COMPRESS"),

		BlobBackend: strings.ToLower(v.GetString("BLOB_BACKEND")),
		BlobDir:     v.GetString("BLOB_DIR"),
		S3Bucket:    v.GetString("S3_BUCKET"),
		S3Prefix:    v.GetString("S3_PREFIX"),
		S3Region:    v.GetString("S3_REGION"),
		S3Endpoint:  v.GetString("S3_ENDPOINT"),
		S3AccessKey: v.GetString("S3_ACCESS_KEY"),
		S3SecretKey: v.GetString("S3_SECRET_KEY"),

		KafkaBrokers: splitList(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:   v.GetString("KAFKA_TOPIC"),
		KafkaGroupID: v.GetString("KAFKA_GROUP_ID"),

		SpotifyClientID:     v.GetString("SPOTIFY_CLIENT_ID"),
		SpotifyClientSecret: v.GetString("SPOTIFY_CLIENT_SECRET"),
		SpotifyRedirectURL:  v.GetString("SPOTIFY_REDIRECT_URL"),
		YouTubeClientID:     v.GetString("YOUTUBE_CLIENT_ID"),
		YouTubeClientSecret: v.GetString("YOUTUBE_CLIENT_SECRET"),
		YouTubeRedirectURL:  v.GetString("YOUTUBE_REDIRECT_URL"),
		PocketConsumerKey:   v.GetString("POCKET_CONSUMER_KEY"),

		RetryAttempts: v.GetInt("RETRY_ATTEMPTS"),
		RetryDelay:    v.GetDuration("RETRY_DELAY"),
		SearchTTL:     v.GetDuration("SEARCH_TTL"),

		RefreshSchedule: v.GetString("REFRESH_SCHEDULE"),
		RefreshMaxAge:   v.GetDuration("REFRESH_MAX_AGE"),
		RefreshBatch:    v.GetInt("REFRESH_BATCH"),
		PruneSchedule:   v.GetString("PRUNE_SCHEDULE"),
	}

	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(lvl)
	} else {
		logrus.Warnf("unknown log level %q, keeping %s", cfg.LogLevel, logrus.GetLevel())
	}
	return cfg
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// OpenDB connects to the configured database.
func OpenDB(cfg *Config) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	}

	switch cfg.DBDriver {
	case "sqlite":
		db, err := gorm.Open(sqlite.Open(cfg.DBURL+"?_busy_timeout=5000"), gcfg)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	case "postgres":
		return gorm.Open(postgres.Open(cfg.DBURL), gcfg)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.DBDriver)
	}
}

// GetDb opens the configured database and exits when it cannot.
func GetDb(cfg *Config) *gorm.DB {
	db, err := OpenDB(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect database: %v", err)
	}
	return db
}

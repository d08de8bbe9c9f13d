// Package config loads and validates deindexer configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Cache providers.
const (
	CacheLocal    = "local"
	CacheGCS      = "gcs"
	CacheRedis    = "redis"
	CachePostgres = "postgres"
	CacheNoop     = "noop"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Poll    PollConfig    `mapstructure:"poll"`
	GSC     GSCConfig     `mapstructure:"gsc"`
	Cache   CacheConfig   `mapstructure:"cache"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// AuthConfig points at service account credentials. ClientEmail and
// PrivateKey are also read from GIS_CLIENT_EMAIL and GIS_PRIVATE_KEY.
type AuthConfig struct {
	ServiceAccountFile string `mapstructure:"service_account_file"`
	ClientEmail        string `mapstructure:"client_email"`
	PrivateKey         string `mapstructure:"private_key"`
}

// PollConfig controls the status polling phase.
type PollConfig struct {
	Concurrency  int           `mapstructure:"concurrency"`
	CacheTimeout time.Duration `mapstructure:"cache_timeout"`
}

// GSCConfig configures the Google API clients.
type GSCConfig struct {
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	MaxRetries     int     `mapstructure:"max_retries"`
	InspectionQPM  float64 `mapstructure:"inspection_qpm"`
	IndexingQPM    float64 `mapstructure:"indexing_qpm"`
}

// CacheConfig selects and configures the status cache backend.
type CacheConfig struct {
	Provider string              `mapstructure:"provider"`
	Local    LocalCacheConfig    `mapstructure:"local"`
	GCS      GCSCacheConfig      `mapstructure:"gcs"`
	Redis    RedisCacheConfig    `mapstructure:"redis"`
	Postgres PostgresCacheConfig `mapstructure:"postgres"`
}

// LocalCacheConfig stores one JSON file per site.
type LocalCacheConfig struct {
	Dir string `mapstructure:"dir"`
}

// GCSCacheConfig stores one JSON object per site.
type GCSCacheConfig struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

// RedisCacheConfig stores one JSON value per site.
type RedisCacheConfig struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// PostgresCacheConfig stores one row per URL.
type PostgresCacheConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// PubSubConfig enables report publication when both fields are set.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// MetricsConfig enables a Pushgateway push at the end of a run.
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
}

// Load builds a Config from disk/environment. Without an explicit path it
// looks for deindexer.{yaml,json,toml} in the working directory and ~/.gis.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DEINDEXER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindLegacyEnv(v); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("deindexer")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.gis")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", true)
	v.SetDefault("auth.service_account_file", "")
	v.SetDefault("auth.client_email", "")
	v.SetDefault("auth.private_key", "")
	v.SetDefault("poll.concurrency", 50)
	v.SetDefault("poll.cache_timeout", 14*24*time.Hour)
	v.SetDefault("gsc.timeout_seconds", 30)
	v.SetDefault("gsc.max_retries", 5)
	v.SetDefault("gsc.inspection_qpm", 600)
	v.SetDefault("gsc.indexing_qpm", 380)
	v.SetDefault("cache.provider", CacheLocal)
	v.SetDefault("cache.local.dir", ".cache")
	v.SetDefault("cache.gcs.bucket", "")
	v.SetDefault("cache.gcs.prefix", "gsc-cache")
	v.SetDefault("cache.redis.addr", "")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.key_prefix", "deindexer:cache:")
	v.SetDefault("cache.redis.ttl", time.Duration(0))
	v.SetDefault("cache.postgres.dsn", "")
	v.SetDefault("cache.postgres.table", "gsc_status_cache")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_id", "")
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", "deindexer")
}

// bindLegacyEnv keeps the GIS_* variables working alongside DEINDEXER_*.
func bindLegacyEnv(v *viper.Viper) error {
	if err := v.BindEnv("auth.client_email", "DEINDEXER_AUTH_CLIENT_EMAIL", "GIS_CLIENT_EMAIL"); err != nil {
		return fmt.Errorf("bind env: %w", err)
	}
	if err := v.BindEnv("auth.private_key", "DEINDEXER_AUTH_PRIVATE_KEY", "GIS_PRIVATE_KEY"); err != nil {
		return fmt.Errorf("bind env: %w", err)
	}
	return nil
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Poll.Concurrency <= 0 {
		return fmt.Errorf("poll.concurrency must be > 0")
	}
	if c.Poll.CacheTimeout <= 0 {
		return fmt.Errorf("poll.cache_timeout must be > 0")
	}
	if c.GSC.TimeoutSeconds <= 0 {
		return fmt.Errorf("gsc.timeout_seconds must be > 0")
	}
	if c.GSC.MaxRetries < 0 {
		return fmt.Errorf("gsc.max_retries must be >= 0")
	}
	if c.GSC.InspectionQPM < 0 || c.GSC.IndexingQPM < 0 {
		return fmt.Errorf("gsc qpm limits must be >= 0")
	}
	switch c.Cache.Provider {
	case CacheLocal:
		if c.Cache.Local.Dir == "" {
			return fmt.Errorf("cache.local.dir must be set when cache.provider is %q", CacheLocal)
		}
	case CacheGCS:
		if c.Cache.GCS.Bucket == "" {
			return fmt.Errorf("cache.gcs.bucket must be set when cache.provider is %q", CacheGCS)
		}
	case CacheRedis:
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.addr must be set when cache.provider is %q", CacheRedis)
		}
	case CachePostgres:
		if c.Cache.Postgres.DSN == "" {
			return fmt.Errorf("cache.postgres.dsn must be set when cache.provider is %q", CachePostgres)
		}
	case CacheNoop:
	default:
		return fmt.Errorf("unknown cache.provider %q", c.Cache.Provider)
	}
	if (c.PubSub.ProjectID == "") != (c.PubSub.TopicID == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_id must be set together")
	}
	return nil
}

// RequestTimeout converts gsc.timeout_seconds into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.GSC.TimeoutSeconds) * time.Second
}

// PublishEnabled reports whether run reports go to Pub/Sub.
func (c Config) PublishEnabled() bool {
	return c.PubSub.ProjectID != "" && c.PubSub.TopicID != ""
}

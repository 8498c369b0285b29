// Package config loads and validates catalog service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Metadata providers.
const (
	ProviderMicrolink = "microlink"
	ProviderOpenGraph = "opengraph"
	ProviderHeadless  = "headless"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Store      StoreConfig      `mapstructure:"store"`
	DB         DBConfig         `mapstructure:"db"`
	Metadata   MetadataConfig   `mapstructure:"metadata"`
	PubSub     PubSubConfig     `mapstructure:"pubsub"`
	Storefront StorefrontConfig `mapstructure:"storefront"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features and file output.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	File        string `mapstructure:"file"`
}

// StoreConfig selects the product store backend.
type StoreConfig struct {
	Backend string `mapstructure:"backend"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	Table           string        `mapstructure:"table"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// MetadataConfig configures link-preview lookups.
type MetadataConfig struct {
	Providers           []string `mapstructure:"providers"`
	Endpoint            string   `mapstructure:"endpoint"`
	APIKey              string   `mapstructure:"api_key"`
	TimeoutSeconds      int      `mapstructure:"timeout_seconds"`
	UserAgent           string   `mapstructure:"user_agent"`
	RPS                 float64  `mapstructure:"rps"`
	Burst               int      `mapstructure:"burst"`
	HeadlessMaxParallel int      `mapstructure:"headless_max_parallel"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// StorefrontConfig controls public page presentation.
type StorefrontConfig struct {
	Brand        string `mapstructure:"brand"`
	Currency     string `mapstructure:"currency"`
	DefaultWidth int    `mapstructure:"default_width"`
	InstagramURL string `mapstructure:"instagram_url"`
	TikTokURL    string `mapstructure:"tiktok_url"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CATALOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Cloud Run injects PORT; the prefixed variable still wins when both are set.
	if err := v.BindEnv("server.port", "CATALOG_SERVER_PORT", "PORT"); err != nil {
		return Config{}, fmt.Errorf("bind env: %w", err)
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Metadata.Providers = splitList(cfg.Metadata.Providers)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.file", "")
	v.SetDefault("store.backend", BackendMemory)
	v.SetDefault("db.table", "products")
	v.SetDefault("db.auto_migrate", true)
	v.SetDefault("metadata.providers", []string{ProviderMicrolink})
	v.SetDefault("metadata.endpoint", "https://api.microlink.io")
	v.SetDefault("metadata.timeout_seconds", 10)
	v.SetDefault("metadata.user_agent", "affiliate-catalog/1.0")
	v.SetDefault("metadata.rps", 1)
	v.SetDefault("metadata.burst", 2)
	v.SetDefault("metadata.headless_max_parallel", 1)
	v.SetDefault("storefront.brand", "Daraz Finds NP")
	v.SetDefault("storefront.currency", "Rs.")
	v.SetDefault("storefront.default_width", 1280)
	v.SetDefault("storefront.instagram_url", "https://www.instagram.com/")
	v.SetDefault("storefront.tiktok_url", "https://www.tiktok.com/@draznp")
}

// splitList accepts both YAML lists and comma-separated env values.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	switch c.Store.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set when store.backend is postgres")
		}
	default:
		return fmt.Errorf("store.backend must be %q or %q, got %q", BackendMemory, BackendPostgres, c.Store.Backend)
	}
	if c.Metadata.TimeoutSeconds <= 0 {
		return fmt.Errorf("metadata.timeout_seconds must be > 0")
	}
	if len(c.Metadata.Providers) == 0 {
		return fmt.Errorf("metadata.providers must name at least one provider")
	}
	for _, p := range c.Metadata.Providers {
		switch p {
		case ProviderMicrolink, ProviderOpenGraph:
		case ProviderHeadless:
			if c.Metadata.HeadlessMaxParallel <= 0 {
				return fmt.Errorf("metadata.headless_max_parallel must be > 0 when headless is enabled")
			}
		default:
			return fmt.Errorf("metadata.providers: unknown provider %q", p)
		}
	}
	if c.Metadata.RPS < 0 {
		return fmt.Errorf("metadata.rps must be >= 0")
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic_name is set")
	}
	if c.Storefront.DefaultWidth <= 0 {
		return fmt.Errorf("storefront.default_width must be > 0")
	}
	return nil
}

// MetadataTimeout converts the metadata timeout into a duration.
func (c Config) MetadataTimeout() time.Duration {
	return time.Duration(c.Metadata.TimeoutSeconds) * time.Second
}

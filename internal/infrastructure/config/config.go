package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Sync      SyncConfig
	Channels  ChannelsConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// URL returns the PostgreSQL connection URL (used by golang-migrate)
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns the host:port address for the Redis client
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	CORSAllowOrigins []string
	TrustedProxies   []string
}

// SyncConfig holds aggregation and sync cadence settings
type SyncConfig struct {
	// ChannelTimeout bounds every individual channel call
	ChannelTimeout time.Duration
	// DefaultPageSize is the per-channel fetch limit when the caller gives none
	DefaultPageSize int
	// MaxOrdersPerSync caps the per-channel fetch limit
	MaxOrdersPerSync int
	// Interval is the cadence for background sync runs
	Interval time.Duration
	// StatsCacheTTL bounds how long channel stats may be served from cache
	StatsCacheTTL time.Duration
}

// ChannelsConfig holds per-channel credential sets plus the global demo flag
type ChannelsConfig struct {
	// DemoMode forces every adapter into simulated mode regardless of credentials
	DemoMode bool
	Shopify  ShopifyConfig
	Amazon   AmazonConfig
	Ebay     EbayConfig
	Etsy     EtsyConfig
}

// ShopifyConfig holds Shopify Admin API credentials
type ShopifyConfig struct {
	ShopURL     string
	AccessToken string
	APIVersion  string
}

// Configured returns true when required credentials are present
func (c *ShopifyConfig) Configured() bool {
	return c.ShopURL != "" && c.AccessToken != ""
}

// AmazonConfig holds Amazon SP-API credentials
type AmazonConfig struct {
	RefreshToken  string
	ClientID      string
	ClientSecret  string
	Region        string
	MarketplaceID string
}

// Configured returns true when required credentials are present
func (c *AmazonConfig) Configured() bool {
	return c.RefreshToken != "" && c.ClientID != "" && c.ClientSecret != ""
}

// EbayConfig holds eBay Trading API credentials
type EbayConfig struct {
	AppID       string
	CertID      string
	DevID       string
	UserToken   string
	Environment string
}

// Configured returns true when required credentials are present
func (c *EbayConfig) Configured() bool {
	return c.AppID != "" && c.UserToken != ""
}

// EtsyConfig holds Etsy Open API credentials
type EtsyConfig struct {
	APIKey      string
	ShopID      string
	AccessToken string
}

// Configured returns true when required credentials are present
func (c *EtsyConfig) Configured() bool {
	return c.APIKey != "" && c.AccessToken != ""
}

// TelemetryConfig holds OpenTelemetry settings
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
}

// Load reads configuration from config.toml and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with ORDERHUB_ prefix (e.g., ORDERHUB_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("ORDERHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Sync: SyncConfig{
			ChannelTimeout:   v.GetDuration("sync.channel_timeout"),
			DefaultPageSize:  v.GetInt("sync.default_page_size"),
			MaxOrdersPerSync: v.GetInt("sync.max_orders_per_sync"),
			Interval:         v.GetDuration("sync.interval"),
			StatsCacheTTL:    v.GetDuration("sync.stats_cache_ttl"),
		},
		Channels: ChannelsConfig{
			DemoMode: v.GetBool("channels.demo_mode"),
			Shopify: ShopifyConfig{
				ShopURL:     v.GetString("channels.shopify.shop_url"),
				AccessToken: v.GetString("channels.shopify.access_token"),
				APIVersion:  v.GetString("channels.shopify.api_version"),
			},
			Amazon: AmazonConfig{
				RefreshToken:  v.GetString("channels.amazon.refresh_token"),
				ClientID:      v.GetString("channels.amazon.client_id"),
				ClientSecret:  v.GetString("channels.amazon.client_secret"),
				Region:        v.GetString("channels.amazon.region"),
				MarketplaceID: v.GetString("channels.amazon.marketplace_id"),
			},
			Ebay: EbayConfig{
				AppID:       v.GetString("channels.ebay.app_id"),
				CertID:      v.GetString("channels.ebay.cert_id"),
				DevID:       v.GetString("channels.ebay.dev_id"),
				UserToken:   v.GetString("channels.ebay.user_token"),
				Environment: v.GetString("channels.ebay.environment"),
			},
			Etsy: EtsyConfig{
				APIKey:      v.GetString("channels.etsy.api_key"),
				ShopID:      v.GetString("channels.etsy.shop_id"),
				AccessToken: v.GetString("channels.etsy.access_token"),
			},
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "orderhub-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "orderhub"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.Sync.ChannelTimeout == 0 {
		cfg.Sync.ChannelTimeout = 10 * time.Second
	}
	if cfg.Sync.DefaultPageSize == 0 {
		cfg.Sync.DefaultPageSize = 50
	}
	if cfg.Sync.MaxOrdersPerSync == 0 {
		cfg.Sync.MaxOrdersPerSync = 100
	}
	if cfg.Sync.Interval == 0 {
		cfg.Sync.Interval = 5 * time.Minute
	}
	if cfg.Sync.StatsCacheTTL == 0 {
		cfg.Sync.StatsCacheTTL = 30 * time.Second
	}
	if cfg.Channels.Shopify.APIVersion == "" {
		cfg.Channels.Shopify.APIVersion = "2024-01"
	}
	if cfg.Channels.Amazon.Region == "" {
		cfg.Channels.Amazon.Region = "us-east-1"
	}
	if cfg.Channels.Amazon.MarketplaceID == "" {
		cfg.Channels.Amazon.MarketplaceID = "ATVPDKIKX0DER"
	}
	if cfg.Channels.Ebay.Environment == "" {
		cfg.Channels.Ebay.Environment = "production"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
}

// validate checks that the configuration is usable
func (c *Config) validate() error {
	if c.Sync.DefaultPageSize > c.Sync.MaxOrdersPerSync {
		return fmt.Errorf("config: sync.default_page_size (%d) exceeds sync.max_orders_per_sync (%d)",
			c.Sync.DefaultPageSize, c.Sync.MaxOrdersPerSync)
	}
	if c.Sync.ChannelTimeout < time.Second {
		return fmt.Errorf("config: sync.channel_timeout must be at least 1s, got %s", c.Sync.ChannelTimeout)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format must be json or console, got %q", c.Log.Format)
	}
	return nil
}

// IsProduction returns true when running in the production environment
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

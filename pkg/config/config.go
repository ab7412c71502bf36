package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App              AppConfig      `mapstructure:"app"`
	Server           ServerConfig   `mapstructure:"server"`
	DonationDatabase DatabaseConfig `mapstructure:"donation_database"`
	Redis            RedisConfig    `mapstructure:"redis"`
	Kafka            KafkaConfig    `mapstructure:"kafka"`
	JWT              JWTConfig      `mapstructure:"jwt"`
	OTel             OTelConfig     `mapstructure:"otel"`
	Gateway          GatewayConfig  `mapstructure:"gateway"`
	Campaign         CampaignConfig `mapstructure:"campaign"`
	Poller           PollerConfig   `mapstructure:"poller"`
}

// AppConfig holds application-level settings
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"` // development, staging, production
	Debug       bool   `mapstructure:"debug"`
	Version     string `mapstructure:"version"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// DSN returns the PostgreSQL connection string
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the Redis address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// KafkaConfig holds Kafka/Redpanda connection settings
type KafkaConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	Brokers  []string `mapstructure:"brokers"`
	ClientID string   `mapstructure:"client_id"`
}

// JWTConfig holds settings for admin bearer tokens
type JWTConfig struct {
	Secret         string        `mapstructure:"secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
	Issuer         string        `mapstructure:"issuer"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	ServiceName   string  `mapstructure:"service_name"`
	CollectorAddr string  `mapstructure:"collector_addr"`
	SampleRatio   float64 `mapstructure:"sample_ratio"`
}

// GatewayConfig holds payment provider credentials and transport settings
type GatewayConfig struct {
	Provider     string `mapstructure:"provider"` // rushpay, syncpay, demo
	PublicKey    string `mapstructure:"public_key"`
	SecretKey    string `mapstructure:"secret_key"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	Sandbox      bool   `mapstructure:"sandbox"`

	// BaseURLs and AuthMethods override the provider defaults when set.
	// Candidates are tried URL-major in the listed order.
	BaseURLs    []string `mapstructure:"base_urls"`
	AuthMethods []string `mapstructure:"auth_methods"`

	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	ProbeTimeout       time.Duration `mapstructure:"probe_timeout"`
	PostbackURL        string        `mapstructure:"postback_url"`
	MinimumAmountMinor int64         `mapstructure:"minimum_amount_minor"`
}

// CampaignConfig holds the donation campaign settings
type CampaignConfig struct {
	Name       string        `mapstructure:"name"`
	MinAmount  string        `mapstructure:"min_amount"` // major units, e.g. "20.00"
	Goal       string        `mapstructure:"goal"`
	PixExpiry  time.Duration `mapstructure:"pix_expiry"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
	// Addons is "id:amount:beneficiary[:label]" entries separated by commas
	Addons []AddonConfig `mapstructure:"addons"`
}

// AddonConfig is one optional line item offered alongside a donation
type AddonConfig struct {
	ID            string `mapstructure:"id"`
	Amount        string `mapstructure:"amount"`
	BeneficiaryID string `mapstructure:"beneficiary_id"`
	Label         string `mapstructure:"label"`
}

// PollerConfig holds the pending-status poller settings
type PollerConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Interval  time.Duration `mapstructure:"interval"`
	BatchSize int           `mapstructure:"batch_size"`
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")

	// A missing .env is fine, env vars might be set
	_ = v.ReadInConfig()

	return load(v)
}

// LoadWithPath loads configuration from a specific path
func LoadWithPath(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	cfg := &Config{}
	if err := bindConfig(v, cfg); err != nil {
		return nil, fmt.Errorf("failed to bind config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("APP_NAME", "donation-service")
	v.SetDefault("APP_ENVIRONMENT", "development")
	v.SetDefault("APP_DEBUG", true)
	v.SetDefault("APP_VERSION", "1.0.0")

	// Server defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8085)
	v.SetDefault("SERVER_READ_TIMEOUT", "30s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "45s")
	v.SetDefault("SERVER_IDLE_TIMEOUT", "120s")

	// Donation ledger database
	v.SetDefault("DONATION_DATABASE_ENABLED", true)
	v.SetDefault("DONATION_DATABASE_HOST", "localhost")
	v.SetDefault("DONATION_DATABASE_PORT", 5432)
	v.SetDefault("DONATION_DATABASE_USER", "postgres")
	v.SetDefault("DONATION_DATABASE_PASSWORD", "postgres")
	v.SetDefault("DONATION_DATABASE_DBNAME", "donation_db")
	v.SetDefault("DONATION_DATABASE_SSLMODE", "disable")
	v.SetDefault("DONATION_DATABASE_MAX_OPEN_CONNS", 25)
	v.SetDefault("DONATION_DATABASE_MAX_IDLE_CONNS", 5)
	v.SetDefault("DONATION_DATABASE_CONN_MAX_LIFETIME", "1h")
	v.SetDefault("DONATION_DATABASE_CONN_MAX_IDLE_TIME", "30m")

	// Redis defaults
	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_POOL_SIZE", 50)
	v.SetDefault("REDIS_MIN_IDLE_CONNS", 5)
	v.SetDefault("REDIS_DIAL_TIMEOUT", "5s")
	v.SetDefault("REDIS_READ_TIMEOUT", "3s")
	v.SetDefault("REDIS_WRITE_TIMEOUT", "3s")

	// Kafka defaults
	v.SetDefault("KAFKA_ENABLED", false)
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_CLIENT_ID", "donation-service")

	// JWT defaults
	v.SetDefault("JWT_SECRET", "your-secret-key-change-in-production")
	v.SetDefault("JWT_ACCESS_TOKEN_TTL", "1h")
	v.SetDefault("JWT_ISSUER", "donation-rush")

	// OTel defaults
	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_SERVICE_NAME", "donation-service")
	v.SetDefault("OTEL_COLLECTOR_ADDR", "localhost:4317")
	v.SetDefault("OTEL_SAMPLE_RATIO", 1.0)

	// Gateway defaults
	v.SetDefault("GATEWAY_PROVIDER", "rushpay")
	v.SetDefault("GATEWAY_SANDBOX", true)
	v.SetDefault("GATEWAY_BASE_URLS", "")
	v.SetDefault("GATEWAY_AUTH_METHODS", "")
	v.SetDefault("GATEWAY_REQUEST_TIMEOUT", "30s")
	v.SetDefault("GATEWAY_PROBE_TIMEOUT", "15s")
	v.SetDefault("GATEWAY_POSTBACK_URL", "")
	v.SetDefault("GATEWAY_MINIMUM_AMOUNT_MINOR", 500)

	// Campaign defaults
	v.SetDefault("CAMPAIGN_NAME", "isabela")
	v.SetDefault("CAMPAIGN_MIN_AMOUNT", "20.00")
	v.SetDefault("CAMPAIGN_GOAL", "80000.00")
	v.SetDefault("CAMPAIGN_PIX_EXPIRY", "60m")
	v.SetDefault("CAMPAIGN_SESSION_TTL", "24h")
	v.SetDefault("CAMPAIGN_ADDONS", "transport:10.00:transport_fund:Transporte,meal:15.00:meal_fund:Refeição,basket:85.00:basket_fund:Cesta básica")

	// Poller defaults
	v.SetDefault("POLLER_ENABLED", true)
	v.SetDefault("POLLER_INTERVAL", "30s")
	v.SetDefault("POLLER_BATCH_SIZE", 50)
}

func bindConfig(v *viper.Viper, cfg *Config) error {
	// App
	cfg.App.Name = v.GetString("APP_NAME")
	cfg.App.Environment = v.GetString("APP_ENVIRONMENT")
	cfg.App.Debug = v.GetBool("APP_DEBUG")
	cfg.App.Version = v.GetString("APP_VERSION")

	// Server
	cfg.Server.Host = v.GetString("SERVER_HOST")
	cfg.Server.Port = v.GetInt("SERVER_PORT")
	cfg.Server.ReadTimeout = v.GetDuration("SERVER_READ_TIMEOUT")
	cfg.Server.WriteTimeout = v.GetDuration("SERVER_WRITE_TIMEOUT")
	cfg.Server.IdleTimeout = v.GetDuration("SERVER_IDLE_TIMEOUT")

	// Donation ledger database
	cfg.DonationDatabase.Enabled = v.GetBool("DONATION_DATABASE_ENABLED")
	cfg.DonationDatabase.Host = v.GetString("DONATION_DATABASE_HOST")
	cfg.DonationDatabase.Port = v.GetInt("DONATION_DATABASE_PORT")
	cfg.DonationDatabase.User = v.GetString("DONATION_DATABASE_USER")
	cfg.DonationDatabase.Password = v.GetString("DONATION_DATABASE_PASSWORD")
	cfg.DonationDatabase.DBName = v.GetString("DONATION_DATABASE_DBNAME")
	cfg.DonationDatabase.SSLMode = v.GetString("DONATION_DATABASE_SSLMODE")
	cfg.DonationDatabase.MaxOpenConns = v.GetInt("DONATION_DATABASE_MAX_OPEN_CONNS")
	cfg.DonationDatabase.MaxIdleConns = v.GetInt("DONATION_DATABASE_MAX_IDLE_CONNS")
	cfg.DonationDatabase.ConnMaxLifetime = v.GetDuration("DONATION_DATABASE_CONN_MAX_LIFETIME")
	cfg.DonationDatabase.ConnMaxIdleTime = v.GetDuration("DONATION_DATABASE_CONN_MAX_IDLE_TIME")

	// Redis
	cfg.Redis.Enabled = v.GetBool("REDIS_ENABLED")
	cfg.Redis.Host = v.GetString("REDIS_HOST")
	cfg.Redis.Port = v.GetInt("REDIS_PORT")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")
	cfg.Redis.PoolSize = v.GetInt("REDIS_POOL_SIZE")
	cfg.Redis.MinIdleConns = v.GetInt("REDIS_MIN_IDLE_CONNS")
	cfg.Redis.DialTimeout = v.GetDuration("REDIS_DIAL_TIMEOUT")
	cfg.Redis.ReadTimeout = v.GetDuration("REDIS_READ_TIMEOUT")
	cfg.Redis.WriteTimeout = v.GetDuration("REDIS_WRITE_TIMEOUT")

	// Kafka
	cfg.Kafka.Enabled = v.GetBool("KAFKA_ENABLED")
	cfg.Kafka.Brokers = splitList(v.GetString("KAFKA_BROKERS"))
	cfg.Kafka.ClientID = v.GetString("KAFKA_CLIENT_ID")

	// JWT
	cfg.JWT.Secret = v.GetString("JWT_SECRET")
	cfg.JWT.AccessTokenTTL = v.GetDuration("JWT_ACCESS_TOKEN_TTL")
	cfg.JWT.Issuer = v.GetString("JWT_ISSUER")

	// OTel
	cfg.OTel.Enabled = v.GetBool("OTEL_ENABLED")
	cfg.OTel.ServiceName = v.GetString("OTEL_SERVICE_NAME")
	cfg.OTel.CollectorAddr = v.GetString("OTEL_COLLECTOR_ADDR")
	cfg.OTel.SampleRatio = v.GetFloat64("OTEL_SAMPLE_RATIO")

	// Gateway
	cfg.Gateway.Provider = strings.ToLower(v.GetString("GATEWAY_PROVIDER"))
	cfg.Gateway.PublicKey = v.GetString("GATEWAY_PUBLIC_KEY")
	cfg.Gateway.SecretKey = v.GetString("GATEWAY_SECRET_KEY")
	cfg.Gateway.ClientID = v.GetString("GATEWAY_CLIENT_ID")
	cfg.Gateway.ClientSecret = v.GetString("GATEWAY_CLIENT_SECRET")
	cfg.Gateway.Sandbox = v.GetBool("GATEWAY_SANDBOX")
	cfg.Gateway.BaseURLs = splitList(v.GetString("GATEWAY_BASE_URLS"))
	cfg.Gateway.AuthMethods = splitList(v.GetString("GATEWAY_AUTH_METHODS"))
	cfg.Gateway.RequestTimeout = v.GetDuration("GATEWAY_REQUEST_TIMEOUT")
	cfg.Gateway.ProbeTimeout = v.GetDuration("GATEWAY_PROBE_TIMEOUT")
	cfg.Gateway.PostbackURL = v.GetString("GATEWAY_POSTBACK_URL")
	cfg.Gateway.MinimumAmountMinor = v.GetInt64("GATEWAY_MINIMUM_AMOUNT_MINOR")

	// Campaign
	cfg.Campaign.Name = v.GetString("CAMPAIGN_NAME")
	cfg.Campaign.MinAmount = v.GetString("CAMPAIGN_MIN_AMOUNT")
	cfg.Campaign.Goal = v.GetString("CAMPAIGN_GOAL")
	cfg.Campaign.PixExpiry = v.GetDuration("CAMPAIGN_PIX_EXPIRY")
	cfg.Campaign.SessionTTL = v.GetDuration("CAMPAIGN_SESSION_TTL")
	addons, err := parseAddons(v.GetString("CAMPAIGN_ADDONS"))
	if err != nil {
		return err
	}
	cfg.Campaign.Addons = addons

	// Poller
	cfg.Poller.Enabled = v.GetBool("POLLER_ENABLED")
	cfg.Poller.Interval = v.GetDuration("POLLER_INTERVAL")
	cfg.Poller.BatchSize = v.GetInt("POLLER_BATCH_SIZE")

	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseAddons(s string) ([]AddonConfig, error) {
	var addons []AddonConfig
	for _, entry := range splitList(s) {
		parts := strings.SplitN(entry, ":", 4)
		if len(parts) < 3 {
			return nil, fmt.Errorf("invalid addon %q: want id:amount:beneficiary[:label]", entry)
		}
		addon := AddonConfig{
			ID:            parts[0],
			Amount:        parts[1],
			BeneficiaryID: parts[2],
		}
		if len(parts) == 4 {
			addon.Label = parts[3]
		}
		addons = append(addons, addon)
	}
	return addons, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if c.App.Environment == "production" && c.JWT.Secret == "your-secret-key-change-in-production" {
		return fmt.Errorf("JWT secret must be changed in production")
	}

	switch c.Gateway.Provider {
	case "rushpay", "syncpay", "demo":
	default:
		return fmt.Errorf("unknown gateway provider: %q", c.Gateway.Provider)
	}

	if c.Campaign.Name == "" {
		return fmt.Errorf("campaign name is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

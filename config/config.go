package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Purchase   PurchaseConfig   `mapstructure:"purchase"`
	Pagination PaginationConfig `mapstructure:"pagination"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Mode         string `mapstructure:"mode"` // debug, release, test
	MaxBodyBytes int64  `mapstructure:"max_body_bytes"`
}

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres, memory
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// MigrationURL returns the DSN in the scheme expected by the pgx/v5 migrate driver.
func (d DatabaseConfig) MigrationURL() string {
	return "pgx5" + strings.TrimPrefix(d.DSN(), "postgres")
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Algorithm  string        `mapstructure:"algorithm"` // HS256, HS384, HS512
	Issuer     string        `mapstructure:"issuer"`
	AccessTTL  time.Duration `mapstructure:"access_ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
}

type AuthConfig struct {
	BcryptCost        int  `mapstructure:"bcrypt_cost"`
	AllowRegistration bool `mapstructure:"allow_registration"`
}

type PurchaseConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	LockTimeout  time.Duration `mapstructure:"lock_timeout"`
}

type PaginationConfig struct {
	DefaultPageSize int `mapstructure:"default_page_size"`
	MaxPageSize     int `mapstructure:"max_page_size"`
}

// RateLimitRule defines a fixed-window limit for an endpoint group.
type RateLimitRule struct {
	Limit  int64         `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

type RateLimitConfig struct {
	Rules map[string]RateLimitRule `mapstructure:"rules"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// Enabled reports whether purchase events should be published.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0 && k.Topic != ""
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: MKT_.
// Nested keys use underscore: MKT_DATABASE_HOST, MKT_JWT_SECRET, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "marketplace")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.auto_migrate", false)
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.algorithm", "HS256")
	v.SetDefault("jwt.issuer", "marketplace-backend")
	v.SetDefault("jwt.access_ttl", "15m")
	v.SetDefault("jwt.refresh_ttl", "168h")
	v.SetDefault("auth.bcrypt_cost", 12)
	v.SetDefault("auth.allow_registration", true)
	v.SetDefault("purchase.max_attempts", 3)
	v.SetDefault("purchase.retry_backoff", "25ms")
	v.SetDefault("purchase.lock_timeout", "5s")
	v.SetDefault("pagination.default_page_size", 20)
	v.SetDefault("pagination.max_page_size", 100)
	v.SetDefault("ratelimit.rules.token.limit", 10)
	v.SetDefault("ratelimit.rules.token.window", "1m")
	v.SetDefault("ratelimit.rules.register.limit", 5)
	v.SetDefault("ratelimit.rules.register.window", "1h")
	v.SetDefault("ratelimit.rules.purchase.limit", 60)
	v.SetDefault("ratelimit.rules.purchase.window", "1m")
	v.SetDefault("ratelimit.rules.wallets.limit", 30)
	v.SetDefault("ratelimit.rules.wallets.window", "1m")
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "marketplace.purchases")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// MKT_DATABASE_HOST -> database.host
	v.SetEnvPrefix("MKT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional; env vars can suffice.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.JWT.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("unsupported jwt algorithm %q", c.JWT.Algorithm)
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return fmt.Errorf("jwt ttls must be positive")
	}
	if c.Purchase.MaxAttempts < 1 {
		return fmt.Errorf("purchase.max_attempts must be at least 1")
	}
	if c.Pagination.DefaultPageSize < 1 || c.Pagination.MaxPageSize < c.Pagination.DefaultPageSize {
		return fmt.Errorf("pagination sizes must satisfy 1 <= default <= max")
	}
	return nil
}

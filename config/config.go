package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Admin      AdminConfig
	Cloudinary CloudinaryConfig
	Receipts   ReceiptConfig
	Redis      RedisConfig
	RabbitMQ   RabbitMQConfig
	RateLimit  RateLimitConfig
	Billing    BillingConfig
	Log        LogConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	AccessSecret string
	AccessExpiry time.Duration
	Issuer       string
}

// AdminConfig holds the single administrator login.
type AdminConfig struct {
	Email    string
	Password string
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// ReceiptConfig selects where payment screenshots are stored.
// Backend is "disk" or "cloudinary".
type ReceiptConfig struct {
	Backend string
	Dir     string
	MaxSize int64
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RabbitMQConfig struct {
	URL   string
	Queue string
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Prefix   string
}

// BillingConfig holds pricing defaults. Admins can override the amounts at
// runtime through system settings.
type BillingConfig struct {
	BaseFee        int64
	ReferralUnit   int64
	SignupDiscount int64
	StartMonth     string // YYYY-MM
	Months         int
}

type LogConfig struct {
	Level  string
	Format string
	Output string
}

func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)

	v.SetDefault("database.dsn", "root:@tcp(localhost:3306)/feedesk?charset=utf8mb4&parseTime=True&loc=Local")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("jwt.access_secret", "change-me-in-production")
	v.SetDefault("jwt.access_expiry", 7*24*time.Hour)
	v.SetDefault("jwt.issuer", "feedesk")

	v.SetDefault("admin.email", "admin@feedesk.local")
	v.SetDefault("admin.password", "admin123")

	v.SetDefault("cloudinary.folder", "receipts")

	v.SetDefault("receipts.backend", "disk")
	v.SetDefault("receipts.dir", "uploads")
	v.SetDefault("receipts.max_size", 5<<20)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("rabbitmq.url", "")
	v.SetDefault("rabbitmq.queue", "payments.events")

	v.SetDefault("ratelimit.requests", 100)
	v.SetDefault("ratelimit.window", time.Minute)
	v.SetDefault("ratelimit.prefix", "feedesk:rl")

	v.SetDefault("billing.base_fee", 600)
	v.SetDefault("billing.referral_unit", 100)
	v.SetDefault("billing.signup_discount", 100)
	v.SetDefault("billing.start_month", "2025-04")
	v.SetDefault("billing.months", 12)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")
}

// Load reads configuration from defaults, an optional config.yaml and
// FEEDESK_* environment variables (a .env file is loaded first if present).
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("FEEDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:         v.GetString("server.port"),
			Env:          v.GetString("server.env"),
			ReadTimeout:  v.GetDuration("server.read_timeout"),
			WriteTimeout: v.GetDuration("server.write_timeout"),
		},
		Database: DatabaseConfig{
			DSN:             v.GetString("database.dsn"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
		},
		JWT: JWTConfig{
			AccessSecret: v.GetString("jwt.access_secret"),
			AccessExpiry: v.GetDuration("jwt.access_expiry"),
			Issuer:       v.GetString("jwt.issuer"),
		},
		Admin: AdminConfig{
			Email:    v.GetString("admin.email"),
			Password: v.GetString("admin.password"),
		},
		Cloudinary: CloudinaryConfig{
			CloudName: v.GetString("cloudinary.cloud_name"),
			APIKey:    v.GetString("cloudinary.api_key"),
			APISecret: v.GetString("cloudinary.api_secret"),
			Folder:    v.GetString("cloudinary.folder"),
		},
		Receipts: ReceiptConfig{
			Backend: strings.ToLower(v.GetString("receipts.backend")),
			Dir:     v.GetString("receipts.dir"),
			MaxSize: v.GetInt64("receipts.max_size"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:   v.GetString("rabbitmq.url"),
			Queue: v.GetString("rabbitmq.queue"),
		},
		RateLimit: RateLimitConfig{
			Requests: v.GetInt("ratelimit.requests"),
			Window:   v.GetDuration("ratelimit.window"),
			Prefix:   v.GetString("ratelimit.prefix"),
		},
		Billing: BillingConfig{
			BaseFee:        v.GetInt64("billing.base_fee"),
			ReferralUnit:   v.GetInt64("billing.referral_unit"),
			SignupDiscount: v.GetInt64("billing.signup_discount"),
			StartMonth:     v.GetString("billing.start_month"),
			Months:         v.GetInt("billing.months"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
	}
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if _, err := time.Parse("2006-01", c.Billing.StartMonth); err != nil {
		return fmt.Errorf("billing.start_month must be YYYY-MM: %w", err)
	}
	if c.Billing.Months <= 0 {
		return errors.New("billing.months must be positive")
	}
	if c.Billing.BaseFee < 0 || c.Billing.ReferralUnit < 0 || c.Billing.SignupDiscount < 0 {
		return errors.New("billing amounts must not be negative")
	}
	switch c.Receipts.Backend {
	case "disk":
	case "cloudinary":
		if c.Cloudinary.CloudName == "" || c.Cloudinary.APIKey == "" || c.Cloudinary.APISecret == "" {
			return errors.New("cloudinary receipts backend requires cloud_name, api_key and api_secret")
		}
	default:
		return fmt.Errorf("unknown receipts.backend %q", c.Receipts.Backend)
	}
	if c.IsProduction() {
		if c.JWT.AccessSecret == "change-me-in-production" {
			return errors.New("jwt.access_secret must be set in production")
		}
		if c.Admin.Password == "admin123" {
			return errors.New("admin.password must be set in production")
		}
	}
	return nil
}

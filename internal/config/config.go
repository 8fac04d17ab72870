package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port       string `yaml:"port"`
	AppBaseURL string `yaml:"app_base_url"`

	DBDriver   string `yaml:"db_driver"` // postgres, mysql or sqlite
	DBHost     string `yaml:"db_host"`
	DBPort     string `yaml:"db_port"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`
	DBName     string `yaml:"db_name"`
	DBSSLMode  string `yaml:"db_sslmode"`
	DBDSN      string `yaml:"db_dsn"` // overrides the assembled DSN; file path for sqlite

	// Identity provider (tokens are issued elsewhere, we only verify them)
	IdentityJWTSecret string `yaml:"identity_jwt_secret"`
	IdentityIssuer    string `yaml:"identity_issuer"`

	SuperAdminExternalID string `yaml:"super_admin_external_id"`
	SuperAdminEmail      string `yaml:"super_admin_email"`
	SuperAdminName       string `yaml:"super_admin_name"`

	RedisAddr          string `yaml:"redis_addr"`
	RedisPassword      string `yaml:"redis_password"`
	RedisDB            int    `yaml:"redis_db"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`

	RazorpayKeyID     string `yaml:"razorpay_key_id"`
	RazorpayKeySecret string `yaml:"razorpay_key_secret"`
	PaymentCurrency   string `yaml:"payment_currency"`

	S3Region        string `yaml:"s3_region"`
	S3Bucket        string `yaml:"s3_bucket"`
	S3Endpoint      string `yaml:"s3_endpoint"`
	S3AccessKey     string `yaml:"s3_access_key"`
	S3SecretKey     string `yaml:"s3_secret_key"`
	S3PublicBaseURL string `yaml:"s3_public_base_url"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // json or text

	ShutdownTimeout time.Duration `yaml:"-"`
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in that order of precedence (environment wins).
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Port:               "8080",
		AppBaseURL:         "http://localhost:3000",
		DBDriver:           "postgres",
		DBHost:             "localhost",
		DBPort:             "5432",
		DBUser:             "postgres",
		DBPassword:         "postgres",
		DBName:             "society_db",
		DBSSLMode:          "disable",
		IdentityJWTSecret:  "supersecret_change_me",
		SuperAdminName:     "Platform Admin",
		RateLimitPerMinute: 60,
		PaymentCurrency:    "INR",
		S3Region:           "us-east-1",
		LogLevel:           "info",
		LogFormat:          "json",
		ShutdownTimeout:    10 * time.Second,
	}
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getenv("PORT", c.Port)
	c.AppBaseURL = strings.TrimRight(getenv("APP_BASE_URL", c.AppBaseURL), "/")
	c.DBDriver = strings.ToLower(getenv("DB_DRIVER", c.DBDriver))
	c.DBHost = getenv("DB_HOST", c.DBHost)
	c.DBPort = getenv("DB_PORT", c.DBPort)
	c.DBUser = getenv("DB_USER", c.DBUser)
	c.DBPassword = getenv("DB_PASSWORD", c.DBPassword)
	c.DBName = getenv("DB_NAME", c.DBName)
	c.DBSSLMode = getenv("DB_SSLMODE", c.DBSSLMode)
	c.DBDSN = getenv("DB_DSN", c.DBDSN)
	c.IdentityJWTSecret = getenv("IDENTITY_JWT_SECRET", c.IdentityJWTSecret)
	c.IdentityIssuer = getenv("IDENTITY_ISSUER", c.IdentityIssuer)
	c.SuperAdminExternalID = getenv("SUPER_ADMIN_EXTERNAL_ID", c.SuperAdminExternalID)
	c.SuperAdminEmail = getenv("SUPER_ADMIN_EMAIL", c.SuperAdminEmail)
	c.SuperAdminName = getenv("SUPER_ADMIN_NAME", c.SuperAdminName)
	c.RedisAddr = getenv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getenv("REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = getenvInt("REDIS_DB", c.RedisDB)
	c.RateLimitPerMinute = getenvInt("RATE_LIMIT_PER_MINUTE", c.RateLimitPerMinute)
	c.RazorpayKeyID = getenv("RAZORPAY_KEY_ID", c.RazorpayKeyID)
	c.RazorpayKeySecret = getenv("RAZORPAY_KEY_SECRET", c.RazorpayKeySecret)
	c.PaymentCurrency = getenv("PAYMENT_CURRENCY", c.PaymentCurrency)
	c.S3Region = getenv("S3_REGION", c.S3Region)
	c.S3Bucket = getenv("S3_BUCKET", c.S3Bucket)
	c.S3Endpoint = getenv("S3_ENDPOINT", c.S3Endpoint)
	c.S3AccessKey = getenv("S3_ACCESS_KEY", c.S3AccessKey)
	c.S3SecretKey = getenv("S3_SECRET_KEY", c.S3SecretKey)
	c.S3PublicBaseURL = getenv("S3_PUBLIC_BASE_URL", c.S3PublicBaseURL)
	c.LogLevel = strings.ToLower(getenv("LOG_LEVEL", c.LogLevel))
	c.LogFormat = strings.ToLower(getenv("LOG_FORMAT", c.LogFormat))
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.IdentityJWTSecret == "" {
		return fmt.Errorf("IDENTITY_JWT_SECRET must be set")
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative")
	}
	return nil
}

// PaymentsEnabled reports whether gateway credentials are configured.
func (c *Config) PaymentsEnabled() bool {
	return c.RazorpayKeyID != "" && c.RazorpayKeySecret != ""
}

func (c *Config) MediaEnabled() bool {
	return c.S3Bucket != ""
}

func getenv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return n
}

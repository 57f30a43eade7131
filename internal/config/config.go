// Package config collects process settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the server reads at startup
type Config struct {
	Port        string
	Environment string
	LogLevel    string
	LogFile     string

	Database DatabaseConfig
	Redis    RedisConfig

	JWTSecret []byte

	ElasticsearchURL string

	AWSRegion  string
	AWSBucket  string
	CDNBaseURL string

	SESFromEmail string
	SESFromName  string
	WebBaseURL   string

	GoogleClientID     string
	GoogleClientSecret string
	APIBaseURL         string

	OTelEnabled      bool
	OTelEndpoint     string
	OTelSamplingRate float64

	RateLimitMax    int
	RateLimitWindow time.Duration

	StoryCleanupInterval time.Duration
	CORSAllowedOrigins   []string
}

// DatabaseConfig selects the gorm dialector and its DSN
type DatabaseConfig struct {
	Driver     string // postgres | sqlite
	URL        string
	Host       string
	Port       string
	User       string
	Password   string
	Name       string
	SSLMode    string
	SQLitePath string
}

// DSN returns the postgres connection string or the sqlite path
func (d DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.SQLitePath
	}
	if d.URL != "" {
		return d.URL
	}
	dsn := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Name, d.SSLMode)
	if d.Password != "" {
		dsn += " password=" + d.Password
	}
	return dsn
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

// Enabled reports whether a Redis host was configured
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

// Load reads .env (when present) and the process environment
func Load() (*Config, error) {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnvOrDefault("PORT", "8787"),
		Environment: getEnvOrDefault("ENVIRONMENT", "development"),
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),
		LogFile:     getEnvOrDefault("LOG_FILE", "unify.log"),
		Database: DatabaseConfig{
			Driver:     strings.ToLower(getEnvOrDefault("DATABASE_DRIVER", "postgres")),
			URL:        os.Getenv("DATABASE_URL"),
			Host:       getEnvOrDefault("DB_HOST", "localhost"),
			Port:       getEnvOrDefault("DB_PORT", "5432"),
			User:       getEnvOrDefault("DB_USER", "postgres"),
			Password:   os.Getenv("DB_PASSWORD"),
			Name:       getEnvOrDefault("DB_NAME", "unify"),
			SSLMode:    getEnvOrDefault("DB_SSLMODE", "disable"),
			SQLitePath: getEnvOrDefault("SQLITE_PATH", "unify.db"),
		},
		Redis: RedisConfig{
			Host:     os.Getenv("REDIS_HOST"),
			Port:     getEnvOrDefault("REDIS_PORT", "6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		JWTSecret:            []byte(os.Getenv("JWT_SECRET")),
		ElasticsearchURL:     os.Getenv("ELASTICSEARCH_URL"),
		AWSRegion:            getEnvOrDefault("AWS_REGION", "us-east-1"),
		AWSBucket:            os.Getenv("AWS_BUCKET"),
		CDNBaseURL:           os.Getenv("CDN_BASE_URL"),
		SESFromEmail:         os.Getenv("SES_FROM_EMAIL"),
		SESFromName:          getEnvOrDefault("SES_FROM_NAME", "Unify"),
		WebBaseURL:           getEnvOrDefault("WEB_BASE_URL", "http://localhost:3000"),
		GoogleClientID:       os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret:   os.Getenv("GOOGLE_CLIENT_SECRET"),
		APIBaseURL:           getEnvOrDefault("API_BASE_URL", "http://localhost:8787"),
		OTelEnabled:          getEnvBool("OTEL_ENABLED", false),
		OTelEndpoint:         getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		OTelSamplingRate:     getEnvFloat("OTEL_SAMPLING_RATE", 1.0),
		RateLimitMax:         getEnvInt("RATE_LIMIT_MAX", 300),
		RateLimitWindow:      getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		StoryCleanupInterval: getEnvDuration("STORY_CLEANUP_INTERVAL", time.Hour),
		CORSAllowedOrigins:   splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with
func (c *Config) Validate() error {
	if len(c.JWTSecret) == 0 {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.Database.Driver)
	}
	if c.OTelSamplingRate < 0 || c.OTelSamplingRate > 1 {
		return fmt.Errorf("OTEL_SAMPLING_RATE must be between 0 and 1")
	}
	return nil
}

// IsProduction reports whether diagnostics should be hidden
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return defaultValue
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

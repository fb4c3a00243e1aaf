package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds the whole application configuration, populated from environment variables.
type Config struct {
	App         AppConfig
	Redis       RedisConfig
	JWT         JWTConfig
	GoogleBooks GoogleBooksConfig
	Lending     LendingConfig
	RateLimit   RateLimitConfig
}

type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Port        string
	Version     string
	LogLevel    string
}

type RedisConfig struct {
	Host     string
	Password string
	DB       int
	// Disabled falls back to the in-process cache; the worker still needs Redis.
	Disabled bool
}

type JWTConfig struct {
	Secret             string
	AccessTokenExpiry  int // minutes
	RefreshTokenExpiry int // hours
}

type GoogleBooksConfig struct {
	BaseURL    string
	APIKey     string
	MaxResults int
	Timeout    time.Duration
}

type LendingConfig struct {
	MaxLoanDays int
	// Books unavailable for longer than this with no owning loan are released by the sweep.
	ReconcileGrace time.Duration
	ReconcileCron  string
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using process environment")
	}

	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Library API"),
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "8080"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			Disabled: getEnvBool("REDIS_DISABLED", false),
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", defaultJWTSecret),
			AccessTokenExpiry:  getEnvInt("JWT_ACCESS_EXPIRY", 60),
			RefreshTokenExpiry: getEnvInt("JWT_REFRESH_EXPIRY", 72),
		},
		GoogleBooks: GoogleBooksConfig{
			BaseURL:    getEnv("GOOGLE_BOOKS_URL", "https://www.googleapis.com/books/v1"),
			APIKey:     getEnv("GOOGLE_BOOKS_API_KEY", ""),
			MaxResults: getEnvInt("GOOGLE_BOOKS_MAX_RESULTS", 10),
			Timeout:    getEnvDuration("GOOGLE_BOOKS_TIMEOUT", 10*time.Second),
		},
		Lending: LendingConfig{
			MaxLoanDays:    getEnvInt("LENDING_MAX_LOAN_DAYS", 30),
			ReconcileGrace: getEnvDuration("LENDING_RECONCILE_GRACE", 5*time.Minute),
			ReconcileCron:  getEnv("LENDING_RECONCILE_CRON", "@every 10m"),
		},
		RateLimit: RateLimitConfig{
			RPS:   getEnvFloat("RATE_LIMIT_RPS", 20),
			Burst: getEnvInt("RATE_LIMIT_BURST", 40),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.App.Environment == "production" && c.JWT.Secret == defaultJWTSecret {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	if c.Lending.MaxLoanDays <= 0 {
		return fmt.Errorf("LENDING_MAX_LOAN_DAYS must be positive")
	}
	if c.GoogleBooks.MaxResults <= 0 || c.GoogleBooks.MaxResults > 40 {
		return fmt.Errorf("GOOGLE_BOOKS_MAX_RESULTS must be between 1 and 40")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

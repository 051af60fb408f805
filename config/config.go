package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	DatabaseURL         string
	Port                string
	GoEnv               string
	AppName             string
	FrontendURL         string
	JWTSecret           string
	JWTRefreshSecret    string
	AccessTokenTTL      time.Duration
	RefreshTokenTTL     time.Duration
	BcryptCost          int
	DefaultTaxRate      decimal.Decimal
	StripeSecretKey     string
	StripeWebhookSecret string
	AWSRegion           string
	AWSS3Bucket         string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	RateLimitWindow     time.Duration
	RateLimitMax        int
	AuthRateLimitMax    int
	LogLevel            string
}

// Load loads the configuration from environment variables
// It automatically determines which .env file to load based on GO_ENV
func Load() (*Config, error) {
	// Determine which environment file to load
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	// Try to load environment-specific file first
	envFile := fmt.Sprintf(".env.%s", env)
	if err := godotenv.Load(envFile); err != nil {
		// If environment-specific file doesn't exist, try .env
		if err := godotenv.Load(); err != nil {
			// In hosted environments the variables are set directly,
			// so it's okay if .env files don't exist
			log.Printf("No .env file found, using system environment variables")
		}
	} else {
		log.Printf("Loaded configuration from %s", envFile)
	}

	config := &Config{
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		Port:                getEnv("PORT", "8080"),
		GoEnv:               getEnv("GO_ENV", "development"),
		AppName:             getEnv("APP_NAME", "POS System"),
		FrontendURL:         getEnv("FRONTEND_URL", "http://localhost:5173"),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		JWTRefreshSecret:    getEnv("JWT_REFRESH_SECRET", ""),
		AccessTokenTTL:      getEnvDuration("JWT_EXPIRES_IN", 15*time.Minute),
		RefreshTokenTTL:     getEnvDuration("JWT_REFRESH_EXPIRES_IN", 7*24*time.Hour),
		BcryptCost:          getEnvInt("BCRYPT_ROUNDS", 12),
		DefaultTaxRate:      getEnvDecimal("DEFAULT_TAX_RATE", "0.08"),
		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSS3Bucket:         getEnv("AWS_S3_BUCKET", ""),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		RateLimitWindow:     getEnvDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
		RateLimitMax:        getEnvInt("RATE_LIMIT_MAX_REQUESTS", 100),
		AuthRateLimitMax:    getEnvInt("AUTH_RATE_LIMIT_MAX_REQUESTS", 5),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks that all required configuration values are set
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.JWTRefreshSecret == "" {
		return fmt.Errorf("JWT_REFRESH_SECRET is required")
	}
	return nil
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// IsTest returns true if the application is running in test mode
func (c *Config) IsTest() bool {
	return c.GoEnv == "test"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid value for %s: %q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

// getEnvDuration retrieves a duration environment variable (e.g. "15m", "168h")
// or returns a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Invalid value for %s: %q, using default %s", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

// getEnvDecimal retrieves a decimal environment variable or returns a default value
func getEnvDecimal(key, defaultValue string) decimal.Decimal {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		log.Printf("Invalid value for %s: %q, using default %s", key, value, defaultValue)
		parsed = decimal.RequireFromString(defaultValue)
	}
	return parsed
}

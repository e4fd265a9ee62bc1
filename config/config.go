package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "sjsage522/pricetracker/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	// Output configuration
	OutputDir string

	// Site configuration
	BaseURL       string
	LoginURL      string
	SessionCookie string
	Email         string
	Password      string

	// Fetch configuration
	FetchTimeout time.Duration
	UseChrome    bool
	ChromeBin    string

	// Analysis configuration
	BucketWidth      int
	RecentSalesCount int

	// Memcache configuration
	MemcacheAddr   string
	SessionTTL     time.Duration
	RateLimitBlock time.Duration

	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamMaxLength int

	// Registry override file
	CollectiblesFile string

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	baseURL := strings.TrimRight(getEnv("BASE_URL", "https://www.pricecharting.com"), "/")

	return &Config{
		OutputDir:            getEnv("OUTPUT_DIR", "data"),
		BaseURL:              baseURL,
		LoginURL:             getEnv("LOGIN_URL", baseURL+"/login"),
		SessionCookie:        getEnv("SESSION_COOKIE", "session"),
		Email:                getEnv("PRICECHARTING_EMAIL", ""),
		Password:             getEnv("PRICECHARTING_PASSWORD", ""),
		FetchTimeout:         time.Duration(getEnvInt("FETCH_TIMEOUT_SECONDS", 60)) * time.Second,
		UseChrome:            getEnvBool("USE_CHROME", false),
		ChromeBin:            getEnv("CHROME_BIN", ""),
		BucketWidth:          getEnvInt("BUCKET_WIDTH", 20),
		RecentSalesCount:     getEnvInt("RECENT_SALES_COUNT", 10),
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", ""),
		SessionTTL:           time.Duration(getEnvInt("SESSION_TTL_SECONDS", 3600)) * time.Second,
		RateLimitBlock:       time.Duration(getEnvInt("RATE_LIMIT_BLOCK_SECONDS", 300)) * time.Second,
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		RedisStream:          getEnv("REDIS_STREAM", "pricetracker:summaries"),
		RedisStreamMaxLength: getEnvInt("REDIS_STREAM_MAX_LENGTH", 1000),
		CollectiblesFile:     getEnv("COLLECTIBLES_FILE", ""),
		Environment:          getEnv("PRICETRACKER_ENVIRONMENT", "development"),
	}
}

// Validate checks the values that the pipeline cannot run without
func (c *Config) Validate() error {
	if c.FetchTimeout <= 0 {
		return apperrors.NewConfiguration("FETCH_TIMEOUT_SECONDS must be positive", nil)
	}
	if c.BucketWidth <= 0 {
		return apperrors.NewConfiguration(fmt.Sprintf("BUCKET_WIDTH must be positive, got %d", c.BucketWidth), nil)
	}
	if c.RecentSalesCount <= 0 {
		return apperrors.NewConfiguration(fmt.Sprintf("RECENT_SALES_COUNT must be positive, got %d", c.RecentSalesCount), nil)
	}
	if c.OutputDir == "" {
		return apperrors.NewConfiguration("OUTPUT_DIR must not be empty", nil)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return b
}

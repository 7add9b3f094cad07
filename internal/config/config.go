package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the configuration for the recommender service
type Config struct {
	Server  ServerConfig
	Catalog CatalogConfig
	Ranking RankingConfig
	Storage StorageConfig
	Cache   CacheConfig
	Log     LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr string
}

// CatalogConfig describes where the course catalog comes from
type CatalogConfig struct {
	Path                string
	NormalizePopularity bool
}

// RankingConfig holds build and scoring parameters
type RankingConfig struct {
	Lambda         float64
	ScoreFloor     float64
	DefaultTopK    int
	MaxTopK        int
	MinDocFreq     int
	TitleWeight    int
	CategoryWeight int
}

// StorageConfig holds snapshot storage configuration
type StorageConfig struct {
	Backend string
	Dir     string
}

// CacheConfig holds query result cache configuration
type CacheConfig struct {
	Enabled         bool
	TTL             time.Duration
	CleanupInterval time.Duration
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables with defaults.
// Variables from a .env file in the working directory are applied first
// without overriding ones already set. A .env file that cannot be parsed
// is an error; a missing one is not.
func Load() (*Config, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv(), nil
}

// FromEnv builds the configuration from the process environment only
func FromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: GetStringEnv("SERVER_ADDR", ":8080"),
		},
		Catalog: CatalogConfig{
			Path:                GetStringEnv("CATALOG_PATH", "data/final_courses.csv"),
			NormalizePopularity: GetBoolEnv("CATALOG_NORMALIZE_POPULARITY", true),
		},
		Ranking: RankingConfig{
			Lambda:         GetFloatEnv("RANKING_LAMBDA", 0.3),
			ScoreFloor:     GetFloatEnv("RANKING_SCORE_FLOOR", 0.05),
			DefaultTopK:    GetIntEnv("RANKING_DEFAULT_TOP_K", 10),
			MaxTopK:        GetIntEnv("RANKING_MAX_TOP_K", 100),
			MinDocFreq:     GetIntEnv("RANKING_MIN_DOC_FREQ", 2),
			TitleWeight:    GetIntEnv("RANKING_TITLE_WEIGHT", 5),
			CategoryWeight: GetIntEnv("RANKING_CATEGORY_WEIGHT", 3),
		},
		Storage: StorageConfig{
			Backend: GetStringEnv("STORAGE_BACKEND", "file"),
			Dir:     GetStringEnv("STORAGE_DIR", "./data/model"),
		},
		Cache: CacheConfig{
			Enabled:         GetBoolEnv("CACHE_ENABLED", true),
			TTL:             GetDurationEnv("CACHE_TTL", 10*time.Minute),
			CleanupInterval: GetDurationEnv("CACHE_CLEANUP_INTERVAL", 5*time.Minute),
		},
		Log: LogConfig{
			Level:  GetStringEnv("LOG_LEVEL", "info"),
			Format: GetStringEnv("LOG_FORMAT", "text"),
		},
	}
}

// LoadDotEnv applies the given env files (".env" when none are named).
// Missing files are not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func GetStringEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func GetDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

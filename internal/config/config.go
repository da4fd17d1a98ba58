package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	ServerPort  string
	Environment string

	// Database configuration (backing store for the remote sheets)
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis configuration
	RedisAddress string

	// JWT configuration
	JWTSecret string

	// Local data directory (CSV/JSON fallback files and local documents)
	DataDir string

	// Document storage: "fs" or "s3"
	DocsDriver   string
	S3Bucket     string
	S3Region     string
	S3Endpoint   string
	S3PathStyle  bool
	S3RootPrefix string

	// Bootstrap admin, used only when the user table is empty
	AdminUser     string
	AdminPassword string

	// Cache expiry windows. Tuned by trial, treat as defaults.
	ClientsTTL  time.Duration
	HistoryTTL  time.Duration
	UsersTTL    time.Duration
	CatalogsTTL time.Duration
	SheetsTTL   time.Duration

	// Fuzzy matching thresholds
	CanonicalMinRatio float64
	SearchFuzzyRatio  float64
	CloseMatchCutoff  float64

	// Size of the local upload worker pool
	UploadWorkers int

	FrontendAddress string
}

// Load reads configuration from environment variables, consulting a .env
// file when one exists in the working directory or a parent.
func Load() Config {
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = filepath.Join("..", ".env")
		if _, err := os.Stat(envPath); os.IsNotExist(err) {
			envPath = filepath.Join("..", "..", ".env")
		}
	}
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			log.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	return Config{
		ServerPort:  getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "crm"),

		RedisAddress: getEnv("REDIS_ADDRESS", "localhost:6379"),
		JWTSecret:    getEnv("JWT_SECRET", ""),

		DataDir: getEnv("DATA_DIR", "data"),

		DocsDriver:   getEnv("DOCS_DRIVER", "fs"),
		S3Bucket:     getEnv("DOCS_S3_BUCKET", ""),
		S3Region:     getEnv("DOCS_S3_REGION", "us-east-1"),
		S3Endpoint:   getEnv("DOCS_S3_ENDPOINT", ""),
		S3PathStyle:  getBoolEnv("DOCS_S3_PATH_STYLE", false),
		S3RootPrefix: getEnv("DOCS_S3_ROOT_PREFIX", "crm-docs"),

		AdminUser:     getEnv("ADMIN_USER", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),

		ClientsTTL:  getDurationEnv("CLIENTS_CACHE_TTL", 3*time.Second),
		HistoryTTL:  getDurationEnv("HISTORY_CACHE_TTL", 4*time.Second),
		UsersTTL:    getDurationEnv("USERS_CACHE_TTL", 5*time.Minute),
		CatalogsTTL: getDurationEnv("CATALOGS_CACHE_TTL", 10*time.Minute),
		SheetsTTL:   getDurationEnv("SHEETS_CACHE_TTL", 10*time.Minute),

		CanonicalMinRatio: getFloatEnv("CANONICAL_MIN_RATIO", 0.90),
		SearchFuzzyRatio:  getFloatEnv("SEARCH_FUZZY_RATIO", 0.82),
		CloseMatchCutoff:  getFloatEnv("CLOSE_MATCH_CUTOFF", 0.6),

		UploadWorkers: getIntEnv("UPLOAD_WORKERS", 4),

		FrontendAddress: getEnv("FRONTEND_ADDRESS", ""),
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func getFloatEnv(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
// It is the single source of truth for runtime parameters.
type Config struct {
	Port     string
	Env      string
	Debug    bool
	LogLevel string
	Currency string

	DB      DatabaseConfig
	Redis   RedisConfig
	Storage StorageConfig
	Upload  UploadConfig
	Worker  WorkerConfig
	CORS    CORSConfig
	Auth    AuthConfig
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	Name           string
	SSLMode        string
	MigrationsPath string
}

// RedisConfig contains Redis connection parameters.
// An empty Host disables the public listing cache.
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	PublicCacheTTL time.Duration
}

// StorageConfig selects and configures the disk product images are written to.
type StorageConfig struct {
	Disk       string // "local" or "s3"
	LocalRoot  string
	PublicPath string // URL path the local root is served under
	PublicURL  string // absolute URL prefix for local files; empty means PublicPath
	S3         S3Config
}

// S3Config contains S3-compatible object storage configuration
type S3Config struct {
	Region          string
	Bucket          string
	Endpoint        string
	PublicURL       string
	AccessKeyID     string
	SecretAccessKey string
}

// UploadConfig bounds product image uploads.
type UploadConfig struct {
	MaxFiles     int
	MaxFileSize  int64
	AllowedMIMEs []string
}

// WorkerConfig contains interval configuration for background workers.
type WorkerConfig struct {
	OrphanSweepInterval time.Duration
	OrphanSweepMinAge   time.Duration
}

// AuthConfig bounds failed admin token attempts per client IP.
type AuthConfig struct {
	FailureLimit  int
	FailureWindow time.Duration
}

// CORSConfig lists the front-end origins allowed to call the API.
type CORSConfig struct {
	AllowedHosts []string
}

// Load reads configuration from environment variables. If a .env file exists
// in the working directory, it will be loaded first. It returns a populated
// Config or an error with a human-friendly message.
func Load() (*Config, error) {
	// Load .env if present; ignore error if file is missing so that production
	// environments relying solely on real environment variables keep working.
	_ = godotenv.Load()

	cfg := &Config{}

	// Server
	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("ENV", "development")
	cfg.Debug = getEnvBool("APP_DEBUG", false)
	cfg.LogLevel = getEnv("LOG_LEVEL", "")
	cfg.Currency = strings.ToUpper(getEnv("APP_CURRENCY", "IDR"))

	// Database
	cfg.DB = DatabaseConfig{
		Host:           getEnv("DB_HOST", ""),
		Port:           getEnv("DB_PORT", "5432"),
		User:           getEnv("DB_USER", ""),
		Password:       getEnv("DB_PASSWORD", ""),
		Name:           getEnv("DB_NAME", ""),
		SSLMode:        getEnv("DB_SSLMODE", "disable"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "file://migrations"),
	}

	// Redis
	cfg.Redis = RedisConfig{
		Host:     getEnv("REDIS_HOST", ""),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}

	// Storage
	cfg.Storage = StorageConfig{
		Disk:       getEnv("STORAGE_DISK", "local"),
		LocalRoot:  getEnv("STORAGE_LOCAL_ROOT", "storage/public"),
		PublicPath: getEnv("STORAGE_PUBLIC_PATH", "/storage"),
		PublicURL:  getEnv("STORAGE_PUBLIC_URL", ""),
		S3: S3Config{
			Region:          getEnv("S3_REGION", "ap-southeast-3"),
			Bucket:          getEnv("S3_BUCKET", ""),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			PublicURL:       getEnv("S3_PUBLIC_URL", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		},
	}

	// Upload limits
	cfg.Upload = UploadConfig{
		MaxFiles:     getEnvInt("UPLOAD_MAX_FILES", 10),
		MaxFileSize:  int64(getEnvInt("UPLOAD_MAX_FILE_SIZE_KB", 5120)) * 1024,
		AllowedMIMEs: getEnvList("UPLOAD_ALLOWED_MIMES", "image/jpeg,image/png,image/gif,image/webp"),
	}

	cfg.CORS = CORSConfig{
		AllowedHosts: getEnvList("CORS_ALLOWED_HOSTS", "localhost:3000,127.0.0.1:3000"),
	}

	cfg.Auth.FailureLimit = getEnvInt("AUTH_FAILURE_LIMIT", 5)

	// Durations
	var err error
	if cfg.Redis.PublicCacheTTL, err = parseDurationEnv("PUBLIC_CACHE_TTL", "60s"); err != nil {
		return nil, fmt.Errorf("invalid PUBLIC_CACHE_TTL: %w", err)
	}
	if cfg.Worker.OrphanSweepInterval, err = parseDurationEnv("ORPHAN_SWEEP_INTERVAL", "6h"); err != nil {
		return nil, fmt.Errorf("invalid ORPHAN_SWEEP_INTERVAL: %w", err)
	}
	if cfg.Worker.OrphanSweepMinAge, err = parseDurationEnv("ORPHAN_SWEEP_MIN_AGE", "1h"); err != nil {
		return nil, fmt.Errorf("invalid ORPHAN_SWEEP_MIN_AGE: %w", err)
	}
	if cfg.Auth.FailureWindow, err = parseDurationEnv("AUTH_FAILURE_WINDOW", "1m"); err != nil {
		return nil, fmt.Errorf("invalid AUTH_FAILURE_WINDOW: %w", err)
	}
	if cfg.Auth.FailureLimit <= 0 {
		return nil, errors.New("AUTH_FAILURE_LIMIT must be positive")
	}
	if cfg.Auth.FailureWindow <= 0 {
		return nil, errors.New("AUTH_FAILURE_WINDOW must be positive")
	}

	// Basic validation for DB parameters
	if cfg.DB.Host == "" || cfg.DB.User == "" || cfg.DB.Name == "" {
		return nil, errors.New("database configuration incomplete: ensure DB_HOST, DB_USER, and DB_NAME are set")
	}

	switch cfg.Storage.Disk {
	case "local":
	case "s3":
		if cfg.Storage.S3.Bucket == "" {
			return nil, errors.New("S3_BUCKET must be set when STORAGE_DISK=s3")
		}
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DISK %q (use local or s3)", cfg.Storage.Disk)
	}

	if cfg.Upload.MaxFiles <= 0 || cfg.Upload.MaxFileSize <= 0 {
		return nil, errors.New("UPLOAD_MAX_FILES and UPLOAD_MAX_FILE_SIZE_KB must be positive")
	}

	return cfg, nil
}

// IsProduction reports whether the app runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// getEnv returns the value of an environment variable or a default if empty.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the value of an environment variable as an integer or a default if empty/invalid.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// getEnvBool parses "true/false/1/0" style values, falling back to def.
func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// getEnvList splits a comma separated variable, dropping empty items.
func getEnvList(key, def string) []string {
	raw := getEnv(key, def)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseDurationEnv reads an environment variable and parses it as time.Duration.
// If the variable is empty, it falls back to the provided default value.
func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be >= 0")
	}
	return d, nil
}

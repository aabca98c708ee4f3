// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Supported storage drivers.
const (
	DriverCloudinary = "cloudinary"
	DriverMinio      = "minio"
	DriverMemory     = "memory"
)

// Config holds all runtime configuration for the service.
type Config struct {
	Port     string
	AppEnv   string
	LogLevel string

	// StorageDriver selects the media provider: cloudinary, minio or memory.
	StorageDriver string

	// Cloudinary account
	CloudName string
	APIKey    string
	APISecret string

	// Object storage (S3-compatible: MinIO locally)
	StorageEndpoint   string
	StorageAccessKey  string
	StorageSecretKey  string
	StorageBucket     string
	StorageUseSSL     bool
	StoragePublicBase string // browser-accessible base URL, e.g. "http://localhost:9000/boxes"

	UploadDir            string
	MaxUploadSize        int64 // bytes
	MaxConcurrentUploads int

	// UploadJWTSecret protects POST /upload when non-empty.
	UploadJWTSecret string
}

// Load reads configuration from a .env file (if present) and environment variables.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found, reading from environment")
	}

	return &Config{
		Port:     getEnv("PORT", "10000"),
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StorageDriver: getEnv("STORAGE_DRIVER", DriverCloudinary),

		// Lower-case keys are what older deployments put in their .env.
		CloudName: getEnv("CLOUDINARY_CLOUD_NAME", os.Getenv("cloud_name")),
		APIKey:    getEnv("CLOUDINARY_API_KEY", os.Getenv("api_key")),
		APISecret: getEnv("CLOUDINARY_API_SECRET", os.Getenv("api_secret")),

		StorageEndpoint:   getEnv("STORAGE_ENDPOINT", "localhost:9000"),
		StorageAccessKey:  getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
		StorageSecretKey:  getEnv("STORAGE_SECRET_KEY", "minioadmin"),
		StorageBucket:     getEnv("STORAGE_BUCKET", "boxes"),
		StorageUseSSL:     getEnv("STORAGE_USE_SSL", "false") == "true",
		StoragePublicBase: getEnv("STORAGE_PUBLIC_BASE", "http://localhost:9000/boxes"),

		UploadDir:            getEnv("UPLOAD_DIR", "uploads"),
		MaxUploadSize:        int64(getEnvInt("MAX_UPLOAD_SIZE_MB", 20)) << 20,
		MaxConcurrentUploads: getEnvInt("MAX_CONCURRENT_UPLOADS", 8),

		UploadJWTSecret: getEnv("UPLOAD_JWT_SECRET", ""),
	}
}

// Validate reports configuration that would make the provider unusable.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case DriverCloudinary:
		if c.CloudName == "" || c.APIKey == "" || c.APISecret == "" {
			return errors.New("cloudinary driver requires cloud name, api key and api secret")
		}
	case DriverMinio, DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
	if c.MaxUploadSize <= 0 {
		return errors.New("MAX_UPLOAD_SIZE_MB must be positive")
	}
	if c.MaxConcurrentUploads < 0 {
		return errors.New("MAX_CONCURRENT_UPLOADS must not be negative")
	}
	return nil
}

// IsProduction returns true when the app is running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("invalid integer, using default")
		return fallback
	}
	return n
}

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("MAX_UPLOAD_SIZE_MB", "")
	t.Setenv("MAX_CONCURRENT_UPLOADS", "")

	cfg := Load()

	assert.Equal(t, "10000", cfg.Port)
	assert.Equal(t, DriverCloudinary, cfg.StorageDriver)
	assert.Equal(t, "uploads", cfg.UploadDir)
	assert.Equal(t, int64(20<<20), cfg.MaxUploadSize)
	assert.Equal(t, 8, cfg.MaxConcurrentUploads)
}

func TestLoadLegacyCloudinaryKeys(t *testing.T) {
	t.Setenv("CLOUDINARY_CLOUD_NAME", "")
	t.Setenv("CLOUDINARY_API_KEY", "")
	t.Setenv("CLOUDINARY_API_SECRET", "")
	t.Setenv("cloud_name", "demo")
	t.Setenv("api_key", "key")
	t.Setenv("api_secret", "secret")

	cfg := Load()

	assert.Equal(t, "demo", cfg.CloudName)
	assert.Equal(t, "key", cfg.APIKey)
	assert.Equal(t, "secret", cfg.APISecret)
	require.NoError(t, cfg.Validate())
}

func TestLoadInvalidIntegerFallsBack(t *testing.T) {
	t.Setenv("MAX_CONCURRENT_UPLOADS", "lots")

	cfg := Load()

	assert.Equal(t, 8, cfg.MaxConcurrentUploads)
}

func TestValidate(t *testing.T) {
	base := Config{MaxUploadSize: 1 << 20, MaxConcurrentUploads: 2}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"cloudinary without credentials", func(c *Config) { c.StorageDriver = DriverCloudinary }, true},
		{"cloudinary with credentials", func(c *Config) {
			c.StorageDriver = DriverCloudinary
			c.CloudName, c.APIKey, c.APISecret = "demo", "k", "s"
		}, false},
		{"minio", func(c *Config) { c.StorageDriver = DriverMinio }, false},
		{"memory", func(c *Config) { c.StorageDriver = DriverMemory }, false},
		{"unknown driver", func(c *Config) { c.StorageDriver = "ftp" }, true},
		{"negative gate", func(c *Config) {
			c.StorageDriver = DriverMemory
			c.MaxConcurrentUploads = -1
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

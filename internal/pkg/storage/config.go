package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MarcChevalier/Tastevin/internal/pkg/env"
)

// Config holds the S3 photo storage configuration
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	PublicBaseURL   string // Optional CDN/proxy prefix for served photos
	Enabled         bool
}

// LoadConfig loads the photo storage configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "us-east-1"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		PublicBaseURL:   env.GetEnv("S3_PUBLIC_BASE_URL", ""),
		Enabled:         env.GetEnv("S3_STORAGE_ENABLED", "false") == "true",
	}

	if config.Enabled {
		if config.AccessKeyID == "" {
			return nil, errors.New("S3_ACCESS_KEY_ID is required when photo storage is enabled")
		}
		if config.SecretAccessKey == "" {
			return nil, errors.New("S3_SECRET_ACCESS_KEY is required when photo storage is enabled")
		}
		if config.BucketName == "" {
			return nil, errors.New("S3_BUCKET_NAME is required when photo storage is enabled")
		}
	}

	return config, nil
}

// IsEnabled returns true if photo storage is enabled
func (c *Config) IsEnabled() bool {
	return c.Enabled
}

// PhotoKey generates a standardized object key for a label photo
func (c *Config) PhotoKey(photoUUID, fileExtension string, year, month int) string {
	// Format: labels/YYYY/MM/UUID.ext
	return fmt.Sprintf("labels/%04d/%02d/%s%s", year, month, photoUUID, fileExtension)
}

// ThumbnailKey generates the object key for the thumbnail of a label photo
func (c *Config) ThumbnailKey(photoUUID string, year, month int) string {
	// Thumbnails are always re-encoded as JPEG
	return fmt.Sprintf("labels/%04d/%02d/thumb/%s.jpg", year, month, photoUUID)
}

// ObjectURL returns the public URL for an object key
func (c *Config) ObjectURL(objectKey string) string {
	if c.PublicBaseURL != "" {
		return strings.TrimRight(c.PublicBaseURL, "/") + "/" + objectKey
	}
	if c.EndpointURL != "" {
		return strings.TrimRight(c.EndpointURL, "/") + "/" + c.BucketName + "/" + objectKey
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.BucketName, c.Region, objectKey)
}

// GetAppEnv returns the current application environment
func GetAppEnv() string {
	return env.GetEnv("APP_ENV", "dev")
}

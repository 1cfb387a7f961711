// Package config provides configuration structures for the skiff CLI.
package config

import (
	"fmt"
	"time"
)

// Config represents the query run configuration.
type Config struct {
	// Engine settings
	Region         string   `yaml:"region" json:"region"`
	Workgroup      string   `yaml:"workgroup" json:"workgroup"`
	OutputLocation string   `yaml:"output_location" json:"output_location"`
	Database       string   `yaml:"database" json:"database"`
	Catalog        string   `yaml:"catalog" json:"catalog"`
	Parameters     []string `yaml:"parameters" json:"parameters"`

	// Optional static credentials; the default AWS credential chain is
	// used when these are unset.
	AccessKeyID     string `yaml:"access_key_id" json:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" json:"secret_access_key"`

	// Encryption of stored results
	Encryption EncryptionConfig `yaml:"encryption" json:"encryption"`

	// Retrieval settings
	PollInterval    time.Duration `yaml:"poll_interval" json:"poll_interval"`
	PageSize        int32         `yaml:"page_size" json:"page_size"`
	NextToken       string        `yaml:"next_token" json:"next_token"`
	Format          string        `yaml:"format" json:"format"` // typed or raw
	IncludeMetadata bool          `yaml:"include_metadata" json:"include_metadata"`
	SkipBlank       bool          `yaml:"skip_blank" json:"skip_blank"`

	// Observability
	LogLevel string        `yaml:"log_level" json:"log_level"`
	Metrics  MetricsConfig `yaml:"metrics" json:"metrics"`
}

// EncryptionConfig represents result encryption configuration.
type EncryptionConfig struct {
	Option string `yaml:"option" json:"option"` // SSE_S3, SSE_KMS, CSE_KMS
	KMSKey string `yaml:"kms_key" json:"kms_key"`
}

// MetricsConfig represents metrics configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Address string `yaml:"address" json:"address"`
	Path    string `yaml:"path" json:"path"`
}

// Validate validates the configuration and fills defaults.
func (c *Config) Validate() error {
	if c.Region == "" {
		return fmt.Errorf("region is required")
	}
	if c.OutputLocation == "" && c.Workgroup == "" {
		return fmt.Errorf("either output location or a workgroup with a configured output location is required")
	}
	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		return fmt.Errorf("access key ID and secret access key must be set together")
	}

	switch c.Format {
	case "":
		c.Format = "typed"
	case "typed", "raw":
	default:
		return fmt.Errorf("unsupported format: %s", c.Format)
	}

	if c.Encryption.Option == "" && c.Encryption.KMSKey != "" {
		return fmt.Errorf("encryption option is required when a KMS key is set")
	}

	if c.PollInterval <= 0 {
		c.PollInterval = 1 * time.Second
	}
	if c.PageSize < 0 {
		return fmt.Errorf("page size cannot be negative")
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}

	return nil
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		Region:       "us-east-1",
		Catalog:      "AwsDataCatalog",
		PollInterval: 1 * time.Second,
		Format:       "typed",
		LogLevel:     "info",
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9090",
			Path:    "/metrics",
		},
	}
}

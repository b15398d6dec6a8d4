// Package config handles configuration management for sales-ingest.
// Configuration is loaded from config files and CLI flags (no environment variables).
// CLI flags take precedence over config file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all configuration for sales-ingest.
type Config struct {
	// Connection is the PostgreSQL connection string for the warehouse.
	Connection string `mapstructure:"connection"`

	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`

	// Storage holds object storage configuration for the source extract.
	Storage StorageConfig `mapstructure:"storage"`

	// Ingest holds configuration for the ingest subcommand.
	Ingest IngestConfig `mapstructure:"ingest"`

	// Seed holds configuration for the seed subcommand.
	Seed SeedConfig `mapstructure:"seed"`
}

// StorageConfig holds S3-compatible object storage settings.
type StorageConfig struct {
	// Endpoint is the storage host:port, e.g. "localhost:9000".
	Endpoint string `mapstructure:"endpoint"`

	// AccessKey is the storage access key.
	AccessKey string `mapstructure:"access_key"`

	// SecretKey is the storage secret key.
	SecretKey string `mapstructure:"secret_key"`

	// UseSSL enables TLS for storage connections.
	UseSSL bool `mapstructure:"use_ssl"`

	// Bucket is the bucket holding the sales extract.
	Bucket string `mapstructure:"bucket"`

	// ObjectKey is the object key of the sales extract CSV.
	ObjectKey string `mapstructure:"object_key"`
}

// IngestConfig holds configuration for an ingestion run.
type IngestConfig struct {
	// MalformedThreshold is the tolerated fraction of malformed rows
	// before the whole run is treated as a corrupt source.
	MalformedThreshold float64 `mapstructure:"malformed_threshold"`

	// FetchTimeoutSeconds bounds the object storage fetch.
	FetchTimeoutSeconds int `mapstructure:"fetch_timeout_seconds"`

	// StoreTimeoutSeconds bounds the warehouse transaction.
	StoreTimeoutSeconds int `mapstructure:"store_timeout_seconds"`
}

// SeedConfig holds configuration for sample extract generation.
type SeedConfig struct {
	// Rows is the number of sale item rows to generate.
	Rows int `mapstructure:"rows"`

	// Days is the number of distinct sale dates to spread rows across.
	Days int `mapstructure:"days"`

	// StartDate is the first sale date (YYYYMMDD). Empty means today.
	StartDate string `mapstructure:"start_date"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Storage: StorageConfig{
			Endpoint:  "localhost:9000",
			UseSSL:    false,
			Bucket:    "folder-source",
			ObjectKey: "fashion_store_sales.csv",
		},
		Ingest: IngestConfig{
			MalformedThreshold:  0.10,
			FetchTimeoutSeconds: 30,
			StoreTimeoutSeconds: 300,
		},
		Seed: SeedConfig{
			Rows: 1000,
			Days: 7,
		},
	}
}

// Load reads configuration from config files.
// Config file locations (in order of precedence):
// 1. Path specified by configFile parameter
// 2. ./sales-ingest.yaml
// 3. ~/.config/sales-ingest/config.yaml
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("sales-ingest")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "sales-ingest"))
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Connection == "" {
		return fmt.Errorf("connection string is required")
	}
	return nil
}

// ValidateStorage checks configuration required to reach object storage.
func (c *Config) ValidateStorage() error {
	if c.Storage.Endpoint == "" {
		return fmt.Errorf("storage endpoint is required")
	}
	if c.Storage.Bucket == "" {
		return fmt.Errorf("storage bucket is required")
	}
	if c.Storage.ObjectKey == "" {
		return fmt.Errorf("storage object key is required")
	}
	return nil
}

// ValidateIngest checks configuration required for the ingest command.
func (c *Config) ValidateIngest() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := c.ValidateStorage(); err != nil {
		return err
	}
	if c.Ingest.MalformedThreshold < 0 || c.Ingest.MalformedThreshold > 1 {
		return fmt.Errorf("malformed_threshold must be in [0,1]")
	}
	if c.Ingest.FetchTimeoutSeconds < 1 {
		return fmt.Errorf("fetch_timeout_seconds must be at least 1")
	}
	if c.Ingest.StoreTimeoutSeconds < 1 {
		return fmt.Errorf("store_timeout_seconds must be at least 1")
	}
	return nil
}

// ValidateSeed checks configuration required for the seed command.
func (c *Config) ValidateSeed() error {
	if err := c.ValidateStorage(); err != nil {
		return err
	}
	if c.Seed.Rows < 1 {
		return fmt.Errorf("seed rows must be at least 1")
	}
	if c.Seed.Days < 1 {
		return fmt.Errorf("seed days must be at least 1")
	}
	return nil
}

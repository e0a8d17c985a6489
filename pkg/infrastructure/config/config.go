// Package config loads planning settings from defaults, a YAML profile, .env files and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vsinha/meio/pkg/application/services/shared"
	"github.com/vsinha/meio/pkg/domain/entities"
)

// DefaultEnvFiles are loaded when present, in order; variables already set are kept
var DefaultEnvFiles = []string{".env", ".env.local"}

// StoreOptions selects the run snapshot database
type StoreOptions struct {
	Driver string `yaml:"driver" env:"DRIVER"` // sqlite or postgres, empty disables snapshots
	DSN    string `yaml:"dsn" env:"DSN"`
}

// ArchiveOptions selects where rendered reports are copied after a run
type ArchiveOptions struct {
	Target          string `yaml:"target" env:"TARGET"` // fs or s3, empty disables archiving
	Dir             string `yaml:"dir" env:"DIR"`
	Bucket          string `yaml:"bucket" env:"BUCKET"`
	Prefix          string `yaml:"prefix" env:"PREFIX"`
	Region          string `yaml:"region" env:"REGION"`
	Endpoint        string `yaml:"endpoint" env:"ENDPOINT"`
	AccessKeyID     string `yaml:"access_key_id" env:"ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"SECRET_ACCESS_KEY"`
	UsePathStyle    bool   `yaml:"use_path_style" env:"USE_PATH_STYLE"`
}

// Config holds every tunable of a planning run
type Config struct {
	ServiceLevel  float64 `yaml:"service_level" env:"MEIO_SERVICE_LEVEL"`
	ZScore        float64 `yaml:"z_score" env:"MEIO_Z_SCORE"`
	DaysPerPeriod float64 `yaml:"days_per_period" env:"MEIO_DAYS_PER_PERIOD"`
	Granularity   string  `yaml:"granularity" env:"MEIO_GRANULARITY"`
	DemandBasis   string  `yaml:"demand_basis" env:"MEIO_DEMAND_BASIS"`
	Strict        bool    `yaml:"strict" env:"MEIO_STRICT"`
	Workers       int     `yaml:"workers" env:"MEIO_WORKERS"`
	LogLevel      string  `yaml:"log_level" env:"MEIO_LOG_LEVEL"`
	LogFormat     string  `yaml:"log_format" env:"MEIO_LOG_FORMAT"`

	Store   StoreOptions   `yaml:"store" envPrefix:"MEIO_STORE_"`
	Archive ArchiveOptions `yaml:"archive" envPrefix:"MEIO_ARCHIVE_"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		ServiceLevel: 0.95,
		Granularity:  "monthly",
		DemandBasis:  "actual",
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

// LoadEnv loads the env files that exist and reports how many were found
func LoadEnv(envFiles []string) (int, error) {
	existingFiles := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existingFiles = append(existingFiles, file)
		}
	}

	if len(existingFiles) == 0 {
		return 0, nil
	}

	return len(existingFiles), godotenv.Load(existingFiles...)
}

// Load applies, in increasing precedence: defaults, the YAML profile (when profilePath is set),
// the env files and the process environment
func Load(profilePath string, envFiles []string) (*Config, error) {
	cfg := Default()

	if profilePath != "" {
		data, err := os.ReadFile(profilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read profile %s: %w", profilePath, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse profile %s: %w", profilePath, err)
		}
	}

	if _, err := LoadEnv(envFiles); err != nil {
		return nil, fmt.Errorf("failed to load env files: %w", err)
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations
func (c *Config) Validate() error {
	var errs []error

	if c.ServiceLevel <= 0 || c.ServiceLevel >= 1 {
		errs = append(errs, fmt.Errorf("service level must be in (0, 1), got %v", c.ServiceLevel))
	}
	if c.ZScore < 0 {
		errs = append(errs, fmt.Errorf("z-score cannot be negative, got %v", c.ZScore))
	}
	if c.DaysPerPeriod < 0 {
		errs = append(errs, fmt.Errorf("days per period cannot be negative, got %v", c.DaysPerPeriod))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers cannot be negative, got %d", c.Workers))
	}
	if _, err := shared.ParseGranularity(c.Granularity); err != nil {
		errs = append(errs, err)
	}
	if _, err := entities.ParseDemandBasis(c.DemandBasis); err != nil {
		errs = append(errs, err)
	}

	switch strings.ToLower(c.Store.Driver) {
	case "":
	case "sqlite", "postgres":
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("store dsn is required for driver %s", c.Store.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid store driver: %s (expected: sqlite or postgres)", c.Store.Driver))
	}

	switch strings.ToLower(c.Archive.Target) {
	case "":
	case "fs":
		if c.Archive.Dir == "" {
			errs = append(errs, fmt.Errorf("archive dir is required for target fs"))
		}
	case "s3":
		if c.Archive.Bucket == "" {
			errs = append(errs, fmt.Errorf("archive bucket is required for target s3"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid archive target: %s (expected: fs or s3)", c.Archive.Target))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %w", errors.Join(errs...))
	}
	return nil
}

// GranularityValue returns the parsed granularity; call after Validate
func (c *Config) GranularityValue() shared.Granularity {
	g, _ := shared.ParseGranularity(c.Granularity)
	return g
}

// DemandBasisValue returns the parsed demand basis; call after Validate
func (c *Config) DemandBasisValue() entities.DemandBasis {
	b, _ := entities.ParseDemandBasis(c.DemandBasis)
	return b
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".rpdarchive"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File represents the structure of the .rpdarchive configuration file.
// Zero values mean "not set" and leave the current configuration untouched.
type File struct {
	BaseURL         string        `yaml:"base_url,omitempty"`
	UserAgent       string        `yaml:"user_agent,omitempty"`
	Delay           time.Duration `yaml:"delay,omitempty"`
	Timeout         time.Duration `yaml:"timeout,omitempty"`
	Retries         *int          `yaml:"retries,omitempty"`
	MaxListingPages int           `yaml:"max_listing_pages,omitempty"`
	OutDir          string        `yaml:"out_dir,omitempty"`
	SiteDataDir     string        `yaml:"site_data_dir,omitempty"`
	Proxy           string        `yaml:"proxy,omitempty"`
	DBDir           string        `yaml:"db_dir,omitempty"`
}

// ApplyTo copies every value set in the file onto cfg.
// CLI flags are applied afterwards by the caller so that they win.
func (f *File) ApplyTo(cfg *Config) {
	if f.BaseURL != "" {
		cfg.BaseURL = f.BaseURL
	}
	if f.UserAgent != "" {
		cfg.UserAgent = f.UserAgent
	}
	if f.Delay != 0 {
		cfg.Delay = f.Delay
	}
	if f.Timeout != 0 {
		cfg.Timeout = f.Timeout
	}
	if f.Retries != nil {
		cfg.Retries = *f.Retries
	}
	if f.MaxListingPages != 0 {
		cfg.MaxListingPages = f.MaxListingPages
	}
	if f.OutDir != "" {
		cfg.OutDir = f.OutDir
	}
	if f.SiteDataDir != "" {
		cfg.SiteDataDir = f.SiteDataDir
	}
	if f.Proxy != "" {
		cfg.ProxyAddress = f.Proxy
	}
	if f.DBDir != "" {
		cfg.DBDir = f.DBDir
	}
}

// LoadConfigFile loads a YAML configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}
	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .rpdarchive in the current directory
// 3. Look for .rpdarchive in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}

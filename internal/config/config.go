package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "rpdarchive"

	// DefaultBaseURL is the root of the archived directory site.
	DefaultBaseURL = "http://rarepepedirectory.com"

	// DefaultUserAgent identifies archive traffic in the site's access logs.
	DefaultUserAgent = "RarePepeWorld-Archive/1.0 (historical archival; +https://github.com/nao1215/rpdarchive)"

	// DefaultSupplyUserAgent is sent to the token ledger API.
	DefaultSupplyUserAgent = "RarePepeWorld-Supply/1.0 (static site data)"

	// DefaultSupplyAPIURL is the token ledger explorer API.
	DefaultSupplyAPIURL = "https://tokenscan.io/api"

	// DefaultDelay is the pause between two requests to the directory site.
	DefaultDelay = 1500 * time.Millisecond

	// DefaultSupplyDelay is the pause between two ledger API requests.
	DefaultSupplyDelay = 1 * time.Second

	// DefaultTimeout bounds a single HTTP request.
	DefaultTimeout = 30 * time.Second

	// DefaultRetries is the number of retries after the first attempt.
	DefaultRetries = 2

	// DefaultRetryBaseDelay is the first backoff delay.
	DefaultRetryBaseDelay = 2 * time.Second

	// DefaultRetryMaxDelay caps the exponential backoff.
	DefaultRetryMaxDelay = 10 * time.Second

	// DefaultMaxListingPages is the ceiling for one pagination walk.
	DefaultMaxListingPages = 500

	// DefaultMaxBodySize limits the body read from one response.
	// Card images are the largest payloads the archive downloads.
	DefaultMaxBodySize = 20 * 1024 * 1024 // 20MB

	// DefaultOutDir is the archive root, relative to the working directory.
	DefaultOutDir = "archive"

	// DefaultSiteDataDir receives mirrored copies of the link and series files.
	DefaultSiteDataDir = "data"
)

// Config holds every option of an archive run.
// It is populated from defaults, then the YAML config file, then CLI flags.
type Config struct {
	// BaseURL is the root of the site being archived.
	BaseURL string

	// OutDir is the archive root. JSON artifacts go to <OutDir>/rpd,
	// the clone to <OutDir>/site and images to <OutDir>/pepes.
	OutDir string

	// SiteDataDir receives copies of the link index and series map when
	// the directory exists. Empty disables mirroring.
	SiteDataDir string

	// DiscoveryOnly stops the run after listing discovery.
	DiscoveryOnly bool

	// Delay is the minimum spacing between two requests.
	Delay time.Duration

	// SkipClone disables saving rewritten pages under <OutDir>/site.
	SkipClone bool

	// SkipImages disables image downloads.
	SkipImages bool

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// UserAgent is sent with every request.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes.
	MaxBodySize int64

	// MaxListingPages caps each pagination walk.
	MaxListingPages int

	// Retries is the number of retries for a failed request.
	// Zero disables retrying.
	Retries int

	// RetryBaseDelay and RetryMaxDelay bound the exponential backoff.
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" form.
	ProxyAddress string

	// DBDir is the directory holding the run history database.
	DBDir string

	// SaveToDB enables run history recording.
	SaveToDB bool

	// Verbose enables debug logging.
	Verbose bool

	// LogJSON switches the log output to JSON.
	LogJSON bool

	// ConfigFilePath is an explicit path to the YAML config file.
	// If empty, .rpdarchive is searched in the current directory and then
	// in the user's home directory.
	ConfigFilePath string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		BaseURL:         DefaultBaseURL,
		OutDir:          DefaultOutDir,
		SiteDataDir:     DefaultSiteDataDir,
		Delay:           DefaultDelay,
		Timeout:         DefaultTimeout,
		UserAgent:       DefaultUserAgent,
		MaxBodySize:     DefaultMaxBodySize,
		MaxListingPages: DefaultMaxListingPages,
		Retries:         DefaultRetries,
		RetryBaseDelay:  DefaultRetryBaseDelay,
		RetryMaxDelay:   DefaultRetryMaxDelay,
		DBDir:           XDGDataDir(),
		SaveToDB:        true,
	}
}

// XDGDataDir returns the XDG data directory for rpdarchive.
// On Linux: ~/.local/share/rpdarchive
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// RPDDir is the directory holding the JSON artifacts.
func (c *Config) RPDDir() string {
	return filepath.Join(c.OutDir, "rpd")
}

// SiteDir is the root of the offline clone.
func (c *Config) SiteDir() string {
	return filepath.Join(c.OutDir, "site")
}

// ImageDir is the directory receiving downloaded card images.
func (c *Config) ImageDir() string {
	return filepath.Join(c.OutDir, "pepes")
}

// ParsedBaseURL returns BaseURL as a *url.URL. Call Validate first.
func (c *Config) ParsedBaseURL() (*url.URL, error) {
	return url.Parse(c.BaseURL)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as a sentinel error.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrInvalidBaseURL
	}

	if c.OutDir == "" {
		return ErrNoOutDir
	}

	if c.Delay < 0 {
		return ErrInvalidDelay
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Retries < 0 {
		return ErrInvalidRetries
	}

	if c.MaxListingPages <= 0 {
		return ErrInvalidMaxListingPages
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	return nil
}

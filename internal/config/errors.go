package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrInvalidBaseURL is returned when the base URL is not an absolute http(s) URL.
	ErrInvalidBaseURL = errors.New("invalid base URL: must be an absolute http or https URL")

	// ErrNoOutDir is returned when the output directory is empty.
	ErrNoOutDir = errors.New("no output directory specified")

	// ErrInvalidDelay is returned when the request delay is negative.
	// Use 0 for no pause between requests.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidRetries is returned when the retry count is negative.
	ErrInvalidRetries = errors.New("invalid retries: must be non-negative")

	// ErrInvalidMaxListingPages is returned when the listing page ceiling is not positive.
	ErrInvalidMaxListingPages = errors.New("invalid max listing pages: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")
)

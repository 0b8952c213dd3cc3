package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and Config.ValidateTargets()
// so callers can use errors.Is() to react to a specific problem.
var (
	// ErrNoTarget is returned when the detect command receives no image files.
	ErrNoTarget = errors.New("no target specified: provide one or more image files")

	// ErrInvalidTimeout is returned when the vendor request timeout is not positive.
	// A timeout of zero would abort every vendor call immediately.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidThreshold is returned when the manipulated-model threshold is negative.
	ErrInvalidThreshold = errors.New("invalid manipulated model threshold: must be non-negative")

	// ErrInvalidScoreThreshold is returned when the deepfake score threshold
	// is outside the closed interval [0, 1].
	ErrInvalidScoreThreshold = errors.New("invalid deepfake score threshold: must be between 0 and 1")

	// ErrInvalidMaxImageSize is returned when the image size limit is not positive.
	ErrInvalidMaxImageSize = errors.New("invalid max image size: must be positive")

	// ErrInvalidCacheTTL is returned when the cache TTL is negative.
	// Use 0 to disable the verdict cache.
	ErrInvalidCacheTTL = errors.New("invalid cache TTL: must be non-negative")

	// ErrUnknownProvider is returned when a provider name is not recognized.
	ErrUnknownProvider = errors.New("unknown provider: expected realitydefender, sightengine or all")

	// ErrInvalidEgressProxy is returned when the egress proxy URL cannot be
	// parsed or uses an unsupported scheme.
	ErrInvalidEgressProxy = errors.New("invalid egress proxy: expected socks5://, http:// or https:// URL")
)

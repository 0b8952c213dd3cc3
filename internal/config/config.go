package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultListenAddress is the address the HTTP server binds to.
	DefaultListenAddress = ":8080"

	// DefaultTimeout bounds a single vendor call. Sightengine documents
	// synchronous deepfake checks finishing well under 30 seconds, and Reality
	// Defender's synchronous mode answers in the same range.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxImageSize limits the decoded image size accepted from callers.
	DefaultMaxImageSize = 10 * 1024 * 1024 // 10MB

	// DefaultManipulatedThreshold is the number of per-model MANIPULATED votes
	// that must be exceeded before the overall verdict becomes FAKE.
	DefaultManipulatedThreshold = 2

	// DefaultDeepfakeScoreThreshold is the probability at or above which a
	// bare deepfake score (no vendor status) is treated as FAKE.
	DefaultDeepfakeScoreThreshold = 0.5

	// DefaultBatchSize is the number of files analyzed concurrently by the CLI.
	DefaultBatchSize = 4

	// DefaultCacheTTL is how long a stored verdict is reused for an identical
	// image before the vendor is asked again.
	DefaultCacheTTL = 24 * time.Hour

	// DefaultGeminiModel is the model used to describe images.
	DefaultGeminiModel = "gemini-2.0-flash"

	// DefaultAllowedOrigin is the CORS origin allowed by the HTTP server.
	DefaultAllowedOrigin = "*"

	// DefaultUserAgent identifies deepscan in vendor requests.
	DefaultUserAgent = "deepscan/1.0 (+https://github.com/nao1215/deepscan)"

	// AppName is the application name used for XDG directory paths.
	AppName = "deepscan"
)

// Provider selection values accepted by the detect command.
const (
	ProviderRealityDefender = "realitydefender"
	ProviderSightengine     = "sightengine"
	ProviderAll             = "all"
)

// Config holds all configuration options for deepscan.
// It is populated from defaults, the YAML config file, the environment and
// CLI flags, in that order, and passed down explicitly.
type Config struct {
	// ListenAddress is the HTTP server address in "host:port" form.
	ListenAddress string

	// AllowedOrigin is returned in Access-Control-Allow-Origin.
	AllowedOrigin string

	// Timeout bounds each outbound vendor request.
	Timeout time.Duration

	// MaxImageSize is the largest decoded image accepted, in bytes.
	MaxImageSize int64

	// StrictImages rejects payloads that are neither declared nor sniffed
	// as an image.
	StrictImages bool

	// ManipulatedThreshold: more than this many MANIPULATED models means FAKE.
	ManipulatedThreshold int

	// DeepfakeScoreThreshold applies when a vendor only reports a probability.
	DeepfakeScoreThreshold float64

	// Verbose enables debug logging.
	Verbose bool

	// LogJSON switches the log handler to JSON output.
	LogJSON bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, .deepscan is searched in the current and home directory.
	ConfigFilePath string

	// Providers holds vendor credentials and endpoints.
	Providers Providers

	// EgressProxy routes vendor traffic through a proxy.
	// Supported schemes are socks5, http and https. Empty means direct.
	EgressProxy string

	// UserAgent is sent with every vendor request.
	UserAgent string

	// DBDir is the directory holding the SQLite history database.
	DBDir string

	// SaveToDB stores analyses in the history database.
	SaveToDB bool

	// CacheTTL reuses a stored verdict for the same image and provider when
	// it is younger than this. Zero disables the cache.
	CacheTTL time.Duration

	// Describe asks Gemini for a one-paragraph description of each image.
	Describe bool

	// Provider selects which vendor the detect command calls.
	Provider string

	// BatchSize is the number of files analyzed concurrently.
	BatchSize int

	// JSONReport selects JSON output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown output. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile writes the report to a file instead of stdout.
	ReportFile string

	// Targets is the list of image files passed to the detect command.
	Targets []string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		ListenAddress:          DefaultListenAddress,
		AllowedOrigin:          DefaultAllowedOrigin,
		Timeout:                DefaultTimeout,
		MaxImageSize:           DefaultMaxImageSize,
		ManipulatedThreshold:   DefaultManipulatedThreshold,
		DeepfakeScoreThreshold: DefaultDeepfakeScoreThreshold,
		UserAgent:              DefaultUserAgent,
		CacheTTL:               DefaultCacheTTL,
		Provider:               ProviderAll,
		BatchSize:              DefaultBatchSize,
		DBDir:                  XDGDataDir(),
		SaveToDB:               true,
		Providers: Providers{
			Gemini: GeminiConfig{Model: DefaultGeminiModel},
		},
	}
}

// XDGDataDir returns the XDG data directory for deepscan.
// On Linux: ~/.local/share/deepscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for deepscan.
// On Linux: ~/.config/deepscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the settings shared by every command.
// It returns the first problem found.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxImageSize <= 0 {
		return ErrInvalidMaxImageSize
	}
	if c.ManipulatedThreshold < 0 {
		return ErrInvalidThreshold
	}
	if c.DeepfakeScoreThreshold < 0 || c.DeepfakeScoreThreshold > 1 {
		return ErrInvalidScoreThreshold
	}
	if c.CacheTTL < 0 {
		return ErrInvalidCacheTTL
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	switch c.Provider {
	case ProviderRealityDefender, ProviderSightengine, ProviderAll:
	default:
		return ErrUnknownProvider
	}
	if c.EgressProxy != "" {
		u, err := url.Parse(c.EgressProxy)
		if err != nil || u.Host == "" {
			return ErrInvalidEgressProxy
		}
		switch u.Scheme {
		case "socks5", "socks5h", "http", "https":
		default:
			return ErrInvalidEgressProxy
		}
	}
	return nil
}

// ValidateTargets checks that the detect command received files to analyze,
// in addition to everything Validate checks.
func (c *Config) ValidateTargets() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	return c.Validate()
}

// ProviderNames returns the vendor names selected by Provider.
func (c *Config) ProviderNames() []string {
	switch c.Provider {
	case ProviderRealityDefender:
		return []string{ProviderRealityDefender}
	case ProviderSightengine:
		return []string{ProviderSightengine}
	default:
		return []string{ProviderRealityDefender, ProviderSightengine}
	}
}

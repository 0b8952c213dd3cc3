package config

import "time"

// RealityDefenderConfig holds Reality Defender credentials.
type RealityDefenderConfig struct {
	// APIKey is sent in the X-API-Key header.
	APIKey string `yaml:"apiKey,omitempty"`

	// BaseURL overrides https://api.realitydefender.com.
	BaseURL string `yaml:"baseURL,omitempty"`
}

// SightengineConfig holds Sightengine credentials.
type SightengineConfig struct {
	APIUser   string `yaml:"apiUser,omitempty"`
	APISecret string `yaml:"apiSecret,omitempty"`

	// BaseURL overrides https://api.sightengine.com.
	BaseURL string `yaml:"baseURL,omitempty"`
}

// GeminiConfig holds the Gemini settings used to describe images.
type GeminiConfig struct {
	APIKey string `yaml:"apiKey,omitempty"`
	Model  string `yaml:"model,omitempty"`
}

// Providers groups vendor settings.
type Providers struct {
	RealityDefender RealityDefenderConfig `yaml:"realityDefender,omitempty"`
	Sightengine     SightengineConfig     `yaml:"sightengine,omitempty"`
	Gemini          GeminiConfig          `yaml:"gemini,omitempty"`
}

// ServerSection is the "server" block of the config file.
type ServerSection struct {
	Listen        string `yaml:"listen,omitempty"`
	AllowedOrigin string `yaml:"allowedOrigin,omitempty"`
}

// DetectionSection is the "detection" block of the config file.
// Pointer fields distinguish "unset" from an explicit zero.
type DetectionSection struct {
	ManipulatedThreshold   *int           `yaml:"manipulatedThreshold,omitempty"`
	DeepfakeScoreThreshold *float64       `yaml:"deepfakeScoreThreshold,omitempty"`
	Timeout                time.Duration  `yaml:"timeout,omitempty"`
	MaxImageSize           int64          `yaml:"maxImageSize,omitempty"`
	StrictImages           *bool          `yaml:"strictImages,omitempty"`
	CacheTTL               *time.Duration `yaml:"cacheTTL,omitempty"`
}

// File represents the structure of the .deepscan configuration file.
type File struct {
	Server      ServerSection    `yaml:"server,omitempty"`
	Providers   Providers        `yaml:"providers,omitempty"`
	Detection   DetectionSection `yaml:"detection,omitempty"`
	EgressProxy string           `yaml:"egressProxy,omitempty"`
}

// Apply copies every value set in the file onto c.
// Unset values keep whatever c already holds.
func (f *File) Apply(c *Config) {
	if f.Server.Listen != "" {
		c.ListenAddress = f.Server.Listen
	}
	if f.Server.AllowedOrigin != "" {
		c.AllowedOrigin = f.Server.AllowedOrigin
	}

	rd := f.Providers.RealityDefender
	if rd.APIKey != "" {
		c.Providers.RealityDefender.APIKey = rd.APIKey
	}
	if rd.BaseURL != "" {
		c.Providers.RealityDefender.BaseURL = rd.BaseURL
	}

	se := f.Providers.Sightengine
	if se.APIUser != "" {
		c.Providers.Sightengine.APIUser = se.APIUser
	}
	if se.APISecret != "" {
		c.Providers.Sightengine.APISecret = se.APISecret
	}
	if se.BaseURL != "" {
		c.Providers.Sightengine.BaseURL = se.BaseURL
	}

	if f.Providers.Gemini.APIKey != "" {
		c.Providers.Gemini.APIKey = f.Providers.Gemini.APIKey
	}
	if f.Providers.Gemini.Model != "" {
		c.Providers.Gemini.Model = f.Providers.Gemini.Model
	}

	d := f.Detection
	if d.ManipulatedThreshold != nil {
		c.ManipulatedThreshold = *d.ManipulatedThreshold
	}
	if d.DeepfakeScoreThreshold != nil {
		c.DeepfakeScoreThreshold = *d.DeepfakeScoreThreshold
	}
	if d.Timeout != 0 {
		c.Timeout = d.Timeout
	}
	if d.MaxImageSize != 0 {
		c.MaxImageSize = d.MaxImageSize
	}
	if d.StrictImages != nil {
		c.StrictImages = *d.StrictImages
	}
	if d.CacheTTL != nil {
		c.CacheTTL = *d.CacheTTL
	}

	if f.EgressProxy != "" {
		c.EgressProxy = f.EgressProxy
	}
}

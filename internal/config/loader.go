package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".deepscan"

// Environment variables read by ApplyEnv. The names match the ones the
// vendors document for their own SDKs.
const (
	EnvRealityDefenderAPIKey = "REALITY_DEFENDER_API_KEY"
	EnvSightengineAPIUser    = "SIGHTENGINE_API_USER"
	EnvSightengineAPISecret  = "SIGHTENGINE_API_SECRET"
	EnvGeminiAPIKey          = "GEMINI_API_KEY"
	EnvGoogleAPIKey          = "GOOGLE_API_KEY"
	EnvPort                  = "PORT"
	EnvEgressProxy           = "DEEPSCAN_EGRESS_PROXY"
	EnvDataDir               = "DEEPSCAN_DATA_DIR"
)

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

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
// 2. Look for .deepscan in the current directory
// 3. Look for .deepscan in the user's home directory
// 4. Look for config.yaml in the XDG config directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	candidates := make([]string, 0, 3)
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), "config.yaml"))

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

// ApplyEnv overlays environment variables onto c.
// lookup is os.LookupEnv in production and a map in tests.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	get := func(key string) string {
		v, ok := lookup(key)
		if !ok {
			return ""
		}
		return v
	}

	if v := get(EnvRealityDefenderAPIKey); v != "" {
		c.Providers.RealityDefender.APIKey = v
	}
	if v := get(EnvSightengineAPIUser); v != "" {
		c.Providers.Sightengine.APIUser = v
	}
	if v := get(EnvSightengineAPISecret); v != "" {
		c.Providers.Sightengine.APISecret = v
	}
	// GEMINI_API_KEY wins over GOOGLE_API_KEY, as in the genai SDK.
	if v := get(EnvGeminiAPIKey); v != "" {
		c.Providers.Gemini.APIKey = v
	} else if v := get(EnvGoogleAPIKey); v != "" {
		c.Providers.Gemini.APIKey = v
	}
	if v := get(EnvPort); v != "" {
		c.ListenAddress = ":" + v
	}
	if v := get(EnvEgressProxy); v != "" {
		c.EgressProxy = v
	}
	if v := get(EnvDataDir); v != "" {
		c.DBDir = v
	}
}

// Load builds a Config from defaults, the config file and the environment.
// An explicitly given configPath that does not exist is an error; a missing
// default file is not.
func Load(configPath string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := NewConfig()
	cfg.ConfigFilePath = configPath

	path := FindConfigFile(configPath)
	switch {
	case path != "":
		cf, err := LoadConfigFile(path)
		if err != nil {
			return nil, err
		}
		cf.Apply(cfg)
	case configPath != "":
		return nil, ErrConfigNotFound
	}

	if lookup != nil {
		cfg.ApplyEnv(lookup)
	}
	return cfg, nil
}

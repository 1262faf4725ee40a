// ABOUTME: Configuration management for fitfeed with YAML config loading.
// ABOUTME: Handles API credentials, cache policy, feed paging, and ~ expansion.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the config file omits a value.
const (
	DefaultPageSize     = 20
	DefaultCacheMaxAgeH = 24
)

// Config stores fitfeed configuration loaded from ~/.config/fitfeed/config.yaml.
type Config struct {
	API   APIConfig   `yaml:"api"`
	Cache CacheConfig `yaml:"cache"`
	Feed  FeedConfig  `yaml:"feed"`
}

// APIConfig holds the feed API endpoint and bearer token.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
}

// CacheConfig holds image cache overrides.
type CacheConfig struct {
	Dir       string `yaml:"dir"`
	MaxAgeHrs int    `yaml:"max_age_hours"`
}

// FeedConfig holds feed paging overrides.
type FeedConfig struct {
	PageSize int `yaml:"page_size"`
}

// HasAPI returns true if the feed API endpoint is configured.
func (c *Config) HasAPI() bool {
	return c.API.BaseURL != ""
}

// GetToken returns the bearer token, preferring the FITFEED_TOKEN environment
// variable over the stored value. The auth provider owns token issuance; this
// is only the hand-off point.
func (c *Config) GetToken() string {
	if tok := os.Getenv("FITFEED_TOKEN"); tok != "" {
		return tok
	}
	return c.API.Token
}

// GetPageSize returns the configured feed page size, defaulting to 20.
func (c *Config) GetPageSize() int {
	if c.Feed.PageSize > 0 {
		return c.Feed.PageSize
	}
	return DefaultPageSize
}

// GetCacheMaxAgeHours returns the image cache TTL in hours, defaulting to 24.
func (c *Config) GetCacheMaxAgeHours() int {
	if c.Cache.MaxAgeHrs > 0 {
		return c.Cache.MaxAgeHrs
	}
	return DefaultCacheMaxAgeH
}

// GetCacheDir returns the image cache directory, defaulting to
// $XDG_CACHE_HOME/fitfeed/image-cache.
func (c *Config) GetCacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return ExpandPath(c.Cache.Dir)
	}
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		cacheDir = filepath.Join(home, ".cache")
	}
	return filepath.Join(cacheDir, "fitfeed", "image-cache"), nil
}

// GetDataDir returns the local data directory (cart state lives here).
func GetDataDir() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "fitfeed"), nil
}

// GetConfigPath returns the config file path.
func GetConfigPath() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "fitfeed", "config.yaml"), nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return home, nil
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

// Load reads config from disk. Returns default config if file doesn't exist.
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Package config handles NLWeb configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	apperrors "github.com/reynard/nlweb/internal/errors"
	"github.com/reynard/nlweb/internal/logging"
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		NLWeb: NLWebConfig{
			Enabled:                      true,
			BaseURL:                      "http://localhost:8000",
			CacheTTLSeconds:              10,
			CacheMaxEntries:              1000,
			RateLimitWindowSeconds:       60,
			RateLimitMaxRequests:         100,
			RollbackEnabled:              false,
			CanaryEnabled:                false,
			CanaryPercentage:             0,
			PerformanceMonitoringEnabled: true,
		},
		Logging: logging.DefaultConfig(),
		Server: ServerConfig{
			Name:    "nlweb",
			Version: "0.1.0",
		},
	}
}

// Load loads the configuration from the given path.
// If the file doesn't exist, returns defaults.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, apperrors.Wrap(err, apperrors.CodeConfigLoad, "failed to read config", apperrors.CategorySystem).
			WithContext("path", configPath)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeConfigLoad, "failed to parse config", apperrors.CategorySystem).
			WithContext("path", configPath)
	}

	cfg.Catalog.Files = expandPaths(cfg.Catalog.Files)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves the configuration to the given path.
func (c *Config) Save(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return saveErr(err, configPath)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return saveErr(err, configPath)
	}
	defer file.Close()

	if err := toml.NewEncoder(file).Encode(c); err != nil {
		return saveErr(err, configPath)
	}
	return nil
}

func saveErr(err error, path string) error {
	return apperrors.Wrap(err, apperrors.CodeConfigSave, "failed to save config", apperrors.CategorySystem).
		WithContext("path", path)
}

// Validate checks value ranges of the NLWeb section and the classifier
// patterns.
func (c *Config) Validate() error {
	if err := c.NLWeb.Validate(); err != nil {
		return err
	}
	return c.Classifier.Validate()
}

// Validate checks that every group is named and its patterns compile.
func (c ClassifierConfig) Validate() error {
	for i, g := range c.Groups {
		if strings.TrimSpace(g.Name) == "" {
			return invalid("classifier group %d has no name", i)
		}
		if len(g.Patterns) == 0 {
			return invalid("classifier group %q has no patterns", g.Name)
		}
		for _, p := range g.Patterns {
			if _, err := regexp.Compile("(?i)" + p); err != nil {
				return apperrors.Wrap(err, apperrors.CodeConfigInvalid, "invalid classifier pattern", apperrors.CategoryUser).
					WithContext("group", g.Name).
					WithContext("pattern", p)
			}
		}
	}
	return nil
}

// Validate checks value ranges.
func (n NLWebConfig) Validate() error {
	switch {
	case n.CacheTTLSeconds <= 0:
		return invalid("cache_ttl_s must be positive, got %v", n.CacheTTLSeconds)
	case n.CacheMaxEntries <= 0:
		return invalid("cache_max_entries must be positive, got %d", n.CacheMaxEntries)
	case n.RateLimitWindowSeconds < 0:
		return invalid("rate_limit_window_s must not be negative, got %v", n.RateLimitWindowSeconds)
	case n.RateLimitMaxRequests < 0:
		return invalid("rate_limit_max_requests must not be negative, got %d", n.RateLimitMaxRequests)
	case n.CanaryPercentage < 0 || n.CanaryPercentage > 100:
		return invalid("canary_percentage must be within 0-100, got %v", n.CanaryPercentage)
	}
	return nil
}

// CacheTTL returns the cache TTL as a duration.
func (n NLWebConfig) CacheTTL() time.Duration {
	return time.Duration(n.CacheTTLSeconds * float64(time.Second))
}

// DefaultPath returns ~/.nlweb/config.toml.
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".nlweb", "config.toml")
}

func invalid(format string, args ...any) error {
	return apperrors.Userf(apperrors.CodeConfigInvalid, format, args...)
}

// expandPaths expands a leading ~ and environment variables.
func expandPaths(paths []string) []string {
	homeDir, _ := os.UserHomeDir()

	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = os.ExpandEnv(p)
		if strings.HasPrefix(p, "~") {
			p = filepath.Join(homeDir, p[1:])
		}
		out = append(out, p)
	}
	return out
}

// String renders the NLWeb section for logs.
func (n NLWebConfig) String() string {
	return fmt.Sprintf("enabled=%t rollback=%t cache_ttl_s=%v cache_max_entries=%d",
		n.Enabled, n.RollbackEnabled, n.CacheTTLSeconds, n.CacheMaxEntries)
}

// Package config provides configuration types for NLWeb.
package config

import "github.com/reynard/nlweb/internal/logging"

// Config represents the main NLWeb configuration file.
type Config struct {
	NLWeb      NLWebConfig      `toml:"nlweb"`
	Logging    logging.Config   `toml:"logging"`
	Catalog    CatalogConfig    `toml:"catalog"`
	Classifier ClassifierConfig `toml:"classifier"`
	Server     ServerConfig     `toml:"server"`
}

// NLWebConfig contains the options recognised by the suggestion service.
type NLWebConfig struct {
	Enabled                      bool    `toml:"enabled" json:"enabled"`
	BaseURL                      string  `toml:"base_url" json:"base_url"`
	CacheTTLSeconds              float64 `toml:"cache_ttl_s" json:"cache_ttl_s"`
	CacheMaxEntries              int     `toml:"cache_max_entries" json:"cache_max_entries"`
	RateLimitWindowSeconds       float64 `toml:"rate_limit_window_s" json:"rate_limit_window_s"`
	RateLimitMaxRequests         int     `toml:"rate_limit_max_requests" json:"rate_limit_max_requests"`
	RollbackEnabled              bool    `toml:"rollback_enabled" json:"rollback_enabled"`
	CanaryEnabled                bool    `toml:"canary_enabled" json:"canary_enabled"`
	CanaryPercentage             float64 `toml:"canary_percentage" json:"canary_percentage"`
	PerformanceMonitoringEnabled bool    `toml:"performance_monitoring_enabled" json:"performance_monitoring_enabled"`
}

// CatalogConfig lists extra tool catalogs loaded at startup. With Watch set,
// serve reloads a catalog file whenever it changes.
type CatalogConfig struct {
	Files            []string `toml:"files"`
	SkipBuiltinTools bool     `toml:"skip_builtin_tools"`
	Watch            bool     `toml:"watch"`
}

// ClassifierConfig adds query pattern groups to the built-in git, file,
// caption and search groups. A group reusing a built-in name replaces it.
type ClassifierConfig struct {
	Groups []PatternGroupConfig `toml:"groups"`
}

// PatternGroupConfig is one [[classifier.groups]] entry. Patterns are
// case-insensitive regular expressions; a non-positive weight means 1.0.
type PatternGroupConfig struct {
	Name     string   `toml:"name"`
	Weight   float64  `toml:"weight"`
	Patterns []string `toml:"patterns"`
}

// ServerConfig contains MCP server identity settings.
type ServerConfig struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

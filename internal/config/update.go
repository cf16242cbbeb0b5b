package config

import (
	"fmt"
	"sort"

	apperrors "github.com/reynard/nlweb/internal/errors"
)

// Update is a typed partial change to NLWebConfig. Nil fields are left alone.
type Update struct {
	Enabled                      *bool
	BaseURL                      *string
	CacheTTLSeconds              *float64
	CacheMaxEntries              *int
	RateLimitWindowSeconds       *float64
	RateLimitMaxRequests         *int
	RollbackEnabled              *bool
	CanaryEnabled                *bool
	CanaryPercentage             *float64
	PerformanceMonitoringEnabled *bool
}

// updateField binds one recognised key to its setter.
type updateField struct {
	kind  string
	apply func(u *Update, v any)
}

var updateFields = map[string]updateField{
	"enabled":                        {"bool", func(u *Update, v any) { b := v.(bool); u.Enabled = &b }},
	"base_url":                       {"string", func(u *Update, v any) { s := v.(string); u.BaseURL = &s }},
	"cache_ttl_s":                    {"number", func(u *Update, v any) { f := v.(float64); u.CacheTTLSeconds = &f }},
	"cache_max_entries":              {"int", func(u *Update, v any) { i := v.(int); u.CacheMaxEntries = &i }},
	"rate_limit_window_s":            {"number", func(u *Update, v any) { f := v.(float64); u.RateLimitWindowSeconds = &f }},
	"rate_limit_max_requests":        {"int", func(u *Update, v any) { i := v.(int); u.RateLimitMaxRequests = &i }},
	"rollback_enabled":               {"bool", func(u *Update, v any) { b := v.(bool); u.RollbackEnabled = &b }},
	"canary_enabled":                 {"bool", func(u *Update, v any) { b := v.(bool); u.CanaryEnabled = &b }},
	"canary_percentage":              {"number", func(u *Update, v any) { f := v.(float64); u.CanaryPercentage = &f }},
	"performance_monitoring_enabled": {"bool", func(u *Update, v any) { b := v.(bool); u.PerformanceMonitoringEnabled = &b }},
}

// Keys returns the recognised update keys, sorted.
func Keys() []string {
	keys := make([]string, 0, len(updateFields))
	for k := range updateFields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ParseUpdate converts a loosely typed map (decoded JSON) into an Update.
// Unknown keys and values of the wrong type are rejected.
func ParseUpdate(raw map[string]any) (Update, error) {
	var u Update
	for key, value := range raw {
		field, ok := updateFields[key]
		if !ok {
			return Update{}, apperrors.Userf(apperrors.CodeUnknownConfigKey, "unknown configuration key %q", key).
				WithContext("known_keys", Keys())
		}
		v, err := coerce(field.kind, value)
		if err != nil {
			return Update{}, apperrors.Userf(apperrors.CodeConfigInvalid, "%s: %v", key, err)
		}
		field.apply(&u, v)
	}
	return u, nil
}

func coerce(kind string, value any) (any, error) {
	switch kind {
	case "bool":
		if b, ok := value.(bool); ok {
			return b, nil
		}
	case "string":
		if s, ok := value.(string); ok {
			return s, nil
		}
	case "number":
		switch n := value.(type) {
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		}
	case "int":
		switch n := value.(type) {
		case int:
			return n, nil
		case int64:
			return int(n), nil
		case float64:
			if n == float64(int(n)) {
				return int(n), nil
			}
		}
	}
	return nil, fmt.Errorf("expected %s, got %T", kind, value)
}

// IsEmpty reports whether the update changes nothing.
func (u Update) IsEmpty() bool {
	return u == Update{}
}

// TouchesCache reports whether the update changes cache settings.
func (u Update) TouchesCache() bool {
	return u.CacheTTLSeconds != nil || u.CacheMaxEntries != nil
}

// ApplyTo returns cfg with the update applied, or an error if the result is
// invalid. cfg itself is never modified.
func (u Update) ApplyTo(cfg NLWebConfig) (NLWebConfig, error) {
	next := cfg
	if u.Enabled != nil {
		next.Enabled = *u.Enabled
	}
	if u.BaseURL != nil {
		next.BaseURL = *u.BaseURL
	}
	if u.CacheTTLSeconds != nil {
		next.CacheTTLSeconds = *u.CacheTTLSeconds
	}
	if u.CacheMaxEntries != nil {
		next.CacheMaxEntries = *u.CacheMaxEntries
	}
	if u.RateLimitWindowSeconds != nil {
		next.RateLimitWindowSeconds = *u.RateLimitWindowSeconds
	}
	if u.RateLimitMaxRequests != nil {
		next.RateLimitMaxRequests = *u.RateLimitMaxRequests
	}
	if u.RollbackEnabled != nil {
		next.RollbackEnabled = *u.RollbackEnabled
	}
	if u.CanaryEnabled != nil {
		next.CanaryEnabled = *u.CanaryEnabled
	}
	if u.CanaryPercentage != nil {
		next.CanaryPercentage = *u.CanaryPercentage
	}
	if u.PerformanceMonitoringEnabled != nil {
		next.PerformanceMonitoringEnabled = *u.PerformanceMonitoringEnabled
	}

	if err := next.Validate(); err != nil {
		return cfg, err
	}
	return next, nil
}

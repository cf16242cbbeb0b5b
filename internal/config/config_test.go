package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/reynard/nlweb/internal/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.True(t, cfg.NLWeb.Enabled)
	assert.False(t, cfg.NLWeb.RollbackEnabled)
	assert.Equal(t, 1000, cfg.NLWeb.CacheMaxEntries)
	assert.Equal(t, 10*time.Second, cfg.NLWeb.CacheTTL())
	assert.Equal(t, "info", cfg.Logging.Level)
	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[nlweb]
rollback_enabled = true
cache_ttl_s = 30.0
cache_max_entries = 5

[logging]
level = "debug"
format = "console"

[catalog]
files = ["$NLWEB_TEST_DIR/tools.yaml"]
watch = true
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	t.Setenv("NLWEB_TEST_DIR", "/srv/nlweb")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.NLWeb.Enabled, "untouched keys keep defaults")
	assert.True(t, cfg.NLWeb.RollbackEnabled)
	assert.Equal(t, 5, cfg.NLWeb.CacheMaxEntries)
	assert.Equal(t, 30*time.Second, cfg.NLWeb.CacheTTL())
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []string{"/srv/nlweb/tools.yaml"}, cfg.Catalog.Files)
	assert.True(t, cfg.Catalog.Watch)
}

func TestLoad_InvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[nlweb]\ncache_max_entries = 0\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConfigInvalid, apperrors.GetCode(err))
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[nlweb\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConfigLoad, apperrors.GetCode(err))
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.NLWeb.CanaryEnabled = true
	cfg.NLWeb.CanaryPercentage = 10

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, loaded.NLWeb.CanaryEnabled)
	assert.Equal(t, 10.0, loaded.NLWeb.CanaryPercentage)
}

func TestSave_Unwritable(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	err := Default().Save(filepath.Join(blocker, "config.toml"))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConfigSave, apperrors.GetCode(err))
	assert.True(t, apperrors.IsCategory(err, apperrors.CategorySystem))
}

func TestLoad_ClassifierGroups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[[classifier.groups]]
name = "docker"
weight = 1.5
patterns = ['\b(container|docker)\b']
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Classifier.Groups, 1)
	assert.Equal(t, PatternGroupConfig{Name: "docker", Weight: 1.5, Patterns: []string{`\b(container|docker)\b`}}, cfg.Classifier.Groups[0])
}

func TestClassifierConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		groups []PatternGroupConfig
		ok     bool
	}{
		{name: "none", ok: true},
		{name: "valid", groups: []PatternGroupConfig{{Name: "docker", Patterns: []string{`\bdocker\b`}}}, ok: true},
		{name: "missing name", groups: []PatternGroupConfig{{Patterns: []string{"x"}}}},
		{name: "no patterns", groups: []PatternGroupConfig{{Name: "docker"}}},
		{name: "bad regex", groups: []PatternGroupConfig{{Name: "docker", Patterns: []string{"(unclosed"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Classifier.Groups = tt.groups
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, apperrors.CodeConfigInvalid, apperrors.GetCode(err))
		})
	}
}

func TestParseUpdate(t *testing.T) {
	tests := []struct {
		name  string
		raw   map[string]any
		code  string
		check func(t *testing.T, u Update)
	}{
		{
			name: "typed values",
			raw: map[string]any{
				"enabled":           false,
				"cache_ttl_s":       60,
				"cache_max_entries": float64(10),
				"base_url":          "http://nlweb:9000",
			},
			check: func(t *testing.T, u Update) {
				require.NotNil(t, u.Enabled)
				assert.False(t, *u.Enabled)
				assert.Equal(t, 60.0, *u.CacheTTLSeconds)
				assert.Equal(t, 10, *u.CacheMaxEntries)
				assert.Equal(t, "http://nlweb:9000", *u.BaseURL)
				assert.Nil(t, u.RollbackEnabled)
				assert.True(t, u.TouchesCache())
			},
		},
		{
			name: "empty",
			raw:  map[string]any{},
			check: func(t *testing.T, u Update) {
				assert.True(t, u.IsEmpty())
			},
		},
		{
			name: "unknown key",
			raw:  map[string]any{"cache_size": 10},
			code: apperrors.CodeUnknownConfigKey,
		},
		{
			name: "wrong type",
			raw:  map[string]any{"enabled": "yes"},
			code: apperrors.CodeConfigInvalid,
		},
		{
			name: "fractional int",
			raw:  map[string]any{"cache_max_entries": 2.5},
			code: apperrors.CodeConfigInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := ParseUpdate(tt.raw)
			if tt.code != "" {
				require.Error(t, err)
				assert.Equal(t, tt.code, apperrors.GetCode(err))
				assert.True(t, apperrors.IsCategory(err, apperrors.CategoryUser))
				return
			}
			require.NoError(t, err)
			tt.check(t, u)
		})
	}
}

func TestUpdateApplyTo(t *testing.T) {
	base := Default().NLWeb

	rollback := true
	next, err := Update{RollbackEnabled: &rollback}.ApplyTo(base)
	require.NoError(t, err)
	assert.True(t, next.RollbackEnabled)
	assert.False(t, base.RollbackEnabled, "input is not modified")

	badMax := -1
	kept, err := Update{CacheMaxEntries: &badMax}.ApplyTo(base)
	require.Error(t, err)
	assert.Equal(t, base, kept)
}

func TestKeys(t *testing.T) {
	keys := Keys()
	assert.Len(t, keys, 10)
	assert.Contains(t, keys, "performance_monitoring_enabled")
	assert.IsNonDecreasing(t, keys)
}

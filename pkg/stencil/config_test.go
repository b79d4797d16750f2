package stencil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, 100, config.CacheMaxSize)
	assert.Zero(t, config.CacheTTL)
	assert.Equal(t, "info", config.LogLevel)
	assert.Equal(t, 100, config.MaxRenderDepth)
	assert.False(t, config.StrictMode)
	assert.Equal(t, "pongo2", config.Engine)
	assert.True(t, config.Autoescape)
	assert.True(t, config.NormalizeQuotes)
	assert.Positive(t, config.Parallelism)
	require.NoError(t, config.Validate())
}

func TestConfigFromEnvironment(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		check   func(t *testing.T, config *Config)
	}{
		{
			name:    "cache max size",
			envVars: map[string]string{"STENCIL_CACHE_MAX_SIZE": "50"},
			check: func(t *testing.T, config *Config) {
				assert.Equal(t, 50, config.CacheMaxSize)
			},
		},
		{
			name:    "cache TTL",
			envVars: map[string]string{"STENCIL_CACHE_TTL": "5m"},
			check: func(t *testing.T, config *Config) {
				assert.Equal(t, 5*time.Minute, config.CacheTTL)
			},
		},
		{
			name: "engine options",
			envVars: map[string]string{
				"STENCIL_ENGINE":           "jinja",
				"STENCIL_AUTOESCAPE":       "off",
				"STENCIL_TRIM_BLOCKS":      "yes",
				"STENCIL_LSTRIP_BLOCKS":    "1",
				"STENCIL_NORMALIZE_QUOTES": "false",
			},
			check: func(t *testing.T, config *Config) {
				assert.Equal(t, "jinja", config.Engine)
				assert.False(t, config.Autoescape)
				assert.True(t, config.TrimBlocks)
				assert.True(t, config.LStripBlocks)
				assert.False(t, config.NormalizeQuotes)
			},
		},
		{
			name: "media dir and parallelism",
			envVars: map[string]string{
				"STENCIL_MEDIA_DIR":   "/srv/media",
				"STENCIL_PARALLELISM": "3",
			},
			check: func(t *testing.T, config *Config) {
				assert.Equal(t, "/srv/media", config.MediaDir)
				assert.Equal(t, 3, config.Parallelism)
			},
		},
		{
			name:    "case insensitive boolean",
			envVars: map[string]string{"STENCIL_STRICT_MODE": "TRUE"},
			check: func(t *testing.T, config *Config) {
				assert.True(t, config.StrictMode)
			},
		},
		{
			name: "invalid values keep defaults",
			envVars: map[string]string{
				"STENCIL_CACHE_MAX_SIZE":   "invalid",
				"STENCIL_CACHE_TTL":        "invalid",
				"STENCIL_MAX_RENDER_DEPTH": "not-a-number",
			},
			check: func(t *testing.T, config *Config) {
				assert.Equal(t, 100, config.CacheMaxSize)
				assert.Zero(t, config.CacheTTL)
				assert.Equal(t, 100, config.MaxRenderDepth)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}
			tt.check(t, ConfigFromEnvironment())
		})
	}
}

func TestNewConfigWithDefaults(t *testing.T) {
	config := NewConfigWithDefaults(&Config{CacheMaxSize: 200, LogLevel: "debug"})

	assert.Equal(t, 200, config.CacheMaxSize)
	assert.Equal(t, "debug", config.LogLevel)
	assert.Equal(t, 100, config.MaxRenderDepth)
	assert.Equal(t, "pongo2", config.Engine)
	assert.False(t, config.StrictMode)

	assert.Equal(t, DefaultConfig(), NewConfigWithDefaults(nil))
}

func TestConfigValidation(t *testing.T) {
	valid := func(mod func(*Config)) *Config {
		c := DefaultConfig()
		mod(c)
		return c
	}
	tests := []struct {
		name   string
		config *Config
		valid  bool
	}{
		{"valid config", DefaultConfig(), true},
		{"off log level", valid(func(c *Config) { c.LogLevel = "off" }), true},
		{"jinja strict", valid(func(c *Config) { c.Engine = "jinja"; c.StrictMode = true }), true},
		{"negative cache size", valid(func(c *Config) { c.CacheMaxSize = -1 }), false},
		{"negative cache TTL", valid(func(c *Config) { c.CacheTTL = -time.Second }), false},
		{"invalid log level", valid(func(c *Config) { c.LogLevel = "invalid" }), false},
		{"zero max render depth", valid(func(c *Config) { c.MaxRenderDepth = 0 }), false},
		{"negative parallelism", valid(func(c *Config) { c.Parallelism = -2 }), false},
		{"unknown engine", valid(func(c *Config) { c.Engine = "mustache" }), false},
		{"pongo2 strict", valid(func(c *Config) { c.StrictMode = true }), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestGlobalConfig(t *testing.T) {
	original := GetGlobalConfig()
	defer SetGlobalConfig(original)

	config := DefaultConfig()
	config.CacheMaxSize = 50
	config.LogLevel = "debug"
	SetGlobalConfig(config)

	// Later changes to the caller's copy do not leak in.
	config.CacheMaxSize = 1

	got := GetGlobalConfig()
	assert.Equal(t, 50, got.CacheMaxSize)
	assert.Equal(t, "debug", got.LogLevel)
	assert.True(t, GetLogger().IsDebugMode())
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	t.Run("yaml", func(t *testing.T) {
		path := write("stencil.yaml", "engine: jinja\ncache_ttl: 90s\nstrict_mode: true\nparallelism: \"2\"\n")
		config, err := LoadConfigFile(path)
		require.NoError(t, err)
		assert.Equal(t, "jinja", config.Engine)
		assert.Equal(t, 90*time.Second, config.CacheTTL)
		assert.True(t, config.StrictMode)
		assert.Equal(t, 2, config.Parallelism)
		assert.True(t, config.Autoescape, "unset keys keep their defaults")
	})

	t.Run("toml", func(t *testing.T) {
		path := write("stencil.toml", "log_level = \"warn\"\nmedia_dir = \"images\"\nautoescape = false\n")
		config, err := LoadConfigFile(path)
		require.NoError(t, err)
		assert.Equal(t, "warn", config.LogLevel)
		assert.Equal(t, "images", config.MediaDir)
		assert.False(t, config.Autoescape)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("STENCIL_LOG_LEVEL", "error")
		path := write("env.yml", "log_level: debug\n")
		config, err := LoadConfigFile(path)
		require.NoError(t, err)
		assert.Equal(t, "error", config.LogLevel)
	})

	t.Run("unknown key", func(t *testing.T) {
		path := write("typo.yaml", "engnie: jinja\n")
		_, err := LoadConfigFile(path)
		assert.Error(t, err)
	})

	t.Run("unsupported format", func(t *testing.T) {
		path := write("stencil.ini", "engine=jinja\n")
		_, err := LoadConfigFile(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfigFile(filepath.Join(dir, "absent.yaml"))
		assert.Error(t, err)
	})
}

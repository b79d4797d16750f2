package stencil

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/benjaminschreck/go-stencil-odt/pkg/stencil/engine"
)

// Config contains all configuration options for the Stencil engine
type Config struct {
	// CacheMaxSize is the maximum number of templates to cache. 0 disables caching.
	CacheMaxSize int `mapstructure:"cache_max_size" yaml:"cache_max_size"`
	// CacheTTL is the time-to-live for cached templates. 0 means no expiration.
	CacheTTL time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
	// LogLevel controls the verbosity of logging (debug, info, warn, error, off)
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	// MaxRenderDepth limits how deeply block statements may nest.
	MaxRenderDepth int `mapstructure:"max_render_depth" yaml:"max_render_depth"`
	// StrictMode turns references to undefined variables into errors.
	StrictMode bool `mapstructure:"strict_mode" yaml:"strict_mode"`

	// Engine names the template language: "pongo2" (default) or "jinja".
	Engine string `mapstructure:"engine" yaml:"engine"`
	// Autoescape escapes <, > and & in expression output so that data
	// cannot break the document XML.
	Autoescape   bool `mapstructure:"autoescape" yaml:"autoescape"`
	TrimBlocks   bool `mapstructure:"trim_blocks" yaml:"trim_blocks"`
	LStripBlocks bool `mapstructure:"lstrip_blocks" yaml:"lstrip_blocks"`
	// NormalizeQuotes maps typographic quotes inside tags to ASCII quotes.
	NormalizeQuotes bool `mapstructure:"normalize_quotes" yaml:"normalize_quotes"`
	// MediaDir is the base directory image() resolves relative paths against.
	MediaDir string `mapstructure:"media_dir" yaml:"media_dir"`
	// Parallelism bounds concurrent renders in RenderBatch.
	Parallelism int `mapstructure:"parallelism" yaml:"parallelism"`
}

var (
	globalConfig      *Config
	globalConfigMutex sync.RWMutex
	configOnce        sync.Once
)

// loadGlobalConfig reads the environment on first use of the global
// configuration.
func loadGlobalConfig() {
	configOnce.Do(func() {
		config := ConfigFromEnvironment()
		globalConfigMutex.Lock()
		globalConfig = config
		globalConfigMutex.Unlock()
	})
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		CacheMaxSize:    100,
		CacheTTL:        0,
		LogLevel:        "info",
		MaxRenderDepth:  100,
		StrictMode:      false,
		Engine:          "pongo2",
		Autoescape:      true,
		NormalizeQuotes: true,
		Parallelism:     runtime.GOMAXPROCS(0),
	}
}

// ConfigFromEnvironment creates a configuration from environment variables
func ConfigFromEnvironment() *Config {
	return applyEnvironment(DefaultConfig())
}

// applyEnvironment overrides config with every STENCIL_* variable that is
// set and parses. Invalid values are ignored.
func applyEnvironment(config *Config) *Config {
	if val := os.Getenv("STENCIL_CACHE_MAX_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil {
			config.CacheMaxSize = size
		}
	}

	if val := os.Getenv("STENCIL_CACHE_TTL"); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			config.CacheTTL = duration
		}
	}

	if val := os.Getenv("STENCIL_LOG_LEVEL"); val != "" {
		config.LogLevel = val
	}

	if val := os.Getenv("STENCIL_MAX_RENDER_DEPTH"); val != "" {
		if depth, err := strconv.Atoi(val); err == nil {
			config.MaxRenderDepth = depth
		}
	}

	if val := os.Getenv("STENCIL_STRICT_MODE"); val != "" {
		config.StrictMode = parseBool(val)
	}

	if val := os.Getenv("STENCIL_ENGINE"); val != "" {
		config.Engine = val
	}

	if val := os.Getenv("STENCIL_AUTOESCAPE"); val != "" {
		config.Autoescape = parseBool(val)
	}

	if val := os.Getenv("STENCIL_TRIM_BLOCKS"); val != "" {
		config.TrimBlocks = parseBool(val)
	}

	if val := os.Getenv("STENCIL_LSTRIP_BLOCKS"); val != "" {
		config.LStripBlocks = parseBool(val)
	}

	if val := os.Getenv("STENCIL_NORMALIZE_QUOTES"); val != "" {
		config.NormalizeQuotes = parseBool(val)
	}

	if val := os.Getenv("STENCIL_MEDIA_DIR"); val != "" {
		config.MediaDir = val
	}

	if val := os.Getenv("STENCIL_PARALLELISM"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			config.Parallelism = n
		}
	}

	return config
}

// NewConfigWithDefaults creates a new configuration with defaults applied to
// unset numeric and string fields. Boolean fields are taken as given.
func NewConfigWithDefaults(overrides *Config) *Config {
	defaults := DefaultConfig()

	if overrides == nil {
		return defaults
	}

	config := *overrides

	if config.CacheMaxSize == 0 {
		config.CacheMaxSize = defaults.CacheMaxSize
	}

	if config.LogLevel == "" {
		config.LogLevel = defaults.LogLevel
	}

	if config.MaxRenderDepth == 0 {
		config.MaxRenderDepth = defaults.MaxRenderDepth
	}

	if config.Engine == "" {
		config.Engine = defaults.Engine
	}

	if config.Parallelism == 0 {
		config.Parallelism = defaults.Parallelism
	}

	return &config
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.CacheMaxSize < 0 {
		return errors.New("cache max size cannot be negative")
	}

	if c.CacheTTL < 0 {
		return errors.New("cache TTL cannot be negative")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"off":   true,
	}

	if !validLogLevels[c.LogLevel] {
		return errors.New("invalid log level: " + c.LogLevel)
	}

	if c.MaxRenderDepth <= 0 {
		return errors.New("max render depth must be positive")
	}

	if c.Parallelism < 0 {
		return errors.New("parallelism cannot be negative")
	}

	if _, err := c.newEngine(); err != nil {
		return err
	}

	return nil
}

// EngineOptions translates the configuration into evaluation options.
func (c *Config) EngineOptions() engine.Options {
	opts := engine.Options{
		Autoescape:   c.Autoescape,
		TrimBlocks:   c.TrimBlocks,
		LStripBlocks: c.LStripBlocks,
	}
	if c.StrictMode {
		opts.Undefined = engine.Strict
	}
	return opts
}

func (c *Config) newEngine() (engine.Engine, error) {
	e, err := engine.New(c.Engine, c.EngineOptions())
	if err != nil {
		return nil, fmt.Errorf("invalid engine configuration: %w", err)
	}
	return e, nil
}

// GetGlobalConfig returns the global configuration
func GetGlobalConfig() *Config {
	loadGlobalConfig()
	globalConfigMutex.RLock()
	defer globalConfigMutex.RUnlock()

	if globalConfig == nil {
		return DefaultConfig()
	}

	// Return a copy to prevent modification
	configCopy := *globalConfig
	return &configCopy
}

// SetGlobalConfig sets the global configuration
func SetGlobalConfig(config *Config) {
	loadGlobalConfig()
	globalConfigMutex.Lock()
	if config != nil {
		configCopy := *config
		config = &configCopy
	}
	globalConfig = config
	globalConfigMutex.Unlock()

	// Update logger based on new config (outside the lock to avoid deadlock)
	UpdateLoggerFromConfig()
}

// parseBool parses a boolean value from a string
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

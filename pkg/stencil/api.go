package stencil

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"sync"
	"time"
)

// Engine provides the main API for working with templates.
// Use New() to create a new engine instance.
type Engine struct {
	config   *Config
	cache    *TemplateCache
	registry FunctionRegistry
}

var (
	sharedCache     *TemplateCache
	sharedCacheOnce sync.Once
)

func defaultCache() *TemplateCache {
	sharedCacheOnce.Do(func() {
		sharedCache = NewTemplateCache()
	})
	return sharedCache
}

// New creates a new template engine with the global configuration and
// function registry.
func New() *Engine {
	return &Engine{
		config:   GetGlobalConfig(),
		cache:    defaultCache(),
		registry: GetDefaultFunctionRegistry(),
	}
}

// NewWithConfig creates a new template engine with custom configuration,
// its own cache and its own registry holding the built-in functions.
func NewWithConfig(config *Config) *Engine {
	config = NewConfigWithDefaults(config)
	registry := NewFunctionRegistry()
	registerBasicFunctions(registry)
	return &Engine{
		config: config,
		cache: NewTemplateCacheWithConfig(CacheConfig{
			MaxSize: config.CacheMaxSize,
			TTL:     config.CacheTTL,
		}),
		registry: registry,
	}
}

// PrepareFile loads and compiles a template from a file path.
// The template is cached if caching is enabled in the configuration.
func (e *Engine) PrepareFile(path string) (*PreparedTemplate, error) {
	if e.config.CacheMaxSize > 0 && e.cache != nil {
		if tmpl, ok := e.cache.Get(path); ok {
			return tmpl, nil
		}
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, NewDocumentError("open", path, err)
	}
	defer file.Close()

	tmpl, err := e.Prepare(file)
	if err != nil {
		return nil, err
	}

	if e.config.CacheMaxSize > 0 && e.cache != nil {
		e.cache.Set(path, tmpl)
	}
	return tmpl, nil
}

// Prepare loads and compiles a template from an io.Reader.
func (e *Engine) Prepare(r io.Reader) (*PreparedTemplate, error) {
	return prepare(r, e.config, e.registry)
}

// PrepareBytes compiles a template held in memory.
func (e *Engine) PrepareBytes(data []byte) (*PreparedTemplate, error) {
	return prepareBytes(data, e.config, e.registry)
}

var functionName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// renderFunctions are bound to each render and cannot be replaced.
var renderFunctions = map[string]bool{"image": true, "markdown": true, "html": true, "replaceLink": true}

// RegisterFunction adds a custom function that can be used in templates.
// The name must be a valid identifier. It may replace a built-in function
// except image, markdown, html and replaceLink.
func (e *Engine) RegisterFunction(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("function %q is nil", name)
	}
	if name == "" {
		name = fn.Name()
	}
	if !functionName.MatchString(name) {
		return fmt.Errorf("invalid function name %q", name)
	}
	if renderFunctions[name] {
		return fmt.Errorf("function %q is reserved", name)
	}
	if name != fn.Name() {
		fn = &renamedFunction{Function: fn, name: name}
	}
	return e.registry.RegisterFunction(fn)
}

type renamedFunction struct {
	Function
	name string
}

func (f *renamedFunction) Name() string {
	return f.name
}

// RegisterFunctionsFromProvider registers all functions from a provider.
// This is useful for adding a suite of related functions at once.
func (e *Engine) RegisterFunctionsFromProvider(provider FunctionProvider) error {
	for name, fn := range provider.ProvideFunctions() {
		if err := e.RegisterFunction(name, fn); err != nil {
			return fmt.Errorf("failed to register function %s: %w", name, err)
		}
	}
	return nil
}

// Config returns the engine's configuration.
func (e *Engine) Config() *Config {
	return e.config
}

// SetConfig updates the engine's configuration. Templates prepared before
// keep the configuration they were prepared with.
func (e *Engine) SetConfig(config *Config) {
	e.config = config
}

// ClearCache removes all templates from the cache.
func (e *Engine) ClearCache() {
	if e.cache != nil {
		e.cache.Clear()
	}
}

// Close releases any resources held by the engine.
func (e *Engine) Close() error {
	if e.cache != nil && e.cache != defaultCache() {
		return e.cache.Close()
	}
	return nil
}

// Option represents a configuration option for the engine.
type Option func(*Engine)

// WithConfig returns an option that sets the engine configuration.
func WithConfig(config *Config) Option {
	return func(e *Engine) {
		e.config = NewConfigWithDefaults(config)
	}
}

// WithEngine selects the template engine, "pongo2" or "jinja".
func WithEngine(name string) Option {
	return func(e *Engine) {
		e.config.Engine = name
	}
}

// WithStrictMode makes undefined variables fail the render.
func WithStrictMode(strict bool) Option {
	return func(e *Engine) {
		e.config.StrictMode = strict
	}
}

// WithMediaDir sets the directory image paths are resolved against.
func WithMediaDir(dir string) Option {
	return func(e *Engine) {
		e.config.MediaDir = dir
	}
}

// WithCache returns an option that sets the cache size (0 disables caching).
func WithCache(maxSize int) Option {
	return func(e *Engine) {
		e.config.CacheMaxSize = maxSize
	}
}

// WithFunction returns an option that registers a custom function.
func WithFunction(name string, fn Function) Option {
	return func(e *Engine) {
		if err := e.RegisterFunction(name, fn); err != nil {
			GetLogger().Warn("function %s not registered: %v", name, err)
		}
	}
}

// WithFunctionProvider returns an option that registers functions from a provider.
func WithFunctionProvider(provider FunctionProvider) Option {
	return func(e *Engine) {
		if err := e.RegisterFunctionsFromProvider(provider); err != nil {
			GetLogger().Warn("%v", err)
		}
	}
}

// NewWithOptions creates an engine from the global configuration with the
// options applied. It has its own cache and function registry.
func NewWithOptions(opts ...Option) *Engine {
	engine := NewWithConfig(GetGlobalConfig())
	for _, opt := range opts {
		opt(engine)
	}
	engine.cache = NewTemplateCacheWithConfig(CacheConfig{
		MaxSize: engine.config.CacheMaxSize,
		TTL:     engine.config.CacheTTL,
	})
	return engine
}

// DefaultEngine is the global default engine instance.
// It uses the global configuration and function registry.
var DefaultEngine = New()

// Module-level convenience functions that use the default engine.

// PrepareFile loads and compiles a template from a file path using the default engine.
func PrepareFile(path string) (*PreparedTemplate, error) {
	return DefaultEngine.PrepareFile(path)
}

// Prepare loads and compiles a template from an io.Reader using the default engine.
func Prepare(r io.Reader) (*PreparedTemplate, error) {
	return DefaultEngine.Prepare(r)
}

// PrepareBytes compiles an in-memory template using the default engine.
func PrepareBytes(data []byte) (*PreparedTemplate, error) {
	return DefaultEngine.PrepareBytes(data)
}

// RegisterGlobalFunction adds a custom function to the global function registry.
func RegisterGlobalFunction(name string, fn Function) error {
	return DefaultEngine.RegisterFunction(name, fn)
}

// RegisterFunctionsFromProvider registers functions from a provider in the global registry.
func RegisterFunctionsFromProvider(provider FunctionProvider) error {
	return DefaultEngine.RegisterFunctionsFromProvider(provider)
}

// ClearCache clears the global template cache.
func ClearCache() {
	DefaultEngine.ClearCache()
}

// SetCacheConfig updates the global cache configuration. It applies to
// engines created afterwards.
func SetCacheConfig(maxSize int, ttl time.Duration) {
	config := GetGlobalConfig()
	config.CacheMaxSize = maxSize
	config.CacheTTL = ttl
	SetGlobalConfig(config)
}

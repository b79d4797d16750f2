package stencil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// LoadConfigFile reads a YAML (.yaml, .yml, .json) or TOML (.toml) file on
// top of DefaultConfig. STENCIL_* environment variables override the file.
//
//	engine: jinja
//	cache_ttl: 5m
//	strict_mode: true
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	raw, err := decodeConfigMap(filepath.Ext(path), data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config := DefaultConfig()
	if err := decodeConfig(raw, config); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return applyEnvironment(config), nil
}

func decodeConfigMap(ext string, data []byte) (map[string]any, error) {
	raw := map[string]any{}
	switch strings.ToLower(ext) {
	case ".toml":
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	case ".yaml", ".yml", ".json", "":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	return raw, nil
}

// decodeConfig copies raw onto config. Durations may be written as "5m",
// numbers and booleans as strings.
func decodeConfig(raw map[string]any, config *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           config,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ASSETBUS_"

// envMapping maps environment variables to setting paths.
var envMapping = map[string]string{
	"ASSETBUS_LOG_LEVEL":      "log.level",
	"ASSETBUS_LOG_FORMAT":     "log.format",
	"ASSETBUS_METRICS_ADDR":   "metrics.addr",
	"ASSETBUS_MAX_DEPTH":      "bus.max_depth",
	"ASSETBUS_STRICT":         "bus.strict",
	"ASSETBUS_SCRIPT_TIMEOUT": "scripts.call_timeout",
	"ASSETBUS_WATCH_DEBOUNCE": "watch.debounce",
}

// Load builds the configuration from defaults, the file at path (skipped
// when path is empty) and the environment, then validates it.
func Load(path string) (Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookupEnv func(string) (string, bool)) (Config, error) {
	merged := map[string]any{}

	if path != "" {
		file, err := LoadFile(path)
		if err != nil {
			return Config{}, err
		}
		deepMerge(merged, file)
	}
	deepMerge(merged, envLayer(lookupEnv))

	cfg := Default()
	if err := decode(merged, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile reads a configuration file into a nested map based on its
// extension. Supports: .toml, .yaml/.yml
func LoadFile(path string) (map[string]any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	data := map[string]any{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if err := toml.Unmarshal(b, &data); err != nil {
			return nil, &ParseError{Path: path, Err: err}
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &data); err != nil {
			return nil, &ParseError{Path: path, Err: err}
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	return data, nil
}

// envLayer collects the mapped environment variables. Values stay strings;
// decoding converts them.
func envLayer(lookupEnv func(string) (string, bool)) map[string]any {
	data := map[string]any{}
	for env, path := range envMapping {
		if val, ok := lookupEnv(env); ok {
			setByPath(data, path, val)
		}
	}
	return data
}

// decode converts the merged layers into cfg. Strings are accepted for
// numbers, booleans and durations since environment values are untyped.
func decode(data map[string]any, cfg *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(data); err != nil {
		return fmt.Errorf("decoding config: %w", err)
	}
	return nil
}

// deepMerge recursively merges src into dst. Maps are merged; other values
// are replaced.
func deepMerge(dst, src map[string]any) {
	for key, srcVal := range src {
		srcMap, srcIsMap := srcVal.(map[string]any)
		dstMap, dstIsMap := dst[key].(map[string]any)
		if srcIsMap && dstIsMap {
			deepMerge(dstMap, srcMap)
			continue
		}
		dst[key] = srcVal
	}
}

// setByPath sets a value in a nested map using a dot-separated path.
func setByPath(data map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

package cacheprovider

import (
	"fmt"
	"maps"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// DefaultCacheName is the name Registry.Default resolves.
const DefaultCacheName = "default"

// Factory builds a cache backend directly. It takes precedence over
// Config.Driver and its result is used without the namespace step.
type Factory func() (any, error)

// Config describes one named cache.
type Config struct {
	// Driver is a symbolic name ("array", "file_system") or an explicit
	// backend type reference prefixed with "@" ("@FilesystemCache").
	Driver string

	// Factory, when set, replaces driver resolution.
	Factory Factory

	// Options are the named constructor parameters of the backend. The
	// "namespace" entry is applied after construction when supported.
	Options Params
}

// Options maps cache names to their configuration.
type Options map[string]Config

// DefaultOptions returns the configuration used when none is supplied: a
// single in-memory cache named "default".
// @group Config
//
// Example:
//
//	opts := cacheprovider.DefaultOptions()
//	fmt.Println(opts["default"].Driver) // array
func DefaultOptions() Options {
	return Options{DefaultCacheName: {Driver: "array"}}
}

// Names returns the configured cache names in sorted order.
func (o Options) Names() []string {
	names := make([]string, 0, len(o))
	for name := range o {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a copy of o whose option maps can be modified independently.
func (o Options) Clone() Options {
	out := make(Options, len(o))
	for name, cfg := range o {
		cfg.Options = maps.Clone(cfg.Options)
		out[name] = cfg
	}
	return out
}

// UnmarshalYAML accepts either a bare driver name or a mapping whose "driver"
// key selects the backend and whose other keys become Options.
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var driver string
		if err := node.Decode(&driver); err != nil {
			return err
		}
		*c = Config{Driver: driver}
		return nil
	}
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	cfg := Config{}
	if d, ok := raw["driver"]; ok {
		driver, ok := d.(string)
		if !ok {
			return fmt.Errorf("line %d: driver must be a string, got %T", node.Line, d)
		}
		cfg.Driver = driver
		delete(raw, "driver")
	}
	if len(raw) > 0 {
		cfg.Options = Params(raw)
	}
	*c = cfg
	return nil
}

type fileConfig struct {
	Caches Options `yaml:"caches"`
}

// ParseConfig decodes cache options from YAML. Environment variables in the
// document ($VAR or ${VAR}) are expanded before parsing.
// @group Config
//
// Example:
//
//	opts, err := cacheprovider.ParseConfig([]byte("caches:\n  default: array\n"))
//	if err != nil {
//		panic(err)
//	}
//	fmt.Println(opts["default"].Driver) // array
func ParseConfig(data []byte) (Options, error) {
	var fc fileConfig
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &fc); err != nil {
		return nil, fmt.Errorf("parse cache config: %w", err)
	}
	return fc.Caches, nil
}

// LoadConfig reads and parses a YAML cache configuration file.
// @group Config
func LoadConfig(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cache config %s: %w", path, err)
	}
	opts, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return opts, nil
}

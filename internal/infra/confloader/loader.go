package confloader

import (
	"fmt"
	"strings"
	"sync"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the default environment variable prefix.
const DefaultEnvPrefix = "BOARDMESH_"

// SectionSeparator separates config sections inside an environment
// variable name. A single underscore stays part of the key.
const SectionSeparator = "__"

// layer is one configuration source. Later layers override earlier ones.
type layer struct {
	name     string
	provider koanf.Provider
	parser   koanf.Parser
}

// Loader merges defaults, the YAML file, BOARDMESH_ variables, legacy
// variables and flag overrides, in that order.
type Loader struct {
	mu        sync.RWMutex
	k         *koanf.Koanf
	envPrefix string
	filePath  string
	legacy    bool
	overrides map[string]any
}

// Option configures a Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) { l.envPrefix = prefix }
}

// WithConfigFile sets the YAML file read by Load and watched for reloads.
func WithConfigFile(path string) Option {
	return func(l *Loader) { l.filePath = path }
}

// WithLegacyEnv toggles PORT, HOST and the WBO_ variables. On by default.
func WithLegacyEnv(enabled bool) Option {
	return func(l *Loader) { l.legacy = enabled }
}

// WithOverrides sets values applied after every other source, keyed by
// dotted path. Used for command line flags.
func WithOverrides(values map[string]any) Option {
	return func(l *Loader) {
		if len(values) > 0 {
			l.overrides = values
		}
	}
}

// NewLoader creates a configuration loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
		legacy:    true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FilePath returns the configured file path.
func (l *Loader) FilePath() string {
	return l.filePath
}

func (l *Loader) layers() []layer {
	var out []layer
	if l.filePath != "" {
		out = append(out, layer{"file " + l.filePath, file.Provider(l.filePath), yaml.Parser()})
	}
	out = append(out, layer{"env", env.Provider(l.envPrefix, ".", l.envKey), nil})
	if l.legacy {
		out = append(out, layer{"legacy env", env.ProviderWithValue("", ".", legacyValue), nil})
	}
	if l.overrides != nil {
		out = append(out, layer{"overrides", mapProvider(l.overrides), nil})
	}
	return out
}

// envKey turns BOARDMESH_SERVER__HTTP__PORT into server.http.port.
func (l *Loader) envKey(name string) string {
	name = strings.ToLower(strings.TrimPrefix(name, l.envPrefix))
	return strings.ReplaceAll(name, SectionSeparator, ".")
}

// Load merges every source and unmarshals the result into target.
// Fields no source sets keep their current value, so passing
// config.Default() yields defaults for everything else.
func (l *Loader) Load(target any) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, src := range l.layers() {
		if err := l.k.Load(src.provider, src.parser); err != nil {
			return fmt.Errorf("load %s: %w", src.name, err)
		}
	}
	if err := l.k.Unmarshal("", target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}

// Reload discards everything loaded so far and loads all sources again.
func (l *Loader) Reload(target any) error {
	l.mu.Lock()
	l.k = koanf.New(".")
	l.mu.Unlock()
	return l.Load(target)
}

// LoadFile merges a single YAML file without touching other sources.
func (l *Loader) LoadFile(path string) error {
	if path == "" {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("load file %s: %w", path, err)
	}
	return nil
}

// Unmarshal decodes what has been loaded so far into target.
func (l *Loader) Unmarshal(target any) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.k.Unmarshal("", target)
}

// Get returns the merged value at a dotted key, or nil.
func (l *Loader) Get(key string) any {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.k.Get(key)
}

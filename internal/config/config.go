package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aretw0/faultline/pkg/domain"
	"github.com/aretw0/faultline/pkg/fault"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Backend names accepted by Config.Backend.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendRemote = "remote"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FAULTLINE_"

// Config is the typed view of the merged configuration.
type Config struct {
	Listen      string        `mapstructure:"listen"`
	LogLevel    string        `mapstructure:"log_level"`
	Backend     string        `mapstructure:"backend"`
	Redis       RedisConfig   `mapstructure:"redis"`
	Remote      RemoteConfig  `mapstructure:"remote"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	AllowModify bool          `mapstructure:"allow_modify"`
	Flags       []domain.Flag `mapstructure:"flags"`

	// raw keeps every top-level key for Lookup, including keys with no typed field.
	raw map[string]any
	// enable holds FAULTLINE_ENABLE_<ID> overrides keyed by upper-cased flag ID.
	enable map[string]bool
}

// RedisConfig configures the Redis flag backend.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// RemoteConfig configures the remote flag service backend.
type RemoteConfig struct {
	URL string `mapstructure:"url"`
}

var _ fault.ConfigSource = (*Config)(nil)

func defaults() map[string]any {
	return map[string]any{
		"listen":       ":8080",
		"log_level":    "info",
		"backend":      BackendMemory,
		"cache_ttl":    "2s",
		"allow_modify": true,
		"redis": map[string]any{
			"addr":   "localhost:6379",
			"db":     0,
			"prefix": "faultline:",
		},
	}
}

// envKeys maps environment variables (without EnvPrefix) to configuration paths.
var envKeys = map[string][]string{
	"LISTEN":         {"listen"},
	"LOG_LEVEL":      {"log_level"},
	"BACKEND":        {"backend"},
	"CACHE_TTL":      {"cache_ttl"},
	"ALLOW_MODIFY":   {"allow_modify"},
	"REDIS_ADDR":     {"redis", "addr"},
	"REDIS_PASSWORD": {"redis", "password"},
	"REDIS_DB":       {"redis", "db"},
	"REDIS_PREFIX":   {"redis", "prefix"},
	"REMOTE_URL":     {"remote", "url"},
}

// Load reads the YAML file at path (optional, "" skips it) and applies
// overrides from environ (KEY=VALUE pairs, typically os.Environ()).
func Load(path string, environ []string) (*Config, error) {
	raw := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		var file map[string]any
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		merge(raw, file)
	}

	enable := applyEnv(raw, environ)

	cfg := &Config{raw: raw, enable: enable}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create config decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory, BackendRedis:
	case BackendRemote:
		if c.Remote.URL == "" {
			return errors.New("remote backend requires remote.url")
		}
	default:
		return fmt.Errorf("unknown backend %q (expected memory, redis or remote)", c.Backend)
	}
	if c.CacheTTL < 0 {
		return errors.New("cache_ttl must not be negative")
	}
	for _, f := range c.Flags {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("invalid flag in config: %w", err)
		}
	}
	return nil
}

// Lookup implements fault.ConfigSource over the top-level keys.
func (c *Config) Lookup(key string) (string, bool) {
	v, ok := c.raw[key]
	if !ok || v == nil {
		return "", false
	}
	return fmt.Sprint(v), true
}

// SeedFlags returns the flags to register at startup: the configured list, or the
// default registry when none is configured, with FAULTLINE_ENABLE_<ID> applied.
func (c *Config) SeedFlags() []domain.Flag {
	seed := c.Flags
	if len(seed) == 0 {
		seed = domain.DefaultFlags(c.AllowModify)
	}

	out := make([]domain.Flag, len(seed))
	copy(out, seed)
	for i := range out {
		if v, ok := c.enable[strings.ToUpper(out[i].ID)]; ok {
			out[i].Enabled = v
		}
	}
	return out
}

func applyEnv(raw map[string]any, environ []string) map[string]bool {
	enable := make(map[string]bool)
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}

		// The delay key is read under its bare name too.
		if key == fault.DelayConfigKey {
			raw[key] = value
			continue
		}

		name, ok := strings.CutPrefix(key, EnvPrefix)
		if !ok {
			continue
		}
		if id, ok := strings.CutPrefix(name, "ENABLE_"); ok {
			enable[strings.ToUpper(id)] = strings.EqualFold(value, "true") || value == "1"
			continue
		}
		if path, ok := envKeys[name]; ok {
			set(raw, path, value)
		}
	}
	return enable
}

func set(raw map[string]any, path []string, value string) {
	m := raw
	for _, p := range path[:len(path)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[p] = next
		}
		m = next
	}
	m[path[len(path)-1]] = value
}

// merge copies src into dst, descending into nested maps.
func merge(dst, src map[string]any) {
	for k, v := range src {
		if sub, ok := v.(map[string]any); ok {
			if existing, ok := dst[k].(map[string]any); ok {
				merge(existing, sub)
				continue
			}
		}
		dst[k] = v
	}
}

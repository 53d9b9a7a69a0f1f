package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/roach88/wikiref/internal/identity"
	"github.com/roach88/wikiref/internal/store"
)

// EnvPrefix prefixes environment overrides: lookup.timeout is read from
// WIKIREF_LOOKUP_TIMEOUT.
const EnvPrefix = "WIKIREF"

// Config is the complete runtime configuration.
type Config struct {
	UserAgent string `mapstructure:"user_agent" json:"user_agent"`
	Lookup    Lookup `mapstructure:"lookup" json:"lookup"`
	Store     Store  `mapstructure:"store" json:"store"`
	Log       Log    `mapstructure:"log" json:"log"`
}

// Lookup configures page-id resolution.
type Lookup struct {
	Endpoint          string        `mapstructure:"endpoint" json:"endpoint"`
	Timeout           time.Duration `mapstructure:"timeout" json:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" json:"requests_per_second"`
	Burst             int           `mapstructure:"burst" json:"burst"`
}

// Store selects the reference cache backend.
type Store struct {
	Driver      string        `mapstructure:"driver" json:"driver"`
	Path        string        `mapstructure:"path" json:"path"`
	Addr        string        `mapstructure:"addr" json:"addr"`
	Password    string        `mapstructure:"password" json:"password"`
	DB          int           `mapstructure:"db" json:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout" json:"dial_timeout"`
}

// Log configures the process logger.
type Log struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
}

// SetDefaults registers every key with its default value. Keys without a
// default are invisible to AutomaticEnv during Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("user_agent", identity.DefaultUserAgent)

	v.SetDefault("lookup.endpoint", identity.DefaultEndpoint)
	v.SetDefault("lookup.timeout", identity.DefaultTimeout)
	v.SetDefault("lookup.requests_per_second", 5.0)
	v.SetDefault("lookup.burst", 5)

	v.SetDefault("store.driver", store.DriverSQLite)
	v.SetDefault("store.path", "wikiref.db")
	v.SetDefault("store.addr", "127.0.0.1:8888") // SSDB default port
	v.SetDefault("store.password", "")
	v.SetDefault("store.db", 0)
	v.SetDefault("store.dial_timeout", 5*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// NewViper returns a viper instance with defaults and environment binding.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load reads configuration from defaults, the optional file at path and
// the environment, in increasing precedence, then validates it. The file
// format follows its extension (yaml, toml or json).
func Load(path string) (*Config, error) {
	v := NewViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}
	return LoadWithViper(v)
}

// LoadWithViper decodes and validates configuration from v.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Store.Driver = strings.ToLower(cfg.Store.Driver)
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// StoreOptions maps the store section onto store.Open options.
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Driver:      c.Store.Driver,
		Path:        c.Store.Path,
		Addr:        c.Store.Addr,
		Password:    c.Store.Password,
		DB:          c.Store.DB,
		DialTimeout: c.Store.DialTimeout,
	}
}

// ResolverOptions maps the lookup section and user agent onto resolver
// options.
func (c *Config) ResolverOptions() []identity.Option {
	return []identity.Option{
		identity.WithEndpoint(c.Lookup.Endpoint),
		identity.WithUserAgent(c.UserAgent),
		identity.WithTimeout(c.Lookup.Timeout),
		identity.WithRateLimit(c.Lookup.RequestsPerSecond, c.Lookup.Burst),
	}
}

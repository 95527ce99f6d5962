// Package config loads the gateway configuration from YAML.
package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/infergate/inference"
	"github.com/jonwraymond/infergate/observe"
	"github.com/jonwraymond/infergate/secret"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("config: invalid")

// Config holds all gateway configuration.
type Config struct {
	Listen          string        `yaml:"listen"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`

	Auth       AuthConfig       `yaml:"auth"`
	Cache      CacheConfig      `yaml:"cache"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Generative GenerativeConfig `yaml:"generative"`
	Users      UsersConfig      `yaml:"users"`
	Secrets    SecretsConfig    `yaml:"secrets"`
	Observe    observe.Config   `yaml:"observe"`
}

// AuthConfig holds the shared HMAC secret and token lifetimes.
type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret"`
	ServiceTokenTTL time.Duration `yaml:"service_token_ttl"`
	UserTokenTTL    time.Duration `yaml:"user_token_ttl"`
}

// CacheConfig selects the cache backend.
type CacheConfig struct {
	Backend   string `yaml:"backend"` // memory|redis|none
	RedisAddr string `yaml:"redis_addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
	// Coalesce shares one provider call between concurrent identical misses.
	Coalesce bool `yaml:"coalesce"`
}

// ProvidersConfig locates the model services.
type ProvidersConfig struct {
	ImageURL    string `yaml:"image_url"`
	ForecastURL string `yaml:"forecast_url"`
	RendererURL string `yaml:"renderer_url"`
	// Timeouts overrides per-class budgets, keyed by class name
	// (classify, generative, forecast, status, metrics, render).
	Timeouts map[string]time.Duration `yaml:"timeouts"`
}

// GenerativeConfig configures the OpenAI-compatible text model.
// An empty APIKey disables report generation and reorder explanations.
type GenerativeConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// UsersConfig locates the user directory database.
type UsersConfig struct {
	DBPath string `yaml:"db_path"`
}

// SecretsConfig selects the providers that resolve secretref: values.
type SecretsConfig struct {
	Strict    bool                      `yaml:"strict"`
	Providers []string                  `yaml:"providers"`
	Settings  map[string]map[string]any `yaml:"settings"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen:          ":8000",
		ShutdownTimeout: 15 * time.Second,
		MaxUploadBytes:  32 << 20,
		Cache: CacheConfig{
			Backend:   "memory",
			KeyPrefix: "infergate:",
		},
		Providers: ProvidersConfig{
			ImageURL:    "http://localhost:5001",
			ForecastURL: "http://localhost:5002",
			RendererURL: "http://localhost:5003",
		},
		Generative: GenerativeConfig{
			Model: "gpt-4o-mini",
		},
		Users: UsersConfig{
			DBPath: "infergate.db",
		},
		Secrets: SecretsConfig{
			Strict:    true,
			Providers: []string{"env", "file"},
		},
		Observe: observe.Config{
			ServiceName: "infergate",
			Logging:     observe.LoggingConfig{Enabled: true, Level: "info", Format: "zap"},
		},
	}
}

// Load reads a YAML config file over the defaults and expands ${VAR}
// references. A missing variable is an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML data over the defaults.
func Parse(data []byte) (*Config, error) {
	expanded, err := secret.ExpandEnvStrict(string(data))
	if err != nil {
		return nil, fmt.Errorf("expand config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// ResolveSecrets replaces secretref: values in the credential fields.
func (c *Config) ResolveSecrets(ctx context.Context) error {
	res, err := secret.DefaultRegistry.NewResolver(c.Secrets.Strict, c.Secrets.Providers, c.Secrets.Settings)
	if err != nil {
		return fmt.Errorf("secret providers: %w", err)
	}
	defer res.Close()
	return res.ResolveInPlace(ctx,
		&c.Auth.JWTSecret,
		&c.Cache.Password,
		&c.Generative.APIKey,
	)
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("%w: listen address is required", ErrInvalid)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("%w: auth.jwt_secret is required", ErrInvalid)
	}
	switch c.Cache.Backend {
	case "memory", "none", "":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("%w: cache.redis_addr is required for the redis backend", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown cache backend %q", ErrInvalid, c.Cache.Backend)
	}
	for name, raw := range map[string]string{
		"providers.image_url":    c.Providers.ImageURL,
		"providers.forecast_url": c.Providers.ForecastURL,
		"providers.renderer_url": c.Providers.RendererURL,
	} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: %s %q is not an absolute URL", ErrInvalid, name, raw)
		}
	}
	for name, d := range c.Providers.Timeouts {
		if _, ok := inference.ParseClass(name); !ok {
			return fmt.Errorf("%w: unknown timeout class %q", ErrInvalid, name)
		}
		if d <= 0 {
			return fmt.Errorf("%w: timeout for %s must be positive", ErrInvalid, name)
		}
	}
	known := secret.DefaultRegistry.List()
	for _, name := range c.Secrets.Providers {
		if !slices.Contains(known, name) {
			return fmt.Errorf("%w: unknown secret provider %q", ErrInvalid, name)
		}
	}
	if err := c.Observe.Validate(); err != nil {
		return fmt.Errorf("%w: observe: %v", ErrInvalid, err)
	}
	return nil
}

// Budgets returns the per-class provider deadlines with overrides applied.
func (c *Config) Budgets() inference.Budgets {
	b := inference.DefaultBudgets()
	for name, d := range c.Providers.Timeouts {
		if class, ok := inference.ParseClass(name); ok && d > 0 {
			b[class] = d
		}
	}
	return b
}

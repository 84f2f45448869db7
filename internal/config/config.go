// Package config loads the service configuration: defaults overlaid with
// SNIP_-prefixed environment variables, then validated.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces every environment variable the service reads,
// e.g. SNIP_ADDR, SNIP_STORE_BACKEND, SNIP_JWT_SECRET.
const envPrefix = "SNIP_"

// Config is the merged runtime configuration.
type Config struct {
	Addr string `koanf:"addr" validate:"required"`

	// StoreBackend selects the snippet store: "sqlite" or "mongo".
	StoreBackend  string `koanf:"store_backend" validate:"required,oneof=sqlite mongo"`
	DBPath        string `koanf:"db_path" validate:"required_if=StoreBackend sqlite"`
	MongoURI      string `koanf:"mongo_uri" validate:"required_if=StoreBackend mongo"`
	MongoDatabase string `koanf:"mongo_database" validate:"required_if=StoreBackend mongo"`

	JWTSecret  string `koanf:"jwt_secret" validate:"required,min=16"`
	BcryptCost int    `koanf:"bcrypt_cost" validate:"min=4,max=31"`

	// GitHub OAuth is optional; the routes are only mounted when all three
	// values are present.
	GitHubClientID     string `koanf:"github_client_id"`
	GitHubClientSecret string `koanf:"github_client_secret"`
	GitHubCallbackURL  string `koanf:"github_callback_url" validate:"required_with=GitHubClientID,omitempty,url"`

	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`
}

// DefaultAppConfig holds the baseline every deployment starts from. The JWT
// secret has no default on purpose.
var DefaultAppConfig = Config{
	Addr:          ":8080",
	StoreBackend:  "sqlite",
	DBPath:        "./snippets.db",
	MongoDatabase: "snippets",
	BcryptCost:    12,
	LogLevel:      "info",
}

// GitHubEnabled reports whether the OAuth routes should be mounted.
func (c Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != "" && c.GitHubCallbackURL != ""
}

// Loader funcs are package variables so tests can inject failures.
var (
	defaultLoader = func(k *koanf.Koanf) error {
		return k.Load(structs.Provider(DefaultAppConfig, "koanf"), nil)
	}

	envLoader = func(k *koanf.Koanf) error {
		return k.Load(env.Provider(".", env.Opt{
			Prefix: envPrefix,
			TransformFunc: func(key, value string) (string, any) {
				key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
				return key, value
			},
		}), nil)
	}

	newValidator = func() *validator.Validate {
		return validator.New(validator.WithRequiredStructEnabled())
	}
)

// Load merges defaults with the environment and validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("config: loading defaults: %w", err)
	}
	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("config: loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshaling: %w", err)
	}

	if err := newValidator().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: validation: %w", err)
	}
	return &cfg, nil
}

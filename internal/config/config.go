// Package config loads application configuration from an optional YAML file
// with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"
)

// DefaultPath is consulted when TIPBOARD_CONFIG is unset.
const DefaultPath = "config.yaml"

// Config holds the full application configuration.
type Config struct {
	Server struct {
		Host string `yaml:"host" env:"HTTP_HOST"`
		Port int    `yaml:"port" env:"HTTP_PORT"`
	} `yaml:"server"`

	Wallet struct {
		RPCURL  string        `yaml:"rpc_url" env:"WALLET_RPC_URL"`
		Timeout time.Duration `yaml:"timeout" env:"WALLET_RPC_TIMEOUT"`
	} `yaml:"wallet"`

	Reconcile struct {
		Interval time.Duration `yaml:"interval" env:"RECONCILE_INTERVAL"`
	} `yaml:"reconcile"`

	Storage struct {
		Driver      string `yaml:"driver" env:"STORAGE_DRIVER"` // file, redis or postgres
		Path        string `yaml:"path" env:"STORAGE_PATH"`
		RedisAddr   string `yaml:"redis_addr" env:"STORAGE_REDIS_ADDR"`
		RedisKey    string `yaml:"redis_key" env:"STORAGE_REDIS_KEY"`
		PostgresDSN string `yaml:"postgres_dsn" env:"STORAGE_POSTGRES_DSN"`
	} `yaml:"storage"`

	Auth struct {
		JWTSecret string        `yaml:"jwt_secret" env:"JWT_SECRET"`
		TokenTTL  time.Duration `yaml:"token_ttl" env:"TOKEN_TTL"`
	} `yaml:"auth"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
		Output string `yaml:"output" env:"LOG_OUTPUT"`
	} `yaml:"logging"`
}

// Load reads the YAML file (if present) and applies environment overrides.
func Load() (*Config, error) {
	path := os.Getenv("TIPBOARD_CONFIG")
	if path == "" {
		path = DefaultPath
	}

	cfg := defaults()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Environment-only configuration is fine.
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := envdecode.Decode(cfg); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return nil, fmt.Errorf("apply environment overrides: %w", err)
	}

	if cfg.Wallet.RPCURL == "" {
		return nil, fmt.Errorf("wallet rpc_url is required (WALLET_RPC_URL)")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth jwt_secret is required (JWT_SECRET)")
	}
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8080
	cfg.Wallet.Timeout = 30 * time.Second
	cfg.Reconcile.Interval = 30 * time.Second
	cfg.Storage.Driver = "file"
	cfg.Storage.Path = "data/ledger.json"
	cfg.Auth.TokenTTL = 24 * time.Hour
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"
	return cfg
}

package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "MARKET_"

// Load builds a Config by layering defaults, an optional YAML file and env vars.
// Order of precedence (low -> high):
//  1. defaults (New)
//  2. file (YAML) if MARKET_CONFIG is set
//  3. env (prefix MARKET_)
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// MARKET_HTTP_PORT -> http_port; comma separated values become lists.
	envProvider := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, any) {
		key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(envPrefix))
		if key == "cors_origins" {
			return key, strings.Split(value, ",")
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database_url must not be empty")
	}
	if _, err := strconv.Atoi(c.HTTPPort); err != nil {
		return errors.New("http_port must be numeric")
	}
	if c.UploadMaxBytes < 0 {
		return errors.New("upload_max_bytes must not be negative")
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return errors.New("token ttl must be positive")
	}
	if c.Env == "prod" && (len(c.JWTAccessSecret) < 32 || len(c.JWTRefreshSecret) < 32) {
		return errors.New("jwt secrets must be at least 32 bytes in prod")
	}
	return nil
}

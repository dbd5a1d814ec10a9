package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variable names.
const (
	EnvPrefix  = "PANELFACTOR_"
	EnvConfig  = "PANELFACTOR_CONFIG"
	EnvDotFile = "PANELFACTOR_ENV_FILE"
)

// listKeys hold comma-separated values when set from the environment.
var listKeys = map[string]bool{"factors": true, "odds_books": true} //nolint:gochecknoglobals // fixed key set

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if PANELFACTOR_CONFIG is set
//  3. .env file (PANELFACTOR_ENV_FILE, default ".env"), never overriding
//     variables already set
//  4. env (prefix PANELFACTOR_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv(EnvConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	dotFile := os.Getenv(EnvDotFile)
	if dotFile == "" {
		dotFile = ".env"
	}
	if err := godotenv.Load(dotFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, dotFile, err)
	}

	// PANELFACTOR_EDGE_THRESHOLD -> edge_threshold (flat keys).
	envProvider := env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(EnvPrefix))
		if key == "config" || key == "env_file" {
			return "", nil
		}
		if listKeys[key] {
			parts := strings.Split(value, ",")
			out := make([]string, 0, len(parts))
			for _, p := range parts {
				if p = strings.TrimSpace(p); p != "" {
					out = append(out, p)
				}
			}
			return key, out
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	// Decoding into a populated slice keeps trailing defaults; lists replace.
	for key := range listKeys {
		if !k.Exists(key) {
			continue
		}
		switch key {
		case "factors":
			cfg.Factors = k.Strings(key)
		case "odds_books":
			cfg.OddsBooks = k.Strings(key)
		}
	}

	if err := cfg.Validate(ctx); err != nil {
		return nil, err
	}
	return &cfg, nil
}

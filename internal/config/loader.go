package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering sources, lowest precedence first:
//  1. defaults (New())
//  2. YAML file if F1_CONFIG points at one
//  3. environment variables with prefix F1_ ("__" separates nesting,
//     e.g. F1_DATABASE__MAX_OPEN_CONNS -> database.max_open_conns)
//  4. the legacy DB_NAME / DB_USER / DB_PASSWORD / DB_HOST variables used
//     by the original ingestion scripts
func Load() (*Config, error) {
	cfg := New()

	k := koanf.New(".")

	if path := os.Getenv("F1_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	envProvider := env.Provider("F1_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "F1_")
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	applyLegacyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyLegacyEnv honors the bare database variables the original scripts
// were configured with. They win over every other source.
func applyLegacyEnv(cfg *Config) {
	if v := os.Getenv("DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
}

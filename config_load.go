package sessiongate

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the environment prefix used by [LoadConfig] when none is given.
const DefaultEnvPrefix = "SESSIONGATE_"

// LoadConfig returns [DefaultConfig] overlaid with the YAML file at path (if
// non-empty) and then with environment variables under envPrefix, and
// validates the result.
//
// Environment keys map section and field by underscore:
// SESSIONGATE_TOKEN_LIFETIME=15m sets token.lifetime.
func LoadConfig(path, envPrefix string) (Config, error) {
	cfg := defaultConfig()
	if err := LoadInto(path, envPrefix, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// LoadInto overlays file and environment values onto target, which should
// already hold defaults. Keys absent from both sources leave target unchanged.
func LoadInto(path, envPrefix string, target any) error {
	if envPrefix == "" {
		envPrefix = DefaultEnvPrefix
	}
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// SESSIONGATE_RATELIMIT_ISSUANCE_LIMIT -> ratelimit.issuance.limit
	transform := func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "_", ".")
	}
	if err := k.Load(env.Provider(envPrefix, ".", transform), nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}

	if err := k.Unmarshal("", target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}

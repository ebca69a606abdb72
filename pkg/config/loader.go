package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// LoadBenchmarkConfig loads a single condensed BenchmarkConfig document
// with precedence file < environment, using Koanf so deployment-specific
// values can be overlaid without editing the file on disk:
// XENT_METADATA__MASTER_SEED overrides metadata.master_seed (a double
// underscore becomes a dot, a single underscore is preserved in the key).
// ${VAR} references inside string fields (player options, the judge
// model, etc.) are then interpolated directly from the environment, the
// one thing a typed koanf unmarshal can't express since those fields are
// free-form.
func LoadBenchmarkConfig(path string) (*BenchmarkConfig, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
	}

	if err := k.Load(env.Provider("XENT_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "XENT_")
		s = strings.Replace(s, "__", ".", -1)
		s = strings.ToLower(s)
		return s
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg BenchmarkConfig
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := interpolateConfigEnvVars(&cfg); err != nil {
		return nil, fmt.Errorf("failed to interpolate environment variables: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// interpolateConfigEnvVars resolves ${VAR} references in the fields that
// commonly carry secrets or deployment-specific values: judge model,
// trial timeout, archive dir, and every player's options map (API keys
// and endpoints are passed there).
func interpolateConfigEnvVars(cfg *BenchmarkConfig) error {
	getenv := func(key string) (string, bool) {
		val := os.Getenv(key)
		if val == "" {
			return "", false
		}
		return val, true
	}

	var err error
	if cfg.Metadata.JudgeModel, err = interpolateEnvVars(cfg.Metadata.JudgeModel, getenv); err != nil {
		return err
	}
	if cfg.Metadata.TrialTimeout, err = interpolateEnvVars(cfg.Metadata.TrialTimeout, getenv); err != nil {
		return err
	}
	if cfg.Expansion.ArchiveDir, err = interpolateEnvVars(cfg.Expansion.ArchiveDir, getenv); err != nil {
		return err
	}

	for i, p := range cfg.Players {
		for k, v := range p.Options {
			s, ok := v.(string)
			if !ok {
				continue
			}
			resolved, err := interpolateEnvVars(s, getenv)
			if err != nil {
				return fmt.Errorf("player %s option %s: %w", p.ID, k, err)
			}
			cfg.Players[i].Options[k] = resolved
		}
	}

	return nil
}

// interpolateEnvVars replaces ${VAR} with environment variable values.
func interpolateEnvVars(s string, getenv func(string) (string, bool)) (string, error) {
	result := s
	start := 0
	for {
		idx := strings.Index(result[start:], "${")
		if idx == -1 {
			break
		}
		idx += start

		endIdx := strings.Index(result[idx:], "}")
		if endIdx == -1 {
			return "", fmt.Errorf("unclosed environment variable reference at position %d", idx)
		}
		endIdx += idx

		varName := result[idx+2 : endIdx]
		value, ok := getenv(varName)
		if !ok {
			return "", fmt.Errorf("environment variable %q is not set", varName)
		}

		result = result[:idx] + value + result[endIdx+1:]
		start = idx + len(value)
	}
	return result, nil
}

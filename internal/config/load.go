package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	env "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "COOTRANS_"

// Load reads settings for configDir using a 3-layer hierarchy (highest
// precedence last):
//
//  1. Built-in defaults
//  2. {configDir}/cootrans.yaml, if present
//  3. Environment variables (COOTRANS_ prefix)
//
// Env names map to keys by matching against known keys first, so
// COOTRANS_GEODETIC_MAX_ITERATIONS resolves to geodetic.max_iterations.
func Load(configDir string) (Settings, error) {
	k, err := newKoanf()
	if err != nil {
		return Settings{}, err
	}

	path := filepath.Join(configDir, FileName)
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Settings{}, fmt.Errorf("loading settings %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return Settings{}, fmt.Errorf("stat settings %s: %w", path, err)
	}

	envLookup := buildEnvLookup(k.Keys())
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
			if koanfKey, ok := envLookup[key]; ok {
				return koanfKey, value
			}
			return strings.ReplaceAll(key, "_", "."), value
		},
	}), nil); err != nil {
		return Settings{}, fmt.Errorf("loading env vars: %w", err)
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return Settings{}, fmt.Errorf("unmarshalling settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("validating settings: %w", err)
	}
	return s, nil
}

func newKoanf() (*koanf.Koanf, error) {
	k := koanf.New(".")
	for key, val := range defaults() {
		if err := k.Set(key, val); err != nil {
			return nil, fmt.Errorf("setting default %s: %w", key, err)
		}
	}
	return k, nil
}

// fromMaps decodes defaults plus optional overrides; used for Default and tests.
func fromMaps(overrides map[string]any) (Settings, error) {
	k, err := newKoanf()
	if err != nil {
		return Settings{}, err
	}
	for key, val := range overrides {
		if err := k.Set(key, val); err != nil {
			return Settings{}, err
		}
	}
	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// buildEnvLookup maps env-style keys ("geodetic_max_iterations") to koanf
// dotted keys ("geodetic.max_iterations").
func buildEnvLookup(keys []string) map[string]string {
	lookup := make(map[string]string, len(keys))
	for _, key := range keys {
		lookup[strings.ReplaceAll(key, ".", "_")] = key
	}
	return lookup
}

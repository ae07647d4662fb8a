package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Provide loads a configuration in three layers: the defaults struct, the
// toml file at path (skipped when it does not exist), and the environment.
// Environment variables are named PREFIX_SECTION__KEY, e.g.
// CROWD_MTURK__REWARD for mturk.reward.
func Provide[T any](prefix, path string, def T) (T, error) {
	var cnf T
	k := koanf.New(".")

	if err := k.Load(structs.Provider(def, "koanf"), nil); err != nil {
		return cnf, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return cnf, fmt.Errorf("load %s: %w", path, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return cnf, fmt.Errorf("stat %s: %w", path, err)
		}
	}

	envPrefix := strings.ToUpper(prefix) + "_"
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil); err != nil {
		return cnf, fmt.Errorf("load environment: %w", err)
	}

	if err := k.Unmarshal("", &cnf); err != nil {
		return cnf, fmt.Errorf("unmarshal config: %w", err)
	}
	return cnf, nil
}

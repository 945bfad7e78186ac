package main

import (
	"os"
	"path/filepath"

	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// Config is scopedump's optional on-disk configuration, read from
// ~/.config/scopedump/config.yaml unless --config overrides the path.
// Flags always take precedence over config file values.
type Config struct {
	GrammarDirs []string `yaml:"grammarDirs"`
	Trace       bool     `yaml:"trace"`
}

// defaultConfigPath returns the default config file location, or "" if the
// user's home directory can't be determined.
func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "scopedump", "config.yaml")
}

// loadConfig reads path (or the default location if path is empty). A
// missing file is not an error: scopedump works with zero configuration,
// falling back to flags and the current directory.
func loadConfig(path string) (*Config, error) {
	if path == "" {
		path = defaultConfigPath()
	}
	if path == "" {
		return &Config{}, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, errors.WithMessagef(err, "reading config %s", path)
	}

	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, errors.WithMessagef(err, "parsing config %s", path)
	}
	return &cfg, nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/bamsammich/hardlink-dedup/internal/filter"
)

// Config represents the optional hardlink-dedup configuration file.
type Config struct {
	Defaults DefaultsConfig `toml:"defaults"`
	Theme    ThemeConfig    `toml:"theme"`
}

// DefaultsConfig holds persistent flag defaults.
type DefaultsConfig struct {
	Paranoid *bool    `toml:"paranoid"`
	Hash     *string  `toml:"hash"`
	BWLimit  *string  `toml:"bwlimit"`
	MinSize  *string  `toml:"min_size"`
	MaxSize  *string  `toml:"max_size"`
	Exclude  []string `toml:"exclude"`
	Include  []string `toml:"include"`
}

// ThemeConfig holds optional color overrides for terminal output.
type ThemeConfig struct {
	Prefix   *string `toml:"prefix"`
	Linked   *string `toml:"linked"`
	Excluded *string `toml:"excluded"`
	Warning  *string `toml:"warning"`
	Summary  *string `toml:"summary"`
}

// Path returns the resolved path to the config file.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "hardlink-dedup", "config.toml")
}

// Load reads the config file from the XDG path. A missing file yields a
// zero Config and no error.
func Load() (Config, error) {
	path := Path()
	if path == "" {
		return Config{}, nil
	}
	return LoadFile(path)
}

// LoadFile reads and validates the config at path. A missing file yields a
// zero Config and no error.
func LoadFile(path string) (Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("parse %s: unknown key %q", path, undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that flags would otherwise reject at parse time.
func (c Config) Validate() error {
	d := c.Defaults
	if d.Hash != nil {
		switch *d.Hash {
		case "sha256", "blake3":
		default:
			return fmt.Errorf("defaults.hash: unknown algorithm %q (use sha256 or blake3)", *d.Hash)
		}
	}
	for name, v := range map[string]*string{
		"bwlimit":  d.BWLimit,
		"min_size": d.MinSize,
		"max_size": d.MaxSize,
	} {
		if v == nil {
			continue
		}
		if _, err := filter.ParseSize(*v); err != nil {
			return fmt.Errorf("defaults.%s: %w", name, err)
		}
	}
	return nil
}

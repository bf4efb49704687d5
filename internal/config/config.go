// Package config loads the stride config file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds the file-level options read once at launch. Everything the
// user can change at runtime (horizon, week start, and grace overrides)
// lives in the store's settings table instead.
type Config struct {
	DBPath  string `toml:"db_path"`
	GraceMS int    `toml:"grace_ms"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{GraceMS: 2500}
}

// Grace converts the configured grace period.
func (c Config) Grace() time.Duration {
	return time.Duration(c.GraceMS) * time.Millisecond
}

// DefaultPath returns ~/.config/stride/config.toml
func DefaultPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "stride", "config.toml"), nil
}

// Load reads path over the defaults. A missing file is not an error; a
// malformed one is.
func Load(path string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return c, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse config %s: %w", path, err)
	}
	if c.GraceMS <= 0 {
		c.GraceMS = Default().GraceMS
	}
	return c, nil
}

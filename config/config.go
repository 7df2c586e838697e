// Package config loads netquest settings from an optional YAML file and
// NETQUEST_* environment variables. Environment values win.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/nathoo/netquest/logger"
)

// Config holds runtime settings.
type Config struct {
	ContentDir    string `yaml:"content_dir" env:"CONTENT_DIR"`
	IncludeDrafts bool   `yaml:"include_drafts" env:"INCLUDE_DRAFTS"`
	AutoAccept    bool   `yaml:"auto_accept" env:"AUTO_ACCEPT"`

	SQLitePath  string        `yaml:"sqlite_path" env:"SQLITE_PATH"`
	RedisURL    string        `yaml:"redis_url" env:"REDIS_URL"`
	SnapshotTTL time.Duration `yaml:"snapshot_ttl" env:"SNAPSHOT_TTL"`
	SaveDir     string        `yaml:"save_dir" env:"SAVE_DIR"`

	Log logger.Config `yaml:"log" envPrefix:"LOG_"`
}

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "NETQUEST_"

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		ContentDir: "content",
		SQLitePath: "netquest.db",
		SaveDir:    ".",
		Log:        logger.Defaults(),
	}
}

// Load reads path (if not empty) over the defaults, then applies the
// environment. A missing file is an error; an empty path is not.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

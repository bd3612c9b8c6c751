package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is wsecho's startup configuration, loaded from a YAML file.
type Config struct {
	// Addr is the address ListenAndServe binds, e.g. ":8080".
	Addr string `yaml:"addr"`

	// Path is the HTTP path the WebSocket endpoint is served on.
	Path string `yaml:"path"`

	// MaxMessageSize bounds the size of an assembled (decompressed)
	// message, in bytes. Zero disables the check.
	MaxMessageSize int64 `yaml:"max_message_size"`

	// EnableCompression negotiates permessage-deflate with clients that
	// offer it.
	EnableCompression bool `yaml:"enable_compression"`
}

func defaultConfig() Config {
	return Config{
		Addr:              ":8080",
		Path:              "/ws",
		MaxMessageSize:    1 << 20,
		EnableCompression: true,
	}
}

// loadConfig reads and parses a YAML config file at path. Missing fields
// fall back to defaultConfig's values.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Addr == "" {
		cfg.Addr = defaultConfig().Addr
	}
	if cfg.Path == "" {
		cfg.Path = defaultConfig().Path
	}

	return cfg, nil
}

// Package config handles configuration for uidriver. A Config value is
// constructed once and passed explicitly into every engine entry point;
// there is no ambient singleton.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration (uidriver.yaml).
type Config struct {
	// Bind address
	Host string `yaml:"host"` // Bind host (default 127.0.0.1)
	Port int    `yaml:"port"` // Bind port (default 3000)

	// Engine settings
	DefaultTimeoutMs int `yaml:"defaultTimeoutMs"` // Expectation timeout (default 5000)
	PollIntervalMs   int `yaml:"pollIntervalMs"`   // Poll interval (default 100)
	MaxDepth         int `yaml:"maxDepth"`         // Traversal depth bound (default 50)

	// Accessibility backend
	Backend      string `yaml:"backend"`      // auto, bridge, memtree
	BridgeSocket string `yaml:"bridgeSocket"` // Unix socket path (macOS, Linux)
	BridgePort   int    `yaml:"bridgePort"`   // TCP port (Windows)

	// Logging
	LogLevel string `yaml:"logLevel"` // trace, debug, info, warn, error
}

// Default returns the configuration defaults.
func Default() *Config {
	return &Config{
		Host:             "127.0.0.1",
		Port:             3000,
		DefaultTimeoutMs: 5000,
		PollIntervalMs:   100,
		MaxDepth:         50,
		Backend:          "auto",
		LogLevel:         "info",
	}
}

// Load loads configuration from a file, filling unset fields from defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir looks for uidriver.yaml or uidriver.yml in the directory.
func LoadFromDir(dir string) (*Config, error) {
	for _, name := range []string{"uidriver.yaml", "uidriver.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	// No config file found, return defaults
	return Default(), nil
}

// Addr returns the host:port bind address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

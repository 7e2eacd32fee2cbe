package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// UIConfig stores live view preferences
type UIConfig struct {
	Palette           string `json:"palette,omitempty"` // path to a GPL palette file
	ColorMode         bool   `json:"colorMode,omitempty"`
	VelocitySensitive bool   `json:"velocitySensitive,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	PreferredPorts []string `json:"preferredPorts,omitempty"`
	ExcludedPorts  []string `json:"excludedPorts,omitempty"`
	SoundFont      string   `json:"soundFont,omitempty"`
	UI             UIConfig `json:"ui,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		// ALSA's virtual through port shows up on most Linux boxes and is
		// never a real instrument
		ExcludedPorts: []string{"Midi Through"},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "midiphoria"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

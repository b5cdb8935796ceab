package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"pitch-velocity/velocity"
)

// PortConfig names the MIDI ports to route between
type PortConfig struct {
	Input       string `json:"input,omitempty"`
	Output      string `json:"output,omitempty"`
	VirtualName string `json:"virtualName,omitempty"` // creates a virtual output when set
}

// UIConfig stores UI preferences
type UIConfig struct {
	Palette      string `json:"palette,omitempty"` // GIMP .gpl path, built-in palette when empty
	RecentEvents int    `json:"recentEvents,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Params velocity.Params `json:"params"`
	Ports  PortConfig      `json:"ports"`
	UI     UIConfig        `json:"ui,omitempty"`
	Debug  bool            `json:"debug,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Params: velocity.DefaultParams(),
		Ports: PortConfig{
			VirtualName: "Pitch Velocity Out",
		},
		UI: UIConfig{
			RecentEvents: 12,
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "pitch-velocity"), nil
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
	return LoadFile(path)
}

// LoadFile reads a config file. Missing files give defaults; parameters that
// fail validation are snapped back into range.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	// start from defaults so missing fields keep them
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Params.Validate(); err != nil {
		cfg.Params = cfg.Params.Sanitize()
	}
	if cfg.UI.RecentEvents <= 0 {
		cfg.UI.RecentEvents = DefaultConfig().UI.RecentEvents
	}

	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes the config to path, creating parent directories
func (c *Config) SaveFile(path string) error {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks the parts of the config a run depends on
func (c *Config) Validate() error {
	if err := c.Params.Validate(); err != nil {
		return err
	}
	if c.Ports.Output == "" && c.Ports.VirtualName == "" {
		return fmt.Errorf("no output configured: set an output port or a virtual port name")
	}
	return nil
}

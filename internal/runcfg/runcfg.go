// Package runcfg holds tool-local presentation preferences: output
// color, default number format, and the default max rows in the
// function table before truncation. This is deliberately distinct from
// internal/cfg, which loads the spec-mandated JSON analysis
// configuration (call_overrides, entrypoint priorities); runcfg is
// purely cosmetic and never affects the computed Program.
//
// Shape and TOML wire format are lifted verbatim from the teacher's
// config/config.go (Default*/Load/LoadFrom/Save, the platform-specific
// GetConfigPath switch), which keeps the teacher's
// github.com/BurntSushi/toml dependency wired to a real component
// instead of dropped.
package runcfg

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Config is the tool-local preferences document.
type Config struct {
	Display struct {
		ColorOutput  bool   `toml:"color_output"`
		NumberFormat string `toml:"number_format"` // hex, dec
		MaxRows      int    `toml:"max_rows"`
	} `toml:"display"`
}

// Default returns the built-in preference defaults.
func Default() *Config {
	c := &Config{}
	c.Display.ColorOutput = true
	c.Display.NumberFormat = "hex"
	c.Display.MaxRows = 200
	return c
}

// ConfigPath returns the platform-specific preferences file path,
// matching the teacher's per-OS convention (renamed to this tool's
// directory).
func ConfigPath() string {
	var dir string
	switch runtime.GOOS {
	case "windows":
		dir = os.Getenv("APPDATA")
		if dir == "" {
			dir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		dir = filepath.Join(dir, "armv6m-stackdepth")
	case "darwin", "linux":
		home, err := os.UserHomeDir()
		if err != nil {
			return "runcfg.toml"
		}
		dir = filepath.Join(home, ".config", "armv6m-stackdepth")
	default:
		return "runcfg.toml"
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "runcfg.toml"
	}
	return filepath.Join(dir, "runcfg.toml")
}

// Load reads the default preferences path, falling back to Default()
// when the file does not exist.
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads preferences from path.
func LoadFrom(path string) (*Config, error) {
	c := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return c, nil
	}
	if _, err := toml.DecodeFile(path, c); err != nil {
		return nil, fmt.Errorf("runcfg: parsing %s: %w", path, err)
	}
	return c, nil
}

// Save writes c to the default preferences path.
func (c *Config) Save() error {
	return c.SaveTo(ConfigPath())
}

// SaveTo writes c to path.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("runcfg: creating directory for %s: %w", path, err)
	}
	f, err := os.Create(path) // #nosec G304 -- user preferences file path
	if err != nil {
		return fmt.Errorf("runcfg: creating %s: %w", path, err)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(c)
}

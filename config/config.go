// Package config loads the emuram configuration file.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	configDir  string = "emuram"
	configFile string = "config.yml"
)

// Config defines all configuration options available to be set through the config file.
type Config struct {
	// PollInterval is how often attach calls Update
	PollInterval time.Duration `yaml:"poll-interval"`

	// Families limits attach and dump discover to these console families.
	// Empty means all of them.
	Families []string `yaml:"families,omitempty"`

	Debug bool `yaml:"debug"`

	// ScanParallelism bounds concurrent range readers for whole-process scans
	ScanParallelism int `yaml:"scan-parallelism"`

	// DumpDir is where dump save writes when no directory is given
	DumpDir string `yaml:"dump-dir,omitempty"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		PollInterval:    16 * time.Millisecond,
		ScanParallelism: 4,
	}
}

// WantsFamily reports whether family is enabled
func (c *Config) WantsFamily(family string) bool {
	if len(c.Families) == 0 {
		return true
	}
	for _, f := range c.Families {
		if strings.EqualFold(f, family) {
			return true
		}
	}
	return false
}

// fill replaces unset or invalid values with defaults
func (c *Config) fill() {
	d := Default()
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.ScanParallelism < 1 {
		c.ScanParallelism = d.ScanParallelism
	}
}

// GetConfigFilePath returns the default location of file, under
// $XDG_CONFIG_HOME or the platform's user config directory.
func GetConfigFilePath(file string) (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		var err error
		dir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("unable to find the user config directory: %w", err)
		}
	}
	return filepath.Join(dir, configDir, file), nil
}

// LoadConfig reads the config at path, or at the default location when path
// is empty. A missing file is created with the commented defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		var err error
		if path, err = GetConfigFilePath(configFile); err != nil {
			return nil, err
		}
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := createDefaultConfig(path); err != nil {
			return nil, err
		}
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to open config file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("unable to read config data: %w", err)
	}

	c := Default()
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return nil, fmt.Errorf("unable to decode config file %s: %w", path, err)
	}
	c.fill()
	return c, nil
}

// SaveConfig writes conf to path, or to the default location when path is empty
func SaveConfig(path string, conf *Config) error {
	if path == "" {
		var err error
		if path, err = GetConfigFilePath(configFile); err != nil {
			return err
		}
	}

	out, err := yaml.Marshal(conf)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}
	return os.WriteFile(path, out, 0o600)
}

func createDefaultConfig(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create config file: %w", err)
	}
	defer f.Close()
	if err := writeDefaultConfig(f); err != nil {
		return fmt.Errorf("unable to write default configuration: %w", err)
	}
	return nil
}

func writeDefaultConfig(w io.Writer) error {
	_, err := fmt.Fprint(w,
		`# Configuration file for emuram.

# How often "emuram attach" re-checks the emulator.
poll-interval: 16ms

# Console families to try, in order. Leave empty for all of:
# gba, gcn, wii, genesis, ps1, ps2, sms
# families:
#   - gba
#   - ps1

# Log debug output.
debug: false

# Concurrent readers used by "emuram scan --all".
scan-parallelism: 4

# Default output directory for "emuram dump save".
# dump-dir: ./dumps
`)
	return err
}

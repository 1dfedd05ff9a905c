package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// FileConfig mirrors Config for TOML and YAML files. Pointers distinguish
// an absent key from a zero value.
type FileConfig struct {
	Role        string   `toml:"role" yaml:"role"`
	Messages    string   `toml:"messages" yaml:"messages"`
	Port        int      `toml:"port" yaml:"port"`
	Destination string   `toml:"destination" yaml:"destination"`
	Interface   string   `toml:"interface" yaml:"interface"`
	Count       int      `toml:"count" yaml:"count"`
	Quiet       *bool    `toml:"quiet" yaml:"quiet"`
	LogFile     string   `toml:"logfile" yaml:"logfile"`
	Speed       *float64 `toml:"speed" yaml:"speed"`
	Device      string   `toml:"device" yaml:"device"`
	Baud        int      `toml:"baud" yaml:"baud"`
	MetricsAddr string   `toml:"metrics_addr" yaml:"metrics_addr"`
	Wait        *bool    `toml:"wait" yaml:"wait"`
}

// LoadFileConfig reads a config file. Files ending in .yaml or .yml are
// parsed as YAML, everything else as TOML.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := toml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.vdrplayer/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".vdrplayer", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("role", fc.Role, &cfg.Role)
	s.setString("messages", fc.Messages, &cfg.Messages)
	s.setString("destination", fc.Destination, &cfg.Destination)
	s.setString("interface", fc.Interface, &cfg.Interface)
	s.setString("logfile", fc.LogFile, &cfg.LogFile)
	s.setString("device", fc.Device, &cfg.Device)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)

	s.setInt("port", fc.Port, &cfg.Port)
	s.setInt("count", fc.Count, &cfg.Count)
	s.setInt("baud", fc.Baud, &cfg.Baud)

	s.setFloat("speed", fc.Speed, &cfg.Speed)

	s.setBool("quiet", fc.Quiet, &cfg.Quiet)
	s.setBool("wait", fc.Wait, &cfg.Wait)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

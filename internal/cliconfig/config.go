package cliconfig

import (
	"fmt"
	"math"
	"strconv"

	"github.com/bft-labs/vdrplayer/internal/domain"
)

// Defaults of the replay command line.
const (
	DefaultRole     = "tcp"
	DefaultMessages = "0183"
	DefaultPort     = 2947
	DefaultHost     = "localhost"
	DefaultCount    = 1
	DefaultLogFile  = "monitor.csv"
	DefaultSpeed    = 1.0
	DefaultBaud     = 4800
)

// Config holds CLI configuration for vdrplayer.
type Config struct {
	Role        string
	Messages    string
	Port        int
	Destination string
	Interface   string
	Count       int
	Quiet       bool
	LogFile     string

	Speed       float64
	Device      string
	Baud        int
	MetricsAddr string
	Wait        bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Role:        DefaultRole,
		Messages:    DefaultMessages,
		Port:        DefaultPort,
		Destination: DefaultHost,
		Interface:   DefaultHost,
		Count:       DefaultCount,
		LogFile:     DefaultLogFile,
		Speed:       DefaultSpeed,
		Baud:        DefaultBaud,
	}
}

// Validate checks the configuration for errors and sets derived defaults.
// The signalk role always replays SignalK messages.
func (c *Config) Validate() error {
	role, err := domain.ParseRole(c.Role)
	if err != nil {
		return err
	}
	if role == domain.RoleSignalK {
		c.Messages = string(domain.KindSignalK)
	}
	if _, err := domain.ParseMessageKind(c.Messages); err != nil {
		return err
	}

	if c.LogFile == "" {
		c.LogFile = DefaultLogFile
	}
	if c.Count < 1 {
		return invalid("count must be at least 1, got %d", c.Count)
	}
	if math.IsNaN(c.Speed) || math.IsInf(c.Speed, 0) || c.Speed < 0 {
		return invalid("speed must be a finite non-negative number, got %v", c.Speed)
	}

	switch role {
	case domain.RoleSerial:
		if c.Device == "" {
			return invalid("role serial needs a device")
		}
		if c.Baud == 0 {
			c.Baud = DefaultBaud
		}
		if c.Baud < 0 {
			return invalid("baud must be positive, got %d", c.Baud)
		}
	default:
		if c.Port < 1 || c.Port > 65535 {
			return invalid("port must be in 1..65535, got %d", c.Port)
		}
		if c.Interface == "" {
			c.Interface = DefaultHost
		}
		if c.Destination == "" {
			c.Destination = DefaultHost
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setFloat sets a float64 value from a pointer if not nil and flag not changed.
// Zero is a meaningful value, so absence is expressed with nil.
func (s *configSetter) setFloat(flag string, value *float64, dst *float64) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setFloatFromString parses a string to float64 and sets the destination.
// Used for environment variables that come as strings.
func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = f
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}

package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (VDRPLAYER_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("role", os.Getenv("VDRPLAYER_ROLE"), &cfg.Role)
	s.setString("messages", os.Getenv("VDRPLAYER_MESSAGES"), &cfg.Messages)
	s.setString("destination", os.Getenv("VDRPLAYER_DESTINATION"), &cfg.Destination)
	s.setString("interface", os.Getenv("VDRPLAYER_INTERFACE"), &cfg.Interface)
	s.setString("logfile", os.Getenv("VDRPLAYER_LOGFILE"), &cfg.LogFile)
	s.setString("device", os.Getenv("VDRPLAYER_DEVICE"), &cfg.Device)
	s.setString("metrics-addr", os.Getenv("VDRPLAYER_METRICS_ADDR"), &cfg.MetricsAddr)

	if err := s.setIntFromString("port", os.Getenv("VDRPLAYER_PORT"), &cfg.Port); err != nil {
		return err
	}
	if err := s.setIntFromString("count", os.Getenv("VDRPLAYER_COUNT"), &cfg.Count); err != nil {
		return err
	}
	if err := s.setIntFromString("baud", os.Getenv("VDRPLAYER_BAUD"), &cfg.Baud); err != nil {
		return err
	}

	if err := s.setFloatFromString("speed", os.Getenv("VDRPLAYER_SPEED"), &cfg.Speed); err != nil {
		return err
	}

	s.setBoolFromString("quiet", os.Getenv("VDRPLAYER_QUIET"), &cfg.Quiet)
	s.setBoolFromString("wait", os.Getenv("VDRPLAYER_WAIT"), &cfg.Wait)

	return nil
}

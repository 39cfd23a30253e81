package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateNarration(); err != nil {
		return err
	}
	if err := c.validateAssembly(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.BaseDir == "" {
		return errors.New("paths.base_dir must be set")
	}
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateAudio() error {
	if len(c.Audio.Extensions) == 0 {
		return errors.New("audio.extensions must list at least one extension")
	}
	switch c.Audio.Consumption {
	case ConsumptionExclusive, ConsumptionShared:
	default:
		return fmt.Errorf("audio.consumption must be %q or %q, got %q", ConsumptionExclusive, ConsumptionShared, c.Audio.Consumption)
	}
	switch c.Audio.ProbeBackend {
	case ProbeBackendFFprobe, ProbeBackendNative:
	default:
		return fmt.Errorf("audio.probe_backend must be %q or %q, got %q", ProbeBackendFFprobe, ProbeBackendNative, c.Audio.ProbeBackend)
	}
	if c.Audio.ProbeWorkers <= 0 {
		return errors.New("audio.probe_workers must be positive")
	}
	if c.Audio.ProbeTimeoutSeconds <= 0 {
		return errors.New("audio.probe_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateNarration() error {
	if c.Narration.Command == "" {
		return errors.New("narration.command must be set (or EPUB2AUDIO_TTS_COMMAND)")
	}
	if c.Narration.TimeoutSeconds <= 0 {
		return errors.New("narration.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateAssembly() error {
	if len(c.Assembly.CoverNames) == 0 {
		return errors.New("assembly.cover_names must list at least one file name")
	}
	if c.Assembly.VerifyToleranceMs < 0 {
		return errors.New("assembly.verify_tolerance_ms must be non-negative")
	}
	if c.Assembly.MuxTimeoutSeconds <= 0 {
		return errors.New("assembly.mux_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not recognized", c.Logging.Level)
	}
	return nil
}

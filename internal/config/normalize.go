package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAudio()
	c.normalizeNarration()
	c.normalizeAssembly()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("EPUB2AUDIO_BASE_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.BaseDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.BaseDir) == "" {
		c.Paths.BaseDir = defaultBaseDir
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}

	var err error
	if c.Paths.BaseDir, err = expandPath(c.Paths.BaseDir); err != nil {
		return fmt.Errorf("paths.base_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAudio() {
	c.Audio.Extensions = normalizeExtensions(c.Audio.Extensions)
	c.Audio.Consumption = strings.ToLower(strings.TrimSpace(c.Audio.Consumption))
	if c.Audio.Consumption == "" {
		c.Audio.Consumption = ConsumptionExclusive
	}
	c.Audio.ProbeBackend = strings.ToLower(strings.TrimSpace(c.Audio.ProbeBackend))
	if c.Audio.ProbeBackend == "" {
		c.Audio.ProbeBackend = ProbeBackendFFprobe
	}
}

func (c *Config) normalizeNarration() {
	if value, ok := os.LookupEnv("EPUB2AUDIO_TTS_COMMAND"); ok && strings.TrimSpace(value) != "" {
		c.Narration.Command = strings.TrimSpace(value)
	}
	c.Narration.Command = strings.TrimSpace(c.Narration.Command)
	c.Narration.Voice = strings.TrimSpace(c.Narration.Voice)
	c.Narration.OutputExtension = normalizeExtension(c.Narration.OutputExtension)
	if c.Narration.OutputExtension == "" {
		c.Narration.OutputExtension = defaultNarrationExtension
	}
	c.Narration.Bitrate = strings.TrimSpace(c.Narration.Bitrate)
}

func (c *Config) normalizeAssembly() {
	c.Assembly.FFmpegBinary = strings.TrimSpace(c.Assembly.FFmpegBinary)
	c.Assembly.FFprobeBinary = strings.TrimSpace(c.Assembly.FFprobeBinary)
	c.Assembly.OutputExtension = normalizeExtension(c.Assembly.OutputExtension)
	if c.Assembly.OutputExtension == "" {
		c.Assembly.OutputExtension = defaultOutputExtension
	}
	names := make([]string, 0, len(c.Assembly.CoverNames))
	for _, name := range c.Assembly.CoverNames {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	c.Assembly.CoverNames = names
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format == "" {
		format = defaultLogFormat
	}
	c.Logging.Format = format

	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}

func normalizeExtensions(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		ext := normalizeExtension(value)
		if ext == "" {
			continue
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	return out
}

func normalizeExtension(value string) string {
	ext := strings.ToLower(strings.TrimSpace(value))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

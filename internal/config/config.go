package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the book storage and state directories.
type Paths struct {
	BaseDir  string `toml:"base_dir"`
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Library controls how an EPUB is brought into the book layout.
type Library struct {
	SlugifyStem        bool `toml:"slugify_stem"`
	CopyEPUB           bool `toml:"copy_epub"`
	OverwriteExtracted bool `toml:"overwrite_extracted"`
}

// Audio controls audio indexing, reconciliation, and duration probing.
type Audio struct {
	Extensions          []string `toml:"extensions"`
	Consumption         string   `toml:"consumption"`
	ProbeBackend        string   `toml:"probe_backend"`
	ProbeWorkers        int      `toml:"probe_workers"`
	ProbeTimeoutSeconds int      `toml:"probe_timeout_seconds"`
}

// Narration configures the external text-to-speech command.
type Narration struct {
	Command         string `toml:"command"`
	Voice           string `toml:"voice"`
	OutputExtension string `toml:"output_extension"`
	Bitrate         string `toml:"bitrate"`
	SkipExisting    bool   `toml:"skip_existing"`
	Overwrite       bool   `toml:"overwrite"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
}

// Assembly configures the final chaptered container build.
type Assembly struct {
	FFmpegBinary      string   `toml:"ffmpeg_binary"`
	FFprobeBinary     string   `toml:"ffprobe_binary"`
	OutputExtension   string   `toml:"output_extension"`
	CoverNames        []string `toml:"cover_names"`
	VerifyOutput      bool     `toml:"verify_output"`
	VerifyToleranceMs int      `toml:"verify_tolerance_ms"`
	MuxTimeoutSeconds int      `toml:"mux_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for epub2audio.
//
// Configuration sections by subsystem:
//   - Paths: book storage root, registry state, and logs
//   - Library: EPUB import behaviour
//   - Audio: audio indexing, reconciliation policy, and duration probing
//   - Narration: text-to-speech command and transcode settings
//   - Assembly: ffmpeg/ffprobe binaries, cover lookup, output verification
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Library   Library   `toml:"library"`
	Audio     Audio     `toml:"audio"`
	Narration Narration `toml:"narration"`
	Assembly  Assembly  `toml:"assembly"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("epub2audio.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories every command relies on.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.BaseDir, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RegistryPath returns the SQLite database that tracks books.
func (c *Config) RegistryPath() string {
	return filepath.Join(c.Paths.StateDir, "registry.db")
}

// FFprobeBinary returns the ffprobe executable used for duration probing.
func (c *Config) FFprobeBinary() string {
	if bin := strings.TrimSpace(c.Assembly.FFprobeBinary); bin != "" {
		return bin
	}
	return "ffprobe"
}

// FFmpegBinary returns the ffmpeg executable used for transcoding and muxing.
func (c *Config) FFmpegBinary() string {
	if bin := strings.TrimSpace(c.Assembly.FFmpegBinary); bin != "" {
		return bin
	}
	return "ffmpeg"
}

// ProbeTimeout bounds a single duration probe.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Audio.ProbeTimeoutSeconds) * time.Second
}

// MuxTimeout bounds the final ffmpeg invocation.
func (c *Config) MuxTimeout() time.Duration {
	return time.Duration(c.Assembly.MuxTimeoutSeconds) * time.Second
}

// NarrationTimeout bounds one chapter's synthesis + transcode.
func (c *Config) NarrationTimeout() time.Duration {
	return time.Duration(c.Narration.TimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

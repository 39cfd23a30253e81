package config

const (
	defaultConfigPath          = "~/.config/epub2audio/config.toml"
	defaultBaseDir             = "~/.local/share/epub2audio/books"
	defaultStateDir            = "~/.local/share/epub2audio"
	defaultLogDir              = "~/.local/share/epub2audio/logs"
	defaultNarrationCommand    = "say"
	defaultNarrationExtension  = ".m4a"
	defaultNarrationBitrate    = "192k"
	defaultNarrationTimeout    = 1800
	defaultOutputExtension     = ".m4b"
	defaultProbeWorkers        = 4
	defaultProbeTimeoutSeconds = 60
	defaultMuxTimeoutSeconds   = 3600
	defaultVerifyToleranceMs   = 1000
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"

	// ConsumptionExclusive lets each audio file satisfy at most one manifest entry.
	ConsumptionExclusive = "exclusive"
	// ConsumptionShared lets several entries resolve to the same audio file.
	ConsumptionShared = "shared"

	// ProbeBackendFFprobe shells out to ffprobe for durations.
	ProbeBackendFFprobe = "ffprobe"
	// ProbeBackendNative reads durations from container headers in-process.
	ProbeBackendNative = "native"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			BaseDir:  defaultBaseDir,
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Library: Library{
			SlugifyStem:        true,
			CopyEPUB:           true,
			OverwriteExtracted: true,
		},
		Audio: Audio{
			Extensions:          []string{".m4a", ".m4b", ".mp3", ".aac"},
			Consumption:         ConsumptionExclusive,
			ProbeBackend:        ProbeBackendFFprobe,
			ProbeWorkers:        defaultProbeWorkers,
			ProbeTimeoutSeconds: defaultProbeTimeoutSeconds,
		},
		Narration: Narration{
			Command:         defaultNarrationCommand,
			OutputExtension: defaultNarrationExtension,
			Bitrate:         defaultNarrationBitrate,
			SkipExisting:    true,
			TimeoutSeconds:  defaultNarrationTimeout,
		},
		Assembly: Assembly{
			FFmpegBinary:      "ffmpeg",
			FFprobeBinary:     "ffprobe",
			OutputExtension:   defaultOutputExtension,
			CoverNames:        []string{"cover.jpg", "cover.png", "cover.jpeg"},
			VerifyOutput:      true,
			VerifyToleranceMs: defaultVerifyToleranceMs,
			MuxTimeoutSeconds: defaultMuxTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

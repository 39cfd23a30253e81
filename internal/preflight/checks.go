package preflight

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"epub2audio/internal/config"
	"epub2audio/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the external programs for the given config.
// ffprobe is only required when it backs duration probing; with the native
// backend it is optional. The narration command is optional because books
// can arrive with pre-recorded audio.
func CheckSystemDeps(_ context.Context, cfg *config.Config) []deps.Status {
	nativeProbe := cfg.Audio.ProbeBackend == config.ProbeBackendNative
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required for transcoding narration and muxing the audiobook",
		},
		{
			Name:        "FFprobe",
			Command:     deps.ResolveFFprobe(cfg.FFmpegBinary(), cfg.FFprobeBinary()),
			Description: "Required for chapter duration probing and output verification",
			Optional:    nativeProbe,
		},
		{
			Name:        "Narration",
			Command:     cfg.Narration.Command,
			Description: "Text-to-speech command used by the narrate stage",
			Optional:    true,
		},
	}
	return deps.CheckBinaries(requirements)
}

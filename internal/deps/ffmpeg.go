package deps

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ResolveFFprobe returns the ffprobe executable to run. An explicitly
// configured path wins; otherwise an ffprobe installed next to the resolved
// ffmpeg binary is preferred over the one on PATH so both tools come from the
// same build.
func ResolveFFprobe(ffmpegBinary, ffprobeBinary string) string {
	configured := strings.TrimSpace(ffprobeBinary)
	if configured != "" && configured != "ffprobe" {
		return configured
	}
	if ffmpeg := strings.TrimSpace(ffmpegBinary); ffmpeg != "" {
		if resolved, err := exec.LookPath(ffmpeg); err == nil {
			candidate := filepath.Join(filepath.Dir(resolved), executableName("ffprobe"))
			if info, err := os.Stat(candidate); err == nil && isExecutable(info) {
				return candidate
			}
		}
	}
	return "ffprobe"
}

func executableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}

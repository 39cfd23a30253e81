package preflight

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// ToolVersion returns the first line of `<binary> -version`, or "" when the
// binary is missing or does not answer within two seconds.
func ToolVersion(ctx context.Context, binary string) string {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return ""
	}
	if _, err := exec.LookPath(binary); err != nil {
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, binary, "-version").Output()
	if err != nil {
		return ""
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(output)), "\n")
	return strings.TrimSpace(line)
}

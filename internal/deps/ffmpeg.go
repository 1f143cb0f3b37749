package deps

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const versionTimeout = 10 * time.Second

// CheckFFmpeg runs `ffmpeg -version` and `ffmpeg -encoders` and reports the
// version along with whether the libx264 and aac encoders are built in.
func CheckFFmpeg(ctx context.Context, binary string) Status {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	result := Status{
		Name:        "FFmpeg",
		Command:     binary,
		Description: "Compresses video and extracts thumbnails",
	}
	resolved, err := exec.LookPath(binary)
	if err != nil {
		result.Detail = fmt.Sprintf("binary %q not found", binary)
		return result
	}
	result.Command = resolved

	out, err := runTool(ctx, resolved, "-hide_banner", "-version")
	if err != nil {
		result.Detail = fmt.Sprintf("ffmpeg -version failed: %v", err)
		return result
	}
	version := ParseVersion(out)

	encoders, err := runTool(ctx, resolved, "-hide_banner", "-encoders")
	if err != nil {
		result.Detail = fmt.Sprintf("ffmpeg -encoders failed: %v", err)
		return result
	}
	var missing []string
	for _, enc := range []string{"libx264", "aac"} {
		if !HasEncoder(encoders, enc) {
			missing = append(missing, enc)
		}
	}
	if len(missing) > 0 {
		result.Detail = fmt.Sprintf("ffmpeg %s lacks encoders: %s", version, strings.Join(missing, ", "))
		return result
	}
	result.Available = true
	result.Detail = "version " + version
	return result
}

func runTool(ctx context.Context, binary string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return stdout.String(), nil
}

// ParseVersion extracts the version token from `ffmpeg -version` output.
func ParseVersion(output string) string {
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 3 && fields[0] == "ffmpeg" && fields[1] == "version" {
			return fields[2]
		}
	}
	return "unknown"
}

// HasEncoder reports whether name appears in the encoder column of
// `ffmpeg -encoders` output. The legend above the dashed separator is ignored.
func HasEncoder(output, name string) bool {
	if idx := strings.Index(output, "------"); idx >= 0 {
		output = output[idx+len("------"):]
	}
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && len(fields[0]) == 6 && fields[1] == name {
			return true
		}
	}
	return false
}

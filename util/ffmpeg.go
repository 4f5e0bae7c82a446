package util

import (
	"fmt"
	"os"
	"os/exec"
)

// LocateFFmpeg resolves the ffmpeg binary. The FFMPEG environment variable
// wins over the configured name, which is looked up in $PATH.
func LocateFFmpeg(binary string) (string, error) {
	if p := os.Getenv("FFMPEG"); p != "" {
		binary = p
	}
	if binary == "" {
		binary = "ffmpeg"
	}
	p, err := exec.LookPath(binary)
	if err != nil {
		return "", fmt.Errorf("locate ffmpeg: %w", err)
	}
	return p, nil
}

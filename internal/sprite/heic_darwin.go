//go:build darwin

package sprite

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// jpegIfHEIC converts HEIC/HEIF artwork to a temporary JPEG with sips, since
// the image decoders cannot read it. Other paths are returned unchanged
// with a nil cleanup.
func jpegIfHEIC(path string) (string, func(), error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".heic" && ext != ".heif" {
		return path, nil, nil
	}
	tmp, err := os.CreateTemp("", "floatoverlay-sprite-*.jpg")
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	cmd := exec.Command("sips", "-s", "format", "jpeg", path, "--out", tmpPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		os.Remove(tmpPath)
		return "", nil, fmt.Errorf("sips convert %s: %w (%s)", path, err, out)
	}
	return tmpPath, func() { os.Remove(tmpPath) }, nil
}

//go:build !darwin && !windows

package overlay

import "FloatOverlay/internal/window"

// applyNativeFlags is a no-op elsewhere; ebiten's floating and mouse
// passthrough settings cover the flags.
func applyNativeFlags(string, window.Flags, zLevel) bool {
	return true
}

// Package window owns the single relationship between the overlay surface
// and the platform's global window layer.
package window

import (
	"fmt"
	"image"
)

// Flags are the window-layer behaviours requested for the overlay.
type Flags struct {
	Touchable   bool `json:"touchable"`
	Focusable   bool `json:"focusable"`
	AlwaysOnTop bool `json:"alwaysOnTop"`
}

// Layer is the platform layer the overlay is placed in. It only matters
// with AlwaysOnTop: an overlay sits above other floating windows, a panel
// at the ordinary floating level.
type Layer string

const (
	LayerOverlay Layer = "overlay"
	LayerPanel   Layer = "panel"
)

// Spec describes the overlay window as it should appear on screen.
type Spec struct {
	Width  int   `json:"width"`
	Height int   `json:"height"`
	X      int   `json:"x"`
	Y      int   `json:"y"`
	Flags  Flags `json:"flags"`
	Layer  Layer `json:"layer"`
}

// Rect returns the screen rectangle covered by the spec.
func (s Spec) Rect() image.Rectangle {
	return image.Rect(s.X, s.Y, s.X+s.Width, s.Y+s.Height)
}

// At returns a copy of s moved to (x, y).
func (s Spec) At(x, y int) Spec {
	s.X, s.Y = x, y
	return s
}

// Validate reports specs the platform would never accept.
func (s Spec) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("window spec: size must be positive, got %dx%d", s.Width, s.Height)
	}
	return nil
}

func (s Spec) String() string {
	return fmt.Sprintf("%dx%d@(%d,%d) layer=%s touch=%t focus=%t top=%t",
		s.Width, s.Height, s.X, s.Y, s.Layer, s.Flags.Touchable, s.Flags.Focusable, s.Flags.AlwaysOnTop)
}

package window

import (
	"image"
	"math"
)

// Clamp keeps the window fully inside screen. A window larger than the
// screen is pinned to the screen's top-left corner. An empty screen leaves
// the spec untouched.
func Clamp(s Spec, screen image.Rectangle) Spec {
	if screen.Empty() {
		return s
	}
	if maxX := screen.Max.X - s.Width; s.X > maxX {
		s.X = maxX
	}
	if maxY := screen.Max.Y - s.Height; s.Y > maxY {
		s.Y = maxY
	}
	if s.X < screen.Min.X {
		s.X = screen.Min.X
	}
	if s.Y < screen.Min.Y {
		s.Y = screen.Min.Y
	}
	return s
}

// Rescale moves the window so its centre keeps the same relative position
// when the screen changes from one geometry to another (rotation, resolution
// change), then clamps it to the new screen.
func Rescale(s Spec, from, to image.Rectangle) Spec {
	if from.Empty() || to.Empty() {
		return Clamp(s, to)
	}
	rx := (float64(s.X-from.Min.X) + float64(s.Width)/2) / float64(from.Dx())
	ry := (float64(s.Y-from.Min.Y) + float64(s.Height)/2) / float64(from.Dy())
	s.X = to.Min.X + int(math.Round(rx*float64(to.Dx())-float64(s.Width)/2))
	s.Y = to.Min.Y + int(math.Round(ry*float64(to.Dy())-float64(s.Height)/2))
	return Clamp(s, to)
}

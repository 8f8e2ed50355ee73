package display

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
)

// Display represents a physical monitor (from OS).
type Display struct {
	Index   int             `json:"index"`
	ID      string          `json:"id"`
	Width   int             `json:"width"`
	Height  int             `json:"height"`
	Primary bool            `json:"primary"`
	Bounds  image.Rectangle `json:"-"`
}

// Count returns the number of active displays.
func Count() int {
	return screenshot.NumActiveDisplays()
}

// List returns currently connected displays. ID is "display-0", "display-1", ...
func List() ([]Display, error) {
	n := screenshot.NumActiveDisplays()
	if n <= 0 {
		return nil, nil
	}
	out := make([]Display, 0, n)
	for i := 0; i < n; i++ {
		bounds := screenshot.GetDisplayBounds(i)
		w := bounds.Dx()
		h := bounds.Dy()
		if w <= 0 {
			w = 1920
		}
		if h <= 0 {
			h = 1080
		}
		out = append(out, Display{
			Index:   i,
			ID:      fmt.Sprintf("display-%d", i),
			Width:   w,
			Height:  h,
			Primary: i == 0,
			Bounds:  image.Rect(bounds.Min.X, bounds.Min.Y, bounds.Min.X+w, bounds.Min.Y+h),
		})
	}
	return out, nil
}

// PrimaryBounds returns the bounds of the primary display, or an empty
// rectangle when no display is reported.
func PrimaryBounds() image.Rectangle {
	ds, _ := List()
	for _, d := range ds {
		if d.Primary {
			return d.Bounds
		}
	}
	return image.Rectangle{}
}

// Orientation of a screen.
type Orientation int

const (
	Landscape Orientation = iota
	Portrait
)

func (o Orientation) String() string {
	if o == Portrait {
		return "portrait"
	}
	return "landscape"
}

// OrientationOf returns Portrait when r is taller than it is wide.
func OrientationOf(r image.Rectangle) Orientation {
	if r.Dy() > r.Dx() {
		return Portrait
	}
	return Landscape
}

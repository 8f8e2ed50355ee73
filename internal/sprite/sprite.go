package sprite

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"
)

// subImager is implemented by every decoded image type from the stdlib decoders.
type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// Decode opens and decodes one image file. On macOS HEIC/HEIF is accepted too.
func Decode(path string) (image.Image, error) {
	src, cleanup, err := jpegIfHEIC(path)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	f, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// FramesFromFiles loads a list of image files, one frame each.
// Used when not using a sprite sheet (row/col).
func FramesFromFiles(paths []string) ([]image.Image, error) {
	var out []image.Image
	for _, p := range paths {
		img, err := Decode(p)
		if err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, nil
}

// FramesFromSheet loads one image and slices it into frames by row x col.
func FramesFromSheet(path string, rows, cols int) ([]image.Image, error) {
	img, err := Decode(path)
	if err != nil {
		return nil, err
	}
	return SliceSheet(img, rows, cols)
}

// SliceSheet cuts sheet into rows x cols frames, row by row.
func SliceSheet(sheet image.Image, rows, cols int) ([]image.Image, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("sprite sheet needs rows and cols > 0, got %dx%d", rows, cols)
	}
	si, ok := sheet.(subImager)
	if !ok {
		return nil, fmt.Errorf("sprite sheet of type %T cannot be sliced", sheet)
	}
	b := sheet.Bounds()
	frameW := b.Dx() / cols
	frameH := b.Dy() / rows
	if frameW == 0 || frameH == 0 {
		return nil, fmt.Errorf("sprite sheet %dx%d too small for %dx%d frames", b.Dx(), b.Dy(), rows, cols)
	}
	var out []image.Image
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			x := b.Min.X + col*frameW
			y := b.Min.Y + row*frameH
			out = append(out, si.SubImage(image.Rect(x, y, x+frameW, y+frameH)))
		}
	}
	return out, nil
}

// Fit scales img to exactly w x h with CatmullRom resampling.
// Images already at that size are returned as is.
func Fit(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return img
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// Load returns the frames for a sprite entry fitted to w x h. An empty
// path returns no frames and no error.
func Load(path string, rows, cols, w, h int) ([]image.Image, error) {
	if path == "" {
		return nil, nil
	}
	var (
		frames []image.Image
		err    error
	)
	if rows > 0 && cols > 0 {
		frames, err = FramesFromSheet(path, rows, cols)
	} else {
		frames, err = FramesFromFiles([]string{path})
	}
	if err != nil {
		return nil, err
	}
	for i, f := range frames {
		frames[i] = Fit(f, w, h)
	}
	return frames, nil
}

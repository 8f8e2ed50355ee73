package sprite

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sheet(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 0, 255})
		}
	}
	return img
}

func TestSliceSheet(t *testing.T) {
	frames, err := SliceSheet(sheet(40, 20), 2, 4)
	require.NoError(t, err)
	require.Len(t, frames, 8)
	assert.Equal(t, image.Rect(0, 0, 10, 10), frames[0].Bounds())
	assert.Equal(t, image.Rect(30, 10, 40, 20), frames[7].Bounds())
}

func TestSliceSheet_Invalid(t *testing.T) {
	_, err := SliceSheet(sheet(4, 4), 0, 2)
	assert.Error(t, err)
	_, err = SliceSheet(sheet(4, 4), 8, 8)
	assert.Error(t, err)
}

func TestFit(t *testing.T) {
	src := sheet(64, 32)
	assert.Same(t, src, Fit(src, 64, 32))

	got := Fit(src, 128, 128)
	assert.Equal(t, image.Rect(0, 0, 128, 128), got.Bounds())
}

func TestLoad(t *testing.T) {
	p := filepath.Join(t.TempDir(), "sheet.png")
	f, err := os.Create(p)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, sheet(40, 20)))
	require.NoError(t, f.Close())

	frames, err := Load(p, 1, 2, 64, 64)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, 64, frames[1].Bounds().Dx())

	frames, err = Load(p, 0, 0, 40, 20)
	require.NoError(t, err)
	assert.Len(t, frames, 1)

	frames, err = Load("", 0, 0, 10, 10)
	assert.NoError(t, err)
	assert.Empty(t, frames)

	_, err = Load(filepath.Join(t.TempDir(), "missing.png"), 0, 0, 10, 10)
	assert.Error(t, err)
}

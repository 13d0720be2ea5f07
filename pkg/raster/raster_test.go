package raster

import(
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/mdouchement/hdr/hdrcolor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numbered(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y:=0; y<h; y++ {
		for x:=0; x<w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x), uint8(y), 0, 255})
		}
	}
	return img
}

func TestSameSize(t *testing.T) {
	assert.NoError(t, SameSize())
	assert.NoError(t, SameSize(image.Rect(0, 0, 3, 4), image.Rect(10, 10, 13, 14)))

	err := SameSize(image.Rect(0, 0, 3, 4), image.Rect(0, 0, 3, 4), image.Rect(0, 0, 4, 3))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrShapeMismatch))
	assert.Contains(t, err.Error(), "3x4 vs 4x3")
}

func TestShiftLeft(t *testing.T) {
	img := numbered(5, 2)

	tests := []struct{
		dist int
		want []uint8 // x values of row 0 after the shift
	}{
		{0, []uint8{0, 1, 2, 3, 4}},
		{2, []uint8{2, 3, 4, 0, 1}},
		{7, []uint8{2, 3, 4, 0, 1}},
		{-1, []uint8{4, 0, 1, 2, 3}},
		{5, []uint8{0, 1, 2, 3, 4}},
	}
	for _, tc := range tests {
		out := ShiftLeft(img, tc.dist)
		got := []uint8{}
		for x:=0; x<5; x++ {
			got = append(got, out.NRGBAAt(x, 0).R)
		}
		assert.Equal(t, tc.want, got, "dist=%d", tc.dist)
		assert.Equal(t, uint8(1), out.NRGBAAt(0, 1).G)
	}
}

func TestShiftLeftSubImage(t *testing.T) {
	sub := numbered(10, 3).SubImage(image.Rect(4, 1, 8, 3))
	out := ShiftLeft(sub, 1)
	assert.Equal(t, image.Rect(0, 0, 4, 2), out.Bounds())
	assert.Equal(t, uint8(5), out.NRGBAAt(0, 0).R)
	assert.Equal(t, uint8(4), out.NRGBAAt(3, 0).R)
	assert.Equal(t, uint8(1), out.NRGBAAt(0, 0).G)
}

func TestCropAndResize(t *testing.T) {
	img := numbered(6, 6)

	c := Crop(img, 4, 3)
	assert.Equal(t, image.Rect(0, 0, 4, 3), c.Bounds())
	assert.Equal(t, color.NRGBA{3, 2, 0, 255}, c.NRGBAAt(3, 2))

	assert.Equal(t, image.Rect(0, 0, 6, 6), Crop(img, 100, 100).Bounds())
	assert.Equal(t, image.Rect(0, 0, 0, 0), Crop(img, -1, -1).Bounds())

	r := Resize(img, 12, 3)
	assert.Equal(t, image.Rect(0, 0, 12, 3), r.Bounds())

	n := ToNRGBA(img.SubImage(image.Rect(2, 2, 4, 4)))
	assert.Equal(t, color.NRGBA{2, 2, 0, 255}, n.NRGBAAt(0, 0))
	assert.Equal(t, image.Rect(0, 0, 2, 2), n.Bounds())
}

func TestPNGRoundTrip(t *testing.T) {
	dir := t.TempDir()
	img := numbered(7, 5)

	fn := filepath.Join(dir, "n.png")
	require.NoError(t, WritePNG(img, fn))
	back, err := LoadImage(fn)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), back.Bounds())
	assert.Equal(t, color.NRGBAModel.Convert(back.At(6, 4)), color.NRGBA{6, 4, 0, 255})

	require.NoError(t, WriteJPEG(img, filepath.Join(dir, "n.jpg")))

	_, err = LoadImage(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
	assert.Error(t, WritePNG(img, filepath.Join(dir, "nosuchdir", "x.png")))
}

func TestHDRUpscaleAndCrop(t *testing.T) {
	h := NewHDR(2, 2)
	h.SetRGB(0, 0, hdrcolor.RGB{R: 1})
	h.SetRGB(1, 0, hdrcolor.RGB{G: 2})
	h.SetRGB(0, 1, hdrcolor.RGB{B: 3})
	h.SetRGB(1, 1, hdrcolor.RGB{R: 4, G: 4, B: 4})

	up, err := h.Upscale(3)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 6, 6), up.Bounds())
	assert.Equal(t, 36, up.Size())
	assert.Equal(t, hdrcolor.RGB{R: 1}, up.RGBAt(2, 2))
	assert.Equal(t, hdrcolor.RGB{G: 2}, up.RGBAt(3, 0))
	assert.Equal(t, hdrcolor.RGB{B: 3}, up.RGBAt(0, 5))
	assert.Equal(t, hdrcolor.RGB{R: 4, G: 4, B: 4}, up.RGBAt(5, 5))

	_, err = h.Upscale(0)
	assert.Error(t, err)

	c := up.Crop(4, 5)
	assert.Equal(t, image.Rect(0, 0, 4, 5), c.Bounds())
	assert.Equal(t, hdrcolor.RGB{G: 2}, c.RGBAt(3, 2))
	assert.Equal(t, hdrcolor.RGB{R: 4, G: 4, B: 4}, c.RGBAt(3, 4))

	assert.Equal(t, image.Rect(0, 0, 6, 6), up.Crop(10, 10).Bounds())
	assert.Equal(t, "HDR[4x5]", c.String())

	r := h.ResizeNearest(4, 1)
	assert.Equal(t, hdrcolor.RGB{R: 1}, r.RGBAt(1, 0))
	assert.Equal(t, hdrcolor.RGB{G: 2}, r.RGBAt(2, 0))
}

func TestHDRSaveOpen(t *testing.T) {
	h := NewHDR(4, 3)
	for y:=0; y<3; y++ {
		for x:=0; x<4; x++ {
			h.SetRGB(x, y, hdrcolor.RGB{R: float64(x+1), G: 0.5, B: float64(y) * 2.0})
		}
	}

	fn := filepath.Join(t.TempDir(), "h.hdr")
	require.NoError(t, h.Save(fn))

	back, err := OpenHDR(fn)
	require.NoError(t, err)
	require.Equal(t, h.Bounds(), back.Bounds())

	// RGBE keeps 8 bits of mantissa per channel
	for y:=0; y<3; y++ {
		for x:=0; x<4; x++ {
			want, got := h.RGBAt(x, y), back.RGBAt(x, y)
			assert.InDelta(t, want.R, got.R, 0.05*want.R+0.02)
			assert.InDelta(t, want.G, got.G, 0.05*want.G+0.02)
			assert.InDelta(t, want.B, got.B, 0.05*want.B+0.02)
		}
	}

	_, err = OpenHDR(filepath.Join(t.TempDir(), "missing.hdr"))
	assert.Error(t, err)
}

package raster

import(
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"

	"golang.org/x/image/draw" // replace by "image/draw" at some point
)

// ErrShapeMismatch means two rasters that have to line up pixel-for-pixel
// don't. Callers must resize or crop before retrying.
var ErrShapeMismatch = errors.New("raster dimensions differ")

// SameSize returns a wrapped ErrShapeMismatch unless all the rectangles
// have the same width and height.
func SameSize(rects ...image.Rectangle) error {
	for i:=1; i<len(rects); i++ {
		if rects[i].Dx() != rects[0].Dx() || rects[i].Dy() != rects[0].Dy() {
			return fmt.Errorf("%w: %dx%d vs %dx%d", ErrShapeMismatch,
				rects[0].Dx(), rects[0].Dy(), rects[i].Dx(), rects[i].Dy())
		}
	}
	return nil
}

// LoadImage decodes a JPEG or PNG file.
func LoadImage(filename string) (image.Image, error) {
	reader, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open+r '%s': %v", filename, err)
	}
	defer reader.Close()

	img, _, err := image.Decode(reader)
	if err != nil {
		return nil, fmt.Errorf("decode '%s': %v", filename, err)
	}
	return img, nil
}

func WritePNG(img image.Image, filename string) error {
	if writer, err := os.Create(filename); err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	} else {
		defer writer.Close()
		return png.Encode(writer, img)
	}
}

func WriteJPEG(img image.Image, filename string) error {
	if writer, err := os.Create(filename); err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	} else {
		defer writer.Close()
		return jpeg.Encode(writer, img, &jpeg.Options{Quality: 95})
	}
}

// ToNRGBA copies any image into a fresh NRGBA with its origin at (0,0).
func ToNRGBA(src image.Image) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// Crop returns a copy of the top-left w x h region, clamped to the image.
func Crop(src image.Image, w, h int) *image.NRGBA {
	b := src.Bounds()
	if w > b.Dx() { w = b.Dx() }
	if h > b.Dy() { h = b.Dy() }
	if w < 0 { w = 0 }
	if h < 0 { h = 0 }

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// ShiftLeft rotates a panorama horizontally by dist pixels; columns that
// fall off the left edge reappear on the right. Negative dist shifts right.
func ShiftLeft(src image.Image, dist int) *image.NRGBA {
	b := src.Bounds()
	w := b.Dx()
	dst := image.NewNRGBA(image.Rect(0, 0, w, b.Dy()))
	if w == 0 {
		return dst
	}

	dist %= w
	if dist < 0 {
		dist += w
	}

	// [dist, w) -> [0, w-dist), then [0, dist) -> [w-dist, w)
	draw.Draw(dst, image.Rect(0, 0, w-dist, b.Dy()), src, image.Point{b.Min.X + dist, b.Min.Y}, draw.Src)
	draw.Draw(dst, image.Rect(w-dist, 0, w, b.Dy()), src, b.Min, draw.Src)
	return dst
}

// Resize scales an image to w x h with Catmull-Rom interpolation.
func Resize(src image.Image, w, h int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

package raster

import(
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/codec/rgbe"
	"github.com/mdouchement/hdr/hdrcolor"
)

// HDR is a floating point radiance raster. It implements image.Image and
// hdr.Image, so it can be fed straight into the rgbe encoder and the
// tonemappers. The origin is always (0,0).
type HDR struct {
	Rect image.Rectangle
	Pix  []hdrcolor.RGB // row-major
}

// Implement image.Image
func (h *HDR)ColorModel() color.Model       { return hdrcolor.RGBModel }
func (h *HDR)Bounds() image.Rectangle       { return h.Rect }
func (h *HDR)At(x, y int) color.Color       { return h.RGBAt(x, y) }

// Implement hdr.Image
func (h *HDR)HDRAt(x, y int) hdrcolor.Color { return h.RGBAt(x, y) }
func (h *HDR)Size() int                     { return h.Rect.Dx() * h.Rect.Dy() }

// Pixel access
func (h *HDR)RGBAt(x, y int) hdrcolor.RGB       { return h.Pix[y*h.Rect.Dx() + x] }
func (h *HDR)SetRGB(x, y int, c hdrcolor.RGB)   { h.Pix[y*h.Rect.Dx() + x] = c }

func NewHDR(w, h int) *HDR {
	return &HDR{
		Rect: image.Rect(0, 0, w, h),
		Pix:  make([]hdrcolor.RGB, w*h),
	}
}

func (h *HDR)String() string {
	return fmt.Sprintf("HDR[%dx%d]", h.Rect.Dx(), h.Rect.Dy())
}

// NewHDRFrom copies any hdr.Image into an HDR, shifting its origin to (0,0).
func NewHDRFrom(src hdr.Image) *HDR {
	b := src.Bounds()
	dst := NewHDR(b.Dx(), b.Dy())
	for y:=0; y<b.Dy(); y++ {
		for x:=0; x<b.Dx(); x++ {
			r, g, bl, _ := src.HDRAt(x+b.Min.X, y+b.Min.Y).HDRRGBA()
			dst.SetRGB(x, y, hdrcolor.RGB{R: r, G: g, B: bl})
		}
	}
	return dst
}

// OpenHDR reads a radiance (RGBE) file.
func OpenHDR(filename string) (*HDR, error) {
	reader, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open+r '%s': %v", filename, err)
	}
	defer reader.Close()

	img, err := rgbe.Decode(reader)
	if err != nil {
		return nil, fmt.Errorf("rgbe decode '%s': %v", filename, err)
	}

	hdrImg, ok := img.(hdr.Image)
	if !ok {
		return nil, fmt.Errorf("rgbe decode '%s': got %T, not an HDR image", filename, img)
	}

	return NewHDRFrom(hdrImg), nil
}

// Save writes the raster as a radiance (RGBE) file.
func (h *HDR)Save(filename string) error {
	writer, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	}
	defer writer.Close()

	if err := rgbe.Encode(writer, h); err != nil {
		return fmt.Errorf("rgbe encode '%s': %v", filename, err)
	}
	return nil
}

// Upscale does nearest-neighbour upscaling by an integer factor; each
// source pixel becomes a factor x factor block. It is used to line up the
// low-res output of the HDR converter with the panorama.
func (h *HDR)Upscale(factor int) (*HDR, error) {
	if factor < 1 {
		return nil, fmt.Errorf("upscale %s: factor %d < 1", h, factor)
	}

	w, ht := h.Rect.Dx(), h.Rect.Dy()
	dst := NewHDR(w*factor, ht*factor)
	for y:=0; y<dst.Rect.Dy(); y++ {
		for x:=0; x<dst.Rect.Dx(); x++ {
			dst.SetRGB(x, y, h.RGBAt(x/factor, y/factor))
		}
	}
	return dst, nil
}

// ResizeNearest scales to an arbitrary size without blending pixels, so
// label images keep their palette colours.
func (h *HDR)ResizeNearest(w, ht int) *HDR {
	dst := NewHDR(w, ht)
	sw, sh := h.Rect.Dx(), h.Rect.Dy()
	if sw == 0 || sh == 0 {
		return dst
	}
	for y:=0; y<ht; y++ {
		for x:=0; x<w; x++ {
			dst.SetRGB(x, y, h.RGBAt(x*sw/w, y*sh/ht))
		}
	}
	return dst
}

// Crop returns the top-left w x h region. The size is clamped to the
// raster's own size.
func (h *HDR)Crop(w, ht int) *HDR {
	if w > h.Rect.Dx()  { w = h.Rect.Dx() }
	if ht > h.Rect.Dy() { ht = h.Rect.Dy() }
	if w < 0  { w = 0 }
	if ht < 0 { ht = 0 }

	dst := NewHDR(w, ht)
	for y:=0; y<ht; y++ {
		copy(dst.Pix[y*w:(y+1)*w], h.Pix[y*h.Rect.Dx():y*h.Rect.Dx()+w])
	}
	return dst
}

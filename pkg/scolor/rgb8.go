package scolor

import(
	"fmt"
	"image/color"

	"github.com/mdouchement/hdr/hdrcolor"
)

// Rec. 709 luma weights, applied to gamma-encoded channel values.
const(
	LumaR = 0.2126
	LumaG = 0.7152
	LumaB = 0.0722
)

// An RGB8 is a display-referred colour, 8 bits per channel, as read from
// an LDR raster. Alpha is dropped.
type RGB8 struct {
	R, G, B uint8
}

// NewRGB8 maps any color.Color into 8-bit, non-premultiplied RGB. HDR
// colours are clipped to [0,1] first.
func NewRGB8(c color.Color) RGB8 {
	if hc, ok := c.(hdrcolor.Color); ok {
		r, g, b, _ := hc.HDRRGBA()
		return RGB8{unitToU8(r), unitToU8(g), unitToU8(b)}
	}
	nc := color.NRGBAModel.Convert(c).(color.NRGBA)
	return RGB8{nc.R, nc.G, nc.B}
}

func unitToU8(f float64) uint8 {
	if f <= 0.0 { return 0 }
	if f >= 1.0 { return 255 }
	return uint8(f*255.0 + 0.5)
}

func (c RGB8)String() string { return fmt.Sprintf("(%3d,%3d,%3d)", c.R, c.G, c.B) }

// Luma returns the weighted channel sum, on the [0,255] scale.
func (c RGB8)Luma() float64 { return Luma(float64(c.R), float64(c.G), float64(c.B)) }

func Luma(r, g, b float64) float64 {
	return LumaR*r + LumaG*g + LumaB*b
}

// LumaOf is a convenience for Luma(NewRGB8(c)).
func LumaOf(c color.Color) float64 { return NewRGB8(c).Luma() }

// ColourDiff is the sum of absolute per-channel differences, in [0, 765].
func ColourDiff(c1, c2 RGB8) int {
	return absDiff(c1.R, c2.R) + absDiff(c1.G, c2.G) + absDiff(c1.B, c2.B)
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a) - int(b)
	}
	return int(b) - int(a)
}

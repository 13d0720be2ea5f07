package sky

import(
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/abworrall/panosky/pkg/raster"
	"github.com/abworrall/panosky/pkg/scolor"
)

// MatteMode says which side of the matte ends up opaque.
type MatteMode int

const(
	// MatteForeground makes pixels that match the rendered sky transparent,
	// and occluders (buildings, trees, people) opaque.
	MatteForeground MatteMode = iota

	// MatteKeepSky is the inverse: alpha = 255 - round(d*255).
	MatteKeepSky
)

func (m MatteMode)String() string {
	if m == MatteKeepSky {
		return "keepsky"
	}
	return "foreground"
}

func ParseMatteMode(s string) (MatteMode, error) {
	switch s {
	case "foreground", "": return MatteForeground, nil
	case "keepsky":        return MatteKeepSky, nil
	}
	return MatteForeground, fmt.Errorf("matte mode '%s' is not one of foreground, keepsky", s)
}

// ExtractSkyMatte compares a photo with a rendered clear sky of the same
// size, and returns the photo with an alpha channel derived from how much
// brighter than the render each pixel is. Pixels darker than the render
// count as matching it.
//
// With MatteForeground, pixels that match the render get alpha 0. MatteKeepSky
// is the literal alpha = 255 - round(d*255) form, and is the mode to use
// when comparing against removedsky images made by the older tool.
func ExtractSkyMatte(original, reference image.Image, mode MatteMode, workers int) (*image.NRGBA, error) {
	ob, rb := original.Bounds(), reference.Bounds()
	if err := raster.SameSize(ob, rb); err != nil {
		return nil, fmt.Errorf("sky matte: %w", err)
	}

	w, h := ob.Dx(), ob.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, w, h))

	forEachIndex(h, workers, func(y int) {
		for x:=0; x<w; x++ {
			o := scolor.NewRGB8(original.At(ob.Min.X+x, ob.Min.Y+y))
			r := scolor.NewRGB8(reference.At(rb.Min.X+x, rb.Min.Y+y))
			out.SetNRGBA(x, y, color.NRGBA{o.R, o.G, o.B, matteAlpha(o, r, mode)})
		}
	})

	return out, nil
}

func matteAlpha(o, r scolor.RGB8, mode MatteMode) uint8 {
	d := scolor.Luma(posDiff(o.R, r.R), posDiff(o.G, r.G), posDiff(o.B, r.B))
	a := math.Round(d * 255.0)
	if mode == MatteKeepSky {
		a = 255.0 - a
	}
	if a < 0   { a = 0 }
	if a > 255 { a = 255 }
	return uint8(a)
}

// posDiff is (a-b)/255, floored at zero.
func posDiff(a, b uint8) float64 {
	if a <= b {
		return 0.0
	}
	return float64(a-b) / 255.0
}

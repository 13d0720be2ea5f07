package scolor

import(
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/mdouchement/hdr/hdrcolor"
)

// A CloudClass is one of the labels the external cloud classifier paints
// into its output image, one flat colour per class.
type CloudClass int

const(
	ClearSky CloudClass = iota
	Stratocumulus
	Cumulus
	Cirrus
	Unlabeled
)

// CutoutClasses are the classes that get their own cutout image. Between
// them they cover every pixel (see CutoutClass).
var CutoutClasses = []CloudClass{ClearSky, Stratocumulus, Cumulus, Cirrus}

var(
	paletteUnlabeled     = RGB8{0, 0, 0}
	paletteStratocumulus = RGB8{255, 0, 255}
	paletteCumulus       = RGB8{255, 0, 0}
	paletteCirrus        = RGB8{0, 255, 0}

	// Float versions, for labels read back from HDR files
	nearPalette = []struct{
		col   colorful.Color
		class CloudClass
	}{
		{colorful.Color{R: 0, G: 0, B: 0}, Unlabeled},
		{colorful.Color{R: 1, G: 0, B: 1}, Stratocumulus},
		{colorful.Color{R: 1, G: 0, B: 0}, Cumulus},
		{colorful.Color{R: 0, G: 1, B: 0}, Cirrus},
	}
)

// NearMatchTolerance is the largest RGB distance (channels in [0,1]) at which
// an HDR label colour still counts as a palette colour. RGBE quantization
// and resampling leave labels a little off their nominal values.
const NearMatchTolerance = 0.1

// Scattering coefficients per class. Clear sky and unlabeled pixels have none.
const(
	SigmaStratocumulus = 0.1222340 + 0.0000000844671
	SigmaCumulus       = 0.0814896 + 0.000000110804
	SigmaCirrus        = 0.1661800 + 0.000000001
)

func (c CloudClass)String() string {
	switch c {
	case ClearSky:      return "clearsky"
	case Stratocumulus: return "stratocumulus"
	case Cumulus:       return "cumulus"
	case Cirrus:        return "cirrus"
	case Unlabeled:     return "unlabeled"
	}
	return fmt.Sprintf("CloudClass(%d)", int(c))
}

// CutoutClass folds Unlabeled into ClearSky, so that the four cutouts
// partition the image.
func (c CloudClass)CutoutClass() CloudClass {
	if c == Unlabeled {
		return ClearSky
	}
	return c
}

// Classify maps an exact palette colour to its class. Anything that isn't
// in the palette is clear sky.
func Classify(c RGB8) CloudClass {
	switch c {
	case paletteUnlabeled:     return Unlabeled
	case paletteStratocumulus: return Stratocumulus
	case paletteCumulus:       return Cumulus
	case paletteCirrus:        return Cirrus
	}
	return ClearSky
}

// ClassifyNear matches a float colour against the palette, allowing for
// a little slop. Channels are clamped to [0,1] first, so an overbright
// red still reads as cumulus.
func ClassifyNear(rgb hdrcolor.RGB) CloudClass {
	c := colorful.Color{R: rgb.R, G: rgb.G, B: rgb.B}.Clamped()
	for _, p := range nearPalette {
		if c.DistanceRgb(p.col) <= NearMatchTolerance {
			return p.class
		}
	}
	return ClearSky
}

// ClassOf picks the exact or near matcher, depending on whether the colour
// came from an LDR or an HDR raster.
func ClassOf(c color.Color) CloudClass {
	if hc, ok := c.(hdrcolor.Color); ok {
		r, g, b, _ := hc.HDRRGBA()
		return ClassifyNear(hdrcolor.RGB{R: r, G: g, B: b})
	}
	return Classify(NewRGB8(c))
}

// SigmaS is the scattering coefficient table.
func SigmaS(c CloudClass) float64 {
	switch c {
	case Stratocumulus: return SigmaStratocumulus
	case Cumulus:       return SigmaCumulus
	case Cirrus:        return SigmaCirrus
	}
	return 0.0
}

// ParseCloudClass is the inverse of String.
func ParseCloudClass(s string) (CloudClass, error) {
	for _, c := range []CloudClass{ClearSky, Stratocumulus, Cumulus, Cirrus, Unlabeled} {
		if c.String() == s {
			return c, nil
		}
	}
	return ClearSky, fmt.Errorf("no cloud class named '%s'", s)
}

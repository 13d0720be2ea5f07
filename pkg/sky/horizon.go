package sky

import(
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/abworrall/panosky/pkg/scolor"
)

// Bias picks which third of the panorama is trusted when the ground is
// forced into a single straight cut. On hilly scenes the transition height
// varies a lot across the image, so the choice matters.
type Bias int

const(
	BiasMiddle Bias = iota
	BiasLeft
	BiasRight
)

func (b Bias)String() string {
	switch b {
	case BiasLeft:   return "left"
	case BiasMiddle: return "middle"
	case BiasRight:  return "right"
	}
	return fmt.Sprintf("Bias(%d)", int(b))
}

func ParseBias(s string) (Bias, error) {
	switch strings.ToLower(s) {
	case "left":          return BiasLeft, nil
	case "middle", "":    return BiasMiddle, nil
	case "right":         return BiasRight, nil
	}
	return BiasMiddle, fmt.Errorf("bias '%s' is not one of left, middle, right", s)
}

// ScanColumn is the centre column of the selected third of an image w
// pixels wide.
func (b Bias)ScanColumn(w int) int {
	x := w/2
	switch b {
	case BiasLeft:  x = w/6
	case BiasRight: x = (5*w)/6
	}
	if x > w-1 { x = w-1 }
	if x < 0   { x = 0 }
	return x
}

type GroundKind int

const(
	StraightCut GroundKind = iota // two points sharing a y
	Silhouette                    // one point per column
)

func (k GroundKind)String() string {
	if k == Silhouette {
		return "silhouette"
	}
	return "straight"
}

// A GroundLine separates sky (above) from ground (below).
type GroundLine struct {
	Kind       GroundKind
	Points   []image.Point
	Fallbacks  int // columns where no transition was found
}

// CutY is the row at which to crop so that nothing below the line is kept.
// For a silhouette that is the highest ground point.
func (gl GroundLine)CutY() int {
	if len(gl.Points) == 0 {
		return 0
	}
	y := gl.Points[0].Y
	for _, p := range gl.Points[1:] {
		if p.Y < y {
			y = p.Y
		}
	}
	return y
}

func (gl GroundLine)String() string {
	return fmt.Sprintf("%s ground line, %d pts, cutY=%d, %d fallbacks",
		gl.Kind, len(gl.Points), gl.CutY(), gl.Fallbacks)
}

// FallbackMargin is how far above the bottom edge a column with no
// visible ground is placed.
const FallbackMargin = 1

// DefaultWindow is the band height, in pixels, averaged on either side of
// a candidate transition. A one-pixel glitch can't trigger a detection
// unless it is bright enough to shift the band mean by itself.
const DefaultWindow = 3

type HorizonOptions struct {
	Sensitivity float64 // minimum transition magnitude, on the 0-255 scale
	StraightCut bool
	Bias        Bias
	Window      int     // DefaultWindow if zero
	Workers     int
}

// DetectHorizon finds the sky/ground boundary. Each scanned column is
// walked from the vertical midpoint downward; the first row where the
// colour shifts by more than the sensitivity starts a detection, which is
// then settled on the strongest step within one window of it.
func DetectHorizon(img image.Image, opts HorizonOptions) GroundLine {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return GroundLine{Kind: StraightCut, Points: []image.Point{{0, 0}, {0, 0}}, Fallbacks: 1}
	}
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}

	v := newLDRView(img, opts.Workers)

	if opts.StraightCut {
		y, ok := v.scanColumn(opts.Bias.ScanColumn(w), opts.Sensitivity, opts.Window)
		gl := GroundLine{Kind: StraightCut, Points: []image.Point{{0, y}, {w-1, y}}}
		if !ok {
			gl.Fallbacks = 1
		}
		return gl
	}

	ys := make([]int, w)
	found := make([]bool, w)
	forEachIndex(w, opts.Workers, func(x int) {
		ys[x], found[x] = v.scanColumn(x, opts.Sensitivity, opts.Window)
	})

	gl := GroundLine{Kind: Silhouette, Points: make([]image.Point, w)}
	for x:=0; x<w; x++ {
		gl.Points[x] = image.Point{x, ys[x]}
		if !found[x] {
			gl.Fallbacks++
		}
	}
	return gl
}

func fallbackY(h int) int {
	y := h - FallbackMargin
	if y > h-1 { y = h-1 }
	if y < 0   { y = 0 }
	return y
}

// scanColumn returns the first y at or below the midpoint whose transition
// magnitude exceeds sensitivity, or the fallback row and false.
func (v *ldrView)scanColumn(x int, sensitivity float64, window int) (int, bool) {
	start := v.h/2
	if start < 1 {
		start = 1
	}
	for y:=start; y<v.h; y++ {
		if m := v.transitionAt(x, y, window); m > sensitivity {
			return v.peakTransition(x, y, m, window), true
		}
	}
	return fallbackY(v.h), false
}

// peakTransition moves a detection at y down to the strongest step in
// [y, y+window). A low sensitivity trips while the lower band still holds
// mostly sky; the real edge is where the bands stop overlapping it.
func (v *ldrView)peakTransition(x, y int, m float64, window int) int {
	best, bestM := y, m
	for yy:=y+1; yy<y+window && yy<v.h; yy++ {
		if mm := v.transitionAt(x, yy, window); mm > bestM {
			best, bestM = yy, mm
		}
	}
	return best
}

// transitionAt compares the mean colour of the band [y-window, y) with the
// band [y, y+window). The magnitude is the larger of the luma step and the
// mean per-channel step; some horizons are a hue change at constant
// brightness (blue sky over green hills).
func (v *ldrView)transitionAt(x, y, window int) float64 {
	ar, ag, ab := v.bandMean(x, y-window, y)
	br, bg, bb := v.bandMean(x, y, y+window)

	lumaStep := math.Abs(scolor.Luma(ar, ag, ab) - scolor.Luma(br, bg, bb))
	chanStep := (math.Abs(ar-br) + math.Abs(ag-bg) + math.Abs(ab-bb)) / 3.0

	return math.Max(lumaStep, chanStep)
}

func (v *ldrView)bandMean(x, y0, y1 int) (float64, float64, float64) {
	if y0 < 0   { y0 = 0 }
	if y1 > v.h { y1 = v.h }
	n := float64(y1 - y0)
	if n <= 0 {
		return 0, 0, 0
	}

	r, g, b := 0.0, 0.0, 0.0
	for y:=y0; y<y1; y++ {
		c := v.at(x, y)
		r += float64(c.R)
		g += float64(c.G)
		b += float64(c.B)
	}
	return r/n, g/n, b/n
}

package sky

import(
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/golang/glog"
	"gonum.org/v1/gonum/stat"

	"github.com/abworrall/panosky/pkg/emath"
	"github.com/abworrall/panosky/pkg/raster"
	"github.com/abworrall/panosky/pkg/scolor"
)

const DefaultNeighbourRadius = 5

// DegenerateDa is the attenuation reported wherever the formula is
// undefined. The Status says why.
const DegenerateDa = 0.0

type Status uint8

const(
	StatusOK             Status = iota
	StatusClearSky              // sigma_s is zero
	StatusFlatBackground        // reference sky has equal luma at P and Q
	StatusFlatLuma              // photo has equal luma at P and Q
	StatusNonFinite             // anything else that came out NaN or Inf
	StatusNoNeighbour           // value is valid, but Q is the (0,0) fallback
)

func (s Status)String() string {
	switch s {
	case StatusOK:             return "ok"
	case StatusClearSky:       return "clearsky"
	case StatusFlatBackground: return "flat-background"
	case StatusFlatLuma:       return "flat-luma"
	case StatusNonFinite:      return "non-finite"
	case StatusNoNeighbour:    return "no-neighbour"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

type InscatterOptions struct {
	Radius      int // DefaultNeighbourRadius if zero
	Workers     int
	DebugPoints []image.Point // each gets its full breakdown logged
}

// A Sample is the full working for the attenuation at one point.
type Sample struct {
	P, Q     image.Point
	Found    bool // false if Q is the fallback
	Class    scolor.CloudClass
	SigmaS   float64
	La, Lb   float64 // photo luma at P, Q
	Lsa, Lsb float64 // reference sky luma at P, Q
	Da       float64
	Status   Status
}

func (s Sample)String() string {
	str := fmt.Sprintf("P%v Q%v", s.P, s.Q)
	if !s.Found {
		str += "(fallback)"
	}
	str += fmt.Sprintf(" %s[sigma=%.6f]\n", s.Class, s.SigmaS)
	str += fmt.Sprintf("  photo: La=%7.2f Lb=%7.2f |diff|=%7.2f\n", s.La, s.Lb, math.Abs(s.La-s.Lb))
	str += fmt.Sprintf("  sky  : La=%7.2f Lb=%7.2f |diff|=%7.2f\n", s.Lsa, s.Lsb, math.Abs(s.Lsa-s.Lsb))
	str += fmt.Sprintf("  Da=%.6f [%s]", s.Da, s.Status)
	return str
}

// AttenuationMap holds one Da per pixel, with a status per pixel saying
// whether the value is real or the degenerate placeholder.
type AttenuationMap struct {
	Da     emath.FloatGrid
	Status []Status // row-major, same layout as Da
}

func (am *AttenuationMap)StatusAt(x, y int) Status { return am.Status[y*am.Da.Dx() + x] }

// Valid counts the pixels with StatusOK.
func (am *AttenuationMap)Valid() int {
	n := 0
	for _, s := range am.Status {
		if s == StatusOK {
			n++
		}
	}
	return n
}

// StatusCounts tallies pixels by status.
func (am *AttenuationMap)StatusCounts() map[Status]int {
	ret := map[Status]int{}
	for _, s := range am.Status {
		ret[s]++
	}
	return ret
}

// Summary describes the distribution of the StatusOK values.
func (am *AttenuationMap)Summary() emath.Summary {
	return am.Da.Summarize(func(i int) bool { return am.Status[i] == StatusOK })
}

// MeanStdDev of the StatusOK values; zeros if there are none.
func (am *AttenuationMap)MeanStdDev() (float64, float64) {
	vals := []float64{}
	for i, v := range am.Da.Values() {
		if am.Status[i] == StatusOK {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return 0, 0
	}
	if len(vals) == 1 {
		return vals[0], 0
	}
	return stat.MeanStdDev(vals, nil)
}

func (am *AttenuationMap)String() string {
	return fmt.Sprintf("AttenuationMap[%dx%d] %d/%d valid, %v",
		am.Da.Dx(), am.Da.Dy(), am.Valid(), len(am.Status), am.StatusCounts())
}

// EstimateInscattering computes Da for every pixel. For each P it finds Q,
// the pixel within the radius whose colour is closest to P's, and compares
// the luma step P->Q in the photo with the same step in the rendered clear
// sky:
//
//   Da = -ln(|La-Lb| / |Lsa-Lsb|) / sigma_s
//
// where sigma_s comes from P's cloud class. All three images must be the
// same size.
func EstimateInscattering(original, classified, reference image.Image, opts InscatterOptions) (*AttenuationMap, error) {
	if err := raster.SameSize(original.Bounds(), classified.Bounds(), reference.Bounds()); err != nil {
		return nil, fmt.Errorf("inscattering: %w", err)
	}
	if opts.Radius <= 0 {
		opts.Radius = DefaultNeighbourRadius
	}

	b := original.Bounds()
	w, h := b.Dx(), b.Dy()

	ic := inscatterCalc{
		orig:   newLDRView(original, opts.Workers),
		sky:    lumaGrid(reference, h, opts.Workers),
		labels: classifyLabels(classified, opts.Workers),
		radius: opts.Radius,
	}

	am := &AttenuationMap{
		Da:     emath.NewFloatGrid(w, h),
		Status: make([]Status, w*h),
	}

	forEachIndex(h, opts.Workers, func(y int) {
		for x:=0; x<w; x++ {
			s := ic.sample(image.Point{x, y})
			am.Da.Set(x, y, s.Da)
			am.Status[y*w + x] = s.Status
		}
	})

	for _, p := range opts.DebugPoints {
		if p.In(image.Rect(0, 0, w, h)) {
			glog.Infof("inscattering at %v:\n%s\n", p, ic.sample(p))
		}
	}

	return am, nil
}

// AttenuationAt is the per-point version of EstimateInscattering, for
// probing a single pixel.
func AttenuationAt(original, classified, reference image.Image, p image.Point, radius int) (Sample, error) {
	if err := raster.SameSize(original.Bounds(), classified.Bounds(), reference.Bounds()); err != nil {
		return Sample{}, fmt.Errorf("inscattering: %w", err)
	}
	b := original.Bounds()
	if !p.In(image.Rect(0, 0, b.Dx(), b.Dy())) {
		return Sample{}, fmt.Errorf("inscattering: %v is outside %dx%d", p, b.Dx(), b.Dy())
	}
	if radius <= 0 {
		radius = DefaultNeighbourRadius
	}

	pixel := func(img image.Image, q image.Point) color.Color {
		q = q.Add(img.Bounds().Min)
		return img.At(q.X, q.Y)
	}
	colourAt := func(x, y int) scolor.RGB8 { return scolor.NewRGB8(pixel(original, image.Point{x, y})) }

	s := Sample{P: p}
	s.Q, s.Found = closestNeighbour(colourAt, b.Dx(), b.Dy(), p, radius)
	s.Class  = scolor.ClassOf(pixel(classified, p))
	s.SigmaS = scolor.SigmaS(s.Class)
	s.La     = colourAt(p.X, p.Y).Luma()
	s.Lb     = colourAt(s.Q.X, s.Q.Y).Luma()
	s.Lsa    = scolor.LumaOf(pixel(reference, p))
	s.Lsb    = scolor.LumaOf(pixel(reference, s.Q))
	s.Da, s.Status = ComputeDa(s.La, s.Lb, s.Lsa, s.Lsb, s.SigmaS)
	if s.Status == StatusOK && !s.Found {
		s.Status = StatusNoNeighbour
	}
	return s, nil
}

// ComputeDa evaluates the attenuation formula, catching every way it can
// fail to produce a finite number.
func ComputeDa(la, lb, lsa, lsb, sigmaS float64) (float64, Status) {
	if sigmaS == 0 {
		return DegenerateDa, StatusClearSky
	}
	num := math.Abs(la - lb)
	den := math.Abs(lsa - lsb)
	if den == 0 {
		return DegenerateDa, StatusFlatBackground
	}
	if num == 0 {
		return DegenerateDa, StatusFlatLuma
	}

	da := -math.Log(num/den) / sigmaS
	if math.IsNaN(da) || math.IsInf(da, 0) {
		return DegenerateDa, StatusNonFinite
	}
	return da, StatusOK
}

// ClosestColourNeighbour searches the (2r+1)x(2r+1) window around p for
// the pixel whose colour is closest to p's (sum of absolute channel
// differences). The scan is row-major and only a strictly better match
// replaces the current one, so ties go to the first pixel scanned. If the
// window holds no other pixel, it returns (0,0) and false.
func ClosestColourNeighbour(img image.Image, p image.Point, radius int) (image.Point, bool) {
	b := img.Bounds()
	colourAt := func(x, y int) scolor.RGB8 { return scolor.NewRGB8(img.At(b.Min.X+x, b.Min.Y+y)) }
	return closestNeighbour(colourAt, b.Dx(), b.Dy(), p, radius)
}

func closestNeighbour(colourAt func(x, y int) scolor.RGB8, w, h int, p image.Point, radius int) (image.Point, bool) {
	target := colourAt(p.X, p.Y)
	best, bestDiff, found := image.Point{}, math.MaxInt, false

	for y:=p.Y-radius; y<=p.Y+radius; y++ {
		if y < 0 || y >= h {
			continue
		}
		for x:=p.X-radius; x<=p.X+radius; x++ {
			if x < 0 || x >= w || (x == p.X && y == p.Y) {
				continue
			}
			if d := scolor.ColourDiff(target, colourAt(x, y)); d < bestDiff {
				best, bestDiff, found = image.Point{x, y}, d, true
			}
		}
	}
	return best, found
}

// inscatterCalc holds the per-image precomputation shared by all pixels.
type inscatterCalc struct {
	orig   *ldrView
	sky      emath.FloatGrid
	labels []scolor.CloudClass
	radius   int
}

func (ic *inscatterCalc)sample(p image.Point) Sample {
	s := Sample{P: p}
	s.Q, s.Found = closestNeighbour(ic.orig.at, ic.orig.w, ic.orig.h, p, ic.radius)

	s.Class  = ic.labels[p.Y*ic.orig.w + p.X]
	s.SigmaS = scolor.SigmaS(s.Class)
	s.La     = ic.orig.at(p.X, p.Y).Luma()
	s.Lb     = ic.orig.at(s.Q.X, s.Q.Y).Luma()
	s.Lsa    = ic.sky.Get(p.X, p.Y)
	s.Lsb    = ic.sky.Get(s.Q.X, s.Q.Y)

	s.Da, s.Status = ComputeDa(s.La, s.Lb, s.Lsa, s.Lsb, s.SigmaS)
	if s.Status == StatusOK && !s.Found {
		s.Status = StatusNoNeighbour
	}
	return s
}

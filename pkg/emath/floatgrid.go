package emath

import(
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/codahale/hdrhistogram"
	"github.com/fogleman/gg" // Move to https://pkg.go.dev/golang.org/x/image/font#Drawer sometime
)

// A FloatGrid is a grid of floats, with some operations. Values are
// stored row-major.
type FloatGrid struct {
	stride int
	values []float64
}

func NewFloatGrid(w, h int) FloatGrid {
	return FloatGrid{
		stride: w,
		values: make([]float64, w*h),
	}
}

func (g1 *FloatGrid)NewFromThis() FloatGrid  { return NewFloatGrid(g1.Dx(), g1.Dy()) }
func (fg *FloatGrid)Set(x, y int, v float64) { fg.values[fg.stride*y + x] = v }
func (fg *FloatGrid)Get(x, y int) float64    { return fg.values[fg.stride*y + x] }
func (fg *FloatGrid)Dx() int                 { return fg.stride }
func (fg *FloatGrid)Values() []float64       { return fg.values }
func (fg *FloatGrid)Bounds() image.Rectangle { return image.Rect(0, 0, fg.Dx(), fg.Dy()) }

func (fg *FloatGrid)Dy() int {
	if fg.stride == 0 {
		return 0
	}
	return len(fg.values) / fg.stride
}

func (g1 *FloatGrid)Copy() *FloatGrid {
	g2 := FloatGrid{stride: g1.stride, values:make([]float64, len(g1.values))}
	copy(g2.values, g1.values)
	return &g2
}

// GaussianBlur is a 3x3 binomial blur, done as two 1D passes. Grids
// narrower than 2 pixels in either direction are returned unchanged.
func (g1 FloatGrid)GaussianBlur() FloatGrid {
	width := g1.Dx()
	height := g1.Dy()
	if width < 2 || height < 2 {
		return *g1.Copy()
	}

	g2 := g1.NewFromThis()
	T  := g1.NewFromThis()

	//--- X blur, build up in T
	for y:=0; y<height; y++ {
		for x:=1; x<width-1; x++ {
			t := 2.0*g1.Get(x,y)
			t += g1.Get(x-1,y)
			t += g1.Get(x+1,y)
			T.Set(x, y, t/4.0)
		}
		T.Set(0, y,       (3.0*g1.Get(0,      y) + g1.Get(1,      y)) / 4.0)
		T.Set(width-1, y, (3.0*g1.Get(width-1,y) + g1.Get(width-2,y)) / 4.0)
	}

	//--- Y blur, read from T and generate output
	for x:=0; x<width; x++ {
		for y:=1; y<height-1; y++ {
			t := 2.0*T.Get(x,y)
			t += T.Get(x,y-1)
			t += T.Get(x,y+1)
			g2.Set(x, y, t/4.0)
		}
		g2.Set(x, 0,        (3.0*T.Get(x,       0) + T.Get(x,       1)) / 4.0)
		g2.Set(x, height-1, (3.0*T.Get(x,height-1) + T.Get(x,height-2)) / 4.0)
	}

	return g2
}

// FindMinMaxAtPercentile sorts the finite values in the grid and
// returns the ones found at the two percentiles (each in [0,1]).
func (fg *FloatGrid)FindMinMaxAtPercentile(minPrct, maxPrct float64) (float64, float64) {
	vals := []float64{}
	for _, v := range fg.values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return 0, 0
	}

	sort.Float64s(vals)

	iMin := int(minPrct * float64(len(vals)))
	iMax := int(maxPrct * float64(len(vals)))
	if iMin < 0          { iMin = 0 }
	if iMin >= len(vals) { iMin = len(vals)-1 }
	if iMax < 0          { iMax = 0 }
	if iMax >= len(vals) { iMax = len(vals)-1 }

	return vals[iMin], vals[iMax]
}

func (fg *FloatGrid)Stats() string {
	min := math.MaxFloat64
	max := -1.0  * min

	for i:=0 ; i<len(fg.values) ; i++ {
		if fg.values[i] > max { max = fg.values[i] }
		if fg.values[i] < min { min = fg.values[i] }
	}
	return fmt.Sprintf("fg[%dx%d, vals{%f,%f}]", fg.Dx(), fg.Dy(), min, max)
}

// A Summary describes the distribution of a subset of the grid's values.
type Summary struct {
	N      int64
	Mean   float64
	P05    float64
	P50    float64
	P95    float64
	Max    float64
}

func (s Summary)String() string {
	return fmt.Sprintf("n=%d mean=%.4f p05=%.4f p50=%.4f p95=%.4f max=%.4f",
		s.N, s.Mean, s.P05, s.P50, s.P95, s.Max)
}

// summaryScale is how many histogram units make up 1.0; the histogram only
// records integers, so this sets the resolution of the quantiles.
const summaryScale = 10000.0

// Summarize builds a quantile summary over the finite values for which
// `keep` returns true (all values if keep is nil). Values are recorded as
// offsets from the smallest one, so precision is relative to the spread of
// the data rather than its magnitude.
func (fg *FloatGrid)Summarize(keep func(i int) bool) Summary {
	vals := []float64{}
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, v := range fg.values {
		if keep != nil && !keep(i) {
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		vals = append(vals, v)
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	if len(vals) == 0 {
		return Summary{}
	}

	scale := summaryScale
	if (hi-lo)*scale > 1e12 {
		scale = 1e12 / (hi-lo)
	}

	h := hdrhistogram.New(0, int64((hi-lo)*scale)+1, 3)
	for _, v := range vals {
		h.RecordValue(int64((v-lo) * scale))
	}

	unscale := func(u int64) float64 { return float64(u)/scale + lo }

	return Summary{
		N:    h.TotalCount(),
		Mean: h.Mean()/scale + lo,
		P05:  unscale(h.ValueAtQuantile(5)),
		P50:  unscale(h.ValueAtQuantile(50)),
		P95:  unscale(h.ValueAtQuantile(95)),
		Max:  math.Min(unscale(h.Max()), hi),
	}
}

// ToImg saves a simple grayscale, based on the 1st-99th percentile range of
// values in the grid, and gamma scaling the gray to look normal for human
// vision. The title is drawn into the top left corner.
func (fg *FloatGrid)ToImg(title, filename string) error {
	min, max := fg.FindMinMaxAtPercentile(0.01, 0.99)
	if max <= min {
		max = min + 1.0
	}

	img := image.NewRGBA64(fg.Bounds())
	for x:=0; x<fg.Dx(); x++ {
		for y:=0; y<fg.Dy(); y++ {
			v := Clamp((fg.Get(x,y) - min) / (max - min), 0.0, 1.0)
			gray := uint16(GammaExpand_F64(v) * 65535.0)
			img.Set(x, y, color.RGBA64{gray, gray, gray, 0xFFFF})
		}
	}

	dc := gg.NewContextForImage(img)
	dc.SetRGB(1,0.3,0.3)
	dc.DrawString(title, 10, 20)
	if err := dc.SavePNG(filename); err != nil {
		return fmt.Errorf("FloatGrid.ToImg, save '%s': %v", filename, err)
	}
	return nil
}

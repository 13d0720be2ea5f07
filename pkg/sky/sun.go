package sky

import(
	"fmt"
	"image"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Position2D is a sub-pixel image position.
type Position2D struct {
	X, Y float64
}

func (p Position2D)Point() image.Point { return image.Point{int(p.X), int(p.Y)} }
func (p Position2D)String() string     { return fmt.Sprintf("(%.1f,%.1f)", p.X, p.Y) }

const DefaultClusterFraction = 0.95

type SunOptions struct {
	// Pixels connected to the peak, and at least this fraction of the way
	// from the background (median) luma of the band up to the peak, count
	// as part of the sun.
	ClusterFraction float64
	Workers         int
}

// LocateSun finds the sun in the sky band above groundY. Cameras clip and
// bloom around the sun, so rather than trusting the single brightest pixel
// we find the connected blob of near-peak luma around it and return its
// luma-weighted centroid. "Near-peak" is measured from the band's median
// luma, so an overexposed sky doesn't join the blob. The blob may straddle
// the left/right seam of the panorama.
func LocateSun(img image.Image, groundY int, opts SunOptions) Position2D {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return Position2D{}
	}
	if groundY > h { groundY = h }
	if groundY < 1 { groundY = 1 }
	if opts.ClusterFraction <= 0 || opts.ClusterFraction > 1 {
		opts.ClusterFraction = DefaultClusterFraction
	}

	luma := lumaGrid(img, groundY, opts.Workers).GaussianBlur()

	// Map: brightest pixel per row. Reduce: brightest row, first one wins.
	type rowMax struct {
		x int
		v float64
	}
	rows := make([]rowMax, groundY)
	forEachIndex(groundY, opts.Workers, func(y int) {
		best := rowMax{0, math.Inf(-1)}
		for x:=0; x<w; x++ {
			if v := luma.Get(x, y); v > best.v {
				best = rowMax{x, v}
			}
		}
		rows[y] = best
	})

	peak := image.Point{rows[0].x, 0}
	peakV := rows[0].v
	for y:=1; y<groundY; y++ {
		if rows[y].v > peakV {
			peak, peakV = image.Point{rows[y].x, y}, rows[y].v
		}
	}

	if peakV <= 0 {
		return Position2D{float64(peak.X), float64(peak.Y)}
	}

	// Against a bright, near-clipped sky a plain fraction of the peak would
	// take in the whole band.
	bg, _ := luma.FindMinMaxAtPercentile(0.5, 0.5)
	if bg > peakV {
		bg = peakV
	}
	thresh := bg + opts.ClusterFraction*(peakV-bg)

	// Floodfill out from the peak. x is tracked unwrapped, so a blob that
	// crosses the seam gets a sensible mean.
	type node struct {
		ux, y int
	}
	seen := make([]bool, w*groundY)
	xs, ys, ws := []float64{}, []float64{}, []float64{}

	toVisit := []node{{peak.X, peak.Y}}
	for len(toVisit) > 0 {
		n := toVisit[0]
		toVisit = toVisit[1:]

		x := ((n.ux % w) + w) % w
		if seen[n.y*w + x] {
			continue
		}
		seen[n.y*w + x] = true

		v := luma.Get(x, n.y)
		if v < thresh {
			continue
		}
		xs = append(xs, float64(n.ux))
		ys = append(ys, float64(n.y))
		ws = append(ws, v)

		toVisit = append(toVisit, node{n.ux-1, n.y}, node{n.ux+1, n.y})
		if n.y > 0 {
			toVisit = append(toVisit, node{n.ux, n.y-1})
		}
		if n.y < groundY-1 {
			toVisit = append(toVisit, node{n.ux, n.y+1})
		}
	}

	cx := math.Mod(stat.Mean(xs, ws), float64(w))
	if cx < 0 {
		cx += float64(w)
	}
	return Position2D{X: cx, Y: stat.Mean(ys, ws)}
}

// ElevationDeg is the angle handed to the sky renderer: (sunY/groundY)*90,
// so the top row maps to 0 and the ground row to 90.
func ElevationDeg(sunY float64, groundY int) float64 {
	if groundY <= 0 {
		return 0
	}
	return (sunY / float64(groundY)) * 90.0
}

package pano

import(
	"fmt"
	"image"

	"github.com/fogleman/gg"
	"github.com/skypies/util/histogram"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/abworrall/panosky/pkg/sky"
)

// WriteOverlay draws the detected ground line and sun over the panorama,
// for eyeballing whether detection worked.
func WriteOverlay(img image.Image, gl sky.GroundLine, sun sky.Position2D, filename string) error {
	dc := gg.NewContextForImage(img)

	dc.SetRGB(1, 0.2, 0.2)
	dc.SetLineWidth(2)
	for i:=1; i<len(gl.Points); i++ {
		p0, p1 := gl.Points[i-1], gl.Points[i]
		dc.DrawLine(float64(p0.X), float64(p0.Y), float64(p1.X), float64(p1.Y))
	}
	dc.Stroke()

	dc.SetRGB(1, 1, 0)
	dc.DrawCircle(sun.X, sun.Y, 12)
	dc.Stroke()
	dc.DrawCircle(sun.X, sun.Y, 3)
	dc.Stroke()

	dc.SetRGB(1, 0.3, 0.3)
	dc.DrawString(fmt.Sprintf("%s, sun %s", gl, sun), 10, 20)

	if err := dc.SavePNG(filename); err != nil {
		return fmt.Errorf("overlay, save '%s': %v", filename, err)
	}
	return nil
}

// WriteHorizonPlot plots the ground row against column; flat for a
// straight cut, the skyline for a silhouette.
func WriteHorizonPlot(gl sky.GroundLine, height int, filename string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Ground line (%s)", gl.Kind)
	p.X.Label.Text = "Column"
	p.Y.Label.Text = "Height above image bottom (px)"

	pts := make(plotter.XYs, 0, len(gl.Points))
	for _, pt := range gl.Points {
		pts = append(pts, plotter.XY{X: float64(pt.X), Y: float64(height - pt.Y)})
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("horizon plot: %v", err)
	}
	line.Width = vg.Points(1)
	p.Add(line)

	if err := p.Save(10*vg.Inch, 3*vg.Inch, filename); err != nil {
		return fmt.Errorf("horizon plot, save '%s': %v", filename, err)
	}
	return nil
}

// GroundHistogram buckets the ground rows of a silhouette, as a percentage
// of image height, which shows at a glance whether the skyline is flat or
// broken up.
func GroundHistogram(gl sky.GroundLine, height int) histogram.Histogram {
	h := histogram.Histogram{NumBuckets: 20, ValMin: 0, ValMax: 100}
	if height <= 0 {
		return h
	}
	for _, pt := range gl.Points {
		h.Add(histogram.ScalarVal(pt.Y * 100 / height))
	}
	return h
}

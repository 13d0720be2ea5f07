package sky

import(
	"image"

	"github.com/abworrall/panosky/pkg/emath"
	"github.com/abworrall/panosky/pkg/scolor"
)

// All coordinates in this package are relative to the top-left corner of
// the image (its Bounds().Min), so sub-images behave like fresh images.

// An ldrView is an 8-bit snapshot of an image, so that the hot loops don't
// go through the image.Image interface for every pixel.
type ldrView struct {
	w, h int
	pix  []scolor.RGB8
}

func newLDRView(img image.Image, workers int) *ldrView {
	b := img.Bounds()
	v := &ldrView{w: b.Dx(), h: b.Dy(), pix: make([]scolor.RGB8, b.Dx()*b.Dy())}
	forEachIndex(v.h, workers, func(y int) {
		for x:=0; x<v.w; x++ {
			v.pix[y*v.w + x] = scolor.NewRGB8(img.At(b.Min.X+x, b.Min.Y+y))
		}
	})
	return v
}

func (v *ldrView)at(x, y int) scolor.RGB8 { return v.pix[y*v.w + x] }

// lumaGrid computes the luma of the top `rows` rows of an image.
func lumaGrid(img image.Image, rows, workers int) emath.FloatGrid {
	b := img.Bounds()
	fg := emath.NewFloatGrid(b.Dx(), rows)
	forEachIndex(rows, workers, func(y int) {
		for x:=0; x<b.Dx(); x++ {
			fg.Set(x, y, scolor.LumaOf(img.At(b.Min.X+x, b.Min.Y+y)))
		}
	})
	return fg
}

// classifyLabels reads a label image into a row-major slice of classes.
func classifyLabels(img image.Image, workers int) []scolor.CloudClass {
	b := img.Bounds()
	w := b.Dx()
	labels := make([]scolor.CloudClass, w*b.Dy())
	forEachIndex(b.Dy(), workers, func(y int) {
		for x:=0; x<w; x++ {
			labels[y*w + x] = scolor.ClassOf(img.At(b.Min.X+x, b.Min.Y+y))
		}
	})
	return labels
}

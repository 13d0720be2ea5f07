package sky

import(
	"fmt"
	"image"
	"image/color"

	"github.com/abworrall/panosky/pkg/raster"
	"github.com/abworrall/panosky/pkg/scolor"
)

// ExtractCloudType cuts out the pixels of `original` whose label in
// `classified` is the given class. They keep their colour and become fully
// opaque; everything else is zeroed. Unlabeled pixels are treated as clear
// sky, so asking for Unlabeled itself yields an empty cutout.
func ExtractCloudType(classified, original image.Image, class scolor.CloudClass, workers int) (*image.NRGBA, error) {
	if err := raster.SameSize(classified.Bounds(), original.Bounds()); err != nil {
		return nil, fmt.Errorf("cutout %s: %w", class, err)
	}
	labels := classifyLabels(classified, workers)
	return cutout(labels, original, class, workers), nil
}

// ExtractAllCloudTypes produces one cutout per member of CutoutClasses,
// classifying the label image only once. Every pixel is opaque in exactly
// one of the cutouts.
func ExtractAllCloudTypes(classified, original image.Image, workers int) (map[scolor.CloudClass]*image.NRGBA, error) {
	if err := raster.SameSize(classified.Bounds(), original.Bounds()); err != nil {
		return nil, fmt.Errorf("cutouts: %w", err)
	}

	labels := classifyLabels(classified, workers)
	ret := map[scolor.CloudClass]*image.NRGBA{}
	for _, class := range scolor.CutoutClasses {
		ret[class] = cutout(labels, original, class, workers)
	}
	return ret, nil
}

func cutout(labels []scolor.CloudClass, original image.Image, class scolor.CloudClass, workers int) *image.NRGBA {
	b := original.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, w, h))

	forEachIndex(h, workers, func(y int) {
		for x:=0; x<w; x++ {
			if class != scolor.Unlabeled && labels[y*w + x].CutoutClass() == class {
				c := scolor.NewRGB8(original.At(b.Min.X+x, b.Min.Y+y))
				out.SetNRGBA(x, y, color.NRGBA{c.R, c.G, c.B, 0xff})
			} else {
				out.SetNRGBA(x, y, color.NRGBA{})
			}
		}
	})
	return out
}

// Coverage returns the fraction of pixels in a cutout that are opaque.
func Coverage(img *image.NRGBA) float64 {
	b := img.Bounds()
	if b.Empty() {
		return 0
	}
	n := 0
	for y:=b.Min.Y; y<b.Max.Y; y++ {
		for x:=b.Min.X; x<b.Max.X; x++ {
			if img.NRGBAAt(x, y).A != 0 {
				n++
			}
		}
	}
	return float64(n) / float64(b.Dx()*b.Dy())
}

package sky

import(
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/mdouchement/hdr/hdrcolor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/panosky/pkg/raster"
	"github.com/abworrall/panosky/pkg/scolor"
)

// labelImage cycles through the palette, plus black and a couple of
// colours the classifier should never produce.
func labelImage(w, h int) *image.NRGBA {
	cycle := []color.NRGBA{red, green, magenta, black, skyBlue, gray(128), {254, 0, 0, 255}}
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y:=0; y<h; y++ {
		for x:=0; x<w; x++ {
			img.SetNRGBA(x, y, cycle[(y*w + x) % len(cycle)])
		}
	}
	return img
}

func TestExtractAllCloudTypesPartition(t *testing.T) {
	labels := labelImage(13, 7)
	orig := solid(13, 7, color.NRGBA{10, 20, 30, 255})

	cutouts, err := ExtractAllCloudTypes(labels, orig, 3)
	require.NoError(t, err)
	require.Len(t, cutouts, 4)

	for y:=0; y<7; y++ {
		for x:=0; x<13; x++ {
			nOpaque := 0
			for _, c := range cutouts {
				switch px := c.NRGBAAt(x, y); px.A {
				case 255:
					nOpaque++
					assert.Equal(t, color.NRGBA{10, 20, 30, 255}, px)
				case 0:
					assert.Equal(t, color.NRGBA{}, px)
				default:
					t.Errorf("(%d,%d) has partial alpha %d", x, y, px.A)
				}
			}
			assert.Equal(t, 1, nOpaque, "pixel (%d,%d)", x, y)
		}
	}
}

func TestExtractCloudType(t *testing.T) {
	labels := labelImage(7, 1) // one of each
	orig := solid(7, 1, gray(77))

	tests := []struct{
		class  scolor.CloudClass
		opaque []int
	}{
		{scolor.Cumulus, []int{0}},
		{scolor.Cirrus, []int{1}},
		{scolor.Stratocumulus, []int{2}},
		{scolor.ClearSky, []int{3, 4, 5, 6}},
		{scolor.Unlabeled, []int{}},
	}
	for _, tc := range tests {
		t.Run(tc.class.String(), func(t *testing.T) {
			c, err := ExtractCloudType(labels, orig, tc.class, 2)
			require.NoError(t, err)

			got := []int{}
			for x:=0; x<7; x++ {
				if c.NRGBAAt(x, 0).A == 255 {
					got = append(got, x)
				}
			}
			assert.Equal(t, tc.opaque, got)
		})
	}
}

func TestExtractCloudTypeFromHDRLabels(t *testing.T) {
	labels := raster.NewHDR(3, 1)
	labels.SetRGB(0, 0, hdrcolor.RGB{R: 0.98, G: 0.01, B: 0.0})
	labels.SetRGB(1, 0, hdrcolor.RGB{R: 0.02, G: 1.03, B: 0.0})
	labels.SetRGB(2, 0, hdrcolor.RGB{R: 0.4, G: 0.5, B: 0.9})

	c, err := ExtractCloudType(labels, solid(3, 1, gray(1)), scolor.Cumulus, 1)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), c.NRGBAAt(0, 0).A)
	assert.Equal(t, uint8(0), c.NRGBAAt(1, 0).A)
	assert.Equal(t, uint8(0), c.NRGBAAt(2, 0).A)
}

func TestExtractCloudTypeMismatch(t *testing.T) {
	_, err := ExtractCloudType(solid(3, 3, red), solid(4, 3, red), scolor.Cumulus, 1)
	assert.True(t, errors.Is(err, raster.ErrShapeMismatch))

	_, err = ExtractAllCloudTypes(solid(3, 3, red), solid(4, 3, red), 1)
	assert.True(t, errors.Is(err, raster.ErrShapeMismatch))
}

func TestCoverage(t *testing.T) {
	labels := labelImage(7, 1)
	c, err := ExtractCloudType(labels, solid(7, 1, gray(1)), scolor.ClearSky, 1)
	require.NoError(t, err)
	assert.InDelta(t, 4.0/7.0, Coverage(c), 1e-9)
	assert.Equal(t, 0.0, Coverage(image.NewNRGBA(image.Rect(0, 0, 0, 0))))
}

package pano

import(
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/mdouchement/hdr/hdrcolor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/panosky/pkg/raster"
	"github.com/abworrall/panosky/pkg/scolor"
)

// Stand-ins for the external programs

type fakeRenderer struct{ got SkyParams }

func (f *fakeRenderer)RenderSky(ctx context.Context, p SkyParams, outPath string) error {
	f.got = p
	h := raster.NewHDR(p.Resolution, p.Resolution/2)
	for y:=0; y<h.Rect.Dy(); y++ {
		for x:=0; x<h.Rect.Dx(); x++ {
			v := 0.2 + 0.8*float64(y)/float64(h.Rect.Dy())
			h.SetRGB(x, y, hdrcolor.RGB{R: 0.4*v, G: 0.6*v, B: v})
		}
	}
	return h.Save(outPath)
}

type fakeConverter struct{}

// Writes a half-resolution HDR version of the input.
func (fakeConverter)ToHDR(ctx context.Context, ldrPath, hdrPath string) error {
	img, err := raster.LoadImage(ldrPath)
	if err != nil {
		return err
	}
	b := img.Bounds()
	h := raster.NewHDR(b.Dx()/2, b.Dy()/2)
	for y:=0; y<h.Rect.Dy(); y++ {
		for x:=0; x<h.Rect.Dx(); x++ {
			c := scolor.NewRGB8(img.At(x*2, y*2))
			h.SetRGB(x, y, hdrcolor.RGB{R: float64(c.R)/255, G: float64(c.G)/255, B: float64(c.B)/255})
		}
	}
	return h.Save(hdrPath)
}

// Labels the left half as cumulus, the right half as clear sky.
type fakeClassifier struct{ gotSize image.Rectangle }

func (f *fakeClassifier)Classify(ctx context.Context, hdrPath, outPath string) error {
	in, err := raster.OpenHDR(hdrPath)
	if err != nil {
		return err
	}
	f.gotSize = in.Bounds()
	out := raster.NewHDR(in.Rect.Dx(), in.Rect.Dy())
	for y:=0; y<out.Rect.Dy(); y++ {
		for x:=0; x<out.Rect.Dx(); x++ {
			if x < out.Rect.Dx()/2 {
				out.SetRGB(x, y, hdrcolor.RGB{R: 1})
			} else {
				out.SetRGB(x, y, hdrcolor.RGB{R: 0.3, G: 0.5, B: 0.9})
			}
		}
	}
	return out.Save(outPath)
}

type brokenTool struct{}

func (brokenTool)RenderSky(ctx context.Context, p SkyParams, outPath string) error {
	return fmt.Errorf("no sky today")
}

// writePanorama makes a 64x32 scene: sky above row 20, grass below, and a
// 4x4 sun centred on (41.5, 7.5).
func writePanorama(t *testing.T, dir string) Panorama {
	img := image.NewNRGBA(image.Rect(0, 0, 64, 32))
	for y:=0; y<32; y++ {
		for x:=0; x<64; x++ {
			c := color.NRGBA{90, 140, 230, 255}
			if y >= 20 {
				c = color.NRGBA{40, 90, 40, 255}
			} else if x >= 40 && x < 44 && y >= 6 && y < 10 {
				c = color.NRGBA{255, 255, 255, 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	fn := filepath.Join(dir, "pano1.png")
	require.NoError(t, raster.WritePNG(img, fn))
	return Panorama{ID: "pano1", Filename: fn}
}

func testConfig(dir string) Config {
	c := NewConfig()
	c.OutputDir = filepath.Join(dir, "out")
	c.Sensitivity = 80
	c.Tonemapper = "linear"
	c.Workers = 2
	return c
}

func TestProcessWithoutTools(t *testing.T) {
	dir := t.TempDir()
	p := writePanorama(t, dir)

	pl := &Pipeline{Config: testConfig(dir)}
	r, err := pl.Process(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, 20, r.GroundY)
	assert.Equal(t, 0, r.Fallbacks)
	assert.InDelta(t, 41.5, r.Sun.X, 0.01)
	assert.InDelta(t, 7.5, r.Sun.Y, 0.01)
	assert.InDelta(t, 33.75, r.ElevationDeg, 0.01)
	assert.Equal(t, 25, r.ShiftLeft)
	assert.Equal(t, image.Rect(0, 0, 64, 20), r.Trim.Bounds())

	// The sun is now a quarter of the way across
	assert.Equal(t, uint8(255), r.Trim.NRGBAAt(16, 7).R)

	assert.Equal(t, []string{"locate", "align"}, r.Stages)
	assert.Equal(t, []string{"sky", "hdr", "classify", "attenuation"}, r.Skipped)

	for _, suffix := range []string{"_shifted.png", "_trim.png", ".yaml"} {
		_, err := os.Stat(pl.path("pano1", suffix))
		assert.NoError(t, err, suffix)
	}

	md, err := LoadMetadata(pl.path("pano1", ".yaml"))
	require.NoError(t, err)
	assert.Equal(t, 20, md.GroundY)
	assert.Equal(t, [2]int{41, 7}, md.Sun)
	assert.Equal(t, [2]int{64, 32}, md.Resolution)
	assert.Equal(t, "straight", md.GroundKind)
	assert.Nil(t, md.Attenuation)
}

func TestProcessAllStages(t *testing.T) {
	dir := t.TempDir()
	p := writePanorama(t, dir)

	renderer := &fakeRenderer{}
	classifier := &fakeClassifier{}
	cfg := testConfig(dir)
	cfg.Verbosity = 1
	cfg.DebugPoints = []image.Point{{5, 5}}

	pl := &Pipeline{Config: cfg, Renderer: renderer, Converter: fakeConverter{}, Classifier: classifier}
	r, err := pl.Process(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, []string{"locate", "align", "sky", "hdr", "classify", "attenuation"}, r.Stages)
	assert.Empty(t, r.Skipped)

	assert.Equal(t, 32, renderer.got.Resolution)
	assert.Equal(t, 0.5, renderer.got.Albedo)
	assert.Equal(t, 3.0, renderer.got.Turbidity)
	assert.InDelta(t, 33.75, renderer.got.ElevationDeg, 0.01)

	// 32x16 HDR upscaled by 2, then trimmed to the sky
	assert.Equal(t, image.Rect(0, 0, 64, 20), classifier.gotSize)

	assert.Equal(t, r.Trim.Bounds(), r.SkyLDR.Bounds())
	assert.Equal(t, r.Trim.Bounds(), r.Matte.Bounds())

	require.Len(t, r.Cutouts, 4)
	assert.InDelta(t, 0.5, r.Coverage["cumulus"], 1e-9)
	assert.InDelta(t, 0.5, r.Coverage["clearsky"], 1e-9)
	assert.InDelta(t, 0.0, r.Coverage["cirrus"], 1e-9)

	require.NotNil(t, r.Attenuation)
	assert.Equal(t, 64*20, len(r.Attenuation.Status))

	files := []string{".yaml", "_shifted.png", "_trim.png", "_sky.hdr", "_sky.png", "_removedsky.png",
		".hdr", "_upscaled.hdr", "_upscaled_trim.hdr", "_classified.hdr", "_classified_cumulus.png",
		"_classified_clearsky.png", "_classified_cirrus.png", "_classified_stratocumulus.png",
		"_attenuation.png", "_overlay.png", "_horizon.png"}
	for _, suffix := range files {
		_, err := os.Stat(pl.path("pano1", suffix))
		assert.NoError(t, err, suffix)
	}

	md, err := LoadMetadata(pl.path("pano1", ".yaml"))
	require.NoError(t, err)
	require.NotNil(t, md.Attenuation)
	assert.Equal(t, 64*20, md.Attenuation.Total)
}

func TestProcessToolFailure(t *testing.T) {
	dir := t.TempDir()
	p := writePanorama(t, dir)

	pl := &Pipeline{Config: testConfig(dir), Renderer: brokenTool{}}
	_, err := pl.Process(context.Background(), p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no sky today")

	_, err = pl.Process(context.Background(), Panorama{ID: "x", Filename: filepath.Join(dir, "missing.png")})
	assert.Error(t, err)
}

func TestShiftForSun(t *testing.T) {
	assert.Equal(t, 25, ShiftForSun(41.5, 64))
	assert.Equal(t, -16, ShiftForSun(0, 64))
}

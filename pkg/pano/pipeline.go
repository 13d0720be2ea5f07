package pano

import(
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/golang/glog"

	"github.com/abworrall/panosky/pkg/raster"
	"github.com/abworrall/panosky/pkg/scolor"
	"github.com/abworrall/panosky/pkg/sky"
)

// A Pipeline runs every stage for one panorama at a time. Stages that
// need an external tool are skipped if the tool is nil.
type Pipeline struct {
	Config     Config
	Renderer   SkyRenderer
	Converter  HDRConverter
	Classifier Classifier
}

// NewPipeline wires up the external tools named in the config, leaving
// out any that can't be found.
func NewPipeline(cfg Config) *Pipeline {
	pl := &Pipeline{Config: cfg}

	if t := NewExecTool("sky_renderer", cfg.SkyRenderer); t.Available() {
		pl.Renderer = t
	} else {
		glog.Warningf("sky renderer %s not available; sky matte and attenuation will be skipped", t)
	}
	if t := NewExecTool("hdr_converter", cfg.HDRConverter); t.Available() {
		pl.Converter = t
	} else {
		glog.Warningf("HDR converter %s not available; HDR and classification will be skipped", t)
	}
	if t := NewExecTool("classifier", cfg.Classifier); t.Available() {
		pl.Classifier = t
	} else {
		glog.Warningf("classifier %s not available; cutouts and attenuation will be skipped", t)
	}

	return pl
}

// Result holds everything computed for one panorama.
type Result struct {
	Metadata

	Ground      sky.GroundLine
	Sun         sky.Position2D
	Trim        *image.NRGBA  // shifted so the sun is at width/4, ground removed
	SkyLDR      image.Image   // rendered sky, tonemapped and sized to Trim
	Matte       *image.NRGBA
	Classified  *raster.HDR
	Cutouts     map[scolor.CloudClass]*image.NRGBA
	Attenuation *sky.AttenuationMap
}

func (pl *Pipeline)path(id, suffix string) string {
	return filepath.Join(pl.Config.OutputDir, id+suffix)
}

func (r *Result)ran(stage string)      { r.Stages = append(r.Stages, stage) }
func (r *Result)skipped(stage string)  { r.Skipped = append(r.Skipped, stage) }

// ShiftForSun is how far left to rotate a panorama so the sun ends up a
// quarter of the way across, which is where the sky model puts it.
func ShiftForSun(sunX float64, width int) int {
	return int(sunX) - width/4
}

func (pl *Pipeline)Process(ctx context.Context, p Panorama) (*Result, error) {
	cfg := pl.Config
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("mkdir '%s': %v", cfg.OutputDir, err)
	}

	img, err := raster.LoadImage(p.Filename)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	w := b.Dx()

	r := &Result{}
	r.ID = p.ID
	r.Source = p.Filename
	r.Resolution = [2]int{w, b.Dy()}
	if !p.CaptureTime.IsZero() {
		t := p.CaptureTime
		r.CaptureTime = &t
	}

	if err := pl.locate(img, r); err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}

	// Rotate the sun into place, and trim the ground off
	r.ShiftLeft = ShiftForSun(r.Sun.X, w)
	shifted := raster.ShiftLeft(img, r.ShiftLeft)
	if err := raster.WritePNG(shifted, pl.path(p.ID, "_shifted.png")); err != nil {
		return nil, err
	}
	r.Trim = raster.Crop(shifted, w, r.GroundY)
	if err := raster.WritePNG(r.Trim, pl.path(p.ID, "_trim.png")); err != nil {
		return nil, err
	}
	r.ran("align")

	if cfg.Verbosity > 0 {
		pl.writeDiagnostics(img, r)
	}

	if pl.Renderer == nil {
		r.skipped("sky")
	} else if err := pl.skyStage(ctx, r); err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}

	if pl.Converter == nil {
		r.skipped("hdr")
		r.skipped("classify")
	} else if err := pl.hdrStage(ctx, r); err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	} else if pl.Classifier == nil {
		r.skipped("classify")
	} else if err := pl.classifyStage(ctx, r); err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}

	if r.SkyLDR == nil || r.Classified == nil {
		r.skipped("attenuation")
	} else if err := pl.attenuationStage(r); err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}

	if err := r.Metadata.Save(pl.path(p.ID, ".yaml")); err != nil {
		return nil, err
	}
	glog.Infof("%s: done, ran %v, skipped %v", p.ID, r.Stages, r.Skipped)

	return r, nil
}

// locate finds the ground and the sun.
func (pl *Pipeline)locate(img image.Image, r *Result) error {
	cfg := pl.Config

	r.Ground = sky.DetectHorizon(img, cfg.HorizonOptions())
	if r.Ground.Fallbacks > 0 {
		glog.Warningf("%s: no horizon found in %d column(s), low confidence in ground line", r.ID, r.Ground.Fallbacks)
	}
	r.GroundY = r.Ground.CutY()
	if r.GroundY < 1 {
		return fmt.Errorf("ground line at row %d leaves no sky", r.GroundY)
	}
	r.GroundKind = r.Ground.Kind.String()
	r.Fallbacks = r.Ground.Fallbacks
	r.Sensitivity = cfg.HorizonSensitivity()
	r.Bias = cfg.GetBias().String()

	r.Sun = sky.LocateSun(img, r.GroundY, sky.SunOptions{ClusterFraction: cfg.ClusterFraction, Workers: cfg.Workers})
	r.Metadata.Sun = [2]int{r.Sun.Point().X, r.Sun.Point().Y}
	r.ElevationDeg = sky.ElevationDeg(r.Sun.Y, r.GroundY)

	glog.V(1).Infof("%s: %s, sun at %s, elevation %.1f", r.ID, r.Ground, r.Sun, r.ElevationDeg)
	r.ran("locate")
	return nil
}

// skyStage renders a clear sky for the sun's elevation, and uses it to
// matte out the sky from the trimmed panorama.
func (pl *Pipeline)skyStage(ctx context.Context, r *Result) error {
	cfg := pl.Config
	params := SkyParams{
		Albedo:       cfg.Albedo,
		ElevationDeg: r.ElevationDeg,
		Turbidity:    cfg.Turbidity,
		Resolution:   r.Resolution[0] / 2,
	}

	skyHDRFile := pl.path(r.ID, "_sky.hdr")
	if err := pl.Renderer.RenderSky(ctx, params, skyHDRFile); err != nil {
		return fmt.Errorf("render sky: %w", err)
	}
	skyHDR, err := raster.OpenHDR(skyHDRFile)
	if err != nil {
		return fmt.Errorf("render sky: %w", err)
	}

	ldr, err := Tonemap(skyHDR, cfg.Tonemapper)
	if err != nil {
		return fmt.Errorf("tonemap sky: %w", err)
	}
	tb := r.Trim.Bounds()
	r.SkyLDR = raster.Resize(ldr, tb.Dx(), tb.Dy())
	if err := raster.WritePNG(r.SkyLDR, pl.path(r.ID, "_sky.png")); err != nil {
		return err
	}

	r.Matte, err = sky.ExtractSkyMatte(r.Trim, r.SkyLDR, cfg.GetMatteMode(), cfg.Workers)
	if err != nil {
		return err
	}
	if err := raster.WritePNG(r.Matte, pl.path(r.ID, "_removedsky.png")); err != nil {
		return err
	}

	r.ran("sky")
	return nil
}

// hdrStage expands the shifted panorama to HDR, then brings the result
// back up to full resolution and trims it to match.
func (pl *Pipeline)hdrStage(ctx context.Context, r *Result) error {
	hdrFile := pl.path(r.ID, ".hdr")
	if err := pl.Converter.ToHDR(ctx, pl.path(r.ID, "_shifted.png"), hdrFile); err != nil {
		return fmt.Errorf("ldr->hdr: %w", err)
	}
	h, err := raster.OpenHDR(hdrFile)
	if err != nil {
		return fmt.Errorf("ldr->hdr: %w", err)
	}

	factor := 1
	if h.Rect.Dx() > 0 && r.Resolution[0] / h.Rect.Dx() > 1 {
		factor = r.Resolution[0] / h.Rect.Dx()
	}
	up, err := h.Upscale(factor)
	if err != nil {
		return err
	}
	if err := up.Save(pl.path(r.ID, "_upscaled.hdr")); err != nil {
		return err
	}

	upTrim := up.Crop(r.Resolution[0], r.GroundY)
	if err := upTrim.Save(pl.path(r.ID, "_upscaled_trim.hdr")); err != nil {
		return err
	}

	glog.V(1).Infof("%s: hdr %s upscaled x%d to %s", r.ID, h, factor, upTrim)
	r.ran("hdr")
	return nil
}

// classifyStage labels the clouds and cuts out one image per cloud type.
func (pl *Pipeline)classifyStage(ctx context.Context, r *Result) error {
	classifiedFile := pl.path(r.ID, "_classified.hdr")
	if err := pl.Classifier.Classify(ctx, pl.path(r.ID, "_upscaled_trim.hdr"), classifiedFile); err != nil {
		return fmt.Errorf("classify: %w", err)
	}
	labels, err := raster.OpenHDR(classifiedFile)
	if err != nil {
		return fmt.Errorf("classify: %w", err)
	}

	tb := r.Trim.Bounds()
	if err := raster.SameSize(labels.Bounds(), tb); err != nil {
		glog.Warningf("%s: classifier output %v, resizing to %dx%d", r.ID, err, tb.Dx(), tb.Dy())
		labels = labels.ResizeNearest(tb.Dx(), tb.Dy())
	}
	r.Classified = labels

	r.Cutouts, err = sky.ExtractAllCloudTypes(labels, r.Trim, pl.Config.Workers)
	if err != nil {
		return err
	}

	r.Coverage = map[string]float64{}
	for class, cutout := range r.Cutouts {
		if err := raster.WritePNG(cutout, pl.path(r.ID, "_classified_"+class.String()+".png")); err != nil {
			return err
		}
		r.Coverage[class.String()] = sky.Coverage(cutout)
	}

	r.ran("classify")
	return nil
}

func (pl *Pipeline)attenuationStage(r *Result) error {
	am, err := sky.EstimateInscattering(r.Trim, r.Classified, r.SkyLDR, sky.InscatterOptions{
		Radius:      pl.Config.NeighbourRadius,
		Workers:     pl.Config.Workers,
		DebugPoints: pl.Config.DebugPoints,
	})
	if err != nil {
		return err
	}
	r.Attenuation = am

	s := am.Summary()
	mean, sd := am.MeanStdDev()
	r.Metadata.Attenuation = &AttenuationStats{
		Valid:  am.Valid(),
		Total:  len(am.Status),
		Mean:   mean,
		StdDev: sd,
		P05:    s.P05,
		P50:    s.P50,
		P95:    s.P95,
	}
	glog.Infof("%s: %s; %s", r.ID, am, s)
	glog.V(1).Infof("%s: raw %s", r.ID, am.Da.Stats())

	title := fmt.Sprintf("%s Da, %d/%d valid", r.ID, am.Valid(), len(am.Status))
	if err := am.Da.ToImg(title, pl.path(r.ID, "_attenuation.png")); err != nil {
		return err
	}

	r.ran("attenuation")
	return nil
}

func (pl *Pipeline)writeDiagnostics(img image.Image, r *Result) {
	if err := WriteOverlay(img, r.Ground, r.Sun, pl.path(r.ID, "_overlay.png")); err != nil {
		glog.Warningf("%s: %v", r.ID, err)
	}
	if err := WriteHorizonPlot(r.Ground, r.Resolution[1], pl.path(r.ID, "_horizon.png")); err != nil {
		glog.Warningf("%s: %v", r.ID, err)
	}
	if r.Ground.Kind == sky.Silhouette {
		hist := GroundHistogram(r.Ground, r.Resolution[1])
		glog.Infof("%s: ground rows (%% of height):\n%v", r.ID, hist)
	}
}

package main

import(
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/golang/glog"

	"github.com/abworrall/panosky/pkg/pano"
)

// glog owns -v, so our own verbosity knob is spelled out
var(
	fVerbosity int
	fOutputDir string
	fQuality int
	fSensitivity float64
	fBias string
	fSilhouette bool
	fMatteMode string
	fTonemapper string
	fWorkers int
	fDumpConfig bool
)

func init() {
	flag.IntVar(&fVerbosity, "verbosity", -1, "how verbose to get (writes diagnostic images if >0)")
	flag.StringVar(&fOutputDir, "out", "", "directory for all outputs")
	flag.IntVar(&fQuality, "quality", -1, "panorama quality level; horizon sensitivity is quality*5+15")
	flag.Float64Var(&fSensitivity, "sensitivity", 0, "explicit horizon sensitivity (0-255), overrides -quality")
	flag.StringVar(&fBias, "bias", "", "which third of the panorama to trust for the ground line: left, middle, right")
	flag.BoolVar(&fSilhouette, "silhouette", false, "detect the ground per column instead of one straight cut")
	flag.StringVar(&fMatteMode, "matte", "", "sky matte: foreground (sky transparent) or keepsky")
	flag.StringVar(&fTonemapper, "tonemapper", "", "how to tonemap the rendered sky: "+pano.ListTonemappers())
	flag.IntVar(&fWorkers, "workers", 0, "goroutines per stage (0 = one per CPU)")
	flag.BoolVar(&fDumpConfig, "dumpconfig", false, "print the final configuration as YAML and exit")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] panorama.jpg|dir|config.yaml ...\n", os.Args[0])
		flag.PrintDefaults()
	}
}

// applyFlags overrides anything loaded from a .yaml with explicitly set flags.
func applyFlags(cfg *pano.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "verbosity":   cfg.Verbosity = fVerbosity
		case "out":         cfg.OutputDir = fOutputDir
		case "quality":     cfg.Quality = fQuality
		case "sensitivity": cfg.Sensitivity = fSensitivity
		case "bias":        cfg.Bias = strings.ToLower(fBias)
		case "silhouette":  cfg.StraightCut = !fSilhouette
		case "matte":       cfg.MatteMode = fMatteMode
		case "tonemapper":  cfg.Tonemapper = fTonemapper
		case "workers":     cfg.Workers = fWorkers
		}
	})
}

func main() {
	flag.Parse()
	defer glog.Flush()

	glog.Infof("panosky starting\n")

	batch := pano.NewBatch()
	if err := batch.LoadFilesAndDirs(flag.Args()...); err != nil {
		glog.Fatal(err)
	}
	applyFlags(&batch.Config)

	if err := batch.Config.Validate(); err != nil {
		glog.Fatal(err)
	}
	if fDumpConfig {
		fmt.Print(batch.Config.AsYaml())
		return
	}
	if batch.Config.Verbosity > 0 {
		glog.Infof("Final configuration:-\n\n%s\n", batch.Config.AsYaml())
	}
	if len(batch.Panoramas) == 0 {
		flag.Usage()
		glog.Fatal("no panoramas to process")
	}

	ctx := context.Background()
	pl := pano.NewPipeline(batch.Config)

	nFailed := 0
	for _, p := range batch.Panoramas {
		if _, err := pl.Process(ctx, p); err != nil {
			glog.Errorf("%v", err)
			nFailed++
		}
	}

	glog.Infof("processed %d panoramas, %d failed", len(batch.Panoramas), nFailed)
	if nFailed > 0 {
		glog.Flush()
		os.Exit(1)
	}
}

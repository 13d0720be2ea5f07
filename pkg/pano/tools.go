package pano

import(
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"
)

// SkyParams are the inputs to the parametric sky model.
type SkyParams struct {
	Albedo       float64 // ground albedo, [0,1]
	ElevationDeg float64
	Turbidity    float64
	Resolution   int     // width of the render, in pixels
}

// A SkyRenderer renders a clear sky, as an RGBE file, at outPath.
type SkyRenderer interface {
	RenderSky(ctx context.Context, p SkyParams, outPath string) error
}

// An HDRConverter expands an LDR photo into an RGBE file.
type HDRConverter interface {
	ToHDR(ctx context.Context, ldrPath, hdrPath string) error
}

// A Classifier paints cloud labels over an HDR sky, writing an RGBE file
// that uses the palette in scolor.
type Classifier interface {
	Classify(ctx context.Context, hdrPath, outPath string) error
}

// ToolConfig describes how to run an external program. Args may contain
// placeholders: {in}, {out}, {albedo}, {elevation}, {turbidity},
// {resolution}.
type ToolConfig struct {
	Argv    []string `yaml:"argv"`
	Dir     string   `yaml:"dir,omitempty"`     // working directory
	Timeout string   `yaml:"timeout,omitempty"` // e.g. "10m"; none if empty
}

// ExecTool runs a configured external program. It implements all three
// tool interfaces; which placeholders get filled depends on the call.
type ExecTool struct {
	Name string
	ToolConfig
}

func NewExecTool(name string, tc ToolConfig) ExecTool {
	return ExecTool{Name: name, ToolConfig: tc}
}

func (t ExecTool)String() string { return fmt.Sprintf("%s%v", t.Name, t.Argv) }

// Available is true if the program is configured and can be found.
func (t ExecTool)Available() bool {
	if len(t.Argv) == 0 {
		return false
	}
	_, err := exec.LookPath(t.Argv[0])
	return err == nil
}

func (t ExecTool)RenderSky(ctx context.Context, p SkyParams, outPath string) error {
	return t.Run(ctx, map[string]string{
		"out":        outPath,
		"albedo":     formatFloat(p.Albedo),
		"elevation":  formatFloat(p.ElevationDeg),
		"turbidity":  formatFloat(p.Turbidity),
		"resolution": strconv.Itoa(p.Resolution),
	})
}

func (t ExecTool)ToHDR(ctx context.Context, ldrPath, hdrPath string) error {
	return t.Run(ctx, map[string]string{"in": ldrPath, "out": hdrPath})
}

func (t ExecTool)Classify(ctx context.Context, hdrPath, outPath string) error {
	return t.Run(ctx, map[string]string{"in": hdrPath, "out": outPath})
}

// Expand fills in the placeholders in the argv template. Unknown
// placeholders are left alone.
func (t ExecTool)Expand(vars map[string]string) []string {
	argv := make([]string, len(t.Argv))
	for i, arg := range t.Argv {
		for k, v := range vars {
			arg = strings.ReplaceAll(arg, "{"+k+"}", v)
		}
		argv[i] = arg
	}
	return argv
}

func (t ExecTool)Run(ctx context.Context, vars map[string]string) error {
	if len(t.Argv) == 0 {
		return fmt.Errorf("tool %s: no command configured", t.Name)
	}

	if t.Timeout != "" {
		d, err := time.ParseDuration(t.Timeout)
		if err != nil {
			return fmt.Errorf("tool %s: timeout '%s': %v", t.Name, t.Timeout, err)
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	argv := t.Expand(vars)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = t.Dir

	glog.V(1).Infof("running %s: %q", t.Name, argv)
	start := time.Now()
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("tool %s %q: %v\n%s", t.Name, argv, err, out)
	}
	glog.V(2).Infof("%s finished in %s, output:\n%s", t.Name, time.Since(start), out)

	return nil
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

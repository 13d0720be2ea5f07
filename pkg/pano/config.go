package pano

import(
	"fmt"
	"image"

	"github.com/golang/glog"
	"gopkg.in/yaml.v2"

	"github.com/abworrall/panosky/pkg/sky"
)

type Config struct {
	Verbosity       int

	OutputDir       string

	// Horizon detection. Sensitivity, if zero, is derived from Quality.
	Quality         int
	Sensitivity     float64
	StraightCut     bool
	Bias            string   // left, middle, right

	ClusterFraction float64  // sun blob threshold, as a fraction of peak luma

	// Sky model
	Albedo          float64
	Turbidity       float64
	Tonemapper      string   // turns the rendered HDR sky into LDR

	MatteMode       string   // foreground, or keepsky to match the older tool's removedsky

	NeighbourRadius int
	DebugPoints     []image.Point

	Workers         int

	// External tools; a tool with no argv is skipped
	SkyRenderer     ToolConfig `yaml:"sky_renderer"`
	HDRConverter    ToolConfig `yaml:"hdr_converter"`
	Classifier      ToolConfig `yaml:"classifier"`
}

func newConfigFromYaml(b []byte) (Config, error) {
	c := NewConfig()
	err := yaml.Unmarshal(b, &c)
	return c, err
}

func (c Config)AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		glog.Fatalf("Can't marshal config yaml: %v\n", err)
	}
	return string(b)
}

func NewConfig() Config {
	return Config{
		OutputDir:       ".",
		Quality:         3,
		StraightCut:     true,
		Bias:            "middle",
		ClusterFraction: sky.DefaultClusterFraction,
		Albedo:          0.5,
		Turbidity:       3.0,
		Tonemapper:      "reinhard05",
		MatteMode:       "foreground",
		NeighbourRadius: sky.DefaultNeighbourRadius,
		SkyRenderer:     ToolConfig{Argv: []string{"imgtool", "makesky", "--albedo", "{albedo}",
			"--elevation", "{elevation}", "--outfile", "{out}", "--turbidity", "{turbidity}",
			"--resolution", "{resolution}"}},
		HDRConverter:    ToolConfig{Argv: []string{"ldr2hdr", "{in}", "{out}"}},
		Classifier:      ToolConfig{Argv: []string{"classify", "5", "400", "100", "0", "{in}", "{out}"}},
	}
}

// HorizonSensitivity is the explicit sensitivity if one is set, else it
// scales with the quality level.
func (c Config)HorizonSensitivity() float64 {
	if c.Sensitivity > 0 {
		return c.Sensitivity
	}
	return float64(c.Quality*5 + 15)
}

func (c Config)GetBias() sky.Bias {
	b, err := sky.ParseBias(c.Bias)
	if err != nil {
		glog.Fatalf("config: %v", err)
	}
	return b
}

func (c Config)GetMatteMode() sky.MatteMode {
	m, err := sky.ParseMatteMode(c.MatteMode)
	if err != nil {
		glog.Fatalf("config: %v", err)
	}
	return m
}

// Validate catches bad values early, before any work is done.
func (c Config)Validate() error {
	if _, err := sky.ParseBias(c.Bias); err != nil {
		return fmt.Errorf("config: %v", err)
	}
	if _, err := sky.ParseMatteMode(c.MatteMode); err != nil {
		return fmt.Errorf("config: %v", err)
	}
	if !IsTonemapper(c.Tonemapper) {
		return fmt.Errorf("config: tonemapper '%s' not recognized, wanted %s", c.Tonemapper, ListTonemappers())
	}
	if c.Albedo < 0 || c.Albedo > 1 {
		return fmt.Errorf("config: albedo %.2f not in [0,1]", c.Albedo)
	}
	if c.Quality < 0 {
		return fmt.Errorf("config: quality %d < 0", c.Quality)
	}
	return nil
}

func (c Config)HorizonOptions() sky.HorizonOptions {
	return sky.HorizonOptions{
		Sensitivity: c.HorizonSensitivity(),
		StraightCut: c.StraightCut,
		Bias:        c.GetBias(),
		Workers:     c.Workers,
	}
}

package pano

import(
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Metadata is written next to the outputs for each panorama, as
// <id>.yaml.
type Metadata struct {
	ID           string
	Source       string
	CaptureTime  *time.Time `yaml:"capture_time,omitempty"`
	Resolution   [2]int

	GroundY      int        `yaml:"ground_y"`
	GroundKind   string     `yaml:"ground_kind"`
	Fallbacks    int
	Sensitivity  float64
	Bias         string

	Sun          [2]int
	ElevationDeg float64    `yaml:"elevation_deg"`
	ShiftLeft    int        `yaml:"shift_left"`

	Stages       []string   // stages that ran
	Skipped      []string   `yaml:",omitempty"`

	Coverage     map[string]float64 `yaml:",omitempty"` // fraction of sky per cloud type
	Attenuation  *AttenuationStats  `yaml:",omitempty"`
}

type AttenuationStats struct {
	Valid  int
	Total  int
	Mean   float64
	StdDev float64 `yaml:"stddev"`
	P05    float64
	P50    float64
	P95    float64
}

func (md Metadata)Save(filename string) error {
	b, err := yaml.Marshal(md)
	if err != nil {
		return fmt.Errorf("metadata yaml '%s': %v", filename, err)
	}
	if err := os.WriteFile(filename, b, 0644); err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	}
	return nil
}

func LoadMetadata(filename string) (Metadata, error) {
	md := Metadata{}
	b, err := os.ReadFile(filename)
	if err != nil {
		return md, fmt.Errorf("open+r '%s': %v", filename, err)
	}
	err = yaml.Unmarshal(b, &md)
	return md, err
}

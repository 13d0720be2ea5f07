package pano

import(
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/rwcarlsen/goexif/exif"
)

// A Panorama is one stitched 360 photo waiting to be processed. The image
// itself is only read when processing starts.
type Panorama struct {
	ID          string    // basename, used to name all the outputs
	Filename    string
	CaptureTime time.Time // zero if the file has no EXIF date
}

func (p Panorama)String() string { return fmt.Sprintf("%s[%s]", p.ID, p.Filename) }

// A Batch is the set of panoramas named on the command line, plus any
// config found alongside them.
type Batch struct {
	Config    Config
	Panoramas []Panorama
}

func NewBatch() *Batch {
	return &Batch{Config: NewConfig()}
}

func (b *Batch)LoadFilesAndDirs(args ...string) error {
	for _, arg := range args {
		item, err := os.Stat(arg)

		switch {

		case err != nil:
			return fmt.Errorf("load %s: %v", arg, err)

		case item.IsDir():
			// Is a dir, recurse into contents
			contents, err := os.ReadDir(arg)
			if err != nil {
				return fmt.Errorf("readdir %s: %v", arg, err)
			}
			for _, content := range contents {
				if err := b.LoadFilesAndDirs(filepath.Join(arg, content.Name())); err != nil {
					return fmt.Errorf("load %s: %v", arg, err)
				}
			}

		default: // is a file, load it
			if err := b.loadFile(arg); err != nil {
				return fmt.Errorf("loadfile %s: %v", arg, err)
			}
		}
	}

	return nil
}

func (b *Batch)loadFile(filename string) error {
	ext := filepath.Ext(filename)

	switch strings.ToLower(ext) {

	case ".jpg", ".jpeg", ".png":
		base := filepath.Base(filename)
		p := Panorama{
			ID:       strings.TrimSuffix(base, filepath.Ext(base)),
			Filename: filename,
		}
		if t, err := captureTime(filename); err != nil {
			glog.V(1).Infof("%s: no capture time: %v", filename, err)
		} else {
			p.CaptureTime = t
		}
		b.Panoramas = append(b.Panoramas, p)

	case ".yaml":
		cfg, err := loadConfig(filename)
		if err != nil {
			return fmt.Errorf("Loading %s as config YAML failed: %v", filename, err)
		}
		b.Config = cfg
		glog.Infof("Loaded base configuration from %s\n", filename)
	}

	return nil
}

func loadConfig(filename string) (Config, error) {
	contents, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("config read %s: %v", filename, err)
	}

	return newConfigFromYaml(contents)
}

func captureTime(filename string) (time.Time, error) {
	reader, err := os.Open(filename)
	if err != nil {
		return time.Time{}, fmt.Errorf("open+r exif '%s': %v", filename, err)
	}
	defer reader.Close()

	ex, err := exif.Decode(reader)
	if err != nil {
		return time.Time{}, fmt.Errorf("exif parsing '%s': %v", filename, err)
	}
	return ex.DateTime()
}

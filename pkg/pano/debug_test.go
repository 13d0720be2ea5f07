package pano

import(
	"fmt"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/panosky/pkg/sky"
)

func TestDiagnostics(t *testing.T) {
	dir := t.TempDir()
	gl := sky.GroundLine{Kind: sky.Silhouette}
	for x:=0; x<50; x++ {
		gl.Points = append(gl.Points, image.Point{x, 20 + x%7})
	}

	img := image.NewNRGBA(image.Rect(0, 0, 50, 30))
	overlay := filepath.Join(dir, "overlay.png")
	require.NoError(t, WriteOverlay(img, gl, sky.Position2D{X: 10, Y: 5}, overlay))

	plotFile := filepath.Join(dir, "horizon.png")
	require.NoError(t, WriteHorizonPlot(gl, 30, plotFile))

	for _, fn := range []string{overlay, plotFile} {
		st, err := os.Stat(fn)
		require.NoError(t, err)
		assert.True(t, st.Size() > 0)
	}

	assert.Error(t, WriteOverlay(img, gl, sky.Position2D{}, filepath.Join(dir, "no", "such", "dir.png")))

	hist := GroundHistogram(gl, 30)
	assert.NotEmpty(t, fmt.Sprintf("%v", hist))
}

package raster_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridplane/gridplane/internal/engine"
	"github.com/gridplane/gridplane/internal/raster"
)

func rgb(c color.Color) (r, g, b uint32) {
	r, g, b, _ = c.RGBA()
	return r >> 8, g >> 8, b >> 8
}

func newScene(t *testing.T) (*engine.Engine, *raster.Target) {
	t.Helper()
	target, err := raster.New(800, 600)
	require.NoError(t, err)
	t.Cleanup(func() { _ = target.Close() })

	e, err := engine.New(target)
	require.NoError(t, err)
	return e, target
}

func TestNewRejectsEmptySize(t *testing.T) {
	_, err := raster.New(0, 10)
	require.Error(t, err)
}

func TestBackgroundAndFilledCircle(t *testing.T) {
	e, target := newScene(t)

	_, err := e.AddCircle(2, -1.5, 0.5, engine.Colour("red"), engine.Filled(true))
	require.NoError(t, err)
	require.NoError(t, target.Err())

	img := target.Image()
	r, g, b := rgb(img.At(411, 289))
	assert.Equal(t, [3]uint32{255, 255, 255}, [3]uint32{r, g, b}, "background between gridlines")

	r, g, b = rgb(img.At(601, 455))
	assert.Greater(t, r, uint32(200))
	assert.Less(t, g, uint32(60))
	assert.Less(t, b, uint32(60))
}

func TestBorderIsPainted(t *testing.T) {
	_, target := newScene(t)
	r, g, b := rgb(target.Image().At(1, 300))
	assert.Less(t, r+g+b, uint32(100))
}

func TestDrawsImagesAndText(t *testing.T) {
	e, target := newScene(t)

	pic := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			pic.Set(x, y, color.RGBA{B: 255, A: 255})
		}
	}
	_, err := e.AddImage(pic, -3, 2, 1, 1, 0)
	require.NoError(t, err)
	_, err = e.AddText("gridplane", 0, 0, "center", engine.Font("Go Mono"))
	require.NoError(t, err)
	require.NoError(t, target.Err())

	r, g, b := rgb(target.Image().At(151, 149))
	assert.Less(t, r, uint32(60))
	assert.Less(t, g, uint32(60))
	assert.Greater(t, b, uint32(200))
}

// boundsOnly is a Picture with no pixels.
type boundsOnly struct{}

func (boundsOnly) Bounds() image.Rectangle { return image.Rect(0, 0, 4, 4) }

func TestUnpaintablePictureIsReported(t *testing.T) {
	e, target := newScene(t)
	_, err := e.AddImage(boundsOnly{}, 0, 0, 1, 1, 0)
	require.NoError(t, err)
	require.Error(t, target.Err())

	var buf bytes.Buffer
	require.Error(t, target.EncodePNG(&buf))
}

func TestEncodePNG(t *testing.T) {
	_, target := newScene(t)

	var buf bytes.Buffer
	require.NoError(t, target.EncodePNG(&buf))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 800, 600), img.Bounds())
}

func TestParseColour(t *testing.T) {
	for in, want := range map[string][3]uint32{
		"white":   {255, 255, 255},
		"Red":     {255, 0, 0},
		"#555":    {0x55, 0x55, 0x55},
		"#ee0155": {0xee, 0x01, 0x55},
		"#12":     {0, 0, 0},
		"nope":    {0, 0, 0},
	} {
		r, g, b := rgb(raster.ParseColour(in))
		assert.Equal(t, want, [3]uint32{r, g, b}, in)
	}
}

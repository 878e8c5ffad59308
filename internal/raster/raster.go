// Package raster paints engine scenes into an in-memory RGBA image using gg.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"strings"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/colornames"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/gridplane/gridplane/internal/engine"
)

// Target is an engine.Target backed by a gg context. Unknown colours paint
// black; the first paint failure is kept and reported by Err.
type Target struct {
	dc *gg.Context

	fill, stroke color.Color

	regular, mono *text.FontSource
	faces         map[faceKey]text.Face

	err error
}

type faceKey struct {
	mono bool
	size float64
}

var _ engine.FrameTarget = (*Target)(nil)

// New allocates a width×height target.
func New(width, height int) (*Target, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("raster: size %dx%d must be positive", width, height)
	}
	regular, err := text.NewFontSource(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("raster: load regular font: %w", err)
	}
	mono, err := text.NewFontSource(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("raster: load mono font: %w", err)
	}
	return &Target{
		dc:      gg.NewContext(width, height),
		fill:    color.Black,
		stroke:  color.Black,
		regular: regular,
		mono:    mono,
		faces:   make(map[faceKey]text.Face),
	}, nil
}

// Close releases the underlying context.
func (t *Target) Close() error { return t.dc.Close() }

func (t *Target) Size() (float64, float64) {
	return float64(t.dc.Width()), float64(t.dc.Height())
}

// Resize reallocates the pixel buffer. The next redraw repaints everything.
func (t *Target) Resize(width, height int) error {
	return t.dc.Resize(width, height)
}

// BeginFrame clears the error of the previous frame.
func (t *Target) BeginFrame() { t.err = nil }

func (t *Target) SetFillColour(c string)   { t.fill = ParseColour(c) }
func (t *Target) SetStrokeColour(c string) { t.stroke = ParseColour(c) }
func (t *Target) SetLineWidth(w float64)   { t.dc.SetLineWidth(w) }

func (t *Target) BeginPath()          { t.dc.ClearPath() }
func (t *Target) ClosePath()          { t.dc.ClosePath() }
func (t *Target) MoveTo(x, y float64) { t.dc.MoveTo(x, y) }
func (t *Target) LineTo(x, y float64) { t.dc.LineTo(x, y) }

func (t *Target) Arc(x, y, r, start, end float64) {
	sx, sy := x+r*math.Cos(start), y+r*math.Sin(start)
	if _, _, ok := t.dc.GetCurrentPoint(); ok {
		t.dc.LineTo(sx, sy)
	} else {
		t.dc.MoveTo(sx, sy)
	}
	t.dc.DrawArc(x, y, r, start, end)
}

func (t *Target) Fill() {
	t.dc.SetColor(t.fill)
	t.keep(t.dc.Fill())
}

func (t *Target) Stroke() {
	t.dc.SetColor(t.stroke)
	t.keep(t.dc.Stroke())
}

func (t *Target) DrawImage(pic engine.Picture, x, y, w, h, rotation float64) {
	img, ok := pic.(image.Image)
	if !ok {
		t.keep(fmt.Errorf("raster: cannot paint picture of type %T", pic))
		return
	}
	buf := gg.ImageBufFromImage(img)

	t.dc.Push()
	defer t.dc.Pop()
	t.dc.Translate(x+w/2, y+h/2)
	if rotation != 0 {
		t.dc.Rotate(rotation)
	}
	t.dc.DrawImageEx(buf, gg.DrawImageOptions{
		X:         -w / 2,
		Y:         -h / 2,
		DstWidth:  w,
		DstHeight: h,
	})
}

func (t *Target) FillText(s string, x, y float64, align engine.Align, font string, size float64) {
	t.dc.SetFont(t.face(font, size))
	t.dc.SetColor(t.fill)

	ax := 0.0
	switch align {
	case engine.AlignCenter:
		ax = 0.5
	case engine.AlignRight:
		ax = 1
	}
	t.dc.DrawStringAnchored(s, x, y, ax, 0.5)
}

func (t *Target) face(family string, size float64) text.Face {
	key := faceKey{mono: isMonospace(family), size: size}
	if f, ok := t.faces[key]; ok {
		return f
	}
	src := t.regular
	if key.mono {
		src = t.mono
	}
	f := src.Face(size)
	t.faces[key] = f
	return f
}

func isMonospace(family string) bool {
	f := strings.ToLower(family)
	return strings.Contains(f, "mono") || strings.Contains(f, "courier") || strings.Contains(f, "consol")
}

func (t *Target) keep(err error) {
	if err != nil && t.err == nil {
		t.err = err
	}
}

// Err returns the first paint failure since the last redraw began.
func (t *Target) Err() error { return t.err }

// Image returns the painted pixels.
func (t *Target) Image() image.Image { return t.dc.Image() }

// EncodePNG writes the painted pixels as PNG.
func (t *Target) EncodePNG(w io.Writer) error {
	if t.err != nil {
		return errors.Join(errors.New("raster: frame painted with errors"), t.err)
	}
	return t.dc.EncodePNG(w)
}

// ParseColour accepts CSS colour names and #rgb, #rgba, #rrggbb or #rrggbbaa
// hex strings. Anything else is black.
func ParseColour(s string) color.Color {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		switch len(s) {
		case 4, 5, 7, 9:
			return gg.Hex(s).Color()
		}
		return color.Black
	}
	if c, ok := colornames.Map[strings.ToLower(s)]; ok {
		return c
	}
	return color.Black
}

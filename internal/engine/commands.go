package engine

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// DrawCommand is a single drawing operation for a Canvas2D frontend to execute.
// Frontends receive a frame as a list of these in painter's order.
type DrawCommand struct {
	Op           string        `json:"op"`                     // "fill", "stroke", "text" or "image"
	Path         []PathCommand `json:"path,omitempty"`         // Path data for fill/stroke ops
	Fill         string        `json:"fill,omitempty"`         // Fill colour
	Stroke       string        `json:"stroke,omitempty"`       // Stroke colour
	StrokeWidth  float64       `json:"strokeWidth,omitempty"`  // Stroke width
	X            float64       `json:"x"`                      // Anchor for text and images
	Y            float64       `json:"y"`                      //
	Width        float64       `json:"width,omitempty"`        // Image destination size
	Height       float64       `json:"height,omitempty"`       //
	Rotation     float64       `json:"rotation,omitempty"`     // Clockwise image rotation
	Text         string        `json:"text,omitempty"`         // Label for text ops
	Align        string        `json:"align,omitempty"`        // left, center or right
	Font         string        `json:"font,omitempty"`         // CSS font, e.g. "25px Arial"
	ImageAssetID string        `json:"imageAssetId,omitempty"` // Asset ID for image lookup

	// Picture is the painted image, kept for in-process replay.
	Picture Picture `json:"-"`
}

// PathCommand is a single path segment.
// Format matches Canvas2D: ["M", x, y], ["L", x, y], ["A", x, y, r, start, end], ["Z"].
type PathCommand []any

// Recorder is a Target that records draw commands instead of painting. Each
// redraw replaces the previously recorded frame.
type Recorder struct {
	width, height float64

	fill, stroke string
	lineWidth    float64
	path         []PathCommand

	commands []DrawCommand
}

// NewRecorder returns a Recorder reporting the given pixel size.
func NewRecorder(width, height float64) *Recorder {
	return &Recorder{width: width, height: height, lineWidth: 1}
}

func (r *Recorder) Size() (float64, float64) { return r.width, r.height }

// Resize changes the reported size. It takes effect on the next redraw.
func (r *Recorder) Resize(width, height float64) {
	r.width, r.height = width, height
}

func (r *Recorder) BeginFrame() { r.commands = r.commands[:0] }

func (r *Recorder) SetFillColour(c string)   { r.fill = c }
func (r *Recorder) SetStrokeColour(c string) { r.stroke = c }
func (r *Recorder) SetLineWidth(w float64)   { r.lineWidth = w }

func (r *Recorder) BeginPath()          { r.path = nil }
func (r *Recorder) ClosePath()          { r.path = append(r.path, PathCommand{"Z"}) }
func (r *Recorder) MoveTo(x, y float64) { r.path = append(r.path, PathCommand{"M", x, y}) }
func (r *Recorder) LineTo(x, y float64) { r.path = append(r.path, PathCommand{"L", x, y}) }

func (r *Recorder) Arc(x, y, radius, start, end float64) {
	r.path = append(r.path, PathCommand{"A", x, y, radius, start, end})
}

func (r *Recorder) Fill() {
	r.commands = append(r.commands, DrawCommand{Op: "fill", Path: r.path, Fill: r.fill})
	r.path = nil
}

func (r *Recorder) Stroke() {
	r.commands = append(r.commands, DrawCommand{
		Op:          "stroke",
		Path:        r.path,
		Stroke:      r.stroke,
		StrokeWidth: r.lineWidth,
	})
	r.path = nil
}

func (r *Recorder) DrawImage(pic Picture, x, y, w, h, rotation float64) {
	cmd := DrawCommand{Op: "image", X: x, Y: y, Width: w, Height: h, Rotation: rotation, Picture: pic}
	if ap, ok := pic.(AssetPicture); ok {
		cmd.ImageAssetID = ap.AssetID()
	}
	r.commands = append(r.commands, cmd)
}

func (r *Recorder) FillText(text string, x, y float64, align Align, font string, size float64) {
	r.commands = append(r.commands, DrawCommand{
		Op:    "text",
		X:     x,
		Y:     y,
		Text:  text,
		Align: align.String(),
		Font:  CSSFont(font, size),
		Fill:  r.fill,
	})
}

// Commands returns a copy of the last recorded frame.
func (r *Recorder) Commands() []DrawCommand {
	return slices.Clone(r.commands)
}

// CSSFont formats a font family and pixel size as a CSS font shorthand.
func CSSFont(family string, size float64) string {
	return strconv.FormatFloat(size, 'g', -1, 64) + "px " + family
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}

// ParseCSSFont splits a "<size>px <family>" shorthand as produced by CSSFont.
func ParseCSSFont(font string) (family string, size float64, err error) {
	px, family, ok := strings.Cut(font, "px ")
	if !ok {
		return "", 0, invalidf("font %q is not <size>px <family>", font)
	}
	size, err = strconv.ParseFloat(px, 64)
	if err != nil || size <= 0 {
		return "", 0, invalidf("font %q has a bad size", font)
	}
	return family, size, nil
}

// Replay paints recorded commands onto t. Images are taken from the command's
// Picture, or looked up by asset id when lookup is non-nil; images that cannot
// be resolved are skipped.
func Replay(t Target, commands []DrawCommand, lookup func(assetID string) Picture) error {
	if ft, ok := t.(FrameTarget); ok {
		ft.BeginFrame()
	}
	for i, cmd := range commands {
		switch cmd.Op {
		case "fill":
			t.SetFillColour(cmd.Fill)
			if err := replayPath(t, cmd.Path); err != nil {
				return fmt.Errorf("command %d: %w", i, err)
			}
			t.Fill()
		case "stroke":
			t.SetStrokeColour(cmd.Stroke)
			t.SetLineWidth(cmd.StrokeWidth)
			if err := replayPath(t, cmd.Path); err != nil {
				return fmt.Errorf("command %d: %w", i, err)
			}
			t.Stroke()
		case "text":
			align, err := ParseAlign(cmd.Align)
			if err != nil {
				return fmt.Errorf("command %d: %w", i, err)
			}
			family, size, err := ParseCSSFont(cmd.Font)
			if err != nil {
				return fmt.Errorf("command %d: %w", i, err)
			}
			t.SetFillColour(cmd.Fill)
			t.FillText(cmd.Text, cmd.X, cmd.Y, align, family, size)
		case "image":
			pic := cmd.Picture
			if pic == nil && lookup != nil && cmd.ImageAssetID != "" {
				pic = lookup(cmd.ImageAssetID)
			}
			if pic == nil {
				continue
			}
			t.DrawImage(pic, cmd.X, cmd.Y, cmd.Width, cmd.Height, cmd.Rotation)
		default:
			return fmt.Errorf("command %d: %w", i, invalidf("unknown op %q", cmd.Op))
		}
	}
	return nil
}

func replayPath(t Target, path []PathCommand) error {
	t.BeginPath()
	for _, seg := range path {
		if len(seg) == 0 {
			return invalidf("empty path segment")
		}
		verb, _ := seg[0].(string)
		args := make([]float64, len(seg)-1)
		for j, v := range seg[1:] {
			f, ok := number(v)
			if !ok {
				return invalidf("path segment %v has a non-numeric argument", seg)
			}
			args[j] = f
		}

		switch {
		case verb == "M" && len(args) == 2:
			t.MoveTo(args[0], args[1])
		case verb == "L" && len(args) == 2:
			t.LineTo(args[0], args[1])
		case verb == "A" && len(args) == 5:
			t.Arc(args[0], args[1], args[2], args[3], args[4])
		case verb == "Z" && len(args) == 0:
			t.ClosePath()
		default:
			return invalidf("bad path segment %v", seg)
		}
	}
	return nil
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

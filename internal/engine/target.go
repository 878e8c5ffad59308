package engine

import "image"

// Target is the surface the renderer paints on. Coordinates are pixels with the
// origin at the top-left and y increasing downward. Implementations follow
// Canvas2D path semantics: MoveTo starts a subpath, LineTo and Arc extend it,
// and Fill/Stroke paint and then discard the current path.
type Target interface {
	// Size reports the current pixel dimensions. It is read on every conversion.
	Size() (width, height float64)

	SetFillColour(colour string)
	SetStrokeColour(colour string)
	SetLineWidth(width float64)

	BeginPath()
	ClosePath()
	MoveTo(x, y float64)
	LineTo(x, y float64)
	// Arc adds a circular arc of radius r about (x, y) from angle start to end,
	// measured clockwise on screen from the positive x axis.
	Arc(x, y, r, start, end float64)
	Fill()
	Stroke()

	// DrawImage paints pic into the rectangle with top-left (x, y) and size
	// (w, h). A non-zero rotation turns the rectangle about its centre,
	// clockwise on screen, in radians.
	DrawImage(pic Picture, x, y, w, h, rotation float64)

	// FillText draws text with its baseline vertically centred on y, aligned
	// horizontally about x, in the current fill colour.
	FillText(text string, x, y float64, align Align, font string, size float64)
}

// Picture is an image that an Image object displays. Targets recognise the
// concrete types they can paint; image.Image values work with every bundled
// target.
type Picture interface {
	Bounds() image.Rectangle
}

// AssetPicture is a Picture that is also addressable by an asset id, which lets
// command-recording targets reference it without embedding pixels.
type AssetPicture interface {
	Picture
	AssetID() string
}

// FrameTarget is a Target that wants to know when a full redraw begins, for
// example to discard the commands of the previous frame.
type FrameTarget interface {
	Target
	BeginFrame()
}

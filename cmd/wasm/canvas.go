//go:build js && wasm

package main

import (
	"image"
	"syscall/js"

	"github.com/gridplane/gridplane/internal/engine"
)

// canvasTarget paints onto a <canvas> 2D context.
type canvasTarget struct {
	el  js.Value
	ctx js.Value
}

func newCanvasTarget(el js.Value) *canvasTarget {
	return &canvasTarget{el: el, ctx: el.Call("getContext", "2d")}
}

func (c *canvasTarget) Size() (float64, float64) {
	return c.el.Get("width").Float(), c.el.Get("height").Float()
}

func (c *canvasTarget) SetFillColour(s string)   { c.ctx.Set("fillStyle", s) }
func (c *canvasTarget) SetStrokeColour(s string) { c.ctx.Set("strokeStyle", s) }
func (c *canvasTarget) SetLineWidth(w float64)   { c.ctx.Set("lineWidth", w) }

func (c *canvasTarget) BeginPath()          { c.ctx.Call("beginPath") }
func (c *canvasTarget) ClosePath()          { c.ctx.Call("closePath") }
func (c *canvasTarget) MoveTo(x, y float64) { c.ctx.Call("moveTo", x, y) }
func (c *canvasTarget) LineTo(x, y float64) { c.ctx.Call("lineTo", x, y) }

func (c *canvasTarget) Arc(x, y, r, start, end float64) {
	c.ctx.Call("arc", x, y, r, start, end)
}

func (c *canvasTarget) Fill()   { c.ctx.Call("fill") }
func (c *canvasTarget) Stroke() { c.ctx.Call("stroke") }

func (c *canvasTarget) DrawImage(pic engine.Picture, x, y, w, h, rotation float64) {
	img, ok := pic.(*htmlImage)
	if !ok {
		return
	}
	c.ctx.Call("save")
	c.ctx.Call("translate", x+w/2, y+h/2)
	c.ctx.Call("rotate", rotation)
	c.ctx.Call("drawImage", img.el, -w/2, -h/2, w, h)
	c.ctx.Call("restore")
}

func (c *canvasTarget) FillText(text string, x, y float64, align engine.Align, font string, size float64) {
	c.ctx.Set("font", engine.CSSFont(font, size))
	c.ctx.Set("textAlign", align.String())
	c.ctx.Set("textBaseline", "middle")
	c.ctx.Call("fillText", text, x, y)
}

// htmlImage is an <img> element registered by the page.
type htmlImage struct {
	id string
	el js.Value
}

func (h *htmlImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, h.el.Get("naturalWidth").Int(), h.el.Get("naturalHeight").Int())
}

func (h *htmlImage) AssetID() string { return h.id }

//go:build js && wasm

package main

import (
	"encoding/json"
	"log/slog"
	"syscall/js"

	"github.com/gridplane/gridplane/internal/engine"
	"github.com/gridplane/gridplane/internal/samples"
	"github.com/gridplane/gridplane/internal/scene"
)

var (
	eng       *engine.Engine
	input     *engine.Input
	canvas    *canvasTarget
	animation *engine.Animation
	pictures  = map[string]*htmlImage{}
)

func main() {
	doc := js.Global().Get("document")
	el := doc.Call("getElementById", "gridplane")
	if el.IsNull() || el.IsUndefined() {
		slog.Error("no <canvas id=\"gridplane\"> in page")
		return
	}
	canvas = newCanvasTarget(el)

	var err error
	eng, err = engine.New(canvas, engine.WithScheduler(requestAnimationFrame))
	if err != nil {
		slog.Error("create engine", "error", err)
		return
	}
	input = engine.NewInput(eng)
	listen(el)

	api := js.Global().Get("Object").New()

	// --- Commands (page → engine) ---
	api.Set("loadSample", js.FuncOf(loadSample))
	api.Set("addObject", js.FuncOf(addObject))
	api.Set("removeObject", js.FuncOf(removeObject))
	api.Set("clear", js.FuncOf(clearScene))
	api.Set("setZ", js.FuncOf(setZ))
	api.Set("registerImage", js.FuncOf(registerImage))
	api.Set("resetView", js.FuncOf(resetView))
	api.Set("resize", js.FuncOf(resize))
	api.Set("stopAnimation", js.FuncOf(stopAnimation))

	// --- Queries (page ← engine) ---
	api.Set("samples", js.FuncOf(listSamples))
	api.Set("toReal", js.FuncOf(toReal))
	api.Set("objectCount", js.FuncOf(func(js.Value, []js.Value) interface{} { return eng.Len() }))

	js.Global().Set("gridplane", api)
	js.Global().Set("gridplaneWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func requestAnimationFrame(cb func()) {
	var fn js.Func
	fn = js.FuncOf(func(js.Value, []js.Value) interface{} {
		fn.Release()
		cb()
		return nil
	})
	js.Global().Call("requestAnimationFrame", fn)
}

func listen(el js.Value) {
	on := func(event string, handler func(e js.Value) error) {
		el.Call("addEventListener", event, js.FuncOf(func(this js.Value, args []js.Value) interface{} {
			if err := handler(args[0]); err != nil {
				slog.Warn("input event", "event", event, "error", err)
			}
			return nil
		}))
	}
	pos := func(e js.Value) (float64, float64) {
		return e.Get("offsetX").Float(), e.Get("offsetY").Float()
	}

	on("mousedown", func(e js.Value) error {
		input.PointerDown(pos(e))
		return nil
	})
	on("mousemove", func(e js.Value) error {
		return input.PointerMove(pos(e))
	})
	on("mouseup", func(js.Value) error {
		input.PointerUp()
		return nil
	})
	on("mouseleave", func(js.Value) error {
		input.PointerLeave()
		return nil
	})
	on("wheel", func(e js.Value) error {
		e.Call("preventDefault")
		x, y := pos(e)
		// Scrolling up zooms in.
		return input.WheelAt(-e.Get("deltaY").Float(), x, y)
	})
}

func result(err error) interface{} {
	if err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}
	return js.ValueOf(map[string]interface{}{"ok": true})
}

// --- Command Handlers ---

func loadSample(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing sample name"})
	}
	smp, err := samples.Lookup(args[0].String())
	if err != nil {
		return result(err)
	}
	if animation != nil {
		animation.Stop()
	}
	var opts samples.Options
	if pic, ok := pictures["globe"]; ok {
		opts.Picture = pic
	}
	animation, err = smp.Install(eng, opts)
	return result(err)
}

func addObject(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing object JSON"})
	}
	var spec scene.ObjectSpec
	if err := json.Unmarshal([]byte(args[0].String()), &spec); err != nil {
		return result(err)
	}
	id, err := scene.Add(eng, spec, func(id string) engine.Picture {
		if pic, ok := pictures[id]; ok {
			return pic
		}
		return nil
	})
	if err != nil {
		return result(err)
	}
	return js.ValueOf(map[string]interface{}{"ok": true, "id": float64(id)})
}

func removeObject(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing object id"})
	}
	if err := eng.Remove(engine.ID(args[0].Int())); err != nil {
		return result(err)
	}
	return result(eng.Redraw())
}

func clearScene(this js.Value, args []js.Value) interface{} {
	if animation != nil {
		animation.Stop()
		animation = nil
	}
	eng.RemoveAll()
	return result(eng.Redraw())
}

func setZ(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(map[string]interface{}{"error": "missing object id or z"})
	}
	return result(eng.SetZ(engine.ID(args[0].Int()), args[1].Int()))
}

// registerImage makes a loaded <img> element available to image objects under id.
func registerImage(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(map[string]interface{}{"error": "missing id or image"})
	}
	pictures[args[0].String()] = &htmlImage{id: args[0].String(), el: args[1]}
	return result(nil)
}

func resetView(this js.Value, args []js.Value) interface{} {
	return result(eng.ResetView())
}

func resize(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(map[string]interface{}{"error": "missing width or height"})
	}
	canvas.el.Set("width", args[0].Int())
	canvas.el.Set("height", args[1].Int())
	return result(eng.Redraw())
}

func stopAnimation(this js.Value, args []js.Value) interface{} {
	if animation != nil {
		animation.Stop()
		animation = nil
	}
	return result(nil)
}

// --- Queries ---

func listSamples(this js.Value, args []js.Value) interface{} {
	out := []interface{}{}
	for _, s := range samples.All() {
		out = append(out, map[string]interface{}{
			"name":        s.Name,
			"title":       s.Title,
			"description": s.Description,
		})
	}
	return js.ValueOf(out)
}

func toReal(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(nil)
	}
	x, y := eng.Transform().ToReal(args[0].Float(), args[1].Float())
	return js.ValueOf(map[string]interface{}{"x": x, "y": y})
}

package scene_test

import (
	"encoding/json"
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridplane/gridplane/internal/engine"
	"github.com/gridplane/gridplane/internal/scene"
)

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e, err := engine.New(engine.NewRecorder(800, 600))
	require.NoError(t, err)
	return e
}

func decode(t *testing.T, raw string) scene.ObjectSpec {
	t.Helper()
	var spec scene.ObjectSpec
	require.NoError(t, json.Unmarshal([]byte(raw), &spec))
	return spec
}

func TestAddFromJSON(t *testing.T) {
	e := newEngine(t)
	pics := func(id string) engine.Picture {
		if id == "asset_a" {
			return image.Rect(0, 0, 2, 2)
		}
		return nil
	}

	for raw, want := range map[string]engine.Kind{
		`{"kind":"shape","points":[{"x":0,"y":0},{"x":1,"y":1}]}`:                        engine.KindShape,
		`{"kind":"polygon","sides":6,"centre":{"x":1,"y":2},"radius":3}`:                  engine.KindShape,
		`{"kind":"circle","centre":{"x":1,"y":2},"radius":3,"style":{"fill":true}}`:       engine.KindCircle,
		`{"kind":"function","curve":"square","domain":[-2,2]}`:                            engine.KindFunction,
		`{"kind":"parametric","curve":"spiral","domain":[0,10],"integerPoints":true}`:     engine.KindFunction,
		`{"kind":"line","point":{"x":0,"y":1},"direction":{"x":1,"y":0}}`:                 engine.KindLine,
		`{"kind":"text","text":"hi","position":{"x":0,"y":0},"style":{"fontSize":30}}`:    engine.KindText,
		`{"kind":"image","asset":"asset_a","position":{"x":0,"y":0},"width":1,"height":1}`: engine.KindImage,
	} {
		id, err := scene.Add(e, decode(t, raw), pics)
		require.NoError(t, err, raw)
		o, err := e.Get(id)
		require.NoError(t, err)
		assert.Equal(t, want, o.Kind(), raw)
	}
}

func TestStyleOverridesDefaults(t *testing.T) {
	e := newEngine(t)
	id, err := scene.Add(e, decode(t, `{"kind":"circle","radius":1,"style":{"colour":"red","lineWidth":4,"hidden":true,"font":"Go Mono"}}`), nil)
	require.NoError(t, err)

	o, err := e.Get(id)
	require.NoError(t, err)
	def := engine.DefaultSettings().DefaultStyle
	assert.Equal(t, "red", o.Style.Colour)
	assert.Equal(t, 4.0, o.Style.LineWidth)
	assert.True(t, o.Style.Hidden)
	assert.Equal(t, "Go Mono", o.Style.Font)
	assert.Equal(t, def.FontSize, o.Style.FontSize)
	assert.Equal(t, def.Fill, o.Style.Fill)
}

func TestFunctionAmplitudeAndFrequency(t *testing.T) {
	e := newEngine(t)
	id, err := scene.Add(e, decode(t, `{"kind":"function","curve":"sin","amplitude":2,"frequency":3,"domain":[0,1]}`), nil)
	require.NoError(t, err)

	o, err := e.Get(id)
	require.NoError(t, err)
	f := o.Data.(engine.Function)
	p, err := f.F(0.5)
	require.NoError(t, err)
	assert.InDelta(t, 2*math.Sin(1.5), p.Y, 1e-12)

	id, err = scene.Add(e, decode(t, `{"kind":"parametric","curve":"circle","amplitude":5,"domain":[0,6]}`), nil)
	require.NoError(t, err)
	o, err = e.Get(id)
	require.NoError(t, err)
	p, err = o.Data.(engine.Function).F(0)
	require.NoError(t, err)
	assert.InDelta(t, 5, p.X, 1e-12)
}

func TestTangentAndTextDefaults(t *testing.T) {
	e := newEngine(t)
	fn, err := scene.Add(e, decode(t, `{"kind":"function","curve":"square","domain":[-2,2]}`), nil)
	require.NoError(t, err)

	id, err := scene.Add(e, scene.ObjectSpec{Kind: "tangent", Of: fn, At: 1}, nil)
	require.NoError(t, err)
	o, err := e.Get(id)
	require.NoError(t, err)
	line := o.Data.(engine.Line)
	assert.InDelta(t, 2, line.Direction.Y/line.Direction.X, 1e-3)

	id, err = scene.Add(e, scene.ObjectSpec{Kind: "text", Text: "x"}, nil)
	require.NoError(t, err)
	o, err = e.Get(id)
	require.NoError(t, err)
	assert.Equal(t, engine.AlignCenter, o.Data.(engine.Text).Align)
}

func TestAddRejects(t *testing.T) {
	e := newEngine(t)
	for raw, sentinel := range map[string]error{
		`{"kind":"teapot"}`:                              engine.ErrInvalidArgument,
		`{"kind":"function","curve":"gamma","domain":[0,1]}`: engine.ErrInvalidArgument,
		`{"kind":"function","curve":"sin"}`:              engine.ErrInvalidArgument,
		`{"kind":"parametric","curve":"knot","domain":[0,1]}`: engine.ErrInvalidArgument,
		`{"kind":"image","asset":"asset_missing"}`:       engine.ErrNotFound,
		`{"kind":"tangent","of":42}`:                     engine.ErrNotFound,
		`{"kind":"line","direction":{"x":0,"y":0}}`:      engine.ErrInvalidArgument,
		`{"kind":"text","align":"justify"}`:              engine.ErrInvalidArgument,
	} {
		_, err := scene.Add(e, decode(t, raw), nil)
		require.ErrorIs(t, err, sentinel, raw)
	}
	assert.Equal(t, 0, e.Len())
}

func TestAddBoundsWireObjects(t *testing.T) {
	e := newEngine(t)
	for _, raw := range []string{
		`{"kind":"polygon","sides":1099511627776,"radius":1}`,
		`{"kind":"polygon","sides":4097,"radius":1}`,
		`{"kind":"function","curve":"sin","domain":[0,1e12]}`,
		`{"kind":"parametric","curve":"circle","domain":[-1e300,1e300]}`,
		`{"kind":"function","curve":"square","domain":[0,1e9],"integerPoints":true}`,
	} {
		_, err := scene.Add(e, decode(t, raw), nil)
		require.ErrorIs(t, err, engine.ErrInvalidArgument, raw)
	}
	assert.Equal(t, 0, e.Len())

	for _, raw := range []string{
		`{"kind":"polygon","sides":4096,"radius":1}`,
		`{"kind":"function","curve":"sin","domain":[0,1000]}`,
		`{"kind":"function","curve":"square","domain":[0,100000],"integerPoints":true}`,
	} {
		_, err := scene.Add(e, decode(t, raw), nil)
		require.NoError(t, err, raw)
	}
	assert.Equal(t, 3, e.Len())
}

func TestCurves(t *testing.T) {
	graph, parametric := scene.Curves()
	assert.IsIncreasing(t, graph)
	assert.IsIncreasing(t, parametric)
	assert.Contains(t, graph, "xsinx")
	assert.Contains(t, parametric, "lissajous")
}

package engine

import (
	"log/slog"
	"time"
)

// GridTier is one level of gridlines.
type GridTier struct {
	Spacing float64
	Colour  string
	Width   float64
}

// Gridlines holds the major and minor gridline tiers.
type Gridlines struct {
	Major GridTier
	Minor GridTier
}

// Axes controls drawing of the lines x=0 and y=0.
type Axes struct {
	Enabled bool
	Colour  string
	Width   float64
}

// Border is the frame stroked around the canvas.
type Border struct {
	Colour string
	Width  float64
}

// PanVeto is consulted before a pan by (dx, dy) real units. Returning false cancels it.
type PanVeto func(dx, dy float64) bool

// ZoomVeto is consulted before a zoom by factor anchored at pixel (px, py).
// Returning false cancels it.
type ZoomVeto func(factor, px, py float64) bool

// PanControl gates panning.
type PanControl struct {
	Enabled bool
	Veto    PanVeto
}

// ZoomControl gates zooming.
type ZoomControl struct {
	Enabled bool
	Veto    ZoomVeto
}

// Settings is the configuration surface of an engine.
type Settings struct {
	// Delta is the parameter step used when sampling functions.
	Delta        float64
	Gridlines    Gridlines
	Background   string
	Axes         Axes
	Border       Border
	DefaultStyle Style
	Zoom         ZoomControl
	Pan          PanControl
}

// DefaultSettings returns the settings a new engine starts with.
func DefaultSettings() Settings {
	return Settings{
		Delta: 0.02,
		Gridlines: Gridlines{
			Major: GridTier{Spacing: 1, Colour: "#555", Width: 1},
			Minor: GridTier{Spacing: 0.2, Colour: "#777", Width: 0.5},
		},
		Background: "white",
		Axes:       Axes{Enabled: true, Colour: "black", Width: 2},
		Border:     Border{Colour: "black", Width: 5},
		DefaultStyle: Style{
			Colour:    "#ee0155",
			LineWidth: 2,
			Font:      "Arial",
			FontSize:  25,
		},
		Zoom: ZoomControl{Enabled: true},
		Pan:  PanControl{Enabled: true},
	}
}

func (s Settings) validate() error {
	if !(s.Delta > 0) {
		return invalidf("sampling delta must be positive, got %g", s.Delta)
	}
	if !(s.Gridlines.Major.Spacing > 0) || !(s.Gridlines.Minor.Spacing > 0) {
		return invalidf("gridline spacing must be positive")
	}
	return nil
}

type options struct {
	settings  Settings
	scheduler FrameScheduler
	clock     func() time.Time
	logger    *slog.Logger
}

// Option configures a new Engine.
type Option func(*options)

// Configure edits the engine settings in place before validation.
func Configure(fn func(*Settings)) Option {
	return func(o *options) { fn(&o.settings) }
}

// WithDelta sets the function sampling step.
func WithDelta(delta float64) Option {
	return func(o *options) { o.settings.Delta = delta }
}

// WithDefaultStyle sets the style objects inherit.
func WithDefaultStyle(s Style) Option {
	return func(o *options) { o.settings.DefaultStyle = s }
}

// WithPanVeto installs a predicate consulted before every pan.
func WithPanVeto(v PanVeto) Option {
	return func(o *options) { o.settings.Pan.Veto = v }
}

// WithZoomVeto installs a predicate consulted before every zoom.
func WithZoomVeto(v ZoomVeto) Option {
	return func(o *options) { o.settings.Zoom.Veto = v }
}

// WithScheduler sets the host frame scheduler used by animations.
func WithScheduler(s FrameScheduler) Option {
	return func(o *options) { o.scheduler = s }
}

// WithClock replaces time.Now for animation timing.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// WithLogger sets the logger. By default the engine logs nothing.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

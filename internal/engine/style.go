package engine

// Style controls how an object is painted.
type Style struct {
	Colour    string
	LineWidth float64
	Fill      bool
	Font      string
	FontSize  float64
	Hidden    bool
}

// StyleOption overrides one field of the engine's default style.
type StyleOption func(*Style)

// Colour sets the fill and stroke colour (any CSS colour string).
func Colour(c string) StyleOption {
	return func(s *Style) { s.Colour = c }
}

// LineWidth sets the stroke width in pixels.
func LineWidth(w float64) StyleOption {
	return func(s *Style) { s.LineWidth = w }
}

// Filled fills the object's path instead of stroking it.
func Filled(fill bool) StyleOption {
	return func(s *Style) { s.Fill = fill }
}

// Font sets the font family used for text.
func Font(family string) StyleOption {
	return func(s *Style) { s.Font = family }
}

// FontSize sets the text size in pixels.
func FontSize(px float64) StyleOption {
	return func(s *Style) { s.FontSize = px }
}

// Hidden keeps the object in z-order but skips it when drawing.
func Hidden(hidden bool) StyleOption {
	return func(s *Style) { s.Hidden = hidden }
}

// WithStyle replaces every field with s.
func WithStyle(s Style) StyleOption {
	return func(dst *Style) { *dst = s }
}

func mergeStyle(defaults Style, opts []StyleOption) Style {
	s := defaults
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}

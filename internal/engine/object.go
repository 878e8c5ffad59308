package engine

import (
	"fmt"
	"strings"
)

// ID identifies an object for the lifetime of an engine. Ids are issued in
// strictly increasing order and never reused.
type ID uint64

// Kind names the variant of an object's data.
type Kind int

const (
	KindShape Kind = iota
	KindCircle
	KindFunction
	KindLine
	KindText
	KindImage
)

var kindNames = [...]string{
	KindShape:    "shape",
	KindCircle:   "circle",
	KindFunction: "function",
	KindLine:     "line",
	KindText:     "text",
	KindImage:    "image",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind maps a kind name such as "circle" to its Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if strings.EqualFold(s, name) {
			return Kind(k), nil
		}
	}
	return 0, invalidf("unknown object kind %q", s)
}

// Point is a position in real (plane) coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{x, y}.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

// Data is the kind-specific payload of an object. The set of implementations is
// closed: Shape, Circle, Function, Line, Text and Image.
type Data interface {
	Kind() Kind
	isData()
}

// Shape is a polyline through Points. It is drawn closed.
type Shape struct {
	Points []Point
}

// Circle is a circle in real units.
type Circle struct {
	Centre Point
	Radius float64
}

// ParametricFunc maps a parameter to a point on the plane. Returning an error
// wrapping ErrUndefined marks a gap in the curve; any other error aborts the
// redraw and is returned to the caller.
type ParametricFunc func(t float64) (Point, error)

// Domain is the parameter interval a function is sampled over.
type Domain struct {
	Start, End float64
	// IntegerPointsOnly samples only the integers in [Start, End].
	IntegerPointsOnly bool
}

// NewDomain validates an interval given as a two-element slice.
func NewDomain(interval []float64, integerPointsOnly bool) (Domain, error) {
	if len(interval) != 2 {
		return Domain{}, invalidf("interval must have 2 end points, got %d", len(interval))
	}
	d := Domain{Start: interval[0], End: interval[1], IntegerPointsOnly: integerPointsOnly}
	if err := d.validate(); err != nil {
		return Domain{}, err
	}
	return d, nil
}

func (d Domain) validate() error {
	if !(d.Start <= d.End) {
		return invalidf("interval start %g must not exceed end %g", d.Start, d.End)
	}
	return nil
}

// Function is a parametric curve over a domain.
type Function struct {
	F      ParametricFunc
	Domain Domain
}

// Line is the infinite line Point + t·Direction.
type Line struct {
	Point     Point
	Direction Point
}

// Align is the horizontal alignment of a text label.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

var alignNames = [...]string{AlignLeft: "left", AlignCenter: "center", AlignRight: "right"}

func (a Align) String() string {
	if a < 0 || int(a) >= len(alignNames) {
		return fmt.Sprintf("Align(%d)", int(a))
	}
	return alignNames[a]
}

// ParseAlign accepts "left", "center" or "right" in any case.
func ParseAlign(s string) (Align, error) {
	for a, name := range alignNames {
		if strings.EqualFold(s, name) {
			return Align(a), nil
		}
	}
	return 0, invalidf("alignment %q must be one of %s", s, strings.Join(alignNames[:], ", "))
}

// Text is a label anchored at Position.
type Text struct {
	Text     string
	Position Point
	Align    Align
}

// Image is a picture whose top-left corner sits at Position. Width and Height
// are in real units; Rotation is an anticlockwise angle in radians about the
// picture's centre, zero meaning unrotated.
type Image struct {
	Picture       Picture
	Position      Point
	Width, Height float64
	Rotation      float64
}

func (Shape) Kind() Kind    { return KindShape }
func (Circle) Kind() Kind   { return KindCircle }
func (Function) Kind() Kind { return KindFunction }
func (Line) Kind() Kind     { return KindLine }
func (Text) Kind() Kind     { return KindText }
func (Image) Kind() Kind    { return KindImage }

func (Shape) isData()    {}
func (Circle) isData()   {}
func (Function) isData() {}
func (Line) isData()     {}
func (Text) isData()     {}
func (Image) isData()    {}

// Object is a snapshot of a stored object.
type Object struct {
	ID    ID
	Data  Data
	Style Style
}

// Kind returns the kind of the object's data.
func (o Object) Kind() Kind { return o.Data.Kind() }

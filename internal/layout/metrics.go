// Package layout describes where the editor puts things on screen.
package layout

import "math"

// Rect is an on-screen rectangle in CSS pixels.
type Rect struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	W float64 `yaml:"w"`
	H float64 `yaml:"h"`
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

func (r Rect) Center() (float64, float64) {
	return r.X + r.W/2, r.Y + r.H/2
}

func (r Rect) Bottom() float64 {
	return r.Y + r.H
}

// Offset returns r translated by (dx, dy).
func (r Rect) Offset(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W, H: r.H}
}

// Centered returns a w×h rectangle centred on (cx, cy).
func Centered(cx, cy, w, h float64) Rect {
	return Rect{X: cx - w/2, Y: cy - h/2, W: w, H: h}
}

// RotatedBounds returns the axis-aligned box of a w×h box rotated by deg
// degrees around its centre.
func RotatedBounds(w, h, deg float64) (float64, float64) {
	if deg == 0 {
		return w, h
	}
	rad := deg * math.Pi / 180
	sin, cos := math.Abs(math.Sin(rad)), math.Abs(math.Cos(rad))
	return w*cos + h*sin, w*sin + h*cos
}

// Box is the rendered rectangle of one element and its computed font size
// (zero when the element has no text or the size is unknown).
type Box struct {
	Rect     Rect    `yaml:"rect"`
	FontSize float64 `yaml:"font_size,omitempty"`
}

// Metrics is what the layout collaborator reports for one scene. All
// rectangles share the wrapper's top-left corner as origin. Header and
// Footer are nil when the bar is not on screen.
type Metrics struct {
	ImageArea Rect        `yaml:"image_area"`
	Header    *Box        `yaml:"header,omitempty"`
	Footer    *Box        `yaml:"footer,omitempty"`
	Fields    map[int]Box `yaml:"fields,omitempty"`
}

// Field returns the box of the text or image field with the given id.
func (m Metrics) Field(id int) (Box, bool) {
	b, ok := m.Fields[id]
	return b, ok
}

// Height is the height of the whole wrapper.
func (m Metrics) Height() float64 {
	h := m.ImageArea.H
	if m.Header != nil {
		h += m.Header.Rect.H
	}
	if m.Footer != nil {
		h += m.Footer.Rect.H
	}
	return h
}

// Package geometry turns a scene and its on-screen layout into absolute
// rectangles relative to the capture origin.
package geometry

import (
	"errors"
	"fmt"

	"github.com/ivlev/memeshot/internal/layout"
	"github.com/ivlev/memeshot/internal/scene"
)

var (
	ErrGeometry     = errors.New("geometry error")
	ErrNoContent    = fmt.Errorf("%w: nothing to export", ErrGeometry)
	ErrInconsistent = fmt.Errorf("%w: inconsistent layout metrics", ErrGeometry)
)

// Placement is a field's destination in capture coordinates.
type Placement struct {
	ID       int
	Kind     scene.Kind // empty for image fields
	Text     string
	Rect     layout.Rect
	FontSize float64 // on-screen computed size, zero if unknown
}

// Geometry is the resolved layout of one export. Every rectangle except
// Capture is relative to Capture's top-left corner; Capture itself is in
// layout coordinates.
type Geometry struct {
	IncludeHeader bool
	IncludeFooter bool

	Capture   layout.Rect
	ImageArea layout.Rect
	Header    *Placement
	Footer    *Placement

	Texts  []Placement // regular text fields, scene order, placeholders excluded
	Images []Placement
}

func (g *Geometry) Width() float64  { return g.Capture.W }
func (g *Geometry) Height() float64 { return g.Capture.H }

// Resolve computes the capture rectangle and every visible field's
// rectangle. It fails with an error wrapping ErrNoContent when there is
// nothing to export, or ErrInconsistent when the metrics cannot describe the
// scene.
func Resolve(s *scene.Scene, m layout.Metrics) (*Geometry, error) {
	if !HasContent(s) {
		return nil, ErrNoContent
	}

	img := m.ImageArea
	if img.W <= 0 || img.H < 0 {
		return nil, fmt.Errorf("%w: image area %.1fx%.1f", ErrInconsistent, img.W, img.H)
	}

	g := &Geometry{
		IncludeHeader: s.HasHeaderText(),
		IncludeFooter: s.HasFooterText(),
	}
	if g.IncludeHeader && (m.Header == nil || m.Header.Rect.H <= 0) {
		return nil, fmt.Errorf("%w: header has text but no rendered bar", ErrInconsistent)
	}
	if g.IncludeFooter && (m.Footer == nil || m.Footer.Rect.H <= 0) {
		return nil, fmt.Errorf("%w: footer has text but no rendered bar", ErrInconsistent)
	}

	g.Capture = img
	if g.IncludeHeader || g.IncludeFooter {
		// The wrapper is captured: every bar on screen counts, blank ones too.
		top, bottom := img.Y, img.Bottom()
		if m.Header != nil {
			top = min(top, m.Header.Rect.Y)
		}
		if m.Footer != nil {
			bottom = max(bottom, m.Footer.Rect.Bottom())
		}
		g.Capture = layout.Rect{X: img.X, Y: top, W: img.W, H: bottom - top}
	}
	dx, dy := -g.Capture.X, -g.Capture.Y
	g.ImageArea = img.Offset(dx, dy)

	if g.IncludeHeader {
		f, _ := s.Header()
		g.Header = &Placement{
			ID:       f.ID,
			Kind:     scene.KindHeader,
			Text:     f.Text,
			Rect:     m.Header.Rect.Offset(dx, dy),
			FontSize: m.Header.FontSize,
		}
	}
	if g.IncludeFooter {
		f, _ := s.Footer()
		g.Footer = &Placement{
			ID:       f.ID,
			Kind:     scene.KindFooter,
			Text:     f.Text,
			Rect:     m.Footer.Rect.Offset(dx, dy),
			FontSize: m.Footer.FontSize,
		}
	}

	for _, f := range s.RegularFields() {
		if f.IsPlaceholder() {
			continue
		}
		box, _ := m.Field(f.ID)
		p := Placement{
			ID:       f.ID,
			Kind:     scene.KindRegular,
			Text:     f.Text,
			Rect:     g.place(f.X, f.Y, box.Rect.W, box.Rect.H),
			FontSize: box.FontSize,
		}
		g.Texts = append(g.Texts, p)
	}

	for _, f := range s.ImageFields {
		w, h := f.Width*f.Scale, f.Height*f.Scale
		if box, ok := m.Field(f.ID); ok {
			w, h = box.Rect.W, box.Rect.H
		}
		g.Images = append(g.Images, Placement{ID: f.ID, Rect: g.place(f.X, f.Y, w, h)})
	}

	return g, nil
}

// place centres a w×h box on a percentage position of the image area.
func (g *Geometry) place(xPct, yPct, w, h float64) layout.Rect {
	cx := g.ImageArea.X + xPct/100*g.ImageArea.W
	cy := g.ImageArea.Y + yPct/100*g.ImageArea.H
	return layout.Centered(cx, cy, w, h)
}

// HasContent is false when there is no background and no field would show
// anything.
func HasContent(s *scene.Scene) bool {
	if s == nil {
		return false
	}
	if s.Background != nil && !s.Background.Failed() {
		return true
	}
	for _, f := range s.TextFields {
		if f.HasText() {
			return true
		}
	}
	for _, f := range s.ImageFields {
		if f.Image == nil || !f.Image.Failed() {
			return true
		}
	}
	return false
}

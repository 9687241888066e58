package layout

import (
	"strings"

	"github.com/ivlev/memeshot/internal/fonts"
	"github.com/ivlev/memeshot/internal/scene"
)

// Editor stylesheet constants, in CSS pixels.
const (
	ScreenFontRatio = 0.4 // field font sizes are stored at export scale
	LineHeight      = 1.2

	BarPaddingX = 10
	BarPaddingY = 6
	BarBorder   = 2

	FieldPaddingX = 8
	FieldPaddingY = 4
	FieldMinWidth = 60

	DefaultAspect   = 0.75 // height/width of the image area without a background
	DefaultViewport = 512
)

// Estimator reproduces the editor's layout for a viewport of the given
// width: header bar, image area and footer bar stacked vertically, with
// overlay fields positioned by percentage inside the image area.
type Estimator struct {
	ViewportWidth float64
	Fonts         *fonts.Family
}

// NewEstimator creates an Estimator using the bold face for measurement.
func NewEstimator(viewportWidth float64) *Estimator {
	if viewportWidth <= 0 {
		viewportWidth = DefaultViewport
	}
	return &Estimator{
		ViewportWidth: viewportWidth,
		Fonts:         fonts.Bold(),
	}
}

// Measure lays the scene out. The background must have finished loading for
// the image area to take its aspect ratio; otherwise DefaultAspect is used.
func (e *Estimator) Measure(s *scene.Scene) Metrics {
	faces := e.Fonts.NewFaceCache()
	defer faces.Close()

	w := e.ViewportWidth
	m := Metrics{Fields: make(map[int]Box)}
	y := 0.0

	// Bars are only on screen when they have text.
	if f, ok := s.Header(); ok && f.Text != "" {
		b := e.bar(faces, f, y)
		m.Header = &b
		y += b.Rect.H
	}

	imgH := w * DefaultAspect
	if nw, nh := s.Background.NaturalSize(); nw > 0 && nh > 0 {
		imgH = w * float64(nh) / float64(nw)
	}
	m.ImageArea = Rect{X: 0, Y: y, W: w, H: imgH}
	y += imgH

	if f, ok := s.Footer(); ok && f.Text != "" {
		b := e.bar(faces, f, y)
		m.Footer = &b
	}

	for _, f := range s.RegularFields() {
		m.Fields[f.ID] = e.field(faces, f, m.ImageArea)
	}
	for _, f := range s.ImageFields {
		bw, bh := RotatedBounds(f.Width*f.Scale, f.Height*f.Scale, f.Rotation)
		cx := m.ImageArea.X + f.X/100*m.ImageArea.W
		cy := m.ImageArea.Y + f.Y/100*m.ImageArea.H
		m.Fields[f.ID] = Box{Rect: Centered(cx, cy, bw, bh)}
	}

	return m
}

func (e *Estimator) bar(faces *fonts.FaceCache, f scene.TextField, y float64) Box {
	px := f.FontSize * ScreenFontRatio
	lines := Wrap(faces, px, f.Text, e.ViewportWidth-2*BarPaddingX)
	h := float64(len(lines))*px*LineHeight + 2*BarPaddingY + BarBorder
	return Box{
		Rect:     Rect{X: 0, Y: y, W: e.ViewportWidth, H: h},
		FontSize: px,
	}
}

func (e *Estimator) field(faces *fonts.FaceCache, f scene.TextField, area Rect) Box {
	px := f.FontSize * ScreenFontRatio
	text := f.Text
	if f.IsPlaceholder() {
		text = scene.PlaceholderLabel
	}

	lines := strings.Split(text, "\n")
	textW := 0.0
	for _, line := range lines {
		if lw := faces.Measure(px, line); lw > textW {
			textW = lw
		}
	}

	w := textW + 2*FieldPaddingX
	if w < FieldMinWidth {
		w = FieldMinWidth
	}
	h := float64(len(lines))*px*LineHeight + 2*FieldPaddingY

	// getBoundingClientRect includes the scale and rotate transforms
	bw, bh := RotatedBounds(w*f.Scale, h*f.Scale, f.Rotation)
	cx := area.X + f.X/100*area.W
	cy := area.Y + f.Y/100*area.H
	return Box{Rect: Centered(cx, cy, bw, bh), FontSize: px}
}

// Wrap breaks text the way white-space: pre-wrap does: explicit line breaks
// are kept and words move to the next line when they would overflow maxW.
// A single word wider than maxW stays on its own line.
func Wrap(faces *fonts.FaceCache, px float64, text string, maxW float64) []string {
	var out []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Split(para, " ")
		line := ""
		for i, word := range words {
			if i == 0 {
				line = word
				continue
			}
			candidate := line + " " + word
			if maxW > 0 && line != "" && faces.Measure(px, candidate) > maxW {
				out = append(out, line)
				line = word
				continue
			}
			line = candidate
		}
		out = append(out, line)
	}
	return out
}

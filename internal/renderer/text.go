package renderer

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

type align int

const (
	alignLeft align = iota
	alignCenter
)

// mask renders s into an alpha mask whose origin is the baseline start.
func (p *painter) mask(s string, px float64) (*image.Alpha, font.Face) {
	face := p.faces.Face(px)
	b, _ := font.BoundString(face, s)
	r := image.Rect(b.Min.X.Floor(), b.Min.Y.Floor(), b.Max.X.Ceil(), b.Max.Y.Ceil())
	m := image.NewAlpha(r)
	d := &font.Drawer{
		Dst:  m,
		Src:  image.Opaque,
		Face: face,
		Dot:  fixed.P(0, 0),
	}
	d.DrawString(s)
	return m, face
}

// origin returns the baseline start for text anchored at (x, y), where y is
// the middle of the em box.
func origin(face font.Face, s string, x, y float64, a align) image.Point {
	if a == alignCenter {
		x -= float64(font.MeasureString(face, s)) / 64 / 2
	}
	m := face.Metrics()
	y += float64(m.Ascent-m.Descent) / 64 / 2
	return image.Pt(int(math.Round(x)), int(math.Round(y)))
}

func (p *painter) fillText(s string, px, x, y float64, a align, c color.Color) {
	if s == "" {
		return
	}
	m, face := p.mask(s, px)
	at := origin(face, s, x, y, a)
	draw.DrawMask(p.dst, m.Bounds().Add(at), &image.Uniform{c}, image.Point{}, m, m.Bounds().Min, draw.Over)
}

// strokeText outlines centred text with a pen of the given width by stamping
// the glyph mask at every offset inside the pen's radius.
func (p *painter) strokeText(s string, px, x, y, width float64, c color.Color) {
	if s == "" {
		return
	}
	m, face := p.mask(s, px)
	at := origin(face, s, x, y, alignCenter)
	src := &image.Uniform{c}

	r := width / 2
	ri := int(math.Ceil(r))
	for dy := -ri; dy <= ri; dy++ {
		for dx := -ri; dx <= ri; dx++ {
			if float64(dx*dx+dy*dy) > r*r {
				continue
			}
			off := at.Add(image.Pt(dx, dy))
			draw.DrawMask(p.dst, m.Bounds().Add(off), src, image.Point{}, m, m.Bounds().Min, draw.Over)
		}
	}
}

package analyzer

import (
	"image"
	"image/draw"

	"github.com/ivlev/memeshot/internal/system"
)

// DefaultTolerance is how far below 255 a channel may fall and still count
// as white margin.
const DefaultTolerance uint8 = 8

// Trim crops a uniform near-white or transparent margin from buf. When
// nothing would be removed buf itself is returned; otherwise the result is
// a pooled buffer and buf is left untouched.
func Trim(buf *image.RGBA, tolerance uint8) *image.RGBA {
	if buf.Rect.Empty() {
		return buf
	}
	box := FindBounds(buf, tolerance)
	if box.Width() == buf.Rect.Dx() && box.Height() == buf.Rect.Dy() {
		return buf
	}

	src := box.Rect().Add(buf.Rect.Min)
	out := system.GetImage(box.Width(), box.Height())
	draw.Draw(out, out.Rect, buf, src.Min, draw.Src)
	return out
}

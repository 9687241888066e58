package analyzer

import "image"

// BoundingBox is an inclusive pixel box: Top <= Bottom and Left <= Right.
type BoundingBox struct {
	Top, Bottom, Left, Right int
}

func (b BoundingBox) Width() int  { return b.Right - b.Left + 1 }
func (b BoundingBox) Height() int { return b.Bottom - b.Top + 1 }

// Rect converts the box to a half-open image.Rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.Left, b.Top, b.Right+1, b.Bottom+1)
}

// Contains reports whether o lies entirely inside b.
func (b BoundingBox) Contains(o BoundingBox) bool {
	return o.Top >= b.Top && o.Bottom <= b.Bottom && o.Left >= b.Left && o.Right <= b.Right
}

// isBackground treats fully transparent pixels as background whatever
// their colour.
func isBackground(r, g, b, a uint8, tolerance uint8) bool {
	if a == 0 {
		return true
	}
	t := 255 - tolerance
	return r >= t && g >= t && b >= t
}

// FindBounds scans top, bottom, left and right in that order. The left and
// right scans only look at rows inside the band found by the first two, so
// content outside that band cannot block horizontal trimming. A buffer
// that is entirely background yields the 1x1 box at the origin.
func FindBounds(img *image.RGBA, tolerance uint8) BoundingBox {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w == 0 || h == 0 {
		return BoundingBox{}
	}

	rowIsBackground := func(y int) bool {
		off := y * img.Stride
		for x := 0; x < w; x++ {
			p := img.Pix[off+x*4 : off+x*4+4 : off+x*4+4]
			if !isBackground(p[0], p[1], p[2], p[3], tolerance) {
				return false
			}
		}
		return true
	}
	colIsBackground := func(x, top, bottom int) bool {
		for y := top; y <= bottom; y++ {
			i := y*img.Stride + x*4
			p := img.Pix[i : i+4 : i+4]
			if !isBackground(p[0], p[1], p[2], p[3], tolerance) {
				return false
			}
		}
		return true
	}

	top := 0
	for top < h && rowIsBackground(top) {
		top++
	}
	if top == h {
		return BoundingBox{}
	}

	bottom := h - 1
	for bottom > top && rowIsBackground(bottom) {
		bottom--
	}

	left := 0
	for left < w && colIsBackground(left, top, bottom) {
		left++
	}

	right := w - 1
	for right > left && colIsBackground(right, top, bottom) {
		right--
	}

	return BoundingBox{Top: top, Bottom: bottom, Left: left, Right: right}
}

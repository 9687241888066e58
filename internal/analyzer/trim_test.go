package analyzer

import (
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filled(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

var (
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black = color.RGBA{A: 255}
)

func TestTrimMargin(t *testing.T) {
	// 820x620 with a 10px white margin around an 800x600 picture
	img := filled(820, 620, white)
	for y := 10; y < 610; y++ {
		for x := 10; x < 810; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}

	out := Trim(img, 8)
	assert.Equal(t, image.Rect(0, 0, 800, 600), out.Bounds())
	assert.Equal(t, color.RGBA{R: 200, G: 40, B: 40, A: 255}, out.RGBAAt(0, 0))
	// the source is left alone
	assert.Equal(t, white, img.RGBAAt(0, 0))
}

func TestTrimSinglePixel(t *testing.T) {
	img := filled(50, 40, white)
	img.SetRGBA(17, 23, black)

	box := FindBounds(img, 8)
	assert.Equal(t, BoundingBox{Top: 23, Bottom: 23, Left: 17, Right: 17}, box)

	out := Trim(img, 8)
	assert.Equal(t, 1, out.Bounds().Dx())
	assert.Equal(t, 1, out.Bounds().Dy())
	assert.Equal(t, black, out.RGBAAt(0, 0))
}

func TestTrimUniformCollapsesToOnePixel(t *testing.T) {
	for _, c := range []color.RGBA{white, {R: 250, G: 251, B: 252, A: 255}, {}} {
		out := Trim(filled(30, 20, c), 8)
		require.Equal(t, image.Rect(0, 0, 1, 1), out.Bounds(), "%v", c)
	}
}

func TestTrimNoop(t *testing.T) {
	img := filled(10, 10, black)
	out := Trim(img, 8)
	assert.Same(t, img, out)
}

func TestTransparentIsBackground(t *testing.T) {
	// transparent pixels count as margin whatever their colour channels
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = 40
	}
	img.SetRGBA(5, 5, color.RGBA{R: 10, A: 255})

	out := Trim(img, 0)
	require.Equal(t, image.Rect(0, 0, 1, 1), out.Bounds())
	assert.Equal(t, color.RGBA{R: 10, A: 255}, out.RGBAAt(0, 0))
}

func TestToleranceBoundary(t *testing.T) {
	img := filled(5, 5, white)
	img.SetRGBA(2, 2, color.RGBA{R: 247, G: 247, B: 247, A: 255})

	// 247 == 255-8 counts as white
	assert.Equal(t, image.Rect(0, 0, 1, 1), Trim(img, 8).Bounds())
	// one step stricter and it is content
	assert.Equal(t, BoundingBox{Top: 2, Bottom: 2, Left: 2, Right: 2}, FindBounds(img, 7))
}

func TestBlockBounds(t *testing.T) {
	img := filled(10, 10, white)
	for y := 4; y <= 6; y++ {
		for x := 3; x <= 6; x++ {
			img.SetRGBA(x, y, black)
		}
	}
	box := FindBounds(img, 8)
	assert.Equal(t, BoundingBox{Top: 4, Bottom: 6, Left: 3, Right: 6}, box)
	assert.Equal(t, 4, box.Width())
	assert.Equal(t, 3, box.Height())
}

func TestOffsetOrigin(t *testing.T) {
	img := image.NewRGBA(image.Rect(100, 100, 120, 110))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	img.SetRGBA(105, 104, black)
	img.SetRGBA(110, 106, black)

	out := Trim(img, 8)
	require.Equal(t, image.Rect(0, 0, 6, 3), out.Bounds())
	assert.Equal(t, black, out.RGBAAt(0, 0))
	assert.Equal(t, black, out.RGBAAt(5, 2))
}

func randomBuffer(r *rand.Rand) *image.RGBA {
	w, h := 1+r.Intn(40), 1+r.Intn(40)
	img := filled(w, h, white)
	// a frame of near-white noise around a few dark specks
	for i := 0; i < w*h/3; i++ {
		v := uint8(230 + r.Intn(26))
		img.SetRGBA(r.Intn(w), r.Intn(h), color.RGBA{R: v, G: v, B: v, A: uint8(r.Intn(2) * 255)})
	}
	for i := 0; i < 1+r.Intn(3); i++ {
		img.SetRGBA(r.Intn(w), r.Intn(h), black)
	}
	return img
}

func TestTrimIdempotent(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		img := randomBuffer(r)
		tol := uint8(r.Intn(40))

		once := Trim(img, tol)
		twice := Trim(once, tol)
		require.Equal(t, once.Bounds(), twice.Bounds(), "iteration %d", i)
		require.Equal(t, once.Pix, twice.Pix, "iteration %d", i)
	}
}

func TestLargerToleranceTrimsMore(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		img := randomBuffer(r)
		t1 := uint8(r.Intn(20))
		t2 := t1 + uint8(1+r.Intn(20))

		// black pixels survive any tolerance below 255, so neither box is
		// the degenerate all-background one
		b1 := FindBounds(img, t1)
		b2 := FindBounds(img, t2)
		require.True(t, b1.Contains(b2), "iteration %d: %+v not inside %+v", i, b2, b1)
	}
}

func TestEmptyBuffer(t *testing.T) {
	img := image.NewRGBA(image.Rectangle{})
	assert.Same(t, img, Trim(img, 8))
}

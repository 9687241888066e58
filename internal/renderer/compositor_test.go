package renderer

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/memeshot/internal/geometry"
	"github.com/ivlev/memeshot/internal/layout"
	"github.com/ivlev/memeshot/internal/scene"
	"github.com/ivlev/memeshot/internal/source"
)

var blue = color.RGBA{20, 60, 200, 255}

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func assertColor(t *testing.T, want, got color.RGBA) {
	t.Helper()
	assert.InDelta(t, want.R, got.R, 2)
	assert.InDelta(t, want.G, got.G, 2)
	assert.InDelta(t, want.B, got.B, 2)
}

// findInWindow reports whether any pixel within r of (x, y) satisfies fn.
func findInWindow(img *image.RGBA, x, y, r int, fn func(color.RGBA) bool) bool {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if fn(img.RGBAAt(x+dx, y+dy)) {
				return true
			}
		}
	}
	return false
}

func isWhite(c color.RGBA) bool { return c.R > 250 && c.G > 250 && c.B > 250 }
func isBlack(c color.RGBA) bool { return c.R < 5 && c.G < 5 && c.B < 5 }

func resolve(t *testing.T, s *scene.Scene, m layout.Metrics) *geometry.Geometry {
	t.Helper()
	g, err := geometry.Resolve(s, m)
	require.NoError(t, err)
	return g
}

func TestComposeCenteredText(t *testing.T) {
	s := &scene.Scene{
		Background: source.Decoded("bg.png", solid(400, 300, blue)),
		TextFields: []scene.TextField{
			{ID: 1, Kind: scene.KindRegular, Text: "Top", X: 50, Y: 50, FontSize: 80, Scale: 1},
		},
	}
	m := layout.Metrics{ImageArea: layout.Rect{W: 400, H: 300}}

	out, err := NewCompositor(nil).Compose(context.Background(), s, resolve(t, s, m))
	require.NoError(t, err)

	require.Equal(t, image.Rect(0, 0, 800, 600), out.Bounds())

	// background stretched over the whole area
	assertColor(t, blue, out.RGBAAt(2, 2))
	assertColor(t, blue, out.RGBAAt(797, 597))
	assertColor(t, blue, out.RGBAAt(100, 500))

	// white fill and black outline around the centre
	assert.True(t, findInWindow(out, 400, 300, 40, isWhite), "expected white fill near centre")
	assert.True(t, findInWindow(out, 400, 300, 40, isBlack), "expected black outline near centre")
	// nothing far from the text
	assert.False(t, findInWindow(out, 400, 100, 20, isWhite))
}

func TestComposeSkipsPlaceholders(t *testing.T) {
	s := &scene.Scene{
		Background: source.Decoded("bg.png", solid(400, 300, blue)),
		TextFields: []scene.TextField{
			{ID: 1, Kind: scene.KindRegular, Text: "", X: 30, Y: 30, FontSize: 80, Scale: 1},
			{ID: 2, Kind: scene.KindRegular, Text: "  \n ", X: 70, Y: 70, FontSize: 80, Scale: 1},
		},
	}
	m := layout.Metrics{
		ImageArea: layout.Rect{W: 400, H: 300},
		Fields: map[int]layout.Box{
			1: {Rect: layout.Centered(120, 90, 180, 30), FontSize: 32},
		},
	}

	out, err := NewCompositor(nil).Compose(context.Background(), s, resolve(t, s, m))
	require.NoError(t, err)

	// the placeholder's on-screen rectangle matches the surrounding background
	ph := m.Fields[1].Rect
	for y := int(ph.Y * 2); y < int(ph.Bottom()*2); y += 3 {
		for x := int(ph.X * 2); x < int((ph.X+ph.W)*2); x += 3 {
			assertColor(t, blue, out.RGBAAt(x, y))
		}
	}
	assert.False(t, findInWindow(out, 560, 420, 30, isWhite))
}

func TestComposeBars(t *testing.T) {
	s := &scene.Scene{
		Background: source.Decoded("bg.png", solid(400, 300, blue)),
		TextFields: []scene.TextField{
			{ID: 1, Kind: scene.KindHeader, Text: "HEADER", FontSize: 40, Scale: 1},
			{ID: 2, Kind: scene.KindFooter, Text: "FOOTER", FontSize: 40, Scale: 1},
		},
	}
	m := layout.Metrics{
		Header:    &layout.Box{Rect: layout.Rect{W: 400, H: 40}, FontSize: 16},
		ImageArea: layout.Rect{Y: 40, W: 400, H: 300},
		Footer:    &layout.Box{Rect: layout.Rect{Y: 340, W: 400, H: 40}, FontSize: 16},
	}

	out, err := NewCompositor(nil).Compose(context.Background(), s, resolve(t, s, m))
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 800, 760), out.Bounds())

	// bar backgrounds away from the text
	assertColor(t, black, out.RGBAAt(790, 40))
	assertColor(t, black, out.RGBAAt(790, 720))
	// text starts at the 12px inset
	assert.True(t, findInWindow(out, 40, 40, 16, isWhite), "expected header text")
	assert.True(t, findInWindow(out, 40, 720, 16, isWhite), "expected footer text")
	assert.False(t, findInWindow(out, 8, 40, 6, isWhite), "text must not start before the inset")
	// image area between the bars
	assertColor(t, blue, out.RGBAAt(400, 400))
}

// whiteRows returns the first and last row inside r holding a white pixel,
// or -1, -1 when there is none.
func whiteRows(img *image.RGBA, r image.Rectangle) (int, int) {
	top, bottom := -1, -1
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if isWhite(img.RGBAAt(x, y)) {
				if top < 0 {
					top = y
				}
				bottom = y
				break
			}
		}
	}
	return top, bottom
}

func TestComposeBarFontFloor(t *testing.T) {
	compose := func(computed float64) *image.RGBA {
		s := &scene.Scene{
			Background: source.Decoded("bg.png", solid(400, 300, blue)),
			TextFields: []scene.TextField{{ID: 1, Kind: scene.KindHeader, Text: "HH", FontSize: 20, Scale: 1}},
		}
		m := layout.Metrics{
			Header:    &layout.Box{Rect: layout.Rect{W: 400, H: 40}, FontSize: computed},
			ImageArea: layout.Rect{Y: 40, W: 400, H: 300},
		}
		out, err := NewCompositor(nil).Compose(context.Background(), s, resolve(t, s, m))
		require.NoError(t, err)
		return out
	}

	bar := image.Rect(0, 0, 200, 80)
	top8, bottom8 := whiteRows(compose(8), bar)
	top16, bottom16 := whiteRows(compose(16), bar)
	top24, bottom24 := whiteRows(compose(24), bar)

	require.GreaterOrEqual(t, top8, 0, "expected header text")
	// an 8px computed size is drawn at the 16px floor
	assert.Equal(t, top16, top8)
	assert.Equal(t, bottom16, bottom8)
	assert.Greater(t, bottom24-top24, bottom16-top16)
}

func TestComposeMultiLineText(t *testing.T) {
	s := &scene.Scene{
		Background: source.Decoded("bg.png", solid(400, 300, blue)),
		TextFields: []scene.TextField{
			{ID: 1, Kind: scene.KindRegular, Text: "A\nB", X: 50, Y: 50, FontSize: 100, Scale: 1},
		},
	}
	m := layout.Metrics{
		ImageArea: layout.Rect{W: 400, H: 300},
		Fields: map[int]layout.Box{
			1: {Rect: layout.Centered(200, 150, 60, 100), FontSize: 40},
		},
	}

	out, err := NewCompositor(nil).Compose(context.Background(), s, resolve(t, s, m))
	require.NoError(t, err)

	// two lines 1.2em apart, centred on the field: 300 ± 0.6×80 in device px
	assert.True(t, findInWindow(out, 400, 252, 20, isWhite), "expected first line above centre")
	assert.True(t, findInWindow(out, 400, 348, 20, isWhite), "expected second line below centre")
	assert.False(t, findInWindow(out, 400, 300, 8, isWhite), "centre falls between the lines")
}

func TestComposeBlankHeaderBand(t *testing.T) {
	s := &scene.Scene{
		Background: source.Decoded("bg.png", solid(400, 300, blue)),
		TextFields: []scene.TextField{
			{ID: 1, Kind: scene.KindHeader, Text: "   ", FontSize: 40, Scale: 1},
			{ID: 2, Kind: scene.KindFooter, Text: "BOTTOM", FontSize: 40, Scale: 1},
		},
	}
	m := layout.Metrics{
		Header:    &layout.Box{Rect: layout.Rect{W: 400, H: 33.2}, FontSize: 16},
		ImageArea: layout.Rect{Y: 33.2, W: 400, H: 300},
		Footer:    &layout.Box{Rect: layout.Rect{Y: 333.2, W: 400, H: 33.2}, FontSize: 16},
	}

	out, err := NewCompositor(nil).Compose(context.Background(), s, resolve(t, s, m))
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 800, 733), out.Bounds())

	// the blank header keeps its band but gets no fill
	assertColor(t, white, out.RGBAAt(400, 30))
	assertColor(t, blue, out.RGBAAt(400, 70))
	assertColor(t, black, out.RGBAAt(790, 700))
}

func TestComposeCanvasFloor(t *testing.T) {
	s := &scene.Scene{Background: source.Decoded("bg.png", solid(100, 50, blue))}
	m := layout.Metrics{ImageArea: layout.Rect{W: 100, H: 50}}

	out, err := NewCompositor(nil).Compose(context.Background(), s, resolve(t, s, m))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 400, 400), out.Bounds())

	assertColor(t, blue, out.RGBAAt(100, 50))
	// outside the scaled geometry stays white
	assertColor(t, white, out.RGBAAt(300, 300))
}

func TestComposeSkipsPendingBackground(t *testing.T) {
	defer leaktest.Check(t)()

	s := &scene.Scene{
		Background: source.Pending("slow.png"),
		TextFields: []scene.TextField{
			{ID: 1, Kind: scene.KindRegular, Text: "hi", X: 50, Y: 50, FontSize: 80, Scale: 1},
		},
	}
	m := layout.Metrics{ImageArea: layout.Rect{W: 400, H: 300}}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	out, err := NewCompositor(nil).Compose(ctx, s, resolve(t, s, m))
	require.NoError(t, err)
	assertColor(t, white, out.RGBAAt(10, 10))
}

func TestComposeSkipsFailedBackground(t *testing.T) {
	bg := source.Pending("broken.png")
	bg.Resolve(nil, errors.New("decode failed"))

	s := &scene.Scene{
		Background: bg,
		TextFields: []scene.TextField{{ID: 1, Kind: scene.KindRegular, Text: "hi", X: 50, Y: 50, Scale: 1}},
	}
	m := layout.Metrics{ImageArea: layout.Rect{W: 400, H: 300}}

	out, err := NewCompositor(nil).Compose(context.Background(), s, resolve(t, s, m))
	require.NoError(t, err)
	assertColor(t, white, out.RGBAAt(10, 10))
}

func TestComposeCanceled(t *testing.T) {
	s := &scene.Scene{Background: source.Decoded("bg.png", solid(4, 4, blue))}
	g := resolve(t, s, layout.Metrics{ImageArea: layout.Rect{W: 4, H: 4}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCompositor(nil).Compose(ctx, s, g)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFontSize(t *testing.T) {
	assert.Equal(t, 32.0, FontSize(0))
	assert.Equal(t, 16.0, FontSize(8))
	assert.Equal(t, 24.0, FontSize(24))
}

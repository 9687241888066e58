package source

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPendingImage(t *testing.T) {
	img := Pending("bg.png")
	assert.False(t, img.Complete())
	assert.False(t, img.Usable())
	w, h := img.NaturalSize()
	assert.Zero(t, w)
	assert.Zero(t, h)

	img.Resolve(solid(4, 3, color.RGBA{R: 255, A: 255}), nil)
	// a second resolve is ignored
	img.Resolve(nil, os.ErrNotExist)

	got, err := img.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, got.Bounds().Dx())
	assert.Same(t, got, img.Raster())
	assert.True(t, img.Usable())
	assert.False(t, img.Failed())
}

func TestWaitHonoursContext(t *testing.T) {
	defer leaktest.Check(t)()

	img := Pending("slow.png")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := img.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestZeroSizedImageIsNotUsable(t *testing.T) {
	img := Decoded("empty", image.NewRGBA(image.Rect(0, 0, 0, 0)))
	assert.True(t, img.Complete())
	assert.False(t, img.Usable())
	assert.Nil(t, img.Raster())

	var missing *Image
	assert.Nil(t, missing.Raster())
}

func TestFileLoader(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bg.png"), encodePNG(t, solid(8, 6, color.RGBA{B: 255, A: 255})), 0644))

	l := NewFileLoader(dir)
	ctx := context.Background()

	t.Run("file", func(t *testing.T) {
		img, err := l.Load(ctx, "bg.png")
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 8, 6), img.Bounds())
	})

	t.Run("data uri", func(t *testing.T) {
		uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(encodePNG(t, solid(3, 2, color.RGBA{G: 255, A: 255})))
		img, err := l.Load(ctx, uri)
		require.NoError(t, err)
		assert.Equal(t, 3, img.Bounds().Dx())
	})

	t.Run("qr", func(t *testing.T) {
		img, err := l.Load(ctx, "qr:https://example.com")
		require.NoError(t, err)
		assert.Equal(t, 256, img.Bounds().Dx())
	})

	t.Run("missing", func(t *testing.T) {
		_, err := l.Load(ctx, "nope.png")
		assert.Error(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := l.Load(ctx, "")
		assert.Error(t, err)
	})
}

func TestOpenLoadsInBackground(t *testing.T) {
	defer leaktest.Check(t)()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bg.png"), encodePNG(t, solid(5, 5, color.RGBA{R: 9, A: 255})), 0644))

	img := Open(context.Background(), "bg.png", NewFileLoader(dir))
	got, err := img.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, got.Bounds().Dy())
	assert.Equal(t, "bg.png", img.Src)
}

func TestSplitPage(t *testing.T) {
	tests := []struct {
		src  string
		path string
		page int
	}{
		{"deck.pdf", "deck.pdf", 1},
		{"deck.pdf#3", "deck.pdf", 3},
		{"odd#name.png", "odd#name.png", 1},
	}
	for _, tt := range tests {
		path, page := splitPage(tt.src)
		assert.Equal(t, tt.path, path, tt.src)
		assert.Equal(t, tt.page, page, tt.src)
	}
}

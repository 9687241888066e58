// Package renderer rebuilds an export from resolved geometry when the
// primary capture is unavailable. It draws the backdrop, the bars, the
// background image and regular text; image fields are not reconstructed.
package renderer

import (
	"context"
	"image"
	"image/color"
	"log/slog"
	"math"
	"strings"

	"golang.org/x/image/draw"

	"github.com/ivlev/memeshot/internal/fonts"
	"github.com/ivlev/memeshot/internal/geometry"
	"github.com/ivlev/memeshot/internal/layout"
	"github.com/ivlev/memeshot/internal/logging"
	"github.com/ivlev/memeshot/internal/scene"
	"github.com/ivlev/memeshot/internal/system"
)

const (
	DefaultScale    = 2
	MinCanvasSize   = 400 // per dimension, after scaling
	DefaultFontSize = 32
	MinFontSize     = 16
	BarTextInset    = 12
)

var (
	white = color.RGBA{255, 255, 255, 255}
	black = color.RGBA{0, 0, 0, 255}
)

// Compositor draws a scene into a fresh buffer. A Compositor may be shared;
// each Compose call uses its own faces.
type Compositor struct {
	Scale  float64
	Fonts  *fonts.Family
	Logger *slog.Logger
}

// NewCompositor returns a compositor at the default 2x oversampling. A nil
// family selects the embedded bold face.
func NewCompositor(fam *fonts.Family) *Compositor {
	if fam == nil {
		fam = fonts.Bold()
	}
	return &Compositor{Scale: DefaultScale, Fonts: fam}
}

// FontSize resolves the drawing size for a computed on-screen size.
func FontSize(computed float64) float64 {
	fs := computed
	if fs <= 0 {
		fs = DefaultFontSize
	}
	return math.Max(fs, MinFontSize)
}

// Compose draws, back to front: white backdrop, header bar, background image,
// regular text fields, footer bar. A background that is still loading when
// ctx is done, failed, or has no pixels is skipped.
func (c *Compositor) Compose(ctx context.Context, s *scene.Scene, g *geometry.Geometry) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scale := c.Scale
	if scale <= 0 {
		scale = DefaultScale
	}
	fam := c.Fonts
	if fam == nil {
		fam = fonts.Bold()
	}
	log := logging.Or(c.Logger)

	w := int(math.Max(math.Ceil(g.Width()*scale), MinCanvasSize))
	h := int(math.Max(math.Ceil(g.Height()*scale), MinCanvasSize))

	p := &painter{
		dst:   system.GetImage(w, h),
		scale: scale,
		faces: fam.NewFaceCache(),
	}
	defer p.faces.Close()

	draw.Draw(p.dst, p.dst.Bounds(), &image.Uniform{white}, image.Point{}, draw.Src)

	if g.Header != nil {
		p.bar(*g.Header)
	}

	if bg := c.background(ctx, s, log); bg != nil {
		draw.CatmullRom.Scale(p.dst, p.rect(g.ImageArea), bg, bg.Bounds(), draw.Over, nil)
	}

	for _, t := range g.Texts {
		p.overlay(t)
	}

	if len(g.Images) > 0 {
		log.Debug("image fields are not reconstructed", "count", len(g.Images))
	}

	if g.Footer != nil {
		p.bar(*g.Footer)
	}

	log.Debug("composed fallback", "width", w, "height", h, "texts", len(g.Texts))
	return p.dst, nil
}

func (c *Compositor) background(ctx context.Context, s *scene.Scene, log *slog.Logger) image.Image {
	if s == nil || s.Background == nil {
		return nil
	}
	img, err := s.Background.Wait(ctx)
	if err != nil {
		log.Warn("background skipped", "src", s.Background.Src, "error", err)
		return nil
	}
	if img == nil || img.Bounds().Empty() {
		log.Warn("background skipped", "src", s.Background.Src, "error", "empty image")
		return nil
	}
	return img
}

type painter struct {
	dst   *image.RGBA
	scale float64
	faces *fonts.FaceCache
}

// rect converts a logical rectangle to device pixels.
func (p *painter) rect(r layout.Rect) image.Rectangle {
	return image.Rect(
		int(math.Round(r.X*p.scale)),
		int(math.Round(r.Y*p.scale)),
		int(math.Round((r.X+r.W)*p.scale)),
		int(math.Round((r.Y+r.H)*p.scale)),
	)
}

// bar fills the bar black and writes its text in white, left aligned and
// vertically centred.
func (p *painter) bar(b geometry.Placement) {
	draw.Draw(p.dst, p.rect(b.Rect), &image.Uniform{black}, image.Point{}, draw.Src)

	fs := FontSize(b.FontSize) * p.scale
	text := strings.ReplaceAll(b.Text, "\n", " ")
	x := BarTextInset * p.scale
	y := (b.Rect.Y + b.Rect.H/2) * p.scale
	p.fillText(text, fs, x, y, alignLeft, white)
}

// overlay draws a regular text field centred on its rectangle, one line per
// line break, black outline under a white fill.
func (p *painter) overlay(t geometry.Placement) {
	text := strings.TrimSpace(t.Text)
	if text == "" {
		return
	}

	logical := FontSize(t.FontSize)
	fs := logical * p.scale
	outline := math.Max(logical/16, 2) * p.scale
	cx, cy := t.Rect.Center()
	cx, cy = cx*p.scale, cy*p.scale

	lines := strings.Split(text, "\n")
	mid := float64(len(lines)-1) / 2
	for i, line := range lines {
		y := cy + (float64(i)-mid)*fs*layout.LineHeight
		p.strokeText(line, fs, cx, y, outline, black)
		p.fillText(line, fs, cx, y, alignCenter, white)
	}
}

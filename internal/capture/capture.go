// Package capture renders a presentation subtree to pixels.
package capture

import (
	"context"
	"errors"
	"image"
	"image/color"
)

// ErrNoTarget is returned when a document has no node to capture.
var ErrNoTarget = errors.New("capture target not found")

// Node is a presentation element whose paint state may be changed for the
// duration of a capture.
type Node interface {
	Visible() bool
	SetVisible(bool)
	Placeholder() bool
	Shadow() string // CSS box-shadow, empty for none
	SetShadow(string)
}

// Target is the root of a captured subtree.
type Target interface {
	Node
	// Size is the un-scrolled on-screen size in CSS pixels.
	Size() (w, h float64)
	// Walk visits the target and every descendant, parents first.
	Walk(fn func(Node))
}

// Document locates capture targets. With includeBars the target is the
// wrapper holding header, image area and footer; otherwise the image area.
type Document interface {
	Target(includeBars bool) (Target, error)
}

type Options struct {
	Background color.RGBA
	Scale      float64
	Width      float64
	Height     float64
}

// DefaultOptions returns white background at 2x for a w×h target.
func DefaultOptions(w, h float64) Options {
	return Options{
		Background: color.RGBA{255, 255, 255, 255},
		Scale:      2,
		Width:      w,
		Height:     h,
	}
}

// Rasterizer renders a whole subtree, honouring its paint properties.
type Rasterizer interface {
	Render(ctx context.Context, t Target, opts Options) (*image.RGBA, error)
}

// RasterizerFunc adapts a function to Rasterizer.
type RasterizerFunc func(ctx context.Context, t Target, opts Options) (*image.RGBA, error)

func (f RasterizerFunc) Render(ctx context.Context, t Target, opts Options) (*image.RGBA, error) {
	return f(ctx, t, opts)
}

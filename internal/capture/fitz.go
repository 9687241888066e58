package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"

	"github.com/gen2brain/go-fitz"

	"github.com/ivlev/memeshot/internal/logging"
)

// SVGMarshaler is implemented by targets that can serialise themselves.
type SVGMarshaler interface {
	MarshalSVG(opts Options) ([]byte, error)
}

var ErrNotSerializable = errors.New("target cannot be serialised to SVG")

// FitzRasterizer renders a target through its SVG form with MuPDF.
type FitzRasterizer struct {
	TempDir string
	Logger  *slog.Logger
}

type renderResult struct {
	img *image.RGBA
	err error
}

// Render writes the target's SVG to a temporary file and rasterises it at
// 72×Scale DPI. MuPDF calls cannot be interrupted: when ctx ends first the
// render is abandoned and its result discarded.
func (r *FitzRasterizer) Render(ctx context.Context, t Target, opts Options) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src, ok := t.(SVGMarshaler)
	if !ok {
		return nil, ErrNotSerializable
	}
	data, err := src.MarshalSVG(opts)
	if err != nil {
		return nil, fmt.Errorf("marshal svg: %w", err)
	}

	f, err := os.CreateTemp(r.TempDir, "memeshot_*.svg")
	if err != nil {
		return nil, err
	}
	path := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, err
	}

	scale := opts.Scale
	if scale <= 0 {
		scale = 2
	}

	done := make(chan renderResult, 1)
	go func() {
		defer os.Remove(path)
		img, err := rasterize(path, 72*scale)
		done <- renderResult{img, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		logging.Or(r.Logger).Debug("fitz render", "bytes", len(data), "size", res.img.Bounds().Size())
		return res.img, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func rasterize(path string, dpi float64) (*image.RGBA, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer doc.Close()

	if doc.NumPage() < 1 {
		return nil, fmt.Errorf("svg produced no page")
	}

	img, err := doc.ImageDPI(0, dpi)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("render: empty image")
	}
	return img, nil
}

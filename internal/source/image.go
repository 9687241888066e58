package source

import (
	"context"
	"image"
	"sync"
)

// Image is a raster that may still be loading. It is safe for concurrent use.
type Image struct {
	Src string

	done chan struct{}
	once sync.Once
	img  image.Image
	err  error
}

// Decoded wraps an already decoded raster.
func Decoded(src string, img image.Image) *Image {
	i := &Image{Src: src, done: make(chan struct{})}
	i.finish(img, nil)
	return i
}

// Pending returns a handle whose result is delivered later through Resolve.
func Pending(src string) *Image {
	return &Image{Src: src, done: make(chan struct{})}
}

// Open starts loading src in the background with the given loader.
func Open(ctx context.Context, src string, l Loader) *Image {
	i := Pending(src)
	go func() {
		img, err := l.Load(ctx, src)
		i.Resolve(img, err)
	}()
	return i
}

// Resolve completes a pending image. Only the first call has an effect.
func (i *Image) Resolve(img image.Image, err error) {
	i.finish(img, err)
}

func (i *Image) finish(img image.Image, err error) {
	i.once.Do(func() {
		i.img, i.err = img, err
		close(i.done)
	})
}

// Wait blocks until the image has finished loading or ctx is done.
func (i *Image) Wait(ctx context.Context) (image.Image, error) {
	select {
	case <-i.done:
		return i.img, i.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Complete reports whether loading has finished, successfully or not.
func (i *Image) Complete() bool {
	select {
	case <-i.done:
		return true
	default:
		return false
	}
}

// Usable reports whether the image finished loading with a non-empty raster.
func (i *Image) Usable() bool {
	if i == nil || !i.Complete() {
		return false
	}
	return i.err == nil && i.img != nil && !i.img.Bounds().Empty()
}

// Failed reports whether loading finished with an error.
func (i *Image) Failed() bool {
	return i != nil && i.Complete() && i.err != nil
}

// NaturalSize returns the decoded size, or zero while loading or on failure.
func (i *Image) NaturalSize() (int, int) {
	if !i.Usable() {
		return 0, 0
	}
	b := i.img.Bounds()
	return b.Dx(), b.Dy()
}

// Raster returns the decoded image, or nil unless Usable.
func (i *Image) Raster() image.Image {
	if !i.Usable() {
		return nil
	}
	return i.img
}

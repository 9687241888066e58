package system

import (
	"image"
	"sync"
	"sync/atomic"
)

// ImagePool повторно использует буферы *image.RGBA по размеру, снижая
// нагрузку на GC. Старые пиксели не очищаются: вызывающий перезаписывает все.
type ImagePool struct {
	mu     sync.Mutex
	bySize map[image.Point]*sync.Pool

	gets   atomic.Int64
	allocs atomic.Int64
}

func NewImagePool() *ImagePool {
	return &ImagePool{bySize: make(map[image.Point]*sync.Pool)}
}

var shared = NewImagePool()

// GetImage берет из общего пула буфер w×h с началом в (0, 0).
func GetImage(w, h int) *image.RGBA {
	return shared.Get(w, h)
}

// PutImage возвращает буфер в общий пул. После этого его нельзя трогать.
func PutImage(img *image.RGBA) {
	shared.Put(img)
}

// SharedStats возвращает счетчики общего пула.
func SharedStats() PoolStats {
	return shared.Stats()
}

// PoolStats: число запросов и сколько из них потребовали новый буфер.
type PoolStats struct {
	Gets   int64
	Allocs int64
}

func (p *ImagePool) Get(w, h int) *image.RGBA {
	p.gets.Add(1)
	pool := p.sizePool(image.Pt(w, h), true)
	return pool.Get().(*image.RGBA)
}

// Put оставляет только буферы с началом в (0, 0) уже известного размера;
// остальное, например собственный буфер растеризатора, достается GC.
func (p *ImagePool) Put(img *image.RGBA) {
	if img == nil || img.Rect.Min != (image.Point{}) {
		return
	}
	if pool := p.sizePool(img.Rect.Size(), false); pool != nil {
		pool.Put(img)
	}
}

func (p *ImagePool) Stats() PoolStats {
	return PoolStats{Gets: p.gets.Load(), Allocs: p.allocs.Load()}
}

func (p *ImagePool) sizePool(size image.Point, create bool) *sync.Pool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if pool, ok := p.bySize[size]; ok || !create {
		return pool
	}
	pool := &sync.Pool{
		New: func() any {
			p.allocs.Add(1)
			return image.NewRGBA(image.Rectangle{Max: size})
		},
	}
	p.bySize[size] = pool
	return pool
}

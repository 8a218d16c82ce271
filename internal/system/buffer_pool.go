package system

import (
	"image"
	"sync"
)

// FramePool переиспользует кадры *image.RGBA одного размера между сессиями и слайдами,
// чтобы не нагружать GC буферами по 2 МБ.
type FramePool struct {
	mu    sync.RWMutex
	pools map[image.Point]*sync.Pool
}

var frames = &FramePool{pools: make(map[image.Point]*sync.Pool)}

// GetFrame возвращает очищенный кадр w x h из общего пула.
func GetFrame(w, h int) *image.RGBA {
	return frames.Get(w, h)
}

// PutFrame возвращает кадр в пул. nil игнорируется.
func PutFrame(img *image.RGBA) {
	frames.Put(img)
}

func (p *FramePool) pool(size image.Point) *sync.Pool {
	p.mu.RLock()
	pool, ok := p.pools[size]
	p.mu.RUnlock()
	if ok {
		return pool
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if pool, ok = p.pools[size]; !ok {
		pool = &sync.Pool{
			New: func() any {
				return image.NewRGBA(image.Rectangle{Max: size})
			},
		}
		p.pools[size] = pool
	}
	return pool
}

func (p *FramePool) Get(w, h int) *image.RGBA {
	img := p.pool(image.Pt(w, h)).Get().(*image.RGBA)
	clear(img.Pix)
	return img
}

func (p *FramePool) Put(img *image.RGBA) {
	if img == nil || img.Rect.Min != (image.Point{}) {
		return
	}
	p.pool(img.Rect.Size()).Put(img)
}

package renderer

import (
	"image"
	"math"

	"golang.org/x/image/draw"

	"github.com/ivlev/quotereel/internal/analyzer"
	"github.com/ivlev/quotereel/internal/effects"
)

// Slide - изображение слайдшоу, заранее обрезанное "cover" под кадр,
// и точка, вокруг которой идет зум Ken Burns.
type Slide struct {
	Image  *image.RGBA
	Anchor image.Point
}

// ZoomFocus - режим, в котором точка зума ищется детектором контраста.
const ZoomFocus = "focus"

// PrepareSlides масштабирует изображения под кадр w x h и выбирает точки зума.
// mode: "focus" (детектор), "center", "top-left", ..., "random".
func PrepareSlides(imgs []image.Image, w, h int, mode string, det analyzer.Detector) []*Slide {
	slides := make([]*Slide, 0, len(imgs))
	for i, img := range imgs {
		if img == nil || img.Bounds().Empty() {
			continue
		}
		s := &Slide{Image: coverScale(img, w, h)}
		if mode == ZoomFocus {
			s.Anchor = analyzer.FocusPoint(det, s.Image)
		} else {
			s.Anchor = effects.Anchor(mode, w, h, i)
		}
		slides = append(slides, s)
	}
	return slides
}

// coverScale вписывает изображение с сохранением пропорций так, чтобы оно закрыло кадр.
func coverScale(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, coverCrop(img.Bounds(), w, h), draw.Src, nil)
	return dst
}

// coverCrop - центральная часть b с пропорциями w x h (лишнее обрезается).
func coverCrop(b image.Rectangle, w, h int) image.Rectangle {
	scale := math.Max(float64(w)/float64(b.Dx()), float64(h)/float64(b.Dy()))
	cw := min(max(int(math.Round(float64(w)/scale)), 1), b.Dx())
	ch := min(max(int(math.Round(float64(h)/scale)), 1), b.Dy())

	x0 := b.Min.X + (b.Dx()-cw)/2
	y0 := b.Min.Y + (b.Dy()-ch)/2
	return image.Rect(x0, y0, x0+cw, y0+ch)
}

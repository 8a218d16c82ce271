package analyzer

import (
	"image"

	"golang.org/x/image/draw"
)

// focusSize - сторона уменьшенной копии для анализа.
const focusSize = 160

// FocusPoint возвращает центр самой крупной контрастной области в координатах img.
// Если детектор ничего не нашел, возвращается центр изображения.
func FocusPoint(d Detector, img image.Image) image.Point {
	b := img.Bounds()
	center := image.Pt(b.Min.X+b.Dx()/2, b.Min.Y+b.Dy()/2)
	if d == nil || b.Empty() {
		return center
	}

	sx := float64(b.Dx()) / focusSize
	sy := float64(b.Dy()) / focusSize
	small := image.NewRGBA(image.Rect(0, 0, focusSize, focusSize))
	draw.ApproxBiLinear.Scale(small, small.Bounds(), img, b, draw.Src, nil)

	blocks, err := d.Detect(small)
	if err != nil || len(blocks) == 0 {
		return center
	}

	best := blocks[0]
	for _, blk := range blocks[1:] {
		if score(blk) > score(best) {
			best = blk
		}
	}

	c := best.Rect.Min.Add(best.Rect.Max).Div(2)
	return image.Pt(b.Min.X+int(float64(c.X)*sx), b.Min.Y+int(float64(c.Y)*sy))
}

func score(b Block) float64 {
	return float64(b.Rect.Dx()*b.Rect.Dy()) * (0.5 + b.Confidence)
}

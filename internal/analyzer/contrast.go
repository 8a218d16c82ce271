package analyzer

import (
	"image"
	"image/draw"
	"math"
)

// ContrastDetector ищет контрастные области (лица, надписи, силуэты) по границам Собеля.
type ContrastDetector struct {
	MinBlockArea  int     // минимальная площадь области в пикселях
	EdgeThreshold float64 // порог модуля градиента
	DilateSize    int     // размер окна дилатации
}

func NewContrastDetector() *ContrastDetector {
	return &ContrastDetector{
		MinBlockArea:  64,
		EdgeThreshold: 60.0,
		DilateSize:    3,
	}
}

func (d *ContrastDetector) Detect(img image.Image) ([]Block, error) {
	edges := sobel(toGray(img), d.EdgeThreshold)
	mask := edges.dilate(d.DilateSize)

	var blocks []Block
	for _, c := range mask.components() {
		area := c.rect.Dx() * c.rect.Dy()
		if area < d.MinBlockArea {
			continue
		}
		blocks = append(blocks, Block{
			Rect:       c.rect.Add(img.Bounds().Min),
			Type:       "contrast",
			Confidence: math.Min(1, float64(c.pixels)/float64(area)),
		})
	}
	return blocks, nil
}

// toGray переводит изображение в оттенки серого с началом координат в (0,0).
func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}

// mask - бинарная карта пикселей.
type mask struct {
	w, h  int
	cells []bool
}

func newMask(w, h int) *mask {
	return &mask{w: w, h: h, cells: make([]bool, w*h)}
}

func (m *mask) at(x, y int) bool {
	return m.cells[y*m.w+x]
}

func sobel(gray *image.Gray, threshold float64) *mask {
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	out := newMask(w, h)
	px := func(x, y int) float64 {
		return float64(gray.Pix[y*gray.Stride+x])
	}

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := px(x+1, y-1) + 2*px(x+1, y) + px(x+1, y+1) -
				px(x-1, y-1) - 2*px(x-1, y) - px(x-1, y+1)
			gy := px(x-1, y+1) + 2*px(x, y+1) + px(x+1, y+1) -
				px(x-1, y-1) - 2*px(x, y-1) - px(x+1, y-1)
			out.cells[y*w+x] = math.Hypot(gx, gy) > threshold
		}
	}
	return out
}

// dilate расширяет маску квадратным окном size x size (два прохода: строки, столбцы).
func (m *mask) dilate(size int) *mask {
	half := size / 2
	if half <= 0 {
		return m
	}

	rows := newMask(m.w, m.h)
	for y := 0; y < m.h; y++ {
		for x := 0; x < m.w; x++ {
			for k := max(0, x-half); k <= min(m.w-1, x+half); k++ {
				if m.at(k, y) {
					rows.cells[y*m.w+x] = true
					break
				}
			}
		}
	}

	out := newMask(m.w, m.h)
	for y := 0; y < m.h; y++ {
		for x := 0; x < m.w; x++ {
			for k := max(0, y-half); k <= min(m.h-1, y+half); k++ {
				if rows.at(x, k) {
					out.cells[y*m.w+x] = true
					break
				}
			}
		}
	}
	return out
}

type component struct {
	rect   image.Rectangle
	pixels int
}

// components находит связные области маски (4-связность) и их габариты.
func (m *mask) components() []component {
	visited := make([]bool, len(m.cells))
	var out []component

	for start := range m.cells {
		if !m.cells[start] || visited[start] {
			continue
		}

		c := component{rect: image.Rectangle{Min: image.Pt(m.w, m.h), Max: image.Pt(-1, -1)}}
		stack := []int{start}
		visited[start] = true
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := i%m.w, i/m.w

			c.pixels++
			c.rect.Min.X = min(c.rect.Min.X, x)
			c.rect.Min.Y = min(c.rect.Min.Y, y)
			c.rect.Max.X = max(c.rect.Max.X, x+1)
			c.rect.Max.Y = max(c.rect.Max.Y, y+1)

			for _, n := range [4][2]int{{x + 1, y}, {x - 1, y}, {x, y + 1}, {x, y - 1}} {
				if n[0] < 0 || n[0] >= m.w || n[1] < 0 || n[1] >= m.h {
					continue
				}
				j := n[1]*m.w + n[0]
				if m.cells[j] && !visited[j] {
					visited[j] = true
					stack = append(stack, j)
				}
			}
		}
		out = append(out, c)
	}
	return out
}

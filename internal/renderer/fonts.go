package renderer

import (
	"fmt"
	"math"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

type faceKey struct {
	size int // в десятых долях пункта
	bold bool
}

// FontBook кэширует начертания по размеру. По умолчанию встроенные шрифты Go,
// файл TTF/OTF заменяет оба начертания.
type FontBook struct {
	regular *opentype.Font
	bold    *opentype.Font

	mu    sync.Mutex
	faces map[faceKey]font.Face
}

func NewFontBook(path string) (*FontBook, error) {
	b := &FontBook{faces: make(map[faceKey]font.Face)}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read font %s: %w", path, err)
		}
		f, err := opentype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parse font %s: %w", path, err)
		}
		b.regular, b.bold = f, f
		return b, nil
	}

	var err error
	if b.regular, err = opentype.Parse(goregular.TTF); err != nil {
		return nil, fmt.Errorf("parse goregular: %w", err)
	}
	if b.bold, err = opentype.Parse(gobold.TTF); err != nil {
		return nil, fmt.Errorf("parse gobold: %w", err)
	}
	return b, nil
}

// Face возвращает начертание размера size (в пикселях при 72 DPI).
func (b *FontBook) Face(size float64, bold bool) font.Face {
	key := faceKey{size: int(math.Round(math.Max(size, 1) * 10)), bold: bold}

	b.mu.Lock()
	defer b.mu.Unlock()
	if f, ok := b.faces[key]; ok {
		return f
	}

	src := b.regular
	if bold {
		src = b.bold
	}
	face, err := opentype.NewFace(src, &opentype.FaceOptions{
		Size:    float64(key.size) / 10,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return basicfont.Face7x13
	}
	b.faces[key] = face
	return face
}

// measure - ширина строки в пикселях.
func measure(face font.Face, s string) float64 {
	return float64(font.MeasureString(face, s)) / 64
}

package analyzer

import (
	"fmt"
	"image"
)

// Block - найденная область интереса.
type Block struct {
	Rect       image.Rectangle
	Type       string
	Confidence float64 // 0.0-1.0
}

type Detector interface {
	Detect(img image.Image) ([]Block, error)
}

// CenterDetector ничего не ищет: фокус Ken Burns всегда в центре кадра.
type CenterDetector struct{}

func (CenterDetector) Detect(image.Image) ([]Block, error) {
	return nil, nil
}

// NewDetector выбирает стратегию выбора фокуса для слайдов.
func NewDetector(variant string) (Detector, error) {
	switch variant {
	case "contrast", "":
		return NewContrastDetector(), nil
	case "center", "none":
		return CenterDetector{}, nil
	default:
		return nil, fmt.Errorf("unknown detector variant: %s", variant)
	}
}

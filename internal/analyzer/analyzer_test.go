package analyzer

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func squareImage(w, h int, sq image.Rectangle) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	draw.Draw(img, sq, &image.Uniform{C: color.Gray{Y: 255}}, image.Point{}, draw.Src)
	return img
}

func TestContrastDetector(t *testing.T) {
	img := squareImage(200, 200, image.Rect(50, 50, 150, 150))

	blocks, err := NewContrastDetector().Detect(img)
	require.NoError(t, err)
	require.NotEmpty(t, blocks)

	block := blocks[0]
	assert.GreaterOrEqual(t, block.Rect.Dx(), 80)
	assert.GreaterOrEqual(t, block.Rect.Dy(), 80)
	assert.Equal(t, "contrast", block.Type)
	assert.Greater(t, block.Confidence, 0.0)

	for i, b := range blocks {
		t.Logf("Block %d: %v (type: %s, confidence: %.2f)", i, b.Rect, b.Type, b.Confidence)
	}
}

func TestContrastDetectorFlatImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	blocks, err := NewContrastDetector().Detect(img)
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestMaskComponents(t *testing.T) {
	m := newMask(10, 4)
	for _, i := range []int{0, 1, 11, 8, 9} {
		m.cells[i] = true
	}
	comps := m.components()
	require.Len(t, comps, 2)
	assert.Equal(t, image.Rect(0, 0, 2, 2), comps[0].rect)
	assert.Equal(t, 3, comps[0].pixels)
	assert.Equal(t, image.Rect(8, 0, 10, 1), comps[1].rect)

	lone := newMask(5, 5)
	lone.cells[2*5+3] = true
	comps = lone.components()
	require.Len(t, comps, 1)
	assert.Equal(t, image.Rect(3, 2, 4, 3), comps[0].rect)

	d := m.dilate(3)
	assert.True(t, d.at(2, 1))
	assert.False(t, d.at(5, 3))
}

func TestNewDetector(t *testing.T) {
	tests := []struct {
		variant string
		wantErr bool
	}{
		{"contrast", false},
		{"", false},
		{"center", false},
		{"ocr", true},
		{"invalid", true},
	}

	for _, tt := range tests {
		t.Run(tt.variant, func(t *testing.T) {
			d, err := NewDetector(tt.variant)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, d)
		})
	}
}

func TestFocusPoint(t *testing.T) {
	img := squareImage(400, 800, image.Rect(40, 560, 160, 720))
	p := FocusPoint(NewContrastDetector(), img)
	assert.InDelta(t, 100, p.X, 20)
	assert.InDelta(t, 640, p.Y, 30)

	flat := image.NewGray(image.Rect(0, 0, 300, 100))
	assert.Equal(t, image.Pt(150, 50), FocusPoint(NewContrastDetector(), flat))
	assert.Equal(t, image.Pt(150, 50), FocusPoint(CenterDetector{}, flat))
}

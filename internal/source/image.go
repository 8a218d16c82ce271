package source

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ImageSource - одно растровое изображение (JPEG, PNG, GIF, WebP, BMP).
type ImageSource struct {
	img image.Image
}

func NewImageSource(data []byte) (*ImageSource, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("decode image: empty %s", format)
	}
	return &ImageSource{img: img}, nil
}

func (s *ImageSource) PageCount() int {
	return 1
}

func (s *ImageSource) RenderPage(index int) (image.Image, error) {
	if index != 0 {
		return nil, fmt.Errorf("page %d out of range", index)
	}
	return s.img, nil
}

func (s *ImageSource) Close() error {
	return nil
}

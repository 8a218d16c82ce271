package source

import (
	"bytes"
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// Source - документ из одной или нескольких страниц-слайдов.
type Source interface {
	PageCount() int
	RenderPage(index int) (image.Image, error)
	Close() error
}

// Open выбирает реализацию по сигнатуре данных: PDF или растровое изображение.
func Open(data []byte, dpi int) (Source, error) {
	if bytes.HasPrefix(data, []byte("%PDF")) {
		return NewFitzPDFSource(data, dpi)
	}
	return NewImageSource(data)
}

// FitzPDFSource - PDF из памяти: каждая страница становится слайдом.
type FitzPDFSource struct {
	doc *fitz.Document
	dpi float64
}

func NewFitzPDFSource(data []byte, dpi int) (*FitzPDFSource, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	if dpi <= 0 {
		dpi = 72
	}
	return &FitzPDFSource{doc: doc, dpi: float64(dpi)}, nil
}

func (f *FitzPDFSource) PageCount() int {
	return f.doc.NumPage()
}

func (f *FitzPDFSource) RenderPage(index int) (image.Image, error) {
	return f.doc.ImageDPI(index, f.dpi)
}

func (f *FitzPDFSource) Close() error {
	return f.doc.Close()
}

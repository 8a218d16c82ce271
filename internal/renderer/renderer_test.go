package renderer

import (
	"image"
	"image/color"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/quotereel/internal/analyzer"
	"github.com/ivlev/quotereel/internal/config"
	"github.com/ivlev/quotereel/internal/content"
)

const (
	testW = config.CanvasWidth
	testH = config.CanvasHeight
)

var sharedFonts *FontBook

func fonts(t *testing.T) *FontBook {
	t.Helper()
	if sharedFonts == nil {
		fb, err := NewFontBook("")
		require.NoError(t, err)
		sharedFonts = fb
	}
	return sharedFonts
}

func newTestState(t *testing.T, job *content.Job, slides []*Slide, duration float64) *State {
	t.Helper()
	st, err := NewState(StateOptions{
		Job:      job,
		Theme:    config.ThemeFor(job),
		Fonts:    fonts(t),
		Slides:   slides,
		Duration: duration,
		Seed:     7,
	})
	require.NoError(t, err)
	return st
}

func testJob() *content.Job {
	return &content.Job{
		Quote: content.QuotePayload{
			Title:    "Meditaciones",
			Text:     "No es la muerte lo que debemos temer, sino nunca comenzar a vivir con esperanza y luz.",
			Author:   "Marco Aurelio",
			Category: content.CategoryStoic,
		},
	}
}

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func TestParseHex(t *testing.T) {
	fallback := color.RGBA{1, 2, 3, 255}
	tests := []struct {
		in   string
		want color.RGBA
	}{
		{"#fbbf24", color.RGBA{0xfb, 0xbf, 0x24, 0xff}},
		{"FFF", color.RGBA{255, 255, 255, 255}},
		{"#00000080", color.RGBA{0, 0, 0, 0x80}},
		{"", fallback},
		{"#zzzzzz", fallback},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseHex(tt.in, fallback), tt.in)
	}
}

func TestFontTier(t *testing.T) {
	tests := []struct {
		words      int
		size, line float64
	}{
		{10, 52, 70},
		{30, 52, 70},
		{31, 34, 50},
		{71, 28, 42},
		{121, 24, 36},
	}
	for _, tt := range tests {
		size, line := fontTier(tt.words)
		assert.Equal(t, tt.size, size, "words=%d", tt.words)
		assert.Equal(t, tt.line, line, "words=%d", tt.words)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		word string
		want keywordClass
	}{
		{"MUERTE,", classDanger},
		{"Dios.", classDivine},
		{"Señor", classDivine},
		{"esperanza", classHope},
		{"piedra", classNone},
	}
	for _, tt := range tests {
		got, _ := classify(tt.word)
		assert.Equal(t, tt.want, got, tt.word)
	}
}

func TestIsHeader(t *testing.T) {
	assert.True(t, isHeader("Salmo 23"))
	assert.True(t, isHeader(strings.Repeat("palabra ", 10)+"Reflexión final"))
	assert.False(t, isHeader(strings.Repeat("palabra ", 10)))
}

func TestCaptionLayout(t *testing.T) {
	job := testJob()
	job.Quote.Text = strings.Repeat("uno dos tres cuatro cinco seis siete ocho ", 5) + "\nReflexión\n" + "fin del texto"
	st := newTestState(t, job, nil, 10)
	l := layoutCaptions(st, testW)

	var indices []int
	for _, line := range l.body {
		require.NotEmpty(t, line.words)
		for _, w := range line.words {
			indices = append(indices, w.index)
			assert.GreaterOrEqual(t, w.cx-w.width/2, 0.0, w.text)
			assert.LessOrEqual(t, w.cx+w.width/2, float64(testW), w.text)
		}
	}
	require.Len(t, indices, len(st.BodyWords))
	for i, idx := range indices {
		assert.Equal(t, len(st.TitleWords)+i, idx)
	}
	assert.Equal(t, 34.0, l.fontSize)
	assert.Equal(t, []string{"Meditaciones"}, l.title)

	header := l.body[len(l.body)-2]
	assert.True(t, header.header)
	assert.Equal(t, "Reflexión", header.words[0].text)
}

func TestActiveLineIsCentered(t *testing.T) {
	job := testJob()
	job.Quote.Text = strings.Repeat("palabra larga ", 40)
	st := newTestState(t, job, nil, 30)
	l := layoutCaptions(st, testW)
	require.Greater(t, len(l.body), 3)

	// первое слово третьей строки
	line := l.body[2]
	active := line.words[0].index
	top := testH/2 - l.activeCenter(active, st.TotalWords)
	assert.InDelta(t, float64(testH)/2, top+l.bodyLineCenter(2), 1e-9)

	// до начала - центр первой строки заголовка
	assert.Equal(t, titleLineHeight/2.0, l.activeCenter(-1, st.TotalWords))
	// после конца - последняя строка
	assert.Equal(t, l.bodyLineCenter(len(l.body)-1), l.activeCenter(st.TotalWords, st.TotalWords))
}

func TestCTAAlpha(t *testing.T) {
	assert.Equal(t, 0.0, ctaAlpha(5, 10))
	assert.Equal(t, 0.0, ctaAlpha(6.9, 10))
	assert.InDelta(t, 0.5, ctaAlpha(7.25, 10), 1e-9)
	assert.Equal(t, 1.0, ctaAlpha(9, 10))
	assert.Equal(t, 0.0, ctaAlpha(1, 0))
}

func TestGaussianBlur(t *testing.T) {
	flat := solid(20, 20, color.RGBA{100, 150, 200, 255})
	gaussianBlur(flat, 3)
	assert.InDelta(t, 100, int(flat.Pix[flat.PixOffset(10, 10)]), 1)
	assert.InDelta(t, 200, int(flat.Pix[flat.PixOffset(0, 19)+2]), 1)

	dot := image.NewRGBA(image.Rect(0, 0, 21, 21))
	dot.Pix[dot.PixOffset(10, 10)+3] = 255
	gaussianBlur(dot, 2)
	assert.Less(t, dot.Pix[dot.PixOffset(10, 10)+3], uint8(255))
	assert.Positive(t, dot.Pix[dot.PixOffset(11, 10)+3])
	assert.Zero(t, dot.Pix[dot.PixOffset(0, 0)+3])

	same := solid(4, 4, color.RGBA{10, 20, 30, 255})
	gaussianBlur(same, 0)
	assert.Equal(t, solid(4, 4, color.RGBA{10, 20, 30, 255}).Pix, same.Pix)
}

func TestScreenOnto(t *testing.T) {
	dst := solid(4, 4, color.RGBA{100, 0, 0, 255})
	src := solid(2, 2, color.RGBA{0, 0, 255, 255})
	screenOnto(dst, src, image.Pt(3, 3))

	px := dst.RGBAAt(3, 3)
	assert.InDelta(t, 100, int(px.R), 1)
	assert.InDelta(t, 0, int(px.G), 1)
	assert.InDelta(t, 255, int(px.B), 1)
	assert.Equal(t, color.RGBA{100, 0, 0, 255}, dst.RGBAAt(2, 2))

	// прозрачный src ничего не меняет
	screenOnto(dst, image.NewRGBA(image.Rect(0, 0, 4, 4)), image.Point{})
	assert.InDelta(t, 100, int(dst.RGBAAt(0, 0).R), 1)
}

func TestOverlayOntoLightensByMaskAlpha(t *testing.T) {
	dst := solid(2, 1, color.RGBA{64, 64, 64, 255})
	mask := image.NewRGBA(image.Rect(0, 0, 2, 1))
	copy(mask.Pix[0:4], []uint8{255, 255, 255, 255})
	overlayOnto(dst, mask)

	// полная маска: overlay белого удваивает темный тон, пустая - ничего не делает
	assert.InDelta(t, 128, int(dst.RGBAAt(0, 0).R), 1)
	assert.InDelta(t, 64, int(dst.RGBAAt(1, 0).R), 1)
}

func TestFogBlobFadesToEdge(t *testing.T) {
	mask := image.NewRGBA(image.Rect(0, 0, 100, 100))
	fogBlob(mask, 50, 50, 40)

	center := mask.RGBAAt(50, 50)
	assert.Equal(t, uint8(255), center.R)
	assert.InDelta(t, 255*fogAlpha, int(center.A), 1)
	assert.Less(t, mask.RGBAAt(80, 50).A, center.A)
	assert.Zero(t, mask.RGBAAt(0, 0).A)
}

func TestCoverCrop(t *testing.T) {
	// широкое изображение режется по бокам
	r := coverCrop(image.Rect(0, 0, 1920, 1080), 540, 960)
	assert.Equal(t, 1080, r.Dy())
	assert.Equal(t, 608, r.Dx())
	assert.Equal(t, (1920-608)/2, r.Min.X)

	// узкое - сверху и снизу
	r = coverCrop(image.Rect(0, 0, 500, 2000), 540, 960)
	assert.Equal(t, 500, r.Dx())
	assert.Equal(t, 889, r.Dy())
}

func TestAdvanceParticlesWraps(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	ps := []Particle{{X: 10, Y: 5, SpeedY: 0.5}, {X: 10, Y: 500, SpeedY: 0.1}}
	advanceParticles(ps, rng, 1, testW, testH)
	assert.Equal(t, float64(testH), ps[0].Y, "wrapped to the bottom")
	assert.InDelta(t, 494, ps[1].Y, 1e-9)
}

func TestPrepareSlides(t *testing.T) {
	img := solid(100, 300, color.RGBA{10, 20, 30, 255})
	slides := PrepareSlides([]image.Image{img, nil}, testW, testH, "center", nil)
	require.Len(t, slides, 1)
	assert.Equal(t, image.Rect(0, 0, testW, testH), slides[0].Image.Rect)
	assert.Equal(t, image.Pt(testW/2, testH/2), slides[0].Anchor)

	focus := PrepareSlides([]image.Image{img}, testW, testH, ZoomFocus, analyzer.CenterDetector{})
	require.Len(t, focus, 1)
	assert.True(t, focus[0].Anchor.In(image.Rect(0, 0, testW, testH)))
}

func TestNewStateShareQR(t *testing.T) {
	job := testJob()
	job.ShareBase = "https://example.com/watch"
	st := newTestState(t, job, nil, 10)
	require.NotNil(t, st.ShareQR)
	assert.Equal(t, qrSize, st.ShareQR.Bounds().Dx())
	assert.Equal(t, 1+17, st.TotalWords, "title + body words")
	assert.Equal(t, -1, st.ActiveIndex)
}

func TestComposeGradientBackground(t *testing.T) {
	st := newTestState(t, testJob(), nil, 10)
	c := NewCompositor(testW, testH, backgroundLayer{})
	defer c.Close()

	info := c.Compose(1, st)
	assert.Equal(t, -1, info.SlideIndex)
	px := c.Frame().RGBAAt(testW/2, 0)
	assert.InDelta(t, 0x1c, int(px.R), 2)
	assert.InDelta(t, 0x19, int(px.G), 2)
	px = c.Frame().RGBAAt(testW/2, testH-1)
	assert.InDelta(t, 0x0c, int(px.R), 2)
}

func TestComposeVideoBackground(t *testing.T) {
	st := newTestState(t, testJob(), nil, 10)
	st.Video = solid(1920, 1080, color.RGBA{200, 100, 0, 255})
	c := NewCompositor(testW, testH, backgroundLayer{})
	defer c.Close()

	c.Compose(1, st)
	px := c.Frame().RGBAAt(10, 10)
	assert.InDelta(t, 100, int(px.R), 2, "half black overlay")
	assert.InDelta(t, 50, int(px.G), 2)
	assert.Equal(t, uint8(255), px.A)
}

func TestComposeSlideshow(t *testing.T) {
	colors := []color.RGBA{{255, 0, 0, 255}, {0, 255, 0, 255}, {0, 0, 255, 255}}
	var imgs []image.Image
	for _, c := range colors {
		imgs = append(imgs, solid(270, 480, c))
	}
	slides := PrepareSlides(imgs, testW, testH, "center", nil)
	st := newTestState(t, testJob(), slides, 9)
	c := NewCompositor(testW, testH, backgroundLayer{})
	defer c.Close()

	tests := []struct {
		elapsed    float64
		index      int
		transition bool
	}{
		{0.5, 0, false},
		{2.5, 0, true},
		{4, 1, false},
		{8.9, 2, false}, // у последнего слайда перехода нет
		{20, 2, false},
	}
	for _, tt := range tests {
		info := c.Compose(tt.elapsed, st)
		assert.Equal(t, tt.index, info.SlideIndex, "t=%v", tt.elapsed)
		assert.Equal(t, tt.transition, info.Transitioning, "t=%v", tt.elapsed)
	}

	c.Compose(4, st)
	px := c.Frame().RGBAAt(testW/2, testH/2)
	assert.Equal(t, uint8(255), px.G)
	assert.Zero(t, px.R)

	// середина перехода 0 -> 1: смесь красного и зеленого
	c.Compose(2.5, st)
	px = c.Frame().RGBAAt(testW/2, testH/2)
	assert.InDelta(t, 128, int(px.R), 3)
	assert.InDelta(t, 128, int(px.G), 3)
}

func TestComposeAllLayers(t *testing.T) {
	job := testJob()
	job.Quote.Category = content.CategoryChristian
	job.ShareBase = "https://example.com"
	job.Watermark = content.Watermark{Text: "@quotereel", Position: "top-left"}
	job.Effects.Blur = 2
	st := newTestState(t, job, nil, 6)
	st.Bins = make([]uint8, 32)
	for i := range st.Bins {
		st.Bins[i] = uint8(i * 8)
	}
	c := NewCompositor(testW, testH)
	defer c.Close()

	for i, elapsed := range []float64{0, 0.6, 1.5, 3.2, 4.5, 5.9} {
		st.ActiveIndex = i * 3
		assert.NotPanics(t, func() { c.Compose(elapsed, st) })
	}
	require.Len(t, st.Particles, particleCount)

	// полоса прогресса у нижнего края
	px := c.Frame().RGBAAt(testW/2, testH-2)
	assert.Greater(t, int(px.R), 200)
}

func TestWatermarkAnchor(t *testing.T) {
	x, y, ax, ay := watermarkAnchor("top-left", testW, testH)
	assert.Equal(t, []float64{watermarkMargin, watermarkMargin, 0, 1}, []float64{x, y, ax, ay})
	x, _, ax, _ = watermarkAnchor("", testW, testH)
	assert.Equal(t, float64(testW-watermarkMargin), x)
	assert.Equal(t, 1.0, ax)
}

func TestInactiveWordsAreWhite(t *testing.T) {
	past := inactiveColor(1, 3, false)
	assert.Equal(t, rgba{255, 255, 255, pastAlpha}, past)

	future := inactiveColor(5, 3, false)
	assert.Equal(t, rgba{255, 255, 255, futureAlpha}, future)

	// после конца речи все слова считаются прочитанными
	assert.Equal(t, past, inactiveColor(5, 3, true))
}

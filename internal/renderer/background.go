package renderer

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/ivlev/quotereel/internal/effects"
)

var (
	defaultGradientTop    = color.RGBA{0x1c, 0x19, 0x17, 0xff}
	defaultGradientBottom = color.RGBA{0x0c, 0x0a, 0x09, 0xff}
)

// backgroundLayer: видео (cover + затемнение), слайдшоу с Ken Burns или градиент темы.
type backgroundLayer struct{}

func (backgroundLayer) Name() string { return "background" }

func (backgroundLayer) Draw(s *Surface, elapsed float64, st *State) {
	switch {
	case st.Video != nil:
		drawVideo(s, st.Video)
		blur(s, st)
		overlay := st.Theme.OverlayOpacity
		if overlay <= 0 {
			overlay = 0.5
		}
		s.SetColor(rgba{0, 0, 0, overlay})
		s.DrawRectangle(0, 0, s.W, s.H)
		s.Fill()
	case st.slideshow():
		drawSlides(s, elapsed, st)
		blur(s, st)
	default:
		drawGradient(s, st)
	}
}

func blur(s *Surface, st *State) {
	if st.Effects.Blur > 0 {
		gaussianBlur(s.Frame, st.Effects.Blur)
	}
}

func drawGradient(s *Surface, st *State) {
	grad := gg.NewLinearGradient(0, 0, 0, s.H)
	grad.AddColorStop(0, parseHex(st.Theme.GradientStart, defaultGradientTop))
	grad.AddColorStop(1, parseHex(st.Theme.GradientEnd, defaultGradientBottom))
	s.SetFillStyle(grad)
	s.DrawRectangle(0, 0, s.W, s.H)
	s.Fill()
}

func drawVideo(s *Surface, frame image.Image) {
	b := frame.Bounds()
	if b.Size() == s.Frame.Rect.Size() {
		draw.Copy(s.Frame, image.Point{}, frame, b, draw.Src, nil)
		return
	}
	draw.ApproxBiLinear.Scale(s.Frame, s.Frame.Rect, frame, coverCrop(b, s.Frame.Rect.Dx(), s.Frame.Rect.Dy()), draw.Src, nil)
}

// drawSlides рисует текущий слайд и, в конце слота, входящий следующий.
// Следующий слайд двигается со сдвигом фазы, чтобы не повторять движение текущего.
func drawSlides(s *Surface, elapsed float64, st *State) {
	slot := st.slot
	if slot.Index < 0 || slot.Index >= len(st.Slides) {
		return
	}
	drawKenBurns(s, st.Slides[slot.Index], effects.KenBurns(elapsed), effects.Blend{Alpha: 1, Scale: 1})

	if slot.Next >= 0 && slot.Next < len(st.Slides) {
		blend := effects.TransitionBlend(st.Effects.Transition, slot.Opacity)
		drawKenBurns(s, st.Slides[slot.Next], effects.KenBurns(elapsed+effects.NextSlideSeed), blend)
	}
}

func drawKenBurns(s *Surface, sl *Slide, m effects.Motion, b effects.Blend) {
	if b.Alpha <= 0 {
		return
	}
	w, h := s.Frame.Rect.Dx(), s.Frame.Rect.Dy()
	mat := m.Matrix(w, h, sl.Anchor)
	if b.Scale > 0 && b.Scale != 1 {
		mat = scaleAbout(mat, b.Scale, s.W/2, s.H/2)
	}
	mat[2] += b.OffsetX * s.W

	if b.Alpha >= 1 {
		draw.ApproxBiLinear.Transform(s.Frame, mat, sl.Image, sl.Image.Bounds(), draw.Src, nil)
		return
	}
	opts := &draw.Options{SrcMask: image.NewUniform(color.Alpha16{A: uint16(b.Alpha * 0xffff)})}
	draw.ApproxBiLinear.Transform(s.Frame, mat, sl.Image, sl.Image.Bounds(), draw.Over, opts)
}

// scaleAbout добавляет к преобразованию src->dst масштаб k вокруг точки (cx, cy) кадра.
func scaleAbout(m f64.Aff3, k, cx, cy float64) f64.Aff3 {
	return f64.Aff3{
		k * m[0], k * m[1], k*m[2] + cx*(1-k),
		k * m[3], k * m[4], k*m[5] + cy*(1-k),
	}
}

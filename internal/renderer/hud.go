package renderer

import (
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"

	"github.com/ivlev/quotereel/internal/content"
)

const (
	visualizerHeight = 100
	progressHeight   = 6
	ctaWindow        = 3.0
	ctaWidth         = 500
	ctaHeight        = 80
	ctaRadius        = 25
	ctaOffset        = 250
	brandWindow      = 3.0
	brandY           = 60
	watermarkMargin  = 20
)

var amber = color.RGBA{0xf5, 0x9e, 0x0b, 0xff}

// visualizerLayer - столбики спектра из анализатора вдоль нижнего края.
type visualizerLayer struct{}

func (visualizerLayer) Name() string { return "visualizer" }

func (visualizerLayer) Draw(s *Surface, _ float64, st *State) {
	if len(st.Bins) == 0 {
		return
	}
	barW := s.W / float64(len(st.Bins))
	s.SetColor(rgba{255, 255, 255, 0.2})
	for i, v := range st.Bins {
		h := float64(v) / 255 * visualizerHeight
		if h <= 0 {
			continue
		}
		s.DrawRectangle(float64(i)*barW, s.H-h, barW, h)
	}
	s.Fill()
}

// progressLayer - полоса прогресса по длительности, которую видит пользователь.
type progressLayer struct{}

func (progressLayer) Name() string { return "progress" }

func (progressLayer) Draw(s *Surface, elapsed float64, st *State) {
	if st.Duration <= 0 {
		return
	}
	progress := math.Min(1, math.Max(0, elapsed/st.Duration))

	s.SetColor(rgba{255, 255, 255, 0.2})
	s.DrawRectangle(0, s.H-progressHeight, s.W, progressHeight)
	s.Fill()

	if progress == 0 {
		return
	}
	grad := gg.NewLinearGradient(0, 0, s.W, 0)
	grad.AddColorStop(0, gold)
	grad.AddColorStop(1, amber)
	s.SetFillStyle(grad)
	s.DrawRectangle(0, s.H-progressHeight, s.W*progress, progressHeight)
	s.Fill()
}

// ctaAlpha - призыв к действию проявляется в последние 3 секунды.
func ctaAlpha(elapsed, duration float64) float64 {
	left := duration - elapsed
	if duration <= 0 || left > ctaWindow {
		return 0
	}
	return math.Min(1, (ctaWindow-left)*2)
}

// ctaLayer - плашка с призывом в конце ролика; QR со ссылкой на ролик, если она есть.
type ctaLayer struct{}

func (ctaLayer) Name() string { return "cta" }

func (ctaLayer) Draw(s *Surface, elapsed float64, st *State) {
	alpha := ctaAlpha(elapsed, st.Duration)
	if alpha <= 0 {
		return
	}
	y := s.H/2 + ctaOffset

	s.SetColor(rgba{0, 0, 0, 0.7 * alpha})
	s.DrawRoundedRectangle(s.W/2-ctaWidth/2, y-ctaHeight/2, ctaWidth, ctaHeight, ctaRadius)
	s.Fill()

	s.SetColor(withAlpha(white, alpha))
	if st.Mood == content.MoodDivine {
		s.SetFontFace(st.Fonts.Face(24, true))
		s.DrawStringAnchored("→ ESCRIBE 'AMEN'", s.W/2, y-5, 0.5, 0.5)
		s.SetFontFace(st.Fonts.Face(16, true))
		s.DrawStringAnchored("Y COMPARTE LA PALABRA DEL SEÑOR", s.W/2, y+20, 0.5, 0.5)
	} else {
		s.SetFontFace(st.Fonts.Face(24, true))
		s.DrawStringAnchored("→ SÍGUEME PARA MÁS", s.W/2, y+8, 0.5, 0.5)
	}

	if st.ShareQR != nil {
		b := st.ShareQR.Bounds()
		x := s.W/2 - float64(b.Dx())/2
		top := y - ctaHeight/2 - float64(b.Dy()) - 20
		s.SetColor(rgba{255, 255, 255, alpha})
		s.DrawRoundedRectangle(x-8, top-8, float64(b.Dx())+16, float64(b.Dy())+16, 8)
		s.Fill()
		r := b.Sub(b.Min).Add(image.Pt(int(x), int(top)))
		mask := image.NewUniform(color.Alpha{A: uint8(alpha * 255)})
		draw.DrawMask(s.Frame, r, st.ShareQR, b.Min, mask, image.Point{}, draw.Over)
	}
}

// brandLayer - подпись канала в первые 3 секунды.
type brandLayer struct{}

func (brandLayer) Name() string { return "brand" }

func (brandLayer) Draw(s *Surface, elapsed float64, st *State) {
	if elapsed >= brandWindow {
		return
	}
	alpha := math.Max(0, 1-elapsed/brandWindow)
	text, c := "STOICBOT", white
	if st.Mood == content.MoodDivine {
		text, c = "DIVINE WISDOM", gold
	}
	s.SetFontFace(st.Fonts.Face(14, true))
	s.SetColor(rgba{0, 0, 0, 0.5 * alpha})
	s.DrawStringAnchored(text, s.W/2+1, brandY+1, 0.5, 0)
	s.SetColor(withAlpha(c, alpha))
	s.DrawStringAnchored(text, s.W/2, brandY, 0.5, 0)
}

// watermarkLayer - текстовый водяной знак в углу кадра.
type watermarkLayer struct{}

func (watermarkLayer) Name() string { return "watermark" }

func (watermarkLayer) Draw(s *Surface, _ float64, st *State) {
	wm := st.Watermark
	if strings.TrimSpace(wm.Text) == "" {
		return
	}
	opacity := wm.Opacity
	if opacity <= 0 || opacity > 1 {
		opacity = 0.5
	}

	x, y, ax, ay := watermarkAnchor(wm.Position, s.W, s.H)
	s.SetFontFace(st.Fonts.Face(16, false))
	s.SetColor(withAlpha(white, opacity))
	s.DrawStringAnchored(wm.Text, x, y, ax, ay)
}

// watermarkAnchor: точка и выравнивание для угла; по умолчанию правый нижний.
// Снизу оставлен запас над полосой прогресса и визуализатором.
func watermarkAnchor(position string, w, h float64) (x, y, ax, ay float64) {
	bottom := h - watermarkMargin - visualizerHeight
	switch position {
	case "top-left":
		return watermarkMargin, watermarkMargin, 0, 1
	case "top-right":
		return w - watermarkMargin, watermarkMargin, 1, 1
	case "bottom-left":
		return watermarkMargin, bottom, 0, 0
	default:
		return w - watermarkMargin, bottom, 1, 0
	}
}

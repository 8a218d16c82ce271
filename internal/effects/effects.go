package effects

import (
	"image"
	"math"
	"math/rand/v2"
	"strings"

	"golang.org/x/image/math/f64"

	"github.com/ivlev/quotereel/internal/content"
)

const (
	// Ken Burns: масштаб колеблется в пределах 1.0-1.15, легкий дрейф по горизонтали.
	KenBurnsZoom     = 0.15
	KenBurnsZoomRate = 0.05
	KenBurnsPan      = 20.0
	KenBurnsPanRate  = 0.1

	// NextSlideSeed - сдвиг фазы движения для следующего слайда во время перехода.
	NextSlideSeed = 5.0
)

// Motion - состояние камеры Ken Burns в момент времени.
type Motion struct {
	Scale float64
	PanX  float64
}

// KenBurns вычисляет масштаб и сдвиг для фазы seed (обычно elapsed).
func KenBurns(seed float64) Motion {
	return Motion{
		Scale: 1 + (math.Sin(seed*KenBurnsZoomRate)*0.5+0.5)*KenBurnsZoom,
		PanX:  math.Sin(seed*KenBurnsPanRate) * KenBurnsPan,
	}
}

// Matrix строит аффинное преобразование кадра размера w x h: масштаб вокруг anchor
// и сдвиг, ограниченный так, чтобы изображение всегда закрывало кадр.
func (m Motion) Matrix(w, h int, anchor image.Point) f64.Aff3 {
	s := math.Max(1, m.Scale)
	cx := clamp(float64(anchor.X), 0, float64(w))
	cy := clamp(float64(anchor.Y), 0, float64(h))

	// Левый край: cx + s*(pan-cx) <= 0, правый: cx + s*(w-cx+pan) >= w.
	pan := clamp(m.PanX, -(float64(w)-cx)*(s-1)/s, cx*(s-1)/s)

	return f64.Aff3{
		s, 0, cx + s*(pan-cx),
		0, s, cy - s*cy,
	}
}

// Anchor переводит режим зума (center, top-left, ..., random) в точку кадра.
func Anchor(mode string, w, h, slide int) image.Point {
	mode = strings.ToLower(mode)
	if mode == "random" {
		modes := []string{"center", "top-left", "top-right", "bottom-left", "bottom-right"}
		r := rand.New(rand.NewPCG(uint64(slide), 99))
		mode = modes[r.IntN(len(modes))]
	}

	switch mode {
	case "top-left":
		return image.Pt(0, 0)
	case "top-right":
		return image.Pt(w, 0)
	case "bottom-left":
		return image.Pt(0, h)
	case "bottom-right":
		return image.Pt(w, h)
	default: // center
		return image.Pt(w/2, h/2)
	}
}

// SlideIndex: min(floor(t / (D/N)), N-1).
func SlideIndex(t, duration float64, count int) int {
	if count <= 0 {
		return -1
	}
	if duration <= 0 || t <= 0 {
		return 0
	}
	i := int(math.Floor(t / (duration / float64(count))))
	return min(i, count-1)
}

// CrossfadeOpacity - прозрачность следующего слайда в последних td секундах слота.
// Всегда в [0,1], ровно 1 в конце слота.
func CrossfadeOpacity(local, slot, td float64) float64 {
	if td <= 0 {
		if local >= slot {
			return 1
		}
		return 0
	}
	td = math.Min(td, slot)
	return clamp((local-(slot-td))/td, 0, 1)
}

// Slot - положение слайдшоу в момент времени.
type Slot struct {
	Index   int
	Next    int // -1, если перехода нет
	Local   float64
	Opacity float64
}

// Schedule делит длительность озвучки поровну между изображениями.
type Schedule struct {
	Duration   float64
	Count      int
	Transition float64
}

func (s Schedule) SlotDuration() float64 {
	if s.Count <= 0 {
		return 0
	}
	return s.Duration / float64(s.Count)
}

func (s Schedule) At(t float64) Slot {
	idx := SlideIndex(t, s.Duration, s.Count)
	slot := s.SlotDuration()
	if idx < 0 || slot <= 0 {
		return Slot{Index: idx, Next: -1}
	}

	local := t - float64(idx)*slot
	out := Slot{Index: idx, Next: -1, Local: local}
	// у последнего слайда перехода нет
	if idx < s.Count-1 {
		if op := CrossfadeOpacity(local, slot, s.Transition); op > 0 {
			out.Next = idx + 1
			out.Opacity = op
		}
	}
	return out
}

// Blend - как нарисовать входящий слайд при заданном прогрессе перехода.
type Blend struct {
	Alpha   float64
	OffsetX float64 // доля ширины кадра
	Scale   float64
}

// TransitionBlend переводит прогресс перехода (0..1) в параметры отрисовки по стилю.
func TransitionBlend(style content.Transition, progress float64) Blend {
	p := clamp(progress, 0, 1)
	switch style {
	case content.TransitionSlide:
		return Blend{Alpha: 1, OffsetX: 1 - EaseInOutCubic(p), Scale: 1}
	case content.TransitionZoom:
		return Blend{Alpha: p, Scale: 1 + 0.2*(1-EaseInOutCubic(p))}
	default: // fade
		return Blend{Alpha: p, Scale: 1}
	}
}

// EaseInOutCubic - плавный вход и выход.
func EaseInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

// Lerp - линейная интерполяция между a и b.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

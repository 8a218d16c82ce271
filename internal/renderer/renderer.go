package renderer

import (
	"image"

	"github.com/fogleman/gg"

	"github.com/ivlev/quotereel/internal/system"
)

// Surface - кадр композиции: gg-контекст для векторной графики и прямой доступ к пикселям
// для попиксельных слоев (туман, зерно, размытие).
type Surface struct {
	*gg.Context
	Frame *image.RGBA
	W, H  float64
}

func newSurface(frame *image.RGBA) *Surface {
	return &Surface{
		Context: gg.NewContextForRGBA(frame),
		Frame:   frame,
		W:       float64(frame.Rect.Dx()),
		H:       float64(frame.Rect.Dy()),
	}
}

// Layer рисует один слой кадра. Слой не хранит состояние между кадрами:
// все, что меняется во времени, лежит в State.
type Layer interface {
	Name() string
	Draw(s *Surface, elapsed float64, st *State)
}

// DefaultLayers - порядок слоев снизу вверх.
func DefaultLayers() []Layer {
	return []Layer{
		backgroundLayer{},
		fogLayer{},
		vignetteLayer{},
		grainLayer{},
		particlesLayer{},
		captionsLayer{},
		visualizerLayer{},
		progressLayer{},
		ctaLayer{},
		brandLayer{},
		watermarkLayer{},
	}
}

// FrameInfo - то, что композитор сообщает контроллеру о кадре.
type FrameInfo struct {
	SlideIndex    int // -1 без слайдшоу
	Transitioning bool
}

// Compositor собирает кадр из слоев на поверхности фиксированного размера.
type Compositor struct {
	layers  []Layer
	surface *Surface
}

// NewCompositor берет кадр из общего пула; Close возвращает его.
func NewCompositor(w, h int, layers ...Layer) *Compositor {
	if len(layers) == 0 {
		layers = DefaultLayers()
	}
	return &Compositor{
		layers:  layers,
		surface: newSurface(system.GetFrame(w, h)),
	}
}

// Compose рисует кадр для момента elapsed. Кадр живет до следующего вызова.
func (c *Compositor) Compose(elapsed float64, st *State) FrameInfo {
	st.prepare(elapsed, c.surface.W, c.surface.H)

	s := c.surface
	for _, l := range c.layers {
		s.Push()
		l.Draw(s, elapsed, st)
		s.Pop()
	}

	info := FrameInfo{SlideIndex: -1}
	if st.slideshow() {
		info.SlideIndex = st.slot.Index
		info.Transitioning = st.slot.Next >= 0
	}
	return info
}

// Frame - текущий кадр (принадлежит композитору).
func (c *Compositor) Frame() *image.RGBA {
	return c.surface.Frame
}

func (c *Compositor) Size() (int, int) {
	return int(c.surface.W), int(c.surface.H)
}

func (c *Compositor) Close() {
	if c.surface != nil {
		system.PutFrame(c.surface.Frame)
		c.surface = nil
	}
}

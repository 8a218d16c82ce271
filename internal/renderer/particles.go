package renderer

import (
	"image/color"
	"math"
	"math/rand/v2"

	"github.com/ivlev/quotereel/internal/content"
)

// particleStep - частицы двигаются на шаг за кадр 60 Гц; при другом FPS шаг масштабируется.
const particleStep = 1.0 / 60

// Particle - одна искра/уголек.
type Particle struct {
	X, Y    float64
	Size    float64
	SpeedY  float64
	Opacity float64
}

func newParticles(rng *rand.Rand, n int, w, h float64) []Particle {
	ps := make([]Particle, n)
	for i := range ps {
		ps[i] = Particle{
			X:       rng.Float64() * w,
			Y:       rng.Float64() * h,
			Size:    rng.Float64()*2 + 0.5,
			SpeedY:  rng.Float64()*0.5 + 0.1,
			Opacity: rng.Float64()*0.5 + 0.1,
		}
	}
	return ps
}

// advanceParticles сдвигает частицы вверх на dt секунд; ушедшие за верх кадра
// появляются снизу в случайной позиции по горизонтали.
func advanceParticles(ps []Particle, rng *rand.Rand, dt, w, h float64) {
	steps := dt / particleStep
	if steps <= 0 {
		return
	}
	for i := range ps {
		p := &ps[i]
		p.Y -= p.SpeedY * steps
		p.X += math.Sin(p.Y*0.01) * 0.5 * steps
		if p.Y < 0 {
			p.Y = h
			p.X = rng.Float64() * w
		}
	}
}

var (
	emberColor = color.RGBA{255, 150, 50, 255}
	emberGlow  = rgba{255, 100, 0, 0.8}
	sparkColor = color.RGBA{200, 230, 255, 255}
	sparkGlow  = rgba{200, 230, 255, 0.8}
)

const (
	glowRadius  = 3.0
	glowOpacity = 0.35
)

// particlesLayer - теплые угли для стоического настроения, холодные искры для божественного.
// Цвета темы, если заданы, заменяют цвета настроения.
type particlesLayer struct{}

func (particlesLayer) Name() string { return "particles" }

func (particlesLayer) Draw(s *Surface, elapsed float64, st *State) {
	if st.lastTick >= 0 && elapsed > st.lastTick {
		advanceParticles(st.Particles, st.rng, elapsed-st.lastTick, s.W, s.H)
	}
	st.lastTick = elapsed

	core, glow := emberColor, emberGlow
	if st.Mood == content.MoodDivine {
		core, glow = sparkColor, sparkGlow
	}
	if st.Theme.ParticleColor != "" {
		core = parseHex(st.Theme.ParticleColor, core)
		g := parseHex(st.Theme.ParticleGlow, core)
		glow = rgba{g.R, g.G, g.B, 0.8}
	}

	for _, p := range st.Particles {
		s.SetColor(glow.alpha(p.Opacity * glowOpacity))
		s.DrawCircle(p.X, p.Y, p.Size*glowRadius)
		s.Fill()

		s.SetColor(withAlpha(core, p.Opacity))
		s.DrawCircle(p.X, p.Y, p.Size)
		s.Fill()
	}
}

package audio

import (
	"math"

	"github.com/gopxl/beep/v2"
)

// coeffEvery - как часто пересчитывать коэффициенты при модуляции среза.
const coeffEvery = 16

type biquadState struct {
	x1, x2, y1, y2 float64
}

// LowPass - биквадратный ФНЧ (RBJ) с опциональной модуляцией среза от LFO.
type LowPass struct {
	g      *Graph
	in     beep.Streamer
	Cutoff *Param
	q      float64
	lfo    *Oscillator
	depth  float64

	b0, b1, b2, a1, a2 float64
	state              [2]biquadState
	counter            int
}

func (g *Graph) NewLowPass(in beep.Streamer, cutoff, q float64) *LowPass {
	f := &LowPass{g: g, in: in, Cutoff: NewParam(cutoff), q: q}
	f.update(cutoff)
	return f
}

// Modulate добавляет к срезу lfo * depth Гц.
func (f *LowPass) Modulate(lfo *Oscillator, depth float64) {
	f.lfo = lfo
	f.depth = depth
}

func (f *LowPass) update(cutoff float64) {
	rate := float64(f.g.format.SampleRate)
	cutoff = math.Max(20, math.Min(cutoff, rate*0.45))
	q := math.Max(f.q, 0.0001)

	w0 := 2 * math.Pi * cutoff / rate
	cosw, sinw := math.Cos(w0), math.Sin(w0)
	alpha := sinw / (2 * q)
	a0 := 1 + alpha

	f.b0 = (1 - cosw) / 2 / a0
	f.b1 = (1 - cosw) / a0
	f.b2 = f.b0
	f.a1 = -2 * cosw / a0
	f.a2 = (1 - alpha) / a0
}

func (f *LowPass) Stream(samples [][2]float64) (int, bool) {
	n, ok := f.in.Stream(samples)
	for i := 0; i < n; i++ {
		t := f.g.now + int64(i)
		cutoff := f.Cutoff.At(t)
		if f.lfo != nil {
			cutoff += f.depth * f.lfo.next(t)
		}
		if f.counter%coeffEvery == 0 {
			f.update(cutoff)
		}
		f.counter++

		for c := 0; c < 2; c++ {
			s := &f.state[c]
			x := samples[i][c]
			y := f.b0*x + f.b1*s.x1 + f.b2*s.x2 - f.a1*s.y1 - f.a2*s.y2
			s.x2, s.x1 = s.x1, x
			s.y2, s.y1 = s.y1, y
			samples[i][c] = y
		}
	}
	return n, ok
}

func (f *LowPass) Err() error {
	return f.in.Err()
}

// Compressor - компрессор с мягким коленом и общей для каналов огибающей.
type Compressor struct {
	in        beep.Streamer
	threshold float64
	knee      float64
	ratio     float64
	attack    float64
	release   float64
	env       float64
}

type CompressorSettings struct {
	Threshold float64 // дБ
	Knee      float64 // дБ
	Ratio     float64
	Attack    float64 // секунды
	Release   float64 // секунды
}

var DroneCompressor = CompressorSettings{Threshold: -24, Knee: 30, Ratio: 12, Attack: 0.003, Release: 0.25}

func (g *Graph) NewCompressor(in beep.Streamer, s CompressorSettings) *Compressor {
	rate := float64(g.format.SampleRate)
	return &Compressor{
		in:        in,
		threshold: s.Threshold,
		knee:      s.Knee,
		ratio:     s.Ratio,
		attack:    math.Exp(-1 / (s.Attack * rate)),
		release:   math.Exp(-1 / (s.Release * rate)),
	}
}

// curve - статическая характеристика: выходной уровень в дБ для входного.
func (c *Compressor) curve(x float64) float64 {
	over := x - c.threshold
	switch {
	case 2*over < -c.knee:
		return x
	case 2*math.Abs(over) <= c.knee:
		d := over + c.knee/2
		return x + (1/c.ratio-1)*d*d/(2*c.knee)
	default:
		return c.threshold + over/c.ratio
	}
}

func (c *Compressor) Stream(samples [][2]float64) (int, bool) {
	n, ok := c.in.Stream(samples)
	for i := 0; i < n; i++ {
		level := math.Max(math.Abs(samples[i][0]), math.Abs(samples[i][1]))
		x := 20 * math.Log10(level+1e-12)
		reduction := c.curve(x) - x

		coef := c.release
		if reduction < c.env {
			coef = c.attack
		}
		c.env = coef*c.env + (1-coef)*reduction

		g := math.Pow(10, c.env/20)
		samples[i][0] *= g
		samples[i][1] *= g
	}
	return n, ok
}

func (c *Compressor) Err() error {
	return c.in.Err()
}

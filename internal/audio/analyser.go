package audio

import (
	"math"
	"math/cmplx"
	"sync/atomic"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

const (
	// AnalyserSize - размер окна БПФ; полос в два раза меньше.
	AnalyserSize = 64

	analyserSmoothing = 0.8
	analyserMinDB     = -100.0
	analyserMaxDB     = -30.0
)

// Analyser держит кольцевой буфер последних сэмплов мастер-шины и публикует
// байтовый спектр после каждого блока. Чтение спектра не блокирует аудио.
type Analyser struct {
	size   int
	ring   []float64
	pos    int
	window []float64
	smooth []float64
	frame  []float64
	bins   atomic.Pointer[[]uint8]
}

func NewAnalyser(size int) *Analyser {
	a := &Analyser{
		size:   size,
		ring:   make([]float64, size),
		window: window.Blackman(size),
		smooth: make([]float64, size/2),
		frame:  make([]float64, size),
	}
	empty := make([]uint8, size/2)
	a.bins.Store(&empty)
	return a
}

func (a *Analyser) push(samples [][2]float64) {
	for _, s := range samples {
		a.ring[a.pos] = (s[0] + s[1]) / 2
		a.pos = (a.pos + 1) % a.size
	}
}

func (a *Analyser) publish() {
	for i := range a.frame {
		a.frame[i] = a.ring[(a.pos+i)%a.size] * a.window[i]
	}
	spectrum := fft.FFTReal(a.frame)

	bins := make([]uint8, a.size/2)
	for k := range bins {
		mag := cmplx.Abs(spectrum[k]) / float64(a.size)
		a.smooth[k] = analyserSmoothing*a.smooth[k] + (1-analyserSmoothing)*mag

		db := 20 * math.Log10(a.smooth[k]+1e-12)
		v := 255 * (db - analyserMinDB) / (analyserMaxDB - analyserMinDB)
		bins[k] = uint8(math.Max(0, math.Min(255, v)))
	}
	a.bins.Store(&bins)
}

// Bins возвращает неизменяемый снимок последнего спектра.
func (a *Analyser) Bins() []uint8 {
	return *a.bins.Load()
}

package audio

import (
	"math"
	"math/rand/v2"

	"github.com/gopxl/beep/v2"
	"github.com/mjibson/go-dsp/fft"
)

const (
	DefaultImpulseSeconds = 5.0
	DefaultImpulseDecay   = 3.0
	ReverbWet             = 0.55

	// partSize - размер раздела свертки (и задержка мокрого сигнала).
	partSize = 1024
)

// Impulse - стереофоническая импульсная характеристика.
type Impulse [2][]float64

// NewImpulse генерирует шум с экспоненциальным затуханием: noise * (1 - n)^decay.
func NewImpulse(rate beep.SampleRate, seconds, decay float64, rng *rand.Rand) Impulse {
	length := int(float64(rate) * seconds)
	if length < 1 {
		length = 1
	}
	var imp Impulse
	for c := range imp {
		imp[c] = make([]float64, length)
		for i := range imp[c] {
			n := float64(i) / float64(length)
			imp[c][i] = (rng.Float64()*2 - 1) * math.Pow(1-n, decay)
		}
	}
	return imp
}

// normalization повторяет нормировку сверточного узла браузера:
// постоянная громкость независимо от длины и частоты.
func (imp Impulse) normalization(rate beep.SampleRate) float64 {
	const (
		calibration     = 0.00125
		calibrationRate = 44100.0
		minPower        = 0.000125
	)
	var sum float64
	count := 0
	for c := range imp {
		for _, v := range imp[c] {
			sum += v * v
		}
		count += len(imp[c])
	}
	power := math.Sqrt(sum / float64(max(count, 1)))
	if power < minPower {
		power = minPower
	}
	return calibration / power * calibrationRate / float64(rate)
}

// Reverb - свертка с равномерным разбиением (overlap-save в частотной области).
// Выход: сухой сигнал + wet * свертка.
type Reverb struct {
	in  beep.Streamer
	wet float64

	parts [2][][]complex128
	fdl   [2][][]complex128
	head  int

	prev  [2][]float64
	cur   [2][]float64
	out   [2][]float64
	fill  int
	frame []float64
	acc   []complex128
}

func (g *Graph) NewReverb(in beep.Streamer, imp Impulse, wet float64) *Reverb {
	r := &Reverb{in: in, wet: wet}
	scale := imp.normalization(g.format.SampleRate)

	for c := range imp {
		count := (len(imp[c]) + partSize - 1) / partSize
		r.parts[c] = make([][]complex128, count)
		for k := 0; k < count; k++ {
			seg := make([]float64, 2*partSize)
			end := min((k+1)*partSize, len(imp[c]))
			for i, v := range imp[c][k*partSize : end] {
				seg[i] = v * scale
			}
			r.parts[c][k] = fft.FFTReal(seg)
		}
		r.fdl[c] = make([][]complex128, count)
		r.prev[c] = make([]float64, partSize)
		r.cur[c] = make([]float64, partSize)
		r.out[c] = make([]float64, partSize)
	}
	r.frame = make([]float64, 2*partSize)
	r.acc = make([]complex128, 2*partSize)
	return r
}

func (r *Reverb) Stream(samples [][2]float64) (int, bool) {
	n, ok := r.in.Stream(samples)
	for i := 0; i < n; i++ {
		for c := 0; c < 2; c++ {
			r.cur[c][r.fill] = samples[i][c]
			samples[i][c] += r.wet * r.out[c][r.fill]
		}
		r.fill++
		if r.fill == partSize {
			r.process()
			r.fill = 0
		}
	}
	return n, ok
}

func (r *Reverb) process() {
	for c := 0; c < 2; c++ {
		count := len(r.parts[c])
		if count == 0 {
			continue
		}

		copy(r.frame[:partSize], r.prev[c])
		copy(r.frame[partSize:], r.cur[c])
		r.fdl[c][r.head%count] = fft.FFTReal(r.frame)

		clear(r.acc)
		for k := 0; k < count; k++ {
			x := r.fdl[c][(r.head-k+count*2)%count]
			if x == nil {
				continue
			}
			h := r.parts[c][k]
			for j := range r.acc {
				r.acc[j] += x[j] * h[j]
			}
		}

		y := fft.IFFT(r.acc)
		for j := 0; j < partSize; j++ {
			r.out[c][j] = real(y[partSize+j])
		}
		r.prev[c], r.cur[c] = r.cur[c], r.prev[c]
	}
	r.head++
}

func (r *Reverb) Err() error {
	return r.in.Err()
}

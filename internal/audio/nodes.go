package audio

import (
	"math"

	"github.com/gopxl/beep/v2"
)

// Bus суммирует подключенные источники. Шина не заканчивается сама;
// закончившиеся источники отключаются автоматически.
type Bus struct {
	ports []*Port
	tmp   [][2]float64
}

// Port - подключение источника к шине.
type Port struct {
	s      beep.Streamer
	closed bool
}

// Disconnect отключает источник со следующего блока.
func (p *Port) Disconnect() {
	if p != nil {
		p.closed = true
	}
}

func (p *Port) Connected() bool {
	return p != nil && !p.closed
}

func (g *Graph) NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Connect(s beep.Streamer) *Port {
	p := &Port{s: s}
	b.ports = append(b.ports, p)
	return p
}

func (b *Bus) Len() int {
	return len(b.ports)
}

func (b *Bus) Clear() {
	for _, p := range b.ports {
		p.closed = true
	}
	b.ports = nil
}

func (b *Bus) Stream(samples [][2]float64) (int, bool) {
	clear(samples)
	if cap(b.tmp) < len(samples) {
		b.tmp = make([][2]float64, len(samples))
	}
	tmp := b.tmp[:len(samples)]

	live := b.ports[:0]
	for _, p := range b.ports {
		if p.closed {
			continue
		}
		n, ok := p.s.Stream(tmp)
		for i := 0; i < n; i++ {
			samples[i][0] += tmp[i][0]
			samples[i][1] += tmp[i][1]
		}
		if !ok || n < len(tmp) {
			p.closed = true
			continue
		}
		live = append(live, p)
	}
	for i := len(live); i < len(b.ports); i++ {
		b.ports[i] = nil
	}
	b.ports = live
	return len(samples), true
}

func (b *Bus) Err() error {
	return nil
}

// Gain умножает вход на автоматизируемый уровень.
type Gain struct {
	g     *Graph
	in    beep.Streamer
	Level *Param
}

func (g *Graph) NewGain(in beep.Streamer, level float64) *Gain {
	return &Gain{g: g, in: in, Level: NewParam(level)}
}

func (n *Gain) Stream(samples [][2]float64) (int, bool) {
	c, ok := n.in.Stream(samples)
	for i := 0; i < c; i++ {
		v := n.Level.At(n.g.now + int64(i))
		samples[i][0] *= v
		samples[i][1] *= v
	}
	return c, ok
}

func (n *Gain) Err() error {
	return n.in.Err()
}

type Waveform int

const (
	Sine Waveform = iota
	Sawtooth
	Triangle
	Square
)

// Oscillator - генератор периодического сигнала. Каждый осциллятор учитывается
// графом до явного освобождения или остановки.
type Oscillator struct {
	g         *Graph
	wave      Waveform
	Frequency *Param
	detune    float64
	phase     float64
	stopAt    int64
	released  bool
}

// NewOscillator создает осциллятор; detune в центах. Только из аудио-домена.
func (g *Graph) NewOscillator(wave Waveform, freq, detuneCents float64) *Oscillator {
	o := &Oscillator{
		g:         g,
		wave:      wave,
		Frequency: NewParam(freq),
		detune:    math.Pow(2, detuneCents/1200),
		stopAt:    -1,
	}
	g.tracked[o] = struct{}{}
	g.oscillators.Add(1)
	return o
}

// StopAt планирует остановку на сэмпле at.
func (o *Oscillator) StopAt(at int64) {
	o.stopAt = at
}

func (o *Oscillator) Released() bool {
	return o.released
}

func (o *Oscillator) release() {
	if o.released {
		return
	}
	o.released = true
	delete(o.g.tracked, o)
	o.g.oscillators.Add(-1)
}

// next возвращает очередной моно-сэмпл для момента t и сдвигает фазу.
func (o *Oscillator) next(t int64) float64 {
	dt := o.Frequency.At(t) * o.detune / float64(o.g.format.SampleRate)
	p := o.phase

	var v float64
	switch o.wave {
	case Sine:
		v = math.Sin(2 * math.Pi * p)
	case Sawtooth:
		v = 2*p - 1 - polyBLEP(p, dt)
	case Triangle:
		v = 1 - 4*math.Abs(p-0.5)
	case Square:
		if p < 0.5 {
			v = 1
		} else {
			v = -1
		}
		v += polyBLEP(p, dt) - polyBLEP(math.Mod(p+0.5, 1), dt)
	}

	o.phase += dt
	o.phase -= math.Floor(o.phase)
	return v
}

func (o *Oscillator) Stream(samples [][2]float64) (int, bool) {
	if o.released {
		return 0, false
	}
	for i := range samples {
		t := o.g.now + int64(i)
		if o.stopAt >= 0 && t >= o.stopAt {
			o.release()
			return i, i > 0
		}
		v := o.next(t)
		samples[i][0] = v
		samples[i][1] = v
	}
	return len(samples), true
}

func (o *Oscillator) Err() error {
	return nil
}

// polyBLEP сглаживает разрыв пилы, чтобы уменьшить алиасинг.
func polyBLEP(t, dt float64) float64 {
	if dt <= 0 {
		return 0
	}
	switch {
	case t < dt:
		t /= dt
		return t + t - t*t - 1
	case t > 1-dt:
		t = (t - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}

package audio

import (
	"math/rand/v2"
	"sync/atomic"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"

	"github.com/ivlev/quotereel/internal/content"
)

const (
	droneLevel   = 0.15
	droneFadeIn  = 3.0
	droneFadeOut = 3.0
	droneRelease = 3.2

	reeseLevel  = 0.4
	reeseRise   = 4.0
	reeseCutoff = 140.0
	reeseQ      = 2.0
	reeseDetune = 15.0

	layerCutoff = 200.0
	layerQ      = 1.0
	lfoBase     = 0.05
	lfoSpread   = 0.02
	lfoDepth    = 600.0
)

var layerDetunes = [3]float64{0, -8, 8}

type layer struct {
	freq, pan, vol, attack float64
}

type voicing struct {
	reese  [2]float64
	layers []layer
}

// Два аккорда: минорный с ноной для стоиков, мажорный с ноной для "божественного" настроения.
var voicings = map[content.Mood]voicing{
	content.MoodStoic: {
		reese: [2]float64{32.70, 65.41},
		layers: []layer{
			{130.81, -0.3, 0.08, 3},
			{155.56, -0.1, 0.07, 4},
			{196.00, 0.1, 0.07, 3.5},
			{233.08, 0.5, 0.04, 6},
			{293.66, -0.5, 0.04, 7},
		},
	},
	content.MoodDivine: {
		reese: [2]float64{36.71, 73.42},
		layers: []layer{
			{146.83, -0.3, 0.08, 3},
			{185.00, -0.1, 0.06, 4},
			{220.00, 0.1, 0.06, 3.5},
			{277.18, 0.5, 0.05, 6},
			{329.63, -0.5, 0.05, 7},
		},
	},
}

// DroneOscillators - сколько осцилляторов создает один запуск дрона.
func DroneOscillators(mood content.Mood) int {
	v := voicings[mood]
	return len(v.reese)*2 + len(v.layers)*(len(layerDetunes)+1)
}

// Drone - процедурный эмбиент-аккорд: детюненые пилы через "дышащий" ФНЧ
// плюс два суб-баса, общий компрессор и реверберация.
type Drone struct {
	g       *Graph
	voicing voicing
	impulse Impulse
	rng     *rand.Rand
	playing atomic.Bool

	// состояние аудио-домена
	gen   int
	oscs  []*Oscillator
	level *Param
	port  *Port
}

func NewDrone(g *Graph, mood content.Mood, imp Impulse, rng *rand.Rand) *Drone {
	return &Drone{g: g, voicing: voicings[mood], impulse: imp, rng: rng}
}

func (d *Drone) Playing() bool {
	return d.playing.Load()
}

// Start запускает дрон. Повторный запуск сначала освобождает предыдущие голоса.
func (d *Drone) Start() {
	d.playing.Store(true)
	d.g.Do(func() {
		if d.port != nil {
			d.release()
		}
		d.build()
	})
}

// Stop плавно гасит дрон за 3 с и затем освобождает все узлы.
func (d *Drone) Stop() {
	if !d.playing.Swap(false) {
		return
	}
	d.g.Do(func() {
		if d.port == nil {
			return
		}
		g := d.g
		now := g.now
		gen := d.gen
		d.level.CancelAndHold(now)
		d.level.LinearRampTo(0, now+g.Samples(droneFadeOut), now)
		g.After(now+g.Samples(droneRelease), func() {
			if d.gen == gen && d.port != nil {
				d.release()
			}
		})
	})
}

// Halt освобождает голоса без затухания.
func (d *Drone) Halt() {
	d.playing.Store(false)
	d.g.Do(func() {
		if d.port != nil {
			d.release()
		}
	})
}

func (d *Drone) build() {
	g := d.g
	now := g.now

	voices := g.NewBus()
	for _, f := range d.voicing.reese {
		voices.Connect(d.reese(f, now))
	}
	for _, l := range d.voicing.layers {
		voices.Connect(d.layer(l, now))
	}

	master := g.NewGain(voices, 0)
	master.Level.LinearRampTo(droneLevel, now+g.Samples(droneFadeIn), now)
	d.level = master.Level

	comp := g.NewCompressor(master, DroneCompressor)
	d.port = g.root.Connect(g.NewReverb(comp, d.impulse, ReverbWet))
	d.gen++
}

func (d *Drone) reese(freq float64, now int64) beep.Streamer {
	g := d.g
	stack := g.NewBus()
	for _, cents := range []float64{-reeseDetune, reeseDetune} {
		o := g.NewOscillator(Sawtooth, freq, cents)
		d.oscs = append(d.oscs, o)
		stack.Connect(o)
	}
	lp := g.NewLowPass(stack, reeseCutoff, reeseQ)
	gain := g.NewGain(lp, 0)
	gain.Level.LinearRampTo(reeseLevel, now+g.Samples(reeseRise), now)
	return gain
}

func (d *Drone) layer(l layer, now int64) beep.Streamer {
	g := d.g
	stack := g.NewBus()
	for _, cents := range layerDetunes {
		o := g.NewOscillator(Sawtooth, l.freq, cents)
		d.oscs = append(d.oscs, o)
		stack.Connect(o)
	}

	lfo := g.NewOscillator(Sine, lfoBase+d.rng.Float64()*lfoSpread, 0)
	d.oscs = append(d.oscs, lfo)
	lp := g.NewLowPass(stack, layerCutoff, layerQ)
	lp.Modulate(lfo, lfoDepth)

	pan := &effects.Pan{Streamer: lp, Pan: l.pan}
	gain := g.NewGain(pan, 0)
	gain.Level.LinearRampTo(l.vol, now+g.Samples(l.attack), now)
	return gain
}

func (d *Drone) release() {
	for _, o := range d.oscs {
		o.release()
	}
	d.oscs = nil
	d.port.Disconnect()
	d.port = nil
	d.gen++
}

package audio

import (
	"fmt"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
)

const (
	// MusicLevel - уровень файловой музыки, чтобы голос оставался разборчивым.
	MusicLevel = 0.1

	impactFrom   = 150.0
	impactTo     = 40.0
	impactSweep  = 0.5
	impactGain   = 0.3
	impactFloor  = 0.01
	impactLength = 0.6
)

// PlayVoice подключает озвучку; onEnd вызывается из аудио-домена по окончании буфера.
func (g *Graph) PlayVoice(buf *beep.Buffer, onEnd func()) {
	s := beep.Seq(buf.Streamer(0, buf.Len()), beep.Callback(onEnd))
	g.Do(func() {
		g.root.Connect(s)
	})
}

// Music - зацикленный файловый трек с собственным фиксированным гейном.
type Music struct {
	g    *Graph
	loop beep.Streamer
	port *Port
}

func NewMusic(g *Graph, buf *beep.Buffer) (*Music, error) {
	loop, err := beep.Loop2(buf.Streamer(0, buf.Len()))
	if err != nil {
		return nil, fmt.Errorf("music loop: %w", err)
	}
	return &Music{g: g, loop: &effects.Gain{Streamer: loop, Gain: MusicLevel - 1}}, nil
}

func (m *Music) Start() {
	m.g.Do(func() {
		m.port.Disconnect()
		m.port = m.g.root.Connect(m.loop)
	})
}

func (m *Music) Stop() {
	m.g.Do(func() {
		m.port.Disconnect()
		m.port = nil
	})
}

// Impact - короткий "удар": синус 150 -> 40 Гц за 0.5 с с затуханием.
func (g *Graph) Impact() {
	g.Do(func() {
		now := g.now
		sweepEnd := now + g.Samples(impactSweep)

		osc := g.NewOscillator(Sine, impactFrom, 0)
		osc.Frequency.ExponentialRampTo(impactTo, sweepEnd, now)
		osc.StopAt(now + g.Samples(impactLength))

		gain := g.NewGain(osc, impactGain)
		gain.Level.ExponentialRampTo(impactFloor, sweepEnd, now)
		g.root.Connect(gain)
	})
}

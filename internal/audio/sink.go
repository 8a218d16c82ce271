package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep/v2/speaker"
)

// Sink - устройство, которое тянет сэмплы из графа в реальном времени.
type Sink interface {
	Attach(g *Graph) error
	Detach()
}

// SpeakerSink выводит граф на звуковую карту. Устройство открывается один раз на процесс.
type SpeakerSink struct {
	once    sync.Once
	initErr error
}

func (s *SpeakerSink) Attach(g *Graph) error {
	rate := g.SampleRate()
	s.once.Do(func() {
		s.initErr = speaker.Init(rate, rate.N(100*time.Millisecond))
	})
	if s.initErr != nil {
		return fmt.Errorf("speaker init: %w", s.initErr)
	}
	speaker.Play(g)
	return nil
}

// Detach снимает все потоки с устройства. После возврата граф больше не вызывается.
func (s *SpeakerSink) Detach() {
	if s.initErr == nil {
		speaker.Clear()
	}
}

// clockTick - как часто ClockSink дотягивает граф до системного времени.
const clockTick = 10 * time.Millisecond

// ClockSink тянет граф по системным часам и выбрасывает звук.
// Нужен, когда звуковой карты нет: часы сессии все равно идут.
type ClockSink struct {
	stop chan struct{}
	done chan struct{}
}

func (c *ClockSink) Attach(g *Graph) error {
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.run(g)
	return nil
}

func (c *ClockSink) run(g *Graph) {
	defer close(c.done)
	rate := float64(g.SampleRate())
	buf := make([][2]float64, blockSize)
	start := time.Now()
	ticker := time.NewTicker(clockTick)
	defer ticker.Stop()

	var pulled int64
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			due := int64(time.Since(start).Seconds() * rate)
			for pulled < due {
				n := int(min(int64(len(buf)), due-pulled))
				g.Stream(buf[:n])
				pulled += int64(n)
			}
		}
	}
}

// Detach останавливает горутину; после возврата граф больше не вызывается.
func (c *ClockSink) Detach() {
	if c.stop == nil {
		return
	}
	close(c.stop)
	<-c.done
	c.stop = nil
}

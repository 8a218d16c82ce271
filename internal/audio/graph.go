package audio

import (
	"container/heap"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
)

// DefaultSampleRate - внутренняя частота графа.
const DefaultSampleRate beep.SampleRate = 24000

// blockSize - гранулярность таймеров и автоматизации мастер-шины.
const blockSize = 256

// Graph - звуковой граф одной сессии: корневая шина -> мастер-гейн -> анализатор -> выход.
//
// Граф живет в своем домене (горутина колонки или цикл захвата). Остальной код
// меняет граф только через Do/After, а читает атомарные значения: Elapsed, Bins,
// ActiveOscillators, Muted.
type Graph struct {
	format beep.Format

	mu      sync.Mutex
	pending []func()

	now    int64
	clock  atomic.Int64
	timers timerQueue

	root     *Bus
	master   *Param
	analyser *Analyser

	oscillators atomic.Int32
	tracked     map[*Oscillator]struct{}

	muted     atomic.Bool
	suspended atomic.Bool
}

func NewGraph(rate beep.SampleRate) *Graph {
	g := &Graph{
		format:  beep.Format{SampleRate: rate, NumChannels: 2, Precision: 2},
		master:  NewParam(1),
		tracked: make(map[*Oscillator]struct{}),
	}
	g.root = g.NewBus()
	g.analyser = NewAnalyser(AnalyserSize)
	return g
}

func (g *Graph) Format() beep.Format {
	return g.format
}

func (g *Graph) SampleRate() beep.SampleRate {
	return g.format.SampleRate
}

// Root - корневая шина, в которую подключаются голос, музыка, дрон и эффекты.
func (g *Graph) Root() *Bus {
	return g.root
}

// Now - текущий сэмпл (только из аудио-домена).
func (g *Graph) Now() int64 {
	return g.now
}

// Samples переводит длительность в сэмплы.
func (g *Graph) Samples(seconds float64) int64 {
	return int64(seconds * float64(g.format.SampleRate))
}

// Elapsed - сколько секунд отыграл граф.
func (g *Graph) Elapsed() float64 {
	return float64(g.clock.Load()) / float64(g.format.SampleRate)
}

// Clock - количество отыгранных сэмплов.
func (g *Graph) Clock() int64 {
	return g.clock.Load()
}

// Do ставит изменение графа в очередь. Очередь выполняется в начале следующего блока.
func (g *Graph) Do(fn func()) {
	g.mu.Lock()
	g.pending = append(g.pending, fn)
	g.mu.Unlock()
}

// After выполняет fn в аудио-домене, когда часы дойдут до сэмпла at.
// Вызывать только из аудио-домена.
func (g *Graph) After(at int64, fn func()) {
	heap.Push(&g.timers, timer{at: at, fn: fn})
}

func (g *Graph) drain() {
	g.mu.Lock()
	cmds := g.pending
	g.pending = nil
	g.mu.Unlock()

	for _, fn := range cmds {
		fn()
	}
}

func (g *Graph) runTimers() {
	for g.timers.Len() > 0 && g.timers[0].at <= g.now {
		t := heap.Pop(&g.timers).(timer)
		t.fn()
	}
}

// Stream реализует beep.Streamer: граф никогда не заканчивается сам.
func (g *Graph) Stream(samples [][2]float64) (int, bool) {
	g.drain()

	if g.suspended.Load() {
		clear(samples)
		return len(samples), true
	}

	for off := 0; off < len(samples); {
		n := min(blockSize, len(samples)-off)
		blk := samples[off : off+n]

		g.runTimers()
		g.root.Stream(blk)
		for i := range blk {
			gain := g.master.At(g.now + int64(i))
			blk[i][0] *= gain
			blk[i][1] *= gain
		}
		g.analyser.push(blk)

		g.now += int64(n)
		g.clock.Store(g.now)
		off += n
	}
	g.analyser.publish()
	return len(samples), true
}

func (g *Graph) Err() error {
	return nil
}

// SetMuted ставит мастер-гейн в 0 или 1 с ближайшего блока, без перезапуска.
func (g *Graph) SetMuted(muted bool) {
	g.muted.Store(muted)
	v := 1.0
	if muted {
		v = 0
	}
	g.Do(func() {
		g.master.CancelAndHold(g.now)
		g.master.SetValueAt(v, g.now)
	})
}

func (g *Graph) Muted() bool {
	return g.muted.Load()
}

// FadeOut линейно уводит мастер-гейн в ноль за seconds от текущего сэмпла.
func (g *Graph) FadeOut(seconds float64) {
	g.Do(func() {
		g.master.CancelAndHold(g.now)
		g.master.LinearRampTo(0, g.now+g.Samples(seconds), g.now)
	})
}

// MasterGain - значение мастер-гейна на текущий сэмпл (только из аудио-домена).
func (g *Graph) MasterGain() float64 {
	return g.master.At(g.now)
}

func (g *Graph) Suspend() {
	g.suspended.Store(true)
}

func (g *Graph) Resume() {
	g.suspended.Store(false)
}

func (g *Graph) Suspended() bool {
	return g.suspended.Load()
}

// Halt немедленно освобождает все осцилляторы и отключает все узлы.
// Вызывать, когда граф не воспроизводится (после Detach или из аудио-домена).
func (g *Graph) Halt() {
	g.drain()
	for o := range g.tracked {
		o.release()
	}
	g.root.Clear()
	g.timers = nil
}

// ActiveOscillators - число созданных и еще не освобожденных осцилляторов.
func (g *Graph) ActiveOscillators() int {
	return int(g.oscillators.Load())
}

// Bins - последний снимок спектра анализатора (0..255 на полосу).
func (g *Graph) Bins() []uint8 {
	return g.analyser.Bins()
}

type timer struct {
	at int64
	fn func()
}

type timerQueue []timer

func (q timerQueue) Len() int           { return len(q) }
func (q timerQueue) Less(i, j int) bool { return q[i].at < q[j].at }
func (q timerQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *timerQueue) Push(x any)        { *q = append(*q, x.(timer)) }
func (q *timerQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	*q = old[:n-1]
	return t
}

// Duration переводит число сэмплов графа во время.
func (g *Graph) Duration(samples int64) time.Duration {
	return g.format.SampleRate.D(int(samples))
}

package audio

import (
	"math"
	"sort"
)

type eventKind int

const (
	setEvent eventKind = iota
	linearEvent
	exponentialEvent
)

type paramEvent struct {
	kind  eventKind
	value float64
	at    int64
}

// Param - автоматизируемый параметр узла. Время задается в сэмплах часов графа.
// Рампа идет от предыдущего события (или от момента планирования) до своего времени.
// Используется только из аудио-домена.
type Param struct {
	value  float64
	anchor int64
	events []paramEvent
}

func NewParam(v float64) *Param {
	return &Param{value: v}
}

// At возвращает значение в момент t и отбрасывает прошедшие события.
func (p *Param) At(t int64) float64 {
	for len(p.events) > 0 && p.events[0].at <= t {
		e := p.events[0]
		p.value, p.anchor = e.value, e.at
		p.events = p.events[1:]
	}
	if len(p.events) == 0 {
		return p.value
	}

	e := p.events[0]
	span := float64(e.at - p.anchor)
	if e.kind == setEvent || span <= 0 {
		return p.value
	}
	frac := float64(t-p.anchor) / span
	frac = math.Max(0, math.Min(1, frac))

	switch e.kind {
	case linearEvent:
		return p.value + (e.value-p.value)*frac
	case exponentialEvent:
		if p.value*e.value <= 0 {
			return p.value
		}
		return p.value * math.Pow(e.value/p.value, frac)
	}
	return p.value
}

// Value - текущее значение без учета запланированных событий.
func (p *Param) Value() float64 {
	return p.value
}

func (p *Param) SetValueAt(v float64, at int64) {
	p.insert(paramEvent{kind: setEvent, value: v, at: at})
}

func (p *Param) LinearRampTo(v float64, at, now int64) {
	p.rampFrom(now)
	p.insert(paramEvent{kind: linearEvent, value: v, at: at})
}

func (p *Param) ExponentialRampTo(v float64, at, now int64) {
	p.rampFrom(now)
	p.insert(paramEvent{kind: exponentialEvent, value: v, at: at})
}

// CancelAndHold удаляет будущие события, сохраняя значение на момент now.
func (p *Param) CancelAndHold(now int64) {
	v := p.At(now)
	p.events = nil
	p.value, p.anchor = v, now
}

func (p *Param) rampFrom(now int64) {
	if len(p.events) == 0 && p.anchor < now {
		p.anchor = now
	}
}

func (p *Param) insert(e paramEvent) {
	i := sort.Search(len(p.events), func(i int) bool { return p.events[i].at > e.at })
	p.events = append(p.events, paramEvent{})
	copy(p.events[i+1:], p.events[i:])
	p.events[i] = e
}

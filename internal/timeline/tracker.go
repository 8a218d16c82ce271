package timeline

import "sort"

// Tracker ведет активное слово в рамках одной сессии.
// Переход из эвристики в точный режим односторонний.
type Tracker struct {
	tl        *Timeline
	offsets   []int
	diverged  bool
	heuristic bool
	active    int
	finished  bool
}

func NewTracker(tl *Timeline) *Tracker {
	return &Tracker{tl: tl, heuristic: true, active: -1}
}

// Align готовит таблицу смещений для событий движка речи.
// При расхождении текста события игнорируются до конца сессии.
func (t *Tracker) Align(spoken string) error {
	words := make([]string, len(t.tl.Words))
	for i, w := range t.tl.Words {
		words[i] = w.Word
	}
	offsets, err := WordOffsets(spoken, words)
	if err != nil {
		t.diverged = true
		t.offsets = nil
		return err
	}
	t.offsets = offsets
	return nil
}

// Boundary сопоставляет событие (смещение в рунах) со словом.
// Индекс не уменьшается: запоздавшее событие не откатывает подсветку назад.
// Возвращает false, если событие не удалось сопоставить.
func (t *Tracker) Boundary(charIndex int) bool {
	if t.diverged || len(t.offsets) == 0 || t.finished {
		return false
	}
	i := sort.Search(len(t.offsets), func(i int) bool {
		return t.offsets[i] > charIndex
	}) - 1
	if i < 0 {
		return false
	}
	t.heuristic = false
	if i > t.active {
		t.active = i
	}
	return true
}

// Observe возвращает активное слово на момент elapsed.
func (t *Tracker) Observe(elapsed float64) int {
	if t.finished {
		return t.active
	}
	if t.heuristic {
		if i := t.tl.ActiveIndexAt(elapsed); i > t.active {
			t.active = i
		}
	}
	return t.clamp(t.active)
}

// Finish фиксирует последнее слово: речь закончилась.
func (t *Tracker) Finish() {
	t.finished = true
	t.active = len(t.tl.Words) - 1
}

func (t *Tracker) Active() int {
	return t.clamp(t.active)
}

func (t *Tracker) Diverged() bool {
	return t.diverged
}

func (t *Tracker) Timeline() *Timeline {
	return t.tl
}

func (t *Tracker) Metadata() SyncMetadata {
	m := t.tl.Meta
	m.IsHeuristic = t.heuristic
	return m
}

func (t *Tracker) clamp(i int) int {
	if last := len(t.tl.Words) - 1; i > last {
		return last
	}
	return i
}

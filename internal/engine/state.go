package engine

import "fmt"

// State - состояние сессии воспроизведения.
type State int32

const (
	Idle State = iota
	Loading
	Playing
	Ended
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Playing:
		return "playing"
	case Ended:
		return "ended"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Final сообщает, что сессия завершена и больше не изменится.
func (s State) Final() bool {
	return s == Ended || s == Stopped
}

var transitions = map[State][]State{
	Idle:    {Loading},
	Loading: {Playing, Stopped},
	Playing: {Ended, Stopped},
}

// CanTransition проверяет допустимость перехода.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Event - уведомление о смене состояния. Подписчики видят только события,
// а не внутренности сессии.
type Event struct {
	SessionID string
	State     State
	Err       error
}

func (e Event) String() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.SessionID, e.State, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.SessionID, e.State)
}

// Snapshot - последнее опубликованное циклом кадров состояние сессии.
type Snapshot struct {
	SessionID   string
	State       State
	Elapsed     float64
	ActiveWord  int
	TotalWords  int
	Heuristic   bool
	Diverged    bool
	Muted       bool
	Frames      int
	SlideIndex  int
	Oscillators int
}

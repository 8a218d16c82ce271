package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ivlev/quotereel/internal/audio"
	"github.com/ivlev/quotereel/internal/config"
	"github.com/ivlev/quotereel/internal/content"
	"github.com/ivlev/quotereel/internal/source"
)

const eventBuffer = 32

var ErrNilJob = errors.New("engine: nil job")

type Options struct {
	Config *config.Config
	Logger *zap.Logger
	// Sink - вывод живого режима. По умолчанию звуковая карта.
	Sink   audio.Sink
	Loader *source.Loader
}

// Player владеет не более чем одной сессией. Новая сессия начинается только
// после полной остановки предыдущей.
type Player struct {
	cfg    *config.Config
	log    *zap.Logger
	sink   audio.Sink
	loader *source.Loader

	mu      sync.Mutex
	current *Session
	muted   bool

	state  atomic.Int32
	events chan Event
}

func NewPlayer(opts Options) *Player {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sink := opts.Sink
	if sink == nil {
		sink = &audio.SpeakerSink{}
	}
	loader := opts.Loader
	if loader == nil {
		loader = source.NewLoader(source.Options{
			Workers:     cfg.Workers,
			Timeout:     cfg.HTTPTimeout,
			Placeholder: cfg.PlaceholderURL,
			Logger:      logger,
		})
	}
	return &Player{
		cfg:    cfg,
		log:    logger,
		sink:   sink,
		loader: loader,
		events: make(chan Event, eventBuffer),
	}
}

// Events - канал уведомлений о смене состояния. Если его не читают,
// новые события отбрасываются.
func (p *Player) Events() <-chan Event {
	return p.events
}

// Start запускает живое воспроизведение.
func (p *Player) Start(ctx context.Context, job *content.Job) (string, error) {
	return p.launch(ctx, job, nil)
}

// Record проигрывает задание в режиме захвата; onComplete получает результат
// после сборки файла (и при остановке тоже, чтобы не терять записанное).
func (p *Player) Record(ctx context.Context, job *content.Job, onComplete func(Capture)) (string, error) {
	if onComplete == nil {
		onComplete = func(Capture) {}
	}
	return p.launch(ctx, job, onComplete)
}

// Select останавливает текущую сессию и запускает задание из истории.
func (p *Player) Select(ctx context.Context, history *content.History, id string) (string, error) {
	job, err := history.Get(id)
	if err != nil {
		return "", err
	}
	return p.Start(ctx, job)
}

func (p *Player) launch(ctx context.Context, job *content.Job, onComplete func(Capture)) (string, error) {
	if job == nil {
		return "", ErrNilJob
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != nil {
		p.current.stop()
		p.current = nil
	}

	s := newSession(ctx, sessionDeps{
		cfg:        p.cfg,
		log:        p.log,
		sink:       p.sink,
		loader:     p.loader,
		muted:      p.muted,
		onComplete: onComplete,
		emit:       p.emit,
	}, job)
	p.current = s
	go s.run()
	return s.ID, nil
}

// Stop синхронно останавливает текущую сессию. Повторный вызов ничего не делает.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		p.current.stop()
	}
}

// ToggleMute переключает мастер-гейн текущей и последующих сессий.
func (p *Player) ToggleMute() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.muted = !p.muted
	if p.current != nil {
		p.current.graph.SetMuted(p.muted)
	}
	return p.muted
}

// Wait ждет завершения текущей сессии.
func (p *Player) Wait(ctx context.Context) error {
	p.mu.Lock()
	s := p.current
	p.mu.Unlock()
	if s == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return s.err
	}
}

func (p *Player) State() State {
	return State(p.state.Load())
}

func (p *Player) Snapshot() Snapshot {
	p.mu.Lock()
	s := p.current
	p.mu.Unlock()
	if s == nil {
		return Snapshot{State: p.State(), ActiveWord: -1, SlideIndex: -1}
	}
	return s.snapshot()
}

func (p *Player) emit(ev Event) {
	p.state.Store(int32(ev.State))
	select {
	case p.events <- ev:
	default:
		p.log.Debug("event dropped", zap.Stringer("event", ev))
	}
}

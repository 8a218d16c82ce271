package engine

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gopxl/beep/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/quotereel/internal/analyzer"
	"github.com/ivlev/quotereel/internal/audio"
	"github.com/ivlev/quotereel/internal/config"
	"github.com/ivlev/quotereel/internal/content"
	"github.com/ivlev/quotereel/internal/metrics"
	"github.com/ivlev/quotereel/internal/narration"
	"github.com/ivlev/quotereel/internal/renderer"
	"github.com/ivlev/quotereel/internal/source"
	"github.com/ivlev/quotereel/internal/timeline"
	"github.com/ivlev/quotereel/internal/video"
)

const (
	voiceGrace  = 0.5 // после окончания голоса
	pollAfter   = 2.0 // опрос речи начинается не раньше
	pollGrace   = 0.8
	bufferGrace = 1.0
)

type sessionDeps struct {
	cfg        *config.Config
	log        *zap.Logger
	sink       audio.Sink
	loader     *source.Loader
	muted      bool
	onComplete func(Capture)
	emit       func(Event)
}

// Session - одно воспроизведение задания: аудиограф, медиа, таймлайн,
// состояние рендера и цикл кадров. Создается Start/Record, разрушается stop.
type Session struct {
	ID  string
	job *content.Job
	cfg *config.Config
	log *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	err    error
	deps   sessionDeps
	state  State
	mode   string
	seed   uint64

	graph    *audio.Graph
	drone    *audio.Drone
	music    *audio.Music
	voice    *beep.Buffer
	narrator narration.Narrator
	tracker  *timeline.Tracker
	spoken   string

	render   *renderer.State
	comp     *renderer.Compositor
	decoder  *video.Decoder
	recorder *video.Recorder
	preview  *video.Preview
	cleanups []func()

	// Длительность озвучки для таймлайна, прогресса и слайдшоу.
	duration float64
	// Момент, когда кончается буфер голоса (или запас для эвристики).
	bufferEnd   float64
	safetyAt    float64
	hasCallback bool
	voiceEnd    atomic.Int64 // сэмпл окончания голоса + 1, 0 - еще звучит
	endAt       float64
	endReason   string
	slide       int

	frames     int
	renderTime time.Duration
	started    time.Time
	last       atomic.Pointer[Snapshot]
}

func newSession(parent context.Context, deps sessionDeps, job *content.Job) *Session {
	cfg := deps.cfg
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	mode := metrics.ModeLive
	if deps.onComplete != nil {
		mode = metrics.ModeCapture
	}

	ctx, cancel := context.WithCancel(parent)
	id := uuid.NewString()
	s := &Session{
		ID:     id,
		job:    job,
		cfg:    cfg,
		log:    deps.log.With(zap.String("session", id[:8]), zap.String("mode", mode)),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		deps:   deps,
		state:  Idle,
		mode:   mode,
		seed:   seed,
		graph:  audio.NewGraph(beep.SampleRate(cfg.SampleRate)),
		endAt:  -1,
		slide:  -1,
	}
	s.graph.SetMuted(deps.muted)
	s.last.Store(&Snapshot{SessionID: id, ActiveWord: -1, SlideIndex: -1, Muted: deps.muted})
	return s
}

func (s *Session) setState(to State, err error) {
	if !CanTransition(s.state, to) {
		s.log.Warn("invalid transition", zap.Stringer("from", s.state), zap.Stringer("to", to))
		return
	}
	s.state = to
	snap := *s.last.Load()
	snap.State = to
	s.last.Store(&snap)
	s.deps.emit(Event{SessionID: s.ID, State: to, Err: err})
}

func (s *Session) run() {
	defer close(s.done)
	defer s.once.Do(s.cancel)
	s.started = time.Now()
	metrics.SessionStarted()

	s.setState(Loading, nil)
	if err := s.load(s.ctx); err != nil {
		s.err = err
		s.teardown()
		s.setState(Stopped, err)
		metrics.SessionFinished(metrics.OutcomeFailed)
		return
	}
	if s.ctx.Err() != nil {
		s.teardown()
		s.setState(Stopped, nil)
		metrics.SessionFinished(metrics.OutcomeStopped)
		return
	}

	s.begin()
	s.setState(Playing, nil)

	var ended bool
	var err error
	if s.recorder != nil {
		ended, err = s.runCapture()
	} else {
		ended, err = s.runLive()
	}
	s.teardown()

	if s.recorder != nil {
		s.finalize(ended)
	}
	if err != nil {
		s.err = err
	}
	s.report()

	if ended {
		s.setState(Ended, nil)
		metrics.SessionFinished(metrics.OutcomeEnded)
	} else {
		s.setState(Stopped, err)
		metrics.SessionFinished(metrics.OutcomeStopped)
	}
}

// stop отменяет сессию и ждет освобождения всех ресурсов.
func (s *Session) stop() {
	s.once.Do(s.cancel)
	<-s.done
}

// load собирает все ресурсы сессии. Цикл кадров стартует только после того,
// как каждый ресурс загрузился или отвалился.
func (s *Session) load(ctx context.Context) error {
	job := s.job
	cfg := s.cfg
	rate := s.graph.SampleRate()

	s.spoken = job.Narration.Spoken
	if strings.TrimSpace(s.spoken) == "" {
		s.spoken = narration.SpokenText(job.Quote)
	}
	estimate := narration.EstimateFor(s.spoken, job.Narration)

	var images []*renderer.Slide
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.loadVoice(rate)
		return nil
	})

	switch job.Media.Kind() {
	case content.MediaSlideshow:
		g.Go(func() error {
			imgs, err := s.deps.loader.LoadImages(gctx, job.Media.Images)
			if err != nil {
				return err
			}
			det, err := analyzer.NewDetector(cfg.Detector)
			if err != nil {
				s.log.Warn("detector unavailable, centering slides", zap.Error(err))
				det = analyzer.CenterDetector{}
			}
			images = renderer.PrepareSlides(imgs, config.CanvasWidth, config.CanvasHeight, cfg.ZoomMode, det)
			if len(images) == 0 {
				s.log.Warn("no slides loaded, using gradient background")
			}
			return nil
		})
	case content.MediaVideo:
		g.Go(func() error {
			s.openVideo(ctx, job.Media.Video)
			return nil
		})
	}

	if job.Music.UsesFile() {
		g.Go(func() error {
			s.loadMusic(gctx, job.Music.Path, rate)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("load media: %w", err)
	}

	audioDur := 0.0
	if s.hasCallback {
		audioDur = audio.BufferSeconds(s.voice)
	}
	s.duration = audioDur
	if s.duration <= 0 {
		s.duration = estimate
	}
	s.bufferEnd = audioDur
	if !s.hasCallback {
		s.bufferEnd = s.duration + cfg.SafetyMargin
	}
	s.safetyAt = s.duration + cfg.SafetyMargin

	tl, err := timeline.Build(job.Quote.Words(), len(job.Quote.TitleWords()), s.duration)
	if err != nil {
		return err
	}
	s.tracker = timeline.NewTracker(tl)
	s.narrator = narration.ForAudio(job.Narration, s.spoken, audioDur)

	fontPath := job.Font
	if fontPath == "" {
		fontPath = cfg.FontPath
	}
	fonts, err := renderer.NewFontBook(fontPath)
	if err != nil {
		s.log.Warn("font override failed, using Go fonts", zap.String("font", fontPath), zap.Error(err))
		if fonts, err = renderer.NewFontBook(""); err != nil {
			return err
		}
	}

	s.render, err = renderer.NewState(renderer.StateOptions{
		Job:      job,
		Theme:    config.ThemeFor(job),
		Fonts:    fonts,
		Slides:   images,
		Duration: s.duration,
		Seed:     s.seed,
	})
	if err != nil {
		return err
	}
	s.comp = renderer.NewCompositor(config.CanvasWidth, config.CanvasHeight)

	if s.mode == metrics.ModeCapture {
		s.recorder, err = video.NewRecorder(video.RecorderOptions{
			Width:      config.CanvasWidth,
			Height:     config.CanvasHeight,
			FPS:        cfg.FPS,
			SampleRate: cfg.SampleRate,
			Quality:    cfg.JPEGQuality,
			Logger:     s.log,
		})
		if err != nil {
			return err
		}
	}

	rng := rand.New(rand.NewPCG(s.seed, 0xd0e))
	if s.music == nil {
		imp := audio.NewImpulse(rate, cfg.ImpulseSeconds, cfg.ImpulseDecay, rng)
		s.drone = audio.NewDrone(s.graph, job.Quote.Category.Mood(), imp, rng)
	}

	s.log.Info("session loaded",
		zap.Float64("duration", s.duration),
		zap.Bool("voice", s.hasCallback),
		zap.Bool("precise", s.narrator.Precise()),
		zap.Int("slides", len(images)),
		zap.Bool("video", s.decoder != nil),
		zap.Bool("music", s.music != nil),
	)
	return nil
}

// loadVoice декодирует озвучку. Битые байты заменяются тишиной по умолчанию;
// без байтов вовсе голос не играет, и конец речи определяется опросом.
func (s *Session) loadVoice(rate beep.SampleRate) {
	n := s.job.Narration
	if !n.HasAudio() {
		s.voice = audio.Silence(rate, audio.FallbackSeconds)
		return
	}
	buf, err := audio.DecodeOrSilence(n.Data, rate)
	if err != nil {
		s.log.Warn("narration decode failed, silent fallback", zap.Error(err))
	}
	s.voice = buf
	s.hasCallback = true
}

func (s *Session) loadMusic(ctx context.Context, ref string, rate beep.SampleRate) {
	data, err := s.deps.loader.Fetch(ctx, ref)
	if err == nil {
		var buf *beep.Buffer
		if buf, err = audio.Decode(data, rate); err == nil {
			s.music, err = audio.NewMusic(s.graph, buf)
		}
	}
	if err != nil {
		s.log.Warn("music unavailable, using drone", zap.String("ref", ref), zap.Error(err))
		s.music = nil
	}
}

func (s *Session) openVideo(ctx context.Context, ref string) {
	path, cleanup, err := s.deps.loader.Localize(ctx, ref)
	if err != nil {
		s.log.Warn("background video unavailable", zap.Error(err))
		return
	}
	d, err := video.OpenDecoder(ctx, path, config.CanvasWidth, config.CanvasHeight, s.cfg.FPS)
	if err != nil {
		cleanup()
		s.log.Warn("background video unavailable", zap.Error(err))
		return
	}
	s.decoder = d
	s.cleanups = append(s.cleanups, cleanup)
}

// begin запускает звук: часы графа стоят на нуле, так что это и есть точка отсчета.
func (s *Session) begin() {
	if s.music != nil {
		s.music.Start()
	} else {
		s.drone.Start()
	}
	g := s.graph
	s.graph.PlayVoice(s.voice, func() {
		s.voiceEnd.Store(g.Now() + 1)
	})
	s.narrator.Begin(s.spoken)
	if s.narrator.Precise() {
		if err := s.tracker.Align(s.spoken); err != nil {
			s.log.Warn("spoken text diverges from captions, keeping heuristic timing", zap.Error(err))
		}
	}
}

// teardown освобождает все, что создала сессия. Граф к этому моменту никем не тянется.
func (s *Session) teardown() {
	if s.narrator != nil {
		s.narrator.Halt()
	}
	if s.drone != nil {
		s.drone.Halt()
	}
	if s.music != nil {
		s.music.Stop()
	}
	s.graph.Halt()
	s.graph.Suspend()

	if s.preview != nil {
		if err := s.preview.Close(); err != nil {
			s.log.Debug("preview closed", zap.Error(err))
		}
		s.preview = nil
	}
	if s.decoder != nil {
		s.decoder.Close()
		s.decoder = nil
	}
	for _, fn := range s.cleanups {
		fn()
	}
	s.cleanups = nil
	if s.comp != nil {
		s.comp.Close()
		s.comp = nil
	}
}

func (s *Session) snapshot() Snapshot {
	return *s.last.Load()
}

// publish сохраняет снимок для читателей вне цикла кадров.
func (s *Session) publish(elapsed float64, slide int) {
	meta := s.tracker.Metadata()
	s.last.Store(&Snapshot{
		SessionID:   s.ID,
		State:       s.state,
		Elapsed:     elapsed,
		ActiveWord:  s.tracker.Active(),
		TotalWords:  meta.TotalWords,
		Heuristic:   meta.IsHeuristic,
		Diverged:    s.tracker.Diverged(),
		Muted:       s.graph.Muted(),
		Frames:      s.frames,
		SlideIndex:  slide,
		Oscillators: s.graph.ActiveOscillators(),
	})
}

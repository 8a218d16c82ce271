package engine

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ivlev/quotereel/internal/audio"
	"github.com/ivlev/quotereel/internal/config"
	"github.com/ivlev/quotereel/internal/metrics"
	"github.com/ivlev/quotereel/internal/video"
)

const (
	endVoice  = "voice finished"
	endSpeech = "speech ended"
	endSafety = "safety timeout"
	endBuffer = "buffer end"
)

// runLive - живой режим: звук тянет устройство, кадры идут по таймеру,
// время кадра берется из часов аудиографа.
func (s *Session) runLive() (bool, error) {
	sink := s.deps.sink
	if err := sink.Attach(s.graph); err != nil {
		s.log.Warn("audio output unavailable, running on wall clock", zap.Error(err))
		sink = &audio.ClockSink{}
		sink.Attach(s.graph)
	}
	defer sink.Detach()

	if s.cfg.Preview {
		p, err := video.OpenPreview(s.ctx, config.CanvasWidth, config.CanvasHeight, s.cfg.FPS, "quotereel")
		if err != nil {
			s.log.Warn("preview unavailable", zap.Error(err))
		} else {
			s.preview = p
		}
	}

	ticker := time.NewTicker(time.Second / time.Duration(s.cfg.FPS))
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return false, nil
		case <-ticker.C:
			done := s.tick(s.graph.Elapsed())
			if s.preview != nil {
				if err := s.preview.WriteFrame(s.comp.Frame()); err != nil {
					s.log.Warn("preview closed", zap.Error(err))
					s.preview.Close()
					s.preview = nil
				}
			}
			if done {
				return true, nil
			}
		}
	}
}

// runCapture - режим захвата: граф тянется по rate/fps сэмплов на кадр прямо
// из цикла, так что результат не зависит от скорости машины.
func (s *Session) runCapture() (bool, error) {
	perFrame := s.cfg.SampleRate / s.cfg.FPS
	buf := make([][2]float64, perFrame)

	for {
		if s.ctx.Err() != nil {
			return false, nil
		}

		done := s.tick(s.graph.Elapsed())
		if err := s.recorder.AddFrame(s.comp.Frame()); err != nil {
			return false, s.captureError(err)
		}
		s.graph.Stream(buf)
		if err := s.recorder.AddAudio(buf); err != nil {
			return false, s.captureError(err)
		}
		if done {
			return true, nil
		}
	}
}

func (s *Session) captureError(err error) error {
	if errors.Is(err, video.ErrTooLarge) {
		s.log.Warn("capture size limit reached, finishing early", zap.Int("frames", s.frames))
	}
	return fmt.Errorf("capture: %w", err)
}

// tick рисует один кадр. Состояние аудиографа читается до отрисовки.
// Возвращает true, когда сессия дошла до конца.
func (s *Session) tick(elapsed float64) bool {
	start := time.Now()

	for _, c := range s.narrator.Poll(elapsed) {
		s.tracker.Boundary(c)
	}
	s.checkEnd(elapsed)

	st := s.render
	st.ActiveIndex = s.tracker.Observe(elapsed)
	st.Bins = s.graph.Bins()
	if s.decoder != nil {
		img, err := s.decoder.Frame(elapsed)
		if img != nil {
			st.Video = img
		}
		if err != nil {
			s.log.Warn("background video stopped", zap.Error(err))
			s.decoder.Close()
			s.decoder = nil
		}
	}

	info := s.comp.Compose(elapsed, st)
	if info.SlideIndex != s.slide {
		if info.SlideIndex > 0 {
			s.graph.Impact()
		}
		s.slide = info.SlideIndex
	}

	took := time.Since(start)
	s.frames++
	s.renderTime += took
	metrics.RecordFrame(s.mode, took.Seconds())
	s.publish(elapsed, info.SlideIndex)

	return s.ended(elapsed)
}

// checkEnd назначает момент завершения по первому сработавшему условию.
func (s *Session) checkEnd(elapsed float64) {
	if s.endAt >= 0 {
		return
	}
	switch {
	case s.hasCallback && s.voiceEnd.Load() > 0:
		at := float64(s.voiceEnd.Load()-1) / float64(s.graph.SampleRate())
		s.finish(elapsed, at+voiceGrace, endVoice)
	case !s.hasCallback && elapsed > pollAfter && !s.narrator.Speaking(elapsed):
		s.finish(elapsed, elapsed+pollGrace, endSpeech)
	case elapsed >= s.safetyAt:
		s.finish(elapsed, elapsed, endSafety)
	}
}

// finish фиксирует последнее слово и гасит фон; сам конец наступит в at.
// В записи за оставшееся окно гасится и мастер, чтобы файл не обрывался на фоне.
func (s *Session) finish(elapsed, at float64, reason string) {
	s.endAt = at
	s.endReason = reason
	s.tracker.Finish()
	if s.drone != nil {
		s.drone.Stop()
	}
	if s.mode == metrics.ModeCapture && at > elapsed {
		s.graph.FadeOut(at - elapsed)
	}
	if reason == endSafety {
		s.log.Warn("no completion signal, forcing end", zap.Float64("at", at))
	} else {
		s.log.Debug("end scheduled", zap.String("reason", reason), zap.Float64("at", at))
	}
}

func (s *Session) ended(elapsed float64) bool {
	if s.endAt >= 0 && elapsed >= s.endAt {
		return true
	}
	if elapsed > s.bufferEnd+bufferGrace {
		if s.endReason == "" {
			s.endReason = endBuffer
		}
		return true
	}
	return false
}

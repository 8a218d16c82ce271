package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ivlev/quotereel/internal/metrics"
	"github.com/ivlev/quotereel/internal/video"
)

// Capture - итог записи. Path указывает на лучший доступный файл:
// MP4 после удачного транскода, иначе исходный AVI.
type Capture struct {
	SessionID  string
	Path       string
	AVIPath    string
	Frames     int
	Duration   float64
	Transcoded bool
	// Partial - запись остановлена до естественного конца.
	Partial bool
	Err     error
}

// capturePaths возвращает путь AVI и итогового файла.
func capturePaths(output, sessionID string) (avi, final string) {
	if output == "" {
		output = filepath.Join("output", "quotereel_"+sessionID[:8]+".mp4")
	}
	base := strings.TrimSuffix(output, filepath.Ext(output))
	return base + ".avi", output
}

// finalize собирает AVI и, если сессия дошла до конца, пробует перекодировать его.
// Уже записанное не теряется: при любой ошибке остается AVI.
func (s *Session) finalize(ended bool) {
	r := s.recorder
	r.Stop()
	defer r.Close()

	aviPath, finalPath := capturePaths(s.cfg.OutputVideo, s.ID)
	res := Capture{
		SessionID: s.ID,
		AVIPath:   aviPath,
		Frames:    r.Frames(),
		Duration:  r.Duration(),
		Partial:   !ended,
	}

	if res.Frames == 0 {
		res.Err = fmt.Errorf("capture: no frames recorded")
		s.deps.onComplete(res)
		return
	}
	if err := r.Save(aviPath); err != nil {
		res.Err = fmt.Errorf("save capture: %w", err)
		s.log.Error("capture not saved", zap.Error(err))
		s.deps.onComplete(res)
		return
	}
	res.Path = aviPath
	if fi, err := os.Stat(aviPath); err == nil {
		metrics.RecordCaptureBytes(fi.Size())
	}
	fmt.Printf("[*] Захват сохранен: %s (%d кадров, %.2fs)\n", aviPath, res.Frames, res.Duration)

	if ended && s.cfg.Transcode && finalPath != aviPath {
		t := &video.Transcoder{
			Encoder: s.cfg.VideoEncoder,
			Quality: s.cfg.Quality,
			Width:   s.cfg.Width,
			Height:  s.cfg.Height,
			Log:     s.log,
		}
		fmt.Println("[*] Перекодирование в MP4...")
		if err := t.Transcode(context.WithoutCancel(s.ctx), aviPath, finalPath); err != nil {
			s.log.Warn("transcode failed, keeping AVI", zap.Error(err))
			fmt.Printf("[!] Перекодирование не удалось, остается AVI: %s\n", aviPath)
		} else {
			res.Path = finalPath
			res.Transcoded = true
		}
	}
	s.deps.onComplete(res)
}

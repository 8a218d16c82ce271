package engine

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ivlev/quotereel/internal/system"
)

// BenchmarkLog - файл, куда дописывается строка отчета каждой сессии.
var BenchmarkLog = "benchmark.log"

type sessionStats struct {
	build     string
	sessionID string
	mode      string
	total     time.Duration
	frames    int
	render    time.Duration
	reason    string
	host      system.HostStats
}

func (st sessionStats) avgFrame() time.Duration {
	if st.frames == 0 {
		return 0
	}
	return st.render / time.Duration(st.frames)
}

func (st sessionStats) fps() float64 {
	if st.total <= 0 {
		return 0
	}
	return float64(st.frames) / st.total.Seconds()
}

func (st sessionStats) writeReport(w io.Writer) {
	fmt.Fprintf(w,
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Session: %s (%s)\n"+
			"Total Time: %.2fs\n"+
			"Frames: %d\n"+
			"Avg Frame: %.2fms\n"+
			"Effective FPS: %.2f\n"+
			"End: %s\n"+
			"Host: %s\n"+
			"----------------------------\n",
		st.build, st.sessionID, st.mode, st.total.Seconds(), st.frames,
		float64(st.avgFrame().Microseconds())/1000, st.fps(), st.reason, st.host,
	)
}

func (st sessionStats) logEntry(now time.Time) string {
	return fmt.Sprintf("[%s] Build: %s | Session: %s | Mode: %s | Frames: %d | Total: %.2fs | Avg Frame: %.2fms | FPS: %.2f | %s\n",
		now.Format("2006-01-02 15:04:05"),
		st.build,
		st.sessionID,
		st.mode,
		st.frames,
		st.total.Seconds(),
		float64(st.avgFrame().Microseconds())/1000,
		st.fps(),
		st.host,
	)
}

// report печатает отчет и дописывает строку в benchmark.log, если включена статистика.
func (s *Session) report() {
	if !s.cfg.ShowStats {
		return
	}
	reason := s.endReason
	if reason == "" {
		reason = "stopped"
	}
	st := sessionStats{
		build:     s.cfg.BuildVersion,
		sessionID: s.ID[:8],
		mode:      s.mode,
		total:     time.Since(s.started),
		frames:    s.frames,
		render:    s.renderTime,
		reason:    reason,
		host:      system.CollectHostStats(),
	}
	st.writeReport(os.Stdout)

	f, err := os.OpenFile(BenchmarkLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		f.WriteString(st.logEntry(time.Now()))
		f.Close()
	} else {
		fmt.Printf("[!] Не удалось записать benchmark.log: %v\n", err)
	}
}

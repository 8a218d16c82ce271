package engine

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ivlev/quotereel/internal/audio"
	"github.com/ivlev/quotereel/internal/config"
	"github.com/ivlev/quotereel/internal/content"
	"github.com/ivlev/quotereel/internal/metrics"
	"github.com/ivlev/quotereel/internal/narration"
	"github.com/ivlev/quotereel/internal/timeline"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.FPS = 5
	cfg.Seed = 7
	cfg.ImpulseSeconds = 0.5
	cfg.Transcode = false
	cfg.ShowStats = false
	cfg.OutputVideo = filepath.Join(t.TempDir(), "out.mp4")
	return cfg
}

func testJob() *content.Job {
	return &content.Job{
		Quote: content.QuotePayload{
			Text:     "La calma vence",
			Author:   "Seneca",
			Category: content.CategoryStoic,
		},
		Effects: content.DefaultEffects(),
	}
}

func waitState(t *testing.T, p *Player, want State) []Event {
	t.Helper()
	var seen []Event
	timeout := time.After(20 * time.Second)
	for {
		select {
		case ev := <-p.Events():
			seen = append(seen, ev)
			if ev.State == want {
				return seen
			}
		case <-timeout:
			t.Fatalf("state %s not reached, events: %v", want, seen)
		}
	}
}

func record(t *testing.T, p *Player, job *content.Job) Capture {
	t.Helper()
	done := make(chan Capture, 1)
	_, err := p.Record(context.Background(), job, func(c Capture) { done <- c })
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	require.NoError(t, p.Wait(ctx))

	select {
	case c := <-done:
		return c
	default:
		t.Fatal("capture callback not called before Wait returned")
		return Capture{}
	}
}

func TestTransitions(t *testing.T) {
	assert.True(t, CanTransition(Idle, Loading))
	assert.True(t, CanTransition(Loading, Playing))
	assert.True(t, CanTransition(Loading, Stopped))
	assert.True(t, CanTransition(Playing, Ended))
	assert.True(t, CanTransition(Playing, Stopped))

	assert.False(t, CanTransition(Idle, Playing))
	assert.False(t, CanTransition(Ended, Playing))
	assert.False(t, CanTransition(Stopped, Loading))
	assert.False(t, CanTransition(Ended, Stopped))

	assert.True(t, Ended.Final())
	assert.False(t, Playing.Final())
	assert.Equal(t, "playing", Playing.String())
}

func TestCapturePaths(t *testing.T) {
	avi, final := capturePaths("output/reel.mp4", "0123456789")
	assert.Equal(t, "output/reel.avi", avi)
	assert.Equal(t, "output/reel.mp4", final)

	avi, final = capturePaths("", "abcdef0123")
	assert.Equal(t, filepath.Join("output", "quotereel_abcdef01.avi"), avi)
	assert.Equal(t, filepath.Join("output", "quotereel_abcdef01.mp4"), final)
}

func newTestSession(t *testing.T, n narration.Narrator, duration float64) *Session {
	t.Helper()
	tl, err := timeline.Build([]string{"uno", "dos", "tres"}, 0, duration)
	require.NoError(t, err)
	n.Begin("uno dos tres")
	return &Session{
		log:       zap.NewNop(),
		graph:     audio.NewGraph(audio.DefaultSampleRate),
		tracker:   timeline.NewTracker(tl),
		narrator:  n,
		duration:  duration,
		bufferEnd: duration + 60,
		safetyAt:  duration + 60,
		endAt:     -1,
	}
}

func TestEndBySpeechPolling(t *testing.T) {
	s := newTestSession(t, narration.NewSilent(5), 5)

	s.checkEnd(1.5)
	assert.Less(t, s.endAt, 0.0, "polling starts after 2s")

	s.checkEnd(3)
	assert.Less(t, s.endAt, 0.0, "still speaking")

	s.checkEnd(5.2)
	assert.InDelta(t, 6.0, s.endAt, 1e-9)
	assert.Equal(t, endSpeech, s.endReason)
	assert.Equal(t, 2, s.tracker.Active(), "last word fixed on finish")

	assert.False(t, s.ended(5.9))
	assert.True(t, s.ended(6.0))
}

func TestEndByVoiceCompletion(t *testing.T) {
	s := newTestSession(t, narration.NewSilent(4), 4)
	s.hasCallback = true
	s.bufferEnd = 4

	s.checkEnd(3)
	assert.Less(t, s.endAt, 0.0)

	s.voiceEnd.Store(int64(audio.DefaultSampleRate)*4 + 1)
	s.checkEnd(4.01)
	assert.InDelta(t, 4.5, s.endAt, 1e-9)
	assert.Equal(t, endVoice, s.endReason)
	assert.True(t, s.ended(4.5))
}

func TestCaptureFadesMasterBeforeEnd(t *testing.T) {
	s := newTestSession(t, narration.NewSilent(4), 4)
	s.mode = metrics.ModeCapture
	s.hasCallback = true
	s.bufferEnd = 4

	s.voiceEnd.Store(int64(audio.DefaultSampleRate)*4 + 1)
	s.checkEnd(4.0)
	require.InDelta(t, 4.5, s.endAt, 1e-9)

	buf := make([][2]float64, audio.DefaultSampleRate/10)
	for i := 0; i < 6; i++ {
		s.graph.Stream(buf)
	}
	assert.Zero(t, s.graph.MasterGain(), "master silent by the scheduled end")
}

func TestEndBySafetyTimeout(t *testing.T) {
	s := newTestSession(t, narration.NewSilent(4), 4)
	s.hasCallback = true
	s.bufferEnd = 1000

	s.checkEnd(63.9)
	assert.Less(t, s.endAt, 0.0)
	s.checkEnd(64)
	assert.Equal(t, endSafety, s.endReason)
	assert.True(t, s.ended(64))
}

func TestEndByBuffer(t *testing.T) {
	s := newTestSession(t, narration.NewSilent(4), 4)
	s.hasCallback = true
	s.bufferEnd = 4

	assert.False(t, s.ended(5))
	assert.True(t, s.ended(5.01))
	assert.Equal(t, endBuffer, s.endReason)
}

func TestRecordSilentJobReachesEnded(t *testing.T) {
	cfg := testConfig(t)
	p := NewPlayer(Options{Config: cfg})

	c := record(t, p, testJob())
	assert.Equal(t, Ended, p.State())
	require.NoError(t, c.Err)
	assert.False(t, c.Partial)
	assert.False(t, c.Transcoded)
	assert.Equal(t, c.AVIPath, c.Path)

	fi, err := os.Stat(c.Path)
	require.NoError(t, err)
	assert.Greater(t, fi.Size(), int64(0))

	// Без голоса конец определяется опросом: оценка (минимум 5 с) + 0.8 с.
	assert.InDelta(t, timeline.MinEstimate+pollGrace, c.Duration, 0.5)
	assert.Less(t, c.Duration, audio.FallbackSeconds+cfg.SafetyMargin)

	snap := p.Snapshot()
	assert.Equal(t, Ended, snap.State)
	assert.Equal(t, 3, snap.TotalWords)
	assert.Equal(t, 2, snap.ActiveWord)
	assert.True(t, snap.Heuristic)
}

func TestRecordUndecodableNarrationUsesFallbackBuffer(t *testing.T) {
	cfg := testConfig(t)
	p := NewPlayer(Options{Config: cfg})

	job := testJob()
	job.Narration.Data = []byte("definitely not audio")
	c := record(t, p, job)

	require.NoError(t, c.Err)
	assert.Equal(t, Ended, p.State())
	// Тишина 10 с играет до конца, затем полсекунды запаса.
	assert.InDelta(t, audio.FallbackSeconds+voiceGrace, c.Duration, 0.5)
}

func preciseJob() *content.Job {
	job := testJob()
	// "La calma vence. Seneca": начала слов на 0, 3 и 9
	job.Narration = content.NarrationAudio{
		Precise: true,
		Marks: []content.BoundaryMark{
			{Char: 0, Time: 0.2},
			{Char: 3, Time: 0.8},
			{Char: 9, Time: 1.4},
			{Char: 16, Time: 2.0},
		},
	}
	return job
}

func TestRecordPreciseJobLeavesHeuristic(t *testing.T) {
	p := NewPlayer(Options{Config: testConfig(t)})

	c := record(t, p, preciseJob())
	require.NoError(t, c.Err)
	assert.Equal(t, Ended, p.State())

	snap := p.Snapshot()
	assert.False(t, snap.Heuristic)
	assert.False(t, snap.Diverged)
	assert.Equal(t, 2, snap.ActiveWord)
	assert.Equal(t, 3, snap.TotalWords)
}

func TestRecordDivergedSpokenTextStaysHeuristic(t *testing.T) {
	p := NewPlayer(Options{Config: testConfig(t)})

	job := preciseJob()
	job.Narration.Spoken = "Peace wins over all. Seneca"
	c := record(t, p, job)
	require.NoError(t, c.Err)
	assert.Equal(t, Ended, p.State())

	snap := p.Snapshot()
	assert.True(t, snap.Diverged)
	assert.True(t, snap.Heuristic)
	assert.Equal(t, 2, snap.ActiveWord)
}

func TestStopIsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	p := NewPlayer(Options{Config: cfg, Sink: &audio.ClockSink{}})

	id, err := p.Start(context.Background(), testJob())
	require.NoError(t, err)
	events := waitState(t, p, Playing)
	assert.Equal(t, Loading, events[0].State)
	assert.Equal(t, id, events[0].SessionID)

	p.Stop()
	assert.NotPanics(t, p.Stop)

	assert.Equal(t, Stopped, p.State())
	assert.Zero(t, p.current.graph.ActiveOscillators())
	assert.True(t, p.current.graph.Suspended())
	require.NoError(t, p.Wait(context.Background()))
}

func TestToggleMute(t *testing.T) {
	cfg := testConfig(t)
	p := NewPlayer(Options{Config: cfg, Sink: &audio.ClockSink{}})
	defer p.Stop()

	_, err := p.Start(context.Background(), testJob())
	require.NoError(t, err)
	waitState(t, p, Playing)

	assert.True(t, p.ToggleMute())
	assert.True(t, p.current.graph.Muted())
	assert.Eventually(t, func() bool { return p.Snapshot().Muted }, 5*time.Second, 50*time.Millisecond)

	assert.False(t, p.ToggleMute())
	assert.False(t, p.current.graph.Muted())
	assert.Equal(t, Playing, p.State(), "mute does not restart playback")
}

func TestSelectStopsPreviousSession(t *testing.T) {
	cfg := testConfig(t)
	p := NewPlayer(Options{Config: cfg, Sink: &audio.ClockSink{}})
	defer p.Stop()

	first, err := p.Start(context.Background(), testJob())
	require.NoError(t, err)
	waitState(t, p, Playing)
	prev := p.current

	history := content.NewHistory(5)
	next := testJob()
	next.Quote.Text = "Otra cita distinta"
	id := history.Add(next)

	second, err := p.Select(context.Background(), history, id)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	select {
	case <-prev.done:
	default:
		t.Fatal("previous session still running")
	}
	assert.Zero(t, prev.graph.ActiveOscillators())

	events := waitState(t, p, Playing)
	var stoppedFirst bool
	for _, ev := range events {
		if ev.SessionID == first && ev.State == Stopped {
			stoppedFirst = true
		}
	}
	assert.True(t, stoppedFirst)
	assert.Equal(t, second, events[len(events)-1].SessionID)

	_, err = p.Select(context.Background(), history, "missing")
	assert.Error(t, err)
}

func TestStartRejectsNilJob(t *testing.T) {
	p := NewPlayer(Options{Config: testConfig(t)})
	_, err := p.Start(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilJob)
	assert.Equal(t, Idle, p.State())
}

func TestReportFormat(t *testing.T) {
	st := sessionStats{
		build:     "test",
		sessionID: "abcd1234",
		mode:      "capture",
		total:     2 * time.Second,
		frames:    60,
		render:    600 * time.Millisecond,
		reason:    endVoice,
	}
	var buf bytes.Buffer
	st.writeReport(&buf)
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "--- [PERFORMANCE REPORT] ---\n"))
	assert.Contains(t, out, "Frames: 60\n")
	assert.Contains(t, out, "Avg Frame: 10.00ms\n")
	assert.Contains(t, out, "Effective FPS: 30.00\n")

	line := st.logEntry(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	assert.True(t, strings.HasPrefix(line, "[2024-05-01 10:00:00] Build: test | Session: abcd1234 | Mode: capture | Frames: 60"))
	assert.True(t, strings.HasSuffix(line, "\n"))
}

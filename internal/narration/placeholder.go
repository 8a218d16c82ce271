package narration

import (
	"errors"
	"io"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"

	"github.com/ivlev/quotereel/internal/content"
	"github.com/ivlev/quotereel/internal/timeline"
)

// PlaceholderRate - частота тихой заглушки (24 кГц моно, 16 бит).
const PlaceholderRate beep.SampleRate = 24000

// EstimateFor оценивает длительность речи для текста с учетом скорости озвучки.
func EstimateFor(spoken string, n content.NarrationAudio) float64 {
	return timeline.EstimateDuration(spoken, n.EffectiveRate())
}

// PlaceholderWAV кодирует тишину заданной длины: ее декодирует аудиограф,
// когда настоящего голоса нет, а тайминг оценивается эвристикой.
func PlaceholderWAV(seconds float64) ([]byte, error) {
	format := beep.Format{SampleRate: PlaceholderRate, NumChannels: 1, Precision: 2}
	n := PlaceholderRate.N(time.Duration(seconds * float64(time.Second)))

	f := &memFile{}
	if err := wav.Encode(f, beep.Silence(n), format); err != nil {
		return nil, err
	}
	return f.buf, nil
}

// memFile - io.WriteSeeker в памяти: wav.Encode дописывает размеры в заголовок.
type memFile struct {
	buf []byte
	pos int
}

func (m *memFile) Write(p []byte) (int, error) {
	if end := m.pos + len(p); end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	copy(m.buf[m.pos:], p)
	m.pos += len(p)
	return len(p), nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(m.pos) + offset
	case io.SeekEnd:
		abs = int64(len(m.buf)) + offset
	default:
		return 0, errors.New("memfile: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("memfile: negative position")
	}
	m.pos = int(abs)
	return abs, nil
}

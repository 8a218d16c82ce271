package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// FallbackSeconds - длина тихого буфера, если озвучку не удалось декодировать.
const FallbackSeconds = 10.0

var ErrUnsupportedAudio = errors.New("audio: unsupported or empty audio data")

// Decode распознает WAV/MP3/OGG/FLAC, приводит к частоте графа и буферизует целиком.
func Decode(data []byte, rate beep.SampleRate) (*beep.Buffer, error) {
	s, format, err := decodeStream(data)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	var src beep.Streamer = s
	if format.SampleRate != rate {
		src = beep.Resample(4, format.SampleRate, rate, s)
	}

	buf := beep.NewBuffer(beep.Format{SampleRate: rate, NumChannels: 2, Precision: 2})
	buf.Append(src)
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("audio decode: %w", err)
	}
	if buf.Len() == 0 {
		return nil, ErrUnsupportedAudio
	}
	return buf, nil
}

// DecodeOrSilence возвращает тишину нужной длины вместо ошибки декодирования.
func DecodeOrSilence(data []byte, rate beep.SampleRate) (*beep.Buffer, error) {
	buf, err := Decode(data, rate)
	if err == nil {
		return buf, nil
	}
	return Silence(rate, FallbackSeconds), err
}

func Silence(rate beep.SampleRate, seconds float64) *beep.Buffer {
	buf := beep.NewBuffer(beep.Format{SampleRate: rate, NumChannels: 2, Precision: 2})
	buf.Append(beep.Silence(rate.N(time.Duration(seconds * float64(time.Second)))))
	return buf
}

// BufferSeconds - длительность буфера в секундах.
func BufferSeconds(buf *beep.Buffer) float64 {
	return float64(buf.Len()) / float64(buf.Format().SampleRate)
}

func decodeStream(data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	r := bytes.NewReader(data)
	switch {
	case len(data) < 4:
		return nil, beep.Format{}, ErrUnsupportedAudio
	case bytes.HasPrefix(data, []byte("RIFF")):
		return wav.Decode(r)
	case bytes.HasPrefix(data, []byte("OggS")):
		return vorbis.Decode(io.NopCloser(r))
	case bytes.HasPrefix(data, []byte("fLaC")):
		return flac.Decode(r)
	case bytes.HasPrefix(data, []byte("ID3")), data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return mp3.Decode(io.NopCloser(r))
	}
	return nil, beep.Format{}, ErrUnsupportedAudio
}

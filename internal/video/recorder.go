package video

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrNotRecording = errors.New("video: recorder is closed")
	ErrTooLarge     = errors.New("video: capture exceeds AVI size limit")
)

// maxMovi - запас до 4 ГБ предела RIFF.
const maxMovi = math.MaxUint32 - 64<<20

type RecorderOptions struct {
	Width, Height int
	FPS           int
	SampleRate    int
	Quality       int // JPEG 1-100
	Logger        *zap.Logger
}

// Recorder пишет захват сессии: кадры MJPEG и PCM чанками в спул-файл,
// а при Finalize собирает AVI с индексом. Спул живет до Close, так что
// уже записанные данные не теряются при ошибке сборки.
type Recorder struct {
	opts RecorderOptions
	log  *zap.Logger

	mu     sync.Mutex
	spool  *os.File
	sw     *bufio.Writer
	index  []indexEntry
	header aviHeader
	closed bool

	jpegBuf bytes.Buffer
	pcmBuf  []byte
}

func NewRecorder(opts RecorderOptions) (*Recorder, error) {
	if opts.Width <= 0 || opts.Height <= 0 || opts.FPS <= 0 || opts.SampleRate <= 0 {
		return nil, fmt.Errorf("recorder: invalid options %+v", opts)
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = 85
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	spool, err := os.CreateTemp("", "quotereel_capture_*.movi")
	if err != nil {
		return nil, fmt.Errorf("recorder spool: %w", err)
	}

	return &Recorder{
		opts:  opts,
		log:   logger,
		spool: spool,
		sw:    bufio.NewWriterSize(spool, 1<<20),
		header: aviHeader{
			width:      uint32(opts.Width),
			height:     uint32(opts.Height),
			fps:        uint32(opts.FPS),
			sampleRate: uint32(opts.SampleRate),
		},
	}, nil
}

// AddFrame кодирует кадр в JPEG и дописывает чанк 00dc.
func (r *Recorder) AddFrame(img image.Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrNotRecording
	}
	if b := img.Bounds(); b.Dx() != r.opts.Width || b.Dy() != r.opts.Height {
		return fmt.Errorf("recorder: frame %dx%d, want %dx%d", b.Dx(), b.Dy(), r.opts.Width, r.opts.Height)
	}

	r.jpegBuf.Reset()
	if err := jpeg.Encode(&r.jpegBuf, img, &jpeg.Options{Quality: r.opts.Quality}); err != nil {
		return fmt.Errorf("encode JPEG frame: %w", err)
	}
	if err := r.writeChunk(videoChunk, r.jpegBuf.Bytes()); err != nil {
		return err
	}
	r.header.frames++
	r.header.maxVideoChunk = max(r.header.maxVideoChunk, uint32(r.jpegBuf.Len()))
	return nil
}

// AddAudio дописывает стерео сэмплы как s16le (чанк 01wb).
func (r *Recorder) AddAudio(samples [][2]float64) error {
	if len(samples) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrNotRecording
	}

	need := len(samples) * 4
	if cap(r.pcmBuf) < need {
		r.pcmBuf = make([]byte, need)
	}
	buf := r.pcmBuf[:need]
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*4:], uint16(toPCM(s[0])))
		binary.LittleEndian.PutUint16(buf[i*4+2:], uint16(toPCM(s[1])))
	}
	if err := r.writeChunk(audioChunk, buf); err != nil {
		return err
	}
	r.header.audioSamples += uint32(len(samples))
	r.header.maxAudioChunk = max(r.header.maxAudioChunk, uint32(need))
	return nil
}

func toPCM(v float64) int16 {
	v = math.Max(-1, math.Min(1, v))
	return int16(math.Round(v * 32767))
}

func (r *Recorder) writeChunk(id string, data []byte) error {
	size := uint32(len(data))
	padded := size + size%2
	if uint64(r.header.moviPayloadSize)+8+uint64(padded) > maxMovi {
		return ErrTooLarge
	}

	bw := &binaryWriter{w: r.sw}
	bw.fourCC(id)
	bw.u32(size)
	bw.bytes(data)
	if size%2 != 0 {
		bw.bytes([]byte{0})
	}
	if bw.err != nil {
		return fmt.Errorf("recorder spool: %w", bw.err)
	}

	r.index = append(r.index, indexEntry{id: id, offset: 4 + r.header.moviPayloadSize, size: size})
	r.header.moviPayloadSize += 8 + padded
	r.header.indexEntries++
	return nil
}

func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int(r.header.frames)
}

// Duration - длительность записанного видео в секундах.
func (r *Recorder) Duration() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return float64(r.header.frames) / float64(r.opts.FPS)
}

// Finalize собирает AVI в w. Можно вызывать повторно; запись после Close невозможна.
func (r *Recorder) Finalize(w io.Writer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.spool == nil {
		return ErrNotRecording
	}
	if err := r.sw.Flush(); err != nil {
		return fmt.Errorf("recorder spool: %w", err)
	}
	if _, err := r.spool.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("recorder spool: %w", err)
	}
	defer r.spool.Seek(0, io.SeekEnd)

	out := bufio.NewWriterSize(w, 1<<20)
	bw := &binaryWriter{w: out}
	writeHeaders(bw, r.header)
	if bw.err == nil {
		_, bw.err = io.CopyN(out, r.spool, int64(r.header.moviPayloadSize))
	}
	writeIndex(bw, r.index)
	if bw.err != nil {
		return fmt.Errorf("write AVI: %w", bw.err)
	}
	return out.Flush()
}

// Save записывает AVI в файл (через временный файл и переименование).
func (r *Recorder) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp := path + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	if err := r.Finalize(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}
	r.log.Info("capture saved", zap.String("path", path), zap.Int("frames", r.Frames()))
	return nil
}

// Stop запрещает дальнейшую запись; спул остается для Finalize/Save.
func (r *Recorder) Stop() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

// Close удаляет спул.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if r.spool == nil {
		return nil
	}
	name := r.spool.Name()
	err := r.spool.Close()
	os.Remove(name)
	r.spool = nil
	return err
}

package video

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chunk struct {
	id   string
	data []byte
}

// readChunks разбирает последовательность RIFF-чанков (LIST раскрывается рекурсивно).
func readChunks(t *testing.T, data []byte) []chunk {
	t.Helper()
	var out []chunk
	for off := 0; off+8 <= len(data); {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4:]))
		require.LessOrEqual(t, off+8+size, len(data), "chunk %s overruns", id)
		body := data[off+8 : off+8+size]
		if id == "LIST" {
			out = append(out, chunk{id: "LIST:" + string(body[:4])})
			out = append(out, readChunks(t, body[4:])...)
		} else {
			out = append(out, chunk{id: id, data: body})
		}
		off += 8 + size + size%2
	}
	return out
}

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestRecorderProducesInterleavedAVI(t *testing.T) {
	rec, err := NewRecorder(RecorderOptions{Width: 16, Height: 32, FPS: 30, SampleRate: 24000})
	require.NoError(t, err)
	defer rec.Close()

	samples := make([][2]float64, 800)
	samples[0] = [2]float64{1, -1}
	samples[1] = [2]float64{2, 0.5}
	for i := 0; i < 3; i++ {
		require.NoError(t, rec.AddAudio(samples))
		require.NoError(t, rec.AddFrame(solid(16, 32, color.RGBA{200, 10, 10, 255})))
	}
	assert.Equal(t, 3, rec.Frames())
	assert.InDelta(t, 0.1, rec.Duration(), 1e-9)

	var buf bytes.Buffer
	require.NoError(t, rec.Finalize(&buf))
	data := buf.Bytes()

	require.Equal(t, "RIFF", string(data[:4]))
	assert.Equal(t, uint32(len(data)-8), binary.LittleEndian.Uint32(data[4:]))
	require.Equal(t, "AVI ", string(data[8:12]))

	chunks := readChunks(t, data[12:])
	var ids []string
	var frames, audio, index int
	for _, c := range chunks {
		ids = append(ids, c.id)
		switch c.id {
		case "00dc":
			frames++
			img, err := jpeg.Decode(bytes.NewReader(c.data))
			require.NoError(t, err)
			assert.Equal(t, 16, img.Bounds().Dx())
		case "01wb":
			audio++
			require.Len(t, c.data, 800*4)
			assert.Equal(t, int16(32767), int16(binary.LittleEndian.Uint16(c.data[0:])))
			assert.Equal(t, int16(-32767), int16(binary.LittleEndian.Uint16(c.data[2:])))
			assert.Equal(t, int16(32767), int16(binary.LittleEndian.Uint16(c.data[4:])), "clipped")
		case "idx1":
			index = len(c.data) / 16
		case "avih":
			assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(c.data[16:]), "total frames")
			assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(c.data[24:]), "streams")
		}
	}
	assert.Equal(t, 3, frames)
	assert.Equal(t, 3, audio)
	assert.Equal(t, 6, index)
	assert.Equal(t, []string{"LIST:hdrl", "avih", "LIST:strl", "strh", "strf", "LIST:strl", "strh", "strf", "LIST:movi"}, ids[:9])
	assert.Equal(t, "01wb", ids[9], "audio first, then video")
	assert.Equal(t, "00dc", ids[10])
}

func TestRecorderIndexOffsets(t *testing.T) {
	rec, err := NewRecorder(RecorderOptions{Width: 8, Height: 8, FPS: 30, SampleRate: 24000})
	require.NoError(t, err)
	defer rec.Close()
	require.NoError(t, rec.AddAudio(make([][2]float64, 3)))
	require.NoError(t, rec.AddFrame(solid(8, 8, color.White)))

	var buf bytes.Buffer
	require.NoError(t, rec.Finalize(&buf))
	data := buf.Bytes()

	movi := bytes.Index(data, []byte("movi"))
	idx := bytes.LastIndex(data, []byte("idx1"))
	require.Positive(t, movi)
	require.Positive(t, idx)

	for i := 0; i < 2; i++ {
		entry := data[idx+8+i*16:]
		id := string(entry[:4])
		offset := int(binary.LittleEndian.Uint32(entry[8:]))
		size := binary.LittleEndian.Uint32(entry[12:])
		assert.Equal(t, id, string(data[movi+offset:movi+offset+4]), "entry %d", i)
		assert.Equal(t, size, binary.LittleEndian.Uint32(data[movi+offset+4:]))
	}
}

func TestRecorderRejectsAfterStop(t *testing.T) {
	rec, err := NewRecorder(RecorderOptions{Width: 8, Height: 8, FPS: 30, SampleRate: 24000})
	require.NoError(t, err)
	require.NoError(t, rec.AddFrame(solid(8, 8, color.Black)))
	rec.Stop()
	assert.ErrorIs(t, rec.AddFrame(solid(8, 8, color.Black)), ErrNotRecording)
	assert.Error(t, rec.AddFrame(solid(4, 4, color.Black)))

	path := filepath.Join(t.TempDir(), "out", "capture.avi")
	require.NoError(t, rec.Save(path), "stopped recorder still saves")
	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, fi.Size())

	require.NoError(t, rec.Close())
	assert.ErrorIs(t, rec.Finalize(&bytes.Buffer{}), ErrNotRecording)
	require.NoError(t, rec.Close())
}

func TestRecorderRejectsWrongSize(t *testing.T) {
	rec, err := NewRecorder(RecorderOptions{Width: 8, Height: 8, FPS: 30, SampleRate: 24000})
	require.NoError(t, err)
	defer rec.Close()
	assert.Error(t, rec.AddFrame(solid(4, 4, color.Black)))
}

func TestTranscoderArgs(t *testing.T) {
	tr := &Transcoder{Encoder: "h264_nvenc", Quality: 28, Width: 1080, Height: 1920}
	args := strings.Join(tr.buildFFmpegArgs("in.avi", "out.mp4"), " ")
	assert.Contains(t, args, "-i in.avi")
	assert.Contains(t, args, "scale=1080:1920")
	assert.Contains(t, args, "-c:v h264_nvenc -pix_fmt yuv420p -cq 28")
	assert.Contains(t, args, "-c:a aac -b:a 192k -movflags +faststart out.mp4")

	plain := &Transcoder{Quality: 23}
	args = strings.Join(plain.buildFFmpegArgs("a.avi", "b.mp4"), " ")
	assert.NotContains(t, args, "scale=")
	assert.Contains(t, args, "-c:v libx264 -pix_fmt yuv420p -crf 23 -preset medium")
}

func TestCoverFilter(t *testing.T) {
	// широкое видео: подгоняем по высоте и режем бока
	assert.Equal(t, "scale=-2:960,crop=540:960,fps=30", coverFilter(1920, 1080, 540, 960, 30))
	// узкое видео: подгоняем по ширине
	assert.Equal(t, "scale=540:-2,crop=540:960,fps=30", coverFilter(400, 1000, 540, 960, 30))
}

func TestWriteRawRGBA(t *testing.T) {
	var buf bytes.Buffer
	var scratch *image.RGBA
	gray := image.NewGray(image.Rect(2, 2, 4, 3))
	gray.Pix[0] = 255
	require.NoError(t, writeRawRGBA(&buf, gray, &scratch))
	assert.Equal(t, []byte{255, 255, 255, 255, 0, 0, 0, 255}, buf.Bytes())
}

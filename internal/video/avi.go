package video

import (
	"encoding/binary"
	"io"
)

// binaryWriter копит первую ошибку записи, чтобы сборка RIFF не проверяла каждый вызов.
type binaryWriter struct {
	w   io.Writer
	err error
}

func (bw *binaryWriter) fourCC(s string) {
	if bw.err != nil {
		return
	}
	_, bw.err = bw.w.Write([]byte(s))
}

func (bw *binaryWriter) u32(v uint32) {
	if bw.err != nil {
		return
	}
	bw.err = binary.Write(bw.w, binary.LittleEndian, v)
}

func (bw *binaryWriter) u16(v uint16) {
	if bw.err != nil {
		return
	}
	bw.err = binary.Write(bw.w, binary.LittleEndian, v)
}

func (bw *binaryWriter) bytes(data []byte) {
	if bw.err != nil {
		return
	}
	_, bw.err = bw.w.Write(data)
}

const (
	videoChunk = "00dc"
	audioChunk = "01wb"

	avifHasIndex     = 0x10
	avifIsInterleave = 0x100
	aviifKeyframe    = 0x10

	avihSize      = 56
	strhSize      = 56
	bitmapInfo    = 40
	waveFormatEx  = 18
	videoStrlSize = 4 + (8 + strhSize) + (8 + bitmapInfo)
	audioStrlSize = 4 + (8 + strhSize) + (8 + waveFormatEx)
	hdrlSize      = 4 + (8 + avihSize) + (8 + videoStrlSize) + (8 + audioStrlSize)
)

type indexEntry struct {
	id     string
	offset uint32 // от начала "movi"
	size   uint32
}

// aviHeader - параметры, которые известны только после окончания записи.
type aviHeader struct {
	width, height   uint32
	fps             uint32
	sampleRate      uint32
	frames          uint32
	audioSamples    uint32
	maxVideoChunk   uint32
	maxAudioChunk   uint32
	moviPayloadSize uint32 // байты чанков внутри movi, без "movi"
	indexEntries    uint32
}

func (h aviHeader) fileSize() uint32 {
	return 4 + (8 + hdrlSize) + (8 + 4 + h.moviPayloadSize) + (8 + h.indexEntries*16)
}

// writeHeaders пишет RIFF, hdrl и заголовок LIST movi. Дальше идут чанки из спула.
func writeHeaders(bw *binaryWriter, h aviHeader) {
	const blockAlign = 4 // s16le стерео

	bw.fourCC("RIFF")
	bw.u32(h.fileSize())
	bw.fourCC("AVI ")

	bw.fourCC("LIST")
	bw.u32(hdrlSize)
	bw.fourCC("hdrl")

	bw.fourCC("avih")
	bw.u32(avihSize)
	bw.u32(1_000_000 / h.fps)
	bw.u32(h.maxVideoChunk*h.fps + h.sampleRate*blockAlign) // max bytes/sec
	bw.u32(0)                                               // padding granularity
	bw.u32(avifHasIndex | avifIsInterleave)
	bw.u32(h.frames)
	bw.u32(0) // initial frames
	bw.u32(2) // streams
	bw.u32(max(h.maxVideoChunk, h.maxAudioChunk))
	bw.u32(h.width)
	bw.u32(h.height)
	bw.u32(0) // reserved x4
	bw.u32(0)
	bw.u32(0)
	bw.u32(0)

	// видео: MJPEG
	bw.fourCC("LIST")
	bw.u32(videoStrlSize)
	bw.fourCC("strl")

	bw.fourCC("strh")
	bw.u32(strhSize)
	bw.fourCC("vids")
	bw.fourCC("MJPG")
	bw.u32(0) // flags
	bw.u16(0) // priority
	bw.u16(0) // language
	bw.u32(0) // initial frames
	bw.u32(1) // scale
	bw.u32(h.fps)
	bw.u32(0) // start
	bw.u32(h.frames)
	bw.u32(h.maxVideoChunk)
	bw.u32(0xFFFFFFFF) // quality: по умолчанию
	bw.u32(0)          // sample size
	bw.u16(0)
	bw.u16(0)
	bw.u16(uint16(h.width))
	bw.u16(uint16(h.height))

	bw.fourCC("strf")
	bw.u32(bitmapInfo)
	bw.u32(bitmapInfo)
	bw.u32(h.width)
	bw.u32(h.height)
	bw.u16(1)  // planes
	bw.u16(24) // bpp
	bw.fourCC("MJPG")
	bw.u32(h.width * h.height * 3)
	bw.u32(0)
	bw.u32(0)
	bw.u32(0)
	bw.u32(0)

	// аудио: PCM s16le стерео
	bw.fourCC("LIST")
	bw.u32(audioStrlSize)
	bw.fourCC("strl")

	bw.fourCC("strh")
	bw.u32(strhSize)
	bw.fourCC("auds")
	bw.u32(0) // handler
	bw.u32(0)
	bw.u16(0)
	bw.u16(0)
	bw.u32(0)
	bw.u32(1) // scale
	bw.u32(h.sampleRate)
	bw.u32(0)
	bw.u32(h.audioSamples)
	bw.u32(h.maxAudioChunk)
	bw.u32(0xFFFFFFFF)
	bw.u32(blockAlign)
	bw.u16(0)
	bw.u16(0)
	bw.u16(0)
	bw.u16(0)

	bw.fourCC("strf")
	bw.u32(waveFormatEx)
	bw.u16(1) // WAVE_FORMAT_PCM
	bw.u16(2)
	bw.u32(h.sampleRate)
	bw.u32(h.sampleRate * blockAlign)
	bw.u16(blockAlign)
	bw.u16(16)
	bw.u16(0) // cbSize

	bw.fourCC("LIST")
	bw.u32(4 + h.moviPayloadSize)
	bw.fourCC("movi")
}

func writeIndex(bw *binaryWriter, index []indexEntry) {
	bw.fourCC("idx1")
	bw.u32(uint32(len(index)) * 16)
	for _, e := range index {
		bw.fourCC(e.id)
		if e.id == videoChunk {
			bw.u32(aviifKeyframe)
		} else {
			bw.u32(0)
		}
		bw.u32(e.offset)
		bw.u32(e.size)
	}
}

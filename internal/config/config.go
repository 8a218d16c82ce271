package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

const (
	// Внутренняя поверхность композиции фиксирована: вертикальный кадр 9:16.
	CanvasWidth  = 540
	CanvasHeight = 960
)

type Config struct {
	JobPath     string
	OutputVideo string
	Width       int // размер итогового MP4 после транскода
	Height      int
	FPS         int
	Workers     int
	Preset      string

	SampleRate     int
	SafetyMargin   float64 // запас к оценке длительности до принудительного завершения
	ImpulseSeconds float64
	ImpulseDecay   float64

	JPEGQuality  int
	VideoEncoder string
	Quality      int
	Transcode    bool
	Preview      bool

	PlaceholderURL string
	HTTPTimeout    time.Duration
	Detector       string
	ZoomMode       string
	FontPath       string

	MetricsAddr  string
	LogLevel     string
	Seed         uint64
	ShowStats    bool
	BuildVersion string
}

func Default() *Config {
	return &Config{
		Width:          1080,
		Height:         1920,
		FPS:            30,
		Workers:        runtime.NumCPU(),
		Preset:         "9:16",
		SampleRate:     24000,
		SafetyMargin:   60,
		ImpulseSeconds: 5,
		ImpulseDecay:   3,
		JPEGQuality:    85,
		VideoEncoder:   "libx264",
		Quality:        23,
		Transcode:      true,
		HTTPTimeout:    20 * time.Second,
		Detector:       "contrast",
		ZoomMode:       "focus",
		LogLevel:       "info",
		BuildVersion:   "dev",
	}
}

// ApplyPreset задает размер итогового видео по пресету формата.
func (c *Config) ApplyPreset(preset string) error {
	switch preset {
	case "", "9:16":
		c.Width, c.Height = 1080, 1920
	case "4:5":
		c.Width, c.Height = 1080, 1350
	case "1:1":
		c.Width, c.Height = 1080, 1080
	default:
		return fmt.Errorf("unknown preset: %s", preset)
	}
	if preset != "" {
		c.Preset = preset
	}
	return nil
}

// DefaultQuality - качество по умолчанию для выбранного энкодера.
func DefaultQuality(encoder string) int {
	switch encoder {
	case "h264_videotoolbox":
		return 75 // битрейт Q*100 кбит/с
	case "h264_nvenc":
		return 28
	default:
		return 23 // CRF x264
	}
}

var errInvalid = errors.New("invalid config")

func (c *Config) Validate() error {
	var problems []string
	if c.FPS <= 0 || c.FPS > 120 {
		problems = append(problems, fmt.Sprintf("fps %d out of range 1-120", c.FPS))
	}
	if c.SampleRate < 8000 || (c.FPS > 0 && c.SampleRate%c.FPS != 0) {
		problems = append(problems, fmt.Sprintf("sample rate %d must be >= 8000 and divisible by fps", c.SampleRate))
	}
	if c.Width <= 0 || c.Height <= 0 || c.Width%2 != 0 || c.Height%2 != 0 {
		problems = append(problems, fmt.Sprintf("output size %dx%d must be positive and even", c.Width, c.Height))
	}
	if c.Workers <= 0 {
		problems = append(problems, "workers must be positive")
	}
	if c.SafetyMargin <= 0 {
		problems = append(problems, "safety margin must be positive")
	}
	if c.ImpulseSeconds <= 0 || c.ImpulseDecay <= 0 {
		problems = append(problems, "reverb impulse length and decay must be positive")
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		problems = append(problems, fmt.Sprintf("jpeg quality %d out of range 1-100", c.JPEGQuality))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", errInvalid, strings.Join(problems, "; "))
	}
	return nil
}

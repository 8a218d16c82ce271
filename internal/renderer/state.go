package renderer

import (
	"fmt"
	"image"
	"math/rand/v2"

	"github.com/skip2/go-qrcode"

	"github.com/ivlev/quotereel/internal/config"
	"github.com/ivlev/quotereel/internal/content"
	"github.com/ivlev/quotereel/internal/effects"
)

const (
	particleCount = 40
	qrSize        = 120
)

// State - все, что меняется между кадрами. Пишет его только цикл кадров сессии.
type State struct {
	Quote      content.QuotePayload
	Mood       content.Mood
	Theme      config.Theme
	Effects    content.VisualEffectsConfig
	Watermark  content.Watermark
	TitleWords []string
	BodyWords  []string

	// ActiveIndex - активное слово (заголовок + текст), -1 до первого слова.
	ActiveIndex int
	// TotalWords - число слов в таймлайне; ActiveIndex >= TotalWords значит "все сказано".
	TotalWords int
	// Duration - длительность для прогресса и CTA (totalDuration из метаданных синхронизации).
	Duration float64

	Slides   []*Slide
	Schedule effects.Schedule
	Video    image.Image // текущий кадр фонового видео
	Bins     []uint8

	Particles []Particle
	ShareQR   image.Image
	Fonts     *FontBook

	rng      *rand.Rand
	slot     effects.Slot
	lastTick float64
	captions *captionLayout
}

// StateOptions - вход для NewState.
type StateOptions struct {
	Job      *content.Job
	Theme    config.Theme
	Fonts    *FontBook
	Slides   []*Slide
	Duration float64 // длительность озвучки: ей делится слайдшоу
	Seed     uint64
}

func NewState(opts StateOptions) (*State, error) {
	if opts.Job == nil {
		return nil, fmt.Errorf("renderer: nil job")
	}
	job := opts.Job
	fonts := opts.Fonts
	if fonts == nil {
		var err error
		if fonts, err = NewFontBook(""); err != nil {
			return nil, err
		}
	}
	fx := job.Effects.WithDefaults()

	st := &State{
		Quote:       job.Quote,
		Mood:        job.Quote.Category.Mood(),
		Theme:       opts.Theme,
		Effects:     fx,
		Watermark:   job.Watermark,
		TitleWords:  job.Quote.TitleWords(),
		BodyWords:   job.Quote.BodyWords(),
		ActiveIndex: -1,
		Duration:    opts.Duration,
		Slides:      opts.Slides,
		Fonts:       fonts,
		rng:         rand.New(rand.NewPCG(opts.Seed, 0x51ab)),
		lastTick:    -1,
	}
	st.TotalWords = len(st.TitleWords) + len(st.BodyWords)
	st.Schedule = effects.Schedule{
		Duration:   opts.Duration,
		Count:      len(opts.Slides),
		Transition: fx.TransitionDuration,
	}

	if job.ShareBase != "" {
		link, err := content.ShareLink(job.ShareBase, job)
		if err != nil {
			return nil, err
		}
		qr, err := qrcode.New(link, qrcode.Medium)
		if err != nil {
			return nil, fmt.Errorf("share QR: %w", err)
		}
		qr.DisableBorder = true
		st.ShareQR = qr.Image(qrSize)
	}
	return st, nil
}

func (st *State) slideshow() bool {
	return len(st.Slides) > 0 && st.Schedule.Count > 0
}

// prepare обновляет то, что зависит только от времени кадра.
func (st *State) prepare(elapsed, w, h float64) {
	if st.slideshow() {
		st.slot = st.Schedule.At(elapsed)
	}
	if st.Particles == nil {
		st.Particles = newParticles(st.rng, particleCount, w, h)
		st.lastTick = elapsed
	}
}

// Slot - положение слайдшоу, вычисленное для последнего кадра.
func (st *State) Slot() effects.Slot {
	return st.slot
}

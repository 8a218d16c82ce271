package content

import (
	"strings"
	"time"
)

// Category задает тематику цитаты. Для звука и палитры важно только настроение (Mood).
type Category string

const (
	CategoryStoic        Category = "STOIC"
	CategoryChristian    Category = "CHRISTIAN"
	CategoryMotivational Category = "MOTIVATIONAL"
	CategoryGratitude    Category = "GRATITUDE"
	CategoryWisdom       Category = "WISDOM"
)

type Mood int

const (
	// MoodStoic - темный минорный аккорд, теплые угли.
	MoodStoic Mood = iota
	// MoodDivine - светлый мажорный аккорд, холодные искры.
	MoodDivine
)

func (c Category) Mood() Mood {
	if strings.EqualFold(string(c), string(CategoryChristian)) {
		return MoodDivine
	}
	return MoodStoic
}

func (m Mood) String() string {
	if m == MoodDivine {
		return "divine"
	}
	return "stoic"
}

// QuotePayload неизменяем после начала рендера.
type QuotePayload struct {
	Text     string   `yaml:"text" json:"text"`
	Title    string   `yaml:"title,omitempty" json:"title,omitempty"`
	Author   string   `yaml:"author,omitempty" json:"author,omitempty"`
	Category Category `yaml:"category" json:"category"`
	Theme    string   `yaml:"theme,omitempty" json:"theme,omitempty"`
}

func (q QuotePayload) TitleWords() []string {
	return strings.Fields(q.Title)
}

func (q QuotePayload) BodyWords() []string {
	return strings.Fields(q.Text)
}

// Words возвращает слова заголовка, за которыми следуют слова текста.
func (q QuotePayload) Words() []string {
	return append(q.TitleWords(), q.BodyWords()...)
}

type MediaKind int

const (
	MediaNone MediaKind = iota
	MediaVideo
	MediaSlideshow
)

// MediaBundle: либо одно зацикленное видео, либо список изображений, либо ничего.
type MediaBundle struct {
	Video  string   `yaml:"video,omitempty"`
	Images []string `yaml:"images,omitempty"`
}

func (m MediaBundle) Kind() MediaKind {
	switch {
	case m.Video != "":
		return MediaVideo
	case len(m.Images) > 0:
		return MediaSlideshow
	default:
		return MediaNone
	}
}

// BoundaryMark - событие границы слова от движка речи.
// Char - смещение в рунах в произносимой строке, Time - секунды от начала озвучки.
type BoundaryMark struct {
	Char int     `yaml:"char"`
	Time float64 `yaml:"time"`
}

type NarrationAudio struct {
	Data    []byte         `yaml:"-"`
	Path    string         `yaml:"path,omitempty"`
	Base64  string         `yaml:"base64,omitempty"`
	Precise bool           `yaml:"precise,omitempty"`
	Pitch   float64        `yaml:"pitch,omitempty"`
	Rate    float64        `yaml:"rate,omitempty"`
	Marks   []BoundaryMark `yaml:"marks,omitempty"`
	// Spoken - строка, которую реально произносил движок речи (если отличается от собранной из цитаты).
	Spoken string `yaml:"spoken,omitempty"`
}

func (n NarrationAudio) HasAudio() bool {
	return len(n.Data) > 0
}

// EffectiveRate возвращает скорость речи с учетом значения по умолчанию.
func (n NarrationAudio) EffectiveRate() float64 {
	if n.Rate <= 0 {
		return DefaultSpeechRate
	}
	return n.Rate
}

const (
	DefaultSpeechRate  = 0.9
	DefaultSpeechPitch = 0.8
)

type Transition string

const (
	TransitionFade  Transition = "fade"
	TransitionSlide Transition = "slide"
	TransitionZoom  Transition = "zoom"
)

// VisualEffectsConfig - параметры рендера только для чтения.
type VisualEffectsConfig struct {
	Blur               float64    `yaml:"blur" json:"blur,omitempty"`
	Vignette           float64    `yaml:"vignette" json:"vignette,omitempty"`
	Transition         Transition `yaml:"transition" json:"transition,omitempty"`
	TransitionDuration float64    `yaml:"transition_duration" json:"transitionDuration,omitempty"`
	SpeechRate         float64    `yaml:"speech_rate" json:"speechRate,omitempty"`
}

func DefaultEffects() VisualEffectsConfig {
	return VisualEffectsConfig{
		Blur:               0,
		Vignette:           1,
		Transition:         TransitionFade,
		TransitionDuration: 1,
		SpeechRate:         1,
	}
}

// WithDefaults заполняет незаданные поля значениями по умолчанию.
func (e VisualEffectsConfig) WithDefaults() VisualEffectsConfig {
	d := DefaultEffects()
	if e.Transition == "" {
		e.Transition = d.Transition
	}
	if e.TransitionDuration <= 0 {
		e.TransitionDuration = d.TransitionDuration
	}
	if e.SpeechRate <= 0 {
		e.SpeechRate = d.SpeechRate
	}
	if e.Vignette < 0 {
		e.Vignette = 0
	}
	return e
}

type Watermark struct {
	Text     string  `yaml:"text,omitempty"`
	Position string  `yaml:"position,omitempty"` // top-left, top-right, bottom-left, bottom-right
	Opacity  float64 `yaml:"opacity,omitempty"`
}

type Music struct {
	// Track: "procedural" (дрон) или имя файла; Path имеет приоритет.
	Track string `yaml:"track,omitempty"`
	Path  string `yaml:"path,omitempty"`
}

func (m Music) UsesFile() bool {
	return m.Path != ""
}

// Job - сгенерированный контент целиком: вход для одной сессии воспроизведения.
type Job struct {
	ID        string              `yaml:"id,omitempty"`
	Quote     QuotePayload        `yaml:"quote"`
	Media     MediaBundle         `yaml:"media,omitempty"`
	Narration NarrationAudio      `yaml:"narration,omitempty"`
	Music     Music               `yaml:"music,omitempty"`
	Effects   VisualEffectsConfig `yaml:"effects,omitempty"`
	Theme     string              `yaml:"theme,omitempty"`
	Font      string              `yaml:"font,omitempty"`
	Watermark Watermark           `yaml:"watermark,omitempty"`
	ShareBase string              `yaml:"share_base,omitempty"`
	CreatedAt time.Time           `yaml:"created_at,omitempty"`
}

package timeline

import (
	"errors"
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// LeadIn и LeadOut - тишина до и после речи внутри аудио.
	LeadIn  = 0.5
	LeadOut = 0.8

	MinSpeechWindow = 1.0

	// CharsPerSecond - базовая скорость речи при rate = 1.
	CharsPerSecond = 18.0
	MinEstimate    = 5.0
)

var ErrNoWords = errors.New("timeline: no words to time")

type WordTiming struct {
	Word  string
	Start float64
	End   float64
	Index int
}

type SyncMetadata struct {
	TotalWords    int
	TitleWords    int
	TotalDuration float64
	IsHeuristic   bool
}

type Timeline struct {
	Words []WordTiming
	Meta  SyncMetadata
}

// VirtualLength - "вес" слова: буквы и цифры плюс бонус за паузу на знаках препинания.
func VirtualLength(word string) int {
	n := 0
	for _, r := range word {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			n++
		}
	}
	if n < 2 {
		n = 2
	}
	if strings.ContainsAny(word, ",;") {
		n += 4
	}
	if strings.ContainsAny(word, ".?!") {
		n += 8
	}
	return n
}

func SpeechWindow(duration float64) float64 {
	return math.Max(MinSpeechWindow, duration-LeadIn-LeadOut)
}

// Distribute делит окно речи пропорционально виртуальной длине слов.
// Границы считаются по накопленной сумме, поэтому end[i] == start[i+1] точно,
// а последний end равен offset+window.
func Distribute(words []string, window, offset float64) []WordTiming {
	if len(words) == 0 {
		return nil
	}

	lengths := make([]int, len(words))
	total := 0
	for i, w := range words {
		lengths[i] = VirtualLength(w)
		total += lengths[i]
	}

	at := func(cum int) float64 {
		return offset + window*float64(cum)/float64(total)
	}

	timings := make([]WordTiming, len(words))
	cum := 0
	for i, w := range words {
		start := at(cum)
		cum += lengths[i]
		timings[i] = WordTiming{Word: w, Start: start, End: at(cum), Index: i}
	}
	timings[len(timings)-1].End = offset + window
	return timings
}

// Build строит эвристическую таблицу для известной длительности аудио.
func Build(words []string, titleWords int, duration float64) (*Timeline, error) {
	if len(words) == 0 {
		return nil, ErrNoWords
	}
	if titleWords > len(words) {
		titleWords = len(words)
	}

	return &Timeline{
		Words: Distribute(words, SpeechWindow(duration), LeadIn),
		Meta: SyncMetadata{
			TotalWords:    len(words),
			TitleWords:    titleWords,
			TotalDuration: duration,
			IsHeuristic:   true,
		},
	}, nil
}

// ActiveIndexAt возвращает последнее слово, начавшееся к моменту t, или -1.
func (tl *Timeline) ActiveIndexAt(t float64) int {
	i := sort.Search(len(tl.Words), func(i int) bool {
		return tl.Words[i].Start > t
	})
	return i - 1
}

// EstimateDuration оценивает длительность озвучки по числу символов.
func EstimateDuration(text string, rate float64) float64 {
	if rate <= 0 {
		rate = 1
	}
	d := float64(utf8.RuneCountInString(text)) / (CharsPerSecond * rate)
	return math.Max(MinEstimate, d)
}

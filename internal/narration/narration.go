package narration

import (
	"regexp"
	"sort"
	"strings"

	"github.com/ivlev/quotereel/internal/content"
)

// Narrator - источник речи для одной сессии. Выбирается вызывающим кодом.
type Narrator interface {
	// Precise сообщает, будут ли приходить события границ слов.
	Precise() bool
	// Begin вызывается в момент старта воспроизведения.
	Begin(spoken string)
	// Poll возвращает смещения (в рунах) событий, наступивших к моменту elapsed.
	Poll(elapsed float64) []int
	// Speaking сообщает, идет ли еще речь.
	Speaking(elapsed float64) bool
	Halt()
}

// tail - сколько речь звучит после последней метки, если длина аудио неизвестна.
const tail = 0.8

var authorRefRe = regexp.MustCompile(`\s\d+[,:;].*$`)

// CleanAuthor убирает из подписи ссылку на стих ("Juan 3:16" -> "Juan").
func CleanAuthor(author string) string {
	return strings.TrimSpace(authorRefRe.ReplaceAllString(author, ""))
}

// SpokenText собирает строку для озвучки: "заголовок. текст. автор".
func SpokenText(q content.QuotePayload) string {
	var parts []string
	for _, p := range []string{q.Title, q.Text, CleanAuthor(q.Author)} {
		p = strings.TrimRight(strings.TrimSpace(p), " .")
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ". ")
}

// ForAudio выбирает реализацию. Точный режим без меток деградирует до эвристики.
func ForAudio(n content.NarrationAudio, spokenText string, audioDuration float64) Narrator {
	if n.Precise && len(n.Marks) > 0 {
		return NewScripted(n.Marks, audioDuration)
	}
	d := audioDuration
	if d <= 0 {
		d = EstimateFor(spokenText, n)
	}
	return NewSilent(d)
}

// Scripted воспроизводит записанные метки границ слов по часам сессии.
type Scripted struct {
	marks  []content.BoundaryMark
	next   int
	end    float64
	began  bool
	halted bool
}

func NewScripted(marks []content.BoundaryMark, audioDuration float64) *Scripted {
	sorted := make([]content.BoundaryMark, len(marks))
	copy(sorted, marks)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	end := audioDuration
	if n := len(sorted); n > 0 && sorted[n-1].Time+tail > end {
		end = sorted[n-1].Time + tail
	}
	return &Scripted{marks: sorted, end: end}
}

func (s *Scripted) Precise() bool { return true }

func (s *Scripted) Begin(string) {
	s.began = true
	s.next = 0
}

func (s *Scripted) Poll(elapsed float64) []int {
	if !s.began || s.halted {
		return nil
	}
	var out []int
	for s.next < len(s.marks) && s.marks[s.next].Time <= elapsed {
		out = append(out, s.marks[s.next].Char)
		s.next++
	}
	return out
}

func (s *Scripted) Speaking(elapsed float64) bool {
	return s.began && !s.halted && elapsed < s.end
}

func (s *Scripted) Halt() { s.halted = true }

// Silent не присылает событий: тайминг оценивается эвристикой.
type Silent struct {
	duration float64
	began    bool
	halted   bool
}

func NewSilent(duration float64) *Silent {
	return &Silent{duration: duration}
}

func (s *Silent) Precise() bool { return false }

func (s *Silent) Begin(string) { s.began = true }

func (s *Silent) Poll(float64) []int { return nil }

func (s *Silent) Speaking(elapsed float64) bool {
	return s.began && !s.halted && elapsed < s.duration
}

func (s *Silent) Halt() { s.halted = true }

func (s *Silent) Duration() float64 { return s.duration }

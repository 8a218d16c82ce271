package renderer

import (
	"image"
	"image/color"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ivlev/quotereel/internal/system"
)

const (
	captionMargin     = 80 // суммарные поля по горизонтали
	titleFontSize     = 40
	titleLineHeight   = 46
	titleMarginBottom = 40
	titleDelay        = 0.5
	headerMaxChars    = 60
	headerBoost       = 4
	authorFontSize    = 24
	authorOffset      = 40
	authorDelay       = 1.0

	activeScale = 1.5
	powerScale  = 1.7
	activeGlow  = 40
	powerGlow   = 60
	outlineW    = 6
	chromaShift = 4

	pastAlpha   = 0.8
	futureAlpha = 0.25
)

var (
	gold   = color.RGBA{0xfb, 0xbf, 0x24, 0xff}
	white  = color.RGBA{0xff, 0xff, 0xff, 0xff}
	cyan   = color.RGBA{0x00, 0xff, 0xff, 0xff}
	red    = color.RGBA{0xff, 0x00, 0x00, 0xff}
	scrims = rgba{0, 0, 0, 0.8}
)

// Caser хранит состояние, поэтому на каждый вызов создается свой.
func lower(s string) string { return cases.Lower(language.Und).String(s) }
func upper(s string) string { return cases.Upper(language.Und).String(s) }

// fontTier: чем длиннее текст, тем мельче шрифт.
func fontTier(bodyWords int) (size, lineHeight float64) {
	switch {
	case bodyWords > 120:
		return 24, 36
	case bodyWords > 70:
		return 28, 42
	case bodyWords > 30:
		return 34, 50
	default:
		return 52, 70
	}
}

type keywordClass int

const (
	classNone keywordClass = iota
	classDanger
	classDivine
	classHope
)

var keywordClasses = []struct {
	class keywordClass
	words []string
	glow  rgba // #ef4444, #fbbf24, #34d399
}{
	{classDanger, []string{"death", "pain", "die", "sangre", "miedo", "muerte", "dolor", "suffer", "hell", "infierno", "matar", "kill"},
		rgba{239, 68, 68, 0.8}},
	{classDivine, []string{"god", "lord", "dios", "señor", "espíritu", "santo", "luz", "padre", "cielo", "heaven", "light", "pray", "orar"},
		rgba{251, 191, 36, 0.8}},
	{classHope, []string{"hope", "life", "vida", "esperanza", "fe", "faith", "love", "amor", "paz", "peace"},
		rgba{52, 211, 153, 0.8}},
}

// classify ищет ключевое слово как подстроку (так "vida" ловит и "vidas").
func classify(word string) (keywordClass, rgba) {
	w := lower(word)
	for _, kc := range keywordClasses {
		for _, k := range kc.words {
			if strings.Contains(w, k) {
				return kc.class, kc.glow
			}
		}
	}
	return classNone, rgba{255, 255, 255, 0.5}
}

func isHeader(para string) bool {
	return utf8.RuneCountInString(para) < headerMaxChars ||
		strings.Contains(lower(strings.TrimSpace(para)), "reflexión")
}

type captionWord struct {
	text   string
	index  int     // сквозной индекс (заголовок + текст)
	cx     float64 // центр слова по горизонтали
	width  float64
	header bool
	class  keywordClass
	glow   rgba
}

type captionLine struct {
	words  []captionWord
	header bool
}

// captionLayout - раскладка текста относительно верха блока. Считается один раз на сессию.
type captionLayout struct {
	width      float64
	fontSize   float64
	lineHeight float64

	title      []string
	titleLine  []int // строка заголовка для каждого слова заголовка
	titleWords int

	body    []captionLine
	bodyTop float64
}

func layoutCaptions(st *State, width float64) *captionLayout {
	maxWidth := width - captionMargin
	size, lh := fontTier(len(st.BodyWords))
	l := &captionLayout{width: width, fontSize: size, lineHeight: lh, titleWords: len(st.TitleWords)}

	titleFace := st.Fonts.Face(titleFontSize, true)
	line := ""
	for i, w := range st.TitleWords {
		test := w
		if line != "" {
			test = line + " " + w
		}
		if i > 0 && measure(titleFace, test) > maxWidth {
			l.title = append(l.title, line)
			test = w
		}
		line = test
		l.titleLine = append(l.titleLine, len(l.title))
	}
	if line != "" {
		l.title = append(l.title, line)
		l.bodyTop = float64(len(l.title))*titleLineHeight + titleMarginBottom
	}

	index := len(st.TitleWords)
	for _, para := range strings.Split(st.Quote.Text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			continue
		}
		header := isHeader(para)
		face := st.Fonts.Face(l.faceSize(header), header)
		space := measure(face, " ")

		var cur []captionWord
		lineW := 0.0
		for _, w := range words {
			ww := measure(face, w)
			if len(cur) > 0 && lineW+space+ww > maxWidth {
				l.body = append(l.body, centerLine(cur, lineW, space, width, header))
				cur, lineW = nil, 0
			}
			if len(cur) > 0 {
				lineW += space
			}
			class, glow := classify(w)
			cur = append(cur, captionWord{text: w, index: index, width: ww, header: header, class: class, glow: glow})
			lineW += ww
			index++
		}
		l.body = append(l.body, centerLine(cur, lineW, space, width, header))
	}
	return l
}

func (l *captionLayout) faceSize(header bool) float64 {
	if header {
		return l.fontSize + headerBoost
	}
	return l.fontSize
}

func centerLine(words []captionWord, lineW, space, width float64, header bool) captionLine {
	x := width/2 - lineW/2
	for i := range words {
		words[i].cx = x + words[i].width/2
		x += words[i].width + space
	}
	return captionLine{words: words, header: header}
}

// activeCenter - центр строки с активным словом относительно верха блока.
func (l *captionLayout) activeCenter(active, total int) float64 {
	if active >= total && len(l.body) > 0 {
		return l.bodyLineCenter(len(l.body) - 1)
	}
	if active < l.titleWords || len(l.body) == 0 {
		i := 0
		if active >= 0 && active < len(l.titleLine) {
			i = l.titleLine[active]
		}
		if len(l.title) > 0 {
			return float64(i)*titleLineHeight + titleLineHeight/2
		}
		return l.bodyLineCenter(0)
	}
	for i, line := range l.body {
		last := line.words[len(line.words)-1].index
		if active <= last {
			return l.bodyLineCenter(i)
		}
	}
	return l.bodyLineCenter(len(l.body) - 1)
}

func (l *captionLayout) bodyLineCenter(i int) float64 {
	return l.bodyTop + float64(i)*l.lineHeight + l.lineHeight/2
}

// captionsLayer - телесуфлер: строка с активным словом всегда по центру кадра.
type captionsLayer struct{}

func (captionsLayer) Name() string { return "captions" }

func (captionsLayer) Draw(s *Surface, elapsed float64, st *State) {
	if st.captions == nil || st.captions.width != s.W {
		st.captions = layoutCaptions(st, s.W)
	}
	l := st.captions
	top := s.H/2 - l.activeCenter(st.ActiveIndex, st.TotalWords)
	highlight := parseHex(st.Theme.HighlightText, gold)

	if len(l.title) > 0 && elapsed > titleDelay {
		s.SetFontFace(st.Fonts.Face(titleFontSize, true))
		for i, line := range l.title {
			y := top + float64(i)*titleLineHeight + titleLineHeight/2
			if y < -50 || y > s.H+50 {
				continue
			}
			s.SetColor(scrims)
			s.DrawStringAnchored(line, s.W/2+1, y+2, 0.5, 0.5)
			s.SetColor(highlight)
			s.DrawStringAnchored(line, s.W/2, y, 0.5, 0.5)
		}
	}

	finished := st.ActiveIndex >= st.TotalWords
	var active *captionWord
	var activeY float64
	for i, line := range l.body {
		y := top + l.bodyLineCenter(i)
		if y < -100 || y > s.H+100 {
			continue
		}
		s.SetFontFace(st.Fonts.Face(l.faceSize(line.header), line.header))
		for j := range line.words {
			w := &line.words[j]
			if w.index == st.ActiveIndex {
				active, activeY = w, y
				continue
			}
			s.SetColor(inactiveColor(w.index, st.ActiveIndex, finished))
			s.DrawStringAnchored(w.text, w.cx, y, 0.5, 0.5)
		}
	}
	if active != nil {
		drawActiveWord(s, st, l, active, activeY)
	}

	if st.Quote.Author != "" && elapsed > authorDelay {
		y := top + l.bodyTop + float64(len(l.body))*l.lineHeight + authorOffset
		s.SetFontFace(st.Fonts.Face(authorFontSize, true))
		s.SetColor(white)
		s.DrawStringAnchored(upper(st.Quote.Author), s.W/2, y, 0.5, 0.5)
	}
}

// inactiveColor: прочитанные слова белые 0.8, будущие 0.25. Заголовки абзацев
// выделяются только шрифтом.
func inactiveColor(index, active int, finished bool) rgba {
	if finished || index < active {
		return withAlpha(white, pastAlpha)
	}
	return withAlpha(white, futureAlpha)
}

// drawActiveWord: увеличенное слово с обводкой и свечением; у "сильных" слов
// (ключевые слова и заголовки) еще и хроматический сдвиг голубым и красным.
func drawActiveWord(s *Surface, st *State, l *captionLayout, w *captionWord, cy float64) {
	power := w.class != classNone || w.header
	scale := activeScale
	glowBlur := activeGlow
	if power {
		scale = powerScale
		glowBlur = powerGlow
	}
	face := st.Fonts.Face(l.faceSize(w.header)*scale, w.header)

	if power {
		fx := newWordFX(face, w.text, float64(glowBlur/2)+chromaShift*scale)
		fx.text(cyan, -chromaShift*scale+st.rng.Float64()*2*scale, 0)
		screenOnto(s.Frame, fx.img, fx.origin(w.cx, cy))
		fx.reset()
		fx.text(red, chromaShift*scale+st.rng.Float64()*2*scale, 0)
		screenOnto(s.Frame, fx.img, fx.origin(w.cx, cy))
		fx.release()
	}

	// свечение: размытая копия в цвете ключевого слова
	fx := newWordFX(face, w.text, float64(glowBlur))
	fx.text(w.glow, 0, 0)
	gaussianBlur(fx.img, float64(glowBlur)/2)
	at := fx.origin(w.cx, cy)
	draw.Draw(s.Frame, fx.img.Rect.Add(at), fx.img, image.Point{}, draw.Over)
	fx.release()

	s.SetFontFace(face)
	r := outlineW / 2 * scale
	s.SetColor(color.Black)
	for k := 0; k < 12; k++ {
		a := float64(k) * math.Pi / 6
		s.DrawStringAnchored(w.text, w.cx+r*math.Cos(a), cy+r*math.Sin(a), 0.5, 0.5)
	}
	s.SetColor(white)
	s.DrawStringAnchored(w.text, w.cx, cy, 0.5, 0.5)
}

// wordFX - отдельный холст под одно слово с полями pad для эффектов.
type wordFX struct {
	img  *image.RGBA
	dc   *gg.Context
	word string
}

func newWordFX(face font.Face, word string, pad float64) *wordFX {
	m := face.Metrics()
	tw := measure(face, word)
	th := float64(m.Height) / 64
	w := int(math.Ceil(tw + 2*pad))
	h := int(math.Ceil(th + 2*pad))
	img := system.GetFrame(w, h)
	dc := gg.NewContextForRGBA(img)
	dc.SetFontFace(face)
	return &wordFX{img: img, dc: dc, word: word}
}

func (fx *wordFX) text(c color.Color, dx, dy float64) {
	b := fx.img.Rect
	fx.dc.SetColor(c)
	fx.dc.DrawStringAnchored(fx.word, float64(b.Dx())/2+dx, float64(b.Dy())/2+dy, 0.5, 0.5)
}

// origin - куда положить холст, чтобы его центр совпал с (cx, cy).
func (fx *wordFX) origin(cx, cy float64) image.Point {
	b := fx.img.Rect
	return image.Pt(int(math.Round(cx))-b.Dx()/2, int(math.Round(cy))-b.Dy()/2)
}

func (fx *wordFX) reset() {
	clear(fx.img.Pix)
}

func (fx *wordFX) release() {
	system.PutFrame(fx.img)
	fx.img = nil
}

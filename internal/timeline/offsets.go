package timeline

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/search"
)

var ErrDiverged = errors.New("timeline: spoken text diverges from rendered words")

// WordOffsets находит начало каждого слова в произносимой строке одним проходом курсора.
// Поиск без учета регистра и диакритики; повторяющиеся слова не путаются,
// потому что каждое следующее ищется только после предыдущего.
// Смещения возвращаются в рунах.
func WordOffsets(spoken string, words []string) ([]int, error) {
	m := search.New(language.Und, search.IgnoreCase, search.IgnoreDiacritics)

	offsets := make([]int, len(words))
	cursor, runeCursor := 0, 0
	for i, w := range words {
		start, end := m.IndexString(spoken[cursor:], w)
		if start < 0 {
			return nil, fmt.Errorf("%w: word %d %q not found after offset %d", ErrDiverged, i, w, runeCursor)
		}
		offsets[i] = runeCursor + utf8.RuneCountInString(spoken[cursor:cursor+start])
		runeCursor = offsets[i] + utf8.RuneCountInString(spoken[cursor+start:cursor+end])
		cursor += end
	}
	return offsets, nil
}

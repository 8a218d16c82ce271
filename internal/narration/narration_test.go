package narration

import (
	"bytes"
	"testing"

	"github.com/gopxl/beep/v2/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/quotereel/internal/content"
)

func TestSpokenText(t *testing.T) {
	tests := []struct {
		name  string
		quote content.QuotePayload
		want  string
	}{
		{
			name:  "full",
			quote: content.QuotePayload{Title: "Salmo 23", Text: "El Señor es mi pastor.", Author: "David 23:1"},
			want:  "Salmo 23. El Señor es mi pastor. David",
		},
		{
			name:  "body only",
			quote: content.QuotePayload{Text: "Conócete a ti mismo"},
			want:  "Conócete a ti mismo",
		},
		{
			name:  "author with verse list",
			quote: content.QuotePayload{Text: "Amor", Author: "1 Corintios 13:4-7; 8"},
			want:  "Amor. 1 Corintios",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SpokenText(tt.quote))
		})
	}
}

func TestForAudioSelection(t *testing.T) {
	n := ForAudio(content.NarrationAudio{Precise: true, Marks: []content.BoundaryMark{{Char: 0, Time: 0.2}}}, "a", 3)
	assert.True(t, n.Precise())

	n = ForAudio(content.NarrationAudio{Precise: true}, "a", 3)
	assert.False(t, n.Precise(), "precise without marks degrades to heuristic")

	n = ForAudio(content.NarrationAudio{}, "hola", 0)
	require.IsType(t, &Silent{}, n)
	assert.Equal(t, 5.0, n.(*Silent).Duration())
}

func TestScriptedPollsInOrder(t *testing.T) {
	s := NewScripted([]content.BoundaryMark{
		{Char: 8, Time: 1.0},
		{Char: 0, Time: 0.1},
		{Char: 5, Time: 0.6},
	}, 0)

	assert.Nil(t, s.Poll(5), "no events before Begin")
	s.Begin("Paz. La paz")

	assert.Equal(t, []int{0}, s.Poll(0.2))
	assert.Nil(t, s.Poll(0.3))
	assert.Equal(t, []int{5, 8}, s.Poll(1.0))

	assert.True(t, s.Speaking(1.5))
	assert.False(t, s.Speaking(1.8))

	s.Halt()
	assert.False(t, s.Speaking(0))
}

func TestSilentSpeaking(t *testing.T) {
	s := NewSilent(10)
	assert.False(t, s.Speaking(1))
	s.Begin("")
	assert.True(t, s.Speaking(9.9))
	assert.False(t, s.Speaking(10))
	assert.Nil(t, s.Poll(100))
}

func TestPlaceholderWAV(t *testing.T) {
	data, err := PlaceholderWAV(2)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("RIFF")))

	s, format, err := wav.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, PlaceholderRate, format.SampleRate)
	assert.Equal(t, 48000, s.Len())
}

package timeline

import (
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVirtualLength(t *testing.T) {
	tests := []struct {
		word string
		want int
	}{
		{"a", 2},
		{"paz", 3},
		{"corazón", 7},
		{"vida,", 8},
		{"fin.", 11},
		{"¿Quién?", 13},
		{"23;", 6},
		{"—", 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, VirtualLength(tt.word), "word %q", tt.word)
	}
}

func TestDistributeEqualWords(t *testing.T) {
	timings := Distribute([]string{"sol", "mar", "paz"}, 6, 0)
	require.Len(t, timings, 3)
	for i, w := range timings {
		assert.InDelta(t, 2.0, w.End-w.Start, 1e-9, "word %d", i)
		assert.Equal(t, i, w.Index)
	}
	assert.Equal(t, 0.0, timings[0].Start)
	assert.Equal(t, 6.0, timings[2].End)
}

func TestDistributeSumAndContiguity(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	vocab := []string{"la", "paz,", "sea", "contigo.", "¿Por", "qué?", "esperanza;", "y", "amor!", "Señor"}

	for trial := 0; trial < 50; trial++ {
		n := 1 + rng.Intn(200)
		words := make([]string, n)
		for i := range words {
			words[i] = vocab[rng.Intn(len(vocab))]
		}
		duration := 1 + rng.Float64()*120
		tl, err := Build(words, 0, duration)
		require.NoError(t, err)

		window := SpeechWindow(duration)
		sum := 0.0
		for i, w := range tl.Words {
			sum += w.End - w.Start
			assert.GreaterOrEqual(t, w.End, w.Start)
			if i+1 < len(tl.Words) {
				assert.Equal(t, w.End, tl.Words[i+1].Start, "gap after word %d", i)
			}
		}
		if math.Abs(sum-window) > 1e-9 {
			t.Errorf("trial %d: sum %f != window %f", trial, sum, window)
		}
		assert.LessOrEqual(t, tl.Words[n-1].End, math.Max(duration, LeadIn+MinSpeechWindow)+1e-9)
	}
}

func TestBuild(t *testing.T) {
	_, err := Build(nil, 0, 10)
	assert.ErrorIs(t, err, ErrNoWords)

	tl, err := Build([]string{"Salmo", "El", "Señor", "es", "mi", "pastor."}, 1, 7.3)
	require.NoError(t, err)
	assert.Equal(t, SyncMetadata{TotalWords: 6, TitleWords: 1, TotalDuration: 7.3, IsHeuristic: true}, tl.Meta)
	assert.Equal(t, LeadIn, tl.Words[0].Start)
	assert.InDelta(t, 7.3-LeadOut, tl.Words[5].End, 1e-9)
}

func TestSpeechWindowMinimum(t *testing.T) {
	assert.Equal(t, 1.0, SpeechWindow(0.5))
	assert.InDelta(t, 8.7, SpeechWindow(10), 1e-9)
}

func TestActiveIndexAt(t *testing.T) {
	tl, err := Build([]string{"sol", "mar", "paz"}, 0, 6+LeadIn+LeadOut)
	require.NoError(t, err)

	assert.Equal(t, -1, tl.ActiveIndexAt(0))
	assert.Equal(t, 0, tl.ActiveIndexAt(0.5))
	assert.Equal(t, 0, tl.ActiveIndexAt(2.49))
	assert.Equal(t, 1, tl.ActiveIndexAt(2.51))
	assert.Equal(t, 2, tl.ActiveIndexAt(100))
}

func TestEstimateDuration(t *testing.T) {
	assert.Equal(t, MinEstimate, EstimateDuration("hola", 1))
	long := strings.Repeat("a", 360)
	assert.InDelta(t, 20.0, EstimateDuration(long, 1), 1e-9)
	assert.InDelta(t, 40.0, EstimateDuration(long, 0.5), 1e-9)
	assert.InDelta(t, 20.0, EstimateDuration(long, 0), 1e-9)
}

func TestWordOffsetsForwardCursor(t *testing.T) {
	spoken := "Paz. La paz sea contigo, paz. Juan"
	words := []string{"Paz.", "La", "paz", "sea", "contigo,", "paz."}

	offsets, err := WordOffsets(spoken, words)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 5, 8, 12, 16, 25}, offsets)
}

func TestWordOffsetsIgnoresCaseAndDiacritics(t *testing.T) {
	offsets, err := WordOffsets("EL SENOR es mi pastor", []string{"El", "Señor", "es"})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3, 9}, offsets)
}

func TestWordOffsetsDiverged(t *testing.T) {
	_, err := WordOffsets("La paz sea contigo", []string{"La", "guerra"})
	assert.ErrorIs(t, err, ErrDiverged)
}

package system

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindLatest(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "a.yaml")
	fresh := filepath.Join(dir, "b.YML")
	other := filepath.Join(dir, "c.txt")
	for _, p := range []string{old, fresh, other} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0644))
	}
	now := time.Now()
	require.NoError(t, os.Chtimes(old, now.Add(-time.Hour), now.Add(-time.Hour)))
	require.NoError(t, os.Chtimes(fresh, now, now))
	require.NoError(t, os.Chtimes(other, now.Add(time.Hour), now.Add(time.Hour)))

	got, err := FindLatest(dir, ".yaml", ".yml")
	require.NoError(t, err)
	assert.Equal(t, fresh, got)

	_, err = FindLatestAudio(dir)
	assert.Error(t, err)
}

func TestParseSize(t *testing.T) {
	w, h, err := parseSize("1920x1080\n")
	require.NoError(t, err)
	assert.Equal(t, 1920, w)
	assert.Equal(t, 1080, h)

	w, h, err = parseSize("720x1280x\n")
	require.NoError(t, err)
	assert.Equal(t, 720, w)
	assert.Equal(t, 1280, h)

	_, _, err = parseSize("N/A")
	assert.Error(t, err)
}

func TestQualityArgs(t *testing.T) {
	assert.Equal(t, []string{"-b:v", "7500k"}, QualityArgs("h264_videotoolbox", 75))
	assert.Equal(t, []string{"-cq", "28"}, QualityArgs("h264_nvenc", 28))
	assert.Equal(t, []string{"-crf", "23", "-preset", "medium"}, QualityArgs("libx264", 23))
}

func TestFramePool(t *testing.T) {
	img := GetFrame(4, 2)
	require.Equal(t, 4, img.Rect.Dx())
	img.Pix[0] = 255
	PutFrame(img)

	again := GetFrame(4, 2)
	assert.Equal(t, uint8(0), again.Pix[0], "pooled frames come back cleared")
	PutFrame(nil)
}

func TestCollectHostStats(t *testing.T) {
	s := CollectHostStats()
	assert.False(t, s.CollectedAt.IsZero())
	t.Logf("stats: %s", s)
}

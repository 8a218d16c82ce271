package source

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		r, g, b, a := c.RGBA()
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = uint8(r>>8), uint8(g>>8), uint8(b>>8), uint8(a>>8)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newServer(t *testing.T) *httptest.Server {
	red := pngBytes(t, 10, 20, color.RGBA{255, 0, 0, 255})
	blue := pngBytes(t, 30, 10, color.RGBA{0, 0, 255, 255})
	mux := http.NewServeMux()
	mux.HandleFunc("/red.png", func(w http.ResponseWriter, r *http.Request) { w.Write(red) })
	mux.HandleFunc("/blue.png", func(w http.ResponseWriter, r *http.Request) { w.Write(blue) })
	mux.HandleFunc("/broken.png", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("not an image")) })
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLoadImagesKeepsOrder(t *testing.T) {
	srv := newServer(t)
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t, 5, 5, color.White))

	dir := t.TempDir()
	local := filepath.Join(dir, "local.png")
	require.NoError(t, os.WriteFile(local, pngBytes(t, 7, 7, color.Black), 0644))

	l := NewLoader(Options{Workers: 2})
	slides, err := l.LoadImages(context.Background(), []string{
		srv.URL + "/blue.png",
		dataURL,
		srv.URL + "/red.png",
		local,
	})
	require.NoError(t, err)
	require.Len(t, slides, 4)
	assert.Equal(t, 30, slides[0].Bounds().Dx())
	assert.Equal(t, 5, slides[1].Bounds().Dx())
	assert.Equal(t, 10, slides[2].Bounds().Dx())
	assert.Equal(t, 7, slides[3].Bounds().Dx())
}

func TestLoadImagesOmitsFailures(t *testing.T) {
	srv := newServer(t)
	l := NewLoader(Options{})
	slides, err := l.LoadImages(context.Background(), []string{
		srv.URL + "/missing.png",
		srv.URL + "/red.png",
		srv.URL + "/broken.png",
		"ftp://example.com/x.png",
	})
	require.NoError(t, err)
	require.Len(t, slides, 1)
	assert.Equal(t, 10, slides[0].Bounds().Dx())
}

func TestLoadImagesUsesPlaceholder(t *testing.T) {
	srv := newServer(t)
	l := NewLoader(Options{Placeholder: srv.URL + "/blue.png"})
	slides, err := l.LoadImages(context.Background(), []string{
		srv.URL + "/red.png",
		srv.URL + "/missing.png",
	})
	require.NoError(t, err)
	require.Len(t, slides, 2)
	assert.Equal(t, 30, slides[1].Bounds().Dx())
}

func TestLoadImagesCancelled(t *testing.T) {
	srv := newServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLoader(Options{}).LoadImages(ctx, []string{srv.URL + "/red.png"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDecodeDataURL(t *testing.T) {
	data, err := decodeDataURL("data:text/plain,hola%20mundo")
	require.NoError(t, err)
	assert.Equal(t, "hola mundo", string(data))

	_, err = decodeDataURL("data:nothing")
	assert.ErrorIs(t, err, ErrUnsupportedRef)
}

func TestLocalize(t *testing.T) {
	l := NewLoader(Options{})
	path, cleanup, err := l.Localize(context.Background(), "data:video/mp4;base64,"+base64.StdEncoding.EncodeToString([]byte("mp4")))
	require.NoError(t, err)
	assert.Equal(t, ".mp4", filepath.Ext(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "mp4", string(data))
	cleanup()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	path, _, err = l.Localize(context.Background(), "https://cdn.example.com/bg.mp4")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/bg.mp4", path)
}

func TestOpenImage(t *testing.T) {
	src, err := Open(pngBytes(t, 3, 4, color.White), 0)
	require.NoError(t, err)
	defer src.Close()
	assert.Equal(t, 1, src.PageCount())
	img, err := src.RenderPage(0)
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dy())
	_, err = src.RenderPage(1)
	assert.Error(t, err)
}

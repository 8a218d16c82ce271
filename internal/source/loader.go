package source

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxAssetSize ограничивает размер одного загружаемого ресурса.
const maxAssetSize = 256 << 20

var ErrUnsupportedRef = errors.New("source: unsupported media reference")

type Options struct {
	Workers     int
	DPI         int
	Timeout     time.Duration
	Placeholder string // подставляется вместо изображения, которое не загрузилось
	Client      *http.Client
	Logger      *zap.Logger
}

// Loader загружает медиа для сессии: файлы, http(s) и data: URL.
type Loader struct {
	opts   Options
	client *http.Client
	log    *zap.Logger
}

func NewLoader(opts Options) *Loader {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.DPI <= 0 {
		opts.DPI = 150
	}
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{opts: opts, client: client, log: logger}
}

// Fetch возвращает байты ресурса по ссылке.
func (l *Loader) Fetch(ctx context.Context, ref string) ([]byte, error) {
	switch {
	case strings.HasPrefix(ref, "data:"):
		return decodeDataURL(ref)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return l.get(ctx, ref)
	case strings.HasPrefix(ref, "file://"):
		u, err := url.Parse(ref)
		if err != nil {
			return nil, err
		}
		return os.ReadFile(u.Path)
	case strings.Contains(ref, "://"):
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRef, ref)
	default:
		return os.ReadFile(ref)
	}
}

func (l *Loader) get(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ref, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", ref, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetSize))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ref, err)
	}
	return data, nil
}

func decodeDataURL(ref string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("%w: malformed data url", ErrUnsupportedRef)
	}
	if strings.HasSuffix(meta, ";base64") {
		return base64.StdEncoding.DecodeString(payload)
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// LoadImages загружает все изображения параллельно и возвращает слайды в исходном порядке.
// PDF дает по слайду на страницу. Незагрузившееся изображение заменяется заглушкой
// или пропускается; ошибкой завершается только отмена контекста.
func (l *Loader) LoadImages(ctx context.Context, refs []string) ([]image.Image, error) {
	results := make([][]image.Image, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.opts.Workers)
	for i, ref := range refs {
		g.Go(func() error {
			pages, err := l.loadPages(gctx, ref)
			if err != nil && l.opts.Placeholder != "" && gctx.Err() == nil {
				l.log.Warn("image failed, using placeholder", zap.String("ref", shortRef(ref)), zap.Error(err))
				pages, err = l.loadPages(gctx, l.opts.Placeholder)
			}
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				l.log.Warn("image omitted from slideshow", zap.String("ref", shortRef(ref)), zap.Error(err))
				return nil
			}
			results[i] = pages
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var slides []image.Image
	for _, pages := range results {
		slides = append(slides, pages...)
	}
	return slides, nil
}

func (l *Loader) loadPages(ctx context.Context, ref string) ([]image.Image, error) {
	data, err := l.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	src, err := Open(data, l.opts.DPI)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	var pages []image.Image
	for i := 0; i < src.PageCount(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := src.RenderPage(i)
		if err != nil {
			l.log.Warn("page render failed", zap.Int("page", i), zap.Error(err))
			continue
		}
		pages = append(pages, img)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no pages rendered from %s", shortRef(ref))
	}
	return pages, nil
}

// Localize возвращает путь, который можно отдать ffmpeg. data: URL сохраняется
// во временный файл; cleanup удаляет его.
func (l *Loader) Localize(ctx context.Context, ref string) (string, func(), error) {
	noop := func() {}
	if !strings.HasPrefix(ref, "data:") {
		if strings.HasPrefix(ref, "file://") {
			return strings.TrimPrefix(ref, "file://"), noop, nil
		}
		return ref, noop, nil
	}

	data, err := l.Fetch(ctx, ref)
	if err != nil {
		return "", noop, err
	}
	f, err := os.CreateTemp("", "quotereel_media_*"+extFromDataURL(ref))
	if err != nil {
		return "", noop, err
	}
	path := f.Name()
	cleanup := func() { os.Remove(path) }
	if _, err := f.Write(data); err != nil {
		f.Close()
		cleanup()
		return "", noop, err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", noop, err
	}
	return path, cleanup, nil
}

func extFromDataURL(ref string) string {
	mime, _, _ := strings.Cut(strings.TrimPrefix(ref, "data:"), ";")
	if _, sub, ok := strings.Cut(mime, "/"); ok && sub != "" {
		return "." + filepath.Base(sub)
	}
	return ""
}

// shortRef укорачивает data: URL для логов.
func shortRef(ref string) string {
	if len(ref) > 80 {
		return ref[:77] + "..."
	}
	return ref
}

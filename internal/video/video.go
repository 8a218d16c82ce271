package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os/exec"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/ivlev/quotereel/internal/system"
)

// Transcoder перекодирует захват AVI в MP4 (H.264 + AAC) для соцсетей.
type Transcoder struct {
	Encoder string
	Quality int
	Width   int // 0 - без масштабирования
	Height  int
	Log     *zap.Logger
}

func (t *Transcoder) buildFFmpegArgs(input, output string) []string {
	args := []string{"-y", "-i", input}
	if t.Width > 0 && t.Height > 0 {
		args = append(args, "-vf", fmt.Sprintf(
			"scale=%d:%d:force_original_aspect_ratio=increase:flags=lanczos,crop=%d:%d",
			t.Width, t.Height, t.Width, t.Height))
	}
	encoder := t.Encoder
	if encoder == "" {
		encoder = "libx264"
	}
	args = append(args, "-c:v", encoder, "-pix_fmt", "yuv420p")
	args = append(args, system.QualityArgs(encoder, t.Quality)...)
	args = append(args,
		"-c:a", "aac", "-b:a", "192k",
		"-movflags", "+faststart",
		output,
	)
	return args
}

// Transcode выполняет перекодирование. Ошибка не трогает исходный AVI.
func (t *Transcoder) Transcode(ctx context.Context, input, output string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", t.buildFFmpegArgs(input, output)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg transcode error: %w, output: %s", err, tail(out, 2048))
	}
	if t.Log != nil {
		t.Log.Info("transcoded", zap.String("output", output), zap.String("encoder", t.Encoder))
	}
	return nil
}

func tail(b []byte, n int) []byte {
	if len(b) > n {
		return b[len(b)-n:]
	}
	return b
}

// Decoder выдает кадры зацикленного фонового видео, уже обрезанные "cover" под кадр.
type Decoder struct {
	w, h int
	fps  int

	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr bytes.Buffer

	mu    sync.Mutex
	frame *image.RGBA
	next  *image.RGBA
	index int
	err   error
}

// OpenDecoder запускает ffmpeg с -stream_loop -1 и сырым RGBA на stdout.
func OpenDecoder(ctx context.Context, path string, w, h, fps int) (*Decoder, error) {
	srcW, srcH, err := system.ProbeVideoSize(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("probe background video: %w", err)
	}

	d := &Decoder{w: w, h: h, fps: fps, index: -1}
	d.cmd = exec.CommandContext(ctx, "ffmpeg",
		"-v", "error",
		"-stream_loop", "-1",
		"-i", path,
		"-an",
		"-vf", coverFilter(srcW, srcH, w, h, fps),
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-",
	)
	d.cmd.Stderr = &d.stderr
	d.stdout, err = d.cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe error: %w", err)
	}
	if err := d.cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start error: %w", err)
	}

	d.frame = image.NewRGBA(image.Rect(0, 0, w, h))
	d.next = image.NewRGBA(image.Rect(0, 0, w, h))
	return d, nil
}

// coverFilter масштабирует с сохранением пропорций так, чтобы закрыть кадр, и обрезает по центру.
func coverFilter(srcW, srcH, w, h, fps int) string {
	scale := "scale=-2:" + strconv.Itoa(h)
	if float64(srcW)/float64(srcH) < float64(w)/float64(h) {
		scale = "scale=" + strconv.Itoa(w) + ":-2"
	}
	return fmt.Sprintf("%s,crop=%d:%d,fps=%d", scale, w, h, fps)
}

// Frame возвращает кадр для момента elapsed. Кадры читаются по порядку,
// поэтому время должно только расти. После ошибки возвращается последний кадр.
func (d *Decoder) Frame(elapsed float64) (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	target := int(elapsed * float64(d.fps))
	for d.err == nil && d.index < target {
		if _, err := io.ReadFull(d.stdout, d.next.Pix); err != nil {
			d.err = fmt.Errorf("background video: %w (%s)", err, bytes.TrimSpace(tail(d.stderr.Bytes(), 512)))
			break
		}
		d.frame, d.next = d.next, d.frame
		d.index++
	}
	if d.index < 0 {
		return nil, d.err
	}
	return d.frame, d.err
}

func (d *Decoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cmd == nil {
		return nil
	}
	d.stdout.Close()
	if d.cmd.Process != nil {
		d.cmd.Process.Kill()
	}
	d.cmd.Wait()
	d.cmd = nil
	return nil
}

// Preview показывает кадры живого режима в окне ffplay.
type Preview struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	rgba  *image.RGBA
}

var ErrNoPlayer = errors.New("video: ffplay not found")

func OpenPreview(ctx context.Context, w, h, fps int, title string) (*Preview, error) {
	if !system.HasBinary("ffplay") {
		return nil, ErrNoPlayer
	}
	cmd := exec.CommandContext(ctx, "ffplay",
		"-hide_banner", "-loglevel", "error",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", w, h),
		"-framerate", strconv.Itoa(fps),
		"-window_title", title,
		"-i", "-",
	)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffplay start error: %w", err)
	}
	return &Preview{cmd: cmd, stdin: stdin}, nil
}

func (p *Preview) WriteFrame(img image.Image) error {
	return writeRawRGBA(p.stdin, img, &p.rgba)
}

func (p *Preview) Close() error {
	p.stdin.Close()
	return p.cmd.Wait()
}

func writeRawRGBA(w io.Writer, img image.Image, scratch **image.RGBA) error {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	// Проверяем, является ли изображение уже RGBA и имеет ли стандартный шаг (stride)
	if !ok || rgba.Stride != bounds.Dx()*4 || rgba.Rect.Min.X != 0 || rgba.Rect.Min.Y != 0 {
		if *scratch == nil || (*scratch).Rect.Size() != bounds.Size() {
			*scratch = image.NewRGBA(image.Rectangle{Max: bounds.Size()})
		}
		rgba = *scratch
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}
	_, err := w.Write(rgba.Pix)
	return err
}

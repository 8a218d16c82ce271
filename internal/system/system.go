package system

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"
)

func InitResourceLimits() {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Printf("[!] Не удалось получить лимит файлов: %v", err)
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	err = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Printf("[!] Не удалось установить лимит файлов: %v", err)
	} else {
		fmt.Printf("[*] Системный лимит открытых файлов увеличен до %d\n", rLimit.Cur)
	}
}

// FindLatest возвращает самый свежий файл в dir с одним из расширений.
func FindLatest(dir string, extensions ...string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() || !hasExtension(f.Name(), extensions) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("в папке %s не найдено файлов %s", dir, strings.Join(extensions, ", "))
	}
	return latestFile, nil
}

var AudioExtensions = []string{".mp3", ".wav", ".ogg", ".flac"}

func FindLatestAudio(dir string) (string, error) {
	return FindLatest(dir, AudioExtensions...)
}

func hasExtension(name string, extensions []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// ProbeVideoSize возвращает размер первого видеопотока.
func ProbeVideoSize(ctx context.Context, path string) (int, int, error) {
	cmd := exec.CommandContext(ctx, "ffprobe", "-v", "error", "-select_streams", "v:0",
		"-show_entries", "stream=width,height", "-of", "csv=s=x:p=0", path)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, 0, fmt.Errorf("ffprobe size: %w", err)
	}
	return parseSize(string(out))
}

func parseSize(s string) (int, int, error) {
	// "1920x1080" (иногда с хвостовым "x" или переводом строки)
	parts := strings.Split(strings.Trim(strings.TrimSpace(s), "x"), "x")
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("unexpected size %q", s)
	}
	w, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("width: %w", err)
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("height: %w", err)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("unexpected size %q", s)
	}
	return w, h, nil
}

// HasBinary сообщает, доступен ли исполняемый файл в PATH.
func HasBinary(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

var (
	encoderOnce sync.Once
	encoderName string
)

// GetBestH264Encoder выбирает аппаратный энкодер, если ffmpeg его поддерживает.
func GetBestH264Encoder() string {
	encoderOnce.Do(func() {
		// Приоритеты:
		// 1. MacOS (VideoToolbox)
		// 2. NVIDIA (NVENC)
		// 3. Software (libx264)
		encoderName = "libx264"
		out, err := exec.Command("ffmpeg", "-hide_banner", "-encoders").CombinedOutput()
		if err != nil {
			return
		}
		for _, enc := range []string{"h264_videotoolbox", "h264_nvenc"} {
			if strings.Contains(string(out), enc) {
				encoderName = enc
				return
			}
		}
	})
	return encoderName
}

// QualityArgs - аргументы качества в зависимости от энкодера.
func QualityArgs(encoder string, quality int) []string {
	switch encoder {
	case "h264_videotoolbox":
		// VideoToolbox часто не поддерживает -q:v напрямую на всех версиях. Используем битрейт.
		return []string{"-b:v", fmt.Sprintf("%dk", quality*100)}
	case "h264_nvenc":
		return []string{"-cq", strconv.Itoa(quality)}
	default: // libx264
		return []string{"-crf", strconv.Itoa(quality), "-preset", "medium"}
	}
}

package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/quotereel/internal/content"
	"github.com/ivlev/quotereel/internal/system"
)

var ErrEmptyQuote = errors.New("job: quote text is empty")

// AudioDir - папка с озвучкой, из которой берется самый свежий файл по --voice latest.
const AudioDir = "input/audio"

// ReadJob читает задание из YAML и подгружает байты озвучки (base64 или файл рядом с заданием).
func ReadJob(path string) (*content.Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var job content.Job
	if err := yaml.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("parse job %s: %w", path, err)
	}
	if strings.TrimSpace(job.Quote.Text) == "" {
		return nil, ErrEmptyQuote
	}

	dir := filepath.Dir(path)
	job.Media.Video = resolve(dir, job.Media.Video)
	for i, img := range job.Media.Images {
		job.Media.Images[i] = resolve(dir, img)
	}
	job.Music.Path = resolve(dir, job.Music.Path)
	job.Narration.Path = resolve(dir, job.Narration.Path)

	if err := loadNarration(&job.Narration); err != nil {
		// Озвучка не обязательна: без нее сессия играет тишину с эвристикой.
		fmt.Printf("[!] Озвучка не загружена: %v\n", err)
	}

	job.Effects = job.Effects.WithDefaults()
	if job.CreatedAt.IsZero() {
		if fi, err := os.Stat(path); err == nil {
			job.CreatedAt = fi.ModTime()
		} else {
			job.CreatedAt = time.Now()
		}
	}
	return &job, nil
}

// WriteJob сохраняет задание. Байты озвучки не пишутся, если есть путь к файлу.
func WriteJob(path string, job *content.Job) error {
	out := *job
	if out.Narration.Path == "" && len(out.Narration.Data) > 0 {
		out.Narration.Base64 = base64.StdEncoding.EncodeToString(out.Narration.Data)
	}
	data, err := yaml.Marshal(&out)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// FindLatestJob возвращает самое свежее задание в папке.
func FindLatestJob(dir string) (string, error) {
	return system.FindLatest(dir, ".yaml", ".yml")
}

// AttachVoice заменяет озвучку задания файлом ref ("latest" - самый свежий в dir).
// Метки границ принадлежали прежнему аудио, поэтому сбрасываются.
// Возвращает путь к выбранному файлу; пустой ref ничего не меняет.
func AttachVoice(job *content.Job, ref, dir string) (string, error) {
	if ref == "" {
		return "", nil
	}
	path := ref
	if ref == "latest" {
		latest, err := system.FindLatestAudio(dir)
		if err != nil {
			return "", err
		}
		path = latest
	}

	n := job.Narration
	n.Path = path
	n.Base64 = ""
	n.Data = nil
	n.Marks = nil
	n.Precise = false
	if err := loadNarration(&n); err != nil {
		return "", err
	}
	job.Narration = n
	return path, nil
}

func loadNarration(n *content.NarrationAudio) error {
	switch {
	case n.Base64 != "":
		payload := n.Base64
		// data:audio/mpeg;base64,....
		if i := strings.Index(payload, ";base64,"); i >= 0 && strings.HasPrefix(payload, "data:") {
			payload = payload[i+len(";base64,"):]
		}
		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
		if err != nil {
			return fmt.Errorf("narration base64: %w", err)
		}
		n.Data = data
	case n.Path != "":
		data, err := os.ReadFile(n.Path)
		if err != nil {
			return fmt.Errorf("narration file: %w", err)
		}
		n.Data = data
	}
	return nil
}

// resolve делает локальные пути относительными к папке задания; URL не трогает.
func resolve(dir, ref string) string {
	if ref == "" || filepath.IsAbs(ref) || strings.Contains(ref, "://") || strings.HasPrefix(ref, "data:") {
		return ref
	}
	return filepath.Join(dir, ref)
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ivlev/quotereel/internal/config"
	"github.com/ivlev/quotereel/internal/engine"
	"github.com/ivlev/quotereel/internal/metrics"
	"github.com/ivlev/quotereel/internal/system"
)

type renderFlags struct {
	job         string
	output      string
	preset      string
	fps         int
	quality     int
	noTranscode bool
	stats       bool
	metricsAddr string
	workers     int
	logLevel    string
	seed        uint64
	font        string
	voice       string
}

func newRenderCmd() *cobra.Command {
	f := &renderFlags{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Записать ролик в AVI и перекодировать в MP4",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd.Context(), f)
		},
	}
	d := config.Default()
	cmd.Flags().StringVar(&f.job, "job", "", "Путь к заданию .yaml (по умолчанию: самое свежее в input/jobs/)")
	cmd.Flags().StringVar(&f.output, "output", "", "Путь к видео (если пусто, генерируется автоматически в output/)")
	cmd.Flags().StringVar(&f.preset, "preset", d.Preset, "Пресет формата: 9:16 (Shorts/TikTok), 4:5 (Instagram), 1:1")
	cmd.Flags().IntVar(&f.fps, "fps", d.FPS, "FPS")
	cmd.Flags().IntVar(&f.quality, "quality", 0, "Качество видео (0 - авто, x264: CRF 1-51, VideoToolbox: битрейт = Q*100кбит/с)")
	cmd.Flags().BoolVar(&f.noTranscode, "no-transcode", false, "Оставить AVI без перекодирования в MP4")
	cmd.Flags().BoolVar(&f.stats, "stats", false, "Печатать отчет о производительности и писать benchmark.log")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "Адрес для /metrics Prometheus (например, :9090)")
	cmd.Flags().IntVar(&f.workers, "workers", d.Workers, "Потоки загрузки изображений")
	cmd.Flags().StringVar(&f.logLevel, "log-level", d.LogLevel, "Уровень логов: debug, info, warn, error")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "Зерно случайности (0 - от времени)")
	cmd.Flags().StringVar(&f.font, "font", "", "TTF/OTF шрифт вместо встроенного")
	cmd.Flags().StringVar(&f.voice, "voice", "", "Файл озвучки вместо указанного в задании (latest - самый свежий в input/audio/)")
	return cmd
}

func runRender(ctx context.Context, f *renderFlags) error {
	log, err := newLogger(f.logLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg := config.Default()
	if err := cfg.ApplyPreset(f.preset); err != nil {
		return err
	}
	cfg.FPS = f.fps
	cfg.Workers = f.workers
	cfg.ShowStats = f.stats
	cfg.Transcode = !f.noTranscode
	cfg.MetricsAddr = f.metricsAddr
	cfg.LogLevel = f.logLevel
	cfg.Seed = f.seed
	cfg.FontPath = f.font
	cfg.BuildVersion = version

	cfg.VideoEncoder = system.GetBestH264Encoder()
	if cfg.VideoEncoder != "libx264" {
		fmt.Printf("[*] Обнаружено аппаратное ускорение: %s\n", cfg.VideoEncoder)
	}
	cfg.Quality = f.quality
	if cfg.Quality == 0 {
		cfg.Quality = config.DefaultQuality(cfg.VideoEncoder)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	cfg.JobPath, err = resolveJob(f.job)
	if err != nil {
		return err
	}
	job, err := config.ReadJob(cfg.JobPath)
	if err != nil {
		return fmt.Errorf("ошибка чтения задания: %w", err)
	}
	if err := attachVoice(job, f.voice); err != nil {
		return err
	}

	cfg.OutputVideo = f.output
	if cfg.OutputVideo == "" {
		baseName := filepath.Base(cfg.JobPath)
		nameOnly := strings.TrimSuffix(baseName, filepath.Ext(baseName))
		cleanName := strings.ReplaceAll(nameOnly, " ", "_")
		timestamp := time.Now().Format("2006-01-02_15-04-05")
		cfg.OutputVideo = filepath.Join("output", fmt.Sprintf("%s_%s.mp4", cleanName, timestamp))
	}

	if cfg.MetricsAddr != "" {
		exp := metrics.NewExporter(cfg.MetricsAddr, log)
		exp.Start()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			exp.Shutdown(sctx)
		}()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("--- [PROJECT: QUOTEREEL] ---")
	fmt.Printf("[*] Задание: %s | Категория: %s | Слов: %d\n", cfg.JobPath, job.Quote.Category, len(job.Quote.Words()))
	fmt.Printf("[*] Кадр: %dx%d @ %d FPS -> %dx%d (%s)\n",
		config.CanvasWidth, config.CanvasHeight, cfg.FPS, cfg.Width, cfg.Height, cfg.VideoEncoder)
	fmt.Println("-----------------------------")

	player := engine.NewPlayer(engine.Options{Config: cfg, Logger: log})

	var result engine.Capture
	if _, err := player.Record(ctx, job, func(c engine.Capture) { result = c }); err != nil {
		return err
	}
	go logEvents(player, log)

	if err := player.Wait(context.Background()); err != nil {
		log.Warn("session finished with error", zap.Error(err))
	}
	if result.Err != nil {
		return result.Err
	}
	if result.Partial {
		fmt.Printf("[!] Запись прервана, сохранено: %s\n", result.Path)
		return nil
	}
	fmt.Printf("[+++] Готово: %s\n", result.Path)
	return nil
}

// logEvents пишет смены состояния плеера в лог.
func logEvents(p *engine.Player, log *zap.Logger) {
	for ev := range p.Events() {
		if ev.Err != nil {
			log.Warn("session state", zap.String("session", ev.SessionID), zap.Stringer("state", ev.State), zap.Error(ev.Err))
			continue
		}
		log.Debug("session state", zap.String("session", ev.SessionID), zap.Stringer("state", ev.State))
	}
}

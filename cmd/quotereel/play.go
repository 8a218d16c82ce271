package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ivlev/quotereel/internal/config"
	"github.com/ivlev/quotereel/internal/engine"
)

func newPlayCmd() *cobra.Command {
	var jobPath, logLevel, voice string
	var preview bool
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Живое воспроизведение: m - звук вкл/выкл, q - стоп",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd.Context(), jobPath, voice, preview, logLevel)
		},
	}
	cmd.Flags().StringVar(&jobPath, "job", "", "Путь к заданию .yaml (по умолчанию: самое свежее в input/jobs/)")
	cmd.Flags().StringVar(&voice, "voice", "", "Файл озвучки вместо указанного в задании (latest - самый свежий в input/audio/)")
	cmd.Flags().BoolVar(&preview, "preview", false, "Показывать кадры в окне ffplay")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Уровень логов: debug, info, warn, error")
	return cmd
}

func runPlay(ctx context.Context, jobPath, voice string, preview bool, logLevel string) error {
	log, err := newLogger(logLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	path, err := resolveJob(jobPath)
	if err != nil {
		return err
	}
	job, err := config.ReadJob(path)
	if err != nil {
		return fmt.Errorf("ошибка чтения задания: %w", err)
	}
	if err := attachVoice(job, voice); err != nil {
		return err
	}

	cfg := config.Default()
	cfg.JobPath = path
	cfg.Preview = preview
	cfg.LogLevel = logLevel
	cfg.BuildVersion = version

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	player := engine.NewPlayer(engine.Options{Config: cfg, Logger: log})
	if _, err := player.Start(ctx, job); err != nil {
		return err
	}
	go logEvents(player, log)
	go readKeys(player)

	fmt.Println("[*] Воспроизведение: m - звук вкл/выкл, q - стоп")
	if err := player.Wait(context.Background()); err != nil {
		return err
	}
	fmt.Printf("[+++] Сессия завершена: %s\n", player.State())
	return nil
}

// readKeys управляет плеером построчно со stdin.
func readKeys(p *engine.Player) {
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		switch strings.ToLower(strings.TrimSpace(sc.Text())) {
		case "m":
			if p.ToggleMute() {
				fmt.Println("[*] Звук выключен")
			} else {
				fmt.Println("[*] Звук включен")
			}
		case "q":
			p.Stop()
			return
		}
	}
}

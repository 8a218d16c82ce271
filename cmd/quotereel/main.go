package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ivlev/quotereel/internal/config"
	"github.com/ivlev/quotereel/internal/content"
	"github.com/ivlev/quotereel/internal/system"
)

// version подставляется при сборке: -ldflags "-X main.version=..."
var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "quotereel",
	Short:         "Вертикальные ролики с цитатой, озвучкой и подсветкой слов",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Увеличиваем лимиты системы (для macOS/Linux)
		system.InitResourceLimits()

		// Создаем нужные директории, если их нет
		for _, d := range []string{"input/jobs", "input/audio", "output"} {
			os.MkdirAll(d, 0755)
		}
	},
}

func init() {
	rootCmd.AddCommand(newRenderCmd(), newPlayCmd(), newTimingsCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger - консольный zap на stderr, чтобы stdout оставался для отчетов.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg.Build()
}

// resolveJob возвращает путь задания: явный или самый свежий в input/jobs.
func resolveJob(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	latest, err := config.FindLatestJob("input/jobs")
	if err != nil {
		return "", fmt.Errorf("%w. Положите задание .yaml в input/jobs/", err)
	}
	fmt.Printf("[*] Выбрано задание: %s\n", latest)
	return latest, nil
}

// attachVoice подменяет озвучку задания по флагу --voice.
func attachVoice(job *content.Job, ref string) error {
	path, err := config.AttachVoice(job, ref, config.AudioDir)
	if err != nil {
		return fmt.Errorf("%w. Положите озвучку в %s/", err, config.AudioDir)
	}
	if path != "" {
		fmt.Printf("[*] Озвучка: %s\n", path)
	}
	return nil
}

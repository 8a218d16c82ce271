package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ivlev/quotereel/internal/audio"
	"github.com/ivlev/quotereel/internal/config"
	"github.com/ivlev/quotereel/internal/narration"
	"github.com/ivlev/quotereel/internal/timeline"
)

func newTimingsCmd() *cobra.Command {
	var jobPath, voice string
	cmd := &cobra.Command{
		Use:   "timings",
		Short: "Показать эвристическую таблицу слов и произносимый текст",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTimings(jobPath, voice)
		},
	}
	cmd.Flags().StringVar(&jobPath, "job", "", "Путь к заданию .yaml (по умолчанию: самое свежее в input/jobs/)")
	cmd.Flags().StringVar(&voice, "voice", "", "Файл озвучки вместо указанного в задании (latest - самый свежий в input/audio/)")
	return cmd
}

func runTimings(jobPath, voice string) error {
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

	spoken := job.Narration.Spoken
	if spoken == "" {
		spoken = narration.SpokenText(job.Quote)
	}
	duration := narration.EstimateFor(spoken, job.Narration)
	source := "оценка"
	if job.Narration.HasAudio() {
		if buf, err := audio.Decode(job.Narration.Data, audio.DefaultSampleRate); err == nil {
			duration = audio.BufferSeconds(buf)
			source = "аудио"
		} else {
			fmt.Printf("[!] Озвучка не декодирована, используется оценка: %v\n", err)
		}
	}

	tl, err := timeline.Build(job.Quote.Words(), len(job.Quote.TitleWords()), duration)
	if err != nil {
		return err
	}

	fmt.Printf("[*] Текст озвучки: %s\n", spoken)
	fmt.Printf("[*] Длительность: %.2fs (%s) | Окно речи: %.2fs | Слов: %d (заголовок: %d)\n",
		duration, source, timeline.SpeechWindow(duration), tl.Meta.TotalWords, tl.Meta.TitleWords)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tWORD\tSTART\tEND")
	for _, wt := range tl.Words {
		fmt.Fprintf(w, "%d\t%s\t%.3f\t%.3f\n", wt.Index, wt.Word, wt.Start, wt.End)
	}
	return w.Flush()
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pbaille/calsync/internal/cache"
	"github.com/pbaille/calsync/internal/config"
	"github.com/pbaille/calsync/internal/extractor"
	"github.com/pbaille/calsync/internal/fetcher"
	"github.com/pbaille/calsync/internal/icsexport"
	"github.com/pbaille/calsync/internal/pipeline"
	"github.com/pbaille/calsync/internal/todoist"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "calsync",
		Short:        "Sync the academic calendar into a Todoist section",
		Long:         "Downloads the academic calendar PDF, extracts its events with Gemini and recreates them as Todoist tasks.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := newLogger(cfg.LogLevel)

			p := newPipeline(cfg, log)
			p.Tasks = todoist.New(cfg.TodoistAPIKey, todoist.WithBaseURL(cfg.TodoistBaseURL), todoist.WithLogger(logrus.NewEntry(log)))

			sum, err := pipeline.New(p).Run(cmd.Context())
			if err != nil {
				log.WithError(err).Error("sync failed")
				return err
			}

			fmt.Println(pipeline.SummaryLine(sum))
			return nil
		},
	}

	rootCmd.AddCommand(icsCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func icsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ics",
		Short: "Export the current semester calendar as an .ics file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Todoist settings are not needed here
			config.LoadDotEnv()
			cfg := config.FromEnv()
			log := newLogger(cfg.LogLevel)

			sum, err := pipeline.New(newPipeline(cfg, log)).Prepare(cmd.Context())
			if err != nil {
				log.WithError(err).Error("could not prepare calendar")
				return err
			}

			cal, err := cache.LoadCalendar(sum.Document.JSONPath)
			if err != nil {
				return err
			}

			skipped, err := icsexport.WriteFile(sum.Document.ICSPath, cal, time.Now())
			if err != nil {
				return err
			}
			if skipped > 0 {
				log.WithField("skipped", skipped).Warn("events without dates left out of the export")
			}

			fmt.Printf("Calendário exportado para %s\n", sum.Document.ICSPath)
			return nil
		},
	}
}

func newPipeline(cfg config.Config, log *logrus.Logger) pipeline.Options {
	entry := logrus.NewEntry(log)
	f := fetcher.New(nil, entry)

	return pipeline.Options{
		CalendarURL: cfg.CalendarURL,
		CacheDir:    cfg.CacheDir,
		SchemaFile:  cfg.SchemaFile,
		ProjectID:   cfg.TodoistProjectID,
		SectionID:   cfg.TodoistSectionID,
		Locator:     f,
		Downloader:  f,
		NewExtractor: func() (pipeline.Extractor, error) {
			return extractor.New(cfg.GeminiAPIKey,
				extractor.WithModel(cfg.GeminiModel),
				extractor.WithBaseURL(cfg.GeminiBaseURL),
				extractor.WithLogger(entry),
			)
		},
		Log: entry,
	}
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		log.WithField("level", level).Warn("unknown LOG_LEVEL, using info")
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

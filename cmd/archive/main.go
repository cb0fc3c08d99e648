package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"chat-backend/cmd"
	"chat-backend/internal/archive"
	"chat-backend/internal/config"
	"chat-backend/internal/database"

	"github.com/schollz/progressbar/v3"
)

func main() {
	cmd.LoadEnvFile()

	cfg, err := config.Parse[config.ArchiveConfig]()
	if err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	store, location, err := cmd.NewArchiveStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open archive store: %v", err)
	}

	var bar *progressbar.ProgressBar
	progress := func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("archiving transcripts"),
				progressbar.OptionSetWidth(30),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}
		_ = bar.Set(done)
	}

	archiver := archive.NewArchiver(db, store, archive.WithWorkers(cfg.Workers), archive.WithProgress(progress))

	summary, err := archiver.Run(ctx)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		log.Fatalf("Archive failed: %v", err)
	}

	log.Printf("archive %s written to %s: %d transcripts, %d users without a thread skipped", summary.RunId, location, summary.Written, summary.Skipped)
}

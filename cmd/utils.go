package cmd

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"

	"chat-backend/internal/config"
	"chat-backend/internal/messaging"
	"chat-backend/internal/seed"
	"chat-backend/internal/storage"

	"github.com/joho/godotenv"
)

func LoadEnvFile() {
	var configPath string

	flag.StringVar(&configPath, "env", "", "path to load env from")
	flag.Parse()

	if configPath == "" {
		log.Printf("no env file specified, using os.Environ only")
		return
	}

	log.Printf("loading env from file %s", configPath)
	err := godotenv.Load(configPath)
	if err != nil {
		log.Fatalf("error loading .env file '%s': %v", configPath, err)
	}
}

func LoadFixtures(path string) ([]seed.Fixture, error) {
	if path == "" {
		return seed.DefaultFixtures(), nil
	}
	slog.Info("loading seed fixtures", "path", path)
	return seed.LoadFixtures(path)
}

// NewEventPublisher publishes to RabbitMQ when rabbitMQURL is set. Otherwise
// events go to an in-memory queue drained by a worker that logs them until ctx
// is done.
func NewEventPublisher(ctx context.Context, rabbitMQURL string) (messaging.Publisher, error) {
	if rabbitMQURL != "" {
		publisher, err := messaging.NewRabbitMQPublisher(rabbitMQURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
		}
		return publisher, nil
	}

	slog.Info("RABBITMQ_URL not set, using in-memory event queue")
	queue := messaging.NewInMemoryQueue()

	worker := messaging.NewWorker(queue)
	worker.Handle(messaging.MessageEventsQueue, messaging.MessagePostedHandler(messaging.LogMessagePosted))
	go func() {
		if err := worker.Run(ctx); err != nil {
			slog.Error("in-memory event worker stopped", "error", err)
		}
	}()

	return queue, nil
}

func NewArchiveStore(ctx context.Context, cfg config.ArchiveConfig) (storage.ObjectStore, string, error) {
	if !cfg.UseS3() {
		store, err := storage.NewLocalObjectStore(cfg.ArchiveDir)
		if err != nil {
			return nil, "", err
		}
		return store, cfg.ArchiveDir, nil
	}

	if err := cfg.S3Config.Validate(); err != nil {
		return nil, "", err
	}

	store, err := storage.NewS3ObjectStore(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3EndpointURL,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
	}, cfg.S3Bucket)
	if err != nil {
		return nil, "", err
	}

	if err := store.EnsureBucket(ctx); err != nil {
		return nil, "", err
	}

	return store, "s3://" + cfg.S3Bucket, nil
}

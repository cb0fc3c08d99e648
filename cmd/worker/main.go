package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"chat-backend/cmd"
	"chat-backend/internal/config"
	"chat-backend/internal/messaging"
)

func main() {
	log.Println("Starting Worker Process...")

	cmd.LoadEnvFile()

	cfg, err := config.Parse[config.WorkerConfig]()
	if err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	receiver, err := messaging.NewRabbitMQReceiver(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer receiver.Close()

	worker := messaging.NewWorker(receiver)
	worker.Handle(messaging.MessageEventsQueue, messaging.MessagePostedHandler(messaging.LogMessagePosted))

	log.Println("Worker started. Waiting for events. Press Ctrl+C to exit.")

	if err := worker.Run(ctx); err != nil {
		log.Fatalf("Worker stopped with error: %v", err)
	}

	log.Println("Worker process stopped.")
}

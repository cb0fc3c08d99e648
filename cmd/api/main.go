package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"chat-backend/cmd"
	"chat-backend/internal/api"
	"chat-backend/internal/auth"
	"chat-backend/internal/chat"
	"chat-backend/internal/config"
	"chat-backend/internal/database"
	"chat-backend/internal/seed"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func main() {
	log.Println("Starting API Server...")

	cmd.LoadEnvFile()

	cfg, err := config.Parse[config.APIConfig]()
	if err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	fixtures, err := cmd.LoadFixtures(cfg.SeedFile)
	if err != nil {
		log.Fatalf("Failed to load seed fixtures: %v", err)
	}

	result, err := seed.Seed(ctx, db, fixtures)
	if err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	slog.Info("seed complete", "users_created", result.UsersCreated, "threads_created", result.ThreadsCreated)

	publisher, err := cmd.NewEventPublisher(ctx, cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("Failed to create event publisher: %v", err)
	}
	defer publisher.Close()

	replier, err := chat.NewRandomReplier(chat.DefaultReplies)
	if err != nil {
		log.Fatalf("Failed to create replier: %v", err)
	}

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", auth.APIKeyHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	apiHandler := api.NewBackendService(chat.NewService(db, replier, publisher))
	apiHandler.AddRoutes(r)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		<-ctx.Done()
		log.Println("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
		}
	}()

	log.Printf("API server listening on port %s", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %s: %v\n", cfg.Port, err)
	}

	log.Println("Server stopped.")
}

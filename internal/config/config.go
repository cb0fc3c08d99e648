package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type DatabaseConfig struct {
	DatabaseURL string `env:"DATABASE_URL" envDefault:"./data/chat.db"`
}

type APIConfig struct {
	DatabaseConfig

	Port           string        `env:"PORT" envDefault:"8000"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:8000"`
	SeedFile       string        `env:"SEED_FILE"`
	RabbitMQURL    string        `env:"RABBITMQ_URL"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`
}

type WorkerConfig struct {
	RabbitMQURL string `env:"RABBITMQ_URL,notEmpty,required"`
}

type S3Config struct {
	S3EndpointURL     string `env:"S3_ENDPOINT_URL"`
	S3Bucket          string `env:"S3_BUCKET"`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	S3Region          string `env:"AWS_REGION" envDefault:"us-east-1"`
}

type ArchiveConfig struct {
	DatabaseConfig
	S3Config

	ArchiveDir string `env:"ARCHIVE_DIR" envDefault:"./data/archive"`
	Workers    int    `env:"ARCHIVE_WORKERS" envDefault:"4"`
}

// UseS3 reports whether transcripts go to a bucket rather than ArchiveDir.
func (c ArchiveConfig) UseS3() bool {
	return c.S3Bucket != ""
}

// Parse fills T from the environment.
func Parse[T any]() (T, error) {
	var cfg T
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("error parsing config: %w", err)
	}
	return cfg, nil
}

func (c S3Config) Validate() error {
	if c.S3EndpointURL != "" && (c.S3AccessKeyID == "" || c.S3SecretAccessKey == "") {
		slog.Warn("S3_ENDPOINT_URL is set, but AWS_ACCESS_KEY_ID or AWS_SECRET_ACCESS_KEY are missing")
	}
	if c.S3Bucket == "" {
		return nil
	}
	if c.S3Region == "" {
		return fmt.Errorf("AWS_REGION is required when S3_BUCKET is set")
	}
	return nil
}

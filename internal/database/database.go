package database

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func isPostgresURI(uri string) bool {
	return strings.HasPrefix(uri, "postgres://") || strings.HasPrefix(uri, "postgresql://")
}

func sqliteDSN(uri string) (string, error) {
	path := strings.TrimPrefix(uri, "sqlite://")

	if !strings.Contains(path, ":memory:") {
		if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
			return "", fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Sqlite does not enforce foreign keys unless asked to on each connection.
	if strings.Contains(path, "?") {
		return path + "&_foreign_keys=on", nil
	}
	return path + "?_foreign_keys=on", nil
}

// NewDatabase opens the store named by uri and brings its schema up to date.
// postgres:// and postgresql:// URIs select Postgres, anything else is treated
// as a sqlite path (an optional sqlite:// prefix is stripped).
func NewDatabase(uri string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if isPostgresURI(uri) {
		dialector = postgres.Open(uri)
	} else {
		dsn, err := sqliteDSN(uri)
		if err != nil {
			return nil, err
		}
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if IsSQLite(db) {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sqlite connection: %w", err)
		}
		// One connection keeps in-memory databases alive and matches sqlite's
		// single writer model.
		sqlDB.SetMaxOpenConns(1)
	}

	if err := GetMigrator(db).Migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	slog.Info("database ready", "dialect", db.Dialector.Name())

	return db, nil
}

func IsSQLite(db *gorm.DB) bool {
	name := db.Dialector.Name()
	return name == "sqlite" || name == "sqlite3"
}

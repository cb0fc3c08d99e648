// Package seed makes sure a fresh database has users to talk to.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"chat-backend/internal/chat"
	"chat-backend/internal/database"

	"gopkg.in/yaml.v2"
	"gorm.io/gorm"
)

const maxNameLength = 30

//go:embed fixtures.yaml
var defaultFixturesYAML []byte

type Fixture struct {
	Name      string   `yaml:"name"`
	APIKey    string   `yaml:"api_key"`
	Greetings []string `yaml:"greetings"`
}

type fixtureFile struct {
	Users []Fixture `yaml:"users"`
}

type Result struct {
	UsersCreated   int
	ThreadsCreated int
}

func parseFixtures(data []byte) ([]Fixture, error) {
	var file fixtureFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: invalid fixture yaml: %v", chat.ErrValidation, err)
	}
	if err := validate(file.Users); err != nil {
		return nil, err
	}
	return file.Users, nil
}

// DefaultFixtures returns Alice, Bob and Charlie with their greeting messages.
func DefaultFixtures() []Fixture {
	fixtures, err := parseFixtures(defaultFixturesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded fixtures are invalid: %v", err))
	}
	return fixtures
}

func LoadFixtures(path string) ([]Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading fixture file %s: %w", path, err)
	}
	return parseFixtures(data)
}

func validate(fixtures []Fixture) error {
	if len(fixtures) == 0 {
		return fmt.Errorf("%w: at least one fixture user is required", chat.ErrValidation)
	}

	keys := make(map[string]bool, len(fixtures))
	for i, f := range fixtures {
		if f.Name == "" || len([]rune(f.Name)) > maxNameLength {
			return fmt.Errorf("%w: fixture %d: name must be 1-%d characters", chat.ErrValidation, i, maxNameLength)
		}
		if f.APIKey == "" {
			return fmt.Errorf("%w: fixture %q: api_key is required", chat.ErrValidation, f.Name)
		}
		if keys[f.APIKey] {
			return fmt.Errorf("%w: fixture %q: duplicate api_key", chat.ErrValidation, f.Name)
		}
		keys[f.APIKey] = true
	}
	return nil
}

// Seed creates the fixture users, each with a thread and its greetings, when the
// database has no users. Otherwise it only makes sure every existing user has a
// thread. Running it again changes nothing.
func Seed(ctx context.Context, db *gorm.DB, fixtures []Fixture) (Result, error) {
	if err := validate(fixtures); err != nil {
		return Result{}, err
	}

	var result Result
	err := db.WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		users, err := chat.ListUsers(ctx, txn)
		if err != nil {
			return err
		}

		if len(users) == 0 {
			slog.Info("seeding users", "count", len(fixtures))
			for _, f := range fixtures {
				if err := createFixture(ctx, txn, f); err != nil {
					return err
				}
				result.UsersCreated++
				result.ThreadsCreated++
				slog.Info("created user", "name", f.Name, "api_key", f.APIKey)
			}
			return nil
		}

		slog.Info("found existing users", "count", len(users))
		for _, user := range users {
			_, err := chat.GetThreadForUser(ctx, txn, user.ID)
			if err == nil {
				continue
			}
			if !errors.Is(err, chat.ErrNotFound) {
				return err
			}
			thread := database.Thread{UserID: user.ID, CreatedAt: chat.Timestamp(time.Now())}
			if err := txn.WithContext(ctx).Create(&thread).Error; err != nil {
				return fmt.Errorf("error creating thread for user %d: %w", user.ID, err)
			}
			result.ThreadsCreated++
			slog.Info("created thread for user", "name", user.Name)
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("error seeding database: %w", err)
	}

	return result, nil
}

func createFixture(ctx context.Context, txn *gorm.DB, f Fixture) error {
	user := database.User{Name: f.Name, APIKey: f.APIKey}
	if err := txn.WithContext(ctx).Create(&user).Error; err != nil {
		return fmt.Errorf("error creating user %s: %w", f.Name, err)
	}

	now := chat.Timestamp(time.Now())
	thread, err := chat.GetOrCreateThread(ctx, txn, user.ID, now)
	if err != nil {
		return err
	}

	for _, greeting := range f.Greetings {
		msg := database.Message{ThreadID: thread.ID, Content: greeting, IsFromUser: false, CreatedAt: now}
		if err := chat.CreateMessage(ctx, txn, &msg); err != nil {
			return err
		}
	}

	return nil
}

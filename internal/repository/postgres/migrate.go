package postgres

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/pressly/goose/v3"

	"github.com/andresuchdata/stockcast/backend-go/pkg/logger"
)

//go:embed migrations/postgres/*.sql migrations/sqlite3/*.sql
var migrationsFS embed.FS

// goose keeps its dialect and filesystem in package globals.
var gooseMu sync.Mutex

// Migrate runs a goose command ("up", "down", "status", ...) against the
// embedded migrations matching the pool's driver.
func Migrate(ctx context.Context, db *DB, command string, args ...string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}

	dialect, dir := "postgres", "migrations/postgres"
	if db.IsSQLite() {
		dialect, dir = "sqlite3", "migrations/sqlite3"
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetLogger(gooseLogger{})
	goose.SetBaseFS(migrationsFS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.RunContext(ctx, command, db.DB.DB, dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...interface{}) {
	logger.Log.Info().Str("component", "migrate").Msgf(strings.TrimSpace(format), v...)
}

func (gooseLogger) Fatalf(format string, v ...interface{}) {
	logger.Log.Fatal().Str("component", "migrate").Msgf(strings.TrimSpace(format), v...)
}

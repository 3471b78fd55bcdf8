package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/stockcast/backend-go/internal/app"
	"github.com/andresuchdata/stockcast/backend-go/internal/config"
	"github.com/andresuchdata/stockcast/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/stockcast/backend-go/pkg/logger"
)

type appKey struct{}

func dbFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "db-url",
			Usage:   "Postgres connection string (pgx driver)",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.StringFlag{
			Name:    "sqlite",
			Usage:   "Path to a SQLite database file, used instead of --db-url",
			EnvVars: []string{"SQLITE_PATH"},
		},
	}
}

func userFlag() *cli.Int64Flag {
	return &cli.Int64Flag{Name: "user", Aliases: []string{"u"}, Usage: "Owning user ID", Required: true}
}

func openDB(c *cli.Context, cfg *config.Config) (*postgres.DB, error) {
	switch {
	case c.String("sqlite") != "":
		return postgres.OpenSQLite(c.String("sqlite"))
	case c.String("db-url") != "":
		return postgres.Open("pgx", c.String("db-url"), cfg.Database.MaxConcurrentTx)
	default:
		return postgres.NewDB(&cfg.Database)
	}
}

// initApp opens the database and builds the services for the command.
func initApp(c *cli.Context) error {
	cfg := config.Load()

	db, err := openDB(c, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(c.Context); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if c.Command.Name != "migrate" {
		if err := postgres.Migrate(c.Context, db, "up"); err != nil {
			db.Close()
			return err
		}
	}

	a, err := app.New(c.Context, cfg, db)
	if err != nil {
		db.Close()
		return err
	}

	c.Context = context.WithValue(c.Context, appKey{}, a)
	return nil
}

func closeApp(c *cli.Context) error {
	a, ok := c.Context.Value(appKey{}).(*app.App)
	if !ok || a == nil {
		return nil
	}
	return errors.Join(a.Close(), a.DB.Close())
}

func appFrom(c *cli.Context) *app.App {
	return c.Context.Value(appKey{}).(*app.App)
}

func main() {
	cliApp := &cli.App{
		Name:  "forecastctl",
		Usage: "Operate the stockcast sales and forecast store",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Value: "info", EnvVars: []string{"LOG_LEVEL"}},
		},
		Before: func(c *cli.Context) error {
			logger.SetLevel(c.String("log-level"))
			return nil
		},
		Commands: []*cli.Command{
			migrateCommand(),
			ingestCommand(),
			forecastCommand(),
			exportCommand(),
			driveImportCommand(),
			archiveCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		logger.Log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

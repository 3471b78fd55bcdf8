package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/stockcast/backend-go/internal/export"
	"github.com/andresuchdata/stockcast/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/stockcast/backend-go/internal/service"
	"github.com/andresuchdata/stockcast/backend-go/pkg/logger"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:      "migrate",
		Usage:     "Run goose migrations (up, down, status, version, reset)",
		ArgsUsage: "[command]",
		Flags:     dbFlags(),
		Before:    initApp,
		After:     closeApp,
		Action: func(c *cli.Context) error {
			command := c.Args().First()
			if command == "" {
				command = "up"
			}
			return postgres.Migrate(c.Context, appFrom(c).DB, command, c.Args().Tail()...)
		},
	}
}

func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "Ingest one or more sales files for a user",
		ArgsUsage: "FILE...",
		Flags: append(dbFlags(),
			userFlag(),
			&cli.StringFlag{Name: "separator", Usage: "Field separator; detected when empty"},
			&cli.StringFlag{Name: "encoding", Usage: "utf-8 or windows-1251; detected when empty"},
			&cli.StringFlag{Name: "schema", Value: "auto", Usage: "auto, flexible or fixed"},
		),
		Before: initApp,
		After:  closeApp,
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return cli.Exit("at least one file is required", 2)
			}

			var failed int
			for _, path := range c.Args().Slice() {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}

				summary, err := appFrom(c).Ingest.Ingest(c.Context, service.UploadRequest{
					UserID:    c.Int64("user"),
					Filename:  filepath.Base(path),
					Data:      data,
					Separator: c.String("separator"),
					Encoding:  c.String("encoding"),
					Schema:    c.String("schema"),
				})
				if err != nil {
					failed++
					logger.Log.Error().Err(err).Str("file", path).Msg("ingest failed")
					continue
				}
				if err := printJSON(c, summary); err != nil {
					return err
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, c.NArg())
			}
			return nil
		},
	}
}

func forecastCommand() *cli.Command {
	return &cli.Command{
		Name:   "forecast",
		Usage:  "Refit and store forecasts for every product of a user",
		Flags:  append(dbFlags(), userFlag()),
		Before: initApp,
		After:  closeApp,
		Action: func(c *cli.Context) error {
			report, err := appFrom(c).Analytics.RunForecasts(c.Context, c.Int64("user"))
			if err != nil {
				return err
			}
			return printJSON(c, report)
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write the purchase recommendation workbook for a user",
		Flags: append(dbFlags(),
			userFlag(),
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output .xlsx path", Required: true},
		),
		Before: initApp,
		After:  closeApp,
		Action: func(c *cli.Context) error {
			rows, err := appFrom(c).Analytics.ExportRows(c.Context, c.Int64("user"))
			if err != nil {
				return err
			}

			out, err := os.Create(c.String("out"))
			if err != nil {
				return fmt.Errorf("create %s: %w", c.String("out"), err)
			}
			defer out.Close()

			if err := export.WriteRecommendations(out, rows); err != nil {
				return err
			}
			logger.Log.Info().Int("products", len(rows)).Str("path", c.String("out")).Msg("export written")
			return nil
		},
	}
}

func driveImportCommand() *cli.Command {
	return &cli.Command{
		Name:  "drive-import",
		Usage: "Ingest every CSV and XLSX file of a Google Drive folder",
		Flags: append(dbFlags(),
			userFlag(),
			&cli.StringFlag{Name: "folder", Usage: "Drive folder ID; defaults to GOOGLE_DRIVE_FOLDER_ID"},
		),
		Before: initApp,
		After:  closeApp,
		Action: func(c *cli.Context) error {
			importer := appFrom(c).Importer
			if importer == nil {
				return errors.New("drive import is not configured: set GOOGLE_DRIVE_CREDENTIALS_JSON")
			}
			report, err := importer.Import(c.Context, c.Int64("user"), c.String("folder"))
			if err != nil {
				return err
			}
			return printJSON(c, report)
		},
	}
}

func archiveCommand() *cli.Command {
	return &cli.Command{
		Name:  "archive",
		Usage: "Inspect archived uploads in object storage",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List archived uploads of a user",
				Flags:  append(dbFlags(), userFlag()),
				Before: initApp,
				After:  closeApp,
				Action: func(c *cli.Context) error {
					objects, err := appFrom(c).Archive.List(c.Context, c.Int64("user"))
					if err != nil {
						return err
					}
					return printJSON(c, objects)
				},
			},
			{
				Name:      "fetch",
				Usage:     "Download one archived upload",
				ArgsUsage: "KEY",
				Flags: append(dbFlags(),
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Destination path"},
				),
				Before: initApp,
				After:  closeApp,
				Action: func(c *cli.Context) error {
					key := c.Args().First()
					if key == "" {
						return cli.Exit("archive key is required", 2)
					}
					dest := c.String("out")
					if dest == "" {
						dest = filepath.Base(key)
					}
					if err := appFrom(c).Archive.Fetch(c.Context, key, dest); err != nil {
						return err
					}
					logger.Log.Info().Str("key", key).Str("path", dest).Msg("archive fetched")
					return nil
				},
			},
		},
	}
}

func printJSON(c *cli.Context, v interface{}) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

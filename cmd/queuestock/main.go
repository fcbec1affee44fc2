package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/inventory-queue/internal/app"
	"github.com/andresuchdata/inventory-queue/internal/config"
	"github.com/andresuchdata/inventory-queue/internal/storage"
	"github.com/andresuchdata/inventory-queue/pkg/logger"
)

type contextKey string

const appKey contextKey = "app"

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "db-url",
		Usage:   "Postgres connection string (pgx driver)",
		EnvVars: []string{"DATABASE_URL"},
	}
}

func sourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			Usage:   "Path to the SQLite transaction log",
			EnvVars: []string{"SOURCE_SQLITE_PATH"},
		},
		&cli.StringFlag{
			Name:    "driver",
			Usage:   "Transaction source driver (sqlite3, postgres, pgx)",
			EnvVars: []string{"SOURCE_DRIVER"},
		},
		newDBURLFlag(),
		&cli.StringFlag{
			Name:  "policy",
			Usage: "Shortfall policy (decline_whole, clamp_to_zero)",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Print JSON instead of a table",
		},
	}
}

// loadConfig applies command line overrides on top of the environment configuration.
func loadConfig(c *cli.Context) *config.Config {
	cfg := *config.Load()

	if v := c.String("db"); v != "" {
		cfg.Source.SQLitePath = v
	}
	if v := c.String("driver"); v != "" {
		cfg.Source.Driver = v
	}
	if v := c.String("db-url"); v != "" {
		cfg.Source.URL = v
		if c.String("driver") == "" && cfg.Source.Driver == "sqlite3" {
			cfg.Source.Driver = "pgx"
		}
	}
	if v := c.String("policy"); v != "" {
		cfg.Ledger.ShortfallPolicy = v
	}
	return &cfg
}

func initApp(c *cli.Context) error {
	a, err := app.New(loadConfig(c))
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}

	// Store the application in the context
	c.Context = context.WithValue(c.Context, appKey, a)
	return nil
}

func closeApp(c *cli.Context) error {
	if a, ok := c.Context.Value(appKey).(*app.App); ok && a != nil {
		return a.Close()
	}
	return nil
}

func appFrom(c *cli.Context) (*app.App, error) {
	a, ok := c.Context.Value(appKey).(*app.App)
	if !ok || a == nil {
		return nil, fmt.Errorf("application not initialized")
	}
	return a, nil
}

func newStorageClient() (storage.ObjectStorage, config.StorageConfig, error) {
	cfg := config.Load().Storage
	client, err := storage.NewMinioClient(cfg)
	if err != nil {
		return nil, cfg, err
	}
	return client, cfg, nil
}

func main() {
	cliApp := &cli.App{
		Name:  "queuestock",
		Usage: "Replay the inventory queue log, recommend restocks and size stations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level",
				Value:   "info",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (console, json)",
				Value:   "console",
				EnvVars: []string{"LOG_FORMAT"},
			},
		},
		Before: func(c *cli.Context) error {
			logger.Configure(c.String("log-format"), c.String("log-level"))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "inventory",
				Usage:  "Replay the log and print remaining stock and order counts",
				Flags:  sourceFlags(),
				Before: initApp,
				After:  closeApp,
				Action: runInventory,
			},
			{
				Name:  "restock",
				Usage: "Recommend restock quantities from forecast demand",
				Flags: append(sourceFlags(),
					&cli.IntFlag{
						Name:  "horizon",
						Usage: "Number of months to cover",
					},
				),
				Before: initApp,
				After:  closeApp,
				Action: runRestock,
			},
			{
				Name:   "stations",
				Usage:  "Size the station pool for the configured queue time targets",
				Flags:  append(sourceFlags(), stationFlags()...),
				Before: initApp,
				After:  closeApp,
				Action: runStations,
			},
			{
				Name:  "snapshot",
				Usage: "Manage transaction log snapshots in object storage",
				Subcommands: []*cli.Command{
					{
						Name:  "fetch",
						Usage: "Download log snapshots from object storage",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:    "prefix",
								Usage:   "Object key prefix",
								Value:   "snapshots/",
								EnvVars: []string{"STORAGE_SNAPSHOT_PREFIX"},
							},
							&cli.StringFlag{
								Name:  "key",
								Usage: "Download a single object instead of the whole prefix",
							},
							&cli.StringFlag{
								Name:    "dest",
								Usage:   "Local download directory",
								EnvVars: []string{"STORAGE_DOWNLOAD_DIR"},
							},
						},
						Action: runSnapshotFetch,
					},
				},
			},
			{
				Name:  "cache",
				Usage: "Manage the ledger report cache",
				Subcommands: []*cli.Command{
					{
						Name:   "clear",
						Usage:  "Drop every cached ledger report",
						Action: runCacheClear,
					},
				},
			},
			{
				Name:  "report",
				Usage: "Export ledger and restock reports",
				Subcommands: []*cli.Command{
					{
						Name:  "upload",
						Usage: "Build the CSV report and upload it to object storage",
						Flags: append(sourceFlags(),
							&cli.StringFlag{
								Name:    "prefix",
								Usage:   "Object key prefix",
								Value:   "reports/",
								EnvVars: []string{"STORAGE_REPORT_PREFIX"},
							},
							&cli.StringFlag{
								Name:  "key",
								Usage: "Object key of the report (default: inventory-<date>.csv)",
							},
							&cli.StringFlag{
								Name:  "out",
								Usage: "Also write the report to this local file",
							},
							&cli.IntFlag{
								Name:  "horizon",
								Usage: "Number of months the restock column covers",
							},
						),
						Before: initApp,
						After:  closeApp,
						Action: runReportUpload,
					},
				},
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("queuestock failed")
	}
}

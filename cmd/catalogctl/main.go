// Package main provides catalogctl, the catalog maintenance tool.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v3"
	"gorm.io/gorm"

	"github.com/icco/catalog/lib/catalog"
	"github.com/icco/catalog/lib/config"
	"github.com/icco/catalog/lib/db"
	"github.com/icco/catalog/lib/lock"
	"github.com/icco/catalog/lib/logging"
	"github.com/icco/catalog/lib/remote"
	"github.com/icco/catalog/lib/syncer"
)

var version = "dev"

var errUsage = errors.New("usage: availability on|off")

func main() {
	app := &cli.Command{
		Name:    "catalogctl",
		Version: version,
		Usage:   "Inspect and refresh the movie catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "dotenv file to load",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:    "lock-dir",
				Usage:   "directory of the sync lock files",
				Sources: cli.EnvVars("CATALOG_LOCK_DIR"),
			},
		},
		Commands: []*cli.Command{
			statsCommand(),
			syncCommand(),
			availabilityCommand(),
			historyCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// env is what every command needs.
type env struct {
	cfg      *config.Config
	logger   *slog.Logger
	db       *gorm.DB
	settings *db.Settings
}

func open(ctx context.Context, cmd *cli.Command) (*env, error) {
	cfg, err := config.Load(cmd.String("env-file"))
	if err != nil {
		return nil, err
	}
	// Logs go to stderr so stdout stays machine readable.
	logger := logging.NewWithWriter(os.Stderr, cfg.LogLevel)
	gdb, err := db.Open(ctx, cfg.DBPath, logger)
	if err != nil {
		return nil, err
	}
	settings := db.NewSettings(gdb, logger)
	if err := settings.Seed(ctx, map[string]string{
		db.KeyServiceAvailable: cfg.ServiceAvailable,
		db.KeySessionToken:     cfg.SessionToken,
	}); err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, db: gdb, settings: settings}, nil
}

func (e *env) catalog(ctx context.Context) (*catalog.Catalog, error) {
	opts := catalog.Options{Availability: e.settings, Logger: e.logger}
	if e.cfg.RemoteEnabled() {
		opts.Remote = remote.NewClient(e.cfg.CatalogAPIURL, e.cfg.CatalogAPIPageSize, e.cfg.CatalogAPITimeout, e.settings, e.logger)
	}
	c, err := catalog.New(opts)
	if err != nil {
		return nil, err
	}
	c.Initialize(ctx)
	return c, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Print catalog statistics",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := open(ctx, cmd)
			if err != nil {
				return err
			}
			c, err := e.catalog(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.Root().Writer, c.Stats())
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:      "sync",
		Usage:     "Refresh one collection, or all of them, from the remote catalog",
		ArgsUsage: "[entity]",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "stale-lock",
				Usage: "age after which a held lock is considered abandoned",
				Value: 10 * time.Minute,
			},
		},
		Action: runSync,
	}
}

func runSync(ctx context.Context, cmd *cli.Command) error {
	e, err := open(ctx, cmd)
	if err != nil {
		return err
	}
	c, err := e.catalog(ctx)
	if err != nil {
		return err
	}

	orch := syncer.New(lock.NewFileLock(cmd.String("lock-dir"), cmd.Duration("stale-lock"), e.logger), e.logger)
	for _, target := range c.Targets() {
		orch.Register(target)
	}
	orch.SetRecorder(db.NewHistory(e.db))

	out := cmd.Root().Writer
	if cmd.NArg() == 0 {
		reports, err := orch.SyncAll(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, reports)
	}

	report, started, err := orch.Sync(ctx, cmd.Args().First())
	if err != nil {
		return err
	}
	if !started {
		return fmt.Errorf("sync of %s is already running", report.Target)
	}
	if err := printJSON(out, report); err != nil {
		return err
	}
	if report.Status == syncer.StatusFailed {
		return errors.New(report.Message)
	}
	return nil
}

func availabilityCommand() *cli.Command {
	return &cli.Command{
		Name:      "availability",
		Usage:     "Show or set whether the remote catalog is used",
		ArgsUsage: "[on|off]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := open(ctx, cmd)
			if err != nil {
				return err
			}
			switch cmd.Args().First() {
			case "":
			case "on":
				err = e.settings.SetServiceAvailable(ctx, true)
			case "off":
				err = e.settings.SetServiceAvailable(ctx, false)
			default:
				return errUsage
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.Root().Writer, map[string]bool{"available": e.settings.ServiceAvailable(ctx)})
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:      "history",
		Usage:     "Print recent sync runs",
		ArgsUsage: "[entity]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "number of runs to print",
				Value:   20,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := open(ctx, cmd)
			if err != nil {
				return err
			}
			runs, err := db.NewHistory(e.db).Recent(ctx, cmd.Args().First(), int(cmd.Int("limit")))
			if err != nil {
				return err
			}
			return printJSON(cmd.Root().Writer, runs)
		},
	}
}

package main

import (
	"fmt"

	"github.com/alejandrodnm/arrivalmarket/internal/adapters/notify"
	"github.com/alejandrodnm/arrivalmarket/internal/adapters/storage"
	"github.com/urfave/cli/v2"
)

var historyCmd = &cli.Command{
	Name:    "history",
	Usage:   "List stored runs or show one in full",
	Aliases: []string{"h"},
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "id", Usage: "run ID to show in full"},
		&cli.IntFlag{Name: "limit", Value: 20, Usage: "max runs to list"},
	},
	Action: func(ctx *cli.Context) error {
		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}

		store, err := storage.Open(ctx.Context, cfg.Storage.DSN)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer store.Close()

		reporter := notify.NewConsole(cfg.Report.Rows, notify.Labels{
			Buyers:  cfg.Labels.Buyers,
			Sellers: cfg.Labels.Sellers,
		})

		if id := ctx.String("id"); id != "" {
			run, err := store.GetRun(ctx.Context, id)
			if err != nil {
				return err
			}
			return reporter.ReportRun(run)
		}

		runs, err := store.ListRuns(ctx.Context, ctx.Int("limit"))
		if err != nil {
			return err
		}
		return reporter.ReportRuns(runs)
	},
}

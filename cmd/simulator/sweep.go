package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/arrivalmarket/internal/adapters/notify"
	"github.com/alejandrodnm/arrivalmarket/internal/application/market"
	"github.com/alejandrodnm/arrivalmarket/internal/domain"
	"github.com/urfave/cli/v2"
)

var sweepCmd = &cli.Command{
	Name:    "sweep",
	Usage:   "Run consecutive seeds in parallel and list their summaries",
	Aliases: []string{"s"},
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "runs", Value: 10, Usage: "number of seeds to run, starting at the configured seed"},
		&cli.IntFlag{Name: "workers", Usage: "parallel simulations (default: NumCPU)"},
		&cli.Float64Flag{Name: "horizon", Usage: "simulated time to run (overrides config)"},
		&cli.Float64Flag{Name: "buyer-rate", Usage: "buyer arrivals per time unit (overrides config)"},
		&cli.Float64Flag{Name: "seller-rate", Usage: "seller arrivals per time unit (overrides config)"},
		&cli.StringFlag{Name: "strategy", Usage: "clearing strategy: linear|binary (overrides config)"},
		&cli.Uint64Flag{Name: "seed", Usage: "first seed (overrides config)"},
		&cli.BoolFlag{Name: "no-store", Usage: "do not persist the runs"},
	},
	Action: func(ctx *cli.Context) error {
		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		applyRunFlags(ctx, cfg)

		n := ctx.Int("runs")
		if n <= 0 {
			return fmt.Errorf("--runs must be positive, got %d", n)
		}
		mcfg, err := marketConfig(cfg)
		if err != nil {
			return err
		}

		seeds := make([]uint64, n)
		for i := range seeds {
			seeds[i] = cfg.Market.Seed + uint64(i)
		}

		started := time.Now().UTC()
		results, err := market.Sweep(ctx.Context, mcfg, seeds, ctx.Int("workers"), generators(cfg))
		if err != nil {
			return err
		}

		runs := make([]*domain.RunRecord, len(results))
		summaries := make([]domain.RunRecord, len(results))
		for i, r := range results {
			runs[i] = newRecord(mcfg, r.Seed, started, r.Result)
			summaries[i] = *runs[i]
		}
		slog.Info("sweep finished",
			"runs", n,
			"elapsed", time.Since(started).Round(time.Millisecond),
		)

		if !ctx.Bool("no-store") {
			if err := persist(ctx.Context, cfg.Storage.DSN, runs...); err != nil {
				return err
			}
		}

		reporter := notify.NewConsole(cfg.Report.Rows, notify.Labels{
			Buyers:  cfg.Labels.Buyers,
			Sellers: cfg.Labels.Sellers,
		})
		return reporter.ReportRuns(summaries)
	},
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/alejandrodnm/arrivalmarket/config"
	"github.com/alejandrodnm/arrivalmarket/internal/adapters/notify"
	"github.com/alejandrodnm/arrivalmarket/internal/adapters/storage"
	"github.com/alejandrodnm/arrivalmarket/internal/adapters/valuation"
	"github.com/alejandrodnm/arrivalmarket/internal/application/market"
	"github.com/alejandrodnm/arrivalmarket/internal/domain"
	"github.com/alejandrodnm/arrivalmarket/internal/ports"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
)

var runCmd = &cli.Command{
	Name:    "run",
	Usage:   "Run a seeded arrival market simulation",
	Aliases: []string{"r"},
	Flags: []cli.Flag{
		&cli.Uint64Flag{Name: "seed", Usage: "random seed (overrides config)"},
		&cli.Float64Flag{Name: "horizon", Usage: "simulated time to run (overrides config)"},
		&cli.Float64Flag{Name: "buyer-rate", Usage: "buyer arrivals per time unit (overrides config)"},
		&cli.Float64Flag{Name: "seller-rate", Usage: "seller arrivals per time unit (overrides config)"},
		&cli.StringFlag{Name: "strategy", Usage: "clearing strategy: linear|binary (overrides config)"},
		&cli.BoolFlag{Name: "no-store", Usage: "do not persist the run"},
		&cli.IntFlag{Name: "rows", Usage: "history rows to print (overrides config)"},
	},
	Action: func(ctx *cli.Context) error {
		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		applyRunFlags(ctx, cfg)

		run, err := simulate(cfg)
		if err != nil {
			return err
		}

		if !ctx.Bool("no-store") {
			if err := persist(ctx.Context, cfg.Storage.DSN, run); err != nil {
				return err
			}
		}

		reporter := notify.NewConsole(cfg.Report.Rows, notify.Labels{
			Buyers:  cfg.Labels.Buyers,
			Sellers: cfg.Labels.Sellers,
		})
		return reporter.ReportRun(*run)
	},
}

func applyRunFlags(ctx *cli.Context, cfg *config.Config) {
	if ctx.IsSet("seed") {
		cfg.Market.Seed = ctx.Uint64("seed")
	}
	if ctx.IsSet("horizon") {
		cfg.Market.Horizon = ctx.Float64("horizon")
	}
	if ctx.IsSet("buyer-rate") {
		cfg.Market.BuyerRate = ctx.Float64("buyer-rate")
	}
	if ctx.IsSet("seller-rate") {
		cfg.Market.SellerRate = ctx.Float64("seller-rate")
	}
	if ctx.IsSet("strategy") {
		cfg.Market.Strategy = ctx.String("strategy")
	}
	if ctx.IsSet("rows") {
		cfg.Report.Rows = ctx.Int("rows")
	}
}

// marketConfig traduce la sección market de la config al engine.
func marketConfig(cfg *config.Config) (market.Config, error) {
	strategy, err := domain.ParseStrategy(cfg.Market.Strategy)
	if err != nil {
		return market.Config{}, err
	}
	return market.Config{
		BuyerRate:            cfg.Market.BuyerRate,
		SellerRate:           cfg.Market.SellerRate,
		Horizon:              cfg.Market.Horizon,
		Strategy:             strategy,
		FallbackOnDuplicates: cfg.FallbackEnabled(),
	}, nil
}

func generatorSpec(g config.GeneratorConfig) valuation.Spec {
	return valuation.Spec{
		Kind:   g.Kind,
		Min:    g.Min,
		Max:    g.Max,
		Mean:   g.Mean,
		StdDev: g.StdDev,
		Mu:     g.Mu,
		Sigma:  g.Sigma,
		Value:  g.Value,
		Values: g.Values,
		Cycle:  g.Cycle,
	}
}

// generators construye los generadores de valuaciones y la fuente de
// llegadas de una semilla, cada uno en su propio stream.
func generators(cfg *config.Config) market.Factory {
	return func(seed uint64) (ports.ValuationGenerator, ports.ValuationGenerator, *rand.Rand, error) {
		buyers, err := valuation.New(generatorSpec(cfg.Buyers), valuation.NewRand(seed, valuation.StreamBuyers))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("buyers generator: %w", err)
		}
		sellers, err := valuation.New(generatorSpec(cfg.Sellers), valuation.NewRand(seed, valuation.StreamSellers))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("sellers generator: %w", err)
		}
		return buyers, sellers, valuation.NewRand(seed, valuation.StreamArrivals), nil
	}
}

// simulate ejecuta una simulación completa y devuelve el RunRecord listo
// para guardar y reportar.
func simulate(cfg *config.Config) (*domain.RunRecord, error) {
	mcfg, err := marketConfig(cfg)
	if err != nil {
		return nil, err
	}
	seed := cfg.Market.Seed

	buyers, sellers, arrivals, err := generators(cfg)(seed)
	if err != nil {
		return nil, err
	}

	slog.Info("simulation starting",
		"seed", seed,
		"horizon", mcfg.Horizon,
		"buyer_rate", mcfg.BuyerRate,
		"seller_rate", mcfg.SellerRate,
		"strategy", mcfg.Strategy,
	)

	started := time.Now().UTC()
	res, err := market.Run(mcfg, buyers, sellers, arrivals)
	if err != nil {
		return nil, err
	}
	run := newRecord(mcfg, seed, started, res)

	slog.Info("simulation finished",
		"run_id", run.ID,
		"elapsed", time.Since(started).Round(time.Millisecond),
		"clearings", run.Stats.Clearings,
		"matched", run.Stats.Matched,
	)
	return run, nil
}

func newRecord(mcfg market.Config, seed uint64, started time.Time, res *market.Result) *domain.RunRecord {
	run := &domain.RunRecord{
		ID:        uuid.New().String(),
		StartedAt: started,
		Params: domain.RunParams{
			Seed:       seed,
			BuyerRate:  mcfg.BuyerRate,
			SellerRate: mcfg.SellerRate,
			Horizon:    mcfg.Horizon,
			Strategy:   mcfg.Strategy,
		},
		Stats: domain.RunStats{
			BuyerArrivals:  res.BuyerArrivals,
			SellerArrivals: res.SellerArrivals,
		},
		History: res.History,
		Matches: res.Matches,
	}
	run.ComputeStats()
	return run
}

func persist(ctx context.Context, dsn string, runs ...*domain.RunRecord) error {
	store, err := storage.Open(ctx, dsn)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	for _, run := range runs {
		if err := store.SaveRun(ctx, *run); err != nil {
			return fmt.Errorf("save run %s: %w", run.ID, err)
		}
		slog.Info("run saved", "run_id", run.ID, "dsn", dsn)
	}
	return nil
}

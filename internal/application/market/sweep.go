package market

// sweep.go: corre muchas semillas en paralelo con un pool de workers.
//
// Cada simulación es independiente (su propio Engine, generadores y fuente
// de llegadas), así que no hay estado compartido entre workers.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime"

	"github.com/alejandrodnm/arrivalmarket/internal/ports"
	"golang.org/x/sync/errgroup"
)

// Factory construye los generadores y la fuente de llegadas para una semilla.
type Factory func(seed uint64) (buyers, sellers ports.ValuationGenerator, arrivals *rand.Rand, err error)

// SweepResult es el resultado de una semilla.
type SweepResult struct {
	Seed   uint64
	Result *Result
}

// Sweep ejecuta una simulación por semilla usando hasta workers goroutines.
// Los resultados se devuelven en el mismo orden que seeds. El primer error
// cancela las simulaciones pendientes.
//
// Si workers <= 0 usa runtime.NumCPU().
func Sweep(ctx context.Context, cfg Config, seeds []uint64, workers int, build Factory) ([]SweepResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("market.Sweep: %w", err)
	}
	if build == nil {
		return nil, errors.New("market.Sweep: nil factory")
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	out := make([]SweepResult, len(seeds))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, seed := range seeds {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			buyers, sellers, arrivals, err := build(seed)
			if err != nil {
				return fmt.Errorf("market.Sweep: seed %d: %w", seed, err)
			}
			res, err := Run(cfg, buyers, sellers, arrivals)
			if err != nil {
				return fmt.Errorf("market.Sweep: seed %d: %w", seed, err)
			}
			out[i] = SweepResult{Seed: seed, Result: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.Debug("sweep complete", "seeds", len(seeds), "workers", workers)
	return out, nil
}

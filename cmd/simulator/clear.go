package main

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"

	"github.com/alejandrodnm/arrivalmarket/internal/adapters/notify"
	"github.com/alejandrodnm/arrivalmarket/internal/adapters/valuation"
	"github.com/alejandrodnm/arrivalmarket/internal/clearing"
	"github.com/alejandrodnm/arrivalmarket/internal/domain"
	"github.com/urfave/cli/v2"
)

var clearCmd = &cli.Command{
	Name:    "clear",
	Usage:   "Compute the clearing interval and midpoint for fixed pools",
	Aliases: []string{"c"},
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "buyers", Usage: "comma separated buyer valuations, e.g. 10,8,5"},
		&cli.StringFlag{Name: "sellers", Usage: "comma separated seller valuations, e.g. 3,6,9"},
		&cli.StringFlag{Name: "strategy", Value: "linear", Usage: "clearing strategy: linear|binary"},
		&cli.BoolFlag{Name: "random", Usage: "draw 1-4 uniform valuations per side instead"},
		&cli.Uint64Flag{Name: "seed", Usage: "seed for --random"},
	},
	Action: func(ctx *cli.Context) error {
		if _, err := loadConfig(ctx); err != nil {
			return err
		}
		strategy, err := domain.ParseStrategy(ctx.String("strategy"))
		if err != nil {
			return err
		}

		var buyers, sellers []float64
		if ctx.Bool("random") {
			buyers, sellers = randomPools(ctx.Uint64("seed"))
			fmt.Println("seed:", ctx.Uint64("seed"))
		} else {
			if buyers, err = parseValues(ctx.String("buyers")); err != nil {
				return fmt.Errorf("--buyers: %w", err)
			}
			if sellers, err = parseValues(ctx.String("sellers")); err != nil {
				return fmt.Errorf("--sellers: %w", err)
			}
		}

		ci, clearErr := clearing.Clear(buyers, sellers, strategy)
		if clearErr != nil && !errors.Is(clearErr, domain.ErrNoSolution) {
			return clearErr
		}
		return notify.NewConsole(0, notify.DefaultLabels()).ReportClearing(buyers, sellers, strategy, ci, clearErr)
	},
}

// parseValues lee una lista "10, 8,5". Una lista vacía es válida.
func parseValues(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("parse valuation %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// randomPools genera entre 1 y 4 valuaciones uniformes en [0,1) por lado,
// ordenadas de más fuerte a más débil.
func randomPools(seed uint64) (buyers, sellers []float64) {
	bRng := valuation.NewRand(seed, valuation.StreamBuyers)
	sRng := valuation.NewRand(seed, valuation.StreamSellers)
	buyers = drawPool(bRng)
	sellers = drawPool(sRng)
	slices.Sort(buyers)
	slices.Reverse(buyers)
	slices.Sort(sellers)
	return buyers, sellers
}

func drawPool(rng *rand.Rand) []float64 {
	out := make([]float64, 1+rng.IntN(4))
	for i := range out {
		out[i] = rng.Float64()
	}
	return out
}

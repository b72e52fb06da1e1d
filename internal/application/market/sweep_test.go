package market_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/alejandrodnm/arrivalmarket/internal/adapters/valuation"
	"github.com/alejandrodnm/arrivalmarket/internal/application/market"
	"github.com/alejandrodnm/arrivalmarket/internal/domain"
	"github.com/alejandrodnm/arrivalmarket/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniformFactory(seed uint64) (ports.ValuationGenerator, ports.ValuationGenerator, *rand.Rand, error) {
	b, s := uniformGens(seed)
	return b, s, valuation.NewRand(seed, valuation.StreamArrivals), nil
}

func TestSweep_MatchesSequentialRuns(t *testing.T) {
	cfg := market.DefaultConfig()
	cfg.Horizon = 30
	seeds := []uint64{1, 2, 3, 4, 5, 6}

	got, err := market.Sweep(context.Background(), cfg, seeds, 3, uniformFactory)
	require.NoError(t, err)
	require.Len(t, got, len(seeds))

	for i, seed := range seeds {
		assert.Equal(t, seed, got[i].Seed)
		want := runSeed(t, cfg, seed)
		assert.Equal(t, want.History, got[i].Result.History, "seed %d", seed)
		assert.Equal(t, want.Matches, got[i].Result.Matches, "seed %d", seed)
	}
}

func TestSweep_FactoryError(t *testing.T) {
	boom := errors.New("no generator")
	build := func(seed uint64) (ports.ValuationGenerator, ports.ValuationGenerator, *rand.Rand, error) {
		if seed == 3 {
			return nil, nil, nil, boom
		}
		return uniformFactory(seed)
	}

	_, err := market.Sweep(context.Background(), market.DefaultConfig(), []uint64{1, 2, 3}, 0, build)
	assert.ErrorIs(t, err, boom)
}

func TestSweep_InvalidConfig(t *testing.T) {
	cfg := market.DefaultConfig()
	cfg.Horizon = -1
	_, err := market.Sweep(context.Background(), cfg, []uint64{1}, 1, uniformFactory)
	assert.ErrorIs(t, err, domain.ErrInvalidHorizon)

	_, err = market.Sweep(context.Background(), market.DefaultConfig(), []uint64{1}, 1, nil)
	assert.Error(t, err)
}

func TestSweep_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := market.Sweep(ctx, market.DefaultConfig(), []uint64{1, 2}, 1, uniformFactory)
	assert.ErrorIs(t, err, context.Canceled)
}

package market_test

import (
	"errors"
	"math"
	"testing"

	"github.com/alejandrodnm/arrivalmarket/internal/adapters/valuation"
	"github.com/alejandrodnm/arrivalmarket/internal/application/market"
	"github.com/alejandrodnm/arrivalmarket/internal/domain"
	"github.com/alejandrodnm/arrivalmarket/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniformGens(seed uint64) (ports.ValuationGenerator, ports.ValuationGenerator) {
	b := valuation.NewUniform(0, 100, valuation.NewRand(seed, valuation.StreamBuyers))
	s := valuation.NewUniform(0, 100, valuation.NewRand(seed, valuation.StreamSellers))
	return b, s
}

func runSeed(t *testing.T, cfg market.Config, seed uint64) *market.Result {
	t.Helper()
	b, s := uniformGens(seed)
	res, err := market.Run(cfg, b, s, valuation.NewRand(seed, valuation.StreamArrivals))
	require.NoError(t, err)
	return res
}

func TestRun_Deterministic(t *testing.T) {
	cfg := market.DefaultConfig()
	cfg.Horizon = 50

	for _, st := range []domain.Strategy{domain.StrategyLinear, domain.StrategyBinary} {
		cfg.Strategy = st
		a := runSeed(t, cfg, 1234)
		b := runSeed(t, cfg, 1234)

		assert.Equal(t, a.History, b.History, st.String())
		assert.Equal(t, a.Matches, b.Matches, st.String())
		assert.Equal(t, a.BuyerArrivals, b.BuyerArrivals)
	}
}

func TestRun_DifferentSeedsDiffer(t *testing.T) {
	cfg := market.DefaultConfig()
	a := runSeed(t, cfg, 1)
	b := runSeed(t, cfg, 2)
	assert.NotEqual(t, a.History, b.History)
}

func TestRun_HistoryShape(t *testing.T) {
	cfg := market.DefaultConfig()
	cfg.Horizon = 25
	res := runSeed(t, cfg, 99)

	require.NotEmpty(t, res.History)
	assert.Equal(t, domain.Sample{Time: 0, Buyers: 0, Sellers: 0}, res.History[0])

	for i := 1; i < len(res.History); i++ {
		assert.GreaterOrEqual(t, res.History[i].Time, res.History[i-1].Time, "sample %d", i)
	}

	last, ok := res.History.Last()
	require.True(t, ok)
	assert.Equal(t, cfg.Horizon, last.Time)

	// inicial + una por llegada + final
	assert.Len(t, res.History, res.BuyerArrivals+res.SellerArrivals+2)
}

func TestRun_RateIsArrivalsPerUnitTime(t *testing.T) {
	cfg := market.DefaultConfig()
	cfg.BuyerRate = 50
	cfg.SellerRate = 5
	cfg.Horizon = 10
	res := runSeed(t, cfg, 7)

	// Poisson(500) y Poisson(50): la escala invertida daría ~0 y ~1 llegadas.
	assert.InDelta(t, 500, res.BuyerArrivals, 100)
	assert.InDelta(t, 50, res.SellerArrivals, 30)
}

func TestStep_PostClearingInvariant(t *testing.T) {
	cfg := market.DefaultConfig()
	cfg.BuyerRate = 3
	cfg.SellerRate = 2
	cfg.Horizon = 40
	b, s := uniformGens(5)
	e, err := market.New(cfg, nil, b, s, valuation.NewRand(5, valuation.StreamArrivals))
	require.NoError(t, err)

	var last *domain.MatchEvent
	e.OnMatch(func(m domain.MatchEvent) { last = &m })

	matches := 0
	for e.State() == market.Running {
		last = nil
		_, err := e.Step()
		require.NoError(t, err)
		if last == nil {
			continue
		}
		matches++

		assert.Equal(t, len(last.Buyers), len(last.Sellers), "matched quantities at t=%v", last.Time)
		assert.True(t, last.Interval.Contains(last.Price))
		for _, v := range e.Buyers() {
			assert.Less(t, v, last.Price)
		}
		for _, v := range e.Sellers() {
			assert.Greater(t, v, last.Price)
		}
		for _, v := range last.Buyers {
			assert.GreaterOrEqual(t, v, last.Price)
		}
		for _, v := range last.Sellers {
			assert.LessOrEqual(t, v, last.Price)
		}
	}
	assert.Positive(t, matches)
	assert.Equal(t, cfg.Horizon, e.Now())

	// un engine terminado no avanza
	ev, err := e.Step()
	require.NoError(t, err)
	assert.Equal(t, domain.EventHorizon, ev)
	assert.Equal(t, cfg.Horizon, e.Now())
}

func TestRun_PoolsStayOrdered(t *testing.T) {
	cfg := market.DefaultConfig()
	cfg.SellerRate = 0.5
	b, s := uniformGens(11)
	e, err := market.New(cfg, nil, b, s, valuation.NewRand(11, valuation.StreamArrivals))
	require.NoError(t, err)

	for e.State() == market.Running {
		_, err := e.Step()
		require.NoError(t, err)
		buyers, sellers := e.Buyers(), e.Sellers()
		for i := 1; i < len(buyers); i++ {
			require.GreaterOrEqual(t, buyers[i-1], buyers[i])
		}
		for i := 1; i < len(sellers); i++ {
			require.LessOrEqual(t, sellers[i-1], sellers[i])
		}
	}
}

func TestRun_ZeroRateSideNeverArrives(t *testing.T) {
	cfg := market.DefaultConfig()
	cfg.SellerRate = 0
	cfg.Horizon = 20
	res := runSeed(t, cfg, 3)

	assert.Zero(t, res.SellerArrivals)
	assert.Empty(t, res.Matches)
	for i, smp := range res.History[1 : len(res.History)-1] {
		assert.Equal(t, i+1, smp.Buyers)
		assert.Zero(t, smp.Sellers)
	}
}

func TestRun_GeneratorFailureAborts(t *testing.T) {
	boom := errors.New("microdata unavailable")
	calls := 0
	failing := ports.GeneratorFunc(func() (float64, error) {
		calls++
		if calls > 3 {
			return 0, boom
		}
		return 50, nil
	})
	_, sellers := uniformGens(1)

	res, err := market.Run(market.DefaultConfig(), failing, sellers, valuation.NewRand(1, valuation.StreamArrivals))
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, domain.ErrGenerator)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 4, calls)
}

func TestRun_BinaryDuplicates(t *testing.T) {
	cfg := market.DefaultConfig()
	cfg.Strategy = domain.StrategyBinary
	cfg.BuyerRate = 10
	cfg.SellerRate = 1
	cfg.Horizon = 50
	cfg.FallbackOnDuplicates = false

	_, err := market.Run(cfg, valuation.Constant(3), valuation.Constant(2), valuation.NewRand(8, valuation.StreamArrivals))
	assert.ErrorIs(t, err, domain.ErrDuplicateValuation)
}

// Con todos los compradores en 3 y todos los vendedores en 2 solo hay precio
// cuando ambos lados tienen el mismo tamaño: D=k y S=m en [2,3]. Con k=m>=2
// binary rechaza los duplicados y el fallback lineal devuelve [2,3]; con
// k!=m no hay trato y el mercado sigue acumulando.
func TestStep_BinaryFallbackOnDuplicates(t *testing.T) {
	cfg := market.DefaultConfig()
	cfg.Strategy = domain.StrategyBinary
	cfg.FallbackOnDuplicates = true
	cfg.Horizon = 200

	for _, seed := range []uint64{1, 2, 3, 8} {
		e, err := market.New(cfg, nil, valuation.Constant(3), valuation.Constant(2), valuation.NewRand(seed, valuation.StreamArrivals))
		require.NoError(t, err)

		var got []domain.MatchEvent
		e.OnMatch(func(m domain.MatchEvent) { got = append(got, m) })

		k, m, want, fallbacks := 0, 0, 0, 0
		for e.State() == market.Running {
			ev, err := e.Step()
			require.NoError(t, err)
			switch ev {
			case domain.EventBuyer:
				k++
			case domain.EventSeller:
				m++
			}
			if k == m && k > 0 {
				want++
				if k >= 2 {
					fallbacks++
				}
				require.Len(t, got, want, "seed %d t=%v", seed, e.Now())
				last := got[len(got)-1]
				assert.Equal(t, k, last.Quantity())
				assert.Equal(t, 2.5, last.Price)
				assert.Equal(t, domain.ClearingInterval{Min: 2, Max: 3}, last.Interval)
				k, m = 0, 0
			}
			assert.Equal(t, k, len(e.Buyers()), "seed %d t=%v", seed, e.Now())
			assert.Equal(t, m, len(e.Sellers()), "seed %d t=%v", seed, e.Now())
		}
		assert.Len(t, got, want, "seed %d", seed)
		t.Logf("seed %d: %d clearings, %d through the linear fallback", seed, want, fallbacks)
	}
}

// fixedClearer siempre devuelve el mismo intervalo.
type fixedClearer struct {
	ci    domain.ClearingInterval
	calls int
}

func (f *fixedClearer) Clear(buyers, sellers []float64) (domain.ClearingInterval, error) {
	f.calls++
	if len(buyers) == 0 || len(sellers) == 0 {
		return domain.ClearingInterval{}, domain.ErrNoSolution
	}
	return f.ci, nil
}

func TestNew_InjectedSolver(t *testing.T) {
	cfg := market.DefaultConfig()
	cfg.Horizon = 30
	solver := &fixedClearer{ci: domain.ClearingInterval{Min: 40, Max: 60}}
	b, s := uniformGens(4)

	e, err := market.New(cfg, solver, b, s, valuation.NewRand(4, valuation.StreamArrivals))
	require.NoError(t, err)
	res, err := e.Run()
	require.NoError(t, err)

	assert.Equal(t, res.BuyerArrivals+res.SellerArrivals, solver.calls)
	for _, m := range res.Matches {
		assert.Equal(t, 50.0, m.Price)
		for _, v := range m.Buyers {
			assert.GreaterOrEqual(t, v, 50.0)
		}
		for _, v := range m.Sellers {
			assert.LessOrEqual(t, v, 50.0)
		}
	}
}

func TestRun_NonFiniteValuationAborts(t *testing.T) {
	_, sellers := uniformGens(1)
	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		res, err := market.Run(market.DefaultConfig(), valuation.Constant(bad), sellers, valuation.NewRand(1, valuation.StreamArrivals))
		assert.Nil(t, res)
		assert.ErrorIs(t, err, domain.ErrGenerator, "valuation %v", bad)
	}
}

func TestNew_Validation(t *testing.T) {
	b, s := uniformGens(1)
	rng := valuation.NewRand(1, valuation.StreamArrivals)

	cases := []struct {
		name   string
		mutate func(*market.Config)
		want   error
	}{
		{"negative buyer rate", func(c *market.Config) { c.BuyerRate = -1 }, domain.ErrInvalidRate},
		{"nan seller rate", func(c *market.Config) { c.SellerRate = math.NaN() }, domain.ErrInvalidRate},
		{"infinite buyer rate", func(c *market.Config) { c.BuyerRate = math.Inf(1) }, domain.ErrInvalidRate},
		{"infinite seller rate", func(c *market.Config) { c.SellerRate = math.Inf(1) }, domain.ErrInvalidRate},
		{"zero horizon", func(c *market.Config) { c.Horizon = 0 }, domain.ErrInvalidHorizon},
		{"infinite horizon", func(c *market.Config) { c.Horizon = math.Inf(1) }, domain.ErrInvalidHorizon},
		{"unknown strategy", func(c *market.Config) { c.Strategy = domain.Strategy(9) }, domain.ErrInvalidStrategy},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := market.DefaultConfig()
			tc.mutate(&cfg)
			_, err := market.New(cfg, nil, b, s, rng)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := market.New(market.DefaultConfig(), nil, nil, s, rng)
	assert.Error(t, err)
	_, err = market.New(market.DefaultConfig(), nil, b, s, nil)
	assert.Error(t, err)
}

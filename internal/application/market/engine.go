package market

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/alejandrodnm/arrivalmarket/internal/clearing"
	"github.com/alejandrodnm/arrivalmarket/internal/domain"
	"github.com/alejandrodnm/arrivalmarket/internal/ports"
	"golang.org/x/time/rate"
)

const progressInterval = 2 * time.Second

// Clearer computes the clearing interval of the current pools.
// clearing.Solver satisfies it.
type Clearer interface {
	Clear(buyers, sellers []float64) (domain.ClearingInterval, error)
}

// Config holds the arrival market parameters.
type Config struct {
	BuyerRate  float64 // expected buyer arrivals per time unit
	SellerRate float64 // expected seller arrivals per time unit
	Horizon    float64
	Strategy   domain.Strategy
	// FallbackOnDuplicates re-clears with the linear strategy when the binary
	// strategy rejects repeated valuations.
	FallbackOnDuplicates bool
}

// DefaultConfig returns a balanced market running for 100 time units.
func DefaultConfig() Config {
	return Config{
		BuyerRate:            1,
		SellerRate:           1,
		Horizon:              100,
		Strategy:             domain.StrategyLinear,
		FallbackOnDuplicates: true,
	}
}

// Validate checks rates, horizon and strategy.
func (c Config) Validate() error {
	if !validRate(c.BuyerRate) {
		return fmt.Errorf("buyer rate %v: %w", c.BuyerRate, domain.ErrInvalidRate)
	}
	if !validRate(c.SellerRate) {
		return fmt.Errorf("seller rate %v: %w", c.SellerRate, domain.ErrInvalidRate)
	}
	if math.IsNaN(c.Horizon) || math.IsInf(c.Horizon, 0) || c.Horizon <= 0 {
		return fmt.Errorf("horizon %v: %w", c.Horizon, domain.ErrInvalidHorizon)
	}
	if !c.Strategy.Valid() {
		return fmt.Errorf("strategy %s: %w", c.Strategy, domain.ErrInvalidStrategy)
	}
	return nil
}

// validRate accepts finite, non-negative rates. An infinite rate would put
// every arrival at the current time and the clock would never advance.
func validRate(r float64) bool {
	return !math.IsNaN(r) && !math.IsInf(r, 0) && r >= 0
}

// State is the lifecycle of an Engine.
type State int

const (
	Running State = iota
	Finished
)

func (s State) String() string {
	if s == Finished {
		return "finished"
	}
	return "running"
}

// Result is the output of a completed simulation.
type Result struct {
	History        domain.MarketHistory
	Matches        []domain.MatchEvent
	BuyerArrivals  int
	SellerArrivals int
}

// Engine runs the continuous-time arrival market. It is single-threaded and
// not safe for concurrent use.
type Engine struct {
	cfg       Config
	solver    Clearer
	fallback  Clearer
	buyerGen  ports.ValuationGenerator
	sellerGen ports.ValuationGenerator
	rng       *rand.Rand

	clock   domain.SimulationClock
	buyers  *domain.Pool
	sellers *domain.Pool
	history domain.MarketHistory
	matches []domain.MatchEvent
	state   State

	buyerArrivals  int
	sellerArrivals int

	onMatch  func(domain.MatchEvent)
	progress rate.Sometimes
}

// New creates an engine with empty pools at t=0 and schedules the first
// buyer and seller arrivals. A nil solver clears with cfg.Strategy. rng drives
// the arrival process only; generators carry their own randomness.
func New(cfg Config, solver Clearer, buyers, sellers ports.ValuationGenerator, rng *rand.Rand) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("market.New: %w", err)
	}
	if buyers == nil || sellers == nil {
		return nil, errors.New("market.New: nil valuation generator")
	}
	if rng == nil {
		return nil, errors.New("market.New: nil random source")
	}

	if solver == nil {
		solver = clearing.Solver{Strategy: cfg.Strategy}
	}

	e := &Engine{
		cfg:       cfg,
		solver:    solver,
		buyerGen:  buyers,
		sellerGen: sellers,
		rng:       rng,
		clock:     domain.NewClock(),
		buyers:    domain.NewBuyerPool(),
		sellers:   domain.NewSellerPool(),
		progress:  rate.Sometimes{Interval: progressInterval},
	}
	if cfg.Strategy == domain.StrategyBinary && cfg.FallbackOnDuplicates {
		e.fallback = clearing.Solver{Strategy: domain.StrategyLinear}
	}

	e.clock.NextBuyer = e.interArrival(cfg.BuyerRate)
	e.clock.NextSeller = e.interArrival(cfg.SellerRate)
	e.history.Record(e.clock.Now, 0, 0)
	return e, nil
}

// Run is shorthand for New with the default solver followed by Engine.Run.
func Run(cfg Config, buyers, sellers ports.ValuationGenerator, rng *rand.Rand) (*Result, error) {
	e, err := New(cfg, nil, buyers, sellers, rng)
	if err != nil {
		return nil, err
	}
	return e.Run()
}

// OnMatch registers a callback invoked after every clearing step that
// produced trades. It must not call back into the engine.
func (e *Engine) OnMatch(fn func(domain.MatchEvent)) {
	e.onMatch = fn
}

// Run steps the market until the horizon. A generator or solver failure
// aborts the run and no partial result is returned.
func (e *Engine) Run() (*Result, error) {
	started := time.Now()
	for e.state == Running {
		if _, err := e.Step(); err != nil {
			return nil, err
		}
	}

	res := &Result{
		History:        e.history,
		Matches:        e.matches,
		BuyerArrivals:  e.buyerArrivals,
		SellerArrivals: e.sellerArrivals,
	}
	slog.Debug("market: run finished",
		"horizon", e.cfg.Horizon,
		"buyers_arrived", e.buyerArrivals,
		"sellers_arrived", e.sellerArrivals,
		"clearings", len(e.matches),
		"buyers_waiting", e.buyers.Len(),
		"sellers_waiting", e.sellers.Len(),
		"elapsed", time.Since(started),
	)
	return res, nil
}

// Step processes the next event: an arrival followed by a clearing step, or
// the horizon, which finishes the simulation. Stepping a finished engine is a
// no-op that returns domain.EventHorizon.
func (e *Engine) Step() (domain.ClockEvent, error) {
	if e.state == Finished {
		return domain.EventHorizon, nil
	}

	ev := e.clock.Advance(e.cfg.Horizon)
	switch ev {
	case domain.EventHorizon:
		e.state = Finished
		e.history.Record(e.clock.Now, e.buyers.Len(), e.sellers.Len())
		return ev, nil

	case domain.EventBuyer:
		v, err := draw(e.buyerGen)
		if err != nil {
			return ev, fmt.Errorf("market.Step: buyer at t=%.6f: %w", e.clock.Now, err)
		}
		e.buyers.Insert(v)
		e.buyerArrivals++
		e.clock.NextBuyer = e.clock.Now + e.interArrival(e.cfg.BuyerRate)

	case domain.EventSeller:
		v, err := draw(e.sellerGen)
		if err != nil {
			return ev, fmt.Errorf("market.Step: seller at t=%.6f: %w", e.clock.Now, err)
		}
		e.sellers.Insert(v)
		e.sellerArrivals++
		e.clock.NextSeller = e.clock.Now + e.interArrival(e.cfg.SellerRate)
	}

	if err := e.clear(); err != nil {
		return ev, fmt.Errorf("market.Step: t=%.6f: %w", e.clock.Now, err)
	}
	e.history.Record(e.clock.Now, e.buyers.Len(), e.sellers.Len())

	e.progress.Do(func() {
		slog.Debug("market: progress",
			"t", fmt.Sprintf("%.3f/%.3f", e.clock.Now, e.cfg.Horizon),
			"buyers", e.buyers.Len(),
			"sellers", e.sellers.Len(),
			"clearings", len(e.matches),
		)
	})
	return ev, nil
}

// clear computes the midpoint price of the current pools and removes every
// participant who trades at it. No price means no trade.
func (e *Engine) clear() error {
	buyers, sellers := e.buyers.Values(), e.sellers.Values()
	ci, err := e.solver.Clear(buyers, sellers)
	if errors.Is(err, domain.ErrDuplicateValuation) && e.fallback != nil {
		slog.Debug("market: duplicate valuations, falling back to linear clearing", "t", e.clock.Now)
		ci, err = e.fallback.Clear(buyers, sellers)
	}
	if errors.Is(err, domain.ErrNoSolution) {
		return nil
	}
	if err != nil {
		return err
	}

	price := ci.Midpoint()
	event := domain.MatchEvent{
		Seq:      len(e.matches) + 1,
		Time:     e.clock.Now,
		Price:    price,
		Interval: ci,
		Buyers:   e.buyers.RemoveMatched(price),
		Sellers:  e.sellers.RemoveMatched(price),
	}
	e.matches = append(e.matches, event)

	slog.Debug("market: cleared",
		"t", e.clock.Now,
		"price", price,
		"interval", ci.String(),
		"buyers_matched", len(event.Buyers),
		"sellers_matched", len(event.Sellers),
	)
	if e.onMatch != nil {
		e.onMatch(event)
	}
	return nil
}

// draw takes one valuation from gen. Failures and non-finite values are
// reported as domain.ErrGenerator.
func draw(gen ports.ValuationGenerator) (float64, error) {
	v, err := gen.Draw()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrGenerator, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: non-finite valuation %v", domain.ErrGenerator, v)
	}
	return v, nil
}

// interArrival draws an Exponential(rate) gap. A zero rate never arrives.
func (e *Engine) interArrival(r float64) float64 {
	if r == 0 {
		return math.Inf(1)
	}
	return e.rng.ExpFloat64() / r
}

// State reports whether the horizon has been reached.
func (e *Engine) State() State { return e.state }

// Now returns the current simulation time.
func (e *Engine) Now() float64 { return e.clock.Now }

// Buyers returns the waiting buyer valuations, strongest first.
func (e *Engine) Buyers() []float64 { return e.buyers.Values() }

// Sellers returns the waiting seller valuations, cheapest first.
func (e *Engine) Sellers() []float64 { return e.sellers.Values() }

// History returns the samples recorded so far.
func (e *Engine) History() domain.MarketHistory { return e.history }

// Package clearing finds the price interval at which quantity demanded by
// buyers equals quantity supplied by sellers.
//
// Demand at price p is the number of buyers with valuation >= p; supply is the
// number of sellers with valuation <= p. Two strategies are available: a
// linear scan over perturbed candidate prices that tolerates repeated
// valuations, and a binary search that requires distinct valuations per side.
package clearing

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/alejandrodnm/arrivalmarket/internal/domain"
)

// Solver clears a market with a fixed strategy. The zero value uses the
// linear strategy.
type Solver struct {
	Strategy domain.Strategy
}

// NewSolver returns a Solver for the named strategy.
func NewSolver(name string) (Solver, error) {
	s, err := domain.ParseStrategy(name)
	if err != nil {
		return Solver{}, fmt.Errorf("clearing.NewSolver: %w", err)
	}
	return Solver{Strategy: s}, nil
}

// Clear calls the package-level Clear with the solver's strategy.
func (s Solver) Clear(buyers, sellers []float64) (domain.ClearingInterval, error) {
	return Clear(buyers, sellers, s.Strategy)
}

// Midpoint calls the package-level Midpoint with the solver's strategy.
func (s Solver) Midpoint(buyers, sellers []float64) (float64, error) {
	return Midpoint(buyers, sellers, s.Strategy)
}

// Clear returns the clearing interval for the given valuations. Inputs may be
// in any order and are not modified.
//
// domain.ErrNoSolution is returned when either side is empty or the best buyer
// values strictly below the best seller. The binary strategy returns
// domain.ErrDuplicateValuation when one side repeats a valuation.
func Clear(buyers, sellers []float64, strategy domain.Strategy) (domain.ClearingInterval, error) {
	if !strategy.Valid() {
		return domain.ClearingInterval{}, fmt.Errorf("clearing.Clear: %s: %w", strategy, domain.ErrInvalidStrategy)
	}
	if len(buyers) == 0 || len(sellers) == 0 {
		return domain.ClearingInterval{}, domain.ErrNoSolution
	}

	b := sortedCopy(buyers)
	s := sortedCopy(sellers)
	if b[len(b)-1] < s[0] {
		return domain.ClearingInterval{}, domain.ErrNoSolution
	}

	switch strategy {
	case domain.StrategyBinary:
		return clearBinary(b, s)
	default:
		return clearLinear(b, s)
	}
}

// Midpoint returns the mean of the clearing interval bounds.
func Midpoint(buyers, sellers []float64, strategy domain.Strategy) (float64, error) {
	ci, err := Clear(buyers, sellers, strategy)
	if err != nil {
		return 0, err
	}
	return ci.Midpoint(), nil
}

// Quantities counts demand and supply at price p over unsorted valuations.
func Quantities(buyers, sellers []float64, p float64) (demand, supply int) {
	for _, v := range buyers {
		if v >= p {
			demand++
		}
	}
	for _, v := range sellers {
		if v <= p {
			supply++
		}
	}
	return demand, supply
}

// Epsilon is the perturbation the linear strategy applies around each
// valuation: a tenth of the smallest positive gap between adjacent sorted
// valuations of both sides, or max(|v|, 1)/10 when every valuation is equal.
func Epsilon(buyers, sellers []float64) float64 {
	all := make([]float64, 0, len(buyers)+len(sellers))
	all = append(all, buyers...)
	all = append(all, sellers...)
	sort.Float64s(all)
	return epsilon(all)
}

func epsilon(sorted []float64) float64 {
	gap := math.Inf(1)
	for i := 1; i < len(sorted); i++ {
		if d := sorted[i] - sorted[i-1]; d > 0 && d < gap {
			gap = d
		}
	}
	if math.IsInf(gap, 1) {
		if len(sorted) == 0 {
			return 0.1
		}
		return math.Max(math.Abs(sorted[0]), 1) / 10
	}
	return gap / 10
}

// demandAt counts ascending-sorted buyers with valuation >= p.
func demandAt(b []float64, p float64) int {
	return len(b) - sort.SearchFloat64s(b, p)
}

// supplyAt counts ascending-sorted sellers with valuation <= p.
func supplyAt(s []float64, p float64) int {
	return sort.Search(len(s), func(i int) bool { return s[i] > p })
}

func balanced(b, s []float64, p float64) bool {
	return demandAt(b, p) == supplyAt(s, p)
}

func sortedCopy(v []float64) []float64 {
	out := slices.Clone(v)
	sort.Float64s(out)
	return out
}

package clearing

import (
	"sort"

	"github.com/alejandrodnm/arrivalmarket/internal/domain"
)

// clearBinary binary-searches the price axis between min(sellers) and
// max(buyers). Excess demand D(p)-S(p) only changes at valuations, so the axis
// is discretised into grid points (the valuations in range) and the open gaps
// between consecutive points: position 2i is grid[i], position 2i+1 is the gap
// (grid[i], grid[i+1]). Excess demand is non-increasing along positions and,
// with distinct valuations per side, moves by at most one unit per step, so it
// crosses zero exactly.
//
// The bounds are the sorted valuations bracketing the balanced positions. A
// balanced gap reports its neighbouring valuations.
func clearBinary(b, s []float64) (domain.ClearingInterval, error) {
	if hasDuplicate(b) || hasDuplicate(s) {
		return domain.ClearingInterval{}, domain.ErrDuplicateValuation
	}

	lo, hi := s[0], b[len(b)-1]
	grid := make([]float64, 0, len(b)+len(s))
	for _, side := range [][]float64{b, s} {
		for _, v := range side {
			if v >= lo && v <= hi {
				grid = append(grid, v)
			}
		}
	}
	sort.Float64s(grid)
	grid = dedupSorted(grid)

	priceAt := func(pos int) float64 {
		if pos%2 == 0 {
			return grid[pos/2]
		}
		return (grid[pos/2] + grid[pos/2+1]) / 2
	}
	excess := func(pos int) int {
		p := priceAt(pos)
		return demandAt(b, p) - supplyAt(s, p)
	}

	n := 2*len(grid) - 1
	first := sort.Search(n, func(pos int) bool { return excess(pos) <= 0 })
	last := sort.Search(n, func(pos int) bool { return excess(pos) < 0 }) - 1
	if first >= n || last < first || excess(first) != 0 {
		return domain.ClearingInterval{}, domain.ErrNoSolution
	}

	return domain.ClearingInterval{
		Min: grid[first/2],
		Max: grid[(last+1)/2],
	}, nil
}

func hasDuplicate(sorted []float64) bool {
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			return true
		}
	}
	return false
}

func dedupSorted(v []float64) []float64 {
	if len(v) < 2 {
		return v
	}
	out := v[:1]
	for _, x := range v[1:] {
		if x != out[len(out)-1] {
			out = append(out, x)
		}
	}
	return out
}

package clearing

import (
	"sort"

	"github.com/alejandrodnm/arrivalmarket/internal/domain"
)

// clearLinear scans candidate prices (each valuation and the valuation ± eps)
// from the top for the largest balanced price and from the bottom for the
// smallest. The ± eps candidates stand in for the open side of an interval
// edge. b and s must be sorted ascending, non-empty and overlapping.
func clearLinear(b, s []float64) (domain.ClearingInterval, error) {
	values := make([]float64, 0, len(b)+len(s))
	values = append(values, b...)
	values = append(values, s...)
	sort.Float64s(values)
	eps := epsilon(values)

	candidates := make([]float64, 0, 3*len(values))
	for _, v := range values {
		candidates = append(candidates, v-eps, v, v+eps)
	}
	sort.Float64s(candidates)

	hi := len(candidates) - 1
	for hi >= 0 && !balanced(b, s, candidates[hi]) {
		hi--
	}
	lo := 0
	for lo < len(candidates) && !balanced(b, s, candidates[lo]) {
		lo++
	}
	if hi < lo {
		return domain.ClearingInterval{}, domain.ErrNoSolution
	}
	return domain.ClearingInterval{Min: candidates[lo], Max: candidates[hi]}, nil
}

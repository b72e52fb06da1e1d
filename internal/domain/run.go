package domain

import "time"

// MatchEvent registra un paso de clearing con trato: todos los compradores con
// valuación >= Price y todos los vendedores con valuación <= Price salen del mercado.
type MatchEvent struct {
	Seq      int
	Time     float64
	Price    float64
	Interval ClearingInterval
	Buyers   []float64 // valuaciones de los compradores emparejados
	Sellers  []float64 // valuaciones de los vendedores emparejados
}

// Quantity devuelve las unidades intercambiadas (una por pareja).
func (m MatchEvent) Quantity() int {
	return min(len(m.Buyers), len(m.Sellers))
}

// RunParams son los parámetros que reproducen una simulación.
type RunParams struct {
	Seed       uint64
	BuyerRate  float64
	SellerRate float64
	Horizon    float64
	Strategy   Strategy
}

// RunStats resume una simulación para listados.
type RunStats struct {
	BuyerArrivals  int
	SellerArrivals int
	Clearings      int
	Matched        int
	AvgPrice       float64
}

// RunRecord es el output completo de una simulación tal como se persiste.
type RunRecord struct {
	ID        string
	StartedAt time.Time
	Params    RunParams
	Stats     RunStats
	History   MarketHistory
	Matches   []MatchEvent
}

// ComputeStats recalcula Stats a partir de Matches. Las llegadas no se
// pueden derivar de la historia y se conservan.
func (r *RunRecord) ComputeStats() {
	r.Stats.Clearings = len(r.Matches)
	r.Stats.Matched = 0
	var priceSum float64
	for _, m := range r.Matches {
		r.Stats.Matched += m.Quantity()
		priceSum += m.Price * float64(m.Quantity())
	}
	r.Stats.AvgPrice = 0
	if r.Stats.Matched > 0 {
		r.Stats.AvgPrice = priceSum / float64(r.Stats.Matched)
	}
}

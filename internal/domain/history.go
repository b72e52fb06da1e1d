package domain

// Sample es una foto de la profundidad del mercado tras un ciclo.
type Sample struct {
	Time    float64
	Buyers  int
	Sellers int
}

// MarketHistory es la secuencia append-only de samples de una simulación.
type MarketHistory []Sample

// Record añade un sample.
func (h *MarketHistory) Record(t float64, buyers, sellers int) {
	*h = append(*h, Sample{Time: t, Buyers: buyers, Sellers: sellers})
}

// Last devuelve el último sample. ok=false si la historia está vacía.
func (h MarketHistory) Last() (Sample, bool) {
	if len(h) == 0 {
		return Sample{}, false
	}
	return h[len(h)-1], true
}

// PeakDepth devuelve el máximo de compradores y de vendedores esperando.
func (h MarketHistory) PeakDepth() (buyers, sellers int) {
	for _, s := range h {
		buyers = max(buyers, s.Buyers)
		sellers = max(sellers, s.Sellers)
	}
	return
}

// Downsample devuelve como mucho n samples repartidos uniformemente,
// conservando siempre el primero y el último.
func (h MarketHistory) Downsample(n int) MarketHistory {
	if n <= 0 || len(h) <= n {
		return h
	}
	if n == 1 {
		return MarketHistory{h[len(h)-1]}
	}
	out := make(MarketHistory, 0, n)
	step := float64(len(h)-1) / float64(n-1)
	for i := 0; i < n; i++ {
		out = append(out, h[int(float64(i)*step+0.5)])
	}
	return out
}

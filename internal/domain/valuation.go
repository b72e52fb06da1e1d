package domain

import "sort"

// Side identifica el lado del mercado de un participante.
type Side int

const (
	SideBuyer Side = iota
	SideSeller
)

func (s Side) String() string {
	switch s {
	case SideBuyer:
		return "buyer"
	case SideSeller:
		return "seller"
	default:
		return "unknown"
	}
}

// Pool es el conjunto ordenado de participantes sin emparejar de un lado.
// Compradores: mayor a menor valuación. Vendedores: menor a mayor.
// El primer elemento siempre es el participante más fuerte.
type Pool struct {
	side   Side
	values []float64
}

// NewBuyerPool crea un pool de compradores vacío.
func NewBuyerPool() *Pool { return &Pool{side: SideBuyer} }

// NewSellerPool crea un pool de vendedores vacío.
func NewSellerPool() *Pool { return &Pool{side: SideSeller} }

// Side devuelve el lado del pool.
func (p *Pool) Side() Side { return p.side }

// Len devuelve el número de participantes vivos.
func (p *Pool) Len() int { return len(p.values) }

// Values devuelve una copia de las valuaciones en orden del pool.
func (p *Pool) Values() []float64 {
	out := make([]float64, len(p.values))
	copy(out, p.values)
	return out
}

// Best devuelve la valuación más fuerte. ok=false si el pool está vacío.
func (p *Pool) Best() (v float64, ok bool) {
	if len(p.values) == 0 {
		return 0, false
	}
	return p.values[0], true
}

// Insert añade una valuación manteniendo el orden. Un empate se coloca
// detrás de los valores iguales ya presentes (llegada más antigua primero).
func (p *Pool) Insert(v float64) {
	i := sort.Search(len(p.values), func(i int) bool {
		return p.before(v, p.values[i])
	})
	p.values = append(p.values, 0)
	copy(p.values[i+1:], p.values[i:])
	p.values[i] = v
}

// RemoveMatched saca del pool a todos los participantes que cierran trato al
// precio dado (compradores con v >= price, vendedores con v <= price) y los
// devuelve en orden del pool. Los que quedan no aceptan ese precio.
func (p *Pool) RemoveMatched(price float64) []float64 {
	n := sort.Search(len(p.values), func(i int) bool {
		return !p.accepts(p.values[i], price)
	})
	if n == 0 {
		return nil
	}
	matched := make([]float64, n)
	copy(matched, p.values[:n])
	p.values = append(p.values[:0], p.values[n:]...)
	return matched
}

// Accepts indica si alguien del pool cerraría trato al precio dado.
func (p *Pool) Accepts(price float64) bool {
	best, ok := p.Best()
	return ok && p.accepts(best, price)
}

func (p *Pool) accepts(v, price float64) bool {
	if p.side == SideBuyer {
		return v >= price
	}
	return v <= price
}

// before reporta si a va estrictamente antes que b en el orden del pool.
func (p *Pool) before(a, b float64) bool {
	if p.side == SideBuyer {
		return a > b
	}
	return a < b
}

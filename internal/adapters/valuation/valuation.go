// Package valuation provee generadores de valuaciones sembrables.
//
// Cada generador tiene su propio *rand.Rand, así la secuencia de llegadas y la
// de valuaciones son independientes y una misma semilla reproduce la simulación.
package valuation

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/alejandrodnm/arrivalmarket/internal/ports"
)

// Streams derivados de una misma semilla.
const (
	StreamArrivals uint64 = iota + 1
	StreamBuyers
	StreamSellers
)

// ErrExhausted se devuelve cuando un Sequence sin ciclo se queda sin valores.
var ErrExhausted = errors.New("valuation sequence exhausted")

// NewRand crea una fuente PCG para el stream dado de una semilla.
func NewRand(seed, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, stream*0x9e3779b97f4a7c15))
}

// Spec describe un generador. Kind elige la distribución; el resto de campos
// se interpretan según Kind.
type Spec struct {
	Kind   string    // uniform | normal | lognormal | constant | sequence
	Min    float64   // uniform
	Max    float64   // uniform
	Mean   float64   // normal
	StdDev float64   // normal
	Mu     float64   // lognormal
	Sigma  float64   // lognormal
	Value  float64   // constant
	Values []float64 // sequence
	Cycle  bool      // sequence: volver al inicio al terminar
}

// New construye el generador descrito por spec.
func New(spec Spec, rng *rand.Rand) (ports.ValuationGenerator, error) {
	switch strings.ToLower(spec.Kind) {
	case "", "uniform":
		if spec.Max < spec.Min {
			return nil, fmt.Errorf("valuation.New: uniform max %v < min %v", spec.Max, spec.Min)
		}
		return &Uniform{Min: spec.Min, Max: spec.Max, rng: rng}, nil
	case "normal":
		if spec.StdDev < 0 {
			return nil, fmt.Errorf("valuation.New: normal stddev %v < 0", spec.StdDev)
		}
		return &Normal{Mean: spec.Mean, StdDev: spec.StdDev, rng: rng}, nil
	case "lognormal":
		if spec.Sigma < 0 {
			return nil, fmt.Errorf("valuation.New: lognormal sigma %v < 0", spec.Sigma)
		}
		return &LogNormal{Mu: spec.Mu, Sigma: spec.Sigma, rng: rng}, nil
	case "constant":
		return Constant(spec.Value), nil
	case "sequence":
		if len(spec.Values) == 0 {
			return nil, errors.New("valuation.New: empty sequence")
		}
		return NewSequence(spec.Values, spec.Cycle), nil
	default:
		return nil, fmt.Errorf("valuation.New: unknown kind %q", spec.Kind)
	}
}

// Uniform sortea valuaciones uniformes en [Min, Max).
type Uniform struct {
	Min, Max float64
	rng      *rand.Rand
}

// NewUniform crea un generador uniforme.
func NewUniform(lo, hi float64, rng *rand.Rand) *Uniform {
	return &Uniform{Min: lo, Max: hi, rng: rng}
}

func (u *Uniform) Draw() (float64, error) {
	return u.Min + u.rng.Float64()*(u.Max-u.Min), nil
}

// Normal sortea valuaciones normales.
type Normal struct {
	Mean, StdDev float64
	rng          *rand.Rand
}

func (n *Normal) Draw() (float64, error) {
	return n.Mean + n.rng.NormFloat64()*n.StdDev, nil
}

// LogNormal sortea exp(N(Mu, Sigma)). Útil para valuaciones monetarias
// siempre positivas y con cola larga.
type LogNormal struct {
	Mu, Sigma float64
	rng       *rand.Rand
}

func (l *LogNormal) Draw() (float64, error) {
	return math.Exp(l.Mu + l.rng.NormFloat64()*l.Sigma), nil
}

// Constant devuelve siempre el mismo valor.
type Constant float64

func (c Constant) Draw() (float64, error) { return float64(c), nil }

// Sequence devuelve valores fijos en orden. Sin ciclo, al terminar devuelve
// ErrExhausted.
type Sequence struct {
	values []float64
	cycle  bool
	next   int
}

// NewSequence crea un Sequence sobre una copia de values.
func NewSequence(values []float64, cycle bool) *Sequence {
	return &Sequence{values: append([]float64(nil), values...), cycle: cycle}
}

func (s *Sequence) Draw() (float64, error) {
	if s.next >= len(s.values) {
		if !s.cycle || len(s.values) == 0 {
			return 0, ErrExhausted
		}
		s.next = 0
	}
	v := s.values[s.next]
	s.next++
	return v, nil
}

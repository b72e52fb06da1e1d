package domain

import (
	"fmt"
	"strings"
)

// ClearingInterval es el rango de precios [Min, Max] donde la cantidad
// demandada iguala a la ofrecida. Min <= Max; un empate exacto entre el mejor
// comprador y el mejor vendedor da un intervalo de ancho cero.
type ClearingInterval struct {
	Min float64
	Max float64
}

// Midpoint devuelve la media aritmética de los extremos.
func (ci ClearingInterval) Midpoint() float64 {
	return (ci.Min + ci.Max) / 2
}

// Width devuelve Max - Min.
func (ci ClearingInterval) Width() float64 {
	return ci.Max - ci.Min
}

// Contains indica si p está dentro del intervalo cerrado.
func (ci ClearingInterval) Contains(p float64) bool {
	return p >= ci.Min && p <= ci.Max
}

func (ci ClearingInterval) String() string {
	return fmt.Sprintf("[%.6g, %.6g]", ci.Min, ci.Max)
}

// Strategy selecciona el algoritmo de búsqueda del precio de equilibrio.
type Strategy int

const (
	// StrategyLinear escanea todos los candidatos. Tolera valuaciones repetidas.
	StrategyLinear Strategy = iota
	// StrategyBinary hace búsqueda binaria. Exige valuaciones distintas por lado.
	StrategyBinary
)

func (s Strategy) String() string {
	switch s {
	case StrategyLinear:
		return "linear"
	case StrategyBinary:
		return "binary"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy convierte un nombre ("linear", "binary") en Strategy.
// Un nombre vacío equivale a linear.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "linear":
		return StrategyLinear, nil
	case "binary":
		return StrategyBinary, nil
	default:
		return 0, fmt.Errorf("domain.ParseStrategy: %q: %w", name, ErrInvalidStrategy)
	}
}

// Valid indica si s es una estrategia conocida.
func (s Strategy) Valid() bool {
	return s == StrategyLinear || s == StrategyBinary
}

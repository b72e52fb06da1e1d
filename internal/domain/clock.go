package domain

import "math"

// ClockEvent es lo que dispara el siguiente avance del reloj.
type ClockEvent int

const (
	EventBuyer ClockEvent = iota
	EventSeller
	EventHorizon
)

func (e ClockEvent) String() string {
	switch e {
	case EventBuyer:
		return "buyer"
	case EventSeller:
		return "seller"
	default:
		return "horizon"
	}
}

// SimulationClock guarda el tiempo actual y las próximas llegadas programadas.
// Now nunca decrece. Una llegada en +Inf no ocurre nunca.
type SimulationClock struct {
	Now        float64
	NextBuyer  float64
	NextSeller float64
}

// NewClock crea un reloj en t=0 sin llegadas programadas.
func NewClock() SimulationClock {
	return SimulationClock{NextBuyer: math.Inf(1), NextSeller: math.Inf(1)}
}

// Advance mueve Now a min(horizon, NextBuyer, NextSeller) y devuelve qué evento
// lo provocó. El horizonte solo gana si es estrictamente menor que ambas
// llegadas; ante empate entre comprador y vendedor gana el comprador.
func (c *SimulationClock) Advance(horizon float64) ClockEvent {
	next := math.Min(c.NextBuyer, c.NextSeller)
	if horizon < next {
		c.Now = math.Max(c.Now, horizon)
		return EventHorizon
	}
	c.Now = math.Max(c.Now, next)
	if c.NextBuyer <= c.NextSeller {
		return EventBuyer
	}
	return EventSeller
}

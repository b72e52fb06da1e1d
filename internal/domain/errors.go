package domain

import "errors"

// ErrNoSolution indica que no existe precio de equilibrio: algún pool está
// vacío o el mejor comprador valora por debajo del mejor vendedor.
// Es un resultado normal, no un fallo.
var ErrNoSolution = errors.New("no clearing price")

// ErrInvalidStrategy se devuelve cuando se pide una estrategia de clearing desconocida.
var ErrInvalidStrategy = errors.New("invalid clearing strategy")

// ErrDuplicateValuation se devuelve cuando la estrategia binaria recibe
// valuaciones repetidas en un mismo lado (rompe la monotonía estricta).
var ErrDuplicateValuation = errors.New("duplicate valuation on one side")

// ErrInvalidRate se devuelve con una tasa de llegadas negativa o NaN.
var ErrInvalidRate = errors.New("invalid arrival rate")

// ErrInvalidHorizon se devuelve con un horizonte no positivo o no finito.
var ErrInvalidHorizon = errors.New("invalid time horizon")

// ErrGenerator envuelve los fallos de un generador de valuaciones.
var ErrGenerator = errors.New("valuation generator failed")

// ErrRunNotFound se devuelve cuando el storage no tiene la simulación pedida.
var ErrRunNotFound = errors.New("run not found")

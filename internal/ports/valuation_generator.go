package ports

// ValuationGenerator entrega la valuación de un participante que llega.
// Debe ser puro respecto al estado de la simulación: no toca los pools.
type ValuationGenerator interface {
	// Draw devuelve una valuación. Un error aborta la simulación entera.
	Draw() (float64, error)
}

// GeneratorFunc adapta una función a ValuationGenerator.
type GeneratorFunc func() (float64, error)

// Draw llama a f.
func (f GeneratorFunc) Draw() (float64, error) { return f() }

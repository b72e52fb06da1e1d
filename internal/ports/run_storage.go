package ports

import (
	"context"

	"github.com/alejandrodnm/arrivalmarket/internal/domain"
)

// RunStorage persiste el output de las simulaciones.
type RunStorage interface {
	// SaveRun guarda parámetros, historia y eventos de match de una simulación.
	SaveRun(ctx context.Context, run domain.RunRecord) error

	// GetRun devuelve una simulación completa. domain.ErrRunNotFound si no existe.
	GetRun(ctx context.Context, id string) (domain.RunRecord, error)

	// ListRuns devuelve las últimas simulaciones sin historia ni matches,
	// más recientes primero.
	ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error)

	// Close cierra la conexión limpiamente.
	Close() error
}

package ports

import "github.com/alejandrodnm/arrivalmarket/internal/domain"

// Reporter presenta resultados al usuario.
type Reporter interface {
	ReportRun(run domain.RunRecord) error
	ReportClearing(buyers, sellers []float64, strategy domain.Strategy, interval domain.ClearingInterval, err error) error
	ReportRuns(runs []domain.RunRecord) error
}

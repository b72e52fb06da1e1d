package storage

import (
	"context"
	"strings"

	"github.com/alejandrodnm/arrivalmarket/internal/domain"
	"github.com/alejandrodnm/arrivalmarket/internal/ports"
)

// Open elige el backend según el DSN: postgres:// o postgresql:// usan
// PostgreSQL, cualquier otro valor es una ruta SQLite (o ":memory:").
func Open(ctx context.Context, dsn string) (ports.RunStorage, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return NewPostgresStorage(ctx, dsn)
	}
	return NewSQLiteStorage(dsn)
}

// matchedSides agrupa las valuaciones de un clearing por lado.
func matchedSides(m domain.MatchEvent) map[domain.Side][]float64 {
	return map[domain.Side][]float64{
		domain.SideBuyer:  m.Buyers,
		domain.SideSeller: m.Sellers,
	}
}

func attachMatched(m *domain.MatchEvent, side string, v float64) {
	if m == nil {
		return
	}
	switch side {
	case domain.SideBuyer.String():
		m.Buyers = append(m.Buyers, v)
	case domain.SideSeller.String():
		m.Sellers = append(m.Sellers, v)
	}
}

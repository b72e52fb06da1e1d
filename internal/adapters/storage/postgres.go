package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alejandrodnm/arrivalmarket/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS runs (
    id              TEXT PRIMARY KEY,
    started_at      TIMESTAMPTZ      NOT NULL,
    seed            BIGINT           NOT NULL,
    buyer_rate      DOUBLE PRECISION NOT NULL,
    seller_rate     DOUBLE PRECISION NOT NULL,
    horizon         DOUBLE PRECISION NOT NULL,
    strategy        TEXT             NOT NULL,
    buyer_arrivals  INTEGER          NOT NULL DEFAULT 0,
    seller_arrivals INTEGER          NOT NULL DEFAULT 0,
    clearings       INTEGER          NOT NULL DEFAULT 0,
    matched         INTEGER          NOT NULL DEFAULT 0,
    avg_price       DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS samples (
    run_id  TEXT             NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    seq     INTEGER          NOT NULL,
    t       DOUBLE PRECISION NOT NULL,
    buyers  INTEGER          NOT NULL,
    sellers INTEGER          NOT NULL,
    PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS clearings (
    run_id    TEXT             NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    seq       INTEGER          NOT NULL,
    t         DOUBLE PRECISION NOT NULL,
    price     DOUBLE PRECISION NOT NULL,
    min_bound DOUBLE PRECISION NOT NULL,
    max_bound DOUBLE PRECISION NOT NULL,
    buyers    DOUBLE PRECISION[] NOT NULL,
    sellers   DOUBLE PRECISION[] NOT NULL,
    PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
`

// PostgresStorage implementa ports.RunStorage sobre PostgreSQL con pgxpool.
// Las valuaciones emparejadas se guardan como arrays en la fila del clearing.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage conecta, verifica con ping y aplica el schema.
func NewPostgresStorage(ctx context.Context, dsn string) (*PostgresStorage, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("storage.NewPostgresStorage: parse config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("storage.NewPostgresStorage: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage.NewPostgresStorage: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage.NewPostgresStorage: apply schema: %w", err)
	}
	return &PostgresStorage{pool: pool}, nil
}

// SaveRun persiste la simulación en una transacción. La historia se copia con
// COPY, que es mucho más rápido que un INSERT por sample.
func (s *PostgresStorage) SaveRun(ctx context.Context, run domain.RunRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	p, st := run.Params, run.Stats
	if _, err := tx.Exec(ctx, `
		INSERT INTO runs
			(id, started_at, seed, buyer_rate, seller_rate, horizon, strategy,
			 buyer_arrivals, seller_arrivals, clearings, matched, avg_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		run.ID, run.StartedAt.UTC(), int64(p.Seed),
		p.BuyerRate, p.SellerRate, p.Horizon, p.Strategy.String(),
		st.BuyerArrivals, st.SellerArrivals, st.Clearings, st.Matched, st.AvgPrice,
	); err != nil {
		return fmt.Errorf("storage.SaveRun: insert run %s: %w", run.ID, err)
	}

	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"samples"},
		[]string{"run_id", "seq", "t", "buyers", "sellers"},
		pgx.CopyFromSlice(len(run.History), func(i int) ([]any, error) {
			smp := run.History[i]
			return []any{run.ID, i, smp.Time, smp.Buyers, smp.Sellers}, nil
		}),
	); err != nil {
		return fmt.Errorf("storage.SaveRun: copy samples: %w", err)
	}

	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"clearings"},
		[]string{"run_id", "seq", "t", "price", "min_bound", "max_bound", "buyers", "sellers"},
		pgx.CopyFromSlice(len(run.Matches), func(i int) ([]any, error) {
			m := run.Matches[i]
			return []any{run.ID, m.Seq, m.Time, m.Price, m.Interval.Min, m.Interval.Max,
				nonNil(m.Buyers), nonNil(m.Sellers)}, nil
		}),
	); err != nil {
		return fmt.Errorf("storage.SaveRun: copy clearings: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("storage.SaveRun: commit: %w", err)
	}
	return nil
}

// GetRun devuelve una simulación con su historia y sus clearings.
func (s *PostgresStorage) GetRun(ctx context.Context, id string) (domain.RunRecord, error) {
	run, err := scanPgRun(s.pool.QueryRow(ctx, `
		SELECT id, started_at, seed, buyer_rate, seller_rate, horizon, strategy,
		       buyer_arrivals, seller_arrivals, clearings, matched, avg_price
		FROM runs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.RunRecord{}, fmt.Errorf("storage.GetRun: %s: %w", id, domain.ErrRunNotFound)
	}
	if err != nil {
		return domain.RunRecord{}, fmt.Errorf("storage.GetRun: %s: %w", id, err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT t, buyers, sellers FROM samples WHERE run_id = $1 ORDER BY seq`, id)
	if err != nil {
		return domain.RunRecord{}, fmt.Errorf("storage.GetRun: query samples: %w", err)
	}
	history, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Sample, error) {
		var smp domain.Sample
		err := row.Scan(&smp.Time, &smp.Buyers, &smp.Sellers)
		return smp, err
	})
	if err != nil {
		return domain.RunRecord{}, fmt.Errorf("storage.GetRun: samples: %w", err)
	}
	run.History = history

	rows, err = s.pool.Query(ctx, `
		SELECT seq, t, price, min_bound, max_bound, buyers, sellers
		FROM clearings WHERE run_id = $1 ORDER BY seq`, id)
	if err != nil {
		return domain.RunRecord{}, fmt.Errorf("storage.GetRun: query clearings: %w", err)
	}
	matches, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.MatchEvent, error) {
		var m domain.MatchEvent
		err := row.Scan(&m.Seq, &m.Time, &m.Price, &m.Interval.Min, &m.Interval.Max, &m.Buyers, &m.Sellers)
		return m, err
	})
	if err != nil {
		return domain.RunRecord{}, fmt.Errorf("storage.GetRun: clearings: %w", err)
	}
	run.Matches = matches
	return run, nil
}

// ListRuns devuelve las últimas simulaciones, más recientes primero.
func (s *PostgresStorage) ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, started_at, seed, buyer_rate, seller_rate, horizon, strategy,
		       buyer_arrivals, seller_arrivals, clearings, matched, avg_price
		FROM runs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.ListRuns: query: %w", err)
	}
	runs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.RunRecord, error) {
		return scanPgRun(row)
	})
	if err != nil {
		return nil, fmt.Errorf("storage.ListRuns: %w", err)
	}
	return runs, nil
}

// Close cierra el pool.
func (s *PostgresStorage) Close() error {
	s.pool.Close()
	return nil
}

func scanPgRun(row pgx.Row) (domain.RunRecord, error) {
	var run domain.RunRecord
	var startedAt time.Time
	var strategy string
	var seed int64
	if err := row.Scan(
		&run.ID, &startedAt, &seed,
		&run.Params.BuyerRate, &run.Params.SellerRate, &run.Params.Horizon, &strategy,
		&run.Stats.BuyerArrivals, &run.Stats.SellerArrivals,
		&run.Stats.Clearings, &run.Stats.Matched, &run.Stats.AvgPrice,
	); err != nil {
		return domain.RunRecord{}, err
	}
	run.StartedAt = startedAt.UTC()
	run.Params.Seed = uint64(seed)
	run.Params.Strategy, _ = domain.ParseStrategy(strategy)
	return run, nil
}

func nonNil(v []float64) []float64 {
	if v == nil {
		return []float64{}
	}
	return v
}

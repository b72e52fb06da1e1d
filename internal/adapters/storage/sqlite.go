package storage

// sqlite.go: persistencia de simulaciones en SQLite.
//
// Tablas:
//   - `runs`: una fila por simulación con parámetros y resumen.
//   - `samples`: la historia de profundidad del mercado, una fila por ciclo.
//   - `clearings`: un paso de clearing con trato por fila.
//   - `matched`: valuaciones de los participantes que salieron en cada clearing.
//
// Una simulación se escribe entera en una transacción: o está completa o no está.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alejandrodnm/arrivalmarket/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id              TEXT PRIMARY KEY,
    started_at      TEXT    NOT NULL,
    seed            INTEGER NOT NULL,
    buyer_rate      REAL    NOT NULL,
    seller_rate     REAL    NOT NULL,
    horizon         REAL    NOT NULL,
    strategy        TEXT    NOT NULL,
    buyer_arrivals  INTEGER NOT NULL DEFAULT 0,
    seller_arrivals INTEGER NOT NULL DEFAULT 0,
    clearings       INTEGER NOT NULL DEFAULT 0,
    matched         INTEGER NOT NULL DEFAULT 0,
    avg_price       REAL    NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS samples (
    run_id  TEXT    NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    seq     INTEGER NOT NULL,
    t       REAL    NOT NULL,
    buyers  INTEGER NOT NULL,
    sellers INTEGER NOT NULL,
    PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS clearings (
    run_id    TEXT    NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    seq       INTEGER NOT NULL,
    t         REAL    NOT NULL,
    price     REAL    NOT NULL,
    min_bound REAL    NOT NULL,
    max_bound REAL    NOT NULL,
    PRIMARY KEY (run_id, seq)
);

-- side: 'buyer' | 'seller'; pos conserva el orden dentro del pool
CREATE TABLE IF NOT EXISTS matched (
    run_id    TEXT    NOT NULL,
    clear_seq INTEGER NOT NULL,
    side      TEXT    NOT NULL,
    pos       INTEGER NOT NULL,
    valuation REAL    NOT NULL,
    PRIMARY KEY (run_id, clear_seq, side, pos)
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
`

// timeLayout ordena lexicográficamente igual que cronológicamente (UTC, ancho fijo).
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStorage implementa ports.RunStorage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada y aplica el schema.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// SaveRun persiste la simulación completa en una sola transacción.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run domain.RunRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: begin tx: %w", err)
	}
	defer tx.Rollback()

	p, st := run.Params, run.Stats
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs
			(id, started_at, seed, buyer_rate, seller_rate, horizon, strategy,
			 buyer_arrivals, seller_arrivals, clearings, matched, avg_price)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC().Format(timeLayout), int64(p.Seed),
		p.BuyerRate, p.SellerRate, p.Horizon, p.Strategy.String(),
		st.BuyerArrivals, st.SellerArrivals, st.Clearings, st.Matched, st.AvgPrice,
	); err != nil {
		return fmt.Errorf("storage.SaveRun: insert run %s: %w", run.ID, err)
	}

	sampleStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO samples (run_id, seq, t, buyers, sellers) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: prepare samples: %w", err)
	}
	defer sampleStmt.Close()

	for i, smp := range run.History {
		if _, err := sampleStmt.ExecContext(ctx, run.ID, i, smp.Time, smp.Buyers, smp.Sellers); err != nil {
			return fmt.Errorf("storage.SaveRun: insert sample %d: %w", i, err)
		}
	}

	clearStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO clearings (run_id, seq, t, price, min_bound, max_bound) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: prepare clearings: %w", err)
	}
	defer clearStmt.Close()

	matchedStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO matched (run_id, clear_seq, side, pos, valuation) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: prepare matched: %w", err)
	}
	defer matchedStmt.Close()

	for _, m := range run.Matches {
		if _, err := clearStmt.ExecContext(ctx,
			run.ID, m.Seq, m.Time, m.Price, m.Interval.Min, m.Interval.Max,
		); err != nil {
			return fmt.Errorf("storage.SaveRun: insert clearing %d: %w", m.Seq, err)
		}
		for side, values := range matchedSides(m) {
			for pos, v := range values {
				if _, err := matchedStmt.ExecContext(ctx, run.ID, m.Seq, side.String(), pos, v); err != nil {
					return fmt.Errorf("storage.SaveRun: insert matched %d/%s: %w", m.Seq, side, err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveRun: commit: %w", err)
	}
	return nil
}

// GetRun devuelve una simulación con su historia y sus clearings.
func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (domain.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, seed, buyer_rate, seller_rate, horizon, strategy,
		       buyer_arrivals, seller_arrivals, clearings, matched, avg_price
		FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RunRecord{}, fmt.Errorf("storage.GetRun: %s: %w", id, domain.ErrRunNotFound)
	}
	if err != nil {
		return domain.RunRecord{}, fmt.Errorf("storage.GetRun: %s: %w", id, err)
	}

	if run.History, err = s.samples(ctx, id); err != nil {
		return domain.RunRecord{}, err
	}
	if run.Matches, err = s.clearings(ctx, id); err != nil {
		return domain.RunRecord{}, err
	}
	return run, nil
}

// ListRuns devuelve las últimas simulaciones, más recientes primero.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, seed, buyer_rate, seller_rate, horizon, strategy,
		       buyer_arrivals, seller_arrivals, clearings, matched, avg_price
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.ListRuns: query: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.ListRuns: scan row: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

func (s *SQLiteStorage) samples(ctx context.Context, id string) (domain.MarketHistory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t, buyers, sellers FROM samples WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("storage.GetRun: query samples: %w", err)
	}
	defer rows.Close()

	var h domain.MarketHistory
	for rows.Next() {
		var smp domain.Sample
		if err := rows.Scan(&smp.Time, &smp.Buyers, &smp.Sellers); err != nil {
			return nil, fmt.Errorf("storage.GetRun: scan sample: %w", err)
		}
		h = append(h, smp)
	}
	return h, rows.Err()
}

func (s *SQLiteStorage) clearings(ctx context.Context, id string) ([]domain.MatchEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, t, price, min_bound, max_bound FROM clearings WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("storage.GetRun: query clearings: %w", err)
	}
	var matches []domain.MatchEvent
	for rows.Next() {
		var m domain.MatchEvent
		if err := rows.Scan(&m.Seq, &m.Time, &m.Price, &m.Interval.Min, &m.Interval.Max); err != nil {
			rows.Close()
			return nil, fmt.Errorf("storage.GetRun: scan clearing: %w", err)
		}
		matches = append(matches, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage.GetRun: clearings: %w", err)
	}

	// Con MaxOpenConns=1 no se puede tener dos cursores abiertos a la vez.
	bySeq := make(map[int]*domain.MatchEvent, len(matches))
	for i := range matches {
		bySeq[matches[i].Seq] = &matches[i]
	}
	vrows, err := s.db.QueryContext(ctx,
		`SELECT clear_seq, side, valuation FROM matched WHERE run_id = ? ORDER BY clear_seq, side, pos`, id)
	if err != nil {
		return nil, fmt.Errorf("storage.GetRun: query matched: %w", err)
	}
	defer vrows.Close()
	for vrows.Next() {
		var seq int
		var side string
		var v float64
		if err := vrows.Scan(&seq, &side, &v); err != nil {
			return nil, fmt.Errorf("storage.GetRun: scan matched: %w", err)
		}
		attachMatched(bySeq[seq], side, v)
	}
	return matches, vrows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (domain.RunRecord, error) {
	var run domain.RunRecord
	var startedAt, strategy string
	var seed int64
	if err := row.Scan(
		&run.ID, &startedAt, &seed,
		&run.Params.BuyerRate, &run.Params.SellerRate, &run.Params.Horizon, &strategy,
		&run.Stats.BuyerArrivals, &run.Stats.SellerArrivals,
		&run.Stats.Clearings, &run.Stats.Matched, &run.Stats.AvgPrice,
	); err != nil {
		return domain.RunRecord{}, err
	}
	run.Params.Seed = uint64(seed)
	run.StartedAt, _ = time.Parse(timeLayout, startedAt)
	run.Params.Strategy, _ = domain.ParseStrategy(strategy)
	return run, nil
}

package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/alejandrodnm/arrivalmarket/internal/adapters/storage"
	"github.com/alejandrodnm/arrivalmarket/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRun(id string, startedAt time.Time) domain.RunRecord {
	run := domain.RunRecord{
		ID:        id,
		StartedAt: startedAt,
		Params: domain.RunParams{
			Seed:       1<<63 + 5, // bit alto activo: debe sobrevivir al INTEGER firmado
			BuyerRate:  2,
			SellerRate: 1.5,
			Horizon:    10,
			Strategy:   domain.StrategyBinary,
		},
		Stats: domain.RunStats{BuyerArrivals: 3, SellerArrivals: 2},
		History: domain.MarketHistory{
			{Time: 0, Buyers: 0, Sellers: 0},
			{Time: 0.4, Buyers: 1, Sellers: 0},
			{Time: 1.1, Buyers: 0, Sellers: 0},
			{Time: 10, Buyers: 1, Sellers: 1},
		},
		Matches: []domain.MatchEvent{
			{
				Seq: 1, Time: 1.1, Price: 7,
				Interval: domain.ClearingInterval{Min: 6, Max: 8},
				Buyers:   []float64{10, 8},
				Sellers:  []float64{3, 6},
			},
		},
	}
	run.ComputeStats()
	return run
}

func TestSQLiteStorage_SaveAndGetRun(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	started := time.Date(2024, 3, 1, 12, 0, 0, 123, time.UTC)
	want := makeRun("run-a", started)
	require.NoError(t, db.SaveRun(ctx, want))

	got, err := db.GetRun(ctx, "run-a")
	require.NoError(t, err)

	assert.Equal(t, want.ID, got.ID)
	assert.True(t, started.Equal(got.StartedAt))
	assert.Equal(t, want.Params, got.Params)
	assert.Equal(t, want.Stats, got.Stats)
	assert.Equal(t, want.History, got.History)
	require.Len(t, got.Matches, 1)
	assert.Equal(t, want.Matches[0], got.Matches[0])
	assert.Equal(t, 2, got.Stats.Matched)
	assert.InDelta(t, 7.0, got.Stats.AvgPrice, 1e-12)
}

func TestSQLiteStorage_GetRun_NotFound(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestSQLiteStorage_ListRuns_NewestFirst(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.SaveRun(ctx, makeRun("old", base)))
	require.NoError(t, db.SaveRun(ctx, makeRun("new", base.Add(time.Hour))))
	require.NoError(t, db.SaveRun(ctx, makeRun("mid", base.Add(time.Minute))))

	runs, err := db.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "new", runs[0].ID)
	assert.Equal(t, "mid", runs[1].ID)
	assert.Empty(t, runs[0].History)
}

func TestSQLiteStorage_DuplicateIDRollsBack(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.SaveRun(ctx, makeRun("dup", time.Now())))
	assert.Error(t, db.SaveRun(ctx, makeRun("dup", time.Now())))

	got, err := db.GetRun(ctx, "dup")
	require.NoError(t, err)
	assert.Len(t, got.History, 4)
}

func TestSQLiteStorage_EmptyRun(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	run := domain.RunRecord{ID: "empty", StartedAt: time.Now()}
	require.NoError(t, db.SaveRun(ctx, run))

	got, err := db.GetRun(ctx, "empty")
	require.NoError(t, err)
	assert.Empty(t, got.History)
	assert.Empty(t, got.Matches)
}

func TestOpen_SQLiteByDefault(t *testing.T) {
	st, err := storage.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	defer st.Close()

	_, ok := st.(*storage.SQLiteStorage)
	assert.True(t, ok)
}

package selection

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-watch/internal/contracts"
	"github.com/wonny/aegis-watch/pkg/config"
	"github.com/wonny/aegis-watch/pkg/database"
)

func newPick(runID, ticker string, rank int, ts time.Time) *contracts.Pick {
	return &contracts.Pick{
		ID:               uuid.NewString(),
		RunID:            runID,
		Ticker:           ticker,
		Rank:             rank,
		Reasons:          []string{"Low float with 5.1x relative volume", "FDA approval headline"},
		ExplanationText:  ticker + ": low float breakout",
		PriceAtSelection: decimal.RequireFromString("3.4100"),
		Timestamp:        ts,
	}
}

func TestMemoryRepository_RoundTrip(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	runID := uuid.NewString()
	now := time.Now().UTC()

	require.NoError(t, repo.SavePick(ctx, newPick(runID, "OLDR", 1, now.Add(-time.Hour))))
	require.NoError(t, repo.SavePick(ctx, newPick(runID, "SCND", 2, now)))
	require.NoError(t, repo.SavePick(ctx, newPick(runID, "FRST", 1, now)))

	picks, err := repo.LatestPicks(ctx, 2)
	require.NoError(t, err)
	require.Len(t, picks, 2)

	assert.Equal(t, "FRST", picks[0].Ticker)
	assert.Equal(t, "FRST: low float breakout", picks[0].ExplanationText)
	assert.Equal(t, "SCND", picks[1].Ticker)
}

func TestMemoryRepository_CopiesReasons(t *testing.T) {
	repo := NewMemoryRepository()
	p := newPick(uuid.NewString(), "ABCD", 1, time.Now())
	require.NoError(t, repo.SavePick(context.Background(), p))

	p.Reasons[0] = "mutated"

	picks, err := repo.LatestPicks(context.Background(), 10)
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", picks[0].Reasons[0])
}

func TestRepository_RoundTrip(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" || testing.Short() {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	db, err := database.New(context.Background(), config.DatabaseConfig{
		URL: url, MaxConns: 2, MinConns: 1, MaxConnLifetime: time.Hour, MaxConnIdleTime: time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, db.EnsureSchema(ctx))

	repo := NewRepository(db.Pool)
	// 미래 시각으로 저장해 최신 목록 맨 앞에 오게 함
	ts := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Microsecond)
	pick := newPick(uuid.NewString(), "ABCD", 1, ts)
	require.NoError(t, repo.SavePick(ctx, pick))
	t.Cleanup(func() {
		db.Pool.Exec(context.Background(), "DELETE FROM watch.picks WHERE id = $1", pick.ID)
	})

	picks, err := repo.LatestPicks(ctx, 1)
	require.NoError(t, err)
	require.Len(t, picks, 1)

	assert.Equal(t, pick.ID, picks[0].ID)
	assert.Equal(t, "ABCD", picks[0].Ticker)
	assert.Equal(t, pick.ExplanationText, picks[0].ExplanationText)
	assert.Equal(t, pick.Reasons, picks[0].Reasons)
	assert.True(t, pick.PriceAtSelection.Equal(picks[0].PriceAtSelection))
	assert.True(t, ts.Equal(picks[0].Timestamp))
}

package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "coach.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "coach.db")

	db, err := Open(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(context.Background(), path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM history`).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestSnapshotRepo_WriteReadClear(t *testing.T) {
	repo := NewSnapshotRepo(newTestDB(t))
	ctx := context.Background()

	got, err := repo.Read(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	started := time.UnixMilli(1_760_000_000_123)
	snap := Snapshot{Running: true, StartedAt: started, Sport: "bike", LangPref: "random"}
	require.NoError(t, repo.Write(ctx, snap))
	// second write overwrites the same key
	snap.Sport = "judo"
	require.NoError(t, repo.Write(ctx, snap))

	got, err = repo.Read(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Running)
	assert.True(t, started.Equal(got.StartedAt))
	assert.Equal(t, "judo", got.Sport)
	assert.Equal(t, "random", got.LangPref)

	require.NoError(t, repo.Clear(ctx))
	got, err = repo.Read(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	// clearing twice is fine
	require.NoError(t, repo.Clear(ctx))
}

func TestHistoryRepo_AppendAndList(t *testing.T) {
	repo := NewHistoryRepo(newTestDB(t))
	ctx := context.Background()
	base := time.Date(2026, 5, 4, 18, 0, 0, 0, time.UTC)

	recs := []HistoryRecord{
		{ID: base.Add(2 * time.Hour).UnixMilli(), Date: base.Add(2 * time.Hour), Duration: 3600, FullDay: true, Sport: "boxing"},
		{ID: base.UnixMilli(), Date: base, Duration: 1200, FullDay: false, Sport: "abs"},
		{ID: base.Add(-8 * 24 * time.Hour).UnixMilli(), Date: base.Add(-8 * 24 * time.Hour), Duration: 4000, FullDay: true, Sport: "bike"},
	}
	for _, r := range recs {
		require.NoError(t, repo.Append(ctx, r))
	}

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "bike", all[0].Sport)
	assert.Equal(t, "abs", all[1].Sport)
	assert.Equal(t, "boxing", all[2].Sport)
	assert.True(t, all[2].FullDay)
	assert.Equal(t, 3600, all[2].Duration)

	week, err := repo.ListSince(ctx, base.Add(-7*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, week, 2)
	assert.Equal(t, "abs", week[0].Sport)
}

func TestHistoryRepo_AppendRejectsDuplicateID(t *testing.T) {
	repo := NewHistoryRepo(newTestDB(t))
	ctx := context.Background()
	now := time.Now()

	rec := HistoryRecord{ID: now.UnixMilli(), Date: now, Duration: 10}
	require.NoError(t, repo.Append(ctx, rec))
	assert.Error(t, repo.Append(ctx, rec))
}

func TestProfileRepo_GetPut(t *testing.T) {
	repo := NewProfileRepo(newTestDB(t))
	ctx := context.Background()

	p, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, p)

	assert.ErrorIs(t, repo.Put(ctx, Profile{Gender: "f", WeightKg: 60}), ErrIncompleteProfile)

	require.NoError(t, repo.Put(ctx, Profile{Gender: "f", WeightKg: 60.5, HeightCm: 170}))
	require.NoError(t, repo.Put(ctx, Profile{Gender: "f", WeightKg: 61, HeightCm: 170}))

	p, err = repo.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 61.0, p.WeightKg)
	assert.Equal(t, 170.0, p.HeightCm)
	assert.NoError(t, p.Validate())
}

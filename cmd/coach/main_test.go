package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowaak/smart-trainer/coach-app/internal/session"
	"github.com/lowaak/smart-trainer/coach-app/internal/storage"
)

type cliHarness struct {
	dir    string
	config string
	dbPath string
}

func newCLIHarness(t *testing.T) *cliHarness {
	t.Helper()
	dir := t.TempDir()
	h := &cliHarness{
		dir:    dir,
		config: filepath.Join(dir, "config.yaml"),
		dbPath: filepath.Join(dir, "coach.db"),
	}
	cfg := fmt.Sprintf("storage:\n  path: %s\nlog:\n  file: %s\n", h.dbPath, filepath.Join(dir, "coach"))
	require.NoError(t, os.WriteFile(h.config, []byte(cfg), 0644))
	return h
}

func (h *cliHarness) run(args ...string) (string, error) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", h.config}, args...))
	err := root.Execute()
	return out.String(), err
}

func (h *cliHarness) withStorage(t *testing.T, fn func(ctx context.Context, db storage.DBTX)) {
	t.Helper()
	ctx := context.Background()
	db, err := storage.Open(ctx, h.dbPath)
	require.NoError(t, err)
	defer db.Close()
	fn(ctx, db)
}

func TestProfileSetAndShow(t *testing.T) {
	h := newCLIHarness(t)

	out, err := h.run("profile", "show")
	require.NoError(t, err)
	assert.Contains(t, out, session.MsgFillProfile)

	_, err = h.run("profile", "set", "--weight", "70")
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrIncompleteProfile)

	out, err = h.run("profile", "set", "--weight", "70", "--height", "175", "--gender", "f")
	require.NoError(t, err)
	assert.Contains(t, out, "profile saved")

	// Unset flags keep their value
	_, err = h.run("profile", "set", "--weight", "68.5")
	require.NoError(t, err)

	out, err = h.run("profile", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "gender: f")
	assert.Contains(t, out, "weight_kg: 68.5")
	assert.Contains(t, out, "height_cm: 175")
	assert.Contains(t, out, "complete: true")
}

func TestStatusAndHistory(t *testing.T) {
	h := newCLIHarness(t)

	out, err := h.run("status")
	require.NoError(t, err)
	assert.Contains(t, out, "0 / ")
	assert.Contains(t, out, "Ready to train.")

	out, err = h.run("history")
	require.NoError(t, err)
	assert.Contains(t, out, "no sessions")

	now := time.Now()
	h.withStorage(t, func(ctx context.Context, db storage.DBTX) {
		repo := storage.NewHistoryRepo(db)
		require.NoError(t, repo.Append(ctx, storage.HistoryRecord{ID: 1, Date: now, Duration: 3700, FullDay: true, Sport: "bike"}))
		require.NoError(t, repo.Append(ctx, storage.HistoryRecord{ID: 2, Date: now.AddDate(0, 0, -30), Duration: 600, Sport: "abs"}))
	})

	out, err = h.run("status")
	require.NoError(t, err)
	assert.Contains(t, out, "1 / ")

	out, err = h.run("history")
	require.NoError(t, err)
	assert.Contains(t, out, "61:40  Full day")
	assert.Contains(t, out, "10:00  Partial")

	out, err = h.run("history", "--week")
	require.NoError(t, err)
	assert.Contains(t, out, "Bike")
	assert.NotContains(t, out, "Abs")
}

func TestSnapshotCommands(t *testing.T) {
	h := newCLIHarness(t)

	out, err := h.run("snapshot", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "no running session")

	h.withStorage(t, func(ctx context.Context, db storage.DBTX) {
		require.NoError(t, storage.NewSnapshotRepo(db).Write(ctx, storage.Snapshot{
			Running:   true,
			StartedAt: time.Now().Add(-90 * time.Second),
			Sport:     "bike",
			LangPref:  "en",
		}))
	})

	out, err = h.run("snapshot", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "running=true sport=bike lang=en")

	out, err = h.run("status")
	require.NoError(t, err)
	assert.Contains(t, out, "Running: Bike since")

	out, err = h.run("snapshot", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "snapshot cleared")

	out, err = h.run("snapshot", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "no running session")
}

func TestStatusIgnoresStaleSnapshot(t *testing.T) {
	h := newCLIHarness(t)

	h.withStorage(t, func(ctx context.Context, db storage.DBTX) {
		require.NoError(t, storage.NewSnapshotRepo(db).Write(ctx, storage.Snapshot{
			Running:   true,
			StartedAt: time.Now().Add(-session.DefaultMaxResumeAge - time.Hour),
			Sport:     "bike",
			LangPref:  "en",
		}))
	})

	out, err := h.run("status")
	require.NoError(t, err)
	assert.NotContains(t, out, "Running:")
	assert.Contains(t, out, "too old to resume")
	assert.Contains(t, out, "Ready to train.")
}

func TestSportsListsBuiltInCatalog(t *testing.T) {
	h := newCLIHarness(t)

	out, err := h.run("sports")
	require.NoError(t, err)
	assert.Contains(t, out, "Bike")
	assert.Contains(t, out, "Endurance ride")
}

func TestFlagOverridesConfig(t *testing.T) {
	h := newCLIHarness(t)
	other := filepath.Join(h.dir, "other.db")

	_, err := h.run("profile", "set", "--db", other, "--weight", "70", "--height", "175")
	require.NoError(t, err)

	_, err = os.Stat(other)
	assert.NoError(t, err)

	out, err := h.run("profile", "show")
	require.NoError(t, err)
	assert.Contains(t, out, session.MsgFillProfile)
}

func TestInvalidConfigIsReported(t *testing.T) {
	h := newCLIHarness(t)
	require.NoError(t, os.WriteFile(h.config, []byte("policy:\n  max_full_days_per_week: 0\n"), 0644))

	_, err := h.run("status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_full_days_per_week")
}

func TestRootNeedsTerminal(t *testing.T) {
	if isatty.IsTerminal(os.Stdout.Fd()) {
		t.Skip("stdout is a terminal")
	}
	h := newCLIHarness(t)

	_, err := h.run()
	assert.ErrorIs(t, err, errNoTerminal)
}

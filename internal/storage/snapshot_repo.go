package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const snapshotKey = "current"

// SnapshotRepo holds at most one runtime snapshot, under a fixed key.
type SnapshotRepo struct {
	db DBTX
}

func NewSnapshotRepo(conn DBTX) *SnapshotRepo {
	return &SnapshotRepo{db: conn}
}

// Write upserts the current snapshot. Repeated writes are idempotent.
func (r *SnapshotRepo) Write(ctx context.Context, s Snapshot) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runtime (id, running, started_at, sport, lang_pref) VALUES (?, ?, ?, ?, ?)`,
		snapshotKey, boolToInt(s.Running), toMillis(s.StartedAt), s.Sport, s.LangPref,
	)
	if err != nil {
		return fmt.Errorf("writing runtime snapshot: %w", err)
	}
	return nil
}

// Read returns nil, nil when no session is recorded as running.
func (r *SnapshotRepo) Read(ctx context.Context) (*Snapshot, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT running, started_at, sport, lang_pref FROM runtime WHERE id = ?`, snapshotKey)

	var (
		s         Snapshot
		running   int
		startedAt int64
	)
	if err := row.Scan(&running, &startedAt, &s.Sport, &s.LangPref); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading runtime snapshot: %w", err)
	}
	s.Running = running != 0
	s.StartedAt = fromMillis(startedAt)
	return &s, nil
}

func (r *SnapshotRepo) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM runtime WHERE id = ?`, snapshotKey); err != nil {
		return fmt.Errorf("clearing runtime snapshot: %w", err)
	}
	return nil
}

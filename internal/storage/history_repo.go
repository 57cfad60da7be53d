package storage

import (
	"context"
	"fmt"
	"time"
)

// HistoryRepo stores finished sessions, append-only.
type HistoryRepo struct {
	db DBTX
}

func NewHistoryRepo(conn DBTX) *HistoryRepo {
	return &HistoryRepo{db: conn}
}

func (r *HistoryRepo) Append(ctx context.Context, rec HistoryRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO history (id, date, duration, full_day, sport) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, toMillis(rec.Date), rec.Duration, boolToInt(rec.FullDay), rec.Sport,
	)
	if err != nil {
		return fmt.Errorf("inserting history record %d: %w", rec.ID, err)
	}
	return nil
}

// List returns every record ordered by date.
func (r *HistoryRepo) List(ctx context.Context) ([]HistoryRecord, error) {
	return r.query(ctx,
		`SELECT id, date, duration, full_day, sport FROM history ORDER BY date ASC, id ASC`)
}

// ListSince returns records strictly newer than since, ordered by date.
func (r *HistoryRepo) ListSince(ctx context.Context, since time.Time) ([]HistoryRecord, error) {
	return r.query(ctx,
		`SELECT id, date, duration, full_day, sport FROM history WHERE date > ? ORDER BY date ASC, id ASC`,
		toMillis(since))
}

func (r *HistoryRepo) query(ctx context.Context, q string, args ...any) ([]HistoryRecord, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var out []HistoryRecord
	for rows.Next() {
		var (
			rec     HistoryRecord
			date    int64
			fullDay int
		)
		if err := rows.Scan(&rec.ID, &date, &rec.Duration, &fullDay, &rec.Sport); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		rec.Date = fromMillis(date)
		rec.FullDay = fullDay != 0
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history rows: %w", err)
	}
	return out, nil
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const profileKey = "user"

type ProfileRepo struct {
	db DBTX
}

func NewProfileRepo(conn DBTX) *ProfileRepo {
	return &ProfileRepo{db: conn}
}

// Get returns nil, nil when no profile has been saved yet.
func (r *ProfileRepo) Get(ctx context.Context) (*Profile, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT gender, weight, height FROM profile WHERE id = ?`, profileKey)

	var p Profile
	if err := row.Scan(&p.Gender, &p.WeightKg, &p.HeightCm); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning profile: %w", err)
	}
	return &p, nil
}

// Put validates and upserts the profile.
func (r *ProfileRepo) Put(ctx context.Context, p Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO profile (id, gender, weight, height) VALUES (?, ?, ?, ?)`,
		profileKey, p.Gender, p.WeightKg, p.HeightCm,
	)
	if err != nil {
		return fmt.Errorf("upserting profile: %w", err)
	}
	return nil
}

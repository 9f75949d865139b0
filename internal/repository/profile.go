package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/recallware/memspace/internal/domain"
)

type ProfileRepository struct {
	db dbtx
}

func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: pool}
}

func (r *ProfileRepository) Create(ctx context.Context, entry *domain.ProfileEntry) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO profile_entries (id, space_id, category, key, value, source, valid_from, valid_until, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.ID, entry.SpaceID, entry.Category, entry.Key, entry.Value, entry.Source, entry.ValidFrom, entry.ValidUntil, entry.CreatedAt, entry.UpdatedAt,
	)
	return err
}

func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*domain.ProfileEntry, error) {
	var entry domain.ProfileEntry
	err := r.db.QueryRow(ctx,
		`SELECT id, space_id, category, key, value, source, valid_from, valid_until, created_at, updated_at
		 FROM profile_entries WHERE id = $1`,
		id,
	).Scan(&entry.ID, &entry.SpaceID, &entry.Category, &entry.Key, &entry.Value, &entry.Source, &entry.ValidFrom, &entry.ValidUntil, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProfileEntryNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func (r *ProfileRepository) ListBySpace(ctx context.Context, spaceID string) ([]*domain.ProfileEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, space_id, category, key, value, source, valid_from, valid_until, created_at, updated_at
		 FROM profile_entries WHERE space_id = $1 ORDER BY category ASC, key ASC, created_at DESC`,
		spaceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.ProfileEntry
	for rows.Next() {
		var entry domain.ProfileEntry
		if err := rows.Scan(&entry.ID, &entry.SpaceID, &entry.Category, &entry.Key, &entry.Value, &entry.Source, &entry.ValidFrom, &entry.ValidUntil, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

func (r *ProfileRepository) Update(ctx context.Context, entry *domain.ProfileEntry) error {
	entry.UpdatedAt = time.Now().UTC()
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE profile_entries SET category = $1, key = $2, value = $3, source = $4, valid_from = $5, valid_until = $6, updated_at = $7
		 WHERE id = $8`,
		entry.Category, entry.Key, entry.Value, entry.Source, entry.ValidFrom, entry.ValidUntil, entry.UpdatedAt, entry.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrProfileEntryNotFound
	}
	return nil
}

func (r *ProfileRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM profile_entries WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrProfileEntryNotFound
	}
	return nil
}

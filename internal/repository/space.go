package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/recallware/memspace/internal/domain"
)

type SpaceRepository struct {
	db dbtx
}

func NewSpaceRepository(pool *pgxpool.Pool) *SpaceRepository {
	return &SpaceRepository{db: pool}
}

func (r *SpaceRepository) Create(ctx context.Context, space *domain.Space) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO spaces (id, owner_id, name, description, rules, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		space.ID, space.OwnerID, space.Name, space.Description, space.Rules, space.CreatedAt, space.UpdatedAt,
	)
	return err
}

func (r *SpaceRepository) GetByID(ctx context.Context, id string) (*domain.Space, error) {
	var space domain.Space
	err := r.db.QueryRow(ctx,
		`SELECT id, owner_id, name, description, rules, created_at, updated_at
		 FROM spaces WHERE id = $1`,
		id,
	).Scan(&space.ID, &space.OwnerID, &space.Name, &space.Description, &space.Rules, &space.CreatedAt, &space.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSpaceNotFound
		}
		return nil, err
	}
	return &space, nil
}

func (r *SpaceRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Space, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, owner_id, name, description, rules, created_at, updated_at
		 FROM spaces WHERE owner_id = $1 ORDER BY created_at ASC`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var spaces []*domain.Space
	for rows.Next() {
		var space domain.Space
		if err := rows.Scan(&space.ID, &space.OwnerID, &space.Name, &space.Description, &space.Rules, &space.CreatedAt, &space.UpdatedAt); err != nil {
			return nil, err
		}
		spaces = append(spaces, &space)
	}
	return spaces, rows.Err()
}

func (r *SpaceRepository) Update(ctx context.Context, space *domain.Space) error {
	space.UpdatedAt = time.Now().UTC()
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE spaces SET name = $1, description = $2, rules = $3, updated_at = $4
		 WHERE id = $5`,
		space.Name, space.Description, space.Rules, space.UpdatedAt, space.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrSpaceNotFound
	}
	return nil
}

func (r *SpaceRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM spaces WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrSpaceNotFound
	}
	return nil
}

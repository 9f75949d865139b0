package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/recallware/memspace/internal/domain"
	"github.com/recallware/memspace/internal/pagination"
	"github.com/recallware/memspace/internal/service"
)

type FactRepository struct {
	db dbtx
}

func NewFactRepository(pool *pgxpool.Pool) *FactRepository {
	return &FactRepository{db: pool}
}

func (r *FactRepository) Create(ctx context.Context, fact *domain.Fact) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO facts (id, space_id, category, statement, confidence, source, tags, related_fact_ids, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		fact.ID, fact.SpaceID, fact.Category, fact.Statement, fact.Confidence, fact.Source, fact.Tags, fact.RelatedFactIDs, fact.CreatedAt, fact.UpdatedAt,
	)
	return err
}

func (r *FactRepository) GetByID(ctx context.Context, id string) (*domain.Fact, error) {
	var fact domain.Fact
	err := r.db.QueryRow(ctx,
		`SELECT id, space_id, category, statement, confidence, source, tags, related_fact_ids, created_at, updated_at
		 FROM facts WHERE id = $1`,
		id,
	).Scan(&fact.ID, &fact.SpaceID, &fact.Category, &fact.Statement, &fact.Confidence, &fact.Source, &fact.Tags, &fact.RelatedFactIDs, &fact.CreatedAt, &fact.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFactNotFound
		}
		return nil, err
	}
	return &fact, nil
}

func (r *FactRepository) ListBySpace(ctx context.Context, spaceID string) ([]*domain.Fact, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, space_id, category, statement, confidence, source, tags, related_fact_ids, created_at, updated_at
		 FROM facts WHERE space_id = $1 ORDER BY created_at DESC`,
		spaceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFactRows(rows)
}

func (r *FactRepository) ListBySpaceWithCursor(ctx context.Context, spaceID string, cursor *pagination.Cursor, limit int) (*service.FactPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, space_id, category, statement, confidence, source, tags, related_fact_ids, created_at, updated_at
			 FROM facts
			 WHERE space_id = $1 AND (created_at, id) < ($2, $3)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $4`,
			spaceID, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, space_id, category, statement, confidence, source, tags, related_fact_ids, created_at, updated_at
			 FROM facts
			 WHERE space_id = $1
			 ORDER BY created_at DESC, id DESC
			 LIMIT $2`,
			spaceID, limit+1,
		)
	}

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanFactRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		lastItem := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(lastItem.ID, lastItem.CreatedAt)
	}

	return &service.FactPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func (r *FactRepository) Update(ctx context.Context, fact *domain.Fact) error {
	fact.UpdatedAt = time.Now().UTC()
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE facts SET category = $1, statement = $2, confidence = $3, source = $4, tags = $5, related_fact_ids = $6, updated_at = $7
		 WHERE id = $8`,
		fact.Category, fact.Statement, fact.Confidence, fact.Source, fact.Tags, fact.RelatedFactIDs, fact.UpdatedAt, fact.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrFactNotFound
	}
	return nil
}

func (r *FactRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM facts WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrFactNotFound
	}
	return nil
}

func scanFactRows(rows pgx.Rows) ([]*domain.Fact, error) {
	var results []*domain.Fact
	for rows.Next() {
		var fact domain.Fact
		if err := rows.Scan(&fact.ID, &fact.SpaceID, &fact.Category, &fact.Statement, &fact.Confidence, &fact.Source, &fact.Tags, &fact.RelatedFactIDs, &fact.CreatedAt, &fact.UpdatedAt); err != nil {
			return nil, err
		}
		results = append(results, &fact)
	}
	return results, rows.Err()
}

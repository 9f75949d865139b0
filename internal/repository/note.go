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

type NoteRepository struct {
	db dbtx
}

func NewNoteRepository(pool *pgxpool.Pool) *NoteRepository {
	return &NoteRepository{db: pool}
}

func (r *NoteRepository) Create(ctx context.Context, note *domain.Note) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO notes (id, space_id, content, category, importance, source, tags, fact_candidate, promoted_to_fact_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		note.ID, note.SpaceID, note.Content, note.Category, note.Importance, note.Source, note.Tags, note.FactCandidate, nullableString(note.PromotedToFactID), note.CreatedAt, note.UpdatedAt,
	)
	return err
}

func (r *NoteRepository) GetByID(ctx context.Context, id string) (*domain.Note, error) {
	var note domain.Note
	var promotedTo *string
	err := r.db.QueryRow(ctx,
		`SELECT id, space_id, content, category, importance, source, tags, fact_candidate, promoted_to_fact_id, created_at, updated_at
		 FROM notes WHERE id = $1`,
		id,
	).Scan(&note.ID, &note.SpaceID, &note.Content, &note.Category, &note.Importance, &note.Source, &note.Tags, &note.FactCandidate, &promotedTo, &note.CreatedAt, &note.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNoteNotFound
		}
		return nil, err
	}
	if promotedTo != nil {
		note.PromotedToFactID = *promotedTo
	}
	return &note, nil
}

func (r *NoteRepository) ListBySpace(ctx context.Context, spaceID string) ([]*domain.Note, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, space_id, content, category, importance, source, tags, fact_candidate, promoted_to_fact_id, created_at, updated_at
		 FROM notes WHERE space_id = $1 ORDER BY created_at DESC`,
		spaceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNoteRows(rows)
}

func (r *NoteRepository) ListBySpaceWithCursor(ctx context.Context, spaceID string, cursor *pagination.Cursor, limit int) (*service.NotePageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, space_id, content, category, importance, source, tags, fact_candidate, promoted_to_fact_id, created_at, updated_at
			 FROM notes
			 WHERE space_id = $1 AND (created_at, id) < ($2, $3)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $4`,
			spaceID, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, space_id, content, category, importance, source, tags, fact_candidate, promoted_to_fact_id, created_at, updated_at
			 FROM notes
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

	items, err := scanNoteRows(rows)
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

	return &service.NotePageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func (r *NoteRepository) Update(ctx context.Context, note *domain.Note) error {
	note.UpdatedAt = time.Now().UTC()
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE notes SET content = $1, category = $2, importance = $3, source = $4, tags = $5, fact_candidate = $6, promoted_to_fact_id = $7, updated_at = $8
		 WHERE id = $9`,
		note.Content, note.Category, note.Importance, note.Source, note.Tags, note.FactCandidate, nullableString(note.PromotedToFactID), note.UpdatedAt, note.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrNoteNotFound
	}
	return nil
}

func (r *NoteRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM notes WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrNoteNotFound
	}
	return nil
}

func scanNoteRows(rows pgx.Rows) ([]*domain.Note, error) {
	var results []*domain.Note
	for rows.Next() {
		var note domain.Note
		var promotedTo *string
		if err := rows.Scan(&note.ID, &note.SpaceID, &note.Content, &note.Category, &note.Importance, &note.Source, &note.Tags, &note.FactCandidate, &promotedTo, &note.CreatedAt, &note.UpdatedAt); err != nil {
			return nil, err
		}
		if promotedTo != nil {
			note.PromotedToFactID = *promotedTo
		}
		results = append(results, &note)
	}
	return results, rows.Err()
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

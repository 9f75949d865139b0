package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/recallware/memspace/internal/domain"
	"github.com/recallware/memspace/internal/pagination"
	"github.com/recallware/memspace/internal/service"
)

type TimelineRepository struct {
	db dbtx
}

func NewTimelineRepository(pool *pgxpool.Pool) *TimelineRepository {
	return &TimelineRepository{db: pool}
}

func (r *TimelineRepository) Create(ctx context.Context, entry *domain.TimelineEntry) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO timeline_entries (id, space_id, timestamp, event_type, title, description, related_entity_id, related_entity_type, metadata, tags, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		entry.ID, entry.SpaceID, entry.Timestamp, entry.EventType, entry.Title, entry.Description, nullableString(entry.RelatedEntityID), nullableString(entry.RelatedEntityType), entry.Metadata, entry.Tags, entry.CreatedAt, entry.UpdatedAt,
	)
	return err
}

func (r *TimelineRepository) GetByID(ctx context.Context, id string) (*domain.TimelineEntry, error) {
	var entry domain.TimelineEntry
	var relatedID, relatedType *string
	err := r.db.QueryRow(ctx,
		`SELECT id, space_id, timestamp, event_type, title, description, related_entity_id, related_entity_type, metadata, tags, created_at, updated_at
		 FROM timeline_entries WHERE id = $1`,
		id,
	).Scan(&entry.ID, &entry.SpaceID, &entry.Timestamp, &entry.EventType, &entry.Title, &entry.Description, &relatedID, &relatedType, &entry.Metadata, &entry.Tags, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTimelineEntryNotFound
		}
		return nil, err
	}
	if relatedID != nil {
		entry.RelatedEntityID = *relatedID
	}
	if relatedType != nil {
		entry.RelatedEntityType = *relatedType
	}
	return &entry, nil
}

func (r *TimelineRepository) ListBySpace(ctx context.Context, spaceID string) ([]*domain.TimelineEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, space_id, timestamp, event_type, title, description, related_entity_id, related_entity_type, metadata, tags, created_at, updated_at
		 FROM timeline_entries WHERE space_id = $1 ORDER BY timestamp DESC`,
		spaceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTimelineRows(rows)
}

func (r *TimelineRepository) ListBySpaceWithCursor(ctx context.Context, spaceID string, cursor *pagination.Cursor, limit int) (*service.TimelinePageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, space_id, timestamp, event_type, title, description, related_entity_id, related_entity_type, metadata, tags, created_at, updated_at
			 FROM timeline_entries
			 WHERE space_id = $1 AND (timestamp, id) < ($2, $3)
			 ORDER BY timestamp DESC, id DESC
			 LIMIT $4`,
			spaceID, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, space_id, timestamp, event_type, title, description, related_entity_id, related_entity_type, metadata, tags, created_at, updated_at
			 FROM timeline_entries
			 WHERE space_id = $1
			 ORDER BY timestamp DESC, id DESC
			 LIMIT $2`,
			spaceID, limit+1,
		)
	}

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanTimelineRows(rows)
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
		nextCursor = pagination.EncodeCursor(lastItem.ID, lastItem.Timestamp)
	}

	return &service.TimelinePageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func (r *TimelineRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM timeline_entries WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrTimelineEntryNotFound
	}
	return nil
}

func scanTimelineRows(rows pgx.Rows) ([]*domain.TimelineEntry, error) {
	var results []*domain.TimelineEntry
	for rows.Next() {
		var entry domain.TimelineEntry
		var relatedID, relatedType *string
		if err := rows.Scan(&entry.ID, &entry.SpaceID, &entry.Timestamp, &entry.EventType, &entry.Title, &entry.Description, &relatedID, &relatedType, &entry.Metadata, &entry.Tags, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
			return nil, err
		}
		if relatedID != nil {
			entry.RelatedEntityID = *relatedID
		}
		if relatedType != nil {
			entry.RelatedEntityType = *relatedType
		}
		results = append(results, &entry)
	}
	return results, rows.Err()
}

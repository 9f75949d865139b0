package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/recallware/memspace/internal/domain"
)

type APIKeyRepository struct {
	db dbtx
}

func NewAPIKeyRepository(pool *pgxpool.Pool) *APIKeyRepository {
	return &APIKeyRepository{db: pool}
}

func (r *APIKeyRepository) Create(ctx context.Context, key *domain.APIKey) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO api_keys (id, owner_id, name, key_hash, created_at, revoked_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		key.ID, key.OwnerID, key.Name, key.KeyHash, key.CreatedAt, key.RevokedAt,
	)
	return err
}

func (r *APIKeyRepository) GetByID(ctx context.Context, id string) (*domain.APIKey, error) {
	var key domain.APIKey
	err := r.db.QueryRow(ctx,
		`SELECT id, owner_id, name, key_hash, created_at, revoked_at
		 FROM api_keys WHERE id = $1`,
		id,
	).Scan(&key.ID, &key.OwnerID, &key.Name, &key.KeyHash, &key.CreatedAt, &key.RevokedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAPIKeyNotFound
		}
		return nil, err
	}
	return &key, nil
}

func (r *APIKeyRepository) GetByHash(ctx context.Context, hash string) (*domain.APIKey, error) {
	var key domain.APIKey
	err := r.db.QueryRow(ctx,
		`SELECT id, owner_id, name, key_hash, created_at, revoked_at
		 FROM api_keys WHERE key_hash = $1`,
		hash,
	).Scan(&key.ID, &key.OwnerID, &key.Name, &key.KeyHash, &key.CreatedAt, &key.RevokedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAPIKeyNotFound
		}
		return nil, err
	}
	return &key, nil
}

func (r *APIKeyRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.APIKey, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, owner_id, name, key_hash, created_at, revoked_at
		 FROM api_keys WHERE owner_id = $1 ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []*domain.APIKey
	for rows.Next() {
		var key domain.APIKey
		if err := rows.Scan(&key.ID, &key.OwnerID, &key.Name, &key.KeyHash, &key.CreatedAt, &key.RevokedAt); err != nil {
			return nil, err
		}
		keys = append(keys, &key)
	}
	return keys, rows.Err()
}

func (r *APIKeyRepository) Revoke(ctx context.Context, id string) error {
	now := time.Now().UTC()
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE api_keys SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`,
		now, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrAPIKeyNotFound
	}
	return nil
}

func (r *APIKeyRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM api_keys WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrAPIKeyNotFound
	}
	return nil
}

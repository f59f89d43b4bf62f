package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	apperrors "linkpulse/internal/errors"
	"linkpulse/internal/model"
)

type PostgresLinkRepository struct {
	db *sql.DB
}

func NewPostgresLinkRepository(db *sql.DB) LinkRepository {
	return &PostgresLinkRepository{
		db: db,
	}
}

const linkColumns = `id, slug, destination, title, password_hash, expires_at, webhook_url, api_key_id, metadata, created_at`

func (r *PostgresLinkRepository) Create(ctx context.Context, link *model.Link) error {
	metadata, err := marshalMetadata(link.Metadata)
	if err != nil {
		return apperrors.NewStorageError("create link", err)
	}

	// ON CONFLICT DO NOTHING + RETURNING: no row back means the slug
	// was taken by a concurrent insert.
	query := `
	INSERT INTO links (slug, destination, title, password_hash, expires_at, webhook_url, api_key_id, metadata, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (slug) DO NOTHING
	RETURNING id
	`

	err = r.db.QueryRowContext(
		ctx,
		query,
		link.Slug,
		link.Destination,
		link.Title,
		link.PasswordHash,
		link.ExpiresAt,
		link.WebhookURL,
		link.APIKeyID,
		metadata,
		link.CreatedAt,
	).Scan(&link.ID)

	if err == sql.ErrNoRows {
		return apperrors.ErrSlugExists
	}

	if err != nil {
		return apperrors.NewStorageError("create link", err)
	}

	return nil
}

func (r *PostgresLinkRepository) GetBySlug(ctx context.Context, slug string) (*model.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE slug = $1`

	link, err := scanLink(r.db.QueryRowContext(ctx, query, slug))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("link with slug '%s': %w", slug, apperrors.ErrLinkNotFound)
	}

	if err != nil {
		return nil, apperrors.NewStorageError("get link", err)
	}

	return link, nil
}

func (r *PostgresLinkRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM links WHERE slug = $1)`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, slug).Scan(&exists)
	if err != nil {
		return false, apperrors.NewStorageError("check slug existence", err)
	}

	return exists, nil
}

func (r *PostgresLinkRepository) ListByAPIKey(ctx context.Context, apiKeyID int64) ([]*model.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE api_key_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, apiKeyID)
	if err != nil {
		return nil, apperrors.NewStorageError("list links", err)
	}
	defer rows.Close()

	var links []*model.Link
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, apperrors.NewStorageError("scan link", err)
		}
		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("list links", err)
	}

	return links, nil
}

func (r *PostgresLinkRepository) UpdateExpiry(ctx context.Context, slug string, apiKeyID int64, expiresAt *time.Time) error {
	query := `UPDATE links SET expires_at = $1 WHERE slug = $2 AND api_key_id = $3`

	result, err := r.db.ExecContext(ctx, query, expiresAt, slug, apiKeyID)
	if err != nil {
		return apperrors.NewStorageError("update link expiry", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewStorageError("update link expiry", err)
	}

	if affected == 0 {
		return fmt.Errorf("link with slug '%s': %w", slug, apperrors.ErrLinkNotFound)
	}

	return nil
}

func (r *PostgresLinkRepository) Delete(ctx context.Context, slug string, apiKeyID int64) error {
	// Clicks go with the link (ON DELETE CASCADE in the schema).
	query := `DELETE FROM links WHERE slug = $1 AND api_key_id = $2`

	result, err := r.db.ExecContext(ctx, query, slug, apiKeyID)
	if err != nil {
		return apperrors.NewStorageError("delete link", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewStorageError("delete link", err)
	}

	if affected == 0 {
		return fmt.Errorf("link with slug '%s': %w", slug, apperrors.ErrLinkNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLink(row rowScanner) (*model.Link, error) {
	link := &model.Link{}
	var metadata []byte

	err := row.Scan(
		&link.ID,
		&link.Slug,
		&link.Destination,
		&link.Title,
		&link.PasswordHash,
		&link.ExpiresAt,
		&link.WebhookURL,
		&link.APIKeyID,
		&metadata,
		&link.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &link.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode link metadata: %w", err)
		}
	}

	return link, nil
}

func marshalMetadata(m map[string]string) (interface{}, error) {
	if len(m) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	return data, nil
}

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	apperrors "linkpulse/internal/errors"
	"linkpulse/internal/model"
)

type PostgresClickRepository struct {
	db *sql.DB
}

func NewPostgresClickRepository(db *sql.DB) ClickRepository {
	return &PostgresClickRepository{
		db: db,
	}
}

// Insert appends one click row. Callers on the redirect path swallow
// the returned error; rows are never updated afterwards.
func (r *PostgresClickRepository) Insert(ctx context.Context, click *model.Click) error {
	var headers interface{}
	if len(click.Headers) > 0 {
		data, err := json.Marshal(click.Headers)
		if err != nil {
			return apperrors.NewStorageError("insert click", fmt.Errorf("failed to encode headers: %w", err))
		}
		headers = data
	}

	query := `
	INSERT INTO clicks (link_id, ip, country, region, city, user_agent, referrer, headers)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING id, clicked_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		click.LinkID,
		click.IP,
		click.Country,
		click.Region,
		click.City,
		click.UserAgent,
		click.Referrer,
		headers,
	).Scan(&click.ID, &click.ClickedAt)

	if err != nil {
		return apperrors.NewStorageError("insert click", err)
	}

	return nil
}

func (r *PostgresClickRepository) CountByLink(ctx context.Context, linkID int64) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clicks WHERE link_id = $1`, linkID).Scan(&count)
	if err != nil {
		return 0, apperrors.NewStorageError("count clicks", err)
	}
	return count, nil
}

// SeriesByDay buckets clicks per day over the trailing window.
func (r *PostgresClickRepository) SeriesByDay(ctx context.Context, linkID int64, days int) ([]model.TimeBucket, error) {
	query := `
	SELECT DATE_TRUNC('day', clicked_at) AS bucket, COUNT(*) AS clicks
	FROM clicks
	WHERE link_id = $1 AND clicked_at >= now() - $2 * INTERVAL '1 day'
	GROUP BY bucket
	ORDER BY bucket ASC
	`

	rows, err := r.db.QueryContext(ctx, query, linkID, days)
	if err != nil {
		return nil, apperrors.NewStorageError("click series", err)
	}
	defer rows.Close()

	var series []model.TimeBucket
	for rows.Next() {
		var b model.TimeBucket
		if err := rows.Scan(&b.Bucket, &b.Count); err != nil {
			return nil, apperrors.NewStorageError("scan click series", err)
		}
		series = append(series, b)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("click series", err)
	}

	return series, nil
}

func (r *PostgresClickRepository) CountByCountry(ctx context.Context, linkID int64, days int) ([]model.CountryCount, error) {
	query := `
	SELECT COALESCE(country, 'Unknown') AS country, COUNT(*) AS clicks
	FROM clicks
	WHERE link_id = $1 AND clicked_at >= now() - $2 * INTERVAL '1 day'
	GROUP BY country
	ORDER BY clicks DESC
	`

	rows, err := r.db.QueryContext(ctx, query, linkID, days)
	if err != nil {
		return nil, apperrors.NewStorageError("clicks by country", err)
	}
	defer rows.Close()

	var counts []model.CountryCount
	for rows.Next() {
		var c model.CountryCount
		if err := rows.Scan(&c.Country, &c.Count); err != nil {
			return nil, apperrors.NewStorageError("scan clicks by country", err)
		}
		counts = append(counts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("clicks by country", err)
	}

	return counts, nil
}

type PostgresAPIKeyRepository struct {
	db *sql.DB
}

func NewPostgresAPIKeyRepository(db *sql.DB) APIKeyRepository {
	return &PostgresAPIKeyRepository{
		db: db,
	}
}

func (r *PostgresAPIKeyRepository) GetByKey(ctx context.Context, key string) (*model.APIKey, error) {
	query := `SELECT id, key, name, created_at FROM api_keys WHERE key = $1`

	apiKey := &model.APIKey{}
	err := r.db.QueryRowContext(ctx, query, key).Scan(
		&apiKey.ID,
		&apiKey.Key,
		&apiKey.Name,
		&apiKey.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, apperrors.ErrAPIKeyNotFound
	}

	if err != nil {
		return nil, apperrors.NewStorageError("get api key", err)
	}

	return apiKey, nil
}

package repository

import (
	"context"
	"time"

	"linkpulse/internal/model"
)

type LinkRepository interface {
	Create(ctx context.Context, link *model.Link) error
	GetBySlug(ctx context.Context, slug string) (*model.Link, error)
	ExistsBySlug(ctx context.Context, slug string) (bool, error)
	ListByAPIKey(ctx context.Context, apiKeyID int64) ([]*model.Link, error)
	UpdateExpiry(ctx context.Context, slug string, apiKeyID int64, expiresAt *time.Time) error
	Delete(ctx context.Context, slug string, apiKeyID int64) error
}

type ClickRepository interface {
	Insert(ctx context.Context, click *model.Click) error
	CountByLink(ctx context.Context, linkID int64) (int64, error)
	SeriesByDay(ctx context.Context, linkID int64, days int) ([]model.TimeBucket, error)
	CountByCountry(ctx context.Context, linkID int64, days int) ([]model.CountryCount, error)
}

type APIKeyRepository interface {
	GetByKey(ctx context.Context, key string) (*model.APIKey, error)
}

package repository

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"linkpulse/internal/cache"
	"linkpulse/internal/model"
)

// CachedLinkRepository wraps a LinkRepository with a Redis read-through
// cache keyed by slug. Cache failures are logged and fall back to the
// database; they never fail the operation.
type CachedLinkRepository struct {
	inner LinkRepository
	cache cache.Cache
	log   *zap.Logger
}

// cachedLink is the cache serialization of a link. model.Link hides
// PasswordHash from JSON for API responses, so marshaling the model
// into the cache would drop the hash and disable password gating on
// every cache hit.
type cachedLink struct {
	ID           int64             `json:"id"`
	Slug         string            `json:"slug"`
	Destination  string            `json:"destination"`
	Title        *string           `json:"title,omitempty"`
	PasswordHash *string           `json:"password_hash,omitempty"`
	ExpiresAt    *time.Time        `json:"expires_at,omitempty"`
	WebhookURL   *string           `json:"webhook_url,omitempty"`
	APIKeyID     *int64            `json:"api_key_id,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

func toCachedLink(link *model.Link) *cachedLink {
	return &cachedLink{
		ID:           link.ID,
		Slug:         link.Slug,
		Destination:  link.Destination,
		Title:        link.Title,
		PasswordHash: link.PasswordHash,
		ExpiresAt:    link.ExpiresAt,
		WebhookURL:   link.WebhookURL,
		APIKeyID:     link.APIKeyID,
		Metadata:     link.Metadata,
		CreatedAt:    link.CreatedAt,
	}
}

func (c *cachedLink) toModel() *model.Link {
	return &model.Link{
		ID:           c.ID,
		Slug:         c.Slug,
		Destination:  c.Destination,
		Title:        c.Title,
		PasswordHash: c.PasswordHash,
		ExpiresAt:    c.ExpiresAt,
		WebhookURL:   c.WebhookURL,
		APIKeyID:     c.APIKeyID,
		Metadata:     c.Metadata,
		CreatedAt:    c.CreatedAt,
	}
}

func NewCachedLinkRepository(inner LinkRepository, c cache.Cache, logger *zap.Logger) LinkRepository {
	return &CachedLinkRepository{
		inner: inner,
		cache: c,
		log:   logger,
	}
}

func (r *CachedLinkRepository) Create(ctx context.Context, link *model.Link) error {
	if err := r.inner.Create(ctx, link); err != nil {
		return err
	}

	key := cache.CacheKeys.Link(link.Slug)
	if err := r.cache.Set(ctx, key, toCachedLink(link)); err != nil {
		r.log.Warn("failed to cache created link", zap.String("slug", link.Slug), zap.Error(err))
	}

	return nil
}

func (r *CachedLinkRepository) GetBySlug(ctx context.Context, slug string) (*model.Link, error) {
	key := cache.CacheKeys.Link(slug)

	var cached cachedLink
	err := r.cache.Get(ctx, key, &cached)
	if err == nil {
		return cached.toModel(), nil
	}

	if !errors.Is(err, cache.ErrCacheMiss) {
		r.log.Warn("link cache read failed", zap.String("slug", slug), zap.Error(err))
	}

	link, err := r.inner.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, key, toCachedLink(link)); err != nil {
		r.log.Warn("failed to cache link", zap.String("slug", slug), zap.Error(err))
	}

	return link, nil
}

func (r *CachedLinkRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	exists, err := r.cache.Exists(ctx, cache.CacheKeys.Link(slug))
	if err == nil && exists {
		return true, nil
	}

	return r.inner.ExistsBySlug(ctx, slug)
}

func (r *CachedLinkRepository) ListByAPIKey(ctx context.Context, apiKeyID int64) ([]*model.Link, error) {
	return r.inner.ListByAPIKey(ctx, apiKeyID)
}

func (r *CachedLinkRepository) UpdateExpiry(ctx context.Context, slug string, apiKeyID int64, expiresAt *time.Time) error {
	if err := r.inner.UpdateExpiry(ctx, slug, apiKeyID, expiresAt); err != nil {
		return err
	}

	// Drop the stale entry; the next resolve re-reads from the database.
	if err := r.cache.Delete(ctx, cache.CacheKeys.Link(slug)); err != nil {
		r.log.Warn("failed to invalidate link cache", zap.String("slug", slug), zap.Error(err))
	}

	return nil
}

func (r *CachedLinkRepository) Delete(ctx context.Context, slug string, apiKeyID int64) error {
	if err := r.inner.Delete(ctx, slug, apiKeyID); err != nil {
		return err
	}

	if err := r.cache.Delete(ctx, cache.CacheKeys.Link(slug)); err != nil {
		r.log.Warn("failed to invalidate link cache", zap.String("slug", slug), zap.Error(err))
	}

	return nil
}

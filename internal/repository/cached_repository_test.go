package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"linkpulse/internal/cache"
	apperrors "linkpulse/internal/errors"
	"linkpulse/internal/model"
)

// jsonCache stores values the way the Redis client does: marshaled to
// JSON on Set, unmarshaled into dest on Get. Field-dropping tags
// therefore behave exactly as they would against real Redis.
type jsonCache struct {
	entries    map[string][]byte
	shouldFail bool
}

func newJSONCache() *jsonCache {
	return &jsonCache{entries: make(map[string][]byte)}
}

func (c *jsonCache) Set(ctx context.Context, key string, value interface{}) error {
	return c.SetWithTTL(ctx, key, value, time.Hour)
}

func (c *jsonCache) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.shouldFail {
		return cache.NewCacheError("set", key, errors.New("cache unavailable"))
	}
	data, err := json.Marshal(value)
	if err != nil {
		return cache.NewCacheError("set", key, err)
	}
	c.entries[key] = data
	return nil
}

func (c *jsonCache) Get(ctx context.Context, key string, dest interface{}) error {
	if c.shouldFail {
		return cache.NewCacheError("get", key, errors.New("cache unavailable"))
	}
	data, ok := c.entries[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (c *jsonCache) Delete(ctx context.Context, keys ...string) error {
	if c.shouldFail {
		return cache.NewCacheError("delete", "", errors.New("cache unavailable"))
	}
	for _, key := range keys {
		delete(c.entries, key)
	}
	return nil
}

func (c *jsonCache) Exists(ctx context.Context, key string) (bool, error) {
	if c.shouldFail {
		return false, cache.NewCacheError("exists", key, errors.New("cache unavailable"))
	}
	_, ok := c.entries[key]
	return ok, nil
}

func (c *jsonCache) HealthCheck(ctx context.Context) error { return nil }
func (c *jsonCache) Close() error                          { return nil }

// countingLinkRepository records how often each operation hits the
// database layer.
type countingLinkRepository struct {
	links      map[string]*model.Link
	getCalls   int
	shouldFail bool
}

func newCountingLinkRepository() *countingLinkRepository {
	return &countingLinkRepository{links: make(map[string]*model.Link)}
}

func (m *countingLinkRepository) Create(ctx context.Context, link *model.Link) error {
	if _, exists := m.links[link.Slug]; exists {
		return apperrors.ErrSlugExists
	}
	link.ID = int64(len(m.links) + 1)
	m.links[link.Slug] = link
	return nil
}

func (m *countingLinkRepository) GetBySlug(ctx context.Context, slug string) (*model.Link, error) {
	m.getCalls++
	if m.shouldFail {
		return nil, apperrors.NewStorageError("get link", errors.New("database error"))
	}
	link, exists := m.links[slug]
	if !exists {
		return nil, apperrors.ErrLinkNotFound
	}
	return link, nil
}

func (m *countingLinkRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	_, exists := m.links[slug]
	return exists, nil
}

func (m *countingLinkRepository) ListByAPIKey(ctx context.Context, apiKeyID int64) ([]*model.Link, error) {
	return nil, nil
}

func (m *countingLinkRepository) UpdateExpiry(ctx context.Context, slug string, apiKeyID int64, expiresAt *time.Time) error {
	link, exists := m.links[slug]
	if !exists {
		return apperrors.ErrLinkNotFound
	}
	link.ExpiresAt = expiresAt
	return nil
}

func (m *countingLinkRepository) Delete(ctx context.Context, slug string, apiKeyID int64) error {
	if _, exists := m.links[slug]; !exists {
		return apperrors.ErrLinkNotFound
	}
	delete(m.links, slug)
	return nil
}

func testLink() *model.Link {
	hash := "$2a$10$abcdefghijklmnopqrstuv"
	title := "Landing"
	webhook := "https://hooks.example.com/clicks"
	keyID := int64(7)
	expiry := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &model.Link{
		ID:           1,
		Slug:         "secret",
		Destination:  "https://example.com/private",
		Title:        &title,
		PasswordHash: &hash,
		ExpiresAt:    &expiry,
		WebhookURL:   &webhook,
		APIKeyID:     &keyID,
		Metadata:     map[string]string{"campaign": "summer"},
		CreatedAt:    time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestCachedLinkRepository_CacheHitPreservesAllFields(t *testing.T) {
	inner := newCountingLinkRepository()
	inner.links["secret"] = testLink()
	jsonStore := newJSONCache()
	repo := NewCachedLinkRepository(inner, jsonStore, zap.NewNop())

	// First read comes from the database and populates the cache.
	first, err := repo.GetBySlug(context.Background(), "secret")
	if err != nil {
		t.Fatalf("GetBySlug() unexpected error = %v", err)
	}
	if !first.HasPassword() {
		t.Fatal("database read lost the password hash")
	}

	// Second read must be served from the cache.
	second, err := repo.GetBySlug(context.Background(), "secret")
	if err != nil {
		t.Fatalf("GetBySlug() unexpected error = %v", err)
	}
	if inner.getCalls != 1 {
		t.Fatalf("database hit %d times, want 1 (second read must come from cache)", inner.getCalls)
	}

	want := testLink()
	if !second.HasPassword() {
		t.Fatal("cache-served link lost the password hash; password gating would be bypassed")
	}
	if *second.PasswordHash != *want.PasswordHash {
		t.Errorf("PasswordHash = %q, want %q", *second.PasswordHash, *want.PasswordHash)
	}
	if second.ExpiresAt == nil || !second.ExpiresAt.Equal(*want.ExpiresAt) {
		t.Error("cache-served link lost expires_at")
	}
	if second.WebhookURL == nil || *second.WebhookURL != *want.WebhookURL {
		t.Error("cache-served link lost webhook_url")
	}
	if second.APIKeyID == nil || *second.APIKeyID != *want.APIKeyID {
		t.Error("cache-served link lost api_key_id")
	}
	if second.Title == nil || *second.Title != *want.Title {
		t.Error("cache-served link lost title")
	}
	if second.Metadata["campaign"] != "summer" {
		t.Error("cache-served link lost metadata")
	}
	if second.Destination != want.Destination || second.Slug != want.Slug || second.ID != want.ID {
		t.Error("cache-served link identity fields mismatch")
	}
}

func TestCachedLinkRepository_CreatePopulatesCacheWithHash(t *testing.T) {
	inner := newCountingLinkRepository()
	jsonStore := newJSONCache()
	repo := NewCachedLinkRepository(inner, jsonStore, zap.NewNop())

	link := testLink()
	link.ID = 0
	if err := repo.Create(context.Background(), link); err != nil {
		t.Fatalf("Create() unexpected error = %v", err)
	}

	// The very first read after creation must already serve the full
	// record from the cache.
	got, err := repo.GetBySlug(context.Background(), "secret")
	if err != nil {
		t.Fatalf("GetBySlug() unexpected error = %v", err)
	}
	if inner.getCalls != 0 {
		t.Fatalf("database hit %d times, want 0 (create must populate the cache)", inner.getCalls)
	}
	if !got.HasPassword() {
		t.Fatal("link cached on create lost the password hash")
	}
}

func TestCachedLinkRepository_UpdateExpiryInvalidates(t *testing.T) {
	inner := newCountingLinkRepository()
	inner.links["secret"] = testLink()
	jsonStore := newJSONCache()
	repo := NewCachedLinkRepository(inner, jsonStore, zap.NewNop())

	if _, err := repo.GetBySlug(context.Background(), "secret"); err != nil {
		t.Fatalf("GetBySlug() unexpected error = %v", err)
	}

	newExpiry := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := repo.UpdateExpiry(context.Background(), "secret", 7, &newExpiry); err != nil {
		t.Fatalf("UpdateExpiry() unexpected error = %v", err)
	}

	got, err := repo.GetBySlug(context.Background(), "secret")
	if err != nil {
		t.Fatalf("GetBySlug() unexpected error = %v", err)
	}
	if inner.getCalls != 2 {
		t.Fatalf("database hit %d times, want 2 (update must invalidate the cache)", inner.getCalls)
	}
	if got.ExpiresAt == nil || !got.ExpiresAt.Equal(newExpiry) {
		t.Error("read after update returned the stale expiry")
	}
}

func TestCachedLinkRepository_DeleteInvalidates(t *testing.T) {
	inner := newCountingLinkRepository()
	inner.links["secret"] = testLink()
	jsonStore := newJSONCache()
	repo := NewCachedLinkRepository(inner, jsonStore, zap.NewNop())

	if _, err := repo.GetBySlug(context.Background(), "secret"); err != nil {
		t.Fatalf("GetBySlug() unexpected error = %v", err)
	}

	if err := repo.Delete(context.Background(), "secret", 7); err != nil {
		t.Fatalf("Delete() unexpected error = %v", err)
	}

	if _, err := repo.GetBySlug(context.Background(), "secret"); !errors.Is(err, apperrors.ErrLinkNotFound) {
		t.Errorf("GetBySlug() after delete = %v, want ErrLinkNotFound (stale cache entry served)", err)
	}
}

func TestCachedLinkRepository_CacheFailureFallsBackToDatabase(t *testing.T) {
	inner := newCountingLinkRepository()
	inner.links["secret"] = testLink()
	jsonStore := newJSONCache()
	jsonStore.shouldFail = true
	repo := NewCachedLinkRepository(inner, jsonStore, zap.NewNop())

	got, err := repo.GetBySlug(context.Background(), "secret")
	if err != nil {
		t.Fatalf("GetBySlug() unexpected error = %v", err)
	}
	if !got.HasPassword() {
		t.Error("database fallback lost the password hash")
	}
	if inner.getCalls != 1 {
		t.Errorf("database hit %d times, want 1", inner.getCalls)
	}
}

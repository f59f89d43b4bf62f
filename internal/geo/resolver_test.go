package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestResolver(baseURL string, clock *fakeClock) *Resolver {
	nowFn := time.Now
	if clock != nil {
		nowFn = clock.Now
	}
	return &Resolver{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 3 * time.Second},
		cache:   newLRUCache(500, time.Hour, nowFn),
		log:     zap.NewNop(),
	}
}

func TestResolver_Lookup(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"success","country":"Germany","regionName":"Berlin","city":"Berlin","lat":52.52,"lon":13.405}`))
	}))
	defer srv.Close()

	r := newTestResolver(srv.URL, nil)

	result := r.Lookup(context.Background(), "203.0.113.7")
	require.NotNil(t, result)
	assert.Equal(t, "Germany", result.Country)
	assert.Equal(t, "Berlin", result.Region)
	assert.Equal(t, "Berlin", result.City)
	assert.Equal(t, 52.52, result.Lat)
	assert.Equal(t, 1, calls)
}

func TestResolver_Lookup_EmptyIP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("provider must not be called for an empty IP")
	}))
	defer srv.Close()

	r := newTestResolver(srv.URL, nil)
	assert.Nil(t, r.Lookup(context.Background(), ""))
}

func TestResolver_Lookup_CachedWhileProviderDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success","country":"France","regionName":"IDF","city":"Paris","lat":48.85,"lon":2.35}`))
	}))

	r := newTestResolver(srv.URL, nil)

	first := r.Lookup(context.Background(), "198.51.100.1")
	require.NotNil(t, first)

	// Kill the provider; the second lookup within the TTL must be served
	// from the cache.
	srv.Close()

	second := r.Lookup(context.Background(), "198.51.100.1")
	require.NotNil(t, second)
	assert.Equal(t, "Paris", second.City)
}

func TestResolver_Lookup_TTLExpiryRefetches(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"status":"success","country":"Japan","regionName":"Tokyo","city":"Tokyo","lat":35.68,"lon":139.69}`))
	}))
	defer srv.Close()

	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	r := newTestResolver(srv.URL, clock)

	require.NotNil(t, r.Lookup(context.Background(), "192.0.2.10"))
	require.NotNil(t, r.Lookup(context.Background(), "192.0.2.10"))
	assert.Equal(t, 1, calls, "second lookup within TTL must hit the cache")

	clock.Advance(time.Hour + time.Minute)

	require.NotNil(t, r.Lookup(context.Background(), "192.0.2.10"))
	assert.Equal(t, 2, calls, "lookup after TTL expiry must re-invoke the provider")
}

func TestResolver_Lookup_FailureNotCached(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Write([]byte(`{"status":"fail","message":"private range"}`))
			return
		}
		w.Write([]byte(`{"status":"success","country":"Brazil","regionName":"SP","city":"Sao Paulo","lat":-23.55,"lon":-46.63}`))
	}))
	defer srv.Close()

	r := newTestResolver(srv.URL, nil)

	assert.Nil(t, r.Lookup(context.Background(), "203.0.113.99"))

	// The failed lookup must not be cached negatively: the next call
	// retries the provider and succeeds.
	result := r.Lookup(context.Background(), "203.0.113.99")
	require.NotNil(t, result)
	assert.Equal(t, "Brazil", result.Country)
	assert.Equal(t, 2, calls)
}

func TestResolver_Lookup_MalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	r := newTestResolver(srv.URL, nil)
	assert.Nil(t, r.Lookup(context.Background(), "203.0.113.5"))
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache(2, time.Hour, nil)

	c.put("a", &Result{City: "A"})
	c.put("b", &Result{City: "B"})

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := c.get("a")
	require.True(t, ok)

	c.put("c", &Result{City: "C"})

	assert.Equal(t, 2, c.len())
	_, ok = c.get("b")
	assert.False(t, ok, "least recently used entry must be evicted")
	_, ok = c.get("a")
	assert.True(t, ok)
	_, ok = c.get("c")
	assert.True(t, ok)
}

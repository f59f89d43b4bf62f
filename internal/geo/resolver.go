package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Result is a coarse location for a client IP.
type Result struct {
	Country string  `json:"country"`
	Region  string  `json:"region"`
	City    string  `json:"city"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

type Config struct {
	BaseURL   string
	CacheSize int
	CacheTTL  time.Duration
	Timeout   time.Duration
}

// Resolver maps client IPs to locations via an external HTTP provider,
// fronted by a bounded in-process cache. Lookup failures are absorbed:
// the caller gets nil and resolution proceeds without geo data.
type Resolver struct {
	baseURL string
	client  *http.Client
	cache   *lruCache
	log     *zap.Logger
}

func NewResolver(cfg Config, logger *zap.Logger) *Resolver {
	return &Resolver{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		cache:   newLRUCache(cfg.CacheSize, cfg.CacheTTL, nil),
		log:     logger,
	}
}

// providerResponse is the ip-api.com style payload. Providers differ on
// the region field name, so both are accepted.
type providerResponse struct {
	Status     string  `json:"status"`
	Country    string  `json:"country"`
	RegionName string  `json:"regionName"`
	Region     string  `json:"region"`
	City       string  `json:"city"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
}

// Lookup resolves ip to a location, or nil when the IP is empty or the
// provider call fails. Failed lookups are not cached; the next miss
// retries the provider.
func (r *Resolver) Lookup(ctx context.Context, ip string) *Result {
	if ip == "" {
		return nil
	}

	if result, ok := r.cache.get(ip); ok {
		return result
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s", r.baseURL, ip), nil)
	if err != nil {
		r.log.Warn("geo lookup request build failed", zap.String("ip", ip), zap.Error(err))
		return nil
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.log.Warn("geo lookup failed", zap.String("ip", ip), zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.log.Warn("geo provider returned non-OK status",
			zap.String("ip", ip),
			zap.Int("status", resp.StatusCode))
		return nil
	}

	var payload providerResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		r.log.Warn("geo provider returned malformed payload", zap.String("ip", ip), zap.Error(err))
		return nil
	}

	if payload.Status != "success" {
		r.log.Debug("geo provider reported failure", zap.String("ip", ip), zap.String("status", payload.Status))
		return nil
	}

	region := payload.RegionName
	if region == "" {
		region = payload.Region
	}

	result := &Result{
		Country: payload.Country,
		Region:  region,
		City:    payload.City,
		Lat:     payload.Lat,
		Lon:     payload.Lon,
	}

	r.cache.put(ip, result)
	return result
}

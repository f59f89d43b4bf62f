package model

import "time"

// Click is an immutable event record of one resolved visit to a link.
// Rows are append-only; nothing updates or deletes them in normal
// operation.
type Click struct {
	ID        int64             `json:"id"`
	LinkID    int64             `json:"link_id"`
	ClickedAt time.Time         `json:"clicked_at"`
	IP        *string           `json:"ip,omitempty"`
	Country   *string           `json:"country,omitempty"`
	Region    *string           `json:"region,omitempty"`
	City      *string           `json:"city,omitempty"`
	UserAgent *string           `json:"user_agent,omitempty"`
	Referrer  *string           `json:"referrer,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
}

// APIKey identifies the owner of a set of links. Authentication beyond
// the key check itself lives outside this service.
type APIKey struct {
	ID        int64     `json:"id"`
	Key       string    `json:"-"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TimeBucket is one point of a clicks-per-day analytics series.
type TimeBucket struct {
	Bucket time.Time `json:"bucket"`
	Count  int64     `json:"count"`
}

// CountryCount is one row of the per-country click breakdown.
type CountryCount struct {
	Country string `json:"country"`
	Count   int64  `json:"count"`
}

type AnalyticsResponse struct {
	Slug      string         `json:"slug"`
	Days      int            `json:"days"`
	Total     int64          `json:"total"`
	Series    []TimeBucket   `json:"series"`
	Countries []CountryCount `json:"countries"`
}

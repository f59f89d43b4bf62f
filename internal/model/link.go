package model

import "time"

// Link is a short-link record. PasswordHash holds a bcrypt hash and is
// never serialized.
type Link struct {
	ID           int64             `json:"id"`
	Slug         string            `json:"slug"`
	Destination  string            `json:"destination"`
	Title        *string           `json:"title,omitempty"`
	PasswordHash *string           `json:"-"`
	ExpiresAt    *time.Time        `json:"expires_at,omitempty"`
	WebhookURL   *string           `json:"webhook_url,omitempty"`
	APIKeyID     *int64            `json:"api_key_id,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// HasPassword reports whether the link is password protected.
func (l *Link) HasPassword() bool {
	return l.PasswordHash != nil && *l.PasswordHash != ""
}

// ExpiredAt reports whether the link is expired at the given instant.
// The comparison is strict: a link expiring exactly now is still live.
func (l *Link) ExpiredAt(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}

type CreateLinkRequest struct {
	Destination string            `json:"destination" binding:"required"`
	Slug        *string           `json:"slug,omitempty"`
	Title       *string           `json:"title,omitempty"`
	Password    *string           `json:"password,omitempty"`
	ExpiresAt   *time.Time        `json:"expires_at,omitempty"`
	WebhookURL  *string           `json:"webhook_url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type UpdateLinkRequest struct {
	ExpiresAt *time.Time `json:"expires_at"`
}

type LinkResponse struct {
	ID          int64      `json:"id"`
	Slug        string     `json:"slug"`
	Destination string     `json:"destination"`
	ShortURL    string     `json:"short_url"`
	Title       *string    `json:"title,omitempty"`
	Protected   bool       `json:"protected"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	WebhookURL  *string    `json:"webhook_url,omitempty"`
	ClickCount  int64      `json:"click_count"`
	CreatedAt   time.Time  `json:"created_at"`
}

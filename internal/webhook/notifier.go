package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"linkpulse/internal/model"
)

const eventLinkClick = "link_click"

// Notifier POSTs click events to per-link webhook URLs. Delivery is
// best effort: failures are logged and dropped, never retried, never
// surfaced to the redirect path.
type Notifier struct {
	client *http.Client
	log    *zap.Logger
}

func NewNotifier(timeout time.Duration, logger *zap.Logger) *Notifier {
	return &Notifier{
		client: &http.Client{Timeout: timeout},
		log:    logger,
	}
}

// linkProjection is the reduced link view included in the payload.
type linkProjection struct {
	ID          int64      `json:"id"`
	Slug        string     `json:"slug"`
	Destination string     `json:"destination"`
	Title       *string    `json:"title,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

type payload struct {
	Event     string         `json:"event"`
	Click     *model.Click   `json:"click"`
	Link      linkProjection `json:"link"`
	Timestamp time.Time      `json:"timestamp"`
}

// Notify delivers one click event to url. The caller is expected to run
// it detached from the response path.
func (n *Notifier) Notify(ctx context.Context, url string, click *model.Click, link *model.Link) {
	body, err := json.Marshal(payload{
		Event: eventLinkClick,
		Click: click,
		Link: linkProjection{
			ID:          link.ID,
			Slug:        link.Slug,
			Destination: link.Destination,
			Title:       link.Title,
			CreatedAt:   link.CreatedAt,
			ExpiresAt:   link.ExpiresAt,
		},
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		n.log.Error("webhook payload marshal failed", zap.String("url", url), zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		n.log.Warn("webhook request build failed", zap.String("url", url), zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.log.Warn("webhook delivery failed",
			zap.String("url", url),
			zap.Int64("link_id", link.ID),
			zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		n.log.Warn("webhook receiver returned non-success status",
			zap.String("url", url),
			zap.Int64("link_id", link.ID),
			zap.Int("status", resp.StatusCode))
	}
}

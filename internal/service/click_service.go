package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"linkpulse/internal/geo"
	"linkpulse/internal/model"
	"linkpulse/internal/repository"
)

// RequestContext carries the request metadata captured for one click.
type RequestContext struct {
	IP        string
	Geo       *geo.Result
	UserAgent string
	Referrer  string
	Headers   map[string]string
}

// Notifier delivers a click event to a webhook URL.
type Notifier interface {
	Notify(ctx context.Context, url string, click *model.Click, link *model.Link)
}

type ClickRecorder interface {
	Record(ctx context.Context, link *model.Link, reqCtx RequestContext)
}

// clickRecorder persists click events and triggers webhook delivery.
// The insert is awaited so click counts stay consistent with completed
// redirects; the webhook runs detached. Neither failure ever reaches
// the redirect path.
type clickRecorder struct {
	clicks         repository.ClickRepository
	notifier       Notifier
	webhookTimeout time.Duration
	log            *zap.Logger
}

func NewClickRecorder(clicks repository.ClickRepository, notifier Notifier, webhookTimeout time.Duration, logger *zap.Logger) ClickRecorder {
	return &clickRecorder{
		clicks:         clicks,
		notifier:       notifier,
		webhookTimeout: webhookTimeout,
		log:            logger,
	}
}

func (r *clickRecorder) Record(ctx context.Context, link *model.Link, reqCtx RequestContext) {
	click := &model.Click{
		LinkID:    link.ID,
		IP:        optional(reqCtx.IP),
		UserAgent: optional(reqCtx.UserAgent),
		Referrer:  optional(reqCtx.Referrer),
		Headers:   reqCtx.Headers,
	}

	if reqCtx.Geo != nil {
		click.Country = optional(reqCtx.Geo.Country)
		click.Region = optional(reqCtx.Geo.Region)
		click.City = optional(reqCtx.Geo.City)
	}

	if err := r.clicks.Insert(ctx, click); err != nil {
		// Availability over durability: the redirect already succeeded,
		// a degraded analytics store must not undo that.
		r.log.Error("click insert failed",
			zap.Int64("link_id", link.ID),
			zap.String("slug", link.Slug),
			zap.Error(err))
		return
	}

	if link.WebhookURL == nil || *link.WebhookURL == "" {
		return
	}

	url := *link.WebhookURL
	go func() {
		notifyCtx, cancel := context.WithTimeout(context.Background(), r.webhookTimeout)
		defer cancel()

		r.notifier.Notify(notifyCtx, url, click, link)
	}()
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

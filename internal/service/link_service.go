package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	apperrors "linkpulse/internal/errors"
	"linkpulse/internal/model"
	"linkpulse/internal/repository"
	"linkpulse/internal/utils"
)

// Resolution is the outcome of a successful slug resolution: where to
// redirect and what the click recorder needs afterwards.
type Resolution struct {
	LinkID      int64
	Destination string
	WebhookURL  *string
	Link        *model.Link
}

type LinkService interface {
	Create(ctx context.Context, req *model.CreateLinkRequest, apiKeyID int64) (*model.LinkResponse, error)
	Resolve(ctx context.Context, slug, suppliedPassword string) (*Resolution, error)
	Get(ctx context.Context, slug string, apiKeyID int64) (*model.LinkResponse, error)
	List(ctx context.Context, apiKeyID int64) ([]*model.LinkResponse, error)
	UpdateExpiry(ctx context.Context, slug string, apiKeyID int64, expiresAt *time.Time) error
	Delete(ctx context.Context, slug string, apiKeyID int64) error
	Analytics(ctx context.Context, slug string, apiKeyID int64, days int) (*model.AnalyticsResponse, error)
}

type linkService struct {
	linkRepo   repository.LinkRepository
	clickRepo  repository.ClickRepository
	baseURL    string
	maxRetries int
	now        func() time.Time
}

func NewLinkService(linkRepo repository.LinkRepository, clickRepo repository.ClickRepository, baseURL string) LinkService {
	return &linkService{
		linkRepo:   linkRepo,
		clickRepo:  clickRepo,
		baseURL:    baseURL,
		maxRetries: 5,
		now:        time.Now,
	}
}

func (s *linkService) Create(ctx context.Context, req *model.CreateLinkRequest, apiKeyID int64) (*model.LinkResponse, error) {
	destination := utils.SanitizeInput(req.Destination)
	if err := utils.ValidateURL(destination); err != nil {
		return nil, err
	}

	// Small buffer so an expiry of "right now" from a slow client is
	// not rejected.
	if req.ExpiresAt != nil && req.ExpiresAt.Before(s.now().Add(-2*time.Second)) {
		return nil, apperrors.NewValidationError("expires_at", "expiration time cannot be in the past")
	}

	var slug string
	if req.Slug != nil && *req.Slug != "" {
		slug = strings.TrimSpace(*req.Slug)
		if err := utils.ValidateSlug(slug); err != nil {
			return nil, err
		}

		exists, err := s.linkRepo.ExistsBySlug(ctx, slug)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, apperrors.ErrSlugExists
		}
	} else {
		generated, err := s.generateUniqueSlug(ctx)
		if err != nil {
			return nil, err
		}
		slug = generated
	}

	var passwordHash *string
	if req.Password != nil && *req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		h := string(hash)
		passwordHash = &h
	}

	link := &model.Link{
		Slug:         slug,
		Destination:  destination,
		Title:        req.Title,
		PasswordHash: passwordHash,
		ExpiresAt:    req.ExpiresAt,
		WebhookURL:   req.WebhookURL,
		APIKeyID:     &apiKeyID,
		Metadata:     req.Metadata,
		CreatedAt:    s.now(),
	}

	if err := s.linkRepo.Create(ctx, link); err != nil {
		return nil, err
	}

	return s.toResponse(link, 0), nil
}

// Resolve decides whether and where to redirect. Pure lookup plus
// validation: recording the click is the caller's job, and only after a
// successful resolution.
func (s *linkService) Resolve(ctx context.Context, slug, suppliedPassword string) (*Resolution, error) {
	link, err := s.linkRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	if link.ExpiredAt(s.now()) {
		return nil, apperrors.ErrLinkExpired
	}

	if link.HasPassword() {
		if suppliedPassword == "" {
			return nil, apperrors.ErrPasswordRequired
		}
		// bcrypt compare; constant-time, never plaintext.
		if err := bcrypt.CompareHashAndPassword([]byte(*link.PasswordHash), []byte(suppliedPassword)); err != nil {
			return nil, apperrors.ErrPasswordRequired
		}
	}

	return &Resolution{
		LinkID:      link.ID,
		Destination: link.Destination,
		WebhookURL:  link.WebhookURL,
		Link:        link,
	}, nil
}

func (s *linkService) Get(ctx context.Context, slug string, apiKeyID int64) (*model.LinkResponse, error) {
	link, err := s.ownedLink(ctx, slug, apiKeyID)
	if err != nil {
		return nil, err
	}

	count, err := s.clickRepo.CountByLink(ctx, link.ID)
	if err != nil {
		return nil, err
	}

	return s.toResponse(link, count), nil
}

func (s *linkService) List(ctx context.Context, apiKeyID int64) ([]*model.LinkResponse, error) {
	links, err := s.linkRepo.ListByAPIKey(ctx, apiKeyID)
	if err != nil {
		return nil, err
	}

	responses := make([]*model.LinkResponse, 0, len(links))
	for _, link := range links {
		count, err := s.clickRepo.CountByLink(ctx, link.ID)
		if err != nil {
			return nil, err
		}
		responses = append(responses, s.toResponse(link, count))
	}

	return responses, nil
}

func (s *linkService) UpdateExpiry(ctx context.Context, slug string, apiKeyID int64, expiresAt *time.Time) error {
	if expiresAt != nil {
		utc := expiresAt.UTC()
		expiresAt = &utc
	}
	return s.linkRepo.UpdateExpiry(ctx, slug, apiKeyID, expiresAt)
}

func (s *linkService) Delete(ctx context.Context, slug string, apiKeyID int64) error {
	return s.linkRepo.Delete(ctx, slug, apiKeyID)
}

func (s *linkService) Analytics(ctx context.Context, slug string, apiKeyID int64, days int) (*model.AnalyticsResponse, error) {
	link, err := s.ownedLink(ctx, slug, apiKeyID)
	if err != nil {
		return nil, err
	}

	series, err := s.clickRepo.SeriesByDay(ctx, link.ID, days)
	if err != nil {
		return nil, err
	}

	countries, err := s.clickRepo.CountByCountry(ctx, link.ID, days)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, bucket := range series {
		total += bucket.Count
	}

	return &model.AnalyticsResponse{
		Slug:      slug,
		Days:      days,
		Total:     total,
		Series:    series,
		Countries: countries,
	}, nil
}

// ownedLink loads a link and verifies it belongs to the API key. Links
// owned by someone else are reported as not found, not as forbidden.
func (s *linkService) ownedLink(ctx context.Context, slug string, apiKeyID int64) (*model.Link, error) {
	link, err := s.linkRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	if link.APIKeyID == nil || *link.APIKeyID != apiKeyID {
		return nil, fmt.Errorf("link with slug '%s': %w", slug, apperrors.ErrLinkNotFound)
	}

	return link, nil
}

func (s *linkService) generateUniqueSlug(ctx context.Context) (string, error) {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		slug, err := utils.GenerateSlug()
		if err != nil {
			return "", fmt.Errorf("failed to generate slug: %w", err)
		}

		exists, err := s.linkRepo.ExistsBySlug(ctx, slug)
		if err != nil {
			continue // try again
		}

		if !exists {
			return slug, nil
		}
	}

	return "", fmt.Errorf("failed to generate unique slug after %d attempts", s.maxRetries)
}

func (s *linkService) toResponse(link *model.Link, clickCount int64) *model.LinkResponse {
	return &model.LinkResponse{
		ID:          link.ID,
		Slug:        link.Slug,
		Destination: link.Destination,
		ShortURL:    fmt.Sprintf("%s/%s", s.baseURL, link.Slug),
		Title:       link.Title,
		Protected:   link.HasPassword(),
		ExpiresAt:   link.ExpiresAt,
		WebhookURL:  link.WebhookURL,
		ClickCount:  clickCount,
		CreatedAt:   link.CreatedAt,
	}
}

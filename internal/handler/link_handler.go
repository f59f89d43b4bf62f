package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "linkpulse/internal/errors"
	"linkpulse/internal/geo"
	"linkpulse/internal/middleware"
	"linkpulse/internal/model"
	"linkpulse/internal/service"
)

// GeoResolver is the lookup the redirect path uses. Nil results mean
// "no location", never an error.
type GeoResolver interface {
	Lookup(ctx context.Context, ip string) *geo.Result
}

type LinkHandler struct {
	links  service.LinkService
	clicks service.ClickRecorder
	geo    GeoResolver
	log    *zap.Logger
}

func NewLinkHandler(links service.LinkService, clicks service.ClickRecorder, geoResolver GeoResolver, logger *zap.Logger) *LinkHandler {
	return &LinkHandler{
		links:  links,
		clicks: clicks,
		geo:    geoResolver,
		log:    logger,
	}
}

// clickHeaders is the subset of request headers stored with each click.
var clickHeaders = []string{"Accept-Language", "Sec-Ch-Ua-Platform", "Sec-Ch-Ua-Mobile"}

// Redirect resolves a slug and sends the visitor to the destination.
// The click insert is awaited but its failure never blocks the 302;
// the webhook runs detached.
func (h *LinkHandler) Redirect(c *gin.Context) {
	slug := c.Param("slug")
	password := c.Query("password")

	resolution, err := h.links.Resolve(c.Request.Context(), slug, password)
	if err != nil {
		h.handleResolveError(c, slug, err)
		return
	}

	ip := c.ClientIP()
	reqCtx := service.RequestContext{
		IP:        ip,
		Geo:       h.geo.Lookup(c.Request.Context(), ip),
		UserAgent: c.Request.UserAgent(),
		Referrer:  c.Request.Referer(),
		Headers:   snapshotHeaders(c),
	}

	h.clicks.Record(c.Request.Context(), resolution.Link, reqCtx)

	c.Redirect(http.StatusFound, resolution.Destination)
}

func (h *LinkHandler) handleResolveError(c *gin.Context, slug string, err error) {
	switch {
	case errors.Is(err, apperrors.ErrLinkNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Link not found"})
	case errors.Is(err, apperrors.ErrLinkExpired):
		c.JSON(http.StatusGone, gin.H{"error": "Link expired"})
	case errors.Is(err, apperrors.ErrPasswordRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Password required", "challenge": true})
	default:
		h.log.Error("link resolution failed", zap.String("slug", slug), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func snapshotHeaders(c *gin.Context) map[string]string {
	headers := make(map[string]string, len(clickHeaders))
	for _, name := range clickHeaders {
		if value := c.GetHeader(name); value != "" {
			headers[name] = value
		}
	}
	if len(headers) == 0 {
		return nil
	}
	return headers
}

func (h *LinkHandler) CreateLink(c *gin.Context) {
	apiKeyID, ok := middleware.APIKeyID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing API key"})
		return
	}

	var req model.CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	response, err := h.links.Create(c.Request.Context(), &req, apiKeyID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

func (h *LinkHandler) GetLink(c *gin.Context) {
	apiKeyID, ok := middleware.APIKeyID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing API key"})
		return
	}

	response, err := h.links.Get(c.Request.Context(), c.Param("slug"), apiKeyID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *LinkHandler) ListLinks(c *gin.Context) {
	apiKeyID, ok := middleware.APIKeyID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing API key"})
		return
	}

	responses, err := h.links.List(c.Request.Context(), apiKeyID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"links": responses, "count": len(responses)})
}

func (h *LinkHandler) UpdateLink(c *gin.Context) {
	apiKeyID, ok := middleware.APIKeyID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing API key"})
		return
	}

	var req model.UpdateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := h.links.UpdateExpiry(c.Request.Context(), c.Param("slug"), apiKeyID, req.ExpiresAt); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Link updated"})
}

func (h *LinkHandler) DeleteLink(c *gin.Context) {
	apiKeyID, ok := middleware.APIKeyID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing API key"})
		return
	}

	if err := h.links.Delete(c.Request.Context(), c.Param("slug"), apiKeyID); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *LinkHandler) Analytics(c *gin.Context) {
	apiKeyID, ok := middleware.APIKeyID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing API key"})
		return
	}

	days := 30
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 365 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be between 1 and 365"})
			return
		}
		days = parsed
	}

	response, err := h.links.Analytics(c.Request.Context(), c.Param("slug"), apiKeyID, days)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// handleError maps service errors onto the management API's status codes.
func (h *LinkHandler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrLinkNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Link not found"})
	case errors.Is(err, apperrors.ErrSlugExists):
		c.JSON(http.StatusConflict, gin.H{"error": "Slug already exists"})
	case apperrors.IsValidationError(err):
		validationErr := apperrors.GetValidationError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Message, "field": validationErr.Field})
	default:
		h.log.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

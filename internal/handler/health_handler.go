package handler

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"linkpulse/internal/cache"
	"linkpulse/internal/database"
)

type HealthHandler struct {
	db          *sql.DB
	cache       cache.Cache
	environment string
	startedAt   time.Time
}

func NewHealthHandler(db *sql.DB, redisCache cache.Cache, environment string) *HealthHandler {
	return &HealthHandler{
		db:          db,
		cache:       redisCache,
		environment: environment,
		startedAt:   time.Now(),
	}
}

// Health reports component status. A dead cache degrades the service,
// a dead database takes it down.
func (h *HealthHandler) Health(c *gin.Context) {
	components := gin.H{}
	status := http.StatusOK
	overall := "healthy"

	if err := database.HealthCheck(h.db); err != nil {
		components["database"] = "down"
		overall = "unhealthy"
		status = http.StatusServiceUnavailable
	} else {
		components["database"] = "up"
	}

	if h.cache != nil {
		if err := h.cache.HealthCheck(c.Request.Context()); err != nil {
			components["cache"] = "down"
			if overall == "healthy" {
				overall = "degraded"
			}
		} else {
			components["cache"] = "up"
		}
	} else {
		components["cache"] = "disabled"
	}

	c.JSON(status, gin.H{
		"status":     overall,
		"components": components,
		"uptime":     time.Since(h.startedAt).Round(time.Second).String(),
	})
}

func (h *HealthHandler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":     "linkpulse",
		"environment": h.environment,
		"endpoints": gin.H{
			"redirect":  "GET /:slug",
			"create":    "POST /api/links",
			"list":      "GET /api/links",
			"get":       "GET /api/links/:slug",
			"update":    "PATCH /api/links/:slug",
			"delete":    "DELETE /api/links/:slug",
			"analytics": "GET /api/links/:slug/analytics",
		},
	})
}

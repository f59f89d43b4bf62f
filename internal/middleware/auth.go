package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "linkpulse/internal/errors"
	"linkpulse/internal/repository"
)

// APIKeyIDKey is the gin context key the auth middleware sets for
// downstream handlers.
const APIKeyIDKey = "api_key_id"

// APIKeyAuth authenticates management requests via the X-Api-Key header.
func APIKeyAuth(keys repository.APIKeyRepository, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("X-Api-Key")
		if key == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing API key"})
			c.Abort()
			return
		}

		apiKey, err := keys.GetByKey(c.Request.Context(), key)
		if err != nil {
			if errors.Is(err, apperrors.ErrAPIKeyNotFound) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
				c.Abort()
				return
			}

			logger.Error("api key lookup failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			c.Abort()
			return
		}

		c.Set(APIKeyIDKey, apiKey.ID)
		c.Next()
	}
}

// APIKeyID reads the authenticated key ID that APIKeyAuth stored.
func APIKeyID(c *gin.Context) (int64, bool) {
	value, exists := c.Get(APIKeyIDKey)
	if !exists {
		return 0, false
	}

	id, ok := value.(int64)
	return id, ok
}

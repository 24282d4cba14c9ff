package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/manpowerhq/compliance-api/internal/middleware"
	"github.com/manpowerhq/compliance-api/internal/models"
	appErrors "github.com/manpowerhq/compliance-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// asOfFromQuery reads the optional as_of query parameter. Missing means now.
func asOfFromQuery(c *gin.Context) (time.Time, error) {
	raw := c.Query("as_of")
	if raw == "" {
		return time.Now().UTC(), nil
	}
	asOf, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "as_of must be formatted YYYY-MM-DD")
	}
	return asOf, nil
}

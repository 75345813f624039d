package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/driveadmin/autoescola-api/internal/middleware"
	"github.com/driveadmin/autoescola-api/internal/models"
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

func actorID(c *gin.Context) int64 {
	if claims := claimsFromContext(c); claims != nil {
		return claims.UserID
	}
	return 0
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

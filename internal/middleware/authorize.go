package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/driveadmin/autoescola-api/internal/authz"
	"github.com/driveadmin/autoescola-api/internal/models"
	"github.com/driveadmin/autoescola-api/internal/service"
	appErrors "github.com/driveadmin/autoescola-api/pkg/errors"
	"github.com/driveadmin/autoescola-api/pkg/response"
)

// Authorize guards a route with a permission check, resolving the school
// scope from the request when present. Routes whose school scope only becomes
// known after loading the record (enrollment detail, payments) authorize in
// the handler instead.
func Authorize(guard *authz.Guard, metrics *service.MetricsService, action authz.Action, resource authz.Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		schoolID := schoolIDFromRequest(c)
		if err := guard.Authorize(c.Request.Context(), claims, action, resource, schoolID); err != nil {
			if metrics != nil && appErrors.FromError(err).Code == appErrors.ErrForbidden.Code {
				metrics.RecordAuthzDenial()
			}
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

// schoolIDFromRequest resolves the school scope: path param first, then the
// request body, then the query string. A request with no school reference is
// unscoped and relies on the permission table alone.
func schoolIDFromRequest(c *gin.Context) *int64 {
	if raw := c.Param("school_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return &id
		}
	}
	if id := schoolIDFromBody(c); id != nil {
		return id
	}
	if raw := c.Query("school_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return &id
		}
	}
	return nil
}

func schoolIDFromBody(c *gin.Context) *int64 {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil
	}
	// Restore the body so the handler can bind it.
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	var probe struct {
		SchoolID *int64 `json:"school_id"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil
	}
	return probe.SchoolID
}

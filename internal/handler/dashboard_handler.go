package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/driveadmin/autoescola-api/internal/service"
	appErrors "github.com/driveadmin/autoescola-api/pkg/errors"
	"github.com/driveadmin/autoescola-api/pkg/response"
)

// DashboardHandler wires the dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service *service.DashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: svc}
}

// SchoolSummary godoc
// @Summary School financial dashboard
// @Description Aggregated enrollment and payment totals for a school
// @Tags Dashboard
// @Produce json
// @Param school_id path int true "School ID"
// @Success 200 {object} response.Envelope
// @Router /schools/{school_id}/dashboard [get]
func (h *DashboardHandler) SchoolSummary(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	schoolID, ok := pathID(c, "school_id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid school id"))
		return
	}

	start := time.Now()
	summary, cacheHit, err := h.service.SchoolSummary(c.Request.Context(), schoolID)
	if err != nil {
		response.Error(c, err)
		return
	}

	meta := map[string]interface{}{
		"cache":              cacheHit,
		"processing_time_ms": time.Since(start).Milliseconds(),
	}
	response.JSON(c, http.StatusOK, summary, nil, meta)
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/driveadmin/autoescola-api/internal/authz"
	"github.com/driveadmin/autoescola-api/internal/models"
	"github.com/driveadmin/autoescola-api/internal/service"
	appErrors "github.com/driveadmin/autoescola-api/pkg/errors"
	"github.com/driveadmin/autoescola-api/pkg/response"
)

// EnrollmentHandler exposes enrollment and installment endpoints. Reads are
// authorized here rather than in middleware because the school scope only
// becomes known after the enrollment row is loaded.
type EnrollmentHandler struct {
	ledger *service.LedgerService
	guard  *authz.Guard
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(ledger *service.LedgerService, guard *authz.Guard) *EnrollmentHandler {
	return &EnrollmentHandler{ledger: ledger, guard: guard}
}

func (h *EnrollmentHandler) loadAuthorized(c *gin.Context, action authz.Action) (*models.Enrollment, bool) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid enrollment id"))
		return nil, false
	}
	enrollment, err := h.ledger.GetEnrollment(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	if err := h.guard.Authorize(c.Request.Context(), claimsFromContext(c), action, authz.ResourceEnrollments, &enrollment.SchoolID); err != nil {
		response.Error(c, err)
		return nil, false
	}
	return enrollment, true
}

// Create godoc
// @Summary Create enrollment
// @Description Registers a student's course contract and generates its installment schedule
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.CreateEnrollmentRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Create(c *gin.Context) {
	var req service.CreateEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	enrollment, installments, err := h.ledger.CreateEnrollment(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"enrollment": enrollment, "installments": installments})
}

// Get godoc
// @Summary Get enrollment detail
// @Tags Enrollments
// @Produce json
// @Param id path int true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	enrollment, ok := h.loadAuthorized(c, authz.ActionRead)
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// ListInstallments godoc
// @Summary List enrollment installments
// @Description Installments in sequence order with freshly derived statuses
// @Tags Enrollments
// @Produce json
// @Param id path int true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/installments [get]
func (h *EnrollmentHandler) ListInstallments(c *gin.Context) {
	enrollment, ok := h.loadAuthorized(c, authz.ActionRead)
	if !ok {
		return
	}
	installments, err := h.ledger.ListInstallments(c.Request.Context(), enrollment.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, installments, nil)
}

// Summary godoc
// @Summary Enrollment financial summary
// @Tags Enrollments
// @Produce json
// @Param id path int true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/summary [get]
func (h *EnrollmentHandler) Summary(c *gin.Context) {
	enrollment, ok := h.loadAuthorized(c, authz.ActionRead)
	if !ok {
		return
	}
	summary, err := h.ledger.FinancialSummary(c.Request.Context(), enrollment.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Cancel godoc
// @Summary Cancel enrollment
// @Description Marks an active enrollment as cancelled; ledger rows are kept
// @Tags Enrollments
// @Produce json
// @Param id path int true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments/{id}/cancel [post]
func (h *EnrollmentHandler) Cancel(c *gin.Context) {
	enrollment, ok := h.loadAuthorized(c, authz.ActionUpdate)
	if !ok {
		return
	}
	cancelled, err := h.ledger.CancelEnrollment(c.Request.Context(), enrollment.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cancelled, nil)
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/driveadmin/autoescola-api/internal/authz"
	"github.com/driveadmin/autoescola-api/internal/service"
	appErrors "github.com/driveadmin/autoescola-api/pkg/errors"
	"github.com/driveadmin/autoescola-api/pkg/response"
)

// PaymentHandler exposes payment endpoints under an enrollment.
type PaymentHandler struct {
	payments *service.PaymentService
	ledger   *service.LedgerService
	guard    *authz.Guard
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(payments *service.PaymentService, ledger *service.LedgerService, guard *authz.Guard) *PaymentHandler {
	return &PaymentHandler{payments: payments, ledger: ledger, guard: guard}
}

func (h *PaymentHandler) authorizeEnrollment(c *gin.Context, action authz.Action) (int64, bool) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid enrollment id"))
		return 0, false
	}
	enrollment, err := h.ledger.GetEnrollment(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return 0, false
	}
	if err := h.guard.Authorize(c.Request.Context(), claimsFromContext(c), action, authz.ResourcePayments, &enrollment.SchoolID); err != nil {
		response.Error(c, err)
		return 0, false
	}
	return enrollment.ID, true
}

// Apply godoc
// @Summary Record a payment
// @Description Applies a payment to an installment; when installment_id is omitted the next unpaid installment is used
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path int true "Enrollment ID"
// @Param payload body service.ApplyPaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /enrollments/{id}/payments [post]
func (h *PaymentHandler) Apply(c *gin.Context) {
	enrollmentID, ok := h.authorizeEnrollment(c, authz.ActionCreate)
	if !ok {
		return
	}

	var req service.ApplyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	result, err := h.payments.Apply(c.Request.Context(), enrollmentID, req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// List godoc
// @Summary List enrollment payments
// @Tags Payments
// @Produce json
// @Param id path int true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	enrollmentID, ok := h.authorizeEnrollment(c, authz.ActionRead)
	if !ok {
		return
	}
	payments, err := h.payments.ListForEnrollment(c.Request.Context(), enrollmentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, nil)
}

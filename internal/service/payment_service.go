package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/driveadmin/autoescola-api/internal/models"
	"github.com/driveadmin/autoescola-api/internal/repository"
	appErrors "github.com/driveadmin/autoescola-api/pkg/errors"
)

type paymentRepository interface {
	Apply(ctx context.Context, payment *models.Payment, installmentID *int64, rejectOverpayment bool) (*models.Installment, error)
	ListByEnrollment(ctx context.Context, enrollmentID int64) ([]models.Payment, error)
}

type ledgerOps interface {
	GetEnrollment(ctx context.Context, id int64) (*models.Enrollment, error)
	RecomputeStatuses(ctx context.Context, enrollmentID int64) error
	FinancialSummary(ctx context.Context, enrollmentID int64) (*models.FinancialSummary, error)
}

// ApplyPaymentRequest describes a payment submission. When installment_id is
// omitted the next unpaid installment is selected automatically.
type ApplyPaymentRequest struct {
	InstallmentID   *int64               `json:"installment_id"`
	AmountPaidCents int64                `json:"amount_paid_cents" validate:"required,gt=0"`
	Method          models.PaymentMethod `json:"method" validate:"required,oneof=CASH CARD PIX TRANSFER"`
}

// PaymentService is the only writer of payment rows: it validates, applies
// the payment under the installment row lock, refreshes derived state and
// reports the updated financial position.
type PaymentService struct {
	repo              paymentRepository
	ledger            ledgerOps
	audits            auditWriter
	cache             *CacheService
	metrics           *MetricsService
	validator         *validator.Validate
	logger            *zap.Logger
	rejectOverpayment bool
}

// NewPaymentService constructs PaymentService.
func NewPaymentService(repo paymentRepository, ledger ledgerOps, audits auditWriter, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, rejectOverpayment bool) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		repo:              repo,
		ledger:            ledger,
		audits:            audits,
		cache:             cache,
		metrics:           metrics,
		validator:         validate,
		logger:            logger,
		rejectOverpayment: rejectOverpayment,
	}
}

// Apply records a payment against an installment of the enrollment and
// returns the payment, the installment's new status and the refreshed
// summary.
func (s *PaymentService) Apply(ctx context.Context, enrollmentID int64, req ApplyPaymentRequest, recordedBy int64) (*models.PaymentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}

	enrollment, err := s.ledger.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if enrollment.Status == models.EnrollmentStatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrConflict, "enrollment is cancelled")
	}

	payment := &models.Payment{
		EnrollmentID:    enrollmentID,
		AmountPaidCents: req.AmountPaidCents,
		Method:          req.Method,
		RecordedBy:      recordedBy,
	}

	installment, err := s.repo.Apply(ctx, payment, req.InstallmentID, s.rejectOverpayment)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOverpayment):
			if s.metrics != nil {
				s.metrics.RecordOverpaymentRejected()
			}
			return nil, appErrors.ErrOverpayment
		case errors.Is(err, repository.ErrNoOpenInstallment):
			return nil, appErrors.Clone(appErrors.ErrConflict, "enrollment has no open installments")
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "installment not found")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to apply payment")
		}
	}

	if err := s.ledger.RecomputeStatuses(ctx, enrollmentID); err != nil {
		s.logger.Warn("failed to recompute installment statuses", zap.Int64("enrollment_id", enrollmentID), zap.Error(err))
	}

	summary, err := s.ledger.FinancialSummary(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordPaymentApplied(payment.AmountPaidCents)
	}
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, fmt.Sprintf("dashboard:school:%d*", enrollment.SchoolID))
	}
	if s.audits != nil {
		var actor *int64
		if recordedBy != 0 {
			actor = &recordedBy
		}
		payload := []byte(fmt.Sprintf(`{"enrollment_id":%d,"installment_id":%d,"amount_paid_cents":%d,"method":%q}`,
			enrollmentID, payment.InstallmentID, payment.AmountPaidCents, payment.Method))
		if err := s.audits.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     actor,
			Action:     models.AuditActionApplyPayment,
			Resource:   "payments",
			ResourceID: &payment.ID,
			NewValues:  payload,
		}); err != nil {
			s.logger.Warn("failed to record payment audit log", zap.Error(err))
		}
	}

	return &models.PaymentResult{
		Payment:           *payment,
		InstallmentStatus: installment.Status,
		Summary:           *summary,
	}, nil
}

// ListForEnrollment returns the enrollment's payments in ledger order.
func (s *PaymentService) ListForEnrollment(ctx context.Context, enrollmentID int64) ([]models.Payment, error) {
	if _, err := s.ledger.GetEnrollment(ctx, enrollmentID); err != nil {
		return nil, err
	}
	payments, err := s.repo.ListByEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to list payments")
	}
	return payments, nil
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/driveadmin/autoescola-api/internal/models"
	appErrors "github.com/driveadmin/autoescola-api/pkg/errors"
)

type enrollmentRepository interface {
	CreateWithInstallments(ctx context.Context, enrollment *models.Enrollment, installments []models.Installment) error
	FindByID(ctx context.Context, id int64) (*models.Enrollment, error)
	ListInstallmentBalances(ctx context.Context, enrollmentID int64) ([]models.InstallmentBalance, error)
	UpdateInstallmentStatus(ctx context.Context, installmentID int64, status models.InstallmentStatus) error
	UpdateStatus(ctx context.Context, id int64, status models.EnrollmentStatus) error
	PaidSum(ctx context.Context, enrollmentID int64) (int64, error)
}

// CreateEnrollmentRequest describes enrollment creation.
type CreateEnrollmentRequest struct {
	StudentID       int64     `json:"student_id" validate:"required"`
	SchoolID        int64     `json:"school_id" validate:"required"`
	CategoryID      int64     `json:"category_id" validate:"required"`
	CourseCostCents int64     `json:"course_cost_cents" validate:"required,gt=0"`
	NumInstallments int       `json:"num_installments" validate:"required,min=1"`
	ContractMonths  int       `json:"contract_months" validate:"omitempty,min=1"`
	StartDate       time.Time `json:"start_date" validate:"required"`
}

// LedgerService owns enrollments and their installment schedules. Installment
// statuses are derived, never set directly; OVERDUE detection happens lazily
// on read rather than via a background job.
type LedgerService struct {
	repo      enrollmentRepository
	users     userReader
	schools   schoolReader
	audits    auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLedgerService constructs LedgerService.
func NewLedgerService(repo enrollmentRepository, users userReader, schools schoolReader, audits auditWriter, validate *validator.Validate, logger *zap.Logger) *LedgerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{repo: repo, users: users, schools: schools, audits: audits, validator: validate, logger: logger}
}

// BuildInstallmentSchedule splits the course cost into n monthly installments
// starting at startDate. The parts sum exactly to the total; the last one
// absorbs the division remainder.
func BuildInstallmentSchedule(costCents int64, n int, startDate time.Time) []models.Installment {
	amounts := models.SplitAmount(costCents, n)
	now := time.Now().UTC()
	installments := make([]models.Installment, n)
	for i := range installments {
		due := startDate.AddDate(0, i, 0)
		installments[i] = models.Installment{
			SequenceNumber: i + 1,
			AmountDueCents: amounts[i],
			DueDate:        due,
			Status:         models.DeriveInstallmentStatus(amounts[i], 0, due, now),
		}
	}
	return installments
}

// CreateEnrollment registers a student's course contract and generates its
// installment schedule in one transaction.
func (s *LedgerService) CreateEnrollment(ctx context.Context, req CreateEnrollmentRequest, actorID int64) (*models.Enrollment, []models.Installment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	student, err := s.users.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load student")
	}
	if !student.Active {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "student is inactive")
	}
	if _, err := s.schools.FindByID(ctx, req.SchoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load school")
	}

	contractMonths := req.ContractMonths
	if contractMonths == 0 {
		contractMonths = req.NumInstallments
	}

	enrollment := &models.Enrollment{
		StudentID:       req.StudentID,
		SchoolID:        req.SchoolID,
		CategoryID:      req.CategoryID,
		CourseCostCents: req.CourseCostCents,
		ContractMonths:  contractMonths,
		Status:          models.EnrollmentStatusActive,
		StartDate:       req.StartDate,
	}
	installments := BuildInstallmentSchedule(req.CourseCostCents, req.NumInstallments, req.StartDate)

	if err := s.repo.CreateWithInstallments(ctx, enrollment, installments); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to create enrollment")
	}

	if s.audits != nil {
		payload := []byte(fmt.Sprintf(`{"school_id":%d,"student_id":%d,"course_cost_cents":%d,"installments":%d}`,
			req.SchoolID, req.StudentID, req.CourseCostCents, req.NumInstallments))
		var actor *int64
		if actorID != 0 {
			actor = &actorID
		}
		if err := s.audits.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     actor,
			Action:     models.AuditActionCreateEnrollment,
			Resource:   "enrollments",
			ResourceID: &enrollment.ID,
			NewValues:  payload,
		}); err != nil {
			s.logger.Warn("failed to record enrollment audit log", zap.Error(err))
		}
	}

	return enrollment, installments, nil
}

// GetEnrollment loads an enrollment by ID.
func (s *LedgerService) GetEnrollment(ctx context.Context, id int64) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load enrollment")
	}
	return enrollment, nil
}

// ListInstallments returns the enrollment's installments ordered by sequence
// number, with statuses freshly derived so due dates crossing "now" surface
// as OVERDUE without waiting for a write.
func (s *LedgerService) ListInstallments(ctx context.Context, enrollmentID int64) ([]models.InstallmentBalance, error) {
	if _, err := s.GetEnrollment(ctx, enrollmentID); err != nil {
		return nil, err
	}
	return s.recomputeStatuses(ctx, enrollmentID)
}

// RecomputeStatuses re-derives every installment status for the enrollment
// and flips the enrollment to COMPLETED once all installments are paid.
func (s *LedgerService) RecomputeStatuses(ctx context.Context, enrollmentID int64) error {
	balances, err := s.recomputeStatuses(ctx, enrollmentID)
	if err != nil {
		return err
	}

	allPaid := len(balances) > 0
	for _, b := range balances {
		if b.Status != models.InstallmentStatusPaid {
			allPaid = false
			break
		}
	}
	if !allPaid {
		return nil
	}

	enrollment, err := s.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return err
	}
	if enrollment.Status == models.EnrollmentStatusActive {
		if err := s.repo.UpdateStatus(ctx, enrollmentID, models.EnrollmentStatusCompleted); err != nil {
			return appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to complete enrollment")
		}
	}
	return nil
}

func (s *LedgerService) recomputeStatuses(ctx context.Context, enrollmentID int64) ([]models.InstallmentBalance, error) {
	balances, err := s.repo.ListInstallmentBalances(ctx, enrollmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load installments")
	}

	now := time.Now().UTC()
	for i := range balances {
		derived := models.DeriveInstallmentStatus(balances[i].AmountDueCents, balances[i].PaidCents, balances[i].DueDate, now)
		if derived == balances[i].Status {
			continue
		}
		if err := s.repo.UpdateInstallmentStatus(ctx, balances[i].ID, derived); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to update installment status")
		}
		balances[i].Status = derived
	}
	return balances, nil
}

// FinancialSummary reports the enrollment's ledger position.
func (s *LedgerService) FinancialSummary(ctx context.Context, enrollmentID int64) (*models.FinancialSummary, error) {
	enrollment, err := s.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	paid, err := s.repo.PaidSum(ctx, enrollmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to sum payments")
	}
	summary := models.NewFinancialSummary(enrollment.ID, enrollment.CourseCostCents, paid)
	return &summary, nil
}

// CancelEnrollment marks an active enrollment as cancelled. Ledger rows are
// kept; no refunds are issued.
func (s *LedgerService) CancelEnrollment(ctx context.Context, enrollmentID int64) (*models.Enrollment, error) {
	enrollment, err := s.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if enrollment.Status != models.EnrollmentStatusActive {
		return nil, appErrors.Clone(appErrors.ErrConflict, "enrollment is not active")
	}
	if err := s.repo.UpdateStatus(ctx, enrollmentID, models.EnrollmentStatusCancelled); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to cancel enrollment")
	}
	enrollment.Status = models.EnrollmentStatusCancelled
	return enrollment, nil
}

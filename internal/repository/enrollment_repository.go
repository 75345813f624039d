package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/driveadmin/autoescola-api/internal/models"
)

// EnrollmentRepository persists enrollments and their installment schedules.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// CreateWithInstallments persists the enrollment and its full installment
// schedule in one transaction, so a failed insert never leaves a schedule-less
// enrollment behind.
func (r *EnrollmentRepository) CreateWithInstallments(ctx context.Context, enrollment *models.Enrollment, installments []models.Installment) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create enrollment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	enrollment.CreatedAt = now
	enrollment.UpdatedAt = now
	const enrollmentQuery = `INSERT INTO enrollments (student_id, school_id, category_id, course_cost_cents, contract_months, status, start_date, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8) RETURNING id`
	if err = tx.GetContext(ctx, &enrollment.ID, enrollmentQuery,
		enrollment.StudentID, enrollment.SchoolID, enrollment.CategoryID,
		enrollment.CourseCostCents, enrollment.ContractMonths, enrollment.Status,
		enrollment.StartDate, now); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}

	const installmentQuery = `INSERT INTO installments (enrollment_id, sequence_number, amount_due_cents, due_date, status, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	for i := range installments {
		installments[i].EnrollmentID = enrollment.ID
		installments[i].UpdatedAt = now
		if err = tx.GetContext(ctx, &installments[i].ID, installmentQuery,
			installments[i].EnrollmentID, installments[i].SequenceNumber,
			installments[i].AmountDueCents, installments[i].DueDate,
			installments[i].Status, now); err != nil {
			return fmt.Errorf("create installment %d: %w", installments[i].SequenceNumber, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create enrollment: %w", err)
	}
	return nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id int64) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, school_id, category_id, course_cost_cents, contract_months, status, start_date, created_at, updated_at
        FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ListInstallmentBalances returns the enrollment's installments with their
// payment sums, ordered by sequence number.
func (r *EnrollmentRepository) ListInstallmentBalances(ctx context.Context, enrollmentID int64) ([]models.InstallmentBalance, error) {
	const query = `SELECT i.id, i.enrollment_id, i.sequence_number, i.amount_due_cents, i.due_date, i.status, i.updated_at,
        COALESCE(SUM(p.amount_paid_cents), 0) AS paid_cents
        FROM installments i
        LEFT JOIN payments p ON p.installment_id = i.id
        WHERE i.enrollment_id = $1
        GROUP BY i.id
        ORDER BY i.sequence_number ASC`
	var balances []models.InstallmentBalance
	if err := r.db.SelectContext(ctx, &balances, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("list installment balances: %w", err)
	}
	return balances, nil
}

// UpdateInstallmentStatus persists a derived status change.
func (r *EnrollmentRepository) UpdateInstallmentStatus(ctx context.Context, installmentID int64, status models.InstallmentStatus) error {
	const query = `UPDATE installments SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, installmentID, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update installment status: %w", err)
	}
	return nil
}

// UpdateStatus updates the enrollment lifecycle state.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id int64, status models.EnrollmentStatus) error {
	const query = `UPDATE enrollments SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return nil
}

// PaidSum returns the total of all payments recorded for the enrollment.
func (r *EnrollmentRepository) PaidSum(ctx context.Context, enrollmentID int64) (int64, error) {
	const query = `SELECT COALESCE(SUM(amount_paid_cents), 0) FROM payments WHERE enrollment_id = $1`
	var sum int64
	if err := r.db.GetContext(ctx, &sum, query, enrollmentID); err != nil {
		return 0, fmt.Errorf("sum enrollment payments: %w", err)
	}
	return sum, nil
}

// SchoolSummary aggregates course costs and payments across every enrollment
// of a school.
func (r *EnrollmentRepository) SchoolSummary(ctx context.Context, schoolID int64) (*models.SchoolFinancialSummary, error) {
	const query = `SELECT $1::bigint AS school_id,
        COUNT(e.id) AS enrollments,
        COALESCE(SUM(e.course_cost_cents), 0) AS total_cents,
        COALESCE((SELECT SUM(p.amount_paid_cents) FROM payments p
                  JOIN enrollments pe ON pe.id = p.enrollment_id
                  WHERE pe.school_id = $1), 0) AS paid_cents
        FROM enrollments e WHERE e.school_id = $1`
	var summary models.SchoolFinancialSummary
	if err := r.db.GetContext(ctx, &summary, query, schoolID); err != nil {
		return nil, fmt.Errorf("school financial summary: %w", err)
	}
	return &summary, nil
}

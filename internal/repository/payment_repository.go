package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/driveadmin/autoescola-api/internal/models"
)

// Sentinel errors surfaced by payment application. The service layer maps
// them onto the API error taxonomy.
var (
	// ErrOverpayment is returned when a payment would push the installment's
	// cumulative paid amount past its amount due.
	ErrOverpayment = errors.New("payment exceeds installment amount due")
	// ErrNoOpenInstallment is returned when automatic installment selection
	// finds nothing left to pay.
	ErrNoOpenInstallment = errors.New("no open installment for enrollment")
)

// PaymentRepository is the only writer of payment rows. Application happens
// inside a transaction with the target installment locked, so two concurrent
// payments against the same installment serialise on the row lock and the
// overpayment check cannot be raced past.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Apply inserts the payment against the chosen installment and persists the
// installment's re-derived status, all under a row lock. When installmentID is
// nil the next unpaid installment by sequence number is selected. The payment
// struct is filled in with the generated ID, installment ID and timestamp.
func (r *PaymentRepository) Apply(ctx context.Context, payment *models.Payment, installmentID *int64, rejectOverpayment bool) (inst *models.Installment, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin apply payment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var installment models.Installment
	if installmentID != nil {
		const query = `SELECT id, enrollment_id, sequence_number, amount_due_cents, due_date, status, updated_at
            FROM installments WHERE id = $1 AND enrollment_id = $2 FOR UPDATE`
		if err = tx.GetContext(ctx, &installment, query, *installmentID, payment.EnrollmentID); err != nil {
			return nil, err
		}
	} else {
		const query = `SELECT id, enrollment_id, sequence_number, amount_due_cents, due_date, status, updated_at
            FROM installments WHERE enrollment_id = $1 AND status <> $2
            ORDER BY sequence_number ASC LIMIT 1 FOR UPDATE`
		if err = tx.GetContext(ctx, &installment, query, payment.EnrollmentID, models.InstallmentStatusPaid); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				err = ErrNoOpenInstallment
			}
			return nil, err
		}
	}

	var paidCents int64
	const sumQuery = `SELECT COALESCE(SUM(amount_paid_cents), 0) FROM payments WHERE installment_id = $1`
	if err = tx.GetContext(ctx, &paidCents, sumQuery, installment.ID); err != nil {
		return nil, fmt.Errorf("sum installment payments: %w", err)
	}

	if rejectOverpayment && paidCents+payment.AmountPaidCents > installment.AmountDueCents {
		err = ErrOverpayment
		return nil, err
	}

	now := time.Now().UTC()
	payment.InstallmentID = installment.ID
	if payment.PaidAt.IsZero() {
		payment.PaidAt = now
	}
	const insertQuery = `INSERT INTO payments (enrollment_id, installment_id, amount_paid_cents, method, recorded_by, paid_at)
        VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err = tx.GetContext(ctx, &payment.ID, insertQuery,
		payment.EnrollmentID, payment.InstallmentID, payment.AmountPaidCents,
		payment.Method, payment.RecordedBy, payment.PaidAt); err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}

	installment.Status = models.DeriveInstallmentStatus(installment.AmountDueCents, paidCents+payment.AmountPaidCents, installment.DueDate, now)
	installment.UpdatedAt = now
	const statusQuery = `UPDATE installments SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, statusQuery, installment.ID, installment.Status, now); err != nil {
		return nil, fmt.Errorf("update installment status: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit apply payment: %w", err)
	}
	return &installment, nil
}

// ListByEnrollment returns the enrollment's payments in ledger order.
func (r *PaymentRepository) ListByEnrollment(ctx context.Context, enrollmentID int64) ([]models.Payment, error) {
	const query = `SELECT id, enrollment_id, installment_id, amount_paid_cents, method, recorded_by, paid_at
        FROM payments WHERE enrollment_id = $1 ORDER BY paid_at ASC, id ASC`
	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive    EnrollmentStatus = "ACTIVE"
	EnrollmentStatusCompleted EnrollmentStatus = "COMPLETED"
	EnrollmentStatusCancelled EnrollmentStatus = "CANCELLED"
)

// Enrollment captures a student's contract for one course category at one
// school. Monetary values are stored in integer cents. The course cost is
// immutable once the installment schedule has been generated.
type Enrollment struct {
	ID              int64            `db:"id" json:"id"`
	StudentID       int64            `db:"student_id" json:"student_id"`
	SchoolID        int64            `db:"school_id" json:"school_id"`
	CategoryID      int64            `db:"category_id" json:"category_id"`
	CourseCostCents int64            `db:"course_cost_cents" json:"course_cost_cents"`
	ContractMonths  int              `db:"contract_months" json:"contract_months"`
	Status          EnrollmentStatus `db:"status" json:"status"`
	StartDate       time.Time        `db:"start_date" json:"start_date"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
}

// InstallmentStatus is derived from the sum of payments applied to an
// installment versus its amount due, except OVERDUE which is a time-based
// override for unpaid installments past their due date.
type InstallmentStatus string

// Possible installment statuses. PAID is terminal.
const (
	InstallmentStatusPending       InstallmentStatus = "PENDING"
	InstallmentStatusPartiallyPaid InstallmentStatus = "PARTIALLY_PAID"
	InstallmentStatusPaid          InstallmentStatus = "PAID"
	InstallmentStatusOverdue       InstallmentStatus = "OVERDUE"
)

// Installment is one scheduled partial amount owed within an enrollment.
// Sequence numbers start at 1 and are unique within the enrollment.
type Installment struct {
	ID             int64             `db:"id" json:"id"`
	EnrollmentID   int64             `db:"enrollment_id" json:"enrollment_id"`
	SequenceNumber int               `db:"sequence_number" json:"sequence_number"`
	AmountDueCents int64             `db:"amount_due_cents" json:"amount_due_cents"`
	DueDate        time.Time         `db:"due_date" json:"due_date"`
	Status         InstallmentStatus `db:"status" json:"status"`
	UpdatedAt      time.Time         `db:"updated_at" json:"updated_at"`
}

// InstallmentBalance pairs an installment with the sum of payments applied
// to it, as read from the ledger.
type InstallmentBalance struct {
	Installment
	PaidCents int64 `db:"paid_cents" json:"paid_cents"`
}

// DeriveInstallmentStatus is the single implementation of the installment
// state machine. An installment with a partial payment past its due date
// stays PARTIALLY_PAID; only fully unpaid installments turn OVERDUE.
func DeriveInstallmentStatus(amountDueCents, paidCents int64, dueDate, now time.Time) InstallmentStatus {
	switch {
	case paidCents >= amountDueCents:
		return InstallmentStatusPaid
	case paidCents > 0:
		return InstallmentStatusPartiallyPaid
	case dueDate.Before(now):
		return InstallmentStatusOverdue
	default:
		return InstallmentStatusPending
	}
}

// SplitAmount divides a total amount in cents into n parts that sum exactly
// to the total. The last part absorbs the rounding remainder.
func SplitAmount(totalCents int64, n int) []int64 {
	parts := make([]int64, n)
	base := totalCents / int64(n)
	for i := range parts {
		parts[i] = base
	}
	parts[n-1] += totalCents - base*int64(n)
	return parts
}

// FinancialSummary aggregates an enrollment's ledger position.
type FinancialSummary struct {
	EnrollmentID int64   `json:"enrollment_id"`
	TotalCents   int64   `json:"total_cents"`
	PaidCents    int64   `json:"paid_cents"`
	PendingCents int64   `json:"pending_cents"`
	PercentPaid  float64 `json:"percent_paid"`
}

// NewFinancialSummary computes the summary, guarding the zero-cost case.
func NewFinancialSummary(enrollmentID, totalCents, paidCents int64) FinancialSummary {
	summary := FinancialSummary{
		EnrollmentID: enrollmentID,
		TotalCents:   totalCents,
		PaidCents:    paidCents,
		PendingCents: totalCents - paidCents,
	}
	if totalCents > 0 {
		summary.PercentPaid = float64(paidCents) / float64(totalCents)
	}
	return summary
}

// SchoolFinancialSummary aggregates the ledger position across all
// enrollments of a school.
type SchoolFinancialSummary struct {
	SchoolID     int64   `db:"school_id" json:"school_id"`
	Enrollments  int     `db:"enrollments" json:"enrollments"`
	TotalCents   int64   `db:"total_cents" json:"total_cents"`
	PaidCents    int64   `db:"paid_cents" json:"paid_cents"`
	PendingCents int64   `json:"pending_cents"`
	PercentPaid  float64 `json:"percent_paid"`
}

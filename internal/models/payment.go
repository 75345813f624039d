package models

import "time"

// PaymentMethod identifies how a payment was collected.
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "CASH"
	PaymentMethodCard     PaymentMethod = "CARD"
	PaymentMethodPix      PaymentMethod = "PIX"
	PaymentMethodTransfer PaymentMethod = "TRANSFER"
)

// Payment is an append-only ledger entry applying money against a specific
// installment. Monetary fields are never mutated after creation.
type Payment struct {
	ID              int64         `db:"id" json:"id"`
	EnrollmentID    int64         `db:"enrollment_id" json:"enrollment_id"`
	InstallmentID   int64         `db:"installment_id" json:"installment_id"`
	AmountPaidCents int64         `db:"amount_paid_cents" json:"amount_paid_cents"`
	Method          PaymentMethod `db:"method" json:"method"`
	RecordedBy      int64         `db:"recorded_by" json:"recorded_by"`
	PaidAt          time.Time     `db:"paid_at" json:"paid_at"`
}

// PaymentResult is returned after a payment has been applied: the new ledger
// entry, the affected installment's resulting status, and the enrollment's
// refreshed financial summary.
type PaymentResult struct {
	Payment           Payment           `json:"payment"`
	InstallmentStatus InstallmentStatus `json:"installment_status"`
	Summary           FinancialSummary  `json:"summary"`
}

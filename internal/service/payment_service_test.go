package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driveadmin/autoescola-api/internal/models"
	appErrors "github.com/driveadmin/autoescola-api/pkg/errors"
)

func newPaymentServiceForTest(repo *fakeLedgerRepo, audits *mockAuditWriter) (*PaymentService, *LedgerService) {
	ledger := newLedgerServiceForTest(repo)
	return NewPaymentService(repo, ledger, audits, nil, nil, nil, nil, true), ledger
}

func createTestEnrollment(t *testing.T, ledger *LedgerService, costCents int64, n int) *models.Enrollment {
	t.Helper()
	enrollment, _, err := ledger.CreateEnrollment(context.Background(), CreateEnrollmentRequest{
		StudentID:       10,
		SchoolID:        2,
		CategoryID:      1,
		CourseCostCents: costCents,
		NumInstallments: n,
		StartDate:       time.Now().UTC().AddDate(0, 1, 0),
	}, 1)
	require.NoError(t, err)
	return enrollment
}

func TestApplyPaymentFullThenPartial(t *testing.T) {
	repo := newFakeLedgerRepo()
	svc, ledger := newPaymentServiceForTest(repo, &mockAuditWriter{})
	enrollment := createTestEnrollment(t, ledger, 60000, 2)

	result, err := svc.Apply(context.Background(), enrollment.ID, ApplyPaymentRequest{
		AmountPaidCents: 30000,
		Method:          models.PaymentMethodPix,
	}, 1)
	require.NoError(t, err)
	assert.Equal(t, models.InstallmentStatusPaid, result.InstallmentStatus)
	assert.Equal(t, int64(30000), result.Summary.PaidCents)

	result, err = svc.Apply(context.Background(), enrollment.ID, ApplyPaymentRequest{
		AmountPaidCents: 10000,
		Method:          models.PaymentMethodCash,
	}, 1)
	require.NoError(t, err)
	assert.Equal(t, models.InstallmentStatusPartiallyPaid, result.InstallmentStatus)
	assert.Equal(t, int64(60000), result.Summary.TotalCents)
	assert.Equal(t, int64(40000), result.Summary.PaidCents)
	assert.Equal(t, int64(20000), result.Summary.PendingCents)
	assert.InDelta(t, 0.667, result.Summary.PercentPaid, 0.001)

	balances, err := ledger.ListInstallments(context.Background(), enrollment.ID)
	require.NoError(t, err)
	require.Len(t, balances, 2)
	assert.Equal(t, models.InstallmentStatusPaid, balances[0].Status)
	assert.Equal(t, models.InstallmentStatusPartiallyPaid, balances[1].Status)
}

func TestApplyPaymentNegativeAmount(t *testing.T) {
	repo := newFakeLedgerRepo()
	svc, ledger := newPaymentServiceForTest(repo, &mockAuditWriter{})
	enrollment := createTestEnrollment(t, ledger, 60000, 2)

	_, err := svc.Apply(context.Background(), enrollment.ID, ApplyPaymentRequest{
		AmountPaidCents: -500,
		Method:          models.PaymentMethodCash,
	}, 1)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.payments)
}

func TestApplyPaymentOverpaymentRejected(t *testing.T) {
	repo := newFakeLedgerRepo()
	svc, ledger := newPaymentServiceForTest(repo, &mockAuditWriter{})
	enrollment := createTestEnrollment(t, ledger, 60000, 2)

	_, err := svc.Apply(context.Background(), enrollment.ID, ApplyPaymentRequest{
		AmountPaidCents: 40000,
		Method:          models.PaymentMethodCard,
	}, 1)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrOverpayment.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.payments)

	// Exact remainder after a partial still lands.
	_, err = svc.Apply(context.Background(), enrollment.ID, ApplyPaymentRequest{
		AmountPaidCents: 20000,
		Method:          models.PaymentMethodCard,
	}, 1)
	require.NoError(t, err)
	result, err := svc.Apply(context.Background(), enrollment.ID, ApplyPaymentRequest{
		AmountPaidCents: 10000,
		Method:          models.PaymentMethodCard,
	}, 1)
	require.NoError(t, err)
	assert.Equal(t, models.InstallmentStatusPaid, result.InstallmentStatus)
}

func TestApplyPaymentCancelledEnrollment(t *testing.T) {
	repo := newFakeLedgerRepo()
	svc, ledger := newPaymentServiceForTest(repo, &mockAuditWriter{})
	enrollment := createTestEnrollment(t, ledger, 60000, 2)

	_, err := ledger.CancelEnrollment(context.Background(), enrollment.ID)
	require.NoError(t, err)

	_, err = svc.Apply(context.Background(), enrollment.ID, ApplyPaymentRequest{
		AmountPaidCents: 30000,
		Method:          models.PaymentMethodCash,
	}, 1)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.payments)
}

func TestApplyPaymentUnknownEnrollment(t *testing.T) {
	svc, _ := newPaymentServiceForTest(newFakeLedgerRepo(), &mockAuditWriter{})

	_, err := svc.Apply(context.Background(), 999, ApplyPaymentRequest{
		AmountPaidCents: 30000,
		Method:          models.PaymentMethodCash,
	}, 1)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestApplyPaymentTargetsExplicitInstallment(t *testing.T) {
	repo := newFakeLedgerRepo()
	svc, ledger := newPaymentServiceForTest(repo, &mockAuditWriter{})
	enrollment := createTestEnrollment(t, ledger, 60000, 2)

	second := repo.installments[enrollment.ID][1].ID
	result, err := svc.Apply(context.Background(), enrollment.ID, ApplyPaymentRequest{
		InstallmentID:   &second,
		AmountPaidCents: 30000,
		Method:          models.PaymentMethodTransfer,
	}, 1)
	require.NoError(t, err)
	assert.Equal(t, second, result.Payment.InstallmentID)
	assert.Equal(t, models.InstallmentStatusPaid, result.InstallmentStatus)
}

func TestApplyPaymentCompletesEnrollment(t *testing.T) {
	repo := newFakeLedgerRepo()
	svc, ledger := newPaymentServiceForTest(repo, &mockAuditWriter{})
	enrollment := createTestEnrollment(t, ledger, 60000, 2)

	for i := 0; i < 2; i++ {
		_, err := svc.Apply(context.Background(), enrollment.ID, ApplyPaymentRequest{
			AmountPaidCents: 30000,
			Method:          models.PaymentMethodPix,
		}, 1)
		require.NoError(t, err)
	}

	updated, err := ledger.GetEnrollment(context.Background(), enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusCompleted, updated.Status)

	// A completed enrollment has no open installments left.
	_, err = svc.Apply(context.Background(), enrollment.ID, ApplyPaymentRequest{
		AmountPaidCents: 100,
		Method:          models.PaymentMethodPix,
	}, 1)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestApplyPaymentWritesAuditLog(t *testing.T) {
	repo := newFakeLedgerRepo()
	audits := &mockAuditWriter{}
	svc, ledger := newPaymentServiceForTest(repo, audits)
	enrollment := createTestEnrollment(t, ledger, 60000, 2)

	_, err := svc.Apply(context.Background(), enrollment.ID, ApplyPaymentRequest{
		AmountPaidCents: 30000,
		Method:          models.PaymentMethodCash,
	}, 7)
	require.NoError(t, err)

	var found bool
	for _, log := range audits.logs {
		if log.Action == models.AuditActionApplyPayment {
			found = true
			require.NotNil(t, log.UserID)
			assert.Equal(t, int64(7), *log.UserID)
		}
	}
	assert.True(t, found)
}

func TestListForEnrollment(t *testing.T) {
	repo := newFakeLedgerRepo()
	svc, ledger := newPaymentServiceForTest(repo, &mockAuditWriter{})
	enrollment := createTestEnrollment(t, ledger, 60000, 2)

	_, err := svc.Apply(context.Background(), enrollment.ID, ApplyPaymentRequest{AmountPaidCents: 30000, Method: models.PaymentMethodPix}, 1)
	require.NoError(t, err)
	_, err = svc.Apply(context.Background(), enrollment.ID, ApplyPaymentRequest{AmountPaidCents: 5000, Method: models.PaymentMethodCash}, 1)
	require.NoError(t, err)

	payments, err := svc.ListForEnrollment(context.Background(), enrollment.ID)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, int64(30000), payments[0].AmountPaidCents)
	assert.Equal(t, int64(5000), payments[1].AmountPaidCents)
}

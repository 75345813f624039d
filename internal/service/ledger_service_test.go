package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driveadmin/autoescola-api/internal/models"
	"github.com/driveadmin/autoescola-api/internal/repository"
	appErrors "github.com/driveadmin/autoescola-api/pkg/errors"
)

// fakeLedgerRepo is an in-memory stand-in for the enrollment and payment
// repositories, with apply semantics matching the SQL implementation.
type fakeLedgerRepo struct {
	enrollments       map[int64]*models.Enrollment
	installments      map[int64][]*models.Installment
	payments          []models.Payment
	nextEnrollmentID  int64
	nextInstallmentID int64
	nextPaymentID     int64
}

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{
		enrollments:       make(map[int64]*models.Enrollment),
		installments:      make(map[int64][]*models.Installment),
		nextEnrollmentID:  1,
		nextInstallmentID: 1,
		nextPaymentID:     1,
	}
}

func (f *fakeLedgerRepo) CreateWithInstallments(ctx context.Context, enrollment *models.Enrollment, installments []models.Installment) error {
	enrollment.ID = f.nextEnrollmentID
	f.nextEnrollmentID++
	f.enrollments[enrollment.ID] = enrollment
	for i := range installments {
		installments[i].ID = f.nextInstallmentID
		installments[i].EnrollmentID = enrollment.ID
		f.nextInstallmentID++
		stored := installments[i]
		f.installments[enrollment.ID] = append(f.installments[enrollment.ID], &stored)
	}
	return nil
}

func (f *fakeLedgerRepo) FindByID(ctx context.Context, id int64) (*models.Enrollment, error) {
	if e, ok := f.enrollments[id]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeLedgerRepo) installmentPaidSum(installmentID int64) int64 {
	var sum int64
	for _, p := range f.payments {
		if p.InstallmentID == installmentID {
			sum += p.AmountPaidCents
		}
	}
	return sum
}

func (f *fakeLedgerRepo) ListInstallmentBalances(ctx context.Context, enrollmentID int64) ([]models.InstallmentBalance, error) {
	var balances []models.InstallmentBalance
	for _, inst := range f.installments[enrollmentID] {
		balances = append(balances, models.InstallmentBalance{Installment: *inst, PaidCents: f.installmentPaidSum(inst.ID)})
	}
	return balances, nil
}

func (f *fakeLedgerRepo) UpdateInstallmentStatus(ctx context.Context, installmentID int64, status models.InstallmentStatus) error {
	for _, insts := range f.installments {
		for _, inst := range insts {
			if inst.ID == installmentID {
				inst.Status = status
			}
		}
	}
	return nil
}

func (f *fakeLedgerRepo) UpdateStatus(ctx context.Context, id int64, status models.EnrollmentStatus) error {
	if e, ok := f.enrollments[id]; ok {
		e.Status = status
	}
	return nil
}

func (f *fakeLedgerRepo) PaidSum(ctx context.Context, enrollmentID int64) (int64, error) {
	var sum int64
	for _, p := range f.payments {
		if p.EnrollmentID == enrollmentID {
			sum += p.AmountPaidCents
		}
	}
	return sum, nil
}

func (f *fakeLedgerRepo) Apply(ctx context.Context, payment *models.Payment, installmentID *int64, rejectOverpayment bool) (*models.Installment, error) {
	var target *models.Installment
	if installmentID != nil {
		for _, inst := range f.installments[payment.EnrollmentID] {
			if inst.ID == *installmentID {
				target = inst
				break
			}
		}
		if target == nil {
			return nil, sql.ErrNoRows
		}
	} else {
		for _, inst := range f.installments[payment.EnrollmentID] {
			if inst.Status != models.InstallmentStatusPaid {
				target = inst
				break
			}
		}
		if target == nil {
			return nil, repository.ErrNoOpenInstallment
		}
	}

	paid := f.installmentPaidSum(target.ID)
	if rejectOverpayment && paid+payment.AmountPaidCents > target.AmountDueCents {
		return nil, repository.ErrOverpayment
	}

	payment.ID = f.nextPaymentID
	f.nextPaymentID++
	payment.InstallmentID = target.ID
	if payment.PaidAt.IsZero() {
		payment.PaidAt = time.Now().UTC()
	}
	f.payments = append(f.payments, *payment)

	target.Status = models.DeriveInstallmentStatus(target.AmountDueCents, paid+payment.AmountPaidCents, target.DueDate, time.Now().UTC())
	copied := *target
	return &copied, nil
}

func (f *fakeLedgerRepo) ListByEnrollment(ctx context.Context, enrollmentID int64) ([]models.Payment, error) {
	var payments []models.Payment
	for _, p := range f.payments {
		if p.EnrollmentID == enrollmentID {
			payments = append(payments, p)
		}
	}
	return payments, nil
}

func newLedgerServiceForTest(repo *fakeLedgerRepo) *LedgerService {
	users := &mockUserReader{users: map[int64]*models.User{
		10: {ID: 10, Role: models.RoleStudent, Active: true},
		11: {ID: 11, Role: models.RoleStudent, Active: false},
	}}
	schools := &mockSchoolReader{schools: map[int64]*models.School{2: {ID: 2, Name: "Centro"}}}
	return NewLedgerService(repo, users, schools, &mockAuditWriter{}, nil, nil)
}

func TestBuildInstallmentSchedule(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	installments := BuildInstallmentSchedule(100000, 3, start)

	require.Len(t, installments, 3)
	assert.Equal(t, int64(33333), installments[0].AmountDueCents)
	assert.Equal(t, int64(33333), installments[1].AmountDueCents)
	assert.Equal(t, int64(33334), installments[2].AmountDueCents)

	assert.Equal(t, start, installments[0].DueDate)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), installments[1].DueDate)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), installments[2].DueDate)

	var sum int64
	for i, inst := range installments {
		assert.Equal(t, i+1, inst.SequenceNumber)
		sum += inst.AmountDueCents
	}
	assert.Equal(t, int64(100000), sum)
}

func TestCreateEnrollmentGeneratesSchedule(t *testing.T) {
	repo := newFakeLedgerRepo()
	svc := newLedgerServiceForTest(repo)

	start := time.Now().UTC().AddDate(0, 1, 0)
	enrollment, installments, err := svc.CreateEnrollment(context.Background(), CreateEnrollmentRequest{
		StudentID:       10,
		SchoolID:        2,
		CategoryID:      1,
		CourseCostCents: 100000,
		NumInstallments: 3,
		StartDate:       start,
	}, 1)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusActive, enrollment.Status)
	assert.Equal(t, 3, enrollment.ContractMonths)
	require.Len(t, installments, 3)
	for _, inst := range installments {
		assert.Equal(t, models.InstallmentStatusPending, inst.Status)
	}
}

func TestCreateEnrollmentRejectsInvalidInput(t *testing.T) {
	svc := newLedgerServiceForTest(newFakeLedgerRepo())

	cases := []CreateEnrollmentRequest{
		{StudentID: 10, SchoolID: 2, CategoryID: 1, CourseCostCents: -100, NumInstallments: 3, StartDate: time.Now()},
		{StudentID: 10, SchoolID: 2, CategoryID: 1, CourseCostCents: 0, NumInstallments: 3, StartDate: time.Now()},
		{StudentID: 10, SchoolID: 2, CategoryID: 1, CourseCostCents: 100000, NumInstallments: 0, StartDate: time.Now()},
	}
	for _, req := range cases {
		_, _, err := svc.CreateEnrollment(context.Background(), req, 1)
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
}

func TestCreateEnrollmentUnknownStudent(t *testing.T) {
	svc := newLedgerServiceForTest(newFakeLedgerRepo())

	_, _, err := svc.CreateEnrollment(context.Background(), CreateEnrollmentRequest{
		StudentID: 99, SchoolID: 2, CategoryID: 1, CourseCostCents: 100000, NumInstallments: 3, StartDate: time.Now(),
	}, 1)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCreateEnrollmentInactiveStudent(t *testing.T) {
	svc := newLedgerServiceForTest(newFakeLedgerRepo())

	_, _, err := svc.CreateEnrollment(context.Background(), CreateEnrollmentRequest{
		StudentID: 11, SchoolID: 2, CategoryID: 1, CourseCostCents: 100000, NumInstallments: 3, StartDate: time.Now(),
	}, 1)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestListInstallmentsFlipsOverdueLazily(t *testing.T) {
	repo := newFakeLedgerRepo()
	svc := newLedgerServiceForTest(repo)

	// Start far in the past: every unpaid installment is already past due.
	start := time.Now().UTC().AddDate(-1, 0, 0)
	enrollment, _, err := svc.CreateEnrollment(context.Background(), CreateEnrollmentRequest{
		StudentID: 10, SchoolID: 2, CategoryID: 1, CourseCostCents: 60000, NumInstallments: 2, StartDate: start,
	}, 1)
	require.NoError(t, err)

	balances, err := svc.ListInstallments(context.Background(), enrollment.ID)
	require.NoError(t, err)
	require.Len(t, balances, 2)
	for _, b := range balances {
		assert.Equal(t, models.InstallmentStatusOverdue, b.Status)
	}
}

func TestFinancialSummaryZeroPayments(t *testing.T) {
	repo := newFakeLedgerRepo()
	svc := newLedgerServiceForTest(repo)

	enrollment, _, err := svc.CreateEnrollment(context.Background(), CreateEnrollmentRequest{
		StudentID: 10, SchoolID: 2, CategoryID: 1, CourseCostCents: 100000, NumInstallments: 3, StartDate: time.Now().UTC().AddDate(0, 1, 0),
	}, 1)
	require.NoError(t, err)

	summary, err := svc.FinancialSummary(context.Background(), enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), summary.TotalCents)
	assert.Equal(t, int64(0), summary.PaidCents)
	assert.Equal(t, int64(100000), summary.PendingCents)
	assert.Equal(t, 0.0, summary.PercentPaid)
}

func TestCancelEnrollment(t *testing.T) {
	repo := newFakeLedgerRepo()
	svc := newLedgerServiceForTest(repo)

	enrollment, _, err := svc.CreateEnrollment(context.Background(), CreateEnrollmentRequest{
		StudentID: 10, SchoolID: 2, CategoryID: 1, CourseCostCents: 60000, NumInstallments: 2, StartDate: time.Now().UTC().AddDate(0, 1, 0),
	}, 1)
	require.NoError(t, err)

	cancelled, err := svc.CancelEnrollment(context.Background(), enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusCancelled, cancelled.Status)

	_, err = svc.CancelEnrollment(context.Background(), enrollment.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestGetEnrollmentNotFound(t *testing.T) {
	svc := newLedgerServiceForTest(newFakeLedgerRepo())

	_, err := svc.GetEnrollment(context.Background(), 999)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

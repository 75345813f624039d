package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeriveInstallmentStatus(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	future := now.AddDate(0, 1, 0)
	past := now.AddDate(0, -1, 0)

	cases := []struct {
		name    string
		due     int64
		paid    int64
		dueDate time.Time
		want    InstallmentStatus
	}{
		{"unpaid before due date", 33333, 0, future, InstallmentStatusPending},
		{"unpaid past due date", 33333, 0, past, InstallmentStatusOverdue},
		{"partial before due date", 33333, 10000, future, InstallmentStatusPartiallyPaid},
		// A partially paid installment past its due date stays partially
		// paid; it does not flip to overdue.
		{"partial past due date", 33333, 10000, past, InstallmentStatusPartiallyPaid},
		{"exactly paid", 33333, 33333, future, InstallmentStatusPaid},
		{"paid past due date", 33333, 33333, past, InstallmentStatusPaid},
		{"overpaid still paid", 33333, 40000, future, InstallmentStatusPaid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveInstallmentStatus(tc.due, tc.paid, tc.dueDate, now))
		})
	}
}

func TestSplitAmountSumsExactly(t *testing.T) {
	cases := []struct {
		total int64
		n     int
		want  []int64
	}{
		{100000, 3, []int64{33333, 33333, 33334}},
		{60000, 2, []int64{30000, 30000}},
		{100, 3, []int64{33, 33, 34}},
		{50000, 1, []int64{50000}},
	}
	for _, tc := range cases {
		parts := SplitAmount(tc.total, tc.n)
		assert.Equal(t, tc.want, parts)
		var sum int64
		for _, p := range parts {
			sum += p
		}
		assert.Equal(t, tc.total, sum)
	}
}

func TestNewFinancialSummary(t *testing.T) {
	summary := NewFinancialSummary(1, 60000, 40000)
	assert.Equal(t, int64(20000), summary.PendingCents)
	assert.InDelta(t, 0.667, summary.PercentPaid, 0.001)

	fullyPaid := NewFinancialSummary(1, 100000, 100000)
	assert.Equal(t, int64(0), fullyPaid.PendingCents)
	assert.Equal(t, 1.0, fullyPaid.PercentPaid)

	zeroCost := NewFinancialSummary(1, 0, 0)
	assert.Equal(t, 0.0, zeroCost.PercentPaid)
}

package debt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSchedule_LevelPayment(t *testing.T) {
	s := BuildSchedule(Terms{Principal: 750_000, AnnualRate: 0.07, AmortizationMonths: 360})

	require.Len(t, s.Entries, 360)
	// Standard 30-year mortgage constant at 7%
	assert.InDelta(t, 4989.77, s.AmortizingPayment, 0.01)
	assert.InDelta(t, 0, s.Entries[359].EndingBalance, 1e-6)
	assert.Zero(t, s.BalloonBalance)
	assert.Equal(t, 360, s.MaturityMonth)
}

func TestBuildSchedule_Continuity(t *testing.T) {
	s := BuildSchedule(Terms{Principal: 500_000, AnnualRate: 0.065, AmortizationMonths: 300, InterestOnlyMonths: 24, TermMonths: 120})

	for i := 0; i+1 < len(s.Entries); i++ {
		if s.Entries[i].EndingBalance != s.Entries[i+1].BeginningBalance {
			t.Fatalf("month %d ending %.6f != month %d beginning %.6f",
				i+1, s.Entries[i].EndingBalance, i+2, s.Entries[i+1].BeginningBalance)
		}
	}
}

func TestBuildSchedule_InterestOnly(t *testing.T) {
	s := BuildSchedule(Terms{Principal: 1_200_000, AnnualRate: 0.06, AmortizationMonths: 360, InterestOnlyMonths: 12})

	for m := 1; m <= 12; m++ {
		e := s.Entries[m-1]
		assert.True(t, e.InterestOnly)
		assert.InDelta(t, e.BeginningBalance*0.06/12, e.Payment, 1e-9)
		assert.InDelta(t, 6_000, e.Payment, 1e-9)
		assert.Zero(t, e.PrincipalPaid)
	}
	assert.False(t, s.Entries[12].InterestOnly)
	assert.Greater(t, s.Entries[12].PrincipalPaid, 0.0)
	assert.Len(t, s.Entries, 372)
}

func TestBuildSchedule_Balloon(t *testing.T) {
	s := BuildSchedule(Terms{Principal: 750_000, AnnualRate: 0.07, AmortizationMonths: 360, TermMonths: 120})

	require.Len(t, s.Entries, 120)
	last := s.Entries[119]
	assert.Greater(t, s.BalloonBalance, 0.0)
	assert.Equal(t, last.EndingBalance, s.BalloonBalance)
	// After 10 years of a 30-year 7% loan roughly 85.9% of principal remains
	assert.InDelta(t, 0.859, s.BalloonBalance/750_000, 0.005)
}

func TestBuildSchedule_ZeroRate(t *testing.T) {
	s := BuildSchedule(Terms{Principal: 120_000, AnnualRate: 0, AmortizationMonths: 120})

	require.Len(t, s.Entries, 120)
	for _, e := range s.Entries {
		assert.InDelta(t, 1_000, e.Payment, 1e-9)
		assert.Zero(t, e.InterestPaid)
		assert.False(t, math.IsNaN(e.EndingBalance))
	}
	assert.InDelta(t, 0, s.Entries[119].EndingBalance, 1e-6)
}

func TestBuildSchedule_NoDebt(t *testing.T) {
	s := BuildSchedule(Terms{Principal: 0, AnnualRate: 0.07, AmortizationMonths: 360})

	assert.False(t, s.HasDebt())
	assert.Empty(t, s.Entries)
	assert.Zero(t, s.PaymentAt(1))
	assert.Zero(t, s.BalanceAt(12))
}

func TestSchedule_DebtServiceAt_BalloonTiming(t *testing.T) {
	s := BuildSchedule(Terms{Principal: 100_000, AnnualRate: 0.05, AmortizationMonths: 360, TermMonths: 36})

	// Balloon inside the hold is paid from operations
	assert.InDelta(t, s.PaymentAt(36)+s.BalloonBalance, s.DebtServiceAt(36, 60), 1e-9)
	assert.Zero(t, s.BalanceAt(60))

	// Balloon on the final hold month is left for the sale
	assert.InDelta(t, s.PaymentAt(36), s.DebtServiceAt(36, 36), 1e-9)
	assert.Equal(t, s.BalloonBalance, s.BalanceAt(36))
}

func TestSchedule_AnnualDebtService(t *testing.T) {
	s := BuildSchedule(Terms{Principal: 750_000, AnnualRate: 0.07, AmortizationMonths: 360})

	assert.InDelta(t, s.AmortizingPayment*12, s.AnnualDebtService(1), 1e-6)
	assert.InDelta(t, s.AmortizingPayment*6, s.PaymentsBetween(1, 6), 1e-6)
	assert.Zero(t, s.PaymentsBetween(7, 6))
	assert.Greater(t, s.TotalInterest(), 0.0)
}

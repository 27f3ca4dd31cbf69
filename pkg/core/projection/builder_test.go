package projection

import (
	"testing"

	"deal_underwriting/pkg/core/deal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseInput() Input {
	d := deal.Defaults()
	return Input{HoldMonths: 60, Operating: d.Operating, Renovation: d.Renovation}
}

func TestBuild_Length(t *testing.T) {
	s := Build(baseInput())

	require.Equal(t, 60, s.Len())
	first, ok := s.At(1)
	require.True(t, ok)
	assert.Equal(t, 1, first.MonthIndex)
	assert.Equal(t, 1, first.Year)

	last, _ := s.At(60)
	assert.Equal(t, 5, last.Year)

	_, ok = s.At(61)
	assert.False(t, ok)
}

func TestBuild_FirstMonthArithmetic(t *testing.T) {
	in := baseInput()
	r, _ := Build(in).At(1)

	// 10 units x $1,200
	assert.InDelta(t, 12_000, r.GrossPotentialRent, 1e-9)
	assert.InDelta(t, 600, r.VacancyLoss, 1e-9)
	// bad debt applies to rent left after vacancy
	assert.InDelta(t, 114, r.CreditLoss, 1e-9)
	assert.InDelta(t, 11_286, r.EffectiveGrossIncome, 1e-9)
	assert.InDelta(t, in.Operating.Expenses.AnnualTotal()/12, r.FixedExpenses, 1e-9)
	assert.InDelta(t, 11_286*0.06, r.ManagementFee, 1e-9)
	assert.InDelta(t, r.EffectiveGrossIncome-r.OperatingExpenses, r.NOI, 1e-9)
}

func TestBuild_GrowthAtYearBoundary(t *testing.T) {
	s := Build(baseInput())
	m12, _ := s.At(12)
	m13, _ := s.At(13)
	m1, _ := s.At(1)

	assert.Equal(t, m1.GrossPotentialRent, m12.GrossPotentialRent, "no growth inside year one")
	assert.InDelta(t, m12.GrossPotentialRent*1.03, m13.GrossPotentialRent, 1e-9)
	assert.InDelta(t, m12.FixedExpenses*1.03, m13.FixedExpenses, 1e-9)
}

func TestBuild_ManagementFeeBasis(t *testing.T) {
	in := baseInput()
	in.Operating.ManagementFeeBasis = deal.FeeBasisGPR
	r, _ := Build(in).At(1)

	assert.InDelta(t, r.GrossPotentialRent*0.06, r.ManagementFee, 1e-9)
}

func TestBuild_RenovationAndLeaseUp(t *testing.T) {
	in := baseInput()
	in.Operating.MarketRent = 1_500
	in.Renovation = deal.Renovation{Budget: 150_000, DurationMonths: 6, RentLossPct: 0.30, LeaseUpMonths: 4}
	s := Build(in)

	reno, _ := s.At(3)
	assert.Equal(t, PhaseRenovation, reno.Phase)
	assert.InDelta(t, 10*1_200*0.70, reno.GrossPotentialRent, 1e-9)

	firstLeaseUp, _ := s.At(7)
	assert.Equal(t, PhaseLeaseUp, firstLeaseUp.Phase)
	assert.Zero(t, firstLeaseUp.GrossPotentialRent, "lease-up starts dark")

	ramp, _ := s.At(9)
	assert.InDelta(t, 10*1_500*0.5, ramp.GrossPotentialRent, 1e-9)

	stable, _ := s.At(11)
	assert.Equal(t, PhaseStabilized, stable.Phase)
	assert.InDelta(t, 15_000, stable.GrossPotentialRent, 1e-9)
}

func TestBuild_MarketRentImmediately(t *testing.T) {
	in := baseInput()
	in.Operating.MarketRent = 1_500
	in.Renovation = deal.Renovation{DurationMonths: 3, RentLossPct: 0.2, LeaseUpMonths: 6, UseMarketRentImmediately: true}
	r, _ := Build(in).At(4)

	assert.Equal(t, PhaseStabilized, r.Phase)
	assert.InDelta(t, 15_000, r.GrossPotentialRent, 1e-9)
}

func TestBuild_ZeroHold(t *testing.T) {
	in := baseInput()
	in.HoldMonths = 0
	assert.Zero(t, Build(in).Len())
}

func TestSeries_WithDebtServiceIsNonMutating(t *testing.T) {
	s := Build(baseInput())
	withDebt := s.WithDebtService(func(int) float64 { return 1_000 })

	orig, _ := s.At(1)
	levered, _ := withDebt.At(1)
	assert.Zero(t, orig.DebtService)
	assert.Equal(t, 1_000.0, levered.DebtService)
	assert.InDelta(t, levered.NOI-1_000, levered.CashFlowBeforeTax, 1e-9)
}

func TestSeries_Records_ReturnsCopy(t *testing.T) {
	s := Build(baseInput())
	recs := s.Records()
	recs[0].NOI = -1

	r, _ := s.At(1)
	assert.NotEqual(t, -1.0, r.NOI)
}

func TestSeries_TrailingAnnualNOIAndAnnual(t *testing.T) {
	s := Build(baseInput())

	assert.InDelta(t, s.Sum(49, 60, NOI), s.TrailingAnnualNOI(), 1e-9)

	annual := s.Annual()
	require.Len(t, annual, 5)
	assert.Equal(t, 12, annual[4].Months)
	assert.InDelta(t, s.Sum(1, 12, NOI), annual[0].NOI, 1e-9)

	count := 0
	for range s.All() {
		count++
	}
	assert.Equal(t, 60, count)
}

func TestSeries_TrailingAnnualNOI_ShortHold(t *testing.T) {
	in := baseInput()
	in.HoldMonths = 6
	s := Build(in)

	assert.InDelta(t, s.Sum(1, 6, NOI)*2, s.TrailingAnnualNOI(), 1e-9)
}

package engine

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"deal_underwriting/pkg/core/deal"
	"deal_underwriting/pkg/core/validate"
	"deal_underwriting/pkg/core/waterfall"
)

func hasIssue(issues []validate.Issue, kind validate.IssueKind, field string) bool {
	for _, i := range issues {
		if i.Kind == kind && i.Field == field {
			return true
		}
	}
	return false
}

// =============================================================================
// SCENARIO A: simple levered deal
// =============================================================================

func TestRun_ScenarioA(t *testing.T) {
	res, err := Run(deal.Defaults(), deal.ModeSimple)
	require.NoError(t, err)

	m := res.Metrics
	assert.True(t, m.IRR.Valid(), "IRR should be finite")
	assert.True(t, m.DSCR.Valid())
	assert.GreaterOrEqual(t, m.DSCR.Float(), 0.0)
	assert.Greater(t, m.EquityMultiple.Float(), 0.0)
	assert.True(t, m.HasDebt)

	assert.Len(t, res.Monthly, 60)
	assert.Len(t, res.Annual, 5)
	assert.InDelta(t, 750_000, res.Inputs.LoanAmount, 1e-6)
	assert.InDelta(t, 277_500, res.Inputs.InitialEquity, 1e-6)
	assert.InDelta(t, -277_500, m.CashFlows[0], 1e-6)
	assert.Nil(t, res.Distributions)

	t.Logf("IRR %s, EM %s, DSCR %s, gross sale %s",
		validate.FormatPercent(m.IRR.Float()),
		validate.FormatMultiple(m.EquityMultiple.Float()),
		validate.FormatRatio(m.DSCR.Float()),
		validate.FormatCurrency(res.Exit.GrossSalePrice))
}

func TestRun_ScenarioA_LowerExitCapRaisesPrice(t *testing.T) {
	base, err := Run(deal.Defaults(), deal.ModeSimple)
	require.NoError(t, err)

	d := deal.Defaults()
	d.Exit.CapRate = 0.03
	low, err := Run(d, deal.ModeSimple)
	require.NoError(t, err)

	assert.InDelta(t, base.Exit.StabilizedNOI, low.Exit.StabilizedNOI, 1e-9, "NOI must not depend on the exit cap")
	assert.Greater(t, low.Exit.GrossSalePrice, base.Exit.GrossSalePrice)
	assert.Greater(t, low.Metrics.IRR.Float(), base.Metrics.IRR.Float())
}

func TestRun_PayoffMatchesSchedule(t *testing.T) {
	res, err := Run(deal.Defaults(), deal.ModeSimple)
	require.NoError(t, err)

	last := res.Amortization.Entries[59]
	assert.InDelta(t, last.EndingBalance, res.Exit.LoanPayoff, 1e-9)
	assert.InDelta(t,
		res.Exit.GrossSalePrice*(1-0.03)-res.Exit.LoanPayoff,
		res.Exit.NetProceeds, 1e-6)
}

func TestRun_BalloonBeforeSale(t *testing.T) {
	d := deal.Defaults()
	d.Financing.LoanTermYears = 3

	res, err := Run(d, deal.ModeSimple)
	require.NoError(t, err)

	assert.Zero(t, res.Exit.LoanPayoff, "loan was retired at maturity")
	assert.Greater(t, res.Monthly[35].DebtService, res.Monthly[34].DebtService*10, "balloon lands in month 36")
	assert.Zero(t, res.Monthly[36].DebtService)
	assert.True(t, hasIssue(res.Warnings, validate.InputWarning, "financing.loan_term_years"))
}

func TestRun_ShortHoldYearOneCoverage(t *testing.T) {
	d := deal.Defaults()
	d.Acquisition.HoldPeriodMonths = 6

	res, err := Run(d, deal.ModeSimple)
	require.NoError(t, err)

	m := res.Metrics
	require.Len(t, m.AnnualDSCR, 1)
	assert.InDelta(t, m.AnnualDSCR[0].Float(), m.DSCR.Float(), 1e-9)
	assert.Greater(t, m.DSCR.Float(), 1.0)
	assert.Less(t, m.BreakevenOccupancy.Float(), 0.95)
	assert.False(t, hasIssue(res.Warnings, validate.InputWarning, "dscr"))
	assert.False(t, hasIssue(res.Warnings, validate.InputWarning, "breakeven_occupancy"))
}

// =============================================================================
// DEGENERATE INPUTS
// =============================================================================

func TestRun_NoDebt(t *testing.T) {
	d := deal.Defaults()
	d.Financing.Enabled = false

	res, err := Run(d, deal.ModeSimple)
	require.NoError(t, err)

	assert.False(t, res.Metrics.HasDebt)
	assert.Empty(t, res.Amortization.Entries)
	assert.False(t, res.Metrics.DSCR.Valid(), "DSCR is not applicable without debt")
	assert.Zero(t, res.Exit.LoanPayoff)
	for _, r := range res.Monthly {
		assert.Zero(t, r.DebtService)
		assert.Equal(t, r.NOI, r.CashFlowBeforeTax)
	}

	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"dscr":null`)
}

func TestRun_NoIncomeDoesNotFail(t *testing.T) {
	d := deal.Defaults()
	d.Operating.InPlaceRent = 0

	res, err := Run(d, deal.ModeSyndication)
	require.NoError(t, err)

	assert.False(t, res.Metrics.IRR.Valid())
	assert.True(t, hasIssue(res.Warnings, validate.ComputationDegenerate, "irr"))

	_, err = json.Marshal(res)
	assert.NoError(t, err)
}

func TestRun_InvalidInput(t *testing.T) {
	d := deal.Defaults()
	d.Exit.CapRate = 0

	res, err := Run(d, deal.ModeSimple)
	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	var inputErr *InputError
	require.True(t, errors.As(err, &inputErr))
	require.NotEmpty(t, inputErr.Issues)
	assert.Equal(t, "exit.cap_rate", inputErr.Issues[0].Field)
	assert.Contains(t, err.Error(), "exit.cap_rate")
}

func TestRun_NonFiniteInputRejected(t *testing.T) {
	d := deal.Defaults()
	d.Operating.Vacancy = math.NaN()

	_, err := Run(d, deal.ModeSimple)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRun_Deterministic(t *testing.T) {
	d := deal.Defaults()
	d.Renovation = deal.Renovation{Budget: 80_000, DurationMonths: 6, RentLossPct: 0.4, LeaseUpMonths: 3}
	d.Operating.MarketRent = 1_450

	a, err := Run(d, deal.ModeSyndication)
	require.NoError(t, err)
	b, err := Run(d, deal.ModeSyndication)
	require.NoError(t, err)

	ja, err := json.Marshal(a)
	require.NoError(t, err)
	jb, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, string(ja), string(jb))
}

func TestRun_DoesNotMutateInput(t *testing.T) {
	d := deal.Defaults()
	before := d.Clone()

	_, err := Run(d, deal.ModeSyndication)
	require.NoError(t, err)
	assert.Equal(t, before, d)
}

// =============================================================================
// SCENARIO B: syndication waterfall
// =============================================================================

func scenarioB() deal.Assumptions {
	d := deal.Defaults()
	d.Syndication.LPCapital = 1_800_000
	d.Syndication.GPCapital = 200_000
	d.Syndication.PrefRate = 0.08
	d.Syndication.PrefCompounding = true
	d.Syndication.Tiers = []deal.PromoteTier{
		{Hurdle: 0.12, LPShare: 0.70, GPShare: 0.30},
		{Hurdle: 0.18, LPShare: 0.60, GPShare: 0.40},
		{LPShare: 0.50, GPShare: 0.50},
	}
	return d
}

func assertWaterfallBalances(t *testing.T, res *Results) {
	t.Helper()
	operating := 0.0
	for _, r := range res.Monthly {
		operating += r.CashFlowBeforeTax
	}
	operating -= res.Fees.AssetManagementTotal

	total := 0.0
	for _, ev := range res.Distributions {
		sum := ev.Allocations[waterfall.LP] + ev.Allocations[waterfall.GP]
		assert.InDelta(t, ev.TotalCashAvailable, sum, math.Max(1e-6*ev.TotalCashAvailable, 1e-6))
		total += sum
	}
	assert.InDelta(t, operating+res.Exit.NetProceeds, total, 1e-3)
}

func TestRun_ScenarioB_BeforeHurdlesGPIsProRata(t *testing.T) {
	d := scenarioB()
	d.Syndication.LPCapital = 0
	d.Syndication.GPCapital = 0
	d.Exit.CapRate = 0.13

	res, err := Run(d, deal.ModeSyndication)
	require.NoError(t, err)
	require.NotEmpty(t, res.Distributions)
	assertWaterfallBalances(t, res)

	lp := res.PartySummaries[waterfall.LP]
	gp := res.PartySummaries[waterfall.GP]
	require.True(t, lp.IRR.Valid())
	assert.Less(t, lp.IRR.Float(), 0.12, "the LP stays under the first hurdle")
	assert.InDelta(t, 0, lp.UnreturnedCapital, 1e-6, "capital is fully returned")
	assert.Positive(t, lp.PrefPaid)
	assert.Positive(t, gp.PrefPaid)

	prefDollars := 0.0
	for _, ev := range res.Distributions {
		for _, tier := range ev.TierBreakdown {
			switch tier.Kind {
			case waterfall.TierReturnOfCapital, waterfall.TierPref:
				assert.InDelta(t, 0.10*tier.Total, tier.GP, 1e-6, "%s tier in period %d", tier.Kind, ev.PeriodIndex)
				if tier.Kind == waterfall.TierPref {
					prefDollars += tier.Total
				}
			default:
				t.Errorf("period %d reached %s tier", ev.PeriodIndex, tier.Kind)
			}
		}
	}
	assert.InDelta(t, lp.PrefPaid+gp.PrefPaid, prefDollars, 1e-6)
	assert.InDelta(t, lp.Distributed/9, gp.Distributed, 1e-3)
}

func TestRun_ScenarioB_OverstatedCapitalStaysProRata(t *testing.T) {
	res, err := Run(scenarioB(), deal.ModeSyndication)
	require.NoError(t, err)
	require.NotEmpty(t, res.Distributions)

	assertWaterfallBalances(t, res)

	// Two million of capital against roughly a million and a half of cash:
	// the LP never clears a hurdle, so every dollar moves at 90/10.
	for _, ev := range res.Distributions {
		if ev.TotalCashAvailable == 0 {
			continue
		}
		for _, tier := range ev.TierBreakdown {
			assert.NotEqual(t, waterfall.TierSplit, tier.Kind, "no promote tier should be reached")
		}
		assert.InDelta(t, 0.10*ev.TotalCashAvailable, ev.Allocations[waterfall.GP], 1e-6)
	}

	gp := res.PartySummaries[waterfall.GP]
	lp := res.PartySummaries[waterfall.LP]
	assert.InDelta(t, 200_000, gp.Contributed, 1e-9)
	assert.InDelta(t, 1_800_000, lp.Contributed, 1e-9)
	assert.InDelta(t, lp.Distributed/9, gp.Distributed, 1e-3)
	assert.True(t, hasIssue(res.Warnings, validate.InputWarning, "syndication.lp_capital"))
}

func TestRun_ScenarioB_PromoteEngagesOnDerivedCapital(t *testing.T) {
	d := scenarioB()
	d.Syndication.LPCapital = 0
	d.Syndication.GPCapital = 0

	res, err := Run(d, deal.ModeSyndication)
	require.NoError(t, err)
	assertWaterfallBalances(t, res)

	assert.InDelta(t, res.Inputs.InitialEquity*0.9, res.Inputs.LPCapital, 1e-6)
	assert.InDelta(t, res.Inputs.InitialEquity*0.1, res.Inputs.GPCapital, 1e-6)

	gp := res.PartySummaries[waterfall.GP]
	lp := res.PartySummaries[waterfall.LP]
	gpShare := gp.Distributed / (gp.Distributed + lp.Distributed)
	assert.Greater(t, gpShare, 0.10, "the promote should lift the GP above its co-invest share")
	assert.Less(t, lp.IRR.Float(), res.Metrics.IRR.Float()+1e-9, "the LP cannot beat the deal after promote")
	assert.Zero(t, countConvergenceWarnings(res))
}

func TestRun_ScenarioB_ConvergenceFallbackIsReported(t *testing.T) {
	d := scenarioB()
	d.Syndication.LPCapital = 0
	d.Syndication.GPCapital = 0

	res, err := Run(d, deal.ModeSyndication, WithBreakpointSearch(1e-12, 1))
	require.NoError(t, err)
	assertWaterfallBalances(t, res)
	assert.Positive(t, countConvergenceWarnings(res))
}

func TestRun_SponsorFees(t *testing.T) {
	d := scenarioB()
	d.Syndication.LPCapital = 0
	d.Syndication.GPCapital = 0
	d.Syndication.AcquisitionFeePct = 0.01
	d.Syndication.AssetManagementFeePct = 0.02

	res, err := Run(d, deal.ModeSyndication)
	require.NoError(t, err)
	require.NotNil(t, res.Fees)

	assert.InDelta(t, 10_000, res.Fees.AcquisitionFee, 1e-6)
	assert.InDelta(t, 287_500, res.Inputs.InitialEquity, 1e-6)
	assert.InDelta(t, 287_500*0.02, res.Fees.AssetManagementAnnual, 1e-6)
	assert.InDelta(t, 287_500*0.02*5, res.Fees.AssetManagementTotal, 1e-6)
	assertWaterfallBalances(t, res)
}

func countConvergenceWarnings(res *Results) int {
	n := 0
	for _, w := range res.Warnings {
		if w.Kind == validate.WaterfallConvergenceWarning {
			n++
		}
	}
	return n
}

// =============================================================================
// OPTIONS
// =============================================================================

func TestRun_WithDiscountRate(t *testing.T) {
	res, err := Run(deal.Defaults(), deal.ModeSimple)
	require.NoError(t, err)
	assert.False(t, res.Metrics.NPV.Valid())

	res, err = Run(deal.Defaults(), deal.ModeSimple, WithDiscountRate(res.Metrics.IRR.Float()))
	require.NoError(t, err)
	assert.InDelta(t, 0, res.Metrics.NPV.Float(), 1e-2, "NPV at the IRR is zero")
}

func TestRun_WithLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	_, err := Run(deal.Defaults(), deal.ModeSyndication, WithLogger(zap.New(core)))
	require.NoError(t, err)

	assert.Equal(t, 1, logs.FilterMessage("run complete").Len())
	assert.Equal(t, 1, logs.FilterMessage("waterfall complete").Len())
}

package valuation

import (
	"encoding/json"
	"math"
	"testing"

	"deal_underwriting/pkg/core/deal"
	"deal_underwriting/pkg/core/debt"
	"deal_underwriting/pkg/core/projection"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIRR_KnownValues(t *testing.T) {
	tests := []struct {
		name  string
		flows []float64
		want  float64
	}{
		{"single period", []float64{-100, 110}, 0.10},
		{"textbook five year", []float64{-70000, 12000, 15000, 18000, 21000, 26000}, 0.086631},
		{"zero return", []float64{-100, 50, 50}, 0},
		{"deep loss", []float64{-100, 50}, -0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IRR(tt.flows)
			require.False(t, math.IsNaN(got), "expected a root")
			assert.InDelta(t, tt.want, got, 1e-5)
			assert.InDelta(t, 0, NPV(got, tt.flows), 1e-3)
		})
	}
}

func TestIRR_NoSignChangeIsNaN(t *testing.T) {
	assert.True(t, math.IsNaN(IRR([]float64{-100, -10, -5})))
	assert.True(t, math.IsNaN(IRR([]float64{100, 10})))
	assert.True(t, math.IsNaN(IRR([]float64{-100})))
	assert.True(t, math.IsNaN(IRR(nil)))
	assert.True(t, math.IsNaN(IRR([]float64{0, 0, 0})))
}

func TestIRR_BisectionFallbackOnLongSeries(t *testing.T) {
	flows := make([]float64, 121)
	flows[0] = -1_000_000
	for i := 1; i <= 120; i++ {
		flows[i] = 5_000
	}
	flows[120] += 1_400_000

	r := IRR(flows)
	require.False(t, math.IsNaN(r))
	assert.InDelta(t, 0, NPV(r, flows), 1.0)
	assert.InDelta(t, r, bisectIRR(flows), 1e-8)
}

func TestAnnualizeMonthly(t *testing.T) {
	assert.InDelta(t, 0.126825, AnnualizeMonthly(0.01), 1e-6)
	assert.True(t, math.IsNaN(AnnualizeMonthly(math.NaN())))
	assert.InDelta(t, 0.01, MonthlyFromAnnual(AnnualizeMonthly(0.01)), 1e-12)
}

func TestGrossSalePrice_MonotonicInCapRate(t *testing.T) {
	noi := 100_000.0
	prev := math.Inf(1)
	for _, capRate := range []float64{0.03, 0.04, 0.05, 0.055, 0.06, 0.08, 0.12} {
		p := GrossSalePrice(noi, capRate)
		assert.Less(t, p, prev, "cap %.3f", capRate)
		prev = p
	}
	assert.Zero(t, GrossSalePrice(noi, 0))
	assert.Zero(t, GrossSalePrice(noi, -0.01))
}

func TestCalculateExit(t *testing.T) {
	res := CalculateExit(ExitInput{StabilizedNOI: 110_000, CapRate: 0.055, SaleCostPct: 0.03, LoanPayoff: 700_000})

	assert.InDelta(t, 2_000_000, res.GrossSalePrice, 1e-6)
	assert.InDelta(t, 60_000, res.SaleCosts, 1e-6)
	assert.InDelta(t, 1_240_000, res.NetProceeds, 1e-6)
	assert.False(t, res.Degenerate)

	bad := CalculateExit(ExitInput{StabilizedNOI: 110_000, CapRate: 0})
	assert.True(t, bad.Degenerate)
	assert.Zero(t, bad.GrossSalePrice)
}

func buildInputs(t *testing.T, financed bool) MetricsInput {
	t.Helper()
	return buildHoldInputs(t, financed, 60)
}

func buildHoldInputs(t *testing.T, financed bool, hold int) MetricsInput {
	t.Helper()
	d := deal.Defaults()
	s := projection.Build(projection.Input{HoldMonths: hold, Operating: d.Operating})

	var sched debt.Schedule
	loan := 0.0
	if financed {
		loan = 750_000
		sched = debt.BuildSchedule(debt.Terms{Principal: loan, AnnualRate: 0.07, AmortizationMonths: 360})
	}
	s = s.WithDebtService(func(m int) float64 { return sched.DebtServiceAt(m, hold) })
	exit := CalculateExit(ExitInput{
		StabilizedNOI: s.TrailingAnnualNOI(),
		CapRate:       0.055,
		SaleCostPct:   0.03,
		LoanPayoff:    sched.BalanceAt(hold),
	})
	return MetricsInput{
		Series:        s,
		Schedule:      sched,
		Exit:          exit,
		InitialEquity: 1_020_000 - loan,
		PurchasePrice: 1_000_000,
		DiscountRate:  0.10,
	}
}

func TestCalculateMetrics_Levered(t *testing.T) {
	m := CalculateMetrics(buildInputs(t, true))

	assert.True(t, m.IRR.Valid())
	assert.True(t, m.HasDebt)
	assert.True(t, m.DSCR.Valid())
	assert.GreaterOrEqual(t, m.DSCR.Float(), 0.0)
	assert.Greater(t, m.EquityMultiple.Float(), 0.0)
	assert.Len(t, m.AnnualDSCR, 5)
	assert.True(t, m.NPV.Valid())
	assert.Len(t, m.CashFlows, 61)
	assert.InDelta(t, -270_000, m.CashFlows[0], 1e-9)
	assert.True(t, m.BreakevenOccupancy.Valid())
	assert.Greater(t, m.BreakevenOccupancy.Float(), 0.0)
}

func TestCalculateMetrics_ShortHoldYearOneWindow(t *testing.T) {
	full := CalculateMetrics(buildHoldInputs(t, true, 60))
	short := CalculateMetrics(buildHoldInputs(t, true, 6))

	require.Len(t, short.AnnualDSCR, 1)
	assert.InDelta(t, short.AnnualDSCR[0].Float(), short.DSCR.Float(), 1e-9)
	assert.InDelta(t, full.DSCR.Float(), short.DSCR.Float(), 0.05)
	assert.InDelta(t, full.BreakevenOccupancy.Float(), short.BreakevenOccupancy.Float(), 0.02)
	assert.InDelta(t, full.GoingInCapRate.Float(), short.GoingInCapRate.Float(), 0.002)
	assert.InDelta(t, full.DebtYield.Float(), short.DebtYield.Float(), 0.002)
	assert.Less(t, short.BreakevenOccupancy.Float(), 0.95)
	assert.Greater(t, short.DSCR.Float(), 1.0)
}

func TestCalculateMetrics_NoDebtDSCRNotApplicable(t *testing.T) {
	m := CalculateMetrics(buildInputs(t, false))

	assert.False(t, m.HasDebt)
	assert.False(t, m.DSCR.Valid())
	assert.False(t, m.DebtYield.Valid())
	assert.Empty(t, m.AnnualDSCR)
	assert.True(t, m.IRR.Valid())
}

func TestCalculateMetrics_ZeroEquity(t *testing.T) {
	in := buildInputs(t, true)
	in.InitialEquity = 0
	m := CalculateMetrics(in)

	assert.False(t, m.EquityMultiple.Valid())
	assert.False(t, m.CashOnCashYear1.Valid())
}

func TestMetric_JSON(t *testing.T) {
	out, err := json.Marshal(struct {
		A Metric `json:"a"`
		B Metric `json:"b"`
	}{A: 0.125, B: NotAvailable()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":0.125,"b":null}`, string(out))

	var back struct {
		A Metric `json:"a"`
		B Metric `json:"b"`
	}
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, Metric(0.125), back.A)
	assert.False(t, back.B.Valid())
}

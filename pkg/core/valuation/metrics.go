package valuation

import (
	"deal_underwriting/pkg/core/debt"
	"deal_underwriting/pkg/core/projection"
)

// MetricsInput is everything the return calculator reads
type MetricsInput struct {
	Series        projection.Series // with debt service applied
	Schedule      debt.Schedule
	Exit          ExitResult
	InitialEquity float64
	PurchasePrice float64
	DiscountRate  float64 // annual; 0 skips NPV
}

// Metrics holds the deal-level return profile
type Metrics struct {
	InitialEquity      float64   `json:"initial_equity"`
	IRR                Metric    `json:"irr"`
	MonthlyIRR         Metric    `json:"monthly_irr"`
	NPV                Metric    `json:"npv"`
	EquityMultiple     Metric    `json:"equity_multiple"`
	CashOnCashYear1    Metric    `json:"coc_year1"`
	AverageCashOnCash  Metric    `json:"average_coc"`
	HasDebt            bool      `json:"has_debt"`
	DSCR               Metric    `json:"dscr"` // year one
	MinDSCR            Metric    `json:"min_dscr"`
	AnnualDSCR         []Metric  `json:"annual_dscr"`
	BreakevenOccupancy Metric    `json:"breakeven_occupancy"`
	GoingInCapRate     Metric    `json:"going_in_cap_rate"`
	DebtYield          Metric    `json:"debt_yield"`
	TotalDistributions float64   `json:"total_distributions"`
	TotalProfit        float64   `json:"total_profit"`
	PaybackMonth       int       `json:"payback_month"` // 0 = never within the hold
	CashFlows          []float64 `json:"cash_flows"`    // t0 equity, then monthly, exit in the last month
}

// EquityCashFlows lays out the levered flow vector: -equity at t0, monthly
// cash flow before tax, plus net sale proceeds in the terminal month.
func EquityCashFlows(s projection.Series, initialEquity, netProceeds float64) []float64 {
	flows := make([]float64, s.Len()+1)
	flows[0] = -initialEquity
	for m, r := range s.All() {
		flows[m] = r.CashFlowBeforeTax
	}
	if len(flows) > 1 {
		flows[len(flows)-1] += netProceeds
	}
	return flows
}

// CalculateMetrics derives every return metric. Degenerate ratios come back
// as NotAvailable rather than an error.
func CalculateMetrics(input MetricsInput) Metrics {
	s := input.Series
	flows := EquityCashFlows(s, input.InitialEquity, input.Exit.NetProceeds)

	m := Metrics{
		InitialEquity: input.InitialEquity,
		HasDebt:       input.Schedule.HasDebt(),
		CashFlows:     flows,
		NPV:           NotAvailable(),
		DSCR:          NotAvailable(),
		MinDSCR:       NotAvailable(),
	}

	monthly := IRR(flows)
	m.MonthlyIRR = Metric(monthly)
	m.IRR = Metric(AnnualizeMonthly(monthly))
	if input.DiscountRate != 0 {
		m.NPV = Metric(NPV(MonthlyFromAnnual(input.DiscountRate), flows))
	}

	cumulative := flows[0]
	for t := 1; t < len(flows); t++ {
		if flows[t] > 0 {
			m.TotalDistributions += flows[t]
		}
		m.TotalProfit += flows[t]
		cumulative += flows[t]
		if m.PaybackMonth == 0 && cumulative >= 0 && input.InitialEquity > 0 {
			m.PaybackMonth = t
		}
	}
	m.TotalProfit -= input.InitialEquity

	if input.InitialEquity > 0 {
		m.EquityMultiple = ratio(m.TotalDistributions, input.InitialEquity)
		m.CashOnCashYear1 = ratio(s.Sum(1, 12, projection.CashFlow), input.InitialEquity)
		years := float64(s.Len()) / 12
		m.AverageCashOnCash = ratio(s.Sum(1, s.Len(), projection.CashFlow)/years, input.InitialEquity)
	} else {
		m.EquityMultiple = NotAvailable()
		m.CashOnCashYear1 = NotAvailable()
		m.AverageCashOnCash = NotAvailable()
	}

	// Year one is the first twelve months or the whole hold if shorter.
	// Coverage ratios compare like windows; yields are annualized.
	months1 := min(12, s.Len())
	noi1 := s.Sum(1, months1, projection.NOI)
	ds1 := input.Schedule.PaymentsBetween(1, months1)
	annualNOI1 := 0.0
	if months1 > 0 {
		annualNOI1 = noi1 * 12 / float64(months1)
	}
	if m.HasDebt {
		m.DSCR = ratio(noi1, ds1)
		m.AnnualDSCR = annualDSCR(s, input.Schedule)
		m.MinDSCR = minMetric(m.AnnualDSCR)
		m.DebtYield = ratio(annualNOI1, input.Schedule.LoanAmount)
	} else {
		m.DebtYield = NotAvailable()
	}

	gpr1 := s.Sum(1, months1, projection.GrossPotentialRent)
	fixed1 := s.Sum(1, months1, projection.FixedExpenses)
	m.BreakevenOccupancy = ratio(ds1+fixed1, gpr1)
	m.GoingInCapRate = ratio(annualNOI1, input.PurchasePrice)

	return m
}

// annualDSCR is NOI over scheduled debt service for each hold year
func annualDSCR(s projection.Series, sched debt.Schedule) []Metric {
	var out []Metric
	for _, y := range s.Annual() {
		first := (y.Year-1)*12 + 1
		out = append(out, ratio(y.NOI, sched.PaymentsBetween(first, first+y.Months-1)))
	}
	return out
}

func minMetric(ms []Metric) Metric {
	best := NotAvailable()
	for _, v := range ms {
		if !v.Valid() {
			continue
		}
		if !best.Valid() || v < best {
			best = v
		}
	}
	return best
}

// Package validate range-checks deal assumptions before an engine run and
// classifies computed outputs. Findings are either hard errors, which block
// the run, or advisory warnings.
package validate

import (
	"fmt"
	"math"

	"deal_underwriting/pkg/core/deal"
	"deal_underwriting/pkg/core/valuation"
)

// =============================================================================
// ISSUES
// =============================================================================

// IssueKind classifies a finding
type IssueKind string

const (
	InputRangeError             IssueKind = "input_range_error"
	InputWarning                IssueKind = "input_warning"
	ComputationDegenerate       IssueKind = "computation_degenerate"
	WaterfallConvergenceWarning IssueKind = "waterfall_convergence_warning"
)

// Issue is one validation finding.
type Issue struct {
	Kind    IssueKind        `json:"kind"`
	Field   string           `json:"field"`
	Message string           `json:"message"`
	Value   valuation.Metric `json:"value"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s (%s)", i.Field, i.Message, FormatNumber(float64(i.Value)))
}

// Result holds the outcome of input validation.
type Result struct {
	IsValid  bool    `json:"is_valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

func (r *Result) fail(field string, value float64, format string, args ...any) {
	r.Errors = append(r.Errors, Issue{
		Kind:    InputRangeError,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
		Value:   valuation.Metric(value),
	})
}

func (r *Result) warn(field string, value float64, format string, args ...any) {
	r.Warnings = append(r.Warnings, Issue{
		Kind:    InputWarning,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
		Value:   valuation.Metric(value),
	})
}

// =============================================================================
// FIELD RULES
// =============================================================================

// Bounds is an inclusive [Min, Max] range.
type Bounds struct {
	Min float64
	Max float64
}

func (b Bounds) contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// FieldRule is the hard range of one input and its optional typical range.
type FieldRule struct {
	Field        string
	Hard         Bounds
	MinExclusive bool    // Hard.Min itself is rejected
	Soft         *Bounds // outside it is a warning
	Applies      func(d deal.Assumptions, mode deal.Mode) bool
	Get          func(d deal.Assumptions) float64
}

func financed(d deal.Assumptions, _ deal.Mode) bool { return d.Financing.Enabled }

func syndicated(_ deal.Assumptions, mode deal.Mode) bool { return mode == deal.ModeSyndication }

func soft(min, max float64) *Bounds { return &Bounds{Min: min, Max: max} }

// ratioOf expresses an AmountOrPercent as a fraction of base so percent and
// dollar inputs share one rule.
func ratioOf(v deal.AmountOrPercent, base float64) float64 {
	if v.IsPercent() {
		return v.Value
	}
	if base <= 0 {
		return 0
	}
	return v.Value / base
}

// Rules is the per-field range table, in display order.
var Rules = []FieldRule{
	// acquisition
	{Field: "acquisition.purchase_price", Hard: Bounds{0, 1e11}, MinExclusive: true, Soft: soft(50_000, 5e8),
		Get: func(d deal.Assumptions) float64 { return d.Acquisition.PurchasePrice }},
	{Field: "acquisition.closing_costs", Hard: Bounds{0, 0.25}, Soft: soft(0, 0.06),
		Get: func(d deal.Assumptions) float64 {
			return ratioOf(d.Acquisition.ClosingCosts, d.Acquisition.PurchasePrice)
		}},
	{Field: "acquisition.hold_period_months", Hard: Bounds{1, 360}, Soft: soft(12, 180),
		Get: func(d deal.Assumptions) float64 { return float64(d.Acquisition.HoldPeriodMonths) }},

	// financing
	{Field: "financing.loan_amount", Hard: Bounds{0, 1}, Soft: soft(0, 0.80), Applies: financed,
		Get: func(d deal.Assumptions) float64 {
			return ratioOf(d.Financing.LoanAmount, d.Acquisition.PurchasePrice)
		}},
	{Field: "financing.interest_rate", Hard: Bounds{0, 0.30}, Soft: soft(0.02, 0.12), Applies: financed,
		Get: func(d deal.Assumptions) float64 { return d.Financing.InterestRate }},
	{Field: "financing.amortization_years", Hard: Bounds{1, 50}, Soft: soft(15, 40), Applies: financed,
		Get: func(d deal.Assumptions) float64 { return float64(d.Financing.AmortizationYears) }},
	{Field: "financing.loan_term_years", Hard: Bounds{0, 50}, Applies: financed,
		Get: func(d deal.Assumptions) float64 { return float64(d.Financing.LoanTermYears) }},
	{Field: "financing.interest_only_months", Hard: Bounds{0, 600}, Soft: soft(0, 60), Applies: financed,
		Get: func(d deal.Assumptions) float64 { return float64(d.Financing.InterestOnlyMonths) }},
	{Field: "financing.origination_fee", Hard: Bounds{0, 0.10}, Soft: soft(0, 0.03), Applies: financed,
		Get: func(d deal.Assumptions) float64 {
			return ratioOf(d.Financing.OriginationFee, d.LoanAmount())
		}},

	// operating
	{Field: "operating.unit_count", Hard: Bounds{1, 100_000},
		Get: func(d deal.Assumptions) float64 { return float64(d.Operating.UnitCount) }},
	{Field: "operating.in_place_rent", Hard: Bounds{0, 100_000}, Soft: soft(200, 10_000),
		Get: func(d deal.Assumptions) float64 { return d.Operating.InPlaceRent }},
	{Field: "operating.market_rent", Hard: Bounds{0, 100_000},
		Get: func(d deal.Assumptions) float64 { return d.Operating.MarketRent }},
	{Field: "operating.rent_growth", Hard: Bounds{-0.5, 0.5}, Soft: soft(-0.02, 0.06),
		Get: func(d deal.Assumptions) float64 { return d.Operating.RentGrowth }},
	{Field: "operating.other_income_per_unit", Hard: Bounds{0, 10_000},
		Get: func(d deal.Assumptions) float64 { return d.Operating.OtherIncomePerUnit }},
	{Field: "operating.other_income_growth", Hard: Bounds{-0.5, 0.5}, Soft: soft(-0.02, 0.06),
		Get: func(d deal.Assumptions) float64 { return d.Operating.OtherIncomeGrowth }},
	{Field: "operating.vacancy", Hard: Bounds{0, 1}, Soft: soft(0.02, 0.15),
		Get: func(d deal.Assumptions) float64 { return d.Operating.Vacancy }},
	{Field: "operating.bad_debt", Hard: Bounds{0, 1}, Soft: soft(0, 0.05),
		Get: func(d deal.Assumptions) float64 { return d.Operating.BadDebt }},
	{Field: "operating.expense_growth", Hard: Bounds{-0.5, 0.5}, Soft: soft(0, 0.06),
		Get: func(d deal.Assumptions) float64 { return d.Operating.ExpenseGrowth }},
	{Field: "operating.management_fee_pct", Hard: Bounds{0, 0.25}, Soft: soft(0.02, 0.10),
		Get: func(d deal.Assumptions) float64 { return d.Operating.ManagementFeePct }},
	expenseRule("taxes", func(e deal.Expenses) float64 { return e.Taxes }),
	expenseRule("insurance", func(e deal.Expenses) float64 { return e.Insurance }),
	expenseRule("utilities", func(e deal.Expenses) float64 { return e.Utilities }),
	expenseRule("repairs_maintenance", func(e deal.Expenses) float64 { return e.RepairsMaintenance }),
	expenseRule("payroll", func(e deal.Expenses) float64 { return e.Payroll }),
	expenseRule("admin", func(e deal.Expenses) float64 { return e.Admin }),
	expenseRule("marketing", func(e deal.Expenses) float64 { return e.Marketing }),
	expenseRule("replacement_reserves", func(e deal.Expenses) float64 { return e.ReplacementReserves }),

	// renovation
	{Field: "renovation.budget", Hard: Bounds{0, 1e10},
		Get: func(d deal.Assumptions) float64 { return d.Renovation.Budget }},
	{Field: "renovation.duration_months", Hard: Bounds{0, 120}, Soft: soft(0, 36),
		Get: func(d deal.Assumptions) float64 { return float64(d.Renovation.DurationMonths) }},
	{Field: "renovation.rent_loss_pct", Hard: Bounds{0, 1},
		Get: func(d deal.Assumptions) float64 { return d.Renovation.RentLossPct }},
	{Field: "renovation.lease_up_months", Hard: Bounds{0, 60}, Soft: soft(0, 12),
		Get: func(d deal.Assumptions) float64 { return float64(d.Renovation.LeaseUpMonths) }},

	// exit
	{Field: "exit.cap_rate", Hard: Bounds{0, 0.25}, MinExclusive: true, Soft: soft(0.035, 0.10),
		Get: func(d deal.Assumptions) float64 { return d.Exit.CapRate }},
	{Field: "exit.sale_cost_pct", Hard: Bounds{0, 0.20}, Soft: soft(0, 0.06),
		Get: func(d deal.Assumptions) float64 { return d.Exit.SaleCostPct }},

	// syndication
	{Field: "syndication.lp_capital", Hard: Bounds{0, 1e11}, Applies: syndicated,
		Get: func(d deal.Assumptions) float64 { return d.Syndication.LPCapital }},
	{Field: "syndication.gp_capital", Hard: Bounds{0, 1e11}, Applies: syndicated,
		Get: func(d deal.Assumptions) float64 { return d.Syndication.GPCapital }},
	{Field: "syndication.gp_co_invest_pct", Hard: Bounds{0, 1}, Soft: soft(0, 0.20), Applies: syndicated,
		Get: func(d deal.Assumptions) float64 { return d.Syndication.GPCoInvestPct }},
	{Field: "syndication.pref_rate", Hard: Bounds{0, 0.50}, Soft: soft(0, 0.12), Applies: syndicated,
		Get: func(d deal.Assumptions) float64 { return d.Syndication.PrefRate }},
	{Field: "syndication.catch_up_share", Hard: Bounds{0, 1}, Applies: syndicated,
		Get: func(d deal.Assumptions) float64 { return d.Syndication.CatchUpShare }},
	{Field: "syndication.catch_up_target", Hard: Bounds{0, 0.99}, Applies: syndicated,
		Get: func(d deal.Assumptions) float64 { return d.Syndication.CatchUpTarget }},
	{Field: "syndication.distribution_frequency_months", Hard: Bounds{0, 12}, Applies: syndicated,
		Get: func(d deal.Assumptions) float64 { return float64(d.Syndication.DistributionFrequency) }},
	{Field: "syndication.acquisition_fee_pct", Hard: Bounds{0, 0.10}, Soft: soft(0, 0.03), Applies: syndicated,
		Get: func(d deal.Assumptions) float64 { return d.Syndication.AcquisitionFeePct }},
	{Field: "syndication.asset_management_fee_pct", Hard: Bounds{0, 0.05}, Soft: soft(0, 0.02), Applies: syndicated,
		Get: func(d deal.Assumptions) float64 { return d.Syndication.AssetManagementFeePct }},
}

func expenseRule(name string, get func(deal.Expenses) float64) FieldRule {
	return FieldRule{
		Field: "operating.expenses." + name,
		Hard:  Bounds{0, 1e10},
		Get:   func(d deal.Assumptions) float64 { return get(d.Operating.Expenses) },
	}
}

// Check applies one rule to v.
func (fr FieldRule) Check(r *Result, v float64) {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		r.fail(fr.Field, v, "must be a finite number")
	case !fr.Hard.contains(v) || (fr.MinExclusive && v == fr.Hard.Min):
		lo := "["
		if fr.MinExclusive {
			lo = "("
		}
		r.fail(fr.Field, v, "must be within %s%s, %s]", lo, FormatNumber(fr.Hard.Min), FormatNumber(fr.Hard.Max))
	case fr.Soft != nil && !fr.Soft.contains(v):
		r.warn(fr.Field, v, "outside the typical range [%s, %s]", FormatNumber(fr.Soft.Min), FormatNumber(fr.Soft.Max))
	}
}

// =============================================================================
// INPUT VALIDATION
// =============================================================================

// Validate checks every field against its range, then the cross-field rules.
// Syndication fields are only checked in syndication mode.
func Validate(d deal.Assumptions, mode deal.Mode) Result {
	var r Result
	for _, rule := range Rules {
		if rule.Applies != nil && !rule.Applies(d, mode) {
			continue
		}
		rule.Check(&r, rule.Get(d))
	}

	checkEnums(&r, d, mode)
	if mode == deal.ModeSyndication {
		checkTiers(&r, d.Syndication)
	}
	// Cross-field checks read derived values, so they only run on inputs
	// whose individual fields are sane.
	if len(r.Errors) == 0 {
		checkLinkages(&r, d, mode)
	}

	r.IsValid = len(r.Errors) == 0
	return r
}

func checkEnums(r *Result, d deal.Assumptions, mode deal.Mode) {
	switch d.Operating.ManagementFeeBasis {
	case "", deal.FeeBasisEGI, deal.FeeBasisGPR:
	default:
		r.fail("operating.management_fee_basis", math.NaN(), "unknown basis %q, want egi or gpr", d.Operating.ManagementFeeBasis)
	}
	for _, v := range []deal.AmountOrPercent{d.Acquisition.ClosingCosts, d.Financing.LoanAmount, d.Financing.OriginationFee} {
		switch v.Kind {
		case "", deal.KindAmount, deal.KindPercent:
		default:
			r.fail("amount_or_percent", v.Value, "unknown kind %q", v.Kind)
		}
	}
	if mode == deal.ModeSyndication {
		switch d.Syndication.HurdleBasis {
		case "", deal.HurdleIRR, deal.HurdleMultiple:
		default:
			r.fail("syndication.hurdle_basis", math.NaN(), "unknown basis %q, want irr or multiple", d.Syndication.HurdleBasis)
		}
	}
}

// checkTiers enforces a well-formed promote: shares in [0,1] summing to one,
// hurdles strictly increasing, and exactly one hurdle-less split at the end.
func checkTiers(r *Result, s deal.Syndication) {
	if len(s.Tiers) == 0 {
		r.fail("syndication.tiers", 0, "at least one split tier is required")
		return
	}
	prev := math.Inf(-1)
	for i, t := range s.Tiers {
		field := fmt.Sprintf("syndication.tiers[%d]", i)
		if !finiteAll(t.Hurdle, t.LPShare, t.GPShare) {
			r.fail(field, math.NaN(), "must contain finite numbers")
			continue
		}
		if t.LPShare < 0 || t.LPShare > 1 || t.GPShare < 0 || t.GPShare > 1 {
			r.fail(field, t.LPShare, "shares must be within [0, 1]")
		}
		if sum := t.LPShare + t.GPShare; math.Abs(sum-1) > 1e-9 {
			r.fail(field, sum, "lp_share + gp_share must equal 1")
		}
		last := i == len(s.Tiers)-1
		switch {
		case last && t.Hurdle != 0:
			r.fail(field, t.Hurdle, "the last tier must be a catch-all without a hurdle")
		case !last && t.Hurdle <= 0:
			r.fail(field, t.Hurdle, "only the last tier may omit its hurdle")
		case !last && t.Hurdle <= prev:
			r.fail(field, t.Hurdle, "hurdles must increase from tier to tier")
		}
		if !last {
			prev = t.Hurdle
		}
	}
}

// =============================================================================
// OUTPUT VALIDATION
// =============================================================================

// ValidateOutputs classifies computed metrics. Nothing here blocks a result;
// every finding is advisory.
func ValidateOutputs(m valuation.Metrics) []Issue {
	var out []Issue
	add := func(kind IssueKind, field string, v valuation.Metric, msg string) {
		out = append(out, Issue{Kind: kind, Field: field, Message: msg, Value: v})
	}

	switch {
	case !m.IRR.Valid():
		add(ComputationDegenerate, "irr", m.IRR, "IRR has no real root in the search range")
	case m.IRR > 1:
		add(InputWarning, "irr", m.IRR, "IRR above 100% is unusual; check the inputs")
	}

	if m.HasDebt {
		switch {
		case !m.DSCR.Valid():
			add(ComputationDegenerate, "dscr", m.DSCR, "DSCR is not available")
		case m.DSCR < 1:
			add(InputWarning, "dscr", m.DSCR, "year-one NOI does not cover debt service")
		}
		if m.MinDSCR.Valid() && m.MinDSCR < 1 && !(m.DSCR < 1) {
			add(InputWarning, "min_dscr", m.MinDSCR, "NOI falls short of debt service in a later year")
		}
	}

	switch {
	case !m.EquityMultiple.Valid():
		add(ComputationDegenerate, "equity_multiple", m.EquityMultiple, "equity multiple is not available")
	case m.EquityMultiple < 1:
		add(InputWarning, "equity_multiple", m.EquityMultiple, "investors get back less than they put in")
	}

	if m.BreakevenOccupancy.Valid() && m.BreakevenOccupancy > 0.95 {
		add(InputWarning, "breakeven_occupancy", m.BreakevenOccupancy, "breakeven occupancy leaves almost no margin for vacancy")
	}
	return out
}

func finiteAll(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

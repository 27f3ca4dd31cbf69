// Package deal defines the immutable assumption set for a leveraged
// real-estate acquisition. Every engine run starts from one of these values;
// nothing downstream mutates it.
package deal

import "fmt"

// =============================================================================
// AMOUNT OR PERCENT (Tagged Value)
// =============================================================================

// ValueKind tags an AmountOrPercent
type ValueKind string

const (
	KindAmount  ValueKind = "amount"
	KindPercent ValueKind = "percent"
)

// AmountOrPercent is either an absolute currency amount or a percentage of a
// stated base. It is resolved to dollars once, at the engine boundary.
type AmountOrPercent struct {
	Kind  ValueKind `json:"kind" yaml:"kind"`
	Value float64   `json:"value" yaml:"value"`
}

// Amount builds an absolute-dollar value.
func Amount(v float64) AmountOrPercent {
	return AmountOrPercent{Kind: KindAmount, Value: v}
}

// Percent builds a value expressed as a decimal fraction of some base (0.02 = 2%).
func Percent(v float64) AmountOrPercent {
	return AmountOrPercent{Kind: KindPercent, Value: v}
}

// Resolve converts the value to dollars against base.
// An empty Kind is treated as an amount.
func (a AmountOrPercent) Resolve(base float64) float64 {
	if a.Kind == KindPercent {
		return base * a.Value
	}
	return a.Value
}

// IsPercent reports whether the value is relative to a base.
func (a AmountOrPercent) IsPercent() bool {
	return a.Kind == KindPercent
}

func (a AmountOrPercent) String() string {
	if a.IsPercent() {
		return fmt.Sprintf("%.4g%%", a.Value*100)
	}
	return fmt.Sprintf("$%.2f", a.Value)
}

// =============================================================================
// ASSUMPTION GROUPS
// =============================================================================

// Acquisition holds purchase terms
type Acquisition struct {
	PurchasePrice    float64         `json:"purchase_price" yaml:"purchase_price"`
	ClosingCosts     AmountOrPercent `json:"closing_costs" yaml:"closing_costs"` // % of price
	HoldPeriodMonths int             `json:"hold_period_months" yaml:"hold_period_months"`
}

// Financing holds senior loan terms. Rates are annual decimals.
type Financing struct {
	Enabled            bool            `json:"enabled" yaml:"enabled"`
	LoanAmount         AmountOrPercent `json:"loan_amount" yaml:"loan_amount"` // % of price = LTV
	InterestRate       float64         `json:"interest_rate" yaml:"interest_rate"`
	AmortizationYears  int             `json:"amortization_years" yaml:"amortization_years"`
	LoanTermYears      int             `json:"loan_term_years" yaml:"loan_term_years"` // 0 = same as amortization
	InterestOnlyMonths int             `json:"interest_only_months" yaml:"interest_only_months"`
	OriginationFee     AmountOrPercent `json:"origination_fee" yaml:"origination_fee"` // % of loan
}

// ManagementFeeBasis selects what the property-management fee is charged on
type ManagementFeeBasis string

const (
	FeeBasisEGI ManagementFeeBasis = "egi"
	FeeBasisGPR ManagementFeeBasis = "gpr"
)

// Expenses are annual, whole-property figures before growth.
type Expenses struct {
	Taxes               float64 `json:"taxes" yaml:"taxes"`
	Insurance           float64 `json:"insurance" yaml:"insurance"`
	Utilities           float64 `json:"utilities" yaml:"utilities"`
	RepairsMaintenance  float64 `json:"repairs_maintenance" yaml:"repairs_maintenance"`
	Payroll             float64 `json:"payroll" yaml:"payroll"`
	Admin               float64 `json:"admin" yaml:"admin"`
	Marketing           float64 `json:"marketing" yaml:"marketing"`
	ReplacementReserves float64 `json:"replacement_reserves" yaml:"replacement_reserves"`
}

// AnnualTotal sums every fixed line.
func (e Expenses) AnnualTotal() float64 {
	return e.Taxes + e.Insurance + e.Utilities + e.RepairsMaintenance +
		e.Payroll + e.Admin + e.Marketing + e.ReplacementReserves
}

// Operating holds income and expense drivers. Rents are per unit per month.
type Operating struct {
	UnitCount          int                `json:"unit_count" yaml:"unit_count"`
	InPlaceRent        float64            `json:"in_place_rent" yaml:"in_place_rent"`
	MarketRent         float64            `json:"market_rent" yaml:"market_rent"` // 0 = no premium
	RentGrowth         float64            `json:"rent_growth" yaml:"rent_growth"`
	OtherIncomePerUnit float64            `json:"other_income_per_unit" yaml:"other_income_per_unit"`
	OtherIncomeGrowth  float64            `json:"other_income_growth" yaml:"other_income_growth"`
	Vacancy            float64            `json:"vacancy" yaml:"vacancy"`
	BadDebt            float64            `json:"bad_debt" yaml:"bad_debt"`
	ExpenseGrowth      float64            `json:"expense_growth" yaml:"expense_growth"`
	Expenses           Expenses           `json:"expenses" yaml:"expenses"`
	ManagementFeePct   float64            `json:"management_fee_pct" yaml:"management_fee_pct"`
	ManagementFeeBasis ManagementFeeBasis `json:"management_fee_basis" yaml:"management_fee_basis"`
}

// Renovation describes a value-add program starting at month 1.
type Renovation struct {
	Budget                   float64 `json:"budget" yaml:"budget"`
	DurationMonths           int     `json:"duration_months" yaml:"duration_months"`
	RentLossPct              float64 `json:"rent_loss_pct" yaml:"rent_loss_pct"`
	LeaseUpMonths            int     `json:"lease_up_months" yaml:"lease_up_months"`
	UseMarketRentImmediately bool    `json:"use_market_rent_immediately" yaml:"use_market_rent_immediately"`
}

// Active reports whether a renovation window exists.
func (r Renovation) Active() bool {
	return r.DurationMonths > 0
}

// Exit holds sale assumptions
type Exit struct {
	CapRate     float64 `json:"cap_rate" yaml:"cap_rate"`
	SaleCostPct float64 `json:"sale_cost_pct" yaml:"sale_cost_pct"`
}

// =============================================================================
// SYNDICATION
// =============================================================================

// HurdleBasis selects how split-tier hurdles are measured
type HurdleBasis string

const (
	HurdleIRR      HurdleBasis = "irr"
	HurdleMultiple HurdleBasis = "multiple"
)

// PromoteTier is one profit-split tier. A zero Hurdle marks the final
// catch-all split.
type PromoteTier struct {
	Hurdle  float64 `json:"hurdle" yaml:"hurdle"`
	LPShare float64 `json:"lp_share" yaml:"lp_share"`
	GPShare float64 `json:"gp_share" yaml:"gp_share"`
}

// Syndication configures the LP/GP equity waterfall.
type Syndication struct {
	LPCapital             float64       `json:"lp_capital" yaml:"lp_capital"` // 0 = derive from equity
	GPCapital             float64       `json:"gp_capital" yaml:"gp_capital"`
	GPCoInvestPct         float64       `json:"gp_co_invest_pct" yaml:"gp_co_invest_pct"` // used when capital is derived
	PrefRate              float64       `json:"pref_rate" yaml:"pref_rate"`
	PrefCompounding       bool          `json:"pref_compounding" yaml:"pref_compounding"`
	PrefIncludesGPCapital bool          `json:"pref_includes_gp_capital" yaml:"pref_includes_gp_capital"`
	HurdleBasis           HurdleBasis   `json:"hurdle_basis" yaml:"hurdle_basis"`
	CatchUpShare          float64       `json:"catch_up_share" yaml:"catch_up_share"` // 0 = no catch-up tier
	CatchUpTarget         float64       `json:"catch_up_target" yaml:"catch_up_target"`
	Tiers                 []PromoteTier `json:"tiers" yaml:"tiers"`
	DistributionFrequency int           `json:"distribution_frequency_months" yaml:"distribution_frequency_months"`
	AcquisitionFeePct     float64       `json:"acquisition_fee_pct" yaml:"acquisition_fee_pct"`
	AssetManagementFeePct float64       `json:"asset_management_fee_pct" yaml:"asset_management_fee_pct"`
}

// =============================================================================
// DEAL ASSUMPTIONS
// =============================================================================

// Assumptions is the full input to one engine run.
type Assumptions struct {
	Name        string      `json:"name,omitempty" yaml:"name"`
	Acquisition Acquisition `json:"acquisition" yaml:"acquisition"`
	Financing   Financing   `json:"financing" yaml:"financing"`
	Operating   Operating   `json:"operating" yaml:"operating"`
	Renovation  Renovation  `json:"renovation" yaml:"renovation"`
	Exit        Exit        `json:"exit" yaml:"exit"`
	Syndication Syndication `json:"syndication" yaml:"syndication"`
}

// Mode selects whether the waterfall runs
type Mode string

const (
	ModeSimple      Mode = "simple"
	ModeSyndication Mode = "syndication"
)

// ParseMode maps a user string to a Mode, defaulting to simple.
func ParseMode(s string) Mode {
	if Mode(s) == ModeSyndication {
		return ModeSyndication
	}
	return ModeSimple
}

// Clone returns a deep copy; the tier slice is the only shared reference.
func (a Assumptions) Clone() Assumptions {
	out := a
	if a.Syndication.Tiers != nil {
		out.Syndication.Tiers = append([]PromoteTier(nil), a.Syndication.Tiers...)
	}
	return out
}

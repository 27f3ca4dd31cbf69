// Package waterfall distributes deal cash between limited and general
// partners through return-of-capital, preferred-return, catch-up and
// IRR-hurdled promote tiers, keeping an auditable ledger of every event.
package waterfall

import (
	"deal_underwriting/pkg/core/valuation"
)

// PartyID identifies an equity holder in allocation maps
type PartyID string

const (
	LP PartyID = "lp"
	GP PartyID = "gp"
)

// TierKind is the distribution rule a tier applies
type TierKind string

const (
	TierReturnOfCapital TierKind = "return_of_capital"
	TierPref            TierKind = "pref"
	TierCatchUp         TierKind = "catch_up"
	TierSplit           TierKind = "split"
	TierResidual        TierKind = "residual" // ledger only: cash left after the last tier
)

// HurdleBasis selects how split-tier hurdles are measured
type HurdleBasis string

const (
	HurdleIRR      HurdleBasis = "irr"      // cumulative LP IRR, annualized
	HurdleMultiple HurdleBasis = "multiple" // cumulative LP distributions / LP capital
)

// Tier is one step of the waterfall. HurdleRate bounds a split tier; nil
// marks the final catch-all split.
type Tier struct {
	Index      int      `json:"tier_index"`
	Kind       TierKind `json:"kind"`
	HurdleRate *float64 `json:"hurdle_rate_annual,omitempty"`
	LPShare    float64  `json:"lp_share"`
	GPShare    float64  `json:"gp_share"`
}

// Hurdle is a helper for building split tiers
func Hurdle(rate float64) *float64 {
	return &rate
}

// Config describes the partnership and its tiers
type Config struct {
	LPCapital             float64
	GPCapital             float64
	PrefRate              float64
	PrefCompounding       bool
	PrefIncludesGPCapital bool
	HurdleBasis           HurdleBasis
	CatchUpTarget         float64 // GP share of cumulative profit the catch-up restores
	Tiers                 []Tier
	DistributionFrequency int     // months between operating distributions
	Tolerance             float64 // relative tolerance on a hurdle
	MaxIterations         int     // breakpoint search cap
}

const (
	defaultTolerance     = 1e-6
	defaultMaxIterations = 100

	// dust is the dollar amount below which remaining cash is treated as spent
	dust = 1e-7
)

// PeriodCash is the cash one month makes available to equity
type PeriodCash struct {
	Period    int     `json:"period"`
	Operating float64 `json:"operating"`
	Sale      float64 `json:"sale"`
}

// EventKind tags what produced a distribution
type EventKind string

const (
	EventOperating EventKind = "operating"
	EventSale      EventKind = "sale"
)

// TierAllocation is one tier's share of an event
type TierAllocation struct {
	TierIndex int      `json:"tier_index"`
	Kind      TierKind `json:"kind"`
	LP        float64  `json:"lp"`
	GP        float64  `json:"gp"`
	Total     float64  `json:"total"`
	Converged bool     `json:"converged"`
}

// DistributionEvent is one distribution. Allocations always sum to
// TotalCashAvailable.
type DistributionEvent struct {
	PeriodIndex        int                 `json:"period_index"`
	Kind               EventKind           `json:"kind"`
	TotalCashAvailable float64             `json:"total_cash_available"`
	Allocations        map[PartyID]float64 `json:"allocations"`
	TierBreakdown      []TierAllocation    `json:"tier_breakdown"`
	Shortfall          float64             `json:"shortfall,omitempty"`
	ConvergenceWarning bool                `json:"convergence_warning,omitempty"`
	Notes              []string            `json:"notes,omitempty"`
}

// PartySummary is a holder's cumulative position after the last event
type PartySummary struct {
	Party             PartyID          `json:"party"`
	Contributed       float64          `json:"contributed"`
	Distributed       float64          `json:"distributed"`
	ReturnOfCapital   float64          `json:"return_of_capital"`
	PrefPaid          float64          `json:"pref_paid"`
	Profit            float64          `json:"profit"`
	UnreturnedCapital float64          `json:"unreturned_capital"`
	AccruedPref       float64          `json:"accrued_pref"`
	IRR               valuation.Metric `json:"irr"`
	EquityMultiple    valuation.Metric `json:"equity_multiple"`
}

// Result is the full ledger of a waterfall run
type Result struct {
	Events              []DistributionEvent      `json:"events"`
	Parties             map[PartyID]PartySummary `json:"parties"`
	TotalDistributed    float64                  `json:"total_distributed"`
	TotalShortfall      float64                  `json:"total_shortfall"`
	ConvergenceWarnings int                      `json:"convergence_warnings"`
}

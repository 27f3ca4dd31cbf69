package validate

import (
	"math"

	"deal_underwriting/pkg/core/deal"
	"deal_underwriting/pkg/core/projection"
)

// =============================================================================
// CROSS-FIELD LINKAGE
// =============================================================================

// capitalTolerance is how far LP + GP capital may drift from the equity the
// deal needs before it is flagged
const capitalTolerance = 0.01

// checkLinkages runs the rules that relate fields across groups.
func checkLinkages(r *Result, d deal.Assumptions, mode deal.Mode) {
	hold := d.Acquisition.HoldPeriodMonths

	if d.Financing.Enabled && d.LoanAmount() > 0 {
		term := d.LoanTermMonths()
		io := d.Financing.InterestOnlyMonths
		if io > term {
			r.fail("financing.interest_only_months", float64(io), "interest-only period is longer than the loan term (%d months)", term)
		}
		if term < hold {
			r.warn("financing.loan_term_years", float64(d.Financing.LoanTermYears),
				"loan matures in month %d, before the sale; the balloon is paid from operations", term)
		}
	}

	reno := d.Renovation
	if reno.Active() {
		if reno.DurationMonths+reno.LeaseUpMonths >= hold {
			r.warn("renovation.duration_months", float64(reno.DurationMonths),
				"renovation and lease-up run past the hold; the property never stabilizes")
		}
		if d.Operating.MarketRent > 0 && d.Operating.MarketRent < d.Operating.InPlaceRent {
			r.warn("operating.market_rent", d.Operating.MarketRent, "post-renovation rent is below in-place rent")
		}
		if reno.Budget == 0 {
			r.warn("renovation.budget", 0, "renovation has a duration but no budget")
		}
	}

	if goingIn := GoingInCapRate(d); goingIn > 0 && d.Exit.CapRate < goingIn {
		r.warn("exit.cap_rate", d.Exit.CapRate,
			"exit cap is below the going-in cap of %s; the sale price relies on cap compression", FormatPercent(goingIn))
	}

	if mode == deal.ModeSyndication {
		checkCapital(r, d)
	}
}

// checkCapital compares explicit LP + GP capital with the equity required at
// close. Zero capital means it is derived from the deal and always matches.
func checkCapital(r *Result, d deal.Assumptions) {
	s := d.Syndication
	raised := s.LPCapital + s.GPCapital
	if raised == 0 {
		return
	}
	need := d.RequiredEquity(deal.ModeSyndication)
	if need <= 0 {
		return
	}
	if gap := (raised - need) / need; math.Abs(gap) > capitalTolerance {
		r.warn("syndication.lp_capital", raised,
			"LP + GP capital differs from required equity of %s by %s", FormatCurrency(need), FormatPercent(gap))
	}
	if s.LPCapital == 0 {
		r.warn("syndication.lp_capital", 0, "no LP capital; the waterfall pays the GP only")
	}
}

// GoingInCapRate is year-one in-place NOI over purchase price, ignoring any
// renovation. Zero when it cannot be computed.
func GoingInCapRate(d deal.Assumptions) float64 {
	price := d.Acquisition.PurchasePrice
	if price <= 0 {
		return 0
	}
	months := min(12, d.Acquisition.HoldPeriodMonths)
	s := projection.Build(projection.Input{HoldMonths: months, Operating: d.Operating})
	if s.Len() == 0 {
		return 0
	}
	noi := s.Sum(1, s.Len(), projection.NOI) * 12 / float64(s.Len())
	return noi / price
}

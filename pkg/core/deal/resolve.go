package deal

// Dollar helpers. Each resolves one AmountOrPercent against its documented
// base so callers never branch on Kind themselves.

// ClosingCostAmount is closing costs in dollars (percent of price).
func (a Assumptions) ClosingCostAmount() float64 {
	return a.Acquisition.ClosingCosts.Resolve(a.Acquisition.PurchasePrice)
}

// LoanAmount is the senior loan in dollars (percent of price), zero when
// financing is disabled.
func (a Assumptions) LoanAmount() float64 {
	if !a.Financing.Enabled {
		return 0
	}
	loan := a.Financing.LoanAmount.Resolve(a.Acquisition.PurchasePrice)
	if loan < 0 {
		return 0
	}
	return loan
}

// OriginationFeeAmount is the lender fee in dollars (percent of loan).
func (a Assumptions) OriginationFeeAmount() float64 {
	loan := a.LoanAmount()
	if loan == 0 {
		return 0
	}
	return a.Financing.OriginationFee.Resolve(loan)
}

// AcquisitionFeeAmount is the sponsor fee paid at close, percent of price.
// It only applies to syndicated deals.
func (a Assumptions) AcquisitionFeeAmount(mode Mode) float64 {
	if mode != ModeSyndication {
		return 0
	}
	return a.Acquisition.PurchasePrice * a.Syndication.AcquisitionFeePct
}

// RequiredEquity is the cash the buyers bring at close:
// price + closing + origination + renovation + acquisition fee - loan.
func (a Assumptions) RequiredEquity(mode Mode) float64 {
	return a.Acquisition.PurchasePrice +
		a.ClosingCostAmount() +
		a.OriginationFeeAmount() +
		a.Renovation.Budget +
		a.AcquisitionFeeAmount(mode) -
		a.LoanAmount()
}

// LoanTermMonths is the contractual term, defaulting to the amortization.
func (a Assumptions) LoanTermMonths() int {
	if a.Financing.LoanTermYears > 0 {
		return a.Financing.LoanTermYears * 12
	}
	return a.Financing.AmortizationYears * 12
}

package engine

import "deal_underwriting/pkg/core/deal"

// Resolved is the deal in plain dollars. Every AmountOrPercent is settled
// here and nowhere else.
type Resolved struct {
	PurchasePrice    float64 `json:"purchase_price"`
	ClosingCosts     float64 `json:"closing_costs"`
	LoanAmount       float64 `json:"loan_amount"`
	OriginationFee   float64 `json:"origination_fee"`
	RenovationBudget float64 `json:"renovation_budget"`
	AcquisitionFee   float64 `json:"acquisition_fee"`
	InitialEquity    float64 `json:"initial_equity"`
	HoldMonths       int     `json:"hold_months"`
	LPCapital        float64 `json:"lp_capital"`
	GPCapital        float64 `json:"gp_capital"`
}

func resolve(d deal.Assumptions, mode deal.Mode) Resolved {
	r := Resolved{
		PurchasePrice:    d.Acquisition.PurchasePrice,
		ClosingCosts:     d.ClosingCostAmount(),
		LoanAmount:       d.LoanAmount(),
		OriginationFee:   d.OriginationFeeAmount(),
		RenovationBudget: d.Renovation.Budget,
		AcquisitionFee:   d.AcquisitionFeeAmount(mode),
		InitialEquity:    d.RequiredEquity(mode),
		HoldMonths:       d.Acquisition.HoldPeriodMonths,
	}
	if mode != deal.ModeSyndication {
		return r
	}

	s := d.Syndication
	if s.LPCapital == 0 && s.GPCapital == 0 {
		// Split the required equity by the GP's co-invest percentage.
		r.GPCapital = r.InitialEquity * s.GPCoInvestPct
		r.LPCapital = r.InitialEquity - r.GPCapital
	} else {
		r.LPCapital = s.LPCapital
		r.GPCapital = s.GPCapital
	}
	return r
}

package deal

// Defaults returns the baseline deal used to fill missing fields.
// 10 units at $1,200/month, 75% LTV at 7% on a 30-year amortization,
// five-year hold, 5.5% exit cap.
func Defaults() Assumptions {
	return Assumptions{
		Acquisition: Acquisition{
			PurchasePrice:    1_000_000,
			ClosingCosts:     Percent(0.02),
			HoldPeriodMonths: 60,
		},
		Financing: Financing{
			Enabled:           true,
			LoanAmount:        Percent(0.75),
			InterestRate:      0.07,
			AmortizationYears: 30,
			LoanTermYears:     0,
			OriginationFee:    Percent(0.01),
		},
		Operating: Operating{
			UnitCount:          10,
			InPlaceRent:        1_200,
			RentGrowth:         0.03,
			Vacancy:            0.05,
			BadDebt:            0.01,
			ExpenseGrowth:      0.03,
			ManagementFeePct:   0.06,
			ManagementFeeBasis: FeeBasisEGI,
			Expenses: Expenses{
				Taxes:               12_000,
				Insurance:           4_500,
				Utilities:           6_000,
				RepairsMaintenance:  5_000,
				Payroll:             0,
				Admin:               1_500,
				Marketing:           500,
				ReplacementReserves: 2_500,
			},
		},
		Exit: Exit{
			CapRate:     0.055,
			SaleCostPct: 0.03,
		},
		Syndication: DefaultSyndication(),
	}
}

// DefaultSyndication is an 8% compounding pref with a 12%/18% IRR promote.
func DefaultSyndication() Syndication {
	return Syndication{
		GPCoInvestPct:         0.10,
		PrefRate:              0.08,
		PrefCompounding:       true,
		PrefIncludesGPCapital: true,
		HurdleBasis:           HurdleIRR,
		Tiers: []PromoteTier{
			{Hurdle: 0.12, LPShare: 0.70, GPShare: 0.30},
			{Hurdle: 0.18, LPShare: 0.60, GPShare: 0.40},
			{LPShare: 0.50, GPShare: 0.50},
		},
		DistributionFrequency: 1,
	}
}

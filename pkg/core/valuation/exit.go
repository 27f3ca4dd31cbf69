package valuation

// ExitInput parameters for a sale at the end of the hold
type ExitInput struct {
	StabilizedNOI float64 // annualized
	CapRate       float64
	SaleCostPct   float64
	LoanPayoff    float64 // balance outstanding at the terminal month
}

// ExitResult holds the sale waterfall from gross price to equity
type ExitResult struct {
	StabilizedNOI  float64 `json:"stabilized_noi"`
	CapRate        float64 `json:"cap_rate"`
	GrossSalePrice float64 `json:"gross_sale_price"`
	SaleCosts      float64 `json:"sale_costs"`
	LoanPayoff     float64 `json:"loan_payoff"`
	NetProceeds    float64 `json:"net_proceeds"`
	Degenerate     bool    `json:"degenerate,omitempty"`
}

// GrossSalePrice capitalizes annual NOI at the exit cap rate.
// A non-positive cap rate yields zero; validation rejects it upstream.
func GrossSalePrice(noi, capRate float64) float64 {
	if capRate <= 0 {
		return 0
	}
	return noi / capRate
}

// CalculateExit values the sale and nets out costs and the loan payoff
func CalculateExit(input ExitInput) ExitResult {
	res := ExitResult{
		StabilizedNOI: input.StabilizedNOI,
		CapRate:       input.CapRate,
		LoanPayoff:    input.LoanPayoff,
	}
	if input.CapRate <= 0 {
		res.Degenerate = true
		res.NetProceeds = -input.LoanPayoff
		return res
	}

	res.GrossSalePrice = GrossSalePrice(input.StabilizedNOI, input.CapRate)
	res.SaleCosts = res.GrossSalePrice * input.SaleCostPct
	res.NetProceeds = res.GrossSalePrice - res.SaleCosts - input.LoanPayoff
	return res
}

package sharelink

import (
	"net/url"
	"slices"
	"strconv"
	"strings"

	"deal_underwriting/pkg/core/deal"
)

// setter applies one raw value; false means the value was unusable and the
// default stays in place
type setter func(d *deal.Assumptions, raw string) bool

func floatField(get func(d *deal.Assumptions) *float64) setter {
	return func(d *deal.Assumptions, raw string) bool {
		f, ok := parseFloat(raw)
		if ok {
			*get(d) = f
		}
		return ok
	}
}

func intField(get func(d *deal.Assumptions) *int) setter {
	return func(d *deal.Assumptions, raw string) bool {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			// tolerate "60.0"
			f, ok := parseFloat(raw)
			if !ok || f != float64(int(f)) {
				return false
			}
			n = int(f)
		}
		*get(d) = n
		return true
	}
}

func boolField(get func(d *deal.Assumptions) *bool) setter {
	return func(d *deal.Assumptions, raw string) bool {
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return false
		}
		*get(d) = b
		return true
	}
}

func aopField(get func(d *deal.Assumptions) *deal.AmountOrPercent) setter {
	return func(d *deal.Assumptions, raw string) bool {
		raw = strings.TrimSpace(raw)
		percent := strings.HasSuffix(raw, "p")
		f, ok := parseFloat(strings.TrimSuffix(raw, "p"))
		if !ok {
			return false
		}
		if percent {
			*get(d) = deal.Percent(f)
		} else {
			*get(d) = deal.Amount(f)
		}
		return true
	}
}

func parseTiers(d *deal.Assumptions, raw string) bool {
	if strings.TrimSpace(raw) == "" {
		d.Syndication.Tiers = nil
		return true
	}
	var out []deal.PromoteTier
	for _, part := range strings.Split(raw, ",") {
		f := strings.Split(part, ":")
		if len(f) != 3 {
			return false
		}
		h, ok1 := parseFloat(f[0])
		lp, ok2 := parseFloat(f[1])
		gp, ok3 := parseFloat(f[2])
		if !ok1 || !ok2 || !ok3 {
			return false
		}
		out = append(out, deal.PromoteTier{Hurdle: h, LPShare: lp, GPShare: gp})
	}
	d.Syndication.Tiers = out
	return true
}

var fields = map[string]setter{
	"n": func(d *deal.Assumptions, raw string) bool { d.Name = raw; return true },

	"pp": floatField(func(d *deal.Assumptions) *float64 { return &d.Acquisition.PurchasePrice }),
	"cc": aopField(func(d *deal.Assumptions) *deal.AmountOrPercent { return &d.Acquisition.ClosingCosts }),
	"hp": intField(func(d *deal.Assumptions) *int { return &d.Acquisition.HoldPeriodMonths }),

	"fe":  boolField(func(d *deal.Assumptions) *bool { return &d.Financing.Enabled }),
	"ltv": aopField(func(d *deal.Assumptions) *deal.AmountOrPercent { return &d.Financing.LoanAmount }),
	"ir":  floatField(func(d *deal.Assumptions) *float64 { return &d.Financing.InterestRate }),
	"am":  intField(func(d *deal.Assumptions) *int { return &d.Financing.AmortizationYears }),
	"lt":  intField(func(d *deal.Assumptions) *int { return &d.Financing.LoanTermYears }),
	"io":  intField(func(d *deal.Assumptions) *int { return &d.Financing.InterestOnlyMonths }),
	"of":  aopField(func(d *deal.Assumptions) *deal.AmountOrPercent { return &d.Financing.OriginationFee }),

	"un":  intField(func(d *deal.Assumptions) *int { return &d.Operating.UnitCount }),
	"ipr": floatField(func(d *deal.Assumptions) *float64 { return &d.Operating.InPlaceRent }),
	"mr":  floatField(func(d *deal.Assumptions) *float64 { return &d.Operating.MarketRent }),
	"rg":  floatField(func(d *deal.Assumptions) *float64 { return &d.Operating.RentGrowth }),
	"oi":  floatField(func(d *deal.Assumptions) *float64 { return &d.Operating.OtherIncomePerUnit }),
	"oig": floatField(func(d *deal.Assumptions) *float64 { return &d.Operating.OtherIncomeGrowth }),
	"vac": floatField(func(d *deal.Assumptions) *float64 { return &d.Operating.Vacancy }),
	"bd":  floatField(func(d *deal.Assumptions) *float64 { return &d.Operating.BadDebt }),
	"eg":  floatField(func(d *deal.Assumptions) *float64 { return &d.Operating.ExpenseGrowth }),
	"tx":  floatField(func(d *deal.Assumptions) *float64 { return &d.Operating.Expenses.Taxes }),
	"ins": floatField(func(d *deal.Assumptions) *float64 { return &d.Operating.Expenses.Insurance }),
	"utl": floatField(func(d *deal.Assumptions) *float64 { return &d.Operating.Expenses.Utilities }),
	"rm":  floatField(func(d *deal.Assumptions) *float64 { return &d.Operating.Expenses.RepairsMaintenance }),
	"pr":  floatField(func(d *deal.Assumptions) *float64 { return &d.Operating.Expenses.Payroll }),
	"adm": floatField(func(d *deal.Assumptions) *float64 { return &d.Operating.Expenses.Admin }),
	"mkt": floatField(func(d *deal.Assumptions) *float64 { return &d.Operating.Expenses.Marketing }),
	"rr":  floatField(func(d *deal.Assumptions) *float64 { return &d.Operating.Expenses.ReplacementReserves }),
	"mf":  floatField(func(d *deal.Assumptions) *float64 { return &d.Operating.ManagementFeePct }),
	"mfb": func(d *deal.Assumptions, raw string) bool {
		switch b := deal.ManagementFeeBasis(raw); b {
		case "", deal.FeeBasisEGI, deal.FeeBasisGPR:
			d.Operating.ManagementFeeBasis = b
			return true
		}
		return false
	},

	"rb":  floatField(func(d *deal.Assumptions) *float64 { return &d.Renovation.Budget }),
	"rd":  intField(func(d *deal.Assumptions) *int { return &d.Renovation.DurationMonths }),
	"rl":  floatField(func(d *deal.Assumptions) *float64 { return &d.Renovation.RentLossPct }),
	"lu":  intField(func(d *deal.Assumptions) *int { return &d.Renovation.LeaseUpMonths }),
	"rmi": boolField(func(d *deal.Assumptions) *bool { return &d.Renovation.UseMarketRentImmediately }),

	"ec": floatField(func(d *deal.Assumptions) *float64 { return &d.Exit.CapRate }),
	"sc": floatField(func(d *deal.Assumptions) *float64 { return &d.Exit.SaleCostPct }),

	"lpc":  floatField(func(d *deal.Assumptions) *float64 { return &d.Syndication.LPCapital }),
	"gpc":  floatField(func(d *deal.Assumptions) *float64 { return &d.Syndication.GPCapital }),
	"gpi":  floatField(func(d *deal.Assumptions) *float64 { return &d.Syndication.GPCoInvestPct }),
	"pref": floatField(func(d *deal.Assumptions) *float64 { return &d.Syndication.PrefRate }),
	"pc":   boolField(func(d *deal.Assumptions) *bool { return &d.Syndication.PrefCompounding }),
	"pgp":  boolField(func(d *deal.Assumptions) *bool { return &d.Syndication.PrefIncludesGPCapital }),
	"hb": func(d *deal.Assumptions, raw string) bool {
		switch b := deal.HurdleBasis(raw); b {
		case "", deal.HurdleIRR, deal.HurdleMultiple:
			d.Syndication.HurdleBasis = b
			return true
		}
		return false
	},
	"cus": floatField(func(d *deal.Assumptions) *float64 { return &d.Syndication.CatchUpShare }),
	"cut": floatField(func(d *deal.Assumptions) *float64 { return &d.Syndication.CatchUpTarget }),
	"t":   parseTiers,
	"df":  intField(func(d *deal.Assumptions) *int { return &d.Syndication.DistributionFrequency }),
	"af":  floatField(func(d *deal.Assumptions) *float64 { return &d.Syndication.AcquisitionFeePct }),
	"amf": floatField(func(d *deal.Assumptions) *float64 { return &d.Syndication.AssetManagementFeePct }),
}

// Keys lists every short key Decode understands.
func Keys() []string {
	out := make([]string, 0, len(fields))
	for k := range fields {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Decode rebuilds a deal from a query string, with or without a leading
// "?". Unknown keys are ignored. The second return lists keys whose values
// could not be used and were left at their defaults.
func Decode(raw string) (deal.Assumptions, []string) {
	d := deal.Defaults()
	// ParseQuery keeps every pair it could read even when it reports an error.
	values, _ := url.ParseQuery(strings.TrimPrefix(raw, "?"))

	var rejected []string
	for key, set := range fields {
		vals, ok := values[key]
		if !ok || len(vals) == 0 {
			continue
		}
		if !set(&d, vals[0]) {
			rejected = append(rejected, key)
		}
	}
	slices.Sort(rejected)
	return d, rejected
}

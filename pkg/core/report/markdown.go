// Package report renders engine results as a Markdown summary, and as HTML
// through goldmark. Metrics that could not be computed print as n/a.
package report

import (
	"fmt"
	"sort"
	"strings"

	"deal_underwriting/pkg/core/deal"
	"deal_underwriting/pkg/core/engine"
	"deal_underwriting/pkg/core/validate"
	"deal_underwriting/pkg/core/valuation"
	"deal_underwriting/pkg/core/waterfall"
)

var (
	money    = validate.FormatCurrency
	pct      = validate.FormatPercent
	multiple = validate.FormatMultiple
	ratio    = validate.FormatRatio
)

func metric(m valuation.Metric, format func(float64) string) string {
	if !m.Valid() {
		return validate.NotAvailable
	}
	return format(m.Float())
}

// table writes a pipe table. Cells must already be escaped.
func table(b *strings.Builder, header []string, rows [][]string) {
	b.WriteString("| " + strings.Join(header, " | ") + " |\n")
	sep := make([]string, len(header))
	for i := range sep {
		if i == 0 {
			sep[i] = "---"
		} else {
			sep[i] = "---:"
		}
	}
	b.WriteString("| " + strings.Join(sep, " | ") + " |\n")
	for _, r := range rows {
		b.WriteString("| " + strings.Join(r, " | ") + " |\n")
	}
	b.WriteString("\n")
}

func escape(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}

// Markdown renders res. name titles the report; empty means untitled.
func Markdown(name string, res *engine.Results) string {
	var b strings.Builder
	if name == "" {
		name = "Untitled deal"
	}
	fmt.Fprintf(&b, "# %s\n\n", escape(name))
	fmt.Fprintf(&b, "Mode: **%s**, hold %d months\n\n", res.Mode, res.Inputs.HoldMonths)

	in := res.Inputs
	b.WriteString("## Sources and uses\n\n")
	uses := [][]string{
		{"Purchase price", money(in.PurchasePrice)},
		{"Closing costs", money(in.ClosingCosts)},
		{"Origination fee", money(in.OriginationFee)},
		{"Renovation budget", money(in.RenovationBudget)},
	}
	if in.AcquisitionFee > 0 {
		uses = append(uses, []string{"Acquisition fee", money(in.AcquisitionFee)})
	}
	uses = append(uses,
		[]string{"Loan", money(in.LoanAmount)},
		[]string{"**Equity required**", "**" + money(in.InitialEquity) + "**"},
	)
	table(&b, []string{"Item", "Amount"}, uses)

	m := res.Metrics
	b.WriteString("## Returns\n\n")
	returns := [][]string{
		{"IRR", metric(m.IRR, pct)},
		{"Equity multiple", metric(m.EquityMultiple, multiple)},
		{"Cash on cash, year 1", metric(m.CashOnCashYear1, pct)},
		{"Average cash on cash", metric(m.AverageCashOnCash, pct)},
		{"Total profit", money(m.TotalProfit)},
		{"Payback", payback(m.PaybackMonth)},
	}
	if m.NPV.Valid() {
		returns = append(returns, []string{"NPV", money(m.NPV.Float())})
	}
	table(&b, []string{"Metric", "Value"}, returns)

	b.WriteString("## Risk\n\n")
	risk := [][]string{
		{"Going-in cap rate", metric(m.GoingInCapRate, pct)},
		{"Breakeven occupancy", metric(m.BreakevenOccupancy, pct)},
	}
	if m.HasDebt {
		risk = append(risk,
			[]string{"DSCR, year 1", metric(m.DSCR, ratio)},
			[]string{"Minimum DSCR", metric(m.MinDSCR, ratio)},
			[]string{"Debt yield", metric(m.DebtYield, pct)},
		)
	} else {
		risk = append(risk, []string{"DSCR", validate.NotAvailable + " (unlevered)"})
	}
	table(&b, []string{"Metric", "Value"}, risk)

	ex := res.Exit
	b.WriteString("## Exit\n\n")
	table(&b, []string{"Item", "Amount"}, [][]string{
		{"Stabilized NOI", money(ex.StabilizedNOI)},
		{"Exit cap rate", pct(ex.CapRate)},
		{"Gross sale price", money(ex.GrossSalePrice)},
		{"Sale costs", money(ex.SaleCosts)},
		{"Loan payoff", money(ex.LoanPayoff)},
		{"Net proceeds", money(ex.NetProceeds)},
	})

	b.WriteString("## Annual cash flow\n\n")
	var years [][]string
	for _, a := range res.Annual {
		label := fmt.Sprintf("%d", a.Year)
		if a.Months < 12 {
			label += fmt.Sprintf(" (%d mo)", a.Months)
		}
		years = append(years, []string{
			label,
			money(a.EffectiveGrossIncome),
			money(a.OperatingExpenses),
			money(a.NOI),
			money(a.DebtService),
			money(a.CashFlowBeforeTax),
		})
	}
	table(&b, []string{"Year", "EGI", "OpEx", "NOI", "Debt service", "Cash flow"}, years)

	if res.Mode == deal.ModeSyndication && len(res.PartySummaries) > 0 {
		writePartners(&b, res)
	}

	if len(res.Warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, w := range res.Warnings {
			fmt.Fprintf(&b, "- `%s` %s\n", w.Field, escape(w.Message))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func writePartners(b *strings.Builder, res *engine.Results) {
	b.WriteString("## Partners\n\n")
	ids := make([]string, 0, len(res.PartySummaries))
	for id := range res.PartySummaries {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)

	var rows [][]string
	for _, id := range ids {
		p := res.PartySummaries[waterfall.PartyID(id)]
		rows = append(rows, []string{
			strings.ToUpper(id),
			money(p.Contributed),
			money(p.Distributed),
			money(p.Profit),
			metric(p.IRR, pct),
			metric(p.EquityMultiple, multiple),
		})
	}
	table(b, []string{"Party", "Contributed", "Distributed", "Profit", "IRR", "Multiple"}, rows)

	if f := res.Fees; f != nil && (f.AcquisitionFee > 0 || f.AssetManagementTotal > 0) {
		fmt.Fprintf(b, "Sponsor fees outside the waterfall: acquisition %s, asset management %s over the hold.\n\n",
			money(f.AcquisitionFee), money(f.AssetManagementTotal))
	}
}

func payback(month int) string {
	if month <= 0 {
		return "not within hold"
	}
	return fmt.Sprintf("month %d", month)
}

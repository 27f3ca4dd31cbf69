package projection

import "iter"

// Phase labels where a month sits in the business plan
type Phase string

const (
	PhaseRenovation Phase = "renovation"
	PhaseLeaseUp    Phase = "lease_up"
	PhaseStabilized Phase = "stabilized"
)

// MonthlyRecord is one month of property operations. Records are values;
// a Series never hands out pointers into its backing slice.
type MonthlyRecord struct {
	MonthIndex           int     `json:"month_index"`
	Year                 int     `json:"year"`
	Phase                Phase   `json:"phase"`
	GrossPotentialRent   float64 `json:"gross_potential_rent"`
	VacancyLoss          float64 `json:"vacancy_loss"`
	CreditLoss           float64 `json:"credit_loss"`
	OtherIncome          float64 `json:"other_income"`
	EffectiveGrossIncome float64 `json:"effective_gross_income"`
	FixedExpenses        float64 `json:"fixed_expenses"`
	ManagementFee        float64 `json:"management_fee"`
	OperatingExpenses    float64 `json:"operating_expenses"`
	NOI                  float64 `json:"noi"`
	DebtService          float64 `json:"debt_service"`
	CashFlowBeforeTax    float64 `json:"cash_flow_before_tax"`
}

// Series is the ordered, finite month-by-month projection of one run.
type Series struct {
	records []MonthlyRecord
}

// Len is the number of months in the hold.
func (s Series) Len() int {
	return len(s.records)
}

// At returns the record for month (1-based). ok is false outside the hold.
func (s Series) At(month int) (MonthlyRecord, bool) {
	if month < 1 || month > len(s.records) {
		return MonthlyRecord{}, false
	}
	return s.records[month-1], true
}

// Records returns a copy of every record in month order.
func (s Series) Records() []MonthlyRecord {
	out := make([]MonthlyRecord, len(s.records))
	copy(out, s.records)
	return out
}

// All yields (month, record) pairs in order.
func (s Series) All() iter.Seq2[int, MonthlyRecord] {
	return func(yield func(int, MonthlyRecord) bool) {
		for _, r := range s.records {
			if !yield(r.MonthIndex, r) {
				return
			}
		}
	}
}

// WithDebtService returns a new Series whose debt service and cash flow
// before tax are filled from ds(month). The receiver is left untouched.
func (s Series) WithDebtService(ds func(month int) float64) Series {
	out := make([]MonthlyRecord, len(s.records))
	for i, r := range s.records {
		r.DebtService = ds(r.MonthIndex)
		r.CashFlowBeforeTax = r.NOI - r.DebtService
		out[i] = r
	}
	return Series{records: out}
}

// Sum totals field over months [from, to], clamped to the hold.
func (s Series) Sum(from, to int, field func(MonthlyRecord) float64) float64 {
	if from < 1 {
		from = 1
	}
	if to > len(s.records) {
		to = len(s.records)
	}
	total := 0.0
	for m := from; m <= to; m++ {
		total += field(s.records[m-1])
	}
	return total
}

// TrailingAnnualNOI annualizes the last twelve months of NOI. Holds shorter
// than a year annualize the average month.
func (s Series) TrailingAnnualNOI() float64 {
	n := len(s.records)
	if n == 0 {
		return 0
	}
	if n < 12 {
		return s.Sum(1, n, NOI) / float64(n) * 12
	}
	return s.Sum(n-11, n, NOI)
}

// Field accessors for Sum
func NOI(r MonthlyRecord) float64                  { return r.NOI }
func CashFlow(r MonthlyRecord) float64             { return r.CashFlowBeforeTax }
func DebtService(r MonthlyRecord) float64          { return r.DebtService }
func GrossPotentialRent(r MonthlyRecord) float64   { return r.GrossPotentialRent }
func EffectiveGrossIncome(r MonthlyRecord) float64 { return r.EffectiveGrossIncome }
func FixedExpenses(r MonthlyRecord) float64        { return r.FixedExpenses }
func OperatingExpenses(r MonthlyRecord) float64    { return r.OperatingExpenses }

// AnnualSummary rolls twelve months into one row
type AnnualSummary struct {
	Year                 int     `json:"year"`
	Months               int     `json:"months"`
	GrossPotentialRent   float64 `json:"gross_potential_rent"`
	EffectiveGrossIncome float64 `json:"effective_gross_income"`
	OperatingExpenses    float64 `json:"operating_expenses"`
	NOI                  float64 `json:"noi"`
	DebtService          float64 `json:"debt_service"`
	CashFlowBeforeTax    float64 `json:"cash_flow_before_tax"`
}

// Annual rolls the series up by hold year; a trailing partial year is kept.
func (s Series) Annual() []AnnualSummary {
	var out []AnnualSummary
	for _, r := range s.records {
		idx := r.Year - 1
		for len(out) <= idx {
			out = append(out, AnnualSummary{Year: len(out) + 1})
		}
		a := &out[idx]
		a.Months++
		a.GrossPotentialRent += r.GrossPotentialRent
		a.EffectiveGrossIncome += r.EffectiveGrossIncome
		a.OperatingExpenses += r.OperatingExpenses
		a.NOI += r.NOI
		a.DebtService += r.DebtService
		a.CashFlowBeforeTax += r.CashFlowBeforeTax
	}
	return out
}

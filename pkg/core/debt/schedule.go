// Package debt builds monthly amortization schedules for senior acquisition
// loans: interest-only lead-in, level-payment amortization, and an early
// balloon when the loan term is shorter than the amortization period.
package debt

import (
	"math"
)

// balanceEpsilon absorbs floating residue on the final amortizing payment.
const balanceEpsilon = 1e-6

// Terms describes one loan. Rate is an annual decimal.
type Terms struct {
	Principal          float64
	AnnualRate         float64
	AmortizationMonths int
	TermMonths         int // 0 = interest-only months + amortization months
	InterestOnlyMonths int
}

// AmortizationEntry is one month of the schedule.
type AmortizationEntry struct {
	MonthIndex       int     `json:"month_index"`
	BeginningBalance float64 `json:"beginning_balance"`
	Payment          float64 `json:"payment"`
	InterestPaid     float64 `json:"interest_paid"`
	PrincipalPaid    float64 `json:"principal_paid"`
	EndingBalance    float64 `json:"ending_balance"`
	InterestOnly     bool    `json:"interest_only"`
}

// Schedule is the full loan life. An empty schedule means no debt.
type Schedule struct {
	LoanAmount        float64             `json:"loan_amount"`
	Entries           []AmortizationEntry `json:"entries"`
	MaturityMonth     int                 `json:"maturity_month"`
	BalloonBalance    float64             `json:"balloon_balance"`
	AmortizingPayment float64             `json:"amortizing_payment"`
}

// BuildSchedule amortizes the loan month by month.
func BuildSchedule(t Terms) Schedule {
	if t.Principal <= 0 {
		return Schedule{}
	}

	io := t.InterestOnlyMonths
	if io < 0 {
		io = 0
	}
	amort := t.AmortizationMonths
	if amort < 0 {
		amort = 0
	}
	fullLife := io + amort
	if fullLife == 0 {
		// Nothing to amortize over; the whole principal is due after one IO month.
		io, fullLife = 1, 1
	}
	term := t.TermMonths
	if term <= 0 || term > fullLife {
		term = fullLife
	}

	r := t.AnnualRate / 12
	sched := Schedule{
		LoanAmount:    t.Principal,
		Entries:       make([]AmortizationEntry, 0, term),
		MaturityMonth: term,
	}

	balance := t.Principal
	level := 0.0
	for m := 1; m <= term; m++ {
		e := AmortizationEntry{MonthIndex: m, BeginningBalance: balance}
		interest := balance * r

		switch {
		case m <= io:
			e.InterestOnly = true
			e.InterestPaid = interest
			e.Payment = interest
		default:
			remaining := fullLife - m + 1
			if level == 0 {
				level = LevelPayment(balance, t.AnnualRate, remaining)
				sched.AmortizingPayment = level
			}
			payment := level
			if r == 0 {
				payment = balance / float64(remaining)
			}
			principal := payment - interest
			if m == fullLife || principal > balance {
				principal = balance
				payment = interest + principal
			}
			e.InterestPaid = interest
			e.PrincipalPaid = principal
			e.Payment = payment
		}

		balance -= e.PrincipalPaid
		if math.Abs(balance) < balanceEpsilon {
			balance = 0
		}
		e.EndingBalance = balance
		sched.Entries = append(sched.Entries, e)
	}

	if term < fullLife {
		sched.BalloonBalance = balance
	}
	return sched
}

// LevelPayment is the constant monthly payment that retires principal over
// months at the annual rate. A zero rate degrades to straight-line.
func LevelPayment(principal, annualRate float64, months int) float64 {
	if months <= 0 {
		return principal
	}
	r := annualRate / 12
	if r == 0 {
		return principal / float64(months)
	}
	return principal * r / (1 - math.Pow(1+r, -float64(months)))
}

// HasDebt reports whether the schedule carries a loan.
func (s Schedule) HasDebt() bool {
	return len(s.Entries) > 0
}

// PaymentAt returns the scheduled payment for month (1-based), excluding any balloon.
func (s Schedule) PaymentAt(month int) float64 {
	if month < 1 || month > len(s.Entries) {
		return 0
	}
	return s.Entries[month-1].Payment
}

// BalanceAt returns the balance outstanding after month. Month 0 is the
// funded amount; months past maturity are zero because the balloon was paid.
func (s Schedule) BalanceAt(month int) float64 {
	if !s.HasDebt() {
		return 0
	}
	if month <= 0 {
		return s.LoanAmount
	}
	if month > len(s.Entries) {
		return 0
	}
	return s.Entries[month-1].EndingBalance
}

// DebtServiceAt is the cash paid to the lender in month of a hold that ends
// at holdMonths. A balloon falling before the hold ends is paid from
// operations; one falling on the final month is settled from sale proceeds.
func (s Schedule) DebtServiceAt(month, holdMonths int) float64 {
	ds := s.PaymentAt(month)
	if s.BalloonBalance > 0 && month == s.MaturityMonth && month < holdMonths {
		ds += s.BalloonBalance
	}
	return ds
}

// AnnualDebtService sums scheduled payments for loan year (1-based).
func (s Schedule) AnnualDebtService(year int) float64 {
	return s.PaymentsBetween((year-1)*12+1, year*12)
}

// PaymentsBetween sums scheduled payments over months [from, to].
func (s Schedule) PaymentsBetween(from, to int) float64 {
	total := 0.0
	for m := from; m <= to; m++ {
		total += s.PaymentAt(m)
	}
	return total
}

// TotalInterest sums interest over the schedule.
func (s Schedule) TotalInterest() float64 {
	total := 0.0
	for _, e := range s.Entries {
		total += e.InterestPaid
	}
	return total
}

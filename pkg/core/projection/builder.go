// Package projection expands static deal assumptions into a month-indexed
// operating cash-flow series.
package projection

import (
	"math"

	"deal_underwriting/pkg/core/deal"
)

// Input carries the assumption groups the projection reads.
type Input struct {
	HoldMonths int
	Operating  deal.Operating
	Renovation deal.Renovation
}

// monthState is the per-month driver snapshot folded into a record
type monthState struct {
	month     int
	year      int
	phase     Phase
	rent      float64 // per unit, after renovation loss or lease-up weighting
	occupancy float64 // scales other income alongside rent
}

// Build projects every month of the hold. The result depends only on in.
func Build(in Input) Series {
	if in.HoldMonths <= 0 {
		return Series{}
	}

	records := make([]MonthlyRecord, 0, in.HoldMonths)
	for m := 1; m <= in.HoldMonths; m++ {
		st := stateFor(in, m)
		records = append(records, project(in.Operating, st))
	}
	return Series{records: records}
}

// stateFor resolves the rent phase for month m.
// Renovation months lose RentLossPct of in-place rent. Lease-up months carry
// stabilized rent weighted by a leased fraction of k/L (k = 0..L-1), so the
// first lease-up month is fully dark.
func stateFor(in Input, m int) monthState {
	op := in.Operating
	reno := in.Renovation
	year := (m-1)/12 + 1
	growth := math.Pow(1+op.RentGrowth, float64(year-1))

	inPlace := op.InPlaceRent * growth
	stabilized := inPlace
	if reno.Active() && op.MarketRent > 0 {
		stabilized = op.MarketRent * growth
	}

	st := monthState{month: m, year: year, phase: PhaseStabilized, rent: stabilized, occupancy: 1}
	if !reno.Active() {
		st.rent = inPlace
		return st
	}

	d := reno.DurationMonths
	l := reno.LeaseUpMonths
	if reno.UseMarketRentImmediately || l < 0 {
		l = 0
	}

	switch {
	case m <= d:
		st.phase = PhaseRenovation
		st.occupancy = 1 - reno.RentLossPct
		st.rent = inPlace * st.occupancy
	case m <= d+l:
		k := m - d - 1
		st.phase = PhaseLeaseUp
		st.occupancy = float64(k) / float64(l)
		st.rent = stabilized * st.occupancy
	}
	return st
}

// project turns one month's drivers into a record. The management fee is
// the only expense computed from income; every other line is annual / 12.
func project(op deal.Operating, st monthState) MonthlyRecord {
	units := float64(op.UnitCount)
	expGrowth := math.Pow(1+op.ExpenseGrowth, float64(st.year-1))
	otherGrowth := math.Pow(1+op.OtherIncomeGrowth, float64(st.year-1))

	gpr := units * st.rent
	vacancy := gpr * op.Vacancy
	credit := (gpr - vacancy) * op.BadDebt
	other := units * op.OtherIncomePerUnit * otherGrowth * st.occupancy
	egi := gpr - vacancy - credit + other

	fixed := op.Expenses.AnnualTotal() * expGrowth / 12
	feeBase := egi
	if op.ManagementFeeBasis == deal.FeeBasisGPR {
		feeBase = gpr
	}
	mgmt := feeBase * op.ManagementFeePct
	opex := fixed + mgmt
	noi := egi - opex

	return MonthlyRecord{
		MonthIndex:           st.month,
		Year:                 st.year,
		Phase:                st.phase,
		GrossPotentialRent:   gpr,
		VacancyLoss:          vacancy,
		CreditLoss:           credit,
		OtherIncome:          other,
		EffectiveGrossIncome: egi,
		FixedExpenses:        fixed,
		ManagementFee:        mgmt,
		OperatingExpenses:    opex,
		NOI:                  noi,
		CashFlowBeforeTax:    noi,
	}
}

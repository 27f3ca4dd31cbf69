package waterfall

import (
	"math"

	"deal_underwriting/pkg/core/valuation"
)

// splitAmount returns how much of remaining this split tier can take before
// the LP crosses the tier's hurdle, and whether the search converged.
//
// A tier without a hurdle takes everything. Otherwise the LP's standing
// against the hurdle decides: already past it means the tier is skipped;
// still short of it even with all remaining cash means the tier takes it
// all. In between, the crossing point is located by bisecting on the
// dollar amount.
func (e *Engine) splitAmount(t Tier, remaining float64, period int) (float64, bool) {
	if t.HurdleRate == nil {
		return remaining, true
	}
	total := t.LPShare + t.GPShare
	if total <= 0 {
		return 0, true
	}
	lpFrac := t.LPShare / total
	hurdle := *t.HurdleRate

	if e.cfg.HurdleBasis == HurdleMultiple {
		return e.multipleBreakpoint(hurdle, lpFrac, remaining), true
	}
	return e.irrBreakpoint(hurdle, lpFrac, remaining, period)
}

// multipleBreakpoint solves (D + f*X) / C = h for X in closed form
func (e *Engine) multipleBreakpoint(hurdle, lpFrac, remaining float64) float64 {
	lp := e.parties[LP]
	if lp.contributed <= 0 {
		return remaining
	}
	need := hurdle*lp.contributed - lp.distributed
	if need <= 0 {
		return 0
	}
	if lpFrac <= 0 {
		return remaining
	}
	return math.Min(need/lpFrac, remaining)
}

// irrBreakpoint bisects on the dollar amount X so that the LP's cumulative
// IRR, with f*X received this period, equals the hurdle within the
// configured relative tolerance. If the cap is hit first, all remaining
// cash goes to this tier and the result is flagged.
func (e *Engine) irrBreakpoint(hurdle, lpFrac, remaining float64, period int) (float64, bool) {
	if e.lpIRRWith(0, period) >= hurdle {
		return 0, true
	}
	if full := e.lpIRRWith(remaining*lpFrac, period); !(full > hurdle) {
		return remaining, true
	}

	tol := e.cfg.Tolerance * math.Abs(hurdle)
	if hurdle == 0 {
		tol = e.cfg.Tolerance
	}

	lo, hi := 0.0, remaining
	for i := 0; i < e.cfg.MaxIterations; i++ {
		mid := (lo + hi) / 2
		v := e.lpIRRWith(mid*lpFrac, period)
		if math.Abs(v-hurdle) <= tol {
			return mid, true
		}
		if v < hurdle {
			lo = mid
		} else {
			hi = mid
		}
	}
	return remaining, false
}

// lpIRRWith is the LP's annualized IRR to date if extra were received in
// period. A missing root counts as infinitely far below any hurdle.
func (e *Engine) lpIRRWith(extra float64, period int) float64 {
	lp := e.parties[LP]
	flows := make([]float64, period+1)
	copy(flows, lp.flows[:period+1])
	flows[period] += extra

	r := valuation.AnnualizeMonthly(valuation.IRR(flows))
	if math.IsNaN(r) {
		return math.Inf(-1)
	}
	return r
}

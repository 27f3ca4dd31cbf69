package waterfall

import (
	"fmt"
	"math"

	"deal_underwriting/pkg/core/valuation"
)

// partyState is what the engine carries for a holder between periods
type partyState struct {
	contributed  float64
	unreturned   float64
	accruedPref  float64
	prefEligible bool

	distributed float64
	roc         float64
	pref        float64
	profit      float64 // everything but return of capital

	flows []float64 // flows[0] = -contributed, flows[m] = cash received in month m
}

// Engine runs one waterfall. It is not safe for concurrent use and is
// discarded after Run.
type Engine struct {
	cfg     Config
	parties map[PartyID]*partyState
	horizon int
}

// New normalizes cfg and prepares state for a run.
func New(cfg Config) *Engine {
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = defaultTolerance
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = defaultMaxIterations
	}
	if cfg.DistributionFrequency <= 0 {
		cfg.DistributionFrequency = 1
	}
	if cfg.HurdleBasis == "" {
		cfg.HurdleBasis = HurdleIRR
	}
	cfg.Tiers = append([]Tier(nil), cfg.Tiers...)
	for i := range cfg.Tiers {
		cfg.Tiers[i].Index = i
	}
	return &Engine{cfg: cfg}
}

// Run distributes every period's cash and returns the ledger.
// periods must be in month order starting at 1.
func Run(cfg Config, periods []PeriodCash) Result {
	return New(cfg).Run(periods)
}

// Run executes the waterfall over periods.
func (e *Engine) Run(periods []PeriodCash) Result {
	e.horizon = 0
	for _, p := range periods {
		if p.Period > e.horizon {
			e.horizon = p.Period
		}
	}
	e.parties = map[PartyID]*partyState{
		LP: newParty(e.cfg.LPCapital, true, e.horizon),
		GP: newParty(e.cfg.GPCapital, e.cfg.PrefIncludesGPCapital, e.horizon),
	}

	var res Result
	pool := 0.0
	shortfall := 0.0
	for i, p := range periods {
		e.accruePref()

		pool += p.Operating
		if pool < 0 {
			shortfall += -pool
			pool = 0
		}

		last := i == len(periods)-1
		if p.Period%e.cfg.DistributionFrequency == 0 || last {
			ev := e.distribute(p.Period, EventOperating, pool)
			ev.Shortfall = shortfall
			if shortfall > 0 {
				ev.Notes = append(ev.Notes, fmt.Sprintf("operating shortfall of %.2f absorbed before distribution", shortfall))
			}
			res.TotalShortfall += shortfall
			res.Events = append(res.Events, ev)
			pool, shortfall = 0, 0
		}

		if p.Sale != 0 {
			cash := p.Sale
			saleShort := 0.0
			if cash < 0 {
				saleShort = -cash
				cash = 0
			}
			ev := e.distribute(p.Period, EventSale, cash)
			ev.Shortfall = saleShort
			if saleShort > 0 {
				ev.Notes = append(ev.Notes, fmt.Sprintf("sale proceeds short of the loan payoff by %.2f", saleShort))
			}
			res.TotalShortfall += saleShort
			res.Events = append(res.Events, ev)
		}
	}

	res.Parties = make(map[PartyID]PartySummary, len(e.parties))
	for id, st := range e.parties {
		res.Parties[id] = st.summary(id)
		res.TotalDistributed += st.distributed
	}
	for _, ev := range res.Events {
		if ev.ConvergenceWarning {
			res.ConvergenceWarnings++
		}
	}
	return res
}

func newParty(capital float64, prefEligible bool, horizon int) *partyState {
	if capital < 0 {
		capital = 0
	}
	flows := make([]float64, horizon+1)
	flows[0] = -capital
	return &partyState{
		contributed:  capital,
		unreturned:   capital,
		prefEligible: prefEligible,
		flows:        flows,
	}
}

// accruePref adds one month of preferred return to every eligible holder
func (e *Engine) accruePref() {
	if e.cfg.PrefRate <= 0 {
		return
	}
	for _, st := range e.parties {
		if !st.prefEligible {
			continue
		}
		if e.cfg.PrefCompounding {
			st.accruedPref += (st.unreturned + st.accruedPref) * valuation.MonthlyFromAnnual(e.cfg.PrefRate)
		} else {
			st.accruedPref += st.unreturned * e.cfg.PrefRate / 12
		}
	}
}

// distribute runs cash through the tiers in order
func (e *Engine) distribute(period int, kind EventKind, cash float64) DistributionEvent {
	ev := DistributionEvent{
		PeriodIndex:        period,
		Kind:               kind,
		TotalCashAvailable: cash,
		Allocations:        map[PartyID]float64{LP: 0, GP: 0},
	}
	lp, gp := e.parties[LP], e.parties[GP]

	remaining := cash
	for _, tier := range e.cfg.Tiers {
		if remaining <= dust {
			break
		}
		alloc := TierAllocation{TierIndex: tier.Index, Kind: tier.Kind, Converged: true}

		switch tier.Kind {
		case TierReturnOfCapital:
			alloc.LP, alloc.GP = proRata(remaining, &lp.unreturned, &gp.unreturned)
			lp.roc += alloc.LP
			gp.roc += alloc.GP
		case TierPref:
			alloc.LP, alloc.GP = proRata(remaining, &lp.accruedPref, &gp.accruedPref)
			lp.pref += alloc.LP
			gp.pref += alloc.GP
			lp.profit += alloc.LP
			gp.profit += alloc.GP
		case TierCatchUp:
			amt := math.Min(e.catchUpAmount(tier), remaining)
			alloc.LP, alloc.GP = split(amt, tier)
			lp.profit += alloc.LP
			gp.profit += alloc.GP
		case TierSplit:
			amt, converged := e.splitAmount(tier, remaining, period)
			alloc.Converged = converged
			if !converged {
				ev.ConvergenceWarning = true
				ev.Notes = append(ev.Notes, fmt.Sprintf("tier %d: hurdle search hit %d iterations; remaining cash kept in this tier", tier.Index, e.cfg.MaxIterations))
			}
			alloc.LP, alloc.GP = split(amt, tier)
			lp.profit += alloc.LP
			gp.profit += alloc.GP
		default:
			continue
		}

		alloc.Total = alloc.LP + alloc.GP
		if alloc.Total <= 0 {
			continue
		}
		e.pay(period, alloc.LP, alloc.GP)
		remaining -= alloc.Total
		ev.Allocations[LP] += alloc.LP
		ev.Allocations[GP] += alloc.GP
		ev.TierBreakdown = append(ev.TierBreakdown, alloc)
	}

	if remaining > dust {
		alloc := e.residual(remaining)
		e.pay(period, alloc.LP, alloc.GP)
		lp.profit += alloc.LP
		gp.profit += alloc.GP
		ev.Allocations[LP] += alloc.LP
		ev.Allocations[GP] += alloc.GP
		ev.TierBreakdown = append(ev.TierBreakdown, alloc)
	}
	return ev
}

func (e *Engine) pay(period int, lpAmt, gpAmt float64) {
	lp, gp := e.parties[LP], e.parties[GP]
	lp.distributed += lpAmt
	gp.distributed += gpAmt
	lp.flows[period] += lpAmt
	gp.flows[period] += gpAmt
}

// residual places cash left after the last tier at the final split's
// shares, or pro rata to contributed capital when no split exists.
func (e *Engine) residual(amount float64) TierAllocation {
	alloc := TierAllocation{TierIndex: len(e.cfg.Tiers), Kind: TierResidual, Converged: true, Total: amount}
	for i := len(e.cfg.Tiers) - 1; i >= 0; i-- {
		t := e.cfg.Tiers[i]
		if t.Kind == TierSplit && t.LPShare+t.GPShare > 0 {
			alloc.LP = amount * t.LPShare / (t.LPShare + t.GPShare)
			alloc.GP = amount - alloc.LP
			return alloc
		}
	}
	lpCap, gpCap := e.parties[LP].contributed, e.parties[GP].contributed
	if lpCap+gpCap > 0 {
		alloc.LP = amount * lpCap / (lpCap + gpCap)
	} else {
		alloc.LP = amount
	}
	alloc.GP = amount - alloc.LP
	return alloc
}

// proRata pays up to amount against two balances in proportion to their
// size, reducing the balances in place.
func proRata(amount float64, a, b *float64) (float64, float64) {
	owed := *a + *b
	if owed <= 0 || amount <= 0 {
		return 0, 0
	}
	if amount >= owed {
		pa, pb := *a, *b
		*a, *b = 0, 0
		return pa, pb
	}
	pa := amount * *a / owed
	pb := amount - pa
	*a -= pa
	*b -= pb
	return pa, pb
}

// split divides amount by the tier's shares; shares are normalized so the
// two halves always add back to amount.
func split(amount float64, t Tier) (float64, float64) {
	if amount <= 0 {
		return 0, 0
	}
	total := t.LPShare + t.GPShare
	if total <= 0 {
		return amount, 0
	}
	lp := amount * t.LPShare / total
	return lp, amount - lp
}

// catchUpAmount is the cash that, split at the tier's shares, lifts the GP
// to CatchUpTarget of all profit distributed so far. Closed form:
// (G + g*X) / (P + X) = T  =>  X = (T*P - G) / (g - T).
func (e *Engine) catchUpAmount(t Tier) float64 {
	target := e.cfg.CatchUpTarget
	total := t.LPShare + t.GPShare
	if total <= 0 || target <= 0 {
		return 0
	}
	g := t.GPShare / total
	if g <= target {
		return 0
	}
	profit := e.parties[LP].profit + e.parties[GP].profit
	gpProfit := e.parties[GP].profit
	x := (target*profit - gpProfit) / (g - target)
	if x < 0 {
		return 0
	}
	return x
}

func (st *partyState) summary(id PartyID) PartySummary {
	s := PartySummary{
		Party:             id,
		Contributed:       st.contributed,
		Distributed:       st.distributed,
		ReturnOfCapital:   st.roc,
		PrefPaid:          st.pref,
		Profit:            st.profit,
		UnreturnedCapital: st.unreturned,
		AccruedPref:       st.accruedPref,
		IRR:               valuation.Metric(valuation.AnnualizeMonthly(valuation.IRR(st.flows))),
		EquityMultiple:    valuation.NotAvailable(),
	}
	if st.contributed > 0 {
		s.EquityMultiple = valuation.Metric(st.distributed / st.contributed)
	}
	return s
}

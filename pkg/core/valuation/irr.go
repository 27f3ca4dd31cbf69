package valuation

import (
	"math"
)

// IRR search bounds, as periodic (monthly) rates
const (
	IRRLowerBound = -0.99
	IRRUpperBound = 10.0

	irrTolerance           = 1e-10
	maxNewtonIterations    = 100
	maxBisectionIterations = 300
)

// bracketSamples are probe rates used to locate a sign change of NPV.
// Dense near zero, where real-estate monthly IRRs live.
var bracketSamples = []float64{
	IRRLowerBound, -0.9, -0.75, -0.5, -0.25, -0.1, -0.05, -0.02, -0.01, -0.005,
	0, 0.0025, 0.005, 0.01, 0.02, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, IRRUpperBound,
}

// NPV discounts flows[t] by (1+rate)^t; flows[0] is undiscounted.
func NPV(rate float64, flows []float64) float64 {
	npv := 0.0
	df := 1.0
	for t, cf := range flows {
		if t > 0 {
			df /= 1 + rate
		}
		npv += cf * df
	}
	return npv
}

// npvDerivative is dNPV/drate
func npvDerivative(rate float64, flows []float64) float64 {
	d := 0.0
	df := 1 / (1 + rate) // (1+rate)^-(t+1)
	for t, cf := range flows {
		if t > 0 {
			d -= float64(t) * cf * df
		}
		df /= 1 + rate
	}
	return d
}

// IRR solves NPV(rate) = 0 for the periodic rate of flows.
// Newton's method runs first from 1%; if it stalls, leaves the bounds or
// lands on a poor root, bisection takes over on a bracket found by probing.
// Returns NaN when the flows do not change sign or no bracket exists.
func IRR(flows []float64) float64 {
	if !hasSignChange(flows) {
		return math.NaN()
	}

	scale := 0.0
	for _, cf := range flows {
		scale += math.Abs(cf)
	}
	accept := scale * 1e-9

	r := 0.01
	for i := 0; i < maxNewtonIterations; i++ {
		f := NPV(r, flows)
		d := npvDerivative(r, flows)
		if d == 0 || !finite(f) || !finite(d) {
			break
		}
		next := r - f/d
		if !finite(next) || next <= IRRLowerBound || next >= IRRUpperBound {
			break
		}
		if math.Abs(next-r) < irrTolerance {
			if math.Abs(NPV(next, flows)) <= accept {
				return next
			}
			break
		}
		r = next
	}

	return bisectIRR(flows)
}

func bisectIRR(flows []float64) float64 {
	lo, hi, ok := findBracket(flows)
	if !ok {
		return math.NaN()
	}
	flo := NPV(lo, flows)
	for i := 0; i < maxBisectionIterations; i++ {
		mid := (lo + hi) / 2
		fmid := NPV(mid, flows)
		if fmid == 0 || (hi-lo)/2 < irrTolerance {
			return mid
		}
		if (fmid > 0) == (flo > 0) {
			lo, flo = mid, fmid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}

// findBracket returns the first adjacent pair of probe rates with finite,
// opposite-signed NPVs.
func findBracket(flows []float64) (float64, float64, bool) {
	prevRate := math.NaN()
	prevNPV := math.NaN()
	for _, rate := range bracketSamples {
		v := NPV(rate, flows)
		if !finite(v) {
			continue
		}
		if v == 0 {
			return rate, rate, true
		}
		if finite(prevNPV) && (v > 0) != (prevNPV > 0) {
			return prevRate, rate, true
		}
		prevRate, prevNPV = rate, v
	}
	return 0, 0, false
}

func hasSignChange(flows []float64) bool {
	var pos, neg bool
	for _, cf := range flows {
		if cf > 0 {
			pos = true
		} else if cf < 0 {
			neg = true
		}
	}
	return pos && neg
}

// AnnualizeMonthly converts a monthly rate to an effective annual rate.
func AnnualizeMonthly(r float64) float64 {
	if !finite(r) {
		return math.NaN()
	}
	return math.Pow(1+r, 12) - 1
}

// MonthlyFromAnnual converts an effective annual rate to its monthly equivalent.
func MonthlyFromAnnual(r float64) float64 {
	return math.Pow(1+r, 1.0/12) - 1
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

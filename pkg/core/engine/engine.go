// Package engine runs a full underwriting pass over one deal: validation,
// operating projection, debt schedule, exit, return metrics and, for
// syndications, the LP/GP waterfall. Run is a pure function of its inputs.
package engine

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"deal_underwriting/pkg/core/deal"
	"deal_underwriting/pkg/core/debt"
	"deal_underwriting/pkg/core/projection"
	"deal_underwriting/pkg/core/validate"
	"deal_underwriting/pkg/core/valuation"
	"deal_underwriting/pkg/core/waterfall"
)

// ErrInvalidInput is matched by every *InputError.
var ErrInvalidInput = errors.New("invalid deal inputs")

// InputError carries the hard validation failures that stopped a run.
type InputError struct {
	Issues []validate.Issue
}

func (e *InputError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, i := range e.Issues {
		parts = append(parts, i.String())
	}
	return fmt.Sprintf("%s: %s", ErrInvalidInput, strings.Join(parts, "; "))
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

// Results is everything one run produces. Scalar metrics that could not be
// computed are NaN and encode as null.
type Results struct {
	Mode           deal.Mode                                    `json:"mode"`
	Inputs         Resolved                                     `json:"inputs"`
	Monthly        []projection.MonthlyRecord                   `json:"monthly"`
	Annual         []projection.AnnualSummary                   `json:"annual"`
	Amortization   debt.Schedule                                `json:"amortization"`
	Exit           valuation.ExitResult                         `json:"exit"`
	Metrics        valuation.Metrics                            `json:"metrics"`
	Distributions  []waterfall.DistributionEvent                `json:"distributions,omitempty"`
	PartySummaries map[waterfall.PartyID]waterfall.PartySummary `json:"party_summaries,omitempty"`
	Fees           *SponsorFees                                 `json:"sponsor_fees,omitempty"`
	Warnings       []validate.Issue                             `json:"warnings"`
}

type options struct {
	logger        *zap.Logger
	discountRate  float64
	tolerance     float64
	maxIterations int
}

// Option adjusts a run.
type Option func(*options)

// WithLogger sends debug traces of the run to l.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithDiscountRate sets the annual rate used for NPV. Zero skips NPV.
func WithDiscountRate(rate float64) Option {
	return func(o *options) { o.discountRate = rate }
}

// WithBreakpointSearch overrides the waterfall hurdle search limits.
func WithBreakpointSearch(tolerance float64, maxIterations int) Option {
	return func(o *options) {
		o.tolerance = tolerance
		o.maxIterations = maxIterations
	}
}

// Run underwrites d. Inputs that fail validation return an *InputError and
// no results; everything else yields results, with numerical anomalies
// reported as warnings.
func Run(d deal.Assumptions, mode deal.Mode, opts ...Option) (*Results, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger.With(zap.String("mode", string(mode)))

	check := validate.Validate(d, mode)
	if !check.IsValid {
		log.Debug("inputs rejected", zap.Int("errors", len(check.Errors)))
		return nil, &InputError{Issues: check.Errors}
	}

	r := resolve(d, mode)
	hold := r.HoldMonths

	series := projection.Build(projection.Input{
		HoldMonths: hold,
		Operating:  d.Operating,
		Renovation: d.Renovation,
	})

	schedule := debt.BuildSchedule(debt.Terms{
		Principal:          r.LoanAmount,
		AnnualRate:         d.Financing.InterestRate,
		AmortizationMonths: d.Financing.AmortizationYears * 12,
		TermMonths:         d.Financing.LoanTermYears * 12,
		InterestOnlyMonths: d.Financing.InterestOnlyMonths,
	})
	levered := series.WithDebtService(func(m int) float64 {
		return schedule.DebtServiceAt(m, hold)
	})
	log.Debug("projection built",
		zap.Int("months", levered.Len()),
		zap.Float64("loan", r.LoanAmount),
		zap.Int("maturity_month", schedule.MaturityMonth),
	)

	exit := valuation.CalculateExit(valuation.ExitInput{
		StabilizedNOI: series.TrailingAnnualNOI(),
		CapRate:       d.Exit.CapRate,
		SaleCostPct:   d.Exit.SaleCostPct,
		LoanPayoff:    schedule.BalanceAt(hold),
	})

	metrics := valuation.CalculateMetrics(valuation.MetricsInput{
		Series:        levered,
		Schedule:      schedule,
		Exit:          exit,
		InitialEquity: r.InitialEquity,
		PurchasePrice: r.PurchasePrice,
		DiscountRate:  o.discountRate,
	})

	res := &Results{
		Mode:         mode,
		Inputs:       r,
		Monthly:      levered.Records(),
		Annual:       levered.Annual(),
		Amortization: schedule,
		Exit:         exit,
		Metrics:      metrics,
		Warnings:     []validate.Issue{},
	}
	res.Warnings = append(res.Warnings, check.Warnings...)
	res.Warnings = append(res.Warnings, validate.ValidateOutputs(metrics)...)

	if mode == deal.ModeSyndication {
		runSyndication(res, d, levered, o)
	}

	log.Debug("run complete",
		zap.Float64("irr", metrics.IRR.Float()),
		zap.Float64("equity_multiple", metrics.EquityMultiple.Float()),
		zap.Int("warnings", len(res.Warnings)),
	)
	return res, nil
}

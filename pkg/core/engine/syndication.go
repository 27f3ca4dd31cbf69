package engine

import (
	"fmt"

	"go.uber.org/zap"

	"deal_underwriting/pkg/core/deal"
	"deal_underwriting/pkg/core/projection"
	"deal_underwriting/pkg/core/validate"
	"deal_underwriting/pkg/core/valuation"
	"deal_underwriting/pkg/core/waterfall"
)

// SponsorFees are paid to the GP outside the waterfall. The acquisition fee
// is funded with the equity at close; the asset-management fee comes out of
// operating cash before it reaches the partners.
type SponsorFees struct {
	AcquisitionFee        float64 `json:"acquisition_fee"`
	AssetManagementAnnual float64 `json:"asset_management_annual"`
	AssetManagementTotal  float64 `json:"asset_management_total"`
}

// WaterfallConfig maps the deal's syndication terms onto waterfall tiers:
// return of capital, pref (when a rate is set), catch-up (when a share is
// set), then the promote splits in order.
func WaterfallConfig(s deal.Syndication, lpCapital, gpCapital float64) waterfall.Config {
	tiers := []waterfall.Tier{{Kind: waterfall.TierReturnOfCapital}}
	if s.PrefRate > 0 {
		tiers = append(tiers, waterfall.Tier{Kind: waterfall.TierPref})
	}
	if s.CatchUpShare > 0 {
		tiers = append(tiers, waterfall.Tier{
			Kind:    waterfall.TierCatchUp,
			LPShare: 1 - s.CatchUpShare,
			GPShare: s.CatchUpShare,
		})
	}
	for _, t := range s.Tiers {
		tier := waterfall.Tier{Kind: waterfall.TierSplit, LPShare: t.LPShare, GPShare: t.GPShare}
		if t.Hurdle > 0 {
			tier.HurdleRate = waterfall.Hurdle(t.Hurdle)
		}
		tiers = append(tiers, tier)
	}

	basis := waterfall.HurdleIRR
	if s.HurdleBasis == deal.HurdleMultiple {
		basis = waterfall.HurdleMultiple
	}
	return waterfall.Config{
		LPCapital:             lpCapital,
		GPCapital:             gpCapital,
		PrefRate:              s.PrefRate,
		PrefCompounding:       s.PrefCompounding,
		PrefIncludesGPCapital: s.PrefIncludesGPCapital,
		HurdleBasis:           basis,
		CatchUpTarget:         s.CatchUpTarget,
		Tiers:                 tiers,
		DistributionFrequency: s.DistributionFrequency,
	}
}

// PeriodCash turns the levered series and net sale proceeds into waterfall
// input, deducting a flat monthly fee from operating cash.
func PeriodCash(levered projection.Series, netProceeds, monthlyFee float64) []waterfall.PeriodCash {
	out := make([]waterfall.PeriodCash, 0, levered.Len())
	for m, r := range levered.All() {
		out = append(out, waterfall.PeriodCash{Period: m, Operating: r.CashFlowBeforeTax - monthlyFee})
	}
	if n := len(out); n > 0 {
		out[n-1].Sale = netProceeds
	}
	return out
}

func runSyndication(res *Results, d deal.Assumptions, levered projection.Series, o options) {
	in := res.Inputs
	fees := &SponsorFees{
		AcquisitionFee:        in.AcquisitionFee,
		AssetManagementAnnual: in.InitialEquity * d.Syndication.AssetManagementFeePct,
	}
	monthlyFee := fees.AssetManagementAnnual / 12
	fees.AssetManagementTotal = monthlyFee * float64(levered.Len())
	res.Fees = fees

	cfg := WaterfallConfig(d.Syndication, in.LPCapital, in.GPCapital)
	cfg.Tolerance = o.tolerance
	cfg.MaxIterations = o.maxIterations

	wf := waterfall.Run(cfg, PeriodCash(levered, res.Exit.NetProceeds, monthlyFee))
	res.Distributions = wf.Events
	res.PartySummaries = wf.Parties

	for _, ev := range wf.Events {
		if !ev.ConvergenceWarning {
			continue
		}
		res.Warnings = append(res.Warnings, validate.Issue{
			Kind:    validate.WaterfallConvergenceWarning,
			Field:   fmt.Sprintf("distributions[%d]", ev.PeriodIndex),
			Message: "hurdle breakpoint search did not converge; remaining cash stayed in the active tier",
			Value:   valuation.Metric(ev.TotalCashAvailable),
		})
	}
	if wf.TotalShortfall > 0 {
		res.Warnings = append(res.Warnings, validate.Issue{
			Kind:    validate.InputWarning,
			Field:   "distributions",
			Message: "operating or sale cash went negative; shortfalls were not funded by the partners",
			Value:   valuation.Metric(wf.TotalShortfall),
		})
	}

	o.logger.Debug("waterfall complete",
		zap.Int("events", len(wf.Events)),
		zap.Float64("distributed", wf.TotalDistributed),
		zap.Int("convergence_warnings", wf.ConvergenceWarnings),
	)
}

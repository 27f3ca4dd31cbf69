// Package sharelink packs a deal into a compact query string, one short key
// per leaf field, and unpacks it again. Decoding never fails: missing or
// malformed values fall back to the defaults.
package sharelink

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/go-querystring/query"

	"deal_underwriting/pkg/core/deal"
)

// num encodes without exponent notation and with no trailing zeros
type num float64

func (n num) EncodeValues(key string, v *url.Values) error {
	v.Set(key, formatFloat(float64(n)))
	return nil
}

// aop encodes an AmountOrPercent as "<n>" or "<n>p"
type aop deal.AmountOrPercent

func (a aop) EncodeValues(key string, v *url.Values) error {
	s := formatFloat(a.Value)
	if a.Kind == deal.KindPercent {
		s += "p"
	}
	v.Set(key, s)
	return nil
}

// tiers encodes as hurdle:lp:gp triples separated by commas. An empty
// value is an explicit empty list, not a missing key.
type tiers []deal.PromoteTier

func (ts tiers) EncodeValues(key string, v *url.Values) error {
	if len(ts) == 0 {
		v.Set(key, "")
		return nil
	}
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = strings.Join([]string{formatFloat(t.Hurdle), formatFloat(t.LPShare), formatFloat(t.GPShare)}, ":")
	}
	v.Set(key, strings.Join(parts, ","))
	return nil
}

// params is the wire layout. Keys are part of every shared URL and must
// never be renamed.
type params struct {
	Name string `url:"n,omitempty"`

	PurchasePrice num `url:"pp"`
	ClosingCosts  aop `url:"cc"`
	HoldMonths    int `url:"hp"`

	Financed       bool `url:"fe,int"`
	LoanAmount     aop  `url:"ltv"`
	InterestRate   num  `url:"ir"`
	AmortYears     int  `url:"am"`
	TermYears      int  `url:"lt"`
	IOMonths       int  `url:"io"`
	OriginationFee aop  `url:"of"`

	Units             int    `url:"un"`
	InPlaceRent       num    `url:"ipr"`
	MarketRent        num    `url:"mr"`
	RentGrowth        num    `url:"rg"`
	OtherIncome       num    `url:"oi"`
	OtherIncomeGrowth num    `url:"oig"`
	Vacancy           num    `url:"vac"`
	BadDebt           num    `url:"bd"`
	ExpenseGrowth     num    `url:"eg"`
	Taxes             num    `url:"tx"`
	Insurance         num    `url:"ins"`
	Utilities         num    `url:"utl"`
	Repairs           num    `url:"rm"`
	Payroll           num    `url:"pr"`
	Admin             num    `url:"adm"`
	Marketing         num    `url:"mkt"`
	Reserves          num    `url:"rr"`
	MgmtFee           num    `url:"mf"`
	MgmtFeeBasis      string `url:"mfb"`

	RenoBudget    num  `url:"rb"`
	RenoMonths    int  `url:"rd"`
	RenoRentLoss  num  `url:"rl"`
	LeaseUp       int  `url:"lu"`
	MarketAtOnce  bool `url:"rmi,int"`
	ExitCap       num  `url:"ec"`
	SaleCost      num  `url:"sc"`
	LPCapital     num  `url:"lpc"`
	GPCapital     num  `url:"gpc"`
	GPCoInvest    num  `url:"gpi"`
	PrefRate      num  `url:"pref"`
	PrefCompound  bool `url:"pc,int"`
	PrefGPCapital bool `url:"pgp,int"`

	HurdleBasis   string `url:"hb"`
	CatchUpShare  num    `url:"cus"`
	CatchUpTarget num    `url:"cut"`
	Tiers         tiers  `url:"t"`
	Frequency     int    `url:"df"`
	AcqFee        num    `url:"af"`
	AssetMgmtFee  num    `url:"amf"`
}

// Encode renders d as a query string with sorted keys.
func Encode(d deal.Assumptions) (string, error) {
	op := d.Operating
	ex := op.Expenses
	s := d.Syndication
	p := params{
		Name:              d.Name,
		PurchasePrice:     num(d.Acquisition.PurchasePrice),
		ClosingCosts:      aop(d.Acquisition.ClosingCosts),
		HoldMonths:        d.Acquisition.HoldPeriodMonths,
		Financed:          d.Financing.Enabled,
		LoanAmount:        aop(d.Financing.LoanAmount),
		InterestRate:      num(d.Financing.InterestRate),
		AmortYears:        d.Financing.AmortizationYears,
		TermYears:         d.Financing.LoanTermYears,
		IOMonths:          d.Financing.InterestOnlyMonths,
		OriginationFee:    aop(d.Financing.OriginationFee),
		Units:             op.UnitCount,
		InPlaceRent:       num(op.InPlaceRent),
		MarketRent:        num(op.MarketRent),
		RentGrowth:        num(op.RentGrowth),
		OtherIncome:       num(op.OtherIncomePerUnit),
		OtherIncomeGrowth: num(op.OtherIncomeGrowth),
		Vacancy:           num(op.Vacancy),
		BadDebt:           num(op.BadDebt),
		ExpenseGrowth:     num(op.ExpenseGrowth),
		Taxes:             num(ex.Taxes),
		Insurance:         num(ex.Insurance),
		Utilities:         num(ex.Utilities),
		Repairs:           num(ex.RepairsMaintenance),
		Payroll:           num(ex.Payroll),
		Admin:             num(ex.Admin),
		Marketing:         num(ex.Marketing),
		Reserves:          num(ex.ReplacementReserves),
		MgmtFee:           num(op.ManagementFeePct),
		MgmtFeeBasis:      string(op.ManagementFeeBasis),
		RenoBudget:        num(d.Renovation.Budget),
		RenoMonths:        d.Renovation.DurationMonths,
		RenoRentLoss:      num(d.Renovation.RentLossPct),
		LeaseUp:           d.Renovation.LeaseUpMonths,
		MarketAtOnce:      d.Renovation.UseMarketRentImmediately,
		ExitCap:           num(d.Exit.CapRate),
		SaleCost:          num(d.Exit.SaleCostPct),
		LPCapital:         num(s.LPCapital),
		GPCapital:         num(s.GPCapital),
		GPCoInvest:        num(s.GPCoInvestPct),
		PrefRate:          num(s.PrefRate),
		PrefCompound:      s.PrefCompounding,
		PrefGPCapital:     s.PrefIncludesGPCapital,
		HurdleBasis:       string(s.HurdleBasis),
		CatchUpShare:      num(s.CatchUpShare),
		CatchUpTarget:     num(s.CatchUpTarget),
		Tiers:             tiers(s.Tiers),
		Frequency:         s.DistributionFrequency,
		AcqFee:            num(s.AcquisitionFeePct),
		AssetMgmtFee:      num(s.AssetManagementFeePct),
	}

	v, err := query.Values(p)
	if err != nil {
		return "", fmt.Errorf("encode share link: %w", err)
	}
	return v.Encode(), nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// parseFloat accepts only finite numbers
func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

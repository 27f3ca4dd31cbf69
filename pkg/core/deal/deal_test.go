package deal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountOrPercent_Resolve(t *testing.T) {
	tests := []struct {
		name string
		v    AmountOrPercent
		base float64
		want float64
	}{
		{"amount ignores base", Amount(25_000), 1_000_000, 25_000},
		{"percent of base", Percent(0.02), 1_000_000, 20_000},
		{"empty kind is amount", AmountOrPercent{Value: 10}, 500, 10},
		{"zero percent", Percent(0), 1_000_000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.v.Resolve(tt.base), 1e-9)
		})
	}
}

func TestDefaults_AreScenarioA(t *testing.T) {
	d := Defaults()

	assert.Equal(t, 1_000_000.0, d.Acquisition.PurchasePrice)
	assert.Equal(t, 60, d.Acquisition.HoldPeriodMonths)
	assert.InDelta(t, 750_000, d.Financing.LoanAmount.Resolve(d.Acquisition.PurchasePrice), 1e-6)
	require.Len(t, d.Syndication.Tiers, 3)
	assert.Zero(t, d.Syndication.Tiers[2].Hurdle, "last tier should be the catch-all")
}

func TestFingerprint_Deterministic(t *testing.T) {
	a := Defaults()
	b := Defaults()

	assert.Equal(t, Fingerprint(a, ModeSimple), Fingerprint(b, ModeSimple))
	assert.NotEqual(t, Fingerprint(a, ModeSimple), Fingerprint(a, ModeSyndication))

	b.Exit.CapRate = 0.06
	assert.NotEqual(t, Fingerprint(a, ModeSimple), Fingerprint(b, ModeSimple))
}

func TestFingerprint_NonFiniteFields(t *testing.T) {
	base := Defaults()
	nanPref := Defaults()
	nanPref.Syndication.PrefRate = math.NaN()
	nanRate := Defaults()
	nanRate.Financing.Enabled = false
	nanRate.Financing.InterestRate = math.NaN()

	keys := map[string]bool{}
	for _, d := range []Assumptions{base, nanPref, nanRate} {
		fp := Fingerprint(d, ModeSimple)
		require.NotEmpty(t, fp)
		keys[fp] = true
	}
	assert.Len(t, keys, 3, "non-finite values must not collapse onto one key")

	again := Defaults()
	again.Syndication.PrefRate = math.NaN()
	assert.Equal(t, Fingerprint(nanPref, ModeSimple), Fingerprint(again, ModeSimple))
}

func TestClone_DoesNotShareTiers(t *testing.T) {
	a := Defaults()
	b := a.Clone()
	b.Syndication.Tiers[0].LPShare = 0.9

	assert.Equal(t, 0.70, a.Syndication.Tiers[0].LPShare)
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeSyndication, ParseMode("syndication"))
	assert.Equal(t, ModeSimple, ParseMode("simple"))
	assert.Equal(t, ModeSimple, ParseMode("bogus"))
}

func TestRequiredEquity(t *testing.T) {
	d := Defaults()

	// 1,000,000 + 20,000 closing + 7,500 origination - 750,000 loan
	assert.InDelta(t, 277_500, d.RequiredEquity(ModeSimple), 1e-6)

	d.Syndication.AcquisitionFeePct = 0.01
	assert.InDelta(t, 277_500, d.RequiredEquity(ModeSimple), 1e-6, "fees only apply to syndications")
	assert.InDelta(t, 287_500, d.RequiredEquity(ModeSyndication), 1e-6)

	d.Financing.Enabled = false
	assert.Zero(t, d.LoanAmount())
	assert.Zero(t, d.OriginationFeeAmount())
	assert.InDelta(t, 1_020_000, d.RequiredEquity(ModeSimple), 1e-6)
}

func TestLoanTermMonths(t *testing.T) {
	d := Defaults()
	assert.Equal(t, 360, d.LoanTermMonths())

	d.Financing.LoanTermYears = 10
	assert.Equal(t, 120, d.LoanTermMonths())
}

package sensitivity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deal_underwriting/pkg/core/deal"
	"deal_underwriting/pkg/core/engine"
)

func capByGrowth() Grid {
	return Grid{
		Rows:    Axis{Variable: ExitCapRate, Values: []float64{0.05, 0.055, 0.06}},
		Cols:    Axis{Variable: RentGrowth, Values: []float64{0.01, 0.03}},
		Workers: 2,
	}
}

func TestRun_FillsEveryCell(t *testing.T) {
	tbl, err := Run(context.Background(), deal.Defaults(), capByGrowth())
	require.NoError(t, err)
	require.Len(t, tbl.Cells, 3)

	for i, row := range tbl.Cells {
		require.Len(t, row, 2)
		for j, c := range row {
			assert.Empty(t, c.Err)
			assert.Equal(t, tbl.Rows.Values[i], c.RowValue)
			assert.Equal(t, tbl.Cols.Values[j], c.ColValue)
			assert.True(t, c.IRR.Valid())
			assert.True(t, c.EquityMultiple.Valid())
		}
	}
}

func TestRun_MatchesSingleRun(t *testing.T) {
	tbl, err := Run(context.Background(), deal.Defaults(), capByGrowth())
	require.NoError(t, err)

	d := deal.Defaults()
	d.Exit.CapRate = 0.06
	d.Operating.RentGrowth = 0.01
	want, err := engine.Run(d, deal.ModeSimple)
	require.NoError(t, err)

	got := tbl.Cells[2][0]
	assert.InDelta(t, want.Metrics.IRR.Float(), got.IRR.Float(), 1e-12)
	assert.InDelta(t, want.Metrics.EquityMultiple.Float(), got.EquityMultiple.Float(), 1e-12)
}

func TestRun_Monotonic(t *testing.T) {
	tbl, err := Run(context.Background(), deal.Defaults(), capByGrowth())
	require.NoError(t, err)

	// Higher exit cap lowers IRR; higher rent growth raises it.
	for j := range tbl.Cols.Values {
		assert.Greater(t, tbl.Cells[0][j].IRR.Float(), tbl.Cells[2][j].IRR.Float())
	}
	for i := range tbl.Rows.Values {
		assert.Less(t, tbl.Cells[i][0].IRR.Float(), tbl.Cells[i][1].IRR.Float())
	}
}

func TestRun_InvalidCellDoesNotFailGrid(t *testing.T) {
	g := capByGrowth()
	g.Rows.Values = []float64{0.055, 0.40}

	tbl, err := Run(context.Background(), deal.Defaults(), g)
	require.NoError(t, err)

	assert.Empty(t, tbl.Cells[0][0].Err)
	bad := tbl.Cells[1][0]
	assert.Contains(t, bad.Err, "exit.cap_rate")
	assert.False(t, bad.IRR.Valid())
	assert.False(t, bad.DSCR.Valid())
}

func TestRun_DoesNotMutateBase(t *testing.T) {
	base := deal.Defaults()
	_, err := Run(context.Background(), base, capByGrowth())
	require.NoError(t, err)
	assert.Equal(t, deal.Defaults(), base)
}

func TestRun_Syndication(t *testing.T) {
	g := capByGrowth()
	g.Mode = deal.ModeSyndication
	tbl, err := Run(context.Background(), deal.Defaults(), g)
	require.NoError(t, err)
	assert.True(t, tbl.Cells[1][1].IRR.Valid())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		grid Grid
		want error
	}{
		{"ok", capByGrowth(), nil},
		{"empty rows", Grid{Rows: Axis{Variable: Vacancy}, Cols: Axis{Variable: RentGrowth, Values: []float64{0.02}}}, ErrEmptyAxis},
		{"too large", Grid{
			Rows: Axis{Variable: Vacancy, Values: make([]float64, 21)},
			Cols: Axis{Variable: RentGrowth, Values: make([]float64, 20)},
		}, ErrGridTooLarge},
		{"unknown variable", Grid{
			Rows: Axis{Variable: "bogus", Values: []float64{1}},
			Cols: Axis{Variable: RentGrowth, Values: []float64{1}},
		}, ErrUnknownVariable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.grid.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestRun_MaxPointsAllowed(t *testing.T) {
	g := Grid{
		Rows: Axis{Variable: Vacancy, Values: make([]float64, 20)},
		Cols: Axis{Variable: RentGrowth, Values: make([]float64, 20)},
	}
	assert.NoError(t, g.Validate())
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, deal.Defaults(), capByGrowth())
	assert.ErrorIs(t, err, context.Canceled)
}

// Package sensitivity runs the engine over a two-axis grid of assumption
// variants. Each cell is an independent run, so cells fan out across a
// bounded worker pool.
package sensitivity

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"deal_underwriting/pkg/core/deal"
	"deal_underwriting/pkg/core/engine"
	"deal_underwriting/pkg/core/valuation"
)

// MaxPoints caps rows × columns.
const MaxPoints = 400

var (
	ErrGridTooLarge    = fmt.Errorf("sensitivity grid exceeds %d points", MaxPoints)
	ErrEmptyAxis       = errors.New("sensitivity axis has no values")
	ErrUnknownVariable = errors.New("unknown sensitivity variable")
)

// Variable names an assumption a grid axis can move
type Variable string

const (
	ExitCapRate   Variable = "exit_cap_rate"
	RentGrowth    Variable = "rent_growth"
	Vacancy       Variable = "vacancy"
	InterestRate  Variable = "interest_rate"
	ExpenseGrowth Variable = "expense_growth"
	PurchasePrice Variable = "purchase_price"
	LoanToValue   Variable = "ltv"
	HoldMonths    Variable = "hold_months"
)

// Variables lists every supported axis variable.
func Variables() []Variable {
	return []Variable{ExitCapRate, RentGrowth, Vacancy, InterestRate, ExpenseGrowth, PurchasePrice, LoanToValue, HoldMonths}
}

func (v Variable) apply(d *deal.Assumptions, x float64) error {
	switch v {
	case ExitCapRate:
		d.Exit.CapRate = x
	case RentGrowth:
		d.Operating.RentGrowth = x
	case Vacancy:
		d.Operating.Vacancy = x
	case InterestRate:
		d.Financing.InterestRate = x
	case ExpenseGrowth:
		d.Operating.ExpenseGrowth = x
	case PurchasePrice:
		d.Acquisition.PurchasePrice = x
	case LoanToValue:
		d.Financing.LoanAmount = deal.Percent(x)
	case HoldMonths:
		d.Acquisition.HoldPeriodMonths = int(x)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownVariable, v)
	}
	return nil
}

// Axis is one dimension of the grid.
type Axis struct {
	Variable Variable  `json:"variable" yaml:"variable"`
	Values   []float64 `json:"values" yaml:"values"`
}

// Grid describes a sensitivity request.
type Grid struct {
	Rows    Axis      `json:"rows"`
	Cols    Axis      `json:"cols"`
	Mode    deal.Mode `json:"mode"`
	Workers int       `json:"-"` // 0 = GOMAXPROCS
}

// Cell is one run's headline metrics, or the reason it did not run.
type Cell struct {
	RowValue       float64          `json:"row_value"`
	ColValue       float64          `json:"col_value"`
	IRR            valuation.Metric `json:"irr"`
	EquityMultiple valuation.Metric `json:"equity_multiple"`
	DSCR           valuation.Metric `json:"dscr"`
	Err            string           `json:"error,omitempty"`
}

// Table is the grid result, indexed [row][col].
type Table struct {
	Rows  Axis     `json:"rows"`
	Cols  Axis     `json:"cols"`
	Cells [][]Cell `json:"cells"`
}

// Validate checks the grid shape without running anything.
func (g Grid) Validate() error {
	if len(g.Rows.Values) == 0 || len(g.Cols.Values) == 0 {
		return ErrEmptyAxis
	}
	if len(g.Rows.Values)*len(g.Cols.Values) > MaxPoints {
		return ErrGridTooLarge
	}
	var probe deal.Assumptions
	if err := g.Rows.Variable.apply(&probe, 0); err != nil {
		return err
	}
	return g.Cols.Variable.apply(&probe, 0)
}

// Run evaluates every cell. Cells whose inputs fail validation carry the
// error text instead of metrics; only a bad grid or a cancelled context
// fails the whole call.
func Run(ctx context.Context, base deal.Assumptions, g Grid, opts ...engine.Option) (*Table, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	workers := g.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	mode := g.Mode
	if mode == "" {
		mode = deal.ModeSimple
	}

	t := &Table{Rows: g.Rows, Cols: g.Cols, Cells: make([][]Cell, len(g.Rows.Values))}
	for i := range t.Cells {
		t.Cells[i] = make([]Cell, len(g.Cols.Values))
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, rv := range g.Rows.Values {
		for j, cv := range g.Cols.Values {
			if egCtx.Err() != nil {
				break
			}
			eg.Go(func() error {
				if err := egCtx.Err(); err != nil {
					return err
				}
				t.Cells[i][j] = runCell(base, g, mode, rv, cv, opts)
				return nil
			})
		}
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("sensitivity grid: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("sensitivity grid: %w", err)
	}
	return t, nil
}

func runCell(base deal.Assumptions, g Grid, mode deal.Mode, rv, cv float64, opts []engine.Option) Cell {
	c := Cell{
		RowValue:       rv,
		ColValue:       cv,
		IRR:            valuation.NotAvailable(),
		EquityMultiple: valuation.NotAvailable(),
		DSCR:           valuation.NotAvailable(),
	}
	d := base.Clone()
	// Both variables were checked in Validate.
	_ = g.Rows.Variable.apply(&d, rv)
	_ = g.Cols.Variable.apply(&d, cv)

	res, err := engine.Run(d, mode, opts...)
	if err != nil {
		c.Err = err.Error()
		return c
	}
	c.IRR = res.Metrics.IRR
	c.EquityMultiple = res.Metrics.EquityMultiple
	c.DSCR = res.Metrics.DSCR
	return c
}

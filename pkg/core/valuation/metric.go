package valuation

import (
	"bytes"
	"math"
	"strconv"
)

// Metric is a scalar result that may be unavailable. Non-finite values are
// the sentinel for "not available" and encode as JSON null.
type Metric float64

// NotAvailable is the sentinel for a metric that could not be computed
func NotAvailable() Metric {
	return Metric(math.NaN())
}

// Valid reports whether the metric holds a finite number.
func (m Metric) Valid() bool {
	f := float64(m)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Float returns the raw value, NaN included.
func (m Metric) Float() float64 {
	return float64(m)
}

func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.Valid() {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, float64(m), 'g', -1, 64), nil
}

func (m *Metric) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = NotAvailable()
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*m = Metric(f)
	return nil
}

// ratio divides, returning NotAvailable for a zero or non-finite denominator
func ratio(num, den float64) Metric {
	if den == 0 || math.IsNaN(den) || math.IsInf(den, 0) {
		return NotAvailable()
	}
	return Metric(num / den)
}

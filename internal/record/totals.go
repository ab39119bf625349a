package record

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// WeekTotal sums the hours of a week. Invalid or missing hours count as zero.
func WeekTotal(week []DayEntry) decimal.Decimal {
	total := decimal.Zero
	for _, d := range week {
		total = total.Add(d.Hours.Decimal())
	}
	return total
}

// WeekTotals returns the subtotal of each week
func (r *Record) WeekTotals() [2]decimal.Decimal {
	return [2]decimal.Decimal{WeekTotal(r.Week1), WeekTotal(r.Week2)}
}

// GrandTotal sums both week totals
func (r *Record) GrandTotal() decimal.Decimal {
	totals := r.WeekTotals()
	return totals[0].Add(totals[1])
}

// Coercion describes an hours value that was counted as zero
type Coercion struct {
	Field string `json:"field"`
	Raw   string `json:"raw"`
}

// Coerced lists every day whose hours could not be parsed and were treated as zero
func (r *Record) Coerced() []Coercion {
	var out []Coercion
	for w, week := range r.Weeks() {
		for i, d := range week {
			if d.Hours.Invalid {
				out = append(out, Coercion{Field: HoursField(w, i), Raw: d.Hours.Raw})
			}
		}
	}
	return out
}

// HoursField names the hours field of a day, e.g. "week1[3].hours"
func HoursField(week, day int) string {
	return fmt.Sprintf("week%d[%d].hours", week+1, day)
}

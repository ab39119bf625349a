package record

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/zombor/paysheet/internal/payperiod"
)

var maxDayHours = decimal.NewFromInt(24)

// ValidationError reports the first field of a record that failed validation
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks the structural invariants of a record before it is rendered.
//
// Missing identity or cost-centre fields are not errors; they render blank.
// Non-numeric hours are not errors either; they count as zero.
func (r *Record) Validate() error {
	if r.PayPeriodStartDate == (civil.Date{}) {
		return invalid("payPeriodStartDate", "required")
	}
	if r.PayPeriodEndDate == (civil.Date{}) {
		return invalid("payPeriodEndDate", "required")
	}
	if payperiod.Weekday(r.PayPeriodStartDate) != time.Sunday {
		return invalid("payPeriodStartDate", "%s is not a Sunday", r.PayPeriodStartDate)
	}

	var prev civil.Date
	for w, week := range r.Weeks() {
		field := fmt.Sprintf("week%d", w+1)
		if len(week) != payperiod.DaysPerWeek {
			return invalid(field, "expected %d days, got %d", payperiod.DaysPerWeek, len(week))
		}
		for i, d := range week {
			dayField := fmt.Sprintf("%s[%d]", field, i)
			if d.Day != "" {
				weekday, ok := payperiod.ParseLabel(d.Day)
				if !ok || int(weekday) != i {
					return invalid(dayField+".day", "expected %s, got %q", payperiod.Label(time.Weekday(i)), d.Day)
				}
			}
			if d.Date == (civil.Date{}) {
				return invalid(dayField+".date", "required")
			}
			if w == 0 && i == 0 {
				if d.Date != r.PayPeriodStartDate {
					return invalid(dayField+".date", "%s does not match payPeriodStartDate %s", d.Date, r.PayPeriodStartDate)
				}
			} else if d.Date.DaysSince(prev) != 1 {
				return invalid(dayField+".date", "%s does not follow %s", d.Date, prev)
			}
			prev = d.Date

			if !d.Hours.Invalid {
				if d.Hours.Value.IsNegative() {
					return invalid(HoursField(w, i), "negative hours %s", d.Hours.Value)
				}
				if d.Hours.Value.GreaterThan(maxDayHours) {
					return invalid(HoursField(w, i), "%s exceeds %s hours in a day", d.Hours.Value, maxDayHours)
				}
			}
		}
	}
	if r.PayPeriodEndDate != prev {
		return invalid("payPeriodEndDate", "%s does not match last day %s", r.PayPeriodEndDate, prev)
	}

	switch EmploymentType(strings.ToLower(string(r.EmploymentType))) {
	case "", Casual, Regular, Auxiliary:
	default:
		return invalid("employmentType", "unknown type %q", r.EmploymentType)
	}
	if !r.HourlyRate.Invalid && r.HourlyRate.Value.IsNegative() {
		return invalid("hourlyRate", "negative rate %s", r.HourlyRate.Value)
	}
	return nil
}

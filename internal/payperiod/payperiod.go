// Package payperiod derives the two-week reporting window a timesheet covers.
//
// All arithmetic is done on civil (calendar) dates, never on instants, so month
// and year boundaries and daylight-saving transitions cannot shift a day.
package payperiod

import (
	"time"

	"cloud.google.com/go/civil"
)

const (
	// DaysPerWeek is the number of days in a reporting week
	DaysPerWeek = 7
	// WeeksPerPeriod is the number of weeks in a pay period
	WeeksPerPeriod = 2
	// PeriodDays is the length of a pay period in calendar days
	PeriodDays = DaysPerWeek * WeeksPerPeriod
)

var labels = [DaysPerWeek]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

// Day is one calendar date of a pay period
type Day struct {
	Label string     `json:"day"`  // short weekday label, "sun".."sat"
	Name  string     `json:"name"` // full weekday name
	Date  civil.Date `json:"date"`
}

// Week is seven consecutive days starting on a Sunday
type Week struct {
	Days [DaysPerWeek]Day `json:"dates"`
}

// PayPeriod is a fixed fourteen day window starting on a Sunday
type PayPeriod struct {
	Start civil.Date           `json:"start"`
	End   civil.Date           `json:"end"`
	Weeks [WeeksPerPeriod]Week `json:"weeks"`
}

// Calculator computes pay periods for a given anchor date
type Calculator struct {
	// Epoch is any date inside a known pay period. When set, periods repeat every
	// fourteen days from the Sunday on or before it. When zero, the period simply
	// starts on the most recent Sunday.
	Epoch civil.Date

	// Location is the business time zone used by At. Defaults to the instant's own zone.
	Location *time.Location
}

// Current returns the pay period that starts on the most recent Sunday on or before today
func Current(today civil.Date) PayPeriod {
	return Calculator{}.For(today)
}

// For returns the pay period containing today
func (c Calculator) For(today civil.Date) PayPeriod {
	start := MostRecentSunday(today)
	if c.Epoch != (civil.Date{}) {
		offset := start.DaysSince(MostRecentSunday(c.Epoch)) % PeriodDays
		if offset < 0 {
			offset += PeriodDays
		}
		start = start.AddDays(-offset)
	}
	return build(start)
}

// At returns the pay period containing the calendar date of t in the calculator's location
func (c Calculator) At(t time.Time) PayPeriod {
	if c.Location != nil {
		t = t.In(c.Location)
	}
	return c.For(civil.DateOf(t))
}

// MostRecentSunday returns d itself when d is a Sunday, otherwise the Sunday before it
func MostRecentSunday(d civil.Date) civil.Date {
	return d.AddDays(-int(Weekday(d)))
}

// Weekday returns the day of the week of a civil date
func Weekday(d civil.Date) time.Weekday {
	return d.In(time.UTC).Weekday()
}

// Label returns the short lowercase label used for a weekday ("sun", "mon", ...)
func Label(w time.Weekday) string {
	return labels[w]
}

// build generates the fourteen consecutive days beginning at start
func build(start civil.Date) PayPeriod {
	p := PayPeriod{
		Start: start,
		End:   start.AddDays(PeriodDays - 1),
	}
	for i := 0; i < PeriodDays; i++ {
		date := start.AddDays(i)
		weekday := Weekday(date)
		p.Weeks[i/DaysPerWeek].Days[i%DaysPerWeek] = Day{
			Label: labels[weekday],
			Name:  weekday.String(),
			Date:  date,
		}
	}
	return p
}

// Dates returns the fourteen dates of the period in order
func (p PayPeriod) Dates() []civil.Date {
	dates := make([]civil.Date, 0, PeriodDays)
	for _, week := range p.Weeks {
		for _, day := range week.Days {
			dates = append(dates, day.Date)
		}
	}
	return dates
}

// Contains reports whether d falls inside the period
func (p PayPeriod) Contains(d civil.Date) bool {
	return !d.Before(p.Start) && !d.After(p.End)
}

// Next returns the period immediately following p
func (p PayPeriod) Next() PayPeriod {
	return build(p.Start.AddDays(PeriodDays))
}

// Prev returns the period immediately preceding p
func (p PayPeriod) Prev() PayPeriod {
	return build(p.Start.AddDays(-PeriodDays))
}

// Shift returns the period n periods after p, or before it when n is negative
func (p PayPeriod) Shift(n int) PayPeriod {
	for ; n > 0; n-- {
		p = p.Next()
	}
	for ; n < 0; n++ {
		p = p.Prev()
	}
	return p
}

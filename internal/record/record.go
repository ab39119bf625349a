package record

import (
	"strings"

	"cloud.google.com/go/civil"
)

// EmploymentType distinguishes casual from regular/auxiliary assignments
type EmploymentType string

const (
	Casual    EmploymentType = "casual"
	Regular   EmploymentType = "regular"
	Auxiliary EmploymentType = "auxiliary"
)

// DayEntry is the hours and note recorded for one day
type DayEntry struct {
	Day   string     `json:"day"`
	Date  civil.Date `json:"date"`
	Hours Amount     `json:"hours"`
	Note  string     `json:"info"`
}

// Record is a submitted timesheet for one employee and one pay period
type Record struct {
	UserID    string `json:"userId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	WNum      string `json:"wNum"` // employee number
	Group     string `json:"group"`
	Role      string `json:"role"`

	Fund    string `json:"fund"`
	Dept    string `json:"dept"`
	Program string `json:"program"`
	Acct    string `json:"acct"`
	Project string `json:"project"`

	HourlyRate      Amount         `json:"hourlyRate"`
	IsCasual        bool           `json:"isCasual"`
	EmploymentType  EmploymentType `json:"employmentType,omitempty"` // overrides IsCasual when set
	ContractEndDate string         `json:"contractEndDate,omitempty"`

	PayPeriodStartDate civil.Date `json:"payPeriodStartDate"`
	PayPeriodEndDate   civil.Date `json:"payPeriodEndDate"`

	Week1 []DayEntry `json:"week1"`
	Week2 []DayEntry `json:"week2"`

	Notes string `json:"notes"`
}

// FullName joins first and last name
func (r *Record) FullName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// Casual reports whether the employment-type mark belongs in the casual slot
func (r *Record) Casual() bool {
	if r.EmploymentType != "" {
		return EmploymentType(strings.ToLower(string(r.EmploymentType))) == Casual
	}
	return r.IsCasual
}

// Weeks returns both weeks in order
func (r *Record) Weeks() [2][]DayEntry {
	return [2][]DayEntry{r.Week1, r.Week2}
}

// FillDates sets missing day dates from the pay-period start date
func (r *Record) FillDates() {
	if r.PayPeriodStartDate == (civil.Date{}) {
		return
	}
	for w, week := range r.Weeks() {
		for i := range week {
			if week[i].Date == (civil.Date{}) {
				week[i].Date = r.PayPeriodStartDate.AddDays(w*7 + i)
			}
		}
	}
}

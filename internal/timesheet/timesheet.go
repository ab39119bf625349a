package timesheet

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/zombor/paysheet/internal/document"
	"github.com/zombor/paysheet/internal/payperiod"
	"github.com/zombor/paysheet/internal/record"
)

// Submission is a timesheet record together with its rendered document
type Submission struct {
	ID          string                `json:"id"`
	Record      *record.Record        `json:"record"`
	Filename    string                `json:"filename"`              // stored PDF
	BlankFields []document.FieldIssue `json:"blankFields,omitempty"` // fields left blank on the PDF
	CreatedAt   time.Time             `json:"createdAt"`
	UpdatedAt   *time.Time            `json:"updatedAt,omitempty"`
}

// Filter narrows a submission listing. Empty fields match everything.
type Filter struct {
	WNum  string
	Group string
	Date  civil.Date // any day inside the submission's pay period
}

// Matches reports whether a submission passes the filter
func (f Filter) Matches(s *Submission) bool {
	if f.WNum != "" && !strings.EqualFold(f.WNum, s.Record.WNum) {
		return false
	}
	if f.Group != "" && !strings.EqualFold(f.Group, s.Record.Group) {
		return false
	}
	if f.Date != (civil.Date{}) && !payperiod.Current(s.Record.PayPeriodStartDate).Contains(f.Date) {
		return false
	}
	return true
}

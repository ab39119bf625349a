package document

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/zombor/paysheet/internal/payperiod"
	"github.com/zombor/paysheet/internal/record"
)

// Stamp is one piece of text drawn on the template
type Stamp struct {
	Field string  `json:"field"`
	Page  int     `json:"page"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Size  float64 `json:"size"`
	Text  string  `json:"text"`
}

// FieldIssue records a field that was left blank or degraded on the document.
// Issues never abort a render.
type FieldIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (i FieldIssue) Error() string {
	return fmt.Sprintf("%s: %s", i.Field, i.Reason)
}

// required fields are reported when they render blank
var required = map[Field]bool{
	FieldName:           true,
	FieldEmployeeNumber: true,
	FieldFund:           true,
	FieldDept:           true,
	FieldProgram:        true,
	FieldAcct:           true,
	FieldProject:        true,
	FieldPeriodStart:    true,
	FieldPeriodEnd:      true,
	FieldHourlyRate:     true,
}

// Plan computes the text overlay for a record. It is pure: the same record and
// layout always yield the same stamps in the same order.
func Plan(rec *record.Record, l *Layout) ([]Stamp, []FieldIssue) {
	var p planner

	values := fieldValues(rec)
	for _, f := range fieldOrder {
		slot, ok := l.Fields[f]
		if !ok {
			continue
		}
		text := values[f]
		if text == "" {
			if required[f] {
				p.issue(string(f), "missing value")
			}
			continue
		}
		p.stamp(string(f), slot.Page, slot.X, slot.Y, l.sizeOf(slot.Size), text)
	}

	mark := l.EmploymentType.Regular
	markField := "employment_type.regular"
	if rec.Casual() {
		mark = l.EmploymentType.Casual
		markField = "employment_type.casual"
	}
	p.stamp(markField, mark.Page, mark.X, mark.Y, l.sizeOf(mark.Size), l.EmploymentType.Glyph)

	totals := rec.WeekTotals()
	for w, week := range rec.Weeks() {
		block := l.Weeks[w]
		size := l.sizeOf(block.Size)
		for i, day := range week {
			if i >= payperiod.DaysPerWeek {
				break
			}
			y := block.RowY(i)
			if day.Hours.Invalid {
				p.issue(record.HoursField(w, i), fmt.Sprintf("non-numeric hours %q counted as zero", day.Hours.Raw))
			} else {
				p.stamp(record.HoursField(w, i), block.Page, block.HoursX, y, size, day.Hours.Fixed())
			}
			if note := singleLine(day.Note); note != "" {
				p.stamp(fmt.Sprintf("week%d[%d].info", w+1, i), block.Page, block.NoteX, y, size, note)
			}
		}
		p.stamp(fmt.Sprintf("week%d.total", w+1), block.Page, block.TotalX, block.TotalY(), size, totals[w].StringFixed(2))
	}

	return p.stamps, p.issues
}

type planner struct {
	stamps []Stamp
	issues []FieldIssue
}

func (p *planner) stamp(field string, page int, x, y, size float64, text string) {
	p.stamps = append(p.stamps, Stamp{Field: field, Page: page, X: x, Y: y, Size: size, Text: text})
}

func (p *planner) issue(field, reason string) {
	p.issues = append(p.issues, FieldIssue{Field: field, Reason: reason})
}

// fieldValues formats every single-value field of a record as text
func fieldValues(rec *record.Record) map[Field]string {
	rate := ""
	if !rec.HourlyRate.Invalid && !rec.HourlyRate.Value.IsZero() {
		rate = rec.HourlyRate.Fixed()
	}
	return map[Field]string{
		FieldName:           rec.FullName(),
		FieldEmployeeNumber: strings.TrimSpace(rec.WNum),
		FieldFund:           strings.TrimSpace(rec.Fund),
		FieldDept:           strings.TrimSpace(rec.Dept),
		FieldProgram:        strings.TrimSpace(rec.Program),
		FieldAcct:           strings.TrimSpace(rec.Acct),
		FieldProject:        strings.TrimSpace(rec.Project),
		FieldPeriodStart:    formatDate(rec.PayPeriodStartDate),
		FieldPeriodEnd:      formatDate(rec.PayPeriodEndDate),
		FieldHourlyRate:     rate,
		FieldContractEnd:    strings.TrimSpace(rec.ContractEndDate),
		FieldGrandTotal:     rec.GrandTotal().StringFixed(2),
		FieldNotes:          singleLine(rec.Notes),
	}
}

func formatDate(d civil.Date) string {
	if d == (civil.Date{}) {
		return ""
	}
	return d.String()
}

// singleLine collapses whitespace so text stays on one baseline
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

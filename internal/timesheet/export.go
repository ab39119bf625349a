package timesheet

import (
	"fmt"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"github.com/zombor/paysheet/internal/record"
)

const exportSheet = "Timesheets"

var exportHeaders = []any{
	"ID",
	"Employee Number",
	"Name",
	"Group",
	"Period Start",
	"Period End",
	"Employment Type",
	"Hourly Rate",
	"Week 1 Hours",
	"Week 2 Hours",
	"Total Hours",
	"Blank Fields",
	"Submitted",
}

// exportWorkbook writes one row per submission
func exportWorkbook(subs []*Submission) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeaders); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}

	for i, sub := range subs {
		rec := sub.Record
		totals := rec.WeekTotals()
		row := []any{
			sub.ID,
			rec.WNum,
			rec.FullName(),
			rec.Group,
			rec.PayPeriodStartDate.String(),
			rec.PayPeriodEndDate.String(),
			employmentLabel(rec),
			rec.HourlyRate.Decimal().InexactFloat64(),
			totals[0].InexactFloat64(),
			totals[1].InexactFloat64(),
			rec.GrandTotal().InexactFloat64(),
			len(sub.BlankFields),
			sub.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	if len(subs) > 0 {
		style, err := f.NewStyle(&excelize.Style{NumFmt: 2}) // 0.00
		if err != nil {
			return nil, fmt.Errorf("creating style: %w", err)
		}
		last := fmt.Sprintf("K%d", len(subs)+1)
		if err := f.SetCellStyle(exportSheet, "H2", last, style); err != nil {
			return nil, fmt.Errorf("styling totals: %w", err)
		}
	}
	if err := f.SetColWidth(exportSheet, "A", "A", 38); err != nil {
		return nil, fmt.Errorf("sizing columns: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// exportRow is one submission in the CSV export
type exportRow struct {
	ID             string `csv:"id"`
	WNum           string `csv:"employee_number"`
	Name           string `csv:"name"`
	Group          string `csv:"group"`
	PeriodStart    string `csv:"period_start"`
	PeriodEnd      string `csv:"period_end"`
	EmploymentType string `csv:"employment_type"`
	HourlyRate     string `csv:"hourly_rate"`
	Week1Hours     string `csv:"week1_hours"`
	Week2Hours     string `csv:"week2_hours"`
	TotalHours     string `csv:"total_hours"`
	BlankFields    int    `csv:"blank_fields"`
	Submitted      string `csv:"submitted"`
}

// exportCSV writes a header and one row per submission
func exportCSV(subs []*Submission) ([]byte, error) {
	rows := make([]exportRow, 0, len(subs))
	for _, sub := range subs {
		rec := sub.Record
		totals := rec.WeekTotals()
		rows = append(rows, exportRow{
			ID:             sub.ID,
			WNum:           rec.WNum,
			Name:           rec.FullName(),
			Group:          rec.Group,
			PeriodStart:    rec.PayPeriodStartDate.String(),
			PeriodEnd:      rec.PayPeriodEndDate.String(),
			EmploymentType: employmentLabel(rec),
			HourlyRate:     rec.HourlyRate.Fixed(),
			Week1Hours:     totals[0].StringFixed(2),
			Week2Hours:     totals[1].StringFixed(2),
			TotalHours:     rec.GrandTotal().StringFixed(2),
			BlankFields:    len(sub.BlankFields),
			Submitted:      sub.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		})
	}
	data, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return nil, fmt.Errorf("writing csv: %w", err)
	}
	return data, nil
}

func employmentLabel(rec *record.Record) string {
	if rec.Casual() {
		return "Casual"
	}
	if strings.EqualFold(string(rec.EmploymentType), string(record.Auxiliary)) {
		return "Auxiliary"
	}
	return "Regular"
}

package document

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"go.yaml.in/yaml/v3"

	"github.com/zombor/paysheet/internal/payperiod"
)

//go:embed layout.yaml
var defaultLayoutYAML []byte

var defaultLayout = sync.OnceValues(func() (*Layout, error) {
	return ParseLayout(defaultLayoutYAML)
})

// Field names a single-value slot on the template
type Field string

const (
	FieldName           Field = "name"
	FieldEmployeeNumber Field = "employee_number"
	FieldFund           Field = "fund"
	FieldDept           Field = "dept"
	FieldProgram        Field = "program"
	FieldAcct           Field = "acct"
	FieldProject        Field = "project"
	FieldPeriodStart    Field = "period_start"
	FieldPeriodEnd      Field = "period_end"
	FieldHourlyRate     Field = "hourly_rate"
	FieldContractEnd    Field = "contract_end"
	FieldGrandTotal     Field = "grand_total"
	FieldNotes          Field = "notes"
)

// fieldOrder is the drawing order of single-value fields and the set of known names
var fieldOrder = []Field{
	FieldName,
	FieldEmployeeNumber,
	FieldFund,
	FieldDept,
	FieldProgram,
	FieldAcct,
	FieldProject,
	FieldPeriodStart,
	FieldPeriodEnd,
	FieldHourlyRate,
	FieldContractEnd,
	FieldGrandTotal,
	FieldNotes,
}

// Slot is a text position on a template page
type Slot struct {
	Page int     `yaml:"page"`
	X    float64 `yaml:"x"`
	Y    float64 `yaml:"y"`
	Size float64 `yaml:"size,omitempty"` // overrides the layout font size
}

// MarkSlots holds the two mutually exclusive employment-type positions
type MarkSlots struct {
	Glyph   string `yaml:"glyph"`
	Casual  Slot   `yaml:"casual"`
	Regular Slot   `yaml:"regular"`
}

// WeekBlock positions the seven day rows and the subtotal of one week
type WeekBlock struct {
	Page       int     `yaml:"page"`
	BaseY      float64 `yaml:"base_y"`
	Pitch      float64 `yaml:"pitch"`
	FirstPitch float64 `yaml:"first_pitch,omitempty"` // gap between Sunday and Monday, defaults to pitch
	HoursX     float64 `yaml:"hours_x"`
	NoteX      float64 `yaml:"note_x"`
	TotalX     float64 `yaml:"total_x"`
	Size       float64 `yaml:"size,omitempty"`
}

// RowY returns the baseline of a row, counted from Sunday = 0
func (w WeekBlock) RowY(row int) float64 {
	if row == 0 {
		return w.BaseY
	}
	first := w.FirstPitch
	if first <= 0 {
		first = w.Pitch
	}
	return w.BaseY - first - float64(row-1)*w.Pitch
}

// TotalY returns the baseline of the subtotal row, directly after Saturday
func (w WeekBlock) TotalY() float64 {
	return w.RowY(payperiod.DaysPerWeek)
}

// Layout maps timesheet fields to positions on the template.
// A Layout is read-only once parsed and safe to share between renders.
type Layout struct {
	Pages          int            `yaml:"pages"`
	Font           string         `yaml:"font"`
	Size           float64        `yaml:"size"`
	Color          [3]int         `yaml:"color"`
	Fields         map[Field]Slot `yaml:"fields"`
	EmploymentType MarkSlots      `yaml:"employment_type"`
	Weeks          []WeekBlock    `yaml:"weeks"`
	BackgroundDPI  float64        `yaml:"background_dpi,omitempty"`
}

// defaultBackgroundDPI is used when the layout leaves background_dpi unset
const defaultBackgroundDPI = 150

// Resolution returns the DPI the template background is rasterised at
func (l *Layout) Resolution() float64 {
	if l.BackgroundDPI > 0 {
		return l.BackgroundDPI
	}
	return defaultBackgroundDPI
}

// DefaultLayout returns the layout embedded in the binary. Callers must not modify it.
func DefaultLayout() (*Layout, error) {
	return defaultLayout()
}

// LoadLayout reads a layout from a YAML file
func LoadLayout(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading layout: %w", err)
	}
	return ParseLayout(data)
}

// ParseLayout decodes and validates a YAML layout
func ParseLayout(data []byte) (*Layout, error) {
	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parsing layout: %w", err)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

// Validate checks that every slot lands on an existing page
func (l *Layout) Validate() error {
	if l.Pages <= 0 {
		return fmt.Errorf("layout: pages must be positive")
	}
	if l.Font == "" {
		return fmt.Errorf("layout: font is required")
	}
	if l.Size <= 0 {
		return fmt.Errorf("layout: size must be positive")
	}
	if l.BackgroundDPI < 0 || l.BackgroundDPI > 600 {
		return fmt.Errorf("layout: background_dpi must be between 0 and 600")
	}
	for _, c := range l.Color {
		if c < 0 || c > 255 {
			return fmt.Errorf("layout: color component %d out of range", c)
		}
	}

	known := make(map[Field]bool, len(fieldOrder))
	for _, f := range fieldOrder {
		known[f] = true
	}
	for name, slot := range l.Fields {
		if !known[name] {
			return fmt.Errorf("layout: unknown field %q", name)
		}
		if err := l.checkPage(string(name), slot.Page); err != nil {
			return err
		}
	}

	if l.EmploymentType.Glyph == "" {
		return fmt.Errorf("layout: employment_type glyph is required")
	}
	if l.EmploymentType.Casual == l.EmploymentType.Regular {
		return fmt.Errorf("layout: casual and regular marks share a position")
	}
	if err := l.checkPage("employment_type.casual", l.EmploymentType.Casual.Page); err != nil {
		return err
	}
	if err := l.checkPage("employment_type.regular", l.EmploymentType.Regular.Page); err != nil {
		return err
	}

	if len(l.Weeks) != payperiod.WeeksPerPeriod {
		return fmt.Errorf("layout: expected %d week blocks, got %d", payperiod.WeeksPerPeriod, len(l.Weeks))
	}
	for i, w := range l.Weeks {
		if err := l.checkPage(fmt.Sprintf("weeks[%d]", i), w.Page); err != nil {
			return err
		}
		if w.Pitch <= 0 {
			return fmt.Errorf("layout: weeks[%d] pitch must be positive", i)
		}
		if w.FirstPitch < 0 {
			return fmt.Errorf("layout: weeks[%d] first_pitch must not be negative", i)
		}
	}
	return nil
}

func (l *Layout) checkPage(name string, page int) error {
	if page < 0 || page >= l.Pages {
		return fmt.Errorf("layout: %s is on page %d, template has %d", name, page, l.Pages)
	}
	return nil
}

// sizeOf returns the font size for a slot
func (l *Layout) sizeOf(override float64) float64 {
	if override > 0 {
		return override
	}
	return l.Size
}

package timesheet

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/zombor/paysheet/internal/document"
	"github.com/zombor/paysheet/internal/payperiod"
	"github.com/zombor/paysheet/internal/record"
)

// ErrPersist marks failures to store a rendered document or its record
var ErrPersist = errors.New("persisting timesheet")

// IDGenerator generates unique IDs for submissions
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates random UUIDs
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles timesheet operations
type Service struct {
	db          DB
	renderer    document.Renderer
	storage     Storage
	calendar    payperiod.Calculator
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, renderer document.Renderer, storage Storage, calendar payperiod.Calculator) *Service {
	return NewServiceWithDeps(db, renderer, storage, calendar, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, renderer document.Renderer, storage Storage, calendar payperiod.Calculator, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		renderer:    renderer,
		storage:     storage,
		calendar:    calendar,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\-_]`)
	dashes      = regexp.MustCompile(`-+`)
)

// sanitizeName keeps a value safe for use inside a file name
func sanitizeName(s string) string {
	s = unsafeChars.ReplaceAllString(strings.TrimSpace(s), "-")
	s = strings.Trim(dashes.ReplaceAllString(s, "-"), "-")
	if len(s) > 32 {
		s = s[:32]
	}
	if s == "" {
		s = "employee"
	}
	return s
}

// documentFilename names the stored PDF; the ID keeps concurrent submissions apart
func documentFilename(rec *record.Record, id string) string {
	return fmt.Sprintf("timesheet_%s_%s_%s.pdf", sanitizeName(rec.WNum), rec.PayPeriodStartDate, id)
}

// CurrentPeriod returns the pay period containing the current time
func (s *Service) CurrentPeriod() payperiod.PayPeriod {
	return s.calendar.At(s.timeSource.Now())
}

// PeriodFor returns the pay period containing a date
func (s *Service) PeriodFor(d civil.Date) payperiod.PayPeriod {
	return s.calendar.For(d)
}

// Submit validates, renders and stores a timesheet
func (s *Service) Submit(rec *record.Record) (*Submission, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	result, err := s.renderer.Render(rec)
	if err != nil {
		return nil, fmt.Errorf("rendering timesheet: %w", err)
	}

	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	savedPath, err := s.storage.Save(documentFilename(rec, id), result.PDF)
	if err != nil {
		return nil, fmt.Errorf("%w: saving document: %w", ErrPersist, err)
	}

	sub := &Submission{
		ID:          id,
		Record:      rec,
		Filename:    savedPath,
		BlankFields: result.Blank,
		CreatedAt:   now,
	}

	if err := s.db.SaveSubmission(sub); err != nil {
		// Clean up file if database save fails
		if delErr := s.storage.Delete(savedPath); delErr != nil {
			slog.Warn("Failed to remove orphaned document", "filename", savedPath, "error", delErr)
		}
		return nil, fmt.Errorf("%w: saving submission: %w", ErrPersist, err)
	}

	if result.Degraded() {
		slog.Warn("Timesheet generated with blank fields", "id", id, "wnum", rec.WNum, "blank", len(result.Blank))
	} else {
		slog.Info("Timesheet generated", "id", id, "wnum", rec.WNum, "period_start", rec.PayPeriodStartDate)
	}
	return sub, nil
}

// UpdateTimesheet replaces the record of an existing submission, re-renders
// its document and removes the superseded one. The submission keeps its ID and
// creation time.
func (s *Service) UpdateTimesheet(id string, rec *record.Record) (*Submission, error) {
	old, err := s.db.GetSubmission(id)
	if err != nil {
		return nil, fmt.Errorf("getting timesheet for update: %w", err)
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	result, err := s.renderer.Render(rec)
	if err != nil {
		return nil, fmt.Errorf("rendering timesheet: %w", err)
	}

	// a fresh name leaves the old document intact until the row is replaced
	savedPath, err := s.storage.Save(documentFilename(rec, s.idGenerator.Generate()), result.PDF)
	if err != nil {
		return nil, fmt.Errorf("%w: saving document: %w", ErrPersist, err)
	}

	now := s.timeSource.Now()
	sub := &Submission{
		ID:          old.ID,
		Record:      rec,
		Filename:    savedPath,
		BlankFields: result.Blank,
		CreatedAt:   old.CreatedAt,
		UpdatedAt:   &now,
	}

	if err := s.db.SaveSubmission(sub); err != nil {
		if savedPath != old.Filename {
			if delErr := s.storage.Delete(savedPath); delErr != nil {
				slog.Warn("Failed to remove orphaned document", "filename", savedPath, "error", delErr)
			}
		}
		return nil, fmt.Errorf("%w: saving submission: %w", ErrPersist, err)
	}

	if savedPath != old.Filename {
		if err := s.storage.Delete(old.Filename); err != nil {
			slog.Warn("Failed to delete superseded document", "filename", old.Filename, "error", err)
		}
	}

	slog.Info("Timesheet updated", "id", id, "wnum", rec.WNum, "period_start", rec.PayPeriodStartDate, "blank", len(result.Blank))
	return sub, nil
}

// GetTimesheet retrieves a submission by ID
func (s *Service) GetTimesheet(id string) (*Submission, error) {
	sub, err := s.db.GetSubmission(id)
	if err != nil {
		return nil, fmt.Errorf("getting timesheet: %w", err)
	}
	return sub, nil
}

// ListTimesheets returns matching submissions, oldest first
func (s *Service) ListTimesheets(filter Filter) ([]*Submission, error) {
	subs, err := s.db.ListSubmissions()
	if err != nil {
		return nil, fmt.Errorf("listing timesheets: %w", err)
	}

	matched := make([]*Submission, 0, len(subs))
	for _, sub := range subs {
		if filter.Matches(sub) {
			matched = append(matched, sub)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})
	return matched, nil
}

// DeleteTimesheet removes a submission and its document
func (s *Service) DeleteTimesheet(id string) error {
	sub, err := s.db.GetSubmission(id)
	if err != nil {
		return fmt.Errorf("getting timesheet for deletion: %w", err)
	}

	if err := s.storage.Delete(sub.Filename); err != nil {
		// Log error but continue with database deletion
		slog.Warn("Failed to delete file", "filename", sub.Filename, "error", err)
	}

	if err := s.db.DeleteSubmission(id); err != nil {
		return fmt.Errorf("deleting timesheet from database: %w", err)
	}
	return nil
}

// GetTimesheetFile retrieves the PDF of a submission
func (s *Service) GetTimesheetFile(id string) ([]byte, error) {
	sub, err := s.db.GetSubmission(id)
	if err != nil {
		return nil, fmt.Errorf("getting timesheet: %w", err)
	}
	return s.GetFile(sub.Filename)
}

// GetFile retrieves a stored document by file name
func (s *Service) GetFile(name string) ([]byte, error) {
	data, err := s.storage.Get(name)
	if err != nil {
		return nil, fmt.Errorf("getting timesheet file: %w", err)
	}
	return data, nil
}

// PreviewTimesheet renders one page (zero-based) of a submission as a PNG
func (s *Service) PreviewTimesheet(id string, page, width int) ([]byte, error) {
	data, err := s.GetTimesheetFile(id)
	if err != nil {
		return nil, err
	}
	img, err := document.Preview(data, page, width)
	if err != nil {
		return nil, fmt.Errorf("previewing timesheet: %w", err)
	}
	return img, nil
}

// ExportTimesheets returns matching submissions as an xlsx workbook
func (s *Service) ExportTimesheets(filter Filter) ([]byte, error) {
	subs, err := s.ListTimesheets(filter)
	if err != nil {
		return nil, err
	}
	data, err := exportWorkbook(subs)
	if err != nil {
		return nil, fmt.Errorf("exporting timesheets: %w", err)
	}
	return data, nil
}

// ExportTimesheetsCSV returns matching submissions as CSV, one row per submission
func (s *Service) ExportTimesheetsCSV(filter Filter) ([]byte, error) {
	subs, err := s.ListTimesheets(filter)
	if err != nil {
		return nil, err
	}
	data, err := exportCSV(subs)
	if err != nil {
		return nil, fmt.Errorf("exporting timesheets: %w", err)
	}
	return data, nil
}

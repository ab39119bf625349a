package timesheet

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/zombor/paysheet/internal/document"
	"github.com/zombor/paysheet/internal/payperiod"
	"github.com/zombor/paysheet/internal/record"
)

const (
	maxRecordSize       = 1 << 20 // 1MB
	defaultPreviewWidth = 800
	maxPeriodOffset     = 26 // one year either side
)

// generateResponse is returned after a timesheet PDF is generated
type generateResponse struct {
	Message     string                `json:"message"`
	PDFURL      string                `json:"pdfUrl"`
	ID          string                `json:"id"`
	BlankFields []document.FieldIssue `json:"blankFields"`
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// writeJSON encodes v as the response body
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

// writeError writes an {"error": message} response
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, r, status, map[string]string{"error": message})
}

// newGenerateResponse describes a freshly rendered submission
func newGenerateResponse(sub *Submission, verb string) generateResponse {
	resp := generateResponse{
		Message:     "PDF " + verb + " successfully",
		PDFURL:      fileURL(sub.Filename),
		ID:          sub.ID,
		BlankFields: sub.BlankFields,
	}
	if len(sub.BlankFields) > 0 {
		resp.Message = "PDF " + verb + " with some fields blank"
	} else {
		resp.BlankFields = []document.FieldIssue{}
	}
	return resp
}

// writeRenderError maps a failed submit or update to a response
func writeRenderError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *record.ValidationError
	var terr *document.TemplateError
	switch {
	case errors.As(err, &verr):
		writeError(w, r, http.StatusBadRequest, verr.Error())
	case errors.Is(err, ErrNotFound):
		writeError(w, r, http.StatusNotFound, "Timesheet not found")
	case errors.As(err, &terr):
		slog.Error("Error loading template", "path", terr.Path, "error", terr.Err)
		writeError(w, r, http.StatusInternalServerError, "Could not generate document: template unavailable")
	case errors.Is(err, ErrPersist):
		slog.Error("Error storing timesheet", "error", err)
		writeError(w, r, http.StatusInternalServerError, "Could not generate document: storage failure")
	default:
		slog.Error("Error generating timesheet", "error", err)
		writeError(w, r, http.StatusInternalServerError, "Could not generate document")
	}
}

// fileURL is where a stored document can be downloaded from
func fileURL(name string) string {
	return "/files/" + url.PathEscape(name)
}

// handlePayPeriod returns the current pay period, or the one containing ?date=.
// ?offset= steps that many periods forwards or backwards.
func (s *Server) handlePayPeriod(w http.ResponseWriter, r *http.Request) {
	period := s.service.CurrentPeriod()
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := payperiod.ParseDate(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		period = s.service.PeriodFor(d)
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < -maxPeriodOffset || offset > maxPeriodOffset {
		writeError(w, r, http.StatusBadRequest, "Invalid offset")
		return
	}
	writeJSON(w, r, http.StatusOK, period.Shift(offset))
}

// handleGeneratePDF validates a timesheet record, renders it and stores the result
func (s *Server) handleGeneratePDF(w http.ResponseWriter, r *http.Request) {
	rec, err := record.Decode(http.MaxBytesReader(w, r.Body, maxRecordSize))
	if err != nil {
		slog.Warn("Rejected timesheet", "error", err)
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	sub, err := s.service.Submit(rec)
	if err != nil {
		writeRenderError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, newGenerateResponse(sub, "generated"))
}

// handleUpdateTimesheet replaces the record of a submission and re-renders its document
func (s *Server) handleUpdateTimesheet(w http.ResponseWriter, r *http.Request) {
	rec, err := record.Decode(http.MaxBytesReader(w, r.Body, maxRecordSize))
	if err != nil {
		slog.Warn("Rejected timesheet update", "error", err)
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	sub, err := s.service.UpdateTimesheet(chi.URLParam(r, "id"), rec)
	if err != nil {
		writeRenderError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newGenerateResponse(sub, "updated"))
}

// handleListTimesheets returns submissions filtered by ?wNum=, ?group= and ?date=
func (s *Server) handleListTimesheets(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFrom(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	subs, err := s.service.ListTimesheets(filter)
	if err != nil {
		slog.Error("Error listing timesheets", "error", err)
		writeError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, r, http.StatusOK, subs)
}

// handleGetTimesheet returns a single submission
func (s *Server) handleGetTimesheet(w http.ResponseWriter, r *http.Request) {
	sub, err := s.service.GetTimesheet(chi.URLParam(r, "id"))
	if err != nil {
		s.notFoundOr500(w, r, err, "Timesheet not found")
		return
	}
	writeJSON(w, r, http.StatusOK, sub)
}

// handleDeleteTimesheet deletes a submission and its document
func (s *Server) handleDeleteTimesheet(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteTimesheet(chi.URLParam(r, "id")); err != nil {
		s.notFoundOr500(w, r, err, "Timesheet not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetTimesheetFile returns the PDF of a submission
func (s *Server) handleGetTimesheetFile(w http.ResponseWriter, r *http.Request) {
	data, err := s.service.GetTimesheetFile(chi.URLParam(r, "id"))
	if err != nil {
		s.notFoundOr500(w, r, err, "File not found")
		return
	}
	writePDF(w, data)
}

// handleFile serves a stored document by name
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	data, err := s.service.GetFile(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, "File not found")
		return
	}
	writePDF(w, data)
}

// handlePreview renders a page of a submission as PNG. ?page= is one-based.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil || page < 1 {
		writeError(w, r, http.StatusBadRequest, "Invalid page")
		return
	}
	width, err := queryInt(r, "width", defaultPreviewWidth)
	if err != nil || width < 0 {
		writeError(w, r, http.StatusBadRequest, "Invalid width")
		return
	}

	img, err := s.service.PreviewTimesheet(chi.URLParam(r, "id"), page-1, width)
	if errors.Is(err, document.ErrPageRange) {
		writeError(w, r, http.StatusNotFound, "Page not found")
		return
	}
	if err != nil {
		s.notFoundOr500(w, r, err, "Preview not available")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(img)
}

// handleExport returns submissions as an xlsx workbook
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, s.service.ExportTimesheets,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "timesheets.xlsx")
}

// handleExportCSV returns submissions as CSV
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, s.service.ExportTimesheetsCSV, "text/csv; charset=utf-8", "timesheets.csv")
}

func (s *Server) export(w http.ResponseWriter, r *http.Request, exporter func(Filter) ([]byte, error), contentType, filename string) {
	filter, err := filterFrom(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	data, err := exporter(filter)
	if err != nil {
		slog.Error("Error exporting timesheets", "format", filename, "error", err)
		writeError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Write(data)
}

// notFoundOr500 maps missing submissions to 404 and everything else to 500
func (s *Server) notFoundOr500(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	if errors.Is(err, ErrNotFound) {
		writeError(w, r, http.StatusNotFound, notFound)
		return
	}
	slog.Error("Error handling timesheet request", "error", err)
	writeError(w, r, http.StatusInternalServerError, "Internal server error")
}

func writePDF(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Write(data)
}

func filterFrom(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	filter := Filter{WNum: q.Get("wNum"), Group: q.Get("group")}
	if raw := q.Get("date"); raw != "" {
		d, err := payperiod.ParseDate(raw)
		if err != nil {
			return Filter{}, err
		}
		filter.Date = d
	}
	return filter, nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

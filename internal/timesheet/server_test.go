package timesheet

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-pdf/fpdf"
	json "github.com/goccy/go-json"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/paysheet/internal/document"
	"github.com/zombor/paysheet/internal/payperiod"
)

func onePagePDF() []byte {
	GinkgoHelper()
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.AddPage()
	pdf.Text(40, 40, "TIMESHEET")
	var buf bytes.Buffer
	Expect(pdf.Output(&buf)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		storage     *mockStorage
		renderer    *mockRenderer
		timeSrc     *mockTimeSource
		auth        BasicAuth
		ghttpServer *ghttp.Server
	)

	setupServer := func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		service := NewServiceWithDeps(db, renderer, storage, payperiod.Calculator{}, &mockIDGenerator{id: "test-id"}, timeSrc)
		server := NewServerWithRouter(service, auth, chi.NewRouter())
		ghttpServer = ghttp.NewServer()
		for _, method := range []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"} {
			ghttpServer.RouteToHandler(method, regexp.MustCompile(`.*`), server.ServeHTTP)
		}
	}

	do := func(method, path string, body []byte) *http.Response {
		GinkgoHelper()
		req, err := http.NewRequest(method, ghttpServer.URL()+path, bytes.NewReader(body))
		Expect(err).NotTo(HaveOccurred())
		if auth.Username != "" {
			req.SetBasicAuth(auth.Username, auth.Password)
		}
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(resp.Body.Close)
		return resp
	}

	decode := func(resp *http.Response, v any) {
		GinkgoHelper()
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(json.Unmarshal(body, v)).To(Succeed())
	}

	BeforeEach(func() {
		db = newMockDB()
		storage = newMockStorage()
		renderer = newMockRenderer()
		timeSrc = &mockTimeSource{now: time.Date(2024, 1, 17, 10, 0, 0, 0, time.UTC)}
		auth = BasicAuth{}
		ghttpServer = nil
	})

	JustBeforeEach(func() {
		setupServer()
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
	})

	Describe("handlePayPeriod", func() {
		It("returns the current period", func() {
			resp := do("GET", "/api/pay-period", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))

			var period payperiod.PayPeriod
			decode(resp, &period)
			Expect(period.Start.String()).To(Equal("2024-01-14"))
			Expect(period.End.String()).To(Equal("2024-01-27"))
			Expect(period.Weeks[0].Days[0].Label).To(Equal("sun"))
		})

		It("returns the period for a given date", func() {
			resp := do("GET", "/api/pay-period?date=2024-03-02", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var period payperiod.PayPeriod
			decode(resp, &period)
			Expect(period.Start.String()).To(Equal("2024-02-25"))
		})

		It("rejects an unparseable date", func() {
			resp := do("GET", "/api/pay-period?date=someday", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("steps back by an offset", func() {
			var period payperiod.PayPeriod
			decode(do("GET", "/api/pay-period?date=2024-03-02&offset=-1", nil), &period)
			Expect(period.Start.String()).To(Equal("2024-02-11"))
		})

		It("steps forward by an offset", func() {
			var period payperiod.PayPeriod
			decode(do("GET", "/api/pay-period?offset=2", nil), &period)
			Expect(period.Start.String()).To(Equal("2024-02-11"))
		})

		It("rejects an offset beyond a year", func() {
			resp := do("GET", "/api/pay-period?offset=27", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("handleGeneratePDF", func() {
		var body []byte

		BeforeEach(func() {
			var err error
			body, err = json.Marshal(newRecord())
			Expect(err).NotTo(HaveOccurred())
		})

		When("the record is valid", func() {
			It("returns 201 with a link to the document", func() {
				resp := do("POST", "/api/timesheets/generate-pdf", body)
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))

				var out generateResponse
				decode(resp, &out)
				Expect(out.Message).To(Equal("PDF generated successfully"))
				Expect(out.ID).To(Equal("test-id"))
				Expect(out.PDFURL).To(Equal("/files/timesheet_W0012345_2024-01-07_test-id.pdf"))
				Expect(out.BlankFields).To(BeEmpty())
			})

			It("serves the document at the returned link", func() {
				var out generateResponse
				decode(do("POST", "/api/timesheets", body), &out)

				resp := do("GET", out.PDFURL, nil)
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(resp.Header.Get("Content-Type")).To(Equal("application/pdf"))
			})
		})

		When("fields are left blank", func() {
			BeforeEach(func() {
				renderer.result = &document.Result{
					PDF:   []byte("%PDF-1.4 fake"),
					Blank: []document.FieldIssue{{Field: "fund", Reason: "missing value"}},
				}
			})

			It("reports them", func() {
				resp := do("POST", "/api/timesheets/generate-pdf", body)
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))

				var out generateResponse
				decode(resp, &out)
				Expect(out.Message).To(Equal("PDF generated with some fields blank"))
				Expect(out.BlankFields).To(ConsistOf(document.FieldIssue{Field: "fund", Reason: "missing value"}))
			})
		})

		When("the body is not JSON", func() {
			It("returns 400", func() {
				resp := do("POST", "/api/timesheets/generate-pdf", []byte("{"))
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

				var out map[string]string
				decode(resp, &out)
				Expect(out).To(HaveKey("error"))
			})
		})

		When("a week has thirteen days in total", func() {
			BeforeEach(func() {
				rec := newRecord()
				rec.Week2 = rec.Week2[:6]
				var err error
				body, err = json.Marshal(rec)
				Expect(err).NotTo(HaveOccurred())
			})

			It("returns 400 without rendering", func() {
				resp := do("POST", "/api/timesheets/generate-pdf", body)
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(renderer.calls).To(Equal(0))
			})
		})

		When("the template is unavailable", func() {
			BeforeEach(func() {
				renderer.renderErr = &document.TemplateError{Path: "template.pdf", Err: errors.New("no such file")}
			})

			It("returns 500 with an error message", func() {
				resp := do("POST", "/api/timesheets/generate-pdf", body)
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))

				var out map[string]string
				decode(resp, &out)
				Expect(out["error"]).To(ContainSubstring("template"))
			})
		})

		When("storage fails", func() {
			BeforeEach(func() {
				storage.saveErr = errors.New("disk full")
			})

			It("returns 500", func() {
				resp := do("POST", "/api/timesheets/generate-pdf", body)
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
				Expect(db.submissions).To(BeEmpty())
			})
		})
	})

	Describe("handleListTimesheets", func() {
		BeforeEach(func() {
			db.submissions["a"] = newSubmission("a", "W1", "Library", timeSrc.now)
			db.submissions["b"] = newSubmission("b", "W2", "Parks", timeSrc.now)
		})

		It("returns all submissions", func() {
			resp := do("GET", "/api/timesheets", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var subs []*Submission
			decode(resp, &subs)
			Expect(subs).To(HaveLen(2))
		})

		It("filters by employee number", func() {
			var subs []*Submission
			decode(do("GET", "/api/timesheets?wNum=W2", nil), &subs)
			Expect(subs).To(HaveLen(1))
			Expect(subs[0].ID).To(Equal("b"))
		})

		It("filters by a date in the pay period", func() {
			var subs []*Submission
			decode(do("GET", "/api/timesheets?date=2024-02-01", nil), &subs)
			Expect(subs).To(BeEmpty())
		})

		It("rejects an unparseable date", func() {
			resp := do("GET", "/api/timesheets?date=soon", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		When("the database fails", func() {
			BeforeEach(func() {
				db.listErr = errors.New("database error")
			})

			It("returns 500", func() {
				resp := do("GET", "/api/timesheets", nil)
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
			})
		})
	})

	Describe("handleGetTimesheet", func() {
		It("returns a stored submission", func() {
			db.submissions["a"] = newSubmission("a", "W1", "Library", timeSrc.now)
			resp := do("GET", "/api/timesheets/a", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var sub Submission
			decode(resp, &sub)
			Expect(sub.Record.WNum).To(Equal("W1"))
		})

		It("returns 404 for an unknown ID", func() {
			resp := do("GET", "/api/timesheets/missing", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("handleUpdateTimesheet", func() {
		var body []byte

		BeforeEach(func() {
			db.submissions["a"] = newSubmission("a", "W0012345", "Library", timeSrc.now.Add(-time.Hour))
			storage.files["a.pdf"] = []byte("old pdf")
			rec := newRecord()
			rec.Notes = "Corrected"
			var err error
			body, err = json.Marshal(rec)
			Expect(err).NotTo(HaveOccurred())
		})

		It("re-renders the submission and links the new document", func() {
			resp := do("PUT", "/api/timesheets/a", body)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var out generateResponse
			decode(resp, &out)
			Expect(out.Message).To(Equal("PDF updated successfully"))
			Expect(out.ID).To(Equal("a"))
			Expect(out.PDFURL).To(Equal("/files/timesheet_W0012345_2024-01-07_test-id.pdf"))
			Expect(db.submissions["a"].Record.Notes).To(Equal("Corrected"))
			Expect(storage.files).NotTo(HaveKey("a.pdf"))
		})

		It("returns 404 for an unknown ID", func() {
			resp := do("PUT", "/api/timesheets/missing", body)
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("returns 400 for an invalid record", func() {
			resp := do("PUT", "/api/timesheets/a", []byte(`{"payPeriodStartDate": "2024-01-08"}`))
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(storage.files).To(HaveKey("a.pdf"))
		})

		It("returns 400 for a body that is not JSON", func() {
			resp := do("PUT", "/api/timesheets/a", []byte("nope"))
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("handleDeleteTimesheet", func() {
		It("deletes a stored submission", func() {
			db.submissions["a"] = newSubmission("a", "W1", "Library", timeSrc.now)
			storage.files["a.pdf"] = []byte("pdf")
			resp := do("DELETE", "/api/timesheets/a", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(db.submissions).To(BeEmpty())
			Expect(storage.files).To(BeEmpty())
		})

		It("returns 404 for an unknown ID", func() {
			resp := do("DELETE", "/api/timesheets/missing", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("handleGetTimesheetFile", func() {
		It("returns the PDF", func() {
			db.submissions["a"] = newSubmission("a", "W1", "Library", timeSrc.now)
			storage.files["a.pdf"] = []byte("%PDF-1.4")
			resp := do("GET", "/api/timesheets/a/pdf", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("application/pdf"))
			data, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("%PDF-1.4"))
		})
	})

	Describe("handlePreview", func() {
		BeforeEach(func() {
			db.submissions["a"] = newSubmission("a", "W1", "Library", timeSrc.now)
			storage.files["a.pdf"] = onePagePDF()
		})

		It("renders the first page as PNG", func() {
			resp := do("GET", "/api/timesheets/a/preview?width=120", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("image/png"))
		})

		It("rejects page zero", func() {
			resp := do("GET", "/api/timesheets/a/preview?page=0", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("returns 404 for a page past the end", func() {
			resp := do("GET", "/api/timesheets/a/preview?page=3", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			var out map[string]string
			decode(resp, &out)
			Expect(out).To(HaveKeyWithValue("error", "Page not found"))
		})

		It("returns 404 for an unknown ID", func() {
			resp := do("GET", "/api/timesheets/missing/preview", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("handleExport", func() {
		It("returns a workbook", func() {
			db.submissions["a"] = newSubmission("a", "W1", "Library", timeSrc.now)
			resp := do("GET", "/api/timesheets/export.xlsx", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(ContainSubstring("spreadsheetml"))
			Expect(resp.Header.Get("Content-Disposition")).To(ContainSubstring("timesheets.xlsx"))
		})
	})

	Describe("handleExportCSV", func() {
		It("returns CSV", func() {
			db.submissions["a"] = newSubmission("a", "W1", "Library", timeSrc.now)
			resp := do("GET", "/api/timesheets/export.csv?wNum=W1", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(HavePrefix("text/csv"))
			Expect(resp.Header.Get("Content-Disposition")).To(ContainSubstring("timesheets.csv"))
			data, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(HavePrefix("id,employee_number,"))
			Expect(string(data)).To(ContainSubstring("a,W1,Jane Doe"))
		})
	})

	Describe("handleFile", func() {
		It("returns 404 for an unknown file", func() {
			resp := do("GET", "/files/missing.pdf", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("CORS", func() {
		It("answers preflight requests", func() {
			resp := do("OPTIONS", "/api/timesheets/generate-pdf", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
			Expect(resp.Header.Get("Access-Control-Allow-Methods")).To(ContainSubstring("PUT"))
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "admin", Password: "secret"}
		})

		It("accepts valid credentials", func() {
			resp := do("GET", "/api/pay-period", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("rejects missing credentials", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/pay-period")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(resp.Header.Get("WWW-Authenticate")).To(ContainSubstring("Basic"))
		})
	})
})

package timesheet

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server handles HTTP requests for timesheets
type Server struct {
	service   *Service
	basicAuth BasicAuth
	router    chi.Router
}

// BasicAuth holds basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// NewServer creates a new Server with a fresh router
func NewServer(service *Service, basicAuth BasicAuth) *Server {
	return NewServerWithRouter(service, basicAuth, chi.NewRouter())
}

// NewServerWithRouter creates a new Server on a caller-supplied router
func NewServerWithRouter(service *Service, basicAuth BasicAuth, router chi.Router) *Server {
	s := &Server{
		service:   service,
		basicAuth: basicAuth,
		router:    router,
	}
	s.registerRoutes()
	return s
}

// authenticate checks basic auth credentials
func (s *Server) authenticate(r *http.Request) bool {
	if s.basicAuth.Username == "" && s.basicAuth.Password == "" {
		return true // No auth required if not configured
	}

	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(s.basicAuth.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(s.basicAuth.Password)) == 1
	return userOK && passOK
}

// corsMiddleware adds CORS headers to responses and answers preflight requests
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAuth middleware
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			w.Header().Set("WWW-Authenticate", `Basic realm="Paysheet"`)
			writeError(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs each request once it completes
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("Request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// registerRoutes registers all API routes on the server's router
func (s *Server) registerRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.corsMiddleware)
	s.router.Use(s.requireAuth)

	s.router.Get("/api/pay-period", s.handlePayPeriod)

	s.router.Route("/api/timesheets", func(r chi.Router) {
		r.Get("/", s.handleListTimesheets)
		r.Post("/", s.handleGeneratePDF)
		r.Post("/generate-pdf", s.handleGeneratePDF)
		r.Get("/export.xlsx", s.handleExport)
		r.Get("/export.csv", s.handleExportCSV)
		r.Get("/{id}", s.handleGetTimesheet)
		r.Put("/{id}", s.handleUpdateTimesheet)
		r.Delete("/{id}", s.handleDeleteTimesheet)
		r.Get("/{id}/pdf", s.handleGetTimesheetFile)
		r.Get("/{id}/preview", s.handlePreview)
	})

	s.router.Get("/files/{name}", s.handleFile)
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	server := &http.Server{
		Addr:    addr,
		Handler: s.router,

		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil {
		return fmt.Errorf("serving http: %w", err)
	}
	return nil
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

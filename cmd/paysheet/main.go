package main

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/paysheet/internal/document"
	"github.com/zombor/paysheet/internal/payperiod"
	"github.com/zombor/paysheet/internal/timesheet"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// A .env file is optional; real environment variables win
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	flags := ff.NewFlagSet("paysheet")
	var (
		port         = flags.IntLong("port", 8080, "HTTP server port")
		dbPath       = flags.StringLong("db", "paysheet.db", "Database file path")
		dbDriver     = flags.StringLong("db-driver", "bolt", "Database driver: 'bolt' or 'sqlite'")
		storagePath  = flags.StringLong("storage", "./timesheets", "Directory for generated PDFs")
		templatePath = flags.StringLong("template", "./assets/timesheet-template.pdf", "Blank timesheet template PDF")
		layoutPath   = flags.StringLong("layout", "", "Field layout YAML (defaults to the built-in layout)")
		epoch        = flags.StringLong("period-epoch", "", "A Sunday on which a pay period starts (optional, YYYY-MM-DD)")
		timezone     = flags.StringLong("timezone", "Local", "Time zone used to decide the current date")
		authUser     = flags.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass     = flags.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion  = flags.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(flags, os.Args[1:],
		ff.WithEnvVarPrefix("PAYSHEET"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(flags))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	calendar, err := newCalculator(*epoch, *timezone)
	if err != nil {
		slog.Error("Invalid pay period settings", "error", err)
		os.Exit(1)
	}

	// Initialize layout and renderer
	var layout *document.Layout
	if *layoutPath != "" {
		layout, err = document.LoadLayout(*layoutPath)
	} else {
		layout, err = document.DefaultLayout()
	}
	if err != nil {
		slog.Error("Failed to load layout", "error", err)
		os.Exit(1)
	}

	slog.Info("Loading template...", "path", *templatePath)
	renderer, err := document.NewPDFRenderer(*templatePath, layout)
	if err != nil {
		slog.Error("Failed to load template", "error", err)
		os.Exit(1)
	}

	// Initialize database
	slog.Info("Initializing database...", "driver", *dbDriver, "path", *dbPath)
	db, err := openDB(*dbDriver, *dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize storage
	slog.Info("Initializing storage...")
	store, err := timesheet.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	// Initialize service
	service := timesheet.NewService(db, renderer, store, calendar)

	// Initialize server
	basicAuth := timesheet.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := timesheet.NewServer(service, basicAuth)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}

func openDB(driver, path string) (timesheet.DB, error) {
	switch driver {
	case "bolt":
		return timesheet.NewBoltDB(path)
	case "sqlite":
		return timesheet.NewSQLiteDB(path)
	default:
		return nil, fmt.Errorf("unknown database driver %q, expected bolt or sqlite", driver)
	}
}

func newCalculator(epoch, timezone string) (payperiod.Calculator, error) {
	var c payperiod.Calculator

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return c, fmt.Errorf("loading time zone %q: %w", timezone, err)
	}
	c.Location = loc

	if epoch != "" {
		d, err := payperiod.ParseDate(epoch)
		if err != nil {
			return c, fmt.Errorf("parsing period epoch: %w", err)
		}
		if payperiod.Weekday(d) != time.Sunday {
			return c, fmt.Errorf("period epoch %s is not a Sunday", d)
		}
		c.Epoch = d
	}
	return c, nil
}

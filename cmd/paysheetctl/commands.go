package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"cloud.google.com/go/civil"
	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/zombor/paysheet/internal/document"
	"github.com/zombor/paysheet/internal/payperiod"
	"github.com/zombor/paysheet/internal/record"
	"github.com/zombor/paysheet/internal/timesheet"
)

func newPeriodCmd() *cobra.Command {
	var (
		date   string
		epoch  string
		offset int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "period",
		Short: "Print the pay period containing a date (default today)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var calendar payperiod.Calculator
			if epoch != "" {
				d, err := payperiod.ParseDate(epoch)
				if err != nil {
					return fmt.Errorf("parsing epoch: %w", err)
				}
				calendar.Epoch = d
			}

			day := civil.DateOf(time.Now())
			if date != "" {
				d, err := payperiod.ParseDate(date)
				if err != nil {
					return err
				}
				day = d
			}
			period := calendar.For(day).Shift(offset)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(period)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "Pay period\t%s - %s\n", period.Start, period.End)
			for i, d := range period.Dates() {
				fmt.Fprintf(tw, "week %d\t%s\t%s\n", i/payperiod.DaysPerWeek+1, payperiod.Label(payperiod.Weekday(d)), d)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Any date inside the period")
	cmd.Flags().StringVar(&epoch, "epoch", "", "A Sunday on which a pay period starts")
	cmd.Flags().IntVar(&offset, "offset", 0, "Periods to step forwards (or backwards when negative)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

// readRecord decodes and validates a record from a file or stdin
func readRecord(cmd *cobra.Command, name string) (*record.Record, error) {
	in, err := openInput(cmd, name)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	return record.Decode(in)
}

// loadLayout returns the layout at path, or the built-in one
func loadLayout(path string) (*document.Layout, error) {
	if path == "" {
		return document.DefaultLayout()
	}
	return document.LoadLayout(path)
}

func newValidateCmd() *cobra.Command {
	var layoutPath string

	cmd := &cobra.Command{
		Use:   "validate <record.json|->",
		Short: "Check a timesheet record and print its totals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := readRecord(cmd, args[0])
			if err != nil {
				return err
			}
			layout, err := loadLayout(layoutPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			totals := rec.WeekTotals()
			fmt.Fprintf(out, "%s (%s) %s - %s\n", rec.FullName(), rec.WNum, rec.PayPeriodStartDate, rec.PayPeriodEndDate)
			fmt.Fprintf(out, "week 1: %s\n", totals[0].StringFixed(2))
			fmt.Fprintf(out, "week 2: %s\n", totals[1].StringFixed(2))
			fmt.Fprintf(out, "total:  %s\n", rec.GrandTotal().StringFixed(2))

			_, issues := document.Plan(rec, layout)
			for _, issue := range issues {
				fmt.Fprintf(out, "blank: %s\n", issue)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&layoutPath, "layout", "", "Field layout YAML")
	return cmd
}

func newRenderCmd() *cobra.Command {
	var (
		templatePath string
		layoutPath   string
		outPath      string
	)

	cmd := &cobra.Command{
		Use:   "render <record.json|->",
		Short: "Fill the timesheet template with a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := readRecord(cmd, args[0])
			if err != nil {
				return err
			}
			layout, err := loadLayout(layoutPath)
			if err != nil {
				return err
			}
			renderer, err := document.NewPDFRenderer(templatePath, layout)
			if err != nil {
				return err
			}

			result, err := renderer.Render(rec)
			if err != nil {
				return err
			}
			// written beside the target and renamed over it
			out, err := timesheet.NewLocalStorage(filepath.Dir(outPath))
			if err != nil {
				return err
			}
			if _, err := out.Save(filepath.Base(outPath), result.PDF); err != nil {
				return fmt.Errorf("writing %s: %w", outPath, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", outPath)
			for _, issue := range result.Blank {
				fmt.Fprintf(cmd.ErrOrStderr(), "blank: %s\n", issue)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&templatePath, "template", "./assets/timesheet-template.pdf", "Blank timesheet template PDF")
	cmd.Flags().StringVar(&layoutPath, "layout", "", "Field layout YAML")
	cmd.Flags().StringVarP(&outPath, "out", "o", "timesheet.pdf", "Output file")
	return cmd
}

func newLayoutCmd() *cobra.Command {
	var layoutPath string

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Print the field layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			layout, err := loadLayout(layoutPath)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(layout); err != nil {
				return fmt.Errorf("encoding layout: %w", err)
			}
			return enc.Close()
		},
	}
	cmd.Flags().StringVar(&layoutPath, "layout", "", "Field layout YAML to check and print")
	return cmd
}

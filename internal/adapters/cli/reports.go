package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"scrap-ledger/internal/app"
	"scrap-ledger/internal/catalogfile"
	"scrap-ledger/internal/report"
)

func newSummaryCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Period rollups of count, weight, total, paid and pending",
		Example: `  ledger summary --from 2026-04-01 --to 2026-04-30 --group material
  ledger summary --from 2026-04-01 --to 2026-06-30 --group month --xlsx q1.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, _ := cmd.Flags().GetString("from")
			to, _ := cmd.Flags().GetString("to")
			group, _ := cmd.Flags().GetString("group")
			cp, _ := cmd.Flags().GetString("counterparty")
			kind, _ := cmd.Flags().GetString("kind")
			xlsx, _ := cmd.Flags().GetString("xlsx")

			res, err := rt.svc.Summarize(cmd.Context(), app.SummaryRequest{
				CounterpartyRef: cp,
				Kind:            kind,
				From:            from,
				To:              to,
				GroupBy:         group,
			})
			if err != nil {
				return err
			}
			if xlsx != "" {
				if err := writeWorkbook(xlsx, func(wb *report.Workbook) error {
					return wb.AddSummary("Summary", res.Groups)
				}); err != nil {
					return err
				}
			}
			return rt.emit(res, func(w io.Writer) {
				printSummary(w, res)
				if xlsx != "" {
					fmt.Fprintf(w, "Workbook written to %s\n", xlsx)
				}
			})
		},
	}
	cmd.Flags().String("from", "", "Period start YYYY-MM-DD (required)")
	cmd.Flags().String("to", "", "Period end YYYY-MM-DD (required)")
	cmd.Flags().String("group", "none", "none | counterparty | class | material | day | month")
	cmd.Flags().String("counterparty", "", "Only this counterparty")
	cmd.Flags().String("kind", "", "Only this kind: purchase | sale | wage")
	cmd.Flags().String("xlsx", "", "Also write the rollup to this Excel file")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newWageCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wage",
		Short: "Labour wage accrual and monthly salary summaries",
	}

	accrue := &cobra.Command{
		Use:     "accrue <worker>",
		Short:   "Record days worked and/or kilograms handled",
		Example: `  ledger wage accrue L1 --days 1 --kg 350 --date 2026-04-03`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			days, err := decimalFlag(cmd, "days")
			if err != nil {
				return err
			}
			kg, err := decimalFlag(cmd, "kg")
			if err != nil {
				return err
			}
			date, _ := cmd.Flags().GetString("date")
			notes, _ := cmd.Flags().GetString("notes")
			key, _ := cmd.Flags().GetString("key")

			res, err := rt.svc.AccrueWage(cmd.Context(), app.AccrueWageRequest{
				WorkerRef:      args[0],
				Date:           date,
				Days:           days,
				Kg:             kg,
				Notes:          notes,
				IdempotencyKey: key,
			})
			if err != nil {
				return err
			}
			return rt.emit(res, func(w io.Writer) { printTransaction(w, res) })
		},
	}
	accrue.Flags().String("days", "", "Days worked")
	accrue.Flags().String("kg", "", "Kilograms handled")
	accrue.Flags().String("date", "", "Work date YYYY-MM-DD (default today)")
	accrue.Flags().String("notes", "", "Free-form notes")
	accrue.Flags().String("key", "", "Idempotency key")

	summary := &cobra.Command{
		Use:   "summary",
		Short: "Per-worker salary table for one month",
		RunE: func(cmd *cobra.Command, args []string) error {
			month, _ := cmd.Flags().GetString("month")
			xlsx, _ := cmd.Flags().GetString("xlsx")
			year, mon, err := parseMonth(month)
			if err != nil {
				return err
			}
			res, err := rt.svc.SalarySummary(cmd.Context(), year, mon)
			if err != nil {
				return err
			}
			if xlsx != "" {
				if err := writeWorkbook(xlsx, func(wb *report.Workbook) error {
					return wb.AddSalaries("Salaries", res.Workers)
				}); err != nil {
					return err
				}
			}
			return rt.emit(res, func(w io.Writer) {
				printSalaries(w, res)
				if xlsx != "" {
					fmt.Fprintf(w, "Workbook written to %s\n", xlsx)
				}
			})
		},
	}
	summary.Flags().String("month", time.Now().Format("2006-01"), "Month YYYY-MM")
	summary.Flags().String("xlsx", "", "Also write the table to this Excel file")

	cmd.AddCommand(accrue, summary)
	return cmd
}

func parseMonth(v string) (int, int, error) {
	t, err := time.Parse("2006-01", v)
	if err != nil {
		return 0, 0, fmt.Errorf("--month %q: expected YYYY-MM", v)
	}
	return t.Year(), int(t.Month()), nil
}

func writeWorkbook(path string, fill func(wb *report.Workbook) error) error {
	wb, err := report.New()
	if err != nil {
		return err
	}
	defer wb.Close()
	if err := fill(wb); err != nil {
		return err
	}
	return wb.SaveAs(path)
}

func newSeedCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Load materials, vendors and rate overrides from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := seedFile(cmd.Context(), rt.svc, args[0])
			if err != nil {
				return err
			}
			return rt.emit(res, func(w io.Writer) {
				fmt.Fprintf(w, "Seeded %s: %d materials, %d vendors, %d overrides, %d skipped.\n",
					args[0], res.Materials, res.Vendors, res.Overrides, res.Skipped)
			})
		},
	}
	return cmd
}

func seedFile(ctx context.Context, svc app.ApplicationService, path string) (*catalogfile.Result, error) {
	c, err := catalogfile.Load(path)
	if err != nil {
		return nil, err
	}
	return svc.SeedCatalog(ctx, c)
}

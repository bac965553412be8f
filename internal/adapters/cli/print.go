package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"scrap-ledger/internal/app"
	"scrap-ledger/internal/core"
)

const ruleWidth = 78

// decimalFlag reads a string flag as a decimal. An unset flag is zero.
func decimalFlag(cmd *cobra.Command, name string) (decimal.Decimal, error) {
	v, _ := cmd.Flags().GetString(name)
	if strings.TrimSpace(v) == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil {
		return decimal.Zero, fmt.Errorf("--%s: %q is not a number", name, v)
	}
	return d, nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(core.MoneyPlaces)
}

func rule(w io.Writer, ch string) {
	fmt.Fprintln(w, strings.Repeat(ch, ruleWidth))
}

func printBalance(w io.Writer, b core.Balance) {
	fmt.Fprintf(w, "  Total    : %14s\n", money(b.Total))
	fmt.Fprintf(w, "  Paid     : %14s\n", money(b.Paid))
	fmt.Fprintf(w, "  Pending  : %14s\n", money(b.Pending))
	if b.Credit.IsPositive() {
		fmt.Fprintf(w, "  Credit   : %14s\n", money(b.Credit))
	}
	if b.Overpaid.IsPositive() {
		fmt.Fprintf(w, "  Overpaid : %14s\n", money(b.Overpaid))
	}
}

func printTransaction(w io.Writer, r *app.TransactionResult) {
	t := r.Transaction
	fmt.Fprintln(w)
	rule(w, "=")
	fmt.Fprintf(w, "  %s %s\n", strings.ToUpper(string(t.Kind)), t.ID)
	fmt.Fprintf(w, "  Date         : %s\n", t.Date.Format("2006-01-02"))
	if r.Counterparty != nil {
		fmt.Fprintf(w, "  Counterparty : %s (%s, %s)\n", r.Counterparty.Name, r.Counterparty.Code, r.Counterparty.Class)
	}
	fmt.Fprintf(w, "  Disposition  : %s\n", t.Disposition)
	if t.VehicleNumber != "" {
		fmt.Fprintf(w, "  Vehicle      : %s\n", t.VehicleNumber)
	}
	if t.BillTo != "" {
		fmt.Fprintf(w, "  Bill to      : %s\n", t.BillTo)
	}
	rule(w, "-")
	fmt.Fprintf(w, "  %-3s %-30s %10s %-4s %12s %13s\n", "#", "ITEM", "QTY", "UNIT", "RATE", "AMOUNT")
	for _, l := range t.Lines {
		fmt.Fprintf(w, "  %-3d %-30s %10s %-4s %12s %13s\n",
			l.LineNumber, l.Description, l.Quantity.String(), l.Unit, money(l.UnitRate), money(l.Amount))
	}
	rule(w, "-")
	fmt.Fprintf(w, "  %-62s %13s\n", "Subtotal", money(t.Subtotal))
	if !t.Surcharges.GST.IsZero() {
		fmt.Fprintf(w, "  %-62s %13s\n", "GST", money(t.Surcharges.GST))
	}
	if !t.Surcharges.Freight.IsZero() {
		fmt.Fprintf(w, "  %-62s %13s\n", "Freight", money(t.Surcharges.Freight))
	}
	rule(w, "=")
	printBalance(w, r.Balance)
}

func printSummary(w io.Writer, r *app.SummaryResult) {
	fmt.Fprintln(w)
	rule(w, "=")
	fmt.Fprintf(w, "  SUMMARY %s .. %s\n", r.From, r.To)
	rule(w, "=")
	fmt.Fprintf(w, "  %-20s %5s %6s %10s %11s %11s %11s\n", "GROUP", "TXNS", "ITEMS", "WEIGHT", "TOTAL", "PAID", "PENDING")
	rule(w, "-")
	for _, g := range r.Groups {
		summaryRow(w, g)
	}
	rule(w, "-")
	summaryRow(w, r.Total)
	rule(w, "=")
}

func summaryRow(w io.Writer, g core.PeriodSummary) {
	fmt.Fprintf(w, "  %-20s %5d %6d %10s %11s %11s %11s\n",
		truncate(g.Label, 20), g.TransactionCount, g.ItemCount, g.Weight.String(),
		money(g.Total), money(g.Paid), money(g.Pending))
}

func printSalaries(w io.Writer, r *app.SalarySummaryResult) {
	fmt.Fprintln(w)
	rule(w, "=")
	fmt.Fprintf(w, "  SALARY SUMMARY %02d/%d\n", r.Month, r.Year)
	rule(w, "=")
	fmt.Fprintf(w, "  %-8s %-20s %-10s %6s %8s %11s %11s\n", "CODE", "NAME", "TYPE", "DAYS", "KG", "EARNED", "PENDING")
	rule(w, "-")
	for _, s := range r.Workers {
		fmt.Fprintf(w, "  %-8s %-20s %-10s %6s %8s %11s %11s\n",
			s.Code, truncate(s.Name, 20), s.WorkerType, s.DaysWorked.String(), s.KgHandled.String(),
			money(s.Earned), money(s.Pending))
	}
	rule(w, "=")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "~"
}

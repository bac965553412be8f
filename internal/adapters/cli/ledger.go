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

// parseLine reads a CODE:QTY line argument.
func parseLine(v string) (app.LineInput, error) {
	ref, qty, ok := strings.Cut(v, ":")
	if !ok || strings.TrimSpace(ref) == "" {
		return app.LineInput{}, fmt.Errorf("--line %q: expected MATERIAL:QUANTITY", v)
	}
	q, err := decimal.NewFromString(strings.TrimSpace(qty))
	if err != nil {
		return app.LineInput{}, fmt.Errorf("--line %q: quantity is not a number", v)
	}
	return app.LineInput{MaterialRef: strings.TrimSpace(ref), Quantity: q}, nil
}

func newTxnCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "txn",
		Aliases: []string{"transaction"},
		Short:   "Record and inspect purchases and sales",
	}

	create := &cobra.Command{
		Use:   "create <counterparty>",
		Short: "Price and record a transaction",
		Example: `  ledger txn create V1 --line CU:12.5 --line AL:40 --settled
  ledger txn create MILL1 --line CU:500 --gst 9000 --freight 1200 --upfront 20000 --mode bank`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rawLines, _ := cmd.Flags().GetStringArray("line")
			lines := make([]app.LineInput, 0, len(rawLines))
			for _, raw := range rawLines {
				l, err := parseLine(raw)
				if err != nil {
					return err
				}
				lines = append(lines, l)
			}
			gst, err := decimalFlag(cmd, "gst")
			if err != nil {
				return err
			}
			freight, err := decimalFlag(cmd, "freight")
			if err != nil {
				return err
			}
			upfront, err := decimalFlag(cmd, "upfront")
			if err != nil {
				return err
			}

			disposition := string(core.DispositionDeferred)
			if settled, _ := cmd.Flags().GetBool("settled"); settled {
				disposition = string(core.DispositionSettled)
			}
			date, _ := cmd.Flags().GetString("date")
			mode, _ := cmd.Flags().GetString("mode")
			key, _ := cmd.Flags().GetString("key")
			billTo, _ := cmd.Flags().GetString("bill-to")
			vehicle, _ := cmd.Flags().GetString("vehicle")
			notes, _ := cmd.Flags().GetString("notes")

			res, err := rt.svc.CreateTransaction(cmd.Context(), app.CreateTransactionRequest{
				CounterpartyRef: args[0],
				Date:            date,
				Lines:           lines,
				GST:             gst,
				Freight:         freight,
				Disposition:     disposition,
				UpfrontPayment:  upfront,
				PaymentMode:     mode,
				IdempotencyKey:  key,
				BillTo:          billTo,
				VehicleNumber:   vehicle,
				Notes:           notes,
			})
			if err != nil {
				return err
			}
			return rt.emit(res, func(w io.Writer) { printTransaction(w, res) })
		},
	}
	create.Flags().StringArray("line", nil, "MATERIAL:QUANTITY (repeatable)")
	create.Flags().String("date", "", "Transaction date YYYY-MM-DD (default today)")
	create.Flags().String("gst", "", "GST amount")
	create.Flags().String("freight", "", "Freight amount")
	create.Flags().Bool("settled", false, "Paid in full at creation")
	create.Flags().String("upfront", "", "Amount paid at creation (deferred only)")
	create.Flags().String("mode", string(core.ModeCash), "Payment mode: cash | upi | bank")
	create.Flags().String("key", "", "Idempotency key")
	create.Flags().String("bill-to", "", "Bill-to name (sales)")
	create.Flags().String("vehicle", "", "Vehicle number")
	create.Flags().String("notes", "", "Free-form notes")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a transaction and its balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := rt.svc.GetTransaction(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return rt.emit(res, func(w io.Writer) { printTransaction(w, res) })
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List transactions by date",
		RunE: func(cmd *cobra.Command, args []string) error {
			cp, _ := cmd.Flags().GetString("counterparty")
			kind, _ := cmd.Flags().GetString("kind")
			from, _ := cmd.Flags().GetString("from")
			to, _ := cmd.Flags().GetString("to")
			res, err := rt.svc.ListTransactions(cmd.Context(), app.ListTransactionsRequest{
				CounterpartyRef: cp,
				Kind:            kind,
				From:            from,
				To:              to,
			})
			if err != nil {
				return err
			}
			return rt.emit(res, func(w io.Writer) {
				fmt.Fprintf(w, "%-10s %-36s %-8s %-8s %12s %12s\n", "DATE", "ID", "KIND", "STATUS", "TOTAL", "PENDING")
				for _, t := range res.Transactions {
					b := res.Balances[t.ID]
					fmt.Fprintf(w, "%-10s %-36s %-8s %-8s %12s %12s\n",
						t.Date.Format("2006-01-02"), t.ID, t.Kind, t.Disposition, money(t.Total), money(b.Pending))
				}
			})
		},
	}
	list.Flags().String("counterparty", "", "Counterparty code or ID")
	list.Flags().String("kind", "", "purchase | sale | wage")
	list.Flags().String("from", "", "Start date YYYY-MM-DD")
	list.Flags().String("to", "", "End date YYYY-MM-DD")

	cmd.AddCommand(create, show, list)
	return cmd
}

func newPayCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pay <amount>",
		Short: "Record a payment against a transaction or a counterparty",
		Example: `  ledger pay 2500 --txn 6f1c...
  ledger pay 10000 --counterparty V1 --mode upi --ref UTR123`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[0])
			if err != nil {
				return fmt.Errorf("amount %q is not a number", args[0])
			}
			txnID, _ := cmd.Flags().GetString("txn")
			cp, _ := cmd.Flags().GetString("counterparty")
			date, _ := cmd.Flags().GetString("date")
			mode, _ := cmd.Flags().GetString("mode")
			ref, _ := cmd.Flags().GetString("ref")
			note, _ := cmd.Flags().GetString("note")
			key, _ := cmd.Flags().GetString("key")

			res, err := rt.svc.ApplyPayment(cmd.Context(), app.ApplyPaymentRequest{
				Amount:          amount,
				Date:            date,
				TransactionID:   txnID,
				CounterpartyRef: cp,
				Mode:            mode,
				Reference:       ref,
				Note:            note,
				IdempotencyKey:  key,
			})
			if err != nil {
				return err
			}
			return rt.emit(res, func(w io.Writer) {
				if res.Replayed {
					fmt.Fprintf(w, "Payment %s already recorded under this key.\n", res.Payment.ID)
				} else {
					fmt.Fprintf(w, "Payment %s of %s recorded.\n", res.Payment.ID, money(res.Payment.Amount))
				}
				for _, a := range res.Allocations {
					fmt.Fprintf(w, "  -> %s  %12s\n", a.TransactionID, money(a.Amount))
				}
				printBalance(w, res.Balance)
			})
		},
	}
	cmd.Flags().String("txn", "", "Transaction ID")
	cmd.Flags().String("counterparty", "", "Counterparty code or ID (oldest-first)")
	cmd.Flags().String("date", "", "Payment date YYYY-MM-DD (default today)")
	cmd.Flags().String("mode", string(core.ModeCash), "cash | upi | bank")
	cmd.Flags().String("ref", "", "Instrument reference (UTR, cheque number)")
	cmd.Flags().String("note", "", "Free-form note")
	cmd.Flags().String("key", "", "Idempotency key")
	cmd.MarkFlagsMutuallyExclusive("txn", "counterparty")
	cmd.MarkFlagsOneRequired("txn", "counterparty")
	return cmd
}

func newPaymentsCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payments",
		Short: "List payments by date",
		RunE: func(cmd *cobra.Command, args []string) error {
			cp, _ := cmd.Flags().GetString("counterparty")
			txnID, _ := cmd.Flags().GetString("txn")
			from, _ := cmd.Flags().GetString("from")
			to, _ := cmd.Flags().GetString("to")
			res, err := rt.svc.ListPayments(cmd.Context(), app.ListPaymentsRequest{
				CounterpartyRef: cp,
				TransactionID:   txnID,
				From:            from,
				To:              to,
			})
			if err != nil {
				return err
			}
			return rt.emit(res, func(w io.Writer) {
				fmt.Fprintf(w, "%-10s %-36s %-5s %12s  %s\n", "DATE", "ID", "MODE", "AMOUNT", "TARGET")
				for _, p := range res.Payments {
					target := "account"
					if p.TransactionID != nil {
						target = *p.TransactionID
					}
					fmt.Fprintf(w, "%-10s %-36s %-5s %12s  %s\n",
						p.Date.Format("2006-01-02"), p.ID, p.Mode, money(p.Amount), target)
				}
			})
		},
	}
	cmd.Flags().String("counterparty", "", "Counterparty code or ID")
	cmd.Flags().String("txn", "", "Transaction ID")
	cmd.Flags().String("from", "", "Start date YYYY-MM-DD")
	cmd.Flags().String("to", "", "End date YYYY-MM-DD")
	return cmd
}

func newBalanceCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the balance of a transaction or a counterparty",
		RunE: func(cmd *cobra.Command, args []string) error {
			txnID, _ := cmd.Flags().GetString("txn")
			cp, _ := cmd.Flags().GetString("counterparty")
			res, err := rt.svc.BalanceOf(cmd.Context(), app.BalanceRequest{TransactionID: txnID, CounterpartyRef: cp})
			if err != nil {
				return err
			}
			return rt.emit(res, func(w io.Writer) {
				if res.Counterparty != nil {
					fmt.Fprintf(w, "%s (%s)\n", res.Counterparty.Name, res.Counterparty.Code)
				}
				if res.TransactionID != "" {
					fmt.Fprintf(w, "Transaction %s\n", res.TransactionID)
				}
				printBalance(w, res.Balance)
			})
		},
	}
	cmd.Flags().String("txn", "", "Transaction ID")
	cmd.Flags().String("counterparty", "", "Counterparty code or ID")
	return cmd
}

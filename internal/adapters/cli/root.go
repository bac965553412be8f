// Package cli is the command-line adapter over app.ApplicationService.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"scrap-ledger/internal/app"
	"scrap-ledger/internal/core"
)

// ServiceFactory opens the application service. memory selects the in-process
// store; the returned func releases whatever was opened.
type ServiceFactory func(ctx context.Context, memory bool) (app.ApplicationService, func(), error)

type runtime struct {
	factory ServiceFactory
	svc     app.ApplicationService
	closeFn func()

	memory  bool
	catalog string
	asJSON  bool
	out     io.Writer
}

// newRootCommand builds the ledger command tree.
func newRootCommand(rt *runtime) *cobra.Command {
	root := &cobra.Command{
		Use:   "ledger",
		Short: "Scrap-trade ledger: rates, transactions, payments and summaries",
		Long: `ledger records purchases from collectors and yard vendors, sales to mill
buyers and labour wages. Every line is priced from the rate catalog, payments
are reconciled oldest-first and balances are always derived from the stored
transactions and payments.

Configuration comes from the environment (or a .env file):
  DATABASE_URL                  PostgreSQL connection string
  LEDGER_STORE_TIMEOUT          per-call store deadline (default 5s)
  LEDGER_ALLOW_OVERPAYMENT      relax the overpayment check (default false)
  LEDGER_OVERPAYMENT_TOLERANCE  how far a payment may exceed the total
  LOG_LEVEL, LOG_FORMAT, LOG_TIME_FORMAT, LOG_OUTPUT`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.open(cmd)
		},
	}

	root.PersistentFlags().BoolVar(&rt.memory, "memory", false, "Use an in-memory store instead of PostgreSQL")
	root.PersistentFlags().StringVar(&rt.catalog, "catalog", "", "Seed reference data from this YAML file before running")
	root.PersistentFlags().BoolVar(&rt.asJSON, "json", false, "Print results as JSON")

	root.AddCommand(
		newMaterialCommand(rt),
		newVendorCommand(rt),
		newRateCommand(rt),
		newTxnCommand(rt),
		newPayCommand(rt),
		newPaymentsCommand(rt),
		newBalanceCommand(rt),
		newSummaryCommand(rt),
		newWageCommand(rt),
		newSeedCommand(rt),
	)
	return root
}

func (rt *runtime) open(cmd *cobra.Command) error {
	rt.out = cmd.OutOrStdout()
	svc, closeFn, err := rt.factory(cmd.Context(), rt.memory)
	if err != nil {
		return err
	}
	rt.svc, rt.closeFn = svc, closeFn

	if rt.catalog != "" {
		if _, err := seedFile(cmd.Context(), svc, rt.catalog); err != nil {
			return err
		}
	}
	return nil
}

func (rt *runtime) close() {
	if rt.closeFn != nil {
		rt.closeFn()
		rt.closeFn = nil
	}
}

// emit prints v as JSON when --json is set, otherwise calls text.
func (rt *runtime) emit(v any, text func(w io.Writer)) error {
	if rt.asJSON {
		enc := json.NewEncoder(rt.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(rt.out)
	return nil
}

// Run executes one command line (without the program name) and returns the
// process exit code.
func Run(ctx context.Context, factory ServiceFactory, args []string, stdout, stderr io.Writer) int {
	rt := &runtime{factory: factory}
	defer rt.close()

	root := newRootCommand(rt)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error [%s]: %v\n", core.KindOf(err), err)
		if core.IsRetryable(err) {
			fmt.Fprintln(stderr, "The store was busy; the command can be retried.")
		}
		return 1
	}
	return 0
}

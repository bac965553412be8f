package core_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"scrap-ledger/internal/core"
	"scrap-ledger/internal/store/memory"
)

// ledgerFixture wires every service over one in-memory store and seeds a
// small yard: copper at 500/kg with an override of 520 for V1, aluminium at
// 150/kg, brass with no rate, two yard vendors, a mill buyer and a worker.
type ledgerFixture struct {
	store      *memory.Store
	refs       core.ReferenceService
	rates      core.RateCatalog
	ledger     core.TransactionLedger
	reconciler core.PaymentReconciler
	summaries  core.SummaryAggregator
	wages      core.WageService

	copper, aluminium, brass *core.Material
	v1, v2, mill, worker     *core.Vendor
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func requireMoney(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	require.Equal(t, dec(want).StringFixed(2), got.StringFixed(2), msgAndArgs...)
}

func newFixture(t *testing.T, opts ...func(*core.Options)) *ledgerFixture {
	t.Helper()

	o := core.Options{Logger: zerolog.Nop()}
	for _, fn := range opts {
		fn(&o)
	}
	store := memory.New()
	f := &ledgerFixture{
		store:      store,
		refs:       core.NewReferenceService(store, o),
		rates:      core.NewRateCatalog(store, o),
		ledger:     core.NewTransactionLedger(store, o),
		reconciler: core.NewPaymentReconciler(store, o),
		summaries:  core.NewSummaryAggregator(store, o),
		wages:      core.NewWageService(store, o),
	}

	ctx := context.Background()
	var err error
	copperRate, aluRate := dec("500"), dec("150")
	f.copper, err = f.refs.CreateMaterial(ctx, core.MaterialInput{Code: "cu", Name: "Copper", DefaultRate: &copperRate})
	require.NoError(t, err)
	f.aluminium, err = f.refs.CreateMaterial(ctx, core.MaterialInput{Code: "al", Name: "Aluminium", DefaultRate: &aluRate})
	require.NoError(t, err)
	f.brass, err = f.refs.CreateMaterial(ctx, core.MaterialInput{Code: "br", Name: "Brass"})
	require.NoError(t, err)

	f.v1, err = f.refs.CreateVendor(ctx, core.VendorInput{Code: "v1", Name: "Ravi Traders", Class: core.ClassYardVendor})
	require.NoError(t, err)
	f.v2, err = f.refs.CreateVendor(ctx, core.VendorInput{Code: "v2", Name: "Street Collector", Class: core.ClassCollector})
	require.NoError(t, err)
	f.mill, err = f.refs.CreateVendor(ctx, core.VendorInput{Code: "mill", Name: "Steel Mill", Class: core.ClassMillBuyer})
	require.NoError(t, err)
	f.worker, err = f.refs.CreateVendor(ctx, core.VendorInput{
		Code:  "l1",
		Name:  "Suresh",
		Class: core.ClassLabour,
		Wage:  &core.WageTerms{DailyWage: dec("600"), PerKgRate: dec("2")},
	})
	require.NoError(t, err)

	_, err = f.refs.SetRateOverride(ctx, f.v1.ID, f.copper.ID, dec("520"))
	require.NoError(t, err)
	return f
}

// purchase records a deferred transaction for vendor with one line per
// material/quantity pair.
func (f *ledgerFixture) purchase(t *testing.T, vendor *core.Vendor, date string, pairs ...any) *core.Transaction {
	t.Helper()
	in := core.CreateTransactionInput{CounterpartyID: vendor.ID, Date: day(date)}
	for i := 0; i < len(pairs); i += 2 {
		in.Lines = append(in.Lines, core.LineSpec{
			MaterialID: pairs[i].(*core.Material).ID,
			Quantity:   dec(pairs[i+1].(string)),
		})
	}
	txn, err := f.ledger.CreateTransaction(context.Background(), in)
	require.NoError(t, err)
	return txn
}

func (f *ledgerFixture) transactionCount(t *testing.T) int {
	t.Helper()
	txns, err := f.store.ListTransactions(context.Background(), core.TransactionFilter{})
	require.NoError(t, err)
	return len(txns)
}

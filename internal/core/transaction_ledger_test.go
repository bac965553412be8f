package core_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrap-ledger/internal/core"
)

func TestCreateTransaction_PricesFromOverride(t *testing.T) {
	f := newFixture(t)

	txn := f.purchase(t, f.v1, "2026-04-01", f.copper, "10")

	assert.Equal(t, core.KindPurchase, txn.Kind)
	assert.Equal(t, core.DispositionDeferred, txn.Disposition)
	require.Len(t, txn.Lines, 1)
	assert.Equal(t, 1, txn.Lines[0].LineNumber)
	assert.Equal(t, "Copper", txn.Lines[0].Description)
	requireMoney(t, "520", txn.Lines[0].UnitRate)
	requireMoney(t, "5200", txn.Lines[0].Amount)
	requireMoney(t, "5200", txn.Total)
	assert.Positive(t, txn.Seq)
}

func TestCreateTransaction_TotalIsLinesPlusSurcharges(t *testing.T) {
	f := newFixture(t)

	txn, err := f.ledger.CreateTransaction(context.Background(), core.CreateTransactionInput{
		CounterpartyID: f.mill.ID,
		Date:           day("2026-04-02"),
		Lines: []core.LineSpec{
			{MaterialID: f.copper.ID, Quantity: dec("12.5")},
			{MaterialID: f.aluminium.ID, Quantity: dec("40.333")},
		},
		Surcharges: core.Surcharges{GST: dec("1125.90"), Freight: dec("300")},
	})
	require.NoError(t, err)

	assert.Equal(t, core.KindSale, txn.Kind)
	requireMoney(t, "6250", txn.Lines[0].Amount)
	requireMoney(t, "6049.95", txn.Lines[1].Amount)
	requireMoney(t, "12299.95", txn.Subtotal)
	requireMoney(t, "13725.85", txn.Total)
	assert.True(t, txn.Total.Equal(core.Aggregate(txn.Lines).Add(txn.Surcharges.Total())))

	stored, err := f.ledger.GetTransaction(context.Background(), txn.ID)
	require.NoError(t, err)
	assert.True(t, stored.Total.Equal(core.Aggregate(stored.Lines).Add(stored.Surcharges.Total())))
}

func TestCreateTransaction_InvalidQuantityPersistsNothing(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.CreateTransaction(context.Background(), core.CreateTransactionInput{
		CounterpartyID: f.v1.ID,
		Date:           day("2026-04-01"),
		Lines: []core.LineSpec{
			{MaterialID: f.copper.ID, Quantity: dec("5")},
			{MaterialID: f.aluminium.ID, Quantity: dec("0")},
		},
	})
	assert.ErrorIs(t, err, core.ErrInvalidQuantity)
	assert.Equal(t, 0, f.transactionCount(t))
}

func TestCreateTransaction_EmptyLinesPersistNothing(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.CreateTransaction(context.Background(), core.CreateTransactionInput{
		CounterpartyID: f.v1.ID,
		Date:           day("2026-04-01"),
		Disposition:    core.DispositionSettled,
	})
	assert.ErrorIs(t, err, core.ErrEmptyTransaction)
	assert.Equal(t, 0, f.transactionCount(t))

	payments, err := f.reconciler.ListPayments(context.Background(), core.PaymentFilter{})
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestCreateTransaction_MissingRateRollsBackWholeRequest(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.CreateTransaction(context.Background(), core.CreateTransactionInput{
		CounterpartyID: f.v1.ID,
		Date:           day("2026-04-01"),
		Lines: []core.LineSpec{
			{MaterialID: f.copper.ID, Quantity: dec("5")},
			{MaterialID: f.brass.ID, Quantity: dec("5")},
		},
	})
	assert.ErrorIs(t, err, core.ErrRateNotFound)
	assert.Equal(t, 0, f.transactionCount(t))
}

func TestCreateTransaction_RateChangeKeepsCommittedAmounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	txn := f.purchase(t, f.v2, "2026-04-01", f.copper, "10")
	requireMoney(t, "5000", txn.Total)

	_, err := f.refs.SetMaterialRate(ctx, f.copper.ID, dec("610"))
	require.NoError(t, err)
	_, err = f.refs.SetRateOverride(ctx, f.v2.ID, f.copper.ID, dec("700"))
	require.NoError(t, err)

	stored, err := f.ledger.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	requireMoney(t, "500", stored.Lines[0].UnitRate)
	requireMoney(t, "5000", stored.Lines[0].Amount)
	requireMoney(t, "5000", stored.Total)

	next := f.purchase(t, f.v2, "2026-04-02", f.copper, "10")
	requireMoney(t, "7000", next.Total)
}

func TestCreateTransaction_SettledRecordsPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	txn, err := f.ledger.CreateTransaction(ctx, core.CreateTransactionInput{
		CounterpartyID: f.v1.ID,
		Date:           day("2026-04-01"),
		Lines:          []core.LineSpec{{MaterialID: f.copper.ID, Quantity: dec("2")}},
		Disposition:    core.DispositionSettled,
		PaymentMode:    core.ModeUPI,
	})
	require.NoError(t, err)

	b, err := f.reconciler.TransactionBalance(ctx, txn.ID)
	require.NoError(t, err)
	requireMoney(t, "1040", b.Paid)
	requireMoney(t, "0", b.Pending)

	payments, err := f.reconciler.ListPayments(ctx, core.PaymentFilter{TransactionID: txn.ID})
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, core.ModeUPI, payments[0].Mode)
	requireMoney(t, "1040", payments[0].Amount)
}

func TestCreateTransaction_UpfrontPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	txn, err := f.ledger.CreateTransaction(ctx, core.CreateTransactionInput{
		CounterpartyID: f.v1.ID,
		Date:           day("2026-04-01"),
		Lines:          []core.LineSpec{{MaterialID: f.copper.ID, Quantity: dec("10")}},
		UpfrontPayment: dec("2000"),
	})
	require.NoError(t, err)

	b, err := f.reconciler.TransactionBalance(ctx, txn.ID)
	require.NoError(t, err)
	requireMoney(t, "2000", b.Paid)
	requireMoney(t, "3200", b.Pending)
}

func TestCreateTransaction_UpfrontAboveTotalRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.CreateTransaction(context.Background(), core.CreateTransactionInput{
		CounterpartyID: f.v1.ID,
		Date:           day("2026-04-01"),
		Lines:          []core.LineSpec{{MaterialID: f.copper.ID, Quantity: dec("1")}},
		UpfrontPayment: dec("520.01"),
	})
	assert.ErrorIs(t, err, core.ErrOverpayment)
	assert.Equal(t, 0, f.transactionCount(t))
}

func TestCreateTransaction_ValidationErrors(t *testing.T) {
	f := newFixture(t)
	line := []core.LineSpec{{MaterialID: f.copper.ID, Quantity: dec("1")}}

	tests := []struct {
		name string
		in   core.CreateTransactionInput
		want error
	}{
		{"missing counterparty", core.CreateTransactionInput{Date: day("2026-04-01"), Lines: line}, core.ErrInvalidInput},
		{"missing date", core.CreateTransactionInput{CounterpartyID: f.v1.ID, Lines: line}, core.ErrInvalidInput},
		{"negative gst", core.CreateTransactionInput{CounterpartyID: f.v1.ID, Date: day("2026-04-01"), Lines: line,
			Surcharges: core.Surcharges{GST: dec("-5")}}, core.ErrInvalidAmount},
		{"upfront on settled", core.CreateTransactionInput{CounterpartyID: f.v1.ID, Date: day("2026-04-01"), Lines: line,
			Disposition: core.DispositionSettled, UpfrontPayment: dec("10")}, core.ErrInvalidInput},
		{"negative upfront", core.CreateTransactionInput{CounterpartyID: f.v1.ID, Date: day("2026-04-01"), Lines: line,
			UpfrontPayment: dec("-10")}, core.ErrInvalidAmount},
		{"unknown disposition", core.CreateTransactionInput{CounterpartyID: f.v1.ID, Date: day("2026-04-01"), Lines: line,
			Disposition: "later"}, core.ErrInvalidInput},
		{"unknown mode", core.CreateTransactionInput{CounterpartyID: f.v1.ID, Date: day("2026-04-01"), Lines: line,
			PaymentMode: "cheque"}, core.ErrInvalidInput},
		{"labour counterparty", core.CreateTransactionInput{CounterpartyID: f.worker.ID, Date: day("2026-04-01"), Lines: line}, core.ErrInvalidInput},
		{"unknown counterparty", core.CreateTransactionInput{CounterpartyID: "nobody", Date: day("2026-04-01"), Lines: line}, core.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.CreateTransaction(context.Background(), tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, 0, f.transactionCount(t))
}

func TestCreateTransaction_IdempotencyKeyReturnsStoredRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := core.CreateTransactionInput{
		CounterpartyID: f.v1.ID,
		Date:           day("2026-04-01"),
		Lines:          []core.LineSpec{{MaterialID: f.copper.ID, Quantity: dec("3")}},
		Disposition:    core.DispositionSettled,
		IdempotencyKey: "weighbridge-0001",
	}
	first, err := f.ledger.CreateTransaction(ctx, in)
	require.NoError(t, err)
	second, err := f.ledger.CreateTransaction(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, f.transactionCount(t))

	payments, err := f.reconciler.ListPayments(ctx, core.PaymentFilter{})
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestListTransactions_OrderedByDateThenCreation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	late := f.purchase(t, f.v1, "2026-04-03", f.copper, "1")
	early := f.purchase(t, f.v1, "2026-04-01", f.copper, "1")
	sameDay := f.purchase(t, f.v1, "2026-04-03", f.aluminium, "1")
	f.purchase(t, f.v2, "2026-04-02", f.copper, "1")

	txns, err := f.ledger.ListTransactions(ctx, core.TransactionFilter{CounterpartyID: f.v1.ID})
	require.NoError(t, err)
	require.Len(t, txns, 3)
	assert.Equal(t, []string{early.ID, late.ID, sameDay.ID}, []string{txns[0].ID, txns[1].ID, txns[2].ID})

	from, to := day("2026-04-02"), day("2026-04-03")
	txns, err = f.ledger.ListTransactions(ctx, core.TransactionFilter{From: &from, To: &to})
	require.NoError(t, err)
	assert.Len(t, txns, 3)

	_, err = f.ledger.ListTransactions(ctx, core.TransactionFilter{From: &to, To: &from})
	assert.ErrorIs(t, err, core.ErrInvalidPeriod)
}

func TestListTransactions_KindFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.purchase(t, f.v1, "2026-04-01", f.copper, "1")
	sale := f.purchase(t, f.mill, "2026-04-02", f.copper, "1")

	txns, err := f.ledger.ListTransactions(ctx, core.TransactionFilter{Kind: core.KindSale})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, sale.ID, txns[0].ID)

	_, err = f.ledger.ListTransactions(ctx, core.TransactionFilter{Kind: "refund"})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestGetTransaction_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.GetTransaction(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestCreateTransaction_ExpiredDeadlineIsRetryableTimeout(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := f.ledger.CreateTransaction(ctx, core.CreateTransactionInput{
		CounterpartyID: f.v1.ID,
		Date:           day("2026-04-01"),
		Lines:          []core.LineSpec{{MaterialID: f.copper.ID, Quantity: dec("10")}},
		IdempotencyKey: "late-1",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrStoreTimeout)
	assert.True(t, core.IsRetryable(err))
	assert.Equal(t, "STORE_TIMEOUT", core.KindOf(err))
	assert.Equal(t, 0, f.transactionCount(t))

	retried, err := f.ledger.CreateTransaction(context.Background(), core.CreateTransactionInput{
		CounterpartyID: f.v1.ID,
		Date:           day("2026-04-01"),
		Lines:          []core.LineSpec{{MaterialID: f.copper.ID, Quantity: dec("10")}},
		IdempotencyKey: "late-1",
	})
	require.NoError(t, err)
	requireMoney(t, "5200", retried.Total)
	assert.Equal(t, 1, f.transactionCount(t))
}

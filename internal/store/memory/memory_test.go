package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrap-ledger/internal/core"
	"scrap-ledger/internal/store/memory"
)

func seedVendor(t *testing.T, s *memory.Store, code string) *core.Vendor {
	t.Helper()
	v := &core.Vendor{ID: uuid.NewString(), Code: code, Name: code, Class: core.ClassCollector}
	require.NoError(t, s.InTx(context.Background(), func(tx core.Tx) error {
		return tx.InsertVendor(context.Background(), v)
	}))
	return v
}

func newTxn(vendorID, date string) *core.Transaction {
	d, _ := time.Parse("2006-01-02", date)
	return &core.Transaction{
		ID:             uuid.NewString(),
		Kind:           core.KindPurchase,
		CounterpartyID: vendorID,
		Date:           d,
		Lines: []core.LineItem{{
			LineNumber: 1, Description: "Copper", Unit: core.UnitKg,
			Quantity: decimal.NewFromInt(1), UnitRate: decimal.NewFromInt(100), Amount: decimal.NewFromInt(100),
		}},
		Subtotal:    decimal.NewFromInt(100),
		Total:       decimal.NewFromInt(100),
		Disposition: core.DispositionDeferred,
	}
}

func TestInTx_FailedUnitLeavesNoTrace(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	v := seedVendor(t, s, "V1")

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx core.Tx) error {
		if err := tx.InsertTransaction(ctx, newTxn(v.ID, "2026-04-01")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	txns, err := s.ListTransactions(ctx, core.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestInTx_CancelledContext(t *testing.T) {
	s := memory.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.InTx(ctx, func(tx core.Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestInsertTransaction_SeqAndOrdering(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	v := seedVendor(t, s, "V1")

	late, early, sameDay := newTxn(v.ID, "2026-04-03"), newTxn(v.ID, "2026-04-01"), newTxn(v.ID, "2026-04-03")
	require.NoError(t, s.InTx(ctx, func(tx core.Tx) error {
		for _, txn := range []*core.Transaction{late, early, sameDay} {
			if err := tx.InsertTransaction(ctx, txn); err != nil {
				return err
			}
		}
		return nil
	}))
	assert.Less(t, late.Seq, early.Seq)
	assert.Less(t, early.Seq, sameDay.Seq)

	txns, err := s.ListTransactions(ctx, core.TransactionFilter{CounterpartyID: v.ID})
	require.NoError(t, err)
	require.Len(t, txns, 3)
	assert.Equal(t, early.ID, txns[0].ID)
	assert.Equal(t, late.ID, txns[1].ID)
	assert.Equal(t, sameDay.ID, txns[2].ID)
}

func TestIdempotencyKeyIsUnique(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	v := seedVendor(t, s, "V1")

	a, b := newTxn(v.ID, "2026-04-01"), newTxn(v.ID, "2026-04-01")
	a.IdempotencyKey, b.IdempotencyKey = "k1", "k1"
	require.NoError(t, s.InTx(ctx, func(tx core.Tx) error { return tx.InsertTransaction(ctx, a) }))

	err := s.InTx(ctx, func(tx core.Tx) error { return tx.InsertTransaction(ctx, b) })
	assert.ErrorIs(t, err, core.ErrStoreConflict)

	found, err := s.FindTransactionByKey(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, a.ID, found.ID)

	missing, err := s.FindTransactionByKey(ctx, "k2")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDuplicateCodesConflict(t *testing.T) {
	s := memory.New()
	seedVendor(t, s, "V1")

	err := s.InTx(context.Background(), func(tx core.Tx) error {
		return tx.InsertVendor(context.Background(), &core.Vendor{ID: uuid.NewString(), Code: "V1", Class: core.ClassCollector})
	})
	assert.ErrorIs(t, err, core.ErrConflict)
}

func TestInsertAllocations_RequiresExistingRecords(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	err := s.InTx(ctx, func(tx core.Tx) error {
		return tx.InsertAllocations(ctx, []core.Allocation{{PaymentID: "p", TransactionID: "t", Amount: decimal.NewFromInt(1)}})
	})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestReturnedTransactionsAreCopies(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	v := seedVendor(t, s, "V1")
	txn := newTxn(v.ID, "2026-04-01")
	require.NoError(t, s.InTx(ctx, func(tx core.Tx) error { return tx.InsertTransaction(ctx, txn) }))

	got, err := s.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	got.Lines[0].Amount = decimal.NewFromInt(999)

	again, err := s.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, "100", again.Lines[0].Amount.String())
}

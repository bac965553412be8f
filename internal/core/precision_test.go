package core_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrap-ledger/internal/core"
)

func TestCreateTransaction_RejectsInputsFinerThanStored(t *testing.T) {
	f := newFixture(t)
	base := func(qty string) core.CreateTransactionInput {
		return core.CreateTransactionInput{
			CounterpartyID: f.v1.ID,
			Date:           day("2026-04-01"),
			Lines:          []core.LineSpec{{MaterialID: f.copper.ID, Quantity: dec(qty)}},
		}
	}

	tests := []struct {
		name   string
		mutate func(*core.CreateTransactionInput)
		want   error
	}{
		{"quantity below a gram", func(in *core.CreateTransactionInput) { *in = base("0.0004") }, core.ErrInvalidQuantity},
		{"quantity with four places", func(in *core.CreateTransactionInput) { *in = base("1.0004") }, core.ErrInvalidQuantity},
		{"gst with three places", func(in *core.CreateTransactionInput) { in.Surcharges.GST = dec("18.505") }, core.ErrInvalidAmount},
		{"freight with three places", func(in *core.CreateTransactionInput) { in.Surcharges.Freight = dec("0.001") }, core.ErrInvalidAmount},
		{"upfront with three places", func(in *core.CreateTransactionInput) { in.UpfrontPayment = dec("100.005") }, core.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base("1")
			tt.mutate(&in)
			_, err := f.ledger.CreateTransaction(context.Background(), in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, 0, f.transactionCount(t))

	txn := f.purchase(t, f.v1, "2026-04-01", f.copper, "1.000")
	requireMoney(t, "520", txn.Total)
}

func TestApplyPayment_RejectsSubPaisaAmount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	t1 := f.purchase(t, f.v1, "2026-04-01", f.copper, "10")

	for _, amount := range []string{"0.005", "3000.001"} {
		t.Run(amount, func(t *testing.T) {
			_, err := f.reconciler.ApplyPayment(ctx, core.PaymentInput{Amount: dec(amount), Date: day("2026-04-10"), TransactionID: t1.ID})
			assert.ErrorIs(t, err, core.ErrInvalidAmount)
		})
	}

	bal, err := f.reconciler.TransactionBalance(ctx, t1.ID)
	require.NoError(t, err)
	requireMoney(t, "0", bal.Paid)
	requireMoney(t, "5200", bal.Pending)
}

func TestReferenceData_RejectsRatesFinerThanStored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fine := dec("520.125")

	_, err := f.refs.CreateMaterial(ctx, core.MaterialInput{Code: "zn", Name: "Zinc", DefaultRate: &fine})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	_, err = f.refs.SetMaterialRate(ctx, f.brass.ID, fine)
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	_, err = f.refs.SetRateOverride(ctx, f.v1.ID, f.copper.ID, fine)
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	_, err = f.refs.CreateVendor(ctx, core.VendorInput{Code: "l2", Name: "Ramesh", Class: core.ClassLabour,
		Wage: &core.WageTerms{PerKgRate: dec("1.505")}})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	rate, err := f.rates.ResolveRate(ctx, f.v1.ID, f.copper.ID)
	require.NoError(t, err)
	requireMoney(t, "520", rate)

	_, err = f.refs.FindMaterial(ctx, "zn")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestAccrueWage_RejectsQuantitiesFinerThanStored(t *testing.T) {
	f := newFixture(t)

	_, err := f.wages.AccrueWage(context.Background(), core.WageInput{WorkerID: f.worker.ID, Date: day("2026-04-03"), Kg: dec("10.0005")})
	assert.ErrorIs(t, err, core.ErrInvalidQuantity)
	assert.Equal(t, 0, f.transactionCount(t))
}

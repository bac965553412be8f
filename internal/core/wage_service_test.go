package core_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrap-ledger/internal/core"
)

func TestAccrueWage_DaysAndKg(t *testing.T) {
	f := newFixture(t)

	txn, err := f.wages.AccrueWage(context.Background(), core.WageInput{
		WorkerID: f.worker.ID,
		Date:     day("2026-04-03"),
		Days:     dec("1"),
		Kg:       dec("350"),
	})
	require.NoError(t, err)

	assert.Equal(t, core.KindWage, txn.Kind)
	assert.Equal(t, core.DispositionDeferred, txn.Disposition)
	require.Len(t, txn.Lines, 2)
	assert.Equal(t, core.UnitDay, txn.Lines[0].Unit)
	requireMoney(t, "600", txn.Lines[0].Amount)
	assert.Equal(t, core.UnitKg, txn.Lines[1].Unit)
	requireMoney(t, "700", txn.Lines[1].Amount)
	requireMoney(t, "1300", txn.Total)
}

func TestAccrueWage_MonthlySalaryFallback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	salaried, err := f.refs.CreateVendor(ctx, core.VendorInput{
		Code:  "l2",
		Name:  "Mahesh",
		Class: core.ClassLabour,
		Wage:  &core.WageTerms{MonthlySalary: dec("15000")},
	})
	require.NoError(t, err)
	assert.Equal(t, core.WorkerLabour, salaried.Wage.WorkerType)

	// April has 30 days.
	txn, err := f.wages.AccrueWage(ctx, core.WageInput{WorkerID: salaried.ID, Date: day("2026-04-10"), Days: dec("2")})
	require.NoError(t, err)
	requireMoney(t, "500", txn.Lines[0].UnitRate)
	requireMoney(t, "1000", txn.Total)

	_, err = f.wages.AccrueWage(ctx, core.WageInput{WorkerID: salaried.ID, Date: day("2026-04-10"), Kg: dec("10")})
	assert.ErrorIs(t, err, core.ErrRateNotFound)
}

func TestAccrueWage_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.wages.AccrueWage(ctx, core.WageInput{WorkerID: f.worker.ID, Date: day("2026-04-03")})
	assert.ErrorIs(t, err, core.ErrEmptyTransaction)

	_, err = f.wages.AccrueWage(ctx, core.WageInput{WorkerID: f.worker.ID, Date: day("2026-04-03"), Days: dec("-1")})
	assert.ErrorIs(t, err, core.ErrInvalidQuantity)

	_, err = f.wages.AccrueWage(ctx, core.WageInput{WorkerID: f.v1.ID, Date: day("2026-04-03"), Days: dec("1")})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	assert.Equal(t, 0, f.transactionCount(t))
}

func TestSalarySummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w1, err := f.wages.AccrueWage(ctx, core.WageInput{WorkerID: f.worker.ID, Date: day("2026-04-01"), Days: dec("1"), Kg: dec("100")})
	require.NoError(t, err)
	_, err = f.wages.AccrueWage(ctx, core.WageInput{WorkerID: f.worker.ID, Date: day("2026-04-02"), Days: dec("0.5")})
	require.NoError(t, err)
	_, err = f.wages.AccrueWage(ctx, core.WageInput{WorkerID: f.worker.ID, Date: day("2026-05-01"), Days: dec("1")})
	require.NoError(t, err)
	f.pay(t, core.PaymentInput{Amount: dec("800"), TransactionID: w1.ID})

	rows, err := f.wages.SalarySummary(ctx, 2026, time.April)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	r := rows[0]
	assert.Equal(t, "L1", r.Code)
	assert.Equal(t, 30, r.TotalDays)
	assert.Equal(t, "1.5", r.DaysWorked.String())
	assert.Equal(t, "100", r.KgHandled.String())
	requireMoney(t, "1100", r.Earned)
	requireMoney(t, "800", r.Paid)
	requireMoney(t, "300", r.Pending)

	_, err = f.wages.SalarySummary(ctx, 2026, 13)
	assert.ErrorIs(t, err, core.ErrInvalidPeriod)
}

func TestAccrueWage_IdempotencyKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := core.WageInput{WorkerID: f.worker.ID, Date: day("2026-04-01"), Days: dec("1"), IdempotencyKey: "attendance-04-01-l1"}

	first, err := f.wages.AccrueWage(ctx, in)
	require.NoError(t, err)
	second, err := f.wages.AccrueWage(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, f.transactionCount(t))
}

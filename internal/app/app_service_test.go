package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrap-ledger/internal/app"
	"scrap-ledger/internal/catalogfile"
	"scrap-ledger/internal/core"
	"scrap-ledger/internal/store/memory"
)

func newService(t *testing.T) app.ApplicationService {
	t.Helper()
	svc := app.NewAppService(memory.New(), core.Options{
		Logger: zerolog.Nop(),
		Now:    func() time.Time { return time.Date(2026, 4, 20, 15, 30, 0, 0, time.UTC) },
	})

	c, err := catalogfile.Parse([]byte(`
materials:
  - {code: CU, name: Copper, rate: "500"}
  - {code: AL, name: Aluminium, rate: "150"}
vendors:
  - {code: V1, name: Ravi Traders, class: yard-vendor, overrides: {CU: "520"}}
  - {code: MILL, name: Steel Mill, class: mill-buyer}
  - {code: L1, name: Suresh, class: labour, wage: {daily_wage: "600"}}
`))
	require.NoError(t, err)
	_, err = svc.SeedCatalog(context.Background(), c)
	require.NoError(t, err)
	return svc
}

func TestAppService_ResolveRateByCode(t *testing.T) {
	svc := newService(t)

	res, err := svc.ResolveRate(context.Background(), app.ResolveRateRequest{VendorRef: "v1", MaterialRef: "cu"})
	require.NoError(t, err)
	assert.Equal(t, "520", res.UnitRate.String())
	assert.Equal(t, "Ravi Traders", res.Vendor.Name)
}

func TestAppService_TransactionLifecycle(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	created, err := svc.CreateTransaction(ctx, app.CreateTransactionRequest{
		CounterpartyRef: "V1",
		Lines: []app.LineInput{
			{MaterialRef: "CU", Quantity: decimal.RequireFromString("10")},
			{MaterialRef: "AL", Quantity: decimal.RequireFromString("4")},
		},
		Freight:        decimal.RequireFromString("150"),
		UpfrontPayment: decimal.RequireFromString("1000"),
		PaymentMode:    "UPI",
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-04-20", created.Transaction.Date.Format("2006-01-02"))
	assert.Equal(t, "5950.00", created.Transaction.Total.StringFixed(2))
	assert.Equal(t, "4950.00", created.Balance.Pending.StringFixed(2))
	assert.Equal(t, "V1", created.Counterparty.Code)

	paid, err := svc.ApplyPayment(ctx, app.ApplyPaymentRequest{
		Amount:          decimal.RequireFromString("5000"),
		Date:            "2026-04-21",
		CounterpartyRef: "V1",
	})
	require.NoError(t, err)
	assert.Equal(t, "50.00", paid.Balance.Credit.StringFixed(2))
	assert.Equal(t, "0.00", paid.Balance.Pending.StringFixed(2))

	shown, err := svc.GetTransaction(ctx, created.Transaction.ID)
	require.NoError(t, err)
	assert.True(t, shown.Balance.Pending.IsZero())

	list, err := svc.ListTransactions(ctx, app.ListTransactionsRequest{CounterpartyRef: "V1", From: "2026-04-01", To: "2026-04-30"})
	require.NoError(t, err)
	require.Len(t, list.Transactions, 1)
	assert.True(t, list.Balances[created.Transaction.ID].Pending.IsZero())

	sales, err := svc.ListTransactions(ctx, app.ListTransactionsRequest{Kind: "SALE"})
	require.NoError(t, err)
	assert.Empty(t, sales.Transactions)

	_, err = svc.ListTransactions(ctx, app.ListTransactionsRequest{Kind: "refund"})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	payments, err := svc.ListPayments(ctx, app.ListPaymentsRequest{CounterpartyRef: "V1"})
	require.NoError(t, err)
	assert.Len(t, payments.Payments, 2)
	assert.Equal(t, core.ModeUPI, payments.Payments[0].Mode)
}

func TestAppService_BalanceOfRequiresOneTarget(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.BalanceOf(ctx, app.BalanceRequest{})
	assert.ErrorIs(t, err, core.ErrInvalidTarget)

	_, err = svc.BalanceOf(ctx, app.BalanceRequest{TransactionID: "x", CounterpartyRef: "V1"})
	assert.ErrorIs(t, err, core.ErrInvalidTarget)

	res, err := svc.BalanceOf(ctx, app.BalanceRequest{CounterpartyRef: "mill"})
	require.NoError(t, err)
	assert.Equal(t, "MILL", res.Counterparty.Code)
	assert.True(t, res.Balance.Total.IsZero())
}

func TestAppService_SummarizeAddsGrandTotal(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	for _, ref := range []string{"V1", "MILL"} {
		_, err := svc.CreateTransaction(ctx, app.CreateTransactionRequest{
			CounterpartyRef: ref,
			Date:            "2026-04-05",
			Lines:           []app.LineInput{{MaterialRef: "CU", Quantity: decimal.RequireFromString("1")}},
			Disposition:     "settled",
		})
		require.NoError(t, err)
	}

	res, err := svc.Summarize(ctx, app.SummaryRequest{From: "2026-04-01", To: "2026-04-30", GroupBy: "Counterparty"})
	require.NoError(t, err)
	require.Len(t, res.Groups, 2)
	assert.Equal(t, 2, res.Total.TransactionCount)
	assert.Equal(t, "1020.00", res.Total.Total.StringFixed(2))
	assert.Equal(t, "1020.00", res.Total.Paid.StringFixed(2))

	_, err = svc.Summarize(ctx, app.SummaryRequest{From: "2026-04-01"})
	assert.ErrorIs(t, err, core.ErrInvalidPeriod)

	_, err = svc.Summarize(ctx, app.SummaryRequest{From: "01/04/2026", To: "2026-04-30"})
	assert.ErrorIs(t, err, core.ErrInvalidPeriod)
}

func TestAppService_WagesAndSalarySummary(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	accrued, err := svc.AccrueWage(ctx, app.AccrueWageRequest{WorkerRef: "L1", Date: "2026-04-02", Days: decimal.RequireFromString("2")})
	require.NoError(t, err)
	assert.Equal(t, "1200.00", accrued.Balance.Pending.StringFixed(2))

	res, err := svc.SalarySummary(ctx, 2026, 4)
	require.NoError(t, err)
	require.Len(t, res.Workers, 1)
	assert.Equal(t, "1200.00", res.Workers[0].Earned.StringFixed(2))
}

func TestAppService_ReferenceData(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	rate := decimal.RequireFromString("42")
	m, err := svc.CreateMaterial(ctx, app.CreateMaterialRequest{Code: "fe", Name: "Iron", DefaultRate: &rate})
	require.NoError(t, err)
	assert.Equal(t, "FE", m.Material.Code)

	updated, err := svc.SetMaterialRate(ctx, app.SetMaterialRateRequest{MaterialRef: "FE", Rate: decimal.RequireFromString("45")})
	require.NoError(t, err)
	assert.Equal(t, "45", updated.Material.DefaultRate.String())

	v, err := svc.CreateVendor(ctx, app.CreateVendorRequest{
		Code: "L2", Name: "Ramesh", Class: "labour",
		Wage: &app.WageTermsInput{WorkerType: "Contractor", PerKgRate: decimal.RequireFromString("1.25")},
	})
	require.NoError(t, err)
	require.NotNil(t, v.Vendor.Wage)
	assert.Equal(t, core.WorkerContractor, v.Vendor.Wage.WorkerType)

	labour, err := svc.ListVendors(ctx, "labour")
	require.NoError(t, err)
	assert.Len(t, labour.Vendors, 2)

	_, err = svc.SetRateOverride(ctx, app.SetRateOverrideRequest{VendorRef: "V1", MaterialRef: "FE", Rate: decimal.RequireFromString("50")})
	require.NoError(t, err)
	overrides, err := svc.ListRateOverrides(ctx, "V1")
	require.NoError(t, err)
	assert.Len(t, overrides.Overrides, 2)

	materials, err := svc.ListMaterials(ctx)
	require.NoError(t, err)
	assert.Len(t, materials.Materials, 3)
}

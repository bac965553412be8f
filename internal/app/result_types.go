package app

import (
	"github.com/shopspring/decimal"

	"scrap-ledger/internal/core"
)

// RateResult is returned by ResolveRate.
type RateResult struct {
	Vendor   *core.Vendor
	Material *core.Material
	UnitRate decimal.Decimal
}

// TransactionResult is returned by transaction operations.
type TransactionResult struct {
	Transaction  *core.Transaction
	Counterparty *core.Vendor
	Balance      core.Balance
}

// TransactionListResult is returned by ListTransactions.
type TransactionListResult struct {
	Transactions []core.Transaction
	Balances     map[string]core.Balance
}

// PaymentResult is returned by ApplyPayment.
type PaymentResult struct {
	Payment     core.Payment
	Allocations []core.Allocation
	Balance     core.Balance
	Replayed    bool
}

// PaymentListResult is returned by ListPayments.
type PaymentListResult struct {
	Payments []core.Payment
}

// BalanceResult is returned by BalanceOf.
type BalanceResult struct {
	TransactionID string
	Counterparty  *core.Vendor
	Balance       core.Balance
}

// SummaryResult is returned by Summarize.
type SummaryResult struct {
	From   string
	To     string
	Groups []core.PeriodSummary
	Total  core.PeriodSummary
}

// SalarySummaryResult is returned by SalarySummary.
type SalarySummaryResult struct {
	Year    int
	Month   int
	Workers []core.WorkerSalary
}

// MaterialResult is returned by material operations.
type MaterialResult struct {
	Material *core.Material
}

// MaterialListResult is returned by ListMaterials.
type MaterialListResult struct {
	Materials []core.Material
}

// VendorResult is returned by CreateVendor.
type VendorResult struct {
	Vendor *core.Vendor
}

// VendorListResult is returned by ListVendors.
type VendorListResult struct {
	Vendors []core.Vendor
}

// RateOverrideResult is returned by SetRateOverride.
type RateOverrideResult struct {
	Override *core.RateOverride
}

// RateOverrideListResult is returned by ListRateOverrides.
type RateOverrideListResult struct {
	Vendor    *core.Vendor
	Overrides []core.RateOverride
}

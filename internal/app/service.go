package app

import (
	"context"

	"scrap-ledger/internal/catalogfile"
)

// ApplicationService is the single interface all adapters call. It decouples
// presentation from the ledger core: requests carry plain strings and
// decimals, counterparties and materials may be referenced by code or ID.
// Implementations must contain no display logic of any kind.
type ApplicationService interface {
	// ResolveRate returns the effective unit rate of a material for a vendor.
	ResolveRate(ctx context.Context, req ResolveRateRequest) (*RateResult, error)

	// CreateTransaction prices and records a purchase or sale.
	CreateTransaction(ctx context.Context, req CreateTransactionRequest) (*TransactionResult, error)

	// GetTransaction returns one transaction with its current balance.
	GetTransaction(ctx context.Context, id string) (*TransactionResult, error)

	// ListTransactions returns transactions ordered by date, then creation order.
	// All filters are optional.
	ListTransactions(ctx context.Context, req ListTransactionsRequest) (*TransactionListResult, error)

	// ApplyPayment records a payment against a transaction or a counterparty.
	ApplyPayment(ctx context.Context, req ApplyPaymentRequest) (*PaymentResult, error)

	// ListPayments returns payments ordered by date, then creation order.
	ListPayments(ctx context.Context, req ListPaymentsRequest) (*PaymentListResult, error)

	// BalanceOf returns the balance of exactly one transaction or counterparty.
	BalanceOf(ctx context.Context, req BalanceRequest) (*BalanceResult, error)

	// Summarize returns period rollups for the requested grouping.
	Summarize(ctx context.Context, req SummaryRequest) (*SummaryResult, error)

	// AccrueWage records labour days and/or kilograms as a wage transaction.
	AccrueWage(ctx context.Context, req AccrueWageRequest) (*TransactionResult, error)

	// SalarySummary returns the per-worker salary table for one month.
	SalarySummary(ctx context.Context, year, month int) (*SalarySummaryResult, error)

	// CreateMaterial adds a material to the catalog.
	CreateMaterial(ctx context.Context, req CreateMaterialRequest) (*MaterialResult, error)

	// SetMaterialRate changes a material's default rate for future transactions.
	SetMaterialRate(ctx context.Context, req SetMaterialRateRequest) (*MaterialResult, error)

	// ListMaterials returns every material ordered by code.
	ListMaterials(ctx context.Context) (*MaterialListResult, error)

	// CreateVendor adds a counterparty.
	CreateVendor(ctx context.Context, req CreateVendorRequest) (*VendorResult, error)

	// ListVendors returns counterparties ordered by code, optionally of one class.
	ListVendors(ctx context.Context, class string) (*VendorListResult, error)

	// SetRateOverride sets a vendor-specific rate for one material.
	SetRateOverride(ctx context.Context, req SetRateOverrideRequest) (*RateOverrideResult, error)

	// ListRateOverrides returns every override of one vendor.
	ListRateOverrides(ctx context.Context, vendorRef string) (*RateOverrideListResult, error)

	// SeedCatalog applies a reference-data file. Existing codes are skipped.
	SeedCatalog(ctx context.Context, catalog *catalogfile.Catalog) (*catalogfile.Result, error)
}

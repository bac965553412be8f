package app

import (
	"github.com/shopspring/decimal"
)

// ResolveRateRequest is the input for ResolveRate.
type ResolveRateRequest struct {
	VendorRef   string
	MaterialRef string
}

// CreateTransactionRequest is the input for recording a purchase or sale.
type CreateTransactionRequest struct {
	CounterpartyRef string
	Date            string // YYYY-MM-DD; empty means today
	Lines           []LineInput
	GST             decimal.Decimal
	Freight         decimal.Decimal
	Disposition     string // settled | deferred
	UpfrontPayment  decimal.Decimal
	PaymentMode     string
	IdempotencyKey  string
	BillTo          string
	VehicleNumber   string
	Notes           string
}

// LineInput is a single line within a CreateTransactionRequest.
type LineInput struct {
	MaterialRef string
	Quantity    decimal.Decimal
}

// ListTransactionsRequest filters ListTransactions. Empty fields are ignored.
type ListTransactionsRequest struct {
	CounterpartyRef string
	Kind            string
	From            string
	To              string
}

// ApplyPaymentRequest is the input for ApplyPayment. Exactly one of
// TransactionID and CounterpartyRef must be set.
type ApplyPaymentRequest struct {
	Amount          decimal.Decimal
	Date            string
	TransactionID   string
	CounterpartyRef string
	Mode            string
	Reference       string
	Note            string
	IdempotencyKey  string
}

// ListPaymentsRequest filters ListPayments. Empty fields are ignored.
type ListPaymentsRequest struct {
	CounterpartyRef string
	TransactionID   string
	From            string
	To              string
}

// BalanceRequest selects one transaction or one counterparty.
type BalanceRequest struct {
	TransactionID   string
	CounterpartyRef string
}

// SummaryRequest is the input for Summarize. From and To are required.
type SummaryRequest struct {
	CounterpartyRef string
	Kind            string
	From            string
	To              string
	GroupBy         string
}

// AccrueWageRequest is the input for AccrueWage.
type AccrueWageRequest struct {
	WorkerRef      string
	Date           string
	Days           decimal.Decimal
	Kg             decimal.Decimal
	Notes          string
	IdempotencyKey string
}

// CreateMaterialRequest is the input for creating a material.
type CreateMaterialRequest struct {
	Code        string
	Name        string
	Unit        string
	DefaultRate *decimal.Decimal
}

// SetMaterialRateRequest changes a material's default rate.
type SetMaterialRateRequest struct {
	MaterialRef string
	Rate        decimal.Decimal
}

// CreateVendorRequest is the input for creating a counterparty.
type CreateVendorRequest struct {
	Code    string
	Name    string
	Class   string
	Contact string
	Wage    *WageTermsInput // labour only
}

// WageTermsInput carries the pay rates of a labour counterparty.
type WageTermsInput struct {
	WorkerType    string
	Role          string
	DailyWage     decimal.Decimal
	MonthlySalary decimal.Decimal
	PerKgRate     decimal.Decimal
}

// SetRateOverrideRequest sets a vendor-specific rate.
type SetRateOverrideRequest struct {
	VendorRef   string
	MaterialRef string
	Rate        decimal.Decimal
}

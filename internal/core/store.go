package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionFilter selects transactions. Zero values mean "no filter"; set
// fields combine with AND. Date bounds are inclusive.
type TransactionFilter struct {
	CounterpartyID string
	Kind           TransactionKind
	From           *time.Time
	To             *time.Time
}

// Matches reports whether t passes the filter.
func (f TransactionFilter) Matches(t *Transaction) bool {
	if f.CounterpartyID != "" && t.CounterpartyID != f.CounterpartyID {
		return false
	}
	if f.Kind != "" && t.Kind != f.Kind {
		return false
	}
	if f.From != nil && t.Date.Before(DateOnly(*f.From)) {
		return false
	}
	if f.To != nil && t.Date.After(DateOnly(*f.To)) {
		return false
	}
	return true
}

// PaymentFilter selects payments, with the same conventions as TransactionFilter.
type PaymentFilter struct {
	CounterpartyID string
	TransactionID  string
	From           *time.Time
	To             *time.Time
}

// Matches reports whether p passes the filter.
func (f PaymentFilter) Matches(p *Payment) bool {
	if f.CounterpartyID != "" && p.CounterpartyID != f.CounterpartyID {
		return false
	}
	if f.TransactionID != "" && (p.TransactionID == nil || *p.TransactionID != f.TransactionID) {
		return false
	}
	if f.From != nil && p.Date.Before(DateOnly(*f.From)) {
		return false
	}
	if f.To != nil && p.Date.After(DateOnly(*f.To)) {
		return false
	}
	return true
}

// Reader is the read side of the record store. Implementations must return
// ErrNotFound (wrapped) for missing single records.
type Reader interface {
	GetMaterial(ctx context.Context, id string) (*Material, error)
	GetMaterialByCode(ctx context.Context, code string) (*Material, error)
	ListMaterials(ctx context.Context) ([]Material, error)

	GetVendor(ctx context.Context, id string) (*Vendor, error)
	GetVendorByCode(ctx context.Context, code string) (*Vendor, error)
	// ListVendors returns vendors ordered by code. An empty class returns all.
	ListVendors(ctx context.Context, class CounterpartyClass) ([]Vendor, error)

	// GetRateOverride returns (nil, nil) when no override exists.
	GetRateOverride(ctx context.Context, vendorID, materialID string) (*RateOverride, error)
	ListRateOverrides(ctx context.Context, vendorID string) ([]RateOverride, error)

	GetTransaction(ctx context.Context, id string) (*Transaction, error)
	// FindTransactionByKey returns (nil, nil) when the key is unused.
	FindTransactionByKey(ctx context.Context, key string) (*Transaction, error)
	// ListTransactions returns matches ordered by date, then Seq.
	ListTransactions(ctx context.Context, f TransactionFilter) ([]Transaction, error)

	// FindPaymentByKey returns (nil, nil) when the key is unused.
	FindPaymentByKey(ctx context.Context, key string) (*Payment, error)
	// ListPayments returns matches ordered by date, then Seq.
	ListPayments(ctx context.Context, f PaymentFilter) ([]Payment, error)
	// ListAllocations returns every allocation of the given transactions, or
	// of every transaction when ids is empty.
	ListAllocations(ctx context.Context, transactionIDs []string) ([]Allocation, error)
	// ListPaymentAllocations returns every allocation made from the given payments.
	ListPaymentAllocations(ctx context.Context, paymentIDs []string) ([]Allocation, error)
}

// Tx is one atomic unit of work. Writes become visible only after the
// enclosing Store.InTx callback returns nil.
type Tx interface {
	Reader

	// LockVendor serializes all writers on the counterparty until the unit ends.
	LockVendor(ctx context.Context, id string) error
	// LockTransaction serializes writers on one transaction.
	LockTransaction(ctx context.Context, id string) error

	InsertMaterial(ctx context.Context, m *Material) error
	UpdateMaterialRate(ctx context.Context, id string, rate decimal.Decimal) error
	InsertVendor(ctx context.Context, v *Vendor) error
	UpsertRateOverride(ctx context.Context, o *RateOverride) error

	// InsertTransaction persists t with its lines and assigns t.Seq.
	InsertTransaction(ctx context.Context, t *Transaction) error
	// InsertPayment persists p and its allocations and assigns p.Seq.
	InsertPayment(ctx context.Context, p *Payment, allocs []Allocation) error
	// InsertAllocations appends allocations from already stored payments.
	InsertAllocations(ctx context.Context, allocs []Allocation) error
}

// Store is the durable record store the ledger runs against.
type Store interface {
	Reader
	// InTx runs fn in one atomic unit. If fn returns an error nothing it wrote
	// is kept.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultStoreTimeout bounds every store interaction when Options leaves it unset.
const DefaultStoreTimeout = 5 * time.Second

// OverpaymentPolicy controls how far a targeted payment may exceed a
// transaction's total. The zero value rejects any overpayment.
type OverpaymentPolicy struct {
	Allow     bool
	Tolerance decimal.Decimal
}

// limit returns the largest paid amount accepted for total.
func (p OverpaymentPolicy) limit(total decimal.Decimal) decimal.Decimal {
	if !p.Allow || p.Tolerance.IsNegative() {
		return total
	}
	return total.Add(p.Tolerance)
}

// Options carries the shared settings of the ledger services.
type Options struct {
	Logger       zerolog.Logger
	StoreTimeout time.Duration
	Overpayment  OverpaymentPolicy
	// Now is the clock used for CreatedAt stamps. Defaults to time.Now.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.StoreTimeout <= 0 {
		o.StoreTimeout = DefaultStoreTimeout
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// bounded derives the per-call store deadline.
func (o Options) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, o.StoreTimeout)
}

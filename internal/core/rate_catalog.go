package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// RateCatalog resolves the effective unit rate of a material for a vendor.
type RateCatalog interface {
	// ResolveRate returns the vendor's override for the material if one exists,
	// otherwise the material's default rate. It never falls back to zero:
	// when neither exists it fails with ErrRateNotFound.
	ResolveRate(ctx context.Context, vendorID, materialID string) (decimal.Decimal, error)
}

type rateCatalog struct {
	store Reader
	opts  Options
}

// NewRateCatalog constructs a RateCatalog reading from store.
func NewRateCatalog(store Reader, opts Options) RateCatalog {
	return &rateCatalog{store: store, opts: opts.withDefaults()}
}

func (c *rateCatalog) ResolveRate(ctx context.Context, vendorID, materialID string) (decimal.Decimal, error) {
	ctx, cancel := c.opts.bounded(ctx)
	defer cancel()
	return resolveRate(ctx, c.store, vendorID, materialID)
}

// resolveRate is shared with TransactionLedger so resolution runs against the
// same unit of work as the insert.
func resolveRate(ctx context.Context, r Reader, vendorID, materialID string) (decimal.Decimal, error) {
	const op = "resolve rate"

	if _, err := r.GetVendor(ctx, vendorID); err != nil {
		return decimal.Zero, storeFailure(ctx, op, err)
	}
	material, err := r.GetMaterial(ctx, materialID)
	if err != nil {
		return decimal.Zero, storeFailure(ctx, op, err)
	}

	override, err := r.GetRateOverride(ctx, vendorID, materialID)
	if err != nil {
		return decimal.Zero, storeFailure(ctx, op, err)
	}
	if override != nil && override.Rate.IsPositive() {
		return override.Rate, nil
	}
	if material.DefaultRate != nil && material.DefaultRate.IsPositive() {
		return *material.DefaultRate, nil
	}
	return decimal.Zero, newError(ErrRateNotFound, op, "no rate for material %s (vendor %s)", material.Code, vendorID)
}

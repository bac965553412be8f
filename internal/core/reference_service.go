package core

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaterialInput describes a new material.
type MaterialInput struct {
	Code        string
	Name        string
	Unit        string
	DefaultRate *decimal.Decimal
}

// VendorInput describes a new counterparty. Wage is only kept for labour.
type VendorInput struct {
	Code    string
	Name    string
	Class   CounterpartyClass
	Contact string
	Wage    *WageTerms
}

// ReferenceService administers materials, vendors and rate overrides.
// Rate changes only affect future resolutions; committed lines keep the rate
// they were priced at.
type ReferenceService interface {
	CreateMaterial(ctx context.Context, in MaterialInput) (*Material, error)
	SetMaterialRate(ctx context.Context, materialID string, rate decimal.Decimal) (*Material, error)
	ListMaterials(ctx context.Context) ([]Material, error)
	// FindMaterial accepts an ID or a code.
	FindMaterial(ctx context.Context, ref string) (*Material, error)

	CreateVendor(ctx context.Context, in VendorInput) (*Vendor, error)
	GetVendor(ctx context.Context, id string) (*Vendor, error)
	// FindVendor accepts an ID or a code.
	FindVendor(ctx context.Context, ref string) (*Vendor, error)
	ListVendors(ctx context.Context, class CounterpartyClass) ([]Vendor, error)

	SetRateOverride(ctx context.Context, vendorID, materialID string, rate decimal.Decimal) (*RateOverride, error)
	ListRateOverrides(ctx context.Context, vendorID string) ([]RateOverride, error)
}

type referenceService struct {
	store Store
	opts  Options
}

// NewReferenceService constructs a ReferenceService over store.
func NewReferenceService(store Store, opts Options) ReferenceService {
	return &referenceService{store: store, opts: opts.withDefaults()}
}

func (s *referenceService) CreateMaterial(ctx context.Context, in MaterialInput) (*Material, error) {
	const op = "create material"

	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	in.Name = strings.TrimSpace(in.Name)
	in.Unit = strings.ToLower(strings.TrimSpace(in.Unit))
	if in.Unit == "" {
		in.Unit = UnitKg
	}
	if in.Code == "" || in.Name == "" {
		return nil, newError(ErrInvalidInput, op, "code and name are required")
	}
	if in.DefaultRate != nil && !in.DefaultRate.IsPositive() {
		return nil, newError(ErrInvalidAmount, op, "default rate must be > 0, got %s", in.DefaultRate.String())
	}
	if in.DefaultRate != nil {
		if err := checkMoney(op, "default rate", *in.DefaultRate); err != nil {
			return nil, err
		}
	}

	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()

	m := &Material{
		ID:          uuid.NewString(),
		Code:        in.Code,
		Name:        in.Name,
		Unit:        in.Unit,
		DefaultRate: in.DefaultRate,
		CreatedAt:   s.opts.Now().UTC(),
	}
	err := s.store.InTx(ctx, func(tx Tx) error {
		if _, err := tx.GetMaterialByCode(ctx, m.Code); err == nil {
			return newError(ErrConflict, op, "material code %s already exists", m.Code)
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		return tx.InsertMaterial(ctx, m)
	})
	if err != nil {
		return nil, storeFailure(ctx, op, err)
	}
	s.opts.Logger.Info().Str("material_id", m.ID).Str("code", m.Code).Msg("material created")
	return m, nil
}

func (s *referenceService) SetMaterialRate(ctx context.Context, materialID string, rate decimal.Decimal) (*Material, error) {
	const op = "set material rate"

	if !rate.IsPositive() {
		return nil, newError(ErrInvalidAmount, op, "rate must be > 0, got %s", rate.String())
	}
	if err := checkMoney(op, "rate", rate); err != nil {
		return nil, err
	}

	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()

	var updated *Material
	err := s.store.InTx(ctx, func(tx Tx) error {
		if err := tx.UpdateMaterialRate(ctx, materialID, rate); err != nil {
			return err
		}
		m, err := tx.GetMaterial(ctx, materialID)
		if err != nil {
			return err
		}
		updated = m
		return nil
	})
	if err != nil {
		return nil, storeFailure(ctx, op, err)
	}
	s.opts.Logger.Info().Str("material_id", materialID).Str("rate", rate.String()).Msg("material rate updated")
	return updated, nil
}

func (s *referenceService) ListMaterials(ctx context.Context) ([]Material, error) {
	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()

	materials, err := s.store.ListMaterials(ctx)
	if err != nil {
		return nil, storeFailure(ctx, "list materials", err)
	}
	return materials, nil
}

func (s *referenceService) FindMaterial(ctx context.Context, ref string) (*Material, error) {
	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()

	ref = strings.TrimSpace(ref)
	m, err := s.store.GetMaterialByCode(ctx, strings.ToUpper(ref))
	if errors.Is(err, ErrNotFound) {
		if _, perr := uuid.Parse(ref); perr == nil {
			m, err = s.store.GetMaterial(ctx, ref)
		}
	}
	if err != nil {
		return nil, storeFailure(ctx, "find material", err)
	}
	return m, nil
}

func (s *referenceService) CreateVendor(ctx context.Context, in VendorInput) (*Vendor, error) {
	const op = "create vendor"

	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	in.Name = strings.TrimSpace(in.Name)
	if in.Code == "" || in.Name == "" {
		return nil, newError(ErrInvalidInput, op, "code and name are required")
	}
	if !in.Class.Valid() {
		return nil, newError(ErrInvalidInput, op, "unknown counterparty class %q", in.Class)
	}
	if in.Class != ClassLabour {
		in.Wage = nil
	}
	if in.Wage != nil {
		if err := validateWageTerms(in.Wage); err != nil {
			return nil, err
		}
	}

	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()

	v := &Vendor{
		ID:        uuid.NewString(),
		Code:      in.Code,
		Name:      in.Name,
		Class:     in.Class,
		Contact:   in.Contact,
		Wage:      in.Wage,
		CreatedAt: s.opts.Now().UTC(),
	}
	err := s.store.InTx(ctx, func(tx Tx) error {
		if _, err := tx.GetVendorByCode(ctx, v.Code); err == nil {
			return newError(ErrConflict, op, "vendor code %s already exists", v.Code)
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		return tx.InsertVendor(ctx, v)
	})
	if err != nil {
		return nil, storeFailure(ctx, op, err)
	}
	s.opts.Logger.Info().Str("vendor_id", v.ID).Str("code", v.Code).Str("class", string(v.Class)).Msg("vendor created")
	return v, nil
}

func validateWageTerms(w *WageTerms) error {
	const op = "create vendor"

	if w.WorkerType == "" {
		w.WorkerType = WorkerLabour
	}
	if w.WorkerType != WorkerLabour && w.WorkerType != WorkerContractor {
		return newError(ErrInvalidInput, op, "unknown worker type %q", w.WorkerType)
	}
	for name, v := range map[string]decimal.Decimal{
		"daily wage":     w.DailyWage,
		"monthly salary": w.MonthlySalary,
		"per-kg rate":    w.PerKgRate,
	} {
		if v.IsNegative() {
			return newError(ErrInvalidAmount, op, "%s cannot be negative, got %s", name, v.String())
		}
		if err := checkMoney(op, name, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *referenceService) GetVendor(ctx context.Context, id string) (*Vendor, error) {
	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()

	v, err := s.store.GetVendor(ctx, id)
	if err != nil {
		return nil, storeFailure(ctx, "get vendor", err)
	}
	return v, nil
}

func (s *referenceService) FindVendor(ctx context.Context, ref string) (*Vendor, error) {
	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()

	ref = strings.TrimSpace(ref)
	v, err := s.store.GetVendorByCode(ctx, strings.ToUpper(ref))
	if errors.Is(err, ErrNotFound) {
		if _, perr := uuid.Parse(ref); perr == nil {
			v, err = s.store.GetVendor(ctx, ref)
		}
	}
	if err != nil {
		return nil, storeFailure(ctx, "find vendor", err)
	}
	return v, nil
}

func (s *referenceService) ListVendors(ctx context.Context, class CounterpartyClass) ([]Vendor, error) {
	if class != "" && !class.Valid() {
		return nil, newError(ErrInvalidInput, "list vendors", "unknown counterparty class %q", class)
	}

	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()

	vendors, err := s.store.ListVendors(ctx, class)
	if err != nil {
		return nil, storeFailure(ctx, "list vendors", err)
	}
	return vendors, nil
}

func (s *referenceService) SetRateOverride(ctx context.Context, vendorID, materialID string, rate decimal.Decimal) (*RateOverride, error) {
	const op = "set rate override"

	if !rate.IsPositive() {
		return nil, newError(ErrInvalidAmount, op, "rate must be > 0, got %s", rate.String())
	}
	if err := checkMoney(op, "rate", rate); err != nil {
		return nil, err
	}

	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()

	o := &RateOverride{
		VendorID:   vendorID,
		MaterialID: materialID,
		Rate:       rate,
		UpdatedAt:  s.opts.Now().UTC(),
	}
	err := s.store.InTx(ctx, func(tx Tx) error {
		if _, err := tx.GetVendor(ctx, vendorID); err != nil {
			return err
		}
		if _, err := tx.GetMaterial(ctx, materialID); err != nil {
			return err
		}
		return tx.UpsertRateOverride(ctx, o)
	})
	if err != nil {
		return nil, storeFailure(ctx, op, err)
	}
	s.opts.Logger.Info().
		Str("vendor_id", vendorID).
		Str("material_id", materialID).
		Str("rate", rate.String()).
		Msg("rate override set")
	return o, nil
}

func (s *referenceService) ListRateOverrides(ctx context.Context, vendorID string) ([]RateOverride, error) {
	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()

	if _, err := s.store.GetVendor(ctx, vendorID); err != nil {
		return nil, storeFailure(ctx, "list rate overrides", err)
	}
	overrides, err := s.store.ListRateOverrides(ctx, vendorID)
	if err != nil {
		return nil, storeFailure(ctx, "list rate overrides", err)
	}
	return overrides, nil
}

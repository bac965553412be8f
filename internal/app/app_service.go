package app

import (
	"context"
	"strings"
	"time"

	"scrap-ledger/internal/catalogfile"
	"scrap-ledger/internal/core"

	"github.com/rs/zerolog"
)

type appService struct {
	refs       core.ReferenceService
	rates      core.RateCatalog
	ledger     core.TransactionLedger
	reconciler core.PaymentReconciler
	summaries  core.SummaryAggregator
	wages      core.WageService
	log        zerolog.Logger
	now        func() time.Time
}

// NewAppService wires every ledger component over one store.
func NewAppService(store core.Store, opts core.Options) ApplicationService {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &appService{
		refs:       core.NewReferenceService(store, opts),
		rates:      core.NewRateCatalog(store, opts),
		ledger:     core.NewTransactionLedger(store, opts),
		reconciler: core.NewPaymentReconciler(store, opts),
		summaries:  core.NewSummaryAggregator(store, opts),
		wages:      core.NewWageService(store, opts),
		log:        opts.Logger,
		now:        now,
	}
}

// date parses YYYY-MM-DD; an empty string means today.
func (s *appService) date(v string) (time.Time, error) {
	if strings.TrimSpace(v) == "" {
		return core.DateOnly(s.now()), nil
	}
	return core.ParseDate(strings.TrimSpace(v))
}

// optionalDate parses v, returning nil when it is empty.
func optionalDate(v string) (*time.Time, error) {
	if strings.TrimSpace(v) == "" {
		return nil, nil
	}
	t, err := core.ParseDate(strings.TrimSpace(v))
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// counterpartyID resolves an optional counterparty reference.
func (s *appService) counterpartyID(ctx context.Context, ref string) (string, error) {
	if strings.TrimSpace(ref) == "" {
		return "", nil
	}
	v, err := s.refs.FindVendor(ctx, ref)
	if err != nil {
		return "", err
	}
	return v.ID, nil
}

// ResolveRate returns the effective unit rate of a material for a vendor.
func (s *appService) ResolveRate(ctx context.Context, req ResolveRateRequest) (*RateResult, error) {
	vendor, err := s.refs.FindVendor(ctx, req.VendorRef)
	if err != nil {
		return nil, err
	}
	material, err := s.refs.FindMaterial(ctx, req.MaterialRef)
	if err != nil {
		return nil, err
	}
	rate, err := s.rates.ResolveRate(ctx, vendor.ID, material.ID)
	if err != nil {
		return nil, err
	}
	return &RateResult{Vendor: vendor, Material: material, UnitRate: rate}, nil
}

// CreateTransaction prices and records a purchase or sale.
func (s *appService) CreateTransaction(ctx context.Context, req CreateTransactionRequest) (*TransactionResult, error) {
	vendor, err := s.refs.FindVendor(ctx, req.CounterpartyRef)
	if err != nil {
		return nil, err
	}
	date, err := s.date(req.Date)
	if err != nil {
		return nil, err
	}

	lines := make([]core.LineSpec, len(req.Lines))
	for i, l := range req.Lines {
		material, err := s.refs.FindMaterial(ctx, l.MaterialRef)
		if err != nil {
			return nil, err
		}
		lines[i] = core.LineSpec{MaterialID: material.ID, Quantity: l.Quantity}
	}

	txn, err := s.ledger.CreateTransaction(ctx, core.CreateTransactionInput{
		CounterpartyID: vendor.ID,
		Date:           date,
		Lines:          lines,
		Surcharges:     core.Surcharges{GST: req.GST, Freight: req.Freight},
		Disposition:    core.Disposition(req.Disposition),
		UpfrontPayment: req.UpfrontPayment,
		PaymentMode:    core.PaymentMode(strings.ToLower(req.PaymentMode)),
		IdempotencyKey: req.IdempotencyKey,
		BillTo:         req.BillTo,
		VehicleNumber:  req.VehicleNumber,
		Notes:          req.Notes,
	})
	if err != nil {
		return nil, err
	}
	return s.transactionResult(ctx, txn, vendor)
}

func (s *appService) transactionResult(ctx context.Context, txn *core.Transaction, vendor *core.Vendor) (*TransactionResult, error) {
	if vendor == nil {
		v, err := s.refs.GetVendor(ctx, txn.CounterpartyID)
		if err != nil {
			return nil, err
		}
		vendor = v
	}
	bal, err := s.reconciler.TransactionBalance(ctx, txn.ID)
	if err != nil {
		return nil, err
	}
	return &TransactionResult{Transaction: txn, Counterparty: vendor, Balance: bal}, nil
}

// GetTransaction returns one transaction with its current balance.
func (s *appService) GetTransaction(ctx context.Context, id string) (*TransactionResult, error) {
	txn, err := s.ledger.GetTransaction(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	return s.transactionResult(ctx, txn, nil)
}

// ListTransactions returns transactions ordered by date, then creation order.
func (s *appService) ListTransactions(ctx context.Context, req ListTransactionsRequest) (*TransactionListResult, error) {
	counterpartyID, err := s.counterpartyID(ctx, req.CounterpartyRef)
	if err != nil {
		return nil, err
	}
	from, err := optionalDate(req.From)
	if err != nil {
		return nil, err
	}
	to, err := optionalDate(req.To)
	if err != nil {
		return nil, err
	}

	txns, err := s.ledger.ListTransactions(ctx, core.TransactionFilter{
		CounterpartyID: counterpartyID,
		Kind:           core.TransactionKind(strings.ToLower(req.Kind)),
		From:           from,
		To:             to,
	})
	if err != nil {
		return nil, err
	}

	balances, err := s.reconciler.TransactionBalances(ctx, txns)
	if err != nil {
		return nil, err
	}
	return &TransactionListResult{Transactions: txns, Balances: balances}, nil
}

// ApplyPayment records a payment against a transaction or a counterparty.
func (s *appService) ApplyPayment(ctx context.Context, req ApplyPaymentRequest) (*PaymentResult, error) {
	counterpartyID, err := s.counterpartyID(ctx, req.CounterpartyRef)
	if err != nil {
		return nil, err
	}
	date, err := s.date(req.Date)
	if err != nil {
		return nil, err
	}

	res, err := s.reconciler.ApplyPayment(ctx, core.PaymentInput{
		Amount:         req.Amount,
		Date:           date,
		TransactionID:  strings.TrimSpace(req.TransactionID),
		CounterpartyID: counterpartyID,
		Mode:           core.PaymentMode(strings.ToLower(req.Mode)),
		Reference:      req.Reference,
		Note:           req.Note,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return nil, err
	}
	return &PaymentResult{
		Payment:     res.Payment,
		Allocations: res.Allocations,
		Balance:     res.Balance,
		Replayed:    res.Replayed,
	}, nil
}

// ListPayments returns payments ordered by date, then creation order.
func (s *appService) ListPayments(ctx context.Context, req ListPaymentsRequest) (*PaymentListResult, error) {
	counterpartyID, err := s.counterpartyID(ctx, req.CounterpartyRef)
	if err != nil {
		return nil, err
	}
	from, err := optionalDate(req.From)
	if err != nil {
		return nil, err
	}
	to, err := optionalDate(req.To)
	if err != nil {
		return nil, err
	}
	payments, err := s.reconciler.ListPayments(ctx, core.PaymentFilter{
		CounterpartyID: counterpartyID,
		TransactionID:  strings.TrimSpace(req.TransactionID),
		From:           from,
		To:             to,
	})
	if err != nil {
		return nil, err
	}
	return &PaymentListResult{Payments: payments}, nil
}

// BalanceOf returns the balance of exactly one transaction or counterparty.
func (s *appService) BalanceOf(ctx context.Context, req BalanceRequest) (*BalanceResult, error) {
	txnID := strings.TrimSpace(req.TransactionID)
	ref := strings.TrimSpace(req.CounterpartyRef)
	if (txnID == "") == (ref == "") {
		return nil, core.NewError(core.ErrInvalidTarget, "balance", "exactly one of transaction and counterparty must be given")
	}

	if txnID != "" {
		b, err := s.reconciler.TransactionBalance(ctx, txnID)
		if err != nil {
			return nil, err
		}
		return &BalanceResult{TransactionID: txnID, Balance: b}, nil
	}

	vendor, err := s.refs.FindVendor(ctx, ref)
	if err != nil {
		return nil, err
	}
	b, err := s.reconciler.CounterpartyBalance(ctx, vendor.ID)
	if err != nil {
		return nil, err
	}
	return &BalanceResult{Counterparty: vendor, Balance: b}, nil
}

// Summarize returns period rollups for the requested grouping.
func (s *appService) Summarize(ctx context.Context, req SummaryRequest) (*SummaryResult, error) {
	if strings.TrimSpace(req.From) == "" || strings.TrimSpace(req.To) == "" {
		return nil, core.NewError(core.ErrInvalidPeriod, "summarize", "both from and to dates are required")
	}
	from, err := core.ParseDate(strings.TrimSpace(req.From))
	if err != nil {
		return nil, err
	}
	to, err := core.ParseDate(strings.TrimSpace(req.To))
	if err != nil {
		return nil, err
	}
	counterpartyID, err := s.counterpartyID(ctx, req.CounterpartyRef)
	if err != nil {
		return nil, err
	}

	groups, err := s.summaries.Summarize(ctx, core.SummaryRequest{
		CounterpartyID: counterpartyID,
		Kind:           core.TransactionKind(strings.ToLower(req.Kind)),
		PeriodStart:    from,
		PeriodEnd:      to,
		GroupBy:        core.GroupBy(strings.ToLower(req.GroupBy)),
	})
	if err != nil {
		return nil, err
	}
	return &SummaryResult{
		From:   from.Format("2006-01-02"),
		To:     to.Format("2006-01-02"),
		Groups: groups,
		Total:  core.GrandTotal(groups),
	}, nil
}

// AccrueWage records labour days and/or kilograms as a wage transaction.
func (s *appService) AccrueWage(ctx context.Context, req AccrueWageRequest) (*TransactionResult, error) {
	worker, err := s.refs.FindVendor(ctx, req.WorkerRef)
	if err != nil {
		return nil, err
	}
	date, err := s.date(req.Date)
	if err != nil {
		return nil, err
	}
	txn, err := s.wages.AccrueWage(ctx, core.WageInput{
		WorkerID:       worker.ID,
		Date:           date,
		Days:           req.Days,
		Kg:             req.Kg,
		Notes:          req.Notes,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return nil, err
	}
	return s.transactionResult(ctx, txn, worker)
}

// SalarySummary returns the per-worker salary table for one month.
func (s *appService) SalarySummary(ctx context.Context, year, month int) (*SalarySummaryResult, error) {
	rows, err := s.wages.SalarySummary(ctx, year, time.Month(month))
	if err != nil {
		return nil, err
	}
	return &SalarySummaryResult{Year: year, Month: month, Workers: rows}, nil
}

// CreateMaterial adds a material to the catalog.
func (s *appService) CreateMaterial(ctx context.Context, req CreateMaterialRequest) (*MaterialResult, error) {
	m, err := s.refs.CreateMaterial(ctx, core.MaterialInput{
		Code:        req.Code,
		Name:        req.Name,
		Unit:        req.Unit,
		DefaultRate: req.DefaultRate,
	})
	if err != nil {
		return nil, err
	}
	return &MaterialResult{Material: m}, nil
}

// SetMaterialRate changes a material's default rate for future transactions.
func (s *appService) SetMaterialRate(ctx context.Context, req SetMaterialRateRequest) (*MaterialResult, error) {
	m, err := s.refs.FindMaterial(ctx, req.MaterialRef)
	if err != nil {
		return nil, err
	}
	m, err = s.refs.SetMaterialRate(ctx, m.ID, req.Rate)
	if err != nil {
		return nil, err
	}
	return &MaterialResult{Material: m}, nil
}

// ListMaterials returns every material ordered by code.
func (s *appService) ListMaterials(ctx context.Context) (*MaterialListResult, error) {
	materials, err := s.refs.ListMaterials(ctx)
	if err != nil {
		return nil, err
	}
	return &MaterialListResult{Materials: materials}, nil
}

// CreateVendor adds a counterparty.
func (s *appService) CreateVendor(ctx context.Context, req CreateVendorRequest) (*VendorResult, error) {
	in := core.VendorInput{
		Code:    req.Code,
		Name:    req.Name,
		Class:   core.CounterpartyClass(strings.ToLower(req.Class)),
		Contact: req.Contact,
	}
	if w := req.Wage; w != nil {
		in.Wage = &core.WageTerms{
			WorkerType:    core.WorkerType(w.WorkerType),
			Role:          w.Role,
			DailyWage:     w.DailyWage,
			MonthlySalary: w.MonthlySalary,
			PerKgRate:     w.PerKgRate,
		}
	}
	v, err := s.refs.CreateVendor(ctx, in)
	if err != nil {
		return nil, err
	}
	return &VendorResult{Vendor: v}, nil
}

// ListVendors returns counterparties ordered by code, optionally of one class.
func (s *appService) ListVendors(ctx context.Context, class string) (*VendorListResult, error) {
	vendors, err := s.refs.ListVendors(ctx, core.CounterpartyClass(strings.ToLower(class)))
	if err != nil {
		return nil, err
	}
	return &VendorListResult{Vendors: vendors}, nil
}

// SetRateOverride sets a vendor-specific rate for one material.
func (s *appService) SetRateOverride(ctx context.Context, req SetRateOverrideRequest) (*RateOverrideResult, error) {
	vendor, err := s.refs.FindVendor(ctx, req.VendorRef)
	if err != nil {
		return nil, err
	}
	material, err := s.refs.FindMaterial(ctx, req.MaterialRef)
	if err != nil {
		return nil, err
	}
	o, err := s.refs.SetRateOverride(ctx, vendor.ID, material.ID, req.Rate)
	if err != nil {
		return nil, err
	}
	return &RateOverrideResult{Override: o}, nil
}

// ListRateOverrides returns every override of one vendor.
func (s *appService) ListRateOverrides(ctx context.Context, vendorRef string) (*RateOverrideListResult, error) {
	vendor, err := s.refs.FindVendor(ctx, vendorRef)
	if err != nil {
		return nil, err
	}
	overrides, err := s.refs.ListRateOverrides(ctx, vendor.ID)
	if err != nil {
		return nil, err
	}
	return &RateOverrideListResult{Vendor: vendor, Overrides: overrides}, nil
}

// SeedCatalog applies a reference-data file. Existing codes are skipped.
func (s *appService) SeedCatalog(ctx context.Context, catalog *catalogfile.Catalog) (*catalogfile.Result, error) {
	res, err := catalogfile.Apply(ctx, s.refs, catalog, s.log)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Package memory is an in-process core.Store used by the CLI's --memory mode
// and by unit tests. Write units are serialized by one mutex and applied to a
// private copy of the data, which replaces the committed copy only when the
// unit succeeds.
package memory

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"scrap-ledger/internal/core"
)

var _ core.Store = (*Store)(nil)

type state struct {
	seq int64

	materials     map[string]core.Material
	materialCodes map[string]string
	vendors       map[string]core.Vendor
	vendorCodes   map[string]string
	overrides     map[string]map[string]core.RateOverride

	transactions map[string]core.Transaction
	txnKeys      map[string]string
	payments     map[string]core.Payment
	paymentKeys  map[string]string
	allocations  []core.Allocation
}

func newState() *state {
	return &state{
		materials:     map[string]core.Material{},
		materialCodes: map[string]string{},
		vendors:       map[string]core.Vendor{},
		vendorCodes:   map[string]string{},
		overrides:     map[string]map[string]core.RateOverride{},
		transactions:  map[string]core.Transaction{},
		txnKeys:       map[string]string{},
		payments:      map[string]core.Payment{},
		paymentKeys:   map[string]string{},
	}
}

// clone copies every container. Records are values whose slices are never
// mutated after insert, so they can be shared.
func (s *state) clone() *state {
	c := &state{
		seq:           s.seq,
		materials:     maps.Clone(s.materials),
		materialCodes: maps.Clone(s.materialCodes),
		vendors:       maps.Clone(s.vendors),
		vendorCodes:   maps.Clone(s.vendorCodes),
		overrides:     make(map[string]map[string]core.RateOverride, len(s.overrides)),
		transactions:  maps.Clone(s.transactions),
		txnKeys:       maps.Clone(s.txnKeys),
		payments:      maps.Clone(s.payments),
		paymentKeys:   maps.Clone(s.paymentKeys),
		allocations:   slices.Clone(s.allocations),
	}
	for vendorID, byMaterial := range s.overrides {
		c.overrides[vendorID] = maps.Clone(byMaterial)
	}
	return c
}

// Store implements core.Store in memory.
type Store struct {
	writeMu sync.Mutex
	current atomic.Pointer[state]
}

// New returns an empty store.
func New() *Store {
	s := &Store{}
	s.current.Store(newState())
	return s
}

func (s *Store) view() view { return view{st: s.current.Load()} }

// InTx runs fn against a private copy and publishes it when fn succeeds.
func (s *Store) InTx(ctx context.Context, fn func(tx core.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	work := s.current.Load().clone()
	if err := fn(&tx{view: view{st: work}}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.current.Store(work)
	return nil
}

func (s *Store) GetMaterial(ctx context.Context, id string) (*core.Material, error) {
	return s.view().GetMaterial(ctx, id)
}

func (s *Store) GetMaterialByCode(ctx context.Context, code string) (*core.Material, error) {
	return s.view().GetMaterialByCode(ctx, code)
}

func (s *Store) ListMaterials(ctx context.Context) ([]core.Material, error) {
	return s.view().ListMaterials(ctx)
}

func (s *Store) GetVendor(ctx context.Context, id string) (*core.Vendor, error) {
	return s.view().GetVendor(ctx, id)
}

func (s *Store) GetVendorByCode(ctx context.Context, code string) (*core.Vendor, error) {
	return s.view().GetVendorByCode(ctx, code)
}

func (s *Store) ListVendors(ctx context.Context, class core.CounterpartyClass) ([]core.Vendor, error) {
	return s.view().ListVendors(ctx, class)
}

func (s *Store) GetRateOverride(ctx context.Context, vendorID, materialID string) (*core.RateOverride, error) {
	return s.view().GetRateOverride(ctx, vendorID, materialID)
}

func (s *Store) ListRateOverrides(ctx context.Context, vendorID string) ([]core.RateOverride, error) {
	return s.view().ListRateOverrides(ctx, vendorID)
}

func (s *Store) GetTransaction(ctx context.Context, id string) (*core.Transaction, error) {
	return s.view().GetTransaction(ctx, id)
}

func (s *Store) FindTransactionByKey(ctx context.Context, key string) (*core.Transaction, error) {
	return s.view().FindTransactionByKey(ctx, key)
}

func (s *Store) ListTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error) {
	return s.view().ListTransactions(ctx, f)
}

func (s *Store) FindPaymentByKey(ctx context.Context, key string) (*core.Payment, error) {
	return s.view().FindPaymentByKey(ctx, key)
}

func (s *Store) ListPayments(ctx context.Context, f core.PaymentFilter) ([]core.Payment, error) {
	return s.view().ListPayments(ctx, f)
}

func (s *Store) ListAllocations(ctx context.Context, transactionIDs []string) ([]core.Allocation, error) {
	return s.view().ListAllocations(ctx, transactionIDs)
}

func (s *Store) ListPaymentAllocations(ctx context.Context, paymentIDs []string) ([]core.Allocation, error) {
	return s.view().ListPaymentAllocations(ctx, paymentIDs)
}

// view reads one immutable snapshot, or the working copy of a unit.
type view struct {
	st *state
}

func notFound(op, what, id string) error {
	return core.NewError(core.ErrNotFound, op, "%s %s not found", what, id)
}

func (v view) GetMaterial(ctx context.Context, id string) (*core.Material, error) {
	m, ok := v.st.materials[id]
	if !ok {
		return nil, notFound("get material", "material", id)
	}
	return &m, nil
}

func (v view) GetMaterialByCode(ctx context.Context, code string) (*core.Material, error) {
	id, ok := v.st.materialCodes[code]
	if !ok {
		return nil, notFound("get material", "material", code)
	}
	return v.GetMaterial(ctx, id)
}

func (v view) ListMaterials(ctx context.Context) ([]core.Material, error) {
	out := slices.Collect(maps.Values(v.st.materials))
	slices.SortFunc(out, func(a, b core.Material) int { return cmp.Compare(a.Code, b.Code) })
	return out, nil
}

func (v view) GetVendor(ctx context.Context, id string) (*core.Vendor, error) {
	vd, ok := v.st.vendors[id]
	if !ok {
		return nil, notFound("get vendor", "vendor", id)
	}
	return &vd, nil
}

func (v view) GetVendorByCode(ctx context.Context, code string) (*core.Vendor, error) {
	id, ok := v.st.vendorCodes[code]
	if !ok {
		return nil, notFound("get vendor", "vendor", code)
	}
	return v.GetVendor(ctx, id)
}

func (v view) ListVendors(ctx context.Context, class core.CounterpartyClass) ([]core.Vendor, error) {
	var out []core.Vendor
	for _, vd := range v.st.vendors {
		if class == "" || vd.Class == class {
			out = append(out, vd)
		}
	}
	slices.SortFunc(out, func(a, b core.Vendor) int { return cmp.Compare(a.Code, b.Code) })
	return out, nil
}

func (v view) GetRateOverride(ctx context.Context, vendorID, materialID string) (*core.RateOverride, error) {
	o, ok := v.st.overrides[vendorID][materialID]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (v view) ListRateOverrides(ctx context.Context, vendorID string) ([]core.RateOverride, error) {
	out := slices.Collect(maps.Values(v.st.overrides[vendorID]))
	slices.SortFunc(out, func(a, b core.RateOverride) int { return cmp.Compare(a.MaterialID, b.MaterialID) })
	return out, nil
}

func (v view) GetTransaction(ctx context.Context, id string) (*core.Transaction, error) {
	t, ok := v.st.transactions[id]
	if !ok {
		return nil, notFound("get transaction", "transaction", id)
	}
	t.Lines = slices.Clone(t.Lines)
	return &t, nil
}

func (v view) FindTransactionByKey(ctx context.Context, key string) (*core.Transaction, error) {
	id, ok := v.st.txnKeys[key]
	if !ok {
		return nil, nil
	}
	return v.GetTransaction(ctx, id)
}

func (v view) ListTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error) {
	var out []core.Transaction
	for _, t := range v.st.transactions {
		if f.Matches(&t) {
			t.Lines = slices.Clone(t.Lines)
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b core.Transaction) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.Seq, b.Seq)
	})
	return out, nil
}

func (v view) FindPaymentByKey(ctx context.Context, key string) (*core.Payment, error) {
	id, ok := v.st.paymentKeys[key]
	if !ok {
		return nil, nil
	}
	p := v.st.payments[id]
	return &p, nil
}

func (v view) ListPayments(ctx context.Context, f core.PaymentFilter) ([]core.Payment, error) {
	var out []core.Payment
	for _, p := range v.st.payments {
		if f.Matches(&p) {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b core.Payment) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.Seq, b.Seq)
	})
	return out, nil
}

func (v view) ListAllocations(ctx context.Context, transactionIDs []string) ([]core.Allocation, error) {
	if len(transactionIDs) == 0 {
		return slices.Clone(v.st.allocations), nil
	}
	var out []core.Allocation
	for _, a := range v.st.allocations {
		if slices.Contains(transactionIDs, a.TransactionID) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (v view) ListPaymentAllocations(ctx context.Context, paymentIDs []string) ([]core.Allocation, error) {
	var out []core.Allocation
	for _, a := range v.st.allocations {
		if slices.Contains(paymentIDs, a.PaymentID) {
			out = append(out, a)
		}
	}
	return out, nil
}

// tx writes into the working copy of one unit.
type tx struct {
	view
}

func (t *tx) LockVendor(ctx context.Context, id string) error {
	_, err := t.GetVendor(ctx, id)
	return err
}

func (t *tx) LockTransaction(ctx context.Context, id string) error {
	_, err := t.GetTransaction(ctx, id)
	return err
}

func (t *tx) InsertMaterial(ctx context.Context, m *core.Material) error {
	if _, dup := t.st.materialCodes[m.Code]; dup {
		return core.NewError(core.ErrConflict, "insert material", "material code %s already exists", m.Code)
	}
	t.st.materials[m.ID] = *m
	t.st.materialCodes[m.Code] = m.ID
	return nil
}

func (t *tx) UpdateMaterialRate(ctx context.Context, id string, rate decimal.Decimal) error {
	m, ok := t.st.materials[id]
	if !ok {
		return notFound("update material rate", "material", id)
	}
	r := rate
	m.DefaultRate = &r
	t.st.materials[id] = m
	return nil
}

func (t *tx) InsertVendor(ctx context.Context, v *core.Vendor) error {
	if _, dup := t.st.vendorCodes[v.Code]; dup {
		return core.NewError(core.ErrConflict, "insert vendor", "vendor code %s already exists", v.Code)
	}
	stored := *v
	if v.Wage != nil {
		w := *v.Wage
		stored.Wage = &w
	}
	t.st.vendors[v.ID] = stored
	t.st.vendorCodes[v.Code] = v.ID
	return nil
}

func (t *tx) UpsertRateOverride(ctx context.Context, o *core.RateOverride) error {
	byMaterial, ok := t.st.overrides[o.VendorID]
	if !ok {
		byMaterial = map[string]core.RateOverride{}
		t.st.overrides[o.VendorID] = byMaterial
	}
	byMaterial[o.MaterialID] = *o
	return nil
}

func (t *tx) InsertTransaction(ctx context.Context, txn *core.Transaction) error {
	if txn.IdempotencyKey != "" {
		if _, dup := t.st.txnKeys[txn.IdempotencyKey]; dup {
			return core.NewError(core.ErrStoreConflict, "insert transaction", "idempotency key %s already used", txn.IdempotencyKey)
		}
	}
	t.st.seq++
	txn.Seq = t.st.seq
	stored := *txn
	stored.Lines = slices.Clone(txn.Lines)
	t.st.transactions[txn.ID] = stored
	if txn.IdempotencyKey != "" {
		t.st.txnKeys[txn.IdempotencyKey] = txn.ID
	}
	return nil
}

func (t *tx) InsertPayment(ctx context.Context, p *core.Payment, allocs []core.Allocation) error {
	if p.IdempotencyKey != "" {
		if _, dup := t.st.paymentKeys[p.IdempotencyKey]; dup {
			return core.NewError(core.ErrStoreConflict, "insert payment", "idempotency key %s already used", p.IdempotencyKey)
		}
	}
	t.st.seq++
	p.Seq = t.st.seq
	t.st.payments[p.ID] = *p
	if p.IdempotencyKey != "" {
		t.st.paymentKeys[p.IdempotencyKey] = p.ID
	}
	t.st.allocations = append(t.st.allocations, allocs...)
	return nil
}

func (t *tx) InsertAllocations(ctx context.Context, allocs []core.Allocation) error {
	for _, a := range allocs {
		if _, ok := t.st.payments[a.PaymentID]; !ok {
			return notFound("insert allocations", "payment", a.PaymentID)
		}
		if _, ok := t.st.transactions[a.TransactionID]; !ok {
			return notFound("insert allocations", "transaction", a.TransactionID)
		}
	}
	t.st.allocations = append(t.st.allocations, allocs...)
	return nil
}

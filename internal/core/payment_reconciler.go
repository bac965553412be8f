package core

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentInput describes one incoming payment. Exactly one of TransactionID
// and CounterpartyID must be set.
type PaymentInput struct {
	Amount         decimal.Decimal
	Date           time.Time
	TransactionID  string
	CounterpartyID string
	Mode           PaymentMode
	Reference      string
	Note           string
	IdempotencyKey string
}

// PaymentResult is the outcome of ApplyPayment.
type PaymentResult struct {
	Payment     Payment
	Allocations []Allocation
	// Balance is the updated position of the payment's target.
	Balance Balance
	// Replayed is true when the idempotency key matched an earlier payment.
	Replayed bool
}

// PaymentReconciler applies payments and derives balances from them.
type PaymentReconciler interface {
	// ApplyPayment records a payment against one transaction, or against a
	// counterparty with oldest-outstanding-first allocation. Any part of a
	// counterparty payment that no transaction can absorb is kept as advance
	// credit.
	ApplyPayment(ctx context.Context, in PaymentInput) (*PaymentResult, error)

	// TransactionBalance recomputes {total, paid, pending} of one transaction.
	TransactionBalance(ctx context.Context, transactionID string) (Balance, error)

	// TransactionBalances derives the balance of every given transaction from
	// one read of their allocations, keyed by transaction ID.
	TransactionBalances(ctx context.Context, txns []Transaction) (map[string]Balance, error)

	// CounterpartyBalance aggregates every transaction of the counterparty
	// and reports open advance credit.
	CounterpartyBalance(ctx context.Context, counterpartyID string) (Balance, error)

	// ListPayments returns matches ordered by date, then creation order.
	ListPayments(ctx context.Context, f PaymentFilter) ([]Payment, error)
}

type paymentReconciler struct {
	store Store
	opts  Options
}

// NewPaymentReconciler constructs a PaymentReconciler over store.
func NewPaymentReconciler(store Store, opts Options) PaymentReconciler {
	return &paymentReconciler{store: store, opts: opts.withDefaults()}
}

func (r *paymentReconciler) ApplyPayment(ctx context.Context, in PaymentInput) (*PaymentResult, error) {
	const op = "apply payment"

	in.TransactionID = strings.TrimSpace(in.TransactionID)
	in.CounterpartyID = strings.TrimSpace(in.CounterpartyID)
	if in.Mode == "" {
		in.Mode = ModeCash
	}
	if err := validatePayment(in); err != nil {
		return nil, err
	}

	ctx, cancel := r.opts.bounded(ctx)
	defer cancel()

	var result *PaymentResult
	err := r.store.InTx(ctx, func(tx Tx) error {
		if in.IdempotencyKey != "" {
			existing, err := tx.FindPaymentByKey(ctx, in.IdempotencyKey)
			if err != nil {
				return err
			}
			if existing != nil {
				res, err := r.replay(ctx, tx, existing)
				if err != nil {
					return err
				}
				result = res
				return nil
			}
		}

		var err error
		if in.TransactionID != "" {
			result, err = r.applyToTransaction(ctx, tx, in)
		} else {
			result, err = r.applyToCounterparty(ctx, tx, in)
		}
		return err
	})
	if err != nil {
		return nil, storeFailure(ctx, op, err)
	}

	r.opts.Logger.Info().
		Str("payment_id", result.Payment.ID).
		Str("counterparty_id", result.Payment.CounterpartyID).
		Str("amount", result.Payment.Amount.StringFixed(MoneyPlaces)).
		Int("allocations", len(result.Allocations)).
		Bool("replayed", result.Replayed).
		Msg("payment applied")
	return result, nil
}

func validatePayment(in PaymentInput) error {
	const op = "apply payment"

	if !in.Amount.IsPositive() {
		return newError(ErrInvalidAmount, op, "amount must be > 0, got %s", in.Amount.String())
	}
	if err := checkMoney(op, "amount", in.Amount); err != nil {
		return err
	}
	if (in.TransactionID == "") == (in.CounterpartyID == "") {
		return newError(ErrInvalidTarget, op, "exactly one of transaction and counterparty must be given")
	}
	if in.Date.IsZero() {
		return newError(ErrInvalidInput, op, "date is required")
	}
	if !in.Mode.Valid() {
		return newError(ErrInvalidInput, op, "unknown payment mode %q", in.Mode)
	}
	return nil
}

func (r *paymentReconciler) applyToTransaction(ctx context.Context, tx Tx, in PaymentInput) (*PaymentResult, error) {
	t, err := tx.GetTransaction(ctx, in.TransactionID)
	if err != nil {
		return nil, err
	}
	// Counterparty before transaction, the same order CreateTransaction uses.
	if err := tx.LockVendor(ctx, t.CounterpartyID); err != nil {
		return nil, err
	}
	if err := tx.LockTransaction(ctx, t.ID); err != nil {
		return nil, err
	}

	before, err := transactionBalance(ctx, tx, t)
	if err != nil {
		return nil, err
	}
	if before.Paid.Add(in.Amount).GreaterThan(r.opts.Overpayment.limit(t.Total)) {
		return nil, newError(ErrOverpayment, "apply payment",
			"payment %s exceeds pending %s of transaction %s",
			in.Amount.StringFixed(MoneyPlaces), before.Pending.StringFixed(MoneyPlaces), t.ID)
	}

	now := r.opts.Now().UTC()
	id := t.ID
	p := r.newPayment(in, t.CounterpartyID, &id, now)
	allocs := []Allocation{{
		PaymentID:     p.ID,
		TransactionID: t.ID,
		Amount:        in.Amount,
		CreatedAt:     now,
	}}
	if err := tx.InsertPayment(ctx, p, allocs); err != nil {
		return nil, err
	}

	after, err := transactionBalance(ctx, tx, t)
	if err != nil {
		return nil, err
	}
	return &PaymentResult{Payment: *p, Allocations: allocs, Balance: after}, nil
}

func (r *paymentReconciler) applyToCounterparty(ctx context.Context, tx Tx, in PaymentInput) (*PaymentResult, error) {
	vendor, err := tx.GetVendor(ctx, in.CounterpartyID)
	if err != nil {
		return nil, err
	}
	if err := tx.LockVendor(ctx, vendor.ID); err != nil {
		return nil, err
	}

	txns, err := tx.ListTransactions(ctx, TransactionFilter{CounterpartyID: vendor.ID})
	if err != nil {
		return nil, err
	}
	paid, err := paidFor(ctx, tx, txns)
	if err != nil {
		return nil, err
	}

	now := r.opts.Now().UTC()
	p := r.newPayment(in, vendor.ID, nil, now)
	allocs, remainder := allocateOldestFirst(p.ID, in.Amount, txns, paid, now)
	if err := tx.InsertPayment(ctx, p, allocs); err != nil {
		return nil, err
	}
	if remainder.IsPositive() {
		r.opts.Logger.Info().
			Str("payment_id", p.ID).
			Str("counterparty_id", vendor.ID).
			Str("credit", remainder.StringFixed(MoneyPlaces)).
			Msg("unallocated remainder kept as advance credit")
	}

	bal, err := counterpartyBalance(ctx, tx, vendor.ID)
	if err != nil {
		return nil, err
	}
	return &PaymentResult{Payment: *p, Allocations: allocs, Balance: bal}, nil
}

func (r *paymentReconciler) newPayment(in PaymentInput, counterpartyID string, transactionID *string, now time.Time) *Payment {
	return &Payment{
		ID:             uuid.NewString(),
		CounterpartyID: counterpartyID,
		TransactionID:  transactionID,
		Amount:         in.Amount,
		Date:           DateOnly(in.Date),
		Mode:           in.Mode,
		Reference:      in.Reference,
		Note:           in.Note,
		IdempotencyKey: in.IdempotencyKey,
		CreatedAt:      now,
	}
}

// replay rebuilds the result of an already-recorded payment.
func (r *paymentReconciler) replay(ctx context.Context, tx Tx, p *Payment) (*PaymentResult, error) {
	allocs, err := tx.ListPaymentAllocations(ctx, []string{p.ID})
	if err != nil {
		return nil, err
	}
	res := &PaymentResult{Payment: *p, Allocations: allocs, Replayed: true}
	if p.TransactionID != nil {
		t, err := tx.GetTransaction(ctx, *p.TransactionID)
		if err != nil {
			return nil, err
		}
		res.Balance, err = transactionBalance(ctx, tx, t)
	} else {
		res.Balance, err = counterpartyBalance(ctx, tx, p.CounterpartyID)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *paymentReconciler) TransactionBalance(ctx context.Context, transactionID string) (Balance, error) {
	const op = "transaction balance"

	ctx, cancel := r.opts.bounded(ctx)
	defer cancel()

	t, err := r.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return Balance{}, storeFailure(ctx, op, err)
	}
	b, err := transactionBalance(ctx, r.store, t)
	if err != nil {
		return Balance{}, storeFailure(ctx, op, err)
	}
	return b, nil
}

func (r *paymentReconciler) TransactionBalances(ctx context.Context, txns []Transaction) (map[string]Balance, error) {
	ctx, cancel := r.opts.bounded(ctx)
	defer cancel()

	paid, err := paidFor(ctx, r.store, txns)
	if err != nil {
		return nil, storeFailure(ctx, "transaction balances", err)
	}
	out := make(map[string]Balance, len(txns))
	for i := range txns {
		out[txns[i].ID] = balanceFor(&txns[i], paid[txns[i].ID])
	}
	return out, nil
}

func (r *paymentReconciler) CounterpartyBalance(ctx context.Context, counterpartyID string) (Balance, error) {
	const op = "counterparty balance"

	ctx, cancel := r.opts.bounded(ctx)
	defer cancel()

	if _, err := r.store.GetVendor(ctx, counterpartyID); err != nil {
		return Balance{}, storeFailure(ctx, op, err)
	}
	b, err := counterpartyBalance(ctx, r.store, counterpartyID)
	if err != nil {
		return Balance{}, storeFailure(ctx, op, err)
	}
	return b, nil
}

func (r *paymentReconciler) ListPayments(ctx context.Context, f PaymentFilter) ([]Payment, error) {
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return nil, newError(ErrInvalidPeriod, "list payments", "from %s is after to %s",
			f.From.Format("2006-01-02"), f.To.Format("2006-01-02"))
	}

	ctx, cancel := r.opts.bounded(ctx)
	defer cancel()

	payments, err := r.store.ListPayments(ctx, f)
	if err != nil {
		return nil, storeFailure(ctx, "list payments", err)
	}
	return payments, nil
}

package core

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineSpec is one requested (material, quantity) pair of a new transaction.
type LineSpec struct {
	MaterialID string
	Quantity   decimal.Decimal
}

// CreateTransactionInput holds everything needed to record a purchase or sale.
type CreateTransactionInput struct {
	CounterpartyID string
	Date           time.Time
	Lines          []LineSpec
	Surcharges     Surcharges
	Disposition    Disposition
	// UpfrontPayment is a partial payment taken at creation of a deferred
	// transaction. Must be zero for settled transactions.
	UpfrontPayment decimal.Decimal
	PaymentMode    PaymentMode
	IdempotencyKey string
	BillTo         string
	VehicleNumber  string
	Notes          string
}

// TransactionLedger creates and reads committed transactions.
type TransactionLedger interface {
	// CreateTransaction prices every line, computes the total and persists the
	// transaction together with its lines as one unit. Open advance credit of
	// the counterparty is applied to the new transaction; a settled disposition
	// records an implicit payment of whatever is still pending.
	// If IdempotencyKey was already used, the stored transaction is returned.
	CreateTransaction(ctx context.Context, in CreateTransactionInput) (*Transaction, error)

	// GetTransaction fails with ErrNotFound if id is unknown.
	GetTransaction(ctx context.Context, id string) (*Transaction, error)

	// ListTransactions returns matches ordered by date, then creation order.
	ListTransactions(ctx context.Context, f TransactionFilter) ([]Transaction, error)
}

type transactionLedger struct {
	store Store
	opts  Options
}

// NewTransactionLedger constructs a TransactionLedger over store.
func NewTransactionLedger(store Store, opts Options) TransactionLedger {
	return newTransactionLedger(store, opts)
}

func newTransactionLedger(store Store, opts Options) *transactionLedger {
	return &transactionLedger{store: store, opts: opts.withDefaults()}
}

// settleSpec describes the creation-time settlement of a new transaction.
type settleSpec struct {
	disposition Disposition
	upfront     decimal.Decimal
	mode        PaymentMode
}

func (l *transactionLedger) CreateTransaction(ctx context.Context, in CreateTransactionInput) (*Transaction, error) {
	const op = "create transaction"

	in.Disposition = Disposition(strings.ToLower(strings.TrimSpace(string(in.Disposition))))
	if in.Disposition == "" {
		in.Disposition = DispositionDeferred
	}
	if in.PaymentMode == "" {
		in.PaymentMode = ModeCash
	}

	// 1. Validation, before any store access
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	ctx, cancel := l.opts.bounded(ctx)
	defer cancel()

	var created *Transaction
	err := l.store.InTx(ctx, func(tx Tx) error {
		if in.IdempotencyKey != "" {
			existing, err := tx.FindTransactionByKey(ctx, in.IdempotencyKey)
			if err != nil {
				return err
			}
			if existing != nil {
				created = existing
				return nil
			}
		}

		// 2. Counterparty, locked for the rest of the unit
		vendor, err := tx.GetVendor(ctx, in.CounterpartyID)
		if err != nil {
			return err
		}
		if vendor.Class == ClassLabour {
			return newError(ErrInvalidInput, op, "counterparty %s is labour; record wages with wage accrual", vendor.Code)
		}
		if err := tx.LockVendor(ctx, vendor.ID); err != nil {
			return err
		}

		// 3. Resolve and price every line; any failure aborts the whole unit
		lines := make([]LineItem, 0, len(in.Lines))
		for i, spec := range in.Lines {
			material, err := tx.GetMaterial(ctx, spec.MaterialID)
			if err != nil {
				return err
			}
			rate, err := resolveRate(ctx, tx, vendor.ID, material.ID)
			if err != nil {
				return err
			}
			line, err := buildLine(i+1, material.ID, material.Name, material.Unit, spec.Quantity, rate)
			if err != nil {
				return err
			}
			lines = append(lines, line)
		}

		t := &Transaction{
			Kind:           kindFor(vendor.Class),
			CounterpartyID: vendor.ID,
			Date:           DateOnly(in.Date),
			Lines:          lines,
			Surcharges:     in.Surcharges,
			Disposition:    in.Disposition,
			IdempotencyKey: in.IdempotencyKey,
			BillTo:         in.BillTo,
			VehicleNumber:  in.VehicleNumber,
			Notes:          in.Notes,
		}
		if err := l.record(ctx, tx, t, settleSpec{
			disposition: in.Disposition,
			upfront:     in.UpfrontPayment,
			mode:        in.PaymentMode,
		}); err != nil {
			return err
		}
		created = t
		return nil
	})
	if err != nil {
		return nil, storeFailure(ctx, op, err)
	}

	l.opts.Logger.Info().
		Str("transaction_id", created.ID).
		Str("counterparty_id", created.CounterpartyID).
		Str("kind", string(created.Kind)).
		Str("total", created.Total.StringFixed(MoneyPlaces)).
		Int("lines", len(created.Lines)).
		Msg("transaction committed")
	return created, nil
}

// record finalizes t, inserts it and performs the creation-time settlement.
// It must run inside tx with the counterparty already locked.
func (l *transactionLedger) record(ctx context.Context, tx Tx, t *Transaction, s settleSpec) error {
	now := l.opts.Now().UTC()

	finalize(t)
	t.ID = uuid.NewString()
	t.CreatedAt = now
	if err := tx.InsertTransaction(ctx, t); err != nil {
		return err
	}

	credit, err := applyCredit(ctx, tx, t, now)
	if err != nil {
		return err
	}
	applied := decimal.Zero
	for _, a := range credit {
		applied = applied.Add(a.Amount)
	}

	var amount decimal.Decimal
	note := ""
	switch {
	case s.disposition == DispositionSettled:
		amount = t.Total.Sub(applied)
		note = "settled at creation"
	case s.upfront.IsPositive():
		if applied.Add(s.upfront).GreaterThan(l.opts.Overpayment.limit(t.Total)) {
			return newError(ErrOverpayment, "upfront payment",
				"upfront payment %s exceeds pending %s", s.upfront.StringFixed(MoneyPlaces), t.Total.Sub(applied).StringFixed(MoneyPlaces))
		}
		amount = s.upfront
		note = "paid at creation"
	}
	if !amount.IsPositive() {
		return nil
	}

	id := t.ID
	p := &Payment{
		ID:             uuid.NewString(),
		CounterpartyID: t.CounterpartyID,
		TransactionID:  &id,
		Amount:         amount,
		Date:           t.Date,
		Mode:           s.mode,
		Note:           note,
		CreatedAt:      now,
	}
	return tx.InsertPayment(ctx, p, []Allocation{{
		PaymentID:     p.ID,
		TransactionID: t.ID,
		Amount:        amount,
		CreatedAt:     now,
	}})
}

func validateCreate(in CreateTransactionInput) error {
	const op = "create transaction"

	if strings.TrimSpace(in.CounterpartyID) == "" {
		return newError(ErrInvalidInput, op, "counterparty is required")
	}
	if in.Date.IsZero() {
		return newError(ErrInvalidInput, op, "date is required")
	}
	if len(in.Lines) == 0 {
		return newError(ErrEmptyTransaction, op, "transaction must have at least one line item")
	}
	for i, spec := range in.Lines {
		if strings.TrimSpace(spec.MaterialID) == "" {
			return newError(ErrInvalidInput, op, "line %d: material is required", i+1)
		}
		if err := checkQuantity(op, "line "+strconv.Itoa(i+1)+": quantity", spec.Quantity); err != nil {
			return err
		}
	}
	if err := ValidateSurcharges(in.Surcharges); err != nil {
		return err
	}
	switch in.Disposition {
	case DispositionSettled:
		if !in.UpfrontPayment.IsZero() {
			return newError(ErrInvalidInput, op, "upfront payment is only allowed on deferred transactions")
		}
	case DispositionDeferred:
		if in.UpfrontPayment.IsNegative() {
			return newError(ErrInvalidAmount, op, "upfront payment cannot be negative, got %s", in.UpfrontPayment.String())
		}
		if err := checkMoney(op, "upfront payment", in.UpfrontPayment); err != nil {
			return err
		}
	default:
		return newError(ErrInvalidInput, op, "unknown disposition %q", in.Disposition)
	}
	if !in.PaymentMode.Valid() {
		return newError(ErrInvalidInput, op, "unknown payment mode %q", in.PaymentMode)
	}
	return nil
}

func (l *transactionLedger) GetTransaction(ctx context.Context, id string) (*Transaction, error) {
	ctx, cancel := l.opts.bounded(ctx)
	defer cancel()

	t, err := l.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, storeFailure(ctx, "get transaction", err)
	}
	return t, nil
}

func (l *transactionLedger) ListTransactions(ctx context.Context, f TransactionFilter) ([]Transaction, error) {
	if f.Kind != "" && !f.Kind.Valid() {
		return nil, newError(ErrInvalidInput, "list transactions", "unknown transaction kind %q", f.Kind)
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return nil, newError(ErrInvalidPeriod, "list transactions", "from %s is after to %s",
			f.From.Format("2006-01-02"), f.To.Format("2006-01-02"))
	}

	ctx, cancel := l.opts.bounded(ctx)
	defer cancel()

	txns, err := l.store.ListTransactions(ctx, f)
	if err != nil {
		return nil, storeFailure(ctx, "list transactions", err)
	}
	l.opts.Logger.Debug().Int("count", len(txns)).Msg("transactions listed")
	return txns, nil
}

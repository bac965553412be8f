package core

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// WageInput is one accrual of labour work. Days and Kg may both be set.
type WageInput struct {
	WorkerID       string
	Date           time.Time
	Days           decimal.Decimal
	Kg             decimal.Decimal
	Notes          string
	IdempotencyKey string
}

// WorkerSalary is one row of the monthly salary summary.
type WorkerSalary struct {
	WorkerID   string          `json:"worker_id"`
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	WorkerType WorkerType      `json:"worker_type"`
	Year       int             `json:"year"`
	Month      time.Month      `json:"month"`
	TotalDays  int             `json:"total_days"`
	DaysWorked decimal.Decimal `json:"days_worked"`
	KgHandled  decimal.Decimal `json:"kg_handled"`
	Earned     decimal.Decimal `json:"earned"`
	Paid       decimal.Decimal `json:"paid"`
	Pending    decimal.Decimal `json:"pending"`
}

// WageService accrues labour wages as deferred wage transactions. Wages are
// paid through PaymentReconciler like any other transaction.
type WageService interface {
	AccrueWage(ctx context.Context, in WageInput) (*Transaction, error)
	SalarySummary(ctx context.Context, year int, month time.Month) ([]WorkerSalary, error)
}

type wageService struct {
	store  Store
	ledger *transactionLedger
	opts   Options
}

// NewWageService constructs a WageService over store.
func NewWageService(store Store, opts Options) WageService {
	opts = opts.withDefaults()
	return &wageService{store: store, ledger: newTransactionLedger(store, opts), opts: opts}
}

func (w *wageService) AccrueWage(ctx context.Context, in WageInput) (*Transaction, error) {
	const op = "accrue wage"

	if strings.TrimSpace(in.WorkerID) == "" {
		return nil, newError(ErrInvalidInput, op, "worker is required")
	}
	if in.Date.IsZero() {
		return nil, newError(ErrInvalidInput, op, "date is required")
	}
	if in.Days.IsNegative() || in.Kg.IsNegative() {
		return nil, newError(ErrInvalidQuantity, op, "days and kg cannot be negative")
	}
	if in.Days.IsZero() && in.Kg.IsZero() {
		return nil, newError(ErrEmptyTransaction, op, "nothing to accrue: days and kg are both zero")
	}
	if finerThan(in.Days, QuantityPlaces) || finerThan(in.Kg, QuantityPlaces) {
		return nil, newError(ErrInvalidQuantity, op, "days and kg allow at most %d decimal places", QuantityPlaces)
	}

	ctx, cancel := w.opts.bounded(ctx)
	defer cancel()

	var created *Transaction
	err := w.store.InTx(ctx, func(tx Tx) error {
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

		worker, err := tx.GetVendor(ctx, in.WorkerID)
		if err != nil {
			return err
		}
		if worker.Class != ClassLabour || worker.Wage == nil {
			return newError(ErrInvalidInput, op, "counterparty %s has no wage terms", worker.Code)
		}
		if err := tx.LockVendor(ctx, worker.ID); err != nil {
			return err
		}

		lines, err := wageLines(worker, in)
		if err != nil {
			return err
		}
		t := &Transaction{
			Kind:           KindWage,
			CounterpartyID: worker.ID,
			Date:           DateOnly(in.Date),
			Lines:          lines,
			Disposition:    DispositionDeferred,
			IdempotencyKey: in.IdempotencyKey,
			Notes:          in.Notes,
		}
		if err := w.ledger.record(ctx, tx, t, settleSpec{disposition: DispositionDeferred, mode: ModeCash}); err != nil {
			return err
		}
		created = t
		return nil
	})
	if err != nil {
		return nil, storeFailure(ctx, op, err)
	}

	w.opts.Logger.Info().
		Str("transaction_id", created.ID).
		Str("worker_id", created.CounterpartyID).
		Str("total", created.Total.StringFixed(MoneyPlaces)).
		Msg("wage accrued")
	return created, nil
}

// wageLines prices the requested bases against the worker's terms. A day rate
// falls back to the monthly salary spread over the days of that month.
func wageLines(worker *Vendor, in WageInput) ([]LineItem, error) {
	const op = "accrue wage"
	terms := worker.Wage

	var lines []LineItem
	if in.Days.IsPositive() {
		rate := terms.DailyWage
		if !rate.IsPositive() && terms.MonthlySalary.IsPositive() {
			rate = RoundMoney(terms.MonthlySalary.Div(decimal.NewFromInt(int64(daysIn(in.Date)))))
		}
		if !rate.IsPositive() {
			return nil, newError(ErrRateNotFound, op, "worker %s has no daily wage or monthly salary", worker.Code)
		}
		line, err := buildLine(len(lines)+1, "", "Daily wage", UnitDay, in.Days, rate)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if in.Kg.IsPositive() {
		if !terms.PerKgRate.IsPositive() {
			return nil, newError(ErrRateNotFound, op, "worker %s has no per-kg rate", worker.Code)
		}
		line, err := buildLine(len(lines)+1, "", "Per-kg work", UnitKg, in.Kg, terms.PerKgRate)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// daysIn returns the number of days in t's month.
func daysIn(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (w *wageService) SalarySummary(ctx context.Context, year int, month time.Month) ([]WorkerSalary, error) {
	const op = "salary summary"

	if month < time.January || month > time.December || year < 1 {
		return nil, newError(ErrInvalidPeriod, op, "invalid month %d/%d", int(month), year)
	}

	ctx, cancel := w.opts.bounded(ctx)
	defer cancel()

	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)

	workers, err := w.store.ListVendors(ctx, ClassLabour)
	if err != nil {
		return nil, storeFailure(ctx, op, err)
	}
	txns, err := w.store.ListTransactions(ctx, TransactionFilter{Kind: KindWage, From: &from, To: &to})
	if err != nil {
		return nil, storeFailure(ctx, op, err)
	}
	paid, err := paidFor(ctx, w.store, txns)
	if err != nil {
		return nil, storeFailure(ctx, op, err)
	}

	rows := make([]WorkerSalary, len(workers))
	index := make(map[string]int, len(workers))
	for i, v := range workers {
		row := WorkerSalary{
			WorkerID:  v.ID,
			Code:      v.Code,
			Name:      v.Name,
			Year:      year,
			Month:     month,
			TotalDays: to.Day(),
		}
		if v.Wage != nil {
			row.WorkerType = v.Wage.WorkerType
		}
		rows[i] = row
		index[v.ID] = i
	}

	for i := range txns {
		t := &txns[i]
		n, ok := index[t.CounterpartyID]
		if !ok {
			continue
		}
		row := &rows[n]
		for _, l := range t.Lines {
			switch l.Unit {
			case UnitDay:
				row.DaysWorked = row.DaysWorked.Add(l.Quantity)
			case UnitKg:
				row.KgHandled = row.KgHandled.Add(l.Quantity)
			}
		}
		b := balanceFor(t, paid[t.ID])
		row.Earned = row.Earned.Add(b.Total)
		row.Paid = row.Paid.Add(b.Paid)
		row.Pending = row.Pending.Add(b.Pending)
	}

	w.opts.Logger.Debug().Int("workers", len(rows)).Int("year", year).Int("month", int(month)).Msg("salary summary computed")
	return rows, nil
}

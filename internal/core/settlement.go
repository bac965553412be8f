package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// paidByTransaction sums allocations per transaction ID.
func paidByTransaction(allocs []Allocation) map[string]decimal.Decimal {
	paid := make(map[string]decimal.Decimal, len(allocs))
	for _, a := range allocs {
		paid[a.TransactionID] = paid[a.TransactionID].Add(a.Amount)
	}
	return paid
}

// balanceFor derives the balance of one transaction from its paid sum.
// Pending never goes below zero; any excess shows up as Overpaid.
func balanceFor(t *Transaction, paid decimal.Decimal) Balance {
	b := Balance{Total: t.Total, Paid: paid, Pending: t.Total.Sub(paid)}
	if b.Pending.IsNegative() {
		b.Overpaid = b.Pending.Neg()
		b.Pending = decimal.Zero
	}
	return b
}

// allocateOldestFirst spreads amount over txns in the given order, filling
// each transaction's pending balance before moving on. It returns the
// allocations and the part of amount nothing could absorb.
func allocateOldestFirst(paymentID string, amount decimal.Decimal, txns []Transaction, paid map[string]decimal.Decimal, at time.Time) ([]Allocation, decimal.Decimal) {
	remaining := amount
	var allocs []Allocation
	for i := range txns {
		if !remaining.IsPositive() {
			break
		}
		t := &txns[i]
		pending := t.Total.Sub(paid[t.ID])
		if !pending.IsPositive() {
			continue
		}
		take := decimal.Min(pending, remaining)
		allocs = append(allocs, Allocation{
			PaymentID:     paymentID,
			TransactionID: t.ID,
			Amount:        take,
			CreatedAt:     at,
		})
		paid[t.ID] = paid[t.ID].Add(take)
		remaining = remaining.Sub(take)
	}
	return allocs, remaining
}

// openCredit is the unallocated remainder of one counterparty payment.
type openCredit struct {
	payment   Payment
	remaining decimal.Decimal
}

// openCredits returns the counterparty's payments that still carry an
// unallocated remainder, oldest first.
func openCredits(ctx context.Context, r Reader, counterpartyID string) ([]openCredit, error) {
	payments, err := r.ListPayments(ctx, PaymentFilter{CounterpartyID: counterpartyID})
	if err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return nil, nil
	}
	ids := make([]string, len(payments))
	for i, p := range payments {
		ids[i] = p.ID
	}
	allocs, err := r.ListPaymentAllocations(ctx, ids)
	if err != nil {
		return nil, err
	}
	used := make(map[string]decimal.Decimal, len(allocs))
	for _, a := range allocs {
		used[a.PaymentID] = used[a.PaymentID].Add(a.Amount)
	}

	var credits []openCredit
	for _, p := range payments {
		left := p.Amount.Sub(used[p.ID])
		if left.IsPositive() {
			credits = append(credits, openCredit{payment: p, remaining: left})
		}
	}
	return credits, nil
}

// applyCredit consumes open advance credit against t, oldest payment first,
// and returns the allocations written.
func applyCredit(ctx context.Context, tx Tx, t *Transaction, at time.Time) ([]Allocation, error) {
	credits, err := openCredits(ctx, tx, t.CounterpartyID)
	if err != nil {
		return nil, err
	}
	pending := t.Total
	var allocs []Allocation
	for _, c := range credits {
		if !pending.IsPositive() {
			break
		}
		take := decimal.Min(pending, c.remaining)
		allocs = append(allocs, Allocation{
			PaymentID:     c.payment.ID,
			TransactionID: t.ID,
			Amount:        take,
			CreatedAt:     at,
		})
		pending = pending.Sub(take)
	}
	if len(allocs) == 0 {
		return nil, nil
	}
	if err := tx.InsertAllocations(ctx, allocs); err != nil {
		return nil, err
	}
	return allocs, nil
}

// transactionBalance recomputes the balance of one transaction from storage.
func transactionBalance(ctx context.Context, r Reader, t *Transaction) (Balance, error) {
	allocs, err := r.ListAllocations(ctx, []string{t.ID})
	if err != nil {
		return Balance{}, err
	}
	return balanceFor(t, paidByTransaction(allocs)[t.ID]), nil
}

// counterpartyBalance aggregates every transaction of the counterparty and
// reports unallocated payments as Credit.
func counterpartyBalance(ctx context.Context, r Reader, counterpartyID string) (Balance, error) {
	txns, err := r.ListTransactions(ctx, TransactionFilter{CounterpartyID: counterpartyID})
	if err != nil {
		return Balance{}, err
	}
	paid, err := paidFor(ctx, r, txns)
	if err != nil {
		return Balance{}, err
	}

	agg := Balance{}
	for i := range txns {
		b := balanceFor(&txns[i], paid[txns[i].ID])
		agg.Total = agg.Total.Add(b.Total)
		agg.Paid = agg.Paid.Add(b.Paid)
		agg.Pending = agg.Pending.Add(b.Pending)
		agg.Overpaid = agg.Overpaid.Add(b.Overpaid)
	}

	credits, err := openCredits(ctx, r, counterpartyID)
	if err != nil {
		return Balance{}, err
	}
	for _, c := range credits {
		agg.Credit = agg.Credit.Add(c.remaining)
	}
	return agg, nil
}

// paidFor loads the paid sum of every transaction in txns.
func paidFor(ctx context.Context, r Reader, txns []Transaction) (map[string]decimal.Decimal, error) {
	if len(txns) == 0 {
		return map[string]decimal.Decimal{}, nil
	}
	ids := make([]string, len(txns))
	for i, t := range txns {
		ids[i] = t.ID
	}
	allocs, err := r.ListAllocations(ctx, ids)
	if err != nil {
		return nil, err
	}
	return paidByTransaction(allocs), nil
}

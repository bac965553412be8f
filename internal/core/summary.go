package core

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SummaryRequest selects the transactions a summary covers.
type SummaryRequest struct {
	CounterpartyID string
	Kind           TransactionKind
	PeriodStart    time.Time
	PeriodEnd      time.Time
	GroupBy        GroupBy
}

// SummaryAggregator produces period rollups. Nothing it returns is stored.
type SummaryAggregator interface {
	// Summarize recomputes totals, weights and paid/pending sums for every
	// transaction dated within [PeriodStart, PeriodEnd], grouped as requested.
	Summarize(ctx context.Context, req SummaryRequest) ([]PeriodSummary, error)
}

type summaryAggregator struct {
	store Reader
	opts  Options
}

// NewSummaryAggregator constructs a SummaryAggregator reading from store.
func NewSummaryAggregator(store Reader, opts Options) SummaryAggregator {
	return &summaryAggregator{store: store, opts: opts.withDefaults()}
}

func (s *summaryAggregator) Summarize(ctx context.Context, req SummaryRequest) ([]PeriodSummary, error) {
	const op = "summarize"

	if req.GroupBy == "" {
		req.GroupBy = GroupNone
	}
	if err := validateSummary(req); err != nil {
		return nil, err
	}

	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()

	from, to := DateOnly(req.PeriodStart), DateOnly(req.PeriodEnd)
	txns, err := s.store.ListTransactions(ctx, TransactionFilter{
		CounterpartyID: req.CounterpartyID,
		Kind:           req.Kind,
		From:           &from,
		To:             &to,
	})
	if err != nil {
		return nil, storeFailure(ctx, op, err)
	}
	paid, err := paidFor(ctx, s.store, txns)
	if err != nil {
		return nil, storeFailure(ctx, op, err)
	}
	labels, err := s.loadLabels(ctx, req.GroupBy)
	if err != nil {
		return nil, storeFailure(ctx, op, err)
	}

	groups := map[string]*PeriodSummary{}
	get := func(key, label string) *PeriodSummary {
		g, ok := groups[key]
		if !ok {
			g = &PeriodSummary{Key: key, Label: label}
			groups[key] = g
		}
		return g
	}

	if req.GroupBy == GroupNone {
		get("all", "All transactions")
	}

	for i := range txns {
		t := &txns[i]
		if req.GroupBy == GroupMaterial {
			// Only line-level figures can be attributed to a material.
			seen := map[string]bool{}
			for _, line := range t.Lines {
				key, label := labels.material(line)
				g := get(key, label)
				if !seen[key] {
					g.TransactionCount++
					seen[key] = true
				}
				g.ItemCount++
				g.Total = g.Total.Add(line.Amount)
				if line.Unit == UnitKg {
					g.Weight = g.Weight.Add(line.Quantity)
				}
			}
			continue
		}

		key, label := labels.transaction(req.GroupBy, t)
		g := get(key, label)
		b := balanceFor(t, paid[t.ID])
		g.TransactionCount++
		g.ItemCount += len(t.Lines)
		g.Weight = g.Weight.Add(t.Weight())
		g.Total = g.Total.Add(b.Total)
		g.Paid = g.Paid.Add(b.Paid)
		g.Pending = g.Pending.Add(b.Pending)
	}

	out := make([]PeriodSummary, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })

	s.opts.Logger.Debug().
		Str("group_by", string(req.GroupBy)).
		Int("transactions", len(txns)).
		Int("groups", len(out)).
		Msg("summary computed")
	return out, nil
}

func validateSummary(req SummaryRequest) error {
	const op = "summarize"

	if req.PeriodStart.IsZero() || req.PeriodEnd.IsZero() {
		return newError(ErrInvalidPeriod, op, "period start and end are required")
	}
	if DateOnly(req.PeriodStart).After(DateOnly(req.PeriodEnd)) {
		return newError(ErrInvalidPeriod, op, "period start %s is after end %s",
			req.PeriodStart.Format("2006-01-02"), req.PeriodEnd.Format("2006-01-02"))
	}
	if req.Kind != "" && !req.Kind.Valid() {
		return newError(ErrInvalidInput, op, "unknown transaction kind %q", req.Kind)
	}
	switch req.GroupBy {
	case GroupNone, GroupCounterparty, GroupClass, GroupMaterial, GroupDay, GroupMonth:
		return nil
	}
	return newError(ErrInvalidInput, op, "unknown grouping %q", req.GroupBy)
}

// summaryLabels resolves group keys to display labels.
type summaryLabels struct {
	vendors   map[string]Vendor
	materials map[string]Material
}

func (s *summaryAggregator) loadLabels(ctx context.Context, by GroupBy) (summaryLabels, error) {
	var l summaryLabels
	switch by {
	case GroupCounterparty, GroupClass:
		vendors, err := s.store.ListVendors(ctx, "")
		if err != nil {
			return l, err
		}
		l.vendors = make(map[string]Vendor, len(vendors))
		for _, v := range vendors {
			l.vendors[v.ID] = v
		}
	case GroupMaterial:
		materials, err := s.store.ListMaterials(ctx)
		if err != nil {
			return l, err
		}
		l.materials = make(map[string]Material, len(materials))
		for _, m := range materials {
			l.materials[m.ID] = m
		}
	}
	return l, nil
}

func (l summaryLabels) transaction(by GroupBy, t *Transaction) (string, string) {
	switch by {
	case GroupCounterparty:
		if v, ok := l.vendors[t.CounterpartyID]; ok {
			return v.Code, v.Name
		}
		return t.CounterpartyID, t.CounterpartyID
	case GroupClass:
		if v, ok := l.vendors[t.CounterpartyID]; ok {
			return string(v.Class), string(v.Class)
		}
		return "unknown", "unknown"
	case GroupDay:
		return t.Date.Format("2006-01-02"), t.Date.Format("02 Jan 2006")
	case GroupMonth:
		return t.Date.Format("2006-01"), t.Date.Format("January 2006")
	}
	return "all", "All transactions"
}

func (l summaryLabels) material(line LineItem) (string, string) {
	if m, ok := l.materials[line.MaterialID]; ok {
		return m.Code, m.Name
	}
	// Wage lines carry no material.
	return strings.ToLower(strings.ReplaceAll(line.Description, " ", "-")), line.Description
}

// GrandTotal folds groups into one total row.
func GrandTotal(groups []PeriodSummary) PeriodSummary {
	total := PeriodSummary{Key: "total", Label: "Total", Weight: decimal.Zero}
	for _, g := range groups {
		total.TransactionCount += g.TransactionCount
		total.ItemCount += g.ItemCount
		total.Weight = total.Weight.Add(g.Weight)
		total.Total = total.Total.Add(g.Total)
		total.Paid = total.Paid.Add(g.Paid)
		total.Pending = total.Pending.Add(g.Pending)
	}
	return total
}

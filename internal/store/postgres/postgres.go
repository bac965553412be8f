// Package postgres implements core.Store on PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"scrap-ledger/internal/core"
)

var _ core.Store = (*Store)(nil)

// querier is the part of pgxpool.Pool and pgx.Tx the readers need.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is a core.Store backed by a pgx pool.
type Store struct {
	reader
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// New wraps pool. The caller owns the pool and closes it.
func New(pool *pgxpool.Pool, log zerolog.Logger) *Store {
	return &Store{reader: reader{q: pool}, pool: pool, log: log}
}

// InTx runs fn inside one database transaction. Row locks taken by fn are
// bounded by the context deadline through lock_timeout.
func (s *Store) InTx(ctx context.Context, fn func(tx core.Tx) error) error {
	pgTx, err := s.pool.Begin(ctx)
	if err != nil {
		return mapError("begin", err)
	}
	defer pgTx.Rollback(ctx)

	if deadline, ok := ctx.Deadline(); ok {
		ms := time.Until(deadline).Milliseconds()
		if ms < 1 {
			ms = 1
		}
		if _, err := pgTx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = %d", ms)); err != nil {
			return mapError("set lock timeout", err)
		}
	}

	if err := fn(&tx{reader: reader{q: pgTx}, pgTx: pgTx}); err != nil {
		if core.IsRetryable(err) {
			s.log.Warn().Err(err).Msg("unit of work rolled back on contention")
		} else {
			s.log.Debug().Err(err).Msg("unit of work rolled back")
		}
		return err
	}
	if err := pgTx.Commit(ctx); err != nil {
		return mapError("commit", err)
	}
	return nil
}

// mapError turns driver failures into ledger store kinds. Anything it does not
// recognize is wrapped with op unchanged.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03", "57014": // lock_not_available, query_canceled
			return core.WrapStoreError(core.ErrStoreTimeout, op, err)
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return core.WrapStoreError(core.ErrStoreConflict, op, err)
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "idempotency_key") {
				return core.WrapStoreError(core.ErrStoreConflict, op, err)
			}
			return core.WrapStoreError(core.ErrConflict, op, err)
		case "23503": // foreign_key_violation
			return core.WrapStoreError(core.ErrNotFound, op, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func notFound(op, what, id string) error {
	return core.NewError(core.ErrNotFound, op, "%s %s not found", what, id)
}

// isID reports whether id can name a row. Keys are compared against UUID
// columns directly so the primary-key and foreign-key indexes apply, and
// Postgres rejects the whole statement on a malformed UUID literal.
func isID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// validIDs drops keys that cannot name a row.
func validIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if isID(id) {
			out = append(out, id)
		}
	}
	return out
}

// reader implements core.Reader over either the pool or an open transaction.
type reader struct {
	q querier
}

const materialColumns = `id::text, code, name, unit, default_rate, created_at`

func scanMaterial(row pgx.Row) (*core.Material, error) {
	var m core.Material
	if err := row.Scan(&m.ID, &m.Code, &m.Name, &m.Unit, &m.DefaultRate, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r reader) GetMaterial(ctx context.Context, id string) (*core.Material, error) {
	if !isID(id) {
		return nil, notFound("get material", "material", id)
	}
	m, err := scanMaterial(r.q.QueryRow(ctx,
		`SELECT `+materialColumns+` FROM materials WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("get material", "material", id)
	}
	if err != nil {
		return nil, mapError("get material", err)
	}
	return m, nil
}

func (r reader) GetMaterialByCode(ctx context.Context, code string) (*core.Material, error) {
	m, err := scanMaterial(r.q.QueryRow(ctx,
		`SELECT `+materialColumns+` FROM materials WHERE code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("get material", "material", code)
	}
	if err != nil {
		return nil, mapError("get material", err)
	}
	return m, nil
}

func (r reader) ListMaterials(ctx context.Context) ([]core.Material, error) {
	rows, err := r.q.Query(ctx, `SELECT `+materialColumns+` FROM materials ORDER BY code`)
	if err != nil {
		return nil, mapError("list materials", err)
	}
	defer rows.Close()

	var out []core.Material
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		out = append(out, *m)
	}
	return out, mapError("list materials", rows.Err())
}

const vendorColumns = `id::text, code, name, class, contact,
       worker_type, role, daily_wage, monthly_salary, per_kg_rate, created_at`

func scanVendor(row pgx.Row) (*core.Vendor, error) {
	var (
		v          core.Vendor
		workerType *string
		role       *string
		daily      *decimal.Decimal
		monthly    *decimal.Decimal
		perKg      *decimal.Decimal
	)
	if err := row.Scan(&v.ID, &v.Code, &v.Name, &v.Class, &v.Contact,
		&workerType, &role, &daily, &monthly, &perKg, &v.CreatedAt); err != nil {
		return nil, err
	}
	if workerType != nil {
		w := &core.WageTerms{WorkerType: core.WorkerType(*workerType)}
		if role != nil {
			w.Role = *role
		}
		if daily != nil {
			w.DailyWage = *daily
		}
		if monthly != nil {
			w.MonthlySalary = *monthly
		}
		if perKg != nil {
			w.PerKgRate = *perKg
		}
		v.Wage = w
	}
	return &v, nil
}

func (r reader) GetVendor(ctx context.Context, id string) (*core.Vendor, error) {
	if !isID(id) {
		return nil, notFound("get vendor", "vendor", id)
	}
	v, err := scanVendor(r.q.QueryRow(ctx,
		`SELECT `+vendorColumns+` FROM vendors WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("get vendor", "vendor", id)
	}
	if err != nil {
		return nil, mapError("get vendor", err)
	}
	return v, nil
}

func (r reader) GetVendorByCode(ctx context.Context, code string) (*core.Vendor, error) {
	v, err := scanVendor(r.q.QueryRow(ctx,
		`SELECT `+vendorColumns+` FROM vendors WHERE code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("get vendor", "vendor", code)
	}
	if err != nil {
		return nil, mapError("get vendor", err)
	}
	return v, nil
}

func (r reader) ListVendors(ctx context.Context, class core.CounterpartyClass) ([]core.Vendor, error) {
	query := `SELECT ` + vendorColumns + ` FROM vendors`
	var args []any
	if class != "" {
		query += ` WHERE class = $1`
		args = append(args, string(class))
	}
	query += ` ORDER BY code`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list vendors", err)
	}
	defer rows.Close()

	var out []core.Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vendor: %w", err)
		}
		out = append(out, *v)
	}
	return out, mapError("list vendors", rows.Err())
}

func (r reader) GetRateOverride(ctx context.Context, vendorID, materialID string) (*core.RateOverride, error) {
	if !isID(vendorID) || !isID(materialID) {
		return nil, nil
	}
	var o core.RateOverride
	err := r.q.QueryRow(ctx, `
		SELECT vendor_id::text, material_id::text, rate, updated_at
		FROM rate_overrides
		WHERE vendor_id = $1 AND material_id = $2`,
		vendorID, materialID,
	).Scan(&o.VendorID, &o.MaterialID, &o.Rate, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError("get rate override", err)
	}
	return &o, nil
}

func (r reader) ListRateOverrides(ctx context.Context, vendorID string) ([]core.RateOverride, error) {
	if !isID(vendorID) {
		return nil, nil
	}
	rows, err := r.q.Query(ctx, `
		SELECT ro.vendor_id::text, ro.material_id::text, ro.rate, ro.updated_at
		FROM rate_overrides ro
		JOIN materials m ON m.id = ro.material_id
		WHERE ro.vendor_id = $1
		ORDER BY m.code`,
		vendorID,
	)
	if err != nil {
		return nil, mapError("list rate overrides", err)
	}
	defer rows.Close()

	var out []core.RateOverride
	for rows.Next() {
		var o core.RateOverride
		if err := rows.Scan(&o.VendorID, &o.MaterialID, &o.Rate, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan rate override: %w", err)
		}
		out = append(out, o)
	}
	return out, mapError("list rate overrides", rows.Err())
}

const transactionColumns = `id::text, seq, kind, counterparty_id::text, txn_date,
       subtotal, gst, freight, total, disposition,
       COALESCE(idempotency_key, ''), bill_to, vehicle_number, notes, created_at`

func scanTransaction(row pgx.Row) (*core.Transaction, error) {
	var t core.Transaction
	if err := row.Scan(&t.ID, &t.Seq, &t.Kind, &t.CounterpartyID, &t.Date,
		&t.Subtotal, &t.Surcharges.GST, &t.Surcharges.Freight, &t.Total, &t.Disposition,
		&t.IdempotencyKey, &t.BillTo, &t.VehicleNumber, &t.Notes, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Date = core.DateOnly(t.Date)
	return &t, nil
}

func (r reader) GetTransaction(ctx context.Context, id string) (*core.Transaction, error) {
	if !isID(id) {
		return nil, notFound("get transaction", "transaction", id)
	}
	return r.findTransaction(ctx, "id", id)
}

func (r reader) FindTransactionByKey(ctx context.Context, key string) (*core.Transaction, error) {
	t, err := r.findTransaction(ctx, "idempotency_key", key)
	if errors.Is(err, core.ErrNotFound) {
		return nil, nil
	}
	return t, err
}

func (r reader) findTransaction(ctx context.Context, column, value string) (*core.Transaction, error) {
	t, err := scanTransaction(r.q.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE `+column+` = $1`, value))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("get transaction", "transaction", value)
	}
	if err != nil {
		return nil, mapError("get transaction", err)
	}
	lines, err := r.fetchLines(ctx, []string{t.ID})
	if err != nil {
		return nil, err
	}
	t.Lines = lines[t.ID]
	return t, nil
}

func (r reader) ListTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error) {
	if f.CounterpartyID != "" && !isID(f.CounterpartyID) {
		return nil, nil
	}
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE 1=1`
	var args []any
	if f.CounterpartyID != "" {
		args = append(args, f.CounterpartyID)
		query += fmt.Sprintf(" AND counterparty_id = $%d", len(args))
	}
	if f.Kind != "" {
		args = append(args, string(f.Kind))
		query += fmt.Sprintf(" AND kind = $%d", len(args))
	}
	if f.From != nil {
		args = append(args, core.DateOnly(*f.From))
		query += fmt.Sprintf(" AND txn_date >= $%d::date", len(args))
	}
	if f.To != nil {
		args = append(args, core.DateOnly(*f.To))
		query += fmt.Sprintf(" AND txn_date <= $%d::date", len(args))
	}
	query += " ORDER BY txn_date, seq"

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list transactions", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list transactions", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]string, len(out))
	for i := range out {
		ids[i] = out[i].ID
	}
	lines, err := r.fetchLines(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Lines = lines[out[i].ID]
	}
	return out, nil
}

// fetchLines returns the lines of every given transaction, keyed by its ID.
func (r reader) fetchLines(ctx context.Context, transactionIDs []string) (map[string][]core.LineItem, error) {
	transactionIDs = validIDs(transactionIDs)
	rows, err := r.q.Query(ctx, `
		SELECT transaction_id::text, line_number, COALESCE(material_id::text, ''),
		       description, unit, quantity, unit_rate, amount
		FROM transaction_lines
		WHERE transaction_id = ANY($1)
		ORDER BY transaction_id, line_number`,
		transactionIDs,
	)
	if err != nil {
		return nil, mapError("fetch lines", err)
	}
	defer rows.Close()

	out := make(map[string][]core.LineItem, len(transactionIDs))
	for rows.Next() {
		var (
			txnID string
			l     core.LineItem
		)
		if err := rows.Scan(&txnID, &l.LineNumber, &l.MaterialID,
			&l.Description, &l.Unit, &l.Quantity, &l.UnitRate, &l.Amount); err != nil {
			return nil, fmt.Errorf("scan line: %w", err)
		}
		out[txnID] = append(out[txnID], l)
	}
	return out, mapError("fetch lines", rows.Err())
}

const paymentColumns = `id::text, seq, counterparty_id::text, transaction_id::text,
       amount, payment_date, mode, reference, note,
       COALESCE(idempotency_key, ''), created_at`

func scanPayment(row pgx.Row) (*core.Payment, error) {
	var p core.Payment
	if err := row.Scan(&p.ID, &p.Seq, &p.CounterpartyID, &p.TransactionID,
		&p.Amount, &p.Date, &p.Mode, &p.Reference, &p.Note,
		&p.IdempotencyKey, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Date = core.DateOnly(p.Date)
	return &p, nil
}

func (r reader) FindPaymentByKey(ctx context.Context, key string) (*core.Payment, error) {
	p, err := scanPayment(r.q.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE idempotency_key = $1`, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError("find payment", err)
	}
	return p, nil
}

func (r reader) ListPayments(ctx context.Context, f core.PaymentFilter) ([]core.Payment, error) {
	if (f.CounterpartyID != "" && !isID(f.CounterpartyID)) || (f.TransactionID != "" && !isID(f.TransactionID)) {
		return nil, nil
	}
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE 1=1`
	var args []any
	if f.CounterpartyID != "" {
		args = append(args, f.CounterpartyID)
		query += fmt.Sprintf(" AND counterparty_id = $%d", len(args))
	}
	if f.TransactionID != "" {
		args = append(args, f.TransactionID)
		query += fmt.Sprintf(" AND transaction_id = $%d", len(args))
	}
	if f.From != nil {
		args = append(args, core.DateOnly(*f.From))
		query += fmt.Sprintf(" AND payment_date >= $%d::date", len(args))
	}
	if f.To != nil {
		args = append(args, core.DateOnly(*f.To))
		query += fmt.Sprintf(" AND payment_date <= $%d::date", len(args))
	}
	query += " ORDER BY payment_date, seq"

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list payments", err)
	}
	defer rows.Close()

	var out []core.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, *p)
	}
	return out, mapError("list payments", rows.Err())
}

func (r reader) ListAllocations(ctx context.Context, transactionIDs []string) ([]core.Allocation, error) {
	query := `SELECT payment_id::text, transaction_id::text, amount, created_at FROM payment_allocations`
	var args []any
	if len(transactionIDs) > 0 {
		query += ` WHERE transaction_id = ANY($1)`
		args = append(args, validIDs(transactionIDs))
	}
	return r.queryAllocations(ctx, query+` ORDER BY id`, args...)
}

func (r reader) ListPaymentAllocations(ctx context.Context, paymentIDs []string) ([]core.Allocation, error) {
	return r.queryAllocations(ctx, `
		SELECT payment_id::text, transaction_id::text, amount, created_at
		FROM payment_allocations
		WHERE payment_id = ANY($1)
		ORDER BY id`, validIDs(paymentIDs))
}

func (r reader) queryAllocations(ctx context.Context, query string, args ...any) ([]core.Allocation, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list allocations", err)
	}
	defer rows.Close()

	var out []core.Allocation
	for rows.Next() {
		var a core.Allocation
		if err := rows.Scan(&a.PaymentID, &a.TransactionID, &a.Amount, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan allocation: %w", err)
		}
		out = append(out, a)
	}
	return out, mapError("list allocations", rows.Err())
}

// tx is one open database transaction.
type tx struct {
	reader
	pgTx pgx.Tx
}

func (t *tx) LockVendor(ctx context.Context, id string) error {
	if !isID(id) {
		return notFound("lock vendor", "vendor", id)
	}
	var locked string
	err := t.pgTx.QueryRow(ctx, `SELECT id::text FROM vendors WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound("lock vendor", "vendor", id)
	}
	return mapError("lock vendor", err)
}

func (t *tx) LockTransaction(ctx context.Context, id string) error {
	if !isID(id) {
		return notFound("lock transaction", "transaction", id)
	}
	var locked string
	err := t.pgTx.QueryRow(ctx, `SELECT id::text FROM transactions WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound("lock transaction", "transaction", id)
	}
	return mapError("lock transaction", err)
}

func (t *tx) InsertMaterial(ctx context.Context, m *core.Material) error {
	_, err := t.pgTx.Exec(ctx, `
		INSERT INTO materials (id, code, name, unit, default_rate, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.Code, m.Name, m.Unit, m.DefaultRate, m.CreatedAt,
	)
	return mapError("insert material", err)
}

func (t *tx) UpdateMaterialRate(ctx context.Context, id string, rate decimal.Decimal) error {
	if !isID(id) {
		return notFound("update material rate", "material", id)
	}
	tag, err := t.pgTx.Exec(ctx, `UPDATE materials SET default_rate = $1 WHERE id = $2`, rate, id)
	if err != nil {
		return mapError("update material rate", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("update material rate", "material", id)
	}
	return nil
}

func (t *tx) InsertVendor(ctx context.Context, v *core.Vendor) error {
	var (
		workerType, role      *string
		daily, monthly, perKg *decimal.Decimal
	)
	if w := v.Wage; w != nil {
		wt := string(w.WorkerType)
		workerType, role = &wt, &w.Role
		daily, monthly, perKg = &w.DailyWage, &w.MonthlySalary, &w.PerKgRate
	}
	_, err := t.pgTx.Exec(ctx, `
		INSERT INTO vendors (id, code, name, class, contact,
		                     worker_type, role, daily_wage, monthly_salary, per_kg_rate, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		v.ID, v.Code, v.Name, string(v.Class), v.Contact,
		workerType, role, daily, monthly, perKg, v.CreatedAt,
	)
	return mapError("insert vendor", err)
}

func (t *tx) UpsertRateOverride(ctx context.Context, o *core.RateOverride) error {
	_, err := t.pgTx.Exec(ctx, `
		INSERT INTO rate_overrides (vendor_id, material_id, rate, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (vendor_id, material_id)
		DO UPDATE SET rate = EXCLUDED.rate, updated_at = EXCLUDED.updated_at`,
		o.VendorID, o.MaterialID, o.Rate, o.UpdatedAt,
	)
	return mapError("upsert rate override", err)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (t *tx) InsertTransaction(ctx context.Context, txn *core.Transaction) error {
	err := t.pgTx.QueryRow(ctx, `
		INSERT INTO transactions (id, kind, counterparty_id, txn_date,
		                          subtotal, gst, freight, total, disposition,
		                          idempotency_key, bill_to, vehicle_number, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING seq`,
		txn.ID, string(txn.Kind), txn.CounterpartyID, txn.Date,
		txn.Subtotal, txn.Surcharges.GST, txn.Surcharges.Freight, txn.Total, string(txn.Disposition),
		nullable(txn.IdempotencyKey), txn.BillTo, txn.VehicleNumber, txn.Notes, txn.CreatedAt,
	).Scan(&txn.Seq)
	if err != nil {
		return mapError("insert transaction", err)
	}

	batch := &pgx.Batch{}
	for _, l := range txn.Lines {
		batch.Queue(`
			INSERT INTO transaction_lines (transaction_id, line_number, material_id,
			                               description, unit, quantity, unit_rate, amount)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			txn.ID, l.LineNumber, nullable(l.MaterialID),
			l.Description, l.Unit, l.Quantity, l.UnitRate, l.Amount,
		)
	}
	if err := t.pgTx.SendBatch(ctx, batch).Close(); err != nil {
		return mapError("insert transaction lines", err)
	}
	return nil
}

func (t *tx) InsertPayment(ctx context.Context, p *core.Payment, allocs []core.Allocation) error {
	err := t.pgTx.QueryRow(ctx, `
		INSERT INTO payments (id, counterparty_id, transaction_id, amount, payment_date,
		                      mode, reference, note, idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING seq`,
		p.ID, p.CounterpartyID, p.TransactionID, p.Amount, p.Date,
		string(p.Mode), p.Reference, p.Note, nullable(p.IdempotencyKey), p.CreatedAt,
	).Scan(&p.Seq)
	if err != nil {
		return mapError("insert payment", err)
	}
	return t.InsertAllocations(ctx, allocs)
}

func (t *tx) InsertAllocations(ctx context.Context, allocs []core.Allocation) error {
	if len(allocs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, a := range allocs {
		batch.Queue(`
			INSERT INTO payment_allocations (payment_id, transaction_id, amount, created_at)
			VALUES ($1, $2, $3, $4)`,
			a.PaymentID, a.TransactionID, a.Amount, a.CreatedAt,
		)
	}
	if err := t.pgTx.SendBatch(ctx, batch).Close(); err != nil {
		return mapError("insert allocations", err)
	}
	return nil
}

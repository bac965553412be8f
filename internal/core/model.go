package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// CounterpartyClass identifies which side of the scrap trade a vendor sits on.
type CounterpartyClass string

const (
	ClassCollector  CounterpartyClass = "collector"   // feriwala
	ClassYardVendor CounterpartyClass = "yard-vendor" // kabadiwala
	ClassMillBuyer  CounterpartyClass = "mill-buyer"
	ClassLabour     CounterpartyClass = "labour"
)

// Valid reports whether c is one of the known classes.
func (c CounterpartyClass) Valid() bool {
	switch c {
	case ClassCollector, ClassYardVendor, ClassMillBuyer, ClassLabour:
		return true
	}
	return false
}

// TransactionKind is derived from the counterparty class at creation time.
type TransactionKind string

const (
	KindPurchase TransactionKind = "purchase"
	KindSale     TransactionKind = "sale"
	KindWage     TransactionKind = "wage"
)

// Valid reports whether k is a known kind. The empty kind is not valid.
func (k TransactionKind) Valid() bool {
	switch k {
	case KindPurchase, KindSale, KindWage:
		return true
	}
	return false
}

// kindFor maps a counterparty class to the transaction kind recorded against it.
func kindFor(class CounterpartyClass) TransactionKind {
	switch class {
	case ClassMillBuyer:
		return KindSale
	case ClassLabour:
		return KindWage
	default:
		return KindPurchase
	}
}

// Disposition records how a transaction was settled at creation.
type Disposition string

const (
	DispositionSettled  Disposition = "settled"
	DispositionDeferred Disposition = "deferred"
)

// PaymentMode is the instrument a payment was made with.
type PaymentMode string

const (
	ModeCash PaymentMode = "cash"
	ModeUPI  PaymentMode = "upi"
	ModeBank PaymentMode = "bank"
)

// Valid reports whether m is a known mode.
func (m PaymentMode) Valid() bool {
	return m == ModeCash || m == ModeUPI || m == ModeBank
}

// Units used on line items. Weight rollups only count UnitKg lines.
const (
	UnitKg  = "kg"
	UnitDay = "day"
)

// Material is a scrap type with an optional global unit rate.
type Material struct {
	ID          string           `json:"id"`
	Code        string           `json:"code"`
	Name        string           `json:"name"`
	Unit        string           `json:"unit"`
	DefaultRate *decimal.Decimal `json:"default_rate,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// WorkerType distinguishes salaried labour from per-kg contractors.
type WorkerType string

const (
	WorkerLabour     WorkerType = "Labour"
	WorkerContractor WorkerType = "Contractor"
)

// WageTerms carries the pay rates of a labour counterparty.
// A zero rate means the basis is not used for this worker.
type WageTerms struct {
	WorkerType    WorkerType      `json:"worker_type"`
	Role          string          `json:"role"`
	DailyWage     decimal.Decimal `json:"daily_wage"`
	MonthlySalary decimal.Decimal `json:"monthly_salary"`
	PerKgRate     decimal.Decimal `json:"per_kg_rate"`
}

// Vendor is any counterparty: collector, yard vendor, mill buyer or labour.
type Vendor struct {
	ID        string            `json:"id"`
	Code      string            `json:"code"`
	Name      string            `json:"name"`
	Class     CounterpartyClass `json:"class"`
	Contact   string            `json:"contact,omitempty"`
	Wage      *WageTerms        `json:"wage,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// RateOverride is a vendor-specific unit rate for one material. Last write wins.
type RateOverride struct {
	VendorID   string          `json:"vendor_id"`
	MaterialID string          `json:"material_id"`
	Rate       decimal.Decimal `json:"rate"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// LineItem is one priced entry of a transaction. UnitRate and Amount are
// frozen when the transaction is created.
type LineItem struct {
	LineNumber  int             `json:"line_number"`
	MaterialID  string          `json:"material_id,omitempty"`
	Description string          `json:"description"`
	Unit        string          `json:"unit"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitRate    decimal.Decimal `json:"unit_rate"`
	Amount      decimal.Decimal `json:"amount"`
}

// Surcharges are added on top of the line subtotal.
type Surcharges struct {
	GST     decimal.Decimal `json:"gst"`
	Freight decimal.Decimal `json:"freight"`
}

// Total returns GST + freight.
func (s Surcharges) Total() decimal.Decimal {
	return s.GST.Add(s.Freight)
}

// Transaction is a committed purchase, sale or wage record. Paid and pending
// amounts are not part of the row; see PaymentReconciler.
type Transaction struct {
	ID             string          `json:"id"`
	Seq            int64           `json:"seq"`
	Kind           TransactionKind `json:"kind"`
	CounterpartyID string          `json:"counterparty_id"`
	Date           time.Time       `json:"date"`
	Lines          []LineItem      `json:"lines"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Surcharges     Surcharges      `json:"surcharges"`
	Total          decimal.Decimal `json:"total"`
	Disposition    Disposition     `json:"disposition"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	BillTo         string          `json:"bill_to,omitempty"`
	VehicleNumber  string          `json:"vehicle_number,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Weight sums the quantity of every kg line.
func (t *Transaction) Weight() decimal.Decimal {
	w := decimal.Zero
	for _, l := range t.Lines {
		if l.Unit == UnitKg {
			w = w.Add(l.Quantity)
		}
	}
	return w
}

// Payment is an immutable money movement against a transaction or a counterparty.
type Payment struct {
	ID             string          `json:"id"`
	Seq            int64           `json:"seq"`
	CounterpartyID string          `json:"counterparty_id"`
	TransactionID  *string         `json:"transaction_id,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Date           time.Time       `json:"date"`
	Mode           PaymentMode     `json:"mode"`
	Reference      string          `json:"reference,omitempty"`
	Note           string          `json:"note,omitempty"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Allocation assigns part of a payment to one transaction. The paid amount of
// a transaction is the sum of its allocations.
type Allocation struct {
	PaymentID     string          `json:"payment_id"`
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Balance is the derived settlement position of a transaction or counterparty.
type Balance struct {
	Total   decimal.Decimal `json:"total"`
	Paid    decimal.Decimal `json:"paid"`
	Pending decimal.Decimal `json:"pending"`
	// Credit is unallocated advance payment held for future transactions.
	Credit decimal.Decimal `json:"credit"`
	// Overpaid is only non-zero when the overpayment policy is relaxed.
	Overpaid decimal.Decimal `json:"overpaid"`
}

// GroupBy selects the dimension a period summary is split on.
type GroupBy string

const (
	GroupNone         GroupBy = "none"
	GroupCounterparty GroupBy = "counterparty"
	GroupClass        GroupBy = "class"
	GroupMaterial     GroupBy = "material"
	GroupDay          GroupBy = "day"
	GroupMonth        GroupBy = "month"
)

// PeriodSummary is a derived rollup over a date range. It is never stored.
type PeriodSummary struct {
	Key              string          `json:"key"`
	Label            string          `json:"label"`
	TransactionCount int             `json:"transaction_count"`
	ItemCount        int             `json:"item_count"`
	Weight           decimal.Decimal `json:"weight"`
	Total            decimal.Decimal `json:"total"`
	Paid             decimal.Decimal `json:"paid"`
	Pending          decimal.Decimal `json:"pending"`
}

// DateOnly truncates t to a UTC calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, newError(ErrInvalidPeriod, "parse date", "invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

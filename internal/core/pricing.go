package core

import (
	"errors"
	"strconv"

	"github.com/shopspring/decimal"
)

const (
	// MoneyPlaces is the currency precision every amount is rounded to.
	MoneyPlaces = 2
	// QuantityPlaces is the finest quantity the ledger stores (grams, for kg).
	QuantityPlaces = 3
)

// RoundMoney rounds d to currency precision, half away from zero.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// finerThan reports whether d carries digits beyond places decimals.
func finerThan(d decimal.Decimal, places int32) bool {
	return !d.Equal(d.Truncate(places))
}

// checkMoney rejects an amount that cannot be stored at currency precision.
func checkMoney(op, what string, d decimal.Decimal) error {
	if finerThan(d, MoneyPlaces) {
		return newError(ErrInvalidAmount, op, "%s %s has more than %d decimal places", what, d.String(), MoneyPlaces)
	}
	return nil
}

// checkQuantity rejects a non-positive quantity or one finer than QuantityPlaces.
func checkQuantity(op, what string, d decimal.Decimal) error {
	if !d.IsPositive() {
		return newError(ErrInvalidQuantity, op, "%s must be > 0, got %s", what, d.String())
	}
	if finerThan(d, QuantityPlaces) {
		return newError(ErrInvalidQuantity, op, "%s %s has more than %d decimal places", what, d.String(), QuantityPlaces)
	}
	return nil
}

// PriceLine returns quantity × unitRate rounded to currency precision.
// A zero or negative quantity is a data-entry error and is rejected rather
// than priced at zero. Inputs finer than the stored precision are rejected
// so a stored line always reprices to its amount.
func PriceLine(quantity, unitRate decimal.Decimal) (decimal.Decimal, error) {
	const op = "price line"
	if err := checkQuantity(op, "quantity", quantity); err != nil {
		return decimal.Zero, err
	}
	if !unitRate.IsPositive() {
		return decimal.Zero, newError(ErrInvalidAmount, op, "unit rate must be > 0, got %s", unitRate.String())
	}
	if err := checkMoney(op, "unit rate", unitRate); err != nil {
		return decimal.Zero, err
	}
	return RoundMoney(quantity.Mul(unitRate)), nil
}

// Aggregate sums line amounts. Amounts are already rounded, so the sum is exact.
func Aggregate(lines []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Amount)
	}
	return total
}

// ValidateSurcharges rejects negative GST or freight, and either one finer
// than currency precision.
func ValidateSurcharges(s Surcharges) error {
	const op = "validate surcharges"
	if s.GST.IsNegative() {
		return newError(ErrInvalidAmount, op, "gst cannot be negative, got %s", s.GST.String())
	}
	if s.Freight.IsNegative() {
		return newError(ErrInvalidAmount, op, "freight cannot be negative, got %s", s.Freight.String())
	}
	if err := checkMoney(op, "gst", s.GST); err != nil {
		return err
	}
	return checkMoney(op, "freight", s.Freight)
}

// buildLine prices one line and returns it numbered n (1-based).
func buildLine(n int, materialID, description, unit string, quantity, rate decimal.Decimal) (LineItem, error) {
	amount, err := PriceLine(quantity, rate)
	if err != nil {
		var le *Error
		if errors.As(err, &le) {
			le.Message = "line " + strconv.Itoa(n) + ": " + le.Message
		}
		return LineItem{}, err
	}
	return LineItem{
		LineNumber:  n,
		MaterialID:  materialID,
		Description: description,
		Unit:        unit,
		Quantity:    quantity,
		UnitRate:    rate,
		Amount:      amount,
	}, nil
}

// finalize sets Subtotal and Total on t from its lines and surcharges.
// Surcharges have already passed ValidateSurcharges.
func finalize(t *Transaction) {
	t.Subtotal = Aggregate(t.Lines)
	t.Total = t.Subtotal.Add(t.Surcharges.Total())
}

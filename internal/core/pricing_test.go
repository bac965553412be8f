package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrap-ledger/internal/core"
)

func TestPriceLine(t *testing.T) {
	tests := []struct {
		name      string
		quantity  string
		rate      string
		want      string
		expectErr error
	}{
		{name: "whole kilograms", quantity: "10", rate: "520", want: "5200.00"},
		{name: "fractional weight", quantity: "12.345", rate: "45.50", want: "561.70"},
		{name: "rounds half away from zero", quantity: "0.125", rate: "1", want: "0.13"},
		{name: "zero quantity", quantity: "0", rate: "500", expectErr: core.ErrInvalidQuantity},
		{name: "negative quantity", quantity: "-1", rate: "500", expectErr: core.ErrInvalidQuantity},
		{name: "zero rate", quantity: "1", rate: "0", expectErr: core.ErrInvalidAmount},
		{name: "quantity finer than a gram", quantity: "1.0004", rate: "520", expectErr: core.ErrInvalidQuantity},
		{name: "quantity rounding to zero", quantity: "0.0004", rate: "520", expectErr: core.ErrInvalidQuantity},
		{name: "rate finer than a paisa", quantity: "1", rate: "520.125", expectErr: core.ErrInvalidAmount},
		{name: "trailing zeros are not extra precision", quantity: "2.5000", rate: "10.500", want: "26.25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := core.PriceLine(dec(tt.quantity), dec(tt.rate))
			if tt.expectErr != nil {
				assert.ErrorIs(t, err, tt.expectErr)
				return
			}
			require.NoError(t, err)
			requireMoney(t, tt.want, got)
		})
	}
}

func TestAggregate(t *testing.T) {
	lines := []core.LineItem{
		{Amount: dec("5200.00")},
		{Amount: dec("561.70")},
		{Amount: dec("0.13")},
	}
	requireMoney(t, "5761.83", core.Aggregate(lines))
	requireMoney(t, "0", core.Aggregate(nil))
}

func TestValidateSurcharges(t *testing.T) {
	assert.NoError(t, core.ValidateSurcharges(core.Surcharges{GST: dec("18"), Freight: dec("0")}))
	assert.ErrorIs(t, core.ValidateSurcharges(core.Surcharges{GST: dec("-1")}), core.ErrInvalidAmount)
	assert.ErrorIs(t, core.ValidateSurcharges(core.Surcharges{Freight: dec("-0.01")}), core.ErrInvalidAmount)
	assert.ErrorIs(t, core.ValidateSurcharges(core.Surcharges{GST: dec("0.005")}), core.ErrInvalidAmount)
	assert.ErrorIs(t, core.ValidateSurcharges(core.Surcharges{Freight: dec("12.345")}), core.ErrInvalidAmount)
	assert.NoError(t, core.ValidateSurcharges(core.Surcharges{GST: dec("18.50"), Freight: dec("200.000")}))
}

func TestError_CodeAndRetryable(t *testing.T) {
	err := core.NewError(core.ErrOverpayment, "apply payment", "too much")
	assert.Equal(t, "OVERPAYMENT", core.KindOf(err))
	assert.Equal(t, "apply payment: too much", err.Error())
	assert.False(t, core.IsRetryable(err))

	timeout := core.WrapStoreError(core.ErrStoreTimeout, "create transaction", assert.AnError)
	assert.True(t, core.IsRetryable(timeout))
	assert.ErrorIs(t, timeout, assert.AnError)
	assert.Equal(t, "STORE_TIMEOUT", core.KindOf(timeout))

	assert.Equal(t, "INTERNAL", core.KindOf(assert.AnError))
}

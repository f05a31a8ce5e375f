package billing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCalculateGSTSplit(t *testing.T) {
	lines := []CalcLine{
		{Quantity: 5, UnitPrice: 10, TaxRate: 18, TaxType: TaxTypeGST},
	}

	amounts, totals := Calculate(lines, 0, 0)

	require.Len(t, amounts, 1)
	require.Equal(t, 50.0, amounts[0].Subtotal)
	require.Equal(t, 4.5, amounts[0].CGST)
	require.Equal(t, 4.5, amounts[0].SGST)
	require.Equal(t, 0.0, amounts[0].IGST)
	require.Equal(t, 9.0, amounts[0].TaxAmount)
	require.Equal(t, 59.0, amounts[0].Total)

	require.Equal(t, 50.0, totals.Subtotal)
	require.Equal(t, 9.0, totals.GSTTotal)
	require.Equal(t, 4.5, totals.CGST)
	require.Equal(t, 4.5, totals.SGST)
	require.Equal(t, 59.0, totals.GrandTotal)
}

func TestCalculateIGSTStaysWhole(t *testing.T) {
	lines := []CalcLine{
		{Quantity: 2, UnitPrice: 100, TaxRate: 12, TaxType: TaxTypeIGST},
	}

	_, totals := Calculate(lines, 0, 0)

	require.Equal(t, 200.0, totals.Subtotal)
	require.Equal(t, 24.0, totals.IGST)
	require.Equal(t, 0.0, totals.CGST)
	require.Equal(t, 0.0, totals.SGST)
	require.Equal(t, 24.0, totals.GSTTotal)
	require.Equal(t, 224.0, totals.GrandTotal)
}

func TestCalculatePercentageDiscount(t *testing.T) {
	lines := []CalcLine{
		{Quantity: 1, UnitPrice: 200, Discount: 10, DiscountType: DiscountPercentage, TaxRate: 18, TaxType: TaxTypeGST},
	}

	amounts, totals := Calculate(lines, 0, 0)

	require.Equal(t, 20.0, amounts[0].DiscountAmount)
	require.Equal(t, 180.0, amounts[0].Subtotal)
	require.Equal(t, 32.4, amounts[0].TaxAmount)
	require.Equal(t, 212.4, totals.GrandTotal)
}

func TestCalculateFlatDiscountClampedToGross(t *testing.T) {
	lines := []CalcLine{
		{Quantity: 1, UnitPrice: 50, Discount: 80, DiscountType: DiscountFlat},
	}

	amounts, totals := Calculate(lines, 0, 0)

	require.Equal(t, 50.0, amounts[0].DiscountAmount)
	require.Equal(t, 0.0, amounts[0].Subtotal)
	require.Equal(t, 0.0, amounts[0].Total)
	require.Equal(t, 0.0, totals.GrandTotal)
}

func TestCalculateZeroTaxRate(t *testing.T) {
	lines := []CalcLine{
		{Quantity: 3, UnitPrice: 15, TaxRate: 0, TaxType: TaxTypeGST},
	}

	amounts, totals := Calculate(lines, 0, 0)

	require.Equal(t, 0.0, amounts[0].TaxAmount)
	require.Equal(t, 45.0, amounts[0].Total)
	require.Equal(t, 45.0, totals.GrandTotal)
}

func TestCalculateNoFloatDrift(t *testing.T) {
	// 0.1 + 0.2 style inputs must not accumulate binary float error.
	lines := []CalcLine{
		{Quantity: 3, UnitPrice: 0.1},
		{Quantity: 1, UnitPrice: 0.2},
	}

	_, totals := Calculate(lines, 0, 0)

	require.Equal(t, 0.5, totals.Subtotal)
	require.Equal(t, 0.5, totals.GrandTotal)
}

func TestCalculateRoundOffAndDocDiscount(t *testing.T) {
	lines := []CalcLine{
		{Quantity: 1, UnitPrice: 99.99, TaxRate: 18, TaxType: TaxTypeGST},
	}

	// 99.99 * 1.18 = 117.9882; round-off of 0.0118 lands on 118.
	_, totals := Calculate(lines, 0, 0.0118)
	require.Equal(t, 118.0, totals.GrandTotal)

	_, discounted := Calculate(lines, 17.9882, 0)
	require.Equal(t, 100.0, discounted.GrandTotal)
	require.Equal(t, 17.9882, discounted.Discount)
}

func TestCalculateGrandTotalNeverNegative(t *testing.T) {
	lines := []CalcLine{
		{Quantity: 1, UnitPrice: 10},
	}

	_, totals := Calculate(lines, 50, 0)
	require.Equal(t, 0.0, totals.GrandTotal)
}

func TestCalculateHalfUpRounding(t *testing.T) {
	// 1 * 33.335 with no tax: grand total 33.335 rounds half-up to 33.34.
	lines := []CalcLine{
		{Quantity: 1, UnitPrice: 33.335},
	}

	_, totals := Calculate(lines, 0, 0)
	require.Equal(t, 33.34, totals.GrandTotal)
}

func TestCalculateMultiLineRollup(t *testing.T) {
	lines := []CalcLine{
		{Quantity: 2, UnitPrice: 250, TaxRate: 18, TaxType: TaxTypeGST},
		{Quantity: 1, UnitPrice: 100, TaxRate: 12, TaxType: TaxTypeIGST},
		{Quantity: 4, UnitPrice: 25, TaxType: TaxTypeNone, TaxRate: 5},
	}

	amounts, totals := Calculate(lines, 0, 0)

	require.Equal(t, 45.0, amounts[0].CGST)
	require.Equal(t, 12.0, amounts[1].IGST)
	require.Equal(t, 0.0, amounts[2].TaxAmount)

	require.Equal(t, 700.0, totals.Subtotal)
	require.Equal(t, 102.0, totals.GSTTotal)
	require.Equal(t, 802.0, totals.GrandTotal)
}

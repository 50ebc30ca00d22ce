package pricing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Line describes one catalog item's contribution to a cart or a daily
// settlement: quantity priced at the item's current unit price with its
// discount and tax rates expressed as 0-100 percentages.
type Line struct {
	UnitPrice    decimal.Decimal
	Quantity     decimal.Decimal
	DiscountRate decimal.Decimal
	TaxRate      decimal.Decimal
}

// LineTotals holds the computed money components for a single line.
type LineTotals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Totals aggregates line values per bucket. Each field is the sum of the
// corresponding already-rounded line values, not a re-rounding of an exact
// sum; a cart total therefore always matches its ledger contribution to the
// cent.
type Totals struct {
	Subtotal      decimal.Decimal
	DiscountTotal decimal.Decimal
	TaxTotal      decimal.Decimal
	Total         decimal.Decimal
}

// Round2 rounds half-up to two decimal places. Applied at every intermediate
// pricing step, not just the end result.
func Round2(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// Compute prices a single line. Discount is taken from the rounded subtotal,
// tax from the rounded taxable amount, so the total is exact at two decimals
// by construction.
func Compute(line Line) LineTotals {
	subtotal := Round2(line.UnitPrice.Mul(line.Quantity))
	discount := Round2(subtotal.Mul(line.DiscountRate.Div(hundred)))
	taxable := subtotal.Sub(discount)
	tax := Round2(taxable.Mul(line.TaxRate.Div(hundred)))
	return LineTotals{
		Subtotal: subtotal,
		Discount: discount,
		Tax:      tax,
		Total:    taxable.Add(tax),
	}
}

// Sum folds line totals into aggregate totals.
func Sum(lines []LineTotals) Totals {
	t := Zero()
	for _, line := range lines {
		t.Subtotal = t.Subtotal.Add(line.Subtotal)
		t.DiscountTotal = t.DiscountTotal.Add(line.Discount)
		t.TaxTotal = t.TaxTotal.Add(line.Tax)
		t.Total = t.Total.Add(line.Total)
	}
	return t
}

// Zero returns all-zero totals at two-decimal scale, the result for an
// empty cart.
func Zero() Totals {
	zero := decimal.New(0, -2)
	return Totals{Subtotal: zero, DiscountTotal: zero, TaxTotal: zero, Total: zero}
}

package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestComputeHalfUpAtEachStep(t *testing.T) {
	// 3.335 * 2 = 6.67 only when the subtotal is rounded before the
	// discount is taken; a single final rounding would give 6.61 instead
	// of 6.60 for the total.
	got := Compute(Line{
		UnitPrice:    dec("3.335"),
		Quantity:     dec("2"),
		DiscountRate: dec("10"),
		TaxRate:      dec("10"),
	})
	if !got.Subtotal.Equal(dec("6.67")) {
		t.Fatalf("subtotal = %s, want 6.67", got.Subtotal)
	}
	if !got.Discount.Equal(dec("0.67")) {
		t.Fatalf("discount = %s, want 0.67", got.Discount)
	}
	if !got.Tax.Equal(dec("0.60")) {
		t.Fatalf("tax = %s, want 0.60", got.Tax)
	}
	if !got.Total.Equal(dec("6.60")) {
		t.Fatalf("total = %s, want 6.60", got.Total)
	}
}

func TestComputeTable(t *testing.T) {
	cases := []struct {
		name                          string
		price, qty, discount, tax     string
		subtotal, disc, taxAmt, total string
	}{
		{"no rates", "2.50", "4", "0", "0", "10.00", "0.00", "0.00", "10.00"},
		{"tax only", "1.99", "3", "0", "18", "5.97", "0.00", "1.07", "7.04"},
		{"discount only", "12.00", "0.5", "25", "0", "6.00", "1.50", "0.00", "4.50"},
		{"fractional qty", "4.40", "1.250", "10", "8", "5.50", "0.55", "0.40", "5.35"},
		{"zero qty", "9.99", "0", "50", "18", "0.00", "0.00", "0.00", "0.00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Compute(Line{
				UnitPrice:    dec(tc.price),
				Quantity:     dec(tc.qty),
				DiscountRate: dec(tc.discount),
				TaxRate:      dec(tc.tax),
			})
			if !got.Subtotal.Equal(dec(tc.subtotal)) {
				t.Errorf("subtotal = %s, want %s", got.Subtotal, tc.subtotal)
			}
			if !got.Discount.Equal(dec(tc.disc)) {
				t.Errorf("discount = %s, want %s", got.Discount, tc.disc)
			}
			if !got.Tax.Equal(dec(tc.taxAmt)) {
				t.Errorf("tax = %s, want %s", got.Tax, tc.taxAmt)
			}
			if !got.Total.Equal(dec(tc.total)) {
				t.Errorf("total = %s, want %s", got.Total, tc.total)
			}
		})
	}
}

func TestSumAggregatesRoundedLines(t *testing.T) {
	lines := []LineTotals{
		Compute(Line{UnitPrice: dec("3.335"), Quantity: dec("1"), DiscountRate: dec("0"), TaxRate: dec("0")}),
		Compute(Line{UnitPrice: dec("3.335"), Quantity: dec("1"), DiscountRate: dec("0"), TaxRate: dec("0")}),
	}
	got := Sum(lines)
	// Two lines of 3.34 each, not round2(6.67).
	if !got.Subtotal.Equal(dec("6.68")) {
		t.Fatalf("subtotal = %s, want 6.68", got.Subtotal)
	}
	if !got.Total.Equal(dec("6.68")) {
		t.Fatalf("total = %s, want 6.68", got.Total)
	}
}

func TestZeroTotals(t *testing.T) {
	z := Zero()
	for name, v := range map[string]decimal.Decimal{
		"subtotal": z.Subtotal,
		"discount": z.DiscountTotal,
		"tax":      z.TaxTotal,
		"total":    z.Total,
	} {
		if !v.IsZero() {
			t.Fatalf("%s = %s, want 0", name, v)
		}
	}
}

package pricing

import (
	"math"
	"sort"

	"github.com/angelmondragon/storefront-cart/pkg/enums"
	"github.com/shopspring/decimal"
)

// VendorLine is one priced line contributing to a vendor subtotal.
type VendorLine struct {
	Price    decimal.Decimal
	Quantity int
}

// Adjustment is a vendor-level discount such as a voucher or coupon.
type Adjustment struct {
	Type   enums.DiscountType
	Amount decimal.Decimal
}

// VendorTotal is the derived pricing of one vendor's selected items.
// Total excludes shipping; AmountDue adds it back.
type VendorTotal struct {
	VendorID    string          `json:"vendor_id"`
	ItemCount   int             `json:"item_count"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Discount    decimal.Decimal `json:"discount"`
	ShippingFee decimal.Decimal `json:"shipping_fee"`
	Total       decimal.Decimal `json:"total"`
	AmountDue   decimal.Decimal `json:"amount_due"`
}

// CartSummary aggregates vendor totals for every vendor with selected items.
type CartSummary struct {
	Vendors          []VendorTotal   `json:"vendors"`
	ItemCount        int             `json:"item_count"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	Discount         decimal.Decimal `json:"discount"`
	TotalShippingFee decimal.Decimal `json:"total_shipping_fee"`
	Total            decimal.Decimal `json:"total"`
	AmountDue        decimal.Decimal `json:"amount_due"`
}

// ComputeVendorTotal prices a vendor's lines. Percentage adjustments are
// applied to the subtotal before fixed ones and the discount never exceeds
// the subtotal.
func ComputeVendorTotal(vendorID string, lines []VendorLine, adjustments []Adjustment, shippingFee decimal.Decimal) VendorTotal {
	subtotal := decimal.Zero
	count := 0
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		subtotal = subtotal.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		count = addCount(count, line.Quantity)
	}
	subtotal = subtotal.Round(2)

	discount := vendorDiscount(subtotal, adjustments)
	if shippingFee.IsNegative() {
		shippingFee = decimal.Zero
	}
	total := subtotal.Sub(discount)

	return VendorTotal{
		VendorID:    vendorID,
		ItemCount:   count,
		Subtotal:    subtotal,
		Discount:    discount,
		ShippingFee: shippingFee.Round(2),
		Total:       total,
		AmountDue:   total.Add(shippingFee).Round(2),
	}
}

func vendorDiscount(subtotal decimal.Decimal, adjustments []Adjustment) decimal.Decimal {
	if !subtotal.IsPositive() {
		return decimal.Zero
	}
	percent, fixed := decimal.Zero, decimal.Zero
	for _, adj := range adjustments {
		if adj.Amount.IsNegative() {
			continue
		}
		switch adj.Type {
		case enums.DiscountTypePercentageOff:
			percent = percent.Add(adj.Amount)
		case enums.DiscountTypeFixedPrice:
			fixed = fixed.Add(adj.Amount)
		}
	}
	discount := subtotal.Mul(percent).Div(hundred).Add(fixed).Round(2)
	if discount.GreaterThan(subtotal) {
		return subtotal
	}
	return discount
}

// Summarize folds vendor totals into a cart summary. Vendors without items
// are skipped and the remaining ones are ordered by vendor id.
func Summarize(vendors []VendorTotal) CartSummary {
	summary := CartSummary{
		Vendors:          make([]VendorTotal, 0, len(vendors)),
		Subtotal:         decimal.Zero,
		Discount:         decimal.Zero,
		TotalShippingFee: decimal.Zero,
		Total:            decimal.Zero,
		AmountDue:        decimal.Zero,
	}
	for _, v := range vendors {
		if v.ItemCount == 0 {
			continue
		}
		summary.Vendors = append(summary.Vendors, v)
		summary.ItemCount = addCount(summary.ItemCount, v.ItemCount)
		summary.Subtotal = summary.Subtotal.Add(v.Subtotal)
		summary.Discount = summary.Discount.Add(v.Discount)
		summary.TotalShippingFee = summary.TotalShippingFee.Add(v.ShippingFee)
		summary.Total = summary.Total.Add(v.Total)
	}
	sort.Slice(summary.Vendors, func(i, j int) bool {
		return summary.Vendors[i].VendorID < summary.Vendors[j].VendorID
	})
	summary.AmountDue = summary.Total.Add(summary.TotalShippingFee)
	return summary
}

// addCount sums item counts, saturating at MaxInt.
func addCount(a, b int) int {
	if b > math.MaxInt-a {
		return math.MaxInt
	}
	return a + b
}

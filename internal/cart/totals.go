package cart

import (
	"github.com/angelmondragon/storefront-cart/internal/pricing"
	"github.com/shopspring/decimal"
)

// VendorTotal prices the vendor's selected items with its voucher, coupon
// and delivery fee. A vendor with nothing selected ships nothing.
func (s *State) VendorTotal(vendorID string, fees pricing.FeeSchedule) pricing.VendorTotal {
	var lines []pricing.VendorLine
	for _, item := range s.VendorItems(vendorID) {
		if !s.Selected.Has(item.ID) {
			continue
		}
		lines = append(lines, pricing.VendorLine{Price: item.DiscountedPrice, Quantity: item.Quantity})
	}

	var adjustments []pricing.Adjustment
	if v, ok := s.Vouchers[vendorID]; ok {
		adjustments = append(adjustments, pricing.Adjustment{Type: v.DiscountType, Amount: v.DiscountAmount})
	}
	if c, ok := s.Coupons[vendorID]; ok {
		adjustments = append(adjustments, pricing.Adjustment{Type: c.Type, Amount: c.DiscountAmount})
	}

	fee := decimal.Zero
	if len(lines) > 0 {
		fee = fees.Fee(s.Deliveries[vendorID])
	}
	return pricing.ComputeVendorTotal(vendorID, lines, adjustments, fee)
}

// CartTotal sums the totals of every vendor with at least one selected item.
func (s *State) CartTotal(fees pricing.FeeSchedule) pricing.CartSummary {
	vendorIDs := s.SelectedVendorIDs()
	totals := make([]pricing.VendorTotal, 0, len(vendorIDs))
	for _, vendorID := range vendorIDs {
		totals = append(totals, s.VendorTotal(vendorID, fees))
	}
	return pricing.Summarize(totals)
}

// Summary prices the transient item on its own.
func (t *TransientCheckout) Summary(fees pricing.FeeSchedule) pricing.CartSummary {
	if t == nil {
		return pricing.Summarize(nil)
	}
	var adjustments []pricing.Adjustment
	if t.Voucher != nil {
		adjustments = append(adjustments, pricing.Adjustment{Type: t.Voucher.DiscountType, Amount: t.Voucher.DiscountAmount})
	}
	total := pricing.ComputeVendorTotal(
		t.Item.VendorID,
		[]pricing.VendorLine{{Price: t.Item.DiscountedPrice, Quantity: t.Item.Quantity}},
		adjustments,
		fees.Fee(t.Delivery),
	)
	return pricing.Summarize([]pricing.VendorTotal{total})
}

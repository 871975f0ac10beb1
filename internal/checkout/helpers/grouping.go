package helpers

import (
	"github.com/angelmondragon/storefront-cart/internal/cart"
	"github.com/angelmondragon/storefront-cart/internal/marketplace"
	"github.com/angelmondragon/storefront-cart/internal/pricing"
	"github.com/angelmondragon/storefront-cart/pkg/enums"
)

// GroupItemsByVendor groups line items by vendor and returns the vendors in
// the order they first appear.
func GroupItemsByVendor(items []cart.LineItem) ([]string, map[string][]cart.LineItem) {
	grouped := make(map[string][]cart.LineItem, len(items))
	order := make([]string, 0)
	for _, item := range items {
		if _, ok := grouped[item.VendorID]; !ok {
			order = append(order, item.VendorID)
		}
		grouped[item.VendorID] = append(grouped[item.VendorID], item)
	}
	return order, grouped
}

// OrderItems converts line items into the order endpoint's item payload.
func OrderItems(items []cart.LineItem) []marketplace.OrderItem {
	out := make([]marketplace.OrderItem, 0, len(items))
	for _, item := range items {
		out = append(out, marketplace.OrderItem{
			ProductID:            item.ProductID,
			VariantID:            item.VariantID,
			VendorID:             item.VendorID,
			Quantity:             item.Quantity,
			OriginalPrice:        item.OriginalPrice,
			DiscountedPrice:      item.DiscountedPrice,
			ProductDiscountID:    item.ProductDiscountID,
			NewArrivalDiscountID: item.NewArrivalDiscountID,
			CouponID:             item.CouponID,
			PromoCodeID:          item.PromoCodeID,
		})
	}
	return out
}

// VendorDeliveries pairs each vendor's delivery choice with the fee already
// priced into its total.
func VendorDeliveries(vendorIDs []string, deliveries map[string]enums.DeliveryOption, totals []pricing.VendorTotal) []marketplace.VendorDelivery {
	fees := make(map[string]pricing.VendorTotal, len(totals))
	for _, t := range totals {
		fees[t.VendorID] = t
	}
	out := make([]marketplace.VendorDelivery, 0, len(vendorIDs))
	for _, vendorID := range vendorIDs {
		out = append(out, marketplace.VendorDelivery{
			VendorID:       vendorID,
			DeliveryOption: deliveries[vendorID],
			ShippingFee:    fees[vendorID].ShippingFee,
		})
	}
	return out
}

// VendorTotals converts priced vendor totals into their wire shape.
func VendorTotals(totals []pricing.VendorTotal) []marketplace.VendorTotal {
	out := make([]marketplace.VendorTotal, 0, len(totals))
	for _, t := range totals {
		out = append(out, marketplace.VendorTotal{
			VendorID:    t.VendorID,
			Subtotal:    t.Subtotal,
			Discount:    t.Discount,
			ShippingFee: t.ShippingFee,
			Total:       t.Total,
		})
	}
	return out
}

// Summary converts the cart summary into its wire shape.
func Summary(s pricing.CartSummary) marketplace.CartSummary {
	return marketplace.CartSummary{
		Subtotal:         s.Subtotal,
		Discount:         s.Discount,
		TotalShippingFee: s.TotalShippingFee,
		Total:            s.Total,
		AmountDue:        s.AmountDue,
	}
}

// ItemIDs lists the ids of items in order.
func ItemIDs(items []cart.LineItem) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}

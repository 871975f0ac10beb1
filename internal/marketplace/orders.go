package marketplace

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront-cart/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
	"github.com/shopspring/decimal"
)

// VendorDelivery is the delivery choice for one vendor in an order.
type VendorDelivery struct {
	VendorID       string               `json:"vendorId"`
	DeliveryOption enums.DeliveryOption `json:"deliveryOption"`
	ShippingFee    decimal.Decimal      `json:"shippingFee"`
}

// OrderItem is the per-item purchase data sent to the order endpoint.
type OrderItem struct {
	ProductID            string          `json:"productId"`
	VariantID            string          `json:"variantId,omitempty"`
	VendorID             string          `json:"vendorId"`
	Quantity             int             `json:"quantity"`
	OriginalPrice        decimal.Decimal `json:"originalPrice"`
	DiscountedPrice      decimal.Decimal `json:"discountedPrice"`
	ProductDiscountID    string          `json:"productDiscountId,omitempty"`
	NewArrivalDiscountID string          `json:"newArrivalDiscountId,omitempty"`
	CouponID             string          `json:"couponId,omitempty"`
	PromoCodeID          string          `json:"promoCodeId,omitempty"`
}

// VendorTotal mirrors pricing.VendorTotal on the wire.
type VendorTotal struct {
	VendorID    string          `json:"vendorId"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Discount    decimal.Decimal `json:"discount"`
	ShippingFee decimal.Decimal `json:"shippingFee"`
	Total       decimal.Decimal `json:"total"`
}

// CartSummary mirrors pricing.CartSummary on the wire.
type CartSummary struct {
	Subtotal         decimal.Decimal `json:"subtotal"`
	Discount         decimal.Decimal `json:"discount"`
	TotalShippingFee decimal.Decimal `json:"totalShippingFee"`
	Total            decimal.Decimal `json:"total"`
	AmountDue        decimal.Decimal `json:"amountDue"`
}

// OrderRequest is the body of POST /api/buyer/orders.
type OrderRequest struct {
	ShippingAddressID string              `json:"shippingAddressId"`
	PaymentMethod     enums.PaymentMethod `json:"paymentMethod"`
	VendorDeliveries  []VendorDelivery    `json:"vendorDeliveries"`
	Items             []OrderItem         `json:"items"`
	VendorTotals      []VendorTotal       `json:"vendorTotals"`
	CartSummary       CartSummary         `json:"cartSummary"`
}

// OrderResult is the backend's success response.
type OrderResult struct {
	OrderID string `json:"orderId"`
}

// CreateOrder submits the order. It is never retried automatically.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*OrderResult, error) {
	var result OrderResult
	if err := c.do(ctx, http.MethodPost, "/api/buyer/orders", req, &result); err != nil {
		return nil, err
	}
	if result.OrderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "marketplace returned no order id")
	}
	return &result, nil
}

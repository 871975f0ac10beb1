package marketplace

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-cart/internal/cart"
	"github.com/angelmondragon/storefront-cart/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
	"github.com/shopspring/decimal"
)

type promoCodeDTO struct {
	ID                  string          `json:"id"`
	VendorID            string          `json:"vendorId"`
	Code                string          `json:"code"`
	DiscountAmount      decimal.Decimal `json:"discountAmount"`
	DiscountType        string          `json:"discountType"`
	AdminApprovalStatus string          `json:"adminApprovalStatus"`
	StartDate           *time.Time      `json:"startDate"`
	EndDate             *time.Time      `json:"endDate"`
}

type couponDTO struct {
	ID             string          `json:"id"`
	VendorID       string          `json:"vendorId"`
	Name           string          `json:"name"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	Type           string          `json:"type"`
	Status         string          `json:"status"`
	StartDate      *time.Time      `json:"startDate"`
	EndDate        *time.Time      `json:"endDate"`
}

// ListVendorVouchers returns the vendor's promo codes. Entries with an
// unknown discount type are dropped; an unknown approval status is kept
// empty so the code can never validate.
func (c *Client) ListVendorVouchers(ctx context.Context, vendorID string) ([]cart.VendorVoucher, error) {
	path, err := vendorPath(vendorID, "promo-codes")
	if err != nil {
		return nil, err
	}
	var body struct {
		Data []promoCodeDTO `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &body); err != nil {
		return nil, err
	}

	out := make([]cart.VendorVoucher, 0, len(body.Data))
	for _, p := range body.Data {
		typ, err := enums.ParseDiscountType(p.DiscountType)
		if err != nil {
			continue
		}
		status, _ := enums.ParseApprovalStatus(p.AdminApprovalStatus)
		out = append(out, cart.VendorVoucher{
			ID:                  p.ID,
			VendorID:            p.VendorID,
			Code:                p.Code,
			DiscountAmount:      p.DiscountAmount,
			DiscountType:        typ,
			AdminApprovalStatus: status,
			StartsAt:            p.StartDate,
			EndsAt:              p.EndDate,
		})
	}
	return out, nil
}

// ListVendorCoupons returns the vendor's coupons.
func (c *Client) ListVendorCoupons(ctx context.Context, vendorID string) ([]cart.VendorCoupon, error) {
	path, err := vendorPath(vendorID, "coupons")
	if err != nil {
		return nil, err
	}
	var body struct {
		Data []couponDTO `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &body); err != nil {
		return nil, err
	}

	out := make([]cart.VendorCoupon, 0, len(body.Data))
	for _, d := range body.Data {
		typ, err := enums.ParseDiscountType(d.Type)
		if err != nil {
			continue
		}
		status, _ := enums.ParsePromoStatus(d.Status)
		out = append(out, cart.VendorCoupon{
			ID:             d.ID,
			VendorID:       d.VendorID,
			Name:           d.Name,
			DiscountAmount: d.DiscountAmount,
			Type:           typ,
			Status:         status,
			StartsAt:       d.StartDate,
			EndsAt:         d.EndDate,
		})
	}
	return out, nil
}

func vendorPath(vendorID, resource string) (string, error) {
	trimmed := strings.TrimSpace(vendorID)
	if trimmed == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	return fmt.Sprintf("/api/vendors/%s/%s", url.PathEscape(trimmed), resource), nil
}

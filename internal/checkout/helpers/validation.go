package helpers

import (
	"time"

	"github.com/angelmondragon/storefront-cart/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
)

// RevalidateVoucher checks an applied voucher against the vendor's current
// list. A voucher that no longer validates, or whose terms changed since it
// was applied, is a state conflict.
func RevalidateVoucher(vendorID string, applied cart.VendorVoucher, candidates []cart.VendorVoucher, now time.Time) error {
	result := cart.ValidateVoucher(vendorID, applied.Code, candidates, now)
	details := map[string]any{"vendor_id": vendorID, "code": applied.Code}
	if !result.Valid {
		details["reason"] = result.Message
		return pkgerrors.New(pkgerrors.CodeStateConflict, "applied voucher is no longer valid").WithDetails(details)
	}
	current := result.Voucher
	if current.DiscountType != applied.DiscountType || !current.DiscountAmount.Equal(applied.DiscountAmount) {
		details["reason"] = "voucher terms changed"
		return pkgerrors.New(pkgerrors.CodeStateConflict, "applied voucher is no longer valid").WithDetails(details)
	}
	return nil
}

// RevalidateCoupon checks an applied coupon against the vendor's current
// coupon list. A coupon that disappeared, ended, or changed terms is a state
// conflict.
func RevalidateCoupon(vendorID string, applied cart.VendorCoupon, candidates []cart.VendorCoupon, now time.Time) error {
	details := map[string]any{"vendor_id": vendorID, "coupon_id": applied.ID}
	for _, current := range candidates {
		if current.ID != applied.ID {
			continue
		}
		if !current.ActiveAt(now) {
			details["reason"] = "coupon is not active"
			return pkgerrors.New(pkgerrors.CodeStateConflict, "applied coupon is no longer valid").WithDetails(details)
		}
		if current.Type != applied.Type || !current.DiscountAmount.Equal(applied.DiscountAmount) {
			details["reason"] = "coupon terms changed"
			return pkgerrors.New(pkgerrors.CodeStateConflict, "applied coupon is no longer valid").WithDetails(details)
		}
		return nil
	}
	details["reason"] = "coupon not found"
	return pkgerrors.New(pkgerrors.CodeStateConflict, "applied coupon is no longer valid").WithDetails(details)
}

package cart

import (
	"strings"
	"time"

	"github.com/angelmondragon/storefront-cart/pkg/enums"
)

const (
	msgInvalidVoucher     = "Invalid voucher"
	msgVoucherNotApproved = "Voucher is not approved"
	msgVoucherNotActive   = "Voucher is not active"
)

// VoucherValidation is the outcome of checking a redeemed code.
type VoucherValidation struct {
	Valid   bool           `json:"valid"`
	Voucher *VendorVoucher `json:"voucher,omitempty"`
	Message string         `json:"message,omitempty"`
}

// ValidateVoucher matches code against the vendor's candidate vouchers.
// Codes are trimmed and compared case-insensitively. Candidates without a
// vendor id are treated as belonging to vendorID.
func ValidateVoucher(vendorID, code string, candidates []VendorVoucher, now time.Time) VoucherValidation {
	code = strings.TrimSpace(code)
	if code == "" {
		return VoucherValidation{Message: msgInvalidVoucher}
	}

	var match *VendorVoucher
	for i := range candidates {
		c := candidates[i]
		if c.VendorID != "" && c.VendorID != vendorID {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(c.Code), code) {
			continue
		}
		if match == nil || (match.AdminApprovalStatus != enums.ApprovalStatusApproved && c.AdminApprovalStatus == enums.ApprovalStatusApproved) {
			match = &c
		}
	}

	switch {
	case match == nil:
		return VoucherValidation{Message: msgInvalidVoucher}
	case match.AdminApprovalStatus != enums.ApprovalStatusApproved:
		return VoucherValidation{Message: msgVoucherNotApproved}
	case !match.ActiveAt(now):
		return VoucherValidation{Message: msgVoucherNotActive}
	case !match.DiscountType.IsValid() || match.DiscountAmount.IsNegative():
		return VoucherValidation{Message: msgInvalidVoucher}
	}
	voucher := *match
	voucher.VendorID = vendorID
	return VoucherValidation{Valid: true, Voucher: &voucher}
}

// FindCoupon returns the coupon with id from the vendor's list.
func FindCoupon(couponID string, coupons []VendorCoupon) (VendorCoupon, bool) {
	for _, c := range coupons {
		if c.ID == couponID {
			return c, true
		}
	}
	return VendorCoupon{}, false
}

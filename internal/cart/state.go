package cart

import (
	"math"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-cart/internal/pricing"
	"github.com/angelmondragon/storefront-cart/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Options tune the cart transitions.
type Options struct {
	QuantityPolicy  enums.QuantityPolicy
	MaxQuantity     int
	AutoSelectOnAdd bool
	Fees            pricing.FeeSchedule
}

// DefaultOptions clamps quantities, has no upper bound and uses the default fees.
func DefaultOptions() Options {
	return Options{
		QuantityPolicy: enums.QuantityPolicyClamp,
		Fees:           pricing.DefaultFeeSchedule(),
	}
}

func (o Options) withDefaults() Options {
	if !o.QuantityPolicy.IsValid() {
		o.QuantityPolicy = enums.QuantityPolicyClamp
	}
	if o.Fees == nil {
		o.Fees = pricing.DefaultFeeSchedule()
	}
	if o.MaxQuantity < 0 {
		o.MaxQuantity = 0
	}
	return o
}

// NewItem is the payload used to add or stage a product.
type NewItem struct {
	ProductID       string
	VariantID       string
	VendorID        string
	VendorName      string
	Name            string
	Images          []string
	Quantity        int
	OriginalPrice   decimal.Decimal
	DiscountedPrice *decimal.Decimal
	Promotions      *pricing.ProductPromotions
}

func (n NewItem) validate() error {
	switch {
	case strings.TrimSpace(n.ProductID) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	case strings.TrimSpace(n.VendorID) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	case n.OriginalPrice.IsNegative():
		return pkgerrors.New(pkgerrors.CodeValidation, "original price must be non-negative")
	}
	if n.DiscountedPrice != nil {
		if n.DiscountedPrice.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "discounted price must be non-negative")
		}
		if n.DiscountedPrice.GreaterThan(n.OriginalPrice) {
			return pkgerrors.New(pkgerrors.CodeValidation, "discounted price cannot exceed original price")
		}
	}
	return nil
}

// lineItem prices the payload. Promotions win over a supplied discounted price.
func (n NewItem) lineItem(quantity int, now time.Time) LineItem {
	item := LineItem{
		ID:              uuid.NewString(),
		ProductID:       n.ProductID,
		VariantID:       n.VariantID,
		VendorID:        n.VendorID,
		VendorName:      n.VendorName,
		Name:            n.Name,
		Images:          append([]string(nil), n.Images...),
		Quantity:        quantity,
		OriginalPrice:   n.OriginalPrice.Round(2),
		DiscountedPrice: n.OriginalPrice.Round(2),
		AddedAt:         now,
	}
	switch {
	case n.Promotions != nil:
		discounts := pricing.DiscountInfo(*n.Promotions)
		item.DiscountedPrice = pricing.CalculateDiscountPrice(n.OriginalPrice, discounts)
		for _, d := range discounts {
			switch d.Source {
			case enums.DiscountSourceNewArrival:
				item.NewArrivalDiscountID = d.ID
			case enums.DiscountSourceProduct:
				item.ProductDiscountID = d.ID
			}
		}
	case n.DiscountedPrice != nil:
		item.DiscountedPrice = n.DiscountedPrice.Round(2)
	}
	return item
}

// normalizeQuantity applies the policy to a requested quantity.
func normalizeQuantity(qty int, opts Options) (int, error) {
	if qty < 1 {
		if opts.QuantityPolicy == enums.QuantityPolicyReject {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
				WithDetails(map[string]any{"quantity": qty})
		}
		return 1, nil
	}
	if opts.MaxQuantity > 0 && qty > opts.MaxQuantity {
		if opts.QuantityPolicy == enums.QuantityPolicyReject {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, "quantity exceeds the maximum allowed").
				WithDetails(map[string]any{"quantity": qty, "max_quantity": opts.MaxQuantity})
		}
		return opts.MaxQuantity, nil
	}
	return qty, nil
}

// mergeQuantity adds requested to current without wrapping past MaxInt.
func mergeQuantity(current, requested int, opts Options) (int, error) {
	if requested > math.MaxInt-current {
		if opts.QuantityPolicy == enums.QuantityPolicyReject {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, "quantity exceeds the maximum allowed").
				WithDetails(map[string]any{"quantity": current, "requested": requested})
		}
		return normalizeQuantity(math.MaxInt, opts)
	}
	return normalizeQuantity(current+requested, opts)
}

func itemNotFound(id string) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found").
		WithDetails(map[string]any{"item_id": id})
}

func vendorNotInCart(vendorID string) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "vendor has no items in the cart").
		WithDetails(map[string]any{"vendor_id": vendorID})
}

// AddItem merges the payload into a matching product+variant line or appends
// a new line. It returns the resulting line item.
func (s *State) AddItem(in NewItem, opts Options, now time.Time) (LineItem, error) {
	opts = opts.withDefaults()
	s.ensureMaps()
	if err := in.validate(); err != nil {
		return LineItem{}, err
	}
	requested, err := normalizeQuantity(in.Quantity, opts)
	if err != nil {
		return LineItem{}, err
	}

	for i := range s.Items {
		if !s.Items[i].sameProduct(in.ProductID, in.VariantID) {
			continue
		}
		qty, err := mergeQuantity(s.Items[i].Quantity, requested, opts)
		if err != nil {
			return LineItem{}, err
		}
		s.Items[i].Quantity = qty
		s.touch(now)
		return s.Items[i], nil
	}

	item := in.lineItem(requested, now)
	s.Items = append(s.Items, item)
	if opts.AutoSelectOnAdd {
		s.Selected[item.ID] = struct{}{}
	}
	s.normalize()
	s.touch(now)
	return s.Items[len(s.Items)-1], nil
}

// RemoveItem drops a single line item.
func (s *State) RemoveItem(id string, now time.Time) error {
	if s.indexOf(id) < 0 {
		return itemNotFound(id)
	}
	s.RemoveItems([]string{id}, now)
	return nil
}

// RemoveItems drops every listed line item. Unknown ids are ignored and the
// removed count is returned.
func (s *State) RemoveItems(ids []string, now time.Time) int {
	s.ensureMaps()
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := s.Items[:0]
	removed := 0
	for _, item := range s.Items {
		if _, ok := drop[item.ID]; ok {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	s.Items = kept
	if removed > 0 {
		s.normalize()
		s.touch(now)
	}
	return removed
}

// UpdateQuantity sets the quantity of a line item under the quantity policy.
func (s *State) UpdateQuantity(id string, qty int, opts Options, now time.Time) (LineItem, error) {
	opts = opts.withDefaults()
	idx := s.indexOf(id)
	if idx < 0 {
		return LineItem{}, itemNotFound(id)
	}
	normalized, err := normalizeQuantity(qty, opts)
	if err != nil {
		return s.Items[idx], err
	}
	s.Items[idx].Quantity = normalized
	s.touch(now)
	return s.Items[idx], nil
}

// ToggleItemSelection flips one item's selection and reports the new flag.
func (s *State) ToggleItemSelection(id string, now time.Time) (bool, error) {
	s.ensureMaps()
	if s.indexOf(id) < 0 {
		return false, itemNotFound(id)
	}
	selected := !s.Selected.Has(id)
	if selected {
		s.Selected[id] = struct{}{}
	} else {
		delete(s.Selected, id)
	}
	s.touch(now)
	return selected, nil
}

// SelectAllItems selects every line item.
func (s *State) SelectAllItems(now time.Time) {
	s.ensureMaps()
	for _, item := range s.Items {
		s.Selected[item.ID] = struct{}{}
	}
	s.touch(now)
}

// DeselectAllItems clears the selection.
func (s *State) DeselectAllItems(now time.Time) {
	s.Selected = SelectionSet{}
	s.touch(now)
}

// ToggleVendorSelection deselects the vendor's items when all of them are
// selected, otherwise selects them all. It reports the vendor's new state.
func (s *State) ToggleVendorSelection(vendorID string, now time.Time) (bool, error) {
	s.ensureMaps()
	if !s.hasVendor(vendorID) {
		return false, vendorNotInCart(vendorID)
	}
	selectAll := !s.IsVendorSelected(vendorID)
	for _, item := range s.VendorItems(vendorID) {
		if selectAll {
			s.Selected[item.ID] = struct{}{}
		} else {
			delete(s.Selected, item.ID)
		}
	}
	s.touch(now)
	return selectAll, nil
}

// IsVendorSelected reports whether the vendor has items and all are selected.
func (s *State) IsVendorSelected(vendorID string) bool {
	items := s.VendorItems(vendorID)
	if len(items) == 0 {
		return false
	}
	for _, item := range items {
		if !s.Selected.Has(item.ID) {
			return false
		}
	}
	return true
}

// ApplyVendorVoucher stores the voucher for its vendor, replacing any previous one.
func (s *State) ApplyVendorVoucher(vendorID string, voucher VendorVoucher, now time.Time) error {
	s.ensureMaps()
	if !s.hasVendor(vendorID) {
		return vendorNotInCart(vendorID)
	}
	if voucher.AdminApprovalStatus != enums.ApprovalStatusApproved {
		return pkgerrors.New(pkgerrors.CodeValidation, msgVoucherNotApproved).
			WithDetails(map[string]any{"vendor_id": vendorID, "code": voucher.Code})
	}
	if !voucher.DiscountType.IsValid() || voucher.DiscountAmount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "voucher discount is invalid")
	}
	voucher.VendorID = vendorID
	s.Vouchers[vendorID] = voucher
	s.normalize()
	s.touch(now)
	return nil
}

// RemoveVendorVoucher clears the vendor's voucher. It is a no-op when none is set.
func (s *State) RemoveVendorVoucher(vendorID string, now time.Time) {
	s.ensureMaps()
	if _, ok := s.Vouchers[vendorID]; !ok {
		return
	}
	delete(s.Vouchers, vendorID)
	s.normalize()
	s.touch(now)
}

// ApplyVendorCoupon stores an ongoing coupon for its vendor.
func (s *State) ApplyVendorCoupon(vendorID string, coupon VendorCoupon, now time.Time) error {
	s.ensureMaps()
	if !s.hasVendor(vendorID) {
		return vendorNotInCart(vendorID)
	}
	if !coupon.ActiveAt(now) {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon is not active").
			WithDetails(map[string]any{"vendor_id": vendorID, "coupon_id": coupon.ID})
	}
	if !coupon.Type.IsValid() || coupon.DiscountAmount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon discount is invalid")
	}
	coupon.VendorID = vendorID
	s.Coupons[vendorID] = coupon
	s.normalize()
	s.touch(now)
	return nil
}

// RemoveVendorCoupon clears the vendor's coupon.
func (s *State) RemoveVendorCoupon(vendorID string, now time.Time) {
	s.ensureMaps()
	if _, ok := s.Coupons[vendorID]; !ok {
		return
	}
	delete(s.Coupons, vendorID)
	s.normalize()
	s.touch(now)
}

// SetVendorDeliveryOption records the courier chosen for a vendor.
func (s *State) SetVendorDeliveryOption(vendorID string, option enums.DeliveryOption, now time.Time) error {
	s.ensureMaps()
	if !s.hasVendor(vendorID) {
		return vendorNotInCart(vendorID)
	}
	if !option.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery option").
			WithDetails(map[string]any{"delivery_option": option})
	}
	s.Deliveries[vendorID] = option
	s.touch(now)
	return nil
}

// BuyNowItem stages a single item in the transient checkout slot. Line items
// and the selection are left untouched.
func (s *State) BuyNowItem(in NewItem, opts Options, now time.Time) (*TransientCheckout, error) {
	opts = opts.withDefaults()
	if err := in.validate(); err != nil {
		return nil, err
	}
	qty, err := normalizeQuantity(in.Quantity, opts)
	if err != nil {
		return nil, err
	}
	s.BuyNow = &TransientCheckout{
		Item:     in.lineItem(qty, now),
		StagedAt: now,
	}
	s.touch(now)
	return s.BuyNow, nil
}

// SetBuyNowDelivery chooses the courier of the transient item.
func (s *State) SetBuyNowDelivery(option enums.DeliveryOption, now time.Time) error {
	if s.BuyNow == nil {
		return errNoBuyNow()
	}
	if !option.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery option").
			WithDetails(map[string]any{"delivery_option": option})
	}
	s.BuyNow.Delivery = option
	s.touch(now)
	return nil
}

// ApplyBuyNowVoucher attaches a voucher of the transient item's vendor.
func (s *State) ApplyBuyNowVoucher(voucher VendorVoucher, now time.Time) error {
	if s.BuyNow == nil {
		return errNoBuyNow()
	}
	if voucher.AdminApprovalStatus != enums.ApprovalStatusApproved {
		return pkgerrors.New(pkgerrors.CodeValidation, msgVoucherNotApproved)
	}
	voucher.VendorID = s.BuyNow.Item.VendorID
	s.BuyNow.Voucher = &voucher
	s.BuyNow.Item.PromoCodeID = voucher.ID
	s.touch(now)
	return nil
}

// ClearBuyNow empties the transient slot.
func (s *State) ClearBuyNow(now time.Time) {
	if s.BuyNow == nil {
		return
	}
	s.BuyNow = nil
	s.touch(now)
}

func errNoBuyNow() error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "no buy-now item is staged")
}

// normalize restores the cart invariants: the selection only references live
// items, vendor ledgers only reference vendors with items, and every item
// carries the ids of its vendor's voucher and coupon.
func (s *State) normalize() {
	s.ensureMaps()
	live := make(map[string]struct{}, len(s.Items))
	vendors := map[string]struct{}{}
	for _, item := range s.Items {
		live[item.ID] = struct{}{}
		vendors[item.VendorID] = struct{}{}
	}
	for id := range s.Selected {
		if _, ok := live[id]; !ok {
			delete(s.Selected, id)
		}
	}
	for vendorID := range s.Vouchers {
		if _, ok := vendors[vendorID]; !ok {
			delete(s.Vouchers, vendorID)
		}
	}
	for vendorID := range s.Coupons {
		if _, ok := vendors[vendorID]; !ok {
			delete(s.Coupons, vendorID)
		}
	}
	for vendorID := range s.Deliveries {
		if _, ok := vendors[vendorID]; !ok {
			delete(s.Deliveries, vendorID)
		}
	}
	for i := range s.Items {
		vendorID := s.Items[i].VendorID
		s.Items[i].PromoCodeID = s.Vouchers[vendorID].ID
		s.Items[i].CouponID = s.Coupons[vendorID].ID
	}
}

func (s *State) touch(now time.Time) {
	s.UpdatedAt = now
}

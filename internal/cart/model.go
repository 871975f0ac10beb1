package cart

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/angelmondragon/storefront-cart/pkg/enums"
	"github.com/shopspring/decimal"
)

// LineItem is one product (or variant) the buyer intends to purchase.
type LineItem struct {
	ID                   string          `json:"id"`
	ProductID            string          `json:"product_id"`
	VariantID            string          `json:"variant_id,omitempty"`
	VendorID             string          `json:"vendor_id"`
	VendorName           string          `json:"vendor_name"`
	Name                 string          `json:"name"`
	Images               []string        `json:"images,omitempty"`
	Quantity             int             `json:"quantity"`
	OriginalPrice        decimal.Decimal `json:"original_price"`
	DiscountedPrice      decimal.Decimal `json:"discounted_price"`
	ProductDiscountID    string          `json:"product_discount_id,omitempty"`
	NewArrivalDiscountID string          `json:"new_arrival_discount_id,omitempty"`
	CouponID             string          `json:"coupon_id,omitempty"`
	PromoCodeID          string          `json:"promo_code_id,omitempty"`
	AddedAt              time.Time       `json:"added_at"`
}

func (l LineItem) sameProduct(productID, variantID string) bool {
	return l.ProductID == productID && l.VariantID == variantID
}

// VendorVoucher is a vendor-issued promo code redeemed by the buyer.
type VendorVoucher struct {
	ID                  string               `json:"id"`
	VendorID            string               `json:"vendor_id"`
	Code                string               `json:"code"`
	DiscountAmount      decimal.Decimal      `json:"discount_amount"`
	DiscountType        enums.DiscountType   `json:"discount_type"`
	AdminApprovalStatus enums.ApprovalStatus `json:"admin_approval_status"`
	StartsAt            *time.Time           `json:"starts_at,omitempty"`
	EndsAt              *time.Time           `json:"ends_at,omitempty"`
}

// ActiveAt reports whether now falls inside the voucher's redemption window.
func (v VendorVoucher) ActiveAt(now time.Time) bool {
	return withinWindow(now, v.StartsAt, v.EndsAt)
}

// VendorCoupon is a vendor discount picked from a list, without a code.
type VendorCoupon struct {
	ID             string             `json:"id"`
	VendorID       string             `json:"vendor_id"`
	Name           string             `json:"name"`
	DiscountAmount decimal.Decimal    `json:"discount_amount"`
	Type           enums.DiscountType `json:"type"`
	Status         enums.PromoStatus  `json:"status"`
	StartsAt       *time.Time         `json:"starts_at,omitempty"`
	EndsAt         *time.Time         `json:"ends_at,omitempty"`
}

// ActiveAt reports whether the coupon is ongoing and inside its window.
func (c VendorCoupon) ActiveAt(now time.Time) bool {
	return c.Status == enums.PromoStatusOngoing && withinWindow(now, c.StartsAt, c.EndsAt)
}

func withinWindow(now time.Time, start, end *time.Time) bool {
	if start != nil && now.Before(*start) {
		return false
	}
	if end != nil && now.After(*end) {
		return false
	}
	return true
}

// SelectionSet holds the ids of line items flagged for checkout.
type SelectionSet map[string]struct{}

func (s SelectionSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// IDs returns the selected ids in sorted order.
func (s SelectionSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s SelectionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.IDs())
}

func (s *SelectionSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	set := make(SelectionSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	*s = set
	return nil
}

// TransientCheckout is the buy-now slot. It is staged apart from the
// persistent line items and never changes them.
type TransientCheckout struct {
	Item     LineItem             `json:"item"`
	Delivery enums.DeliveryOption `json:"delivery,omitempty"`
	Voucher  *VendorVoucher       `json:"voucher,omitempty"`
	StagedAt time.Time            `json:"staged_at"`
}

// State is the full cart of one session.
type State struct {
	SessionID  string                          `json:"session_id"`
	BuyerID    string                          `json:"buyer_id"`
	Items      []LineItem                      `json:"items"`
	Selected   SelectionSet                    `json:"selected"`
	Vouchers   map[string]VendorVoucher        `json:"vouchers"`
	Coupons    map[string]VendorCoupon         `json:"coupons"`
	Deliveries map[string]enums.DeliveryOption `json:"deliveries"`
	BuyNow     *TransientCheckout              `json:"buy_now,omitempty"`
	Version    int64                           `json:"version"`
	UpdatedAt  time.Time                       `json:"updated_at"`
}

// NewState returns an empty cart for the session.
func NewState(sessionID, buyerID string) *State {
	s := &State{SessionID: sessionID, BuyerID: buyerID}
	s.ensureMaps()
	return s
}

func (s *State) ensureMaps() {
	if s.Items == nil {
		s.Items = []LineItem{}
	}
	if s.Selected == nil {
		s.Selected = SelectionSet{}
	}
	if s.Vouchers == nil {
		s.Vouchers = map[string]VendorVoucher{}
	}
	if s.Coupons == nil {
		s.Coupons = map[string]VendorCoupon{}
	}
	if s.Deliveries == nil {
		s.Deliveries = map[string]enums.DeliveryOption{}
	}
}

// Clone returns a deep copy safe to hand to callers.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := *s
	out.Items = make([]LineItem, len(s.Items))
	for i, item := range s.Items {
		item.Images = append([]string(nil), item.Images...)
		out.Items[i] = item
	}
	out.Selected = make(SelectionSet, len(s.Selected))
	for id := range s.Selected {
		out.Selected[id] = struct{}{}
	}
	out.Vouchers = make(map[string]VendorVoucher, len(s.Vouchers))
	for k, v := range s.Vouchers {
		out.Vouchers[k] = v
	}
	out.Coupons = make(map[string]VendorCoupon, len(s.Coupons))
	for k, v := range s.Coupons {
		out.Coupons[k] = v
	}
	out.Deliveries = make(map[string]enums.DeliveryOption, len(s.Deliveries))
	for k, v := range s.Deliveries {
		out.Deliveries[k] = v
	}
	if s.BuyNow != nil {
		bn := *s.BuyNow
		bn.Item.Images = append([]string(nil), s.BuyNow.Item.Images...)
		if s.BuyNow.Voucher != nil {
			v := *s.BuyNow.Voucher
			bn.Voucher = &v
		}
		out.BuyNow = &bn
	}
	return &out
}

// Item returns the line item with id.
func (s *State) Item(id string) (LineItem, bool) {
	if idx := s.indexOf(id); idx >= 0 {
		return s.Items[idx], true
	}
	return LineItem{}, false
}

func (s *State) indexOf(id string) int {
	for i := range s.Items {
		if s.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// VendorIDs lists vendors that have at least one line item, sorted.
func (s *State) VendorIDs() []string {
	seen := map[string]struct{}{}
	for _, item := range s.Items {
		seen[item.VendorID] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// VendorItems returns the vendor's line items in cart order.
func (s *State) VendorItems(vendorID string) []LineItem {
	var out []LineItem
	for _, item := range s.Items {
		if item.VendorID == vendorID {
			out = append(out, item)
		}
	}
	return out
}

// SelectedItems returns selected line items in cart order.
func (s *State) SelectedItems() []LineItem {
	var out []LineItem
	for _, item := range s.Items {
		if s.Selected.Has(item.ID) {
			out = append(out, item)
		}
	}
	return out
}

// SelectedVendorIDs lists vendors with at least one selected item, sorted.
func (s *State) SelectedVendorIDs() []string {
	seen := map[string]struct{}{}
	for _, item := range s.SelectedItems() {
		seen[item.VendorID] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *State) hasVendor(vendorID string) bool {
	for _, item := range s.Items {
		if item.VendorID == vendorID {
			return true
		}
	}
	return false
}

package cart

import (
	"math"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-cart/internal/pricing"
	"github.com/angelmondragon/storefront-cart/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func decPtr(v string) *decimal.Decimal {
	d := dec(v)
	return &d
}

func newItem(productID, vendorID, price string, qty int) NewItem {
	return NewItem{
		ProductID:     productID,
		VendorID:      vendorID,
		VendorName:    "Vendor " + vendorID,
		Name:          "Product " + productID,
		Quantity:      qty,
		OriginalPrice: dec(price),
	}
}

func mustAdd(t *testing.T, s *State, in NewItem) LineItem {
	t.Helper()
	item, err := s.AddItem(in, DefaultOptions(), testNow)
	require.NoError(t, err)
	return item
}

func TestAddItemMergesSameProductAndVariant(t *testing.T) {
	s := NewState("buyer-1", "buyer-1")

	first := mustAdd(t, s, newItem("p1", "v1", "100", 1))
	second := mustAdd(t, s, newItem("p1", "v1", "100", 2))

	require.Len(t, s.Items, 1)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 3, s.Items[0].Quantity)

	variant := newItem("p1", "v1", "100", 1)
	variant.VariantID = "large"
	mustAdd(t, s, variant)
	assert.Len(t, s.Items, 2)
}

func TestAddItemMergeNeverWrapsQuantity(t *testing.T) {
	tests := []struct {
		name    string
		policy  enums.QuantityPolicy
		max     int
		want    int
		wantErr bool
	}{
		{name: "clamp unbounded", policy: enums.QuantityPolicyClamp, want: math.MaxInt},
		{name: "clamp to max", policy: enums.QuantityPolicyClamp, max: 5, want: 5},
		{name: "reject", policy: enums.QuantityPolicyReject, want: math.MaxInt, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := NewState("buyer-1", "buyer-1")
			s.Items = append(s.Items, LineItem{ID: "line-1", ProductID: "p1", VendorID: "v1", Quantity: math.MaxInt,
				OriginalPrice: dec("10"), DiscountedPrice: dec("10")})
			opts := Options{QuantityPolicy: tc.policy, MaxQuantity: tc.max}

			_, err := s.AddItem(newItem("p1", "v1", "10", 2), opts, testNow)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
			} else {
				require.NoError(t, err)
			}
			require.Len(t, s.Items, 1)
			assert.Equal(t, tc.want, s.Items[0].Quantity)
			assert.Positive(t, s.Items[0].Quantity)
		})
	}
}

func TestAddItemPricesPromotions(t *testing.T) {
	s := NewState("buyer-1", "buyer-1")
	in := newItem("p1", "v1", "1000", 1)
	in.Promotions = &pricing.ProductPromotions{
		NewArrival: &pricing.Promotion{ID: "na-1", Type: enums.DiscountTypeFixedPrice, Amount: dec("50"), Status: enums.PromoStatusOngoing},
		Product:    &pricing.Promotion{ID: "pd-1", Type: enums.DiscountTypePercentageOff, Amount: dec("10"), Status: enums.PromoStatusOngoing},
	}

	item := mustAdd(t, s, in)

	assert.True(t, item.DiscountedPrice.Equal(dec("850")), "got %s", item.DiscountedPrice)
	assert.Equal(t, "na-1", item.NewArrivalDiscountID)
	assert.Equal(t, "pd-1", item.ProductDiscountID)
}

func TestAddItemRejectsInvalidPrices(t *testing.T) {
	s := NewState("buyer-1", "buyer-1")

	over := newItem("p1", "v1", "100", 1)
	over.DiscountedPrice = decPtr("120")
	_, err := s.AddItem(over, DefaultOptions(), testNow)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	negative := newItem("p1", "v1", "-1", 1)
	_, err = s.AddItem(negative, DefaultOptions(), testNow)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	missingVendor := newItem("p1", "", "10", 1)
	_, err = s.AddItem(missingVendor, DefaultOptions(), testNow)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	assert.Empty(t, s.Items)
}

func TestAddItemDoesNotAutoSelectByDefault(t *testing.T) {
	s := NewState("buyer-1", "buyer-1")
	item := mustAdd(t, s, newItem("p1", "v1", "10", 1))
	assert.False(t, s.Selected.Has(item.ID))

	opts := DefaultOptions()
	opts.AutoSelectOnAdd = true
	auto, err := s.AddItem(newItem("p2", "v1", "10", 1), opts, testNow)
	require.NoError(t, err)
	assert.True(t, s.Selected.Has(auto.ID))
}

func TestUpdateQuantityPolicies(t *testing.T) {
	tests := []struct {
		name    string
		policy  enums.QuantityPolicy
		max     int
		qty     int
		want    int
		wantErr bool
	}{
		{name: "clamp below one", policy: enums.QuantityPolicyClamp, qty: 0, want: 1},
		{name: "clamp negative", policy: enums.QuantityPolicyClamp, qty: -4, want: 1},
		{name: "clamp above max", policy: enums.QuantityPolicyClamp, max: 5, qty: 9, want: 5},
		{name: "reject below one", policy: enums.QuantityPolicyReject, qty: 0, want: 2, wantErr: true},
		{name: "reject above max", policy: enums.QuantityPolicyReject, max: 5, qty: 6, want: 2, wantErr: true},
		{name: "in range", policy: enums.QuantityPolicyReject, max: 5, qty: 4, want: 4},
		{name: "no max", policy: enums.QuantityPolicyClamp, qty: 500, want: 500},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := NewState("buyer-1", "buyer-1")
			item := mustAdd(t, s, newItem("p1", "v1", "10", 2))
			opts := Options{QuantityPolicy: tc.policy, MaxQuantity: tc.max}

			_, err := s.UpdateQuantity(item.ID, tc.qty, opts, testNow)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
			} else {
				require.NoError(t, err)
			}
			got, _ := s.Item(item.ID)
			assert.Equal(t, tc.want, got.Quantity)
		})
	}
}

func TestUpdateQuantityUnknownItem(t *testing.T) {
	s := NewState("buyer-1", "buyer-1")
	_, err := s.UpdateQuantity("missing", 2, DefaultOptions(), testNow)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRemovingLastVendorItemPrunesLedgers(t *testing.T) {
	s := NewState("buyer-1", "buyer-1")
	a1 := mustAdd(t, s, newItem("p1", "A", "100", 1))
	a2 := mustAdd(t, s, newItem("p2", "A", "50", 1))
	b1 := mustAdd(t, s, newItem("p3", "B", "30", 1))
	s.SelectAllItems(testNow)

	require.NoError(t, s.ApplyVendorVoucher("A", approvedVoucher("A", "SAVE10", enums.DiscountTypePercentageOff, "10"), testNow))
	require.NoError(t, s.ApplyVendorCoupon("A", ongoingCoupon("A", "c-1", enums.DiscountTypeFixedPrice, "5"), testNow))
	require.NoError(t, s.SetVendorDeliveryOption("A", enums.DeliveryOptionBicycle, testNow))
	require.NoError(t, s.SetVendorDeliveryOption("B", enums.DeliveryOptionMotorcycle, testNow))

	require.NoError(t, s.RemoveItem(a1.ID, testNow))
	assert.Contains(t, s.Vouchers, "A")

	require.NoError(t, s.RemoveItem(a2.ID, testNow))
	assert.NotContains(t, s.Vouchers, "A")
	assert.NotContains(t, s.Coupons, "A")
	assert.NotContains(t, s.Deliveries, "A")
	assert.Equal(t, enums.DeliveryOptionMotorcycle, s.Deliveries["B"])
	assert.Equal(t, []string{b1.ID}, s.Selected.IDs())
}

func TestRemoveItemsIgnoresUnknownIDs(t *testing.T) {
	s := NewState("buyer-1", "buyer-1")
	a := mustAdd(t, s, newItem("p1", "A", "10", 1))
	b := mustAdd(t, s, newItem("p2", "A", "10", 1))
	s.SelectAllItems(testNow)

	removed := s.RemoveItems([]string{a.ID, "ghost"}, testNow)
	assert.Equal(t, 1, removed)
	assert.Equal(t, []string{b.ID}, s.Selected.IDs())

	assert.True(t, pkgerrors.IsCode(s.RemoveItem("ghost", testNow), pkgerrors.CodeNotFound))
}

func TestSelectionIsIdempotent(t *testing.T) {
	s := NewState("buyer-1", "buyer-1")
	mustAdd(t, s, newItem("p1", "A", "10", 1))
	mustAdd(t, s, newItem("p2", "B", "10", 1))

	s.SelectAllItems(testNow)
	once := s.Selected.IDs()
	s.SelectAllItems(testNow)
	assert.Equal(t, once, s.Selected.IDs())
	assert.Len(t, once, 2)

	s.DeselectAllItems(testNow)
	s.DeselectAllItems(testNow)
	assert.Empty(t, s.Selected)
}

func TestToggleItemSelection(t *testing.T) {
	s := NewState("buyer-1", "buyer-1")
	item := mustAdd(t, s, newItem("p1", "A", "10", 1))

	selected, err := s.ToggleItemSelection(item.ID, testNow)
	require.NoError(t, err)
	assert.True(t, selected)

	selected, err = s.ToggleItemSelection(item.ID, testNow)
	require.NoError(t, err)
	assert.False(t, selected)

	_, err = s.ToggleItemSelection("ghost", testNow)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestToggleVendorSelection(t *testing.T) {
	s := NewState("buyer-1", "buyer-1")
	a1 := mustAdd(t, s, newItem("p1", "A", "10", 1))
	mustAdd(t, s, newItem("p2", "A", "10", 1))
	b1 := mustAdd(t, s, newItem("p3", "B", "10", 1))

	_, err := s.ToggleItemSelection(a1.ID, testNow)
	require.NoError(t, err)
	assert.False(t, s.IsVendorSelected("A"), "partially selected vendor is not selected")

	selected, err := s.ToggleVendorSelection("A", testNow)
	require.NoError(t, err)
	assert.True(t, selected)
	assert.True(t, s.IsVendorSelected("A"))
	assert.False(t, s.Selected.Has(b1.ID))

	selected, err = s.ToggleVendorSelection("A", testNow)
	require.NoError(t, err)
	assert.False(t, selected)
	assert.Empty(t, s.Selected)

	_, err = s.ToggleVendorSelection("Z", testNow)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.False(t, s.IsVendorSelected("Z"))
}

func TestLedgersRequireVendorInCart(t *testing.T) {
	s := NewState("buyer-1", "buyer-1")
	mustAdd(t, s, newItem("p1", "A", "10", 1))

	err := s.ApplyVendorVoucher("B", approvedVoucher("B", "X", enums.DiscountTypeFixedPrice, "1"), testNow)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	err = s.ApplyVendorCoupon("B", ongoingCoupon("B", "c", enums.DiscountTypeFixedPrice, "1"), testNow)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	err = s.SetVendorDeliveryOption("B", enums.DeliveryOptionBicycle, testNow)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	err = s.SetVendorDeliveryOption("A", enums.DeliveryOption("drone"), testNow)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestVoucherReplacementAndItemStamping(t *testing.T) {
	s := NewState("buyer-1", "buyer-1")
	item := mustAdd(t, s, newItem("p1", "A", "10", 1))

	first := approvedVoucher("A", "FIRST", enums.DiscountTypeFixedPrice, "1")
	first.ID = "vc-1"
	second := approvedVoucher("A", "SECOND", enums.DiscountTypeFixedPrice, "2")
	second.ID = "vc-2"

	require.NoError(t, s.ApplyVendorVoucher("A", first, testNow))
	require.NoError(t, s.ApplyVendorVoucher("A", second, testNow))
	assert.Equal(t, "SECOND", s.Vouchers["A"].Code)

	got, _ := s.Item(item.ID)
	assert.Equal(t, "vc-2", got.PromoCodeID)

	later := mustAdd(t, s, newItem("p2", "A", "5", 1))
	assert.Equal(t, "vc-2", later.PromoCodeID)

	s.RemoveVendorVoucher("A", testNow)
	got, _ = s.Item(item.ID)
	assert.Empty(t, got.PromoCodeID)
}

func TestApplyVendorVoucherRequiresApproval(t *testing.T) {
	s := NewState("buyer-1", "buyer-1")
	mustAdd(t, s, newItem("p1", "A", "10", 1))
	v := approvedVoucher("A", "PENDING", enums.DiscountTypeFixedPrice, "1")
	v.AdminApprovalStatus = enums.ApprovalStatusPending

	err := s.ApplyVendorVoucher("A", v, testNow)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Empty(t, s.Vouchers)
}

func TestApplyVendorCouponRequiresOngoing(t *testing.T) {
	s := NewState("buyer-1", "buyer-1")
	mustAdd(t, s, newItem("p1", "A", "10", 1))
	c := ongoingCoupon("A", "c-1", enums.DiscountTypePercentageOff, "5")
	c.Status = enums.PromoStatusEnded

	err := s.ApplyVendorCoupon("A", c, testNow)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	c.Status = enums.PromoStatusOngoing
	require.NoError(t, s.ApplyVendorCoupon("A", c, testNow))
	assert.Equal(t, "c-1", s.Items[0].CouponID)

	s.RemoveVendorCoupon("A", testNow)
	assert.Empty(t, s.Coupons)
	assert.Empty(t, s.Items[0].CouponID)
}

func TestBuyNowIsIsolatedFromCart(t *testing.T) {
	s := NewState("buyer-1", "buyer-1")
	existing := mustAdd(t, s, newItem("p1", "A", "10", 2))
	s.SelectAllItems(testNow)

	staged, err := s.BuyNowItem(newItem("p1", "A", "10", 1), DefaultOptions(), testNow)
	require.NoError(t, err)

	require.Len(t, s.Items, 1)
	assert.Equal(t, 2, s.Items[0].Quantity)
	assert.Equal(t, []string{existing.ID}, s.Selected.IDs())
	assert.NotEqual(t, existing.ID, staged.Item.ID)

	require.NoError(t, s.SetBuyNowDelivery(enums.DeliveryOptionBicycle, testNow))
	assert.Empty(t, s.Deliveries)

	voucher := approvedVoucher("A", "NOW", enums.DiscountTypeFixedPrice, "3")
	voucher.ID = "vc-now"
	require.NoError(t, s.ApplyBuyNowVoucher(voucher, testNow))
	assert.Empty(t, s.Vouchers)
	assert.Equal(t, "vc-now", s.BuyNow.Item.PromoCodeID)

	s.ClearBuyNow(testNow)
	assert.Nil(t, s.BuyNow)
	assert.Len(t, s.Items, 1)
}

func TestBuyNowWithoutStagedItem(t *testing.T) {
	s := NewState("buyer-1", "buyer-1")
	assert.True(t, pkgerrors.IsCode(s.SetBuyNowDelivery(enums.DeliveryOptionBicycle, testNow), pkgerrors.CodeStateConflict))
	assert.True(t, pkgerrors.IsCode(s.ApplyBuyNowVoucher(VendorVoucher{AdminApprovalStatus: enums.ApprovalStatusApproved}, testNow), pkgerrors.CodeStateConflict))
}

func TestCloneIsDeep(t *testing.T) {
	s := NewState("buyer-1", "buyer-1")
	in := newItem("p1", "A", "10", 1)
	in.Images = []string{"a.png"}
	item := mustAdd(t, s, in)
	s.SelectAllItems(testNow)
	_, err := s.BuyNowItem(newItem("p2", "A", "5", 1), DefaultOptions(), testNow)
	require.NoError(t, err)

	c := s.Clone()
	c.Items[0].Images[0] = "changed.png"
	c.Items[0].Quantity = 99
	delete(c.Selected, item.ID)
	c.BuyNow.Item.Quantity = 7

	assert.Equal(t, "a.png", s.Items[0].Images[0])
	assert.Equal(t, 1, s.Items[0].Quantity)
	assert.True(t, s.Selected.Has(item.ID))
	assert.Equal(t, 1, s.BuyNow.Item.Quantity)
}

func approvedVoucher(vendorID, code string, typ enums.DiscountType, amount string) VendorVoucher {
	return VendorVoucher{
		ID:                  "voucher-" + code,
		VendorID:            vendorID,
		Code:                code,
		DiscountAmount:      dec(amount),
		DiscountType:        typ,
		AdminApprovalStatus: enums.ApprovalStatusApproved,
	}
}

func ongoingCoupon(vendorID, id string, typ enums.DiscountType, amount string) VendorCoupon {
	return VendorCoupon{
		ID:             id,
		VendorID:       vendorID,
		Name:           "Coupon " + id,
		DiscountAmount: dec(amount),
		Type:           typ,
		Status:         enums.PromoStatusOngoing,
	}
}

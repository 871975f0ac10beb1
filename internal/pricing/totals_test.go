package pricing

import (
	"math"
	"testing"

	"github.com/angelmondragon/storefront-cart/pkg/enums"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeVendorTotalVoucherAndShipping(t *testing.T) {
	t.Parallel()

	fees := DefaultFeeSchedule()
	lines := []VendorLine{{Price: decimal.NewFromInt(250), Quantity: 2}}
	adj := []Adjustment{{Type: enums.DiscountTypePercentageOff, Amount: decimal.NewFromInt(20)}}

	got := ComputeVendorTotal("vendor-a", lines, adj, fees.Fee(enums.DeliveryOptionMotorcycle))

	assert.True(t, got.Subtotal.Equal(decimal.NewFromInt(500)))
	assert.True(t, got.Discount.Equal(decimal.NewFromInt(100)))
	assert.True(t, got.ShippingFee.Equal(decimal.NewFromInt(40)))
	assert.True(t, got.Total.Equal(decimal.NewFromInt(400)), "shipping must not be folded into total")
	assert.True(t, got.AmountDue.Equal(decimal.NewFromInt(440)))
	assert.Equal(t, 2, got.ItemCount)
}

func TestComputeVendorTotalPercentBeforeFixedAndCapped(t *testing.T) {
	t.Parallel()

	lines := []VendorLine{{Price: decimal.NewFromInt(100), Quantity: 1}}
	got := ComputeVendorTotal("v", lines, []Adjustment{
		{Type: enums.DiscountTypeFixedPrice, Amount: decimal.NewFromInt(30)},
		{Type: enums.DiscountTypePercentageOff, Amount: decimal.NewFromInt(50)},
	}, decimal.Zero)
	assert.True(t, got.Discount.Equal(decimal.NewFromInt(80)))
	assert.True(t, got.Total.Equal(decimal.NewFromInt(20)))

	capped := ComputeVendorTotal("v", lines, []Adjustment{{Type: enums.DiscountTypeFixedPrice, Amount: decimal.NewFromInt(500)}}, decimal.Zero)
	assert.True(t, capped.Discount.Equal(decimal.NewFromInt(100)))
	assert.True(t, capped.Total.IsZero())
}

func TestComputeVendorTotalInvariants(t *testing.T) {
	t.Parallel()

	for price := int64(0); price <= 500; price += 73 {
		for qty := 0; qty <= 3; qty++ {
			for amount := int64(0); amount <= 700; amount += 90 {
				for _, typ := range []enums.DiscountType{enums.DiscountTypePercentageOff, enums.DiscountTypeFixedPrice} {
					got := ComputeVendorTotal("v", []VendorLine{{Price: decimal.NewFromInt(price), Quantity: qty}},
						[]Adjustment{{Type: typ, Amount: decimal.NewFromInt(amount)}}, decimal.NewFromInt(30))
					require.True(t, got.Total.Equal(got.Subtotal.Sub(got.Discount)))
					require.False(t, got.Total.IsNegative())
					require.True(t, got.AmountDue.Equal(got.Total.Add(got.ShippingFee)))
				}
			}
		}
	}
}

func TestSummarizeSkipsEmptyVendors(t *testing.T) {
	t.Parallel()

	a := ComputeVendorTotal("a", []VendorLine{{Price: decimal.NewFromInt(100), Quantity: 1}}, nil, decimal.NewFromInt(40))
	b := ComputeVendorTotal("b", nil, nil, decimal.NewFromInt(30))
	c := ComputeVendorTotal("c", []VendorLine{{Price: decimal.NewFromInt(50), Quantity: 2}}, []Adjustment{{Type: enums.DiscountTypeFixedPrice, Amount: decimal.NewFromInt(10)}}, decimal.NewFromInt(30))

	summary := Summarize([]VendorTotal{c, b, a})
	require.Len(t, summary.Vendors, 2)
	assert.Equal(t, "a", summary.Vendors[0].VendorID)
	assert.Equal(t, "c", summary.Vendors[1].VendorID)
	assert.Equal(t, 3, summary.ItemCount)
	assert.True(t, summary.Subtotal.Equal(decimal.NewFromInt(200)))
	assert.True(t, summary.Discount.Equal(decimal.NewFromInt(10)))
	assert.True(t, summary.TotalShippingFee.Equal(decimal.NewFromInt(70)))
	assert.True(t, summary.Total.Equal(decimal.NewFromInt(190)))
	assert.True(t, summary.AmountDue.Equal(decimal.NewFromInt(260)))
}

func TestNewFeeSchedule(t *testing.T) {
	t.Parallel()

	fees, err := NewFeeSchedule("55.50", "25")
	require.NoError(t, err)
	assert.True(t, fees.Fee(enums.DeliveryOptionMotorcycle).Equal(decimal.RequireFromString("55.50")))
	assert.True(t, fees.Fee(enums.DeliveryOptionBicycle).Equal(decimal.NewFromInt(25)))
	assert.True(t, fees.Fee("").IsZero())

	_, err = NewFeeSchedule("abc", "25")
	assert.Error(t, err)
	_, err = NewFeeSchedule("10", "-1")
	assert.Error(t, err)
}

func TestItemCountsSaturate(t *testing.T) {
	t.Parallel()

	lines := []VendorLine{
		{Price: decimal.NewFromInt(1), Quantity: math.MaxInt},
		{Price: decimal.NewFromInt(1), Quantity: 2},
	}
	a := ComputeVendorTotal("a", lines, nil, decimal.Zero)
	assert.Equal(t, math.MaxInt, a.ItemCount)
	assert.True(t, a.Subtotal.IsPositive())

	b := ComputeVendorTotal("b", []VendorLine{{Price: decimal.NewFromInt(1), Quantity: 3}}, nil, decimal.Zero)
	summary := Summarize([]VendorTotal{a, b})
	assert.Equal(t, math.MaxInt, summary.ItemCount)
}

package pricing

import (
	"github.com/angelmondragon/storefront-cart/pkg/enums"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Discount is a single price reduction attached to a product.
type Discount struct {
	ID     string
	Source enums.DiscountSource
	Type   enums.DiscountType
	Amount decimal.Decimal
}

// Promotion is a product-level promotion as published by the vendor.
type Promotion struct {
	ID     string
	Type   enums.DiscountType
	Amount decimal.Decimal
	Status enums.PromoStatus
}

// ProductPromotions holds the two promotion slots a product can carry.
type ProductPromotions struct {
	NewArrival *Promotion
	Product    *Promotion
}

// DiscountInfo collects the ongoing promotions of a product as discounts.
// The new-arrival discount comes first when both are present.
func DiscountInfo(promos ProductPromotions) []Discount {
	discounts := make([]Discount, 0, 2)
	if d, ok := ongoing(promos.NewArrival, enums.DiscountSourceNewArrival); ok {
		discounts = append(discounts, d)
	}
	if d, ok := ongoing(promos.Product, enums.DiscountSourceProduct); ok {
		discounts = append(discounts, d)
	}
	return discounts
}

func ongoing(p *Promotion, source enums.DiscountSource) (Discount, bool) {
	if p == nil || p.Status != enums.PromoStatusOngoing || !p.Type.IsValid() {
		return Discount{}, false
	}
	return Discount{ID: p.ID, Source: source, Type: p.Type, Amount: p.Amount}, true
}

// CalculateDiscountPrice applies every percentage discount (summed) to the
// original price, then subtracts every fixed discount (summed). The result is
// floored at zero and rounded to centavos.
func CalculateDiscountPrice(original decimal.Decimal, discounts []Discount) decimal.Decimal {
	if original.IsNegative() {
		return decimal.Zero
	}
	percent, fixed := splitDiscounts(discounts)

	price := original
	if percent.IsPositive() {
		price = original.Mul(decimal.NewFromInt(1).Sub(percent.Div(hundred)))
	}
	price = price.Sub(fixed)
	return floorZero(price).Round(2)
}

func splitDiscounts(discounts []Discount) (percent, fixed decimal.Decimal) {
	percent, fixed = decimal.Zero, decimal.Zero
	for _, d := range discounts {
		if d.Amount.IsNegative() {
			continue
		}
		switch d.Type {
		case enums.DiscountTypePercentageOff:
			percent = percent.Add(d.Amount)
		case enums.DiscountTypeFixedPrice:
			fixed = fixed.Add(d.Amount)
		}
	}
	return percent, fixed
}

func floorZero(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}

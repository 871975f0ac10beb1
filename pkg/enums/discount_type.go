package enums

import (
	"fmt"
	"strings"
)

// DiscountType distinguishes relative from absolute price reductions.
type DiscountType string

const (
	DiscountTypePercentageOff DiscountType = "percentage_off"
	DiscountTypeFixedPrice    DiscountType = "fixed_price"
)

var validDiscountTypes = []DiscountType{
	DiscountTypePercentageOff,
	DiscountTypeFixedPrice,
}

// legacy spellings still emitted by the marketplace API.
var discountTypeAliases = map[string]DiscountType{
	"percentageoff": DiscountTypePercentageOff,
	"percentage":    DiscountTypePercentageOff,
	"fixedprice":    DiscountTypeFixedPrice,
	"fixed":         DiscountTypeFixedPrice,
}

// String implements fmt.Stringer.
func (d DiscountType) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DiscountType.
func (d DiscountType) IsValid() bool {
	for _, candidate := range validDiscountTypes {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDiscountType converts raw input into a DiscountType.
func ParseDiscountType(value string) (DiscountType, error) {
	trimmed := strings.TrimSpace(value)
	for _, candidate := range validDiscountTypes {
		if string(candidate) == trimmed {
			return candidate, nil
		}
	}
	key := strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(trimmed))
	if alias, ok := discountTypeAliases[key]; ok {
		return alias, nil
	}
	return "", fmt.Errorf("invalid discount type %q", value)
}

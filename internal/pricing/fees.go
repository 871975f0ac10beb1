package pricing

import (
	"fmt"

	"github.com/angelmondragon/storefront-cart/pkg/enums"
	"github.com/shopspring/decimal"
)

// FeeSchedule maps each delivery option to its flat shipping fee.
type FeeSchedule map[enums.DeliveryOption]decimal.Decimal

// DefaultFeeSchedule mirrors the storefront's published courier rates.
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		enums.DeliveryOptionMotorcycle: decimal.NewFromInt(40),
		enums.DeliveryOptionBicycle:    decimal.NewFromInt(30),
	}
}

// NewFeeSchedule parses textual fees, e.g. from configuration.
func NewFeeSchedule(motorcycle, bicycle string) (FeeSchedule, error) {
	schedule := FeeSchedule{}
	for option, raw := range map[enums.DeliveryOption]string{
		enums.DeliveryOptionMotorcycle: motorcycle,
		enums.DeliveryOptionBicycle:    bicycle,
	} {
		fee, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s fee: %w", option, err)
		}
		if fee.IsNegative() {
			return nil, fmt.Errorf("%s fee must be non-negative", option)
		}
		schedule[option] = fee
	}
	return schedule, nil
}

// Fee returns the fee for option. Unknown or empty options cost nothing.
func (f FeeSchedule) Fee(option enums.DeliveryOption) decimal.Decimal {
	if fee, ok := f[option]; ok {
		return fee
	}
	return decimal.Zero
}

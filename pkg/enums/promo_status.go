package enums

import (
	"fmt"
	"strings"
)

// PromoStatus is the lifecycle of a product promotion or vendor coupon.
type PromoStatus string

const (
	PromoStatusOngoing   PromoStatus = "Ongoing"
	PromoStatusScheduled PromoStatus = "Scheduled"
	PromoStatusEnded     PromoStatus = "Ended"
)

var validPromoStatuses = []PromoStatus{
	PromoStatusOngoing,
	PromoStatusScheduled,
	PromoStatusEnded,
}

// String implements fmt.Stringer.
func (p PromoStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PromoStatus.
func (p PromoStatus) IsValid() bool {
	for _, candidate := range validPromoStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePromoStatus converts raw input into a PromoStatus. Matching ignores case.
func ParsePromoStatus(value string) (PromoStatus, error) {
	for _, candidate := range validPromoStatuses {
		if strings.EqualFold(string(candidate), strings.TrimSpace(value)) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid promo status %q", value)
}

package enums

import "fmt"

// QuantityPolicy decides what happens when a requested quantity is out of range.
type QuantityPolicy string

const (
	QuantityPolicyClamp  QuantityPolicy = "clamp"
	QuantityPolicyReject QuantityPolicy = "reject"
)

var validQuantityPolicies = []QuantityPolicy{
	QuantityPolicyClamp,
	QuantityPolicyReject,
}

// String implements fmt.Stringer.
func (q QuantityPolicy) String() string {
	return string(q)
}

// IsValid reports whether the value is a known QuantityPolicy.
func (q QuantityPolicy) IsValid() bool {
	for _, candidate := range validQuantityPolicies {
		if candidate == q {
			return true
		}
	}
	return false
}

// ParseQuantityPolicy converts raw input into a QuantityPolicy.
func ParseQuantityPolicy(value string) (QuantityPolicy, error) {
	for _, candidate := range validQuantityPolicies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid quantity policy %q", value)
}

package enums

import (
	"fmt"
	"strings"
)

// ApprovalStatus is the admin moderation state of a vendor voucher.
type ApprovalStatus string

const (
	ApprovalStatusApproved ApprovalStatus = "Approved"
	ApprovalStatusPending  ApprovalStatus = "Pending"
	ApprovalStatusRejected ApprovalStatus = "Rejected"
)

var validApprovalStatuses = []ApprovalStatus{
	ApprovalStatusApproved,
	ApprovalStatusPending,
	ApprovalStatusRejected,
}

// String implements fmt.Stringer.
func (a ApprovalStatus) String() string {
	return string(a)
}

// IsValid reports whether the value is a known ApprovalStatus.
func (a ApprovalStatus) IsValid() bool {
	for _, candidate := range validApprovalStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseApprovalStatus converts raw input into an ApprovalStatus. Matching ignores case.
func ParseApprovalStatus(value string) (ApprovalStatus, error) {
	for _, candidate := range validApprovalStatuses {
		if strings.EqualFold(string(candidate), strings.TrimSpace(value)) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid approval status %q", value)
}

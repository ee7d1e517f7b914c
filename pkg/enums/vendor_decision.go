package enums

import "slices"

// VendorDecision records how a vendor handled an ad. A vendor holds at most
// one decision per ad.
type VendorDecision string

const (
	VendorDecisionAccepted VendorDecision = "accepted"
	VendorDecisionRejected VendorDecision = "rejected"
)

var validVendorDecisions = []VendorDecision{
	VendorDecisionAccepted,
	VendorDecisionRejected,
}

// String implements fmt.Stringer.
func (d VendorDecision) String() string {
	return string(d)
}

// IsValid reports whether the value is a known VendorDecision.
func (d VendorDecision) IsValid() bool {
	return slices.Contains(validVendorDecisions, d)
}

// ParseVendorDecision converts raw input into a VendorDecision.
func ParseVendorDecision(value string) (VendorDecision, error) {
	return parse("vendor decision", value, validVendorDecisions)
}

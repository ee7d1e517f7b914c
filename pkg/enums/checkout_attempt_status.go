package enums

import "slices"

// CheckoutAttemptStatus tracks a checkout between intent creation and order persistence.
type CheckoutAttemptStatus string

const (
	CheckoutAttemptIntentPending CheckoutAttemptStatus = "intent_pending"
	CheckoutAttemptIntentCreated CheckoutAttemptStatus = "intent_created"
	CheckoutAttemptOrdered       CheckoutAttemptStatus = "ordered"
	CheckoutAttemptReconciled    CheckoutAttemptStatus = "reconciled"
	CheckoutAttemptAbandoned     CheckoutAttemptStatus = "abandoned"
)

var validCheckoutAttemptStatuses = []CheckoutAttemptStatus{
	CheckoutAttemptIntentPending,
	CheckoutAttemptIntentCreated,
	CheckoutAttemptOrdered,
	CheckoutAttemptReconciled,
	CheckoutAttemptAbandoned,
}

// String implements fmt.Stringer.
func (s CheckoutAttemptStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known CheckoutAttemptStatus.
func (s CheckoutAttemptStatus) IsValid() bool {
	return slices.Contains(validCheckoutAttemptStatuses, s)
}

// IsOpen reports whether the attempt still needs reconciliation.
func (s CheckoutAttemptStatus) IsOpen() bool {
	return s == CheckoutAttemptIntentPending || s == CheckoutAttemptIntentCreated
}

// ParseCheckoutAttemptStatus converts raw input into a CheckoutAttemptStatus.
func ParseCheckoutAttemptStatus(value string) (CheckoutAttemptStatus, error) {
	return parse("checkout attempt status", value, validCheckoutAttemptStatuses)
}

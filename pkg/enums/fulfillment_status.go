package enums

import "slices"

// FulfillmentStatus is the shipping lifecycle of an order.
type FulfillmentStatus string

const (
	FulfillmentStatusNotProcessed FulfillmentStatus = "Not processed"
	FulfillmentStatusProcessing   FulfillmentStatus = "Processing"
	FulfillmentStatusShipped      FulfillmentStatus = "Shipped"
	FulfillmentStatusDelivered    FulfillmentStatus = "Delivered"
	FulfillmentStatusCancelled    FulfillmentStatus = "Cancelled"
)

var validFulfillmentStatuses = []FulfillmentStatus{
	FulfillmentStatusNotProcessed,
	FulfillmentStatusProcessing,
	FulfillmentStatusShipped,
	FulfillmentStatusDelivered,
	FulfillmentStatusCancelled,
}

var fulfillmentTransitions = map[FulfillmentStatus][]FulfillmentStatus{
	FulfillmentStatusNotProcessed: {FulfillmentStatusProcessing, FulfillmentStatusCancelled},
	FulfillmentStatusProcessing:   {FulfillmentStatusShipped, FulfillmentStatusCancelled},
	FulfillmentStatusShipped:      {FulfillmentStatusDelivered, FulfillmentStatusCancelled},
	FulfillmentStatusDelivered:    nil,
	FulfillmentStatusCancelled:    nil,
}

// String implements fmt.Stringer.
func (f FulfillmentStatus) String() string {
	return string(f)
}

// IsValid reports whether the value is a known FulfillmentStatus.
func (f FulfillmentStatus) IsValid() bool {
	return slices.Contains(validFulfillmentStatuses, f)
}

// IsTerminal reports whether no further transitions are allowed.
func (f FulfillmentStatus) IsTerminal() bool {
	return len(fulfillmentTransitions[f]) == 0
}

// AllowedNext lists the statuses reachable from f.
func (f FulfillmentStatus) AllowedNext() []FulfillmentStatus {
	next := fulfillmentTransitions[f]
	out := make([]FulfillmentStatus, len(next))
	copy(out, next)
	return out
}

// CanTransition is the single source of truth for fulfillment moves.
func CanTransition(from, to FulfillmentStatus) bool {
	return slices.Contains(fulfillmentTransitions[from], to)
}

// ParseFulfillmentStatus converts raw input into a FulfillmentStatus. The
// underscore spelling "Not_processed" is accepted as an alias.
func ParseFulfillmentStatus(value string) (FulfillmentStatus, error) {
	if value == "Not_processed" {
		return FulfillmentStatusNotProcessed, nil
	}
	return parse("fulfillment status", value, validFulfillmentStatuses)
}

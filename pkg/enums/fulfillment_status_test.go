package enums

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanTransitionTable(t *testing.T) {
	cases := []struct {
		from, to FulfillmentStatus
		ok       bool
	}{
		{FulfillmentStatusNotProcessed, FulfillmentStatusProcessing, true},
		{FulfillmentStatusNotProcessed, FulfillmentStatusCancelled, true},
		{FulfillmentStatusNotProcessed, FulfillmentStatusShipped, false},
		{FulfillmentStatusProcessing, FulfillmentStatusShipped, true},
		{FulfillmentStatusProcessing, FulfillmentStatusCancelled, true},
		{FulfillmentStatusShipped, FulfillmentStatusDelivered, true},
		{FulfillmentStatusShipped, FulfillmentStatusCancelled, true},
		{FulfillmentStatusShipped, FulfillmentStatusProcessing, false},
		{FulfillmentStatusDelivered, FulfillmentStatusCancelled, false},
		{FulfillmentStatusProcessing, FulfillmentStatusProcessing, false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.ok, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestCancelledIsTerminal(t *testing.T) {
	for _, to := range validFulfillmentStatuses {
		require.False(t, CanTransition(FulfillmentStatusCancelled, to), "cancelled -> %s", to)
	}
	require.True(t, FulfillmentStatusCancelled.IsTerminal())
	require.True(t, FulfillmentStatusDelivered.IsTerminal())
	require.False(t, FulfillmentStatusShipped.IsTerminal())
}

func TestAllowedNextReturnsCopy(t *testing.T) {
	next := FulfillmentStatusNotProcessed.AllowedNext()
	require.Len(t, next, 2)
	next[0] = FulfillmentStatusDelivered
	require.True(t, CanTransition(FulfillmentStatusNotProcessed, FulfillmentStatusProcessing))
}

func TestParseFulfillmentStatus(t *testing.T) {
	got, err := ParseFulfillmentStatus("Not_processed")
	require.NoError(t, err)
	require.Equal(t, FulfillmentStatusNotProcessed, got)

	got, err = ParseFulfillmentStatus("Shipped")
	require.NoError(t, err)
	require.Equal(t, FulfillmentStatusShipped, got)

	_, err = ParseFulfillmentStatus("shipped")
	require.Error(t, err)
}

func TestPaymentStatusVerifiable(t *testing.T) {
	require.True(t, PaymentStatusCreated.IsVerifiable())
	require.True(t, PaymentStatusFailed.IsVerifiable())
	require.False(t, PaymentStatusCaptured.IsVerifiable())
	require.False(t, PaymentStatusRefunded.IsVerifiable())
}

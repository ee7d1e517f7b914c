package registry

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bidmart-backend/pkg/enums"
	"github.com/angelmondragon/bidmart-backend/pkg/outbox"
	"github.com/angelmondragon/bidmart-backend/pkg/outbox/payloads"
)

func TestDecoderRegistryCustomDecoder(t *testing.T) {
	reg := NewDecoderRegistry()
	require.NoError(t, reg.Register(enums.EventAdStatusChanged, 1, func(data json.RawMessage) (any, error) {
		var decoded map[string]any
		err := json.Unmarshal(data, &decoded)
		return decoded, err
	}))

	output, err := reg.Decode(enums.EventAdStatusChanged, 1, json.RawMessage(`{"reason":"order_paid"}`))
	require.NoError(t, err)
	require.Equal(t, "order_paid", output.(map[string]any)["reason"])
}

func TestDecoderRegistryUnknownVersion(t *testing.T) {
	reg := NewDecoderRegistry()
	require.NoError(t, reg.Register(enums.EventOrderPaid, 1, JSONDecoder[payloads.OrderPaidEvent]()))

	_, err := reg.Decode(enums.EventOrderPaid, 2, json.RawMessage(`{}`))
	require.True(t, errors.Is(err, ErrNoDecoder))
}

func TestDecoderRegistryRejectsBadRegistrations(t *testing.T) {
	reg := NewDecoderRegistry()
	dec := JSONDecoder[payloads.OrderPaidEvent]()

	require.Error(t, reg.Register(enums.OutboxEventType("order_lost"), 1, dec))
	require.Error(t, reg.Register(enums.EventOrderPaid, 0, dec))
	require.Error(t, reg.Register(enums.EventOrderPaid, 1, nil))
	require.NoError(t, reg.Register(enums.EventOrderPaid, 1, dec))
	require.Error(t, reg.Register(enums.EventOrderPaid, 1, dec))
}

func TestDecodeEnvelopeBuildsTypedPayload(t *testing.T) {
	reg := NewDecoderRegistry()
	require.NoError(t, reg.Register(enums.EventOrderPaid, 1, JSONDecoder[payloads.OrderPaidEvent]()))

	orderID := uuid.New()
	raw, err := json.Marshal(payloads.OrderPaidEvent{OrderID: orderID, BuyerName: "Asha"})
	require.NoError(t, err)

	output, err := reg.DecodeEnvelope(enums.EventOrderPaid, outbox.PayloadEnvelope{Data: raw})
	require.NoError(t, err)
	event, ok := output.(*payloads.OrderPaidEvent)
	require.True(t, ok)
	require.Equal(t, orderID, event.OrderID)
	require.Equal(t, "Asha", event.BuyerName)
}

func TestJSONDecoderRejectsEmptyData(t *testing.T) {
	_, err := JSONDecoder[payloads.OrderPaidEvent]()(nil)
	require.Error(t, err)
}

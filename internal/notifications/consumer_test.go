package notifications

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bidmart-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bidmart-backend/pkg/db/models"
	"github.com/angelmondragon/bidmart-backend/pkg/enums"
	"github.com/angelmondragon/bidmart-backend/pkg/logger"
	"github.com/angelmondragon/bidmart-backend/pkg/outbox"
	"github.com/angelmondragon/bidmart-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/bidmart-backend/pkg/outbox/payloads"
)

type memoryStore struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memoryStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string { return "bm:idempotency:" + scope + ":" + id }

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.keys, key)
	}
	return nil
}

type nopReceiver struct{}

func (nopReceiver) Receive(context.Context, func(context.Context, *pubsub.Message)) error { return nil }

type failingRepo struct{ calls int }

func (f *failingRepo) Create(context.Context, *models.Notification) error {
	f.calls++
	return errors.New("db down")
}

func newTestConsumer(t *testing.T, repo repository) *Consumer {
	t.Helper()
	manager, err := idempotency.NewManager(&memoryStore{keys: map[string]bool{}}, time.Hour)
	require.NoError(t, err)
	consumer, err := NewConsumer(repo, nopReceiver{}, manager, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	require.NoError(t, err)
	return consumer
}

func message(t *testing.T, eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType, data any) *pubsub.Message {
	t.Helper()
	row, envelope, err := outbox.BuildRow(outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: aggregate,
		AggregateID:   uuid.New(),
		Data:          data,
	})
	require.NoError(t, err)
	return &pubsub.Message{
		ID:   envelope.EventID,
		Data: row.Payload,
		Attributes: map[string]string{
			"event_id":   envelope.EventID,
			"event_type": string(eventType),
		},
	}
}

func TestConsumerNotifiesBuyerOfOffer(t *testing.T) {
	conn := dbtest.Open(t)
	consumer := newTestConsumer(t, NewRepository(conn))
	buyerID := uuid.New()

	msg := message(t, enums.EventOfferSubmitted, enums.AggregateOffer, payloads.OfferSubmittedEvent{
		AdID: uuid.New(), OfferID: uuid.New(), BuyerID: buyerID,
		VendorName: "Ravi Works", ProductName: "Oak table",
		PricePerProduct: decimal.NewFromInt(90), DispatchDay: 3,
	})
	require.True(t, consumer.process(context.Background(), msg).ack)
	require.True(t, consumer.process(context.Background(), msg).ack)

	var rows []models.Notification
	require.NoError(t, conn.Where("user_id = ?", buyerID).Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, enums.NotificationTypeOfferReceived, rows[0].Type)
	require.Equal(t, "Ravi Works offered 90.00 per unit for Oak table, dispatch in 3 days.", rows[0].Message)
}

func TestConsumerRoutesOrderEvents(t *testing.T) {
	conn := dbtest.Open(t)
	consumer := newTestConsumer(t, NewRepository(conn))
	ctx := context.Background()
	buyerID, vendorUserID, orderID := uuid.New(), uuid.New(), uuid.New()

	msgs := []*pubsub.Message{
		message(t, enums.EventOrderPaid, enums.AggregateOrder, payloads.OrderPaidEvent{
			OrderID: orderID, BuyerID: buyerID, BuyerName: "Asha", VendorUserID: vendorUserID,
			ProductName: "Oak table", TotalAmount: decimal.NewFromInt(180),
		}),
		message(t, enums.EventOrderStatusChanged, enums.AggregateOrder, payloads.OrderStatusChangedEvent{
			OrderID: orderID, BuyerID: buyerID, ProductName: "Oak table",
			From: enums.FulfillmentStatusNotProcessed, To: enums.FulfillmentStatusProcessing,
		}),
		message(t, enums.EventOrderRefunded, enums.AggregateOrder, payloads.OrderRefundedEvent{
			OrderID: orderID, BuyerID: buyerID, Amount: decimal.NewFromInt(180),
		}),
		message(t, enums.EventCheckoutReconciled, enums.AggregateCheckoutAttempt, payloads.CheckoutReconciledEvent{
			CheckoutAttemptID: uuid.New(), Outcome: enums.CheckoutAttemptAbandoned,
		}),
	}
	for _, msg := range msgs {
		require.True(t, consumer.process(ctx, msg).ack)
	}

	var vendorRows []models.Notification
	require.NoError(t, conn.Where("user_id = ?", vendorUserID).Find(&vendorRows).Error)
	require.Len(t, vendorRows, 1)
	require.Equal(t, enums.NotificationTypeOfferAccepted, vendorRows[0].Type)
	require.Equal(t, "Asha paid 180.00 for Oak table.", vendorRows[0].Message)

	var buyerRows []models.Notification
	require.NoError(t, conn.Where("user_id = ?", buyerID).Order("type").Find(&buyerRows).Error)
	require.Len(t, buyerRows, 2)
	require.Equal(t, enums.NotificationTypeOrderStatus, buyerRows[0].Type)
	require.Equal(t, enums.NotificationTypeRefundIssued, buyerRows[1].Type)
}

func TestConsumerNacksAndRetriesOnStoreFailure(t *testing.T) {
	repo := &failingRepo{}
	consumer := newTestConsumer(t, repo)
	msg := message(t, enums.EventOrderRefunded, enums.AggregateOrder, payloads.OrderRefundedEvent{
		OrderID: uuid.New(), BuyerID: uuid.New(), Amount: decimal.NewFromInt(10),
	})

	require.True(t, consumer.process(context.Background(), msg).nack)
	require.True(t, consumer.process(context.Background(), msg).nack)
	require.Equal(t, 2, repo.calls)
}

func TestConsumerAcksMalformedMessages(t *testing.T) {
	consumer := newTestConsumer(t, &failingRepo{})
	msg := &pubsub.Message{Data: []byte("not json"), Attributes: map[string]string{"event_type": string(enums.EventOrderPaid)}}
	require.True(t, consumer.process(context.Background(), msg).ack)
}

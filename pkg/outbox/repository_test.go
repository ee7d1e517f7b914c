package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/bidmart-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bidmart-backend/pkg/db/models"
	"github.com/angelmondragon/bidmart-backend/pkg/enums"
	"github.com/angelmondragon/bidmart-backend/pkg/outbox/payloads"
)

func TestServiceEmitWritesEnvelope(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)

	adID := uuid.New()
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventAdStatusChanged,
			AggregateType: enums.AggregateAd,
			AggregateID:   adID,
			Actor:         &ActorRef{UserID: uuid.New(), Role: enums.RoleUser},
			Data:          payloads.AdStatusChangedEvent{AdID: adID, IsActive: false, Reason: "order_paid"},
		})
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, adID, rows[0].AggregateID)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	require.Equal(t, 1, envelope.Version)
	require.NotEmpty(t, envelope.EventID)
	require.Equal(t, enums.RoleUser, envelope.Actor.Role)

	var data payloads.AdStatusChangedEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	require.Equal(t, "order_paid", data.Reason)
}

func TestServiceEmitRequiresTransaction(t *testing.T) {
	svc := NewService(NewRepository(nil), nil)
	err := svc.Emit(context.Background(), nil, DomainEvent{
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
	})
	require.Error(t, err)
}

func TestServiceEmitRejectsUnknownEventType(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(NewRepository(db), nil)
	err := svc.Emit(context.Background(), db, DomainEvent{
		EventType:     enums.OutboxEventType("unknown"),
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
	})
	require.Error(t, err)
}

func TestRepositoryFetchAndMark(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)

	first := seedEvent(t, db, repo)
	second := seedEvent(t, db, repo)

	rows, err := repo.FetchUnpublishedForPublish(db, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.NoError(t, repo.MarkPublishedTx(db, first))
	require.NoError(t, repo.MarkFailedTx(db, second, errors.New("pubsub down")))

	rows, err = repo.FetchUnpublishedForPublish(db, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, second, rows[0].ID)
	require.Equal(t, 1, rows[0].AttemptCount)
	require.NotNil(t, rows[0].LastError)
	require.Equal(t, "pubsub down", *rows[0].LastError)

	require.NoError(t, repo.MarkTerminalTx(db, second, errors.New("bad payload"), 3))
	rows, err = repo.FetchUnpublishedForPublish(db, 10, 3)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestRepositoryDeletePublishedBefore(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)

	published := seedEvent(t, db, repo)
	pending := seedEvent(t, db, repo)
	require.NoError(t, repo.MarkPublishedTx(db, published))

	deleted, err := repo.DeletePublishedBefore(nil, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)

	var remaining []models.OutboxEvent
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	require.Equal(t, pending, remaining[0].ID)
}

func TestDLQRepositoryParkTruncatesMessage(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewDLQRepository(db)

	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		AttemptCount:  10,
	}
	cause := errors.New(strings.Repeat("x", 1024+50))
	require.NoError(t, repo.ParkTx(db, event, enums.OutboxDLQReasonMaxAttempts, cause))

	found, err := repo.ForEvent(context.Background(), event.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Len(t, *found.ErrorMessage, 1024)
	require.Equal(t, 10, found.AttemptCount)
	require.Equal(t, enums.OutboxDLQReasonMaxAttempts, found.ErrorReason)

	missing, err := repo.ForEvent(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestDLQRepositoryParkRejectsUnknownReason(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewDLQRepository(db)

	err := repo.ParkTx(db, models.OutboxEvent{ID: uuid.New()}, enums.OutboxDLQErrorReason("bogus"), errors.New("x"))
	require.Error(t, err)
}

func seedEvent(t *testing.T, db *gorm.DB, repo *Repository) uuid.UUID {
	t.Helper()
	row, _, err := BuildRow(DomainEvent{
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Data:          payloads.OrderPaidEvent{OrderID: uuid.New()},
	})
	require.NoError(t, err)
	row.ID = uuid.New()
	require.NoError(t, repo.Insert(db, row))
	return row.ID
}

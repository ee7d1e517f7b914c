package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/bidmart-backend/internal/ads"
	"github.com/angelmondragon/bidmart-backend/internal/catalog"
	"github.com/angelmondragon/bidmart-backend/pkg/db"
	"github.com/angelmondragon/bidmart-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bidmart-backend/pkg/db/models"
	"github.com/angelmondragon/bidmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bidmart-backend/pkg/errors"
	"github.com/angelmondragon/bidmart-backend/pkg/outbox"
	"github.com/angelmondragon/bidmart-backend/pkg/pagination"
	"github.com/angelmondragon/bidmart-backend/pkg/payment/razorpay"
	"github.com/angelmondragon/bidmart-backend/pkg/types"
)

const testSecret = "rzp_test_secret"

type fakeGateway struct {
	refunds   []string
	refundErr error
}

func (g *fakeGateway) VerifySignature(intentID, paymentID, signature string) bool {
	return razorpay.VerifySignature(testSecret, intentID, paymentID, signature)
}

func (g *fakeGateway) Refund(_ context.Context, paymentID string, amount decimal.Decimal, _ string) (*razorpay.Refund, error) {
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	g.refunds = append(g.refunds, paymentID)
	return &razorpay.Refund{ID: "rfnd_" + paymentID, PaymentID: paymentID, Amount: razorpay.MinorUnits(amount)}, nil
}

type fakeLocker struct{}

func (fakeLocker) LockKey(scope, id string) string { return scope + ":" + id }

func (fakeLocker) TryLock(context.Context, string, time.Duration) (string, error) {
	return "owner", nil
}

func (fakeLocker) Unlock(context.Context, string, string) error { return nil }

type fixture struct {
	db      *gorm.DB
	svc     Service
	gateway *fakeGateway
	buyer   types.Actor
	vendor  types.Actor
	admin   types.Actor
	ad      *models.Ad
	offer   *models.Offer
	order   *models.Order
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)

	buyer := types.Actor{UserID: uuid.New(), Role: enums.RoleUser, Name: "Asha"}
	vendor := types.Actor{UserID: uuid.New(), Role: enums.RoleVendor, Name: "Ravi"}
	admin := types.Actor{UserID: uuid.New(), Role: enums.RoleAdmin, Name: "Ops"}
	require.NoError(t, conn.Create(&models.User{ID: buyer.UserID, Name: "Asha", Email: "asha@example.com", Role: enums.RoleUser}).Error)

	vendorRow := &models.Vendor{UserID: vendor.UserID, MerchantID: uuid.New(), Name: "Ravi Works", IsActive: true}
	require.NoError(t, conn.Create(vendorRow).Error)

	ad := &models.Ad{
		UserID: buyer.UserID, ProductID: uuid.New(), AddressID: uuid.New(),
		PricePerProduct: decimal.NewFromInt(100), Quantity: 2, IsActive: true,
		Categories: []string{string(enums.CategoryFurniture)}, OfferCount: 1,
	}
	require.NoError(t, conn.Create(ad).Error)
	offer := &models.Offer{AdID: ad.ID, VendorID: vendorRow.ID, PricePerProduct: decimal.NewFromInt(90), DispatchDay: 2}
	require.NoError(t, conn.Create(offer).Error)

	order := &models.Order{
		UserID:            buyer.UserID,
		AdID:              ad.ID,
		OfferID:           offer.ID,
		VendorID:          vendorRow.ID,
		CheckoutAttemptID: uuid.New(),
		PaymentIntentID:   "order_abc",
		Receipt:           "rcpt_abc",
		PaymentStatus:     enums.PaymentStatusCreated,
		FulfillmentStatus: enums.FulfillmentStatusNotProcessed,
		Product:           types.ProductSnapshot{ProductID: ad.ProductID.String(), Name: "Oak table"},
		Vendor:            types.VendorSnapshot{VendorID: vendorRow.ID.String(), UserID: vendor.UserID.String(), Name: "Ravi Works"},
		Address:           types.AddressSnapshot{AddressID: ad.AddressID.String(), City: "Pune", Country: "India"},
		PricePerProduct:   decimal.NewFromInt(90),
		Quantity:          2,
		TotalAmount:       decimal.NewFromInt(180),
		Currency:          enums.CurrencyINR,
		DispatchDay:       2,
	}
	require.NoError(t, conn.Create(order).Error)

	catalogSvc, err := catalog.NewService(catalog.NewRepository(conn))
	require.NoError(t, err)
	gateway := &fakeGateway{}
	svc, err := NewService(Deps{
		Orders:  NewRepository(conn),
		Ads:     ads.NewRepository(conn),
		Vendors: ads.NewVendorRepository(conn),
		Users:   catalogSvc,
		Gateway: gateway,
		Locker:  fakeLocker{},
		Tx:      db.NewWithConn(conn),
		Outbox:  outbox.NewService(outbox.NewRepository(conn), nil),
	})
	require.NoError(t, err)

	return &fixture{db: conn, svc: svc, gateway: gateway, buyer: buyer, vendor: vendor, admin: admin, ad: ad, offer: offer, order: order}
}

func (f *fixture) countOutbox(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&count).Error)
	return count
}

func (f *fixture) verify(t *testing.T, paymentID string) *VerifyResult {
	t.Helper()
	res, err := f.svc.VerifyPayment(context.Background(), VerifyInput{
		IntentID:  f.order.PaymentIntentID,
		PaymentID: paymentID,
		Signature: razorpay.Sign(testSecret, f.order.PaymentIntentID, paymentID),
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) setStatus(t *testing.T, payment enums.PaymentStatus, fulfillment enums.FulfillmentStatus) {
	t.Helper()
	require.NoError(t, f.db.Model(&models.Order{}).Where("id = ?", f.order.ID).Updates(map[string]any{
		"payment_status":     payment,
		"fulfillment_status": fulfillment,
		"payment_id":         "pay_1",
	}).Error)
}

func TestVerifyPaymentCapturesAndDeactivatesAd(t *testing.T) {
	f := newFixture(t)

	res := f.verify(t, "pay_1")
	require.True(t, res.Success)
	require.Len(t, res.Orders, 1)
	require.Equal(t, enums.PaymentStatusCaptured, res.Orders[0].PaymentStatus)
	require.True(t, decimal.NewFromInt(180).Equal(res.Orders[0].TotalAmount))
	require.NotNil(t, res.Orders[0].PaidAt)

	var ad models.Ad
	require.NoError(t, f.db.First(&ad, "id = ?", f.ad.ID).Error)
	require.False(t, ad.IsActive)

	var offer models.Offer
	require.NoError(t, f.db.First(&offer, "id = ?", f.offer.ID).Error)
	require.True(t, offer.IsLocked())

	require.EqualValues(t, 1, f.countOutbox(t, enums.EventOrderPaid))
	require.EqualValues(t, 1, f.countOutbox(t, enums.EventAdStatusChanged))
}

func TestVerifyPaymentIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.verify(t, "pay_1")

	res := f.verify(t, "pay_1")
	require.True(t, res.Success)
	require.Equal(t, enums.PaymentStatusCaptured, res.Orders[0].PaymentStatus)
	require.EqualValues(t, 1, f.countOutbox(t, enums.EventOrderPaid))
	require.EqualValues(t, 1, f.countOutbox(t, enums.EventAdStatusChanged))
}

func TestVerifyPaymentInvalidSignatureMarksFailed(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.VerifyPayment(context.Background(), VerifyInput{
		IntentID: f.order.PaymentIntentID, PaymentID: "pay_1", Signature: "forged",
	})
	require.NoError(t, err)
	require.False(t, res.Success)
	require.Equal(t, enums.PaymentStatusFailed, res.Orders[0].PaymentStatus)
	require.EqualValues(t, 1, f.countOutbox(t, enums.EventOrderPaymentFailed))

	var ad models.Ad
	require.NoError(t, f.db.First(&ad, "id = ?", f.ad.ID).Error)
	require.True(t, ad.IsActive)

	retry := f.verify(t, "pay_2")
	require.True(t, retry.Success)
	require.Equal(t, enums.PaymentStatusCaptured, retry.Orders[0].PaymentStatus)
}

func TestVerifyPaymentRequiresFieldsAndKnownIntent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.VerifyPayment(ctx, VerifyInput{IntentID: "order_abc"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.VerifyPayment(ctx, VerifyInput{IntentID: "order_missing", PaymentID: "pay_1", Signature: "x"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateItemStatusFollowsTransitionTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpdateItemStatus(ctx, f.vendor, f.order.ID, enums.FulfillmentStatusProcessing)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "unpaid order must not progress")

	f.verify(t, "pay_1")
	for _, next := range []enums.FulfillmentStatus{enums.FulfillmentStatusProcessing, enums.FulfillmentStatusShipped} {
		dto, err := f.svc.UpdateItemStatus(ctx, f.vendor, f.order.ID, next)
		require.NoError(t, err)
		require.Equal(t, next, dto.FulfillmentStatus)
	}

	_, err = f.svc.UpdateItemStatus(ctx, f.vendor, f.order.ID, enums.FulfillmentStatusProcessing)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	require.EqualValues(t, 2, f.countOutbox(t, enums.EventOrderStatusChanged))

	dto, err := f.svc.UpdateItemStatus(ctx, f.admin, f.order.ID, enums.FulfillmentStatusDelivered)
	require.NoError(t, err)
	require.Equal(t, enums.FulfillmentStatusDelivered, dto.FulfillmentStatus)
}

func TestUpdateItemStatusRequiresVendorOrAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.verify(t, "pay_1")

	_, err := f.svc.UpdateItemStatus(ctx, f.buyer, f.order.ID, enums.FulfillmentStatusProcessing)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	stranger := types.Actor{UserID: uuid.New(), Role: enums.RoleVendor}
	_, err = f.svc.UpdateItemStatus(ctx, stranger, f.order.ID, enums.FulfillmentStatusProcessing)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.UpdateItemStatus(ctx, f.vendor, uuid.New(), enums.FulfillmentStatusProcessing)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCancelledOrderIsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dto, err := f.svc.Cancel(ctx, f.buyer, f.order.ID)
	require.NoError(t, err)
	require.Equal(t, enums.FulfillmentStatusCancelled, dto.FulfillmentStatus)
	require.NotNil(t, dto.CancelledAt)

	for _, next := range []enums.FulfillmentStatus{
		enums.FulfillmentStatusNotProcessed,
		enums.FulfillmentStatusProcessing,
		enums.FulfillmentStatusCancelled,
	} {
		_, err := f.svc.UpdateItemStatus(ctx, f.admin, f.order.ID, next)
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "transition to %s", next)
	}
}

func TestBuyerCancelOnlyBeforeProcessing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.setStatus(t, enums.PaymentStatusCaptured, enums.FulfillmentStatusProcessing)

	_, err := f.svc.Cancel(ctx, f.buyer, f.order.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	other := types.Actor{UserID: uuid.New(), Role: enums.RoleUser}
	_, err = f.svc.Cancel(ctx, other, f.order.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	dto, err := f.svc.Cancel(ctx, f.admin, f.order.ID)
	require.NoError(t, err)
	require.Equal(t, enums.FulfillmentStatusCancelled, dto.FulfillmentStatus)
}

func TestRefundRejectsIneligibleOrderWithoutGatewayCall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.db.Model(&models.Order{}).Where("id = ?", f.order.ID).Update("payment_id", "pay_1").Error)

	_, err := f.svc.Refund(ctx, f.admin, RefundInput{PaymentID: "pay_1"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	f.setStatus(t, enums.PaymentStatusCaptured, enums.FulfillmentStatusShipped)
	_, err = f.svc.Refund(ctx, f.admin, RefundInput{PaymentID: "pay_1"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	require.Empty(t, f.gateway.refunds)
}

func TestRefundCapturedCancelledOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.setStatus(t, enums.PaymentStatusCaptured, enums.FulfillmentStatusCancelled)

	_, err := f.svc.Refund(ctx, f.buyer, RefundInput{PaymentID: "pay_1"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	res, err := f.svc.Refund(ctx, f.admin, RefundInput{PaymentID: "pay_1"})
	require.NoError(t, err)
	require.Equal(t, "rfnd_pay_1", res.RefundID)
	require.Equal(t, enums.PaymentStatusRefunded, res.Order.PaymentStatus)
	require.Equal(t, []string{"pay_1"}, f.gateway.refunds)
	require.EqualValues(t, 1, f.countOutbox(t, enums.EventOrderRefunded))

	_, err = f.svc.Refund(ctx, f.admin, RefundInput{PaymentID: "pay_1"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	require.Len(t, f.gateway.refunds, 1)
}

func TestRefundGatewayFailureIsNotRetryable(t *testing.T) {
	f := newFixture(t)
	f.setStatus(t, enums.PaymentStatusCaptured, enums.FulfillmentStatusCancelled)
	f.gateway.refundErr = pkgerrors.New(pkgerrors.CodeGatewayUnavailable, "payment gateway timed out")

	_, err := f.svc.Refund(context.Background(), f.admin, RefundInput{PaymentID: "pay_1"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeGatewayError))
	require.False(t, pkgerrors.MetadataFor(pkgerrors.CodeGatewayError).Retryable)

	var order models.Order
	require.NoError(t, f.db.First(&order, "id = ?", f.order.ID).Error)
	require.Equal(t, enums.PaymentStatusCaptured, order.PaymentStatus)
}

func TestOrderVisibilityAndListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	page := pagination.Page{Page: 1, Limit: 10}

	_, err := f.svc.Get(ctx, f.buyer, f.order.ID)
	require.NoError(t, err)
	_, err = f.svc.Get(ctx, f.vendor, f.order.ID)
	require.NoError(t, err)
	_, err = f.svc.Get(ctx, types.Actor{UserID: uuid.New(), Role: enums.RoleUser}, f.order.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	mine, err := f.svc.ListMine(ctx, f.buyer, page)
	require.NoError(t, err)
	require.EqualValues(t, 1, mine.Total)

	vendorOrders, err := f.svc.ListForVendor(ctx, f.vendor, page)
	require.NoError(t, err)
	require.Len(t, vendorOrders.Items, 1)

	_, err = f.svc.ListAll(ctx, f.buyer, AdminFilters{}, page)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	captured := enums.PaymentStatusCaptured
	all, err := f.svc.ListAll(ctx, f.admin, AdminFilters{PaymentStatus: &captured}, page)
	require.NoError(t, err)
	require.Zero(t, all.Total)

	found, err := f.svc.SearchByIntent(ctx, f.admin, "order_abc")
	require.NoError(t, err)
	require.Len(t, found, 1)
}

package orders

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/bidmart-backend/api/controllers/requestctx"
	"github.com/angelmondragon/bidmart-backend/api/responses"
	"github.com/angelmondragon/bidmart-backend/api/validators"
	"github.com/angelmondragon/bidmart-backend/internal/checkout"
	internalorders "github.com/angelmondragon/bidmart-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/bidmart-backend/pkg/errors"
	"github.com/angelmondragon/bidmart-backend/pkg/logger"
)

// CheckoutSingle opens a gateway intent for one accepted offer and returns it
// with the persisted order.
func CheckoutSingle(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		actor, err := requestctx.Actor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req checkoutSingleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CheckoutSingle(r.Context(), actor, uuid.MustParse(req.AdID), uuid.MustParse(req.OfferID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// VerifyPayment handles the unauthenticated gateway callback. Trust comes from
// the HMAC signature, checked by the service. A mismatch answers 400 with the
// persisted Failed orders in the error details.
func VerifyPayment(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		var req verifyPaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithField(ctx, "payment_intent_id", req.IntentID)
		}
		result, err := svc.VerifyPayment(ctx, internalorders.VerifyInput{
			IntentID:  req.IntentID,
			PaymentID: req.PaymentID,
			Signature: req.Signature,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if !result.Success {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, result.Message).WithDetails(result))
			return
		}
		responses.WriteSuccess(w, result)
	}
}

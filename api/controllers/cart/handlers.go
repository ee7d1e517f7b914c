package cart

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/bidmart-backend/api/controllers/requestctx"
	"github.com/angelmondragon/bidmart-backend/api/responses"
	"github.com/angelmondragon/bidmart-backend/api/validators"
	cartsvc "github.com/angelmondragon/bidmart-backend/internal/cart"
	"github.com/angelmondragon/bidmart-backend/internal/checkout"
	pkgerrors "github.com/angelmondragon/bidmart-backend/pkg/errors"
	"github.com/angelmondragon/bidmart-backend/pkg/logger"
	"github.com/angelmondragon/bidmart-backend/pkg/types"
)

type buyerAction func(r *http.Request, actor types.Actor) (any, error)

// buyerHandler resolves the caller and writes whatever act returns. A nil
// dependency answers 500 before any request parsing.
func buyerHandler(ready bool, name string, logg *logger.Logger, act buyerAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if !ready {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable"))
			return
		}
		actor, err := requestctx.Actor(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		out, err := act(r, actor)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

// CartFetch returns the buyer cart with its lines and total.
func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return buyerHandler(svc != nil, "cart", logg, func(r *http.Request, actor types.Actor) (any, error) {
		return svc.Get(r.Context(), actor)
	})
}

// CartAdd adds an offer on one of the buyer's ads as a cart line.
func CartAdd(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return buyerHandler(svc != nil, "cart", logg, func(r *http.Request, actor types.Actor) (any, error) {
		var req addToCartRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			return nil, err
		}
		return svc.AddOffer(r.Context(), actor, uuid.MustParse(req.AdID), uuid.MustParse(req.OfferID))
	})
}

func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return buyerHandler(svc != nil, "cart", logg, func(r *http.Request, actor types.Actor) (any, error) {
		itemID, err := requestctx.UUIDParam(r, "itemId")
		if err != nil {
			return nil, err
		}
		return svc.RemoveItem(r.Context(), actor, itemID)
	})
}

// CartCheckout pays for every line of the buyer cart under one gateway intent.
func CartCheckout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return buyerHandler(svc != nil, "checkout", logg, func(r *http.Request, actor types.Actor) (any, error) {
		return svc.CheckoutCart(r.Context(), actor)
	})
}

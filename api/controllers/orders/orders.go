package orders

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/bidmart-backend/api/controllers/requestctx"
	"github.com/angelmondragon/bidmart-backend/api/responses"
	"github.com/angelmondragon/bidmart-backend/api/validators"
	internalorders "github.com/angelmondragon/bidmart-backend/internal/orders"
	"github.com/angelmondragon/bidmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bidmart-backend/pkg/errors"
	"github.com/angelmondragon/bidmart-backend/pkg/logger"
	"github.com/angelmondragon/bidmart-backend/pkg/pagination"
	"github.com/angelmondragon/bidmart-backend/pkg/types"
)

// ListMine returns the calling buyer's orders, newest first.
func ListMine(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return listHandler(svc, logg, func(r *http.Request, actor types.Actor, page pagination.Page) (any, error) {
		return svc.ListMine(r.Context(), actor, page)
	})
}

// ListForVendor returns orders placed against the calling vendor's offers.
func ListForVendor(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return listHandler(svc, logg, func(r *http.Request, actor types.Actor, page pagination.Page) (any, error) {
		return svc.ListForVendor(r.Context(), actor, page)
	})
}

// Detail is visible to the buyer, the assigned vendor and admins.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderAction(svc, logg, func(r *http.Request, actor types.Actor, orderID uuid.UUID) (any, error) {
		return svc.Get(r.Context(), actor, orderID)
	})
}

// Cancel moves the order to Cancelled. Buyers may only cancel before processing.
func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderAction(svc, logg, func(r *http.Request, actor types.Actor, orderID uuid.UUID) (any, error) {
		return svc.Cancel(r.Context(), actor, orderID)
	})
}

// UpdateItemStatus applies one fulfillment transition on behalf of an admin or the order's vendor.
func UpdateItemStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := requestctx.Actor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req updateStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseFulfillmentStatus(strings.TrimSpace(req.OrderStatus))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid orderStatus"))
			return
		}

		orderID := uuid.MustParse(req.OrderID)
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID.String(), "")
		}
		order, err := svc.UpdateItemStatus(ctx, actor, orderID, status)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// Refund reverses a captured payment for a cancelled order. Admin only.
func Refund(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := requestctx.Actor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req refundRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalorders.RefundInput{PaymentID: strings.TrimSpace(req.PaymentID)}
		if req.OrderID != nil {
			orderID := uuid.MustParse(*req.OrderID)
			input.OrderID = &orderID
		}
		result, err := svc.Refund(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

type listFunc func(r *http.Request, actor types.Actor, page pagination.Page) (any, error)

func listHandler(svc internalorders.Service, logg *logger.Logger, fn listFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := requestctx.Actor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := requestctx.Page(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := fn(r, actor, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

type orderFunc func(r *http.Request, actor types.Actor, orderID uuid.UUID) (any, error)

func orderAction(svc internalorders.Service, logg *logger.Logger, fn orderFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := requestctx.Actor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := requestctx.UUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID.String(), "")
		}
		result, err := fn(r.WithContext(ctx), actor, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

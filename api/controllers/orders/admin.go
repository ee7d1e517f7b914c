package orders

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/bidmart-backend/api/controllers/requestctx"
	"github.com/angelmondragon/bidmart-backend/api/responses"
	internalorders "github.com/angelmondragon/bidmart-backend/internal/orders"
	"github.com/angelmondragon/bidmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bidmart-backend/pkg/errors"
	"github.com/angelmondragon/bidmart-backend/pkg/logger"
	"github.com/angelmondragon/bidmart-backend/pkg/pagination"
	"github.com/angelmondragon/bidmart-backend/pkg/types"
)

// AdminList pages every order with optional paymentStatus, fulfillmentStatus
// and intentId filters.
func AdminList(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return listHandler(svc, logg, func(r *http.Request, actor types.Actor, page pagination.Page) (any, error) {
		filters, err := buildAdminFilters(r)
		if err != nil {
			return nil, err
		}
		return svc.ListAll(r.Context(), actor, filters, page)
	})
}

// AdminSearchByIntent returns every order settled by one gateway intent.
func AdminSearchByIntent(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
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
		intentID := strings.TrimSpace(r.URL.Query().Get("intentId"))
		if intentID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "intentId is required"))
			return
		}
		list, err := svc.SearchByIntent(r.Context(), actor, intentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": list})
	}
}

func buildAdminFilters(r *http.Request) (internalorders.AdminFilters, error) {
	query := r.URL.Query()
	filters := internalorders.AdminFilters{
		PaymentIntentID: strings.TrimSpace(query.Get("intentId")),
	}
	if raw := strings.TrimSpace(query.Get("paymentStatus")); raw != "" {
		status, err := enums.ParsePaymentStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid paymentStatus")
		}
		filters.PaymentStatus = &status
	}
	if raw := strings.TrimSpace(query.Get("fulfillmentStatus")); raw != "" {
		status, err := enums.ParseFulfillmentStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid fulfillmentStatus")
		}
		filters.FulfillmentStatus = &status
	}
	return filters, nil
}

package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bidmart-backend/api/controllers/requestctx"
	"github.com/angelmondragon/bidmart-backend/api/responses"
	"github.com/angelmondragon/bidmart-backend/api/validators"
	"github.com/angelmondragon/bidmart-backend/internal/ads"
	"github.com/angelmondragon/bidmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bidmart-backend/pkg/errors"
	"github.com/angelmondragon/bidmart-backend/pkg/logger"
)

const maxRemarkLength = 500

type postAdRequest struct {
	AddressID       string          `json:"addressId" validate:"required,uuid"`
	PricePerProduct decimal.Decimal `json:"pricePerProduct"`
	Quantity        int             `json:"quantity" validate:"required,min=1"`
	Categories      []string        `json:"categories" validate:"omitempty,max=8"`
}

type submitOfferRequest struct {
	PricePerProduct decimal.Decimal `json:"pricePerProduct"`
	DispatchDay     int             `json:"dispatchDay" validate:"required,min=1,max=365"`
	Remark          string          `json:"remark" validate:"max=500"`
}

type setActiveRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

// PostAd creates a buyer's purchase request for a catalog product.
func PostAd(svc ads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ads service unavailable"))
			return
		}
		actor, err := requestctx.Actor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := requestctx.UUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req postAdRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		categories, err := parseCategories(req.Categories)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ad, err := svc.PostAd(r.Context(), actor, ads.PostAdInput{
			ProductID:       productID,
			AddressID:       uuid.MustParse(req.AddressID),
			PricePerProduct: req.PricePerProduct,
			Quantity:        req.Quantity,
			Categories:      categories,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, ad)
	}
}

// ListAds filters open ads by price ceiling, category, minimum quantity and status.
func ListAds(svc ads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ads service unavailable"))
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
		filters, err := buildAdFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListAds(r.Context(), actor, filters, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func ListMyAds(svc ads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ads service unavailable"))
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
		list, err := svc.ListMine(r.Context(), actor, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func GetAd(svc ads.Service, logg *logger.Logger) http.HandlerFunc {
	return adAction(svc, logg, func(r *http.Request, svc ads.Service, adID uuid.UUID) (any, error) {
		actor, err := requestctx.Actor(r)
		if err != nil {
			return nil, err
		}
		return svc.GetAd(r.Context(), actor, adID)
	})
}

func SetAdActive(svc ads.Service, logg *logger.Logger) http.HandlerFunc {
	return adAction(svc, logg, func(r *http.Request, svc ads.Service, adID uuid.UUID) (any, error) {
		actor, err := requestctx.Actor(r)
		if err != nil {
			return nil, err
		}
		var req setActiveRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			return nil, err
		}
		return svc.SetAdActive(r.Context(), actor, adID, *req.IsActive)
	})
}

// SubmitOffer records the calling vendor's bid on the ad.
func SubmitOffer(svc ads.Service, logg *logger.Logger) http.HandlerFunc {
	return adAction(svc, logg, func(r *http.Request, svc ads.Service, adID uuid.UUID) (any, error) {
		actor, err := requestctx.Actor(r)
		if err != nil {
			return nil, err
		}
		var req submitOfferRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			return nil, err
		}
		offer, err := svc.SubmitOffer(r.Context(), actor, ads.SubmitOfferInput{
			AdID:            adID,
			PricePerProduct: req.PricePerProduct,
			DispatchDay:     req.DispatchDay,
			Remark:          validators.SanitizeString(req.Remark, maxRemarkLength),
		})
		if err != nil {
			return nil, err
		}
		if logg != nil {
			logg.Info(logg.WithVendorID(r.Context(), offer.VendorID.String()), "offer submitted")
		}
		return offer, nil
	})
}

func RejectOffer(svc ads.Service, logg *logger.Logger) http.HandlerFunc {
	return adAction(svc, logg, func(r *http.Request, svc ads.Service, adID uuid.UUID) (any, error) {
		actor, err := requestctx.Actor(r)
		if err != nil {
			return nil, err
		}
		if err := svc.RejectOffer(r.Context(), actor, adID); err != nil {
			return nil, err
		}
		return map[string]any{"ad_id": adID, "rejected": true}, nil
	})
}

func CancelOffer(svc ads.Service, logg *logger.Logger) http.HandlerFunc {
	return adAction(svc, logg, func(r *http.Request, svc ads.Service, adID uuid.UUID) (any, error) {
		actor, err := requestctx.Actor(r)
		if err != nil {
			return nil, err
		}
		if err := svc.CancelOffer(r.Context(), actor, adID); err != nil {
			return nil, err
		}
		return map[string]any{"ad_id": adID, "cancelled": true}, nil
	})
}

type adActionFunc func(r *http.Request, svc ads.Service, adID uuid.UUID) (any, error)

func adAction(svc ads.Service, logg *logger.Logger, fn adActionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ads service unavailable"))
			return
		}
		adID, err := requestctx.UUIDParam(r, "adId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithField(ctx, "ad_id", adID.String())
		}
		result, err := fn(r.WithContext(ctx), svc, adID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func buildAdFilters(r *http.Request) (ads.ListFilters, error) {
	query := r.URL.Query()
	var filters ads.ListFilters

	if raw := strings.TrimSpace(query.Get("pricePerProduct")); raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil || !price.IsPositive() {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "pricePerProduct must be a positive number")
		}
		filters.MaxPrice = &price
	}

	if _, ok := query["quantity"]; ok {
		quantity, err := validators.ParseQueryInt(r, "quantity", validators.IntRange{Default: 1, Min: 1, Max: 1_000_000})
		if err != nil {
			return filters, err
		}
		filters.MinQuantity = &quantity
	}

	active, err := validators.ParseQueryBool(r, "isActive")
	if err != nil {
		return filters, err
	}
	filters.IsActive = active

	var rawCategories []string
	for _, value := range query["category"] {
		rawCategories = append(rawCategories, strings.Split(value, ",")...)
	}
	categories, err := parseCategories(rawCategories)
	if err != nil {
		return filters, err
	}
	filters.Categories = categories
	return filters, nil
}

func parseCategories(values []string) ([]enums.Category, error) {
	var categories []enums.Category
	for _, raw := range values {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		category, err := enums.ParseCategory(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category")
		}
		categories = append(categories, category)
	}
	return categories, nil
}

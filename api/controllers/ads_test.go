package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bidmart-backend/internal/ads"
	"github.com/angelmondragon/bidmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bidmart-backend/pkg/errors"
	"github.com/angelmondragon/bidmart-backend/pkg/pagination"
	"github.com/angelmondragon/bidmart-backend/pkg/types"
)

type stubAdsService struct {
	ads.Service
	postAdFn      func(actor types.Actor, input ads.PostAdInput) (*ads.AdDTO, error)
	listAdsFn     func(actor types.Actor, filters ads.ListFilters, page pagination.Page) (*ads.AdList, error)
	submitOfferFn func(actor types.Actor, input ads.SubmitOfferInput) (*ads.OfferDTO, error)
	rejectFn      func(actor types.Actor, adID uuid.UUID) error
	setActiveFn   func(actor types.Actor, adID uuid.UUID, isActive bool) (*ads.AdDTO, error)
	registerFn    func(actor types.Actor, input ads.RegisterVendorInput) (*ads.VendorDTO, error)
}

func (s *stubAdsService) PostAd(_ context.Context, actor types.Actor, input ads.PostAdInput) (*ads.AdDTO, error) {
	return s.postAdFn(actor, input)
}

func (s *stubAdsService) ListAds(_ context.Context, actor types.Actor, filters ads.ListFilters, page pagination.Page) (*ads.AdList, error) {
	return s.listAdsFn(actor, filters, page)
}

func (s *stubAdsService) SubmitOffer(_ context.Context, actor types.Actor, input ads.SubmitOfferInput) (*ads.OfferDTO, error) {
	return s.submitOfferFn(actor, input)
}

func (s *stubAdsService) RejectOffer(_ context.Context, actor types.Actor, adID uuid.UUID) error {
	return s.rejectFn(actor, adID)
}

func (s *stubAdsService) SetAdActive(_ context.Context, actor types.Actor, adID uuid.UUID, isActive bool) (*ads.AdDTO, error) {
	return s.setActiveFn(actor, adID, isActive)
}

func (s *stubAdsService) RegisterVendor(_ context.Context, actor types.Actor, input ads.RegisterVendorInput) (*ads.VendorDTO, error) {
	return s.registerFn(actor, input)
}

func TestPostAdCreated(t *testing.T) {
	buyer := uuid.New()
	productID := uuid.New()
	addressID := uuid.New()
	var got ads.PostAdInput
	svc := &stubAdsService{
		postAdFn: func(actor types.Actor, input ads.PostAdInput) (*ads.AdDTO, error) {
			require.Equal(t, buyer, actor.UserID)
			got = input
			return &ads.AdDTO{ID: uuid.New(), IsActive: true}, nil
		},
	}

	body := `{"addressId":"` + addressID.String() + `","pricePerProduct":100,"quantity":2,"categories":["Furniture"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ads/add/"+productID.String(), strings.NewReader(body))
	req = withActor(req, buyer, enums.RoleUser)
	req = addRouteParam(req, "productId", productID.String())
	resp := httptest.NewRecorder()
	PostAd(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	require.Equal(t, productID, got.ProductID)
	require.Equal(t, addressID, got.AddressID)
	require.True(t, got.PricePerProduct.Equal(decimal.NewFromInt(100)))
	require.Equal(t, 2, got.Quantity)
	require.Equal(t, []enums.Category{enums.CategoryFurniture}, got.Categories)
}

func TestPostAdRejectsUnknownCategory(t *testing.T) {
	productID := uuid.New()
	body := `{"addressId":"` + uuid.NewString() + `","pricePerProduct":100,"quantity":2,"categories":["Cars"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ads/add/"+productID.String(), strings.NewReader(body))
	req = withActor(req, uuid.New(), enums.RoleUser)
	req = addRouteParam(req, "productId", productID.String())
	resp := httptest.NewRecorder()
	PostAd(&stubAdsService{}, testLogger())(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestPostAdRejectsMissingQuantity(t *testing.T) {
	productID := uuid.New()
	body := `{"addressId":"` + uuid.NewString() + `","pricePerProduct":100}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ads/add/"+productID.String(), strings.NewReader(body))
	req = withActor(req, uuid.New(), enums.RoleUser)
	req = addRouteParam(req, "productId", productID.String())
	resp := httptest.NewRecorder()
	PostAd(&stubAdsService{}, testLogger())(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestListAdsBuildsFilters(t *testing.T) {
	var (
		gotFilters ads.ListFilters
		gotPage    pagination.Page
	)
	svc := &stubAdsService{
		listAdsFn: func(_ types.Actor, filters ads.ListFilters, page pagination.Page) (*ads.AdList, error) {
			gotFilters = filters
			gotPage = page
			return &ads.AdList{}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ads/list?category=Furniture,Clothing&pricePerProduct=250.50&quantity=3&isActive=true&page=2&limit=10", nil)
	req = withActor(req, uuid.New(), enums.RoleVendor)
	resp := httptest.NewRecorder()
	ListAds(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, []enums.Category{enums.CategoryFurniture, enums.CategoryClothing}, gotFilters.Categories)
	require.NotNil(t, gotFilters.MaxPrice)
	require.Equal(t, "250.5", gotFilters.MaxPrice.String())
	require.NotNil(t, gotFilters.MinQuantity)
	require.Equal(t, 3, *gotFilters.MinQuantity)
	require.NotNil(t, gotFilters.IsActive)
	require.True(t, *gotFilters.IsActive)
	require.Equal(t, pagination.Page{Page: 2, Limit: 10}, gotPage)
}

func TestListAdsRejectsBadPrice(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ads/list?pricePerProduct=abc", nil)
	req = withActor(req, uuid.New(), enums.RoleUser)
	resp := httptest.NewRecorder()
	ListAds(&stubAdsService{}, testLogger())(resp, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSubmitOfferPassesInput(t *testing.T) {
	vendor := uuid.New()
	adID := uuid.New()
	var got ads.SubmitOfferInput
	svc := &stubAdsService{
		submitOfferFn: func(actor types.Actor, input ads.SubmitOfferInput) (*ads.OfferDTO, error) {
			require.Equal(t, vendor, actor.UserID)
			got = input
			return &ads.OfferDTO{ID: uuid.New(), AdID: adID}, nil
		},
	}

	body := `{"pricePerProduct":"90","dispatchDay":3,"remark":"  ships fast  "}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ads/"+adID.String()+"/accept", strings.NewReader(body))
	req = withActor(req, vendor, enums.RoleVendor)
	req = addRouteParam(req, "adId", adID.String())
	resp := httptest.NewRecorder()
	SubmitOffer(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, adID, got.AdID)
	require.True(t, got.PricePerProduct.Equal(decimal.NewFromInt(90)))
	require.Equal(t, 3, got.DispatchDay)
	require.Equal(t, "ships fast", got.Remark)
}

func TestSubmitOfferMissingDispatchDay(t *testing.T) {
	adID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ads/"+adID.String()+"/accept", strings.NewReader(`{"pricePerProduct":90}`))
	req = withActor(req, uuid.New(), enums.RoleVendor)
	req = addRouteParam(req, "adId", adID.String())
	resp := httptest.NewRecorder()
	SubmitOffer(&stubAdsService{}, testLogger())(resp, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSubmitOfferInactiveAdConflict(t *testing.T) {
	adID := uuid.New()
	svc := &stubAdsService{
		submitOfferFn: func(types.Actor, ads.SubmitOfferInput) (*ads.OfferDTO, error) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "ad is inactive")
		},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ads/"+adID.String()+"/accept", strings.NewReader(`{"pricePerProduct":90,"dispatchDay":2}`))
	req = withActor(req, uuid.New(), enums.RoleVendor)
	req = addRouteParam(req, "adId", adID.String())
	resp := httptest.NewRecorder()
	SubmitOffer(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Contains(t, resp.Body.String(), "ad is inactive")
}

func TestRejectOfferNotFound(t *testing.T) {
	adID := uuid.New()
	svc := &stubAdsService{
		rejectFn: func(types.Actor, uuid.UUID) error {
			return pkgerrors.New(pkgerrors.CodeNotFound, "ad not found")
		},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ads/"+adID.String()+"/reject", nil)
	req = withActor(req, uuid.New(), enums.RoleVendor)
	req = addRouteParam(req, "adId", adID.String())
	resp := httptest.NewRecorder()
	RejectOffer(svc, testLogger())(resp, req)
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestSetAdActiveRequiresFlag(t *testing.T) {
	adID := uuid.New()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/ads/"+adID.String()+"/active", strings.NewReader(`{}`))
	req = withActor(req, uuid.New(), enums.RoleUser)
	req = addRouteParam(req, "adId", adID.String())
	resp := httptest.NewRecorder()
	SetAdActive(&stubAdsService{}, testLogger())(resp, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSetAdActiveFalse(t *testing.T) {
	adID := uuid.New()
	var got *bool
	svc := &stubAdsService{
		setActiveFn: func(_ types.Actor, id uuid.UUID, isActive bool) (*ads.AdDTO, error) {
			require.Equal(t, adID, id)
			got = &isActive
			return &ads.AdDTO{ID: id, IsActive: isActive}, nil
		},
	}
	req := httptest.NewRequest(http.MethodPut, "/api/v1/ads/"+adID.String()+"/active", strings.NewReader(`{"isActive":false}`))
	req = withActor(req, uuid.New(), enums.RoleUser)
	req = addRouteParam(req, "adId", adID.String())
	resp := httptest.NewRecorder()
	SetAdActive(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.NotNil(t, got)
	require.False(t, *got)
}

func TestRegisterVendorCreated(t *testing.T) {
	merchantID := uuid.New()
	svc := &stubAdsService{
		registerFn: func(_ types.Actor, input ads.RegisterVendorInput) (*ads.VendorDTO, error) {
			require.Equal(t, merchantID, input.MerchantID)
			require.Equal(t, "Acme Prints", input.Name)
			return &ads.VendorDTO{}, nil
		},
	}
	body := `{"merchantId":"` + merchantID.String() + `","name":" Acme Prints "}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/vendors", strings.NewReader(body))
	req = withActor(req, uuid.New(), enums.RoleVendor)
	resp := httptest.NewRecorder()
	RegisterVendor(svc, testLogger())(resp, req)
	require.Equal(t, http.StatusCreated, resp.Code)
}

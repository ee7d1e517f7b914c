package cart

type addToCartRequest struct {
	AdID    string `json:"adId" validate:"required,uuid"`
	OfferID string `json:"offerId" validate:"required,uuid"`
}

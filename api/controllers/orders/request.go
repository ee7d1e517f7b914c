package orders

type checkoutSingleRequest struct {
	AdID    string `json:"adId" validate:"required,uuid"`
	OfferID string `json:"offerId" validate:"required,uuid"`
}

// verifyPaymentRequest carries the gateway checkout callback fields verbatim.
type verifyPaymentRequest struct {
	IntentID  string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}

type refundRequest struct {
	PaymentID string  `json:"paymentId" validate:"required"`
	OrderID   *string `json:"orderId" validate:"omitempty,uuid"`
}

type updateStatusRequest struct {
	OrderID     string `json:"orderId" validate:"required,uuid"`
	OrderStatus string `json:"orderStatus" validate:"required"`
}

package api

import (
	"net/http"

	"github.com/example/ec-storefront/internal/api/respond"
	"github.com/example/ec-storefront/internal/apperr"
	"github.com/example/ec-storefront/internal/domain/order"
)

var paymentMethods = []order.Method{order.MethodCOD, order.MethodQR, order.MethodPayPal, order.MethodCard}

// PaymentResponse is the JSON answer to a payment attempt.
type PaymentResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	OrderID       string `json:"orderId,omitempty"`
	TransactionID string `json:"transactionId,omitempty"`
}

// PaymentPage returns an order awaiting payment and the accepted methods.
func (h *Handlers) PaymentPage(w http.ResponseWriter, r *http.Request) {
	orderID := orderIDParam(r)
	o, err := h.orders.Payable(r.Context(), principal(r), orderID)
	if err != nil {
		respond.Error(w, r, err, "/orders/"+orderID)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"order":   o,
		"methods": paymentMethods,
	})
}

// ProcessPayment always answers in JSON; the payment page submits it in the
// background.
func (h *Handlers) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	orderID := orderIDParam(r)

	f, err := parseForm(r)
	if err != nil {
		paymentFailed(w, err)
		return
	}
	details := order.PaymentDetails{
		CardNumber:  f.String("cardNumber"),
		CardName:    f.String("cardName"),
		ExpiryDate:  f.String("expiryDate"),
		CVV:         f.String("cvv"),
		PayPalEmail: f.String("paypalEmail"),
	}

	result, err := h.orders.Pay(r.Context(), principal(r), orderID, f.String("paymentMethod"), details)
	if err != nil {
		paymentFailed(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, PaymentResponse{
		Success:       true,
		Message:       "Payment processed successfully",
		OrderID:       result.Order.ID,
		TransactionID: result.TransactionID,
	})
}

func paymentFailed(w http.ResponseWriter, err error) {
	respond.JSON(w, apperr.HTTPStatus(err), PaymentResponse{
		Success: false,
		Message: respond.Message(err),
	})
}

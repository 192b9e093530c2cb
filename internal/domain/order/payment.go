package order

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/example/ec-storefront/internal/apperr"
)

type Method string

const (
	MethodCOD    Method = "cod"
	MethodQR     Method = "qr"
	MethodPayPal Method = "paypal"
	MethodCard   Method = "card"
)

var (
	ErrMissingCardDetails = apperr.Validation("missing card details")
	ErrInvalidCardNumber  = apperr.Validation("invalid card number")
	ErrInvalidCVV         = apperr.Validation("invalid card security code")
	ErrInvalidWalletEmail = apperr.Validation("valid PayPal email is required")
)

// ParseMethod accepts one of the supported payment methods.
func ParseMethod(raw string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(raw)))
	switch m {
	case MethodCOD, MethodQR, MethodPayPal, MethodCard:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMethod, raw)
}

// PaymentDetails carries the method specific fields submitted with a payment.
// Card fields are never persisted beyond the last four digits and the name.
type PaymentDetails struct {
	CardNumber  string `json:"cardNumber"`
	CardName    string `json:"cardName"`
	ExpiryDate  string `json:"expiryDate"`
	CVV         string `json:"cvv"`
	PayPalEmail string `json:"paypalEmail"`
}

// Validate checks the fields required by method.
func (d PaymentDetails) Validate(method Method) error {
	switch method {
	case MethodCOD, MethodQR:
		return nil
	case MethodPayPal:
		if !validEmail(d.PayPalEmail) {
			return ErrInvalidWalletEmail
		}
		return nil
	case MethodCard:
		number := d.normalizedCardNumber()
		if number == "" || strings.TrimSpace(d.CardName) == "" ||
			strings.TrimSpace(d.ExpiryDate) == "" || strings.TrimSpace(d.CVV) == "" {
			return ErrMissingCardDetails
		}
		if len(number) < 13 || !allDigits(number) {
			return ErrInvalidCardNumber
		}
		cvv := strings.TrimSpace(d.CVV)
		if len(cvv) < 3 || !allDigits(cvv) {
			return ErrInvalidCVV
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownMethod, method)
}

func (d PaymentDetails) normalizedCardNumber() string {
	return strings.Join(strings.Fields(d.CardNumber), "")
}

// newPaymentInfo builds the record stored on the order. token supplies the
// random part of the transaction id.
func newPaymentInfo(method Method, d PaymentDetails, now time.Time, token string) *PaymentInfo {
	if method == MethodCOD {
		return &PaymentInfo{
			Method:        method,
			TransactionID: fmt.Sprintf("COD-%d", now.UnixMilli()),
		}
	}

	token = strings.ToUpper(strings.ReplaceAll(token, "-", ""))
	if len(token) > 9 {
		token = token[:9]
	}
	paidAt := now
	info := &PaymentInfo{
		Method:        method,
		PaidAt:        &paidAt,
		TransactionID: fmt.Sprintf("TXN-%d-%s", now.UnixMilli(), token),
	}
	switch method {
	case MethodCard:
		number := d.normalizedCardNumber()
		info.CardLast4 = number[len(number)-4:]
		info.CardName = strings.TrimSpace(d.CardName)
	case MethodPayPal:
		info.PayPalEmail = strings.TrimSpace(d.PayPalEmail)
	}
	return info
}

func validEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

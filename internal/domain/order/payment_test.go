package order

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("PayPal")
	require.NoError(t, err)
	assert.Equal(t, MethodPayPal, m)

	_, err = ParseMethod("bitcoin")
	assert.ErrorIs(t, err, ErrUnknownMethod)
}

func TestPaymentDetails_Validate(t *testing.T) {
	validCard := PaymentDetails{CardNumber: "4111 1111 1111 1111", CardName: "Ada Lovelace", ExpiryDate: "12/30", CVV: "123"}

	tests := []struct {
		name    string
		method  Method
		details PaymentDetails
		wantErr error
	}{
		{"cod needs nothing", MethodCOD, PaymentDetails{}, nil},
		{"qr needs nothing", MethodQR, PaymentDetails{}, nil},
		{"valid card", MethodCard, validCard, nil},
		{"card missing name", MethodCard, PaymentDetails{CardNumber: "4111111111111111", ExpiryDate: "12/30", CVV: "123"}, ErrMissingCardDetails},
		{"card too short", MethodCard, PaymentDetails{CardNumber: "4111 1111", CardName: "A", ExpiryDate: "12/30", CVV: "123"}, ErrInvalidCardNumber},
		{"card with letters", MethodCard, PaymentDetails{CardNumber: "4111-1111-1111-1111", CardName: "A", ExpiryDate: "12/30", CVV: "123"}, ErrInvalidCardNumber},
		{"short cvv", MethodCard, PaymentDetails{CardNumber: "4111111111111111", CardName: "A", ExpiryDate: "12/30", CVV: "12"}, ErrInvalidCVV},
		{"paypal valid", MethodPayPal, PaymentDetails{PayPalEmail: "buyer@example.com"}, nil},
		{"paypal invalid", MethodPayPal, PaymentDetails{PayPalEmail: "not-an-email"}, ErrInvalidWalletEmail},
		{"paypal blank", MethodPayPal, PaymentDetails{}, ErrInvalidWalletEmail},
		{"unknown method", Method("barter"), PaymentDetails{}, ErrUnknownMethod},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.details.Validate(tt.method)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNewPaymentInfo(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("cash on delivery", func(t *testing.T) {
		info := newPaymentInfo(MethodCOD, PaymentDetails{}, now, "ignored")
		assert.Nil(t, info.PaidAt)
		assert.Equal(t, "COD-1772359200000", info.TransactionID)
	})

	t.Run("card keeps last four digits only", func(t *testing.T) {
		info := newPaymentInfo(MethodCard, PaymentDetails{CardNumber: "4111 1111 1111 4242", CardName: " Ada "}, now, "3f2a9c1e-0000-4000-8000-000000000000")
		require.NotNil(t, info.PaidAt)
		assert.True(t, info.PaidAt.Equal(now))
		assert.Equal(t, "4242", info.CardLast4)
		assert.Equal(t, "Ada", info.CardName)
		assert.Equal(t, "TXN-1772359200000-3F2A9C1E0", info.TransactionID)
	})

	t.Run("wallet records email", func(t *testing.T) {
		info := newPaymentInfo(MethodPayPal, PaymentDetails{PayPalEmail: "buyer@example.com"}, now, "abc")
		assert.Equal(t, "buyer@example.com", info.PayPalEmail)
		assert.True(t, strings.HasPrefix(info.TransactionID, "TXN-"))
		assert.Empty(t, info.CardLast4)
	})
}

package order

import (
	"time"

	"github.com/example/ec-storefront/internal/apperr"
	"github.com/shopspring/decimal"
)

// PageSize is the fixed number of orders per listing page.
const PageSize = 10

var (
	ErrOrderNotFound  = apperr.NotFound("order not found")
	ErrEmptyOrder     = apperr.Validation("order must have at least one item")
	ErrLoginRequired  = apperr.New(apperr.ErrUnauthenticated, "login required")
	ErrNotOrderOwner  = apperr.Forbidden("order belongs to another user")
	ErrAdminOnly      = apperr.Forbidden("admin role required")
	ErrNotPayable     = apperr.InvalidState("order is not pending payment")
	ErrNotCancellable = apperr.InvalidState("cannot cancel order in current status")
	ErrStatusConflict = apperr.InvalidState("order status changed concurrently")
	ErrUnknownStatus  = apperr.Validation("unknown order status")
	ErrUnknownMethod  = apperr.Validation("invalid payment method")
)

// Item is a line item snapshotted from the cart at checkout.
type Item struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Customer holds the contact and shipping fields collected at checkout.
type Customer struct {
	Name            string `json:"customerName"`
	Email           string `json:"customerEmail"`
	ShippingAddress string `json:"shippingAddress"`
}

// PaymentInfo is attached when payment is processed. PaidAt stays nil for
// cash on delivery.
type PaymentInfo struct {
	Method        Method     `json:"method"`
	PaidAt        *time.Time `json:"paidAt"`
	TransactionID string     `json:"transactionId"`
	CardLast4     string     `json:"cardLast4,omitempty"`
	CardName      string     `json:"cardName,omitempty"`
	PayPalEmail   string     `json:"paypalEmail,omitempty"`
}

type Order struct {
	ID              string          `json:"orderId"`
	UserID          string          `json:"userId"`
	CustomerName    string          `json:"customerName"`
	CustomerEmail   string          `json:"customerEmail"`
	ShippingAddress string          `json:"shippingAddress"`
	Items           []Item          `json:"items"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	Status          Status          `json:"orderStatus"`
	PaymentInfo     *PaymentInfo    `json:"paymentInfo,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (o *Order) Clone() *Order {
	c := *o
	c.Items = append([]Item(nil), o.Items...)
	c.PaymentInfo = o.PaymentInfo.Clone()
	return &c
}

// Clone copies the record including PaidAt. A nil receiver yields nil.
func (p *PaymentInfo) Clone() *PaymentInfo {
	if p == nil {
		return nil
	}
	c := *p
	if p.PaidAt != nil {
		paidAt := *p.PaidAt
		c.PaidAt = &paidAt
	}
	return &c
}

// ReferencesProduct reports whether any line item points at productID.
func (o *Order) ReferencesProduct(productID string) bool {
	for _, item := range o.Items {
		if item.ProductID == productID {
			return true
		}
	}
	return false
}

// Snapshot is the cart content handed to order creation.
type Snapshot struct {
	Items       []Item          `json:"items"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

// SumSubtotals returns the sum of item subtotals.
func SumSubtotals(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal)
	}
	return total
}

// WholeCents reports whether d has no fraction below a cent. Stores keep money
// at two decimal places.
func WholeCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}

// Page is one page of a listing.
type Page struct {
	Orders     []*Order `json:"orders"`
	Page       int      `json:"page"`
	TotalPages int      `json:"totalPages"`
	TotalCount int      `json:"totalCount"`
	Status     Status   `json:"currentStatus,omitempty"`
}

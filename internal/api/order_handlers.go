package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/example/ec-storefront/internal/api/respond"
	"github.com/example/ec-storefront/internal/domain/order"
)

// Order Handlers

// ListOrders serves GET /orders?status=&start=&end=&page=
func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var f order.Filter
	if raw := q.Get("status"); raw != "" && raw != "all" {
		status, err := order.ParseStatus(raw)
		if err != nil {
			respond.Error(w, r, err, "/orders")
			return
		}
		f.Status = status
	}
	from, to, err := order.ParseDateRange(q.Get("start"), q.Get("end"))
	if err != nil {
		respond.Error(w, r, err, "/orders")
		return
	}
	f.From, f.To = from, to
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		f.Page = page
	}

	result, err := h.orders.List(r.Context(), principal(r), f)
	if err != nil {
		respond.Error(w, r, err, "/")
		return
	}
	respond.JSON(w, http.StatusOK, result)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), principal(r), orderIDParam(r))
	if err != nil {
		respond.Error(w, r, err, "/orders")
		return
	}
	respond.JSON(w, http.StatusOK, o)
}

// PlaceOrder creates an order from submitted items. Browser forms send items
// as stringified JSON.
func (h *Handlers) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	f, err := parseForm(r)
	if err != nil {
		respond.Error(w, r, err, "/cart")
		return
	}

	var snap order.Snapshot
	if err := f.Decode("items", &snap.Items); err != nil {
		respond.Error(w, r, err, "/cart")
		return
	}
	if snap.TotalAmount, err = f.Decimal("totalAmount"); err != nil {
		respond.Error(w, r, err, "/cart")
		return
	}

	o, err := h.orders.Create(r.Context(), principal(r), snap, customerFrom(f))
	if err != nil {
		respond.Error(w, r, err, "/cart")
		return
	}
	respond.Done(w, r, http.StatusCreated, map[string]any{"success": true, "order": o},
		"/payment/pay/"+o.ID, "Order placed successfully")
}

// UpdateOrderStatus is the admin status override.
func (h *Handlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := orderIDParam(r)
	back := "/orders/" + orderID

	f, err := parseForm(r)
	if err != nil {
		respond.Error(w, r, err, back)
		return
	}
	// The service checks the role before the vocabulary.
	status := order.Status(strings.TrimSpace(f.String("status")))

	o, err := h.orders.OverrideStatus(r.Context(), principal(r), orderID, status)
	if err != nil {
		respond.Error(w, r, err, back)
		return
	}
	respond.Done(w, r, http.StatusOK, o, back, "Order status updated")
}

func (h *Handlers) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := orderIDParam(r)
	back := "/orders/" + orderID

	o, err := h.orders.Cancel(r.Context(), principal(r), orderID)
	if err != nil {
		respond.Error(w, r, err, back)
		return
	}
	respond.Done(w, r, http.StatusOK, map[string]any{"success": true, "order": o}, back, "Order cancelled")
}

// Checkout turns the session cart into an order.
func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	f, err := parseForm(r)
	if err != nil {
		respond.Error(w, r, err, "/cart")
		return
	}

	o, err := h.orders.Checkout(r.Context(), principal(r), sessionID(r), customerFrom(f))
	if err != nil {
		respond.Error(w, r, err, "/cart")
		return
	}
	respond.Done(w, r, http.StatusCreated, map[string]any{"success": true, "order": o},
		"/payment/pay/"+o.ID, "Order placed successfully")
}

func customerFrom(f *form) order.Customer {
	return order.Customer{
		Name:            f.String("customerName"),
		Email:           f.String("customerEmail"),
		ShippingAddress: f.String("shippingAddress"),
	}
}

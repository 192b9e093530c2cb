package api

import (
	"net/http"

	"github.com/example/ec-storefront/internal/api/respond"
)

// Cart Handlers

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Get(r.Context(), sessionID(r))
	if err != nil {
		respond.Error(w, r, err, "/")
		return
	}
	respond.JSON(w, http.StatusOK, c)
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	f, err := parseForm(r)
	if err != nil {
		respond.Error(w, r, err, "/cart")
		return
	}
	quantity, err := f.Int("quantity", 1)
	if err != nil {
		respond.Error(w, r, err, "/cart")
		return
	}

	c, err := h.carts.AddItem(r.Context(), sessionID(r), f.String("productId"), quantity)
	if err != nil {
		respond.Error(w, r, err, "/cart")
		return
	}
	respond.Done(w, r, http.StatusOK, map[string]any{"ok": true, "cart": c}, "/cart", "Added to cart")
}

// UpdateCart sets a line quantity; zero removes the line.
func (h *Handlers) UpdateCart(w http.ResponseWriter, r *http.Request) {
	f, err := parseForm(r)
	if err != nil {
		respond.Error(w, r, err, "/cart")
		return
	}
	quantity, err := f.Int("quantity", 0)
	if err != nil {
		respond.Error(w, r, err, "/cart")
		return
	}

	c, err := h.carts.UpdateQuantity(r.Context(), sessionID(r), f.String("productId"), quantity)
	if err != nil {
		respond.Error(w, r, err, "/cart")
		return
	}
	respond.Done(w, r, http.StatusOK, map[string]any{"ok": true, "cart": c}, "/cart", "")
}

func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	f, err := parseForm(r)
	if err != nil {
		respond.Error(w, r, err, "/cart")
		return
	}

	c, err := h.carts.RemoveItem(r.Context(), sessionID(r), f.String("productId"))
	if err != nil {
		respond.Error(w, r, err, "/cart")
		return
	}
	respond.Done(w, r, http.StatusOK, map[string]any{"ok": true, "cart": c}, "/cart", "")
}

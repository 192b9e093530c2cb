package api

import (
	"net/http"

	"github.com/example/ec-storefront/internal/api/middleware"
	"github.com/example/ec-storefront/internal/api/respond"
	"github.com/example/ec-storefront/internal/auth"
	"github.com/example/ec-storefront/internal/domain/cart"
	"github.com/example/ec-storefront/internal/domain/order"
	"github.com/example/ec-storefront/internal/domain/product"
	"github.com/example/ec-storefront/internal/report"
	"github.com/go-chi/chi/v5"
)

// Handlers serves the storefront: catalog, cart, orders, payment, and the
// admin sales reports.
type Handlers struct {
	orders   *order.Service
	carts    *cart.Service
	products *product.Service
	reports  *report.Service
}

func NewHandlers(orders *order.Service, carts *cart.Service, products *product.Service, reports *report.Service) *Handlers {
	return &Handlers{
		orders:   orders,
		carts:    carts,
		products: products,
		reports:  reports,
	}
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func principal(r *http.Request) auth.Principal {
	return middleware.PrincipalFrom(r.Context())
}

func sessionID(r *http.Request) string {
	return middleware.SessionID(r.Context())
}

func orderIDParam(r *http.Request) string {
	return chi.URLParam(r, "orderId")
}
